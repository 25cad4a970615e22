package allocator_test

import (
	"unsafe"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/orizon-lang/slotpool/internal/allocator"
	poolerrors "github.com/orizon-lang/slotpool/internal/errors"
)

var _ = Describe("fixed-size object pool allocator", func() {
	Context("when a maxPages cap is configured", func() {
		It("raises no-pages on the allocation that would exceed it", func() {
			cfg, err := allocator.NewConfig(8, allocator.WithObjectsPerPage(4), allocator.WithMaxPages(2))
			Expect(err).NotTo(HaveOccurred())

			p, err := allocator.NewPool(cfg, nil, nil)
			Expect(err).NotTo(HaveOccurred())

			for i := 0; i < 8; i++ {
				_, err := p.Acquire("")
				Expect(err).NotTo(HaveOccurred())
			}

			_, err = p.Acquire("")
			Expect(err).To(HaveOccurred())

			kind, ok := poolerrors.AsKind(err)
			Expect(ok).To(BeTrue())
			Expect(kind).To(Equal(poolerrors.NoPages))
		})
	})

	Context("when debug checks are enabled and a slot is released twice", func() {
		It("raises multiple-free on the second release", func() {
			cfg, err := allocator.NewConfig(8, allocator.WithDebugChecks(true))
			Expect(err).NotTo(HaveOccurred())

			p, err := allocator.NewPool(cfg, nil, nil)
			Expect(err).NotTo(HaveOccurred())

			addr, err := p.Acquire("")
			Expect(err).NotTo(HaveOccurred())
			Expect(p.Release(addr)).To(Succeed())

			err = p.Release(addr)
			Expect(err).To(HaveOccurred())

			kind, _ := poolerrors.AsKind(err)
			Expect(kind).To(Equal(poolerrors.MultipleFree))
		})
	})

	Context("when a pad band is stomped before release", func() {
		It("raises corrupted-block under debug checks", func() {
			cfg, err := allocator.NewConfig(16,
				allocator.WithObjectsPerPage(2),
				allocator.WithLeftPad(4),
				allocator.WithDebugChecks(true),
			)
			Expect(err).NotTo(HaveOccurred())

			p, err := allocator.NewPool(cfg, nil, nil)
			Expect(err).NotTo(HaveOccurred())

			addr, err := p.Acquire("")
			Expect(err).NotTo(HaveOccurred())

			*(*byte)(unsafe.Pointer(uintptr(addr) - 1)) = 0xFF

			err = p.Release(addr)
			Expect(err).To(HaveOccurred())

			kind, _ := poolerrors.AsKind(err)
			Expect(kind).To(Equal(poolerrors.CorruptedBlock))
		})
	})

	Context("when headerKind is basic", func() {
		It("reuses the single freed slot and counts both allocations", func() {
			cfg, err := allocator.NewConfig(16, allocator.WithHeader(allocator.HeaderBasic, 0))
			Expect(err).NotTo(HaveOccurred())

			p, err := allocator.NewPool(cfg, nil, nil)
			Expect(err).NotTo(HaveOccurred())

			a1, err := p.Acquire("")
			Expect(err).NotTo(HaveOccurred())
			Expect(p.Release(a1)).To(Succeed())

			a2, err := p.Acquire("")
			Expect(err).NotTo(HaveOccurred())
			Expect(a2).To(Equal(a1), "the single freed slot should be reused")

			Expect(p.GetStatistics().Allocations).To(BeEquivalentTo(2))
		})
	})

	Context("when alignment is configured", func() {
		It("returns every slot aligned to the requested boundary", func() {
			cfg, err := allocator.NewConfig(12, allocator.WithObjectsPerPage(5), allocator.WithAlignment(16))
			Expect(err).NotTo(HaveOccurred())

			p, err := allocator.NewPool(cfg, nil, nil)
			Expect(err).NotTo(HaveOccurred())

			for i := 0; i < 5; i++ {
				addr, err := p.Acquire("")
				Expect(err).NotTo(HaveOccurred())
				Expect(uintptr(addr) % 16).To(BeZero())
			}
		})
	})

	Context("when a page becomes entirely free", func() {
		It("is reclaimed by FreeEmptyPages", func() {
			cfg, err := allocator.NewConfig(8, allocator.WithObjectsPerPage(4))
			Expect(err).NotTo(HaveOccurred())

			p, err := allocator.NewPool(cfg, nil, nil)
			Expect(err).NotTo(HaveOccurred())

			var firstPage []unsafe.Pointer
			for i := 0; i < 4; i++ {
				addr, err := p.Acquire("")
				Expect(err).NotTo(HaveOccurred())
				firstPage = append(firstPage, addr)
			}

			for i := 0; i < 4; i++ {
				_, err := p.Acquire("")
				Expect(err).NotTo(HaveOccurred())
			}

			Expect(p.GetStatistics().PagesInUse).To(Equal(2))

			for _, addr := range firstPage {
				Expect(p.Release(addr)).To(Succeed())
			}

			Expect(p.FreeEmptyPages()).To(Equal(1))
			Expect(p.GetStatistics().PagesInUse).To(Equal(1))
		})
	})
})
