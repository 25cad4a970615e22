//go:build linux

package allocator

import (
	"golang.org/x/sys/unix"

	poolerrors "github.com/orizon-lang/slotpool/internal/errors"
)

// MmapHeap backs every page with a real anonymous mapping via
// unix.Mmap/Munmap instead of a GC-managed slice, so pages are returned
// to the operating system immediately on compaction rather than
// waiting on the next garbage collection cycle. Linux-only; pair with
// GoHeap on other platforms.
type MmapHeap struct{}

// NewMmapHeap returns an OS-backed SystemHeap.
func NewMmapHeap() *MmapHeap { return &MmapHeap{} }

// AllocBytes implements SystemHeap via an anonymous, private mapping.
func (*MmapHeap) AllocBytes(n uintptr) ([]byte, error) {
	if n == 0 {
		return nil, poolerrors.OutOfMemoryErr("MmapHeap.AllocBytes", map[string]interface{}{"size": n})
	}

	b, err := unix.Mmap(-1, 0, int(n), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, poolerrors.OutOfMemoryErr("MmapHeap.AllocBytes", map[string]interface{}{
			"size": n, "errno": err.Error(),
		})
	}

	return b, nil
}

// FreeBytes implements SystemHeap by unmapping b. Per spec, errors
// during bulk release are ignored — memory has no further use.
func (*MmapHeap) FreeBytes(b []byte) {
	if len(b) == 0 {
		return
	}

	_ = unix.Munmap(b)
}
