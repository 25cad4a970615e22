// Package allocator implements a fixed-size object pool allocator: a
// user-space memory manager that hands out equally-sized object slots
// from pre-reserved pages of raw bytes and recycles freed slots onto an
// intrusive free list. It is single-threaded by contract — callers
// needing concurrent access must serialize their own calls.
package allocator

import (
	"errors"
	"unsafe"

	"github.com/sirupsen/logrus"

	poolerrors "github.com/orizon-lang/slotpool/internal/errors"
)

// Pool is a fixed-size object pool allocator for cfg.ObjectSize-byte
// slots. Build one with NewPool; it owns every page it creates until
// compaction (FreeEmptyPages) or Destroy releases them.
type Pool struct {
	cfg  Config
	geo  geometry
	heap SystemHeap
	log  *logrus.Entry

	pages pageList
	free  freeList

	// descriptors anchors every HeaderExternal descriptor currently in
	// use, keyed by its slot's user-region address. Deleting an entry
	// drops the last strong reference, letting the GC reclaim it.
	descriptors map[unsafe.Pointer]*externalDescriptor

	// bypassed anchors every UseSystemHeap-bypass allocation currently
	// outstanding, keyed by its own address, exactly as this corpus's
	// SystemAllocatorImpl retains allocatedSlices.
	bypassed map[unsafe.Pointer][]byte

	stats Statistics
}

// NewPool constructs a Pool for the given configuration. heap and log
// may be nil, defaulting to a GoHeap and a discarding logger
// respectively. NewPool fails with configuration-invalid if page
// geometry cannot be built.
func NewPool(cfg Config, heap SystemHeap, log *logrus.Entry) (*Pool, error) {
	geo, err := newGeometry(cfg)
	if err != nil {
		return nil, err
	}

	if heap == nil {
		heap = NewGoHeap()
	}

	p := &Pool{
		cfg:         cfg,
		geo:         geo,
		heap:        heap,
		log:         withLogger(log),
		descriptors: make(map[unsafe.Pointer]*externalDescriptor),
		bypassed:    make(map[unsafe.Pointer][]byte),
		stats: Statistics{
			ObjectSize: cfg.ObjectSize,
			PageSize:   geo.pageBytes,
		},
	}

	return p, nil
}

// Acquire returns the address of one user region, or fails with
// no-pages (page cap reached) or out-of-memory (system heap refused a
// page or, for HeaderExternal, a descriptor). label is consulted only
// for HeaderExternal headers.
func (p *Pool) Acquire(label string) (unsafe.Pointer, error) {
	if p.cfg.UseSystemHeap {
		return p.acquireBypass()
	}

	if p.free.empty() {
		if p.cfg.MaxPages != 0 && p.stats.PagesInUse >= p.cfg.MaxPages {
			return nil, poolerrors.NoPagesErr("Pool.Acquire", map[string]interface{}{
				"pagesInUse": p.stats.PagesInUse,
				"maxPages":   p.cfg.MaxPages,
			})
		}

		pg, err := buildPage(p.cfg, p.geo, p.heap, &p.free)
		if err != nil {
			if errors.Is(err, poolerrors.ErrOutOfMemory) {
				p.log.WithField("pagesInUse", p.stats.PagesInUse).Warn("allocator: system heap refused a page")
			}

			return nil, err
		}

		p.pages.link(pg)
		p.stats.PagesInUse++
		p.stats.FreeObjects += p.cfg.ObjectsPerPage
		p.log.WithField("pagesInUse", p.stats.PagesInUse).Debug("allocator: built page")
	}

	addr := p.free.pop()

	pg := p.pages.containing(addr)
	offset := uintptr(addr) - uintptr(unsafe.Pointer(&pg.bytes[0]))

	index, ok := p.geo.slotIndexForUserOffset(p.cfg, offset)
	if !ok {
		// Unreachable for addresses this package itself threaded onto
		// the free list; guards against a corrupted free-list node.
		return nil, poolerrors.BadBoundaryErr("Pool.Acquire", map[string]interface{}{"offset": offset})
	}

	allocationNumber := uint32(p.stats.Allocations + 1)

	if err := p.writeHeaderOnAcquire(pg, index, allocationNumber, label); err != nil {
		// Roll back: the slot goes back on the free list untouched,
		// exactly as it was before this Acquire began.
		p.free.push(addr)

		return nil, err
	}

	paint(pg.userRegion(p.cfg, p.geo, index), sigAllocated)

	p.stats.Allocations++
	p.stats.ObjectsInUse++
	p.stats.FreeObjects--

	if p.stats.ObjectsInUse > p.stats.MostObjects {
		p.stats.MostObjects = p.stats.ObjectsInUse
	}

	return addr, nil
}

func (p *Pool) acquireBypass() (unsafe.Pointer, error) {
	buf, err := p.heap.AllocBytes(p.cfg.ObjectSize)
	if err != nil {
		return nil, err
	}

	addr := unsafe.Pointer(&buf[0])
	p.bypassed[addr] = buf

	p.stats.Allocations++
	p.stats.ObjectsInUse++

	if p.stats.ObjectsInUse > p.stats.MostObjects {
		p.stats.MostObjects = p.stats.ObjectsInUse
	}

	return addr, nil
}

func (p *Pool) writeHeaderOnAcquire(pg *page, index int, allocationNumber uint32, label string) error {
	switch p.cfg.HeaderKind {
	case HeaderNone:
		return nil
	case HeaderBasic:
		writeBasicOnAcquire(pg.headerRegion(p.geo, index), allocationNumber)

		return nil
	case HeaderExtended:
		writeExtendedOnAcquire(pg.headerRegion(p.geo, index), p.cfg, allocationNumber)

		return nil
	case HeaderExternal:
		region := pg.userRegion(p.cfg, p.geo, index)
		addr := unsafe.Pointer(&region[0])

		d, err := newExternalDescriptor(p.heap, allocationNumber, label)
		if err != nil {
			return err
		}

		p.descriptors[addr] = d
		writeExternalPointer(pg.headerRegion(p.geo, index), d)

		return nil
	default:
		return nil
	}
}

// Release returns a slot to the pool. A nil addr is a no-op. In debug
// mode it verifies ownership, alignment, double-free, and padding
// before mutating any state, raising multiple-free, bad-boundary, or
// corrupted-block on failure.
func (p *Pool) Release(addr unsafe.Pointer) error {
	if addr == nil {
		return nil
	}

	if p.cfg.UseSystemHeap {
		return p.releaseBypass(addr)
	}

	var pg *page

	var index int

	if p.cfg.DebugChecks {
		var err error

		pg, index, err = p.debugCheckRelease(addr)
		if err != nil {
			return err
		}
	} else {
		pg = p.pages.containing(addr)
		if pg != nil {
			offset := uintptr(addr) - uintptr(unsafe.Pointer(&pg.bytes[0]))
			index, _ = p.geo.slotIndexForUserOffset(p.cfg, offset)
		}
	}

	userRegion := unsafe.Slice((*byte)(addr), p.cfg.ObjectSize)
	paint(userRegion, sigFreed)
	p.free.push(addr)

	if pg != nil {
		p.clearHeaderOnRelease(pg, index, addr)
	}

	p.stats.FreeObjects++
	p.stats.Deallocations++
	p.stats.ObjectsInUse--

	return nil
}

func (p *Pool) releaseBypass(addr unsafe.Pointer) error {
	buf, ok := p.bypassed[addr]
	if !ok {
		return nil
	}

	p.heap.FreeBytes(buf)
	delete(p.bypassed, addr)

	p.stats.Deallocations++
	p.stats.ObjectsInUse--

	return nil
}

// debugCheckRelease runs the double-free, range, alignment, and
// padding checks in the order spec.md mandates: the double-free scan
// must precede painting, because painting would otherwise mask the
// prior FREED pattern and let a second release masquerade as the
// first.
func (p *Pool) debugCheckRelease(addr unsafe.Pointer) (*page, int, error) {
	if p.free.contains(addr) {
		p.log.WithField("addr", addr).Warn("allocator: multiple free detected")

		return nil, 0, poolerrors.MultipleFreeErr("Pool.Release", map[string]interface{}{"addr": addr})
	}

	pg := p.pages.containing(addr)
	if pg == nil {
		p.log.WithField("addr", addr).Warn("allocator: release outside any page")

		return nil, 0, poolerrors.BadBoundaryErr("Pool.Release", map[string]interface{}{"addr": addr})
	}

	offset := uintptr(addr) - uintptr(unsafe.Pointer(&pg.bytes[0]))

	index, ok := p.geo.slotIndexForUserOffset(p.cfg, offset)
	if !ok {
		p.log.WithField("addr", addr).Warn("allocator: release misaligned to slot boundary")

		return nil, 0, poolerrors.BadBoundaryErr("Pool.Release", map[string]interface{}{
			"addr": addr, "offset": offset,
		})
	}

	if p.cfg.LeftPadBytes > 0 {
		left, right := pg.padRegions(p.cfg, p.geo, index)
		if !allPaint(left, sigPad) || !allPaint(right, sigPad) {
			p.log.WithField("addr", addr).Warn("allocator: padding corrupted")

			return nil, 0, poolerrors.CorruptedBlockErr("Pool.Release", map[string]interface{}{"addr": addr})
		}
	}

	return pg, index, nil
}

func (p *Pool) clearHeaderOnRelease(pg *page, index int, addr unsafe.Pointer) {
	switch p.cfg.HeaderKind {
	case HeaderNone:
	case HeaderBasic:
		clearBasicOnRelease(pg.headerRegion(p.geo, index))
	case HeaderExtended:
		clearExtendedOnRelease(pg.headerRegion(p.geo, index), p.cfg)
	case HeaderExternal:
		if d, ok := p.descriptors[addr]; ok {
			d.inUse = false
			d.allocationNumber = 0
			releaseExternalDescriptor(p.heap, d)
			delete(p.descriptors, addr)
		}

		clearExternalPointer(pg.headerRegion(p.geo, index))
	}
}

// DumpInUse calls cb(address, size) for every slot currently in use and
// returns the count.
func (p *Pool) DumpInUse(cb func(addr unsafe.Pointer, size uintptr)) int {
	count := 0

	for pg := p.pages.head; pg != nil; pg = pg.next {
		for i := 0; i < p.cfg.ObjectsPerPage; i++ {
			region := pg.userRegion(p.cfg, p.geo, i)
			addr := unsafe.Pointer(&region[0])

			if p.slotInUse(pg, i, addr) {
				cb(addr, p.cfg.ObjectSize)
				count++
			}
		}
	}

	return count
}

func (p *Pool) slotInUse(pg *page, index int, addr unsafe.Pointer) bool {
	switch p.cfg.HeaderKind {
	case HeaderBasic:
		return basicInUse(pg.headerRegion(p.geo, index))
	case HeaderExtended:
		return extendedInUse(pg.headerRegion(p.geo, index), p.cfg)
	case HeaderExternal:
		d, ok := p.descriptors[addr]

		return ok && d.inUse
	default:
		return !p.free.contains(addr)
	}
}

// ValidatePadding calls cb(address, size) for every slot whose pad
// bands no longer match the pad signature and returns the count. It
// returns zero immediately when LeftPadBytes is zero.
func (p *Pool) ValidatePadding(cb func(addr unsafe.Pointer, size uintptr)) int {
	if p.cfg.LeftPadBytes == 0 {
		return 0
	}

	count := 0

	for pg := p.pages.head; pg != nil; pg = pg.next {
		for i := 0; i < p.cfg.ObjectsPerPage; i++ {
			left, right := pg.padRegions(p.cfg, p.geo, i)
			if !allPaint(left, sigPad) || !allPaint(right, sigPad) {
				region := pg.userRegion(p.cfg, p.geo, i)
				cb(unsafe.Pointer(&region[0]), p.cfg.ObjectSize)
				count++
			}
		}
	}

	return count
}

// FreeEmptyPages walks every page, releasing to the system heap any
// page none of whose slots are in use, and returns the number of pages
// released. Every slot of a released page is first excised from the
// free list in a single pass, so no free-list node is left dangling
// into freed memory.
func (p *Pool) FreeEmptyPages() int {
	released := 0

	var next *page

	for pg := p.pages.head; pg != nil; pg = next {
		next = pg.next

		if !p.pageEmpty(pg) {
			continue
		}

		start := uintptr(unsafe.Pointer(&pg.bytes[0]))
		end := start + uintptr(len(pg.bytes))

		p.free.removeAll(func(addr unsafe.Pointer) bool {
			a := uintptr(addr)

			return a >= start && a < end
		})

		p.pages.unlink(pg)
		p.heap.FreeBytes(pg.bytes)

		p.stats.PagesInUse--
		p.stats.FreeObjects -= p.cfg.ObjectsPerPage
		released++

		p.log.WithField("pagesInUse", p.stats.PagesInUse).Debug("allocator: compacted empty page")
	}

	return released
}

func (p *Pool) pageEmpty(pg *page) bool {
	for i := 0; i < p.cfg.ObjectsPerPage; i++ {
		region := pg.userRegion(p.cfg, p.geo, i)
		addr := unsafe.Pointer(&region[0])

		if p.slotInUse(pg, i, addr) {
			return false
		}
	}

	return true
}

// SetDebugChecks toggles release-time verification.
func (p *Pool) SetDebugChecks(on bool) { p.cfg.DebugChecks = on }

// GetConfiguration returns a snapshot of the pool's configuration.
func (p *Pool) GetConfiguration() Config { return p.cfg }

// GetStatistics returns a snapshot of the pool's statistics.
func (p *Pool) GetStatistics() Statistics { return p.stats }

// GetFreeListHead returns the current free-list head, for tests.
func (p *Pool) GetFreeListHead() unsafe.Pointer { return p.free.head }

// GetPageListHead returns the current page-list head, for tests.
func (p *Pool) GetPageListHead() unsafe.Pointer {
	if p.pages.head == nil {
		return nil
	}

	return unsafe.Pointer(&p.pages.head.bytes[0])
}

// Destroy releases every remaining page to the system heap
// unconditionally. Callers must release all outstanding slots first;
// Destroy does not defend against stragglers, it simply returns every
// page regardless.
func (p *Pool) Destroy() {
	for pg := p.pages.head; pg != nil; {
		next := pg.next
		p.heap.FreeBytes(pg.bytes)
		pg = next
	}

	p.pages.head = nil
	p.free.head = nil
	p.stats.PagesInUse = 0
	p.stats.FreeObjects = 0
}
