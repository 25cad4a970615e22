package allocator

import "unsafe"

// page is one contiguous byte array housing objectsPerPage slots plus a
// next-page prefix. Its raw bytes were acquired from a SystemHeap and
// must be returned to it exactly once, at compaction or destruction.
type page struct {
	bytes []byte
	next  *page
}

// pageList is a singly-linked list of every live page, most-recently
// built page first. It owns the only strong references to page byte
// arrays; freeList and header pointers into those arrays are safe only
// because this list keeps the backing memory alive.
type pageList struct {
	head *page
}

func (pl *pageList) link(p *page) {
	p.next = pl.head
	pl.head = p
	p.writeNextLinkPrefix()
}

// containing returns the page whose byte range contains addr, or nil.
func (pl *pageList) containing(addr unsafe.Pointer) *page {
	target := uintptr(addr)

	for p := pl.head; p != nil; p = p.next {
		start := uintptr(unsafe.Pointer(&p.bytes[0]))
		end := start + uintptr(len(p.bytes))

		if target >= start && target < end {
			return p
		}
	}

	return nil
}

// unlink removes p from the list. O(pagesInUse).
func (pl *pageList) unlink(p *page) {
	if pl.head == p {
		pl.head = p.next

		return
	}

	for cur := pl.head; cur != nil; cur = cur.next {
		if cur.next == p {
			cur.next = p.next

			return
		}
	}
}

// buildPage acquires one raw byte page from heap, paints every
// signature region, and threads every slot onto free. It is the only
// place a page is created.
func buildPage(cfg Config, geo geometry, heap SystemHeap, free *freeList) (*page, error) {
	raw, err := heap.AllocBytes(geo.pageBytes)
	if err != nil {
		return nil, err
	}

	paint(raw, sigUnallocated)

	for i := 0; i < cfg.ObjectsPerPage; i++ {
		if cfg.LeftPadBytes > 0 {
			lo := geo.padLeftOffset(i)
			paint(raw[lo:lo+cfg.LeftPadBytes], sigPad)

			ro := geo.padRightOffset(cfg, i)
			paint(raw[ro:ro+cfg.LeftPadBytes], sigPad)
		}

		if off, ok := geo.interAlignOffset(cfg, cfg.ObjectsPerPage, i); ok {
			paint(raw[off:off+geo.interAlignBytes], sigAlign)
		}

		if geo.headerBytes > 0 {
			ho := geo.headerOffset(i)
			zeroHeader(raw[ho : ho+geo.headerBytes])
		}
	}

	if geo.leftAlignBytes > 0 {
		paint(raw[ptrSize:ptrSize+geo.leftAlignBytes], sigAlign)
	}

	p := &page{bytes: raw}

	// Thread every slot onto the free list so that, once every slot on
	// this page has been linked, the lowest-address slot is the list
	// head: push from the highest index down to zero.
	for i := cfg.ObjectsPerPage - 1; i >= 0; i-- {
		uo := geo.userOffset(cfg, i)
		addr := unsafe.Pointer(&p.bytes[uo])
		free.push(addr)
	}

	return p, nil
}

// writeNextLinkPrefix paints the page's next-page-pointer prefix (the
// first ptrSize bytes) with the address of the next page in the list,
// or nil for the tail. This is purely observational: real traversal
// uses the Go-level next field, which is what keeps the referenced
// page's memory reachable for the garbage collector.
func (pg *page) writeNextLinkPrefix() {
	var next unsafe.Pointer
	if pg.next != nil && len(pg.next.bytes) > 0 {
		next = unsafe.Pointer(&pg.next.bytes[0])
	}

	*(*unsafe.Pointer)(unsafe.Pointer(&pg.bytes[0])) = next //nolint:govet
}

// userRegion returns the byte slice view of slot i's user region on p.
func (p *page) userRegion(cfg Config, geo geometry, i int) []byte {
	off := geo.userOffset(cfg, i)

	return p.bytes[off : off+cfg.ObjectSize]
}

// headerRegion returns the byte slice view of slot i's header on p.
func (p *page) headerRegion(geo geometry, i int) []byte {
	off := geo.headerOffset(i)

	return p.bytes[off : off+geo.headerBytes]
}

// padRegions returns the left and right pad-band views of slot i on p.
func (p *page) padRegions(cfg Config, geo geometry, i int) (left, right []byte) {
	lo := geo.padLeftOffset(i)
	ro := geo.padRightOffset(cfg, i)

	return p.bytes[lo : lo+cfg.LeftPadBytes], p.bytes[ro : ro+cfg.LeftPadBytes]
}
