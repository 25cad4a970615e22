package allocator

import "unsafe"

// freeList is a singly-linked LIFO stack whose nodes coincide with the
// user regions themselves: the first ptrSize bytes of a free user
// region hold the address of the next free slot (or nil). Head-insert
// on release, pop on acquire.
//
// The list's own pointers are not a GC root: every region it threads
// through belongs to a page whose bytes are kept alive independently by
// the page list (see page.go), so storing raw addresses here is safe —
// it's pure navigation, never the only reference keeping memory alive.
type freeList struct {
	head unsafe.Pointer
}

func (fl *freeList) empty() bool {
	return fl.head == nil
}

// push head-inserts the user region starting at addr.
func (fl *freeList) push(addr unsafe.Pointer) {
	*(*unsafe.Pointer)(addr) = fl.head
	fl.head = addr
}

// pop removes and returns the head of the list, or nil if empty.
func (fl *freeList) pop() unsafe.Pointer {
	if fl.head == nil {
		return nil
	}

	addr := fl.head
	fl.head = *(*unsafe.Pointer)(addr)

	return addr
}

// contains reports whether addr currently appears anywhere on the list.
// O(n); used only by the debug-mode double-free check.
func (fl *freeList) contains(addr unsafe.Pointer) bool {
	for n := fl.head; n != nil; n = *(*unsafe.Pointer)(n) {
		if n == addr {
			return true
		}
	}

	return false
}

// removeAll excises every address for which match returns true, in a
// single pass, used by compaction so a released page's slots never
// dangle on the free list.
func (fl *freeList) removeAll(match func(unsafe.Pointer) bool) {
	var kept, tail unsafe.Pointer

	for n := fl.head; n != nil; {
		next := *(*unsafe.Pointer)(n)

		if !match(n) {
			if kept == nil {
				kept = n
			} else {
				*(*unsafe.Pointer)(tail) = n
			}

			tail = n
		}

		n = next
	}

	if tail != nil {
		*(*unsafe.Pointer)(tail) = nil
	}

	fl.head = kept
}

// count walks the list, counting its nodes. O(n); used by statistics
// consistency checks in tests, not on any hot path.
func (fl *freeList) count() int {
	n := 0
	for p := fl.head; p != nil; p = *(*unsafe.Pointer)(p) {
		n++
	}

	return n
}
