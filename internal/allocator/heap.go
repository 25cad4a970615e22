package allocator

import poolerrors "github.com/orizon-lang/slotpool/internal/errors"

// SystemHeap is the underlying bulk-memory collaborator the pool
// consumes but never implements itself: it hands out raw byte arrays
// for whole pages (and, for HeaderExternal, per-slot descriptors) and
// reclaims them on compaction or destruction. Thread safety is the
// caller's responsibility, matching the pool's own single-threaded
// contract.
type SystemHeap interface {
	// AllocBytes returns a freshly zeroed byte slice of length n, or an
	// out-of-memory error.
	AllocBytes(n uintptr) ([]byte, error)
	// FreeBytes returns a slice previously obtained from AllocBytes.
	// Implementations may ignore it (e.g. a GC-backed heap has nothing
	// to do); per spec, errors during bulk release are never surfaced.
	FreeBytes(b []byte)
}

// GoHeap is the default SystemHeap: it backs every page with a plain
// make([]byte, n), exactly as this corpus's own systemAlloc/systemFree
// placeholders do. Go's garbage collector reclaims the backing array
// once FreeBytes's caller drops its last reference.
type GoHeap struct{}

// NewGoHeap returns the default, GC-backed SystemHeap.
func NewGoHeap() *GoHeap { return &GoHeap{} }

// AllocBytes implements SystemHeap.
func (*GoHeap) AllocBytes(n uintptr) ([]byte, error) {
	if n == 0 {
		return nil, poolerrors.OutOfMemoryErr("GoHeap.AllocBytes", map[string]interface{}{"size": n})
	}

	return make([]byte, n), nil
}

// FreeBytes implements SystemHeap. It is a no-op: Go's GC reclaims the
// slice once nothing references it any longer.
func (*GoHeap) FreeBytes(_ []byte) {}
