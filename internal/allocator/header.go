package allocator

import (
	"encoding/binary"
	"unsafe"
)

// Per-slot header layout, by variant:
//
//	none:     (0 bytes)
//	basic:    [allocCounter:4][inUse:1]                                   =  5 bytes
//	extended: [userDefined:N][useCounter:2][allocCounter:4][inUse:1]      = N+7 bytes
//	external: [descriptorPtr:ptrSize]                                     = ptrSize bytes
//
// The allocation/use counters are written in native byte order via
// encoding/binary's NativeEndian, matching the design note that callers
// must not assume a specific byte order for them.
const (
	basicHeaderBytes = 4 + 1
	extendedFixedLen = 2 + 4 + 1
)

// headerSize returns the number of bytes the header region occupies
// for the given configuration.
func headerSize(cfg Config) uintptr {
	switch cfg.HeaderKind {
	case HeaderNone:
		return 0
	case HeaderBasic:
		return basicHeaderBytes
	case HeaderExtended:
		return cfg.UserDefinedBytes + extendedFixedLen
	case HeaderExternal:
		return ptrSize
	default:
		return 0
	}
}

// zeroHeader paints the header region with zero bytes, as the page
// builder does for every slot at page-creation time.
func zeroHeader(region []byte) {
	for i := range region {
		region[i] = 0
	}
}

// writeBasicOnAcquire writes the allocation counter and sets the in-use
// flag for a HeaderBasic slot.
func writeBasicOnAcquire(region []byte, allocationNumber uint32) {
	binary.NativeEndian.PutUint32(region[0:4], allocationNumber)
	region[4] = 1
}

// clearBasicOnRelease zeros the counter and flag for a HeaderBasic slot.
func clearBasicOnRelease(region []byte) {
	binary.NativeEndian.PutUint32(region[0:4], 0)
	region[4] = 0
}

func basicAllocationNumber(region []byte) uint32 {
	return binary.NativeEndian.Uint32(region[0:4])
}

func basicInUse(region []byte) bool {
	return region[4] != 0
}

// extended layout offsets, relative to the start of the header region.
func extendedOffsets(cfg Config) (useCounterOff, allocCounterOff, inUseOff uintptr) {
	useCounterOff = cfg.UserDefinedBytes
	allocCounterOff = useCounterOff + 2
	inUseOff = allocCounterOff + 4

	return
}

// writeExtendedOnAcquire increments the use counter, writes the
// allocation counter, and sets the in-use flag.
func writeExtendedOnAcquire(region []byte, cfg Config, allocationNumber uint32) {
	useOff, allocOff, inUseOff := extendedOffsets(cfg)
	useCounter := binary.NativeEndian.Uint16(region[useOff : useOff+2])
	binary.NativeEndian.PutUint16(region[useOff:useOff+2], useCounter+1)
	binary.NativeEndian.PutUint32(region[allocOff:allocOff+4], allocationNumber)
	region[inUseOff] = 1
}

// clearExtendedOnRelease zeros the allocation counter and flag, leaving
// the use counter untouched.
func clearExtendedOnRelease(region []byte, cfg Config) {
	_, allocOff, inUseOff := extendedOffsets(cfg)
	binary.NativeEndian.PutUint32(region[allocOff:allocOff+4], 0)
	region[inUseOff] = 0
}

func extendedAllocationNumber(region []byte, cfg Config) uint32 {
	_, allocOff, _ := extendedOffsets(cfg)

	return binary.NativeEndian.Uint32(region[allocOff : allocOff+4])
}

func extendedUseCounter(region []byte, cfg Config) uint16 {
	useOff, _, _ := extendedOffsets(cfg)

	return binary.NativeEndian.Uint16(region[useOff : useOff+2])
}

func extendedInUse(region []byte, cfg Config) bool {
	_, _, inUseOff := extendedOffsets(cfg)

	return region[inUseOff] != 0
}

// externalDescriptor is the out-of-band record an external header
// points to. Its backing slice is acquired from the same SystemHeap as
// pages, so a heap that refuses allocation makes descriptor creation
// fail with the same out-of-memory error pages do.
type externalDescriptor struct {
	backing          []byte
	inUse            bool
	allocationNumber uint32
	label            string
}

// externalDescriptorFootprint is the nominal number of bytes requested
// from the system heap per descriptor; the descriptor's real Go fields
// live alongside it, but routing the allocation through the heap lets a
// test double simulate descriptor-allocation failure uniformly with
// page-allocation failure.
const externalDescriptorFootprint = 16

func newExternalDescriptor(heap SystemHeap, allocationNumber uint32, label string) (*externalDescriptor, error) {
	backing, err := heap.AllocBytes(externalDescriptorFootprint)
	if err != nil {
		return nil, err
	}

	return &externalDescriptor{
		backing:          backing,
		inUse:            true,
		allocationNumber: allocationNumber,
		label:            label,
	}, nil
}

func releaseExternalDescriptor(heap SystemHeap, d *externalDescriptor) {
	heap.FreeBytes(d.backing)
}

// writeExternalPointer paints the header's pointer slot with the
// descriptor's address, purely for byte-level observability; the
// authoritative lookup always goes through Pool.descriptors.
func writeExternalPointer(region []byte, d *externalDescriptor) {
	*(*unsafe.Pointer)(unsafe.Pointer(&region[0])) = unsafe.Pointer(d) //nolint:govet
}

func clearExternalPointer(region []byte) {
	*(*unsafe.Pointer)(unsafe.Pointer(&region[0])) = nil
}
