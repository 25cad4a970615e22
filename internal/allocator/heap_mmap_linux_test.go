//go:build linux

package allocator

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"

	poolerrors "github.com/orizon-lang/slotpool/internal/errors"
)

func TestMmapHeapAllocBytesReturnsUsableZeroedMemory(t *testing.T) {
	heap := NewMmapHeap()

	b, err := heap.AllocBytes(4096)
	require.NoError(t, err)
	require.Len(t, b, 4096)

	for _, v := range b {
		require.Zero(t, v)
	}

	b[0] = 0xFF
	b[4095] = 0xFF

	heap.FreeBytes(b)
}

func TestMmapHeapAllocBytesRejectsZeroLength(t *testing.T) {
	heap := NewMmapHeap()

	_, err := heap.AllocBytes(0)
	require.Error(t, err)

	kind, ok := poolerrors.AsKind(err)
	require.True(t, ok)
	require.Equal(t, poolerrors.OutOfMemory, kind)
}

func TestMmapHeapFreeBytesOnEmptySliceIsNoop(t *testing.T) {
	heap := NewMmapHeap()
	require.NotPanics(t, func() { heap.FreeBytes(nil) })
}

// The mmap-backed heap is a drop-in SystemHeap: a Pool built on it
// behaves identically to one built on the default GoHeap.
func TestPoolAcquireReleaseRoundTripOnMmapHeap(t *testing.T) {
	cfg, err := NewConfig(8, WithObjectsPerPage(4), WithDebugChecks(true))
	require.NoError(t, err)

	p, err := NewPool(cfg, NewMmapHeap(), nil)
	require.NoError(t, err)

	var acquired []unsafe.Pointer
	for i := 0; i < 8; i++ {
		addr, err := p.Acquire("")
		require.NoError(t, err)
		acquired = append(acquired, addr)
	}

	require.Equal(t, 2, p.GetStatistics().PagesInUse)

	for _, addr := range acquired {
		require.NoError(t, p.Release(addr))
	}

	require.Equal(t, 2, p.FreeEmptyPages())
	require.Zero(t, p.GetStatistics().PagesInUse)
}
