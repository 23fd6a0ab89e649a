package pool

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllocateWithinChunkAligns(t *testing.T) {
	p := NewSized(64, 2)

	a := p.Allocate(3)
	require.Len(t, a, 3)

	b := p.Allocate(5)
	require.Len(t, b, 5)

	// a was padded up to 8 bytes before b was carved, so b must not overlap a.
	for i := range a {
		a[i] = 0xAA
	}
	for i := range b {
		require.NotEqual(t, byte(0xAA), b[i])
	}
}

func TestAllocateZeroTakesValidSlice(t *testing.T) {
	p := New()
	s := p.Allocate(0)
	require.NotNil(t, s)
	require.Len(t, s, 0)
}

func TestAllocateGrowsNewChunkWhenExhausted(t *testing.T) {
	p := NewSized(16, 1)
	p.Allocate(16)
	require.Equal(t, 1, p.ChunkCount())

	// Next allocation can't fit in the exhausted chunk, and isn't oversize,
	// so a new chunk must be appended.
	p.Allocate(8)
	require.Equal(t, 2, p.ChunkCount())
}

func TestAllocateOversizeFallback(t *testing.T) {
	p := NewSized(16, 2)
	big := p.Allocate(64)
	require.Len(t, big, 64)
	require.Equal(t, 1, p.OversizeCount())
	require.Equal(t, uint64(64), p.AllocatedBytes())
	require.Equal(t, 1, p.ChunkCount())
}

func TestAllocateZeroedClearsStaleBytes(t *testing.T) {
	p := NewSized(32, 1)
	first := p.AllocateZeroed(8)
	for i := range first {
		first[i] = 0xFF
	}
	p.Purge()

	second := p.AllocateZeroed(8)
	for i := range second {
		require.Equal(t, byte(0), second[i])
	}
}

func TestPurgeDropsOversizeAndResetsOffsets(t *testing.T) {
	p := NewSized(16, 1)
	p.Allocate(64) // oversize
	p.Allocate(8)  // fills part of chunk 0

	p.Purge()

	require.Equal(t, 0, p.OversizeCount())
	require.Equal(t, uint64(0), p.AllocatedBytes())
	require.Equal(t, 1, p.ChunkCount())

	// Chunk offset was reset, so a full chunk-size allocation must succeed
	// without growing.
	full := p.Allocate(16)
	require.Len(t, full, 16)
	require.Equal(t, 1, p.ChunkCount())
}

func TestPurgeTruncatesExtraChunks(t *testing.T) {
	p := NewSized(8, 1)
	p.Allocate(8)
	p.Allocate(8) // grows to a 2nd chunk
	p.Allocate(8) // grows to a 3rd chunk
	require.Equal(t, 3, p.ChunkCount())

	p.Purge()
	require.Equal(t, 1, p.ChunkCount())
}
