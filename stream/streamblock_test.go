package stream

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBlockAppendAdvancesCursor(t *testing.T) {
	b := NewBlock(64, 100, Normal)
	require.Equal(t, int64(100), b.USO())
	require.True(t, b.Empty())

	b.Append([]byte("hello"))
	require.Equal(t, 5, b.Offset())
	require.Equal(t, int32(1), b.RowCount())
	require.False(t, b.Empty())
}

func TestBlockTruncateToRecomputesRowCount(t *testing.T) {
	b := NewBlock(64, 0, Normal)
	b.Append([]byte("aaaa")) // rowEnds: [4]
	b.Append([]byte("bbb"))  // rowEnds: [4,7]
	b.Append([]byte("cc"))   // rowEnds: [4,7,9]
	require.Equal(t, int32(3), b.RowCount())

	b.TruncateTo(7)
	require.Equal(t, 7, b.Offset())
	require.Equal(t, int32(2), b.RowCount())
}

func TestBlockTruncatePastBoundsPanics(t *testing.T) {
	b := NewBlock(64, 10, Normal)
	b.Append([]byte("x"))
	require.Panics(t, func() { b.TruncateTo(50) })
	require.Panics(t, func() { b.TruncateTo(5) })
}

func TestMetaHeaderRoundTrip(t *testing.T) {
	h := MetaHeader{
		StartSequenceNumber:     1,
		CommittedSequenceNumber: 2,
		RowCount:                3,
		LastSpUniqueID:          4,
		LastCommittedSpHandle:   5,
	}
	enc := h.Encode()
	require.Len(t, enc, MetaHeaderSize)

	got, err := DecodeMetaHeader(enc)
	require.NoError(t, err)
	require.Equal(t, h, got)
}

func TestNullMaskRoundTrip(t *testing.T) {
	isNull := []bool{false, true, false, true, true, false, false, true, false}
	mask := EncodeNullMask(isNull)
	require.Equal(t, NullMaskSize(len(isNull)), len(mask))

	got := DecodeNullMask(mask, len(isNull))
	require.Equal(t, isNull, got)
}
