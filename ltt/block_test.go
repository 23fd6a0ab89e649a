package ltt

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBlockInsertAndAt(t *testing.T) {
	b := newBlock(ID{SiteID: 1, Counter: 1}, 8, 1)

	ok := b.Insert(Row{Inline: []byte("aaaaaaaa"), Aux: [][]byte{[]byte("hello")}})
	require.True(t, ok)
	ok = b.Insert(Row{Inline: []byte("bbbbbbbb"), Aux: nil})
	require.True(t, ok)

	require.Equal(t, 2, b.ActiveTupleCount())

	r0 := b.At(0)
	require.Equal(t, []byte("aaaaaaaa"), r0.Inline)
	require.Equal(t, [][]byte{[]byte("hello")}, r0.Aux)

	r1 := b.At(1)
	require.Equal(t, []byte("bbbbbbbb"), r1.Inline)
	require.Empty(t, r1.Aux)
}

func TestBlockInsertPadsShortInlinePayload(t *testing.T) {
	b := newBlock(ID{SiteID: 1, Counter: 1}, 8, 1)
	require.True(t, b.Insert(Row{Inline: []byte("ab")}))
	require.Equal(t, []byte{'a', 'b', 0, 0, 0, 0, 0, 0}, b.At(0).Inline)
}

func TestBlockInsertFailsOnFrontCollision(t *testing.T) {
	b := newBlock(ID{SiteID: 1, Counter: 1}, 8, 1)
	// Leave only a sliver of room between the two fronts by moving the
	// non-inlined front down to just past the first row slot, then insert
	// a row whose aux blob cannot fit in the gap.
	room := BlockSizeBytes - headerSize - 8
	b.nonInlinedFront = headerSize + 8 + 4 // tiny remaining gap

	ok := b.Insert(Row{Inline: make([]byte, 8), Aux: [][]byte{make([]byte, room)}})
	require.False(t, ok, "insert must fail rather than let the two fronts collide")
	require.Equal(t, 0, b.ActiveTupleCount(), "a failed insert must not mutate the block")
}

func TestBlockSwapExchangesContents(t *testing.T) {
	a := newBlock(ID{SiteID: 1, Counter: 1}, 8, 1)
	b := newBlock(ID{SiteID: 1, Counter: 2}, 8, 1)

	require.True(t, a.Insert(Row{Inline: []byte("aaaaaaaa")}))

	aID, bID := a.ID(), b.ID()
	a.Swap(b)

	require.Equal(t, aID, a.ID(), "swap must not move identity")
	require.Equal(t, bID, b.ID())
	require.Equal(t, 0, a.ActiveTupleCount())
	require.Equal(t, 1, b.ActiveTupleCount())
	require.Equal(t, []byte("aaaaaaaa"), b.At(0).Inline)
}

func TestBlockPinUnpinInvariants(t *testing.T) {
	b := newBlock(ID{SiteID: 1, Counter: 1}, 8, 1)
	require.True(t, b.IsPinned(), "a freshly allocated block starts pinned")

	require.Panics(t, func() { b.Pin() }, "pinning an already-pinned block is a fatal invariant violation")

	b.Unpin()
	require.False(t, b.IsPinned())
	require.Panics(t, func() { b.Unpin() }, "unpinning an already-unpinned block is a fatal invariant violation")
}

func TestBlockEncodeSetDataRoundTrip(t *testing.T) {
	b := newBlock(ID{SiteID: 2, Counter: 9}, 8, 5)
	require.True(t, b.Insert(Row{Inline: []byte("aaaaaaaa"), Aux: [][]byte{[]byte("one"), []byte("two")}}))
	require.True(t, b.Insert(Row{Inline: []byte("bbbbbbbb"), Aux: [][]byte{[]byte("three")}}))
	require.True(t, b.Insert(Row{Inline: []byte("cccccccc")}))

	encoded := b.Encode()
	b.ReleaseData()
	require.False(t, b.IsResident())
	require.True(t, b.IsStored())

	reloaded := &Block{id: b.id}
	reloaded.SetData(encoded, 8)

	require.True(t, reloaded.IsResident())
	require.Equal(t, 3, reloaded.ActiveTupleCount())
	require.Equal(t, []byte("aaaaaaaa"), reloaded.At(0).Inline)
	require.Equal(t, [][]byte{[]byte("one"), []byte("two")}, reloaded.At(0).Aux)
	require.Equal(t, []byte("bbbbbbbb"), reloaded.At(1).Inline)
	require.Equal(t, [][]byte{[]byte("three")}, reloaded.At(1).Aux)
	require.Equal(t, []byte("cccccccc"), reloaded.At(2).Inline)
	require.Empty(t, reloaded.At(2).Aux)
	require.Equal(t, int64(5), reloaded.generation)
}

func TestIDOrderingAndInt64Packing(t *testing.T) {
	a := ID{SiteID: 1, Counter: 100}
	b := ID{SiteID: 1, Counter: 200}
	c := ID{SiteID: 2, Counter: 0}

	require.True(t, a.Less(b))
	require.True(t, b.Less(c))
	require.False(t, c.Less(a))

	require.NotEqual(t, a.Int64(), b.Int64())
	require.NotEqual(t, a.Int64(), c.Int64())
}
