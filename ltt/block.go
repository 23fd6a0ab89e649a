// Package ltt implements LargeTempTable's storage layer (spec §3.4-3.6,
// §4.4-4.6): fixed-size LttBlocks with a bidirectional fill, an LRU
// LttBlockCache that spills unpinned blocks through the top end, and
// LargeTempTable itself with insert/iterate/delete-as-you-go and an
// external-merge sort.
//
// Grounded on original_source/src/ee/storage/LargeTempTableBlock.h/.cpp,
// common/LargeTempTableBlockCache.h/.cpp, and storage/LargeTempTable.h/.cpp.
//
// Real SQL tuple types and their pointer-bearing inline layout are out of
// scope (the expression evaluator and plan-node executors are explicitly
// excluded per spec §1), so a Row here carries an opaque fixed-stride
// Inline payload plus a set of variable-length Aux blobs, mirroring the
// opaque-column treatment already used by stream.Row. Because Aux blobs
// are referenced by block-relative offset rather than an absolute memory
// address, the rebasing the original performs in setData on reload is a
// no-op in this port; see DESIGN.md.
package ltt

import (
	"encoding/binary"

	"github.com/VoltDB/voltdb-sub009/engineerr"
)

// BlockSizeBytes is the fixed size of every LttBlock (spec §3.4, §6.3: 8 MiB).
const BlockSizeBytes = 8 * 1024 * 1024

// headerSize mirrors the original 12-byte header (8-byte origin marker, kept
// for on-disk layout fidelity even though rebasing is unnecessary here, plus
// a 4-byte tuple count).
const headerSize = 8 + 4

// ID identifies a block: (siteID, monotonically increasing counter),
// globally ordered (spec §3.4 "Identity").
type ID struct {
	SiteID  int32
	Counter int64
}

func (id ID) Less(other ID) bool {
	if id.SiteID != other.SiteID {
		return id.SiteID < other.SiteID
	}
	return id.Counter < other.Counter
}

// Int64 packs the ID into the single int64 key the topend store/load/release
// calls key their persisted blocks by.
func (id ID) Int64() int64 { return int64(id.SiteID)<<48 | (id.Counter & 0xFFFFFFFFFFFF) }

// Row is one tuple's payload: Inline is copied into the block's fixed-stride
// tuple-front storage, Aux blobs are copied into the non-inlined front.
type Row struct {
	Inline []byte
	Aux    [][]byte
}

type auxRef struct {
	off, length int
}

// Block is a fixed-size region with two growth fronts: the tuple front
// grows up from just after the header at a fixed stride, the non-inlined
// front grows down from the end (spec §3.4).
type Block struct {
	id     ID
	stride int

	buf             []byte // nil when non-resident
	tupleFront      int    // next write offset for inline data, relative to header
	nonInlinedFront int    // next write boundary for aux data, absolute into buf

	auxByRow [][]auxRef

	pinned bool
	stored bool

	generation int64
}

// newBlock allocates a fresh resident, pinned block of the given stride.
func newBlock(id ID, stride int, generation int64) *Block {
	b := &Block{id: id, stride: stride, generation: generation}
	b.resetStorage()
	b.pinned = true
	return b
}

func (b *Block) resetStorage() {
	b.buf = make([]byte, BlockSizeBytes)
	b.tupleFront = 0
	b.nonInlinedFront = BlockSizeBytes
	b.auxByRow = nil
}

func (b *Block) ID() ID      { return b.id }
func (b *Block) Stride() int { return b.stride }

func (b *Block) IsPinned() bool   { return b.pinned }
func (b *Block) IsResident() bool { return b.buf != nil }
func (b *Block) IsStored() bool   { return b.stored }

func (b *Block) Pin() {
	if b.pinned {
		panic(engineerr.NewFatal("ltt: block %v is already pinned", b.id))
	}
	b.pinned = true
}

func (b *Block) Unpin() {
	if !b.pinned {
		panic(engineerr.NewFatal("ltt: block %v is not pinned", b.id))
	}
	b.pinned = false
}

func (b *Block) Unstore() { b.stored = false }

// ActiveTupleCount is the number of rows currently in the block.
func (b *Block) ActiveTupleCount() int {
	if b.stride == 0 {
		return 0
	}
	return b.tupleFront / b.stride
}

// Insert copies row into the block. Returns false without mutating the
// block if the tuple front and non-inlined front would collide.
func (b *Block) Insert(row Row) bool {
	if !b.IsResident() {
		panic(engineerr.NewFatal("ltt: insert into non-resident block %v", b.id))
	}

	auxTotal := 0
	for _, blob := range row.Aux {
		auxTotal += len(blob)
	}

	tupleEnd := headerSize + b.tupleFront + b.stride
	nonInlinedStart := b.nonInlinedFront - auxTotal
	if tupleEnd > nonInlinedStart {
		return false
	}

	dst := b.buf[headerSize+b.tupleFront : headerSize+b.tupleFront+b.stride]
	n := copy(dst, row.Inline)
	for i := n; i < len(dst); i++ {
		dst[i] = 0
	}

	refs := make([]auxRef, len(row.Aux))
	cursor := b.nonInlinedFront
	for i, blob := range row.Aux {
		cursor -= len(blob)
		copy(b.buf[cursor:cursor+len(blob)], blob)
		refs[i] = auxRef{off: cursor, length: len(blob)}
	}
	b.nonInlinedFront = cursor
	b.auxByRow = append(b.auxByRow, refs)
	b.tupleFront += b.stride

	return true
}

// At returns the row at ordinal position i (0-based, insertion order).
func (b *Block) At(i int) Row {
	inline := b.buf[headerSize+i*b.stride : headerSize+(i+1)*b.stride]
	refs := b.auxByRow[i]
	aux := make([][]byte, len(refs))
	for j, r := range refs {
		aux[j] = b.buf[r.off : r.off+r.length]
	}
	return Row{Inline: inline, Aux: aux}
}

// Swap exchanges the contents (buffer, fronts, tuple count, aux table) of
// two blocks. IDs are preserved. Any stored copy of either block becomes
// stale; the caller must invalidate it.
func (b *Block) Swap(other *Block) {
	b.stride, other.stride = other.stride, b.stride
	b.buf, other.buf = other.buf, b.buf
	b.tupleFront, other.tupleFront = other.tupleFront, b.tupleFront
	b.nonInlinedFront, other.nonInlinedFront = other.nonInlinedFront, b.nonInlinedFront
	b.auxByRow, other.auxByRow = other.auxByRow, b.auxByRow
}

// Clear empties the block without releasing its buffer, used when a block
// is recycled for a new sort-run output rather than freshly allocated.
func (b *Block) Clear() {
	b.tupleFront = 0
	b.nonInlinedFront = BlockSizeBytes
	b.auxByRow = nil
}

// writeHeader stamps the 12-byte header (origin marker, tuple count) into
// the buffer ahead of a store.
func (b *Block) writeHeader() {
	binary.BigEndian.PutUint64(b.buf[0:8], uint64(b.generation))
	binary.BigEndian.PutUint32(b.buf[8:12], uint32(b.ActiveTupleCount()))
}

// Encode serializes the block's full resident state (header, tuple
// storage, aux storage, and the aux descriptor table the original embeds
// as in-tuple pointers) for handoff to the top end's store call.
func (b *Block) Encode() []byte {
	b.writeHeader()

	dir := make([]byte, 4+len(b.auxByRow)*4)
	binary.BigEndian.PutUint32(dir[0:4], uint32(len(b.auxByRow)))
	off := 4
	for _, refs := range b.auxByRow {
		binary.BigEndian.PutUint32(dir[off:off+4], uint32(len(refs)))
		off += 4
	}
	for _, refs := range b.auxByRow {
		for _, r := range refs {
			extra := make([]byte, 8)
			binary.BigEndian.PutUint32(extra[0:4], uint32(r.off))
			binary.BigEndian.PutUint32(extra[4:8], uint32(r.length))
			dir = append(dir, extra...)
		}
	}

	out := make([]byte, 0, len(b.buf)+len(dir)+4)
	out = append(out, b.buf...)
	lenBuf := make([]byte, 4)
	binary.BigEndian.PutUint32(lenBuf, uint32(len(dir)))
	out = append(out, lenBuf...)
	out = append(out, dir...)
	return out
}

// ReleaseData hands the backing buffer out for a store and marks the block
// non-resident and stored. The caller is expected to have already called
// Encode to capture what it needs; ReleaseData itself just drops the
// reference so the cache's accounting of resident bytes stays accurate.
func (b *Block) ReleaseData() {
	b.buf = nil
	b.auxByRow = nil
	b.stored = true
}

// SetData reattaches a previously stored block from its encoded form, as
// produced by Encode, reconstructing fronts and the aux descriptor table.
func (b *Block) SetData(encoded []byte, stride int) {
	if len(encoded) < BlockSizeBytes+4 {
		panic(engineerr.NewFatal("ltt: truncated block payload for %v", b.id))
	}
	buf := make([]byte, BlockSizeBytes)
	copy(buf, encoded[:BlockSizeBytes])
	dirLen := binary.BigEndian.Uint32(encoded[BlockSizeBytes : BlockSizeBytes+4])
	dir := encoded[BlockSizeBytes+4 : BlockSizeBytes+4+int(dirLen)]

	rowCount := int(binary.BigEndian.Uint32(dir[0:4]))
	counts := make([]int, rowCount)
	off := 4
	for i := 0; i < rowCount; i++ {
		counts[i] = int(binary.BigEndian.Uint32(dir[off : off+4]))
		off += 4
	}
	auxByRow := make([][]auxRef, rowCount)
	for i, n := range counts {
		refs := make([]auxRef, n)
		for j := 0; j < n; j++ {
			refs[j] = auxRef{
				off:    int(binary.BigEndian.Uint32(dir[off : off+4])),
				length: int(binary.BigEndian.Uint32(dir[off+4 : off+8])),
			}
			off += 8
		}
		auxByRow[i] = refs
	}

	b.buf = buf
	b.stride = stride
	b.tupleFront = rowCount * stride
	b.nonInlinedFront = BlockSizeBytes
	for _, refs := range auxByRow {
		for _, r := range refs {
			if r.off < b.nonInlinedFront {
				b.nonInlinedFront = r.off
			}
		}
	}
	b.auxByRow = auxByRow
	b.generation = int64(binary.BigEndian.Uint64(buf[0:8]))
	b.stored = true
}
