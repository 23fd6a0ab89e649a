package stream

import "github.com/VoltDB/voltdb-sub009/engineerr"

// BlockKind distinguishes a normal-capacity block from one allocated at the
// secondary (large) capacity for a transaction that outgrew the default.
type BlockKind int

const (
	Normal BlockKind = iota
	Large
)

// Block is a fixed-capacity append buffer with a universal stream offset
// (spec §3.2). USO + offset is always the total bytes the owning stream has
// produced through this block's current cursor.
type Block struct {
	buf    []byte
	offset int

	uso int64
	// rowEnds[i] is the cursor offset immediately after the (i+1)-th row's
	// record, letting TruncateTo recompute an exact row count for any
	// mid-block mark instead of merely rewinding the byte cursor.
	rowEnds  []int
	rowCount int32
	kind     BlockKind

	// Set when the block is closed out and handed toward the top end.
	committedSeqNum int64
	lastSpUniqueID  int64
	lastCommittedSp int64
	endOfStream     bool
}

// NewBlock allocates a block of capacity bytes starting at the given USO.
func NewBlock(capacity int, uso int64, kind BlockKind) *Block {
	return &Block{
		buf:  make([]byte, capacity),
		uso:  uso,
		kind: kind,
	}
}

func (b *Block) USO() int64       { return b.uso }
func (b *Block) Offset() int      { return b.offset }
func (b *Block) Capacity() int    { return len(b.buf) }
func (b *Block) Remaining() int   { return len(b.buf) - b.offset }
func (b *Block) RowCount() int32  { return b.rowCount }
func (b *Block) Empty() bool      { return b.offset == 0 }
func (b *Block) Kind() BlockKind  { return b.kind }
func (b *Block) EndOfStream() bool { return b.endOfStream }

func (b *Block) SetEndOfStream(v bool) { b.endOfStream = v }

// RawBytes returns the written prefix of the block's buffer, not including
// the meta-header (callers prepend that separately when pushing).
func (b *Block) RawBytes() []byte { return b.buf[:b.offset] }

// Append writes one already-encoded row record (length-prefixed) into the
// block. The caller must have already checked Remaining() >= len(rec).
func (b *Block) Append(rec []byte) {
	if len(rec) > b.Remaining() {
		panic(engineerr.NewFatal("stream: Append overruns block capacity: have %d, need %d", b.Remaining(), len(rec)))
	}
	copy(b.buf[b.offset:], rec)
	b.offset += len(rec)
	b.rowCount++
	b.rowEnds = append(b.rowEnds, b.offset)
}

// TruncateTo rewinds the block's cursor so that USO+offset == mark, and
// recomputes rowCount to match however many whole rows survive. mark must
// lie within [uso, uso+offset]; any other value is a fatal invariant
// violation (spec §4.2).
func (b *Block) TruncateTo(mark int64) {
	if mark < b.uso || mark > b.uso+int64(b.offset) {
		panic(engineerr.NewFatal(
			"stream: truncate past block bounds: uso=%d offset=%d mark=%d",
			b.uso, b.offset, mark))
	}
	b.offset = int(mark - b.uso)

	kept := 0
	for kept < len(b.rowEnds) && b.rowEnds[kept] <= b.offset {
		kept++
	}
	b.rowEnds = b.rowEnds[:kept]
	b.rowCount = int32(kept)
}

// HeaderFor builds the meta-header this block should be prefixed with when
// handed to the top end.
func (b *Block) HeaderFor() MetaHeader {
	return MetaHeader{
		StartSequenceNumber:     b.uso,
		CommittedSequenceNumber: b.committedSeqNum,
		RowCount:                b.rowCount,
		LastSpUniqueID:          b.lastSpUniqueID,
		LastCommittedSpHandle:   b.lastCommittedSp,
	}
}

// WriteOutHeader marks the block's committed state just before it is
// pushed, matching TupleStreamBase::pushPendingBlocks' writeOutHeader call.
func (b *Block) WriteOutHeader(committedSeqNum, lastSpUniqueID, lastCommittedSp int64) {
	b.committedSeqNum = committedSeqNum
	b.lastSpUniqueID = lastSpUniqueID
	b.lastCommittedSp = lastCommittedSp
}

// Encode returns the full wire representation: meta-header followed by the
// raw row bytes already appended.
func (b *Block) Encode() []byte {
	h := b.HeaderFor().Encode()
	out := make([]byte, 0, len(h)+b.offset)
	out = append(out, h...)
	out = append(out, b.RawBytes()...)
	return out
}
