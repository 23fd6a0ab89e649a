// TupleStream chains Blocks into a FIFO with transaction-atomic boundaries,
// rollback-to-mark, and a periodic flush timer (spec §3.3, §4.3).
//
// Grounded on original_source/src/ee/storage/TupleStreamBase.h (block
// chaining, rollback, pending-block push) and ExportTupleStream.h (the
// export-specific commit/appendTuple/flush-timer wiring and the six-column
// metadata header this package's Row.Serialize reproduces).
package stream

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/VoltDB/voltdb-sub009/clock"
	"github.com/VoltDB/voltdb-sub009/elog"
	"github.com/VoltDB/voltdb-sub009/engineerr"
	"github.com/VoltDB/voltdb-sub009/metrics"
	"github.com/VoltDB/voltdb-sub009/topend"
)

// overflowLogLimiter throttles the "row exceeds maximum stream capacity"
// diagnostic across every TupleStream in the process; under sustained
// overflow a transaction-per-row workload would otherwise flood the log.
var overflowLogLimiter = rate.NewLimiter(rate.Every(time.Second), 1)

// Schema pairs the visible columns a consumer sees with any hidden columns
// carried internally but filtered out of ordinary serialization (spec §9,
// SPEC_FULL.md D.3).
type Schema struct {
	VisibleColumns int
	HiddenColumns  int
}

// Config is the per-stream sizing policy (spec §6.4's defaultDrBufferSize
// and flushInterval options feed these).
type Config struct {
	DefaultCapacity   int
	SecondaryCapacity int // 0 means "no secondary capacity configured"
	MaxCapacity       int // 0 means max(DefaultCapacity, SecondaryCapacity)
	FlushIntervalMs   int64
}

func (c Config) maxCapacity() int {
	if c.MaxCapacity != 0 {
		return c.MaxCapacity
	}
	if c.SecondaryCapacity > c.DefaultCapacity {
		return c.SecondaryCapacity
	}
	return c.DefaultCapacity
}

// Sink is the narrow slice of topend.Topend a TupleStream needs; export
// tables push through PushExportBuffer, DR through PushDRBuffer.
type Sink interface {
	PushExportBuffer(partitionID int32, tableName string, block []byte) error
	PushDRBuffer(partitionID int32, block []byte) (int64, error)
}

var _ Sink = topend.Topend(nil)

// TupleStream is a FIFO of pending Blocks plus one current block, and a
// node in the engine's intrusive pending-flush list.
type TupleStream struct {
	cfg         Config
	top         Sink
	isDR        bool
	partitionID int32
	tableName   string
	schema      Schema
	clk         clock.Clock
	m           *metrics.Set
	log         interface {
		Warn(msg string, ctx ...interface{})
	}

	uso                int64
	committedUso       int64
	openTransactionUso int64
	openTxnID          int64
	openUniqueID       int64
	committedTxnID     int64
	committedUniqueID  int64
	lastSeqNum         int64
	committedSeqNum    int64

	curr    *Block
	pending []*Block

	flushPending      bool
	flushTargetMillis int64
	flushPrev         *TupleStream
	flushNext         *TupleStream
	registry          *FlushList
}

// SetFlushList binds the engine-owned FlushList this stream registers
// itself into when it has pending rows. Must be called once before any
// AppendTuple.
func (s *TupleStream) SetFlushList(l *FlushList) { s.registry = l }

// New constructs a stream with no current block; the first AppendTuple call
// extends the chain lazily, matching the original's lazy-init behavior.
func New(cfg Config, top Sink, isDR bool, partitionID int32, tableName string, schema Schema, clk clock.Clock, m *metrics.Set) *TupleStream {
	return &TupleStream{
		cfg:         cfg,
		top:         top,
		isDR:        isDR,
		partitionID: partitionID,
		tableName:   tableName,
		schema:      schema,
		clk:         clk,
		m:           m,
		log:         elog.New("stream"),
	}
}

func (s *TupleStream) USO() int64          { return s.uso }
func (s *TupleStream) CommittedUSO() int64 { return s.committedUso }

// AppendTuple serializes one row into the current block, extending the
// chain if needed, and returns the pre-append USO as a rollback mark.
func (s *TupleStream) AppendTuple(txnID, uniqueID int64, row Row) (int64, error) {
	rec := row.Serialize(s.partitionID, false)

	if s.curr == nil {
		if err := s.extend(len(rec), s.uso); err != nil {
			return 0, err
		}
		s.openTxnID = txnID
		s.openUniqueID = uniqueID
		s.openTransactionUso = s.uso
	} else if txnID != s.openTxnID {
		s.openTxnID = txnID
		s.openUniqueID = uniqueID
		s.openTransactionUso = s.uso
	}

	if len(rec) > s.curr.Remaining() {
		if err := s.extend(len(rec), s.uso); err != nil {
			return 0, err
		}
	}

	if len(rec) > s.curr.Remaining() {
		// Still doesn't fit even in a freshly extended block: the row
		// exceeds the maximum configured capacity.
		if overflowLogLimiter.Allow() {
			s.log.Warn("row too large for stream, rolling back", "table", s.tableName, "rowBytes", len(rec))
		}
		return 0, engineerr.NewRecoverable("stream: row exceeds maximum stream capacity")
	}

	mark := s.uso
	s.curr.Append(rec)
	s.uso += int64(len(rec))
	s.lastSeqNum = row.SequenceNumber
	if s.m != nil {
		s.m.StreamBytesProduced.Add(float64(len(rec)))
	}
	return mark, nil
}

// extend closes out the current block (queues it if non-empty, else
// discards it) and opens a fresh one sized for minLength.
func (s *TupleStream) extend(minLength int, startUso int64) error {
	if s.curr != nil {
		if !s.curr.Empty() {
			s.pending = append(s.pending, s.curr)
		}
		s.curr = nil
	}

	size := s.cfg.DefaultCapacity
	kind := Normal
	if minLength > s.cfg.DefaultCapacity {
		if s.cfg.SecondaryCapacity > 0 {
			size = s.cfg.SecondaryCapacity
			kind = Large
		}
		if minLength > size {
			if s.m != nil {
				s.m.StreamOverflowDropped.Inc()
			}
			if overflowLogLimiter.Allow() {
				s.log.Warn("row too large for stream, rolling back", "table", s.tableName, "rowBytes", minLength)
			}
			return engineerr.NewRecoverable("stream: transaction is bigger than configured buffer size")
		}
	}
	if size > s.cfg.maxCapacity() {
		return engineerr.NewFatal("stream: default capacity exceeds configured maximum")
	}

	s.curr = NewBlock(size, startUso, kind)
	s.markFlushPending()
	return nil
}

// Commit marks all rows up to the current USO as committed and pushes any
// now-fully-committed pending blocks.
func (s *TupleStream) Commit(txnID, uniqueID int64) {
	s.committedUso = s.uso
	s.committedTxnID = txnID
	s.committedUniqueID = uniqueID
	s.committedSeqNum = s.lastSeqNum
	s.PushPendingBlocks()
}

// RollbackTo truncates the stream so USO returns to mark, discarding
// pending blocks wholly after mark and rewinding the current block.
// Precondition: mark >= committedUso.
func (s *TupleStream) RollbackTo(mark int64, seqNo int64) {
	if mark > s.uso {
		panic(engineerr.NewFatal("stream: rollback mark %d is ahead of current USO %d", mark, s.uso))
	}
	if mark < s.committedUso {
		panic(engineerr.NewFatal("stream: rollback mark %d precedes committed USO %d", mark, s.committedUso))
	}

	s.uso = mark
	s.lastSeqNum = seqNo - 1

	if s.curr != nil && s.curr.USO() >= mark {
		s.curr = nil
		for len(s.pending) > 0 {
			last := s.pending[len(s.pending)-1]
			s.pending = s.pending[:len(s.pending)-1]
			if last.USO() >= mark {
				continue
			}
			s.curr = last
			break
		}
		if s.curr == nil {
			_ = s.extend(0, s.uso)
		} else {
			s.curr.TruncateTo(mark)
		}
	} else if s.curr != nil {
		s.curr.TruncateTo(mark)
	}

	if s.uso == s.committedUso {
		s.openTxnID = s.committedTxnID
		s.openUniqueID = s.committedUniqueID
	}
}

// PushPendingBlocks hands every pending block that is now entirely
// committed to the top end, in FIFO order.
func (s *TupleStream) PushPendingBlocks() {
	for len(s.pending) > 0 {
		head := s.pending[0]
		if s.committedUso < head.USO()+int64(head.Offset()) {
			break
		}
		head.WriteOutHeader(s.committedSeqNum, s.committedUniqueID, s.committedTxnID)
		s.push(head)
		s.pending = s.pending[1:]
	}
	if len(s.pending) == 0 && (s.curr == nil || s.curr.Empty()) {
		s.clearFlushPending()
	}
}

func (s *TupleStream) push(b *Block) {
	wire := b.Encode()
	var err error
	if s.isDR {
		_, err = s.top.PushDRBuffer(s.partitionID, wire)
	} else {
		err = s.top.PushExportBuffer(s.partitionID, s.tableName, wire)
	}
	if err != nil {
		panic(engineerr.NewFatal("stream: top end rejected pushed block: %v", err))
	}
	if s.m != nil {
		s.m.StreamBlocksPushed.Inc()
	}
}

// PeriodicFlush ages out committed data: if nowMillis - lastFlush exceeds
// the configured flush interval, the current block is closed and pushed.
// Returns true if the stream's current block is now empty.
func (s *TupleStream) PeriodicFlush(nowMillis int64, lastCommittedSpHandle int64) bool {
	if !s.flushPending {
		return s.curr == nil || s.curr.Empty()
	}
	if nowMillis-s.flushTargetMillis < s.cfg.FlushIntervalMs {
		return false
	}
	if s.curr != nil && !s.curr.Empty() {
		s.pending = append(s.pending, s.curr)
		s.curr = nil
	}
	s.PushPendingBlocks()
	return s.curr == nil || s.curr.Empty()
}

func (s *TupleStream) markFlushPending() {
	if s.flushPending {
		return
	}
	s.flushPending = true
	s.flushTargetMillis = s.clk.NowMillis()
	if s.registry != nil {
		s.registry.Enqueue(s)
	}
}

func (s *TupleStream) clearFlushPending() {
	s.flushPending = false
	if s.registry != nil {
		s.registry.Remove(s)
	}
}

// FlushPending reports whether this stream currently belongs in the
// engine's intrusive pending-flush list.
func (s *TupleStream) FlushPending() bool { return s.flushPending }

// FlushTargetMillis is the timestamp PeriodicFlush compares against.
func (s *TupleStream) FlushTargetMillis() int64 { return s.flushTargetMillis }
