package stream

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/VoltDB/voltdb-sub009/clock"
)

type fakeSink struct {
	exportPushes [][]byte
	drPushes     [][]byte
}

func (f *fakeSink) PushExportBuffer(partitionID int32, tableName string, block []byte) error {
	f.exportPushes = append(f.exportPushes, block)
	return nil
}

func (f *fakeSink) PushDRBuffer(partitionID int32, block []byte) (int64, error) {
	f.drPushes = append(f.drPushes, block)
	return int64(len(f.drPushes)), nil
}

func row(txnID, seq int64) Row {
	return Row{
		TxnID:          txnID,
		SequenceNumber: seq,
		PartitionID:    0,
		SiteID:         0,
		Operation:      Insert,
		Visible:        [][]byte{[]byte("payload")},
		VisibleNull:    []bool{false},
	}
}

func newTestStream(sink *fakeSink) *TupleStream {
	cfg := Config{DefaultCapacity: 256, FlushIntervalMs: 1000}
	clk := clock.New()
	clk.Set(clk.Now())
	return New(cfg, sink, false, 0, "orders", Schema{VisibleColumns: 1}, clk, nil)
}

func TestAppendCommitFlushPushesOneBlock(t *testing.T) {
	sink := &fakeSink{}
	s := newTestStream(sink)

	_, err := s.AppendTuple(2, 1, row(2, 1))
	require.NoError(t, err)
	s.Commit(2, 1)

	require.Empty(t, sink.exportPushes, "commit alone must not push the still-open current block")

	s.pending = append(s.pending, s.curr)
	s.curr = nil
	s.PushPendingBlocks()

	require.Len(t, sink.exportPushes, 1)
	hdr, err := DecodeMetaHeader(sink.exportPushes[0])
	require.NoError(t, err)
	require.Equal(t, int64(0), hdr.StartSequenceNumber)
	require.Equal(t, int32(1), hdr.RowCount)
	require.Equal(t, int64(1), hdr.CommittedSequenceNumber)
}

func TestRollbackToPreAppendMarkPushesNothing(t *testing.T) {
	sink := &fakeSink{}
	s := newTestStream(sink)

	mark, err := s.AppendTuple(5, 1, row(5, 1))
	require.NoError(t, err)
	require.Equal(t, int64(0), mark)

	s.RollbackTo(mark, 1)
	require.Equal(t, int64(0), s.USO())

	s.Commit(5, 1)
	s.PeriodicFlush(s.FlushTargetMillis()+s.cfg.FlushIntervalMs, 0)

	require.Empty(t, sink.exportPushes)
}

func TestTransactionNeverSpansTwoBlocksUnderDefaultCapacity(t *testing.T) {
	sink := &fakeSink{}
	cfg := Config{DefaultCapacity: 256, FlushIntervalMs: 1000}
	clk := clock.New()
	s := New(cfg, sink, false, 0, "orders", Schema{VisibleColumns: 1}, clk, nil)

	txn := int64(9)
	for i := 0; i < 3; i++ {
		_, err := s.AppendTuple(txn, 1, row(txn, int64(i)))
		require.NoError(t, err)
	}

	require.Empty(t, s.pending, "all three rows of one small transaction stay in the current block")
	require.Equal(t, int32(3), s.curr.RowCount())
}
