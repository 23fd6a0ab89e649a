package engine

import (
	"encoding/binary"
	"sort"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/VoltDB/voltdb-sub009/clock"
	"github.com/VoltDB/voltdb-sub009/ltt"
	"github.com/VoltDB/voltdb-sub009/stream"
	"github.com/VoltDB/voltdb-sub009/topend"
	"github.com/VoltDB/voltdb-sub009/toptest"
	"github.com/VoltDB/voltdb-sub009/undo"
)

// recordingAction is an undo.Action that appends its label to a shared
// order slice when invoked, letting a scenario assert the exact sequence
// Undo/Release call the registered actions in.
type recordingAction struct {
	label string
	order *[]string
}

func (a recordingAction) Undo()    { *a.order = append(*a.order, a.label) }
func (a recordingAction) Release() { *a.order = append(*a.order, a.label) }

var _ = Describe("undo ordering", func() {
	It("undoes actions LIFO and releases them FIFO", func() {
		var undoOrder, releaseOrder []string

		log := undo.NewLog(0, nil)

		qu := log.GenerateUndoQuantum(1)
		qu.RegisterUndoAction(recordingAction{"A", &undoOrder}, nil)
		qu.RegisterUndoAction(recordingAction{"B", &undoOrder}, nil)
		qu.RegisterUndoAction(recordingAction{"C", &undoOrder}, nil)
		log.Undo(1)
		Expect(undoOrder).To(Equal([]string{"C", "B", "A"}))

		qr := log.GenerateUndoQuantum(2)
		qr.RegisterUndoAction(recordingAction{"A", &releaseOrder}, nil)
		qr.RegisterUndoAction(recordingAction{"B", &releaseOrder}, nil)
		qr.RegisterUndoAction(recordingAction{"C", &releaseOrder}, nil)
		log.Release(2)
		Expect(releaseOrder).To(Equal([]string{"A", "B", "C"}))
	})
})

func visibleRow(txnID, seq int64, partitionID, siteID int32, value []byte) stream.Row {
	return stream.Row{
		TxnID:          txnID,
		SequenceNumber: seq,
		PartitionID:    partitionID,
		SiteID:         siteID,
		Operation:      stream.Insert,
		Visible:        [][]byte{value},
		VisibleNull:    []bool{false},
	}
}

var _ = Describe("single-tuple stream", func() {
	It("pushes exactly one 75-byte block on commit plus flush", func() {
		top := toptest.NewMemory(0)
		clk := clock.New()
		clk.Set(time.Unix(0, 0))
		e := New(DefaultConfig(), 1, 0, 0, top, clk)

		s := e.NewStream(false, "widgets", stream.Schema{VisibleColumns: 1})
		row := visibleRow(2, 1, 0, 1, make([]byte, 26))
		_, err := s.AppendTuple(2, 1, row)
		Expect(err).NotTo(HaveOccurred())
		s.Commit(2, 1)

		clk.Advance(time.Duration(e.cfg.FlushIntervalMs+1) * time.Millisecond)
		e.Tick(clk.NowMillis(), 2)

		bufs := top.ExportedBuffers()
		Expect(bufs).To(HaveLen(1))

		header, err := stream.DecodeMetaHeader(bufs[0].Block)
		Expect(err).NotTo(HaveOccurred())
		Expect(header.StartSequenceNumber).To(Equal(int64(0)))
		Expect(header.CommittedSequenceNumber).To(Equal(int64(1)))
		Expect(int(header.RowCount)).To(Equal(1))
		Expect(len(bufs[0].Block) - stream.MetaHeaderSize).To(Equal(75))
	})
})

var _ = Describe("buffer-crossing transaction", func() {
	It("spans multiple blocks without mixing transactions", func() {
		top := toptest.NewMemory(0)
		clk := clock.New()
		clk.Set(time.Unix(0, 0))
		cfg := DefaultConfig()
		cfg.DefaultDrBufferSize = 256
		e := New(cfg, 1, 0, 0, top, clk)

		s := e.NewStream(false, "crossers", stream.Schema{VisibleColumns: 1})
		const txnID = 5
		rowCount := 0
		for total := 0; total < cfg.DefaultDrBufferSize+128; {
			row := visibleRow(txnID, int64(rowCount+1), 0, 1, make([]byte, 26))
			_, err := s.AppendTuple(txnID, 1, row)
			Expect(err).NotTo(HaveOccurred())
			total += 75
			rowCount++
		}
		s.Commit(txnID, 1)

		clk.Advance(time.Duration(e.cfg.FlushIntervalMs+1) * time.Millisecond)
		e.Tick(clk.NowMillis(), txnID)

		bufs := top.ExportedBuffers()
		Expect(len(bufs)).To(BeNumerically(">=", 2))

		totalRows := 0
		for _, b := range bufs {
			header, err := stream.DecodeMetaHeader(b.Block)
			Expect(err).NotTo(HaveOccurred())
			Expect(header.CommittedSequenceNumber).To(Equal(int64(rowCount)))
			totalRows += int(header.RowCount)
		}
		Expect(totalRows).To(Equal(rowCount))
	})
})

var _ = Describe("oversize rollback", func() {
	It("pushes zero blocks and rewinds USO to the pre-append mark", func() {
		top := toptest.NewMemory(0)
		clk := clock.New()
		clk.Set(time.Unix(0, 0))
		e := New(DefaultConfig(), 1, 0, 0, top, clk)

		s := e.NewStream(false, "rollbacks", stream.Schema{VisibleColumns: 1})
		preAppendUso := s.USO()

		mark, err := s.AppendTuple(9, 1, visibleRow(9, 1, 0, 1, make([]byte, 26)))
		Expect(err).NotTo(HaveOccurred())
		Expect(mark).To(Equal(preAppendUso))

		s.RollbackTo(mark, 1)
		Expect(s.USO()).To(Equal(preAppendUso))

		clk.Advance(time.Duration(e.cfg.FlushIntervalMs+1) * time.Millisecond)
		e.Tick(clk.NowMillis(), 0)

		Expect(top.ExportedBuffers()).To(BeEmpty())
	})
})

func keyedRow(stride int, k int64) ltt.Row {
	buf := make([]byte, stride)
	binary.BigEndian.PutUint64(buf, uint64(k))
	return ltt.Row{Inline: buf}
}

func rowKey(r ltt.Row) int64 { return int64(binary.BigEndian.Uint64(r.Inline)) }

var _ = Describe("evict-and-reload", func() {
	It("keeps resident blocks within budget while every tuple survives a full scan", func() {
		top := toptest.NewMemory(0)
		clk := clock.New()
		cfg := DefaultConfig()
		cfg.TempTableMemoryLimit = 2 * ltt.BlockSizeBytes
		e := New(cfg, 1, 0, 0, top, clk)

		const stride = 2 * 1024 * 1024
		rowsPerBlock := (ltt.BlockSizeBytes - 12) / stride
		Expect(rowsPerBlock).To(Equal(3))
		totalRows := rowsPerBlock * 4

		tbl := e.NewLargeTempTable(stride)
		for i := int64(0); i < int64(totalRows); i++ {
			tbl.InsertTuple(keyedRow(stride, i))
			Expect(e.LttCache().ResidentBlockCount()).To(BeNumerically("<=", 2))
		}
		tbl.FinishInserts()
		Expect(e.LttCache().ResidentBlockCount()).To(BeNumerically("<=", 2))

		seen := make(map[int64]int)
		tbl.Iterate(false, func(r ltt.Row) {
			seen[rowKey(r)]++
			Expect(e.LttCache().ResidentBlockCount()).To(BeNumerically("<=", 2))
		})

		Expect(seen).To(HaveLen(totalRows))
		for _, count := range seen {
			Expect(count).To(Equal(1))
		}
	})
})

var _ = Describe("sort with limit and offset", func() {
	It("returns exactly the requested window of the reference sort", func() {
		top := toptest.NewMemory(0)
		clk := clock.New()
		cfg := DefaultConfig()
		const stride = 4194
		const rowCount = 5000
		rowsPerBlock := (ltt.BlockSizeBytes - 12) / stride
		Expect(rowsPerBlock).To(Equal(2000))
		blocksNeeded := (rowCount + rowsPerBlock - 1) / rowsPerBlock
		Expect(blocksNeeded).To(Equal(3))
		cfg.TempTableMemoryLimit = int64(blocksNeeded+1) * ltt.BlockSizeBytes

		e := New(cfg, 1, 0, 0, top, clk)
		tbl := e.NewLargeTempTable(stride)

		keys := make([]int64, rowCount)
		for i := range keys {
			keys[i] = int64((i*7919 + 17) % 1000000)
		}
		for _, k := range keys {
			tbl.InsertTuple(keyedRow(stride, k))
		}
		tbl.FinishInserts()

		less := func(a, b ltt.Row) bool { return rowKey(a) < rowKey(b) }
		tbl.Sort(less, 10, 5)

		var got []int64
		tbl.Iterate(true, func(r ltt.Row) { got = append(got, rowKey(r)) })

		reference := append([]int64(nil), keys...)
		sort.Slice(reference, func(i, j int) bool { return reference[i] < reference[j] })

		Expect(got).To(HaveLen(10))
		Expect(got).To(Equal(reference[5:15]))
	})
})

var _ topend.Topend = (*toptest.Memory)(nil)
