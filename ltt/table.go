package ltt

import (
	"container/heap"
	"context"
	"math/rand"

	"github.com/VoltDB/voltdb-sub009/engineerr"
)

// Less orders two rows; supplied by the caller (the expression evaluator
// that would otherwise own comparator generation is out of scope).
type Less func(a, b Row) bool

// Table is LargeTempTable: an ordered sequence of block ids plus the
// single currently-writable block, pinned until FinishInserts (spec §3.6).
type Table struct {
	cache  *Cache
	stride int

	blockIDs      []ID
	blockForWrite *Block

	tupleCount int64
}

// NewTable constructs an empty table backed by cache, with rows of the
// given fixed inline stride.
func NewTable(cache *Cache, stride int) *Table {
	return &Table{cache: cache, stride: stride}
}

func (t *Table) TupleCount() int64 { return t.tupleCount }
func (t *Table) BlockIDs() []ID    { return t.blockIDs }

func (t *Table) getEmptyBlock() {
	if t.blockForWrite != nil {
		t.blockForWrite.Unpin()
	}
	b := t.cache.GetEmptyBlock(t.stride)
	t.blockForWrite = b
	t.blockIDs = append(t.blockIDs, b.ID())
}

// InsertTuple appends row to the currently writable block, opening a new
// one if the current block is full or this is the first insert (spec
// §4.6 insert).
func (t *Table) InsertTuple(row Row) {
	if t.blockForWrite == nil {
		if len(t.blockIDs) != 0 {
			panic(engineerr.NewFatal("ltt: attempt to insert after finishInserts() called"))
		}
		t.getEmptyBlock()
	}

	if !t.blockForWrite.Insert(row) {
		if t.blockForWrite.ActiveTupleCount() == 0 {
			panic(engineerr.NewRecoverable("ltt: failed to insert tuple into empty block"))
		}
		t.getEmptyBlock()
		if !t.blockForWrite.Insert(row) {
			panic(engineerr.NewRecoverable("ltt: failed to insert tuple into empty block"))
		}
	}

	t.tupleCount++
}

// FinishInserts unpins the writable block, if any. Subsequent calls are
// no-ops.
func (t *Table) FinishInserts() {
	if t.blockForWrite != nil {
		t.blockForWrite.Unpin()
		t.blockForWrite = nil
	}
}

// DeleteAllTuples unpins and releases every block this table owns.
func (t *Table) DeleteAllTuples() {
	t.FinishInserts()
	for _, id := range t.blockIDs {
		if err := t.cache.Release(id); err != nil {
			panic(err)
		}
	}
	t.blockIDs = nil
	t.tupleCount = 0
}

// Iterate walks every row across every block in order, calling visit for
// each. finishInserts must have already been called. If deleteAsWeGo is
// set, each block is released immediately after its last row is yielded.
func (t *Table) Iterate(deleteAsWeGo bool, visit func(Row)) {
	if t.blockForWrite != nil {
		panic(engineerr.NewFatal("ltt: attempt to iterate before finishInserts() is called"))
	}

	remaining := t.blockIDs[:0:0]
	remaining = append(remaining, t.blockIDs...)
	for _, id := range remaining {
		b := t.cache.Fetch(id)
		n := b.ActiveTupleCount()
		for i := 0; i < n; i++ {
			visit(b.At(i))
		}
		t.cache.Unpin(id)
		if deleteAsWeGo {
			t.tupleCount -= int64(n)
			if err := t.cache.Release(id); err != nil {
				panic(err)
			}
			t.removeBlockID(id)
		}
	}
}

func (t *Table) removeBlockID(id ID) {
	for i, existing := range t.blockIDs {
		if existing == id {
			t.blockIDs = append(t.blockIDs[:i], t.blockIDs[i+1:]...)
			return
		}
	}
}

func (t *Table) disownBlock(id ID) {
	t.removeBlockID(id)
}

func (t *Table) inheritBlock(id ID, rowCount int) {
	t.blockIDs = append(t.blockIDs, id)
	t.tupleCount += int64(rowCount)
}

// Sort performs the external-merge sort of spec §4.6: per-block sort
// (Phase 1) followed by a k-way merge (Phase 2), honoring limit/offset
// only on the final merge pass. limit < 0 means "no limit".
func (t *Table) Sort(less Less, limit, offset int) {
	if t.tupleCount == 0 {
		return
	}
	if limit == 0 || int64(offset) >= t.tupleCount {
		t.DeleteAllTuples()
		return
	}

	mergeFactor := t.cache.MaxSizeInBlocks() - 1
	if mergeFactor < 2 {
		mergeFactor = 2
	}

	var runs []*run
	ids := append([]ID(nil), t.blockIDs...)
	for _, id := range ids {
		t.disownBlock(id)
		b := t.cache.Fetch(id)
		sortBlock(b, less, limit, offset)
		t.cache.InvalidateStoredCopy(b)
		t.cache.Unpin(id)

		single := NewTable(t.cache, t.stride)
		single.inheritBlock(id, b.ActiveTupleCount())
		runs = append(runs, newRun(single))
	}

	// At least one merge pass always runs, even over a single run, since
	// that pass is what applies the final limit/offset trim.
	for {
		runs = t.mergePass(runs, less, limit, offset, mergeFactor)
		if len(runs) <= 1 {
			break
		}
	}

	if len(runs) == 1 {
		sole := runs[0].table
		t.blockIDs = sole.blockIDs
		t.tupleCount = sole.tupleCount
	}
}

// mergePass consumes up to mergeFactor runs at a time, merging each batch
// into one output run via a min-heap keyed by less. Before each batch is
// merged, the first blocks of that batch's runs are prefetched
// concurrently; the prefetch completes before the heap starts draining.
func (t *Table) mergePass(runs []*run, less Less, limit, offset, mergeFactor int) []*run {
	// If every run fits in one batch, this call reduces them to the sole
	// surviving run and must honor the real offset/limit; otherwise every
	// output here is an intermediate run that only needs capping at
	// limit+offset so later passes still have enough to work with.
	isFinalPass := len(runs) <= mergeFactor

	var out []*run
	for len(runs) > 0 {
		batch := runs
		if len(batch) > mergeFactor {
			batch = runs[:mergeFactor]
		}
		runs = runs[len(batch):]
		if t.cache.m != nil {
			t.cache.m.SortRunsMerged.Add(float64(len(batch)))
		}

		limitThisPass, offsetThisPass := limit, offset
		if !isFinalPass {
			if limit != -1 {
				limitThisPass = limit + offset
			}
			offsetThisPass = 0
		}

		firstBlocks := make([]ID, 0, len(batch))
		for _, r := range batch {
			if len(r.blocks) > 0 {
				firstBlocks = append(firstBlocks, r.blocks[0])
			}
		}
		_ = t.cache.Prefetch(context.Background(), firstBlocks)

		for _, r := range batch {
			r.init()
		}

		h := &runHeap{less: less}
		for _, r := range batch {
			if r.hasCurrent {
				h.runs = append(h.runs, r)
			}
		}
		heap.Init(h)

		output := NewTable(t.cache, t.stride)
		written := 0
		skipped := 0
		for h.Len() > 0 {
			if limitThisPass != -1 && written == limitThisPass {
				break
			}
			r := heap.Pop(h).(*run)
			if offsetThisPass > 0 && skipped < offsetThisPass {
				skipped++
			} else {
				output.InsertTuple(r.current)
				written++
			}
			if r.advance() {
				heap.Push(h, r)
			}
		}
		output.FinishInserts()
		out = append(out, newRun(output))
	}

	return out
}

// run bundles a single-pass, delete-as-you-go scan over one sorted table
// with the row currently at its scan position. The block underneath the
// scan position stays pinned for the duration of its scan and is released
// only once its last row has been consumed (delete-as-you-go).
type run struct {
	table      *Table
	blocks     []ID
	curBlock   int
	curIdx     int
	curActive  int
	current    Row
	hasCurrent bool
}

func newRun(t *Table) *run {
	return &run{table: t, blocks: append([]ID(nil), t.blockIDs...)}
}

func (r *run) init() { r.advance() }

// advance loads the next row in block-id order, releasing each block once
// its last row has been consumed.
func (r *run) advance() bool {
	for {
		if r.curBlock >= len(r.blocks) {
			r.hasCurrent = false
			return false
		}
		id := r.blocks[r.curBlock]

		var b *Block
		if r.curIdx == 0 {
			b = r.table.cache.Fetch(id)
			r.curActive = b.ActiveTupleCount()
		} else {
			b = r.table.cache.Peek(id)
		}

		if r.curIdx >= r.curActive {
			r.table.cache.Unpin(id)
			_ = r.table.cache.Release(id)
			r.curBlock++
			r.curIdx = 0
			continue
		}

		r.current = b.At(r.curIdx)
		r.curIdx++
		if r.curIdx >= r.curActive {
			r.table.cache.Unpin(id)
			_ = r.table.cache.Release(id)
			r.curBlock++
			r.curIdx = 0
		}
		r.hasCurrent = true
		return true
	}
}

// runHeap is a min-heap of runs keyed by their current row, so the
// smallest current row across all runs is always at the top.
type runHeap struct {
	runs []*run
	less Less
}

func (h *runHeap) Len() int { return len(h.runs) }
func (h *runHeap) Less(i, j int) bool {
	return h.less(h.runs[i].current, h.runs[j].current)
}
func (h *runHeap) Swap(i, j int) { h.runs[i], h.runs[j] = h.runs[j], h.runs[i] }
func (h *runHeap) Push(x interface{}) { h.runs = append(h.runs, x.(*run)) }
func (h *runHeap) Pop() interface{} {
	n := len(h.runs)
	r := h.runs[n-1]
	h.runs = h.runs[:n-1]
	return r
}

// sortBlock sorts a single block in place, honoring an optional
// limit+offset prefix (spec §4.6 Phase 1). A random-pivot quicksort with
// an insertion-sort base case for N<=4, matching the original's
// BlockSorter::quicksort.
func sortBlock(b *Block, less Less, limit, offset int) {
	effLimit := -1
	if limit != -1 {
		effLimit = limit + offset
		if effLimit > b.ActiveTupleCount() {
			effLimit = -1
		}
	}
	quicksortBlock(b, less, 0, b.ActiveTupleCount(), effLimit)
}

func quicksortBlock(b *Block, less Less, lo, hi, limit int) {
	for {
		n := hi - lo
		switch n {
		case 0, 1:
			return
		case 2, 3, 4:
			insertionSortBlock(b, less, lo, hi)
			return
		}

		pivot := lo + rand.Intn(n)
		swapRows(b, pivot, hi-1)
		pivotIdx := hi - 1

		store := lo - 1
		for j := lo; j < hi-1; j++ {
			if less(b.At(j), b.At(pivotIdx)) {
				store++
				swapRows(b, j, store)
			}
		}
		store++
		if less(b.At(pivotIdx), b.At(store)) {
			swapRows(b, pivotIdx, store)
		}
		pivotIdx = store

		leftCount := pivotIdx - lo
		rightCount := hi - (pivotIdx + 1)

		if limit != -1 && leftCount+1 >= limit {
			hi = pivotIdx
		} else if leftCount > rightCount {
			rightLimit := limit
			if limit != -1 {
				rightLimit = limit - (leftCount + 1)
			}
			quicksortBlock(b, less, pivotIdx+1, hi, rightLimit)
			hi = pivotIdx
		} else {
			quicksortBlock(b, less, lo, pivotIdx, limit)
			lo = pivotIdx + 1
			if limit != -1 {
				limit -= leftCount + 1
			}
		}
	}
}

func insertionSortBlock(b *Block, less Less, lo, hi int) {
	for i := lo + 1; i < hi; i++ {
		for j := i; j > lo && less(b.At(j), b.At(j-1)); j-- {
			swapRows(b, j, j-1)
		}
	}
}

// swapRows exchanges the inline payloads of two rows in place. Aux blobs
// stay where they are; only the aux descriptor lists are swapped.
func swapRows(b *Block, i, j int) {
	if i == j {
		return
	}
	a, c := b.At(i), b.At(j)
	tmp := make([]byte, len(a.Inline))
	copy(tmp, a.Inline)
	copy(a.Inline, c.Inline)
	copy(c.Inline, tmp)
	b.auxByRow[i], b.auxByRow[j] = b.auxByRow[j], b.auxByRow[i]
}
