// Package engine wires one partition's Pool, TupleStream, LttBlockCache,
// and UndoLog behind the lifecycle a top end drives: open a batch of plan
// fragments against a fresh UndoQuantum, run them, then either release the
// quantum on commit or undo it on abort (spec §2, §5).
//
// A thin struct holding configuration plus references to the lower-level
// pieces, with one method per step of the surrounding host's call
// sequence, rather than owning any of those pieces' internal logic itself.
package engine

import (
	"strconv"

	luxlog "github.com/luxfi/log"

	"github.com/VoltDB/voltdb-sub009/clock"
	"github.com/VoltDB/voltdb-sub009/elog"
	"github.com/VoltDB/voltdb-sub009/engineerr"
	"github.com/VoltDB/voltdb-sub009/execctx"
	"github.com/VoltDB/voltdb-sub009/ltt"
	"github.com/VoltDB/voltdb-sub009/metrics"
	"github.com/VoltDB/voltdb-sub009/stream"
	"github.com/VoltDB/voltdb-sub009/topend"
	"github.com/VoltDB/voltdb-sub009/undo"
)

// Config is the set of per-engine-instance options spec §6.4 names.
type Config struct {
	// TempTableMemoryLimit is the byte budget shared by the LttBlockCache.
	TempTableMemoryLimit int64
	// DefaultDrBufferSize is the initial capacity new streams allocate.
	DefaultDrBufferSize int
	// FlushIntervalMs is the delay between periodic stream flushes.
	FlushIntervalMs int64
	// MaxCachedPools bounds the UndoLog's free-list of recyclable Pools.
	MaxCachedPools int
}

// DefaultConfig returns reasonable defaults: a 100MB temp-table budget, 2MB
// streams, a 1-second flush interval, and the undo log's own default pool
// cache size.
func DefaultConfig() Config {
	return Config{
		TempTableMemoryLimit: 100 * 1024 * 1024,
		DefaultDrBufferSize:  2 * 1024 * 1024,
		FlushIntervalMs:      1000,
		MaxCachedPools:       undo.DefaultMaxCachedPools,
	}
}

// Engine is one partition's execution core: the owner of its UndoLog,
// LttBlockCache, and every TupleStream registered with its FlushList,
// reachable through the ExecutorContext it hands to plan-node executors.
type Engine struct {
	cfg Config

	siteID      int64
	partitionID int32
	drClusterID int32

	top topend.Topend
	clk clock.Clock
	m   *metrics.Set
	log luxlog.Logger

	undoLog   *undo.Log
	lttCache  *ltt.Cache
	flushList *stream.FlushList
	ctx       *execctx.Context
}

// New constructs an Engine for one partition. top is the host collaborator
// this engine's streams, cache, and ExecutorContext all reach through.
func New(cfg Config, siteID int64, partitionID, drClusterID int32, top topend.Topend, clk clock.Clock) *Engine {
	m := metrics.New("voltee", partitionLabel(partitionID))
	lttCache := ltt.NewCache(top, cfg.TempTableMemoryLimit, int32(siteID), m)
	undoLog := undo.NewLog(cfg.MaxCachedPools, m)

	e := &Engine{
		cfg:         cfg,
		siteID:      siteID,
		partitionID: partitionID,
		drClusterID: drClusterID,
		top:         top,
		clk:         clk,
		m:           m,
		log:         elog.New("engine"),
		undoLog:     undoLog,
		lttCache:    lttCache,
		flushList:   stream.NewFlushList(),
		ctx:         execctx.New(siteID, partitionID, drClusterID, top, lttCache),
	}
	return e
}

func partitionLabel(partitionID int32) string {
	if partitionID < 0 {
		return "replicated"
	}
	return strconv.Itoa(int(partitionID))
}

// Context returns the per-partition ExecutorContext plan-node executors
// reach through for pool/cache/undo/stream access.
func (e *Engine) Context() *execctx.Context { return e.ctx }

// UndoLog returns the engine's UndoLog.
func (e *Engine) UndoLog() *undo.Log { return e.undoLog }

// LttCache returns the engine's LttBlockCache.
func (e *Engine) LttCache() *ltt.Cache { return e.lttCache }

// Metrics returns the Prometheus metric set this engine registers into.
func (e *Engine) Metrics() *metrics.Set { return e.m }

// NewStream constructs a TupleStream (export or DR, selected by isDR) sized
// from the engine's configuration, registered with the engine's FlushList.
func (e *Engine) NewStream(isDR bool, tableName string, schema stream.Schema) *stream.TupleStream {
	cfg := stream.Config{
		DefaultCapacity: e.cfg.DefaultDrBufferSize,
		FlushIntervalMs: e.cfg.FlushIntervalMs,
	}
	s := stream.New(cfg, e.top, isDR, e.partitionID, tableName, schema, e.clk, e.m)
	s.SetFlushList(e.flushList)
	return s
}

// NewLargeTempTable constructs a Table backed by the engine's LttBlockCache.
func (e *Engine) NewLargeTempTable(stride int) *ltt.Table {
	return ltt.NewTable(e.lttCache, stride)
}

// BeginFragmentBatch opens a fresh UndoQuantum for token and configures the
// ExecutorContext ahead of running a batch of plan fragments (spec §4.9).
func (e *Engine) BeginFragmentBatch(token, txnID, spHandle, lastCommittedSpHandle, uniqueID int64) *undo.Quantum {
	q := e.undoLog.GenerateUndoQuantum(token)
	e.ctx.SetupForPlanFragments(q, txnID, spHandle, lastCommittedSpHandle, uniqueID)
	return q
}

// CommitFragmentBatch releases every quantum up to and including token in
// FIFO order and clears the ExecutorContext's current quantum.
func (e *Engine) CommitFragmentBatch(token int64) {
	e.undoLog.Release(token)
	e.ctx.ClearUndoQuantum()
	e.ctx.EndTransaction()
}

// AbortFragmentBatch undoes every quantum from token through the most
// recently generated one, LIFO, and clears the ExecutorContext's current
// quantum. Mirrors spec §7's "aborting a fragment triggers undo of its
// undo quantum".
func (e *Engine) AbortFragmentBatch(token int64) {
	e.undoLog.Undo(token)
	e.ctx.ClearUndoQuantum()
	e.ctx.EndTransaction()
}

// Tick drives the periodic flush timer across every stream with pending
// rows and advances the ExecutorContext's committed sp handle watermark
// (spec §4.3's flush timer, outside of fragment execution).
func (e *Engine) Tick(nowMillis, lastCommittedSpHandle int64) {
	e.ctx.SetupForTick(lastCommittedSpHandle)
	e.flushList.PeriodicFlush(nowMillis, lastCommittedSpHandle)
}

// Crash logs err at Crit with its captured stack and hands it to the top
// end's crash callback, which does not return (spec §7 kind 1).
func (e *Engine) Crash(err *engineerr.Fatal) {
	e.log.Crit("fatal engine error", "err", err.Msg, "stack", string(err.Stack))
	engineerr.Crash(e.top, err)
}
