// Package execctx implements ExecutorContext (spec §3.9, §4.9): the
// per-partition ambient record that plan-node executors reach through
// rather than threading every piece of site state through every call —
// the current undo quantum, the temp-string pool, transaction/timestamp
// state, stream handles, and the LttBlock cache.
//
// Grounded on original_source/src/ee/common/executorcontext.hpp. The
// thread-affinity machinery that file carries (bindToThread,
// assignThreadLocals, a process-wide thread-local singleton reachable via
// getExecutorContext) exists to let VoltDB's JNI layer hop the same
// logical site across OS threads; this port has no JNI boundary and spec
// §5 already establishes one engine instance per partition run from a
// single goroutine, so Context is just a plain value its owner threads
// through explicitly.
package execctx

import (
	lru "github.com/hashicorp/golang-lru"

	"github.com/VoltDB/voltdb-sub009/ltt"
	"github.com/VoltDB/voltdb-sub009/pool"
	"github.com/VoltDB/voltdb-sub009/stream"
	"github.com/VoltDB/voltdb-sub009/topend"
	"github.com/VoltDB/voltdb-sub009/undo"
)

// DefaultDependencyCacheSize bounds the loadNextDependency result cache.
const DefaultDependencyCacheSize = 64

// Context is one partition's ExecutorContext.
type Context struct {
	siteID      int64
	partitionID int32
	drClusterID int32

	top      topend.Topend
	tempPool *pool.Pool
	lttCache *ltt.Cache

	exportStream       *stream.TupleStream
	drStream           *stream.TupleStream
	drReplicatedStream *stream.TupleStream

	quantum *undo.Quantum

	txnID                 int64
	spHandle              int64
	lastCommittedSpHandle int64
	uniqueID              int64
	drTimestamp           int64

	deps *lru.Cache
}

// New constructs a Context for one partition. lttCache is owned by the
// caller (typically the engine, which also owns the Topend top talks to).
func New(siteID int64, partitionID, drClusterID int32, top topend.Topend, lttCache *ltt.Cache) *Context {
	deps, err := lru.New(DefaultDependencyCacheSize)
	if err != nil {
		// Only size <= 0 returns an error; DefaultDependencyCacheSize is a
		// positive constant, so this can't happen outside a programming
		// mistake.
		panic(err)
	}
	return &Context{
		siteID:      siteID,
		partitionID: partitionID,
		drClusterID: drClusterID,
		top:         top,
		tempPool:    pool.New(),
		lttCache:    lttCache,
		deps:        deps,
	}
}

func (c *Context) SiteID() int64      { return c.siteID }
func (c *Context) PartitionID() int32 { return c.partitionID }
func (c *Context) DRClusterID() int32 { return c.drClusterID }

func (c *Context) TempPool() *pool.Pool { return c.tempPool }
func (c *Context) LttCache() *ltt.Cache { return c.lttCache }

func (c *Context) CurrentUndoQuantum() *undo.Quantum { return c.quantum }

// ClearUndoQuantum nulls out the current quantum once its transaction has
// committed or rolled back, so other code can assert none is active.
func (c *Context) ClearUndoQuantum() { c.quantum = nil }

func (c *Context) SetExportStream(s *stream.TupleStream)       { c.exportStream = s }
func (c *Context) ExportStream() *stream.TupleStream           { return c.exportStream }
func (c *Context) SetDRStream(s *stream.TupleStream)           { c.drStream = s }
func (c *Context) DRStream() *stream.TupleStream               { return c.drStream }
func (c *Context) SetDRReplicatedStream(s *stream.TupleStream) { c.drReplicatedStream = s }
func (c *Context) DRReplicatedStream() *stream.TupleStream     { return c.drReplicatedStream }

// SetupForPlanFragments configures per-fragment-batch ambient state ahead
// of running a batch of plan fragments (spec §4.9), recomputing the
// hidden DR timestamp column value from the new unique id.
func (c *Context) SetupForPlanFragments(quantum *undo.Quantum, txnID, spHandle, lastCommittedSpHandle, uniqueID int64) {
	c.quantum = quantum
	c.txnID = txnID
	c.spHandle = spHandle
	c.lastCommittedSpHandle = lastCommittedSpHandle
	c.uniqueID = uniqueID
	c.drTimestamp = DRTimestamp(int64(c.drClusterID), uniqueID)
}

// SetupForTick advances the last-committed sp handle outside of fragment
// execution (e.g. the periodic tick that drives stream flushing).
func (c *Context) SetupForTick(lastCommittedSpHandle int64) {
	c.lastCommittedSpHandle = lastCommittedSpHandle
	if lastCommittedSpHandle > c.spHandle {
		c.spHandle = lastCommittedSpHandle
	}
}

func (c *Context) CurrentTxnID() int64          { return c.txnID }
func (c *Context) CurrentSpHandle() int64       { return c.spHandle }
func (c *Context) LastCommittedSpHandle() int64 { return c.lastCommittedSpHandle }
func (c *Context) CurrentUniqueID() int64       { return c.uniqueID }
func (c *Context) CurrentDRTimestamp() int64    { return c.drTimestamp }

// DRTimestamp computes the hidden DR timestamp column value carried on
// every DR'd row (spec §4.9): the cluster id in the high 15 bits, the
// unique id's timestamp-plus-counter in the low 49.
func DRTimestamp(clusterID, uniqueID int64) int64 {
	return (clusterID << 49) | (uniqueID >> 14)
}

// LoadDependency fetches dependency depID, consulting the per-partition
// LRU cache before falling back to the top end's loadNextDependency call
// (spec §6.1, cache supplemented per SPEC_FULL's domain-stack wiring).
func (c *Context) LoadDependency(depID int32) (topend.Dependency, error) {
	if v, ok := c.deps.Get(depID); ok {
		return v.(topend.Dependency), nil
	}
	dep, err := c.top.LoadNextDependency(depID)
	if err != nil {
		return topend.Dependency{}, err
	}
	if dep.Bytes != nil {
		c.deps.Add(depID, dep)
	}
	return dep, nil
}

// EndTransaction purges per-transaction scratch state: the temp-string
// pool and the dependency cache. Mirrors the original's per-transaction
// Pool::purge call.
func (c *Context) EndTransaction() {
	c.tempPool.Purge()
	c.deps.Purge()
}
