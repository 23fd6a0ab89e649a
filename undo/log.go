package undo

import (
	"math"

	"github.com/VoltDB/voltdb-sub009/elog"
	"github.com/VoltDB/voltdb-sub009/engineerr"
	"github.com/VoltDB/voltdb-sub009/metrics"
	"github.com/VoltDB/voltdb-sub009/pool"
)

// DefaultMaxCachedPools is the free-list cap spec §4.8 and §6.4's
// maxCachedPools option bound (original's MAX_CACHED_POOLS = 192).
const DefaultMaxCachedPools = 192

// unseenToken is the sentinel both token watermarks start at: any real
// token (the original assumes non-negative, monotonically increasing
// values from the host) compares greater than it, so the first
// generateUndoQuantum/undo/release call always passes its monotonicity
// check without a special-cased "never called yet" branch.
const unseenToken = math.MinInt64

// Log is the token-ordered deque of open Quanta plus a bounded free-list of
// recycled Pools (spec §3.8).
type Log struct {
	lastUndoToken    int64
	lastReleaseToken int64

	maxCachedPools int
	freeList       []*pool.Pool

	quanta []*Quantum // front = oldest (lowest token)

	m   *metrics.Set
	log interface {
		Warn(msg string, ctx ...interface{})
	}
}

// NewLog constructs an empty Log. maxCachedPools <= 0 uses
// DefaultMaxCachedPools.
func NewLog(maxCachedPools int, m *metrics.Set) *Log {
	if maxCachedPools <= 0 {
		maxCachedPools = DefaultMaxCachedPools
	}
	return &Log{
		lastUndoToken:    unseenToken,
		lastReleaseToken: unseenToken,
		maxCachedPools:   maxCachedPools,
		m:                m,
		log:              elog.New("undo"),
	}
}

// LastUndoToken is the highest token handed to GenerateUndoQuantum that has
// not been undone; Undo(token) lowers it to token-1.
func (l *Log) LastUndoToken() int64 { return l.lastUndoToken }

// LastReleaseToken is the highest token ever released.
func (l *Log) LastReleaseToken() int64 { return l.lastReleaseToken }

// OpenQuantumCount reports how many quanta are currently open, exposed for
// metrics and tests.
func (l *Log) OpenQuantumCount() int { return len(l.quanta) }

// FreeListSize reports how many Pools are sitting in the recycle free-list.
func (l *Log) FreeListSize() int { return len(l.freeList) }

// GenerateUndoQuantum creates a new Quantum for token, backed by a Pool
// pulled from the free-list (or freshly allocated), and enqueues it as the
// newest open quantum. token must be strictly greater than both
// LastUndoToken and LastReleaseToken (spec §4.8).
func (l *Log) GenerateUndoQuantum(token int64) *Quantum {
	if token <= l.lastUndoToken || token <= l.lastReleaseToken {
		panic(engineerr.NewFatal("undo: token %d is not strictly increasing (lastUndo=%d lastRelease=%d)", token, l.lastUndoToken, l.lastReleaseToken))
	}
	l.lastUndoToken = token

	var p *pool.Pool
	if n := len(l.freeList); n > 0 {
		p = l.freeList[n-1]
		l.freeList = l.freeList[:n-1]
	} else {
		p = pool.New()
	}

	q := newQuantum(token, p)
	l.quanta = append(l.quanta, q)
	l.updateMetrics()
	return q
}

// recyclePool purges p and either returns it to the free-list (if under
// the cap) or drops it for the garbage collector to reclaim.
func (l *Log) recyclePool(p *pool.Pool) {
	p.Purge()
	if len(l.freeList) < l.maxCachedPools {
		l.freeList = append(l.freeList, p)
	}
}

// Undo destroys every open quantum with token >= token, LIFO, invoking
// each action's Undo() in reverse registration order. Quanta with token <
// the given value are left untouched. A token beyond every open quantum
// (e.g. a transaction that never sent work to the engine) is a silent
// no-op (spec §4.8).
func (l *Log) Undo(token int64) {
	if token < l.lastReleaseToken {
		panic(engineerr.NewFatal("undo: cannot undo token %d, already released past %d", token, l.lastReleaseToken))
	}
	if token > l.lastUndoToken {
		return
	}
	l.lastUndoToken = token - 1

	for len(l.quanta) > 0 {
		last := l.quanta[len(l.quanta)-1]
		if last.Token() < token {
			break
		}
		l.quanta = l.quanta[:len(l.quanta)-1]
		l.recyclePool(last.undo())
		if l.m != nil {
			l.m.UndoQuantaFreed.Inc()
		}
		if last.Token() == token {
			break
		}
	}
	l.updateMetrics()
}

// Release destroys every open quantum with token <= token, FIFO, invoking
// each action's Release() in forward registration order and then notifying
// every distinct release interest exactly once (spec §4.8).
func (l *Log) Release(token int64) {
	if token <= l.lastReleaseToken {
		panic(engineerr.NewFatal("undo: release token %d is not strictly greater than lastRelease %d", token, l.lastReleaseToken))
	}
	l.lastReleaseToken = token

	for len(l.quanta) > 0 {
		front := l.quanta[0]
		if front.Token() > token {
			break
		}
		l.quanta = l.quanta[1:]
		l.recyclePool(front.release())
		if l.m != nil {
			l.m.UndoQuantaFreed.Inc()
		}
		if front.Token() == token {
			break
		}
	}
	l.updateMetrics()
}

func (l *Log) updateMetrics() {
	if l.m == nil {
		return
	}
	l.m.UndoLogDepth.Set(float64(len(l.quanta)))
	l.m.UndoPoolsPooled.Set(float64(len(l.freeList)))
}
