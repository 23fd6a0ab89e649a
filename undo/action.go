// Package undo implements the transactional undo/release log (spec §3.7-3.8,
// §4.7-4.8): a token-indexed stack of reversible actions per transaction
// (Quantum), backed by an arena allocated from a recyclable pool.Pool, and
// an ordered deque of open quanta (Log) that replays them LIFO on abort or
// FIFO on commit.
//
// Grounded on original_source/src/ee/common/UndoQuantum.h and UndoLog.h.
package undo

// Action is one reversible effect registered on a Quantum. Undo replays
// actions in reverse registration order; Release replays them forward.
type Action interface {
	Undo()
	Release()
}

// ReleaseInterest is notified exactly once per quantum, after every Action
// has been released (SPEC_FULL.md D.6; original UndoQuantumReleaseInterest).
type ReleaseInterest interface {
	NotifyQuantumRelease(token int64)
}
