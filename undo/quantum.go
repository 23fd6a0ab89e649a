package undo

import (
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/VoltDB/voltdb-sub009/pool"
)

// Quantum is one transaction's reversible log: an ordered list of Actions
// plus the distinct ReleaseInterests registered alongside them, all backed
// by a single pool.Pool (spec §3.7). The quantum never frees action-by-
// action; the owning Log purges the whole Pool once the quantum is undone
// or released.
type Quantum struct {
	token int64
	p     *pool.Pool

	actions   []Action
	interests []ReleaseInterest
	seen      mapset.Set[ReleaseInterest]
}

func newQuantum(token int64, p *pool.Pool) *Quantum {
	return &Quantum{
		token: token,
		p:     p,
		seen:  mapset.NewThreadUnsafeSet[ReleaseInterest](),
	}
}

// Token returns the transaction token this quantum was generated for.
func (q *Quantum) Token() int64 { return q.token }

// Pool returns the arena backing this quantum's actions.
func (q *Quantum) Pool() *pool.Pool { return q.p }

// AllocateBytes carves size bytes out of the quantum's Pool, for actions
// that need to stash a copy of mutated data (e.g. a tuple's pre-image).
func (q *Quantum) AllocateBytes(size uint64) []byte { return q.p.Allocate(size) }

// RegisterUndoAction appends action to the owned list. If interest is
// non-nil and has not already been registered for this token, it is added
// to the notification list exactly once.
func (q *Quantum) RegisterUndoAction(action Action, interest ReleaseInterest) {
	q.actions = append(q.actions, action)
	if interest == nil || q.seen.Contains(interest) {
		return
	}
	q.seen.Add(interest)
	q.interests = append(q.interests, interest)
}

// ActionCount reports how many actions are registered, exposed for tests.
func (q *Quantum) ActionCount() int { return len(q.actions) }

// undo invokes every action in reverse registration order and returns the
// Pool for recycling (spec §4.7).
func (q *Quantum) undo() *pool.Pool {
	for i := len(q.actions) - 1; i >= 0; i-- {
		q.actions[i].Undo()
	}
	return q.p
}

// release invokes every action forward, then notifies each distinct
// interest once, and returns the Pool for recycling (spec §4.7).
func (q *Quantum) release() *pool.Pool {
	for _, a := range q.actions {
		a.Release()
	}
	for _, in := range q.interests {
		in.NotifyQuantumRelease(q.token)
	}
	return q.p
}
