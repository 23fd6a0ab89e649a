package toptest

import "github.com/VoltDB/voltdb-sub009/hashrange"

// PartitionRouter assigns a column value to one of a fixed set of
// partitions by modulus hash, giving multi-partition scenario fixtures a
// predictable, verifiable routing decision without any real catalog or
// expression evaluator behind it.
type PartitionRouter struct {
	kind            hashrange.Kind
	totalPartitions int32
	ranges          []hashrange.Range
}

// NewPartitionRouter builds a router over totalPartitions contiguous
// single-value ranges, one per partition ([0,0], [1,1], ...), which is
// exactly the range set ModulusHash's own output already partitions into.
// kind selects ModulusHash's numeric-type branch.
func NewPartitionRouter(kind hashrange.Kind, totalPartitions int32) *PartitionRouter {
	ranges := make([]hashrange.Range, totalPartitions)
	for i := range ranges {
		ranges[i] = hashrange.Range{Min: i, Max: i}
	}
	return &PartitionRouter{kind: kind, totalPartitions: totalPartitions, ranges: ranges}
}

// NewPartitionRouterFromPredicates builds a router from "min-max" predicate
// strings via hashrange.ParseRanges directly, for fixtures that need to
// exercise ParseRanges's own fidelity-preserved parsing behavior (including
// its documented dead-code oddity) rather than a straightforward routing
// table. Callers that just need rows routed to partitions should use
// NewPartitionRouter instead.
func NewPartitionRouterFromPredicates(kind hashrange.Kind, totalPartitions int32, predicateStrings []string) (*PartitionRouter, error) {
	ranges, err := hashrange.ParseRanges(predicateStrings)
	if err != nil {
		return nil, err
	}
	return &PartitionRouter{kind: kind, totalPartitions: totalPartitions, ranges: ranges}, nil
}

// PartitionFor hashes raw and reports which partition's range accepts it,
// or -1 if no configured range does.
func (r *PartitionRouter) PartitionFor(raw int64, isNull bool) (int, error) {
	hash, err := hashrange.ModulusHash(r.kind, raw, isNull, r.totalPartitions)
	if err != nil {
		return -1, err
	}
	for i, rng := range r.ranges {
		if rng.Accept(hash) {
			return i, nil
		}
	}
	return -1, nil
}
