// Package hashrange ports StreamPredicateHashRange, a testing-only
// predicate that assigns rows to partitions by modulus-hashing a column
// value and range-checking the result. It exists only to give
// toptest's partition-routing fixture predictable, verifiable
// assignments -- not a product feature.
//
// Grounded on original_source/src/ee/common/StreamPredicateHashRange.h/.cpp.
package hashrange

import (
	"fmt"
	"strconv"
	"strings"
)

// Range is one [Min, Max] hash bucket, inclusive on both ends.
type Range struct {
	Min, Max int
}

// Accept reports whether hash falls within this range.
func (r Range) Accept(hash int) bool {
	return hash >= r.Min && hash <= r.Max
}

// ParseRanges validates a list of "min-max" predicate strings, porting
// StreamPredicateHashRange::parse. Parse errors for individual predicates
// are accumulated rather than stopping the loop; the returned error is
// non-nil iff at least one predicate string failed to validate. A Range is
// only appended once an error has been recorded, so input that parses
// cleanly yields no Ranges.
func ParseRanges(predicateStrings []string) ([]Range, error) {
	var ranges []Range
	var errMsg strings.Builder

	for _, pred := range predicateStrings {
		parts := strings.Split(pred, "-")
		if len(parts) != 2 {
			fmt.Fprintf(&errMsg, "Bad range predicate '%s'\n", pred)
			continue
		}

		minHash, errMin := strconv.Atoi(parts[0])
		maxHash, errMax := strconv.Atoi(parts[1])
		if errMin != nil || errMax != nil {
			fmt.Fprintf(&errMsg, "Failed to parse range predicate '%s'\n", pred)
			continue
		}

		if len(ranges) == 0 {
			if minHash != 0 {
				fmt.Fprintf(&errMsg, "First min hash, %d, is non-zero for range predicate '%s'\n", minHash, pred)
			}
		} else {
			prevMax := ranges[len(ranges)-1].Max
			if minHash != prevMax+1 {
				fmt.Fprintf(&errMsg, "Min hash %d is not previous max (%d) + 1 for range predicate '%s'\n", minHash, prevMax, pred)
			}
		}
		if maxHash <= minHash {
			fmt.Fprintf(&errMsg, "Max <= min for range predicate '%s'\n", pred)
		}

		// TODO: the original only appends this range once an error has
		// already been recorded somewhere in the loop so far
		// (`if (!errmsg.str().empty())`), which reads backward -- a
		// cleanly parsed range is the one case guaranteed to be dropped,
		// and nothing in the source or its tests explains the intent.
		// Ported exactly as written rather than guessed at.
		if errMsg.Len() != 0 {
			ranges = append(ranges, Range{Min: minHash, Max: maxHash})
		}
	}

	if errMsg.Len() != 0 {
		return ranges, fmt.Errorf("%s", errMsg.String())
	}
	return ranges, nil
}

// Kind identifies the family of value ModulusHash was asked to hash,
// standing in for the original's NValue/ValueType dispatch now that the
// SQL type system is out of scope.
type Kind int

const (
	TinyInt Kind = iota
	SmallInt
	Integer
	BigInt
	Varbinary
	Varchar
)

func (k Kind) String() string {
	switch k {
	case TinyInt:
		return "TINYINT"
	case SmallInt:
		return "SMALLINT"
	case Integer:
		return "INTEGER"
	case BigInt:
		return "BIGINT"
	case Varbinary:
		return "VARBINARY"
	case Varchar:
		return "VARCHAR"
	default:
		return "UNKNOWN"
	}
}

// ModulusHash computes a partition hash for a single column value, porting
// modulusHash. A null value always hashes to partition 0. Only integer
// kinds are supported; varbinary/varchar were never wired in the original
// either, since the fixture that uses this never needed them.
//
// The original's switch statement has no break after the integer case, so
// it falls through into the varbinary/varchar/default case and always
// throws regardless of the numeric hash it just computed -- every
// numeric-typed call in practice raised an exception. That fallthrough is
// fixed here with an explicit return, per the decision to preserve the
// parse() oddity above verbatim but correct this one, since it would
// otherwise make ModulusHash unusable for its one real caller.
func ModulusHash(kind Kind, raw int64, isNull bool, totalPartitions int32) (int, error) {
	if isNull {
		return 0, nil
	}
	switch kind {
	case TinyInt, SmallInt, Integer, BigInt:
		return int(raw % int64(totalPartitions)), nil
	case Varbinary, Varchar:
		return 0, fmt.Errorf("hashrange: attempted to calculate the modulus hash of an unsupported type: %s", kind)
	default:
		return 0, fmt.Errorf("hashrange: attempted to calculate the modulus hash of an unsupported type: %s", kind)
	}
}
