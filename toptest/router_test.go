package toptest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/VoltDB/voltdb-sub009/hashrange"
)

func TestPartitionRouterRoutesByModulus(t *testing.T) {
	r := NewPartitionRouter(hashrange.BigInt, 4)

	for raw, want := range map[int64]int{0: 0, 1: 1, 2: 2, 3: 3, 4: 0, 13: 1} {
		got, err := r.PartitionFor(raw, false)
		require.NoError(t, err)
		require.Equal(t, want, got, "raw=%d", raw)
	}
}

func TestPartitionRouterNullRoutesToZero(t *testing.T) {
	r := NewPartitionRouter(hashrange.Integer, 8)
	got, err := r.PartitionFor(0, true)
	require.NoError(t, err)
	require.Equal(t, 0, got)
}

func TestPartitionRouterUnsupportedKindErrors(t *testing.T) {
	r := NewPartitionRouter(hashrange.Varchar, 4)
	_, err := r.PartitionFor(1, false)
	require.Error(t, err)
}

func TestPartitionRouterFromPredicatesPropagatesParseError(t *testing.T) {
	_, err := NewPartitionRouterFromPredicates(hashrange.BigInt, 2, []string{"1-9"})
	require.Error(t, err)
}
