package toptest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/VoltDB/voltdb-sub009/topend"
)

func openTestPebble(t *testing.T) *Pebble {
	t.Helper()
	p, err := OpenPebble(t.TempDir(), 7)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, p.Close()) })
	return p
}

func TestPebbleImplementsTopend(t *testing.T) {
	var _ topend.Topend = openTestPebble(t)
}

func TestPebbleStoreLoadReleaseRoundTrip(t *testing.T) {
	p := openTestPebble(t)

	ok, err := p.StoreLargeTempTableBlock(3, []byte("block bytes"))
	require.NoError(t, err)
	require.True(t, ok)

	count, err := p.StoredBlockCount()
	require.NoError(t, err)
	require.Equal(t, 1, count)

	data, found, err := p.LoadLargeTempTableBlock(3)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []byte("block bytes"), data)

	released, err := p.ReleaseLargeTempTableBlock(3)
	require.NoError(t, err)
	require.True(t, released)

	_, found, err = p.LoadLargeTempTableBlock(3)
	require.NoError(t, err)
	require.False(t, found)
}

func TestPebbleStoreRejectsDuplicateBlockID(t *testing.T) {
	p := openTestPebble(t)
	_, err := p.StoreLargeTempTableBlock(1, []byte("a"))
	require.NoError(t, err)
	_, err = p.StoreLargeTempTableBlock(1, []byte("b"))
	require.Error(t, err)
}

func TestPebbleReleaseOfUnknownBlockReportsFalse(t *testing.T) {
	p := openTestPebble(t)
	ok, err := p.ReleaseLargeTempTableBlock(404)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestPebblePlanForFragmentIDRoundTrip(t *testing.T) {
	p := openTestPebble(t)
	require.NoError(t, p.AddPlan(9, []byte("plan-nine")))

	plan, err := p.PlanForFragmentID(9)
	require.NoError(t, err)
	require.Equal(t, []byte("plan-nine"), plan)

	plan, err = p.PlanForFragmentID(10)
	require.NoError(t, err)
	require.Nil(t, plan)
}

func TestPebblePushExportAndDRBuffersPersist(t *testing.T) {
	p := openTestPebble(t)

	require.NoError(t, p.PushExportBuffer(0, "tbl", []byte("export-1")))
	cap, err := p.PushDRBuffer(0, []byte("dr-1"))
	require.NoError(t, err)
	require.Equal(t, int64(7), cap)
}

func TestPebbleLoadNextDependencyServesQueueThenEmpty(t *testing.T) {
	p := openTestPebble(t)
	p.QueueDependency(topend.Dependency{ID: 2, Bytes: []byte("x")})

	d1, err := p.LoadNextDependency(2)
	require.NoError(t, err)
	require.Equal(t, []byte("x"), d1.Bytes)

	d2, err := p.LoadNextDependency(2)
	require.NoError(t, err)
	require.Nil(t, d2.Bytes)
}

func TestPebbleMultipleBlocksCountedIndependently(t *testing.T) {
	p := openTestPebble(t)
	for _, id := range []int64{1, 2, 3} {
		_, err := p.StoreLargeTempTableBlock(id, []byte{byte(id)})
		require.NoError(t, err)
	}
	count, err := p.StoredBlockCount()
	require.NoError(t, err)
	require.Equal(t, 3, count)

	_, err = p.ReleaseLargeTempTableBlock(2)
	require.NoError(t, err)
	count, err = p.StoredBlockCount()
	require.NoError(t, err)
	require.Equal(t, 2, count)
}
