package execctx

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/VoltDB/voltdb-sub009/ltt"
	"github.com/VoltDB/voltdb-sub009/topend"
	"github.com/VoltDB/voltdb-sub009/undo"
)

type fakeTopend struct {
	deps  map[int32]topend.Dependency
	calls int
}

func newFakeTopend() *fakeTopend { return &fakeTopend{deps: make(map[int32]topend.Dependency)} }

func (f *fakeTopend) CrashVoltDB(reason string) { panic(reason) }
func (f *fakeTopend) LoadNextDependency(depID int32) (topend.Dependency, error) {
	f.calls++
	return f.deps[depID], nil
}
func (f *fakeTopend) FragmentProgressUpdate(batchIdx int32, nodeType string, tuplesProcessed, currMemBytes, peakMemBytes int64) topend.ProgressStatus {
	return topend.ProgressStatus{}
}
func (f *fakeTopend) PlanForFragmentID(id int64) ([]byte, error) { return nil, nil }
func (f *fakeTopend) PushExportBuffer(partitionID int32, tableName string, block []byte) error {
	return nil
}
func (f *fakeTopend) PushDRBuffer(partitionID int32, block []byte) (int64, error) { return 0, nil }
func (f *fakeTopend) StoreLargeTempTableBlock(blockID int64, data []byte) (bool, error) {
	return true, nil
}
func (f *fakeTopend) LoadLargeTempTableBlock(blockID int64) ([]byte, bool, error) {
	return nil, false, nil
}
func (f *fakeTopend) ReleaseLargeTempTableBlock(blockID int64) (bool, error) { return true, nil }

func TestDRTimestampPacksClusterAndUniqueID(t *testing.T) {
	got := DRTimestamp(3, 1<<20)
	want := (int64(3) << 49) | (int64(1 << 20) >> 14)
	require.Equal(t, want, got)
}

func TestSetupForPlanFragmentsRecomputesDRTimestamp(t *testing.T) {
	top := newFakeTopend()
	cache := ltt.NewCache(top, 4*ltt.BlockSizeBytes, 1, nil)
	ctx := New(1, 0, 2, top, cache)

	log := undo.NewLog(8, nil)
	q := log.GenerateUndoQuantum(1)

	ctx.SetupForPlanFragments(q, 100, 200, 150, 1<<20)

	require.Same(t, q, ctx.CurrentUndoQuantum())
	require.Equal(t, int64(100), ctx.CurrentTxnID())
	require.Equal(t, int64(200), ctx.CurrentSpHandle())
	require.Equal(t, int64(1<<20), ctx.CurrentUniqueID())
	require.Equal(t, DRTimestamp(2, 1<<20), ctx.CurrentDRTimestamp())
}

func TestClearUndoQuantum(t *testing.T) {
	top := newFakeTopend()
	cache := ltt.NewCache(top, 4*ltt.BlockSizeBytes, 1, nil)
	ctx := New(1, 0, 0, top, cache)

	log := undo.NewLog(8, nil)
	q := log.GenerateUndoQuantum(1)
	ctx.SetupForPlanFragments(q, 1, 1, 0, 1)
	require.NotNil(t, ctx.CurrentUndoQuantum())

	ctx.ClearUndoQuantum()
	require.Nil(t, ctx.CurrentUndoQuantum())
}

func TestSetupForTickOnlyAdvancesSpHandle(t *testing.T) {
	top := newFakeTopend()
	cache := ltt.NewCache(top, 4*ltt.BlockSizeBytes, 1, nil)
	ctx := New(1, 0, 0, top, cache)
	ctx.SetupForPlanFragments(nil, 1, 50, 0, 1)

	ctx.SetupForTick(10)
	require.Equal(t, int64(50), ctx.CurrentSpHandle(), "tick must not move sp handle backwards")

	ctx.SetupForTick(75)
	require.Equal(t, int64(75), ctx.CurrentSpHandle())
	require.Equal(t, int64(75), ctx.LastCommittedSpHandle())
}

func TestLoadDependencyCachesAcrossCalls(t *testing.T) {
	top := newFakeTopend()
	top.deps[7] = topend.Dependency{ID: 7, Bytes: []byte("table-bytes")}
	cache := ltt.NewCache(top, 4*ltt.BlockSizeBytes, 1, nil)
	ctx := New(1, 0, 0, top, cache)

	dep1, err := ctx.LoadDependency(7)
	require.NoError(t, err)
	require.Equal(t, []byte("table-bytes"), dep1.Bytes)

	dep2, err := ctx.LoadDependency(7)
	require.NoError(t, err)
	require.Equal(t, []byte("table-bytes"), dep2.Bytes)
	require.Equal(t, 1, top.calls, "a second load of the same dependency must be served from cache")
}

func TestLoadDependencyDoesNotCacheEmptyResult(t *testing.T) {
	top := newFakeTopend()
	cache := ltt.NewCache(top, 4*ltt.BlockSizeBytes, 1, nil)
	ctx := New(1, 0, 0, top, cache)

	_, err := ctx.LoadDependency(99)
	require.NoError(t, err)
	_, err = ctx.LoadDependency(99)
	require.NoError(t, err)
	require.Equal(t, 2, top.calls, "a nil-bytes dependency (none remaining) must not be cached")
}

func TestEndTransactionPurgesTempPoolAndDependencyCache(t *testing.T) {
	top := newFakeTopend()
	top.deps[1] = topend.Dependency{ID: 1, Bytes: []byte("x")}
	cache := ltt.NewCache(top, 4*ltt.BlockSizeBytes, 1, nil)
	ctx := New(1, 0, 0, top, cache)

	ctx.TempPool().Allocate(64)
	_, err := ctx.LoadDependency(1)
	require.NoError(t, err)
	require.Equal(t, 1, top.calls)

	ctx.EndTransaction()

	_, err = ctx.LoadDependency(1)
	require.NoError(t, err)
	require.Equal(t, 2, top.calls, "dependency cache must be empty after EndTransaction")
}
