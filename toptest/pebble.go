package toptest

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"

	"github.com/VoltDB/voltdb-sub009/topend"
)

// key namespaces, a fixed-prefix byte namespace ahead of a binary key.
var (
	blockNS  = []byte("ltt\x00")
	planNS   = []byte("plan\x00")
	exportNS = []byte("export\x00")
	drNS     = []byte("dr\x00")
)

// Pebble is a topend.Topend fixture backed by an on-disk pebble database,
// for integration tests that want spilled blocks and exported buffers to
// survive an actual write/read round trip rather than live in a Go map.
// Uses pebble.Open, db.Get/Set, and db.NewIter directly.
type Pebble struct {
	mu sync.Mutex

	db       *pebble.DB
	drCap    int64
	deps     []topend.Dependency
	depAt    int
	exportSeq uint64
	drSeq     uint64
}

// OpenPebble opens (creating if absent) a pebble database at dir.
func OpenPebble(dir string, drCap int64) (*Pebble, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("toptest: opening pebble db at %s: %w", dir, err)
	}
	return &Pebble{db: db, drCap: drCap}, nil
}

// Close closes the underlying database.
func (p *Pebble) Close() error {
	return p.db.Close()
}

func blockKey(blockID int64) []byte {
	k := make([]byte, len(blockNS)+8)
	n := copy(k, blockNS)
	binary.BigEndian.PutUint64(k[n:], uint64(blockID))
	return k
}

func planKey(id int64) []byte {
	k := make([]byte, len(planNS)+8)
	n := copy(k, planNS)
	binary.BigEndian.PutUint64(k[n:], uint64(id))
	return k
}

func (p *Pebble) QueueDependency(dep topend.Dependency) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deps = append(p.deps, dep)
}

func (p *Pebble) AddPlan(id int64, plan []byte) error {
	return p.db.Set(planKey(id), plan, pebble.Sync)
}

func (p *Pebble) CrashVoltDB(reason string) {
	panic("toptest: CrashVoltDB: " + reason)
}

func (p *Pebble) LoadNextDependency(depID int32) (topend.Dependency, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.depAt >= len(p.deps) {
		return topend.Dependency{}, nil
	}
	dep := p.deps[p.depAt]
	p.depAt++
	return dep, nil
}

func (p *Pebble) FragmentProgressUpdate(batchIdx int32, nodeType string, tuplesProcessed, currMemBytes, peakMemBytes int64) topend.ProgressStatus {
	return topend.ProgressStatus{NextCheckTuples: 1000}
}

func (p *Pebble) PlanForFragmentID(id int64) ([]byte, error) {
	val, closer, err := p.db.Get(planKey(id))
	if err == pebble.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (p *Pebble) PushExportBuffer(partitionID int32, tableName string, block []byte) error {
	p.mu.Lock()
	seq := p.exportSeq
	p.exportSeq++
	p.mu.Unlock()

	key := make([]byte, len(exportNS)+8)
	n := copy(key, exportNS)
	binary.BigEndian.PutUint64(key[n:], seq)
	return p.db.Set(key, block, pebble.Sync)
}

func (p *Pebble) PushDRBuffer(partitionID int32, block []byte) (int64, error) {
	p.mu.Lock()
	seq := p.drSeq
	p.drSeq++
	p.mu.Unlock()

	key := make([]byte, len(drNS)+8)
	n := copy(key, drNS)
	binary.BigEndian.PutUint64(key[n:], seq)
	if err := p.db.Set(key, block, pebble.Sync); err != nil {
		return 0, err
	}
	return p.drCap, nil
}

func (p *Pebble) StoreLargeTempTableBlock(blockID int64, data []byte) (bool, error) {
	key := blockKey(blockID)
	if _, closer, err := p.db.Get(key); err == nil {
		closer.Close()
		return false, fmt.Errorf("toptest: block %d already stored", blockID)
	} else if err != pebble.ErrNotFound {
		return false, err
	}
	if err := p.db.Set(key, data, pebble.Sync); err != nil {
		return false, err
	}
	return true, nil
}

func (p *Pebble) LoadLargeTempTableBlock(blockID int64) ([]byte, bool, error) {
	val, closer, err := p.db.Get(blockKey(blockID))
	if err == pebble.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	defer closer.Close()
	out := make([]byte, len(val))
	copy(out, val)
	return out, true, nil
}

func (p *Pebble) ReleaseLargeTempTableBlock(blockID int64) (bool, error) {
	key := blockKey(blockID)
	if _, closer, err := p.db.Get(key); err == pebble.ErrNotFound {
		return false, nil
	} else if err != nil {
		return false, err
	} else {
		closer.Close()
	}
	if err := p.db.Delete(key, pebble.Sync); err != nil {
		return false, err
	}
	return true, nil
}

// StoredBlockCount scans the ltt block namespace and counts entries still
// persisted. Intended for small test fixtures only.
func (p *Pebble) StoredBlockCount() (int, error) {
	upper := make([]byte, len(blockNS))
	copy(upper, blockNS)
	upper[len(upper)-1]++

	iter, err := p.db.NewIter(&pebble.IterOptions{LowerBound: blockNS, UpperBound: upper})
	if err != nil {
		return 0, err
	}
	defer iter.Close()

	count := 0
	for iter.First(); iter.Valid(); iter.Next() {
		count++
	}
	return count, iter.Error()
}
