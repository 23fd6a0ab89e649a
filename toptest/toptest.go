// Package toptest provides topend.Topend fixtures for tests: an in-memory
// map-backed fixture mirroring the original's own unit-test double, and a
// pebble-backed fixture for integration tests that need spilled blocks and
// exported buffers to actually survive a round trip through something that
// looks like durable storage.
//
// Grounded on original_source/tests/ee/test_utils/LargeTempTableTopend.hpp
// and testing_topend.h: both are map-backed doubles over the same call set
// topend.Topend exposes, with no behavior beyond store/load/release and a
// fragment-plan lookup table.
package toptest

import (
	"fmt"
	"sync"

	"github.com/VoltDB/voltdb-sub009/topend"
)

// Memory is an in-memory topend.Topend fixture. It mirrors
// LargeTempTableTopend's map of stored blocks plus EngineTestTopend's
// fragment-plan lookup table, combined into one fixture since test code
// using either concern rarely needs them kept separate.
type Memory struct {
	mu sync.Mutex

	plans map[int64][]byte
	deps  []topend.Dependency // served front-to-back, like a queue
	depAt int

	blocks map[int64][]byte

	exported []ExportedBuffer
	drBlocks []DRBuffer
	drCap    int64

	progress func(batchIdx int32, nodeType string, tuplesProcessed, currMemBytes, peakMemBytes int64) topend.ProgressStatus

	crashed string
}

// ExportedBuffer records one PushExportBuffer call.
type ExportedBuffer struct {
	PartitionID int32
	TableName   string
	Block       []byte
}

// DRBuffer records one PushDRBuffer call.
type DRBuffer struct {
	PartitionID int32
	Block       []byte
}

// NewMemory constructs an empty Memory fixture. drCap is the row budget
// returned from every PushDRBuffer call (spec §6.1); 0 means unbounded.
func NewMemory(drCap int64) *Memory {
	return &Memory{
		plans:  make(map[int64][]byte),
		blocks: make(map[int64][]byte),
		drCap:  drCap,
	}
}

// AddPlan registers fragment id's plan bytes, ported from EngineTestTopend's
// addPlan.
func (m *Memory) AddPlan(id int64, plan []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plans[id] = plan
}

// QueueDependency appends a dependency to one shared queue, served in order
// by successive LoadNextDependency calls whatever ID they ask for; once
// exhausted, a zero-value
// Dependency is returned, matching loadNextDependency's "none remain" case.
func (m *Memory) QueueDependency(dep topend.Dependency) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deps = append(m.deps, dep)
}

// SetProgressHandler overrides the default FragmentProgressUpdate response
// (continue, no abort) for tests that need to force an abort mid-fragment.
func (m *Memory) SetProgressHandler(f func(batchIdx int32, nodeType string, tuplesProcessed, currMemBytes, peakMemBytes int64) topend.ProgressStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.progress = f
}

func (m *Memory) CrashVoltDB(reason string) {
	m.mu.Lock()
	m.crashed = reason
	m.mu.Unlock()
	panic("toptest: CrashVoltDB: " + reason)
}

// Crashed reports the reason passed to the most recent CrashVoltDB call, or
// "" if none occurred. Useful in tests that recover the panic themselves.
func (m *Memory) Crashed() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.crashed
}

func (m *Memory) LoadNextDependency(depID int32) (topend.Dependency, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.depAt >= len(m.deps) {
		return topend.Dependency{}, nil
	}
	dep := m.deps[m.depAt]
	m.depAt++
	return dep, nil
}

func (m *Memory) FragmentProgressUpdate(batchIdx int32, nodeType string, tuplesProcessed, currMemBytes, peakMemBytes int64) topend.ProgressStatus {
	m.mu.Lock()
	handler := m.progress
	m.mu.Unlock()
	if handler != nil {
		return handler(batchIdx, nodeType, tuplesProcessed, currMemBytes, peakMemBytes)
	}
	return topend.ProgressStatus{NextCheckTuples: 1000}
}

func (m *Memory) PlanForFragmentID(id int64) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.plans[id], nil
}

func (m *Memory) PushExportBuffer(partitionID int32, tableName string, block []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exported = append(m.exported, ExportedBuffer{PartitionID: partitionID, TableName: tableName, Block: block})
	return nil
}

func (m *Memory) PushDRBuffer(partitionID int32, block []byte) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drBlocks = append(m.drBlocks, DRBuffer{PartitionID: partitionID, Block: block})
	return m.drCap, nil
}

// ExportedBuffers returns every buffer pushed so far, in push order.
func (m *Memory) ExportedBuffers() []ExportedBuffer {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ExportedBuffer, len(m.exported))
	copy(out, m.exported)
	return out
}

// DRBuffers returns every DR buffer pushed so far, in push order.
func (m *Memory) DRBuffers() []DRBuffer {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]DRBuffer, len(m.drBlocks))
	copy(out, m.drBlocks)
	return out
}

func (m *Memory) StoreLargeTempTableBlock(blockID int64, data []byte) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.blocks[blockID]; exists {
		return false, fmt.Errorf("toptest: block %d already stored", blockID)
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	m.blocks[blockID] = cp
	return true, nil
}

func (m *Memory) LoadLargeTempTableBlock(blockID int64) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.blocks[blockID]
	if !ok {
		return nil, false, nil
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, true, nil
}

func (m *Memory) ReleaseLargeTempTableBlock(blockID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.blocks[blockID]; !ok {
		return false, nil
	}
	delete(m.blocks, blockID)
	return true, nil
}

// StoredBlockCount mirrors LargeTempTableTopend::storedBlockCount, used by
// tests asserting every spilled block was eventually released.
func (m *Memory) StoredBlockCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.blocks)
}
