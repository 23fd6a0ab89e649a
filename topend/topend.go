// Package topend defines the synchronous callback surface the engine uses
// to reach its host (spec §6.1). Every method call is made from the single
// partition thread and runs to completion before returning; there is no
// async variant.
//
// Grounded on original_source/tests/ee/test_utils/LargeTempTableTopend.hpp
// and testing_topend.h, which enumerate exactly this call set against a
// fixture implementation used by the original's own unit tests.
package topend

import "github.com/VoltDB/voltdb-sub009/engineerr"

// Dependency identifies one table dependency a fragment requests from the
// host via loadNextDependency.
type Dependency struct {
	ID    int32
	Bytes []byte // serialized table, or nil if none remains
}

// ProgressStatus is the host's answer to fragmentProgressUpdate: either
// "continue, re-check after N more tuples" or an abort signal.
type ProgressStatus struct {
	NextCheckTuples int64
	Abort           bool
}

// Topend is every external callback the core reaches during execution.
// It composes engineerr.Crasher so engineerr.Crash can hand a Fatal
// straight to any Topend implementation.
type Topend interface {
	engineerr.Crasher

	// LoadNextDependency fetches and deserializes a dependency table.
	// Returns a zero-value Dependency (nil Bytes) when none remain.
	LoadNextDependency(depID int32) (Dependency, error)

	// FragmentProgressUpdate reports execution progress for a single
	// plan node and receives back the host's continue/abort decision.
	FragmentProgressUpdate(batchIdx int32, nodeType string, tuplesProcessed, currMemBytes, peakMemBytes int64) ProgressStatus

	// PlanForFragmentID fetches a fragment's plan bytes, or nil if unknown.
	PlanForFragmentID(id int64) ([]byte, error)

	// PushExportBuffer transfers ownership of a committed export block.
	// The engine must not reference block's bytes after this call returns.
	PushExportBuffer(partitionID int32, tableName string, block []byte) error

	// PushDRBuffer transfers ownership of a committed DR block. The
	// returned value caps the row budget for subsequent DR buffers.
	PushDRBuffer(partitionID int32, block []byte) (int64, error)

	// StoreLargeTempTableBlock persists an LttBlock's bytes under blockID.
	// On success the engine releases its in-memory copy.
	StoreLargeTempTableBlock(blockID int64, data []byte) (bool, error)

	// LoadLargeTempTableBlock reloads a previously stored block's bytes.
	LoadLargeTempTableBlock(blockID int64) ([]byte, bool, error)

	// ReleaseLargeTempTableBlock drops a persisted copy.
	ReleaseLargeTempTableBlock(blockID int64) (bool, error)
}
