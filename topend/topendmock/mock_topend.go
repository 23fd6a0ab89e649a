// Package topendmock holds a hand-authored stand-in for the output
// mockgen would produce for topend.Topend. The toolchain is never run in
// this repository, so the generated-looking shape (Controller + recorder,
// one method pair per interface method) is written out by hand instead of
// produced by `go generate`.
//
// Source: github.com/VoltDB/voltdb-sub009/topend (interfaces: Topend)
package topendmock

import (
	reflect "reflect"

	gomock "go.uber.org/mock/gomock"

	topend "github.com/VoltDB/voltdb-sub009/topend"
)

// MockTopend is a mock of the Topend interface.
type MockTopend struct {
	ctrl     *gomock.Controller
	recorder *MockTopendMockRecorder
}

// MockTopendMockRecorder is the mock recorder for MockTopend.
type MockTopendMockRecorder struct {
	mock *MockTopend
}

// NewMockTopend creates a new mock instance.
func NewMockTopend(ctrl *gomock.Controller) *MockTopend {
	mock := &MockTopend{ctrl: ctrl}
	mock.recorder = &MockTopendMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockTopend) EXPECT() *MockTopendMockRecorder {
	return m.recorder
}

// CrashVoltDB mocks base method.
func (m *MockTopend) CrashVoltDB(reason string) {
	m.ctrl.T.Helper()
	m.ctrl.Call(m, "CrashVoltDB", reason)
}

// CrashVoltDB indicates an expected call of CrashVoltDB.
func (mr *MockTopendMockRecorder) CrashVoltDB(reason interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "CrashVoltDB", reflect.TypeOf((*MockTopend)(nil).CrashVoltDB), reason)
}

// LoadNextDependency mocks base method.
func (m *MockTopend) LoadNextDependency(depID int32) (topend.Dependency, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "LoadNextDependency", depID)
	ret0, _ := ret[0].(topend.Dependency)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// LoadNextDependency indicates an expected call of LoadNextDependency.
func (mr *MockTopendMockRecorder) LoadNextDependency(depID interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "LoadNextDependency", reflect.TypeOf((*MockTopend)(nil).LoadNextDependency), depID)
}

// FragmentProgressUpdate mocks base method.
func (m *MockTopend) FragmentProgressUpdate(batchIdx int32, nodeType string, tuplesProcessed, currMemBytes, peakMemBytes int64) topend.ProgressStatus {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "FragmentProgressUpdate", batchIdx, nodeType, tuplesProcessed, currMemBytes, peakMemBytes)
	ret0, _ := ret[0].(topend.ProgressStatus)
	return ret0
}

// FragmentProgressUpdate indicates an expected call of FragmentProgressUpdate.
func (mr *MockTopendMockRecorder) FragmentProgressUpdate(batchIdx, nodeType, tuplesProcessed, currMemBytes, peakMemBytes interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "FragmentProgressUpdate", reflect.TypeOf((*MockTopend)(nil).FragmentProgressUpdate), batchIdx, nodeType, tuplesProcessed, currMemBytes, peakMemBytes)
}

// PlanForFragmentID mocks base method.
func (m *MockTopend) PlanForFragmentID(id int64) ([]byte, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "PlanForFragmentID", id)
	ret0, _ := ret[0].([]byte)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// PlanForFragmentID indicates an expected call of PlanForFragmentID.
func (mr *MockTopendMockRecorder) PlanForFragmentID(id interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "PlanForFragmentID", reflect.TypeOf((*MockTopend)(nil).PlanForFragmentID), id)
}

// PushExportBuffer mocks base method.
func (m *MockTopend) PushExportBuffer(partitionID int32, tableName string, block []byte) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "PushExportBuffer", partitionID, tableName, block)
	ret0, _ := ret[0].(error)
	return ret0
}

// PushExportBuffer indicates an expected call of PushExportBuffer.
func (mr *MockTopendMockRecorder) PushExportBuffer(partitionID, tableName, block interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "PushExportBuffer", reflect.TypeOf((*MockTopend)(nil).PushExportBuffer), partitionID, tableName, block)
}

// PushDRBuffer mocks base method.
func (m *MockTopend) PushDRBuffer(partitionID int32, block []byte) (int64, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "PushDRBuffer", partitionID, block)
	ret0, _ := ret[0].(int64)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// PushDRBuffer indicates an expected call of PushDRBuffer.
func (mr *MockTopendMockRecorder) PushDRBuffer(partitionID, block interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "PushDRBuffer", reflect.TypeOf((*MockTopend)(nil).PushDRBuffer), partitionID, block)
}

// StoreLargeTempTableBlock mocks base method.
func (m *MockTopend) StoreLargeTempTableBlock(blockID int64, data []byte) (bool, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "StoreLargeTempTableBlock", blockID, data)
	ret0, _ := ret[0].(bool)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// StoreLargeTempTableBlock indicates an expected call of StoreLargeTempTableBlock.
func (mr *MockTopendMockRecorder) StoreLargeTempTableBlock(blockID, data interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "StoreLargeTempTableBlock", reflect.TypeOf((*MockTopend)(nil).StoreLargeTempTableBlock), blockID, data)
}

// LoadLargeTempTableBlock mocks base method.
func (m *MockTopend) LoadLargeTempTableBlock(blockID int64) ([]byte, bool, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "LoadLargeTempTableBlock", blockID)
	ret0, _ := ret[0].([]byte)
	ret1, _ := ret[1].(bool)
	ret2, _ := ret[2].(error)
	return ret0, ret1, ret2
}

// LoadLargeTempTableBlock indicates an expected call of LoadLargeTempTableBlock.
func (mr *MockTopendMockRecorder) LoadLargeTempTableBlock(blockID interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "LoadLargeTempTableBlock", reflect.TypeOf((*MockTopend)(nil).LoadLargeTempTableBlock), blockID)
}

// ReleaseLargeTempTableBlock mocks base method.
func (m *MockTopend) ReleaseLargeTempTableBlock(blockID int64) (bool, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "ReleaseLargeTempTableBlock", blockID)
	ret0, _ := ret[0].(bool)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// ReleaseLargeTempTableBlock indicates an expected call of ReleaseLargeTempTableBlock.
func (mr *MockTopendMockRecorder) ReleaseLargeTempTableBlock(blockID interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "ReleaseLargeTempTableBlock", reflect.TypeOf((*MockTopend)(nil).ReleaseLargeTempTableBlock), blockID)
}

var _ topend.Topend = (*MockTopend)(nil)
