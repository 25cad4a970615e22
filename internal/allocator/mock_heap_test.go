package allocator

import (
	"reflect"

	"github.com/golang/mock/gomock"
)

// MockSystemHeap is a hand-written gomock double for SystemHeap, shaped
// exactly like mockgen's generated output, used to force out-of-memory
// paths that a real GoHeap never takes.
type MockSystemHeap struct {
	ctrl     *gomock.Controller
	recorder *MockSystemHeapMockRecorder
}

// MockSystemHeapMockRecorder is the recorder for MockSystemHeap.
type MockSystemHeapMockRecorder struct {
	mock *MockSystemHeap
}

// NewMockSystemHeap creates a new mock instance.
func NewMockSystemHeap(ctrl *gomock.Controller) *MockSystemHeap {
	mock := &MockSystemHeap{ctrl: ctrl}
	mock.recorder = &MockSystemHeapMockRecorder{mock}

	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockSystemHeap) EXPECT() *MockSystemHeapMockRecorder {
	return m.recorder
}

// AllocBytes mocks base method.
func (m *MockSystemHeap) AllocBytes(n uintptr) ([]byte, error) {
	m.ctrl.T.Helper()

	ret := m.ctrl.Call(m, "AllocBytes", n)
	ret0, _ := ret[0].([]byte)
	ret1, _ := ret[1].(error)

	return ret0, ret1
}

// AllocBytes indicates an expected call of AllocBytes.
func (mr *MockSystemHeapMockRecorder) AllocBytes(n interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()

	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "AllocBytes", reflect.TypeOf((*MockSystemHeap)(nil).AllocBytes), n)
}

// FreeBytes mocks base method.
func (m *MockSystemHeap) FreeBytes(b []byte) {
	m.ctrl.T.Helper()
	m.ctrl.Call(m, "FreeBytes", b)
}

// FreeBytes indicates an expected call of FreeBytes.
func (mr *MockSystemHeapMockRecorder) FreeBytes(b interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()

	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "FreeBytes", reflect.TypeOf((*MockSystemHeap)(nil).FreeBytes), b)
}
