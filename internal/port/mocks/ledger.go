package mocks

import (
	"context"

	"github.com/bnema/reencoder/internal/domain"
	"github.com/stretchr/testify/mock"
)

// LedgerMock is a testify mock of port.Ledger.
type LedgerMock struct {
	mock.Mock
}

type LedgerMock_Expecter struct {
	mock *mock.Mock
}

func (_m *LedgerMock) EXPECT() *LedgerMock_Expecter {
	return &LedgerMock_Expecter{mock: &_m.Mock}
}

func (_m *LedgerMock) RecordScanStarted(ctx context.Context, scan *domain.ScanRecord) error {
	return _m.Called(ctx, scan).Error(0)
}

func (_m *LedgerMock) RecordScanFinished(ctx context.Context, scan *domain.ScanRecord) error {
	return _m.Called(ctx, scan).Error(0)
}

func (_m *LedgerMock) RecordInstall(ctx context.Context, install *domain.InstallRecord) error {
	return _m.Called(ctx, install).Error(0)
}

func (_m *LedgerMock) ListScans(ctx context.Context, limit int) ([]domain.ScanRecord, error) {
	ret := _m.Called(ctx, limit)

	var r0 []domain.ScanRecord
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]domain.ScanRecord)
	}
	return r0, ret.Error(1)
}

func (_m *LedgerMock) ListInstalls(ctx context.Context, limit int) ([]domain.InstallRecord, error) {
	ret := _m.Called(ctx, limit)

	var r0 []domain.InstallRecord
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]domain.InstallRecord)
	}
	return r0, ret.Error(1)
}

type LedgerMock_Call struct {
	*mock.Call
}

func (_c *LedgerMock_Call) Return(values ...interface{}) *LedgerMock_Call {
	_c.Call.Return(values...)
	return _c
}

func (_e *LedgerMock_Expecter) RecordScanStarted(ctx interface{}, scan interface{}) *LedgerMock_Call {
	return &LedgerMock_Call{Call: _e.mock.On("RecordScanStarted", ctx, scan)}
}

func (_e *LedgerMock_Expecter) RecordScanFinished(ctx interface{}, scan interface{}) *LedgerMock_Call {
	return &LedgerMock_Call{Call: _e.mock.On("RecordScanFinished", ctx, scan)}
}

func (_e *LedgerMock_Expecter) RecordInstall(ctx interface{}, install interface{}) *LedgerMock_Call {
	return &LedgerMock_Call{Call: _e.mock.On("RecordInstall", ctx, install)}
}

func (_e *LedgerMock_Expecter) ListScans(ctx interface{}, limit interface{}) *LedgerMock_Call {
	return &LedgerMock_Call{Call: _e.mock.On("ListScans", ctx, limit)}
}

func (_e *LedgerMock_Expecter) ListInstalls(ctx interface{}, limit interface{}) *LedgerMock_Call {
	return &LedgerMock_Call{Call: _e.mock.On("ListInstalls", ctx, limit)}
}

func NewLedgerMock(t interface {
	mock.TestingT
	Cleanup(func())
}) *LedgerMock {
	m := &LedgerMock{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
