package mocks

import (
	"context"

	"github.com/bnema/reencoder/internal/domain"
	"github.com/stretchr/testify/mock"
)

// CodecClassifierMock is a testify mock of port.CodecClassifier.
type CodecClassifierMock struct {
	mock.Mock
}

type CodecClassifierMock_Expecter struct {
	mock *mock.Mock
}

func (_m *CodecClassifierMock) EXPECT() *CodecClassifierMock_Expecter {
	return &CodecClassifierMock_Expecter{mock: &_m.Mock}
}

func (_m *CodecClassifierMock) Classify(ctx context.Context, path string) (*domain.ProbeResult, error) {
	ret := _m.Called(ctx, path)

	if rf, ok := ret.Get(0).(func(context.Context, string) (*domain.ProbeResult, error)); ok {
		return rf(ctx, path)
	}

	var r0 *domain.ProbeResult
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*domain.ProbeResult)
	}
	return r0, ret.Error(1)
}

type CodecClassifierMock_Classify_Call struct {
	*mock.Call
}

func (_e *CodecClassifierMock_Expecter) Classify(ctx interface{}, path interface{}) *CodecClassifierMock_Classify_Call {
	return &CodecClassifierMock_Classify_Call{Call: _e.mock.On("Classify", ctx, path)}
}

func (_c *CodecClassifierMock_Classify_Call) Run(run func(ctx context.Context, path string)) *CodecClassifierMock_Classify_Call {
	_c.Call.Run(func(args mock.Arguments) {
		run(args[0].(context.Context), args[1].(string))
	})
	return _c
}

func (_c *CodecClassifierMock_Classify_Call) Return(result *domain.ProbeResult, err error) *CodecClassifierMock_Classify_Call {
	_c.Call.Return(result, err)
	return _c
}

func (_c *CodecClassifierMock_Classify_Call) RunAndReturn(run func(context.Context, string) (*domain.ProbeResult, error)) *CodecClassifierMock_Classify_Call {
	_c.Call.Return(run, nil)
	return _c
}

func NewCodecClassifierMock(t interface {
	mock.TestingT
	Cleanup(func())
}) *CodecClassifierMock {
	m := &CodecClassifierMock{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
