package mocks

import (
	"context"
	"io"

	"github.com/bnema/reencoder/internal/domain"
	"github.com/bnema/reencoder/internal/port"
	"github.com/stretchr/testify/mock"
)

// FileInstallerMock is a testify mock of port.FileInstaller.
type FileInstallerMock struct {
	mock.Mock
}

type FileInstallerMock_Expecter struct {
	mock *mock.Mock
}

func (_m *FileInstallerMock) EXPECT() *FileInstallerMock_Expecter {
	return &FileInstallerMock_Expecter{mock: &_m.Mock}
}

func (_m *FileInstallerMock) Install(ctx context.Context, dst string, src io.Reader, opts port.InstallOptions) (*domain.InstallResult, error) {
	ret := _m.Called(ctx, dst, src, opts)

	if rf, ok := ret.Get(0).(func(context.Context, string, io.Reader, port.InstallOptions) (*domain.InstallResult, error)); ok {
		return rf(ctx, dst, src, opts)
	}

	var r0 *domain.InstallResult
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*domain.InstallResult)
	}
	return r0, ret.Error(1)
}

type FileInstallerMock_Install_Call struct {
	*mock.Call
}

func (_e *FileInstallerMock_Expecter) Install(ctx interface{}, dst interface{}, src interface{}, opts interface{}) *FileInstallerMock_Install_Call {
	return &FileInstallerMock_Install_Call{Call: _e.mock.On("Install", ctx, dst, src, opts)}
}

func (_c *FileInstallerMock_Install_Call) Run(run func(ctx context.Context, dst string, src io.Reader, opts port.InstallOptions)) *FileInstallerMock_Install_Call {
	_c.Call.Run(func(args mock.Arguments) {
		run(args[0].(context.Context), args[1].(string), args[2].(io.Reader), args[3].(port.InstallOptions))
	})
	return _c
}

func (_c *FileInstallerMock_Install_Call) Return(result *domain.InstallResult, err error) *FileInstallerMock_Install_Call {
	_c.Call.Return(result, err)
	return _c
}

func (_c *FileInstallerMock_Install_Call) RunAndReturn(run func(context.Context, string, io.Reader, port.InstallOptions) (*domain.InstallResult, error)) *FileInstallerMock_Install_Call {
	_c.Call.Return(run, nil)
	return _c
}

func NewFileInstallerMock(t interface {
	mock.TestingT
	Cleanup(func())
}) *FileInstallerMock {
	m := &FileInstallerMock{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
