//go:build unix

package localfs

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"

	"github.com/bnema/reencoder/internal/port"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstall_CrossDeviceFallsBackToCopyAndRename(t *testing.T) {
	inst, staging, dst := setup(t, "original")

	old := renameFunc
	renameFunc = func(oldpath, newpath string) error {
		if filepath.Dir(oldpath) == staging {
			return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: syscall.EXDEV}
		}
		return old(oldpath, newpath)
	}
	defer func() { renameFunc = old }()

	_, err := inst.Install(context.Background(), dst, strings.NewReader("moved across devices"), port.InstallOptions{})
	require.NoError(t, err)

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "moved across devices", string(got))
	assertNoStagingLeft(t, staging, filepath.Dir(dst))
}

func TestIsEXDEV(t *testing.T) {
	assert.True(t, isEXDEV(syscall.EXDEV))
	assert.True(t, isEXDEV(&os.LinkError{Op: "rename", Old: "/a", New: "/b", Err: syscall.EXDEV}))
	assert.False(t, isEXDEV(os.ErrPermission))
}
