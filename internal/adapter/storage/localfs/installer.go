package localfs

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/bnema/reencoder/internal/domain"
	"github.com/bnema/reencoder/internal/port"
	"golang.org/x/crypto/blake2b"
)

// Replaceable so tests can simulate EXDEV and permission failures.
var renameFunc = os.Rename

// Installer replaces library files with uploaded content. Content is staged
// in a scratch directory first; the destination only ever changes through a
// rename, so readers see either the old or the new bytes.
type Installer struct {
	stagingDir string
}

func NewInstaller(stagingDir string) *Installer {
	return &Installer{stagingDir: stagingDir}
}

func (i *Installer) Install(ctx context.Context, dst string, src io.Reader, opts port.InstallOptions) (*domain.InstallResult, error) {
	res, err := i.install(ctx, dst, src, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStorage, err)
	}
	return res, nil
}

func (i *Installer) install(ctx context.Context, dst string, src io.Reader, opts port.InstallOptions) (*domain.InstallResult, error) {
	dst = filepath.Clean(dst)
	perm := os.FileMode(0o644)
	if fi, err := os.Stat(dst); err == nil {
		if !fi.Mode().IsRegular() {
			return nil, fmt.Errorf("destination %q is not a regular file", dst)
		}
		perm = fi.Mode().Perm()
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	if err := os.MkdirAll(i.stagingDir, 0o755); err != nil {
		return nil, fmt.Errorf("create staging directory: %w", err)
	}

	tmp, err := os.CreateTemp(i.stagingDir, domain.StagingPrefix+"*.part")
	if err != nil {
		return nil, fmt.Errorf("create staging file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	h, _ := blake2b.New256(nil)
	size, err := io.Copy(io.MultiWriter(tmp, h), src)
	if err != nil {
		return nil, fmt.Errorf("stage upload: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return nil, fmt.Errorf("sync staging file: %w", err)
	}
	sum := hex.EncodeToString(h.Sum(nil))

	if want := strings.TrimSpace(opts.ExpectedChecksum); want != "" && !strings.EqualFold(want, sum) {
		return nil, fmt.Errorf("%w: got %s, want %s", domain.ErrChecksumMismatch, sum, want)
	}

	if opts.Verify != nil {
		if _, err := tmp.Seek(0, io.SeekStart); err != nil {
			return nil, fmt.Errorf("rewind staging file: %w", err)
		}
		if err := opts.Verify(tmp); err != nil {
			return nil, fmt.Errorf("verify upload: %w", err)
		}
	}

	if err := tmp.Chmod(perm); err != nil && runtime.GOOS != "windows" {
		return nil, fmt.Errorf("chmod staging file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("close staging file: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := commit(tmpName, dst, perm); err != nil {
		return nil, err
	}

	_ = syncDirBestEffort(filepath.Dir(dst))

	return &domain.InstallResult{Size: size, Checksum: sum}, nil
}

// commit moves the staged file over dst. Across filesystems the staged bytes
// are first copied next to dst so the final step is still a rename.
func commit(staged, dst string, perm os.FileMode) error {
	err := renameFunc(staged, dst)
	if err == nil {
		return nil
	}
	if !isEXDEV(err) {
		return fmt.Errorf("replace %q: %w", dst, err)
	}

	dir := filepath.Dir(dst)
	near, err := os.CreateTemp(dir, domain.StagingPrefix+filepath.Base(dst)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp beside destination: %w", err)
	}
	nearName := near.Name()
	defer func() {
		_ = near.Close()
		_ = os.Remove(nearName)
	}()

	in, err := os.Open(staged)
	if err != nil {
		return fmt.Errorf("reopen staging file: %w", err)
	}
	defer in.Close() //nolint:errcheck

	if _, err := io.Copy(near, in); err != nil {
		return fmt.Errorf("copy across devices: %w", err)
	}
	if err := near.Chmod(perm); err != nil && runtime.GOOS != "windows" {
		return err
	}
	if err := near.Sync(); err != nil {
		return err
	}
	if err := near.Close(); err != nil {
		return err
	}
	if err := renameFunc(nearName, dst); err != nil {
		return fmt.Errorf("replace %q: %w", dst, err)
	}
	return nil
}

func syncDirBestEffort(dir string) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close() //nolint:errcheck
	return f.Sync()
}

var _ port.FileInstaller = (*Installer)(nil)
