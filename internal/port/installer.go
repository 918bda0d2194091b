package port

import (
	"context"
	"io"

	"github.com/bnema/reencoder/internal/domain"
)

type InstallOptions struct {
	// ExpectedChecksum is a hex BLAKE2b-256 digest; empty skips the comparison.
	ExpectedChecksum string
	// Verify inspects the fully staged content before it replaces the destination.
	Verify func(staged io.ReadSeeker) error
}

type FileInstaller interface {
	Install(ctx context.Context, dst string, src io.Reader, opts InstallOptions) (*domain.InstallResult, error)
}
