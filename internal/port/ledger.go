package port

import (
	"context"

	"github.com/bnema/reencoder/internal/domain"
)

type Ledger interface {
	RecordScanStarted(ctx context.Context, scan *domain.ScanRecord) error
	RecordScanFinished(ctx context.Context, scan *domain.ScanRecord) error
	RecordInstall(ctx context.Context, install *domain.InstallRecord) error
	ListScans(ctx context.Context, limit int) ([]domain.ScanRecord, error)
	ListInstalls(ctx context.Context, limit int) ([]domain.InstallRecord, error)
}
