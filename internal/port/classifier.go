package port

import (
	"context"

	"github.com/bnema/reencoder/internal/domain"
)

type CodecClassifier interface {
	Classify(ctx context.Context, path string) (*domain.ProbeResult, error)
}
