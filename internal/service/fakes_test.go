package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bnema/reencoder/internal/domain"
	"github.com/stretchr/testify/require"
)

// contentClassifier reports the trimmed file content as the codec label.
// Files containing "corrupt" fail to probe. Paths under gate block until the
// probe context is cancelled.
type contentClassifier struct {
	gate    string
	started chan string

	mu    sync.Mutex
	calls []string
}

func (c *contentClassifier) Classify(ctx context.Context, path string) (*domain.ProbeResult, error) {
	c.mu.Lock()
	c.calls = append(c.calls, path)
	c.mu.Unlock()

	if c.started != nil {
		select {
		case c.started <- path:
		default:
		}
	}
	if c.gate != "" && strings.HasPrefix(path, c.gate) {
		<-ctx.Done()
		return nil, fmt.Errorf("%w: %w", domain.ErrProbe, ctx.Err())
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrProbe, err)
	}
	codec := strings.TrimSpace(string(b))
	if codec == "corrupt" {
		return nil, fmt.Errorf("%w: invalid data found when processing input", domain.ErrProbe)
	}
	return &domain.ProbeResult{
		Format:  domain.ProbeFormat{FormatName: "matroska,webm", Duration: "60.0"},
		Streams: []domain.ProbeStream{{Index: 0, CodecType: "video", CodecName: codec}},
	}, nil
}

func (c *contentClassifier) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

// writeLibrary creates files under a fresh root. Keys are slash separated.
func writeLibrary(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	resolved, err := filepath.EvalSymlinks(root)
	require.NoError(t, err)
	for rel, content := range files {
		p := filepath.Join(resolved, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return resolved
}

func waitForScan(t *testing.T, svc *DispatchService) domain.Status {
	t.Helper()
	require.Eventually(t, func() bool {
		return !svc.Status().Scanning
	}, 5*time.Second, 5*time.Millisecond)
	return svc.Status()
}

func drain(svc *DispatchService) []string {
	var out []string
	for {
		rel, ok := svc.ClaimNext()
		if !ok {
			return out
		}
		out = append(out, rel)
	}
}
