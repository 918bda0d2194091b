package ffprobe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/bnema/reencoder/internal/domain"
	"github.com/bnema/reencoder/internal/port"
)

var (
	ErrEmptyPath   = errors.New("empty path")
	ErrInvalidPath = errors.New("path contains NUL byte")
)

// stderrLimit caps how much ffprobe stderr is copied into an error.
const stderrLimit = 512

type Classifier struct {
	binary  string
	timeout time.Duration
}

// NewClassifier returns a classifier running binary (usually "ffprobe"). A
// zero timeout leaves each probe bounded only by the caller's context.
func NewClassifier(binary string, timeout time.Duration) *Classifier {
	if binary == "" {
		binary = "ffprobe"
	}
	return &Classifier{binary: binary, timeout: timeout}
}

func validatePath(path string) error {
	if path == "" {
		return ErrEmptyPath
	}
	if strings.ContainsRune(path, 0) {
		return ErrInvalidPath
	}
	return nil
}

func (c *Classifier) Classify(ctx context.Context, path string) (*domain.ProbeResult, error) {
	if err := validatePath(path); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrProbe, err)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	args := []string{
		"-v", "error",
		"-print_format", "json",
		"-show_entries", "stream=index,codec_name,codec_type:format=format_name,duration,size",
		path,
	}
	cmd := exec.CommandContext(ctx, c.binary, args...)
	cmd.WaitDelay = time.Second

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	output, err := cmd.Output()
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: ffprobe timed out after %s", domain.ErrProbe, c.timeout)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrProbe, ctxErr)
		}
		return nil, fmt.Errorf("%w: ffprobe failed: %w%s", domain.ErrProbe, err, stderrSuffix(stderr.String()))
	}

	return ParseJSON(output)
}

// ParseJSON converts ffprobe JSON output into a ProbeResult. A result without
// a codec label is an error.
func ParseJSON(data []byte) (*domain.ProbeResult, error) {
	var probe domain.ProbeResult
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("%w: parse ffprobe output: %w", domain.ErrProbe, err)
	}
	if len(probe.Streams) == 0 {
		return nil, fmt.Errorf("%w: no streams reported", domain.ErrProbe)
	}
	if probe.Codec() == "" {
		return nil, fmt.Errorf("%w: first stream has no codec name", domain.ErrProbe)
	}
	return &probe, nil
}

func stderrSuffix(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if len(s) > stderrLimit {
		s = s[:stderrLimit] + "..."
	}
	return ": " + s
}

var _ port.CodecClassifier = (*Classifier)(nil)
