package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bnema/reencoder/internal/domain"
	"github.com/bnema/reencoder/internal/infrastructure/logger"
	"github.com/bnema/reencoder/internal/port"
)

// ProbeOutcome is the result of examining one inventory file. Job is set only
// when the file is in the source codec; Err is set when the probe failed.
type ProbeOutcome struct {
	File  domain.FileRecord
	Job   *domain.Job
	Codec string
	Err   error
}

// ScanSink receives scan progress. Inventory and Examined return false once
// the scan has been superseded, which stops the scanner.
type ScanSink interface {
	Inventory(files []domain.FileRecord) bool
	Examined(outcome ProbeOutcome) bool
	Finished(err error)
}

type Scanner struct {
	classifier  port.CodecClassifier
	sourceCodec string
}

func NewScanner(classifier port.CodecClassifier, sourceCodec string) *Scanner {
	return &Scanner{
		classifier:  classifier,
		sourceCodec: strings.ToLower(strings.TrimSpace(sourceCodec)),
	}
}

// Walk lists every regular file under root in lexical order. Symlinks are
// kept when they point at a regular file; symlinked directories are not
// followed.
func (s *Scanner) Walk(ctx context.Context, root string) ([]domain.FileRecord, error) {
	var files []domain.FileRecord

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if path == root {
				return err
			}
			logger.Warn.Printf("skipping unreadable entry %s: %v", logger.SanitizePath(path), err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if strings.HasPrefix(d.Name(), domain.StagingPrefix) {
			return nil
		}

		var info fs.FileInfo
		switch {
		case d.Type().IsRegular():
			info, err = d.Info()
		case d.Type()&fs.ModeSymlink != 0:
			info, err = os.Stat(path)
		default:
			return nil
		}
		if err != nil {
			logger.Warn.Printf("skipping %s: %v", logger.SanitizePath(path), err)
			return nil
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		files = append(files, domain.FileRecord{AbsPath: path, Size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	return files, nil
}

// Run walks root, hands the inventory to sink, then classifies each file in
// inventory order. Finished is called exactly once unless the sink reported
// the scan as stale.
func (s *Scanner) Run(ctx context.Context, root string, sink ScanSink) {
	files, err := s.Walk(ctx, root)
	if err != nil {
		sink.Finished(err)
		return
	}
	if !sink.Inventory(files) {
		return
	}

	for _, f := range files {
		outcome := s.examine(ctx, root, f)
		if ctxErr := ctx.Err(); ctxErr != nil {
			sink.Finished(ctxErr)
			return
		}
		if !sink.Examined(outcome) {
			return
		}
	}
	sink.Finished(nil)
}

func (s *Scanner) examine(ctx context.Context, root string, f domain.FileRecord) ProbeOutcome {
	outcome := ProbeOutcome{File: f}

	res, err := s.classifier.Classify(ctx, f.AbsPath)
	if err != nil {
		if !errors.Is(err, domain.ErrProbe) {
			err = fmt.Errorf("%w: %w", domain.ErrProbe, err)
		}
		if ctx.Err() == nil {
			logger.Warn.Printf("probe failed for %s: %v", logger.SanitizePath(f.AbsPath), err)
		}
		outcome.Err = err
		return outcome
	}

	outcome.Codec = res.Codec()
	if !strings.EqualFold(outcome.Codec, s.sourceCodec) {
		return outcome
	}

	rel, err := domain.RelativeTo(root, f.AbsPath)
	if err != nil {
		outcome.Err = err
		return outcome
	}
	size := res.Size()
	if size == 0 {
		size = f.Size
	}
	outcome.Job = &domain.Job{
		RelPath:  rel,
		AbsPath:  f.AbsPath,
		Codec:    outcome.Codec,
		Size:     size,
		Duration: res.Duration(),
		Status:   domain.JobStatusPending,
	}
	return outcome
}

// Scan runs a complete scan synchronously and returns the inventory and the
// jobs in discovery order.
func (s *Scanner) Scan(ctx context.Context, root string) ([]domain.FileRecord, []domain.Job, error) {
	sink := &collectSink{}
	s.Run(ctx, root, sink)
	if sink.err != nil {
		return nil, nil, sink.err
	}
	return sink.files, sink.jobs, nil
}

type collectSink struct {
	files []domain.FileRecord
	jobs  []domain.Job
	err   error
}

func (c *collectSink) Inventory(files []domain.FileRecord) bool {
	c.files = files
	return true
}

func (c *collectSink) Examined(outcome ProbeOutcome) bool {
	if outcome.Job != nil {
		job := *outcome.Job
		job.Seq = int64(len(c.jobs))
		c.jobs = append(c.jobs, job)
	}
	return true
}

func (c *collectSink) Finished(err error) {
	c.err = err
}
