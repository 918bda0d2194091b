package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bnema/reencoder/internal/domain"
	"github.com/bnema/reencoder/internal/infrastructure/logger"
	"github.com/bnema/reencoder/internal/port"
	"github.com/google/uuid"
)

const ledgerTimeout = 5 * time.Second

// DispatchService owns the work queue. Every piece of scan state lives behind
// mu, and mu is never held across probing, file I/O, ledger writes or event
// publishing.
type DispatchService struct {
	scanner   *Scanner
	installer port.FileInstaller
	ledger    port.Ledger
	events    EventPublisher
	strict    bool

	now   func() time.Time
	newID func() string

	mu         sync.Mutex
	epoch      uint64
	scanID     string
	root       string
	inventory  []domain.FileRecord
	queue      []*domain.Job
	claimed    map[string]*domain.Job
	counters   domain.ScanCounters
	installed  int
	scanning   bool
	cancelScan context.CancelFunc
	startedAt  time.Time
	finishedAt time.Time
	scanErr    string
	seq        int64
}

// NewDispatchService wires the dispatch state machine. ledger and events may
// be nil. With strict set, uploads for paths that were never handed out are
// rejected.
func NewDispatchService(
	scanner *Scanner,
	installer port.FileInstaller,
	ledger port.Ledger,
	events EventPublisher,
	strict bool,
) *DispatchService {
	return &DispatchService{
		scanner:   scanner,
		installer: installer,
		ledger:    ledger,
		events:    events,
		strict:    strict,
		now:       time.Now,
		newID:     uuid.NewString,
		claimed:   make(map[string]*domain.Job),
	}
}

// TriggerScan replaces all queue state with a fresh scan of root. The scan
// itself runs in the background; anything left from an earlier scan is
// abandoned.
func (s *DispatchService) TriggerScan(ctx context.Context, root string) (*domain.ScanRecord, error) {
	abs, err := resolveRoot(root)
	if err != nil {
		return nil, err
	}

	scanCtx, cancel := context.WithCancel(context.Background())
	now := s.now()

	s.mu.Lock()
	var superseded *domain.ScanRecord
	if s.scanning {
		rec := s.scanRecordLocked()
		rec.FinishedAt = &now
		rec.Superseded = true
		rec.ErrorMessage = "superseded by a newer scan"
		superseded = &rec
	}
	if s.cancelScan != nil {
		s.cancelScan()
	}
	s.abandonLocked()

	s.epoch++
	epoch := s.epoch
	s.scanID = s.newID()
	s.root = abs
	s.inventory = nil
	s.queue = nil
	s.claimed = make(map[string]*domain.Job)
	s.counters = domain.ScanCounters{}
	s.installed = 0
	s.scanning = true
	s.cancelScan = cancel
	s.startedAt = now
	s.finishedAt = time.Time{}
	s.scanErr = ""
	s.seq = 0
	record := s.scanRecordLocked()
	status := s.statusLocked()
	s.mu.Unlock()

	if superseded != nil {
		logger.Info.Printf("scan %s superseded by %s", superseded.ID, record.ID)
	}
	logger.Info.Printf("scan %s started: epoch=%d root=%s", record.ID, epoch, logger.SanitizePath(abs))

	if s.ledger != nil {
		lctx, lcancel := context.WithTimeout(context.WithoutCancel(ctx), ledgerTimeout)
		if superseded != nil {
			if err := s.ledger.RecordScanFinished(lctx, superseded); err != nil {
				logger.Error.Printf("ledger: record superseded scan %s: %v", superseded.ID, err)
			}
		}
		if err := s.ledger.RecordScanStarted(lctx, &record); err != nil {
			logger.Error.Printf("ledger: record scan %s: %v", record.ID, err)
		}
		lcancel()
	}
	s.publish(EventScanStarted, status)

	go s.scanner.Run(scanCtx, abs, &epochSink{svc: s, epoch: epoch})

	return &record, nil
}

// ClaimNext hands out the oldest pending job. ok is false when the queue is
// empty.
func (s *DispatchService) ClaimNext() (relPath string, ok bool) {
	s.mu.Lock()
	if len(s.queue) == 0 {
		s.mu.Unlock()
		return "", false
	}
	job := s.queue[0]
	s.queue[0] = nil
	s.queue = s.queue[1:]
	job.Claim(s.now())
	s.claimed[job.RelPath] = job
	status := s.statusLocked()
	s.mu.Unlock()

	logger.Info.Printf("claimed %s (seq=%d epoch=%d)", logger.SanitizePath(job.RelPath), job.Seq, job.Epoch)
	s.publish(EventClaimed, status)
	return job.RelPath, true
}

// SubmitResult atomically replaces the file at relPath with body. On failure
// the original file is untouched and any claim stays outstanding.
func (s *DispatchService) SubmitResult(ctx context.Context, relPath string, body io.Reader, opts port.InstallOptions) (*domain.InstallRecord, error) {
	local, err := domain.CleanRelPath(relPath)
	if err != nil {
		return nil, err
	}
	key := filepath.ToSlash(local)

	s.mu.Lock()
	root, epoch, scanID := s.root, s.epoch, s.scanID
	if root == "" {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: no scan has been started", domain.ErrInvalidRoot)
	}
	_, claimed := s.claimed[key]
	dropped := 0
	if !claimed {
		if s.strict {
			s.mu.Unlock()
			return nil, fmt.Errorf("%w: %s", domain.ErrNotClaimed, key)
		}
		dropped = s.dropPendingLocked(key)
	}
	s.mu.Unlock()

	if !claimed {
		logger.Warn.Printf("accepting upload for unclaimed path %s (dropped %d pending)", logger.SanitizePath(key), dropped)
	}

	dst := filepath.Join(root, local)
	res, err := s.installer.Install(ctx, dst, body, opts)
	if err != nil {
		if !errors.Is(err, domain.ErrStorage) {
			err = fmt.Errorf("%w: %w", domain.ErrStorage, err)
		}
		logger.Error.Printf("install %s failed: %v", logger.SanitizePath(key), err)
		return nil, err
	}

	now := s.now()
	s.mu.Lock()
	if s.epoch == epoch {
		if job, ok := s.claimed[key]; ok {
			job.Status = domain.JobStatusInstalled
			delete(s.claimed, key)
		}
		s.installed++
	}
	status := s.statusLocked()
	s.mu.Unlock()

	rec := &domain.InstallRecord{
		ScanID:      scanID,
		RelPath:     key,
		Size:        res.Size,
		Checksum:    res.Checksum,
		Claimed:     claimed,
		InstalledAt: now,
	}
	logger.Info.Printf("installed %s (%s, blake2b=%s)", logger.SanitizePath(key), domain.FormatSize(res.Size), res.Checksum)

	if s.ledger != nil {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ledgerTimeout)
		if err := s.ledger.RecordInstall(lctx, rec); err != nil {
			logger.Error.Printf("ledger: record install %s: %v", logger.SanitizePath(key), err)
		}
		cancel()
	}
	s.publish(EventInstalled, status)

	return rec, nil
}

func (s *DispatchService) Status() domain.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusLocked()
}

// ResolveFile maps relPath to an existing regular file under the current root.
func (s *DispatchService) ResolveFile(relPath string) (string, error) {
	local, err := domain.CleanRelPath(relPath)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrNotFound, err)
	}

	s.mu.Lock()
	root := s.root
	s.mu.Unlock()
	if root == "" {
		return "", domain.ErrNotFound
	}

	abs := filepath.Join(root, local)
	info, err := os.Stat(abs)
	if err != nil || !info.Mode().IsRegular() {
		return "", fmt.Errorf("%w: %s", domain.ErrNotFound, filepath.ToSlash(local))
	}
	return abs, nil
}

// History returns recent ledger entries, newest first. Without a ledger both
// lists are empty.
func (s *DispatchService) History(ctx context.Context, limit int) (*domain.History, error) {
	h := &domain.History{
		Scans:    []domain.ScanRecord{},
		Installs: []domain.InstallRecord{},
	}
	if s.ledger == nil {
		return h, nil
	}

	scans, err := s.ledger.ListScans(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list scans: %w", err)
	}
	installs, err := s.ledger.ListInstalls(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list installs: %w", err)
	}
	if scans != nil {
		h.Scans = scans
	}
	if installs != nil {
		h.Installs = installs
	}
	return h, nil
}

// Close stops any running scan.
func (s *DispatchService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelScan != nil {
		s.cancelScan()
	}
}

func (s *DispatchService) applyInventory(epoch uint64, files []domain.FileRecord) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch {
		return false
	}
	s.inventory = files
	s.counters.Total = len(files)
	var total int64
	for _, f := range files {
		total += f.Size
	}
	s.counters.TotalBytes = total
	return true
}

func (s *DispatchService) applyExamined(epoch uint64, outcome ProbeOutcome) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch {
		return false
	}
	s.counters.Examined++
	if outcome.Err != nil {
		s.counters.ProbeFailures++
		return true
	}
	if outcome.Job == nil {
		return true
	}

	job := outcome.Job
	job.Epoch = epoch
	job.Seq = s.seq
	s.seq++
	s.queue = append(s.queue, job)
	s.counters.JobsFound++
	s.counters.TotalDuration += job.Duration
	return true
}

func (s *DispatchService) finishScan(epoch uint64, scanErr error) {
	s.mu.Lock()
	if epoch != s.epoch || !s.scanning {
		s.mu.Unlock()
		return
	}
	s.scanning = false
	s.finishedAt = s.now()
	if scanErr != nil {
		s.scanErr = scanErr.Error()
	}
	if s.cancelScan != nil {
		s.cancelScan()
		s.cancelScan = nil
	}
	record := s.scanRecordLocked()
	status := s.statusLocked()
	counters := s.counters
	s.mu.Unlock()

	if scanErr != nil {
		logger.Error.Printf("scan %s ended early: %v", record.ID, scanErr)
	}
	logger.Info.Printf("scan %s: found %d files, %d of which were in the wrong codec", record.ID, counters.Total, counters.JobsFound)
	logger.Info.Printf("scan %s: total size %s, %d probe failures, queued duration %s",
		record.ID, domain.FormatSize(counters.TotalBytes), counters.ProbeFailures, domain.FormatDuration(counters.TotalDuration))

	if s.ledger != nil {
		ctx, cancel := context.WithTimeout(context.Background(), ledgerTimeout)
		if err := s.ledger.RecordScanFinished(ctx, &record); err != nil {
			logger.Error.Printf("ledger: finish scan %s: %v", record.ID, err)
		}
		cancel()
	}
	s.publish(EventScanFinished, status)
}

func (s *DispatchService) statusLocked() domain.Status {
	st := domain.Status{
		Epoch:         s.epoch,
		ScanID:        s.scanID,
		Root:          s.root,
		Scanning:      s.scanning,
		TotalFiles:    s.counters.Total,
		ScannedFiles:  s.counters.Examined,
		QueuedJobs:    len(s.queue),
		InFlight:      len(s.claimed),
		Installed:     s.installed,
		JobsFound:     s.counters.JobsFound,
		ProbeFailures: s.counters.ProbeFailures,
		TotalBytes:    s.counters.TotalBytes,
		TotalDuration: s.counters.TotalDuration,
	}
	if !s.startedAt.IsZero() {
		t := s.startedAt
		st.StartedAt = &t
	}
	if !s.finishedAt.IsZero() {
		t := s.finishedAt
		st.FinishedAt = &t
	}
	return st
}

func (s *DispatchService) scanRecordLocked() domain.ScanRecord {
	rec := domain.ScanRecord{
		ID:            s.scanID,
		Epoch:         s.epoch,
		Root:          s.root,
		StartedAt:     s.startedAt,
		TotalFiles:    s.counters.Total,
		ScannedFiles:  s.counters.Examined,
		JobsFound:     s.counters.JobsFound,
		ProbeFailures: s.counters.ProbeFailures,
		TotalBytes:    s.counters.TotalBytes,
		ErrorMessage:  s.scanErr,
	}
	if !s.finishedAt.IsZero() {
		t := s.finishedAt
		rec.FinishedAt = &t
	}
	return rec
}

func (s *DispatchService) abandonLocked() {
	for _, job := range s.queue {
		job.Status = domain.JobStatusAbandoned
	}
	for _, job := range s.claimed {
		job.Status = domain.JobStatusAbandoned
	}
}

func (s *DispatchService) dropPendingLocked(key string) int {
	kept := s.queue[:0]
	dropped := 0
	for _, job := range s.queue {
		if job.RelPath == key {
			job.Status = domain.JobStatusAbandoned
			dropped++
			continue
		}
		kept = append(kept, job)
	}
	for i := len(kept); i < len(s.queue); i++ {
		s.queue[i] = nil
	}
	s.queue = kept
	return dropped
}

func (s *DispatchService) publish(eventType string, status domain.Status) {
	if s.events == nil {
		return
	}
	s.events.Publish(Event{Type: eventType, Status: status})
}

// resolveRoot returns root as an absolute, symlink free directory path.
func resolveRoot(root string) (string, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return "", fmt.Errorf("%w: empty path", domain.ErrInvalidRoot)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrInvalidRoot, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("%w: %s", domain.ErrInvalidRoot, abs)
	}
	info, err := os.Stat(resolved)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: %s", domain.ErrInvalidRoot, abs)
	}
	return resolved, nil
}

// epochSink ties scanner callbacks to the scan that started them.
type epochSink struct {
	svc   *DispatchService
	epoch uint64
}

func (e *epochSink) Inventory(files []domain.FileRecord) bool {
	return e.svc.applyInventory(e.epoch, files)
}

func (e *epochSink) Examined(outcome ProbeOutcome) bool {
	return e.svc.applyExamined(e.epoch, outcome)
}

func (e *epochSink) Finished(err error) {
	e.svc.finishScan(e.epoch, err)
}
