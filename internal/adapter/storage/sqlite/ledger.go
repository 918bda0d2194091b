package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bnema/reencoder/internal/domain"
	"github.com/bnema/reencoder/internal/port"
)

const defaultListLimit = 50

func (s *Store) RecordScanStarted(ctx context.Context, scan *domain.ScanRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO scans (id, epoch, root, started_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`,
		scan.ID, int64(scan.Epoch), scan.Root, toMillis(scan.StartedAt),
	)
	if err != nil {
		return fmt.Errorf("insert scan %s: %w", scan.ID, err)
	}
	return nil
}

// RecordScanFinished upserts, so it is safe to call before RecordScanStarted
// has landed for the same scan.
func (s *Store) RecordScanFinished(ctx context.Context, scan *domain.ScanRecord) error {
	var finished sql.NullInt64
	if scan.FinishedAt != nil {
		finished = sql.NullInt64{Int64: toMillis(*scan.FinishedAt), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO scans (id, epoch, root, started_at, finished_at, total_files, scanned_files,
		                   jobs_found, probe_failures, total_bytes, superseded, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		    finished_at = excluded.finished_at,
		    total_files = excluded.total_files,
		    scanned_files = excluded.scanned_files,
		    jobs_found = excluded.jobs_found,
		    probe_failures = excluded.probe_failures,
		    total_bytes = excluded.total_bytes,
		    superseded = excluded.superseded,
		    error_message = excluded.error_message`,
		scan.ID, int64(scan.Epoch), scan.Root, toMillis(scan.StartedAt), finished,
		scan.TotalFiles, scan.ScannedFiles, scan.JobsFound, scan.ProbeFailures,
		scan.TotalBytes, boolToInt(scan.Superseded), scan.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("finish scan %s: %w", scan.ID, err)
	}
	return nil
}

func (s *Store) RecordInstall(ctx context.Context, install *domain.InstallRecord) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO installs (scan_id, rel_path, size, checksum, claimed, installed_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		install.ScanID, install.RelPath, install.Size, install.Checksum,
		boolToInt(install.Claimed), toMillis(install.InstalledAt),
	)
	if err != nil {
		return fmt.Errorf("insert install %s: %w", install.RelPath, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert install %s: %w", install.RelPath, err)
	}
	install.ID = id
	return nil
}

// ListScans returns the most recent scans first.
func (s *Store) ListScans(ctx context.Context, limit int) ([]domain.ScanRecord, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, epoch, root, started_at, finished_at, total_files, scanned_files,
		       jobs_found, probe_failures, total_bytes, superseded, error_message
		FROM scans
		ORDER BY started_at DESC, epoch DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list scans: %w", err)
	}
	defer func() { _ = rows.Close() }()

	result := []domain.ScanRecord{}
	for rows.Next() {
		var (
			rec        domain.ScanRecord
			epoch      int64
			startedAt  int64
			finishedAt sql.NullInt64
			superseded int64
		)
		if err := rows.Scan(&rec.ID, &epoch, &rec.Root, &startedAt, &finishedAt,
			&rec.TotalFiles, &rec.ScannedFiles, &rec.JobsFound, &rec.ProbeFailures,
			&rec.TotalBytes, &superseded, &rec.ErrorMessage); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		rec.Epoch = uint64(epoch)
		rec.StartedAt = fromMillis(startedAt)
		if finishedAt.Valid {
			t := fromMillis(finishedAt.Int64)
			rec.FinishedAt = &t
		}
		rec.Superseded = superseded != 0
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list scans: %w", err)
	}
	return result, nil
}

// ListInstalls returns the most recent installs first.
func (s *Store) ListInstalls(ctx context.Context, limit int) ([]domain.InstallRecord, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, scan_id, rel_path, size, checksum, claimed, installed_at
		FROM installs
		ORDER BY installed_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list installs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	result := []domain.InstallRecord{}
	for rows.Next() {
		var (
			rec         domain.InstallRecord
			claimed     int64
			installedAt int64
		)
		if err := rows.Scan(&rec.ID, &rec.ScanID, &rec.RelPath, &rec.Size,
			&rec.Checksum, &claimed, &installedAt); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		rec.Claimed = claimed != 0
		rec.InstalledAt = fromMillis(installedAt)
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list installs: %w", err)
	}
	return result, nil
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

var _ port.Ledger = (*Store)(nil)
