package domain

import (
	"time"
)

type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusClaimed   JobStatus = "claimed"
	JobStatusInstalled JobStatus = "installed"
	JobStatusAbandoned JobStatus = "abandoned"
)

// StagingPrefix marks temporary files written by the installer. The scanner
// never reports files carrying it.
const StagingPrefix = ".reencoder-"

// FileRecord is one regular file discovered by a scan.
type FileRecord struct {
	AbsPath string
	Size    int64
}

type Job struct {
	RelPath   string
	AbsPath   string
	Seq       int64
	Epoch     uint64
	Codec     string
	Size      int64
	Duration  float64
	Status    JobStatus
	ClaimedAt time.Time
}

func (j *Job) Claim(now time.Time) {
	j.Status = JobStatusClaimed
	j.ClaimedAt = now
}

// ScanCounters track the progress of the current scan. Examined advances once
// per file whatever the probe outcome.
type ScanCounters struct {
	Total         int
	Examined      int
	JobsFound     int
	ProbeFailures int
	TotalBytes    int64
	TotalDuration float64
}

// Status is a point-in-time view of the dispatch state.
type Status struct {
	Epoch         uint64     `json:"epoch"`
	ScanID        string     `json:"scan_id,omitempty"`
	Root          string     `json:"root,omitempty"`
	Scanning      bool       `json:"scanning"`
	TotalFiles    int        `json:"total_files"`
	ScannedFiles  int        `json:"scanned_files"`
	QueuedJobs    int        `json:"queued_jobs"`
	InFlight      int        `json:"in_flight"`
	Installed     int        `json:"installed"`
	JobsFound     int        `json:"jobs_found"`
	ProbeFailures int        `json:"probe_failures"`
	TotalBytes    int64      `json:"total_bytes"`
	TotalDuration float64    `json:"total_duration_seconds"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
}

type ScanRecord struct {
	ID            string     `json:"id"`
	Epoch         uint64     `json:"epoch"`
	Root          string     `json:"root"`
	StartedAt     time.Time  `json:"started_at"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
	TotalFiles    int        `json:"total_files"`
	ScannedFiles  int        `json:"scanned_files"`
	JobsFound     int        `json:"jobs_found"`
	ProbeFailures int        `json:"probe_failures"`
	TotalBytes    int64      `json:"total_bytes"`
	Superseded    bool       `json:"superseded"`
	ErrorMessage  string     `json:"error_message,omitempty"`
}

type InstallRecord struct {
	ID          int64     `json:"id"`
	ScanID      string    `json:"scan_id"`
	RelPath     string    `json:"rel_path"`
	Size        int64     `json:"size"`
	Checksum    string    `json:"checksum"`
	Claimed     bool      `json:"claimed"`
	InstalledAt time.Time `json:"installed_at"`
}

type InstallResult struct {
	Size     int64
	Checksum string
}

type History struct {
	Scans    []ScanRecord    `json:"scans"`
	Installs []InstallRecord `json:"installs"`
}
