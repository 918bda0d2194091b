package domain

import "errors"

var (
	ErrNotFound         = errors.New("resource not found")
	ErrInvalidRoot      = errors.New("library root does not exist or is not a directory")
	ErrInvalidPath      = errors.New("invalid relative path")
	ErrProbe            = errors.New("codec probe failed")
	ErrStorage          = errors.New("storage failure")
	ErrNotClaimed       = errors.New("path has no outstanding claim")
	ErrChecksumMismatch = errors.New("upload checksum mismatch")
)
