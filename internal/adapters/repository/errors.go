package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrNotFound         = errors.New("record not found")
	ErrMalformed        = errors.New("stored record is malformed")
	ErrInvalidID        = errors.New("invalid record id")
	ErrSnapshotNotFound = errors.New("snapshot not found")
)
