package service

import "errors"

// Sentinel errors returned by the service.
var (
	// ErrInvalidMatch means a reported result breaks a match invariant. It is
	// returned before anything is written.
	ErrInvalidMatch = errors.New("invalid match result")
	// ErrNotStarted means RecordMatch was called before Start or after Stop.
	ErrNotStarted = errors.New("service not started")
)
