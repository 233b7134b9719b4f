package queue

import "errors"

// Sentinel kinds for queue errors.
var (
	ErrBackpressure = errors.New("record queue full")
	ErrClosed       = errors.New("record queue closed")
)
