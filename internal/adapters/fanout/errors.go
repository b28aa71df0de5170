package fanout

import "errors"

// Sentinel errors for the fan-out pool.
var (
	ErrQueueFull   = errors.New("fanout queue full")
	ErrQueueClosed = errors.New("fanout queue closed")
	ErrNotStarted  = errors.New("fanout pool not started")
	ErrPanic       = errors.New("fanout call panicked")
)
