package loop

import "errors"

var (
	// ErrStopped is returned when work is posted to a loop that is no longer running.
	ErrStopped = errors.New("loop: stopped")

	// ErrQueueFull is returned by TryPost when the work queue has no room.
	ErrQueueFull = errors.New("loop: queue full")

	// ErrAlreadyRunning is returned when Run is called twice.
	ErrAlreadyRunning = errors.New("loop: already running")
)
