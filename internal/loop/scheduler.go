package loop

import "time"

// Scheduler schedules deferred work on the loop goroutine.
type Scheduler interface {
	// Now returns the current monotonic time as seen by the scheduler.
	Now() time.Time

	// AfterFunc runs fn on the loop goroutine once d has elapsed.
	AfterFunc(d time.Duration, fn func()) Timer
}

// Timer is a handle to work scheduled with AfterFunc.
//
// Handles must only be used from the loop goroutine.
type Timer interface {
	// Cancel removes the pending callback. It reports whether the callback
	// was still pending; cancelling a fired or cancelled timer is a no-op.
	Cancel() bool

	// Fired reports whether the callback has run.
	Fired() bool
}

type timerState int

const (
	timerArmed timerState = iota
	timerFired
	timerCancelled
)
