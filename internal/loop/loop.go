package loop

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// defaultQueueSize is the buffer size of the work queue.
const defaultQueueSize = 256

// Logger is the logging interface used by the loop.
type Logger interface {
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Error(string, ...any) {}

// Options configures a Loop.
type Options struct {
	// QueueSize is the work queue buffer. Default: 256.
	QueueSize int

	// Logger receives recovered panics. Optional.
	Logger Logger
}

// Loop executes posted functions sequentially on a single goroutine.
type Loop struct {
	queue   chan func()
	done    chan struct{}
	stop    sync.Once
	running atomic.Bool
	logger  Logger

	executed atomic.Uint64
	panics   atomic.Uint64
}

// New creates a loop. Call Run to start executing work.
func New(opts Options) *Loop {
	size := opts.QueueSize
	if size <= 0 {
		size = defaultQueueSize
	}
	var logger Logger = noopLogger{}
	if opts.Logger != nil {
		logger = opts.Logger
	}
	return &Loop{
		queue:  make(chan func(), size),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// Run executes posted work until ctx is cancelled.
//
// Work still queued when the context ends is discarded.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer l.stop.Do(func() { close(l.done) })

	for {
		select {
		case <-ctx.Done():
			return nil
		case fn := <-l.queue:
			l.execute(fn)
		}
	}
}

func (l *Loop) execute(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.panics.Add(1)
			l.logger.Error("loop task panic", "error", fmt.Errorf("%v", r))
		}
	}()
	fn()
	l.executed.Add(1)
}

// Post queues fn for execution on the loop goroutine.
//
// It blocks while the queue is full and returns ErrStopped once the loop has
// exited.
func (l *Loop) Post(fn func()) error {
	select {
	case <-l.done:
		return ErrStopped
	default:
	}
	select {
	case l.queue <- fn:
		return nil
	case <-l.done:
		return ErrStopped
	}
}

// TryPost queues fn without blocking. It returns ErrQueueFull when the queue
// has no room and ErrStopped once the loop has exited.
func (l *Loop) TryPost(fn func()) error {
	select {
	case <-l.done:
		return ErrStopped
	default:
	}
	select {
	case l.queue <- fn:
		return nil
	default:
		return ErrQueueFull
	}
}

// Call runs fn on the loop goroutine and waits for it to finish.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if err := l.Post(func() {
		defer close(finished)
		fn()
	}); err != nil {
		return err
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrStopped
	}
}

// Done is closed after Run returns.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Now returns the wall clock with its monotonic reading.
func (l *Loop) Now() time.Time {
	return time.Now()
}

// AfterFunc schedules fn to run on the loop goroutine after d.
func (l *Loop) AfterFunc(d time.Duration, fn func()) Timer {
	t := &loopTimer{fn: fn}
	t.timer = time.AfterFunc(d, func() {
		// Dropped if the loop is gone; nothing is left to observe the fire.
		_ = l.Post(t.fire)
	})
	return t
}

// Stats returns the number of executed tasks and recovered panics.
func (l *Loop) Stats() (executed, panics uint64) {
	return l.executed.Load(), l.panics.Load()
}

// loopTimer state is only read and written on the loop goroutine; the
// underlying time.Timer merely posts fire.
type loopTimer struct {
	timer *time.Timer
	fn    func()
	state timerState
}

func (t *loopTimer) fire() {
	if t.state != timerArmed {
		return
	}
	t.state = timerFired
	t.fn()
}

func (t *loopTimer) Cancel() bool {
	if t.state != timerArmed {
		return false
	}
	t.state = timerCancelled
	t.timer.Stop()
	return true
}

func (t *loopTimer) Fired() bool {
	return t.state == timerFired
}
