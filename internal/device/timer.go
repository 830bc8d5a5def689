package device

import (
	"time"

	"github.com/osterwood/lutron-caseta/internal/loop"
)

// Gesture windows.
const (
	// DoubleClickWindow is the maximum press-to-press interval (inclusive)
	// reported as a double click.
	DoubleClickWindow = 500 * time.Millisecond

	// LongPressWindow is how long a button must stay pressed to report a
	// long press.
	LongPressWindow = time.Second
)

// Gesture is an event derived from the raw press/release stream.
type Gesture int

// Derived gestures.
const (
	GestureDoubleClick Gesture = iota + 1
	GestureLongPress
	GestureLongRelease
)

func (g Gesture) String() string {
	switch g {
	case GestureDoubleClick:
		return "double_click"
	case GestureLongPress:
		return "long_press"
	case GestureLongRelease:
		return "long_release"
	default:
		return "unknown"
	}
}

// ButtonTimer derives double-click and long-press gestures for one button.
//
// It holds at most one long-press timer. A timer that fired while the button
// was held stays in its fired state until the release, which emits
// GestureLongRelease exactly once.
type ButtonTimer struct {
	sched   loop.Scheduler
	pressed func() bool
	emit    func(Gesture)

	lastPress time.Time
	pending   loop.Timer
}

// NewButtonTimer creates a timer. pressed reports the button's current state
// and emit receives derived gestures; both run on the scheduler's goroutine.
func NewButtonTimer(sched loop.Scheduler, pressed func() bool, emit func(Gesture)) *ButtonTimer {
	return &ButtonTimer{sched: sched, pressed: pressed, emit: emit}
}

// Update processes the button's current state after a press or release.
func (t *ButtonTimer) Update() {
	if t.pressed() {
		now := t.sched.Now()
		if !t.lastPress.IsZero() && now.Sub(t.lastPress) <= DoubleClickWindow {
			t.emit(GestureDoubleClick)
		}
		t.lastPress = now
	}
	t.evaluate()
}

// Pending reports whether a long-press timer is armed or fired but not yet
// released.
func (t *ButtonTimer) Pending() bool {
	return t.pending != nil
}

func (t *ButtonTimer) evaluate() {
	if t.pressed() {
		if t.pending == nil {
			t.pending = t.sched.AfterFunc(LongPressWindow, t.expire)
		}
		return
	}

	if t.pending == nil {
		return
	}
	if t.pending.Fired() {
		t.emit(GestureLongRelease)
	}
	t.pending.Cancel()
	t.pending = nil
}

func (t *ButtonTimer) expire() {
	if t.pressed() {
		t.emit(GestureLongPress)
		return
	}
	t.pending = nil
}
