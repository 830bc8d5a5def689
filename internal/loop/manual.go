package loop

import (
	"sort"
	"time"
)

// Manual is a virtual-time Scheduler. Timers fire synchronously, in due
// order, when Advance moves the clock past their deadline.
//
// Manual is not safe for concurrent use; it stands in for the loop goroutine.
type Manual struct {
	now    time.Time
	seq    int
	timers []*manualTimer
}

// NewManual returns a Manual scheduler whose clock starts at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Now returns the virtual time.
func (m *Manual) Now() time.Time {
	return m.now
}

// AfterFunc schedules fn at Now()+d.
func (m *Manual) AfterFunc(d time.Duration, fn func()) Timer {
	m.seq++
	t := &manualTimer{due: m.now.Add(d), seq: m.seq, fn: fn}
	m.timers = append(m.timers, t)
	return t
}

// Advance moves the clock forward by d, firing every timer that falls due.
func (m *Manual) Advance(d time.Duration) {
	m.AdvanceTo(m.now.Add(d))
}

// AdvanceTo moves the clock to target, firing due timers in order. Timers
// scheduled by fired callbacks are honoured if they fall due before target.
func (m *Manual) AdvanceTo(target time.Time) {
	for {
		next := m.nextDue(target)
		if next == nil {
			break
		}
		if next.due.After(m.now) {
			m.now = next.due
		}
		next.fire()
	}
	if target.After(m.now) {
		m.now = target
	}
}

// Pending returns the number of armed timers.
func (m *Manual) Pending() int {
	n := 0
	for _, t := range m.timers {
		if t.state == timerArmed {
			n++
		}
	}
	return n
}

func (m *Manual) nextDue(target time.Time) *manualTimer {
	armed := m.timers[:0]
	for _, t := range m.timers {
		if t.state == timerArmed {
			armed = append(armed, t)
		}
	}
	m.timers = armed
	sort.SliceStable(m.timers, func(i, j int) bool {
		if m.timers[i].due.Equal(m.timers[j].due) {
			return m.timers[i].seq < m.timers[j].seq
		}
		return m.timers[i].due.Before(m.timers[j].due)
	})
	if len(m.timers) == 0 || m.timers[0].due.After(target) {
		return nil
	}
	return m.timers[0]
}

type manualTimer struct {
	due   time.Time
	seq   int
	fn    func()
	state timerState
}

func (t *manualTimer) fire() {
	if t.state != timerArmed {
		return
	}
	t.state = timerFired
	t.fn()
}

func (t *manualTimer) Cancel() bool {
	if t.state != timerArmed {
		return false
	}
	t.state = timerCancelled
	return true
}

func (t *manualTimer) Fired() bool {
	return t.state == timerFired
}
