package background

import (
	"sort"
	"sync"
	"time"
)

// ManualTimers is a TimerFunc source driven by Advance instead of the wall
// clock. Callbacks run synchronously on the goroutine calling Advance.
type ManualTimers struct {
	mu     sync.Mutex
	now    time.Duration
	seq    int
	timers []*manualTimer
}

type manualTimer struct {
	owner   *ManualTimers
	at      time.Duration
	seq     int
	fn      func()
	stopped bool
}

func NewManualTimers() *ManualTimers {
	return &ManualTimers{}
}

// After satisfies TimerFunc.
func (m *ManualTimers) After(d time.Duration, fn func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	t := &manualTimer{owner: m, at: m.now + d, seq: m.seq, fn: fn}
	m.timers = append(m.timers, t)
	return t
}

// Advance moves virtual time forward by d and runs every timer that became
// due, earliest first. Timers scheduled by those callbacks run too when they
// fall inside the window.
func (m *ManualTimers) Advance(d time.Duration) {
	m.mu.Lock()
	deadline := m.now + d
	m.mu.Unlock()

	for {
		m.mu.Lock()
		next := m.nextDueLocked(deadline)
		if next == nil {
			m.now = deadline
			m.mu.Unlock()
			return
		}
		m.now = next.at
		next.stopped = true
		m.removeLocked(next)
		m.mu.Unlock()

		next.fn()
	}
}

// Pending counts timers that have neither fired nor been stopped.
func (m *ManualTimers) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

// Elapsed is the virtual time advanced so far.
func (m *ManualTimers) Elapsed() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *ManualTimers) nextDueLocked(deadline time.Duration) *manualTimer {
	due := make([]*manualTimer, 0, len(m.timers))
	for _, t := range m.timers {
		if t.at <= deadline {
			due = append(due, t)
		}
	}
	if len(due) == 0 {
		return nil
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].at == due[j].at {
			return due[i].seq < due[j].seq
		}
		return due[i].at < due[j].at
	})
	return due[0]
}

func (m *ManualTimers) removeLocked(target *manualTimer) {
	for i, t := range m.timers {
		if t == target {
			m.timers = append(m.timers[:i], m.timers[i+1:]...)
			return
		}
	}
}

func (t *manualTimer) Stop() bool {
	t.owner.mu.Lock()
	defer t.owner.mu.Unlock()

	if t.stopped {
		return false
	}
	t.stopped = true
	t.owner.removeLocked(t)
	return true
}
