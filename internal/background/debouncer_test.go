package background

import (
	"testing"
	"time"
)

func TestDebouncerRunsLatestCallbackAfterQuietPeriod(t *testing.T) {
	timers := NewManualTimers()
	d := NewDebouncer("test", 300*time.Millisecond, WithTimerFunc(timers.After))

	var got []string
	d.Trigger(func() { got = append(got, "first") })
	timers.Advance(200 * time.Millisecond)
	d.Trigger(func() { got = append(got, "second") })
	timers.Advance(200 * time.Millisecond)

	if len(got) != 0 {
		t.Fatalf("callback ran before the quiet period elapsed: %v", got)
	}

	timers.Advance(100 * time.Millisecond)
	if len(got) != 1 || got[0] != "second" {
		t.Fatalf("expected only the latest callback, got %v", got)
	}
	if d.Pending() {
		t.Fatalf("nothing should be pending after firing")
	}
}

func TestDebouncerCancelDiscardsPendingCallback(t *testing.T) {
	timers := NewManualTimers()
	d := NewDebouncer("test", time.Second, WithTimerFunc(timers.After))

	ran := false
	d.Trigger(func() { ran = true })
	if !d.Cancel() {
		t.Fatalf("expected cancel to report a pending callback")
	}
	timers.Advance(2 * time.Second)

	if ran {
		t.Fatalf("cancelled callback ran")
	}
	if d.Cancel() {
		t.Fatalf("second cancel should report nothing pending")
	}
}

func TestDebouncerFlushRunsImmediately(t *testing.T) {
	timers := NewManualTimers()
	d := NewDebouncer("test", time.Second, WithTimerFunc(timers.After))

	runs := 0
	d.Trigger(func() { runs++ })
	if !d.Flush() {
		t.Fatalf("expected flush to run the callback")
	}
	timers.Advance(time.Second)

	if runs != 1 {
		t.Fatalf("expected exactly one run, got %d", runs)
	}
	if d.Flush() {
		t.Fatalf("flush with nothing pending should report false")
	}
}

func TestDebouncerIgnoresTriggersAfterStop(t *testing.T) {
	timers := NewManualTimers()
	d := NewDebouncer("test", time.Second, WithTimerFunc(timers.After))

	runs := 0
	d.Trigger(func() { runs++ })
	d.Stop()
	d.Trigger(func() { runs++ })
	timers.Advance(time.Minute)

	if runs != 0 {
		t.Fatalf("expected no runs after stop, got %d", runs)
	}
	if timers.Pending() != 0 {
		t.Fatalf("expected no live timers, got %d", timers.Pending())
	}
}

func TestDebouncerRecoversFromPanics(t *testing.T) {
	timers := NewManualTimers()
	d := NewDebouncer("test", time.Millisecond, WithTimerFunc(timers.After))

	d.Trigger(func() { panic("boom") })
	timers.Advance(time.Millisecond)

	ran := false
	d.Trigger(func() { ran = true })
	timers.Advance(time.Millisecond)
	if !ran {
		t.Fatalf("debouncer stopped working after a panic")
	}
}

func TestDebouncerWithRealTimers(t *testing.T) {
	d := NewDebouncer("test", 10*time.Millisecond)
	done := make(chan struct{})
	d.Trigger(func() { close(done) })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("callback never ran")
	}
}

func TestManualTimersRunInDeadlineOrder(t *testing.T) {
	timers := NewManualTimers()
	var order []int
	timers.After(30*time.Millisecond, func() { order = append(order, 3) })
	timers.After(10*time.Millisecond, func() { order = append(order, 1) })
	stopped := timers.After(20*time.Millisecond, func() { order = append(order, 2) })
	stopped.Stop()

	timers.Advance(time.Second)

	if len(order) != 2 || order[0] != 1 || order[1] != 3 {
		t.Fatalf("unexpected order %v", order)
	}
	if timers.Elapsed() != time.Second {
		t.Fatalf("expected elapsed 1s, got %v", timers.Elapsed())
	}
}
