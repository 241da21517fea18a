package background

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"page-composer-backend/pkg/logger"
)

// Timer is a pending callback that can be stopped before it fires.
type Timer interface {
	Stop() bool
}

// TimerFunc schedules fn to run once after d.
type TimerFunc func(d time.Duration, fn func()) Timer

// RealTimers schedules callbacks on the runtime timer.
func RealTimers(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

var (
	metricsOnce        sync.Once
	settleRunsTotal    *prometheus.CounterVec
	settleCancelsTotal *prometheus.CounterVec
	settleDuration     *prometheus.HistogramVec
)

func initMetrics() {
	metricsOnce.Do(func() {
		settleRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "page_composer",
			Subsystem: "background",
			Name:      "settle_runs_total",
			Help:      "Total settled callbacks executed",
		}, []string{"debouncer", "trigger", "status"})

		settleCancelsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "page_composer",
			Subsystem: "background",
			Name:      "settle_cancels_total",
			Help:      "Total pending callbacks discarded before running",
		}, []string{"debouncer"})

		settleDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "page_composer",
			Subsystem: "background",
			Name:      "settle_duration_seconds",
			Help:      "Duration of settled callbacks",
			Buckets:   prometheus.DefBuckets,
		}, []string{"debouncer"})
	})
}

// DebouncerOption configures a Debouncer.
type DebouncerOption func(*Debouncer)

// WithTimerFunc replaces the runtime timer, typically with ManualTimers in tests.
func WithTimerFunc(after TimerFunc) DebouncerOption {
	return func(d *Debouncer) {
		if after != nil {
			d.after = after
		}
	}
}

// Debouncer runs the most recently triggered callback once no new trigger
// has arrived for the configured delay. Every Trigger restarts the quiet
// period; a stale timer that fires after a newer trigger does nothing.
type Debouncer struct {
	name  string
	delay time.Duration
	after TimerFunc

	mu         sync.Mutex
	timer      Timer
	pending    func()
	generation uint64
	stopped    bool
}

func NewDebouncer(name string, delay time.Duration, opts ...DebouncerOption) *Debouncer {
	initMetrics()

	d := &Debouncer{
		name:  name,
		delay: delay,
		after: RealTimers,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Debouncer) Delay() time.Duration { return d.delay }

// Trigger replaces the pending callback with fn and restarts the quiet period.
// It is ignored after Stop.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped || fn == nil {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}

	d.generation++
	generation := d.generation
	d.pending = fn
	d.timer = d.after(d.delay, func() { d.fire(generation) })
}

// Cancel discards the pending callback. It reports whether one was pending.
func (d *Debouncer) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pending == nil {
		return false
	}
	d.discardLocked()
	settleCancelsTotal.WithLabelValues(d.name).Inc()
	return true
}

// Flush runs the pending callback now, on the calling goroutine. It reports
// whether anything ran.
func (d *Debouncer) Flush() bool {
	d.mu.Lock()
	fn := d.pending
	if fn == nil {
		d.mu.Unlock()
		return false
	}
	d.discardLocked()
	d.mu.Unlock()

	d.run(fn, "flush")
	return true
}

// Pending reports whether a callback is waiting for its quiet period.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != nil
}

// Stop cancels the pending callback and rejects future triggers.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pending != nil {
		settleCancelsTotal.WithLabelValues(d.name).Inc()
	}
	d.discardLocked()
	d.stopped = true
}

func (d *Debouncer) fire(generation uint64) {
	d.mu.Lock()
	if generation != d.generation || d.pending == nil {
		d.mu.Unlock()
		return
	}
	fn := d.pending
	d.pending = nil
	d.timer = nil
	d.mu.Unlock()

	d.run(fn, "timer")
}

func (d *Debouncer) discardLocked() {
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = nil
	d.pending = nil
	d.generation++
}

func (d *Debouncer) run(fn func(), trigger string) {
	start := time.Now()
	status := "success"

	defer func() {
		if r := recover(); r != nil {
			status = "failure"
			logger.Error(fmt.Errorf("panic: %v", r), "Settled callback panicked", map[string]interface{}{"debouncer": d.name, "trigger": trigger})
		}
		settleDuration.WithLabelValues(d.name).Observe(time.Since(start).Seconds())
		settleRunsTotal.WithLabelValues(d.name, trigger, status).Inc()
	}()

	fn()
}
