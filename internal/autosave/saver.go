// Package autosave persists the live page to a key-value store after edits
// settle, and reads it back for crash recovery.
//
// The Saver observes committed section lists, compares them by value with
// the last persisted snapshot and schedules a trailing debounced flush of
// the latest one. Flushes are serialised; a flush either writes the whole
// record or fails and leaves the unsaved flag set until the next change.
package autosave

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"page-composer-backend/internal/background"
	"page-composer-backend/internal/constants"
	"page-composer-backend/internal/document"
	"page-composer-backend/internal/exchange"
	"page-composer-backend/internal/models"
	"page-composer-backend/pkg/logger"
)

var (
	metricsOnce   sync.Once
	flushesTotal  *prometheus.CounterVec
	flushDuration prometheus.Histogram
	lastFlushTime prometheus.Gauge
)

func initMetrics() {
	metricsOnce.Do(func() {
		flushesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "page_composer",
			Subsystem: "autosave",
			Name:      "flushes_total",
			Help:      "Total auto-save flushes by outcome",
		}, []string{"status"})

		flushDuration = promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: "page_composer",
			Subsystem: "autosave",
			Name:      "flush_duration_seconds",
			Help:      "Duration of auto-save store writes",
			Buckets:   prometheus.DefBuckets,
		})

		lastFlushTime = promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "page_composer",
			Subsystem: "autosave",
			Name:      "last_success_timestamp",
			Help:      "Unix timestamp of the last successful auto-save flush",
		})
	})
}

// RecordMetadata labels an auto-save record.
type RecordMetadata struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	URL         string `json:"url,omitempty"`
}

// Record is the persisted auto-save payload. Timestamp is in milliseconds
// since the Unix epoch.
type Record struct {
	Sections  []models.Section `json:"sections"`
	Timestamp int64            `json:"timestamp"`
	Version   string           `json:"version"`
	Metadata  RecordMetadata   `json:"metadata"`
}

// SavedAt converts Timestamp to a time.
func (r Record) SavedAt() time.Time {
	return time.UnixMilli(r.Timestamp).UTC()
}

// Info summarises a persisted record for the recovery prompt.
type Info struct {
	LastSaved     time.Time `json:"lastSaved"`
	SectionsCount int       `json:"sectionsCount"`
}

// State is the user-visible auto-save status.
type State struct {
	Enabled           bool       `json:"autoSaveEnabled"`
	Saving            bool       `json:"isAutoSaving"`
	HasUnsavedChanges bool       `json:"hasUnsavedChanges"`
	LastSaved         *time.Time `json:"lastSaved"`
	Error             string     `json:"saveError,omitempty"`
}

type Config struct {
	Key         string
	Debounce    time.Duration
	Retention   time.Duration
	Enabled     bool
	Name        string
	Description string
	URL         string
}

func DefaultConfig() Config {
	return Config{
		Key:         constants.AutoSaveKey,
		Debounce:    constants.AutoSaveDebounce,
		Retention:   constants.AutoSaveRetention,
		Enabled:     true,
		Name:        constants.AutoSaveName,
		Description: constants.AutoSaveDescription,
	}
}

type Option func(*Saver)

// WithTimerFunc replaces the timer behind the flush debounce.
func WithTimerFunc(after background.TimerFunc) Option {
	return func(s *Saver) { s.after = after }
}

// WithClock replaces the time source used for timestamps and staleness.
func WithClock(now func() time.Time) Option {
	return func(s *Saver) {
		if now != nil {
			s.now = now
		}
	}
}

// WithListener registers fn to receive the state after every change.
func WithListener(fn func(State)) Option {
	return func(s *Saver) { s.listener = fn }
}

type snapshot struct {
	sections []models.Section
	encoded  []byte
}

// Saver owns the auto-save record of one editing session.
type Saver struct {
	store    Store
	cfg      Config
	now      func() time.Time
	after    background.TimerFunc
	listener func(State)

	debouncer *background.Debouncer
	ctx       context.Context
	cancel    context.CancelFunc

	flushMu sync.Mutex

	mu        sync.Mutex
	enabled   bool
	latest    *snapshot
	persisted []byte
	unsaved   bool
	saving    bool
	lastSaved *time.Time
	lastError string
}

func New(store Store, cfg Config, opts ...Option) *Saver {
	initMetrics()

	defaults := DefaultConfig()
	if cfg.Key == "" {
		cfg.Key = defaults.Key
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = defaults.Debounce
	}
	if cfg.Retention <= 0 {
		cfg.Retention = defaults.Retention
	}
	if cfg.Name == "" {
		cfg.Name = defaults.Name
	}
	if cfg.Description == "" {
		cfg.Description = defaults.Description
	}

	s := &Saver{
		store:   store,
		cfg:     cfg,
		now:     time.Now,
		enabled: cfg.Enabled,
	}
	for _, opt := range opts {
		opt(s)
	}

	var debounceOpts []background.DebouncerOption
	if s.after != nil {
		debounceOpts = append(debounceOpts, background.WithTimerFunc(s.after))
	}
	s.debouncer = background.NewDebouncer("autosave", cfg.Debounce, debounceOpts...)
	s.ctx, s.cancel = context.WithCancel(context.Background())
	return s
}

func (s *Saver) Debounce() time.Duration { return s.cfg.Debounce }

func (s *Saver) Retention() time.Duration { return s.cfg.Retention }

// Observe reports the committed sections. A list that differs from the
// persisted snapshot marks the session unsaved and restarts the debounce.
// Empty lists are never auto-saved.
func (s *Saver) Observe(sections []models.Section) {
	s.mu.Lock()
	if !s.enabled {
		s.mu.Unlock()
		return
	}
	if len(sections) == 0 {
		s.latest = nil
		s.mu.Unlock()
		s.debouncer.Cancel()
		return
	}

	encoded, err := json.Marshal(sections)
	if err != nil {
		s.lastError = fmt.Sprintf("serialize sections: %v", err)
		s.mu.Unlock()
		s.notify()
		return
	}

	if bytes.Equal(encoded, s.persisted) {
		s.latest = nil
		s.unsaved = false
		s.mu.Unlock()
		s.debouncer.Cancel()
		s.notify()
		return
	}

	s.latest = &snapshot{sections: document.Clone(sections), encoded: encoded}
	s.unsaved = true
	s.mu.Unlock()

	s.debouncer.Trigger(func() {
		if err := s.flush(s.ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error(err, "Auto-save flush failed", map[string]interface{}{"key": s.cfg.Key})
		}
	})
	s.notify()
}

// Flush writes the latest observed snapshot now instead of waiting for the
// debounce. It is a no-op when nothing is pending.
func (s *Saver) Flush(ctx context.Context) error {
	s.debouncer.Cancel()
	return s.flush(ctx)
}

func (s *Saver) flush(ctx context.Context) error {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	s.mu.Lock()
	pending := s.latest
	if !s.enabled || pending == nil {
		s.mu.Unlock()
		return nil
	}
	if bytes.Equal(pending.encoded, s.persisted) {
		s.latest = nil
		s.unsaved = false
		s.mu.Unlock()
		s.notify()
		return nil
	}
	s.saving = true
	s.mu.Unlock()
	s.notify()

	savedAt := s.now().UTC()
	record := Record{
		Sections:  pending.sections,
		Timestamp: savedAt.UnixMilli(),
		Version:   constants.AutoSaveVersion,
		Metadata: RecordMetadata{
			Name:        s.cfg.Name,
			Description: s.cfg.Description,
			URL:         s.cfg.URL,
		},
	}

	start := time.Now()
	err := s.write(ctx, record)
	flushDuration.Observe(time.Since(start).Seconds())

	s.mu.Lock()
	s.saving = false
	if err != nil {
		s.lastError = err.Error()
		s.mu.Unlock()
		flushesTotal.WithLabelValues("failure").Inc()
		s.notify()
		return err
	}

	s.persisted = pending.encoded
	s.lastSaved = &savedAt
	s.lastError = ""
	// A snapshot observed during the write with the same content is saved too.
	if s.latest != nil && bytes.Equal(s.latest.encoded, pending.encoded) {
		s.latest = nil
		s.unsaved = false
	}
	s.mu.Unlock()

	flushesTotal.WithLabelValues("success").Inc()
	lastFlushTime.Set(float64(savedAt.Unix()))
	logger.Debug("Auto-save completed", map[string]interface{}{"key": s.cfg.Key, "sections": len(record.Sections)})
	s.notify()
	return nil
}

func (s *Saver) write(ctx context.Context, record Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("serialize auto-save record: %w", err)
	}
	if err := s.store.Set(ctx, s.cfg.Key, data); err != nil {
		return fmt.Errorf("save auto-save record: %w", err)
	}
	return nil
}

// Load returns the persisted record, or nil when there is none usable.
// Corrupt and stale records are deleted; a record without a sections array
// is ignored. Only store failures are returned as errors.
func (s *Saver) Load(ctx context.Context) (*Record, error) {
	data, err := s.store.Get(ctx, s.cfg.Key)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load auto-save record: %w", err)
	}

	record, err := DecodeRecord(data)
	switch {
	case errors.Is(err, ErrMissingSections):
		logger.Warn("Ignoring auto-save record without sections", map[string]interface{}{"key": s.cfg.Key})
		return nil, nil
	case err != nil:
		logger.Warn("Discarding corrupt auto-save record", map[string]interface{}{"key": s.cfg.Key, "error": err.Error()})
		s.discard(ctx)
		return nil, nil
	}

	if s.Stale(*record) {
		logger.Info("Discarding stale auto-save record", map[string]interface{}{"key": s.cfg.Key, "saved_at": record.SavedAt()})
		s.discard(ctx)
		return nil, nil
	}
	return record, nil
}

// Stale reports whether record is older than the retention window.
func (s *Saver) Stale(record Record) bool {
	return s.now().Sub(record.SavedAt()) > s.cfg.Retention
}

// DecodeRecord parses a stored record without touching the store. It
// returns ErrMissingSections when the payload has no sections array and
// ErrCorruptRecord when it is not a record at all.
func DecodeRecord(data []byte) (*Record, error) {
	var shape struct {
		Sections json.RawMessage `json:"sections"`
	}
	if err := json.Unmarshal(data, &shape); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	if trimmed := bytes.TrimSpace(shape.Sections); len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, ErrMissingSections
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	if record.Sections == nil {
		record.Sections = []models.Section{}
	}
	return &record, nil
}

func (s *Saver) discard(ctx context.Context) {
	if err := s.store.Delete(ctx, s.cfg.Key); err != nil {
		logger.Error(err, "Failed to delete auto-save record", map[string]interface{}{"key": s.cfg.Key})
	}
}

// Info summarises the persisted record, or returns nil when none is usable.
func (s *Saver) Info(ctx context.Context) (*Info, error) {
	record, err := s.Load(ctx)
	if err != nil || record == nil {
		return nil, err
	}
	return &Info{LastSaved: record.SavedAt(), SectionsCount: len(record.Sections)}, nil
}

// Prime reads the persisted record at session start and adopts its
// timestamp as the last save. It returns the record summary, if any.
func (s *Saver) Prime(ctx context.Context) (*Info, error) {
	info, err := s.Info(ctx)
	if err != nil || info == nil {
		return info, err
	}

	s.mu.Lock()
	lastSaved := info.LastSaved
	s.lastSaved = &lastSaved
	s.mu.Unlock()
	s.notify()
	return info, nil
}

// ExportRecord converts the persisted record into a portable document.
func (s *Saver) ExportRecord(ctx context.Context) (*exchange.Document, error) {
	record, err := s.Load(ctx)
	if err != nil || record == nil {
		return nil, err
	}
	doc := record.Document()
	return &doc, nil
}

// Document converts the record into a portable export document.
func (r Record) Document() exchange.Document {
	savedAt := r.SavedAt()
	return exchange.Document{
		Sections: document.Clone(r.Sections),
		Metadata: exchange.Metadata{
			Name:        r.Metadata.Name,
			Description: r.Metadata.Description,
			Version:     r.Version,
			CreatedAt:   savedAt,
			UpdatedAt:   savedAt,
			URL:         r.Metadata.URL,
		},
	}
}

// Clear deletes the persisted record and resets the saved state.
func (s *Saver) Clear(ctx context.Context) error {
	s.debouncer.Cancel()

	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	if err := s.store.Delete(ctx, s.cfg.Key); err != nil {
		return fmt.Errorf("clear auto-save record: %w", err)
	}

	s.mu.Lock()
	s.latest = nil
	s.persisted = nil
	s.lastSaved = nil
	s.unsaved = false
	s.lastError = ""
	s.mu.Unlock()

	logger.Info("Auto-saved data cleared", map[string]interface{}{"key": s.cfg.Key})
	s.notify()
	return nil
}

// SetEnabled switches auto-save. Disabling cancels any pending flush and
// stops tracking unsaved changes; enabling clears the last error.
func (s *Saver) SetEnabled(enabled bool) {
	s.mu.Lock()
	s.enabled = enabled
	if enabled {
		s.lastError = ""
	} else {
		s.latest = nil
		s.unsaved = false
	}
	s.mu.Unlock()

	if !enabled {
		s.debouncer.Cancel()
	}
	logger.Info("Auto-save toggled", map[string]interface{}{"enabled": enabled})
	s.notify()
}

// MarkSynced declares sections as already persisted, typically after a
// recovery, so they are not written again until they change.
func (s *Saver) MarkSynced(sections []models.Section, savedAt time.Time) {
	encoded, err := json.Marshal(sections)
	if err != nil {
		return
	}
	s.debouncer.Cancel()

	s.mu.Lock()
	s.persisted = encoded
	s.latest = nil
	s.unsaved = false
	if !savedAt.IsZero() {
		savedAt = savedAt.UTC()
		s.lastSaved = &savedAt
	}
	s.mu.Unlock()
	s.notify()
}

// State returns the current auto-save status.
func (s *Saver) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Saver) stateLocked() State {
	state := State{
		Enabled:           s.enabled,
		Saving:            s.saving,
		HasUnsavedChanges: s.unsaved,
		Error:             s.lastError,
	}
	if s.lastSaved != nil {
		lastSaved := *s.lastSaved
		state.LastSaved = &lastSaved
	}
	return state
}

// Close cancels the pending flush and any write in progress. Observe is
// ignored afterwards.
func (s *Saver) Close() {
	s.debouncer.Stop()
	s.cancel()
}

func (s *Saver) notify() {
	if s.listener == nil {
		return
	}
	s.listener(s.State())
}
