// Package history implements a linear, branch-discarding undo/redo log over
// full snapshots of a page's sections.
//
// The log tracks the index of the last applied action. Recording after one or
// more undos truncates the redo branch, and the log never grows beyond its
// configured size: the oldest action is evicted and can no longer be undone.
//
//	log := history.New(history.WithMaxSize(50))
//	log.Record(history.NewAction(history.ActionAdd, "Add hero", before, after))
//	sections, ok := log.Undo() // before
//	sections, ok = log.Redo()  // after
//
// Log is not safe for concurrent use; the builder controller serialises access.
package history

import (
	"crypto/rand"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"page-composer-backend/internal/constants"
	"page-composer-backend/internal/document"
	"page-composer-backend/internal/models"
)

// ActionType names the kind of mutation an action records.
type ActionType string

const (
	ActionAdd     ActionType = "ADD_SECTION"
	ActionUpdate  ActionType = "UPDATE_SECTION"
	ActionDelete  ActionType = "DELETE_SECTION"
	ActionReorder ActionType = "REORDER_SECTIONS"
)

// Action records one mutation as before/after snapshots of the section list.
type Action struct {
	ID            string           `json:"id"`
	Type          ActionType       `json:"type"`
	Timestamp     time.Time        `json:"timestamp"`
	Description   string           `json:"description"`
	PreviousState []models.Section `json:"previousState"`
	NewState      []models.Section `json:"newState"`
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewAction builds an action stamped with the current time. Both snapshots
// are deep-copied.
func NewAction(actionType ActionType, description string, previous, next []models.Section) Action {
	return newActionAt(time.Now(), actionType, description, previous, next)
}

func newActionAt(now time.Time, actionType ActionType, description string, previous, next []models.Section) Action {
	return Action{
		ID:            newActionID(now),
		Type:          actionType,
		Timestamp:     now,
		Description:   description,
		PreviousState: document.Clone(previous),
		NewState:      document.Clone(next),
	}
}

func newActionID(now time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	id, err := ulid.New(ulid.Timestamp(now.UTC()), entropy)
	if err != nil {
		if err == io.EOF {
			// Monotonic entropy overflowed within this millisecond; fall back to a fresh reader.
			id = ulid.MustNew(ulid.Timestamp(now.UTC()), rand.Reader)
		} else {
			id = ulid.Make()
		}
	}
	return id.String()
}

// Option configures a Log.
type Option func(*Log)

// WithMaxSize caps the number of retained actions. Values below 1 are ignored.
func WithMaxSize(size int) Option {
	return func(l *Log) {
		if size > 0 {
			l.maxSize = size
		}
	}
}

// WithClock overrides the time source used by Log.Action.
func WithClock(now func() time.Time) Option {
	return func(l *Log) {
		if now != nil {
			l.now = now
		}
	}
}

// Log is the undo/redo history. The zero value is not usable; call New.
type Log struct {
	actions      []Action
	currentIndex int
	maxSize      int
	now          func() time.Time
}

// New creates an empty log with the default capacity.
func New(opts ...Option) *Log {
	l := &Log{
		currentIndex: -1,
		maxSize:      constants.MaxHistorySize,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Action builds an action stamped with the log's clock.
func (l *Log) Action(actionType ActionType, description string, previous, next []models.Section) Action {
	return newActionAt(l.now(), actionType, description, previous, next)
}

// Record appends action after the current index, discarding any redo
// branch, and evicts the oldest action when the log exceeds its capacity.
func (l *Log) Record(action Action) {
	l.actions = append(l.actions[:l.currentIndex+1], action)
	l.currentIndex = len(l.actions) - 1

	if len(l.actions) > l.maxSize {
		overflow := len(l.actions) - l.maxSize
		l.actions = append([]Action(nil), l.actions[overflow:]...)
		l.currentIndex -= overflow
	}
}

// Undo steps back one action and returns the snapshot to apply. It reports
// false when there is nothing to undo.
func (l *Log) Undo() ([]models.Section, bool) {
	if l.currentIndex < 0 {
		return nil, false
	}
	snapshot := document.Clone(l.actions[l.currentIndex].PreviousState)
	l.currentIndex--
	return snapshot, true
}

// Redo re-applies the next action and returns the snapshot to apply. It
// reports false when there is nothing to redo.
func (l *Log) Redo() ([]models.Section, bool) {
	if l.currentIndex >= len(l.actions)-1 {
		return nil, false
	}
	l.currentIndex++
	return document.Clone(l.actions[l.currentIndex].NewState), true
}

func (l *Log) CanUndo() bool { return l.currentIndex >= 0 }

func (l *Log) CanRedo() bool { return l.currentIndex < len(l.actions)-1 }

// CurrentIndex is the index of the last applied action, or -1.
func (l *Log) CurrentIndex() int { return l.currentIndex }

func (l *Log) Len() int { return len(l.actions) }

func (l *Log) MaxSize() int { return l.maxSize }

// UndoDescription describes the action the next Undo would revert.
func (l *Log) UndoDescription() string {
	if !l.CanUndo() {
		return ""
	}
	return l.actions[l.currentIndex].Description
}

// RedoDescription describes the action the next Redo would re-apply.
func (l *Log) RedoDescription() string {
	if !l.CanRedo() {
		return ""
	}
	return l.actions[l.currentIndex+1].Description
}

// Actions returns a copy of the recorded actions, oldest first.
func (l *Log) Actions() []Action {
	result := make([]Action, len(l.actions))
	copy(result, l.actions)
	return result
}

// Clear drops every action and resets the index.
func (l *Log) Clear() {
	l.actions = nil
	l.currentIndex = -1
}

// Summary is a lightweight view of the log for clients.
type Summary struct {
	CurrentIndex    int            `json:"currentIndex"`
	Size            int            `json:"size"`
	MaxSize         int            `json:"maxSize"`
	CanUndo         bool           `json:"canUndo"`
	CanRedo         bool           `json:"canRedo"`
	UndoDescription string         `json:"undoDescription,omitempty"`
	RedoDescription string         `json:"redoDescription,omitempty"`
	Entries         []SummaryEntry `json:"entries"`
}

type SummaryEntry struct {
	ID          string     `json:"id"`
	Type        ActionType `json:"type"`
	Timestamp   time.Time  `json:"timestamp"`
	Description string     `json:"description"`
}

// Summarize describes the log without its snapshots.
func (l *Log) Summarize() Summary {
	entries := make([]SummaryEntry, len(l.actions))
	for i, action := range l.actions {
		entries[i] = SummaryEntry{
			ID:          action.ID,
			Type:        action.Type,
			Timestamp:   action.Timestamp,
			Description: action.Description,
		}
	}
	return Summary{
		CurrentIndex:    l.currentIndex,
		Size:            len(l.actions),
		MaxSize:         l.maxSize,
		CanUndo:         l.CanUndo(),
		CanRedo:         l.CanRedo(),
		UndoDescription: l.UndoDescription(),
		RedoDescription: l.RedoDescription(),
		Entries:         entries,
	}
}
