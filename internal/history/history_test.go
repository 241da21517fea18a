package history

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"page-composer-backend/internal/document"
	"page-composer-backend/internal/models"
)

func state(ids ...string) []models.Section {
	result := make([]models.Section, len(ids))
	for i, id := range ids {
		result[i] = models.Section{ID: id, Type: models.SectionContent, Props: models.ContentProps{Title: id}, Order: i}
	}
	return result
}

func mustJSON(t *testing.T, sections []models.Section) string {
	t.Helper()
	encoded, err := json.Marshal(sections)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(encoded)
}

func TestUndoOnEmptyLogIsNoOp(t *testing.T) {
	log := New()

	if _, ok := log.Undo(); ok {
		t.Fatalf("expected undo on empty log to report false")
	}
	if log.CurrentIndex() != -1 {
		t.Fatalf("expected current index -1, got %d", log.CurrentIndex())
	}
	if _, ok := log.Redo(); ok {
		t.Fatalf("expected redo on empty log to report false")
	}
}

func TestUndoRedoRestoreExactSnapshots(t *testing.T) {
	before := state("a")
	after := state("b", "a")
	log := New()
	log.Record(NewAction(ActionAdd, "Add content", before, after))

	undone, ok := log.Undo()
	if !ok {
		t.Fatalf("expected undo to succeed")
	}
	if mustJSON(t, undone) != mustJSON(t, before) {
		t.Fatalf("undo did not restore the previous state: %s", mustJSON(t, undone))
	}

	redone, ok := log.Redo()
	if !ok {
		t.Fatalf("expected redo to succeed")
	}
	if mustJSON(t, redone) != mustJSON(t, after) {
		t.Fatalf("redo did not restore the new state: %s", mustJSON(t, redone))
	}
	if log.CanRedo() {
		t.Fatalf("nothing should be left to redo")
	}
}

func TestRecordAfterUndoDiscardsRedoBranch(t *testing.T) {
	log := New()
	log.Record(NewAction(ActionAdd, "A", state(), state("a")))
	log.Record(NewAction(ActionAdd, "B", state("a"), state("a", "b")))
	log.Record(NewAction(ActionAdd, "C", state("a", "b"), state("a", "b", "c")))

	log.Undo()
	log.Undo()
	log.Record(NewAction(ActionAdd, "D", state("a"), state("a", "d")))

	if _, ok := log.Redo(); ok {
		t.Fatalf("expected redo to be a no-op after the branch was discarded")
	}
	if log.Len() != 2 {
		t.Fatalf("expected 2 actions, got %d", log.Len())
	}
	if log.UndoDescription() != "D" {
		t.Fatalf("expected D to be next undo, got %q", log.UndoDescription())
	}
}

func TestLogEvictsOldestAtCapacity(t *testing.T) {
	log := New(WithMaxSize(3))
	current := state()
	for i := 0; i < 5; i++ {
		next := append(document.Clone(current), models.Section{ID: fmt.Sprintf("s%d", i), Type: models.SectionContent, Order: i})
		log.Record(NewAction(ActionAdd, fmt.Sprintf("add %d", i), current, next))
		current = next
	}

	if log.Len() != 3 {
		t.Fatalf("expected log to be capped at 3, got %d", log.Len())
	}
	if log.CurrentIndex() != 2 {
		t.Fatalf("expected current index 2, got %d", log.CurrentIndex())
	}

	var last []models.Section
	undos := 0
	for {
		snapshot, ok := log.Undo()
		if !ok {
			break
		}
		last = snapshot
		undos++
	}
	if undos != 3 {
		t.Fatalf("expected 3 undos, got %d", undos)
	}
	if len(last) != 2 {
		t.Fatalf("undo should stop at the eviction point (2 sections), got %d", len(last))
	}
}

func TestSnapshotsAreIsolatedFromCallers(t *testing.T) {
	before := state("a")
	after := state("a", "b")
	log := New()
	log.Record(NewAction(ActionAdd, "Add", before, after))

	after[0].ID = "mutated"
	redoState, _ := log.Undo()
	redoState[0].ID = "also-mutated"

	again, _ := log.Redo()
	if again[0].ID != "a" {
		t.Fatalf("log snapshots leaked to callers: %+v", again)
	}
}

func TestActionIDsAreUnique(t *testing.T) {
	seen := map[string]struct{}{}
	for i := 0; i < 100; i++ {
		id := NewAction(ActionUpdate, "x", nil, nil).ID
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate action id %s", id)
		}
		seen[id] = struct{}{}
	}
}

func TestSummarizeReportsNavigation(t *testing.T) {
	log := New()
	log.Record(NewAction(ActionAdd, "Add hero", state(), state("h")))
	log.Record(NewAction(ActionDelete, "Delete hero", state("h"), state()))
	log.Undo()

	summary := log.Summarize()
	if !summary.CanUndo || !summary.CanRedo {
		t.Fatalf("expected both undo and redo, got %+v", summary)
	}
	if summary.UndoDescription != "Add hero" || summary.RedoDescription != "Delete hero" {
		t.Fatalf("unexpected descriptions %+v", summary)
	}
	if len(summary.Entries) != 2 || summary.Entries[1].Type != ActionDelete {
		t.Fatalf("unexpected entries %+v", summary.Entries)
	}
}

func TestActionUsesConfiguredClock(t *testing.T) {
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	log := New(WithClock(func() time.Time { return fixed }))

	action := log.Action(ActionReorder, "Reorder sections", state("a", "b"), state("b", "a"))
	if !action.Timestamp.Equal(fixed) {
		t.Fatalf("expected timestamp %v, got %v", fixed, action.Timestamp)
	}
	if action.ID == "" {
		t.Fatalf("expected an action id")
	}
}
