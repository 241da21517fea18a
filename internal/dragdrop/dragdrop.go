// Package dragdrop turns a finished drag gesture into a new section order.
package dragdrop

import (
	"page-composer-backend/internal/document"
	"page-composer-backend/internal/history"
	"page-composer-backend/internal/models"
)

// Source is the dragged entity: an existing section or a catalog template.
type Source struct {
	SectionID string
	Template  *models.SectionTemplate
}

// SectionSource drags an existing section.
func SectionSource(id string) Source { return Source{SectionID: id} }

// TemplateSource drags a template from the catalog.
func TemplateSource(tmpl models.SectionTemplate) Source { return Source{Template: &tmpl} }

// Target is where the gesture ended: on another section or on a gap between sections.
type Target struct {
	SectionID string
	Position  *int
}

// OnSection drops onto an existing section.
func OnSection(id string) *Target { return &Target{SectionID: id} }

// AtGap drops into the gap before the section currently at position.
func AtGap(position int) *Target { return &Target{Position: &position} }

// Gesture is a completed drag. A nil Over means the gesture was cancelled.
type Gesture struct {
	Active Source
	Over   *Target
}

// Result is the outcome of resolving a gesture. When Changed is false the
// sections are the input, untouched, and nothing must be recorded.
type Result struct {
	Sections    []models.Section
	Changed     bool
	Action      history.ActionType
	Description string
}

// Resolve computes the section list produced by gesture. It never mutates
// sections and performs at most one document operation.
func Resolve(sections []models.Section, gesture Gesture, ids document.IDGenerator) Result {
	unchanged := Result{Sections: sections}
	over := gesture.Over
	if over == nil {
		return unchanged
	}

	if tmpl := gesture.Active.Template; tmpl != nil {
		position, ok := insertPosition(sections, over)
		if !ok {
			return unchanged
		}
		return Result{
			Sections:    document.AddSectionAt(sections, *tmpl, position, ids),
			Changed:     true,
			Action:      history.ActionAdd,
			Description: "Add " + tmpl.Name,
		}
	}

	activeID := gesture.Active.SectionID
	oldIndex := document.IndexOf(sections, activeID)
	if oldIndex < 0 {
		return unchanged
	}

	var orderedIDs []string
	switch {
	case over.SectionID != "":
		if over.SectionID == activeID {
			return unchanged
		}
		newIndex := document.IndexOf(sections, over.SectionID)
		if newIndex < 0 {
			return unchanged
		}
		orderedIDs = move(document.IDs(sections), oldIndex, newIndex)
	case over.Position != nil:
		position := *over.Position
		if position > oldIndex {
			position--
		}
		orderedIDs = move(document.IDs(sections), oldIndex, position)
	default:
		return unchanged
	}

	reordered, ok := document.Reorder(sections, orderedIDs)
	if !ok || sameOrder(sections, reordered) {
		return unchanged
	}
	return Result{
		Sections:    reordered,
		Changed:     true,
		Action:      history.ActionReorder,
		Description: "Reorder sections",
	}
}

func insertPosition(sections []models.Section, over *Target) (int, bool) {
	if over.Position != nil {
		return *over.Position, true
	}
	if over.SectionID != "" {
		index := document.IndexOf(sections, over.SectionID)
		return index, index >= 0
	}
	return 0, false
}

// move removes the id at from and reinserts it at to, clamped to the
// shortened list.
func move(ids []string, from, to int) []string {
	moved := ids[from]
	rest := make([]string, 0, len(ids)-1)
	rest = append(rest, ids[:from]...)
	rest = append(rest, ids[from+1:]...)

	if to < 0 {
		to = 0
	}
	if to > len(rest) {
		to = len(rest)
	}

	result := make([]string, 0, len(ids))
	result = append(result, rest[:to]...)
	result = append(result, moved)
	result = append(result, rest[to:]...)
	return result
}

func sameOrder(before, after []models.Section) bool {
	if len(before) != len(after) {
		return false
	}
	for i := range before {
		if before[i].ID != after[i].ID || before[i].Order != after[i].Order {
			return false
		}
	}
	return true
}
