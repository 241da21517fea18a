// Package document implements the pure operations over a page's ordered
// section list. Every function returns a new slice and leaves its input,
// including the props of each section, untouched.
package document

import (
	"errors"
	"fmt"
	"reflect"
	"sort"

	"page-composer-backend/internal/models"
)

// ErrPropsTypeMismatch is returned when props of one variant are applied to a section of another type.
var ErrPropsTypeMismatch = errors.New("props do not belong to section type")

// AddSection appends a new section seeded from tmpl with order len(sections).
func AddSection(sections []models.Section, tmpl models.SectionTemplate, ids IDGenerator) []models.Section {
	result := Clone(sections)
	return append(result, newSection(tmpl, len(sections), ids))
}

// AddSectionAt inserts a new section at position, clamped to [0, len], and
// renumbers every section to its index.
func AddSectionAt(sections []models.Section, tmpl models.SectionTemplate, position int, ids IDGenerator) []models.Section {
	position = clamp(position, 0, len(sections))

	result := make([]models.Section, 0, len(sections)+1)
	result = append(result, Clone(sections[:position])...)
	result = append(result, newSection(tmpl, position, ids))
	result = append(result, Clone(sections[position:])...)
	renumber(result)
	return result
}

// UpdateSection replaces the props of the section with the given id
// wholesale. Unknown ids and mismatched props leave the input unchanged.
func UpdateSection(sections []models.Section, id string, props models.SectionProps) []models.Section {
	result, err := UpdateSectionChecked(sections, id, props)
	if err != nil {
		return sections
	}
	return result
}

// UpdateSectionChecked is UpdateSection that reports misuse: props whose
// variant does not match the section type yield ErrPropsTypeMismatch.
func UpdateSectionChecked(sections []models.Section, id string, props models.SectionProps) ([]models.Section, error) {
	index := IndexOf(sections, id)
	if index < 0 {
		return sections, nil
	}
	target := sections[index]
	if props == nil {
		props = models.NewProps(target.Type)
	}
	if !props.Supports(target.Type) {
		return sections, fmt.Errorf("%w: section %s is %s, got %T", ErrPropsTypeMismatch, id, target.Type, props)
	}

	result := Clone(sections)
	result[index].Props = props.Clone()
	return result, nil
}

// DeleteSection removes the section with the given id. Survivors keep their
// order values, so gaps may remain until the next renumbering operation.
func DeleteSection(sections []models.Section, id string) []models.Section {
	if IndexOf(sections, id) < 0 {
		return sections
	}

	result := make([]models.Section, 0, len(sections)-1)
	for _, section := range sections {
		if section.ID != id {
			result = append(result, section.Clone())
		}
	}
	return result
}

// Reorder returns the sections in the order of orderedIDs with order set to
// each new index. It reports false and returns the input unchanged when
// orderedIDs is not a permutation of the existing ids.
func Reorder(sections []models.Section, orderedIDs []string) ([]models.Section, bool) {
	if len(orderedIDs) != len(sections) {
		return sections, false
	}

	byID := make(map[string]models.Section, len(sections))
	for _, section := range sections {
		byID[section.ID] = section
	}
	if len(byID) != len(sections) {
		return sections, false
	}

	seen := make(map[string]struct{}, len(orderedIDs))
	result := make([]models.Section, 0, len(orderedIDs))
	for i, id := range orderedIDs {
		section, ok := byID[id]
		if !ok {
			return sections, false
		}
		if _, dup := seen[id]; dup {
			return sections, false
		}
		seen[id] = struct{}{}

		section = section.Clone()
		section.Order = i
		result = append(result, section)
	}
	return result, true
}

// Clone deep-copies a section list. A nil input yields an empty, non-nil slice.
func Clone(sections []models.Section) []models.Section {
	result := make([]models.Section, len(sections))
	for i, section := range sections {
		result[i] = section.Clone()
	}
	return result
}

// Equal reports whether two section lists hold the same sections in the same order.
func Equal(a, b []models.Section) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID || a[i].Type != b[i].Type || a[i].Order != b[i].Order {
			return false
		}
		if !reflect.DeepEqual(a[i].Props, b[i].Props) {
			return false
		}
	}
	return true
}

// IndexOf returns the slice index of the section with id, or -1.
func IndexOf(sections []models.Section, id string) int {
	for i, section := range sections {
		if section.ID == id {
			return i
		}
	}
	return -1
}

// Find returns a copy of the section with id.
func Find(sections []models.Section, id string) (models.Section, bool) {
	index := IndexOf(sections, id)
	if index < 0 {
		return models.Section{}, false
	}
	return sections[index].Clone(), true
}

// IDs returns the section ids in slice order.
func IDs(sections []models.Section) []string {
	ids := make([]string, len(sections))
	for i, section := range sections {
		ids[i] = section.ID
	}
	return ids
}

// Normalize sorts sections by their order value (stable for ties) and
// renumbers them to 0..n-1.
func Normalize(sections []models.Section) []models.Section {
	result := Clone(sections)
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Order < result[j].Order
	})
	renumber(result)
	return result
}

// HasContiguousOrder reports whether the order values are exactly 0..n-1 in slice order.
func HasContiguousOrder(sections []models.Section) bool {
	for i, section := range sections {
		if section.Order != i {
			return false
		}
	}
	return true
}

func newSection(tmpl models.SectionTemplate, order int, ids IDGenerator) models.Section {
	props := tmpl.DefaultProps
	if props == nil {
		props = models.NewProps(tmpl.Type)
	} else {
		props = props.Clone()
	}
	return models.Section{
		ID:    ids.NewID(tmpl.Type),
		Type:  tmpl.Type,
		Props: props,
		Order: order,
	}
}

func renumber(sections []models.Section) {
	for i := range sections {
		sections[i].Order = i
	}
}

func clamp(value, low, high int) int {
	if value < low {
		return low
	}
	if value > high {
		return high
	}
	return value
}
