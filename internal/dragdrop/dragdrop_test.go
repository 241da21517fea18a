package dragdrop

import (
	"reflect"
	"testing"

	"page-composer-backend/internal/document"
	"page-composer-backend/internal/history"
	"page-composer-backend/internal/models"
	"page-composer-backend/internal/sections"
)

func page(ids ...string) []models.Section {
	result := make([]models.Section, len(ids))
	for i, id := range ids {
		result[i] = models.Section{ID: id, Type: models.SectionContent, Props: models.ContentProps{}, Order: i}
	}
	return result
}

func TestSectionOntoGapMovesToFront(t *testing.T) {
	input := page("content#2", "content#3", "hero#1")

	result := Resolve(input, Gesture{Active: SectionSource("hero#1"), Over: AtGap(0)}, document.NewSequenceGenerator(10))

	if !result.Changed || result.Action != history.ActionReorder {
		t.Fatalf("expected a reorder, got %+v", result)
	}
	want := []string{"hero#1", "content#2", "content#3"}
	if !reflect.DeepEqual(document.IDs(result.Sections), want) {
		t.Fatalf("expected %v, got %v", want, document.IDs(result.Sections))
	}
	for i, section := range result.Sections {
		if section.Order != i {
			t.Fatalf("section %s has order %d, want %d", section.ID, section.Order, i)
		}
	}
}

func TestSectionOntoGapAdjustsForRemoval(t *testing.T) {
	cases := []struct {
		name     string
		active   string
		position int
		want     []string
	}{
		{"down past next", "a", 2, []string{"b", "a", "c", "d"}},
		{"down to end", "a", 4, []string{"b", "c", "d", "a"}},
		{"gap right after itself", "b", 2, []string{"a", "b", "c", "d"}},
		{"up", "d", 1, []string{"a", "d", "b", "c"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := page("a", "b", "c", "d")
			result := Resolve(input, Gesture{Active: SectionSource(tc.active), Over: AtGap(tc.position)}, nil)
			if !reflect.DeepEqual(document.IDs(result.Sections), tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, document.IDs(result.Sections))
			}
		})
	}
}

func TestSectionOntoSection(t *testing.T) {
	input := page("a", "b", "c")

	result := Resolve(input, Gesture{Active: SectionSource("a"), Over: OnSection("c")}, nil)

	if !reflect.DeepEqual(document.IDs(result.Sections), []string{"b", "c", "a"}) {
		t.Fatalf("unexpected order %v", document.IDs(result.Sections))
	}
}

func TestTemplateOntoGapInserts(t *testing.T) {
	input := page("a", "b")

	result := Resolve(input, Gesture{Active: TemplateSource(sections.HeroTemplate()), Over: AtGap(1)}, document.NewSequenceGenerator(7))

	if !result.Changed || result.Action != history.ActionAdd {
		t.Fatalf("expected an add, got %+v", result)
	}
	if !reflect.DeepEqual(document.IDs(result.Sections), []string{"a", "hero#7", "b"}) {
		t.Fatalf("unexpected order %v", document.IDs(result.Sections))
	}
	if !document.HasContiguousOrder(result.Sections) {
		t.Fatalf("order not contiguous")
	}
}

func TestTemplateOntoSectionInsertsBeforeIt(t *testing.T) {
	input := page("a", "b")

	result := Resolve(input, Gesture{Active: TemplateSource(sections.FooterTemplate()), Over: OnSection("b")}, document.NewSequenceGenerator(1))

	if !reflect.DeepEqual(document.IDs(result.Sections), []string{"a", "footer#1", "b"}) {
		t.Fatalf("unexpected order %v", document.IDs(result.Sections))
	}
}

func TestNoOpGestures(t *testing.T) {
	input := page("a", "b", "c")
	cases := map[string]Gesture{
		"cancelled":          {Active: SectionSource("a")},
		"dropped on itself":  {Active: SectionSource("b"), Over: OnSection("b")},
		"unknown source":     {Active: SectionSource("zzz"), Over: AtGap(0)},
		"unknown target":     {Active: SectionSource("a"), Over: OnSection("zzz")},
		"same position":      {Active: SectionSource("a"), Over: AtGap(0)},
		"template cancelled": {Active: TemplateSource(sections.HeroTemplate())},
		"empty target":       {Active: SectionSource("a"), Over: &Target{}},
	}

	for name, gesture := range cases {
		t.Run(name, func(t *testing.T) {
			result := Resolve(input, gesture, document.NewSequenceGenerator(1))
			if result.Changed {
				t.Fatalf("expected no change, got %v", document.IDs(result.Sections))
			}
			if !document.Equal(result.Sections, input) {
				t.Fatalf("expected sections unchanged")
			}
		})
	}
}

func TestResolveDoesNotMutateInput(t *testing.T) {
	input := page("a", "b", "c")
	Resolve(input, Gesture{Active: SectionSource("c"), Over: AtGap(0)}, nil)

	if !reflect.DeepEqual(document.IDs(input), []string{"a", "b", "c"}) || input[0].Order != 0 {
		t.Fatalf("input was mutated: %+v", input)
	}
}
