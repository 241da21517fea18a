package models

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestSectionUnmarshalDispatchesOnType(t *testing.T) {
	payload := `{"id":"header-1","type":"header","order":2,"props":{"title":"Brand","navLinks":[{"name":"Home","href":"/"}],"unknown":"dropped"}}`

	var section Section
	if err := json.Unmarshal([]byte(payload), &section); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	props, ok := section.Props.(HeaderProps)
	if !ok {
		t.Fatalf("expected HeaderProps, got %T", section.Props)
	}
	if props.Title != "Brand" || len(props.NavLinks) != 1 || props.NavLinks[0].Href != "/" {
		t.Fatalf("unexpected props: %+v", props)
	}
	if section.Order != 2 || section.ID != "header-1" {
		t.Fatalf("unexpected section fields: %+v", section)
	}
}

func TestSectionUnmarshalRejectsUnknownType(t *testing.T) {
	var section Section
	err := json.Unmarshal([]byte(`{"id":"x","type":"carousel","props":{},"order":0}`), &section)
	if !errors.Is(err, ErrUnknownSectionType) {
		t.Fatalf("expected ErrUnknownSectionType, got %v", err)
	}
}

func TestSectionMarshalFillsMissingProps(t *testing.T) {
	encoded, err := json.Marshal(Section{ID: "hero-1", Type: SectionHero})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(encoded) != `{"id":"hero-1","type":"hero","props":{},"order":0}` {
		t.Fatalf("unexpected encoding: %s", encoded)
	}
}

func TestSectionCloneDoesNotShareSlices(t *testing.T) {
	original := Section{
		ID:   "footer-1",
		Type: SectionFooter,
		Props: FooterProps{
			FooterLinks: []FooterLinkGroup{{Title: "Company", Links: []NavLink{{Name: "About", Href: "/about"}}}},
		},
	}

	clone := original.Clone()
	clone.Props.(FooterProps).FooterLinks[0].Links[0].Name = "Changed"

	if original.Props.(FooterProps).FooterLinks[0].Links[0].Name != "About" {
		t.Fatalf("clone mutated the original footer links")
	}
}

func TestPatchPropsOverlaysTopLevelFields(t *testing.T) {
	props := HeroProps{Title: "Welcome", BackgroundColor: "#1e40af"}

	patched, err := PatchProps(SectionHero, props, map[string]interface{}{"backgroundColor": "#000000", "subtitle": "New"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	hero := patched.(HeroProps)
	if hero.Title != "Welcome" || hero.BackgroundColor != "#000000" || hero.Subtitle != "New" {
		t.Fatalf("unexpected patched props: %+v", hero)
	}
	if props.BackgroundColor != "#1e40af" {
		t.Fatalf("patch mutated the input props")
	}
}

func TestPropsSupportsOnlyOwnType(t *testing.T) {
	cases := []struct {
		props SectionProps
		kind  SectionType
		want  bool
	}{
		{HeroProps{}, SectionHero, true},
		{HeroProps{}, SectionContent, false},
		{GenericProps{}, SectionGallery, true},
		{GenericProps{}, SectionTestimonial, true},
		{GenericProps{}, SectionFooter, false},
		{FooterProps{}, SectionFooter, true},
	}

	for _, tc := range cases {
		if got := tc.props.Supports(tc.kind); got != tc.want {
			t.Fatalf("%T.Supports(%s) = %v, want %v", tc.props, tc.kind, got, tc.want)
		}
	}
}

func TestParseSectionTypeNormalises(t *testing.T) {
	if kind, ok := ParseSectionType("  Hero "); !ok || kind != SectionHero {
		t.Fatalf("expected hero, got %q (%v)", kind, ok)
	}
	if _, ok := ParseSectionType("pricing"); ok {
		t.Fatalf("expected pricing to be rejected")
	}
}
