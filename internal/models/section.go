package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// SectionType identifies the kind of block a section renders as.
type SectionType string

const (
	SectionHero        SectionType = "hero"
	SectionHeader      SectionType = "header"
	SectionFooter      SectionType = "footer"
	SectionContent     SectionType = "content"
	SectionGallery     SectionType = "gallery"
	SectionContact     SectionType = "contact"
	SectionTestimonial SectionType = "testimonial"
)

// ErrUnknownSectionType is returned when a type is outside the closed enumeration.
var ErrUnknownSectionType = errors.New("unknown section type")

// SectionTypes lists every known section type in declaration order.
func SectionTypes() []SectionType {
	return []SectionType{
		SectionHero,
		SectionHeader,
		SectionFooter,
		SectionContent,
		SectionGallery,
		SectionContact,
		SectionTestimonial,
	}
}

// ParseSectionType normalises the input and reports whether it names a known type.
func ParseSectionType(value string) (SectionType, bool) {
	candidate := SectionType(strings.TrimSpace(strings.ToLower(value)))
	return candidate, candidate.IsValid()
}

func (t SectionType) IsValid() bool {
	switch t {
	case SectionHero, SectionHeader, SectionFooter, SectionContent,
		SectionGallery, SectionContact, SectionTestimonial:
		return true
	}
	return false
}

// Section is a placed, orderable instance of a template.
type Section struct {
	ID    string       `json:"id"`
	Type  SectionType  `json:"type"`
	Props SectionProps `json:"props"`
	Order int          `json:"order"`
}

type sectionWire struct {
	ID    string          `json:"id"`
	Type  SectionType     `json:"type"`
	Props json.RawMessage `json:"props"`
	Order int             `json:"order"`
}

func (s Section) MarshalJSON() ([]byte, error) {
	props := s.Props
	if props == nil {
		props = NewProps(s.Type)
	}
	encoded, err := json.Marshal(props)
	if err != nil {
		return nil, fmt.Errorf("section %s: %w", s.ID, err)
	}
	return json.Marshal(sectionWire{ID: s.ID, Type: s.Type, Props: encoded, Order: s.Order})
}

func (s *Section) UnmarshalJSON(data []byte) error {
	var wire sectionWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	props, err := DecodeProps(wire.Type, wire.Props)
	if err != nil {
		return fmt.Errorf("section %s: %w", wire.ID, err)
	}
	s.ID = wire.ID
	s.Type = wire.Type
	s.Props = props
	s.Order = wire.Order
	return nil
}

// Clone returns a deep copy of the section.
func (s Section) Clone() Section {
	clone := s
	if s.Props != nil {
		clone.Props = s.Props.Clone()
	}
	return clone
}

// DecodeProps decodes raw props JSON into the variant that belongs to sectionType.
// Unknown keys are dropped; an empty payload yields the zero variant.
func DecodeProps(sectionType SectionType, raw json.RawMessage) (SectionProps, error) {
	target := newPropsTarget(sectionType)
	if target == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSectionType, sectionType)
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null")) {
		if err := json.Unmarshal(trimmed, target); err != nil {
			return nil, fmt.Errorf("decode %s props: %w", sectionType, err)
		}
	}
	return derefProps(target, sectionType), nil
}

// PatchProps overlays the top-level fields of patch on props and returns the
// resulting variant. Keys absent from patch keep their current value.
func PatchProps(sectionType SectionType, props SectionProps, patch map[string]interface{}) (SectionProps, error) {
	current := map[string]interface{}{}
	if props != nil {
		encoded, err := json.Marshal(props)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(encoded, &current); err != nil {
			return nil, err
		}
	}
	for key, value := range patch {
		current[key] = value
	}
	merged, err := json.Marshal(current)
	if err != nil {
		return nil, err
	}
	return DecodeProps(sectionType, merged)
}
