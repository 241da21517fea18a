package exchange

import (
	"fmt"

	"page-composer-backend/internal/document"
	"page-composer-backend/internal/models"
	"page-composer-backend/pkg/validator"
)

// MergeMode decides where imported sections go relative to existing ones.
type MergeMode string

const (
	MergeReplace MergeMode = "replace"
	MergeAppend  MergeMode = "append"
	MergePrepend MergeMode = "prepend"
)

// Options controls how an import is merged into the current page.
type Options struct {
	ReplaceExisting bool      `json:"replaceExisting"`
	PreserveIDs     bool      `json:"preserveIds"`
	MergeMode       MergeMode `json:"mergeMode" validate:"omitempty,oneof=replace append prepend"`
}

// DefaultOptions appends imported sections under fresh ids.
func DefaultOptions() Options {
	return Options{MergeMode: MergeAppend}
}

// Mode resolves the effective merge mode. ReplaceExisting forces replace and
// an empty mode means replace.
func (o Options) Mode() MergeMode {
	if o.ReplaceExisting || o.MergeMode == "" {
		return MergeReplace
	}
	return o.MergeMode
}

func (o Options) Validate() error {
	if err := validator.Validate(o); err != nil {
		return fmt.Errorf("invalid import options: %w", err)
	}
	return nil
}

// Merge combines imported and existing sections according to opts and
// renumbers order to 0..n-1. Without PreserveIDs every imported section gets
// a fresh id; with it, only ids colliding with a kept section or with an
// earlier imported section are re-issued. Neither input is mutated.
func Merge(imported, existing []models.Section, opts Options, ids document.IDGenerator) ([]models.Section, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	mode := opts.Mode()
	kept := existing
	if mode == MergeReplace {
		kept = nil
	}

	taken := make(map[string]struct{}, len(kept)+len(imported))
	for _, section := range kept {
		taken[section.ID] = struct{}{}
	}

	incoming := document.Clone(imported)
	for i := range incoming {
		_, collides := taken[incoming[i].ID]
		if !opts.PreserveIDs || collides || incoming[i].ID == "" {
			incoming[i].ID = ids.NewID(incoming[i].Type)
		}
		taken[incoming[i].ID] = struct{}{}
		if incoming[i].Props == nil {
			incoming[i].Props = models.NewProps(incoming[i].Type)
		}
	}

	var combined []models.Section
	switch mode {
	case MergeAppend:
		combined = append(document.Clone(kept), incoming...)
	case MergePrepend:
		combined = append(incoming, document.Clone(kept)...)
	default:
		combined = incoming
	}

	for i := range combined {
		combined[i].Order = i
	}
	return combined, nil
}
