package models

import "encoding/json"

// SectionTemplate is a read-only catalog entry used to seed new sections.
type SectionTemplate struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Type         SectionType  `json:"type"`
	Description  string       `json:"description"`
	DefaultProps SectionProps `json:"defaultProps"`
	Preview      string       `json:"preview"`
}

// AddSectionRequest represents a request to add a catalog template to the page.
// A nil position appends at the end.
type AddSectionRequest struct {
	TemplateID string `json:"template_id" binding:"required"`
	Position   *int   `json:"position,omitempty"`
}

// UpdateSectionRequest carries either a full props object or a field patch.
type UpdateSectionRequest struct {
	Props         json.RawMessage        `json:"props,omitempty"`
	Patch         map[string]interface{} `json:"patch,omitempty"`
	RecordHistory *bool                  `json:"record_history,omitempty"`
}

// ReorderSectionsRequest lists every section id in the desired order.
type ReorderSectionsRequest struct {
	SectionIDs []string `json:"section_ids" binding:"required"`
}

// DropRequest describes a finished drag gesture. Exactly one of
// ActiveSectionID and ActiveTemplateID identifies the dragged entity; a
// missing target means the gesture was cancelled.
type DropRequest struct {
	ActiveSectionID  string `json:"active_section_id,omitempty"`
	ActiveTemplateID string `json:"active_template_id,omitempty"`
	OverSectionID    string `json:"over_section_id,omitempty"`
	OverPosition     *int   `json:"over_position,omitempty"`
}

// SelectSectionRequest selects a section; an empty id clears the selection.
type SelectSectionRequest struct {
	SectionID string `json:"section_id"`
}

// ToggleAutoSaveRequest switches auto-save on or off.
type ToggleAutoSaveRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// EditSectionRequest is a high-frequency property edit that settles into a
// single history entry.
type EditSectionRequest struct {
	Fields map[string]interface{} `json:"fields" binding:"required"`
}

// ExportRequest overrides export metadata. Empty fields keep their defaults.
type ExportRequest struct {
	Name        string   `json:"name" binding:"omitempty,max=200,no_html"`
	Description string   `json:"description" binding:"omitempty,max=1000"`
	Author      string   `json:"author" binding:"omitempty,max=200,no_html"`
	Tags        []string `json:"tags" binding:"omitempty,max=20,dive,max=50"`
	URL         string   `json:"url" binding:"omitempty,url"`
	Format      string   `json:"format" binding:"omitempty,oneof=json yaml yml"`
}

// ImportRequest holds the merge options of an upload, sent as form or
// query values next to the file.
type ImportRequest struct {
	ReplaceExisting bool   `form:"replace_existing"`
	PreserveIDs     bool   `form:"preserve_ids"`
	MergeMode       string `form:"merge_mode" binding:"omitempty,oneof=replace append prepend"`
	Filename        string `form:"filename"`
}

// BuilderConfig describes the catalog and limits exposed to the editor UI.
type BuilderConfig struct {
	Templates       []SectionTemplate `json:"templates"`
	SectionTypes    []SectionType     `json:"section_types"`
	MaxHistorySize  int               `json:"max_history_size"`
	AutoSaveDelayMS int64             `json:"autosave_delay_ms"`
	EditSettleMS    int64             `json:"edit_settle_ms"`
	ExportVersion   string            `json:"export_version"`
	AutoSaveEnabled bool              `json:"autosave_enabled"`
	RetentionDays   int               `json:"retention_days"`
}
