package constants

import "time"

const (
	// MaxHistorySize caps the number of undoable actions kept by the builder.
	MaxHistorySize = 50

	// AutoSaveKey is the fixed store key of the single auto-save record.
	AutoSaveKey = "mini-website-builder-autosave"
	// AutoSaveVersion is written into every auto-save record.
	AutoSaveVersion = "1.0.0"
	// AutoSaveDebounce is the trailing quiet period before a flush.
	AutoSaveDebounce = 2000 * time.Millisecond
	// AutoSaveRetention is the age after which a persisted record is stale.
	AutoSaveRetention = 30 * 24 * time.Hour
	// AutoSaveName and AutoSaveDescription label auto-saved documents.
	AutoSaveName        = "Auto-saved Website"
	AutoSaveDescription = "Automatically saved website builder project"

	// EditSettleDelay is the quiet period after which property edits and
	// color drags are committed to history.
	EditSettleDelay = 300 * time.Millisecond

	// ExportVersion is the portable document version produced by export.
	ExportVersion = "1.0.0"
	// DefaultExportDescription, DefaultExportAuthor fill missing metadata.
	DefaultExportDescription = "Exported website configuration"
	DefaultExportAuthor      = "Website Builder User"
	// DefaultExportFilename is used when the metadata name slugifies to nothing.
	DefaultExportFilename = "website-export"
)

// DefaultExportTags returns the tags attached to exports without explicit tags.
func DefaultExportTags() []string {
	return []string{"website", "builder"}
}

// Fallback colors used by renderers when a section leaves a color unset.
const (
	HeroBackgroundColor    = "#1e40af"
	HeroTextColor          = "#ffffff"
	HeaderBackgroundColor  = "#ffffff"
	HeaderTextColor        = "#1f2937"
	ContentBackgroundColor = "#ffffff"
	ContentTextColor       = "#374151"
	FooterBackgroundColor  = "#1f2937"
	FooterTextColor        = "#ffffff"
)
