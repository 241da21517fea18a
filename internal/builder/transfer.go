package builder

import (
	"context"
	"errors"
	"fmt"

	"page-composer-backend/internal/autosave"
	"page-composer-backend/internal/document"
	"page-composer-backend/internal/exchange"
	"page-composer-backend/internal/history"
	"page-composer-backend/pkg/logger"
)

// ErrAutoSaveUnavailable is returned by auto-save actions on a session
// created without a store.
var ErrAutoSaveUnavailable = errors.New("auto-save is not configured")

// ExportResult reports the outcome of ExportDocument.
type ExportResult struct {
	Success  bool   `json:"success"`
	Filename string `json:"filename,omitempty"`
	Error    string `json:"error,omitempty"`
}

// ImportResult reports the outcome of ImportDocument. Errors lists every
// validation problem of a rejected file.
type ImportResult struct {
	Success  bool     `json:"success"`
	Error    string   `json:"error,omitempty"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
	Imported int      `json:"imported"`
}

// ExportDocument serialises the page with overrides applied on top of the
// default metadata and hands it to the downloader. The page, history and
// pending property edits are left untouched; the export shows the page as
// currently displayed.
func (c *Controller) ExportDocument(ctx context.Context, overrides exchange.Metadata, format exchange.Format) ExportResult {
	return c.ExportDocumentTo(ctx, c.downloader, overrides, format)
}

// ExportDocumentTo is ExportDocument with an explicit download target, for
// transports that answer each request with its own file.
func (c *Controller) ExportDocumentTo(ctx context.Context, downloader exchange.Downloader, overrides exchange.Metadata, format exchange.Format) ExportResult {
	c.mu.Lock()
	current := document.Clone(c.sections)
	now := c.now()
	c.mu.Unlock()

	doc := exchange.Export(current, overrides, now)
	data, err := exchange.Encode(doc, format)
	if err != nil {
		logger.Error(err, "Failed to encode export", nil)
		return ExportResult{Error: err.Error()}
	}

	filename := exchange.Filename(doc.Metadata, now, format)
	if err := downloader.Download(ctx, filename, data); err != nil {
		logger.Error(err, "Failed to deliver export", map[string]interface{}{"filename": filename})
		return ExportResult{Error: fmt.Sprintf("Failed to export document: %v", err)}
	}

	logger.Info("Document exported", map[string]interface{}{"filename": filename, "sections": len(current)})
	return ExportResult{Success: true, Filename: filename}
}

// ImportDocument reads a file from picker, validates it and merges it into
// the page as a single undoable action. Rejected files change nothing.
func (c *Controller) ImportDocument(ctx context.Context, picker exchange.FilePicker, opts exchange.Options) ImportResult {
	if err := opts.Validate(); err != nil {
		return ImportResult{Error: err.Error()}
	}

	file, err := picker.Pick(ctx)
	if errors.Is(err, exchange.ErrCancelled) {
		return ImportResult{Error: "Import cancelled"}
	}
	if err != nil {
		return ImportResult{Error: fmt.Sprintf("Failed to read file: %v", err)}
	}

	validation := exchange.ParseAndValidate(file.Data, exchange.FormatFromFilename(file.Name))
	if !validation.IsValid {
		logger.Warn("Rejected import", map[string]interface{}{"file": file.Name, "errors": len(validation.Errors)})
		return ImportResult{
			Error:    "Import validation failed",
			Errors:   validation.Errors,
			Warnings: validation.Warnings,
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.settleEditsLocked()
	merged, err := exchange.Merge(validation.Data.Sections, c.sections, opts, c.ids)
	if err != nil {
		return ImportResult{Error: err.Error(), Warnings: validation.Warnings}
	}

	imported := len(validation.Data.Sections)
	if !document.Equal(merged, c.sections) {
		if c.selectedID != "" && document.IndexOf(merged, c.selectedID) < 0 {
			c.selectedID = ""
		}
		c.commitLocked(merged, history.ActionAdd, fmt.Sprintf("Import %d sections", imported))
	}

	c.logAction("Document imported", map[string]interface{}{"file": file.Name, "imported": imported, "mode": opts.Mode()})
	return ImportResult{Success: true, Warnings: validation.Warnings, Imported: imported}
}

// ToggleAutoSave switches auto-save. Enabling it schedules a save of the
// current page when it differs from the stored one.
func (c *Controller) ToggleAutoSave(enabled bool) error {
	if c.saver == nil {
		return ErrAutoSaveUnavailable
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.saver.SetEnabled(enabled)
	if enabled {
		c.observeLocked()
	}
	c.publishLocked("TOGGLE_AUTOSAVE")
	return nil
}

// SaveNow writes pending changes without waiting for the debounce.
func (c *Controller) SaveNow(ctx context.Context) error {
	if c.saver == nil {
		return ErrAutoSaveUnavailable
	}
	c.editor.Flush()
	return c.saver.Flush(ctx)
}

// ClearAutoSavedData deletes the stored record.
func (c *Controller) ClearAutoSavedData(ctx context.Context) error {
	if c.saver == nil {
		return ErrAutoSaveUnavailable
	}
	if err := c.saver.Clear(ctx); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.recovery = nil
	c.publishLocked("CLEAR_AUTOSAVE")
	return nil
}

// CheckRecovery looks for a stored record at session start. The returned
// summary, if any, stays in the snapshot until the recovery is accepted or
// dismissed.
func (c *Controller) CheckRecovery(ctx context.Context) (*autosave.Info, error) {
	if c.saver == nil {
		return nil, nil
	}
	info, err := c.saver.Prime(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.recovery = info
	if info != nil {
		logger.Info("Auto-saved data available for recovery", map[string]interface{}{"sections": info.SectionsCount, "saved_at": info.LastSaved})
	}
	c.publishLocked("CHECK_RECOVERY")
	return info, nil
}

// AcceptRecovery replaces the page with the stored sections. This starts a
// fresh session: history and selection are reset and the recovered page is
// not saved again until it changes. It reports false when nothing is stored.
func (c *Controller) AcceptRecovery(ctx context.Context) (bool, error) {
	if c.saver == nil {
		return false, ErrAutoSaveUnavailable
	}
	record, err := c.saver.Load(ctx)
	if err != nil {
		return false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.recovery = nil
	if record == nil {
		c.publishLocked("ACCEPT_RECOVERY")
		return false, nil
	}

	c.editor.settle.Cancel()
	c.editBase = nil
	c.editIDs = nil

	recovered := record.Sections
	if !document.HasContiguousOrder(recovered) {
		recovered = document.Normalize(recovered)
		c.logAction("Renumbered recovered sections", map[string]interface{}{"sections": len(recovered)})
	}
	c.sections = recovered
	c.selectedID = ""
	c.log.Clear()
	c.saver.MarkSynced(c.sections, record.SavedAt())
	c.publishLocked("ACCEPT_RECOVERY")

	c.logAction("Recovered auto-saved data", map[string]interface{}{"saved_at": record.SavedAt()})
	return true, nil
}

// DismissRecovery declines the stored record and deletes it.
func (c *Controller) DismissRecovery(ctx context.Context) error {
	if c.saver == nil {
		return ErrAutoSaveUnavailable
	}
	if err := c.saver.Clear(ctx); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.recovery = nil
	c.publishLocked("DISMISS_RECOVERY")
	return nil
}
