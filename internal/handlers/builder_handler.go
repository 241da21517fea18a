package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"page-composer-backend/internal/builder"
	"page-composer-backend/internal/document"
	"page-composer-backend/internal/dragdrop"
	"page-composer-backend/internal/exchange"
	"page-composer-backend/internal/models"
	"page-composer-backend/internal/sections"
	"page-composer-backend/pkg/logger"
	"page-composer-backend/pkg/validator"
)

const defaultImportFilename = "import.json"

// BuilderHandler exposes one editing session over HTTP.
type BuilderHandler struct {
	controller    *builder.Controller
	maxImportSize int64
}

func NewBuilderHandler(controller *builder.Controller, maxImportSize int64) *BuilderHandler {
	return &BuilderHandler{
		controller:    controller,
		maxImportSize: maxImportSize,
	}
}

// RegisterRoutes mounts the builder API on group. Transfer middleware wraps
// only export and import.
func (h *BuilderHandler) RegisterRoutes(group *gin.RouterGroup, transfer ...gin.HandlerFunc) {
	group.GET("/state", h.GetState)
	group.GET("/templates", h.GetTemplates)
	group.GET("/events", h.Events)

	group.POST("/sections", h.AddSection)
	group.POST("/sections/reorder", h.ReorderSections)
	group.PUT("/sections/:id", h.UpdateSection)
	group.PATCH("/sections/:id", h.EditSection)
	group.DELETE("/sections/:id", h.DeleteSection)
	group.POST("/edits/flush", h.FlushEdits)
	group.POST("/edits/cancel", h.CancelEdits)

	group.POST("/drop", h.Drop)
	group.POST("/select", h.SelectSection)
	group.POST("/preview", h.TogglePreview)

	group.POST("/undo", h.Undo)
	group.POST("/redo", h.Redo)
	group.GET("/history", h.GetHistory)

	group.POST("/export", withMiddleware(transfer, h.Export)...)
	group.POST("/import", withMiddleware(transfer, h.Import)...)

	group.GET("/autosave", h.GetAutoSave)
	group.PUT("/autosave", h.ToggleAutoSave)
	group.DELETE("/autosave", h.ClearAutoSave)
	group.POST("/autosave/flush", h.SaveNow)

	group.GET("/recovery", h.CheckRecovery)
	group.POST("/recovery/accept", h.AcceptRecovery)
	group.POST("/recovery/dismiss", h.DismissRecovery)
}

func withMiddleware(middleware []gin.HandlerFunc, handler gin.HandlerFunc) []gin.HandlerFunc {
	chain := make([]gin.HandlerFunc, 0, len(middleware)+1)
	chain = append(chain, middleware...)
	return append(chain, handler)
}

// GetState returns the full session state with the effective colors of
// every section.
// GET /api/v1/builder/state
func (h *BuilderHandler) GetState(c *gin.Context) {
	snapshot := h.controller.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"state":  snapshot,
		"colors": resolvedColors(snapshot.Sections),
	})
}

func resolvedColors(list []models.Section) map[string]gin.H {
	colors := make(map[string]gin.H, len(list))
	for _, section := range list {
		background, text := sections.ResolveColors(section)
		colors[section.ID] = gin.H{"background": background, "text": text}
	}
	return colors
}

// GetTemplates returns the section catalog and editor limits.
// GET /api/v1/builder/templates
func (h *BuilderHandler) GetTemplates(c *gin.Context) {
	cfg := h.controller.Config()
	c.JSON(http.StatusOK, gin.H{
		"templates": cfg.Templates,
		"config":    cfg,
	})
}

// AddSection adds a catalog template at the end or at a position.
// POST /api/v1/builder/sections
func (h *BuilderHandler) AddSection(c *gin.Context) {
	var req models.AddSectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	var (
		section models.Section
		err     error
	)
	if req.Position != nil {
		section, err = h.controller.AddTemplateAt(req.TemplateID, *req.Position)
	} else {
		section, err = h.controller.AddTemplate(req.TemplateID)
	}
	if errors.Is(err, sections.ErrTemplateNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "template not found"})
		return
	}
	if err != nil {
		logger.Error(err, "Failed to add section", map[string]interface{}{"template_id": req.TemplateID})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add section"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"section": section, "state": h.controller.Snapshot()})
}

// UpdateSection replaces or patches the props of a section.
// PUT /api/v1/builder/sections/:id
func (h *BuilderHandler) UpdateSection(c *gin.Context) {
	sectionID := c.Param("id")
	section, ok := document.Find(h.controller.Sections(), sectionID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "section not found"})
		return
	}

	var req models.UpdateSectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	record := req.RecordHistory == nil || *req.RecordHistory

	var err error
	switch {
	case len(req.Props) > 0:
		var props models.SectionProps
		props, err = models.DecodeProps(section.Type, req.Props)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid props: %v", err)})
			return
		}
		err = h.controller.UpdateSection(sectionID, props, record)
	case len(req.Patch) > 0:
		err = h.controller.PatchSection(sectionID, req.Patch, record)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "props or patch is required"})
		return
	}

	if err != nil {
		if errors.Is(err, document.ErrPropsTypeMismatch) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		logger.Error(err, "Failed to update section", map[string]interface{}{"section_id": sectionID})
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to update section"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"state": h.controller.Snapshot()})
}

// EditSection applies a live property edit that settles into one history entry.
// PATCH /api/v1/builder/sections/:id
func (h *BuilderHandler) EditSection(c *gin.Context) {
	sectionID := c.Param("id")
	if _, ok := document.Find(h.controller.Sections(), sectionID); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "section not found"})
		return
	}

	var req models.EditSectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	if err := h.controller.Editor().Edit(sectionID, req.Fields); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"state": h.controller.Snapshot()})
}

// FlushEdits commits pending live edits immediately.
// POST /api/v1/builder/edits/flush
func (h *BuilderHandler) FlushEdits(c *gin.Context) {
	committed := h.controller.Editor().Flush()
	c.JSON(http.StatusOK, gin.H{"changed": committed, "state": h.controller.Snapshot()})
}

// CancelEdits reverts pending live edits.
// POST /api/v1/builder/edits/cancel
func (h *BuilderHandler) CancelEdits(c *gin.Context) {
	reverted := h.controller.Editor().Cancel()
	c.JSON(http.StatusOK, gin.H{"changed": reverted, "state": h.controller.Snapshot()})
}

// DeleteSection removes a section.
// DELETE /api/v1/builder/sections/:id
func (h *BuilderHandler) DeleteSection(c *gin.Context) {
	if !h.controller.DeleteSection(c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "section not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": h.controller.Snapshot()})
}

// ReorderSections applies a full ordering of section ids.
// POST /api/v1/builder/sections/reorder
func (h *BuilderHandler) ReorderSections(c *gin.Context) {
	var req models.ReorderSectionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	changed := h.controller.ReorderSections(req.SectionIDs)
	c.JSON(http.StatusOK, gin.H{"changed": changed, "state": h.controller.Snapshot()})
}

// Drop resolves a finished drag gesture.
// POST /api/v1/builder/drop
func (h *BuilderHandler) Drop(c *gin.Context) {
	var req models.DropRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	gesture, err := h.gesture(req)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, sections.ErrTemplateNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	result := h.controller.Drop(gesture)
	c.JSON(http.StatusOK, gin.H{
		"changed":     result.Changed,
		"action":      result.Action,
		"description": result.Description,
		"state":       h.controller.Snapshot(),
	})
}

func (h *BuilderHandler) gesture(req models.DropRequest) (dragdrop.Gesture, error) {
	var gesture dragdrop.Gesture
	switch {
	case req.ActiveTemplateID != "":
		tmpl, err := h.controller.Catalog().Get(req.ActiveTemplateID)
		if err != nil {
			return gesture, err
		}
		gesture.Active = dragdrop.TemplateSource(tmpl)
	case req.ActiveSectionID != "":
		gesture.Active = dragdrop.SectionSource(req.ActiveSectionID)
	default:
		return gesture, errors.New("active_section_id or active_template_id is required")
	}

	switch {
	case req.OverSectionID != "":
		gesture.Over = dragdrop.OnSection(req.OverSectionID)
	case req.OverPosition != nil:
		gesture.Over = dragdrop.AtGap(*req.OverPosition)
	}
	return gesture, nil
}

// SelectSection selects a section or clears the selection.
// POST /api/v1/builder/select
func (h *BuilderHandler) SelectSection(c *gin.Context) {
	var req models.SelectSectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	if !h.controller.SelectSection(req.SectionID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "section not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"selected_section_id": req.SectionID})
}

// TogglePreview flips preview mode.
// POST /api/v1/builder/preview
func (h *BuilderHandler) TogglePreview(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"is_preview_mode": h.controller.TogglePreviewMode()})
}

// Undo reverts the last recorded action.
// POST /api/v1/builder/undo
func (h *BuilderHandler) Undo(c *gin.Context) {
	changed := h.controller.Undo()
	c.JSON(http.StatusOK, gin.H{"changed": changed, "state": h.controller.Snapshot()})
}

// Redo re-applies the last undone action.
// POST /api/v1/builder/redo
func (h *BuilderHandler) Redo(c *gin.Context) {
	changed := h.controller.Redo()
	c.JSON(http.StatusOK, gin.H{"changed": changed, "state": h.controller.Snapshot()})
}

// GetHistory describes the undo log.
// GET /api/v1/builder/history
func (h *BuilderHandler) GetHistory(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"history": h.controller.History()})
}

// Export streams the page as a JSON or YAML attachment.
// POST /api/v1/builder/export
func (h *BuilderHandler) Export(c *gin.Context) {
	var req models.ExportRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
			return
		}
	}
	if req.Format == "" {
		req.Format = c.Query("format")
	}

	format, err := exchange.ParseFormat(req.Format)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	overrides := exchange.Metadata{
		Name:        req.Name,
		Description: req.Description,
		Author:      req.Author,
		Tags:        req.Tags,
		URL:         req.URL,
	}

	download := &exchange.MemoryDownloader{}
	result := h.controller.ExportDocumentTo(c.Request.Context(), download, overrides, format)
	if !result.Success {
		c.JSON(http.StatusInternalServerError, gin.H{"error": result.Error})
		return
	}

	filename, data := download.Last()
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	c.Data(http.StatusOK, format.ContentType(), data)
}

// Import merges an uploaded export into the page. The file is taken from
// the multipart field "file" or from the raw request body.
// POST /api/v1/builder/import
func (h *BuilderHandler) Import(c *gin.Context) {
	var req models.ImportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid import options"})
		return
	}

	file, status, err := h.readImport(c, &req)
	if err != nil {
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	opts := exchange.DefaultOptions()
	opts.ReplaceExisting = req.ReplaceExisting
	opts.PreserveIDs = req.PreserveIDs
	if req.MergeMode != "" {
		opts.MergeMode = exchange.MergeMode(req.MergeMode)
	}

	result := h.controller.ImportDocument(c.Request.Context(), exchange.StaticPicker(file), opts)
	switch {
	case result.Success:
		c.JSON(http.StatusOK, gin.H{"result": result, "state": h.controller.Snapshot()})
	case len(result.Errors) > 0:
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": result.Error, "result": result})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": result.Error, "result": result})
	}
}

func (h *BuilderHandler) readImport(c *gin.Context, req *models.ImportRequest) (exchange.File, int, error) {
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		if err := c.ShouldBindWith(req, binding.FormMultipart); err != nil {
			return exchange.File{}, http.StatusBadRequest, errors.New("invalid import options")
		}
		header, err := c.FormFile("file")
		if err != nil {
			return exchange.File{}, http.StatusBadRequest, errors.New("file is required")
		}
		if !validator.ValidateFileSize(header.Size, h.maxImportSize) {
			return exchange.File{}, http.StatusRequestEntityTooLarge, fmt.Errorf("file must be between 1 and %d bytes", h.maxImportSize)
		}
		if contentType := header.Header.Get("Content-Type"); contentType != "" && !validator.ValidateDocumentContentType(contentType) {
			return exchange.File{}, http.StatusUnsupportedMediaType, fmt.Errorf("unsupported file type %q", contentType)
		}

		src, err := header.Open()
		if err != nil {
			return exchange.File{}, http.StatusBadRequest, errors.New("failed to read file")
		}
		defer src.Close()
		data, err := io.ReadAll(io.LimitReader(src, h.maxImportSize+1))
		if err != nil {
			return exchange.File{}, http.StatusBadRequest, errors.New("failed to read file")
		}
		return exchange.File{Name: validator.SanitizeFilename(header.Filename), Data: data}, 0, nil
	}

	if contentType := c.GetHeader("Content-Type"); contentType != "" && !validator.ValidateDocumentContentType(contentType) {
		return exchange.File{}, http.StatusUnsupportedMediaType, fmt.Errorf("unsupported content type %q", contentType)
	}
	data, err := io.ReadAll(io.LimitReader(c.Request.Body, h.maxImportSize+1))
	if err != nil {
		return exchange.File{}, http.StatusBadRequest, errors.New("failed to read request body")
	}
	if !validator.ValidateFileSize(int64(len(data)), h.maxImportSize) {
		return exchange.File{}, http.StatusRequestEntityTooLarge, fmt.Errorf("body must be between 1 and %d bytes", h.maxImportSize)
	}

	name := req.Filename
	if name == "" {
		name = defaultImportFilename
		if strings.Contains(c.ContentType(), "yaml") {
			name = "import.yaml"
		}
	}
	return exchange.File{Name: validator.SanitizeFilename(name), Data: data}, 0, nil
}

// GetAutoSave returns the auto-save status and any pending recovery.
// GET /api/v1/builder/autosave
func (h *BuilderHandler) GetAutoSave(c *gin.Context) {
	snapshot := h.controller.Snapshot()
	c.JSON(http.StatusOK, gin.H{"autosave": snapshot.AutoSave, "recovery": snapshot.Recovery})
}

// ToggleAutoSave switches auto-save on or off.
// PUT /api/v1/builder/autosave
func (h *BuilderHandler) ToggleAutoSave(c *gin.Context) {
	var req models.ToggleAutoSaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	if err := h.controller.ToggleAutoSave(*req.Enabled); err != nil {
		h.autoSaveError(c, err, "Failed to toggle auto-save")
		return
	}
	c.JSON(http.StatusOK, gin.H{"autosave": h.controller.Snapshot().AutoSave})
}

// SaveNow flushes pending changes without waiting for the debounce.
// POST /api/v1/builder/autosave/flush
func (h *BuilderHandler) SaveNow(c *gin.Context) {
	if err := h.controller.SaveNow(c.Request.Context()); err != nil {
		h.autoSaveError(c, err, "Failed to save")
		return
	}
	c.JSON(http.StatusOK, gin.H{"autosave": h.controller.Snapshot().AutoSave})
}

// ClearAutoSave deletes the stored record.
// DELETE /api/v1/builder/autosave
func (h *BuilderHandler) ClearAutoSave(c *gin.Context) {
	if err := h.controller.ClearAutoSavedData(c.Request.Context()); err != nil {
		h.autoSaveError(c, err, "Failed to clear auto-saved data")
		return
	}
	c.JSON(http.StatusOK, gin.H{"autosave": h.controller.Snapshot().AutoSave})
}

// CheckRecovery reports whether a stored record can be recovered.
// GET /api/v1/builder/recovery
func (h *BuilderHandler) CheckRecovery(c *gin.Context) {
	info, err := h.controller.CheckRecovery(c.Request.Context())
	if err != nil {
		h.autoSaveError(c, err, "Failed to check for recoverable data")
		return
	}
	c.JSON(http.StatusOK, gin.H{"available": info != nil, "recovery": info})
}

// AcceptRecovery replaces the page with the stored record.
// POST /api/v1/builder/recovery/accept
func (h *BuilderHandler) AcceptRecovery(c *gin.Context) {
	recovered, err := h.controller.AcceptRecovery(c.Request.Context())
	if err != nil {
		h.autoSaveError(c, err, "Failed to recover auto-saved data")
		return
	}
	if !recovered {
		c.JSON(http.StatusNotFound, gin.H{"error": "no auto-saved data to recover"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": h.controller.Snapshot()})
}

// DismissRecovery discards the stored record.
// POST /api/v1/builder/recovery/dismiss
func (h *BuilderHandler) DismissRecovery(c *gin.Context) {
	if err := h.controller.DismissRecovery(c.Request.Context()); err != nil {
		h.autoSaveError(c, err, "Failed to dismiss recovery")
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": h.controller.Snapshot()})
}

func (h *BuilderHandler) autoSaveError(c *gin.Context, err error, msg string) {
	if errors.Is(err, builder.ErrAutoSaveUnavailable) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "auto-save is not configured"})
		return
	}
	logger.Error(err, msg, nil)
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}

// Events streams state and auto-save events as server-sent events until the
// client disconnects. Slow clients miss events rather than block the session.
// GET /api/v1/builder/events
func (h *BuilderHandler) Events(c *gin.Context) {
	events := make(chan builder.Event, 64)
	unsubscribe := h.controller.Subscribe(func(event builder.Event) {
		select {
		case events <- event:
		default:
		}
	})
	defer unsubscribe()

	c.SSEvent("state", builder.Event{Kind: builder.EventState, Snapshot: snapshotPtr(h.controller.Snapshot())})
	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case event := <-events:
			c.SSEvent(string(event.Kind), event)
			return true
		}
	})
}

func snapshotPtr(snapshot builder.Snapshot) *builder.Snapshot {
	return &snapshot
}
