// Package builder holds the state of one page-editing session and exposes
// the action surface used by transports: adding, editing, reordering and
// deleting sections, undo/redo, drag-and-drop, export/import and
// auto-save recovery.
//
// Each action runs to completion under the controller lock: the document
// operation is applied first, then recorded in history, then handed to the
// auto-saver. Selection and preview mode live outside the history and are
// never touched by undo or redo.
package builder

import (
	"fmt"
	"sync"
	"time"

	"page-composer-backend/internal/autosave"
	"page-composer-backend/internal/background"
	"page-composer-backend/internal/constants"
	"page-composer-backend/internal/document"
	"page-composer-backend/internal/dragdrop"
	"page-composer-backend/internal/exchange"
	"page-composer-backend/internal/history"
	"page-composer-backend/internal/models"
	"page-composer-backend/internal/sections"
	"page-composer-backend/pkg/logger"
)

type Option func(*Controller)

// WithCatalog replaces the default template catalog.
func WithCatalog(catalog *sections.Catalog) Option {
	return func(c *Controller) {
		if catalog != nil {
			c.catalog = catalog
		}
	}
}

// WithIDGenerator replaces the UUID section id generator.
func WithIDGenerator(ids document.IDGenerator) Option {
	return func(c *Controller) {
		if ids != nil {
			c.ids = ids
		}
	}
}

// WithHistorySize caps the undo history.
func WithHistorySize(size int) Option {
	return func(c *Controller) { c.historyOpts = append(c.historyOpts, history.WithMaxSize(size)) }
}

// WithClock replaces the time source for history and exports.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// WithTimerFunc replaces the timer behind the property-edit settle detector.
func WithTimerFunc(after background.TimerFunc) Option {
	return func(c *Controller) { c.after = after }
}

// WithEditSettle sets the quiet period after which property edits are committed.
func WithEditSettle(delay time.Duration) Option {
	return func(c *Controller) {
		if delay > 0 {
			c.editSettle = delay
		}
	}
}

// WithAutoSave attaches an auto-saver writing to store.
func WithAutoSave(store autosave.Store, cfg autosave.Config, opts ...autosave.Option) Option {
	return func(c *Controller) {
		c.autoSaveStore = store
		c.autoSaveCfg = cfg
		c.autoSaveOpts = opts
	}
}

// WithDownloader sets where exports are delivered. The default keeps the
// last export in memory.
func WithDownloader(downloader exchange.Downloader) Option {
	return func(c *Controller) {
		if downloader != nil {
			c.downloader = downloader
		}
	}
}

// WithSections seeds the session with an initial page.
func WithSections(initial []models.Section) Option {
	return func(c *Controller) { c.sections = document.Normalize(initial) }
}

// Snapshot is a consistent view of the session state.
type Snapshot struct {
	Sections          []models.Section `json:"sections"`
	SelectedSectionID string           `json:"selectedSectionId,omitempty"`
	IsPreviewMode     bool             `json:"isPreviewMode"`
	History           history.Summary  `json:"history"`
	AutoSave          autosave.State   `json:"autoSave"`
	Recovery          *autosave.Info   `json:"recovery,omitempty"`
}

// Controller owns the sections, selection, preview flag, history and
// auto-saver of one editing session. It is safe for concurrent use.
type Controller struct {
	mu          sync.Mutex
	sections    []models.Section
	selectedID  string
	previewMode bool
	recovery    *autosave.Info

	// sections as they were before the first unsettled property edit
	editBase []models.Section
	editIDs  map[string]struct{}

	log         *history.Log
	historyOpts []history.Option
	saver       *autosave.Saver
	catalog     *sections.Catalog
	ids         document.IDGenerator
	downloader  exchange.Downloader
	now         func() time.Time
	after       background.TimerFunc
	editSettle  time.Duration
	editor      *PropertyEditor
	events      *notifier

	autoSaveStore autosave.Store
	autoSaveCfg   autosave.Config
	autoSaveOpts  []autosave.Option
}

func New(opts ...Option) *Controller {
	c := &Controller{
		sections:   []models.Section{},
		catalog:    sections.DefaultCatalog(),
		ids:        document.UUIDGenerator{},
		now:        time.Now,
		downloader: &exchange.MemoryDownloader{},
		editSettle: constants.EditSettleDelay,
		events:     newNotifier(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.log = history.New(append(c.historyOpts, history.WithClock(c.now))...)

	if c.autoSaveStore != nil {
		saverOpts := append([]autosave.Option{autosave.WithClock(c.now)}, c.autoSaveOpts...)
		saverOpts = append(saverOpts, autosave.WithListener(c.onAutoSave))
		c.saver = autosave.New(c.autoSaveStore, c.autoSaveCfg, saverOpts...)
	}

	c.editor = newPropertyEditor(c)
	return c
}

// Catalog returns the template catalog the session adds sections from.
func (c *Controller) Catalog() *sections.Catalog { return c.catalog }

// Editor returns the settle-detecting property editor of this session.
func (c *Controller) Editor() *PropertyEditor { return c.editor }

// Subscribe registers fn for state and auto-save events. Events are
// delivered on a separate goroutine. The returned func unsubscribes.
func (c *Controller) Subscribe(fn func(Event)) func() {
	return c.events.subscribe(fn)
}

// Config describes the catalog and limits for clients.
func (c *Controller) Config() models.BuilderConfig {
	cfg := models.BuilderConfig{
		Templates:      c.catalog.List(),
		SectionTypes:   models.SectionTypes(),
		MaxHistorySize: c.log.MaxSize(),
		EditSettleMS:   c.editSettle.Milliseconds(),
		ExportVersion:  constants.ExportVersion,
	}
	if c.saver != nil {
		cfg.AutoSaveDelayMS = c.saver.Debounce().Milliseconds()
		cfg.RetentionDays = int(c.saver.Retention() / (24 * time.Hour))
		cfg.AutoSaveEnabled = c.saver.State().Enabled
	}
	return cfg
}

// Snapshot returns a deep copy of the session state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Sections returns a deep copy of the current sections.
func (c *Controller) Sections() []models.Section {
	c.mu.Lock()
	defer c.mu.Unlock()
	return document.Clone(c.sections)
}

// History summarises the undo log.
func (c *Controller) History() history.Summary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.log.Summarize()
}

func (c *Controller) snapshotLocked() Snapshot {
	snapshot := Snapshot{
		Sections:          document.Clone(c.sections),
		SelectedSectionID: c.selectedID,
		IsPreviewMode:     c.previewMode,
		History:           c.log.Summarize(),
	}
	if c.saver != nil {
		snapshot.AutoSave = c.saver.State()
	}
	if c.recovery != nil {
		info := *c.recovery
		snapshot.Recovery = &info
	}
	return snapshot
}

// AddSection appends a section seeded from tmpl and returns it.
func (c *Controller) AddSection(tmpl models.SectionTemplate) models.Section {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.settleEditsLocked()
	next := document.AddSection(c.sections, tmpl, c.ids)
	c.commitLocked(next, history.ActionAdd, "Add "+tmpl.Name)
	return next[len(next)-1].Clone()
}

// AddSectionAt inserts a section seeded from tmpl at position, clamped to
// the page bounds, and returns it.
func (c *Controller) AddSectionAt(tmpl models.SectionTemplate, position int) models.Section {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.settleEditsLocked()
	next := document.AddSectionAt(c.sections, tmpl, position, c.ids)
	c.commitLocked(next, history.ActionAdd, "Add "+tmpl.Name)
	if position < 0 {
		position = 0
	}
	if position > len(next)-1 {
		position = len(next) - 1
	}
	return next[position].Clone()
}

// AddTemplate appends a section from the catalog template with templateID.
func (c *Controller) AddTemplate(templateID string) (models.Section, error) {
	tmpl, err := c.catalog.Get(templateID)
	if err != nil {
		return models.Section{}, err
	}
	return c.AddSection(tmpl), nil
}

// AddTemplateAt inserts a section from the catalog template with templateID.
func (c *Controller) AddTemplateAt(templateID string, position int) (models.Section, error) {
	tmpl, err := c.catalog.Get(templateID)
	if err != nil {
		return models.Section{}, err
	}
	return c.AddSectionAt(tmpl, position), nil
}

// SelectSection selects the section with id; an empty id clears the
// selection. Unknown ids are ignored and reported as false.
func (c *Controller) SelectSection(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if id != "" && document.IndexOf(c.sections, id) < 0 {
		return false
	}
	if c.selectedID == id {
		return true
	}
	c.selectedID = id
	c.publishLocked("SELECT_SECTION")
	return true
}

// TogglePreviewMode flips preview mode and returns the new value.
func (c *Controller) TogglePreviewMode() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.previewMode = !c.previewMode
	c.publishLocked("TOGGLE_PREVIEW")
	return c.previewMode
}

// UpdateSection replaces the props of section id. With record false the
// change bypasses history. Unknown ids are a no-op; props of the wrong
// variant return document.ErrPropsTypeMismatch.
func (c *Controller) UpdateSection(id string, props models.SectionProps, record bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.settleEditsLocked()
	next, err := document.UpdateSectionChecked(c.sections, id, props)
	if err != nil {
		return err
	}
	if document.Equal(next, c.sections) {
		return nil
	}

	if record {
		c.commitLocked(next, history.ActionUpdate, describeUpdate(next, id))
	} else {
		c.sections = next
		c.observeLocked()
		c.publishLocked(string(history.ActionUpdate))
	}
	return nil
}

// PatchSection overlays patch on the current props of section id.
func (c *Controller) PatchSection(id string, patch map[string]interface{}, record bool) error {
	c.mu.Lock()
	section, ok := document.Find(c.sections, id)
	c.mu.Unlock()
	if !ok {
		return nil
	}

	props, err := models.PatchProps(section.Type, section.Props, patch)
	if err != nil {
		return fmt.Errorf("patch section %s: %w", id, err)
	}
	return c.UpdateSection(id, props, record)
}

// DeleteSection removes section id and clears the selection when it
// pointed at it. It reports whether anything was removed.
func (c *Controller) DeleteSection(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.settleEditsLocked()
	section, ok := document.Find(c.sections, id)
	if !ok {
		return false
	}
	if c.selectedID == id {
		c.selectedID = ""
	}
	c.commitLocked(document.DeleteSection(c.sections, id), history.ActionDelete, "Delete "+string(section.Type)+" section")
	return true
}

// ReorderSections applies orderedIDs when it is a permutation of the
// current ids and reports whether the page changed.
func (c *Controller) ReorderSections(orderedIDs []string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.settleEditsLocked()
	next, ok := document.Reorder(c.sections, orderedIDs)
	if !ok || sameLayout(next, c.sections) {
		return false
	}
	c.commitLocked(next, history.ActionReorder, "Reorder sections")
	return true
}

// Drop resolves a finished drag gesture into at most one recorded action.
func (c *Controller) Drop(gesture dragdrop.Gesture) dragdrop.Result {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.settleEditsLocked()
	result := dragdrop.Resolve(c.sections, gesture, c.ids)
	if result.Changed {
		c.commitLocked(result.Sections, result.Action, result.Description)
		result.Sections = document.Clone(result.Sections)
	}
	return result
}

// Undo restores the sections from before the last recorded action.
func (c *Controller) Undo() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.settleEditsLocked()
	snapshot, ok := c.log.Undo()
	if !ok {
		return false
	}
	c.sections = snapshot
	c.observeLocked()
	c.publishLocked("UNDO")
	return true
}

// Redo re-applies the last undone action.
func (c *Controller) Redo() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.settleEditsLocked()
	snapshot, ok := c.log.Redo()
	if !ok {
		return false
	}
	c.sections = snapshot
	c.observeLocked()
	c.publishLocked("REDO")
	return true
}

// Close cancels pending edits and auto-save flushes and stops event delivery.
func (c *Controller) Close() {
	c.editor.stop()
	if c.saver != nil {
		c.saver.Close()
	}
	c.events.stop()
}

// commitLocked applies next, records it and lets the auto-saver observe it.
func (c *Controller) commitLocked(next []models.Section, actionType history.ActionType, description string) {
	previous := c.sections
	c.sections = next
	c.log.Record(c.log.Action(actionType, description, previous, next))
	c.observeLocked()
	c.publishLocked(string(actionType))
}

func (c *Controller) observeLocked() {
	if c.saver != nil {
		c.saver.Observe(c.sections)
	}
}

func (c *Controller) publishLocked(action string) {
	if !c.events.hasSubscribers() {
		return
	}
	snapshot := c.snapshotLocked()
	c.events.publish(Event{Kind: EventState, Action: action, Snapshot: &snapshot})
}

func (c *Controller) onAutoSave(state autosave.State) {
	c.events.publish(Event{Kind: EventAutoSave, AutoSave: &state})
}

func describeUpdate(sections []models.Section, id string) string {
	if section, ok := document.Find(sections, id); ok {
		return "Update " + string(section.Type) + " section"
	}
	return "Update section"
}

func sameLayout(a, b []models.Section) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID || a[i].Order != b[i].Order {
			return false
		}
	}
	return true
}

func (c *Controller) logAction(msg string, fields map[string]interface{}) {
	if fields == nil {
		fields = map[string]interface{}{}
	}
	fields["sections"] = len(c.sections)
	logger.Info(msg, fields)
}
