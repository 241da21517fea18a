package builder

import (
	"errors"
	"fmt"
	"strings"

	"page-composer-backend/internal/background"
	"page-composer-backend/internal/document"
	"page-composer-backend/internal/history"
	"page-composer-backend/internal/models"
)

// ErrNotColorField is returned by DragColor for props that are not colors.
var ErrNotColorField = errors.New("field is not a color")

// PropertyEditor applies high-frequency property changes such as typing or
// dragging a color swatch. Every change shows up in the page immediately,
// but history and auto-save only see the settled result: one action after
// the edits have been quiet for the settle delay.
type PropertyEditor struct {
	c      *Controller
	settle *background.Debouncer
}

func newPropertyEditor(c *Controller) *PropertyEditor {
	var opts []background.DebouncerOption
	if c.after != nil {
		opts = append(opts, background.WithTimerFunc(c.after))
	}
	return &PropertyEditor{
		c:      c,
		settle: background.NewDebouncer("property_edit", c.editSettle, opts...),
	}
}

// Edit overlays fields on the props of section id. Unknown ids are ignored.
func (e *PropertyEditor) Edit(id string, fields map[string]interface{}) error {
	c := e.c
	c.mu.Lock()
	section, ok := document.Find(c.sections, id)
	if !ok {
		c.mu.Unlock()
		return nil
	}

	props, err := models.PatchProps(section.Type, section.Props, fields)
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("edit section %s: %w", id, err)
	}
	next, err := document.UpdateSectionChecked(c.sections, id, props)
	if err != nil {
		c.mu.Unlock()
		return err
	}

	if c.editBase == nil {
		c.editBase = document.Clone(c.sections)
		c.editIDs = make(map[string]struct{})
	}
	c.editIDs[id] = struct{}{}
	c.sections = next
	c.publishLocked("EDIT_PREVIEW")
	c.mu.Unlock()

	e.settle.Trigger(e.commit)
	return nil
}

// DragColor is Edit for a single color prop such as backgroundColor.
func (e *PropertyEditor) DragColor(id, field, value string) error {
	if !strings.HasSuffix(field, "Color") {
		return fmt.Errorf("%w: %s", ErrNotColorField, field)
	}
	return e.Edit(id, map[string]interface{}{field: value})
}

// Flush commits pending edits now. It reports whether an action was recorded.
func (e *PropertyEditor) Flush() bool {
	e.settle.Cancel()

	c := e.c
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.commitEditsLocked()
}

// Cancel reverts pending edits to the page as it was before they started.
func (e *PropertyEditor) Cancel() bool {
	e.settle.Cancel()

	c := e.c
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.editBase == nil {
		return false
	}
	c.sections = c.editBase
	c.editBase = nil
	c.editIDs = nil
	c.publishLocked("EDIT_CANCEL")
	return true
}

// Pending reports whether edits are waiting to settle.
func (e *PropertyEditor) Pending() bool {
	c := e.c
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.editBase != nil
}

func (e *PropertyEditor) commit() {
	c := e.c
	c.mu.Lock()
	defer c.mu.Unlock()
	c.commitEditsLocked()
}

func (e *PropertyEditor) stop() {
	e.settle.Stop()
}

// settleEditsLocked commits pending edits ahead of another action so the
// two never share a history entry.
func (c *Controller) settleEditsLocked() {
	if c.editBase == nil {
		return
	}
	c.editor.settle.Cancel()
	c.commitEditsLocked()
}

func (c *Controller) commitEditsLocked() bool {
	if c.editBase == nil {
		return false
	}
	base := c.editBase
	ids := c.editIDs
	c.editBase = nil
	c.editIDs = nil

	if document.Equal(base, c.sections) {
		return false
	}

	description := "Update sections"
	if len(ids) == 1 {
		for id := range ids {
			description = describeUpdate(c.sections, id)
		}
	}

	c.log.Record(c.log.Action(history.ActionUpdate, description, base, c.sections))
	c.observeLocked()
	c.publishLocked(string(history.ActionUpdate))
	return true
}
