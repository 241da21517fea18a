package sections

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"page-composer-backend/internal/models"
)

// ErrTemplateNotFound is returned when a template id is not in the catalog.
var ErrTemplateNotFound = errors.New("template not found")

// Catalog stores the read-only section templates offered by the builder.
// Templates are returned by value with cloned props so callers cannot mutate the seed data.
type Catalog struct {
	mu        sync.RWMutex
	templates map[string]models.SectionTemplate
	order     []string
}

// NewCatalog creates an empty template catalog.
func NewCatalog() *Catalog {
	return &Catalog{templates: make(map[string]models.SectionTemplate)}
}

// Register adds a template under its normalised id. It returns an error when the input is invalid.
func (c *Catalog) Register(tmpl models.SectionTemplate) error {
	if c == nil {
		return fmt.Errorf("catalog is nil")
	}

	id := normaliseID(tmpl.ID)
	if id == "" {
		return fmt.Errorf("template id is empty")
	}
	if !tmpl.Type.IsValid() {
		return fmt.Errorf("template %s: %w: %q", id, models.ErrUnknownSectionType, tmpl.Type)
	}
	if tmpl.DefaultProps == nil {
		tmpl.DefaultProps = models.NewProps(tmpl.Type)
	}
	if !tmpl.DefaultProps.Supports(tmpl.Type) {
		return fmt.Errorf("template %s: default props do not belong to type %s", id, tmpl.Type)
	}

	tmpl.ID = id
	tmpl.DefaultProps = tmpl.DefaultProps.Clone()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.templates == nil {
		c.templates = make(map[string]models.SectionTemplate)
	}
	if _, exists := c.templates[id]; !exists {
		c.order = append(c.order, id)
	}
	c.templates[id] = tmpl
	return nil
}

// MustRegister registers the template and panics if registration fails.
func (c *Catalog) MustRegister(tmpl models.SectionTemplate) {
	if err := c.Register(tmpl); err != nil {
		panic(err)
	}
}

// Get retrieves a template by id.
func (c *Catalog) Get(id string) (models.SectionTemplate, error) {
	if c == nil {
		return models.SectionTemplate{}, ErrTemplateNotFound
	}

	id = normaliseID(id)

	c.mu.RLock()
	defer c.mu.RUnlock()
	tmpl, ok := c.templates[id]
	if !ok {
		return models.SectionTemplate{}, fmt.Errorf("%w: %q", ErrTemplateNotFound, id)
	}
	return cloneTemplate(tmpl), nil
}

// List returns every template in registration order.
func (c *Catalog) List() []models.SectionTemplate {
	if c == nil {
		return nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make([]models.SectionTemplate, 0, len(c.order))
	for _, id := range c.order {
		result = append(result, cloneTemplate(c.templates[id]))
	}
	return result
}

func cloneTemplate(tmpl models.SectionTemplate) models.SectionTemplate {
	if tmpl.DefaultProps != nil {
		tmpl.DefaultProps = tmpl.DefaultProps.Clone()
	}
	return tmpl
}

func normaliseID(id string) string {
	return strings.TrimSpace(strings.ToLower(id))
}
