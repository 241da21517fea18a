package document

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"page-composer-backend/internal/models"
)

// IDGenerator issues globally unique section ids.
type IDGenerator interface {
	NewID(sectionType models.SectionType) string
}

// UUIDGenerator prefixes a random UUID with the section type, e.g. "hero-3f2a...".
type UUIDGenerator struct{}

func (UUIDGenerator) NewID(sectionType models.SectionType) string {
	return fmt.Sprintf("%s-%s", sectionType, uuid.New().String())
}

// SequenceGenerator issues "<type>#<n>" ids from a shared counter.
type SequenceGenerator struct {
	mu   sync.Mutex
	next int
}

// NewSequenceGenerator starts numbering at start.
func NewSequenceGenerator(start int) *SequenceGenerator {
	return &SequenceGenerator{next: start}
}

func (g *SequenceGenerator) NewID(sectionType models.SectionType) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := fmt.Sprintf("%s#%d", sectionType, g.next)
	g.next++
	return id
}
