package syncer

import (
	"strings"
	"time"

	"github.com/jonesrussell/north-cloud/event-sync/internal/domain"
	"github.com/jonesrussell/north-cloud/event-sync/internal/geo"
	"github.com/jonesrussell/north-cloud/event-sync/internal/logger"
)

// defaultCategoryName is the catch-all category records fall back to.
const defaultCategoryName = "events"

// Cycle is the state of one sync run. It is created by Run and passed explicitly;
// nothing about a cycle outlives it.
type Cycle struct {
	ID         string
	StartedAt  time.Time
	Reference  domain.ReferenceData
	Report     *domain.SyncReport
	reconciler *geo.Reconciler
	byName     map[string]domain.ReferenceCategory
	byFold     map[string]domain.ReferenceCategory
	log        logger.Logger
}

func newCycle(id string, started time.Time, ref domain.ReferenceData, aliases map[string]string, log logger.Logger) *Cycle {
	c := &Cycle{
		ID:        id,
		StartedAt: started,
		Reference: ref,
		Report: &domain.SyncReport{
			CycleID:   id,
			StartedAt: started,
		},
		reconciler: geo.NewReconciler(ref.Cities, aliases, log),
		byName:     make(map[string]domain.ReferenceCategory, len(ref.Categories)),
		byFold:     make(map[string]domain.ReferenceCategory, len(ref.Categories)),
		log:        log,
	}

	for _, cat := range ref.Categories {
		c.byName[cat.Name] = cat
		if _, exists := c.byFold[strings.ToLower(cat.Name)]; !exists {
			c.byFold[strings.ToLower(cat.Name)] = cat
		}
	}
	return c
}

// category resolves a category name: exact, then case-insensitive, then the catch-all
// category, then the first known category.
func (c *Cycle) category(name string) domain.ReferenceCategory {
	if cat, ok := c.byName[name]; ok {
		return cat
	}
	if cat, ok := c.byFold[strings.ToLower(strings.TrimSpace(name))]; ok {
		return cat
	}
	if cat, ok := c.byFold[defaultCategoryName]; ok {
		return cat
	}
	return c.Reference.Categories[0]
}
