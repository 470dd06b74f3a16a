// Package status keeps the report of the most recent sync cycle.
package status

import (
	"context"
	"errors"
	"sync"

	"github.com/jonesrussell/north-cloud/event-sync/internal/domain"
)

// ErrNoReport is returned before the first cycle has finished.
var ErrNoReport = errors.New("no sync report recorded")

// Store saves and returns the latest sync report.
type Store interface {
	Save(ctx context.Context, report *domain.SyncReport) error
	Latest(ctx context.Context) (*domain.SyncReport, error)
}

// MemoryStore keeps the report in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	report *domain.SyncReport
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Save replaces the stored report.
func (m *MemoryStore) Save(_ context.Context, report *domain.SyncReport) error {
	cp := *report
	cp.Cities = append([]domain.CityReport(nil), report.Cities...)

	m.mu.Lock()
	m.report = &cp
	m.mu.Unlock()
	return nil
}

// Latest returns the stored report.
func (m *MemoryStore) Latest(_ context.Context) (*domain.SyncReport, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.report == nil {
		return nil, ErrNoReport
	}
	cp := *m.report
	return &cp, nil
}
