package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/north-cloud/event-sync/internal/domain"
)

// ReferenceRepository loads the city and category snapshots a cycle works against.
type ReferenceRepository struct {
	db *sqlx.DB
}

// NewReferenceRepository creates a reference repository.
func NewReferenceRepository(db *sqlx.DB) *ReferenceRepository {
	return &ReferenceRepository{db: db}
}

// ListCities returns active cities in display order.
func (r *ReferenceRepository) ListCities(ctx context.Context) ([]domain.ReferenceCity, error) {
	query := `
		SELECT id, name, slug, COALESCE(state, '') AS state, is_active
		FROM cities
		WHERE is_active = true
		ORDER BY display_order, name
	`

	var cities []domain.ReferenceCity
	if err := r.db.SelectContext(ctx, &cities, query); err != nil {
		return nil, fmt.Errorf("list cities: %w", err)
	}

	return cities, nil
}

// ListCategories returns active categories in display order.
func (r *ReferenceRepository) ListCategories(ctx context.Context) ([]domain.ReferenceCategory, error) {
	query := `
		SELECT id, name, slug
		FROM categories
		WHERE is_active = true
		ORDER BY display_order, name
	`

	var categories []domain.ReferenceCategory
	if err := r.db.SelectContext(ctx, &categories, query); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}

	return categories, nil
}
