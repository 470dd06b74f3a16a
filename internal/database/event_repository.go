package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jonesrussell/north-cloud/event-sync/internal/domain"
)

// ErrEventNotFound is returned when an update targets a missing event.
var ErrEventNotFound = errors.New("event not found")

const eventColumns = `
	id, title, description, short_description, category_id, city_id, venue, address,
	event_date, event_time::text AS event_time, image_url, registration_url,
	ticket_price_min, ticket_price_max, is_free, source, source_id,
	is_approved, is_featured, needs_review, review_reason,
	first_seen_at, created_at, updated_at
`

// EventRepository persists canonical events.
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository creates an event repository.
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

// FindByOutboundURL returns the event whose registration URL equals one of urls,
// preferring earlier entries, or nil when none match.
func (r *EventRepository) FindByOutboundURL(ctx context.Context, urls ...string) (*domain.CanonicalEvent, error) {
	if len(urls) == 0 {
		return nil, nil
	}

	query := `SELECT ` + eventColumns + `
		FROM events
		WHERE registration_url = ANY($1)
		ORDER BY array_position($1, registration_url)
		LIMIT 1
	`

	return r.getOne(ctx, "find event by url", query, pq.Array(urls))
}

// FindBySourceID returns the event with the given source identifier, or nil.
func (r *EventRepository) FindBySourceID(ctx context.Context, source, sourceID string) (*domain.CanonicalEvent, error) {
	query := `SELECT ` + eventColumns + `
		FROM events
		WHERE source = $1 AND source_id = $2
		LIMIT 1
	`

	return r.getOne(ctx, "find event by source id", query, source, sourceID)
}

// FindByTitleAndDate returns the event with an identical title on the same day, or nil.
func (r *EventRepository) FindByTitleAndDate(
	ctx context.Context, title string, date time.Time,
) (*domain.CanonicalEvent, error) {
	query := `SELECT ` + eventColumns + `
		FROM events
		WHERE title = $1 AND event_date = $2::date
		LIMIT 1
	`

	return r.getOne(ctx, "find event by title and date", query, title, date.Format(time.DateOnly))
}

// Insert stores a new event.
func (r *EventRepository) Insert(ctx context.Context, e *domain.CanonicalEvent) error {
	query := `
		INSERT INTO events (
			id, title, description, short_description, category_id, city_id, venue, address,
			event_date, event_time, image_url, registration_url,
			ticket_price_min, ticket_price_max, is_free, source, source_id,
			is_approved, is_featured, needs_review, review_reason,
			first_seen_at, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8,
			$9, $10, $11, $12,
			$13, $14, $15, $16, $17,
			$18, $19, $20, $21,
			$22, $23, $24
		)
	`

	_, err := r.db.ExecContext(ctx, query,
		e.ID, e.Title, e.Description, e.ShortDescription, e.CategoryID, e.CityID, e.Venue, e.Address,
		e.EventDate.Format(time.DateOnly), e.EventTime, e.ImageURL, e.RegistrationURL,
		e.PriceMin, e.PriceMax, e.IsFree, e.Source, e.SourceID,
		e.IsApproved, e.IsFeatured, e.NeedsReview, e.ReviewReason,
		e.FirstSeenAt, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}

	return nil
}

// Update overwrites the mutable fields of an existing event. Identity and first_seen_at are kept.
func (r *EventRepository) Update(ctx context.Context, id string, e *domain.CanonicalEvent) error {
	query := `
		UPDATE events
		SET title = $1, description = $2, short_description = $3, category_id = $4, city_id = $5,
		    venue = $6, address = $7, event_date = $8, event_time = $9, image_url = $10,
		    registration_url = $11, ticket_price_min = $12, ticket_price_max = $13, is_free = $14,
		    source = $15, source_id = $16, is_approved = $17, is_featured = $18,
		    needs_review = $19, review_reason = $20, updated_at = $21
		WHERE id = $22
	`

	result, err := r.db.ExecContext(ctx, query,
		e.Title, e.Description, e.ShortDescription, e.CategoryID, e.CityID,
		e.Venue, e.Address, e.EventDate.Format(time.DateOnly), e.EventTime, e.ImageURL,
		e.RegistrationURL, e.PriceMin, e.PriceMax, e.IsFree,
		e.Source, e.SourceID, e.IsApproved, e.IsFeatured,
		e.NeedsReview, e.ReviewReason, e.UpdatedAt,
		id,
	)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}

	return requireAffected(result, id)
}

// ListApproved returns every approved event.
func (r *EventRepository) ListApproved(ctx context.Context) ([]*domain.CanonicalEvent, error) {
	query := `SELECT ` + eventColumns + `
		FROM events
		WHERE is_approved = true
		ORDER BY event_date, title
	`

	var events []*domain.CanonicalEvent
	if err := r.db.SelectContext(ctx, &events, query); err != nil {
		return nil, fmt.Errorf("list approved events: %w", err)
	}

	return events, nil
}

// SetCategory moves an event to another category.
func (r *EventRepository) SetCategory(ctx context.Context, id, categoryID string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE events SET category_id = $1, updated_at = NOW() WHERE id = $2`,
		categoryID, id,
	)
	if err != nil {
		return fmt.Errorf("set event category: %w", err)
	}

	return requireAffected(result, id)
}

// FlagForReview unpublishes an event and records why a moderator should look at it.
func (r *EventRepository) FlagForReview(ctx context.Context, id, reason string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE events
		SET is_approved = false, needs_review = true, review_reason = $1, updated_at = NOW()
		WHERE id = $2
	`, reason, id)
	if err != nil {
		return fmt.Errorf("flag event for review: %w", err)
	}

	return requireAffected(result, id)
}

func (r *EventRepository) getOne(ctx context.Context, op, query string, args ...any) (*domain.CanonicalEvent, error) {
	var event domain.CanonicalEvent
	if err := r.db.GetContext(ctx, &event, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &event, nil
}

func requireAffected(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrEventNotFound, id)
	}
	return nil
}
