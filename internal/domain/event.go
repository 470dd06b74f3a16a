package domain

import (
	"database/sql"
	"time"
)

// CanonicalEvent is the deduplicated record persisted in the events table.
type CanonicalEvent struct {
	ID               string         `db:"id"`
	Title            string         `db:"title"`
	Description      string         `db:"description"`
	ShortDescription string         `db:"short_description"`
	CategoryID       string         `db:"category_id"`
	CityID           string         `db:"city_id"`
	Venue            string         `db:"venue"`
	Address          string         `db:"address"`
	EventDate        time.Time      `db:"event_date"`
	EventTime        string         `db:"event_time"`
	ImageURL         string         `db:"image_url"`
	RegistrationURL  string         `db:"registration_url"`
	PriceMin         float64        `db:"ticket_price_min"`
	PriceMax         float64        `db:"ticket_price_max"`
	IsFree           bool           `db:"is_free"`
	Source           string         `db:"source"`
	SourceID         string         `db:"source_id"`
	IsApproved       bool           `db:"is_approved"`
	IsFeatured       bool           `db:"is_featured"`
	NeedsReview      bool           `db:"needs_review"`
	ReviewReason     sql.NullString `db:"review_reason"`
	FirstSeenAt      time.Time      `db:"first_seen_at"`
	CreatedAt        time.Time      `db:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at"`
}
