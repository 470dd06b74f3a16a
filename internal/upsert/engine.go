// Package upsert merges raw candidates into canonical event storage, keyed by a
// prioritized set of matching rules.
package upsert

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jonesrussell/north-cloud/event-sync/internal/domain"
)

// Outcome is the result of one upsert.
type Outcome int

// Upsert outcomes.
const (
	Rejected Outcome = iota
	Inserted
	Updated
)

func (o Outcome) String() string {
	switch o {
	case Inserted:
		return "inserted"
	case Updated:
		return "updated"
	default:
		return "rejected"
	}
}

// ReasonUnknownDate is recorded on events whose date could not be parsed.
const ReasonUnknownDate = "date could not be parsed"

const (
	defaultEventTime     = "19:00:00"
	defaultFeaturedRatio = 0.1
)

// Repository is the storage the engine matches and writes against.
// Find methods return (nil, nil) when nothing matches.
type Repository interface {
	FindByOutboundURL(ctx context.Context, urls ...string) (*domain.CanonicalEvent, error)
	FindBySourceID(ctx context.Context, source, sourceID string) (*domain.CanonicalEvent, error)
	FindByTitleAndDate(ctx context.Context, title string, date time.Time) (*domain.CanonicalEvent, error)
	Insert(ctx context.Context, event *domain.CanonicalEvent) error
	Update(ctx context.Context, id string, event *domain.CanonicalEvent) error
}

// ImageChecker decides whether an image URL is worth keeping.
type ImageChecker interface {
	IsPlaceholder(url string) bool
	Fallback(category string) string
}

// Options tune insert defaults. Zero values select the defaults.
type Options struct {
	FeaturedRatio    float64
	DefaultEventTime string
	// Random returns a value in [0, 1). Defaults to math/rand/v2.
	Random func() float64
	Now    func() time.Time
	NewID  func() string
}

// Engine performs match-then-update-or-insert for single candidates.
type Engine struct {
	repo   Repository
	images ImageChecker
	opts   Options
}

// NewEngine creates an upsert engine.
func NewEngine(repo Repository, images ImageChecker, opts Options) *Engine {
	if opts.FeaturedRatio == 0 {
		opts.FeaturedRatio = defaultFeaturedRatio
	}
	if opts.DefaultEventTime == "" {
		opts.DefaultEventTime = defaultEventTime
	}
	if opts.Random == nil {
		opts.Random = rand.Float64
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}

	return &Engine{repo: repo, images: images, opts: opts}
}

// Input is a candidate that has passed validation and reconciliation.
type Input struct {
	Candidate *domain.RawCandidate
	City      domain.ReferenceCity
	Category  domain.ReferenceCategory
	// TaggedURL is the outbound URL after attribution tagging; it is what gets stored.
	TaggedURL string
	// SourceURL is the outbound URL without tracking parameters. Optional; rows stored
	// before tagging are matched by it.
	SourceURL string
}

// Upsert matches in.Candidate against existing events and updates the match or inserts a new event.
// Any datastore error yields Rejected and the error; the caller decides how to count it.
func (e *Engine) Upsert(ctx context.Context, in Input) (Outcome, error) {
	existing, err := e.match(ctx, in)
	if err != nil {
		return Rejected, err
	}

	if existing != nil {
		updated := e.merge(existing, in)
		if updateErr := e.repo.Update(ctx, existing.ID, updated); updateErr != nil {
			return Rejected, fmt.Errorf("update event %s: %w", existing.ID, updateErr)
		}
		return Updated, nil
	}

	event := e.build(in)
	if insertErr := e.repo.Insert(ctx, event); insertErr != nil {
		return Rejected, fmt.Errorf("insert event: %w", insertErr)
	}
	return Inserted, nil
}

// match applies the keys in priority order: outbound URL, then source id, then title and date.
func (e *Engine) match(ctx context.Context, in Input) (*domain.CanonicalEvent, error) {
	c := in.Candidate

	urls := outboundKeys(in.TaggedURL, c.URL, in.SourceURL)
	if len(urls) > 0 {
		found, err := e.repo.FindByOutboundURL(ctx, urls...)
		if err != nil {
			return nil, fmt.Errorf("find by outbound url: %w", err)
		}
		if found != nil {
			return found, nil
		}
	}

	if c.SourceID != "" {
		found, err := e.repo.FindBySourceID(ctx, c.Source, c.SourceID)
		if err != nil {
			return nil, fmt.Errorf("find by source id: %w", err)
		}
		if found != nil {
			return found, nil
		}
	}

	if c.DateKnown && strings.TrimSpace(c.Title) != "" {
		found, err := e.repo.FindByTitleAndDate(ctx, c.Title, c.Date)
		if err != nil {
			return nil, fmt.Errorf("find by title and date: %w", err)
		}
		if found != nil {
			return found, nil
		}
	}

	return nil, nil
}

// merge copies candidate fields over an existing event. Moderation state is kept, an existing
// image survives a placeholder, and a known date survives an unparsed one.
func (e *Engine) merge(existing *domain.CanonicalEvent, in Input) *domain.CanonicalEvent {
	c := in.Candidate
	out := *existing

	out.Title = c.Title
	out.Description = c.Description
	out.ShortDescription = e.shortDescription(c)
	out.CategoryID = in.Category.ID
	out.CityID = in.City.ID
	out.Venue = c.Venue
	out.Address = c.Address
	out.EventTime = e.eventTime(c)
	out.RegistrationURL = in.TaggedURL
	out.PriceMin = c.PriceMin
	out.PriceMax = c.PriceMax
	out.IsFree = c.IsFree
	out.Source = c.Source
	out.SourceID = c.SourceID
	out.UpdatedAt = e.opts.Now()

	if c.DateKnown {
		out.EventDate = c.Date
	}

	if !e.images.IsPlaceholder(c.ImageURL) {
		out.ImageURL = c.ImageURL
	}

	return &out
}

func (e *Engine) build(in Input) *domain.CanonicalEvent {
	c := in.Candidate
	now := e.opts.Now()

	event := &domain.CanonicalEvent{
		ID:               e.opts.NewID(),
		Title:            c.Title,
		Description:      c.Description,
		ShortDescription: e.shortDescription(c),
		CategoryID:       in.Category.ID,
		CityID:           in.City.ID,
		Venue:            c.Venue,
		Address:          c.Address,
		EventDate:        c.Date,
		EventTime:        e.eventTime(c),
		ImageURL:         c.ImageURL,
		RegistrationURL:  in.TaggedURL,
		PriceMin:         c.PriceMin,
		PriceMax:         c.PriceMax,
		IsFree:           c.IsFree,
		Source:           c.Source,
		SourceID:         c.SourceID,
		IsApproved:       true,
		IsFeatured:       e.opts.Random() < e.opts.FeaturedRatio,
		FirstSeenAt:      now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if e.images.IsPlaceholder(c.ImageURL) {
		event.ImageURL = e.images.Fallback(in.Category.Name)
	}

	if !c.DateKnown {
		event.EventDate = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		event.IsApproved = false
		event.NeedsReview = true
		event.ReviewReason = sql.NullString{String: ReasonUnknownDate, Valid: true}
	}

	return event
}

func (e *Engine) shortDescription(c *domain.RawCandidate) string {
	if s := strings.TrimSpace(c.ShortDescription); s != "" {
		return s
	}
	return c.Title
}

func (e *Engine) eventTime(c *domain.RawCandidate) string {
	if t := strings.TrimSpace(c.Time); t != "" {
		return t
	}
	return e.opts.DefaultEventTime
}

// outboundKeys returns the distinct non-empty urls in priority order.
func outboundKeys(urls ...string) []string {
	keys := make([]string, 0, len(urls))
	for _, u := range urls {
		if u != "" && !slices.Contains(keys, u) {
			keys = append(keys, u)
		}
	}
	return keys
}
