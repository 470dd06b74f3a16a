// Package quality validates raw candidates and assigns them a normalized category.
// Everything here is pure: identical input always produces identical output.
package quality

import (
	"strings"
	"unicode/utf8"

	"github.com/jonesrussell/north-cloud/event-sync/internal/domain"
)

// Rejection reasons.
const (
	ReasonSuspicious   = "Contains suspicious/dummy keywords"
	ReasonReRelease    = "Detected as a re-release or old movie screening"
	ReasonTitleShort   = "Title too short"
	ReasonDescShort    = "Description too short"
	ReasonInvalidPrice = "Invalid pricing"
	ReasonInvalidImage = "Missing or invalid image"
)

// Minimum lengths, counted in runes.
const (
	minTitleLength       = 5
	minDescriptionLength = 20
)

const moviesCategory = "Movies"

// Result is the outcome of Validate.
type Result struct {
	Valid  bool
	Reason string
}

func reject(reason string) Result {
	return Result{Reason: reason}
}

// Heuristics holds compiled keyword tables.
type Heuristics struct {
	tables     Tables
	categories *groupMatcher
	suspicious *groupMatcher
	movie      *groupMatcher
	rerelease  *groupMatcher
	overrides  *groupMatcher
}

// New compiles tables into matchers. The tables are copied.
func New(tables Tables) *Heuristics {
	t := tables.clone()

	groups := make([][]string, len(t.Categories))
	for i, c := range t.Categories {
		groups[i] = c.Keywords
	}

	return &Heuristics{
		tables:     t,
		categories: newGroupMatcher(groups),
		suspicious: newGroupMatcher([][]string{t.Suspicious}),
		movie:      newGroupMatcher([][]string{t.MovieMarkers}),
		rerelease:  newGroupMatcher([][]string{t.ReRelease}),
		overrides:  newGroupMatcher([][]string{t.ReReleaseOverrides}),
	}
}

// Images returns the image rules the heuristics were built with.
func (h *Heuristics) Images() ImageRules {
	return h.tables.Images
}

// Validate checks a candidate against the quality rules, in order, and returns the first failure.
func (h *Heuristics) Validate(c *domain.RawCandidate) Result {
	content := NormalizeText(c.Content())

	if h.suspicious.contains(content) {
		return reject(ReasonSuspicious)
	}

	if h.IsReRelease(c.Category, content) {
		return reject(ReasonReRelease)
	}

	if utf8.RuneCountInString(strings.TrimSpace(c.Title)) < minTitleLength {
		return reject(ReasonTitleShort)
	}
	if utf8.RuneCountInString(strings.TrimSpace(c.Description)) < minDescriptionLength {
		return reject(ReasonDescShort)
	}

	if c.PriceMin < 0 || c.PriceMax < 0 {
		return reject(ReasonInvalidPrice)
	}

	if h.tables.Images.IsBlank(c.ImageURL) {
		return reject(ReasonInvalidImage)
	}

	return Result{Valid: true}
}

// IsReRelease reports whether movie content carries re-release markers without a premiere or
// festival override. normalizedContent must come from NormalizeText.
func (h *Heuristics) IsReRelease(category, normalizedContent string) bool {
	isMovie := strings.EqualFold(strings.TrimSpace(category), moviesCategory) || h.movie.contains(normalizedContent)
	if !isMovie {
		return false
	}
	return h.rerelease.contains(normalizedContent) && !h.overrides.contains(normalizedContent)
}

// NormalizeCategory maps a source label to a category name. Specific labels are looked up
// directly; generic labels fall back to ordered keyword scanning of title and description.
func (h *Heuristics) NormalizeCategory(rawLabel, title, description string) string {
	if name, ok := h.tables.Labels[strings.ToLower(strings.TrimSpace(rawLabel))]; ok {
		return name
	}

	idx, ok := h.categories.firstGroup(NormalizeText(title + " " + description))
	if !ok {
		return DefaultCategory
	}

	return h.tables.Categories[idx].Name
}
