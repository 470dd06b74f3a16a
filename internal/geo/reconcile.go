// Package geo corrects the city a source claims for a listing using textual evidence.
package geo

import (
	"regexp"
	"strings"

	"github.com/jonesrussell/north-cloud/event-sync/internal/domain"
	"github.com/jonesrussell/north-cloud/event-sync/internal/logger"
	"github.com/jonesrussell/north-cloud/event-sync/internal/quality"
)

// DefaultAliases maps alternate city names and satellite towns to a reference city slug.
func DefaultAliases() map[string]string {
	return map[string]string{
		"bengaluru": "bangalore",
		"bombay":    "mumbai",
		"calcutta":  "kolkata",
		"madras":    "chennai",
		"new delhi": "delhi",
		"gurugram":  "delhi",
		"gurgaon":   "delhi",
		"noida":     "delhi",
		"ncr":       "delhi",
	}
}

type cityMatcher struct {
	city     domain.ReferenceCity
	patterns []*regexp.Regexp
}

// Reconciler resolves claimed cities against a reference snapshot. It is built once per cycle.
type Reconciler struct {
	cities  []cityMatcher
	aliases map[string]string
	log     logger.Logger
}

// NewReconciler compiles whole-word patterns for every city name and alias.
func NewReconciler(cities []domain.ReferenceCity, aliases map[string]string, log logger.Logger) *Reconciler {
	r := &Reconciler{
		cities:  make([]cityMatcher, 0, len(cities)),
		aliases: make(map[string]string, len(aliases)),
		log:     log,
	}

	for alias, slug := range aliases {
		r.aliases[fold(alias)] = fold(slug)
	}

	for _, c := range cities {
		names := []string{c.Name}
		for alias, slug := range r.aliases {
			if slug == fold(c.Slug) || slug == fold(c.Name) {
				names = append(names, alias)
			}
		}

		m := cityMatcher{city: c}
		for _, name := range names {
			folded := fold(name)
			if folded == "" {
				continue
			}
			m.patterns = append(m.patterns, regexp.MustCompile(`\b`+regexp.QuoteMeta(folded)+`\b`))
		}
		r.cities = append(r.cities, m)
	}

	return r
}

// Lookup resolves a city label by slug, name, or alias.
func (r *Reconciler) Lookup(label string) (domain.ReferenceCity, bool) {
	key := fold(label)
	if key == "" {
		return domain.ReferenceCity{}, false
	}
	if slug, ok := r.aliases[key]; ok {
		key = slug
	}

	for _, m := range r.cities {
		if fold(m.city.Slug) == key || fold(m.city.Name) == key {
			return m.city, true
		}
	}
	return domain.ReferenceCity{}, false
}

// Reconcile starts from the claimed city and overrides it with the first other known city
// named as a whole word in the venue, address, or title. It returns false when no city resolves.
func (r *Reconciler) Reconcile(c *domain.RawCandidate, claimed string) (domain.ReferenceCity, bool) {
	city, found := r.Lookup(claimed)
	text := fold(c.Venue + " " + c.Address + " " + c.Title)

	for _, m := range r.cities {
		if found && m.city.ID == city.ID {
			continue
		}
		if !m.matches(text) {
			continue
		}

		if r.log != nil {
			r.log.Info("Reassigning event city from venue text",
				logger.String("title", c.Title),
				logger.String("claimed_city", claimed),
				logger.String("resolved_city", m.city.Slug),
			)
		}
		return m.city, true
	}

	return city, found
}

func (m cityMatcher) matches(text string) bool {
	for _, p := range m.patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

// fold lowercases, strips diacritics and collapses punctuation to single spaces.
func fold(s string) string {
	return strings.TrimSpace(quality.NormalizeText(s))
}
