package quality

import "strings"

// ImageRules classifies image URLs.
//
// Blank images are not images at all (spacer pixels, loading spinners) and make a
// candidate invalid. Placeholder images are real but generic pictures; a candidate
// carrying one is still valid, but an existing specific image is never replaced by it.
type ImageRules struct {
	Blank     []string          `yaml:"blank"`
	Domains   []string          `yaml:"domains"`
	Filenames []string          `yaml:"filenames"`
	Patterns  []string          `yaml:"patterns"`
	Fallbacks map[string]string `yaml:"fallbacks"`
}

// DefaultImageRules returns the shipped placeholder lists and per-category fallback images.
func DefaultImageRules() ImageRules {
	return ImageRules{
		Blank: []string{"spacer.gif", "loading.gif", "images.pexels.com/photos/lazy", "data:image/gif"},
		Domains: []string{
			"placeholder.com", "via.placeholder.com", "dummyimage.com", "lorempixel.com", "unsplash.it",
		},
		Filenames: []string{"default-event.jpg", "placeholder.png", "no-poster.jpg", "event-default.png"},
		Patterns:  []string{"bms-placeholder", "insider-placeholder", "static/images/event-placeholder"},
		Fallbacks: map[string]string{
			"Music":         "https://images.unsplash.com/photo-1470225620780-dba8ba36b745?auto=format&fit=crop&q=80&w=1200",
			"Comedy":        "https://images.unsplash.com/photo-1516280440614-37939bbacd81?auto=format&fit=crop&q=80&w=1200",
			"Workshops":     "https://images.unsplash.com/photo-1544928147-79a2dbc1f389?auto=format&fit=crop&q=80&w=1200",
			"Adventure":     "https://images.unsplash.com/photo-1533240332313-0db49b459ad6?auto=format&fit=crop&q=80&w=1200",
			"Food & Drinks": "https://images.unsplash.com/photo-1504674900247-0877df9cc836?auto=format&fit=crop&q=80&w=1200",
			"Spirituality":  "https://images.unsplash.com/photo-1506126613408-eca07ce68773?auto=format&fit=crop&q=80&w=1200",
			"Exhibitions":   "https://images.unsplash.com/photo-1531050171651-71fb4b025b04?auto=format&fit=crop&q=80&w=1200",
			"Kids":          "https://images.unsplash.com/photo-1472162014730-68d2174c2b4b?auto=format&fit=crop&q=80&w=1200",
			"Shopping":      "https://images.unsplash.com/photo-1441986300917-64674bd600d8?auto=format&fit=crop&q=80&w=1200",
			DefaultCategory: "https://images.unsplash.com/photo-1492684223066-81342ee5ff30?auto=format&fit=crop&q=80&w=1200",
		},
	}
}

// IsBlank reports whether url is empty or a known non-image.
func (r ImageRules) IsBlank(url string) bool {
	lower := strings.ToLower(strings.TrimSpace(url))
	if lower == "" {
		return true
	}
	for _, p := range r.Blank {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// IsPlaceholder reports whether url is blank or a generic placeholder picture.
func (r ImageRules) IsPlaceholder(url string) bool {
	if r.IsBlank(url) {
		return true
	}

	lower := strings.ToLower(strings.TrimSpace(url))
	if i := strings.IndexAny(lower, "?#"); i >= 0 {
		lower = lower[:i]
	}

	for _, d := range r.Domains {
		if strings.Contains(lower, d) {
			return true
		}
	}
	for _, f := range r.Filenames {
		if strings.HasSuffix(lower, f) {
			return true
		}
	}
	for _, p := range r.Patterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// Fallback returns the stock image for a category, or the generic one.
func (r ImageRules) Fallback(category string) string {
	if img, ok := r.Fallbacks[category]; ok {
		return img
	}
	return r.Fallbacks[DefaultCategory]
}

func (r ImageRules) clone() ImageRules {
	out := ImageRules{
		Blank:     append([]string(nil), r.Blank...),
		Domains:   append([]string(nil), r.Domains...),
		Filenames: append([]string(nil), r.Filenames...),
		Patterns:  append([]string(nil), r.Patterns...),
		Fallbacks: make(map[string]string, len(r.Fallbacks)),
	}
	for k, v := range r.Fallbacks {
		out.Fallbacks[k] = v
	}
	return out
}

func (r ImageRules) merge(o ImageRules) ImageRules {
	if len(o.Blank) > 0 {
		r.Blank = o.Blank
	}
	if len(o.Domains) > 0 {
		r.Domains = o.Domains
	}
	if len(o.Filenames) > 0 {
		r.Filenames = o.Filenames
	}
	if len(o.Patterns) > 0 {
		r.Patterns = o.Patterns
	}
	if len(o.Fallbacks) > 0 {
		r.Fallbacks = o.Fallbacks
	}
	return r
}
