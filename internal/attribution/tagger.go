// Package attribution appends traffic-source tracking parameters to outbound listing URLs.
package attribution

import "net/url"

// Params are the tracking values set on every outbound URL.
type Params struct {
	Ref         string
	UTMSource   string
	UTMMedium   string
	UTMCampaign string
}

// Tagger sets tracking parameters on URLs.
type Tagger struct {
	params Params
}

// NewTagger creates a tagger. Empty values are not written.
func NewTagger(p Params) *Tagger {
	return &Tagger{params: p}
}

// Tag sets the tracking parameters on rawURL. Existing values for the same keys are
// overwritten, so tagging twice yields the same URL as tagging once. A string that does
// not parse as an absolute URL is returned unchanged.
func (t *Tagger) Tag(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return rawURL
	}

	q := u.Query()
	for key, val := range t.pairs() {
		if val != "" {
			q.Set(key, val)
		}
	}
	u.RawQuery = q.Encode()

	return u.String()
}

// Strip removes the tracking parameters, recovering the URL a source originally published.
func (t *Tagger) Strip(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return rawURL
	}

	q := u.Query()
	for key := range t.pairs() {
		q.Del(key)
	}
	u.RawQuery = q.Encode()

	return u.String()
}

func (t *Tagger) pairs() map[string]string {
	return map[string]string{
		"ref":          t.params.Ref,
		"utm_source":   t.params.UTMSource,
		"utm_medium":   t.params.UTMMedium,
		"utm_campaign": t.params.UTMCampaign,
	}
}
