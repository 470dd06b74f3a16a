package attribution_test

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/event-sync/internal/attribution"
)

func newTagger() *attribution.Tagger {
	return attribution.NewTagger(attribution.Params{
		Ref:         "quantumevents",
		UTMSource:   "quantumevents",
		UTMMedium:   "listing",
		UTMCampaign: "organic_discovery",
	})
}

func TestTag_SetsParameters(t *testing.T) {
	t.Helper()

	tagged := newTagger().Tag("https://in.bookmyshow.com/events/sunburn/ET00123?lang=en")

	u, err := url.Parse(tagged)
	require.NoError(t, err)

	q := u.Query()
	assert.Equal(t, "quantumevents", q.Get("ref"))
	assert.Equal(t, "quantumevents", q.Get("utm_source"))
	assert.Equal(t, "listing", q.Get("utm_medium"))
	assert.Equal(t, "organic_discovery", q.Get("utm_campaign"))
	assert.Equal(t, "en", q.Get("lang"))
	assert.Equal(t, "/events/sunburn/ET00123", u.Path)
}

func TestTag_Idempotent(t *testing.T) {
	t.Helper()

	tagger := newTagger()
	once := tagger.Tag("https://www.eventbrite.com/e/startup-mixer-123?aff=abc")
	twice := tagger.Tag(once)

	assert.Equal(t, once, twice)

	u, err := url.Parse(twice)
	require.NoError(t, err)
	assert.Len(t, u.Query()["ref"], 1)
	assert.Len(t, u.Query()["utm_source"], 1)
}

func TestTag_OverwritesForeignValues(t *testing.T) {
	t.Helper()

	tagged := newTagger().Tag("https://10times.com/e1x2?utm_source=newsletter&utm_source=other")

	u, err := url.Parse(tagged)
	require.NoError(t, err)
	assert.Equal(t, []string{"quantumevents"}, u.Query()["utm_source"])
}

func TestTag_InvalidURLUnchanged(t *testing.T) {
	t.Helper()

	tagger := newTagger()

	for _, raw := range []string{"", "not a url", "/relative/path", "http://[::1"} {
		assert.Equal(t, raw, tagger.Tag(raw))
	}
}

func TestStrip(t *testing.T) {
	t.Helper()

	tagger := newTagger()
	original := "https://www.district.in/events/holi-bash?seat=ga"

	assert.Equal(t, original, tagger.Strip(tagger.Tag(original)))
}
