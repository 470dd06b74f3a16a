package sources_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/event-sync/internal/domain"
	"github.com/jonesrussell/north-cloud/event-sync/internal/sources"
)

const bookMyShowEventsHTML = `<html><body>
<a href="/explore/events-mumbai">All events</a>
<a href="https://in.bookmyshow.com/events/prateek-kuhad-live/ET00400">
  <img src="https://in.bmscdn.com/loading.gif" srcset="https://assets.bms.com/a-300.jpg 1x, https://assets.bms.com/a-600.jpg 2x">
  <h3>Prateek Kuhad Live</h3>
  <div>Sun, 29 Mar</div>
  <div>Jio World Garden: Mumbai</div>
  <div>₹1,499 onwards</div>
</a>
<a href="https://in.bookmyshow.com/events/prateek-kuhad-live/ET00400"><span>Prateek Kuhad Live</span></a>
</body></html>`

const bookMyShowMoviesHTML = `<html><body>
<a href="/movies/mumbai/sholay-re-release/ET00111"><h3>Sholay (Re-Release)</h3></a>
<a href="/movies/mumbai/new-film/ET00222">
  <img data-src="//assets.bms.com/new-film.jpg">
  <h3>New Film</h3>
  <div>UA • 2h 30m • Hindi, English</div>
</a>
</body></html>`

func TestBookMyShow_Fetch(t *testing.T) {
	t.Helper()

	session := &fakeSession{pages: map[string]string{
		"https://in.bookmyshow.com/explore/events-mumbai": bookMyShowEventsHTML,
		"https://in.bookmyshow.com/explore/movies-mumbai": bookMyShowMoviesHTML,
	}}
	adapter := sources.NewBookMyShow(sources.Options{Now: nowFunc})

	got := adapter.Fetch(context.Background(), "mumbai", session)
	require.Len(t, got, 2)

	event := got[0]
	assert.Equal(t, "Prateek Kuhad Live", event.Title)
	assert.Equal(t, "Events", event.Category)
	assert.Equal(t, "https://in.bookmyshow.com/events/prateek-kuhad-live/ET00400", event.URL)
	assert.Equal(t, "ET00400", event.SourceID)
	assert.Equal(t, "https://assets.bms.com/a-600.jpg", event.ImageURL)
	assert.Equal(t, "Jio World Garden: Mumbai", event.Venue)
	assert.True(t, event.DateKnown)
	assert.Equal(t, 29, event.Date.Day())
	assert.InDelta(t, 1499, event.PriceMin, 0.001)
	assert.Equal(t, "bookmyshow", event.Source)

	movie := got[1]
	assert.Equal(t, "New Film", movie.Title)
	assert.Equal(t, "Movies", movie.Category)
	assert.Equal(t, "Multiple Cinemas", movie.Venue)
	assert.Equal(t, "https://assets.bms.com/new-film.jpg", movie.ImageURL)
	assert.Contains(t, movie.Description, "Hindi, English")
	assert.False(t, movie.DateKnown)

	assert.Equal(t, session.opened, session.closed)
}

func TestBookMyShow_UnsupportedCity(t *testing.T) {
	t.Helper()

	session := &fakeSession{}
	got := sources.NewBookMyShow(sources.Options{}).Fetch(context.Background(), "jaipur", session)

	assert.Empty(t, got)
	assert.Empty(t, session.visited)
}

func TestBookMyShow_PageFailureYieldsNothing(t *testing.T) {
	t.Helper()

	session := &fakeSession{pages: map[string]string{}}
	got := sources.NewBookMyShow(sources.Options{}).Fetch(context.Background(), "pune", session)

	assert.Empty(t, got)
	assert.Len(t, session.visited, 2)
}

const districtHTML = `<html><body>
<div class="card">
  <a href="/events/all-events">See all</a>
</div>
<div class="card">
  <a href="/event/sunburn-arena-pune"><img src="https://media.district.in/sunburn.jpg"></a>
  <h4 class="event-title">Sunburn Arena ft. Alan Walker</h4>
  <span class="event-date">Sat, 18 Apr | 6:00 PM</span>
  <span class="venue-name">Mahalaxmi Lawns</span>
  <span class="price">₹ 2,000 onwards</span>
</div>
</body></html>`

func TestDistrict_Fetch(t *testing.T) {
	t.Helper()

	session := &fakeSession{pages: map[string]string{
		"https://www.district.in/pune/events": districtHTML,
	}}
	got := sources.NewDistrict(sources.Options{Now: nowFunc}).Fetch(context.Background(), "pune", session)

	require.Len(t, got, 1)
	c := got[0]
	assert.Equal(t, "Sunburn Arena ft. Alan Walker", c.Title)
	assert.Equal(t, "https://www.district.in/event/sunburn-arena-pune", c.URL)
	assert.Equal(t, "sunburn-arena-pune", c.SourceID)
	assert.Equal(t, "Mahalaxmi Lawns", c.Venue)
	assert.Equal(t, "18:00:00", c.Time)
	assert.True(t, c.DateKnown)
	assert.InDelta(t, 2000, c.PriceMin, 0.001)
	assert.Contains(t, c.Description, "Mahalaxmi Lawns")
}

const eventbriteHTML = `<html><body>
<section data-testid="event-card">
  <a class="event-card-link" href="https://www.eventbrite.com/e/startup-mixer-tickets-123456789?aff=ebdssbdestsearch">
    <img src="https://img.evbuc.com/mixer.jpg">
  </a>
  <h3>Startup Mixer Bengaluru</h3>
  <p data-testid="event-card-date">Sat, Apr 4, 7:30 PM</p>
  <p data-testid="event-card-location">Social Koramangala • Bengaluru</p>
  <p data-testid="event-card-price">Free</p>
</section>
</body></html>`

func TestEventbrite_PageOnly(t *testing.T) {
	t.Helper()

	session := &fakeSession{pages: map[string]string{
		"https://www.eventbrite.com/d/india--bengaluru/events/": eventbriteHTML,
	}}
	got := sources.NewEventbrite(sources.Options{Now: nowFunc}, nil).Fetch(context.Background(), "bangalore", session)

	require.Len(t, got, 1)
	c := got[0]
	assert.Equal(t, "Startup Mixer Bengaluru", c.Title)
	assert.Equal(t, "123456789", c.SourceID)
	assert.Equal(t, "Social Koramangala", c.Venue)
	assert.True(t, c.IsFree)
	assert.Equal(t, "19:30:00", c.Time)
	assert.True(t, c.DateKnown)
	assert.Equal(t, 4, c.Date.Day())
	assert.False(t, c.FromAPI)
}

const tenTimesHTML = `<html><body>
<table id="event-table">
<tr itemtype="http://schema.org/Event">
  <td><span content="2026-05-12">12 - 14 May 2026</span></td>
  <td class="venue">Bombay Exhibition Centre</td>
  <td><a itemprop="url" href="https://10times.com/india-food-expo">India Food Expo</a></td>
</tr>
<tr itemtype="http://schema.org/Event">
  <td>TBA</td>
</tr>
</table>
</body></html>`

func TestTenTimes_Fetch(t *testing.T) {
	t.Helper()

	session := &fakeSession{pages: map[string]string{
		"https://10times.com/mumbai": tenTimesHTML,
	}}
	got := sources.NewTenTimes(sources.Options{Now: nowFunc}).Fetch(context.Background(), "mumbai", session)

	require.Len(t, got, 1)
	c := got[0]
	assert.Equal(t, "India Food Expo", c.Title)
	assert.Equal(t, "Exhibitions", c.Category)
	assert.Equal(t, "Bombay Exhibition Centre", c.Venue)
	assert.Equal(t, "india-food-expo", c.SourceID)
	assert.True(t, c.DateKnown)
	assert.Equal(t, 12, c.Date.Day())
}

func TestBuild(t *testing.T) {
	t.Helper()

	all, err := sources.Build(nil, sources.Options{}, nil)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "bookmyshow", all[0].Name())
	assert.Equal(t, "tentimes", all[3].Name())

	some, err := sources.Build([]string{"tentimes", "district"}, sources.Options{}, nil)
	require.NoError(t, err)
	require.Len(t, some, 2)
	assert.Equal(t, "district", some[0].Name())

	_, err = sources.Build([]string{"insider"}, sources.Options{}, nil)
	require.Error(t, err)
}

func TestRender_StalledPageTimesOut(t *testing.T) {
	t.Helper()

	session := &stallingSession{}
	adapter := sources.NewBookMyShow(sources.Options{
		NavTimeout:  50 * time.Millisecond,
		WaitTimeout: 50 * time.Millisecond,
		Now:         nowFunc,
	})

	done := make(chan []domain.RawCandidate, 1)
	go func() { done <- adapter.Fetch(context.Background(), "mumbai", session) }()

	select {
	case got := <-done:
		assert.Empty(t, got)
	case <-time.After(5 * time.Second):
		t.Fatal("adapter did not give up on a stalled page")
	}
	assert.Positive(t, session.opened)
	assert.Equal(t, session.opened, session.closed)
}

func TestRender_PageOutlivesStepTimeouts(t *testing.T) {
	t.Helper()

	session := &attachingSession{fakeSession: fakeSession{pages: map[string]string{
		"https://in.bookmyshow.com/explore/events-mumbai": bookMyShowEventsHTML,
		"https://in.bookmyshow.com/explore/movies-mumbai": bookMyShowMoviesHTML,
	}}}
	adapter := sources.NewBookMyShow(sources.Options{
		NavTimeout:  time.Second,
		WaitTimeout: time.Second,
		Now:         nowFunc,
	})

	got := adapter.Fetch(context.Background(), "mumbai", session)
	require.Len(t, got, 2)
	assert.Equal(t, "Prateek Kuhad Live", got[0].Title)
}
