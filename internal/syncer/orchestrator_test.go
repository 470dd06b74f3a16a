package syncer_test

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/event-sync/internal/attribution"
	"github.com/jonesrussell/north-cloud/event-sync/internal/browser"
	"github.com/jonesrussell/north-cloud/event-sync/internal/domain"
	"github.com/jonesrussell/north-cloud/event-sync/internal/geo"
	"github.com/jonesrussell/north-cloud/event-sync/internal/quality"
	"github.com/jonesrussell/north-cloud/event-sync/internal/sources"
	"github.com/jonesrussell/north-cloud/event-sync/internal/status"
	"github.com/jonesrussell/north-cloud/event-sync/internal/syncer"
	"github.com/jonesrussell/north-cloud/event-sync/internal/telemetry"
	"github.com/jonesrussell/north-cloud/event-sync/internal/upsert"
)

var (
	mumbai = domain.ReferenceCity{ID: "c-mum", Name: "Mumbai", Slug: "mumbai", IsActive: true}
	pune   = domain.ReferenceCity{ID: "c-pune", Name: "Pune", Slug: "pune", IsActive: true}
	music  = domain.ReferenceCategory{ID: "cat-music", Name: "Music", Slug: "music"}
	events = domain.ReferenceCategory{ID: "cat-events", Name: "Events", Slug: "events"}
)

type fakeRefs struct {
	err   error
	calls int
}

func (f *fakeRefs) ListCities(context.Context) ([]domain.ReferenceCity, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []domain.ReferenceCity{mumbai, pune}, nil
}

func (f *fakeRefs) ListCategories(context.Context) ([]domain.ReferenceCategory, error) {
	return []domain.ReferenceCategory{music, events}, nil
}

type fakeAdapter struct {
	name     string
	byCity   map[string][]domain.RawCandidate
	panicMsg string
	block    chan struct{}
	mu       sync.Mutex
	calls    int
}

func (a *fakeAdapter) Name() string { return a.name }

func (a *fakeAdapter) Fetch(_ context.Context, city string, _ browser.Session) []domain.RawCandidate {
	a.mu.Lock()
	a.calls++
	a.mu.Unlock()

	if a.block != nil {
		<-a.block
	}
	if a.panicMsg != "" {
		panic(a.panicMsg)
	}
	return slices.Clone(a.byCity[city])
}

type countingPool struct {
	session  browser.Session
	mu       sync.Mutex
	acquired int
	released int
}

func (p *countingPool) With(_ context.Context, fn func(browser.Session) error) error {
	p.mu.Lock()
	p.acquired++
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.released++
		p.mu.Unlock()
	}()
	return fn(p.session)
}

type memRepo struct {
	mu     sync.Mutex
	events []*domain.CanonicalEvent
	fail   bool
}

func (r *memRepo) FindByOutboundURL(_ context.Context, urls ...string) (*domain.CanonicalEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if slices.Contains(urls, e.RegistrationURL) {
			cp := *e
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memRepo) FindBySourceID(_ context.Context, source, id string) (*domain.CanonicalEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.Source == source && e.SourceID == id {
			cp := *e
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memRepo) FindByTitleAndDate(context.Context, string, time.Time) (*domain.CanonicalEvent, error) {
	return nil, nil
}

func (r *memRepo) Insert(_ context.Context, e *domain.CanonicalEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("disk full")
	}
	cp := *e
	r.events = append(r.events, &cp)
	return nil
}

func (r *memRepo) Update(_ context.Context, id string, e *domain.CanonicalEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.events {
		if existing.ID == id {
			cp := *e
			r.events[i] = &cp
			return nil
		}
	}
	return fmt.Errorf("event %s not found", id)
}

func (r *memRepo) snapshot() []domain.CanonicalEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.CanonicalEvent, len(r.events))
	for i, e := range r.events {
		out[i] = *e
	}
	return out
}

func jazzNight() domain.RawCandidate {
	return domain.RawCandidate{
		Title:       "Live Jazz Night at Blue Frog",
		Description: "An evening of live jazz with the city's best trio.",
		Category:    "Events",
		City:        "mumbai",
		Venue:       "Blue Frog",
		Address:     "Lower Parel, Mumbai",
		Date:        time.Date(2026, time.April, 4, 0, 0, 0, 0, time.UTC),
		DateKnown:   true,
		ImageURL:    "https://img.example.com/jazz.jpg",
		URL:         "https://in.bookmyshow.com/events/live-jazz/ET1",
		Source:      "bookmyshow",
		SourceID:    "ET1",
	}
}

type harness struct {
	refs      *fakeRefs
	pool      *countingPool
	repo      *memRepo
	store     *status.MemoryStore
	telemetry *telemetry.Provider
	orch      *syncer.Orchestrator
}

func newHarness(t *testing.T, cities []string, adapters ...sources.Adapter) *harness {
	t.Helper()

	h := &harness{
		refs:      &fakeRefs{},
		pool:      &countingPool{},
		repo:      &memRepo{},
		store:     status.NewMemoryStore(),
		telemetry: telemetry.NewNopProvider(),
	}
	heuristics := quality.New(quality.DefaultTables())
	ids := 0
	var idMu sync.Mutex

	h.orch = syncer.NewOrchestrator(syncer.Deps{
		References: h.refs,
		Adapters:   adapters,
		Pool:       h.pool,
		Heuristics: heuristics,
		Tagger: attribution.NewTagger(attribution.Params{
			Ref: "quantumevents", UTMSource: "quantumevents", UTMMedium: "listing", UTMCampaign: "organic_discovery",
		}),
		Engine: upsert.NewEngine(h.repo, heuristics.Images(), upsert.Options{
			Random: func() float64 { return 0.5 },
			NewID: func() string {
				idMu.Lock()
				defer idMu.Unlock()
				ids++
				return fmt.Sprintf("evt-%d", ids)
			},
		}),
		Store:     h.store,
		Telemetry: h.telemetry,
		Cities:    cities,
		Aliases:   geo.DefaultAliases(),
	})
	return h
}

func TestRun_InsertsValidCandidates(t *testing.T) {
	t.Helper()

	adapter := &fakeAdapter{name: "bookmyshow", byCity: map[string][]domain.RawCandidate{
		"mumbai": {jazzNight()},
	}}
	h := newHarness(t, []string{"mumbai"}, adapter)

	report, err := h.orch.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Cities, 1)

	city := report.Cities[0]
	assert.Equal(t, 1, city.Fetched)
	assert.Equal(t, 1, city.Inserted)
	assert.Equal(t, 1, city.Sources["bookmyshow"])

	stored := h.repo.snapshot()
	require.Len(t, stored, 1)
	assert.Equal(t, "cat-music", stored[0].CategoryID)
	assert.Equal(t, "c-mum", stored[0].CityID)
	assert.Equal(t,
		"https://in.bookmyshow.com/events/live-jazz/ET1?ref=quantumevents&utm_campaign=organic_discovery&utm_medium=listing&utm_source=quantumevents",
		stored[0].RegistrationURL)

	latest, err := h.store.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, report.CycleID, latest.CycleID)
}

func TestRun_Idempotent(t *testing.T) {
	t.Helper()

	adapter := &fakeAdapter{name: "bookmyshow", byCity: map[string][]domain.RawCandidate{
		"mumbai": {jazzNight()},
	}}
	h := newHarness(t, []string{"mumbai"}, adapter)
	ctx := context.Background()

	first, err := h.orch.Run(ctx)
	require.NoError(t, err)
	second, err := h.orch.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, first.Cities[0].Inserted)
	assert.Equal(t, 0, second.Cities[0].Inserted)
	assert.Equal(t, 1, second.Cities[0].Updated)
	assert.Len(t, h.repo.snapshot(), 1)
	assert.NotEqual(t, first.CycleID, second.CycleID)
}

func TestRun_SourceIsolation(t *testing.T) {
	t.Helper()

	broken := &fakeAdapter{name: "district", panicMsg: "selector exploded"}
	healthy := &fakeAdapter{name: "bookmyshow", byCity: map[string][]domain.RawCandidate{
		"mumbai": {jazzNight()},
	}}
	h := newHarness(t, []string{"mumbai", "pune"}, broken, healthy)

	report, err := h.orch.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Cities, 2)

	assert.Equal(t, 0, report.Cities[0].Sources["district"])
	assert.Equal(t, 1, report.Cities[0].Inserted)
	assert.Equal(t, 2, broken.calls)
	assert.Equal(t, 2, h.pool.acquired)
	assert.Equal(t, 2, h.pool.released)
}

func TestRun_ReferenceLoadFailureIsFatal(t *testing.T) {
	t.Helper()

	adapter := &fakeAdapter{name: "bookmyshow"}
	h := newHarness(t, []string{"mumbai"}, adapter)
	h.refs.err = errors.New("connection refused")

	report, err := h.orch.Run(context.Background())
	require.Error(t, err)
	require.NotNil(t, report)
	assert.Contains(t, report.Error, "connection refused")
	assert.Equal(t, 0, adapter.calls)
	assert.Equal(t, 0, h.pool.acquired)
}

func TestRun_CountsSkippedAndFailed(t *testing.T) {
	t.Helper()

	junk := jazzNight()
	junk.Title = "Dummy asdf"
	junk.URL = "https://in.bookmyshow.com/events/junk/ET2"
	junk.SourceID = "ET2"

	nowhere := jazzNight()
	nowhere.City = "jaipur"
	nowhere.Venue = "Hawa Mahal Grounds"
	nowhere.Address = "Jaipur"
	nowhere.URL = "https://in.bookmyshow.com/events/jaipur/ET3"
	nowhere.SourceID = "ET3"

	adapter := &fakeAdapter{name: "bookmyshow", byCity: map[string][]domain.RawCandidate{
		"mumbai": {junk, nowhere, jazzNight()},
	}}
	h := newHarness(t, []string{"mumbai"}, adapter)
	h.repo.fail = true

	report, err := h.orch.Run(context.Background())
	require.NoError(t, err)

	city := report.Cities[0]
	assert.Equal(t, 3, city.Fetched)
	assert.Equal(t, 2, city.Skipped)
	assert.Equal(t, 1, city.Failed)
	assert.Equal(t, 0, city.Saved())
}

func TestRun_ReconcilesCityFromVenue(t *testing.T) {
	t.Helper()

	c := jazzNight()
	c.City = "mumbai"
	c.Venue = "Hard Rock Cafe, Pune"
	c.Address = "Koregaon Park"

	adapter := &fakeAdapter{name: "district", byCity: map[string][]domain.RawCandidate{"mumbai": {c}}}
	h := newHarness(t, []string{"mumbai"}, adapter)

	_, err := h.orch.Run(context.Background())
	require.NoError(t, err)

	stored := h.repo.snapshot()
	require.Len(t, stored, 1)
	assert.Equal(t, "c-pune", stored[0].CityID)
}

func TestRun_UnknownCategoryFallsBackToEvents(t *testing.T) {
	t.Helper()

	c := jazzNight()
	c.Title = "Startup Networking Evening"
	c.Description = "Meet founders and investors over an informal evening."
	c.Category = "Business"

	adapter := &fakeAdapter{name: "eventbrite", byCity: map[string][]domain.RawCandidate{"mumbai": {c}}}
	h := newHarness(t, []string{"mumbai"}, adapter)

	_, err := h.orch.Run(context.Background())
	require.NoError(t, err)

	stored := h.repo.snapshot()
	require.Len(t, stored, 1)
	assert.Equal(t, "cat-events", stored[0].CategoryID)
}

func TestRun_UnknownDateNeedsReview(t *testing.T) {
	t.Helper()

	c := jazzNight()
	c.DateKnown = false
	c.Date = time.Time{}

	adapter := &fakeAdapter{name: "bookmyshow", byCity: map[string][]domain.RawCandidate{"mumbai": {c}}}
	h := newHarness(t, []string{"mumbai"}, adapter)

	_, err := h.orch.Run(context.Background())
	require.NoError(t, err)

	stored := h.repo.snapshot()
	require.Len(t, stored, 1)
	assert.False(t, stored[0].IsApproved)
	assert.True(t, stored[0].NeedsReview)
}

func TestRun_RejectsOverlappingCycle(t *testing.T) {
	t.Helper()

	adapter := &fakeAdapter{name: "bookmyshow", block: make(chan struct{})}
	h := newHarness(t, []string{"mumbai"}, adapter)

	id, err := h.orch.Start(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	require.Eventually(t, func() bool {
		adapter.mu.Lock()
		defer adapter.mu.Unlock()
		return adapter.calls == 1
	}, time.Second, 5*time.Millisecond)

	_, err = h.orch.Run(context.Background())
	require.ErrorIs(t, err, syncer.ErrCycleInProgress)

	_, err = h.orch.Start(context.Background())
	require.ErrorIs(t, err, syncer.ErrCycleInProgress)

	close(adapter.block)
	h.orch.Wait()

	latest, err := h.store.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, id, latest.CycleID)

	_, err = h.orch.Run(context.Background())
	require.NoError(t, err)
}

func TestRun_TagsAPIRecordsBeforeMerge(t *testing.T) {
	t.Helper()

	c := jazzNight()
	c.FromAPI = true
	c.Source = "eventbrite"
	c.SourceID = "987"
	c.URL = "https://www.eventbrite.com/e/jazz-987?aff=aajkascene"

	adapter := &fakeAdapter{name: "eventbrite", byCity: map[string][]domain.RawCandidate{"mumbai": {c}}}
	h := newHarness(t, []string{"mumbai"}, adapter)

	_, err := h.orch.Run(context.Background())
	require.NoError(t, err)

	stored := h.repo.snapshot()
	require.Len(t, stored, 1)
	assert.Contains(t, stored[0].RegistrationURL, "aff=aajkascene")
	assert.Contains(t, stored[0].RegistrationURL, "ref=quantumevents")
}

// hangingSession loads pages that never finish scrolling or rendering until their
// context ends.
type hangingSession struct{}

func (hangingSession) NewPage(context.Context) (browser.Page, error) { return hangingPage{}, nil }

func (hangingSession) Close() error { return nil }

type hangingPage struct{}

func (hangingPage) Navigate(context.Context, string, time.Duration) error { return nil }

func (hangingPage) WaitForSelector(context.Context, string, time.Duration) error { return nil }

func (hangingPage) Scroll(ctx context.Context, _ int) error {
	<-ctx.Done()
	return ctx.Err()
}

func (hangingPage) Evaluate(ctx context.Context, _ browser.Extractor) ([]domain.RawCandidate, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (hangingPage) Close() error { return nil }

func TestRun_StalledSourceDoesNotBlockSiblings(t *testing.T) {
	t.Helper()

	stalled := sources.NewDistrict(sources.Options{
		NavTimeout:  50 * time.Millisecond,
		WaitTimeout: 50 * time.Millisecond,
	})
	healthy := &fakeAdapter{name: "bookmyshow", byCity: map[string][]domain.RawCandidate{
		"mumbai": {jazzNight()},
	}}
	h := newHarness(t, []string{"mumbai"}, stalled, healthy)
	h.pool.session = hangingSession{}

	type result struct {
		report *domain.SyncReport
		err    error
	}
	done := make(chan result, 1)
	go func() {
		report, err := h.orch.Run(context.Background())
		done <- result{report, err}
	}()

	var res result
	select {
	case res = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("cycle blocked on a stalled source")
	}

	require.NoError(t, res.err)
	city := res.report.Cities[0]
	assert.Equal(t, 0, city.Sources["district"])
	assert.Equal(t, 1, city.Sources["bookmyshow"])
	assert.Equal(t, 1, city.Inserted)
	assert.Empty(t, res.report.Error)

	_, err := h.orch.Run(context.Background())
	assert.NoError(t, err, "cycle slot is released after a stalled source")
}

// cancellingAdapter cancels the cycle context while returning its candidates.
type cancellingAdapter struct {
	cancel context.CancelFunc
}

func (a *cancellingAdapter) Name() string { return "bookmyshow" }

func (a *cancellingAdapter) Fetch(context.Context, string, browser.Session) []domain.RawCandidate {
	a.cancel()
	return []domain.RawCandidate{jazzNight()}
}

func TestRun_InterruptedCycleIsNotASuccess(t *testing.T) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := newHarness(t, []string{"mumbai", "pune"}, &cancellingAdapter{cancel: cancel})

	report, err := h.orch.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, context.Canceled.Error(), report.Error)
	assert.Len(t, report.Cities, 1)

	metrics := h.telemetry.Metrics
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.CyclesTotal.WithLabelValues(telemetry.StatusInterrupted)), 0.001)
	assert.InDelta(t, 0, testutil.ToFloat64(metrics.CyclesTotal.WithLabelValues(telemetry.StatusSuccess)), 0.001)
	assert.InDelta(t, 0, testutil.ToFloat64(metrics.LastSuccessUnix), 0.001)

	latest, err := h.store.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, report.CycleID, latest.CycleID)
}

func TestRun_SuccessfulCycleRecordsSuccess(t *testing.T) {
	t.Helper()

	adapter := &fakeAdapter{name: "bookmyshow", byCity: map[string][]domain.RawCandidate{
		"mumbai": {jazzNight()},
	}}
	h := newHarness(t, []string{"mumbai"}, adapter)

	_, err := h.orch.Run(context.Background())
	require.NoError(t, err)

	metrics := h.telemetry.Metrics
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.CyclesTotal.WithLabelValues(telemetry.StatusSuccess)), 0.001)
	assert.Positive(t, testutil.ToFloat64(metrics.LastSuccessUnix))
}

func TestRun_APIRecordMatchesUntaggedRow(t *testing.T) {
	t.Helper()

	c := jazzNight()
	c.FromAPI = true
	c.Source = "eventbrite"
	c.SourceID = "987"
	c.URL = "https://www.eventbrite.com/e/jazz-987?aff=aajkascene"

	adapter := &fakeAdapter{name: "eventbrite", byCity: map[string][]domain.RawCandidate{"mumbai": {c}}}
	h := newHarness(t, []string{"mumbai"}, adapter)
	h.repo.events = []*domain.CanonicalEvent{
		{ID: "legacy", RegistrationURL: c.URL, Source: "legacy-import", SourceID: "x"},
	}

	report, err := h.orch.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Cities[0].Updated)
	assert.Equal(t, 0, report.Cities[0].Inserted)

	stored := h.repo.snapshot()
	require.Len(t, stored, 1)
	assert.Equal(t, "legacy", stored[0].ID)
	assert.Contains(t, stored[0].RegistrationURL, "utm_source=quantumevents")
}
