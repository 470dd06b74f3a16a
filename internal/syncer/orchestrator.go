// Package syncer runs sync cycles: fetch every source for every city, then validate,
// classify, reconcile, tag and upsert each candidate.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/jonesrussell/north-cloud/event-sync/internal/attribution"
	"github.com/jonesrussell/north-cloud/event-sync/internal/browser"
	"github.com/jonesrussell/north-cloud/event-sync/internal/domain"
	"github.com/jonesrussell/north-cloud/event-sync/internal/logger"
	"github.com/jonesrussell/north-cloud/event-sync/internal/quality"
	"github.com/jonesrussell/north-cloud/event-sync/internal/sources"
	"github.com/jonesrussell/north-cloud/event-sync/internal/status"
	"github.com/jonesrussell/north-cloud/event-sync/internal/telemetry"
	"github.com/jonesrussell/north-cloud/event-sync/internal/upsert"
)

var (
	// ErrCycleInProgress is returned when a cycle is triggered while another is running.
	ErrCycleInProgress = errors.New("sync cycle already in progress")
	// ErrNoReferenceData is returned when the reference snapshot has no cities or categories.
	ErrNoReferenceData = errors.New("no reference data")
)

// Skip reasons recorded outside of validation.
const reasonUnknownCity = "City could not be resolved"

// ReferenceLoader provides the reference snapshot.
type ReferenceLoader interface {
	ListCities(ctx context.Context) ([]domain.ReferenceCity, error)
	ListCategories(ctx context.Context) ([]domain.ReferenceCategory, error)
}

// Upserter writes one candidate.
type Upserter interface {
	Upsert(ctx context.Context, in upsert.Input) (upsert.Outcome, error)
}

// SessionPool hands out browser sessions with guaranteed release.
type SessionPool interface {
	With(ctx context.Context, fn func(browser.Session) error) error
}

// Deps are the collaborators of an Orchestrator.
type Deps struct {
	References ReferenceLoader
	Adapters   []sources.Adapter
	Pool       SessionPool
	Heuristics *quality.Heuristics
	Tagger     *attribution.Tagger
	Engine     Upserter
	// Store receives the report of every cycle. Optional.
	Store     status.Store
	Telemetry *telemetry.Provider
	Logger    logger.Logger
	// Cities are internal city slugs, processed in order.
	Cities  []string
	Aliases map[string]string
	Now     func() time.Time
	NewID   func() string
}

// Orchestrator runs at most one cycle at a time per process.
type Orchestrator struct {
	deps Deps
	mu   sync.Mutex
	wg   sync.WaitGroup
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(deps Deps) *Orchestrator {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.NewID == nil {
		deps.NewID = uuid.NewString
	}
	if deps.Telemetry == nil {
		deps.Telemetry = telemetry.NewNopProvider()
	}
	if deps.Logger == nil {
		deps.Logger = logger.NewNop()
	}
	return &Orchestrator{deps: deps}
}

// Run executes one cycle and returns its report. It fails with ErrCycleInProgress when a
// cycle is already running, and with a wrapped error when reference data cannot be loaded.
// Source and record failures are counted in the report, not returned.
func (o *Orchestrator) Run(ctx context.Context) (*domain.SyncReport, error) {
	if !o.mu.TryLock() {
		o.deps.Telemetry.Metrics.CyclesTotal.WithLabelValues(telemetry.StatusRejected).Inc()
		return nil, ErrCycleInProgress
	}
	defer o.mu.Unlock()

	return o.run(ctx, o.deps.NewID())
}

// Start reserves the cycle slot and runs a cycle in the background. The returned id
// identifies the cycle in logs and in the stored report.
func (o *Orchestrator) Start(ctx context.Context) (string, error) {
	if !o.mu.TryLock() {
		o.deps.Telemetry.Metrics.CyclesTotal.WithLabelValues(telemetry.StatusRejected).Inc()
		return "", ErrCycleInProgress
	}

	id := o.deps.NewID()
	bg := context.WithoutCancel(ctx)

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer o.mu.Unlock()

		if _, err := o.run(bg, id); err != nil {
			o.deps.Logger.Error("Background sync cycle failed", logger.String("cycle_id", id), logger.Error(err))
		}
	}()

	return id, nil
}

// Wait blocks until background cycles started with Start have finished.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

func (o *Orchestrator) run(ctx context.Context, id string) (*domain.SyncReport, error) {
	started := o.deps.Now()
	log := o.deps.Logger.With(logger.String("cycle_id", id))
	metrics := o.deps.Telemetry.Metrics

	ctx, span := o.deps.Telemetry.Tracer.Start(ctx, "sync.cycle", trace.WithAttributes(attribute.String("cycle_id", id)))
	defer span.End()

	log.Info("Sync cycle started", logger.Strings("cities", o.deps.Cities))

	ref, err := o.loadReference(ctx)
	if err != nil {
		report := &domain.SyncReport{CycleID: id, StartedAt: started, FinishedAt: o.deps.Now(), Error: err.Error()}
		o.saveReport(ctx, log, report)

		span.RecordError(err)
		span.SetStatus(codes.Error, "reference data")
		metrics.CyclesTotal.WithLabelValues(telemetry.StatusFailed).Inc()
		log.Error("Sync cycle aborted", logger.Error(err))
		return report, fmt.Errorf("load reference data: %w", err)
	}

	cycle := newCycle(id, started, ref, o.deps.Aliases, log)

	for _, city := range o.deps.Cities {
		if ctx.Err() != nil {
			cycle.Report.Error = ctx.Err().Error()
			log.Warn("Sync cycle interrupted", logger.Error(ctx.Err()))
			break
		}
		cycle.Report.Cities = append(cycle.Report.Cities, o.syncCity(ctx, cycle, city))
	}

	if ctx.Err() != nil && cycle.Report.Error == "" {
		cycle.Report.Error = ctx.Err().Error()
		log.Warn("Sync cycle interrupted", logger.Error(ctx.Err()))
	}

	cycle.Report.FinishedAt = o.deps.Now()
	o.saveReport(context.WithoutCancel(ctx), log, cycle.Report)

	saved, skipped := cycle.Report.Totals()
	duration := cycle.Report.FinishedAt.Sub(started)
	metrics.CycleDuration.Observe(duration.Seconds())
	if cycle.Report.Error != "" {
		span.SetStatus(codes.Error, "interrupted")
		metrics.CyclesTotal.WithLabelValues(telemetry.StatusInterrupted).Inc()
	} else {
		metrics.CyclesTotal.WithLabelValues(telemetry.StatusSuccess).Inc()
		metrics.LastSuccessUnix.Set(float64(cycle.Report.FinishedAt.Unix()))
	}

	log.Info("Sync cycle finished",
		logger.Int("saved", saved),
		logger.Int("skipped", skipped),
		logger.Duration("duration", duration),
	)

	return cycle.Report, nil
}

func (o *Orchestrator) loadReference(ctx context.Context) (domain.ReferenceData, error) {
	cities, err := o.deps.References.ListCities(ctx)
	if err != nil {
		return domain.ReferenceData{}, fmt.Errorf("list cities: %w", err)
	}
	categories, err := o.deps.References.ListCategories(ctx)
	if err != nil {
		return domain.ReferenceData{}, fmt.Errorf("list categories: %w", err)
	}
	if len(cities) == 0 || len(categories) == 0 {
		return domain.ReferenceData{}, ErrNoReferenceData
	}
	return domain.ReferenceData{Cities: cities, Categories: categories}, nil
}

func (o *Orchestrator) saveReport(ctx context.Context, log logger.Logger, report *domain.SyncReport) {
	if o.deps.Store == nil {
		return
	}
	if err := o.deps.Store.Save(ctx, report); err != nil {
		log.Warn("Failed to store sync report", logger.Error(err))
	}
}

// syncCity fetches all sources for city within one browser session, releases the session,
// then processes the merged candidates.
func (o *Orchestrator) syncCity(ctx context.Context, cycle *Cycle, city string) domain.CityReport {
	log := cycle.log.With(logger.String("city", city))
	report := domain.CityReport{City: city, Sources: make(map[string]int, len(o.deps.Adapters))}

	ctx, span := o.deps.Telemetry.Tracer.Start(ctx, "sync.city", trace.WithAttributes(attribute.String("city", city)))
	defer span.End()

	var candidates []domain.RawCandidate
	err := o.deps.Pool.With(ctx, func(session browser.Session) error {
		candidates = o.fetch(ctx, log, city, session, &report)
		return nil
	})
	if err != nil {
		report.Error = err.Error()
		span.RecordError(err)
		log.Error("City sync failed", logger.Error(err))
		return report
	}

	report.Fetched = len(candidates)
	log.Info("Fetched candidates", logger.Int("count", report.Fetched), logger.Any("sources", report.Sources))

	for i := range candidates {
		if ctx.Err() != nil {
			break
		}
		o.processOne(ctx, cycle, log, city, &candidates[i], &report)
	}

	log.Info("City sync finished",
		logger.Int("inserted", report.Inserted),
		logger.Int("updated", report.Updated),
		logger.Int("skipped", report.Skipped),
		logger.Int("failed", report.Failed),
	)
	return report
}

// fetch runs every adapter concurrently on the shared session and concatenates their
// results in adapter order. API records are tagged here, before they are merged.
func (o *Orchestrator) fetch(
	ctx context.Context, log logger.Logger, city string, session browser.Session, report *domain.CityReport,
) []domain.RawCandidate {
	results := make([][]domain.RawCandidate, len(o.deps.Adapters))

	g, gctx := errgroup.WithContext(ctx)
	for i, adapter := range o.deps.Adapters {
		g.Go(func() error {
			results[i] = o.runAdapter(gctx, log, adapter, city, session)
			return nil
		})
	}
	_ = g.Wait()

	var merged []domain.RawCandidate
	for i, adapter := range o.deps.Adapters {
		report.Sources[adapter.Name()] += len(results[i])
		for _, c := range results[i] {
			if c.FromAPI {
				c.URL = o.deps.Tagger.Tag(c.URL)
			}
			merged = append(merged, c)
		}
	}
	return merged
}

// runAdapter isolates one source: a panic is logged and counted as an empty result.
func (o *Orchestrator) runAdapter(
	ctx context.Context, log logger.Logger, adapter sources.Adapter, city string, session browser.Session,
) (out []domain.RawCandidate) {
	name := adapter.Name()

	ctx, span := o.deps.Telemetry.Tracer.Start(ctx, "sync.adapter", trace.WithAttributes(
		attribute.String("source", name),
		attribute.String("city", city),
	))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			log.Error("Source adapter panicked", logger.String("source", name), logger.Any("panic", r))
			span.SetStatus(codes.Error, "panic")
			o.deps.Telemetry.Metrics.AdapterPanics.WithLabelValues(name).Inc()
			out = nil
		}
	}()

	out = adapter.Fetch(ctx, city, session)
	o.deps.Telemetry.Metrics.CandidatesFetched.WithLabelValues(name).Add(float64(len(out)))
	return out
}

// processOne validates, classifies, reconciles, tags and upserts a single candidate.
func (o *Orchestrator) processOne(
	ctx context.Context, cycle *Cycle, log logger.Logger, city string, c *domain.RawCandidate, report *domain.CityReport,
) {
	metrics := o.deps.Telemetry.Metrics

	skip := func(reason string) {
		report.Skipped++
		metrics.RecordsProcessed.WithLabelValues("skipped").Inc()
		metrics.RecordsSkipped.WithLabelValues(reason).Inc()
		log.Debug("Skipping candidate", logger.String("title", c.Title), logger.String("reason", reason))
	}

	if result := o.deps.Heuristics.Validate(c); !result.Valid {
		skip(result.Reason)
		return
	}

	category := cycle.category(o.deps.Heuristics.NormalizeCategory(c.Category, c.Title, c.Description))

	claimed := c.City
	if claimed == "" {
		claimed = city
	}
	refCity, ok := cycle.reconciler.Reconcile(c, claimed)
	if !ok {
		skip(reasonUnknownCity)
		return
	}

	outcome, err := o.deps.Engine.Upsert(ctx, upsert.Input{
		Candidate: c,
		City:      refCity,
		Category:  category,
		TaggedURL: o.deps.Tagger.Tag(c.URL),
		SourceURL: o.deps.Tagger.Strip(c.URL),
	})
	if err != nil {
		report.Failed++
		metrics.RecordsProcessed.WithLabelValues("failed").Inc()
		log.Warn("Failed to save candidate", logger.String("title", c.Title), logger.Error(err))
		return
	}

	switch outcome {
	case upsert.Inserted:
		report.Inserted++
	case upsert.Updated:
		report.Updated++
	case upsert.Rejected:
		report.Failed++
	}
	metrics.RecordsProcessed.WithLabelValues(outcome.String()).Inc()
}
