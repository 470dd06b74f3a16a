// Package scheduler runs sync cycles on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/jonesrussell/north-cloud/event-sync/internal/domain"
	"github.com/jonesrussell/north-cloud/event-sync/internal/logger"
	"github.com/jonesrussell/north-cloud/event-sync/internal/syncer"
)

// Runner runs one sync cycle.
type Runner interface {
	Run(ctx context.Context) (*domain.SyncReport, error)
}

// Scheduler triggers the runner on a standard five-field cron expression or descriptor.
type Scheduler struct {
	cron     *cron.Cron
	runner   Runner
	log      logger.Logger
	schedule string

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

// New validates schedule and registers the sync job.
func New(schedule string, runner Runner, log logger.Logger) (*Scheduler, error) {
	if log == nil {
		log = logger.NewNop()
	}

	cl := cronLogger{log: log}
	s := &Scheduler{
		cron:     cron.New(cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		runner:   runner,
		log:      log,
		schedule: schedule,
		ctx:      context.Background(),
	}

	if _, err := s.cron.AddFunc(schedule, func() { s.RunOnce(s.context()) }); err != nil {
		return nil, fmt.Errorf("add sync schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start begins firing. Cycles run under a context derived from ctx.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.cron.Start()

	entries := s.cron.Entries()
	if len(entries) > 0 {
		s.log.Info("Sync scheduler started",
			logger.String("schedule", s.schedule),
			logger.Time("next_run", entries[0].Next),
		)
	}
}

// Stop cancels a running cycle and waits for it to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.log.Info("Sync scheduler stopped")
}

// RunOnce runs a single cycle. An overlapping cycle is logged and skipped.
func (s *Scheduler) RunOnce(ctx context.Context) {
	report, err := s.runner.Run(ctx)
	if errors.Is(err, syncer.ErrCycleInProgress) {
		s.log.Info("Scheduled sync skipped, cycle already running")
		return
	}
	if err != nil {
		s.log.Error("Scheduled sync failed", logger.Error(err))
		return
	}

	saved, skipped := report.Totals()
	s.log.Info("Scheduled sync finished",
		logger.String("cycle_id", report.CycleID),
		logger.Int("saved", saved),
		logger.Int("skipped", skipped),
	)
}

func (s *Scheduler) context() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

// cronLogger adapts logger.Logger to cron.Logger.
type cronLogger struct {
	log logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug("cron: "+msg, logger.Any("details", keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error("cron: "+msg, logger.Error(err), logger.Any("details", keysAndValues))
}
