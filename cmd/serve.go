package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/north-cloud/event-sync/internal/api"
	"github.com/jonesrussell/north-cloud/event-sync/internal/logger"
	"github.com/jonesrussell/north-cloud/event-sync/internal/scheduler"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP trigger surface and the cron scheduler",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	orch, err := a.orchestrator()
	if err != nil {
		return err
	}

	sched, err := scheduler.New(a.cfg.Sync.Schedule, orch, a.log)
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}
	sched.Start(ctx)
	defer sched.Stop()

	checks := api.Checks{
		Database: func() error { return a.db.PingContext(ctx) },
	}
	if a.redis != nil {
		checks.Redis = func() error { return a.redis.Ping(ctx).Err() }
	}

	handler := api.NewSyncHandler(orch, a.store, a.cfg.Service.CronTimeout, a.log)
	srv := api.NewServer(handler, a.cfg, checks, api.RouteOptions{
		JWTSecret:  a.cfg.Service.JWTSecret,
		CronSecret: a.cfg.Service.CronSecret,
		Metrics:    a.telemetry.Handler(),
	}, a.log)

	a.log.Info("Event sync starting",
		logger.Int("port", a.cfg.Service.Port),
		logger.String("schedule", a.cfg.Sync.Schedule),
		logger.Strings("cities", a.cfg.Sync.Cities),
	)

	if runErr := srv.Run(ctx); runErr != nil {
		return fmt.Errorf("run server: %w", runErr)
	}

	orch.Wait()
	a.log.Info("Event sync exited cleanly")
	return nil
}
