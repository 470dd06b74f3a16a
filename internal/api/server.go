package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/north-cloud/event-sync/internal/config"
	"github.com/jonesrussell/north-cloud/event-sync/internal/logger"
	"github.com/jonesrussell/north-cloud/event-sync/internal/server"
)

const (
	defaultReadTimeout = 10 * time.Second
	defaultIdleTimeout = 60 * time.Second
	// writeTimeoutSlack keeps the connection open past the cron timeout so the report can be written.
	writeTimeoutSlack = 30 * time.Second
)

// Checks are optional dependency pings for /health.
type Checks struct {
	Database func() error
	Redis    func() error
}

// NewServer creates the HTTP server.
func NewServer(h *SyncHandler, cfg *config.Config, checks Checks, opts RouteOptions, log logger.Logger) *server.Server {
	b := server.NewBuilder(cfg.Service.Name, cfg.Service.Port).
		WithLogger(log).
		WithDebug(cfg.Service.Debug).
		WithVersion(cfg.Service.Version).
		WithTimeouts(defaultReadTimeout, cfg.Service.CronTimeout+writeTimeoutSlack, defaultIdleTimeout).
		WithRoutes(func(router *gin.Engine) {
			SetupRoutes(router, h, opts)
		})

	if checks.Database != nil {
		b = b.WithHealthCheck("database", server.DatabaseHealthChecker(checks.Database))
	}
	if checks.Redis != nil {
		b = b.WithHealthCheck("redis", server.RedisHealthChecker(checks.Redis))
	}

	return b.Build()
}
