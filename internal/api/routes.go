package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/north-cloud/event-sync/internal/server"
)

// RouteOptions carry the secrets guarding the routes.
type RouteOptions struct {
	JWTSecret  string
	CronSecret string
	// Metrics serves /metrics when set.
	Metrics http.Handler
}

// SetupRoutes registers the sync routes. Health routes are registered by the server builder.
func SetupRoutes(router *gin.Engine, h *SyncHandler, opts RouteOptions) {
	if opts.Metrics != nil {
		router.GET("/metrics", gin.WrapH(opts.Metrics))
	}

	v1 := router.Group("/api/v1")

	v1.GET("/cron/sync", server.BearerSecretMiddleware(opts.CronSecret), h.Cron)

	admin := v1.Group("")
	admin.Use(server.JWTMiddleware(opts.JWTSecret))
	admin.POST("/sync", h.Trigger)
	admin.GET("/sync/status", h.Status)
}
