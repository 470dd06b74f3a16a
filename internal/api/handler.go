// Package api exposes the HTTP trigger and status surface for sync cycles.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/north-cloud/event-sync/internal/domain"
	"github.com/jonesrussell/north-cloud/event-sync/internal/logger"
	"github.com/jonesrussell/north-cloud/event-sync/internal/status"
	"github.com/jonesrussell/north-cloud/event-sync/internal/syncer"
)

const defaultCronTimeout = 300 * time.Second

// Syncer runs sync cycles.
type Syncer interface {
	Start(ctx context.Context) (string, error)
	Run(ctx context.Context) (*domain.SyncReport, error)
}

// ReportReader returns the last stored report.
type ReportReader interface {
	Latest(ctx context.Context) (*domain.SyncReport, error)
}

// SyncHandler serves the sync endpoints.
type SyncHandler struct {
	syncer      Syncer
	reports     ReportReader
	cronTimeout time.Duration
	log         logger.Logger
	now         func() time.Time
}

// NewSyncHandler creates a sync handler. A zero cronTimeout selects 300s.
func NewSyncHandler(s Syncer, reports ReportReader, cronTimeout time.Duration, log logger.Logger) *SyncHandler {
	if cronTimeout <= 0 {
		cronTimeout = defaultCronTimeout
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &SyncHandler{syncer: s, reports: reports, cronTimeout: cronTimeout, log: log, now: time.Now}
}

// Trigger starts a cycle in the background.
// POST /api/v1/sync
func (h *SyncHandler) Trigger(c *gin.Context) {
	id, err := h.syncer.Start(c.Request.Context())
	if errors.Is(err, syncer.ErrCycleInProgress) {
		c.JSON(http.StatusConflict, gin.H{"error": "sync already in progress"})
		return
	}
	if err != nil {
		h.log.Error("Failed to start sync", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start sync"})
		return
	}

	h.log.Info("Sync started from API", logger.String("cycle_id", id))
	c.JSON(http.StatusAccepted, gin.H{
		"status":   "processing",
		"cycle_id": id,
		"message":  "Sync started in the background. Events will appear shortly.",
	})
}

// Cron runs a full cycle and answers when it is done.
// GET /api/v1/cron/sync
func (h *SyncHandler) Cron(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.cronTimeout)
	defer cancel()

	report, err := h.syncer.Run(ctx)
	if errors.Is(err, syncer.ErrCycleInProgress) {
		c.JSON(http.StatusConflict, gin.H{"error": "sync already in progress"})
		return
	}
	if err != nil {
		h.log.Error("Cron sync failed", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "report": report})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Cron sync completed",
		"timestamp": h.now().UTC().Format(time.RFC3339),
		"report":    report,
	})
}

// Status returns the report of the last finished cycle.
// GET /api/v1/sync/status
func (h *SyncHandler) Status(c *gin.Context) {
	report, err := h.reports.Latest(c.Request.Context())
	if errors.Is(err, status.ErrNoReport) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no sync has completed yet"})
		return
	}
	if err != nil {
		h.log.Error("Failed to read sync status", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read sync status"})
		return
	}

	saved, skipped := report.Totals()
	c.JSON(http.StatusOK, gin.H{
		"report":  report,
		"saved":   saved,
		"skipped": skipped,
	})
}
