// Package maintenance re-checks already published events against the current heuristics.
package maintenance

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonesrussell/north-cloud/event-sync/internal/domain"
	"github.com/jonesrussell/north-cloud/event-sync/internal/logger"
	"github.com/jonesrussell/north-cloud/event-sync/internal/quality"
)

// Repository is the event storage the runner reads and corrects.
type Repository interface {
	ListApproved(ctx context.Context) ([]*domain.CanonicalEvent, error)
	SetCategory(ctx context.Context, id, categoryID string) error
	FlagForReview(ctx context.Context, id, reason string) error
}

// CategoryLoader provides the known categories.
type CategoryLoader interface {
	ListCategories(ctx context.Context) ([]domain.ReferenceCategory, error)
}

// Report counts what a pass changed.
type Report struct {
	Checked       int `json:"checked"`
	Flagged       int `json:"flagged"`
	Recategorized int `json:"recategorized"`
	Failed        int `json:"failed"`
}

// Runner performs the maintenance pass.
type Runner struct {
	repo       Repository
	categories CategoryLoader
	heuristics *quality.Heuristics
	log        logger.Logger
}

// NewRunner creates a maintenance runner.
func NewRunner(repo Repository, categories CategoryLoader, heuristics *quality.Heuristics, log logger.Logger) *Runner {
	if log == nil {
		log = logger.NewNop()
	}
	return &Runner{repo: repo, categories: categories, heuristics: heuristics, log: log}
}

// Run walks every approved event. Re-released movies are unpublished and flagged for review;
// events whose keywords point to a different specific category are moved there. Failures on
// single events are counted and do not stop the pass.
func (r *Runner) Run(ctx context.Context) (Report, error) {
	var report Report

	cats, err := r.categories.ListCategories(ctx)
	if err != nil {
		return report, fmt.Errorf("list categories: %w", err)
	}
	byID := make(map[string]domain.ReferenceCategory, len(cats))
	byName := make(map[string]domain.ReferenceCategory, len(cats))
	for _, c := range cats {
		byID[c.ID] = c
		byName[strings.ToLower(c.Name)] = c
	}

	events, err := r.repo.ListApproved(ctx)
	if err != nil {
		return report, fmt.Errorf("list approved events: %w", err)
	}

	r.log.Info("Maintenance pass started", logger.Int("events", len(events)))

	for _, event := range events {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		report.Checked++

		log := r.log.With(logger.String("event_id", event.ID), logger.String("title", event.Title))
		content := quality.NormalizeText(event.Title + " " + event.Description)

		if r.heuristics.IsReRelease(byID[event.CategoryID].Name, content) {
			if flagErr := r.repo.FlagForReview(ctx, event.ID, quality.ReasonReRelease); flagErr != nil {
				report.Failed++
				log.Warn("Failed to flag re-release", logger.Error(flagErr))
				continue
			}
			report.Flagged++
			log.Info("Flagged re-release for review")
			continue
		}

		name := r.heuristics.NormalizeCategory("", event.Title, event.Description)
		if name == quality.DefaultCategory {
			continue
		}
		target, ok := byName[strings.ToLower(name)]
		if !ok || target.ID == event.CategoryID {
			continue
		}

		if setErr := r.repo.SetCategory(ctx, event.ID, target.ID); setErr != nil {
			report.Failed++
			log.Warn("Failed to recategorize event", logger.Error(setErr))
			continue
		}
		report.Recategorized++
		log.Info("Recategorized event",
			logger.String("from", byID[event.CategoryID].Name),
			logger.String("to", target.Name),
		)
	}

	r.log.Info("Maintenance pass finished",
		logger.Int("checked", report.Checked),
		logger.Int("flagged", report.Flagged),
		logger.Int("recategorized", report.Recategorized),
		logger.Int("failed", report.Failed),
	)

	return report, nil
}
