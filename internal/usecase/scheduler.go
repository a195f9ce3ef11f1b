package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"NewsDesk/internal/ports"
)

// Scheduler wires the cron-like driver with the daily prune and prewarm job.
type Scheduler struct {
	driver   ports.Scheduler
	pipeline *Pipeline
	logger   *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring jobs.
func NewScheduler(driver ports.Scheduler, pipeline *Pipeline, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Scheduler{driver: driver, pipeline: pipeline, logger: logger.With("component", "daily-job")}
}

// Start registers the daily job with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.pipeline == nil {
		return nil
	}
	return s.driver.Start(ctx, func(trigger time.Time) {
		s.RunOnce(ctx, trigger)
	})
}

// RunOnce prunes expired archive days and warms today's topics.
func (s *Scheduler) RunOnce(ctx context.Context, trigger time.Time) {
	if removed := s.pipeline.Prune(ctx, trigger); len(removed) > 0 {
		s.logger.Info("archive pruned", "removed", removed)
	}
	list, err := s.pipeline.Analyze(ctx)
	switch {
	case errors.Is(err, ErrNoResults):
		s.logger.Warn("prewarm found no news")
	case err != nil:
		s.logger.Warn("prewarm failed", "error", err)
	default:
		s.logger.Info("topics prewarmed", "topics", len(list.Topics), "from_archive", list.IsFromArchive)
	}
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}
	return s.driver.Stop(ctx)
}
