package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"PaperIngest/internal/ports"
)

// Scheduler re-runs a pipeline every time the driver fires.
type Scheduler struct {
	driver   ports.Scheduler
	pipeline *Pipeline
	logger   *slog.Logger
}

// NewScheduler binds the pipeline to a driver such as the interval ticker.
func NewScheduler(driver ports.Scheduler, pipeline *Pipeline, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{driver: driver, pipeline: pipeline, logger: logger}
}

// Start hands the run job to the driver. Each tick runs one full pass; a
// failed pass is logged and the schedule keeps going.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.pipeline == nil {
		return nil
	}
	return s.driver.Start(ctx, func(trigger time.Time) {
		s.tick(ctx, trigger)
	})
}

func (s *Scheduler) tick(ctx context.Context, trigger time.Time) {
	s.logger.Info("scheduled run triggered", "at", trigger)
	report, err := s.pipeline.RunOnce(ctx)
	switch {
	case errors.Is(err, context.Canceled):
		s.logger.Info("scheduled run skipped, shutting down")
	case err != nil:
		s.logger.Error("scheduled run failed", "error", err)
	default:
		s.logger.Info("scheduled run done",
			"run_id", report.RunID,
			"total", report.Total,
			"failed", report.Failed)
	}
}

// Stop waits for the driver to finish the current pass.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}
	return s.driver.Stop(ctx)
}
