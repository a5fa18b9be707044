package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"PaperIngest/internal/domain"
)

const (
	defaultMaxItems     = 10
	defaultStageTimeout = 60 * time.Second

	reasonCanceled = "run canceled"
)

// RunnerOptions bounds a run.
type RunnerOptions struct {
	MaxItems     int
	StageTimeout time.Duration
	// NewRunID overrides the run identifier generator.
	NewRunID func() string
}

// Runner drives items through the stage chain one at a time.
type Runner struct {
	stages []Stage
	opts   RunnerOptions
	logger *slog.Logger
}

// NewRunner builds a runner over the ordered stages.
func NewRunner(opts RunnerOptions, logger *slog.Logger, stages ...Stage) *Runner {
	if opts.MaxItems <= 0 {
		opts.MaxItems = defaultMaxItems
	}
	if opts.StageTimeout <= 0 {
		opts.StageTimeout = defaultStageTimeout
	}
	if opts.NewRunID == nil {
		opts.NewRunID = uuid.NewString
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{stages: stages, opts: opts, logger: logger}
}

// Run processes at most MaxItems items in feed order. A failure only ends
// the item it happened to; cancelling ctx reports the unattempted items as
// failed.
func (r *Runner) Run(ctx context.Context, items []domain.Item) domain.RunReport {
	report := domain.RunReport{RunID: r.opts.NewRunID()}
	if len(items) > r.opts.MaxItems {
		items = items[:r.opts.MaxItems]
	}
	log := r.logger.With("run_id", report.RunID)
	log.Info("run started", "items", len(items), "stages", len(r.stages))

	for i, item := range items {
		if ctx.Err() != nil {
			for _, rest := range items[i:] {
				report.Add(domain.ItemResult{
					ID:     rest.ID,
					Title:  rest.Title,
					Status: domain.StatusFailed,
					Reason: reasonCanceled,
				})
			}
			log.Warn("run canceled", "unattempted", len(items)-i)
			break
		}

		res := r.process(ctx, item, report.RunID, log)
		report.Add(res)
		log.Info("item processed",
			"progress", i+1,
			"of", len(items),
			"id", res.ID,
			"status", res.Status,
			"stage", res.Stage,
			"reason", res.Reason,
			"degraded", res.Degraded)
	}

	log.Info("run finished",
		"total", report.Total,
		"succeeded", report.Succeeded,
		"skipped", report.Skipped,
		"failed", report.Failed,
		"degraded", report.Degraded)
	return report
}

func (r *Runner) process(ctx context.Context, item domain.Item, runID string, log *slog.Logger) domain.ItemResult {
	w := &Work{
		Item:  item,
		RunID: runID,
		Log:   log.With("id", item.ID),
	}
	res := domain.ItemResult{ID: item.ID, Title: item.Title}

	for _, stage := range r.stages {
		verdict, err := r.apply(ctx, stage, w)
		res.Key = w.Key
		if err != nil {
			res.Status = domain.StatusFailed
			res.Stage = stage.Name()
			res.Reason = err.Error()
			w.Log.Warn("item failed", "stage", stage.Name(), "error", err)
			return res
		}
		if verdict.Skip {
			res.Status = domain.StatusSkipped
			res.Stage = stage.Name()
			res.Reason = verdict.Reason
			return res
		}
	}

	res.Status = domain.StatusSucceeded
	res.Degraded = w.Degraded
	if w.Content != nil {
		res.Bytes = int64(len(w.Content.Body))
	}
	return res
}

func (r *Runner) apply(ctx context.Context, stage Stage, w *Work) (Verdict, error) {
	stageCtx, cancel := context.WithTimeout(ctx, r.opts.StageTimeout)
	defer cancel()

	verdict, err := stage.Apply(stageCtx, w)
	if err == nil {
		return verdict, nil
	}
	var se *StageError
	if !errors.As(err, &se) {
		err = stageError(stage.Name(), nil, err)
	}
	return Continue, err
}
