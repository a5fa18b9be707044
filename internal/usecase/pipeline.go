package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"PaperIngest/internal/domain"
	"PaperIngest/internal/ports"
)

// PipelineDeps wires the driven adapters into the ingestion use case.
type PipelineDeps struct {
	Name     string
	Source   ports.ItemSource
	Runner   *Runner
	Printer  ports.ReportPrinter
	Notifier ports.Notifier
	Logger   *slog.Logger
}

// Pipeline loads the feed snapshot and hands it to the runner.
type Pipeline struct {
	name     string
	source   ports.ItemSource
	runner   *Runner
	printer  ports.ReportPrinter
	notifier ports.Notifier
	logger   *slog.Logger
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		name:     deps.Name,
		source:   deps.Source,
		runner:   deps.Runner,
		printer:  deps.Printer,
		notifier: deps.Notifier,
		logger:   logger,
	}
}

// RunOnce executes one ingestion pass. A failing or empty source yields an
// empty report; only a context cancelled before the pass starts is returned
// as an error.
func (p *Pipeline) RunOnce(ctx context.Context) (domain.RunReport, error) {
	if err := ctx.Err(); err != nil {
		return domain.RunReport{}, err
	}
	if p.source == nil || p.runner == nil {
		return domain.RunReport{}, nil
	}

	items, err := p.source.FetchAll(ctx)
	if err != nil {
		p.logger.Error("feed source failed", "error", fmt.Errorf("%w: %w", ErrSource, err))
		return domain.RunReport{}, nil
	}
	if len(items) == 0 {
		p.logger.Warn("feed source returned no items")
		return domain.RunReport{}, nil
	}

	report := p.runner.Run(ctx, items)

	if p.printer != nil {
		if err := p.printer.Print(report); err != nil {
			p.logger.Warn("print report", "error", err)
		}
	}

	if p.notifier != nil && report.Total > 0 {
		if err := p.notifier.PublishDigest(ctx, FormatDigest(p.name, report)); err != nil {
			p.logger.Warn("publish digest", "error", err)
		}
	}

	return report, nil
}

// FormatDigest renders the run report as a short chat message.
func FormatDigest(name string, report domain.RunReport) string {
	if name == "" {
		name = "ingestion"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s run %s\n", name, report.RunID)
	fmt.Fprintf(&b, "Total: %d, succeeded: %d, skipped: %d, failed: %d\n",
		report.Total, report.Succeeded, report.Skipped, report.Failed)
	if report.Degraded > 0 {
		fmt.Fprintf(&b, "Degraded annotations: %d\n", report.Degraded)
	}
	fmt.Fprintf(&b, "Success rate: %.1f%%\n", report.SuccessRate())

	for _, res := range report.Items {
		if res.Status != domain.StatusFailed {
			continue
		}
		fmt.Fprintf(&b, "- %s: %s\n", res.Title, res.Reason)
	}
	return strings.TrimRight(b.String(), "\n")
}
