package parser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"PaperIngest/internal/config"
	"PaperIngest/internal/domain"
	"PaperIngest/internal/ports"
	"PaperIngest/internal/scanner"
)

// StrategySource implements ItemSource via registered scanner strategies.
type StrategySource struct {
	registry *scanner.Registry
	sources  []config.SourceConfig
	limit    int
	logger   *slog.Logger
}

var _ ports.ItemSource = (*StrategySource)(nil)

// NewStrategySource wires the scanner registry with config-defined sources.
// limit caps the deduplicated total and is forwarded to each scanner; zero
// means no cap.
func NewStrategySource(reg *scanner.Registry, sources []config.SourceConfig, limit int, log *slog.Logger) *StrategySource {
	return &StrategySource{
		registry: reg,
		sources:  sources,
		limit:    limit,
		logger:   log,
	}
}

// FetchAll reads every configured source in order and concatenates their
// entries, dropping repeated IDs. A failing source is logged and skipped;
// an error is returned only when every source failed.
func (s *StrategySource) FetchAll(ctx context.Context) ([]domain.Item, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("scanner registry is not configured")
	}

	s.debug("fetch all", "sources", len(s.sources))

	var (
		aggregated []domain.Item
		errs       []error
		seen       = map[string]struct{}{}
	)
	for _, src := range s.sources {
		strategy, err := s.registry.Resolve(src.Scanner)
		if err != nil {
			errs = append(errs, fmt.Errorf("source %s: %w", src.Name, err))
			continue
		}

		results, err := strategy.Scan(ctx, scanner.Request{
			SourceName: src.Name,
			URL:        src.URL,
			Options:    src.Options,
			Limit:      s.limit,
		})
		if err != nil {
			s.warn("source failed", "source", src.Name, "error", err)
			errs = append(errs, fmt.Errorf("scan source %s: %w", src.Name, err))
			continue
		}

		for _, item := range results {
			if _, dup := seen[item.ID]; dup {
				continue
			}
			seen[item.ID] = struct{}{}
			if item.Source == "" {
				item.Source = src.Name
			}
			aggregated = append(aggregated, item)
		}
		s.debug("source produced items", "source", src.Name, "count", len(results))
	}

	if len(errs) > 0 && len(errs) == len(s.sources) {
		return nil, errors.Join(errs...)
	}
	if s.limit > 0 && len(aggregated) > s.limit {
		aggregated = aggregated[:s.limit]
	}

	s.debug("strategy source done", "total_items", len(aggregated))
	return aggregated, nil
}

func (s *StrategySource) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *StrategySource) warn(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
