package usecase

import (
	"context"
	"log/slog"

	"PaperIngest/internal/domain"
	"PaperIngest/internal/ports"
)

// Work carries one item through the stage chain. The item itself is never
// modified; stages attach their results next to it.
type Work struct {
	Item       domain.Item
	RunID      string
	Key        string
	Content    *ports.Content
	Annotation *domain.Annotation
	// Degraded is set when the enricher answered with output that could not
	// be parsed and the default annotation was used instead.
	Degraded bool

	// Log is scoped to the item by the runner.
	Log *slog.Logger
}

func (w *Work) logger() *slog.Logger {
	if w.Log == nil {
		return slog.Default()
	}
	return w.Log
}

// Verdict tells the runner whether to keep going with an item.
type Verdict struct {
	Skip   bool
	Reason string
}

// Continue lets the item proceed to the next stage.
var Continue = Verdict{}

// Skip halts the item's remaining stages and reports it as skipped.
func Skip(reason string) Verdict {
	return Verdict{Skip: true, Reason: reason}
}

// Stage is one step of the per-item chain.
type Stage interface {
	Name() string
	Apply(ctx context.Context, w *Work) (Verdict, error)
}

// StageFunc adapts a function into a Stage.
type StageFunc struct {
	StageName string
	Fn        func(ctx context.Context, w *Work) (Verdict, error)
}

func (s StageFunc) Name() string { return s.StageName }

func (s StageFunc) Apply(ctx context.Context, w *Work) (Verdict, error) {
	return s.Fn(ctx, w)
}

// KeyFunc derives the sink key of an item.
type KeyFunc func(domain.Item) string

// LinkFunc picks the URL to download for an item.
type LinkFunc func(domain.Item) string

// TextFunc builds the enricher input for an item.
type TextFunc func(w *Work) string

// PayloadFunc builds the record handed to the sink.
type PayloadFunc func(w *Work) (domain.Record, error)
