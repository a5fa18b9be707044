package ports

import (
	"context"
	"time"

	"PaperIngest/internal/domain"
)

// ItemSource pulls the current feed snapshot from upstream providers.
type ItemSource interface {
	FetchAll(ctx context.Context) ([]domain.Item, error)
}

// Content is the response of a document download.
type Content struct {
	Status      int
	Body        []byte
	ContentType string
}

// ContentFetcher downloads linked documents (PDFs, HTML).
type ContentFetcher interface {
	Get(ctx context.Context, url string) (Content, error)
}

// CompletionRequest is a single system+user chat completion.
type CompletionRequest struct {
	SystemPrompt string
	UserText     string
	Temperature  float64
	MaxTokens    int
}

// Completer talks to a language model for structured summaries.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	Model() string
}

// Sink is the durable destination of processed items. Write must be an
// upsert: writing the same key twice overwrites.
type Sink interface {
	Exists(ctx context.Context, key string) (bool, error)
	Write(ctx context.Context, key string, record domain.Record) error
}

// Notifier publishes the run summary to a chat channel.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}

// ReportPrinter renders a run report for the operator.
type ReportPrinter interface {
	Print(report domain.RunReport) error
}
