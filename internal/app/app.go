package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"PaperIngest/internal/config"
	"PaperIngest/internal/domain"
	"PaperIngest/internal/infrastructure/console"
	"PaperIngest/internal/infrastructure/fetch"
	"PaperIngest/internal/infrastructure/llm"
	"PaperIngest/internal/infrastructure/parser"
	"PaperIngest/internal/infrastructure/scheduler"
	"PaperIngest/internal/infrastructure/storage"
	"PaperIngest/internal/infrastructure/telegram"
	"PaperIngest/internal/logging"
	"PaperIngest/internal/ports"
	"PaperIngest/internal/scanner"
	"PaperIngest/internal/usecase"
)

const stopTimeout = 30 * time.Second

// Options replaces collaborators, mostly for tests.
type Options struct {
	HTTPClient *http.Client
	Output     io.Writer
	// TelegramBaseURL overrides the bot API host.
	TelegramBaseURL string
}

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	pipeline *usecase.Pipeline
	sink     ports.Sink
	closer   io.Closer
	lock     *flock.Flock
}

// New builds a runnable application. The configuration must already be
// validated; New opens the sink and fails when it cannot.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger, opts Options) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: time.Duration(cfg.Fetch.TimeoutSeconds) * time.Second}
	}

	registry := scanner.NewRegistry()
	registry.Register(parser.NewRSSScanner(httpClient, cfg.Fetch.UserAgent, baseLogger.With("component", "scanner.rss")))
	registry.Register(parser.NewArxivScanner(httpClient, cfg.Fetch.UserAgent, baseLogger.With("component", "scanner.arxiv")))

	source := parser.NewStrategySource(registry, cfg.Sources, cfg.Pipeline.MaxItems, baseLogger.With("component", "source"))

	sink, closer, err := OpenSink(ctx, cfg.Sink, baseLogger.With("component", "sink."+cfg.Sink.Kind))
	if err != nil {
		return nil, err
	}

	var completer ports.Completer
	if cfg.Pipeline.Enrich {
		c, err := llm.NewCompleter(cfg.Enricher, httpClient, baseLogger)
		if err != nil {
			closeQuietly(closer)
			return nil, err
		}
		completer = c
	}

	fetcher := fetch.NewClient(httpClient, 0, cfg.Fetch.UserAgent, cfg.Fetch.MaxBytes)
	stages := BuildStages(cfg, sink, fetcher, completer)

	runner := usecase.NewRunner(usecase.RunnerOptions{
		MaxItems:     cfg.Pipeline.MaxItems,
		StageTimeout: cfg.Pipeline.StageTimeout(),
	}, baseLogger.With("component", "runner"), stages...)

	var notifier ports.Notifier
	if tg := cfg.Notifications.Telegram; tg.BotToken != "" && tg.ChatID != "" {
		notifier = telegram.NewNotifier(tg.BotToken, tg.ChatID, opts.TelegramBaseURL, nil)
	}

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Name:     cfg.Pipeline.Name,
		Source:   source,
		Runner:   runner,
		Printer:  console.NewPrinter(opts.Output),
		Notifier: notifier,
		Logger:   baseLogger.With("component", "pipeline"),
	})

	return &Application{
		cfg:      cfg,
		logger:   baseLogger,
		pipeline: pipeline,
		sink:     sink,
		closer:   closer,
		lock:     flock.New(cfg.Pipeline.LockFile),
	}, nil
}

// Run performs one pass, or keeps running on the configured interval until
// ctx is cancelled. When another process holds the lock it logs and returns.
func (a *Application) Run(ctx context.Context) error {
	locked, err := a.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock %s: %w", a.lock.Path(), err)
	}
	if !locked {
		a.logger.Warn("another run is in progress, exiting", "lock", a.lock.Path())
		return nil
	}
	defer func() {
		if err := a.lock.Unlock(); err != nil {
			a.logger.Warn("release lock", "error", err)
		}
	}()

	interval := a.cfg.Schedule.Interval()
	if interval <= 0 {
		_, err := a.pipeline.RunOnce(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}

	sched := usecase.NewScheduler(
		scheduler.NewIntervalScheduler(interval, a.cfg.Schedule.Location()),
		a.pipeline,
		a.logger.With("component", "scheduler"),
	)
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	a.logger.Info("scheduler started", "interval", interval)
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	return sched.Stop(stopCtx)
}

// RunOnce exposes a single pass without locking.
func (a *Application) RunOnce(ctx context.Context) (domain.RunReport, error) {
	return a.pipeline.RunOnce(ctx)
}

// Close releases the sink.
func (a *Application) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}

// OpenSink constructs the sink selected by cfg.Kind. The closer is nil for
// sinks without local resources.
func OpenSink(ctx context.Context, cfg config.SinkConfig, logger *slog.Logger) (ports.Sink, io.Closer, error) {
	switch cfg.Kind {
	case config.SinkPostgres:
		s, err := storage.OpenPostgres(ctx, cfg.DSN, cfg.Table, cfg.AutoMigrate)
		return s, s, err
	case config.SinkSQLite:
		s, err := storage.OpenSQLite(ctx, cfg.SQLitePath, cfg.Table, cfg.AutoMigrate)
		return s, s, err
	case config.SinkBadger:
		s, err := storage.OpenBadger(cfg.BadgerPath, logger)
		return s, s, err
	case config.SinkDynamoDB:
		s, err := storage.OpenDynamoDB(cfg.DynamoDB)
		return s, nil, err
	case config.SinkS3:
		s, err := storage.OpenS3(cfg.S3)
		return s, nil, err
	case config.SinkAzure:
		s, err := storage.OpenAzure(ctx, cfg.Azure, cfg.AutoMigrate)
		return s, nil, err
	default:
		return nil, nil, fmt.Errorf("unknown sink kind %q", cfg.Kind)
	}
}

// KeyFor picks how items are named in the sink.
func KeyFor(cfg config.Config) usecase.KeyFunc {
	if !cfg.Sink.IsBlob() {
		return func(item domain.Item) string { return item.ID }
	}
	ext := ".json"
	if cfg.Pipeline.Download {
		ext = ".pdf"
	}
	if cfg.Sink.BlobKey == config.BlobKeyRemote {
		return func(item domain.Item) string {
			key := item.RemoteKey()
			if key == "" || cfg.Pipeline.Download {
				return key
			}
			return strings.TrimSuffix(key, path.Ext(key)) + ext
		}
	}
	return func(item domain.Item) string { return item.TitleKey(ext) }
}

// BuildStages assembles the per-item chain:
// skip-if-exists, [require-pdf, fetch], [enrich], sink-write.
func BuildStages(cfg config.Config, sink ports.Sink, fetcher ports.ContentFetcher, completer ports.Completer) []usecase.Stage {
	keyOf := KeyFor(cfg)
	stages := []usecase.Stage{usecase.SkipIfExists(sink, keyOf)}

	if cfg.Pipeline.Download {
		stages = append(stages, usecase.RequirePDF(), usecase.Fetch(fetcher, domain.Item.PDFLink))
	}

	model := ""
	if cfg.Pipeline.Enrich && completer != nil {
		stages = append(stages, usecase.Enrich(completer, usecase.ComposeText, usecase.EnrichOptions{
			SystemPrompt:  cfg.Enricher.SystemPrompt,
			Temperature:   cfg.Enricher.Temperature,
			MaxTokens:     cfg.Enricher.MaxTokens,
			MaxTextLength: cfg.Pipeline.MaxTextLength,
		}))
		model = completer.Model()
	}

	return append(stages, usecase.SinkWrite(sink, keyOf, usecase.RecordBuilder(cfg.Pipeline.Name, model, nil)))
}

func closeQuietly(c io.Closer) {
	if c != nil {
		_ = c.Close()
	}
}
