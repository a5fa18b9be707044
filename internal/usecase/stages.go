package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"PaperIngest/internal/domain"
	"PaperIngest/internal/ports"
)

// Stage names as they appear in reports.
const (
	StageSkipIfExists = "skip-if-exists"
	StageRequirePDF   = "require-pdf"
	StageFetch        = "fetch"
	StageEnrich       = "enrich"
	StageSinkWrite    = "sink-write"
)

// SkipIfExists skips items whose key is already present in the sink. A
// failing existence check is logged and the item is treated as absent.
func SkipIfExists(sink ports.Sink, keyOf KeyFunc) Stage {
	return StageFunc{StageName: StageSkipIfExists, Fn: func(ctx context.Context, w *Work) (Verdict, error) {
		w.Key = keyOf(w.Item)
		if w.Key == "" {
			return Skip("no sink key"), nil
		}
		exists, err := sink.Exists(ctx, w.Key)
		if err != nil {
			w.logger().Warn("existence check failed, treating as absent", "key", w.Key, "error", err)
			return Continue, nil
		}
		if exists {
			return Skip("already exists"), nil
		}
		return Continue, nil
	}}
}

// RequirePDF skips items that do not link to a PDF document.
func RequirePDF() Stage {
	return StageFunc{StageName: StageRequirePDF, Fn: func(_ context.Context, w *Work) (Verdict, error) {
		if w.Item.PDFLink() == "" {
			return Skip("no pdf link"), nil
		}
		return Continue, nil
	}}
}

// Fetch downloads the linked document. Non-2xx answers and transport errors
// fail the item.
func Fetch(fetcher ports.ContentFetcher, linkOf LinkFunc) Stage {
	return StageFunc{StageName: StageFetch, Fn: func(ctx context.Context, w *Work) (Verdict, error) {
		link := linkOf(w.Item)
		if link == "" {
			return Continue, stageError(StageFetch, ErrFetch, errors.New("no link to fetch"))
		}
		content, err := fetcher.Get(ctx, link)
		if err != nil {
			return Continue, stageError(StageFetch, ErrFetch, err)
		}
		if content.Status != 0 && (content.Status < 200 || content.Status > 299) {
			return Continue, stageError(StageFetch, ErrFetch, fmt.Errorf("unexpected status %d", content.Status))
		}
		w.Content = &content
		w.logger().Debug("document fetched", "url", link, "bytes", len(content.Body))
		return Continue, nil
	}}
}

// EnrichOptions tunes the completion request.
type EnrichOptions struct {
	SystemPrompt  string
	Temperature   float64
	MaxTokens     int
	MaxTextLength int
}

// Enrich asks the completer for a structured annotation. Transport and auth
// errors fail the item; malformed output substitutes the default annotation
// and marks the item degraded.
func Enrich(completer ports.Completer, textOf TextFunc, opts EnrichOptions) Stage {
	if textOf == nil {
		textOf = ComposeText
	}
	return StageFunc{StageName: StageEnrich, Fn: func(ctx context.Context, w *Work) (Verdict, error) {
		text := domain.Truncate(textOf(w), opts.MaxTextLength)
		raw, err := completer.Complete(ctx, ports.CompletionRequest{
			SystemPrompt: opts.SystemPrompt,
			UserText:     text,
			Temperature:  opts.Temperature,
			MaxTokens:    opts.MaxTokens,
		})
		if err != nil {
			return Continue, stageError(StageEnrich, ErrEnrichment, err)
		}

		ann, err := ParseAnnotation(raw)
		if err != nil {
			w.logger().Warn("enrichment output unusable, using default annotation",
				"error", stageError(StageEnrich, ErrEnrichmentFormat, err))
			ann = domain.DefaultAnnotation(raw)
			w.Degraded = true
		}
		w.Annotation = &ann
		return Continue, nil
	}}
}

// SinkWrite upserts the record under the item key.
func SinkWrite(sink ports.Sink, keyOf KeyFunc, payloadOf PayloadFunc) Stage {
	return StageFunc{StageName: StageSinkWrite, Fn: func(ctx context.Context, w *Work) (Verdict, error) {
		if w.Key == "" {
			w.Key = keyOf(w.Item)
		}
		if w.Key == "" {
			return Continue, stageError(StageSinkWrite, ErrSink, errors.New("empty sink key"))
		}
		record, err := payloadOf(w)
		if err != nil {
			return Continue, stageError(StageSinkWrite, ErrSink, err)
		}
		if err := sink.Write(ctx, w.Key, record); err != nil {
			return Continue, stageError(StageSinkWrite, ErrSink, err)
		}
		return Continue, nil
	}}
}

// ComposeText lays out the item fields the enricher reads.
func ComposeText(w *Work) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", w.Item.Title)
	fmt.Fprintf(&b, "Authors: %s\n", w.Item.Authors)
	fmt.Fprintf(&b, "Published: %s\n", w.Item.Published)
	fmt.Fprintf(&b, "Summary: %s", w.Item.Summary)
	return b.String()
}

// RecordBuilder produces the PayloadFunc used by SinkWrite. The record
// carries the downloaded document when one was fetched.
func RecordBuilder(processedBy, model string, now func() time.Time) PayloadFunc {
	if now == nil {
		now = time.Now
	}
	return func(w *Work) (domain.Record, error) {
		meta := map[string]string{
			"feed_url":     w.Item.FeedURL,
			"processed_by": processedBy,
			"run_id":       w.RunID,
		}
		if w.Annotation != nil && model != "" {
			meta["ai_model"] = model
		}
		if w.Degraded {
			meta["degraded"] = "true"
		}
		record := domain.NewRecord(w.Item, w.Annotation, now(), meta)
		if w.Content != nil {
			record.Content = w.Content.Body
			record.ContentType = w.Content.ContentType
		}
		return record, nil
	}
}
