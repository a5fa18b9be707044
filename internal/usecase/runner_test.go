package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PaperIngest/internal/domain"
)

const validAnswer = `{"topic":"Law","findings":["a","b"],"methodology":"survey","significance":"high","keywords":["x","y"]}`

func recordChain(sink *memSink, completer *fakeCompleter, maxText int) []Stage {
	return []Stage{
		SkipIfExists(sink, byID),
		Enrich(completer, nil, EnrichOptions{SystemPrompt: "sys", Temperature: 0.3, MaxTokens: 800, MaxTextLength: maxText}),
		SinkWrite(sink, byID, RecordBuilder("test", completer.Model(), nil)),
	}
}

func TestRunnerAllSucceed(t *testing.T) {
	t.Parallel()

	sink := newMemSink()
	completer := &fakeCompleter{answer: validAnswer}
	r := NewRunner(RunnerOptions{}, discardLogger(), recordChain(sink, completer, 8000)...)

	report := r.Run(context.Background(), itemsN(3))

	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 3, report.Succeeded)
	assert.Zero(t, report.Skipped)
	assert.Zero(t, report.Failed)
	assert.NotEmpty(t, report.RunID)
	assert.InDelta(t, 100.0, report.SuccessRate(), 1e-9)

	rec := sink.records["id-2"]
	assert.Equal(t, "Law", rec.AITopic)
	assert.Equal(t, []string{"a", "b"}, rec.AIFindings)
	assert.Equal(t, "fake-model", rec.Metadata["ai_model"])
	assert.Equal(t, report.RunID, rec.Metadata["run_id"])
}

func TestRunnerIdempotent(t *testing.T) {
	t.Parallel()

	sink := newMemSink()
	completer := &fakeCompleter{answer: validAnswer}
	r := NewRunner(RunnerOptions{}, discardLogger(), recordChain(sink, completer, 8000)...)
	items := itemsN(4)

	first := r.Run(context.Background(), items)
	require.Equal(t, 4, first.Succeeded)
	require.Equal(t, 4, sink.writes)

	second := r.Run(context.Background(), items)
	assert.Equal(t, 4, second.Skipped)
	assert.Zero(t, second.Succeeded)
	assert.Equal(t, 4, sink.writes, "second run must not write")
	assert.Len(t, sink.records, 4)
	assert.Len(t, completer.requests, 4, "skipped items are not enriched")
	for _, res := range second.Items {
		assert.Equal(t, StageSkipIfExists, res.Stage)
		assert.Equal(t, "already exists", res.Reason)
	}
}

func TestRunnerOneAlreadyPresent(t *testing.T) {
	t.Parallel()

	sink := newMemSink()
	sink.records["id-2"] = domain.Record{PaperID: "id-2"}
	r := NewRunner(RunnerOptions{}, discardLogger(), recordChain(sink, &fakeCompleter{answer: validAnswer}, 8000)...)

	report := r.Run(context.Background(), itemsN(3))

	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 2, report.Succeeded)
	assert.Zero(t, report.Failed)
}

func TestRunnerFetchFailureIsIsolated(t *testing.T) {
	t.Parallel()

	sink := newMemSink()
	items := itemsN(3)
	fetcher := &fakeFetcher{status: map[string]int{items[1].Link: 404}}
	r := NewRunner(RunnerOptions{}, discardLogger(),
		SkipIfExists(sink, byID),
		RequirePDF(),
		Fetch(fetcher, domain.Item.PDFLink),
		SinkWrite(sink, byID, RecordBuilder("test", "", nil)),
	)

	report := r.Run(context.Background(), items)

	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, 1, report.Failed)
	assert.Len(t, fetcher.calls, 3, "items after the failure are still attempted")

	failed := report.Items[1]
	assert.Equal(t, domain.StatusFailed, failed.Status)
	assert.Equal(t, StageFetch, failed.Stage)
	assert.Contains(t, failed.Reason, "fetch")
	assert.NotContains(t, sink.records, "id-2", "no partial write")

	rec := sink.records["id-3"]
	assert.Equal(t, "application/pdf", rec.ContentType)
	assert.NotEmpty(t, rec.Content)
}

func TestRunnerSinkFailureIsIsolated(t *testing.T) {
	t.Parallel()

	sink := newMemSink()
	sink.failKey = "id-1"
	r := NewRunner(RunnerOptions{}, discardLogger(), recordChain(sink, &fakeCompleter{answer: validAnswer}, 8000)...)

	report := r.Run(context.Background(), itemsN(5))

	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 4, report.Succeeded)
	assert.Equal(t, StageSinkWrite, report.Items[0].Stage)
	assert.Contains(t, report.Reasons(), "id-1")
}

func TestRunnerEnrichTransportErrorFailsItem(t *testing.T) {
	t.Parallel()

	sink := newMemSink()
	r := NewRunner(RunnerOptions{}, discardLogger(),
		recordChain(sink, &fakeCompleter{err: errors.New("401 unauthorized")}, 8000)...)

	report := r.Run(context.Background(), itemsN(2))

	assert.Equal(t, 2, report.Failed)
	assert.Zero(t, sink.writes)
	assert.Equal(t, StageEnrich, report.Items[0].Stage)
	assert.Contains(t, report.Items[0].Reason, "401 unauthorized")
}

func TestRunnerMalformedEnrichmentDegrades(t *testing.T) {
	t.Parallel()

	sink := newMemSink()
	raw := "I could not produce JSON, sorry."
	r := NewRunner(RunnerOptions{}, discardLogger(), recordChain(sink, &fakeCompleter{answer: raw}, 8000)...)

	report := r.Run(context.Background(), itemsN(1))

	require.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 1, report.Degraded)
	assert.True(t, report.Items[0].Degraded)

	want := domain.DefaultAnnotation(raw)
	rec := sink.records["id-1"]
	assert.Equal(t, want.Topic, rec.AITopic)
	assert.Equal(t, want.Findings, rec.AIFindings)
	assert.Len(t, rec.AIFindings, 1)
	assert.NotEmpty(t, rec.AISignificance)
	assert.NotEmpty(t, rec.AIKeywords)
	assert.Equal(t, "true", rec.Metadata["degraded"])
}

func TestRunnerTruncatesEnricherInputAndSummary(t *testing.T) {
	t.Parallel()

	sink := newMemSink()
	completer := &fakeCompleter{answer: validAnswer}
	r := NewRunner(RunnerOptions{}, discardLogger(), recordChain(sink, completer, 100)...)

	item := itemsN(1)[0]
	item.Summary = strings.Repeat("ж", 5000)
	report := r.Run(context.Background(), []domain.Item{item})
	require.Equal(t, 1, report.Succeeded)

	require.Len(t, completer.requests, 1)
	assert.LessOrEqual(t, len([]rune(completer.requests[0].UserText)), 100)
	assert.True(t, strings.HasPrefix(completer.requests[0].UserText, "Title: Paper 1"))
	assert.Equal(t, 0.3, completer.requests[0].Temperature)
	assert.Equal(t, 800, completer.requests[0].MaxTokens)

	assert.Len(t, []rune(sink.records[item.ID].Summary), domain.SummaryLimit)
}

func TestRunnerBatchBound(t *testing.T) {
	t.Parallel()

	sink := newMemSink()
	r := NewRunner(RunnerOptions{MaxItems: 3}, discardLogger(), recordChain(sink, &fakeCompleter{answer: validAnswer}, 8000)...)

	report := r.Run(context.Background(), itemsN(7))

	require.Equal(t, 3, report.Total)
	for i, res := range report.Items {
		assert.Equal(t, itemsN(3)[i].ID, res.ID, "feed order")
	}
	assert.NotContains(t, sink.records, "id-4")
}

func TestRunnerDefaultBatchBound(t *testing.T) {
	t.Parallel()

	r := NewRunner(RunnerOptions{}, discardLogger(), recordChain(newMemSink(), &fakeCompleter{answer: validAnswer}, 8000)...)
	report := r.Run(context.Background(), itemsN(15))
	assert.Equal(t, 10, report.Total)
}

func TestRunnerExistenceErrorIsFailOpen(t *testing.T) {
	t.Parallel()

	sink := newMemSink()
	sink.existsErr = errors.New("connection reset")
	r := NewRunner(RunnerOptions{}, discardLogger(), recordChain(sink, &fakeCompleter{answer: validAnswer}, 8000)...)

	report := r.Run(context.Background(), itemsN(2))

	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, 2, sink.writes)
}

func TestRunnerRequirePDFSkips(t *testing.T) {
	t.Parallel()

	items := itemsN(2)
	items[0].Link = "https://example.org/abs/1"
	fetcher := &fakeFetcher{}
	sink := newMemSink()
	r := NewRunner(RunnerOptions{}, discardLogger(),
		SkipIfExists(sink, byID),
		RequirePDF(),
		Fetch(fetcher, domain.Item.PDFLink),
		SinkWrite(sink, byID, RecordBuilder("test", "", nil)),
	)

	report := r.Run(context.Background(), items)

	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, "no pdf link", report.Items[0].Reason)
	assert.Equal(t, StageRequirePDF, report.Items[0].Stage)
	assert.Len(t, fetcher.calls, 1)
}

func TestRunnerStageTimeout(t *testing.T) {
	t.Parallel()

	sink := newMemSink()
	completer := &fakeCompleter{block: true}
	r := NewRunner(RunnerOptions{StageTimeout: 20 * time.Millisecond}, discardLogger(), recordChain(sink, completer, 8000)...)

	report := r.Run(context.Background(), itemsN(2))

	assert.Equal(t, 2, report.Failed)
	assert.Equal(t, StageEnrich, report.Items[0].Stage)
	assert.Contains(t, report.Items[0].Reason, context.DeadlineExceeded.Error())
	assert.Zero(t, sink.writes)
}

func TestRunnerCancellationMarksRemainingFailed(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	sink := newMemSink()
	stop := StageFunc{StageName: "cancel", Fn: func(_ context.Context, w *Work) (Verdict, error) {
		if w.Item.ID == "id-2" {
			cancel()
		}
		return Continue, nil
	}}
	r := NewRunner(RunnerOptions{}, discardLogger(), stop, SinkWrite(sink, byID, RecordBuilder("test", "", nil)))

	report := r.Run(ctx, itemsN(4))

	assert.Equal(t, 4, report.Total)
	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, 2, report.Failed)
	assert.Equal(t, reasonCanceled, report.Items[2].Reason)
	assert.Equal(t, reasonCanceled, report.Items[3].Reason)
}

func TestStageErrorUnwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("boom")
	err := stageError(StageFetch, ErrFetch, cause)

	assert.ErrorIs(t, err, ErrFetch)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrSink)
	assert.Equal(t, "fetch: fetch error: boom", err.Error())
}
