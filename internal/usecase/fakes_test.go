package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"PaperIngest/internal/domain"
	"PaperIngest/internal/ports"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type memSink struct {
	mu        sync.Mutex
	records   map[string]domain.Record
	writes    int
	existsErr error
	failKey   string
}

func newMemSink() *memSink {
	return &memSink{records: make(map[string]domain.Record)}
}

func (s *memSink) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.existsErr != nil {
		return false, s.existsErr
	}
	_, ok := s.records[key]
	return ok, nil
}

func (s *memSink) Write(_ context.Context, key string, record domain.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if key == s.failKey {
		return errors.New("disk full")
	}
	s.writes++
	s.records[key] = record
	return nil
}

type fakeFetcher struct {
	calls  []string
	status map[string]int
}

func (f *fakeFetcher) Get(ctx context.Context, url string) (ports.Content, error) {
	f.calls = append(f.calls, url)
	if err := ctx.Err(); err != nil {
		return ports.Content{}, err
	}
	if code, ok := f.status[url]; ok && code != 200 {
		return ports.Content{Status: code}, fmt.Errorf("unexpected status %d from %s", code, url)
	}
	return ports.Content{Status: 200, Body: []byte("%PDF-1.4 " + url), ContentType: "application/pdf"}, nil
}

type fakeCompleter struct {
	answer   string
	err      error
	requests []ports.CompletionRequest
	block    bool
}

func (c *fakeCompleter) Complete(ctx context.Context, req ports.CompletionRequest) (string, error) {
	c.requests = append(c.requests, req)
	if c.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if c.err != nil {
		return "", c.err
	}
	return c.answer, nil
}

func (c *fakeCompleter) Model() string { return "fake-model" }

func itemsN(n int) []domain.Item {
	items := make([]domain.Item, 0, n)
	for i := 1; i <= n; i++ {
		items = append(items, domain.Item{
			ID:      fmt.Sprintf("id-%d", i),
			Title:   fmt.Sprintf("Paper %d", i),
			Link:    fmt.Sprintf("https://example.org/papers/%d.pdf", i),
			Summary: fmt.Sprintf("summary %d", i),
			Authors: "A. Author",
		})
	}
	return items
}

func byID(item domain.Item) string { return item.ID }
