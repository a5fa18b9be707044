package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PaperIngest/internal/config"
	"PaperIngest/internal/domain"
	"PaperIngest/internal/ports"
	"PaperIngest/internal/usecase"
)

type upstream struct {
	mu         sync.Mutex
	chatCalls  int
	pdfCalls   int
	telegram   []string
	feedStatus int
}

func (u *upstream) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/feed", func(w http.ResponseWriter, r *http.Request) {
		if u.feedStatus != 0 {
			w.WriteHeader(u.feedStatus)
			return
		}
		w.Header().Set("Content-Type", "application/rss+xml")
		base := "http://" + r.Host
		var items strings.Builder
		for i := 1; i <= 3; i++ {
			fmt.Fprintf(&items, `<item><title>Paper %d</title><link>%s/papers/%d.pdf</link><guid>paper-%d</guid><description>Abstract %d</description></item>`, i, base, i, i, i)
		}
		fmt.Fprintf(w, `<?xml version="1.0"?><rss version="2.0"><channel><title>t</title><link>%s</link><description>d</description>%s</channel></rss>`, base, items.String())
	})
	mux.HandleFunc("/papers/", func(w http.ResponseWriter, r *http.Request) {
		u.mu.Lock()
		u.pdfCalls++
		u.mu.Unlock()
		if strings.HasSuffix(r.URL.Path, "/2.pdf") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4 " + r.URL.Path))
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		u.mu.Lock()
		u.chatCalls++
		u.mu.Unlock()
		answer := `{"topic":"Law","findings":["f"],"methodology":"m","significance":"s","keywords":["k"]}`
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id": "c", "object": "chat.completion", "created": 1, "model": "m",
			"choices": []map[string]any{{"index": 0, "message": map[string]any{"role": "assistant", "content": answer}, "finish_reason": "stop"}},
		})
	})
	mux.HandleFunc("/botTOKEN/sendMessage", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		u.mu.Lock()
		u.telegram = append(u.telegram, r.PostForm.Get("text"))
		u.mu.Unlock()
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	return mux
}

func writeConfig(t *testing.T, srvURL string, extra string) config.Config {
	t.Helper()
	dir := t.TempDir()
	body := fmt.Sprintf(`
pipeline:
  name: test
  maxItems: 10
  download: true
  enrich: true
  lockFile: %s
sources:
  - name: test-feed
    scanner: rss
    url: %s/feed
enricher:
  endpoint: %s
  apiKey: secret
  model: test-model
sink:
  kind: sqlite
  sqlitePath: %s
  table: papers
  autoMigrate: true
notifications:
  telegram:
    botToken: TOKEN
    chatId: "1"
%s`, filepath.Join(dir, "run.lock"), srvURL, srvURL, filepath.Join(dir, "papers.db"), extra)
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	return cfg
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestApplicationEndToEnd(t *testing.T) {
	up := &upstream{}
	srv := httptest.NewServer(up.handler(t))
	defer srv.Close()

	cfg := writeConfig(t, srv.URL, "")
	var out bytes.Buffer
	application, err := New(context.Background(), cfg, quietLogger(), Options{
		HTTPClient:      srv.Client(),
		Output:          &out,
		TelegramBaseURL: srv.URL,
	})
	require.NoError(t, err)
	defer application.Close()

	first, err := application.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, first.Total)
	assert.Equal(t, 2, first.Succeeded)
	assert.Equal(t, 1, first.Failed)
	assert.Equal(t, usecase.StageFetch, first.Items[1].Stage)
	assert.Equal(t, 2, up.chatCalls)
	assert.Contains(t, strings.ToLower(out.String()), "success rate")
	require.Len(t, up.telegram, 1)

	second, err := application.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, second.Skipped)
	assert.Equal(t, 1, second.Failed, "the failed item is retried on the next run")
	assert.Equal(t, 2, up.chatCalls, "skipped items are not enriched again")
}

func TestApplicationSourceFailureIsNotFatal(t *testing.T) {
	up := &upstream{feedStatus: http.StatusBadGateway}
	srv := httptest.NewServer(up.handler(t))
	defer srv.Close()

	cfg := writeConfig(t, srv.URL, "")
	application, err := New(context.Background(), cfg, quietLogger(), Options{HTTPClient: srv.Client(), Output: io.Discard})
	require.NoError(t, err)
	defer application.Close()

	require.NoError(t, application.Run(context.Background()))
	assert.Zero(t, up.pdfCalls)
	assert.Empty(t, up.telegram)
}

func TestApplicationRunSkipsWhenLocked(t *testing.T) {
	up := &upstream{}
	srv := httptest.NewServer(up.handler(t))
	defer srv.Close()

	cfg := writeConfig(t, srv.URL, "")
	held := flock.New(cfg.Pipeline.LockFile)
	locked, err := held.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	defer held.Unlock()

	application, err := New(context.Background(), cfg, quietLogger(), Options{HTTPClient: srv.Client(), Output: io.Discard})
	require.NoError(t, err)
	defer application.Close()

	require.NoError(t, application.Run(context.Background()))
	assert.Zero(t, up.chatCalls, "nothing runs while another process holds the lock")
}

func TestKeyFor(t *testing.T) {
	t.Parallel()

	item := domain.Item{
		ID:    "oai:1",
		Title: "On Courts/Judges",
		Links: []domain.Link{{Href: "https://x.org/files/courts.pdf", Type: "application/pdf"}},
	}

	var cfg config.Config
	cfg.Sink.Kind = config.SinkSQLite
	assert.Equal(t, "oai:1", KeyFor(cfg)(item))

	cfg.Sink.Kind = config.SinkAzure
	cfg.Sink.BlobKey = config.BlobKeyTitle
	assert.Equal(t, "On_Courts_Judges.json", KeyFor(cfg)(item))

	cfg.Pipeline.Download = true
	assert.Equal(t, "On_Courts_Judges.pdf", KeyFor(cfg)(item))

	cfg.Sink.BlobKey = config.BlobKeyRemote
	assert.Equal(t, "courts.pdf", KeyFor(cfg)(item))

	cfg.Pipeline.Download = false
	assert.Equal(t, "courts.json", KeyFor(cfg)(item))
}

func TestBuildStages(t *testing.T) {
	t.Parallel()

	var cfg config.Config
	cfg.Sink.Kind = config.SinkBadger

	names := func(stages []usecase.Stage) []string {
		out := make([]string, 0, len(stages))
		for _, s := range stages {
			out = append(out, s.Name())
		}
		return out
	}

	assert.Equal(t, []string{usecase.StageSkipIfExists, usecase.StageSinkWrite}, names(BuildStages(cfg, nil, nil, nil)))

	cfg.Pipeline.Download = true
	cfg.Pipeline.Enrich = true
	assert.Equal(t, []string{
		usecase.StageSkipIfExists,
		usecase.StageRequirePDF,
		usecase.StageFetch,
		usecase.StageEnrich,
		usecase.StageSinkWrite,
	}, names(BuildStages(cfg, nil, nil, stubCompleter{})))
}

type stubCompleter struct{}

func (stubCompleter) Complete(context.Context, ports.CompletionRequest) (string, error) {
	return "", nil
}

func (stubCompleter) Model() string { return "stub" }
