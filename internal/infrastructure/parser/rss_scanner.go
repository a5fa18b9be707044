package parser

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"PaperIngest/internal/domain"
	"PaperIngest/internal/scanner"
)

// RSSScanner reads RSS 0.9x/1.0/2.0 and Atom feeds.
type RSSScanner struct {
	parser *gofeed.Parser
	logger *slog.Logger
}

// NewRSSScanner wires an HTTP client; a nil client gets a 30s timeout.
func NewRSSScanner(client *http.Client, userAgent string, logger *slog.Logger) *RSSScanner {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	fp := gofeed.NewParser()
	fp.Client = client
	if userAgent != "" {
		fp.UserAgent = userAgent
	}
	return &RSSScanner{parser: fp, logger: logger}
}

// Name identifies the strategy inside the registry.
func (s *RSSScanner) Name() string {
	return "rss"
}

// Scan downloads and parses the feed, returning entries in feed order.
// Repeated IDs are dropped before the limit is counted.
func (s *RSSScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.Item, error) {
	if strings.TrimSpace(req.URL) == "" {
		return nil, fmt.Errorf("no url provided for source %s", req.SourceName)
	}

	feed, err := s.parser.ParseURLWithContext(req.URL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", req.URL, err)
	}

	items := make([]domain.Item, 0, len(feed.Items))
	seen := map[string]struct{}{}
	for _, entry := range feed.Items {
		item, ok := toItem(entry, req)
		if !ok {
			s.debug("drop entry without identity", "source", req.SourceName)
			continue
		}
		if _, dup := seen[item.ID]; dup {
			continue
		}
		seen[item.ID] = struct{}{}
		items = append(items, item)
		if req.Limit > 0 && len(items) >= req.Limit {
			break
		}
	}

	s.debug("feed parsed", "source", req.SourceName, "entries", len(feed.Items), "items", len(items))
	return items, nil
}

func toItem(entry *gofeed.Item, req scanner.Request) (domain.Item, bool) {
	if entry == nil {
		return domain.Item{}, false
	}

	summary := entry.Description
	if strings.TrimSpace(summary) == "" {
		summary = entry.Content
	}

	published := entry.Published
	if published == "" {
		published = entry.Updated
	}

	var links []domain.Link
	for _, enc := range entry.Enclosures {
		if enc != nil && enc.URL != "" {
			links = append(links, domain.Link{Href: enc.URL, Type: enc.Type})
		}
	}
	for _, href := range entry.Links {
		if href != "" && href != entry.Link {
			links = append(links, domain.Link{Href: href})
		}
	}

	return domain.NewItem(domain.Item{
		ID:        entry.GUID,
		Title:     plainText(entry.Title),
		Link:      entry.Link,
		Links:     links,
		Summary:   plainText(summary),
		Published: published,
		Authors:   authorNames(entry),
		Source:    req.SourceName,
		FeedURL:   req.URL,
	})
}

func authorNames(entry *gofeed.Item) string {
	names := make([]string, 0, len(entry.Authors))
	for _, p := range entry.Authors {
		if p != nil && strings.TrimSpace(p.Name) != "" {
			names = append(names, strings.TrimSpace(p.Name))
		}
	}
	return strings.Join(names, ", ")
}

func (s *RSSScanner) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
