package parser

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"PaperIngest/internal/domain"
	"PaperIngest/internal/scanner"
)

const (
	arxivBaseURL = "https://arxiv.org"
	dayLayout    = "2006-01-02"
)

var dateExpr = regexp.MustCompile(`\d{1,2} [A-Za-z]{3} \d{4}`)

// ArxivScanner crawls arXiv listing pages. With the "day" option set
// (YYYY-MM-DD or "today") only entries from that day are kept.
type ArxivScanner struct {
	client    *http.Client
	userAgent string
	pageSize  int
	logger    *slog.Logger
	now       func() time.Time
}

// NewArxivScanner wires an HTTP client; pageSize defaults to 200.
func NewArxivScanner(client *http.Client, userAgent string, logger *slog.Logger) *ArxivScanner {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	if userAgent == "" {
		userAgent = "PaperIngest/1.0"
	}
	return &ArxivScanner{client: client, userAgent: userAgent, pageSize: 200, logger: logger, now: time.Now}
}

// Name identifies the strategy inside the registry.
func (a *ArxivScanner) Name() string {
	return "arxiv"
}

// Scan walks listing pages until the limit, the end of the listing or (with
// a day filter) an older day is reached.
func (a *ArxivScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.Item, error) {
	if strings.TrimSpace(req.URL) == "" {
		return nil, fmt.Errorf("no url provided for source %s", req.SourceName)
	}

	targetDay, err := a.targetDay(req.Options["day"])
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", req.SourceName, err)
	}

	results := make([]domain.Item, 0)
	seen := map[string]struct{}{}
	skip := 0

	for {
		pageURL, err := buildPageURL(req.URL, skip, a.pageSize)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", req.SourceName, err)
		}

		doc, err := a.fetchDocument(ctx, pageURL)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", req.SourceName, err)
		}

		pageItems, shouldContinue := a.extractItems(doc, targetDay, req)
		for _, item := range pageItems {
			if _, ok := seen[item.ID]; ok {
				continue
			}
			seen[item.ID] = struct{}{}
			results = append(results, item)
			if req.Limit > 0 && len(results) >= req.Limit {
				return results, nil
			}
		}

		if !shouldContinue {
			break
		}
		skip += a.pageSize
	}

	a.debug("listing scanned", "source", req.SourceName, "items", len(results))
	return results, nil
}

func (a *ArxivScanner) targetDay(option string) (time.Time, error) {
	option = strings.TrimSpace(option)
	switch option {
	case "":
		return time.Time{}, nil
	case "today":
		return a.now().UTC().Truncate(24 * time.Hour), nil
	}
	day, err := time.Parse(dayLayout, option)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day option %q: %w", option, err)
	}
	return day, nil
}

func (a *ArxivScanner) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", a.userAgent)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arxiv returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	return doc, nil
}

func (a *ArxivScanner) extractItems(doc *goquery.Document, targetDay time.Time, req scanner.Request) ([]domain.Item, bool) {
	var (
		collected    []domain.Item
		continueScan = true
		processed    int
	)

	doc.Find("dl > dt").EachWithBreak(func(i int, dt *goquery.Selection) bool {
		dd := dt.Next()
		processed++

		item, publishedAt, ok := parseEntry(dt, dd, req)
		if !ok {
			return true
		}

		if targetDay.IsZero() {
			collected = append(collected, item)
			return true
		}

		itemDay := publishedAt.UTC().Truncate(24 * time.Hour)
		if itemDay.Equal(targetDay) {
			collected = append(collected, item)
		}
		if itemDay.Before(targetDay) {
			continueScan = false
			return false
		}

		return true
	})

	if processed < a.pageSize {
		continueScan = false
	}

	return collected, continueScan
}

func parseEntry(dt, dd *goquery.Selection, req scanner.Request) (domain.Item, time.Time, bool) {
	anchor := dt.Find("a[href*=\"/abs/\"]").First()

	id := strings.TrimSpace(anchor.Text())
	href, _ := anchor.Attr("href")
	if id == "" {
		id = strings.TrimPrefix(href, "/abs/")
	}
	if href != "" && !strings.HasPrefix(href, "http") {
		href = strings.TrimSuffix(arxivBaseURL, "/") + href
	}

	title := strings.TrimSpace(dd.Find(".list-title").First().Text())
	title = strings.TrimSpace(strings.TrimPrefix(title, "Title:"))

	summary := dd.Find("p.mathjax").First().Text()
	summary = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(summary), "Abstract:"))

	var authors []string
	dd.Find(".list-authors a").Each(func(_ int, s *goquery.Selection) {
		if name := strings.TrimSpace(s.Text()); name != "" {
			authors = append(authors, name)
		}
	})

	dateText := strings.TrimSpace(dd.Find(".list-date").First().Text())
	if dateText == "" {
		dateText = strings.TrimSpace(dd.Find(".list-dateline").First().Text())
	}

	var (
		publishedAt time.Time
		published   string
	)
	if match := dateExpr.FindString(dateText); match != "" {
		if parsed, err := time.Parse("2 Jan 2006", match); err == nil {
			publishedAt = parsed
			published = parsed.Format(dayLayout)
		}
	}

	var links []domain.Link
	if strings.Contains(href, "/abs/") {
		links = append(links, domain.Link{
			Href: strings.Replace(href, "/abs/", "/pdf/", 1),
			Type: "application/pdf",
		})
	}

	item, ok := domain.NewItem(domain.Item{
		ID:        id,
		Title:     plainText(title),
		Link:      href,
		Links:     links,
		Summary:   plainText(summary),
		Published: published,
		Authors:   strings.Join(authors, ", "),
		Source:    req.SourceName,
		FeedURL:   req.URL,
	})
	return item, publishedAt, ok
}

func buildPageURL(base string, skip, pageSize int) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid listing url %s: %w", base, err)
	}

	query := parsed.Query()
	query.Set("skip", strconv.Itoa(skip))
	query.Set("show", strconv.Itoa(pageSize))
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

func (a *ArxivScanner) debug(msg string, args ...interface{}) {
	if a.logger != nil {
		a.logger.Debug(msg, args...)
	}
}
