package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"PaperIngest/internal/ports"
)

const defaultMaxBytes = 64 << 20

// StatusError reports a non-2xx response.
type StatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %s from %s", e.Status, e.URL)
}

// Client downloads linked documents over HTTP.
type Client struct {
	http      *http.Client
	userAgent string
	maxBytes  int64
}

var _ ports.ContentFetcher = (*Client)(nil)

// NewClient creates a reusable HTTP fetcher. A nil httpClient gets timeout;
// maxBytes <= 0 falls back to 64 MiB.
func NewClient(httpClient *http.Client, timeout time.Duration, userAgent string, maxBytes int64) *Client {
	if httpClient == nil {
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	return &Client{http: httpClient, userAgent: userAgent, maxBytes: maxBytes}
}

// Get retrieves url. Only 2xx responses yield content; anything else is a
// *StatusError.
func (c *Client) Get(ctx context.Context, url string) (ports.Content, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return ports.Content{}, fmt.Errorf("new request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return ports.Content{}, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return ports.Content{Status: resp.StatusCode}, &StatusError{URL: url, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return ports.Content{Status: resp.StatusCode}, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > c.maxBytes {
		return ports.Content{Status: resp.StatusCode}, fmt.Errorf("body of %s exceeds %d bytes", url, c.maxBytes)
	}

	contentType := resp.Header.Get("Content-Type")
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = strings.TrimSpace(contentType[:i])
	}

	return ports.Content{
		Status:      resp.StatusCode,
		Body:        body,
		ContentType: contentType,
	}, nil
}
