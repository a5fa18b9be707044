package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"PaperIngest/internal/config"
	"PaperIngest/internal/ports"
)

// ErrEmptyResponse is returned when the model answers without any choice.
var ErrEmptyResponse = errors.New("model returned no choices")

// Completer implements ports.Completer against OpenAI-compatible chat APIs.
type Completer struct {
	client llms.Model
	model  string
	logger *slog.Logger
}

var _ ports.Completer = (*Completer)(nil)

// NewCompleter builds a chat client from configuration. httpClient may be nil.
func NewCompleter(cfg config.EnricherConfig, httpClient *http.Client, logger *slog.Logger) (*Completer, error) {
	if cfg.Endpoint == "" || cfg.APIKey == "" || cfg.Model == "" {
		return nil, fmt.Errorf("enricher misconfigured")
	}
	if logger == nil {
		logger = slog.Default()
	}

	opts := []openai.Option{
		openai.WithBaseURL(NormalizeEndpoint(cfg.Endpoint)),
		openai.WithToken(cfg.APIKey),
		openai.WithModel(cfg.Model),
	}
	if httpClient != nil {
		opts = append(opts, openai.WithHTTPClient(httpClient))
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create openai client: %w", err)
	}

	return &Completer{
		client: client,
		model:  cfg.Model,
		logger: logger.With("component", "enricher"),
	}, nil
}

// NormalizeEndpoint trims a trailing slash and a pasted /chat/completions
// path, then makes sure the base URL ends in /v1.
func NormalizeEndpoint(endpoint string) string {
	endpoint = strings.TrimSpace(endpoint)
	endpoint = strings.TrimSuffix(endpoint, "/")
	endpoint = strings.TrimSuffix(endpoint, "/chat/completions")
	if !strings.HasSuffix(endpoint, "/v1") {
		endpoint += "/v1"
	}
	return endpoint
}

// Model returns the configured model name.
func (c *Completer) Model() string {
	return c.model
}

// Complete sends one system+user exchange and returns the trimmed answer.
func (c *Completer) Complete(ctx context.Context, req ports.CompletionRequest) (string, error) {
	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, req.SystemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, req.UserText),
	}

	var callOpts []llms.CallOption
	callOpts = append(callOpts, llms.WithTemperature(req.Temperature))
	if req.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(req.MaxTokens), openai.WithLegacyMaxTokensField())
	}

	resp, err := c.client.GenerateContent(ctx, content, callOpts...)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	answer := strings.TrimSpace(resp.Choices[0].Content)
	c.logger.Debug("completion received", "model", c.model, "chars", len(answer))
	return answer, nil
}
