// Package groq implements the Completer port against Groq's OpenAI-compatible
// chat completion API.
package groq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/ericfisherdev/replypilot/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.Completer = (*Client)(nil)

// Defaults for Config fields left empty.
const (
	DefaultBaseURL = "https://api.groq.com/openai/v1"
	DefaultModel   = "llama-3.3-70b-versatile"

	temperature = 0.7
	maxTokens   = 300
)

// Config configures the Groq client.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
	// HTTPClient overrides the default client; used by tests.
	HTTPClient *http.Client
}

// Client implements driven.Completer.
type Client struct {
	llm   llms.Model
	model string
}

// NewClient creates a Client. It fails with driven.ErrNotConfigured when no
// API key is given.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("groq api key: %w", driven.ErrNotConfigured)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	llm, err := openai.New(
		openai.WithToken(cfg.APIKey),
		openai.WithModel(cfg.Model),
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithHTTPClient(httpClient),
	)
	if err != nil {
		return nil, fmt.Errorf("create groq client: %w", err)
	}

	return &Client{llm: llm, model: cfg.Model}, nil
}

// Complete sends one system and one user message and returns the first
// choice's text. Any failure wraps driven.ErrTransport.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	start := time.Now()

	resp, err := c.llm.GenerateContent(ctx,
		[]llms.MessageContent{
			llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
			llms.TextParts(llms.ChatMessageTypeHuman, userPrompt),
		},
		llms.WithTemperature(temperature),
		llms.WithMaxTokens(maxTokens),
	)
	if err != nil {
		return "", fmt.Errorf("%w: groq completion: %v", driven.ErrTransport, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: groq completion: %v", driven.ErrTransport, errors.New("no choices returned"))
	}

	slog.Debug("groq completion",
		"model", c.model,
		"duration", time.Since(start).Round(time.Millisecond),
		"stop_reason", resp.Choices[0].StopReason,
	)

	return resp.Choices[0].Content, nil
}
