// Package llm provides the hosted chat-completion client used to answer questions.
package llm

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"ragchat/internal/domain"
	"ragchat/internal/logger"
	"ragchat/internal/port"
)

var _ port.LLM = (*Client)(nil)

// Default configuration values.
const (
	DefaultBaseURL     = "https://api.groq.com/openai/v1"
	DefaultModel       = "llama-3.1-8b-instant"
	DefaultTemperature = 0.3
	DefaultMaxTokens   = 256
	DefaultTimeout     = 60 * time.Second
)

// Config holds configuration for an OpenAI-compatible chat endpoint.
type Config struct {
	// Provider names the upstream in errors and logs (e.g. "groq").
	Provider string

	// BaseURL is the API base URL; any OpenAI-compatible endpoint works.
	BaseURL string

	APIKey      string
	Model       string
	Temperature float32
	MaxTokens   int

	// Timeout bounds a single request including reading the body.
	Timeout time.Duration
}

// Client sends single-turn prompts to a hosted model. It performs no retries.
type Client struct {
	client      *openai.Client
	provider    string
	model       string
	temperature float32
	maxTokens   int
}

// New creates a client. A missing credential fails with domain.ErrAuthentication.
func New(cfg Config) (*Client, error) {
	if cfg.Provider == "" {
		cfg.Provider = "openai-compatible"
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("%s: %w: API key is required", cfg.Provider, domain.ErrAuthentication)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	// go-openai drops a zero temperature from the request body, which leaves
	// the provider default in force. The smallest positive value is still
	// deterministic decoding.
	if cfg.Temperature == 0 {
		cfg.Temperature = math.SmallestNonzeroFloat32
	}

	occfg := openai.DefaultConfig(cfg.APIKey)
	occfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	occfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	logger.Debug("LLM client ready", "provider", cfg.Provider, "model", cfg.Model)

	return &Client{
		client:      openai.NewClientWithConfig(occfg),
		provider:    cfg.Provider,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}, nil
}

// Complete sends prompt as a single user message. A response without choices
// or with empty content is not an error; it yields a Completion with a nil Result.
func (c *Client) Complete(ctx context.Context, prompt string) (*domain.Completion, error) {
	start := time.Now()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return nil, ClassifyError(c.provider, err)
	}

	comp := &domain.Completion{
		Model:        resp.Model,
		PromptTokens: resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}
	if len(resp.Choices) > 0 {
		comp.FinishReason = string(resp.Choices[0].FinishReason)
		if text := resp.Choices[0].Message.Content; strings.TrimSpace(text) != "" {
			comp.Result = &text
		}
	}

	logger.Debug("LLM completion",
		"model", c.model,
		"prompt_tokens", comp.PromptTokens,
		"output_tokens", comp.OutputTokens,
		"elapsed", time.Since(start).Round(time.Millisecond))

	return comp, nil
}

func (c *Client) ModelName() string {
	return c.model
}
