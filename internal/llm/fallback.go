package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/ajitpratap0/moneymind/internal/breaker"
)

// FallbackClient tries a chain of models in order until one answers
type FallbackClient struct {
	clients []*Client
}

// FallbackConfig configures the fallback client
type FallbackConfig struct {
	// Primary model configuration
	PrimaryConfig ClientConfig

	// Fallback model configurations (in order of preference). Empty fields
	// inherit from the primary.
	FallbackConfigs []ClientConfig
}

// NewFallbackClient creates a client with automatic model fallback
func NewFallbackClient(config FallbackConfig) *FallbackClient {
	clients := []*Client{NewClient(config.PrimaryConfig)}
	for _, fb := range config.FallbackConfigs {
		clients = append(clients, NewClient(inherit(fb, config.PrimaryConfig)))
	}
	return &FallbackClient{clients: clients}
}

func inherit(cfg, primary ClientConfig) ClientConfig {
	if cfg.BaseURL == "" {
		cfg.BaseURL = primary.BaseURL
	}
	if cfg.APIKey == "" {
		cfg.APIKey = primary.APIKey
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = primary.Temperature
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = primary.MaxTokens
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = primary.Timeout
	}
	if cfg.RetryBackoff == 0 {
		cfg.RetryBackoff = primary.RetryBackoff
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = primary.HTTPClient
	}
	if cfg.Breakers == nil {
		cfg.Breakers = primary.Breakers
	}
	return cfg
}

// Models returns the model chain in order
func (fc *FallbackClient) Models() []string {
	names := make([]string, len(fc.clients))
	for i, c := range fc.clients {
		names[i] = c.model
	}
	return names
}

// Complete attempts to get a completion, falling back to other models on failure
func (fc *FallbackClient) Complete(ctx context.Context, messages []openai.ChatCompletionMessage, tools ...openai.Tool) (*openai.ChatCompletionResponse, error) {
	return fc.try(ctx, "LLM completion", func(c *Client) (*openai.ChatCompletionResponse, error) {
		return c.Complete(ctx, messages, tools...)
	})
}

// CompleteWithRetry attempts completion with retries on each model before fallback
func (fc *FallbackClient) CompleteWithRetry(ctx context.Context, messages []openai.ChatCompletionMessage, maxRetries int) (*openai.ChatCompletionResponse, error) {
	return fc.try(ctx, "LLM completion with retry", func(c *Client) (*openai.ChatCompletionResponse, error) {
		return c.CompleteWithRetry(ctx, messages, maxRetries)
	})
}

func (fc *FallbackClient) try(ctx context.Context, op string, call func(*Client) (*openai.ChatCompletionResponse, error)) (*openai.ChatCompletionResponse, error) {
	var lastErr error

	for i, client := range fc.clients {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		start := time.Now()
		resp, err := call(client)
		duration := time.Since(start)

		if err == nil {
			if i > 0 {
				log.Info().
					Str("model", client.model).
					Int("attempt", i+1).
					Dur("duration", duration).
					Msg(op + " succeeded on fallback model")
			}
			return resp, nil
		}

		lastErr = err
		if errors.Is(err, breaker.ErrOpen) {
			log.Warn().Str("model", client.model).Msg("Circuit breaker open, skipping model")
			continue
		}

		log.Warn().
			Err(err).
			Str("model", client.model).
			Int("attempt", i+1).
			Int("total_models", len(fc.clients)).
			Dur("duration", duration).
			Msg(op + " failed, trying fallback")
	}

	return nil, fmt.Errorf("all models failed, last error: %w", lastErr)
}

// CompleteWithSystem is a convenience method for system + user prompts with fallback
func (fc *FallbackClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return completeWithSystem(ctx, fc, systemPrompt, userPrompt)
}

// ParseJSONResponse parses a JSON response from the LLM
func (fc *FallbackClient) ParseJSONResponse(content string, target interface{}) error {
	return parseJSON(content, target)
}
