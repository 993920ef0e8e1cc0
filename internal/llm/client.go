// Package llm talks to an OpenAI-compatible chat completion API and runs
// the tool-calling loop used by the agents.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/ajitpratap0/moneymind/internal/breaker"
	"github.com/ajitpratap0/moneymind/internal/metrics"
)

// Defaults target Gemini through its OpenAI-compatible endpoint
const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"
	DefaultModel   = "gemini-2.0-flash"
)

// Client is a single-model chat completion client
type Client struct {
	api          *openai.Client
	model        string
	temperature  float32
	maxTokens    int
	timeout      time.Duration
	retryBackoff time.Duration
	breakers     *breaker.Manager
	breakerName  string
}

// ClientConfig contains configuration for the LLM client
type ClientConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	// RetryBackoff is the base unit for CompleteWithRetry's attempt² backoff
	RetryBackoff time.Duration
	HTTPClient   *http.Client
	// Breakers is optional; when set every call runs through "llm:<model>"
	Breakers *breaker.Manager
}

// NewClient creates a new LLM client
func NewClient(config ClientConfig) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.Temperature == 0 {
		config.Temperature = 0.7
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = 2048
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.RetryBackoff == 0 {
		config.RetryBackoff = time.Second
	}

	oc := openai.DefaultConfig(config.APIKey)
	oc.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.HTTPClient != nil {
		oc.HTTPClient = config.HTTPClient
	}

	return &Client{
		api:          openai.NewClientWithConfig(oc),
		model:        config.Model,
		temperature:  float32(config.Temperature),
		maxTokens:    config.MaxTokens,
		timeout:      config.Timeout,
		retryBackoff: config.RetryBackoff,
		breakers:     config.Breakers,
		breakerName:  breaker.ServiceLLM + ":" + config.Model,
	}
}

// Model returns the model name requests are sent with
func (c *Client) Model() string {
	return c.model
}

// Complete sends a chat completion request to the LLM
func (c *Client) Complete(ctx context.Context, messages []openai.ChatCompletionMessage, tools ...openai.Tool) (*openai.ChatCompletionResponse, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}
	if len(tools) > 0 {
		req.Tools = tools
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	log.Debug().
		Str("model", c.model).
		Int("message_count", len(messages)).
		Int("tool_count", len(tools)).
		Msg("Sending LLM request")

	start := time.Now()
	resp, err := breaker.Do(c.breakers, c.breakerName, func() (openai.ChatCompletionResponse, error) {
		return c.api.CreateChatCompletion(ctx, req)
	})
	duration := time.Since(start)

	if err != nil {
		err = wrapError(err)
		metrics.RecordLLMRequest(c.model, duration, 0, err)
		return nil, fmt.Errorf("chat completion with %s: %w", c.model, err)
	}

	metrics.RecordLLMRequest(c.model, duration, resp.Usage.TotalTokens, nil)

	log.Debug().
		Str("model", resp.Model).
		Int("prompt_tokens", resp.Usage.PromptTokens).
		Int("completion_tokens", resp.Usage.CompletionTokens).
		Dur("duration", duration).
		Msg("LLM request completed")

	return &resp, nil
}

// CompleteWithSystem sends a request with a system message and user message
// and returns the trimmed text. Safety blocks and empty answers are errors.
func (c *Client) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return completeWithSystem(ctx, c, systemPrompt, userPrompt)
}

func completeWithSystem(ctx context.Context, llm LLMClient, systemPrompt, userPrompt string) (string, error) {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: userPrompt},
	}

	resp, err := llm.Complete(ctx, messages)
	if err != nil {
		return "", err
	}
	return TextOf(resp)
}

// TextOf returns the first choice's text, mapping content filtering to
// ErrBlocked and blank text to ErrEmptyResponse.
func TextOf(resp *openai.ChatCompletionResponse) (string, error) {
	if resp == nil || len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}
	choice := resp.Choices[0]
	if choice.FinishReason == openai.FinishReasonContentFilter {
		return "", ErrBlocked
	}
	text := strings.TrimSpace(choice.Message.Content)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// CompleteWithRetry sends a request with retry logic. Only retryable
// failures are retried, with attempt² backoff.
func (c *Client) CompleteWithRetry(ctx context.Context, messages []openai.ChatCompletionMessage, maxRetries int) (*openai.ChatCompletionResponse, error) {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt*attempt) * c.retryBackoff
			log.Warn().
				Err(lastErr).
				Int("attempt", attempt).
				Dur("backoff", backoff).
				Msg("Retrying LLM request")

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		resp, err := c.Complete(ctx, messages)
		if err == nil {
			return resp, nil
		}

		lastErr = err
		if !IsRetryable(err) {
			break
		}
	}

	return nil, fmt.Errorf("LLM request failed after %d retries: %w", maxRetries, lastErr)
}

// ParseJSONResponse parses a JSON response from the LLM
func (c *Client) ParseJSONResponse(content string, target interface{}) error {
	return parseJSON(content, target)
}

func parseJSON(content string, target interface{}) error {
	if err := json.Unmarshal([]byte(ExtractJSON(content)), target); err != nil {
		return fmt.Errorf("failed to parse JSON response: %w", err)
	}
	return nil
}

var fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// ExtractJSON returns the body of the first fenced code block, or the
// trimmed content when there is none.
func ExtractJSON(content string) string {
	if m := fencedJSON.FindStringSubmatch(content); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(content)
}
