package llm

import (
	"context"

	openai "github.com/sashabaranov/go-openai"
)

// LLMClient defines the interface for LLM clients (both basic and fallback)
type LLMClient interface {
	// Complete sends a chat completion request, optionally offering tools
	Complete(ctx context.Context, messages []openai.ChatCompletionMessage, tools ...openai.Tool) (*openai.ChatCompletionResponse, error)

	// CompleteWithRetry attempts completion with retries on transient failures
	CompleteWithRetry(ctx context.Context, messages []openai.ChatCompletionMessage, maxRetries int) (*openai.ChatCompletionResponse, error)

	// CompleteWithSystem is a convenience method for system + user prompts
	CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)

	// ParseJSONResponse extracts and parses JSON from LLM response content
	ParseJSONResponse(content string, target interface{}) error
}

var _ LLMClient = (*Client)(nil)

var _ LLMClient = (*FallbackClient)(nil)
