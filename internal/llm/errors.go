package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/ajitpratap0/moneymind/internal/breaker"
)

var (
	// ErrBlocked is returned when the provider withholds a response for safety reasons
	ErrBlocked = errors.New("response blocked by content filter")
	// ErrEmptyResponse is returned when the model produced no text
	ErrEmptyResponse = errors.New("empty response from model")
	// ErrNoChoices is returned when the response carries no candidates
	ErrNoChoices = errors.New("no choices in LLM response")
)

// LLMError is an HTTP-level failure reported by the provider
type LLMError struct {
	StatusCode int
	Message    string
	Type       string
	Err        error
}

func (e *LLMError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("LLM API error (status %d, %s): %s", e.StatusCode, e.Type, e.Message)
	}
	return fmt.Sprintf("LLM API error (status %d): %s", e.StatusCode, e.Message)
}

func (e *LLMError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether the request may succeed if sent again
func (e *LLMError) IsRetryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// wrapError converts go-openai errors to *LLMError
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	var llmErr *LLMError
	if errors.As(err, &llmErr) {
		return err
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &LLMError{
			StatusCode: apiErr.HTTPStatusCode,
			Message:    apiErr.Message,
			Type:       apiErr.Type,
			Err:        err,
		}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		msg := http.StatusText(reqErr.HTTPStatusCode)
		if reqErr.Err != nil {
			msg = reqErr.Err.Error()
		}
		return &LLMError{
			StatusCode: reqErr.HTTPStatusCode,
			Message:    msg,
			Err:        err,
		}
	}

	return err
}

// IsRetryable reports whether err is worth another attempt. Transport
// failures are retryable; cancellations, open breakers and 4xx are not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, breaker.ErrOpen) || errors.Is(err, ErrBlocked) {
		return false
	}
	var llmErr *LLMError
	if errors.As(wrapError(err), &llmErr) {
		return llmErr.IsRetryable()
	}
	return true
}

// IsCallerError reports 4xx failures other than rate limiting. These say
// nothing about provider health and should not trip a breaker.
func IsCallerError(err error) bool {
	var llmErr *LLMError
	if !errors.As(wrapError(err), &llmErr) {
		return false
	}
	return llmErr.StatusCode >= 400 && llmErr.StatusCode < 500 && llmErr.StatusCode != http.StatusTooManyRequests
}
