package assistant

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies provider failures into a closed set so the
// orchestrator can decide how to react without string-matching messages.
type ErrorKind string

const (
	// ErrorKindAuth indicates the provider rejected our credentials.
	ErrorKindAuth ErrorKind = "auth"
	// ErrorKindRateLimit indicates the provider throttled the request.
	ErrorKindRateLimit ErrorKind = "rate_limit"
	// ErrorKindTransient indicates a retryable failure (timeouts, 5xx).
	ErrorKindTransient ErrorKind = "transient"
	// ErrorKindFatal indicates a non-retryable failure.
	ErrorKindFatal ErrorKind = "fatal"
)

// ProviderError wraps any failure crossing the ModelProvider boundary.
type ProviderError struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("model provider error (%s, status %d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("model provider error (%s): %s", e.Kind, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the orchestrator may retry the call.
func (e *ProviderError) Retryable() bool {
	return e.Kind == ErrorKindRateLimit || e.Kind == ErrorKindTransient
}

// AsProviderError extracts a ProviderError from an error chain.
func AsProviderError(err error) (*ProviderError, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// classifyStatusCode maps an HTTP status from the provider to an ErrorKind.
func classifyStatusCode(status int) ErrorKind {
	switch {
	case status == 401 || status == 403:
		return ErrorKindAuth
	case status == 429:
		return ErrorKindRateLimit
	case status >= 500:
		return ErrorKindTransient
	default:
		return ErrorKindFatal
	}
}

// classifyErrorMessage is the fallback classifier for errors that carry no
// status code (network failures, cancelled contexts).
func classifyErrorMessage(msg string) ErrorKind {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "api key") || strings.Contains(lower, "unauthorized") || strings.Contains(lower, "authentication"):
		return ErrorKindAuth
	case strings.Contains(lower, "rate limit") || strings.Contains(lower, "too many requests") || strings.Contains(lower, "429"):
		return ErrorKindRateLimit
	case strings.Contains(lower, "timeout") || strings.Contains(lower, "deadline exceeded") || strings.Contains(lower, "connection"):
		return ErrorKindTransient
	default:
		return ErrorKindFatal
	}
}
