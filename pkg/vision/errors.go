package vision

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/openai/openai-go"
)

// ErrorKind classifies a provider failure. The extraction client bases its
// retry decisions solely on this classification.
type ErrorKind string

const (
	// ErrNetwork covers connection failures and 5xx responses. Retryable.
	ErrNetwork ErrorKind = "network"
	// ErrTimeout covers exceeded deadlines on a single call. Retryable.
	ErrTimeout ErrorKind = "timeout"
	// ErrAuth covers rejected credentials (401/403). Not retryable.
	ErrAuth ErrorKind = "auth"
	// ErrRateLimit covers throttling (429). Retryable with extended backoff.
	ErrRateLimit ErrorKind = "rate_limit"
	// ErrEmptyResponse covers a well-formed reply with no usable content.
	// Retryable within the attempt budget.
	ErrEmptyResponse ErrorKind = "empty_response"
	// ErrConfig covers bad provider configuration (missing endpoint,
	// unknown model, malformed request). Fatal, never retried.
	ErrConfig ErrorKind = "config"
)

// Error is the unified provider failure. The original provider message is
// kept in Message/Cause for diagnostics.
type Error struct {
	Kind     ErrorKind
	Provider string
	Message  string
	Cause    error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a provider error without an underlying cause.
func NewError(kind ErrorKind, provider, message string) *Error {
	return &Error{Kind: kind, Provider: provider, Message: message}
}

// WrapError creates a provider error preserving the underlying cause.
func WrapError(kind ErrorKind, provider, message string, cause error) *Error {
	return &Error{Kind: kind, Provider: provider, Message: message, Cause: cause}
}

// KindOf extracts the classification from an error chain. Returns "" for
// errors that did not originate from a provider adapter.
func KindOf(err error) ErrorKind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

// IsRetryable reports whether another attempt could plausibly succeed.
// Unclassified errors are treated as non-retryable.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case ErrNetwork, ErrTimeout, ErrRateLimit, ErrEmptyResponse:
		return true
	}
	return false
}

// classifyStatus maps an HTTP status to the unified taxonomy. The response
// body snippet rides along for diagnostics.
func classifyStatus(provider string, status int, body string) *Error {
	msg := fmt.Sprintf("status %d: %s", status, truncate(body, 200))
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return NewError(ErrAuth, provider, msg)
	case status == http.StatusTooManyRequests:
		return NewError(ErrRateLimit, provider, msg)
	case status == http.StatusRequestTimeout:
		return NewError(ErrTimeout, provider, msg)
	case status == http.StatusBadRequest || status == http.StatusNotFound:
		return NewError(ErrConfig, provider, msg)
	case status >= 500:
		return NewError(ErrNetwork, provider, msg)
	default:
		return NewError(ErrNetwork, provider, msg)
	}
}

// classifyTransport maps a failed round trip (no HTTP status available)
// to timeout or network.
func classifyTransport(provider string, err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return WrapError(ErrTimeout, provider, "request timed out", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return WrapError(ErrTimeout, provider, "request timed out", err)
	}
	return WrapError(ErrNetwork, provider, "request failed", err)
}

// classifyAPIError maps an openai-go SDK error to the unified taxonomy.
func classifyAPIError(provider string, err error) *Error {
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		return WrapError(classifyStatus(provider, apierr.StatusCode, "").Kind,
			provider, fmt.Sprintf("API error (status %d)", apierr.StatusCode), err)
	}
	return classifyTransport(provider, err)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
