package ai

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind is the closed taxonomy for upstream provider failures. Kinds are
// assigned once, at the adapter right after the remote call; nothing
// downstream re-derives a kind from message text.
type ErrorKind string

const (
	KindRateLimited   ErrorKind = "rate_limited"
	KindAuthFailed    ErrorKind = "auth_failed"
	KindQuotaExceeded ErrorKind = "quota_exceeded"
	KindUnavailable   ErrorKind = "unavailable"
	KindUnknown       ErrorKind = "unknown"
)

// ErrUnavailable is returned when a provider has no usable configuration.
var ErrUnavailable = errors.New("ai provider unavailable")

// ProviderError carries the classified kind plus a user-safe message. The
// raw upstream body stays in Err for logs only.
type ProviderError struct {
	Provider string
	Kind     ErrorKind
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// KindOf extracts the classified kind, KindUnknown for anything else.
func KindOf(err error) ErrorKind {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindUnknown
}

// Retriable reports whether the caller may retry the failed call. Auth and
// quota failures never clear on retry.
func Retriable(err error) bool {
	switch KindOf(err) {
	case KindRateLimited, KindUnavailable:
		return true
	}
	return false
}

func safeMessage(kind ErrorKind) string {
	switch kind {
	case KindRateLimited:
		return "rate limit exceeded, try again later"
	case KindAuthFailed:
		return "authentication with the model provider failed"
	case KindQuotaExceeded:
		return "model provider quota exhausted"
	case KindUnavailable:
		return "model provider temporarily unavailable"
	default:
		return "model provider request failed"
	}
}

// classifyStatus maps an HTTP status plus response body onto the taxonomy.
// 429 means quota when the provider says so in the error code, rate limit
// otherwise.
func classifyStatus(provider string, status int, body string) *ProviderError {
	kind := KindUnknown
	switch {
	case status == 429 && strings.Contains(body, "insufficient_quota"):
		kind = KindQuotaExceeded
	case status == 429:
		kind = KindRateLimited
	case status == 401 || status == 403:
		kind = KindAuthFailed
	case status == 402:
		kind = KindQuotaExceeded
	case status >= 500:
		kind = KindUnavailable
	}
	return &ProviderError{
		Provider: provider,
		Kind:     kind,
		Message:  safeMessage(kind),
		Err:      fmt.Errorf("status %d: %s", status, strings.TrimSpace(body)),
	}
}

func classifyTransport(provider string, err error) *ProviderError {
	return &ProviderError{
		Provider: provider,
		Kind:     KindUnavailable,
		Message:  safeMessage(KindUnavailable),
		Err:      err,
	}
}
