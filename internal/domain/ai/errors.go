package ai

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrQuotaExceeded indicates the AI provider returned a quota/limit error (HTTP 429 or similar).
var ErrQuotaExceeded = errors.New("ai quota exceeded")

// ErrMissingCredentials is returned before any network call when no API key is configured.
var ErrMissingCredentials = errors.New("ai api key is not configured")

// ErrMalformedReply means the model answered but the content is not the JSON
// object that was asked for. Retrying with the same prompt will not help.
var ErrMalformedReply = errors.New("ai reply is malformed")

// TransientError wraps a failure talking to the model endpoint (non-2xx status,
// transport error, timeout). The whole request may be retried.
type TransientError struct {
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *TransientError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("ai endpoint status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("ai endpoint unreachable: %v", e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err came from a retryable endpoint failure.
func IsTransient(err error) bool {
	var t *TransientError
	return errors.As(err, &t)
}

// Retryable is false for client errors other than 408 and 429: a bad model
// name or a revoked key fails the same way on every attempt.
func (e *TransientError) Retryable() bool {
	switch {
	case e.StatusCode == 0:
		return true
	case e.StatusCode == http.StatusRequestTimeout, e.StatusCode == http.StatusTooManyRequests:
		return true
	case e.StatusCode >= 400 && e.StatusCode < 500:
		return false
	}
	return true
}

// IsRetryable reports whether err is a transient failure worth retrying as is.
func IsRetryable(err error) bool {
	var t *TransientError
	return errors.As(err, &t) && t.Retryable()
}
