package stt

import (
	"errors"
	"fmt"
	"net/http"
)

// TransientError marks a recognition attempt that failed in a recoverable,
// attempt-scoped way. The cascade advances past it and an outer retry policy
// may try the same provider again.
type TransientError struct {
	Reason string
	Err    error
}

func (e *TransientError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("stt: transient: %s: %v", e.Reason, e.Err)
	}
	return "stt: transient: " + e.Reason
}

func (e *TransientError) Unwrap() error { return e.Err }

// HardError marks a provider-scoped failure that will not go away within
// this request (authentication, malformed response). The cascade still
// advances to the next provider; only retrying the same one is pointless.
type HardError struct {
	Reason string
	Status int // HTTP status when the failure came from a response
	Err    error
}

func (e *HardError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("stt: hard failure (HTTP %d): %s", e.Status, e.Reason)
	}
	if e.Err != nil {
		return fmt.Sprintf("stt: hard failure: %s: %v", e.Reason, e.Err)
	}
	return "stt: hard failure: " + e.Reason
}

func (e *HardError) Unwrap() error { return e.Err }

// IsTransient reports whether err is (or wraps) a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// IsHard reports whether err is (or wraps) a HardError.
func IsHard(err error) bool {
	var he *HardError
	return errors.As(err, &he)
}

// ClassifyStatus converts a non-2xx HTTP status from a recognition service
// into the matching error type. 503 (service or model warming up) and 429
// (rate limiting) are transient; everything else is a hard failure for that
// provider.
func ClassifyStatus(status int, body string) error {
	switch status {
	case http.StatusServiceUnavailable, http.StatusTooManyRequests:
		return &TransientError{Reason: fmt.Sprintf("service returned HTTP %d", status)}
	default:
		return &HardError{Reason: body, Status: status}
	}
}
