// Package utils provides error classification and logging shared by the
// apirush components.
package utils

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes failures for retry classification and reporting.
type ErrorCode string

const (
	// ErrCodeTransport covers connection-level failures: dial errors,
	// timeouts, resets, proxy connect failures. Always retryable.
	ErrCodeTransport ErrorCode = "TRANSPORT_ERROR"

	// ErrCodeHTTPStatus marks a completed exchange whose status code was
	// outside the success range. Retryability depends on the status.
	ErrCodeHTTPStatus ErrorCode = "HTTP_STATUS"

	// ErrCodeProxyExhausted means a provider had no usable endpoint.
	// Retryable: the provider may refresh before the next attempt.
	ErrCodeProxyExhausted ErrorCode = "PROXY_EXHAUSTED"

	// ErrCodeScheduleCancelled means the run was cancelled before or while
	// waiting for its start time. Fatal to the whole run.
	ErrCodeScheduleCancelled ErrorCode = "SCHEDULE_CANCELLED"

	// ErrCodeInvalidConfig marks setup-time configuration errors. Fatal
	// before any attempt is made.
	ErrCodeInvalidConfig ErrorCode = "INVALID_CONFIG"

	// ErrCodeInternal is the fallback for unclassified failures.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// Error is the classified error type used throughout apirush. It carries a
// code for categorization, an optional HTTP status, and a default
// retryability flag that the retry policy may refine.
type Error struct {
	Code       ErrorCode
	Message    string
	StatusCode int
	Retryable  bool
	Cause      error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As chains.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches errors by code so callers can compare against sentinel values.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// NewTransportError wraps a connection-level failure.
func NewTransportError(cause error) *Error {
	return &Error{
		Code:      ErrCodeTransport,
		Message:   "request transport failed",
		Retryable: true,
		Cause:     cause,
	}
}

// NewHTTPStatusError records a non-success status code. The Retryable flag
// reflects the conventional server-side set; the retry policy consults the
// status directly when a custom set is configured.
func NewHTTPStatusError(statusCode int, url string) *Error {
	return &Error{
		Code:       ErrCodeHTTPStatus,
		Message:    fmt.Sprintf("HTTP %d from %s", statusCode, url),
		StatusCode: statusCode,
		Retryable:  statusCode == 429 || statusCode >= 500,
	}
}

// NewProxyExhausted reports an empty or fully cooled-down proxy pool.
func NewProxyExhausted(provider string, cause error) *Error {
	return &Error{
		Code:      ErrCodeProxyExhausted,
		Message:   fmt.Sprintf("proxy provider %q has no usable endpoint", provider),
		Retryable: true,
		Cause:     cause,
	}
}

// NewScheduleCancelled reports cancellation while gating on the start time.
func NewScheduleCancelled(cause error) *Error {
	return &Error{
		Code:    ErrCodeScheduleCancelled,
		Message: "run cancelled before start",
		Cause:   cause,
	}
}

// NewInvalidConfig reports a setup-time configuration error for a field.
func NewInvalidConfig(field, message string) *Error {
	return &Error{
		Code:    ErrCodeInvalidConfig,
		Message: fmt.Sprintf("%s: %s", field, message),
	}
}

// CodeOf returns the classification code of err, or ErrCodeInternal when err
// carries no classification.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrCodeInternal
}

// StatusOf extracts the HTTP status code from a classified error.
func StatusOf(err error) (int, bool) {
	var e *Error
	if errors.As(err, &e) && e.Code == ErrCodeHTTPStatus {
		return e.StatusCode, true
	}
	return 0, false
}

// IsRetryable reports the default retry classification of err. Unclassified
// errors are treated as non-retryable.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}
