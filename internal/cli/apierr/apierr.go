// Package apierr defines the error values produced by the TaskWiz client.
//
// Every failure the client reports is one of three kinds:
//   - *NetworkError: no response was received
//   - *HTTPError: the backend answered with a non-2xx status
//   - *ValidationError: a local pre-check rejected the input before any request was sent
//
// Callers wrap these with fmt.Errorf("...: %w") freely; errors.As still finds them.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const genericRequestFailed = "request failed"

// NetworkError reports a transport failure (DNS, refused connection, timeout, TLS).
type NetworkError struct {
	Op  string // e.g. "GET /tasks"
	Err error
}

func (e *NetworkError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", genericRequestFailed, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", genericRequestFailed, e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// HTTPError reports a non-2xx response. Message holds the backend's structured
// detail when one was present.
type HTTPError struct {
	Status  int
	Code    string // backend error code, e.g. "INVALID_CREDENTIALS"; may be empty
	Message string
}

func (e *HTTPError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (status %d, %s)", e.Message, e.Status, e.Code)
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
}

// ValidationError reports input rejected locally.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidation is shorthand for &ValidationError{...}.
func NewValidation(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// StatusMessage derives the generic message used when a response carries no detail.
func StatusMessage(status int) string {
	text := http.StatusText(status)
	if text == "" {
		return fmt.Sprintf("request failed with status %d", status)
	}
	return strings.ToLower(text)
}

// Message renders err as the short human-readable text shown to users and kept
// in state managers' error fields.
func Message(err error) string {
	if err == nil {
		return ""
	}

	var netErr *NetworkError
	var httpErr *HTTPError
	var valErr *ValidationError

	switch {
	case errors.As(err, &valErr):
		return valErr.Message
	case errors.As(err, &httpErr):
		if httpErr.Message != "" {
			return httpErr.Message
		}
		return StatusMessage(httpErr.Status)
	case errors.As(err, &netErr):
		return genericRequestFailed
	default:
		return err.Error()
	}
}

// IsUnauthorized reports whether err is an HTTP 401.
func IsUnauthorized(err error) bool {
	return HasStatus(err, http.StatusUnauthorized)
}

// HasStatus reports whether err is an HTTPError with the given status.
func HasStatus(err error, status int) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.Status == status
}

// IsValidation reports whether err was produced by a local pre-check.
func IsValidation(err error) bool {
	var valErr *ValidationError
	return errors.As(err, &valErr)
}
