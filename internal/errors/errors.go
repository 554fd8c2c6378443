package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a drophub error code.
type ErrorCode string

const (
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST" // 400
	ErrNotFound       ErrorCode = "NOT_FOUND"       // 404
	ErrUpstream       ErrorCode = "UPSTREAM"        // 502
	ErrNotConfigured  ErrorCode = "NOT_CONFIGURED"  // 503
	ErrUnavailable    ErrorCode = "UNAVAILABLE"     // 503
	ErrInternal       ErrorCode = "INTERNAL"        // 500
)

// HubError represents a structured error with code, status, and details.
type HubError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *HubError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *HubError {
	return &HubError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a missing hub resource.
func NewNotFound(identifier string) *HubError {
	return &HubError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewUpstream creates a 502 error for a non-success hub response.
// excerpt is a bounded slice of the response body.
func NewUpstream(status int, excerpt string) *HubError {
	return &HubError{
		Code:    ErrUpstream,
		Status:  502,
		Message: fmt.Sprintf("hub returned %d: %s", status, excerpt),
		Details: map[string]any{"upstream_status": status, "body": excerpt},
	}
}

// NewNotConfigured creates a 503 error when the hub URL or API key is missing.
func NewNotConfigured() *HubError {
	return &HubError{
		Code:    ErrNotConfigured,
		Status:  503,
		Message: "hub is not configured: set DROP_API_KEY or INGEST_API_KEY (and DROP_HUB_URL to override the default hub)",
	}
}

// NewUnavailable creates a 503 error for transport failures.
func NewUnavailable(err error) *HubError {
	msg := "hub unavailable"
	if err != nil {
		msg = fmt.Sprintf("hub unavailable: %v", err)
	}
	return &HubError{
		Code:    ErrUnavailable,
		Status:  503,
		Message: msg,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *HubError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &HubError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// Is checks if an error (or anything it wraps) is a HubError with the given code.
func Is(err error, code ErrorCode) bool {
	var hubErr *HubError
	if stderrors.As(err, &hubErr) {
		return hubErr.Code == code
	}
	return false
}

// As extracts the HubError from err's chain.
func As(err error) (*HubError, bool) {
	var hubErr *HubError
	if stderrors.As(err, &hubErr) {
		return hubErr, true
	}
	return nil, false
}
