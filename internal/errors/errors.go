// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrNoSession       = errors.New("no session")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrRequestFailed   = errors.New("request failed")
	ErrConfigInvalid   = errors.New("invalid configuration")
	ErrInputValidation = errors.New("input validation failed")
	ErrStoreClosed     = errors.New("store closed")
)

// APIErrorKind classifies the outcome of a gateway request.
type APIErrorKind string

const (
	// KindNoSession means an authenticated call was attempted without a token.
	// Such a call never reaches the network.
	KindNoSession APIErrorKind = "NO_SESSION"
	// KindUnauthorized means the server rejected the credentials (HTTP 401).
	KindUnauthorized APIErrorKind = "UNAUTHORIZED"
	// KindFailure covers every other non-2xx status and network-level failure.
	KindFailure APIErrorKind = "FAILURE"
)

// APIError represents a classified error from the trading API.
type APIError struct {
	Kind       APIErrorKind
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("api error [%s %d]: %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api error [%s]: %s", e.Kind, e.Message)
}

// Unwrap exposes the sentinel for the kind, so errors.Is(err, ErrUnauthorized)
// works on any classified error.
func (e *APIError) Unwrap() []error {
	var sentinel error
	switch e.Kind {
	case KindNoSession:
		sentinel = ErrNoSession
	case KindUnauthorized:
		sentinel = ErrUnauthorized
	default:
		sentinel = ErrRequestFailed
	}
	if e.Err != nil {
		return []error{sentinel, e.Err}
	}
	return []error{sentinel}
}

// NewNoSessionError creates the error returned before an authenticated call
// when no token is present.
func NewNoSessionError(method, path string) *APIError {
	return &APIError{
		Kind:    KindNoSession,
		Message: fmt.Sprintf("%s %s requires a session", method, path),
	}
}

// NewUnauthorizedError creates an Unauthorized error.
func NewUnauthorizedError(message string) *APIError {
	if message == "" {
		message = "session is no longer valid"
	}
	return &APIError{
		Kind:       KindUnauthorized,
		StatusCode: 401,
		Message:    message,
	}
}

// NewFailureError creates a Failure error. A zero status means the request
// never produced an HTTP response.
func NewFailureError(status int, message string, err error) *APIError {
	return &APIError{
		Kind:       KindFailure,
		StatusCode: status,
		Message:    message,
		Err:        err,
	}
}

// KindOf returns the APIErrorKind of err, or "" when err is not an APIError.
func KindOf(err error) APIErrorKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return ""
}

// ValidationError represents a client-side precondition failure. It is
// raised before any network call.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInputValidation
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// StoreError represents a persistence failure in the session backend.
type StoreError struct {
	Operation string
	Key       string
	Err       error
}

func (e *StoreError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("store error [%s] %s: %v", e.Operation, e.Key, e.Err)
	}
	return fmt.Sprintf("store error [%s]: %v", e.Operation, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError.
func NewStoreError(operation, key string, err error) *StoreError {
	return &StoreError{
		Operation: operation,
		Key:       key,
		Err:       err,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
