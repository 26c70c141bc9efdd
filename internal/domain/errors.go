package domain

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes iseven errors.
type ErrorCode string

const (
	// ErrCodeValidation indicates bad input, rejected before any work starts.
	ErrCodeValidation ErrorCode = "VALIDATION"

	// ErrCodeResource indicates the queue or its primitives could not be set up.
	ErrCodeResource ErrorCode = "RESOURCE"

	// ErrCodeLoad indicates a key's computation is absent, empty or cannot
	// be executed. Fatal and never retried.
	ErrCodeLoad ErrorCode = "LOAD"

	// ErrCodeClosed indicates an operation on a shut-down queue.
	ErrCodeClosed ErrorCode = "CLOSED"

	// ErrCodeExhausted indicates the whole key space was scanned without a
	// conclusive verdict.
	ErrCodeExhausted ErrorCode = "EXHAUSTED"
)

// Error is the error type returned across iseven package boundaries.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Key is the failing key or path, when there is one.
	Key string

	// Err is the underlying cause (optional).
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Key != "" {
		msg = fmt.Sprintf("%s (key=%s)", msg, e.Key)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ErrClosed is returned by queue operations after shutdown.
// It is an internal teardown signal and is never shown to users.
var ErrClosed = &Error{Code: ErrCodeClosed, Message: "queue is shut down"}

// NewValidationError creates a validation error.
func NewValidationError(message string, err error) *Error {
	return &Error{Code: ErrCodeValidation, Message: message, Err: err}
}

// NewResourceError creates a resource error.
func NewResourceError(message string, err error) *Error {
	return &Error{Code: ErrCodeResource, Message: message, Err: err}
}

// NewLoadError creates a load error for the given key or path.
func NewLoadError(key, message string, err error) *Error {
	return &Error{Code: ErrCodeLoad, Message: message, Key: key, Err: err}
}

// NewExhaustedError reports a scan that found no conclusive verdict.
func NewExhaustedError(target uint32, evaluated int64) *Error {
	return &Error{
		Code:    ErrCodeExhausted,
		Message: fmt.Sprintf("no conclusive verdict for %d after %d keys", target, evaluated),
	}
}

func hasCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// IsValidation returns true if err is a validation error.
func IsValidation(err error) bool { return hasCode(err, ErrCodeValidation) }

// IsResource returns true if err is a resource error.
func IsResource(err error) bool { return hasCode(err, ErrCodeResource) }

// IsLoad returns true if err is a load error.
func IsLoad(err error) bool { return hasCode(err, ErrCodeLoad) }

// IsExhausted returns true if err reports an exhausted key space.
func IsExhausted(err error) bool { return hasCode(err, ErrCodeExhausted) }
