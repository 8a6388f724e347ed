package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string            `json:"code"`
	Label   string            `json:"error"`
	Message string            `json:"message"`
	Status  int               `json:"status"`
	Fields  map[string]string `json:"validation_errors,omitempty"`
	Err     error             `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches errors sharing the same code so clones compare equal to their sentinel.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// New creates a new Error instance.
func New(code string, status int, label, message string) *Error {
	return &Error{Code: code, Status: status, Label: label, Message: message}
}

// Wrap attaches context to an existing error, inheriting code, status and label from kind.
func Wrap(err error, kind *Error, message string) *Error {
	return &Error{Code: kind.Code, Status: kind.Status, Label: kind.Label, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrNotFound     = New("NOT_FOUND", http.StatusNotFound, "resource not found", "resource not found")
	ErrUnauthorized = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized", "authentication required")
	ErrConflict     = New("CONFLICT", http.StatusConflict, "conflict", "conflict")
	ErrValidation   = New("VALIDATION_ERROR", http.StatusBadRequest, "validation error", "the submitted data is not valid")
	ErrInternal     = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error", "internal server error")
	ErrCacheMiss    = New("CACHE_MISS", http.StatusNotFound, "cache miss", "cache miss")
)

// FromError normalises any error into an *Error. Unknown failures become
// internal errors carrying the underlying message.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal, err.Error())
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// Validation builds a validation error listing the violation for every failing field.
func Validation(fields map[string]string) *Error {
	clone := Clone(ErrValidation, "")
	clone.Fields = fields
	return clone
}
