package apperror

import (
	"errors"
	"net/http"
)

// Error kinds shared by every messaging operation. Compare with errors.Is.
var (
	ErrUnauthorized     = errors.New("unauthorized")
	ErrForbidden        = errors.New("forbidden")
	ErrWindowExpired    = errors.New("edit window expired")
	ErrNotFound         = errors.New("resource not found")
	ErrValidation       = errors.New("validation failed")
	ErrConflict         = errors.New("conflicting state transition")
	ErrExternalDelivery = errors.New("notification delivery failed")
)

// AppError attaches a human readable message and an optional cause to an error kind.
type AppError struct {
	Kind    error
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Kind != nil {
		return e.Kind.Error()
	}
	return "unknown error"
}

// Unwrap exposes both the kind and the cause so errors.Is matches either.
func (e *AppError) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// New creates an AppError of the given kind.
func New(kind error, message string) *AppError {
	return &AppError{Kind: kind, Message: message}
}

// Wrap creates an AppError of the given kind around a lower level cause.
func Wrap(kind error, message string, err error) *AppError {
	return &AppError{Kind: kind, Message: message, Err: err}
}

// Forbidden is a shorthand for New(ErrForbidden, message).
func Forbidden(message string) *AppError { return New(ErrForbidden, message) }

// NotFound is a shorthand for New(ErrNotFound, message).
func NotFound(message string) *AppError { return New(ErrNotFound, message) }

// Validation is a shorthand for New(ErrValidation, message).
func Validation(message string) *AppError { return New(ErrValidation, message) }

// Conflict is a shorthand for New(ErrConflict, message).
func Conflict(message string) *AppError { return New(ErrConflict, message) }

// Status maps an error to the HTTP status code returned across the API boundary.
func Status(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrWindowExpired), errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrExternalDelivery):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Code returns a stable machine readable code so clients can pick the right guidance,
// e.g. "window_expired" ("too late to edit") versus "forbidden" ("not your message").
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrWindowExpired):
		return "window_expired"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrValidation):
		return "validation_error"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrExternalDelivery):
		return "delivery_error"
	default:
		return "internal_error"
	}
}

// IsKnown reports whether err belongs to the taxonomy, i.e. is safe to expose to callers.
func IsKnown(err error) bool {
	return Code(err) != "internal_error"
}
