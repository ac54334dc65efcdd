// Package apperror defines the closed set of domain errors the API can return.
//
// Every failure a handler can classify is one of four kinds, each backed by a
// sentinel error:
//
//	ErrValidation      → 400  (missing/malformed fields, schema violations)
//	ErrUnauthenticated → 401  (missing/invalid token, bad credentials)
//	ErrForbidden       → 403  (role or ownership gate failed)
//	ErrNotFound        → 404  (no record for the given id)
//
// Anything that does not wrap one of these is an internal error and is
// answered with a generic 500 by the HTTP layer.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrValidation      = errors.New("validation error")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
)

// AppError carries a client-safe message alongside the sentinel it wraps.
type AppError struct {
	Err     error  // one of the sentinels above
	Message string // Human-readable error message, safe to send to clients
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound reports that no record of the given kind exists for id.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Unauthenticated covers both missing credentials and credentials that do
// not check out. The message must not reveal which one it was.
func Unauthenticated(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthenticated,
		Message: message,
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}
