// Package apperror defines the domain error vocabulary shared by the
// repository, service, and handler layers.
//
// Lower layers return an *AppError wrapping one of the sentinels below.
// The HTTP layer picks a status code with errors.Is, so a store can report
// "not found" without knowing anything about HTTP.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("Validation Error")
	ErrConflict        = errors.New("conflict")
	ErrForbidden       = errors.New("forbidden")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrMalformedID     = errors.New("malformed id")
)

// Machine-readable codes the client branches on.
const (
	CodeDuplicateTitle = "DUPLICATE_TITLE"
	CodeInvalidID      = "INVALID_ID"
)

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
	Code    string // Optional: stable code for clients
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

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

// DuplicateTitle reports that another event already uses title.
// HTTP handlers map this to 409 with code DUPLICATE_TITLE.
func DuplicateTitle(title string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("An event with the title %q already exists", title),
		Field:   "title",
		Code:    CodeDuplicateTitle,
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

// Unauthenticated means no identity could be resolved for the caller.
func Unauthenticated() *AppError {
	return &AppError{
		Err:     ErrUnauthenticated,
		Message: "authentication required",
	}
}

// InvalidCredentials is an authentication failure with a specific reason,
// such as a rejected provider token or a wrong password.
func InvalidCredentials(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthenticated,
		Message: message,
	}
}

// MalformedID reports an id that can never match a stored document.
func MalformedID(resource string) *AppError {
	return &AppError{
		Err:     ErrMalformedID,
		Message: fmt.Sprintf("Wrong %s id format", resource),
		Field:   "id",
		Code:    CodeInvalidID,
	}
}
