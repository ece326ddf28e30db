// Package apperror is the caller-visible failure taxonomy. Usecases translate
// repository and collaborator failures into exactly one Kind before returning.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	Unauthorized  Kind = "unauthorized"
	Forbidden     Kind = "forbidden"
	NotFound      Kind = "not_found"
	InvalidInput  Kind = "invalid_input"
	InternalError Kind = "internal_error"
)

type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

func NewUnauthorized(message string) *Error { return New(Unauthorized, message) }
func NewForbidden(message string) *Error    { return New(Forbidden, message) }
func NewNotFound(message string) *Error     { return New(NotFound, message) }
func NewInvalidInput(message string) *Error { return New(InvalidInput, message) }

func NewInternal(message string, cause error) *Error {
	return Wrap(InternalError, message, cause)
}

// KindOf returns the Kind carried by err, or InternalError for anything untyped.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return InternalError
}

// MessageOf returns the caller-safe message. Causes are never exposed.
func MessageOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "internal server error"
}

func HTTPStatus(kind Kind) int {
	switch kind {
	case Unauthorized:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case InvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
