// Package apperror defines the failure kinds returned by the reservation core.
package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies a failure. Kinds are errors themselves so callers can match with errors.Is.
type Kind string

func (k Kind) Error() string { return string(k) }

const (
	ErrValidation   Kind = "validation error"
	ErrNotFound     Kind = "not found"
	ErrForbidden    Kind = "forbidden"
	ErrInvalidState Kind = "invalid state"
	ErrNoCapacity   Kind = "no capacity"
)

// Error is a classified failure with a caller-facing message.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Kind }

func newf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) error   { return newf(ErrValidation, format, args...) }
func NotFound(format string, args ...any) error     { return newf(ErrNotFound, format, args...) }
func Forbidden(format string, args ...any) error    { return newf(ErrForbidden, format, args...) }
func InvalidState(format string, args ...any) error { return newf(ErrInvalidState, format, args...) }
func NoCapacity(format string, args ...any) error   { return newf(ErrNoCapacity, format, args...) }

// KindOf returns the kind of err, or "" for unclassified (internal) errors.
func KindOf(err error) Kind {
	var kind Kind
	if errors.As(err, &kind) {
		return kind
	}
	return ""
}

// Retryable reports whether the same call may succeed later without new input.
func Retryable(err error) bool {
	return errors.Is(err, ErrNoCapacity)
}
