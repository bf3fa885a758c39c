// Package apperr defines the closed error-kind taxonomy shared across the
// feed, chat, and event-propagation services.
package apperr

import (
	"errors"
	"fmt"
)

// Kind is a closed set of error categories. Transport layers map each Kind
// to a status code in exactly one place.
type Kind string

const (
	KindValidation   Kind = "validation"
	KindAuth         Kind = "authentication"
	KindForbidden    Kind = "authorization"
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindRateLimit    Kind = "rate_limit"
	KindUnavailable  Kind = "service_unavailable"
	KindTimeout      Kind = "timeout"
	KindInternal     Kind = "internal"
)

// Error is the shared error type. Message is always safe to show a caller;
// cause is logged but never serialized.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New constructs an Error of the given kind with a stable code and safe message.
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Wrap attaches a cause to a new Error without leaking the cause to callers.
func Wrap(kind Kind, code, message string, cause error) *Error {
	return &Error{Kind: kind, Code: code, Message: message, cause: cause}
}

func NotFound(code, message string) *Error    { return New(KindNotFound, code, message) }
func Validation(code, message string) *Error  { return New(KindValidation, code, message) }
func Conflict(code, message string) *Error    { return New(KindConflict, code, message) }
func RateLimited(code, message string) *Error { return New(KindRateLimit, code, message) }

// Unauthenticated always returns the same wording regardless of root cause,
// to avoid user enumeration, per the spec's authentication error policy.
func Unauthenticated(cause error) *Error {
	return Wrap(KindAuth, "UNAUTHENTICATED", "authentication failed", cause)
}

// Forbidden surfaces a uniform "access denied" message.
func Forbidden(code string) *Error {
	return New(KindForbidden, code, "access denied")
}

// Unavailable represents a downstream/circuit-open condition.
func Unavailable(code string, cause error) *Error {
	return Wrap(KindUnavailable, code, "service unavailable", cause)
}

// Internal wraps an unclassified error; message never includes cause detail.
func Internal(cause error) *Error {
	return Wrap(KindInternal, "INTERNAL", "internal error", cause)
}

// KindOf extracts the Kind of err if it is (or wraps) an *Error, defaulting
// to KindInternal otherwise.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
