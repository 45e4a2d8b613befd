package services

import (
	"errors"
	"fmt"
)

// Kind classifies a service failure for the transport layer.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthorized
	KindForbidden
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	default:
		return "internal"
	}
}

// Error is the error type returned by every service operation.
// Message is safe to show to callers; Err holds the underlying cause, if any.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// ValidationError reports malformed or missing input.
func ValidationError(msg string) error {
	return &Error{Kind: KindValidation, Message: msg}
}

// UnauthorizedError reports a missing identity where one is required.
func UnauthorizedError(msg string) error {
	return &Error{Kind: KindUnauthorized, Message: msg}
}

// ForbiddenError reports an identity that may not act on the target.
func ForbiddenError(msg string) error {
	return &Error{Kind: KindForbidden, Message: msg}
}

// NotFoundError reports a referenced entity that does not exist.
func NotFoundError(msg string) error {
	return &Error{Kind: KindNotFound, Message: msg}
}

// InternalError wraps a storage or unexpected failure behind a generic message.
func InternalError(op string, err error) error {
	return &Error{Kind: KindInternal, Message: op, Err: err}
}

// KindOf returns the Kind of err. Errors not produced by this package are internal.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

// MessageOf returns the caller-safe message for err.
func MessageOf(err error) string {
	var se *Error
	if errors.As(err, &se) && se.Kind != KindInternal {
		return se.Message
	}
	return "internal server error"
}

// asServiceError passes service errors through and wraps anything else as internal.
func asServiceError(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	return InternalError(op, err)
}
