package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for transport mapping and retry decisions.
type Kind int

const (
	// KindNotFound covers absent entities, soft-deleted entities, and
	// entities the caller may not even know exist.
	KindNotFound Kind = iota + 1
	// KindForbidden means the entity is visible-as-existing but the
	// operation is not allowed for this caller or state.
	KindForbidden
	// KindConflict is a uniqueness violation (duplicate name or slug).
	KindConflict
	// KindValidation is malformed input or a missing required reference.
	KindValidation
	// KindDependency is a signing/storage backend failure. Retryable.
	KindDependency
	// KindFatal is an invariant violation. Must be logged loudly.
	KindFatal
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	case KindValidation:
		return "validation_failed"
	case KindDependency:
		return "dependency_failure"
	case KindFatal:
		return "fatal"
	}
	return "unknown"
}

// Error carries a kind, a message and an optional wrapped cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether the caller may retry the operation.
func (e *Error) Retryable() bool {
	return e.Kind == KindDependency
}

// NotFound creates a not-found error.
func NotFound(format string, args ...interface{}) error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

// Forbidden creates a forbidden error.
func Forbidden(format string, args ...interface{}) error {
	return &Error{Kind: KindForbidden, Msg: fmt.Sprintf(format, args...)}
}

// Conflict creates a conflict error.
func Conflict(format string, args ...interface{}) error {
	return &Error{Kind: KindConflict, Msg: fmt.Sprintf(format, args...)}
}

// Validation creates a validation error.
func Validation(format string, args ...interface{}) error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

// Dependency wraps a backend failure as retryable.
func Dependency(err error, format string, args ...interface{}) error {
	return &Error{Kind: KindDependency, Msg: fmt.Sprintf(format, args...), Err: err}
}

// Fatal wraps an invariant violation.
func Fatal(err error, format string, args ...interface{}) error {
	return &Error{Kind: KindFatal, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of err, or 0 when err is not an apperr error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// IsForbidden reports whether err is a forbidden error.
func IsForbidden(err error) bool { return KindOf(err) == KindForbidden }

// IsConflict reports whether err is a conflict error.
func IsConflict(err error) bool { return KindOf(err) == KindConflict }

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool { return KindOf(err) == KindValidation }

// IsDependency reports whether err is a retryable dependency failure.
func IsDependency(err error) bool { return KindOf(err) == KindDependency }

// IsFatal reports whether err is an invariant violation.
func IsFatal(err error) bool { return KindOf(err) == KindFatal }
