package core

import (
	"errors"
	"fmt"
)

// Kind buckets operation failures so adapters can map them to a single
// errorMessage event without inspecting reasons.
type Kind string

const (
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindConflict   Kind = "conflict"
	KindForbidden  Kind = "forbidden"
	KindExternal   Kind = "external"
)

// Error is the operation-boundary error: a taxonomy kind plus a
// human-readable reason that is safe to echo back to the client.
type Error struct {
	Kind   Kind
	Reason string
}

func (e *Error) Error() string { return e.Reason }

func Validationf(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Reason: fmt.Sprintf(format, args...)}
}

func NotFoundf(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Reason: fmt.Sprintf(format, args...)}
}

func Conflictf(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Reason: fmt.Sprintf(format, args...)}
}

func Forbiddenf(format string, args ...any) *Error {
	return &Error{Kind: KindForbidden, Reason: fmt.Sprintf(format, args...)}
}

func Externalf(format string, args ...any) *Error {
	return &Error{Kind: KindExternal, Reason: fmt.Sprintf(format, args...)}
}

// KindOf extracts the taxonomy kind, defaulting to external for errors
// that did not originate at an operation boundary.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindExternal
}

// IsKind reports whether err carries the given taxonomy kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
