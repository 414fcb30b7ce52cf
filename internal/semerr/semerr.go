// Package semerr classifies the error kinds that flow through the indexing
// pipeline so callers can decide whether to retry, abort a batch, or abort
// an entire operation without inspecting error strings.
package semerr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for retry and propagation decisions.
type Kind string

const (
	// KindTransient covers rate-limit responses, timeouts, and connection
	// resets. Retried with backoff inside the rate limiter.
	KindTransient Kind = "transient"
	// KindSchema covers an LLM response that fails JSON schema validation.
	// Retried within the PA/FuI loop up to a bounded attempt count.
	KindSchema Kind = "schema"
	// KindPrecondition covers a missing prerequisite artifact (no PA, no FI).
	KindPrecondition Kind = "precondition"
	// KindPerUnit covers a single file or function failing; it does not
	// abort the enclosing batch.
	KindPerUnit Kind = "per_unit"
	// KindFatal covers unavailable storage: checkpoint store, vector
	// store, or an unwritable storage root. Aborts before any mutation.
	KindFatal Kind = "fatal"
)

// Error is a classified, wrapped error.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err with the given kind and operation label. Returns nil if
// err is nil.
func New(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Transient wraps err as a transient, retryable failure.
func Transient(op string, err error) error { return New(KindTransient, op, err) }

// Schema wraps err as a schema-validation failure.
func Schema(op string, err error) error { return New(KindSchema, op, err) }

// Precondition wraps err as a missing-prerequisite failure.
func Precondition(op string, err error) error { return New(KindPrecondition, op, err) }

// PerUnit wraps err as a single-unit failure that should not abort a batch.
func PerUnit(op string, err error) error { return New(KindPerUnit, op, err) }

// Fatal wraps err as an operation-aborting failure.
func Fatal(op string, err error) error { return New(KindFatal, op, err) }

// Is reports whether err (or any error it wraps) carries the given kind.
func Is(err error, kind Kind) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind == kind
	}
	return false
}

// KindOf returns the classified kind of err, or "" if err is not a
// classified *Error.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}
