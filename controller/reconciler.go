package controller

import (
	"context"
	"time"
)

// ErrKind is the reconciler failure taxonomy surfaced to the Loop (spec
// §4.5/§7).
type ErrKind string

const (
	// Transient errors are retried with backoff.
	Transient ErrKind = "transient"
	// Conflict errors are retried immediately after a fresh read
	// (optimistic concurrency); the Loop caps attempts before demoting to
	// Transient, per spec §7.
	Conflict ErrKind = "conflict"
	// Invalid errors are fatal to the single reconcile: the document is
	// logged and skipped, the controller continues (spec §7).
	Invalid ErrKind = "invalid"
	// Fatal errors are unrecoverable for this reconcile; logged and
	// dropped, same handling as Invalid at the Loop level (spec
	// distinguishes them for operator-facing severity, not retry policy).
	Fatal ErrKind = "fatal"
)

// ReconcileError carries a failure classification and, for Transient
// errors, an explicit retry hint (spec §4.4 step 3's retryIn(d)).
type ReconcileError struct {
	Kind       ErrKind
	Err        error
	RetryAfter time.Duration
}

func (e *ReconcileError) Error() string { return e.Err.Error() }
func (e *ReconcileError) Unwrap() error { return e.Err }

// Retryable wraps err as a Transient failure with an explicit backoff hint.
func Retryable(err error, after time.Duration) *ReconcileError {
	return &ReconcileError{Kind: Transient, Err: err, RetryAfter: after}
}

// ConflictErr wraps err as a Conflict failure (re-read and retry
// immediately).
func ConflictErr(err error) *ReconcileError {
	return &ReconcileError{Kind: Conflict, Err: err}
}

// InvalidErr wraps err as an Invalid failure (drop, log, continue).
func InvalidErr(err error) *ReconcileError {
	return &ReconcileError{Kind: Invalid, Err: err}
}

// Reconciler converges one resource of kind T toward its desired state. It
// MUST be idempotent: Reconcile(Reconcile(x)) == Reconcile(x) in observable
// state (spec §4.5, §8).
type Reconciler[T any] interface {
	Reconcile(ctx context.Context, entity T) error
}

// ReconcilerFunc adapts a plain function to the Reconciler interface.
type ReconcilerFunc[T any] func(ctx context.Context, entity T) error

func (f ReconcilerFunc[T]) Reconcile(ctx context.Context, entity T) error { return f(ctx, entity) }
