package store

import (
	"fmt"
	"net/http"
)

// Kind classifies a store failure so callers (Resource Manager, Controller
// Loop) can decide retry vs. drop vs. fatal behavior per spec §7.
type Kind string

const (
	KindTransient Kind = "transient"
	KindConflict  Kind = "conflict"
	KindNotFound  Kind = "not_found"
	KindFatal     Kind = "fatal"
)

// Error wraps a store-level failure with its HTTP origin, mirroring
// CouchDBError's status-code classification in the teacher's db package.
type Error struct {
	Kind       Kind
	StatusCode int
	Op         string
	Reason     string
}

func (e *Error) Error() string {
	return fmt.Sprintf("store: %s failed (status %d, %s): %s", e.Op, e.StatusCode, e.Kind, e.Reason)
}

// classify maps an HTTP status code from the document database to a Kind,
// the same triage CouchDBError.IsConflict/IsNotFound/IsUnauthorized do.
func classify(op string, statusCode int, reason string) *Error {
	var k Kind
	switch statusCode {
	case http.StatusConflict:
		k = KindConflict
	case http.StatusNotFound:
		k = KindNotFound
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusBadRequest:
		k = KindFatal
	case 0:
		k = KindTransient
	default:
		if statusCode >= 500 {
			k = KindTransient
		} else {
			k = KindFatal
		}
	}
	return &Error{Kind: k, StatusCode: statusCode, Op: op, Reason: reason}
}

// IsNotFound reports whether err is a store.Error of kind NotFound.
func IsNotFound(err error) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == KindNotFound
}

// IsConflict reports whether err is a store.Error of kind Conflict.
func IsConflict(err error) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == KindConflict
}

// IsTransient reports whether err is a store.Error of kind Transient.
func IsTransient(err error) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == KindTransient
}
