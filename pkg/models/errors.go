package models

import "errors"

// Sentinel errors surfaced by the engine and the alert store. Callers
// classify with errors.Is; the API layer maps them to HTTP status codes.
var (
	// ErrInvalidSeverity means a raw severity value is outside the fixed vocabulary.
	ErrInvalidSeverity = errors.New("invalid severity")

	// ErrInvalidStatus means a raw status value is outside the fixed vocabulary.
	ErrInvalidStatus = errors.New("invalid status")

	// ErrIllegalTransition means a requested status change is not permitted
	// from the alert's current status.
	ErrIllegalTransition = errors.New("illegal status transition")

	// ErrDuplicateIdentity means an insert collided with an existing
	// non-deleted alert for the same (environment, resource, event).
	ErrDuplicateIdentity = errors.New("duplicate alert identity")

	// ErrWriteConflict means an optimistic-concurrency update lost the race
	// and the bounded retry budget is exhausted.
	ErrWriteConflict = errors.New("write conflict")

	// ErrStoreUnavailable means the alert store could not be reached within
	// the operation deadline.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrNotFound means no alert or heartbeat matches the given identifier.
	ErrNotFound = errors.New("not found")
)
