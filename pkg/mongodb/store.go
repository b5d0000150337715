package mongodb

import (
	"context"
	"time"

	"github.com/openmonitor/alertd/pkg/models"
)

// AlertStore is the persistence contract for alert records. It exists as an
// interface so the engine and sweeper can be tested against a mock.
type AlertStore interface {
	// FindByIdentity returns the non-deleted alert for the given identity,
	// or (nil, nil) when no such alert exists.
	FindByIdentity(ctx context.Context, environment, resource, event string) (*models.Alert, error)

	// FindByID returns the alert with the given surrogate id, or
	// models.ErrNotFound.
	FindByID(ctx context.Context, id string) (*models.Alert, error)

	// Insert creates a new alert record. It fails with
	// models.ErrDuplicateIdentity if a non-deleted alert already holds the
	// same (environment, resource, event).
	Insert(ctx context.Context, alert *models.Alert) error

	// Update replaces the alert document if and only if its stored revision
	// still matches alert.Revision, then bumps the revision. A concurrent
	// writer winning the race yields models.ErrWriteConflict; the caller
	// must re-read and re-decide, never blindly retry the stale mutation.
	Update(ctx context.Context, alert *models.Alert) error

	// ScanExpirable streams alerts whose expiry deadline has passed: any
	// non-terminal status, a non-zero timeout and expireTime <= now. The
	// scan is a cursor walk, not a consistent snapshot; callers must be
	// idempotent per record.
	ScanExpirable(ctx context.Context, now time.Time, fn func(*models.Alert) error) error

	// PurgeResolved removes closed and expired alerts last touched before
	// the cutoff and returns how many were deleted.
	PurgeResolved(ctx context.Context, cutoff time.Time) (int64, error)

	// PurgeInformational removes informational-severity alerts last touched
	// before the cutoff regardless of status.
	PurgeInformational(ctx context.Context, cutoff time.Time) (int64, error)

	// PurgeDeleted removes soft-deleted alerts.
	PurgeDeleted(ctx context.Context) (int64, error)

	// List returns alerts matching the filter, most recently received
	// first. Deleted alerts are never returned.
	List(ctx context.Context, filter models.AlertFilter) ([]*models.Alert, error)

	// Counts computes the point-in-time aggregates by status and severity
	// over alerts matching the filter, without touching history.
	Counts(ctx context.Context, filter models.AlertFilter) (*models.AlertCounts, error)
}

// HeartbeatStore is the persistence contract for heartbeat records.
type HeartbeatStore interface {
	// Upsert writes the heartbeat for its origin, replacing any previous one.
	Upsert(ctx context.Context, hb *models.Heartbeat) error

	// List returns all heartbeats ordered by origin.
	List(ctx context.Context) ([]*models.Heartbeat, error)

	// Delete removes the heartbeat for an origin, or models.ErrNotFound.
	Delete(ctx context.Context, origin string) error
}
