package exposure

import (
	"context"
	"time"
)

// Store is the durable local exposure log. Implementations must surface
// storage faults as errors; callers never assume a write succeeded.
//
// Append has day-upsert semantics locally: a second append for an existing
// DayKey replaces that day's row in place (latest wins) while keeping the
// original ID, and resets the synced flag so the refreshed values reach the
// backend on the next pass.
type Store interface {
	// Append persists a record and returns its ID.
	Append(ctx context.Context, rec *Record) (string, error)

	// Get retrieves a record by ID.
	Get(ctx context.Context, id string) (*Record, error)

	// ListUnsynced returns a snapshot of unsynced records whose next
	// attempt time has passed, ordered by capture time. Concurrent appends
	// are not blocked and may or may not appear in the snapshot.
	ListUnsynced(ctx context.Context, now time.Time) ([]Record, error)

	// MarkSynced flips the synced flag and stamps the confirmation time.
	MarkSynced(ctx context.Context, id string, at time.Time) error

	// MarkAttempt records a failed upsert attempt and the earliest time
	// the next attempt may run.
	MarkAttempt(ctx context.Context, id string, next time.Time) error

	// ListAll returns every record, ordered by capture time. Rollups are
	// computed over this snapshot without touching the network.
	ListAll(ctx context.Context) ([]Record, error)

	// ListRange returns records captured in [from, to), ordered by
	// capture time.
	ListRange(ctx context.Context, from, to time.Time) ([]Record, error)

	// CountUnsynced returns the number of records not yet confirmed by
	// the backend.
	CountUnsynced(ctx context.Context) (int, error)

	// PurgeSynced deletes records that were confirmed synced before
	// now-olderThan and returns how many were removed.
	PurgeSynced(ctx context.Context, olderThan time.Duration, now time.Time) (int, error)

	// Close releases the underlying storage handle.
	Close() error
}
