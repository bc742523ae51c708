package exposure_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hibro315/smart-pm25-buddy-sub001/internal/exposure"
)

// Both implementations must satisfy the same semantics; every test runs
// against each.
func stores(t *testing.T) map[string]exposure.Store {
	t.Helper()

	sqlite, err := exposure.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close() })

	return map[string]exposure.Store{
		"memory": exposure.NewInMemoryStore(),
		"sqlite": sqlite,
	}
}

func record(day string, captured time.Time) *exposure.Record {
	return &exposure.Record{
		DayKey:     day,
		CapturedAt: captured,
		PM25:       42,
		AQI:        110,
		PHRI:       38,
		Location:   "home",
	}
}

func TestStore_AppendAndGet(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			captured := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
			id, err := store.Append(ctx, record("2025-06-01", captured))
			require.NoError(t, err)
			require.NotEmpty(t, id)

			got, err := store.Get(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, "2025-06-01", got.DayKey)
			assert.Equal(t, 42.0, got.PM25)
			assert.False(t, got.Synced)
		})
	}
}

func TestStore_SameDayAppendReplacesInPlace(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			morning := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
			id1, err := store.Append(ctx, record("2025-06-01", morning))
			require.NoError(t, err)

			// Confirm the morning record synced, then measure again.
			require.NoError(t, store.MarkSynced(ctx, id1, morning.Add(time.Minute)))

			noon := record("2025-06-01", morning.Add(4*time.Hour))
			noon.PM25 = 88
			id2, err := store.Append(ctx, noon)
			require.NoError(t, err)

			// Latest wins, original ID kept, synced flag reset.
			assert.Equal(t, id1, id2)

			all, err := store.ListAll(ctx)
			require.NoError(t, err)
			require.Len(t, all, 1)
			assert.Equal(t, 88.0, all[0].PM25)
			assert.False(t, all[0].Synced)
		})
	}
}

func TestStore_ListUnsyncedHonorsNextAttempt(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			due := record("2025-06-01", now.Add(-24*time.Hour))
			id1, err := store.Append(ctx, due)
			require.NoError(t, err)

			backedOff := record("2025-06-02", now.Add(-time.Hour))
			id2, err := store.Append(ctx, backedOff)
			require.NoError(t, err)
			require.NoError(t, store.MarkAttempt(ctx, id2, now.Add(10*time.Minute)))

			unsynced, err := store.ListUnsynced(ctx, now)
			require.NoError(t, err)
			require.Len(t, unsynced, 1)
			assert.Equal(t, id1, unsynced[0].ID)

			// Once the backoff expires the record is due again.
			unsynced, err = store.ListUnsynced(ctx, now.Add(15*time.Minute))
			require.NoError(t, err)
			assert.Len(t, unsynced, 2)
			assert.Equal(t, 1, unsynced[1].SyncAttempts)
		})
	}
}

func TestStore_PurgeSyncedRespectsGrace(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 3, 12, 0, 0, 0, time.UTC)

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			oldID, err := store.Append(ctx, record("2025-06-01", now.Add(-48*time.Hour)))
			require.NoError(t, err)
			require.NoError(t, store.MarkSynced(ctx, oldID, now.Add(-10*time.Minute)))

			freshID, err := store.Append(ctx, record("2025-06-02", now.Add(-24*time.Hour)))
			require.NoError(t, err)
			require.NoError(t, store.MarkSynced(ctx, freshID, now.Add(-30*time.Second)))

			_, err = store.Append(ctx, record("2025-06-03", now))
			require.NoError(t, err)

			// Five-minute grace: only the old confirmed record goes.
			purged, err := store.PurgeSynced(ctx, 5*time.Minute, now)
			require.NoError(t, err)
			assert.Equal(t, 1, purged)

			all, err := store.ListAll(ctx)
			require.NoError(t, err)
			assert.Len(t, all, 2)

			pending, err := store.CountUnsynced(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, pending)
		})
	}
}

func TestStore_ListRange(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			for i := 0; i < 4; i++ {
				day := base.AddDate(0, 0, i)
				_, err := store.Append(ctx, record(exposure.DayKey(day), day))
				require.NoError(t, err)
			}

			// [from, to) keeps June 2nd and 3rd; the 4th sits on the
			// exclusive bound.
			got, err := store.ListRange(ctx, base.AddDate(0, 0, 1), base.AddDate(0, 0, 3))
			require.NoError(t, err)
			require.Len(t, got, 2)
			assert.Equal(t, "2025-06-02", got[0].DayKey)
			assert.Equal(t, "2025-06-03", got[1].DayKey)
		})
	}
}

func TestStore_MarkSyncedUnknownID(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			err := store.MarkSynced(ctx, "no-such-id", time.Now())
			assert.ErrorIs(t, err, exposure.ErrRecordNotFound)
		})
	}
}

func TestInMemoryStore_ClosedFailsExplicitly(t *testing.T) {
	ctx := context.Background()
	store := exposure.NewInMemoryStore()
	require.NoError(t, store.Close())

	_, err := store.Append(ctx, record("2025-06-01", time.Now()))
	assert.ErrorIs(t, err, exposure.ErrStoreClosed)

	_, err = store.ListAll(ctx)
	assert.ErrorIs(t, err, exposure.ErrStoreClosed)
}

func TestDayKey(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Bangkok")
	require.NoError(t, err)

	// 23:30 UTC on June 1st is already June 2nd in Bangkok.
	utc := time.Date(2025, 6, 1, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, "2025-06-01", exposure.DayKey(utc))
	assert.Equal(t, "2025-06-02", exposure.DayKey(utc.In(loc)))
}
