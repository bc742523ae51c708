package exposure

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore is an in-memory Store implementation. This is intended for
// testing; devices use SQLiteStore.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record
	closed  bool
}

// NewInMemoryStore creates a new in-memory exposure store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[string]*Record)}
}

// Append persists a record with local day-upsert semantics.
func (s *InMemoryStore) Append(_ context.Context, rec *Record) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", ErrStoreClosed
	}

	for id, existing := range s.records {
		if existing.DayKey == rec.DayKey {
			cpy := *rec
			cpy.ID = id
			cpy.Synced = false
			cpy.SyncedAt = nil
			s.records[id] = &cpy
			rec.ID = id
			return id, nil
		}
	}

	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	cpy := *rec
	s.records[rec.ID] = &cpy
	return rec.ID, nil
}

// Get retrieves a record by ID.
func (s *InMemoryStore) Get(_ context.Context, id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}

	rec, ok := s.records[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	cpy := *rec
	return &cpy, nil
}

// ListUnsynced returns a snapshot of unsynced records due for an attempt.
func (s *InMemoryStore) ListUnsynced(_ context.Context, now time.Time) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}

	var out []Record
	for _, rec := range s.records {
		if !rec.Synced && !rec.NextAttemptAt.After(now) {
			out = append(out, *rec)
		}
	}
	sortByCapturedAt(out)
	return out, nil
}

// MarkSynced flips the synced flag.
func (s *InMemoryStore) MarkSynced(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}

	rec, ok := s.records[id]
	if !ok {
		return ErrRecordNotFound
	}
	rec.Synced = true
	syncedAt := at
	rec.SyncedAt = &syncedAt
	return nil
}

// MarkAttempt records a failed upsert attempt.
func (s *InMemoryStore) MarkAttempt(_ context.Context, id string, next time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}

	rec, ok := s.records[id]
	if !ok {
		return ErrRecordNotFound
	}
	rec.SyncAttempts++
	rec.NextAttemptAt = next
	return nil
}

// ListAll returns every record ordered by capture time.
func (s *InMemoryStore) ListAll(_ context.Context) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}

	out := make([]Record, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, *rec)
	}
	sortByCapturedAt(out)
	return out, nil
}

// ListRange returns records captured in [from, to).
func (s *InMemoryStore) ListRange(_ context.Context, from, to time.Time) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}

	var out []Record
	for _, rec := range s.records {
		if !rec.CapturedAt.Before(from) && rec.CapturedAt.Before(to) {
			out = append(out, *rec)
		}
	}
	sortByCapturedAt(out)
	return out, nil
}

// CountUnsynced returns the number of unsynced records.
func (s *InMemoryStore) CountUnsynced(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, ErrStoreClosed
	}

	n := 0
	for _, rec := range s.records {
		if !rec.Synced {
			n++
		}
	}
	return n, nil
}

// PurgeSynced deletes records confirmed synced before now-olderThan.
func (s *InMemoryStore) PurgeSynced(_ context.Context, olderThan time.Duration, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrStoreClosed
	}

	cutoff := now.Add(-olderThan)
	purged := 0
	for id, rec := range s.records {
		if rec.Synced && rec.SyncedAt != nil && rec.SyncedAt.Before(cutoff) {
			delete(s.records, id)
			purged++
		}
	}
	return purged, nil
}

// Close marks the store closed; subsequent operations fail.
func (s *InMemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func sortByCapturedAt(recs []Record) {
	sort.Slice(recs, func(i, j int) bool {
		return recs[i].CapturedAt.Before(recs[j].CapturedAt)
	})
}

// Ensure InMemoryStore implements Store.
var _ Store = (*InMemoryStore)(nil)
