package ingest

import (
	"context"
	"sort"
	"sync"
	"time"
)

// InMemoryRepository is an in-memory implementation of Repository for tests.
type InMemoryRepository struct {
	mu      sync.RWMutex
	records map[string]RemoteRecord // keyed by userID + "|" + dayKey
}

// NewInMemoryRepository creates a new in-memory exposure repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{records: make(map[string]RemoteRecord)}
}

func (r *InMemoryRepository) key(userID, dayKey string) string {
	return userID + "|" + dayKey
}

// Upsert inserts or replaces the (user, day) row.
func (r *InMemoryRepository) Upsert(_ context.Context, rec *RemoteRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *rec
	stored.UpdatedAt = time.Now().UTC()
	r.records[r.key(rec.UserID, rec.DayKey)] = stored
	return nil
}

// Get retrieves one record.
func (r *InMemoryRepository) Get(_ context.Context, userID, dayKey string) (*RemoteRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[r.key(userID, dayKey)]
	if !ok {
		return nil, ErrRecordNotFound
	}
	out := rec
	return &out, nil
}

// List retrieves a user's records in the inclusive day range.
func (r *InMemoryRepository) List(_ context.Context, userID, from, to string) ([]RemoteRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var records []RemoteRecord
	for _, rec := range r.records {
		if rec.UserID != userID {
			continue
		}
		if from != "" && rec.DayKey < from {
			continue
		}
		if to != "" && rec.DayKey > to {
			continue
		}
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].DayKey < records[j].DayKey
	})

	return records, nil
}

// Ensure InMemoryRepository implements Repository.
var _ Repository = (*InMemoryRepository)(nil)
