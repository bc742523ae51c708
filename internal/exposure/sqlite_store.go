package exposure

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SQLiteStore is the on-device Store implementation backed by an embedded
// SQLite database. The handle is opened once at process start and passed
// down; there is no ambient global.
type SQLiteStore struct {
	db *gorm.DB
}

// OpenSQLite opens (and migrates) the exposure log at the given path. Use
// ":memory:" for an ephemeral store in tests.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Discard,
	})
	if err != nil {
		return nil, fmt.Errorf("open exposure store: %w", err)
	}
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("migrate exposure store: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Append persists a record, replacing any existing row for the same DayKey
// while keeping that row's ID.
func (s *SQLiteStore) Append(ctx context.Context, rec *Record) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}

	var id string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing Record
		err := tx.Where("day_key = ?", rec.DayKey).First(&existing).Error
		switch {
		case err == nil:
			// Same-day re-measurement: latest wins, original ID kept,
			// synced reset so the refreshed values are re-uploaded.
			rec.ID = existing.ID
			rec.Synced = false
			rec.SyncedAt = nil
			id = existing.ID
			return tx.Model(&Record{}).Where("id = ?", existing.ID).
				Select("*").Omit("id").Updates(rec).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			id = rec.ID
			return tx.Create(rec).Error
		default:
			return err
		}
	})
	if err != nil {
		return "", fmt.Errorf("append exposure record: %w", err)
	}
	return id, nil
}

// Get retrieves a record by ID.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Record, error) {
	var rec Record
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// ListUnsynced returns unsynced records due for an upsert attempt.
func (s *SQLiteStore) ListUnsynced(ctx context.Context, now time.Time) ([]Record, error) {
	var recs []Record
	err := s.db.WithContext(ctx).
		Where("synced = ? AND next_attempt_at <= ?", false, now).
		Order("captured_at asc").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("list unsynced records: %w", err)
	}
	return recs, nil
}

// MarkSynced flips the synced flag for one record.
func (s *SQLiteStore) MarkSynced(ctx context.Context, id string, at time.Time) error {
	res := s.db.WithContext(ctx).Model(&Record{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"synced":    true,
			"synced_at": at,
		})
	if res.Error != nil {
		return fmt.Errorf("mark record synced: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// MarkAttempt records a failed upsert attempt.
func (s *SQLiteStore) MarkAttempt(ctx context.Context, id string, next time.Time) error {
	res := s.db.WithContext(ctx).Model(&Record{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"sync_attempts":   gorm.Expr("sync_attempts + 1"),
			"next_attempt_at": next,
		})
	if res.Error != nil {
		return fmt.Errorf("mark sync attempt: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// ListAll returns every record ordered by capture time.
func (s *SQLiteStore) ListAll(ctx context.Context) ([]Record, error) {
	var recs []Record
	err := s.db.WithContext(ctx).Order("captured_at asc").Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("list exposure records: %w", err)
	}
	return recs, nil
}

// ListRange returns records captured in [from, to).
func (s *SQLiteStore) ListRange(ctx context.Context, from, to time.Time) ([]Record, error) {
	var recs []Record
	err := s.db.WithContext(ctx).
		Where("captured_at >= ? AND captured_at < ?", from, to).
		Order("captured_at asc").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("list exposure records in range: %w", err)
	}
	return recs, nil
}

// CountUnsynced returns the number of records still pending confirmation.
func (s *SQLiteStore) CountUnsynced(ctx context.Context) (int, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&Record{}).Where("synced = ?", false).Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count unsynced records: %w", err)
	}
	return int(n), nil
}

// PurgeSynced deletes records confirmed synced before now-olderThan.
func (s *SQLiteStore) PurgeSynced(ctx context.Context, olderThan time.Duration, now time.Time) (int, error) {
	cutoff := now.Add(-olderThan)
	res := s.db.WithContext(ctx).
		Where("synced = ? AND synced_at IS NOT NULL AND synced_at < ?", true, cutoff).
		Delete(&Record{})
	if res.Error != nil {
		return 0, fmt.Errorf("purge synced records: %w", res.Error)
	}
	return int(res.RowsAffected), nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ensure SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)
