// Package exposure provides the durable local log of exposure records: one
// scored measurement per calendar day, kept on device until it has been
// confirmed synced to the remote backend and aged past a grace window.
package exposure

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Store errors.
var (
	// ErrRecordNotFound is returned when no record matches the given ID.
	ErrRecordNotFound = errors.New("exposure record not found")

	// ErrStoreClosed is returned when the store has been closed.
	ErrStoreClosed = errors.New("exposure store is closed")
)

// StringList stores a slice of strings as a JSON column. SQLite has no
// native array type.
type StringList []string

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (l *StringList) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case string:
		return json.Unmarshal([]byte(v), l)
	case []byte:
		return json.Unmarshal(v, l)
	default:
		return fmt.Errorf("cannot scan %T into StringList", src)
	}
}

// Record is one persisted exposure measurement: the flattened reading, the
// computed PHRI and the behavioral context for a single day. Records are
// appended by the monitor loop and only ever mutated by the sync
// coordinator (synced flag, attempt bookkeeping).
type Record struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	DayKey     string    `gorm:"uniqueIndex;size:10" json:"dayKey"`
	CapturedAt time.Time `gorm:"index" json:"capturedAt"`

	PM25 float64 `json:"pm25"`
	PM10 float64 `json:"pm10"`
	O3   float64 `json:"o3"`
	NO2  float64 `json:"no2"`
	CO   float64 `json:"co"`
	SO2  float64 `json:"so2"`
	AQI  int     `json:"aqi"`

	PHRI           float64    `json:"phri"`
	OutdoorMinutes int        `json:"outdoorMinutes"`
	Symptoms       StringList `gorm:"type:text" json:"symptoms"`
	WearingMask    bool       `json:"wearingMask"`
	Location       string     `json:"location"`

	Synced   bool       `gorm:"index" json:"synced"`
	SyncedAt *time.Time `json:"syncedAt,omitempty"`

	// Per-record retry bookkeeping for the sync coordinator: how many
	// upsert attempts have failed and when the next one may run.
	SyncAttempts  int       `json:"syncAttempts"`
	NextAttemptAt time.Time `json:"nextAttemptAt"`
}

// TableName keeps the on-device schema name stable across gorm defaults.
func (Record) TableName() string { return "health_logs" }

// DayKey formats a timestamp as the calendar-day grouping key used for
// upsert deduplication. The caller chooses the zone; the monitor loop
// passes device-local time.
func DayKey(t time.Time) string {
	return t.Format("2006-01-02")
}
