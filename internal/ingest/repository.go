// Package ingest is the remote side of exposure sync: an idempotent upsert
// keyed on (user, day) over PostgreSQL, plus per-user listing for rollups.
// The at-most-one-record-per-day invariant is enforced here by a unique
// constraint, not by client goodwill.
package ingest

import (
	"context"
	"errors"
	"time"
)

// ErrRecordNotFound is returned when no remote record matches the query.
var ErrRecordNotFound = errors.New("remote exposure record not found")

// RemoteRecord is the authoritative per-day exposure row on the backend.
type RemoteRecord struct {
	UserID     string    `json:"userId"`
	DayKey     string    `json:"dayKey"`
	CapturedAt time.Time `json:"capturedAt"`

	PM25 float64 `json:"pm25"`
	PM10 float64 `json:"pm10"`
	O3   float64 `json:"o3"`
	NO2  float64 `json:"no2"`
	CO   float64 `json:"co"`
	SO2  float64 `json:"so2"`
	AQI  int     `json:"aqi"`

	PHRI           float64  `json:"phri"`
	OutdoorMinutes int      `json:"outdoorMinutes"`
	Symptoms       []string `json:"symptoms"`
	WearingMask    bool     `json:"wearingMask"`
	Location       string   `json:"location"`

	UpdatedAt time.Time `json:"updatedAt"`
}

// Repository persists remote exposure records.
type Repository interface {
	// Upsert inserts the record or, when a row for (user, day) already
	// exists, replaces its fields.
	Upsert(ctx context.Context, rec *RemoteRecord) error

	// Get retrieves one record.
	Get(ctx context.Context, userID, dayKey string) (*RemoteRecord, error)

	// List retrieves a user's records with dayKey in [from, to], ordered
	// by day. Empty bounds mean unbounded.
	List(ctx context.Context, userID, from, to string) ([]RemoteRecord, error)
}
