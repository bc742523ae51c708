package ingest

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL exposure repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Upsert inserts or replaces the (user, day) row.
func (r *PostgresRepository) Upsert(ctx context.Context, rec *RemoteRecord) error {
	query := `
		INSERT INTO exposure_records (
			user_id, day_key, captured_at,
			pm25, pm10, o3, no2, co, so2, aqi,
			phri, outdoor_minutes, symptoms, wearing_mask, location,
			updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, now())
		ON CONFLICT (user_id, day_key) DO UPDATE SET
			captured_at = EXCLUDED.captured_at,
			pm25 = EXCLUDED.pm25,
			pm10 = EXCLUDED.pm10,
			o3 = EXCLUDED.o3,
			no2 = EXCLUDED.no2,
			co = EXCLUDED.co,
			so2 = EXCLUDED.so2,
			aqi = EXCLUDED.aqi,
			phri = EXCLUDED.phri,
			outdoor_minutes = EXCLUDED.outdoor_minutes,
			symptoms = EXCLUDED.symptoms,
			wearing_mask = EXCLUDED.wearing_mask,
			location = EXCLUDED.location,
			updated_at = now()
	`

	_, err := r.pool.Exec(ctx, query,
		rec.UserID, rec.DayKey, rec.CapturedAt,
		rec.PM25, rec.PM10, rec.O3, rec.NO2, rec.CO, rec.SO2, rec.AQI,
		rec.PHRI, rec.OutdoorMinutes, rec.Symptoms, rec.WearingMask, rec.Location,
	)
	return err
}

// Get retrieves one record.
func (r *PostgresRepository) Get(ctx context.Context, userID, dayKey string) (*RemoteRecord, error) {
	query := `
		SELECT
			user_id, day_key, captured_at,
			pm25, pm10, o3, no2, co, so2, aqi,
			phri, outdoor_minutes, symptoms, wearing_mask, location,
			updated_at
		FROM exposure_records
		WHERE user_id = $1 AND day_key = $2
	`

	var rec RemoteRecord
	err := r.pool.QueryRow(ctx, query, userID, dayKey).Scan(
		&rec.UserID, &rec.DayKey, &rec.CapturedAt,
		&rec.PM25, &rec.PM10, &rec.O3, &rec.NO2, &rec.CO, &rec.SO2, &rec.AQI,
		&rec.PHRI, &rec.OutdoorMinutes, &rec.Symptoms, &rec.WearingMask, &rec.Location,
		&rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// List retrieves a user's records in the inclusive day range.
func (r *PostgresRepository) List(ctx context.Context, userID, from, to string) ([]RemoteRecord, error) {
	query := `
		SELECT
			user_id, day_key, captured_at,
			pm25, pm10, o3, no2, co, so2, aqi,
			phri, outdoor_minutes, symptoms, wearing_mask, location,
			updated_at
		FROM exposure_records
		WHERE user_id = $1
			AND ($2 = '' OR day_key >= $2)
			AND ($3 = '' OR day_key <= $3)
		ORDER BY day_key ASC
	`

	rows, err := r.pool.Query(ctx, query, userID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []RemoteRecord
	for rows.Next() {
		var rec RemoteRecord
		err := rows.Scan(
			&rec.UserID, &rec.DayKey, &rec.CapturedAt,
			&rec.PM25, &rec.PM10, &rec.O3, &rec.NO2, &rec.CO, &rec.SO2, &rec.AQI,
			&rec.PHRI, &rec.OutdoorMinutes, &rec.Symptoms, &rec.WearingMask, &rec.Location,
			&rec.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

// Ensure PostgresRepository implements Repository.
var _ Repository = (*PostgresRepository)(nil)
