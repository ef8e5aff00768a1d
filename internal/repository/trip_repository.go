package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jengzang/gobike-dashboard/internal/database"
	"github.com/jengzang/gobike-dashboard/internal/dataset"
	"github.com/jengzang/gobike-dashboard/internal/models"
)

// TripRepository stores the cleaned trip table as a SQLite snapshot
type TripRepository struct {
	db *sql.DB
}

// NewTripRepository creates a new trip repository
func NewTripRepository(db *sql.DB) *TripRepository {
	return &TripRepository{db: db}
}

const tripColumns = `start_time, end_time, duration_sec, duration_mins,
	start_station_id, start_station_name, start_lat, start_lon,
	end_station_id, end_station_name, end_lat, end_lon,
	bike_id, user_type, member_gender, member_birth_year, age, age_group,
	bike_share_for_all, distance_km`

// SaveTrips replaces the stored snapshot with trips in one transaction
func (r *TripRepository) SaveTrips(ctx context.Context, trips []models.TripRecord, hasDuration bool, sourcePath string) error {
	return database.Transaction(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM trips"); err != nil {
			return fmt.Errorf("failed to clear trips: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `INSERT INTO trips (`+tripColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare insert: %w", err)
		}
		defer stmt.Close()

		for i := range trips {
			t := &trips[i]
			var endTime sql.NullString
			if !t.EndTime.IsZero() {
				endTime = sql.NullString{String: t.EndTime.Format(dataset.TimestampLayout), Valid: true}
			}
			durationMins := sql.NullFloat64{Float64: t.DurationMins, Valid: !t.DurationMissing}
			_, err := stmt.ExecContext(ctx,
				t.StartTime.Format(dataset.TimestampLayout),
				endTime,
				t.DurationSec,
				durationMins,
				t.StartStationID,
				t.StartStationName,
				t.StartLat,
				t.StartLon,
				t.EndStationID,
				t.EndStationName,
				t.EndLat,
				t.EndLon,
				t.BikeID,
				t.UserType,
				t.Gender,
				t.BirthYear,
				t.Age,
				t.AgeGroup,
				t.BikeShareForAll,
				t.DistanceKm,
			)
			if err != nil {
				return fmt.Errorf("failed to insert trip %d: %w", i, err)
			}
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO snapshots (id, rows, has_duration, source_path, created_at)
			VALUES (1, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				rows = excluded.rows,
				has_duration = excluded.has_duration,
				source_path = excluded.source_path,
				created_at = excluded.created_at
		`, len(trips), hasDuration, sourcePath, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("failed to record snapshot: %w", err)
		}
		return nil
	})
}

// LoadTrips reads the stored snapshot. It implements dataset.RecordSource.
func (r *TripRepository) LoadTrips(ctx context.Context) ([]models.TripRecord, bool, error) {
	var hasDuration bool
	err := r.db.QueryRowContext(ctx, "SELECT has_duration FROM snapshots WHERE id = 1").Scan(&hasDuration)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("%w: snapshot database is empty", dataset.ErrNoDataset)
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read snapshot: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, "SELECT "+tripColumns+" FROM trips ORDER BY id")
	if err != nil {
		return nil, false, fmt.Errorf("failed to query trips: %w", err)
	}
	defer rows.Close()

	var trips []models.TripRecord
	for rows.Next() {
		var (
			t            models.TripRecord
			startTime    string
			endTime      sql.NullString
			durationMins sql.NullFloat64
		)
		err := rows.Scan(
			&startTime,
			&endTime,
			&t.DurationSec,
			&durationMins,
			&t.StartStationID,
			&t.StartStationName,
			&t.StartLat,
			&t.StartLon,
			&t.EndStationID,
			&t.EndStationName,
			&t.EndLat,
			&t.EndLon,
			&t.BikeID,
			&t.UserType,
			&t.Gender,
			&t.BirthYear,
			&t.Age,
			&t.AgeGroup,
			&t.BikeShareForAll,
			&t.DistanceKm,
		)
		if err != nil {
			return nil, false, fmt.Errorf("failed to scan trip: %w", err)
		}

		t.DurationMins = durationMins.Float64
		t.DurationMissing = !durationMins.Valid
		// unparsable start times stay zero and are quarantined by dataset.LoadFromSource
		t.StartTime, _ = dataset.ParseTimestamp(startTime)
		if endTime.Valid {
			t.EndTime, _ = dataset.ParseTimestamp(endTime.String)
		}
		trips = append(trips, t)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("failed to iterate trips: %w", err)
	}

	return trips, hasDuration, nil
}

// CountTrips returns the number of stored trips
func (r *TripRepository) CountTrips(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM trips").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count trips: %w", err)
	}
	return n, nil
}
