package dataset

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jengzang/gobike-dashboard/internal/models"
)

// RecordSource supplies already-typed trip records, e.g. a SQLite snapshot
type RecordSource interface {
	LoadTrips(ctx context.Context) ([]models.TripRecord, bool, error)
}

// LoadFromSource builds a Table from a RecordSource. Time fields are derived
// here so every table carries start_hour/day_of_week no matter where it came from.
func LoadFromSource(ctx context.Context, src RecordSource, name string) (*Table, *LoadReport, error) {
	records, hasDuration, err := src.LoadTrips(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load trips from %s: %w", name, err)
	}

	report := &LoadReport{
		Source:      name,
		HasDuration: hasDuration,
		LoadedAt:    time.Now(),
	}

	rows := make([]models.TripRecord, 0, len(records))
	for i, rec := range records {
		if rec.StartTime.IsZero() {
			report.quarantine(i+1, "bad_timestamp", fmt.Errorf("missing start_time"))
			continue
		}
		if !models.IsUserType(rec.UserType) {
			report.quarantine(i+1, "bad_user_type", fmt.Errorf("unknown user type %q", rec.UserType))
			continue
		}
		if !models.IsGender(rec.Gender) {
			report.quarantine(i+1, "bad_gender", fmt.Errorf("unknown gender %q", rec.Gender))
			continue
		}
		rec.DeriveTimeFields()
		rows = append(rows, rec)
	}
	report.Rows = len(rows)

	log.Printf("[Dataset] Loaded %d rows from %s (%d quarantined)", report.Rows, name, report.Quarantined)
	return NewTable(rows, hasDuration), report, nil
}
