package dataset

import (
	"errors"

	"github.com/jengzang/gobike-dashboard/internal/models"
)

// ErrNoDataset is returned when no table has been loaded yet
var ErrNoDataset = errors.New("dataset not loaded")

// Table is an immutable, in-memory trip table. Every derivation (Filter)
// returns a new Table; the receiver is never modified, so a Table can be
// shared between goroutines without locking.
type Table struct {
	rows        []models.TripRecord
	hasDuration bool
}

// NewTable copies rows into a new table. hasDuration records whether the
// source carried a duration column.
func NewTable(rows []models.TripRecord, hasDuration bool) *Table {
	owned := make([]models.TripRecord, len(rows))
	copy(owned, rows)
	return &Table{rows: owned, hasDuration: hasDuration}
}

// Len returns the number of rows
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rows)
}

// IsEmpty reports whether the table has no rows
func (t *Table) IsEmpty() bool {
	return t.Len() == 0
}

// HasDuration reports whether duration_mins is available
func (t *Table) HasDuration() bool {
	return t != nil && t.hasDuration
}

// Row returns a copy of the i-th row
func (t *Table) Row(i int) models.TripRecord {
	return t.rows[i]
}

// Each calls fn for every row in order; returning false stops the scan
func (t *Table) Each(fn func(r models.TripRecord) bool) {
	if t == nil {
		return
	}
	for _, r := range t.rows {
		if !fn(r) {
			return
		}
	}
}

// Filter returns a new table with the rows for which keep returns true
func (t *Table) Filter(keep func(r models.TripRecord) bool) *Table {
	out := &Table{hasDuration: t.HasDuration()}
	if t == nil {
		return out
	}
	out.rows = make([]models.TripRecord, 0, len(t.rows))
	for _, r := range t.rows {
		if keep(r) {
			out.rows = append(out.rows, r)
		}
	}
	return out
}

// Records returns a copy of all rows
func (t *Table) Records() []models.TripRecord {
	if t == nil {
		return nil
	}
	out := make([]models.TripRecord, len(t.rows))
	copy(out, t.rows)
	return out
}
