// Package preprocess implements the offline cleaning job that turns a raw
// trip export into the cleaned table served by the dashboard.
package preprocess

import (
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"

	"github.com/jengzang/gobike-dashboard/internal/dataset"
	"github.com/jengzang/gobike-dashboard/internal/models"
	"github.com/jengzang/gobike-dashboard/internal/spatial"
	"github.com/jengzang/gobike-dashboard/internal/stats"
)

// DefaultReferenceYear is the year ages are computed against
const DefaultReferenceYear = 2026

// Drop reasons recorded in a Report
const (
	ReasonMissingStation    = "missing_station"
	ReasonDuplicate         = "duplicate"
	ReasonBadTimestamp      = "bad_timestamp"
	ReasonBadNumber         = "bad_number"
	ReasonBadCategory       = "bad_category"
	ReasonAgeOutOfRange     = "age_out_of_range"
	ReasonZeroCoordinate    = "zero_coordinate"
	ReasonCoordinateOutlier = "coordinate_outlier"
)

// Options controls the cleaning rules
type Options struct {
	ReferenceYear int     // age = ReferenceYear - birth year
	FenceLow      float64 // lower quantile of the coordinate fence
	FenceHigh     float64 // upper quantile of the coordinate fence
	FenceK        float64 // spread multiplier of the coordinate fence
}

// DefaultOptions returns the standard cleaning parameters
func DefaultOptions() Options {
	return Options{
		ReferenceYear: DefaultReferenceYear,
		FenceLow:      0.05,
		FenceHigh:     0.95,
		FenceK:        1.5,
	}
}

// Report summarizes a cleaning run
type Report struct {
	InputRows       int                    `json:"input_rows"`
	OutputRows      int                    `json:"output_rows"`
	Dropped         map[string]int         `json:"dropped"`
	GenderFilled    int                    `json:"gender_filled"`
	GenderMode      string                 `json:"gender_mode"`
	BirthYearFilled int                    `json:"birth_year_filled"`
	BirthYearMedian int                    `json:"birth_year_median"`
	Fences          map[string]stats.Fence `json:"fences"`
}

func (r *Report) drop(reason string, n int) {
	if n > 0 {
		r.Dropped[reason] += n
	}
}

// DroppedTotal returns the number of input rows removed by all rules
func (r *Report) DroppedTotal() int {
	total := 0
	for _, n := range r.Dropped {
		total += n
	}
	return total
}

// String renders the report on one line for logging
func (r *Report) String() string {
	reasons := make([]string, 0, len(r.Dropped))
	for k := range r.Dropped {
		reasons = append(reasons, k)
	}
	sort.Strings(reasons)
	parts := make([]string, len(reasons))
	for i, k := range reasons {
		parts[i] = fmt.Sprintf("%s=%d", k, r.Dropped[k])
	}
	return fmt.Sprintf("input=%d output=%d dropped[%s]", r.InputRows, r.OutputRows, strings.Join(parts, " "))
}

// CleanFile cleans the raw export at path
func CleanFile(path string, opts Options) ([]models.TripRecord, *Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open raw export: %w", err)
	}
	defer f.Close()
	return CleanCSV(f, opts)
}

// CleanCSV reads a raw export and cleans it
func CleanCSV(r io.Reader, opts Options) ([]models.TripRecord, *Report, error) {
	df, err := dataset.ReadFrame(r)
	if err != nil {
		return nil, nil, err
	}
	return Clean(df, opts)
}

// Clean applies the cleaning rules in order:
//  1. drop rows without start/end station id or name
//  2. fill missing gender with the mode and birth year with the median
//  3. drop exact duplicates
//  4. parse start_time, derive duration, age and age group
//  5. drop zero and out-of-fence coordinates, field by field
//  6. derive trip distance
func Clean(df dataframe.DataFrame, opts Options) ([]models.TripRecord, *Report, error) {
	raw := newRawTable(df)
	for _, col := range RawRequiredColumns {
		if !raw.has(col) {
			return nil, nil, fmt.Errorf("%w: %s", dataset.ErrMissingColumn, col)
		}
	}
	defaults := DefaultOptions()
	if opts.ReferenceYear == 0 {
		opts.ReferenceYear = defaults.ReferenceYear
	}
	if opts.FenceHigh <= opts.FenceLow {
		opts.FenceLow, opts.FenceHigh, opts.FenceK = defaults.FenceLow, defaults.FenceHigh, defaults.FenceK
	}

	report := &Report{
		InputRows: len(raw.rows),
		Dropped:   make(map[string]int),
		Fences:    make(map[string]stats.Fence),
	}

	rows := dropMissingStations(raw, raw.rows, report)
	fillGender(raw, rows, report)
	fillBirthYear(raw, rows, report)
	rows = dropDuplicates(rows, report)

	trips := make([]models.TripRecord, 0, len(rows))
	for _, row := range rows {
		rec, reason, err := buildRecord(raw, row, opts.ReferenceYear)
		if err != nil {
			report.drop(reason, 1)
			continue
		}
		trips = append(trips, rec)
	}

	trips = fenceCoordinates(trips, opts, report)
	for i := range trips {
		t := &trips[i]
		t.DistanceKm = spatial.TripDistanceKm(t.StartLat, t.StartLon, t.EndLat, t.EndLon)
	}

	report.OutputRows = len(trips)
	log.Printf("[Preprocess] %s", report)
	return trips, report, nil
}

func dropMissingStations(raw *rawTable, rows [][]string, report *Report) [][]string {
	cols := []string{
		dataset.ColStartStationName, dataset.ColStartStationID,
		dataset.ColEndStationID, dataset.ColEndStationName,
	}
	kept := rows[:0:0]
	for _, row := range rows {
		ok := true
		for _, col := range cols {
			if raw.get(row, col) == "" {
				ok = false
				break
			}
		}
		if ok {
			kept = append(kept, row)
		}
	}
	report.drop(ReasonMissingStation, len(rows)-len(kept))
	return kept
}

func fillGender(raw *rawTable, rows [][]string, report *Report) {
	present := make([]string, 0, len(rows))
	for _, row := range rows {
		if g := raw.get(row, dataset.ColGender); g != "" {
			present = append(present, g)
		}
	}
	mode := stats.Mode(present)
	if mode == "" {
		mode = models.GenderOther
	}
	report.GenderMode = mode

	for _, row := range rows {
		if raw.get(row, dataset.ColGender) == "" {
			raw.set(row, dataset.ColGender, mode)
			report.GenderFilled++
		}
	}
}

func fillBirthYear(raw *rawTable, rows [][]string, report *Report) {
	years := make([]float64, 0, len(rows))
	for _, row := range rows {
		if y, err := strconv.ParseFloat(raw.get(row, dataset.ColBirthYear), 64); err == nil {
			years = append(years, y)
		}
	}
	if len(years) == 0 {
		return
	}
	median := int(math.Round(stats.Median(years)))
	report.BirthYearMedian = median

	fill := strconv.Itoa(median)
	for _, row := range rows {
		if raw.get(row, dataset.ColBirthYear) == "" {
			raw.set(row, dataset.ColBirthYear, fill)
			report.BirthYearFilled++
		}
	}
}

func dropDuplicates(rows [][]string, report *Report) [][]string {
	seen := make(map[string]struct{}, len(rows))
	kept := rows[:0:0]
	for _, row := range rows {
		key := rowKey(row)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, row)
	}
	report.drop(ReasonDuplicate, len(rows)-len(kept))
	return kept
}

// buildRecord converts a filled raw row into a typed record, or returns the
// reason it must be dropped
func buildRecord(raw *rawTable, row []string, referenceYear int) (models.TripRecord, string, error) {
	var rec models.TripRecord

	start, err := dataset.ParseTimestamp(raw.get(row, dataset.ColStartTime))
	if err != nil {
		return rec, ReasonBadTimestamp, err
	}
	rec.StartTime = start
	if end, err := dataset.ParseTimestamp(raw.get(row, dataset.ColEndTime)); err == nil {
		rec.EndTime = end
	}

	numbers := []struct {
		col string
		dst *float64
	}{
		{dataset.ColDurationSec, &rec.DurationSec},
		{dataset.ColStartLat, &rec.StartLat},
		{dataset.ColStartLon, &rec.StartLon},
		{dataset.ColEndLat, &rec.EndLat},
		{dataset.ColEndLon, &rec.EndLon},
	}
	for _, n := range numbers {
		v, err := strconv.ParseFloat(raw.get(row, n.col), 64)
		if err != nil {
			return rec, ReasonBadNumber, fmt.Errorf("%s: %w", n.col, err)
		}
		*n.dst = v
	}
	rec.DurationMins = rec.DurationSec / 60

	birth, err := strconv.ParseFloat(raw.get(row, dataset.ColBirthYear), 64)
	if err != nil {
		return rec, ReasonBadNumber, fmt.Errorf("%s: %w", dataset.ColBirthYear, err)
	}
	rec.BirthYear = int(birth)
	rec.Age = referenceYear - rec.BirthYear
	if rec.Age < models.MinRiderAge || rec.Age > models.MaxRiderAge {
		return rec, ReasonAgeOutOfRange, fmt.Errorf("age %d outside [%d, %d]", rec.Age, models.MinRiderAge, models.MaxRiderAge)
	}
	rec.AgeGroup = models.AgeGroupFor(rec.Age)

	rec.UserType = raw.get(row, dataset.ColUserType)
	rec.Gender = raw.get(row, dataset.ColGender)
	if !models.IsUserType(rec.UserType) || !models.IsGender(rec.Gender) {
		return rec, ReasonBadCategory, fmt.Errorf("unknown user type %q or gender %q", rec.UserType, rec.Gender)
	}

	rec.StartStationID = normalizeID(raw.get(row, dataset.ColStartStationID))
	rec.StartStationName = raw.get(row, dataset.ColStartStationName)
	rec.EndStationID = normalizeID(raw.get(row, dataset.ColEndStationID))
	rec.EndStationName = raw.get(row, dataset.ColEndStationName)
	rec.BikeID = normalizeID(raw.get(row, dataset.ColBikeID))
	rec.BikeShareForAll = strings.EqualFold(raw.get(row, dataset.ColBikeShareForAll), "yes")

	rec.DeriveTimeFields()
	return rec, "", nil
}

// normalizeID turns float-encoded ids such as "21.0" into "21"
func normalizeID(id string) string {
	f, err := strconv.ParseFloat(id, 64)
	if err != nil || f != math.Trunc(f) {
		return id
	}
	return strconv.FormatInt(int64(f), 10)
}

type coordinateField struct {
	name string
	get  func(t *models.TripRecord) float64
}

var coordinateFields = []coordinateField{
	{dataset.ColStartLat, func(t *models.TripRecord) float64 { return t.StartLat }},
	{dataset.ColEndLat, func(t *models.TripRecord) float64 { return t.EndLat }},
	{dataset.ColStartLon, func(t *models.TripRecord) float64 { return t.StartLon }},
	{dataset.ColEndLon, func(t *models.TripRecord) float64 { return t.EndLon }},
}

// fenceCoordinates drops zero coordinates and then values outside the
// quantile fence, one field at a time. Each fence is computed on the rows
// that survived the previous fields.
func fenceCoordinates(trips []models.TripRecord, opts Options, report *Report) []models.TripRecord {
	for _, field := range coordinateFields {
		nonZero := trips[:0:0]
		for i := range trips {
			if field.get(&trips[i]) != 0 {
				nonZero = append(nonZero, trips[i])
			}
		}
		report.drop(ReasonZeroCoordinate, len(trips)-len(nonZero))

		values := make([]float64, len(nonZero))
		for i := range nonZero {
			values[i] = field.get(&nonZero[i])
		}
		fence := stats.QuantileFence(values, opts.FenceLow, opts.FenceHigh, opts.FenceK)
		report.Fences[field.name] = fence

		kept := nonZero[:0:0]
		for i := range nonZero {
			if fence.Contains(field.get(&nonZero[i])) {
				kept = append(kept, nonZero[i])
			}
		}
		report.drop(ReasonCoordinateOutlier, len(nonZero)-len(kept))
		trips = kept
	}
	return trips
}
