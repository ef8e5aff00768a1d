package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/jengzang/gobike-dashboard/internal/models"
)

// ErrMissingColumn is returned when a required column is absent
var ErrMissingColumn = errors.New("missing required column")

// maxQuarantineSamples bounds the row errors kept in a LoadReport
const maxQuarantineSamples = 20

// NaNValues are the cell values treated as missing when reading trip CSVs
var NaNValues = []string{"", "NA", "NaN", "nan", "null", "<nil>"}

// LoadReport describes the outcome of a load
type LoadReport struct {
	Source      string         `json:"source"`
	Path        string         `json:"path"`
	Rows        int            `json:"rows"`
	Quarantined int            `json:"quarantined"`
	Reasons     map[string]int `json:"reasons,omitempty"`
	Samples     []string       `json:"samples,omitempty"`
	HasDuration bool           `json:"has_duration"`
	LoadedAt    time.Time      `json:"loaded_at"`
}

func (r *LoadReport) quarantine(row int, reason string, err error) {
	r.Quarantined++
	if r.Reasons == nil {
		r.Reasons = make(map[string]int)
	}
	r.Reasons[reason]++
	if len(r.Samples) < maxQuarantineSamples {
		r.Samples = append(r.Samples, fmt.Sprintf("row %d: %v", row, err))
	}
}

// ReadFrame reads a CSV into a string-typed DataFrame with NaNValues marked missing.
// A header without data rows yields a zero-row frame that keeps the column names.
func ReadFrame(r io.Reader) (dataframe.DataFrame, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	records, err := reader.ReadAll()
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("failed to parse csv: %w", err)
	}
	if len(records) == 0 {
		return dataframe.DataFrame{}, fmt.Errorf("failed to parse csv: no header row")
	}
	if len(records) == 1 {
		return emptyFrame(records[0])
	}

	df := dataframe.LoadRecords(records,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(NaNValues),
	)
	if df.Err != nil {
		return df, fmt.Errorf("failed to parse csv: %w", df.Err)
	}
	return df, nil
}

func emptyFrame(header []string) (dataframe.DataFrame, error) {
	cols := make([]series.Series, 0, len(header))
	for _, name := range header {
		cols = append(cols, series.New([]string{}, series.String, name))
	}
	df := dataframe.New(cols...)
	if df.Err != nil {
		return df, fmt.Errorf("failed to parse csv: %w", df.Err)
	}
	return df, nil
}

// LoadCSVFile loads a cleaned trip CSV from disk
func LoadCSVFile(path string) (*Table, *LoadReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()

	table, report, err := LoadCSV(f)
	if err != nil {
		return nil, nil, err
	}
	report.Path = path
	log.Printf("[Dataset] Loaded %d rows from %s (%d quarantined)", report.Rows, path, report.Quarantined)
	return table, report, nil
}

// LoadCSV parses cleaned trip records into a typed Table. Rows that violate the
// schema are quarantined and counted in the report instead of failing the load.
func LoadCSV(r io.Reader) (*Table, *LoadReport, error) {
	df, err := ReadFrame(r)
	if err != nil {
		return nil, nil, err
	}

	cols := newFrameColumns(df)
	for _, name := range RequiredColumns {
		if !cols.has(name) {
			return nil, nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
	}

	report := &LoadReport{
		Source:      "csv",
		HasDuration: cols.has(ColDurationMins) || cols.has(ColDurationSec),
		LoadedAt:    time.Now(),
	}

	rows := make([]models.TripRecord, 0, df.Nrow())
	for i := 0; i < df.Nrow(); i++ {
		rec, reason, err := cols.record(i)
		if err != nil {
			report.quarantine(i+2, reason, err) // +1 header, +1 one-based
			continue
		}
		rows = append(rows, rec)
	}
	report.Rows = len(rows)

	return NewTable(rows, report.HasDuration), report, nil
}

// frameColumns gives typed, by-name access to a string DataFrame
type frameColumns struct {
	cols map[string]series.Series
}

func newFrameColumns(df dataframe.DataFrame) *frameColumns {
	fc := &frameColumns{cols: make(map[string]series.Series)}
	for _, name := range df.Names() {
		fc.cols[strings.TrimSpace(name)] = df.Col(name)
	}
	return fc
}

func (fc *frameColumns) has(name string) bool {
	_, ok := fc.cols[name]
	return ok
}

// str returns the trimmed cell value and whether it is present
func (fc *frameColumns) str(name string, i int) (string, bool) {
	s, ok := fc.cols[name]
	if !ok {
		return "", false
	}
	e := s.Elem(i)
	if e.IsNA() {
		return "", false
	}
	v := strings.TrimSpace(e.String())
	return v, v != ""
}

func (fc *frameColumns) float(name string, i int) (float64, bool, error) {
	v, ok := fc.str(name, i)
	if !ok {
		return 0, false, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", name, err)
	}
	return f, true, nil
}

func (fc *frameColumns) int(name string, i int) (int, bool, error) {
	f, ok, err := fc.float(name, i)
	if err != nil || !ok {
		return 0, ok, err
	}
	return int(f), true, nil
}

// record converts row i into a TripRecord, returning a reason tag on failure
func (fc *frameColumns) record(i int) (models.TripRecord, string, error) {
	var rec models.TripRecord

	startStr, _ := fc.str(ColStartTime, i)
	start, err := ParseTimestamp(startStr)
	if err != nil {
		return rec, "bad_timestamp", err
	}
	rec.StartTime = start
	if endStr, ok := fc.str(ColEndTime, i); ok {
		if end, err := ParseTimestamp(endStr); err == nil {
			rec.EndTime = end
		}
	}

	rec.StartStationID, _ = fc.str(ColStartStationID, i)
	rec.StartStationName, _ = fc.str(ColStartStationName, i)
	if rec.StartStationID == "" || rec.StartStationName == "" {
		return rec, "missing_station", fmt.Errorf("start station id/name missing")
	}
	rec.EndStationID, _ = fc.str(ColEndStationID, i)
	rec.EndStationName, _ = fc.str(ColEndStationName, i)
	rec.BikeID, _ = fc.str(ColBikeID, i)

	rec.UserType, _ = fc.str(ColUserType, i)
	if !models.IsUserType(rec.UserType) {
		return rec, "bad_user_type", fmt.Errorf("unknown user type %q", rec.UserType)
	}
	rec.Gender, _ = fc.str(ColGender, i)
	if !models.IsGender(rec.Gender) {
		return rec, "bad_gender", fmt.Errorf("unknown gender %q", rec.Gender)
	}

	var secOK, minsOK bool
	floats := []struct {
		col     string
		dst     *float64
		present *bool
	}{
		{ColDurationSec, &rec.DurationSec, &secOK},
		{ColDurationMins, &rec.DurationMins, &minsOK},
		{ColStartLat, &rec.StartLat, nil},
		{ColStartLon, &rec.StartLon, nil},
		{ColEndLat, &rec.EndLat, nil},
		{ColEndLon, &rec.EndLon, nil},
		{ColDistanceKm, &rec.DistanceKm, nil},
	}
	for _, f := range floats {
		v, ok, err := fc.float(f.col, i)
		if err != nil {
			return rec, "bad_number", err
		}
		*f.dst = v
		if f.present != nil {
			*f.present = ok
		}
	}
	switch {
	case fc.has(ColDurationMins):
		rec.DurationMissing = !minsOK
	case fc.has(ColDurationSec):
		rec.DurationMins = rec.DurationSec / 60
		rec.DurationMissing = !secOK
	default:
		rec.DurationMissing = true
	}

	if rec.BirthYear, _, err = fc.int(ColBirthYear, i); err != nil {
		return rec, "bad_number", err
	}
	if rec.Age, _, err = fc.int(ColAge, i); err != nil {
		return rec, "bad_number", err
	}

	if group, ok := fc.str(ColAgeGroup, i); ok {
		if !models.IsAgeGroup(group) {
			return rec, "bad_age_group", fmt.Errorf("unknown age group %q", group)
		}
		rec.AgeGroup = group
	} else if rec.Age > 0 {
		rec.AgeGroup = models.AgeGroupFor(rec.Age)
	}

	if v, ok := fc.str(ColBikeShareForAll, i); ok {
		rec.BikeShareForAll = strings.EqualFold(v, "yes") || strings.EqualFold(v, "true")
	}

	rec.DeriveTimeFields()
	return rec, "", nil
}

// SortedReasons returns the quarantine reasons ordered by count, for logging
func (r *LoadReport) SortedReasons() []string {
	keys := make([]string, 0, len(r.Reasons))
	for k := range r.Reasons {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if r.Reasons[keys[i]] != r.Reasons[keys[j]] {
			return r.Reasons[keys[i]] > r.Reasons[keys[j]]
		}
		return keys[i] < keys[j]
	})
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = fmt.Sprintf("%s=%d", k, r.Reasons[k])
	}
	return out
}
