package dataset

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jengzang/gobike-dashboard/internal/models"
)

const cleanedCSV = `start_time,duration_mins,start_station_id,start_station_name,end_station_id,end_station_name,user_type,member_gender,age,age_group
2019-02-25 08:15:00.1230,10.5,21,Montgomery St BART Station,13,Commercial St at Montgomery St,Subscriber,Male,34,25-34
2019-02-26 17:45:10.0000,4.5,30,San Francisco Caltrain,21,Montgomery St BART Station,Customer,Female,41,35-44
not-a-date,3.0,30,San Francisco Caltrain,21,Montgomery St BART Station,Customer,Female,41,35-44
2019-02-27 23:01:00,7.0,30,San Francisco Caltrain,21,Montgomery St BART Station,Tourist,Female,41,35-44
2019-03-03 12:00:00,abc,30,San Francisco Caltrain,21,Montgomery St BART Station,Subscriber,Other,70,65-80
2019-03-03 12:30:00,6.0,,San Francisco Caltrain,21,Montgomery St BART Station,Subscriber,Other,70,65-80
`

func TestLoadCSVDerivesTimeFieldsAndQuarantines(t *testing.T) {
	table, report, err := LoadCSV(strings.NewReader(cleanedCSV))
	if err != nil {
		t.Fatalf("LoadCSV failed: %v", err)
	}

	if table.Len() != 2 {
		t.Fatalf("expected 2 valid rows, got %d", table.Len())
	}
	if report.Quarantined != 4 {
		t.Fatalf("expected 4 quarantined rows, got %d (%v)", report.Quarantined, report.Samples)
	}
	for _, reason := range []string{"bad_timestamp", "bad_user_type", "bad_number", "missing_station"} {
		if report.Reasons[reason] != 1 {
			t.Fatalf("expected one %s, got reasons %v", reason, report.Reasons)
		}
	}
	if !table.HasDuration() || !report.HasDuration {
		t.Fatalf("expected duration column to be detected")
	}

	first := table.Row(0)
	if first.StartHour != 8 || first.DayOfWeek != time.Monday {
		t.Fatalf("first row derived hour=%d day=%v, want 8 Monday", first.StartHour, first.DayOfWeek)
	}
	if first.DurationMins != 10.5 || first.AgeGroup != "25-34" || first.StartStationID != "21" {
		t.Fatalf("unexpected first row: %+v", first)
	}

	second := table.Row(1)
	if second.StartHour != 17 || second.DayOfWeek != time.Tuesday {
		t.Fatalf("second row derived hour=%d day=%v, want 17 Tuesday", second.StartHour, second.DayOfWeek)
	}
}

func TestLoadCSVMissingRequiredColumn(t *testing.T) {
	csv := "start_time,user_type,member_gender,start_station_name\n2019-02-25 08:15:00,Subscriber,Male,A\n"
	_, _, err := LoadCSV(strings.NewReader(csv))
	if !errors.Is(err, ErrMissingColumn) {
		t.Fatalf("expected ErrMissingColumn, got %v", err)
	}
}

func TestLoadCSVHeaderOnly(t *testing.T) {
	header := strings.Join(CleanedColumns, ",") + "\n"
	table, report, err := LoadCSV(strings.NewReader(header))
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}
	if table.Len() != 0 || report.Rows != 0 || !table.HasDuration() {
		t.Fatalf("rows=%d report=%+v", table.Len(), report)
	}

	_, _, err = LoadCSV(strings.NewReader("start_time,user_type\n"))
	if !errors.Is(err, ErrMissingColumn) {
		t.Fatalf("header-only input still checks columns, got %v", err)
	}
	if _, _, err := LoadCSV(strings.NewReader("")); err == nil {
		t.Fatalf("expected an error for input without a header")
	}
}

func TestLoadCSVBlankDurationIsMissing(t *testing.T) {
	csv := "start_time,duration_mins,user_type,member_gender,start_station_id,start_station_name\n" +
		"2019-02-25 08:15:00,10,Subscriber,Male,1,A\n" +
		"2019-02-25 09:15:00,,Customer,Female,2,B\n"
	table, report, err := LoadCSV(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}
	if table.Len() != 2 || report.Quarantined != 0 {
		t.Fatalf("rows=%d quarantined=%d", table.Len(), report.Quarantined)
	}
	if table.Row(0).DurationMissing || table.Row(0).DurationMins != 10 {
		t.Fatalf("row 0 = %+v", table.Row(0))
	}
	if !table.Row(1).DurationMissing {
		t.Fatalf("blank duration_mins should be marked missing: %+v", table.Row(1))
	}
}

func TestLoadCSVWithoutDurationColumn(t *testing.T) {
	csv := "start_time,user_type,member_gender,start_station_id,start_station_name\n" +
		"2019-02-25 08:15:00,Subscriber,Male,1,A\n"
	table, _, err := LoadCSV(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("LoadCSV failed: %v", err)
	}
	if table.HasDuration() {
		t.Fatalf("expected HasDuration=false without duration columns")
	}
}

func TestLoadCSVDerivesMinutesFromSeconds(t *testing.T) {
	csv := "start_time,duration_sec,user_type,member_gender,start_station_id,start_station_name,age\n" +
		"2019-02-25 08:15:00,90,Subscriber,Male,1,A,30\n"
	table, _, err := LoadCSV(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("LoadCSV failed: %v", err)
	}
	row := table.Row(0)
	if row.DurationMins != 1.5 {
		t.Fatalf("DurationMins = %v, want 1.5", row.DurationMins)
	}
	if row.AgeGroup != "25-34" {
		t.Fatalf("AgeGroup = %q, want derived 25-34", row.AgeGroup)
	}
}

func TestLoadCSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cleaned.csv")
	if err := os.WriteFile(path, []byte(cleanedCSV), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	table, report, err := LoadCSVFile(path)
	if err != nil {
		t.Fatalf("LoadCSVFile failed: %v", err)
	}
	if table.Len() != 2 || report.Path != path {
		t.Fatalf("unexpected load: rows=%d path=%s", table.Len(), report.Path)
	}

	if _, _, err := LoadCSVFile(filepath.Join(t.TempDir(), "missing.csv")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{in: "2019-02-28 17:32:10.1450"},
		{in: "2019-02-28 17:32:10"},
		{in: "2019-02-28T17:32:10Z"},
		{in: "02/28/2019 17:32"},
		{in: "", wantErr: true},
		{in: "yesterday", wantErr: true},
	}
	for _, tt := range tests {
		_, err := ParseTimestamp(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseTimestamp(%q) err=%v, wantErr=%v", tt.in, err, tt.wantErr)
		}
	}
}

type stubSource struct {
	records []models.TripRecord
}

func (s stubSource) LoadTrips(ctx context.Context) ([]models.TripRecord, bool, error) {
	return s.records, true, nil
}

func TestLoadFromSource(t *testing.T) {
	src := stubSource{records: []models.TripRecord{
		{StartTime: time.Date(2019, 2, 24, 9, 0, 0, 0, time.UTC), UserType: "Subscriber", Gender: "Male"},
		{UserType: "Subscriber", Gender: "Male"},
		{StartTime: time.Date(2019, 2, 24, 9, 0, 0, 0, time.UTC), UserType: "Subscriber", Gender: "?"},
	}}

	table, report, err := LoadFromSource(context.Background(), src, "sqlite")
	if err != nil {
		t.Fatalf("LoadFromSource failed: %v", err)
	}
	if table.Len() != 1 || report.Quarantined != 2 {
		t.Fatalf("rows=%d quarantined=%d, want 1 and 2", table.Len(), report.Quarantined)
	}
	if got := table.Row(0); got.DayOfWeek != time.Sunday || got.StartHour != 9 {
		t.Fatalf("derived fields not set: %+v", got)
	}
}
