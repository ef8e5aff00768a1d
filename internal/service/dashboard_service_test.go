package service

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/jengzang/gobike-dashboard/internal/dataset"
	"github.com/jengzang/gobike-dashboard/internal/models"
	"github.com/jengzang/gobike-dashboard/internal/pipeline"
)

const cleanedCSV = `start_time,duration_mins,start_station_id,start_station_name,user_type,member_gender,age,age_group
2019-02-25 08:10:00.000,10,1,Market St at 10th St,Subscriber,Male,30,25-34
2019-02-25 08:40:00.000,20,1,Market St at 10th St,Customer,Female,40,35-44
2019-02-27 20:05:00.000,6,2,Berry St at 4th St,Subscriber,Male,30,25-34
2019-02-28 17:00:00.000,12,3,Powell St BART Station (Market St at 4th St),Subscriber,Other,60,55-64
`

func writeDataset(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cleaned.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write dataset: %v", err)
	}
	return path
}

func loadedService(t *testing.T) *DashboardService {
	t.Helper()
	svc := NewDashboardService(CSVLoader(writeDataset(t, cleanedCSV)), pipeline.DefaultOptions())
	if _, err := svc.Reload(context.Background(), "test"); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	return svc
}

func TestEvaluateBeforeLoad(t *testing.T) {
	svc := NewDashboardService(nil, pipeline.DefaultOptions())
	if _, err := svc.Evaluate(models.DefaultFilterState(), 0, "test"); !errors.Is(err, dataset.ErrNoDataset) {
		t.Fatalf("expected ErrNoDataset, got %v", err)
	}
	if _, err := svc.DatasetInfo(); !errors.Is(err, dataset.ErrNoDataset) {
		t.Fatalf("expected ErrNoDataset, got %v", err)
	}
}

func TestEvaluate(t *testing.T) {
	svc := loadedService(t)

	tests := []struct {
		name    string
		state   models.FilterState
		top     int
		trips   string
		empty   bool
		wantErr error
	}{
		{name: "defaults", state: models.DefaultFilterState(), trips: "4"},
		{name: "subscribers", state: models.FilterState{UserType: "Subscriber"}, trips: "3"},
		{name: "evening", state: models.FilterState{Hours: &models.HourRange{Lo: 17, Hi: 23}}, trips: "2"},
		{name: "no match", state: models.FilterState{AgeGroup: "65-80"}, trips: "0", empty: true},
		{name: "bad gender", state: models.FilterState{Gender: "Unknown"}, wantErr: models.ErrInvalidFilter},
		{name: "reversed hours", state: models.FilterState{Hours: &models.HourRange{Lo: 9, Hi: 3}}, wantErr: models.ErrInvalidFilter},
		{name: "top too large", state: models.DefaultFilterState(), top: MaxTopStations + 1, wantErr: models.ErrInvalidFilter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bundle, err := svc.Evaluate(tt.state, tt.top, "test")
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Evaluate: %v", err)
			}
			if bundle.KPIs.TotalTrips != tt.trips || bundle.Empty != tt.empty {
				t.Fatalf("trips=%q empty=%v, want %q/%v", bundle.KPIs.TotalTrips, bundle.Empty, tt.trips, tt.empty)
			}
		})
	}
}

func TestEvaluateTopOverride(t *testing.T) {
	svc := loadedService(t)
	bundle, err := svc.Evaluate(models.DefaultFilterState(), 1, "test")
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(bundle.Stations) != 1 || bundle.Stations[0].Station != "Market St at 10th St" {
		t.Fatalf("stations = %+v", bundle.Stations)
	}
}

func TestReloadKeepsPreviousTableOnError(t *testing.T) {
	path := writeDataset(t, cleanedCSV)
	svc := NewDashboardService(CSVLoader(path), pipeline.DefaultOptions())
	if _, err := svc.Reload(context.Background(), "test"); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	if err := os.WriteFile(path, []byte("user_type\nSubscriber\n"), 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	if _, err := svc.Reload(context.Background(), "test"); !errors.Is(err, dataset.ErrMissingColumn) {
		t.Fatalf("expected ErrMissingColumn, got %v", err)
	}

	info, err := svc.DatasetInfo()
	if err != nil {
		t.Fatalf("DatasetInfo: %v", err)
	}
	if info.Rows != 4 || info.Path != path || !info.HasDuration {
		t.Fatalf("info = %+v", info)
	}
}

func TestSearchStations(t *testing.T) {
	svc := loadedService(t)

	tests := []struct {
		name  string
		query string
		limit int
		first string
		count int
	}{
		{name: "empty query lists alphabetically", query: "", limit: 2, first: "Berry St at 4th St", count: 2},
		{name: "fuzzy match", query: "powell", first: "Powell St BART Station (Market St at 4th St)", count: 1},
		{name: "subsequence across words", query: "mkt10", first: "Market St at 10th St", count: 1},
		{name: "no match", query: "zzz", count: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.SearchStations(tt.query, tt.limit)
			if err != nil {
				t.Fatalf("SearchStations: %v", err)
			}
			if len(got) != tt.count {
				t.Fatalf("got %d matches, want %d: %+v", len(got), tt.count, got)
			}
			if tt.count > 0 && got[0].StationName != tt.first {
				t.Fatalf("first = %q, want %q", got[0].StationName, tt.first)
			}
		})
	}
}

func TestExportWorkbook(t *testing.T) {
	svc := loadedService(t)

	var buf bytes.Buffer
	if err := svc.Export(&buf, models.FilterState{UserType: "Subscriber"}, 0); err != nil {
		t.Fatalf("Export: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	want := []string{SheetSummary, SheetWeekdays, SheetHours, SheetUsers, SheetStations, SheetAgeGroups}
	got := f.GetSheetList()
	if len(got) != len(want) {
		t.Fatalf("sheets = %v, want %v", got, want)
	}

	total, err := f.GetCellValue(SheetSummary, "B2")
	if err != nil || total != "3" {
		t.Fatalf("Summary!B2 = %q (%v), want 3", total, err)
	}
	monday, err := f.GetCellValue(SheetWeekdays, "B2")
	if err != nil || monday != "1" {
		t.Fatalf("Weekdays!B2 = %q (%v), want 1", monday, err)
	}
	top, err := f.GetCellValue(SheetStations, "B2")
	if err != nil || top != "Berry St at 4th St" {
		t.Fatalf("Top Stations!B2 = %q (%v)", top, err)
	}
}

func TestExportInvalidFilter(t *testing.T) {
	svc := loadedService(t)
	var buf bytes.Buffer
	err := svc.Export(&buf, models.FilterState{AgeGroup: "90+"}, 0)
	if !errors.Is(err, models.ErrInvalidFilter) {
		t.Fatalf("expected ErrInvalidFilter, got %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("nothing should be written for an invalid filter")
	}
}

func TestWatchFileReloads(t *testing.T) {
	path := writeDataset(t, cleanedCSV)
	svc := NewDashboardService(CSVLoader(path), pipeline.DefaultOptions())
	if _, err := svc.Reload(context.Background(), "test"); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	w, err := dataset.NewFileWatcher(path, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("NewFileWatcher: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.WatchFile(ctx, w)

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	extra := cleanedCSV + "2019-03-01 09:00:00.000,5,2,Berry St at 4th St,Customer,Male,22,15-24\n"
	if err := os.WriteFile(path, []byte(extra), 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if info, err := svc.DatasetInfo(); err == nil && info.Rows == 5 {
			return
		}
		time.Sleep(25 * time.Millisecond)
	}
	t.Fatalf("dataset was not reloaded after the file changed")
}
