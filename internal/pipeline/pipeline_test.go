package pipeline

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/jengzang/gobike-dashboard/internal/dataset"
	"github.com/jengzang/gobike-dashboard/internal/models"
)

// trip builds a record starting on the given weekday of the week of 2019-02-25 (a Monday)
func trip(userType, gender, ageGroup string, hour int, day time.Weekday, stationID, station string, mins float64) models.TripRecord {
	offset := (int(day) + 6) % 7
	r := models.TripRecord{
		StartTime:        time.Date(2019, 2, 25+offset, hour, 10, 0, 0, time.UTC),
		DurationMins:     mins,
		StartStationID:   stationID,
		StartStationName: station,
		UserType:         userType,
		Gender:           gender,
		AgeGroup:         ageGroup,
	}
	r.DeriveTimeFields()
	return r
}

func exampleTable() *dataset.Table {
	return dataset.NewTable([]models.TripRecord{
		trip("Subscriber", "Male", "25-34", 8, time.Monday, "1", "A", 10),
		trip("Customer", "Female", "35-44", 8, time.Monday, "1", "A", 20),
		trip("Subscriber", "Male", "25-34", 20, time.Wednesday, "2", "B", 6),
	}, true)
}

func sampleTable() *dataset.Table {
	return dataset.NewTable([]models.TripRecord{
		trip("Subscriber", "Male", "25-34", 7, time.Monday, "10", "Market St at 10th St", 9),
		trip("Subscriber", "Female", "25-34", 8, time.Tuesday, "10", "Market St at 10th St", 12),
		trip("Customer", "Female", "35-44", 9, time.Tuesday, "11", "Berry St at 4th St", 25),
		trip("Subscriber", "Other", "45-54", 17, time.Friday, "12", "San Francisco Caltrain (Townsend St at 4th St)", 7),
		trip("Customer", "Male", "15-24", 13, time.Saturday, "13", "Powell St BART Station", 31),
		trip("Subscriber", "Male", "55-64", 18, time.Sunday, "11", "Berry St at 4th St", 11),
		trip("Subscriber", "Male", "65-80", 22, time.Thursday, "14", "The Embarcadero at Sansome St", 14),
		trip("Subscriber", "Female", "25-34", 23, time.Friday, "10", "Market St at 10th St", 8),
	}, true)
}

func hours(lo, hi int) *models.HourRange {
	return &models.HourRange{Lo: lo, Hi: hi}
}

func TestApplyIsIdempotent(t *testing.T) {
	table := sampleTable()
	state := models.FilterState{UserType: "Subscriber", Gender: "Female", AgeGroup: models.FilterAll, Hours: hours(6, 23)}

	once := Apply(table, state)
	twice := Apply(once, state)

	if !reflect.DeepEqual(once.Records(), twice.Records()) {
		t.Fatalf("apply is not idempotent: %d vs %d rows", once.Len(), twice.Len())
	}
}

func TestApplyIsOrderIndependent(t *testing.T) {
	table := sampleTable()
	state := models.FilterState{UserType: "Subscriber", Gender: "Male", AgeGroup: "25-34", Hours: hours(0, 12)}
	filters := Filters(state)
	if len(filters) != 4 {
		t.Fatalf("expected four active filters, got %d", len(filters))
	}

	want := ApplyFilters(table, filters...).Records()
	for _, perm := range permutations(len(filters)) {
		ordered := make([]Filter, len(perm))
		for i, idx := range perm {
			ordered[i] = filters[idx]
		}
		got := ApplyFilters(table, ordered...).Records()
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("order %v gave %d rows, want %d", perm, len(got), len(want))
		}
	}
}

func permutations(n int) [][]int {
	if n == 0 {
		return [][]int{{}}
	}
	var out [][]int
	for _, p := range permutations(n - 1) {
		for i := 0; i <= len(p); i++ {
			next := make([]int, 0, n)
			next = append(next, p[:i]...)
			next = append(next, n-1)
			next = append(next, p[i:]...)
			out = append(out, next)
		}
	}
	return out
}

func TestApplyNoRestrictionIsIdentity(t *testing.T) {
	table := sampleTable()
	tests := []struct {
		name  string
		state models.FilterState
	}{
		{name: "defaults", state: models.DefaultFilterState()},
		{name: "empty values, no hour range", state: models.FilterState{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Apply(table, tt.state)
			if !reflect.DeepEqual(got.Records(), table.Records()) {
				t.Fatalf("unrestricted filter changed the table")
			}
			if got == table {
				t.Fatalf("Apply must return a derived table")
			}
		})
	}
}

func TestEachPredicateIsIndependentlyApplied(t *testing.T) {
	table := sampleTable()
	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{name: "user type", filter: UserTypeFilter("Customer"), want: 2},
		{name: "gender", filter: GenderFilter("Female"), want: 3},
		{name: "age group", filter: AgeGroupFilter("25-34"), want: 3},
		{name: "hour range inclusive", filter: HourRangeFilter(models.HourRange{Lo: 8, Hi: 9}), want: 2},
		{name: "single hour", filter: HourRangeFilter(models.HourRange{Lo: 23, Hi: 23}), want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ApplyFilters(table, tt.filter).Len(); got != tt.want {
				t.Fatalf("%s kept %d rows, want %d", tt.filter.Name, got, tt.want)
			}
		})
	}
}

func TestWeekdayReindexIsComplete(t *testing.T) {
	table := dataset.NewTable([]models.TripRecord{
		trip("Subscriber", "Male", "25-34", 9, time.Tuesday, "1", "A", 5),
		trip("Subscriber", "Male", "25-34", 9, time.Tuesday, "1", "A", 5),
		trip("Customer", "Male", "25-34", 9, time.Friday, "1", "A", 5),
	}, true)

	series := AggregateByTime(table)
	wantDays := []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}
	wantTrips := []int{0, 2, 0, 0, 1, 0, 0}
	for i, wd := range series.Weekdays {
		if wd.Day != wantDays[i] || wd.Trips != wantTrips[i] {
			t.Fatalf("weekday %d = %+v, want %s:%d", i, wd, wantDays[i], wantTrips[i])
		}
		if wd.Short != wantDays[i][:3] {
			t.Fatalf("short label %q, want %q", wd.Short, wantDays[i][:3])
		}
	}
	if !series.Weekdays[5].Weekend || !series.Weekdays[6].Weekend || series.Weekdays[4].Weekend {
		t.Fatalf("weekend flags wrong: %+v", series.Weekdays)
	}
}

func TestHourCountsAscendingWithoutZeroFill(t *testing.T) {
	series := AggregateByTime(sampleTable())
	for i := 1; i < len(series.Hours); i++ {
		if series.Hours[i-1].Hour >= series.Hours[i].Hour {
			t.Fatalf("hours not ascending: %+v", series.Hours)
		}
	}
	for _, h := range series.Hours {
		if h.Trips == 0 {
			t.Fatalf("zero-count hour %d should be omitted", h.Hour)
		}
	}
	if len(series.Hours) != 8 {
		t.Fatalf("expected 8 distinct hours, got %d", len(series.Hours))
	}
}

func TestKPIEmptyState(t *testing.T) {
	state := models.FilterState{UserType: "Subscriber", AgeGroup: "65-80", Hours: hours(2, 3)}
	bundle := Evaluate(sampleTable(), state, DefaultOptions())

	if !bundle.Empty || bundle.Message != models.NoDataMessage {
		t.Fatalf("expected empty bundle, got empty=%v message=%q", bundle.Empty, bundle.Message)
	}
	k := bundle.KPIs
	if k.TotalTrips != "0" || k.AvgDuration != "–" || k.SubscriberPercent != "0%" || k.ActiveStations != "0" {
		t.Fatalf("unexpected empty KPIs: %+v", k)
	}
	if k.ActiveStationCount != 0 || k.MeanDurationMinutes != nil {
		t.Fatalf("unexpected raw empty KPIs: %+v", k)
	}
	for _, wd := range bundle.Time.Weekdays {
		if wd.Trips != 0 || wd.Day == "" {
			t.Fatalf("empty bundle weekdays should be zero-filled: %+v", bundle.Time.Weekdays)
		}
	}
	if len(bundle.Time.Hours) != 0 || len(bundle.Stations) != 0 || len(bundle.Users.UserTypes) != 0 {
		t.Fatalf("empty bundle should carry empty datasets: %+v", bundle)
	}
	if bundle.Stations == nil || bundle.Users.Genders == nil {
		t.Fatalf("empty datasets should be non-nil for stable JSON")
	}
}

func TestComputeKPIs(t *testing.T) {
	k := ComputeKPIs(sampleTable())
	if k.TotalTrips != "8" || k.TripCount != 8 {
		t.Fatalf("count = %q/%d, want 8", k.TotalTrips, k.TripCount)
	}
	// (9+12+25+7+31+11+14+8)/8 = 14.625
	if k.AvgDuration != "14.6 min" {
		t.Fatalf("AvgDuration = %q, want 14.6 min", k.AvgDuration)
	}
	if k.SubscriberPercent != "75.0%" {
		t.Fatalf("SubscriberPercent = %q, want 75.0%%", k.SubscriberPercent)
	}
	if k.ActiveStationCount != 5 || k.ActiveStations != "5" {
		t.Fatalf("ActiveStations = %q/%d, want 5", k.ActiveStations, k.ActiveStationCount)
	}
}

func TestComputeKPIsWithoutDuration(t *testing.T) {
	table := dataset.NewTable(sampleTable().Records(), false)
	k := ComputeKPIs(table)
	if k.AvgDuration != models.NoDataSentinel || k.MeanDurationMinutes != nil {
		t.Fatalf("expected duration sentinel, got %+v", k)
	}
	if k.TotalTrips != "8" {
		t.Fatalf("other KPIs should still be computed: %+v", k)
	}
}

func TestMissingDurationsStayOutOfMeans(t *testing.T) {
	missing := trip("Customer", "Male", "25-34", 9, time.Monday, "2", "B", 0)
	missing.DurationMissing = true
	table := dataset.NewTable([]models.TripRecord{
		trip("Subscriber", "Male", "25-34", 8, time.Monday, "1", "A", 10),
		missing,
	}, true)

	k := ComputeKPIs(table)
	if k.AvgDuration != "10.0 min" || k.TotalTrips != "2" {
		t.Fatalf("KPIs = %+v, want 10.0 min over 2 trips", k)
	}
	groups := AggregateByAgeGroup(table)
	if len(groups) != 1 || groups[0].Trips != 2 || groups[0].AvgDurationMins == nil || *groups[0].AvgDurationMins != 10 {
		t.Fatalf("age groups = %+v", groups)
	}

	onlyMissing := dataset.NewTable([]models.TripRecord{missing}, true)
	if k := ComputeKPIs(onlyMissing); k.AvgDuration != models.NoDataSentinel || k.MeanDurationMinutes != nil {
		t.Fatalf("all durations missing should report the sentinel: %+v", k)
	}
	if g := AggregateByAgeGroup(onlyMissing); len(g) != 1 || g[0].AvgDurationMins != nil {
		t.Fatalf("age groups = %+v", g)
	}
}

func TestComputeKPIsThousandsSeparator(t *testing.T) {
	rows := make([]models.TripRecord, 1234)
	for i := range rows {
		rows[i] = trip("Customer", "Male", "25-34", 8, time.Monday, "1", "A", 1)
	}
	k := ComputeKPIs(dataset.NewTable(rows, true))
	if k.TotalTrips != "1,234" {
		t.Fatalf("TotalTrips = %q, want 1,234", k.TotalTrips)
	}
	if k.SubscriberPercent != "0.0%" {
		t.Fatalf("SubscriberPercent = %q, want 0.0%%", k.SubscriberPercent)
	}
}

func TestSubscriberPercentBound(t *testing.T) {
	table := sampleTable()
	for _, state := range []models.FilterState{
		{},
		{UserType: "Subscriber"},
		{UserType: "Customer"},
		{Gender: "Female"},
		{Hours: hours(17, 23)},
	} {
		k := ComputeKPIs(Apply(table, state))
		if k.SubscriberShare < 0 || k.SubscriberShare > 100 {
			t.Fatalf("share %v out of bounds for %+v", k.SubscriberShare, state)
		}
	}
}

func TestAggregateByUser(t *testing.T) {
	users := AggregateByUser(sampleTable())
	wantTypes := []models.CategoryCount{{Label: "Subscriber", Count: 6}, {Label: "Customer", Count: 2}}
	if !reflect.DeepEqual(users.UserTypes, wantTypes) {
		t.Fatalf("UserTypes = %+v, want %+v", users.UserTypes, wantTypes)
	}
	wantGenders := []models.CategoryCount{{Label: "Male", Count: 4}, {Label: "Female", Count: 3}, {Label: "Other", Count: 1}}
	if !reflect.DeepEqual(users.Genders, wantGenders) {
		t.Fatalf("Genders = %+v, want %+v", users.Genders, wantGenders)
	}
}

func TestTopStationsBoundAndOrder(t *testing.T) {
	table := sampleTable()
	for _, n := range []int{1, 2, 3, 8, 20} {
		ranked := TopStations(table, n, DefaultLabelWidth)
		if len(ranked) > n {
			t.Fatalf("TopStations(%d) returned %d entries", n, len(ranked))
		}
		for i := 1; i < len(ranked); i++ {
			if ranked[i].Trips > ranked[i-1].Trips {
				t.Fatalf("counts increase at %d: %+v", i, ranked)
			}
		}
	}

	ranked := TopStations(table, 3, DefaultLabelWidth)
	want := []string{"Market St at 10th St", "Berry St at 4th St", "Powell St BART Station"}
	for i, name := range want {
		if ranked[i].Station != name {
			t.Fatalf("rank %d = %q, want %q (%+v)", i, ranked[i].Station, name, ranked)
		}
	}
}

func TestTopStationsTruncatesLabelOnly(t *testing.T) {
	ranked := TopStations(sampleTable(), 0, DefaultLabelWidth)
	if len(ranked) != 5 {
		t.Fatalf("default n should include all 5 stations, got %d", len(ranked))
	}
	var found bool
	for _, s := range ranked {
		if strings.HasPrefix(s.Station, "San Francisco Caltrain") {
			found = true
			if s.Station != "San Francisco Caltrain (Townsend St at 4th St)" {
				t.Fatalf("grouping key was truncated: %q", s.Station)
			}
			if s.Label != "San Francisco Caltrain (Townse…" {
				t.Fatalf("label = %q", s.Label)
			}
		}
	}
	if !found {
		t.Fatalf("long station missing from ranking")
	}
}

func TestAggregateByAgeGroup(t *testing.T) {
	groups := AggregateByAgeGroup(sampleTable())
	if len(groups) != 6 {
		t.Fatalf("expected 6 populated buckets, got %d", len(groups))
	}
	if groups[0].AgeGroup != "15-24" || groups[1].AgeGroup != "25-34" {
		t.Fatalf("buckets not in fixed order: %+v", groups)
	}
	if groups[1].Trips != 3 || groups[1].AvgDurationMins == nil || *groups[1].AvgDurationMins != 29.0/3 {
		t.Fatalf("25-34 summary wrong: %+v", groups[1])
	}
}

func TestEvaluateEndToEnd(t *testing.T) {
	bundle := Evaluate(exampleTable(), models.FilterState{UserType: "Subscriber"}, DefaultOptions())

	if bundle.Empty {
		t.Fatalf("bundle unexpectedly empty")
	}
	if bundle.KPIs.TotalTrips != "2" || bundle.KPIs.SubscriberPercent != "100.0%" || bundle.KPIs.ActiveStationCount != 2 {
		t.Fatalf("unexpected KPIs: %+v", bundle.KPIs)
	}

	wantHours := []models.HourCount{{Hour: 8, Trips: 1}, {Hour: 20, Trips: 1}}
	if !reflect.DeepEqual(bundle.Time.Hours, wantHours) {
		t.Fatalf("hours = %+v, want %+v", bundle.Time.Hours, wantHours)
	}

	wantWeekdays := []int{1, 0, 1, 0, 0, 0, 0}
	for i, wd := range bundle.Time.Weekdays {
		if wd.Trips != wantWeekdays[i] {
			t.Fatalf("weekday %s = %d, want %d", wd.Day, wd.Trips, wantWeekdays[i])
		}
	}

	if len(bundle.Stations) != 2 ||
		bundle.Stations[0].Station != "A" || bundle.Stations[0].Trips != 1 ||
		bundle.Stations[1].Station != "B" || bundle.Stations[1].Trips != 1 {
		t.Fatalf("stations = %+v, want [(A,1) (B,1)]", bundle.Stations)
	}
}

func TestEvaluateDoesNotMutateTable(t *testing.T) {
	table := sampleTable()
	before := table.Records()
	Evaluate(table, models.FilterState{Gender: "Female", Hours: hours(8, 9)}, DefaultOptions())
	Evaluate(table, models.FilterState{Gender: "Female", Hours: hours(8, 9)}, DefaultOptions())
	if !reflect.DeepEqual(before, table.Records()) {
		t.Fatalf("Evaluate mutated the shared table")
	}
}

func TestFormatHelpers(t *testing.T) {
	if got := FormatCount(183412); got != "183,412" {
		t.Fatalf("FormatCount = %q", got)
	}
	if got := FormatMinutes(11.66); got != "11.7 min" {
		t.Fatalf("FormatMinutes = %q", got)
	}
	if got := TruncateLabel("short", 30); got != "short" {
		t.Fatalf("TruncateLabel = %q", got)
	}
	if got := TruncateLabel("Café Ferry Building", 4); got != "Café…" {
		t.Fatalf("TruncateLabel should count runes, got %q", got)
	}
}

func TestFilterOptions(t *testing.T) {
	opts := FilterOptions()
	if opts.UserTypes[0] != models.FilterAll || len(opts.AgeGroups) != 7 {
		t.Fatalf("unexpected options: %+v", opts)
	}
	if opts.Default.Hours == nil || opts.Default.Hours.Lo != 0 || opts.Default.Hours.Hi != 23 {
		t.Fatalf("default hour range should be [0,23]: %+v", opts.Default)
	}
}
