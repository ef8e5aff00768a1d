package service

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/jengzang/gobike-dashboard/internal/models"
)

// Workbook sheet names
const (
	SheetSummary   = "Summary"
	SheetWeekdays  = "Weekdays"
	SheetHours     = "Hours"
	SheetUsers     = "Users"
	SheetStations  = "Top Stations"
	SheetAgeGroups = "Age Groups"
)

// Export evaluates state and writes the bundle as an XLSX workbook to w
func (s *DashboardService) Export(w io.Writer, state models.FilterState, top int) error {
	bundle, err := s.Evaluate(state, top, "export")
	if err != nil {
		return err
	}

	f, err := BuildWorkbook(bundle)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// BuildWorkbook lays a result bundle out as one sheet per chart
func BuildWorkbook(bundle models.ResultBundle) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}

	summary := [][]interface{}{
		{"Metric", "Value"},
		{"Total Trips", bundle.KPIs.TotalTrips},
		{"Avg Duration", bundle.KPIs.AvgDuration},
		{"Subscriber %", bundle.KPIs.SubscriberPercent},
		{"Active Stations", bundle.KPIs.ActiveStations},
		{},
		{"Filter", "Value"},
		{"User Type", filterLabel(bundle.Filter.UserType)},
		{"Gender", filterLabel(bundle.Filter.Gender)},
		{"Age Group", filterLabel(bundle.Filter.AgeGroup)},
		{"Hours", hoursLabel(bundle.Filter.Hours)},
	}
	if bundle.Empty {
		summary = append(summary, []interface{}{}, []interface{}{bundle.Message})
	}

	weekdays := [][]interface{}{{"Day", "Trips", "Weekend"}}
	for _, wd := range bundle.Time.Weekdays {
		weekdays = append(weekdays, []interface{}{wd.Day, wd.Trips, wd.Weekend})
	}

	hours := [][]interface{}{{"Hour", "Trips"}}
	for _, h := range bundle.Time.Hours {
		hours = append(hours, []interface{}{h.Hour, h.Trips})
	}

	users := [][]interface{}{{"User Type", "Trips"}}
	for _, c := range bundle.Users.UserTypes {
		users = append(users, []interface{}{c.Label, c.Count})
	}
	users = append(users, []interface{}{}, []interface{}{"Gender", "Trips"})
	for _, c := range bundle.Users.Genders {
		users = append(users, []interface{}{c.Label, c.Count})
	}

	stations := [][]interface{}{{"Rank", "Station", "Trips"}}
	for i, st := range bundle.Stations {
		stations = append(stations, []interface{}{i + 1, st.Station, st.Trips})
	}

	ages := [][]interface{}{{"Age Group", "Trips", "Avg Duration (min)"}}
	for _, g := range bundle.AgeGroups {
		var avg interface{} = models.NoDataSentinel
		if g.AvgDurationMins != nil {
			avg = *g.AvgDurationMins
		}
		ages = append(ages, []interface{}{g.AgeGroup, g.Trips, avg})
	}

	sheets := []struct {
		name  string
		rows  [][]interface{}
		width float64
	}{
		{SheetSummary, summary, 20},
		{SheetWeekdays, weekdays, 14},
		{SheetHours, hours, 10},
		{SheetUsers, users, 14},
		{SheetStations, stations, 48},
		{SheetAgeGroups, ages, 20},
	}
	for _, sh := range sheets {
		if err := writeSheet(f, sh.name, sh.rows, sh.width); err != nil {
			f.Close()
			return nil, err
		}
	}
	return f, nil
}

func writeSheet(f *excelize.File, name string, rows [][]interface{}, width float64) error {
	if name != SheetSummary {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", name, err)
		}
	}
	for r, row := range rows {
		for c, v := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return fmt.Errorf("failed to address cell: %w", err)
			}
			if err := f.SetCellValue(name, cell, v); err != nil {
				return fmt.Errorf("failed to set %s!%s: %w", name, cell, err)
			}
		}
	}
	if err := f.SetColWidth(name, "A", "C", width); err != nil {
		return fmt.Errorf("failed to size columns of %s: %w", name, err)
	}
	return nil
}

func filterLabel(v string) string {
	if models.IsUnrestricted(v) {
		return models.FilterAll
	}
	return v
}

func hoursLabel(r *models.HourRange) string {
	if r == nil {
		return fmt.Sprintf("%d-%d", models.MinHour, models.MaxHour)
	}
	return fmt.Sprintf("%d-%d", r.Lo, r.Hi)
}
