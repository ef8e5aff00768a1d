package pipeline

import (
	"sort"
	"time"

	"github.com/jengzang/gobike-dashboard/internal/dataset"
	"github.com/jengzang/gobike-dashboard/internal/models"
	"github.com/jengzang/gobike-dashboard/internal/stats"
)

// WeekOrder is the fixed Monday..Sunday axis of the weekday chart
var WeekOrder = [7]time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
	time.Friday, time.Saturday, time.Sunday,
}

// weekdayIndex maps a time.Weekday (Sunday=0) onto WeekOrder
func weekdayIndex(d time.Weekday) int {
	return (int(d) + 6) % 7
}

// EmptyWeekdays returns the zero-filled weekday axis
func EmptyWeekdays() [7]models.WeekdayCount {
	var out [7]models.WeekdayCount
	for i, d := range WeekOrder {
		out[i] = models.WeekdayCount{
			Day:     d.String(),
			Short:   d.String()[:3],
			Weekend: d == time.Saturday || d == time.Sunday,
		}
	}
	return out
}

// AggregateByTime counts trips per weekday (always all seven, Monday first)
// and per start hour (present hours only, ascending).
func AggregateByTime(table *dataset.Table) models.TimeSeries {
	series := models.TimeSeries{
		Weekdays: EmptyWeekdays(),
		Hours:    []models.HourCount{},
	}

	var hours [models.MaxHour + 1]int
	table.Each(func(r models.TripRecord) bool {
		series.Weekdays[weekdayIndex(r.DayOfWeek)].Trips++
		if r.StartHour >= models.MinHour && r.StartHour <= models.MaxHour {
			hours[r.StartHour]++
		}
		return true
	})

	for h, n := range hours {
		if n > 0 {
			series.Hours = append(series.Hours, models.HourCount{Hour: h, Trips: n})
		}
	}
	return series
}

// AggregateByUser builds the user-type and gender frequency tables
func AggregateByUser(table *dataset.Table) models.UserBreakdown {
	userTypes := make(map[string]int)
	genders := make(map[string]int)

	table.Each(func(r models.TripRecord) bool {
		userTypes[r.UserType]++
		genders[r.Gender]++
		return true
	})

	return models.UserBreakdown{
		UserTypes: frequencyTable(userTypes),
		Genders:   frequencyTable(genders),
	}
}

// frequencyTable orders counts by frequency, then label, so output is stable
func frequencyTable(counts map[string]int) []models.CategoryCount {
	out := make([]models.CategoryCount, 0, len(counts))
	for label, n := range counts {
		out = append(out, models.CategoryCount{Label: label, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	return out
}

// AggregateByAgeGroup counts trips and averages duration per age bucket, in
// bucket order. Buckets with no trips are omitted.
func AggregateByAgeGroup(table *dataset.Table) []models.AgeGroupSummary {
	trips := make(map[string]int)
	durations := make(map[string][]float64)
	table.Each(func(r models.TripRecord) bool {
		if r.AgeGroup == "" {
			return true
		}
		trips[r.AgeGroup]++
		if !r.DurationMissing {
			durations[r.AgeGroup] = append(durations[r.AgeGroup], r.DurationMins)
		}
		return true
	})

	out := []models.AgeGroupSummary{}
	for _, group := range models.AgeGroups {
		n, ok := trips[group]
		if !ok {
			continue
		}
		summary := models.AgeGroupSummary{AgeGroup: group, Trips: n}
		if d := durations[group]; table.HasDuration() && len(d) > 0 {
			mean := stats.Mean(d)
			summary.AvgDurationMins = &mean
		}
		out = append(out, summary)
	}
	return out
}
