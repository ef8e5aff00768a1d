// Package pipeline turns a trip table and a filter state into the dashboard's
// KPIs and chart datasets. Every function is pure: the input table is never
// modified and each call re-scans it.
package pipeline

import (
	"github.com/jengzang/gobike-dashboard/internal/dataset"
	"github.com/jengzang/gobike-dashboard/internal/models"
)

// Options tunes presentation-level parameters of an evaluation
type Options struct {
	TopStations int // entries in the station ranking
	LabelWidth  int // station label width in runes
}

// DefaultOptions returns the dashboard defaults
func DefaultOptions() Options {
	return Options{
		TopStations: DefaultTopStations,
		LabelWidth:  DefaultLabelWidth,
	}
}

// Evaluate filters table by state and computes every KPI and chart dataset
// from the same filtered rows.
func Evaluate(table *dataset.Table, state models.FilterState, opts Options) models.ResultBundle {
	filtered := Apply(table, state)

	if filtered.IsEmpty() {
		return EmptyBundle(state)
	}

	return models.ResultBundle{
		Filter:    state,
		KPIs:      ComputeKPIs(filtered),
		Time:      AggregateByTime(filtered),
		Users:     AggregateByUser(filtered),
		Stations:  TopStations(filtered, opts.TopStations, opts.LabelWidth),
		AgeGroups: AggregateByAgeGroup(filtered),
	}
}

// EmptyBundle is the result for a filter combination that matches no trips
func EmptyBundle(state models.FilterState) models.ResultBundle {
	return models.ResultBundle{
		Filter: state,
		KPIs:   EmptyKPIs(),
		Time: models.TimeSeries{
			Weekdays: EmptyWeekdays(),
			Hours:    []models.HourCount{},
		},
		Users: models.UserBreakdown{
			UserTypes: []models.CategoryCount{},
			Genders:   []models.CategoryCount{},
		},
		Stations:  []models.StationCount{},
		AgeGroups: []models.AgeGroupSummary{},
		Empty:     true,
		Message:   models.NoDataMessage,
	}
}

// FilterOptions lists the values the filter widgets may offer
func FilterOptions() models.FilterOptions {
	return models.FilterOptions{
		UserTypes: append([]string{models.FilterAll}, models.UserTypes...),
		Genders:   append([]string{models.FilterAll}, models.Genders...),
		AgeGroups: append([]string{models.FilterAll}, models.AgeGroups...),
		MinHour:   models.MinHour,
		MaxHour:   models.MaxHour,
		Default:   models.DefaultFilterState(),
	}
}
