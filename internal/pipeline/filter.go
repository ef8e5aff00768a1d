package pipeline

import (
	"github.com/jengzang/gobike-dashboard/internal/dataset"
	"github.com/jengzang/gobike-dashboard/internal/models"
)

// Filter is one independent row predicate of the dashboard
type Filter struct {
	Name string
	Keep func(r models.TripRecord) bool
}

// UserTypeFilter keeps rows with the given user type
func UserTypeFilter(userType string) Filter {
	return Filter{
		Name: "user_type",
		Keep: func(r models.TripRecord) bool { return r.UserType == userType },
	}
}

// GenderFilter keeps rows with the given gender
func GenderFilter(gender string) Filter {
	return Filter{
		Name: "gender",
		Keep: func(r models.TripRecord) bool { return r.Gender == gender },
	}
}

// AgeGroupFilter keeps rows in the given age bucket
func AgeGroupFilter(group string) Filter {
	return Filter{
		Name: "age_group",
		Keep: func(r models.TripRecord) bool { return r.AgeGroup == group },
	}
}

// HourRangeFilter keeps rows whose start hour lies in [lo, hi]
func HourRangeFilter(hours models.HourRange) Filter {
	return Filter{
		Name: "hour_range",
		Keep: func(r models.TripRecord) bool { return hours.Contains(r.StartHour) },
	}
}

// Filters returns the restricting predicates of state, skipping the ones at
// their "no restriction" sentinel.
func Filters(state models.FilterState) []Filter {
	var filters []Filter
	if !models.IsUnrestricted(state.UserType) {
		filters = append(filters, UserTypeFilter(state.UserType))
	}
	if !models.IsUnrestricted(state.Gender) {
		filters = append(filters, GenderFilter(state.Gender))
	}
	if !models.IsUnrestricted(state.AgeGroup) {
		filters = append(filters, AgeGroupFilter(state.AgeGroup))
	}
	if state.Hours != nil && !state.Hours.IsFull() {
		filters = append(filters, HourRangeFilter(*state.Hours))
	}
	return filters
}

// ApplyFilters runs each filter as its own pass over the previous result
func ApplyFilters(table *dataset.Table, filters ...Filter) *dataset.Table {
	out := table
	for _, f := range filters {
		out = out.Filter(f.Keep)
	}
	if out == table {
		// Always hand back a derived table, never the shared one
		out = table.Filter(func(models.TripRecord) bool { return true })
	}
	return out
}

// Apply filters table by state. The result may be empty.
func Apply(table *dataset.Table, state models.FilterState) *dataset.Table {
	return ApplyFilters(table, Filters(state)...)
}
