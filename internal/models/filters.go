package models

import (
	"errors"
	"fmt"
)

// FilterAll is the "no restriction" sentinel for categorical filters
const FilterAll = "All"

// Hour-of-day bounds accepted by the hour range filter
const (
	MinHour = 0
	MaxHour = 23
)

// ErrInvalidFilter is returned by FilterState.Validate
var ErrInvalidFilter = errors.New("invalid filter")

// HourRange is an inclusive start-hour range
type HourRange struct {
	Lo int `json:"lo" form:"hourMin"`
	Hi int `json:"hi" form:"hourMax"`
}

// Contains reports whether hour falls within the range (both ends inclusive)
func (r HourRange) Contains(hour int) bool {
	return hour >= r.Lo && hour <= r.Hi
}

// IsFull reports whether the range covers the whole day
func (r HourRange) IsFull() bool {
	return r.Lo <= MinHour && r.Hi >= MaxHour
}

// FilterState holds the four dashboard filters. It lives for a single evaluation.
type FilterState struct {
	UserType string     `json:"user_type"` // All, Subscriber, Customer
	Gender   string     `json:"gender"`    // All, Male, Female, Other
	AgeGroup string     `json:"age_group"` // All or one of AgeGroups
	Hours    *HourRange `json:"hours,omitempty"`
}

// DefaultFilterState returns the widgets' initial values
func DefaultFilterState() FilterState {
	return FilterState{
		UserType: FilterAll,
		Gender:   FilterAll,
		AgeGroup: FilterAll,
		Hours:    &HourRange{Lo: MinHour, Hi: MaxHour},
	}
}

// IsUnrestricted reports whether a categorical filter value means "All"
func IsUnrestricted(v string) bool {
	return v == "" || v == FilterAll
}

// Validate checks enum values and the hour range
func (f FilterState) Validate() error {
	if !IsUnrestricted(f.UserType) && !IsUserType(f.UserType) {
		return fmt.Errorf("%w: unknown user type %q", ErrInvalidFilter, f.UserType)
	}
	if !IsUnrestricted(f.Gender) && !IsGender(f.Gender) {
		return fmt.Errorf("%w: unknown gender %q", ErrInvalidFilter, f.Gender)
	}
	if !IsUnrestricted(f.AgeGroup) && !IsAgeGroup(f.AgeGroup) {
		return fmt.Errorf("%w: unknown age group %q", ErrInvalidFilter, f.AgeGroup)
	}
	if f.Hours != nil {
		if f.Hours.Lo < MinHour || f.Hours.Hi > MaxHour || f.Hours.Lo > f.Hours.Hi {
			return fmt.Errorf("%w: hour range [%d,%d] outside 0..23 or reversed",
				ErrInvalidFilter, f.Hours.Lo, f.Hours.Hi)
		}
	}
	return nil
}

// DashboardQuery represents the query parameters of the dashboard endpoints
type DashboardQuery struct {
	UserType string `form:"userType"`
	Gender   string `form:"gender"`
	AgeGroup string `form:"ageGroup"`
	HourMin  *int   `form:"hourMin"`
	HourMax  *int   `form:"hourMax"`
	Top      int    `form:"top"` // stations in the ranking, 0 = server default
}

// FilterState converts the query into a filter value. A missing bound defaults to
// the edge of the day; both missing leaves the hour range unset.
func (q DashboardQuery) FilterState() FilterState {
	f := FilterState{
		UserType: q.UserType,
		Gender:   q.Gender,
		AgeGroup: q.AgeGroup,
	}
	if q.HourMin != nil || q.HourMax != nil {
		r := HourRange{Lo: MinHour, Hi: MaxHour}
		if q.HourMin != nil {
			r.Lo = *q.HourMin
		}
		if q.HourMax != nil {
			r.Hi = *q.HourMax
		}
		f.Hours = &r
	}
	return f
}

// StationSearchQuery represents the query parameters of the station search endpoint
type StationSearchQuery struct {
	Q     string `form:"q"`
	Limit int    `form:"limit"`
}
