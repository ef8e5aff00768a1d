package models

import "time"

// User types present in the dataset
const (
	UserTypeSubscriber = "Subscriber"
	UserTypeCustomer   = "Customer"
)

// Member genders present in the dataset
const (
	GenderMale   = "Male"
	GenderFemale = "Female"
	GenderOther  = "Other"
)

// UserTypes lists the accepted user_type values in display order
var UserTypes = []string{UserTypeSubscriber, UserTypeCustomer}

// Genders lists the accepted member_gender values in display order
var Genders = []string{GenderMale, GenderFemale, GenderOther}

// AgeGroups lists the fixed age buckets assigned during preprocessing
var AgeGroups = []string{"15-24", "25-34", "35-44", "45-54", "55-64", "65-80"}

// Age bounds kept by the cleaning job (inclusive)
const (
	MinRiderAge = 15
	MaxRiderAge = 80
)

// TripRecord represents one cleaned bikeshare trip
type TripRecord struct {
	// Temporal info
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time,omitempty"`
	DurationSec  float64   `json:"duration_sec,omitempty"`
	DurationMins float64   `json:"duration_mins"`

	// DurationMissing marks a blank duration cell; such rows stay out of duration means
	DurationMissing bool `json:"-"`

	// Stations
	StartStationID   string  `json:"start_station_id"`
	StartStationName string  `json:"start_station_name"`
	StartLat         float64 `json:"start_station_latitude"`
	StartLon         float64 `json:"start_station_longitude"`
	EndStationID     string  `json:"end_station_id"`
	EndStationName   string  `json:"end_station_name"`
	EndLat           float64 `json:"end_station_latitude"`
	EndLon           float64 `json:"end_station_longitude"`

	// Rider
	BikeID          string `json:"bike_id,omitempty"`
	UserType        string `json:"user_type"`     // Subscriber, Customer
	Gender          string `json:"member_gender"` // Male, Female, Other
	BirthYear       int    `json:"member_birth_year"`
	Age             int    `json:"age"`
	AgeGroup        string `json:"age_group"` // one of AgeGroups
	BikeShareForAll bool   `json:"bike_share_for_all_trip"`

	// Derived
	DistanceKm float64      `json:"distance_km,omitempty"`
	StartHour  int          `json:"start_hour"`  // 0-23
	DayOfWeek  time.Weekday `json:"day_of_week"` // weekday of StartTime
}

// DeriveTimeFields fills StartHour and DayOfWeek from StartTime
func (t *TripRecord) DeriveTimeFields() {
	t.StartHour = t.StartTime.Hour()
	t.DayOfWeek = t.StartTime.Weekday()
}

// AgeGroupFor returns the bucket label for an age, or "" when outside the kept range
func AgeGroupFor(age int) string {
	switch {
	case age < MinRiderAge || age > MaxRiderAge:
		return ""
	case age <= 24:
		return "15-24"
	case age <= 34:
		return "25-34"
	case age <= 44:
		return "35-44"
	case age <= 54:
		return "45-54"
	case age <= 64:
		return "55-64"
	default:
		return "65-80"
	}
}

// IsUserType reports whether v is a known user type
func IsUserType(v string) bool {
	return contains(UserTypes, v)
}

// IsGender reports whether v is a known gender tag
func IsGender(v string) bool {
	return contains(Genders, v)
}

// IsAgeGroup reports whether v is one of the fixed age buckets
func IsAgeGroup(v string) bool {
	return contains(AgeGroups, v)
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
