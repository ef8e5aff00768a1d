package models

import "time"

// Empty-state display values
const (
	NoDataSentinel = "–"
	NoDataMessage  = "No data matches filters"
)

// KPIs holds the four headline figures of the dashboard
type KPIs struct {
	// Display strings
	TotalTrips        string `json:"total_trips"`        // "12,345"
	AvgDuration       string `json:"avg_duration"`       // "11.7 min" or "–"
	SubscriberPercent string `json:"subscriber_percent"` // "89.3%"
	ActiveStations    string `json:"active_stations"`    // "329"

	// Raw values
	TripCount           int      `json:"trip_count"`
	MeanDurationMinutes *float64 `json:"mean_duration_minutes,omitempty"` // nil when unavailable
	SubscriberShare     float64  `json:"subscriber_share"`                // 0-100
	ActiveStationCount  int      `json:"active_station_count"`
}

// WeekdayCount is one bar of the weekday chart
type WeekdayCount struct {
	Day     string `json:"day"`   // Monday
	Short   string `json:"short"` // Mon
	Trips   int    `json:"trips"`
	Weekend bool   `json:"weekend"`
}

// HourCount is one point of the hour-of-day chart
type HourCount struct {
	Hour  int `json:"hour"`
	Trips int `json:"trips"`
}

// TimeSeries groups the weekday and hour distributions
type TimeSeries struct {
	Weekdays [7]WeekdayCount `json:"weekdays"` // Monday..Sunday
	Hours    []HourCount     `json:"hours"`    // ascending, present hours only
}

// CategoryCount is a frequency table entry
type CategoryCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// UserBreakdown groups the user-type and gender frequency tables
type UserBreakdown struct {
	UserTypes []CategoryCount `json:"user_types"`
	Genders   []CategoryCount `json:"genders"`
}

// StationCount is one entry of the top start-station ranking
type StationCount struct {
	Station string `json:"station"` // grouping key, never truncated
	Label   string `json:"label"`   // display label
	Trips   int    `json:"trips"`
}

// AgeGroupSummary holds trips and average duration for one age bucket
type AgeGroupSummary struct {
	AgeGroup        string   `json:"age_group"`
	Trips           int      `json:"trips"`
	AvgDurationMins *float64 `json:"avg_duration_mins,omitempty"`
}

// ResultBundle is the full output of one dashboard evaluation
type ResultBundle struct {
	Filter    FilterState       `json:"filter"`
	KPIs      KPIs              `json:"kpis"`
	Time      TimeSeries        `json:"time"`
	Users     UserBreakdown     `json:"users"`
	Stations  []StationCount    `json:"stations"`
	AgeGroups []AgeGroupSummary `json:"age_groups"`
	Empty     bool              `json:"empty"`
	Message   string            `json:"message,omitempty"`
}

// FilterOptions describes the values the filter widgets may offer
type FilterOptions struct {
	UserTypes []string    `json:"user_types"`
	Genders   []string    `json:"genders"`
	AgeGroups []string    `json:"age_groups"`
	MinHour   int         `json:"min_hour"`
	MaxHour   int         `json:"max_hour"`
	Default   FilterState `json:"default"`
}

// DatasetInfo summarizes the currently loaded table
type DatasetInfo struct {
	Source      string    `json:"source"`
	Path        string    `json:"path"`
	Rows        int       `json:"rows"`
	Quarantined int       `json:"quarantined"`
	HasDuration bool      `json:"has_duration"`
	LoadedAt    time.Time `json:"loaded_at"`
}

// StationMatch is one fuzzy search hit
type StationMatch struct {
	StationID   string `json:"station_id"`
	StationName string `json:"station_name"`
	Score       int    `json:"score"`
}
