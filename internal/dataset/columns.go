package dataset

import (
	"fmt"
	"strings"
	"time"
)

// Cleaned table column names
const (
	ColStartTime        = "start_time"
	ColEndTime          = "end_time"
	ColDurationSec      = "duration_sec"
	ColDurationMins     = "duration_mins"
	ColStartStationID   = "start_station_id"
	ColStartStationName = "start_station_name"
	ColStartLat         = "start_station_latitude"
	ColStartLon         = "start_station_longitude"
	ColEndStationID     = "end_station_id"
	ColEndStationName   = "end_station_name"
	ColEndLat           = "end_station_latitude"
	ColEndLon           = "end_station_longitude"
	ColBikeID           = "bike_id"
	ColUserType         = "user_type"
	ColBirthYear        = "member_birth_year"
	ColGender           = "member_gender"
	ColBikeShareForAll  = "bike_share_for_all_trip"
	ColAge              = "age"
	ColAgeGroup         = "age_group"
	ColDistanceKm       = "distance_km"
)

// CleanedColumns is the column order written by the preprocessing job
var CleanedColumns = []string{
	ColStartTime, ColEndTime, ColDurationSec, ColDurationMins,
	ColStartStationID, ColStartStationName, ColStartLat, ColStartLon,
	ColEndStationID, ColEndStationName, ColEndLat, ColEndLon,
	ColBikeID, ColUserType, ColBirthYear, ColGender, ColBikeShareForAll,
	ColAge, ColAgeGroup, ColDistanceKm,
}

// RequiredColumns must be present for the dashboard to work at all
var RequiredColumns = []string{
	ColStartTime, ColUserType, ColGender, ColStartStationID, ColStartStationName,
}

// TimestampLayout is the layout written for start_time/end_time
const TimestampLayout = "2006-01-02 15:04:05.000"

var timestampLayouts = []string{
	"2006-01-02 15:04:05", // fractional seconds are accepted after the seconds field
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
}

// ParseTimestamp parses the timestamp formats found in trip exports
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
