package spatial

import (
	"math"

	"github.com/golang/geo/s2"
)

// EarthRadiusMeters is the mean Earth radius used for great-circle distances
const EarthRadiusMeters = 6371008.8

// HaversineDistance calculates the great-circle distance between two points in meters
func HaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	p1 := s2.LatLngFromDegrees(lat1, lon1)
	p2 := s2.LatLngFromDegrees(lat2, lon2)
	return p1.Distance(p2).Radians() * EarthRadiusMeters
}

// TripDistanceKm returns the straight-line distance between the start and end
// stations in kilometers, rounded to meters. Invalid coordinates yield 0.
func TripDistanceKm(startLat, startLon, endLat, endLon float64) float64 {
	if !ValidCoordinate(startLat, startLon) || !ValidCoordinate(endLat, endLon) {
		return 0
	}
	km := HaversineDistance(startLat, startLon, endLat, endLon) / 1000
	return math.Round(km*1000) / 1000
}

// ValidCoordinate reports whether lat/lon form a usable, non-null-island position
func ValidCoordinate(lat, lon float64) bool {
	if lat == 0 || lon == 0 {
		return false
	}
	return s2.LatLngFromDegrees(lat, lon).IsValid()
}
