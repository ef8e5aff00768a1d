package pipeline

import (
	"sort"

	"github.com/jengzang/gobike-dashboard/internal/dataset"
	"github.com/jengzang/gobike-dashboard/internal/models"
)

// Station ranking defaults
const (
	DefaultTopStations = 8
	DefaultLabelWidth  = 30
)

// TopStations ranks start stations by trip count, descending. Equal counts are
// ordered by station name so the ranking does not depend on row order.
// n <= 0 uses DefaultTopStations; labelWidth <= 0 disables truncation.
func TopStations(table *dataset.Table, n, labelWidth int) []models.StationCount {
	if n <= 0 {
		n = DefaultTopStations
	}

	counts := make(map[string]int)
	table.Each(func(r models.TripRecord) bool {
		counts[r.StartStationName]++
		return true
	})

	ranked := make([]models.StationCount, 0, len(counts))
	for name, trips := range counts {
		ranked = append(ranked, models.StationCount{Station: name, Trips: trips})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Trips != ranked[j].Trips {
			return ranked[i].Trips > ranked[j].Trips
		}
		return ranked[i].Station < ranked[j].Station
	})

	if len(ranked) > n {
		ranked = ranked[:n]
	}
	for i := range ranked {
		ranked[i].Label = TruncateLabel(ranked[i].Station, labelWidth)
	}
	return ranked
}
