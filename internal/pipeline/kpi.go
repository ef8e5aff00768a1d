package pipeline

import (
	"github.com/jengzang/gobike-dashboard/internal/dataset"
	"github.com/jengzang/gobike-dashboard/internal/models"
	"github.com/jengzang/gobike-dashboard/internal/stats"
)

// EmptyKPIs is the KPI tuple reported for an empty filtered set
func EmptyKPIs() models.KPIs {
	return models.KPIs{
		TotalTrips:        "0",
		AvgDuration:       models.NoDataSentinel,
		SubscriberPercent: "0%",
		ActiveStations:    "0",
	}
}

// ComputeKPIs derives the headline figures of a filtered table
func ComputeKPIs(table *dataset.Table) models.KPIs {
	if table.IsEmpty() {
		return EmptyKPIs()
	}

	var (
		count       int
		subscribers int
	)
	durations := make([]float64, 0, table.Len())
	stations := make(map[string]struct{})

	table.Each(func(r models.TripRecord) bool {
		count++
		if r.UserType == models.UserTypeSubscriber {
			subscribers++
		}
		if !r.DurationMissing {
			durations = append(durations, r.DurationMins)
		}
		stations[r.StartStationID] = struct{}{}
		return true
	})

	share := float64(subscribers) / float64(count) * 100

	kpis := models.KPIs{
		TotalTrips:         FormatCount(count),
		AvgDuration:        models.NoDataSentinel,
		SubscriberPercent:  FormatPercent(share),
		ActiveStations:     FormatCount(len(stations)),
		TripCount:          count,
		SubscriberShare:    share,
		ActiveStationCount: len(stations),
	}

	if table.HasDuration() && len(durations) > 0 {
		mean := stats.Mean(durations)
		kpis.MeanDurationMinutes = &mean
		kpis.AvgDuration = FormatMinutes(mean)
	}

	return kpis
}
