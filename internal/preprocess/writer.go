package preprocess

import (
	"fmt"
	"io"
	"log"
	"os"
	"strconv"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/jengzang/gobike-dashboard/internal/dataset"
	"github.com/jengzang/gobike-dashboard/internal/models"
)

// ToFrame lays cleaned trips out in dataset.CleanedColumns order
func ToFrame(trips []models.TripRecord) dataframe.DataFrame {
	cols := make(map[string][]string, len(dataset.CleanedColumns))
	for _, name := range dataset.CleanedColumns {
		cols[name] = make([]string, len(trips))
	}

	for i, t := range trips {
		cols[dataset.ColStartTime][i] = t.StartTime.Format(dataset.TimestampLayout)
		if !t.EndTime.IsZero() {
			cols[dataset.ColEndTime][i] = t.EndTime.Format(dataset.TimestampLayout)
		}
		cols[dataset.ColDurationSec][i] = formatFloat(t.DurationSec)
		if !t.DurationMissing {
			cols[dataset.ColDurationMins][i] = formatFloat(t.DurationMins)
		}
		cols[dataset.ColStartStationID][i] = t.StartStationID
		cols[dataset.ColStartStationName][i] = t.StartStationName
		cols[dataset.ColStartLat][i] = formatFloat(t.StartLat)
		cols[dataset.ColStartLon][i] = formatFloat(t.StartLon)
		cols[dataset.ColEndStationID][i] = t.EndStationID
		cols[dataset.ColEndStationName][i] = t.EndStationName
		cols[dataset.ColEndLat][i] = formatFloat(t.EndLat)
		cols[dataset.ColEndLon][i] = formatFloat(t.EndLon)
		cols[dataset.ColBikeID][i] = t.BikeID
		cols[dataset.ColUserType][i] = t.UserType
		cols[dataset.ColBirthYear][i] = strconv.Itoa(t.BirthYear)
		cols[dataset.ColGender][i] = t.Gender
		cols[dataset.ColBikeShareForAll][i] = yesNo(t.BikeShareForAll)
		cols[dataset.ColAge][i] = strconv.Itoa(t.Age)
		cols[dataset.ColAgeGroup][i] = t.AgeGroup
		cols[dataset.ColDistanceKm][i] = formatFloat(t.DistanceKm)
	}

	ss := make([]series.Series, len(dataset.CleanedColumns))
	for i, name := range dataset.CleanedColumns {
		ss[i] = series.New(cols[name], series.String, name)
	}
	return dataframe.New(ss...)
}

// WriteCSV writes cleaned trips as CSV with a header row
func WriteCSV(w io.Writer, trips []models.TripRecord) error {
	if err := ToFrame(trips).WriteCSV(w); err != nil {
		return fmt.Errorf("failed to write cleaned csv: %w", err)
	}
	return nil
}

// WriteCSVFile writes cleaned trips to path
func WriteCSVFile(path string, trips []models.TripRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := WriteCSV(f, trips); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	log.Printf("[Preprocess] Wrote %d cleaned rows to %s", len(trips), path)
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
