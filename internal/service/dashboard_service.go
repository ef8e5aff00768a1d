package service

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sahilm/fuzzy"

	"github.com/jengzang/gobike-dashboard/internal/dataset"
	"github.com/jengzang/gobike-dashboard/internal/metrics"
	"github.com/jengzang/gobike-dashboard/internal/models"
	"github.com/jengzang/gobike-dashboard/internal/pipeline"
)

// MaxTopStations bounds the ranking size a client may request
const MaxTopStations = 50

// DefaultSearchLimit is the number of station matches returned when none is requested
const DefaultSearchLimit = 10

// Loader produces a fresh trip table
type Loader func(ctx context.Context) (*dataset.Table, *dataset.LoadReport, error)

// CSVLoader loads the cleaned CSV at path
func CSVLoader(path string) Loader {
	return func(ctx context.Context) (*dataset.Table, *dataset.LoadReport, error) {
		return dataset.LoadCSVFile(path)
	}
}

// SourceLoader loads from a record source such as the SQLite snapshot
func SourceLoader(src dataset.RecordSource, name, path string) Loader {
	return func(ctx context.Context) (*dataset.Table, *dataset.LoadReport, error) {
		table, report, err := dataset.LoadFromSource(ctx, src, name)
		if err != nil {
			return nil, nil, err
		}
		report.Path = path
		return table, report, nil
	}
}

// snapshot is an immutable loaded dataset with its derived search index
type snapshot struct {
	table    *dataset.Table
	report   *dataset.LoadReport
	stations stationIndex
}

// DashboardService serves dashboard evaluations against the current table
type DashboardService struct {
	current  atomic.Pointer[snapshot]
	loader   Loader
	opts     pipeline.Options
	reloadMu sync.Mutex
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(loader Loader, opts pipeline.Options) *DashboardService {
	if opts.TopStations <= 0 {
		opts.TopStations = pipeline.DefaultTopStations
	}
	if opts.LabelWidth <= 0 {
		opts.LabelWidth = pipeline.DefaultLabelWidth
	}
	return &DashboardService{loader: loader, opts: opts}
}

// Reload builds a new table with the loader and swaps it in. On failure the
// previous table keeps being served.
func (s *DashboardService) Reload(ctx context.Context, trigger string) (*models.DatasetInfo, error) {
	if s.loader == nil {
		return nil, fmt.Errorf("%w: no loader configured", dataset.ErrNoDataset)
	}

	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	start := time.Now()
	table, report, err := s.loader(ctx)
	metrics.RecordReload(trigger, err)
	if err != nil {
		log.Printf("[Dashboard] Reload (%s) failed: %v", trigger, err)
		return nil, fmt.Errorf("failed to reload dataset: %w", err)
	}

	s.SetTable(table, report)
	if len(report.Reasons) > 0 {
		log.Printf("[Dashboard] Quarantined rows by reason: %v", report.SortedReasons())
	}
	log.Printf("[Dashboard] Reload (%s) complete: %d rows in %v", trigger, table.Len(), time.Since(start))

	info := infoFrom(report)
	return &info, nil
}

// SetTable replaces the served table
func (s *DashboardService) SetTable(table *dataset.Table, report *dataset.LoadReport) {
	if report == nil {
		report = &dataset.LoadReport{Source: "memory", LoadedAt: time.Now()}
	}
	report.Rows = table.Len()
	report.HasDuration = table.HasDuration()

	s.current.Store(&snapshot{
		table:    table,
		report:   report,
		stations: buildStationIndex(table),
	})
	metrics.SetDataset(table.Len(), report.Quarantined)
}

func (s *DashboardService) load() (*snapshot, error) {
	snap := s.current.Load()
	if snap == nil {
		return nil, dataset.ErrNoDataset
	}
	return snap, nil
}

// Evaluate validates the filter and computes the dashboard bundle. channel
// labels the evaluation in metrics (http, ws, export).
func (s *DashboardService) Evaluate(state models.FilterState, top int, channel string) (models.ResultBundle, error) {
	if err := state.Validate(); err != nil {
		return models.ResultBundle{}, err
	}
	if top < 0 || top > MaxTopStations {
		return models.ResultBundle{}, fmt.Errorf("%w: top must be between 0 and %d", models.ErrInvalidFilter, MaxTopStations)
	}

	snap, err := s.load()
	if err != nil {
		return models.ResultBundle{}, err
	}

	opts := s.opts
	if top > 0 {
		opts.TopStations = top
	}

	start := time.Now()
	bundle := pipeline.Evaluate(snap.table, state, opts)
	metrics.RecordEvaluation(channel, bundle.Empty, time.Since(start))
	return bundle, nil
}

// Options returns the filter widget values
func (s *DashboardService) Options() models.FilterOptions {
	return pipeline.FilterOptions()
}

// DatasetInfo describes the served table
func (s *DashboardService) DatasetInfo() (models.DatasetInfo, error) {
	snap, err := s.load()
	if err != nil {
		return models.DatasetInfo{}, err
	}
	return infoFrom(snap.report), nil
}

func infoFrom(r *dataset.LoadReport) models.DatasetInfo {
	return models.DatasetInfo{
		Source:      r.Source,
		Path:        r.Path,
		Rows:        r.Rows,
		Quarantined: r.Quarantined,
		HasDuration: r.HasDuration,
		LoadedAt:    r.LoadedAt,
	}
}

// stationIndex lists distinct start stations; it implements fuzzy.Source
type stationIndex []models.StationMatch

func (idx stationIndex) String(i int) string { return idx[i].StationName }
func (idx stationIndex) Len() int            { return len(idx) }

func buildStationIndex(table *dataset.Table) stationIndex {
	seen := make(map[string]string)
	table.Each(func(r models.TripRecord) bool {
		if _, ok := seen[r.StartStationName]; !ok {
			seen[r.StartStationName] = r.StartStationID
		}
		return true
	})

	idx := make(stationIndex, 0, len(seen))
	for name, id := range seen {
		idx = append(idx, models.StationMatch{StationID: id, StationName: name})
	}
	sort.Slice(idx, func(i, j int) bool { return idx[i].StationName < idx[j].StationName })
	return idx
}

// SearchStations fuzzy-matches start station names. An empty query lists
// stations alphabetically.
func (s *DashboardService) SearchStations(query string, limit int) ([]models.StationMatch, error) {
	snap, err := s.load()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	out := []models.StationMatch{}
	if query == "" {
		for i := 0; i < len(snap.stations) && i < limit; i++ {
			out = append(out, snap.stations[i])
		}
		return out, nil
	}

	for _, m := range fuzzy.FindFrom(query, snap.stations) {
		if len(out) == limit {
			break
		}
		hit := snap.stations[m.Index]
		hit.Score = m.Score
		out = append(out, hit)
	}
	return out, nil
}
