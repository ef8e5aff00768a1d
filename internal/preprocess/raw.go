package preprocess

import (
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/jengzang/gobike-dashboard/internal/dataset"
)

// RawRequiredColumns must be present in a raw trip export
var RawRequiredColumns = []string{
	dataset.ColStartTime, dataset.ColDurationSec,
	dataset.ColStartStationID, dataset.ColStartStationName,
	dataset.ColEndStationID, dataset.ColEndStationName,
	dataset.ColStartLat, dataset.ColStartLon, dataset.ColEndLat, dataset.ColEndLon,
	dataset.ColUserType, dataset.ColBirthYear, dataset.ColGender,
}

// rawTable holds a raw export as trimmed strings; missing cells are ""
type rawTable struct {
	index map[string]int
	rows  [][]string
}

func newRawTable(df dataframe.DataFrame) *rawTable {
	names := df.Names()
	t := &rawTable{
		index: make(map[string]int, len(names)),
		rows:  make([][]string, df.Nrow()),
	}
	for j, name := range names {
		t.index[strings.TrimSpace(name)] = j
	}

	cols := make([]series.Series, len(names))
	for j, name := range names {
		cols[j] = df.Col(name)
	}
	for i := range t.rows {
		row := make([]string, len(cols))
		for j, s := range cols {
			e := s.Elem(i)
			if e.IsNA() {
				continue
			}
			row[j] = strings.TrimSpace(e.String())
		}
		t.rows[i] = row
	}
	return t
}

func (t *rawTable) has(col string) bool {
	_, ok := t.index[col]
	return ok
}

func (t *rawTable) get(row []string, col string) string {
	j, ok := t.index[col]
	if !ok {
		return ""
	}
	return row[j]
}

func (t *rawTable) set(row []string, col, v string) {
	if j, ok := t.index[col]; ok {
		row[j] = v
	}
}

// rowKey identifies a row for exact-duplicate detection
func rowKey(row []string) string {
	return strings.Join(row, "\x1f")
}
