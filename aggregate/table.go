package aggregate

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"github.com/uyouii/kstail/common"
	"github.com/uyouii/kstail/kstest"
	"github.com/uyouii/kstail/model"
)

const (
	StatisticColumn = "statistic"
	PValueColumn    = "pvalue"
)

// Table holds the results of one comparison pair keyed by season and
// location. Set is safe for concurrent use.
type Table struct {
	Pair      model.Pair
	Locations []model.Location

	mu    sync.RWMutex
	cells map[model.Season][]kstest.Result
}

// NewTable declares a column for each season, every cell starts undefined.
func NewTable(pair model.Pair, seasons []model.Season, locations []model.Location) *Table {
	t := &Table{
		Pair:      pair,
		Locations: locations,
		cells:     map[model.Season][]kstest.Result{},
	}
	for _, s := range seasons {
		t.column(s)
	}
	return t
}

func (t *Table) column(s model.Season) []kstest.Result {
	col, ok := t.cells[s]
	if !ok {
		col = make([]kstest.Result, len(t.Locations))
		for i := range col {
			col[i] = kstest.Undefined()
		}
		t.cells[s] = col
	}
	return col
}

func (t *Table) Set(s model.Season, loc int, res kstest.Result) error {
	if loc < 0 || loc >= len(t.Locations) {
		return fmt.Errorf("location index %d out of %d: %w", loc, len(t.Locations), common.ErrorInvalidValue)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.column(s)[loc] = res
	return nil
}

func (t *Table) Get(s model.Season, loc int) kstest.Result {
	t.mu.RLock()
	defer t.mu.RUnlock()
	col, ok := t.cells[s]
	if !ok || loc < 0 || loc >= len(col) {
		return kstest.Undefined()
	}
	return col[loc]
}

// Seasons returns the table's seasons in SeasonOrder, whatever order they were added in.
func (t *Table) Seasons() []model.Season {
	t.mu.RLock()
	defer t.mu.RUnlock()
	seasons := make([]model.Season, 0, len(t.cells))
	for s := range t.cells {
		seasons = append(seasons, s)
	}
	return SortSeasons(seasons)
}

// Header returns the two header rows of the persisted format.
func (t *Table) Header() [2][]string {
	outer := []string{"lat", "lon"}
	inner := []string{"", ""}
	for _, s := range t.Seasons() {
		outer = append(outer, s.String(), s.String())
		inner = append(inner, StatisticColumn, PValueColumn)
	}
	return [2][]string{outer, inner}
}

// WriteCSV writes two header rows, season then statistic/pvalue, followed by
// one row per location. Undefined values are written as NaN.
func (t *Table) WriteCSV(w io.Writer) error {
	writer := csv.NewWriter(w)

	header := t.Header()
	if err := writer.Write(header[0]); err != nil {
		return err
	}
	if err := writer.Write(header[1]); err != nil {
		return err
	}

	seasons := t.Seasons()
	for loc, location := range t.Locations {
		row := []string{formatValue(location.Lat), formatValue(location.Lon)}
		for _, s := range seasons {
			res := t.Get(s, loc)
			row = append(row, formatValue(res.Statistic), formatValue(res.PValue))
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func formatValue(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Grid is a lat x lon raster of one value per location, NaN where no location exists.
type Grid struct {
	Lats   []Float   `json:"lats"`
	Lons   []Float   `json:"lons"`
	Values [][]Float `json:"values"`
}

// SignificanceGrid returns, per season name, the p-values laid out on the
// lat/lon raster spanned by the table's locations.
func (t *Table) SignificanceGrid() map[string]Grid {
	lats, latIdx := axis(t.Locations, func(l model.Location) float64 { return l.Lat })
	lons, lonIdx := axis(t.Locations, func(l model.Location) float64 { return l.Lon })

	res := map[string]Grid{}
	for _, s := range t.Seasons() {
		values := make([][]Float, len(lats))
		for i := range values {
			values[i] = make([]Float, len(lons))
			for j := range values[i] {
				values[i][j] = Float(math.NaN())
			}
		}
		for loc, location := range t.Locations {
			values[latIdx[location.Key()]][lonIdx[location.Key()]] = Float(t.Get(s, loc).PValue)
		}
		res[s.String()] = Grid{Lats: toFloats(lats), Lons: toFloats(lons), Values: values}
	}
	return res
}

// axis returns the sorted distinct coordinates picked by coord and, per
// location key, the index of its coordinate.
func axis(locations []model.Location, coord func(model.Location) float64) ([]float64, map[string]int) {
	distinct := map[string]float64{}
	for _, l := range locations {
		distinct[formatValue(coord(l))] = coord(l)
	}
	values := make([]float64, 0, len(distinct))
	for _, v := range distinct {
		values = append(values, v)
	}
	sort.Float64s(values)

	position := map[string]int{}
	for i, v := range values {
		position[formatValue(v)] = i
	}
	idx := map[string]int{}
	for _, l := range locations {
		idx[l.Key()] = position[formatValue(coord(l))]
	}
	return values, idx
}

// FuturePath is where the historical vs future table goes next to the
// historical vs observed one at path: "out.csv" becomes "out_future.csv".
func FuturePath(path string) string {
	ext := filepath.Ext(path)
	return path[:len(path)-len(ext)] + "_future" + ext
}
