package source

import (
	"cmp"
	"math"
	"slices"

	"github.com/uyouii/kstail/model"
)

// builder accumulates (time, location, value) records in any order and lays
// them out as a time x location matrix, times ascending and locations by
// (lat, lon). Absent cells are missing values.
type builder struct {
	variable string
	calendar string
	units    string

	offsets   []float64
	timeIdx   map[float64]int
	locations []model.Location
	locIdx    map[string]int
	cells     map[[2]int]float64
}

func newBuilder(variable, calendar, units string) *builder {
	return &builder{
		variable: variable,
		calendar: calendar,
		units:    units,
		timeIdx:  map[float64]int{},
		locIdx:   map[string]int{},
		cells:    map[[2]int]float64{},
	}
}

func (b *builder) add(offset float64, loc model.Location, value float64) {
	t, ok := b.timeIdx[offset]
	if !ok {
		t = len(b.offsets)
		b.timeIdx[offset] = t
		b.offsets = append(b.offsets, offset)
	}
	l, ok := b.locIdx[loc.Key()]
	if !ok {
		l = len(b.locations)
		b.locIdx[loc.Key()] = l
		b.locations = append(b.locations, loc)
	}
	b.cells[[2]int{t, l}] = value
}

func (b *builder) build() *model.TimeSeries {
	times := sortedOrder(len(b.offsets), func(i, j int) int { return cmp.Compare(b.offsets[i], b.offsets[j]) })
	locs := sortedOrder(len(b.locations), func(i, j int) int {
		li, lj := b.locations[i], b.locations[j]
		if c := cmp.Compare(li.Lat, lj.Lat); c != 0 {
			return c
		}
		return cmp.Compare(li.Lon, lj.Lon)
	})

	offsets := make([]float64, len(times))
	for t, src := range times {
		offsets[t] = b.offsets[src]
	}
	locations := make([]model.Location, len(locs))
	for l, src := range locs {
		locations[l] = b.locations[src]
	}

	values := make([][]float64, len(times))
	for t, srcT := range times {
		row := make([]float64, len(locs))
		for l, srcL := range locs {
			v, ok := b.cells[[2]int{srcT, srcL}]
			if !ok {
				v = math.NaN()
			}
			row[l] = v
		}
		values[t] = row
	}
	return &model.TimeSeries{
		Variable:  b.variable,
		Calendar:  b.calendar,
		Units:     b.units,
		Offsets:   offsets,
		Locations: locations,
		Values:    values,
	}
}

// sortedOrder returns the indexes 0..n-1 ordered by compare.
func sortedOrder(n int, compare func(i, j int) int) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, compare)
	return order
}
