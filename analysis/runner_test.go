package analysis

import (
	"context"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uyouii/kstail/aggregate"
	"github.com/uyouii/kstail/common"
	"github.com/uyouii/kstail/kstest"
	"github.com/uyouii/kstail/metrics"
	"github.com/uyouii/kstail/model"
	"github.com/uyouii/kstail/source"
)

// seasonal builds a 360-day daily single-point series from one value per
// sample index, so index/30 gives the month.
func seasonal(n int, value func(i int) float64) *model.TimeSeries {
	ts := &model.TimeSeries{
		Variable:  "prec",
		Calendar:  "360_day",
		Units:     "days since 1961-01-01",
		Locations: []model.Location{{Lat: 47.5, Lon: 8.5}},
	}
	for i := 0; i < n; i++ {
		ts.Offsets = append(ts.Offsets, float64(i))
		ts.Values = append(ts.Values, []float64{value(i)})
	}
	return ts
}

func monthOf(i int) int {
	return (i%360)/30 + 1
}

func newRunner(t *testing.T, m *metrics.Metrics, mutate func(*Options)) *Runner {
	opts := DefaultOptions()
	opts.Workers = 4
	if mutate != nil {
		mutate(&opts)
	}
	r, err := NewRunner(opts, m, clockwork.NewFakeClock())
	require.NoError(t, err)
	return r
}

func TestRunIdenticalSeries(t *testing.T) {
	value := func(i int) float64 { return float64(i%37) * 0.5 }
	obs := seasonal(720, value)
	hist := seasonal(720, value)
	fut := seasonal(720, func(i int) float64 { return value(i) * 3 })

	report, err := newRunner(t, nil, nil).Run(context.Background(), Inputs{
		Observed: obs, Historical: hist, Future: fut, Variable: "prec",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, aggregate.SeasonOrder, report.Seasons)

	histObs := report.Tables[model.HistObs]
	histFut := report.Tables[model.HistFut]
	require.NotNil(t, histObs)
	require.NotNil(t, histFut)
	assert.Equal(t, aggregate.SeasonOrder, histObs.Seasons())

	for _, s := range aggregate.SeasonOrder {
		res := histObs.Get(s, 0)
		require.True(t, res.Defined(), s.String())
		assert.Equal(t, 0.0, res.Statistic)
		assert.Equal(t, 1.0, res.PValue)

		// the scaled future series shares the observed threshold, so its tail is heavier
		futRes := histFut.Get(s, 0)
		require.True(t, futRes.Defined(), s.String())
		assert.Greater(t, futRes.Statistic, 0.0)
	}
	require.NotNil(t, report.Histogram)
	assert.Len(t, report.Histogram.Seasons, 4)
}

func TestRunDryJJA(t *testing.T) {
	value := func(i int) float64 {
		switch monthOf(i) {
		case 6, 7, 8:
			return 0.05
		default:
			return float64(i%23) + 0.5
		}
	}
	m := metrics.NewMetrics(nil)

	report, err := newRunner(t, m, nil).Run(context.Background(), Inputs{
		Observed:   seasonal(360, value),
		Historical: seasonal(360, value),
		Future:     seasonal(360, value),
		Variable:   "prec",
	})
	require.NoError(t, err)

	_, ok := report.Thresholds.Lookup(model.JJA, 0)
	assert.False(t, ok)

	for _, pair := range model.AllPairs {
		table := report.Tables[pair]
		assert.False(t, table.Get(model.JJA, 0).Defined(), string(pair))
		for _, s := range []model.Season{model.DJF, model.MAM, model.SON} {
			assert.Equal(t, kstest.Result{Statistic: 0, PValue: 1}, table.Get(s, 0), "%s %s", pair, s)
		}
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(m.EmptyThresholds.WithLabelValues("JJA")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Comparisons.WithLabelValues("hist_obs", "JJA", metrics.OutcomeDegenerate)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Comparisons.WithLabelValues("hist_fut", "DJF", metrics.OutcomeDefined)))
}

func TestRunWetDayScenario(t *testing.T) {
	// four wet DJF days: the 85th percentile is 5.55, only 6.0 lies above it
	values := []float64{0.2, 0.3, 5.0, 6.0}
	build := func() *model.TimeSeries {
		return &model.TimeSeries{
			Variable:  "prec",
			Calendar:  "standard",
			Units:     "days since 2000-01-01",
			Offsets:   []float64{0, 1, 2, 3},
			Locations: []model.Location{model.SinglePoint},
			Values:    [][]float64{{values[0]}, {values[1]}, {values[2]}, {values[3]}},
		}
	}

	report, err := newRunner(t, nil, func(o *Options) { o.Seasons = aggregate.ReducedSeasons }).
		Run(context.Background(), Inputs{Observed: build(), Historical: build(), Variable: "prec"})
	require.NoError(t, err)

	thr, ok := report.Thresholds.Lookup(model.DJF, 0)
	require.True(t, ok)
	assert.InDelta(t, 5.55, thr, 1e-9)

	assert.Equal(t, kstest.Result{Statistic: 0, PValue: 1}, report.Tables[model.HistObs].Get(model.DJF, 0))
	assert.False(t, report.Tables[model.HistObs].Get(model.JJA, 0).Defined())
	assert.NotContains(t, report.Tables, model.HistFut)
	assert.Equal(t, aggregate.ReducedSeasons, report.Tables[model.HistObs].Seasons())
}

func TestRunGrid(t *testing.T) {
	locations := []model.Location{{Lat: 1, Lon: 1}, {Lat: 1, Lon: 2}, {Lat: 2, Lon: 1}}
	grid := func(scale []float64) *model.TimeSeries {
		ts := &model.TimeSeries{
			Variable:  "prec",
			Calendar:  "360_day",
			Units:     "days since 1961-01-01",
			Locations: locations,
		}
		for i := 0; i < 360; i++ {
			ts.Offsets = append(ts.Offsets, float64(i))
			row := make([]float64, len(locations))
			for loc := range row {
				row[loc] = float64(i%17+1) * scale[loc]
			}
			ts.Values = append(ts.Values, row)
		}
		return ts
	}
	obs := grid([]float64{1, 1, 1})
	// the last location has no data at all
	hist := grid([]float64{1, 2, math.NaN()})

	report, err := newRunner(t, nil, func(o *Options) { o.Seasons = aggregate.ReducedSeasons }).
		Run(context.Background(), Inputs{Observed: obs, Historical: hist, Future: grid([]float64{1, 1, 1}), Variable: "prec"})
	require.NoError(t, err)
	assert.Nil(t, report.Histogram)

	table := report.Tables[model.HistObs]
	for _, s := range aggregate.ReducedSeasons {
		assert.Equal(t, kstest.Result{Statistic: 0, PValue: 1}, table.Get(s, 0))
		assert.Greater(t, table.Get(s, 1).Statistic, 0.0)
		assert.False(t, table.Get(s, 2).Defined())
	}

	payload := report.PlotPayload("grid")
	assert.Contains(t, payload.Significance, "hist_obs")
	assert.Contains(t, payload.Significance, "hist_fut")
	assert.Len(t, payload.Significance["hist_obs"], 2)
}

func TestRunSinglePointObservationsBroadcast(t *testing.T) {
	value := func(i int) float64 { return float64(i%11) + 0.5 }
	obs := seasonal(360, value)
	hist := seasonal(360, value)
	hist.Locations = []model.Location{{Lat: 1, Lon: 1}, {Lat: 1, Lon: 2}}
	for i := range hist.Values {
		hist.Values[i] = []float64{value(i), value(i)}
	}

	report, err := newRunner(t, nil, nil).Run(context.Background(), Inputs{Observed: obs, Historical: hist, Variable: "prec"})
	require.NoError(t, err)
	for loc := 0; loc < 2; loc++ {
		assert.Equal(t, kstest.Result{Statistic: 0, PValue: 1}, report.Tables[model.HistObs].Get(model.SON, loc))
	}
}

// cellValue gives every coordinate its own seasonal series, so pairing two
// different cells always yields a nonzero statistic.
func cellValue(l model.Location, i int) float64 {
	if l.Lon == 1 {
		return float64(i%17)*0.5 + 0.2
	}
	return float64(i%11)*3 + 10
}

func gridIn(order []model.Location) *model.TimeSeries {
	ts := &model.TimeSeries{
		Variable:  "prec",
		Calendar:  "360_day",
		Units:     "days since 1961-01-01",
		Locations: order,
	}
	for i := 0; i < 360; i++ {
		ts.Offsets = append(ts.Offsets, float64(i))
		row := make([]float64, len(order))
		for loc, l := range order {
			row[loc] = cellValue(l, i)
		}
		ts.Values = append(ts.Values, row)
	}
	return ts
}

func TestRunGridMatchesLocationsByCoordinate(t *testing.T) {
	a, b := model.Location{Lat: 1, Lon: 1}, model.Location{Lat: 1, Lon: 2}
	hist := gridIn([]model.Location{b, a})

	report, err := newRunner(t, nil, nil).Run(context.Background(), Inputs{
		Observed:   gridIn([]model.Location{a, b}),
		Historical: hist,
		Future:     gridIn([]model.Location{a, b}),
		Variable:   "prec",
	})
	require.NoError(t, err)

	assert.Equal(t, []model.Location{b, a}, report.Locations)
	for _, pair := range model.AllPairs {
		for _, s := range aggregate.SeasonOrder {
			for loc := range hist.Locations {
				assert.Equal(t, kstest.Result{Statistic: 0, PValue: 1}, report.Tables[pair].Get(s, loc),
					"%s %s %s", pair, s, hist.Locations[loc].Key())
			}
		}
	}
}

func gridCSV(order []model.Location) string {
	var b strings.Builder
	b.WriteString("# calendar: 360_day\n# units: days since 1961-01-01\ntime,lat,lon,prec\n")
	for i := 0; i < 360; i++ {
		for _, l := range order {
			fmt.Fprintf(&b, "%d,%g,%g,%g\n", i, l.Lat, l.Lon, cellValue(l, i))
		}
	}
	return b.String()
}

func TestRunGridFromPermutedCSV(t *testing.T) {
	ctx := context.Background()
	a, b := model.Location{Lat: 1, Lon: 1}, model.Location{Lat: 1, Lon: 2}
	obs, err := source.ReadCSV(ctx, strings.NewReader(gridCSV([]model.Location{a, b})), "prec")
	require.NoError(t, err)
	hist, err := source.ReadCSV(ctx, strings.NewReader(gridCSV([]model.Location{b, a})), "prec")
	require.NoError(t, err)

	report, err := newRunner(t, nil, func(o *Options) { o.Seasons = aggregate.ReducedSeasons }).
		Run(ctx, Inputs{Observed: obs, Historical: hist, Variable: "prec"})
	require.NoError(t, err)

	table := report.Tables[model.HistObs]
	for _, s := range aggregate.ReducedSeasons {
		for loc := range report.Locations {
			assert.Equal(t, kstest.Result{Statistic: 0, PValue: 1}, table.Get(s, loc), "%s %d", s, loc)
		}
	}
}

func TestRunInputErrors(t *testing.T) {
	good := func() *model.TimeSeries { return seasonal(60, func(i int) float64 { return 1 }) }

	tests := []struct {
		name string
		in   func() Inputs
	}{
		{"missing observations", func() Inputs {
			return Inputs{Historical: good(), Variable: "prec"}
		}},
		{"wrong variable", func() Inputs {
			return Inputs{Observed: good(), Historical: good(), Variable: "tas"}
		}},
		{"empty series", func() Inputs {
			empty := good()
			empty.Offsets, empty.Values = nil, nil
			return Inputs{Observed: good(), Historical: empty, Variable: "prec"}
		}},
		{"bad units", func() Inputs {
			bad := good()
			bad.Units = "moons since 1961-01-01"
			return Inputs{Observed: good(), Historical: good(), Future: bad, Variable: "prec"}
		}},
		{"location mismatch", func() Inputs {
			fut := good()
			fut.Locations = append(fut.Locations, model.Location{Lat: 3, Lon: 3})
			for i := range fut.Values {
				fut.Values[i] = append(fut.Values[i], 1)
			}
			return Inputs{Observed: good(), Historical: good(), Future: fut, Variable: "prec"}
		}},
		{"different coordinates", func() Inputs {
			a, b, c := model.Location{Lat: 1, Lon: 1}, model.Location{Lat: 1, Lon: 2}, model.Location{Lat: 2, Lon: 2}
			return Inputs{Observed: gridIn([]model.Location{a, c}), Historical: gridIn([]model.Location{a, b}), Variable: "prec"}
		}},
		{"future on other coordinates", func() Inputs {
			a, b, c := model.Location{Lat: 1, Lon: 1}, model.Location{Lat: 1, Lon: 2}, model.Location{Lat: 2, Lon: 2}
			return Inputs{Observed: gridIn([]model.Location{a, b}), Historical: gridIn([]model.Location{a, b}),
				Future: gridIn([]model.Location{b, c}), Variable: "prec"}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newRunner(t, nil, nil).Run(context.Background(), tt.in())
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrInput)
		})
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	value := func(i int) float64 { return float64(i % 5) }
	_, err := newRunner(t, nil, nil).Run(ctx, Inputs{Observed: seasonal(90, value), Historical: seasonal(90, value), Variable: "prec"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewRunnerInvalid(t *testing.T) {
	opts := DefaultOptions()
	opts.Workers = 0
	_, err := NewRunner(opts, nil, nil)
	assert.ErrorIs(t, err, common.ErrorInvalidValue)

	opts = DefaultOptions()
	opts.Seasons = nil
	_, err = NewRunner(opts, nil, nil)
	assert.ErrorIs(t, err, common.ErrorInvalidValue)
}
