// Package analysis runs the seasonal wet-day tail comparison end to end:
// season tagging, threshold estimation on the observations, per season and
// location filtering and two-sample tests, and aggregation of the results.
package analysis

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/panjf2000/ants/v2"
	"github.com/uyouii/kstail/aggregate"
	"github.com/uyouii/kstail/common"
	"github.com/uyouii/kstail/kstest"
	"github.com/uyouii/kstail/metrics"
	"github.com/uyouii/kstail/model"
	"github.com/uyouii/kstail/season"
	"github.com/uyouii/kstail/threshold"
	"github.com/uyouii/kstail/utils"
	"go.uber.org/zap"
)

// Inputs are the three loaded series. Future may be nil, then only the
// historical vs observed comparison runs.
type Inputs struct {
	Observed   *model.TimeSeries
	Historical *model.TimeSeries
	Future     *model.TimeSeries
	Variable   string
}

type Options struct {
	Percentile    float64
	WetDayCutoff  float64
	Seasons       []model.Season
	Workers       int
	Method        kstest.Method
	HistogramBins int
}

func DefaultOptions() Options {
	return Options{
		Percentile:    threshold.DefaultPercentile,
		WetDayCutoff:  threshold.DefaultWetDayCutoff,
		Seasons:       append([]model.Season(nil), aggregate.SeasonOrder...),
		Workers:       runtime.GOMAXPROCS(0),
		Method:        kstest.MethodAuto,
		HistogramBins: aggregate.DefaultHistogramBins,
	}
}

type Runner struct {
	opts    Options
	metrics *metrics.Metrics
	clock   clockwork.Clock
}

// NewRunner returns a Runner. A nil metrics gets an unregistered set and a nil
// clock the real one.
func NewRunner(opts Options, m *metrics.Metrics, clock clockwork.Clock) (*Runner, error) {
	if opts.Workers <= 0 {
		return nil, fmt.Errorf("workers %d: %w", opts.Workers, common.ErrorInvalidValue)
	}
	if len(opts.Seasons) == 0 {
		return nil, fmt.Errorf("no season selected: %w", common.ErrorInvalidValue)
	}
	if m == nil {
		m = metrics.NewMetrics(nil)
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	opts.Seasons = aggregate.SortSeasons(opts.Seasons)
	return &Runner{opts: opts, metrics: m, clock: clock}, nil
}

// Report is the outcome of one run.
type Report struct {
	RunID      string
	Variable   string
	Seasons    []model.Season
	Locations  []model.Location
	Thresholds *threshold.Map
	Tables     map[model.Pair]*aggregate.Table
	// Histogram is only built for single-point runs
	Histogram *aggregate.HistogramView
	Elapsed   time.Duration
}

// PlotPayload assembles the renderer input of the report.
func (r *Report) PlotPayload(label string) *aggregate.PlotPayload {
	payload := &aggregate.PlotPayload{
		Label:        label,
		Variable:     r.Variable,
		Significance: map[string]map[string]aggregate.Grid{},
		Histogram:    r.Histogram,
	}
	if r.Thresholds != nil {
		payload.Percentile = r.Thresholds.Percentile
	}
	for _, pair := range model.AllPairs {
		if table, ok := r.Tables[pair]; ok {
			payload.Significance[string(pair)] = table.SignificanceGrid()
		}
	}
	return payload
}

type prepared struct {
	obs, hist, fut             *model.TimeSeries
	obsTags, histTags, futTags []model.Season
	// obsCol and futCol map a historical location index to the column of the
	// same coordinate in the other series.
	obsCol, futCol []int
}

// matchLocations maps every location of ref onto the column of other with the
// same coordinates. A single-location other serves every reference location.
func matchLocations(name string, ref, other *model.TimeSeries) ([]int, error) {
	cols := make([]int, len(ref.Locations))
	if len(other.Locations) == 1 {
		return cols, nil
	}
	if len(other.Locations) != len(ref.Locations) {
		return nil, fmt.Errorf("%w: %s series has %d locations, historical has %d",
			common.ErrInput, name, len(other.Locations), len(ref.Locations))
	}

	index := make(map[string]int, len(other.Locations))
	for i, l := range other.Locations {
		index[l.Key()] = i
	}
	for i, l := range ref.Locations {
		col, ok := index[l.Key()]
		if !ok {
			return nil, fmt.Errorf("%w: %s series has no location %s", common.ErrInput, name, l.Key())
		}
		cols[i] = col
	}
	return cols, nil
}

// Run executes the analysis. Only input problems and cancellation fail it,
// degenerate comparisons are reported as undefined cells.
func (r *Runner) Run(ctx context.Context, in Inputs) (*Report, error) {
	runID := uuid.NewString()
	ctx = utils.WithRunID(ctx, runID)
	logger := utils.GetLogger(ctx)

	p, err := r.prepare(ctx, in)
	if err != nil {
		logger.Error("invalid input", zap.Error(err))
		return nil, err
	}

	thresholds, err := threshold.Estimate(ctx, p.obs, p.obsTags,
		threshold.WithPercentile(r.opts.Percentile), threshold.WithWetDayCutoff(r.opts.WetDayCutoff))
	if err != nil {
		return nil, err
	}
	for _, s := range r.opts.Seasons {
		for loc := range p.obs.Locations {
			if _, ok := thresholds.Lookup(s, loc); !ok {
				r.metrics.EmptyThresholds.WithLabelValues(s.String()).Inc()
			}
		}
	}

	report := &Report{
		RunID:      runID,
		Variable:   in.Variable,
		Seasons:    r.opts.Seasons,
		Locations:  p.hist.Locations,
		Thresholds: thresholds,
		Tables: map[model.Pair]*aggregate.Table{
			model.HistObs: aggregate.NewTable(model.HistObs, r.opts.Seasons, p.hist.Locations),
		},
	}
	if p.fut != nil {
		report.Tables[model.HistFut] = aggregate.NewTable(model.HistFut, r.opts.Seasons, p.hist.Locations)
	}

	start := r.clock.Now()
	if err := r.compareAll(ctx, p, thresholds, report); err != nil {
		return nil, err
	}
	report.Elapsed = r.clock.Since(start)
	r.metrics.RunDuration.Set(report.Elapsed.Seconds())
	r.metrics.Locations.Set(float64(len(p.hist.Locations)))

	if len(p.hist.Locations) == 1 {
		report.Histogram = r.histogramView(ctx, p, thresholds)
	}

	logger.Info(fmt.Sprintf("calculation took %.2fs", report.Elapsed.Seconds()),
		zap.Int("locations", len(p.hist.Locations)), zap.Int("seasons", len(r.opts.Seasons)))
	return report, nil
}

func (r *Runner) prepare(ctx context.Context, in Inputs) (*prepared, error) {
	series := []struct {
		name string
		ts   *model.TimeSeries
	}{
		{"observed", in.Observed},
		{"historical", in.Historical},
		{"future", in.Future},
	}
	for _, s := range series {
		if s.ts == nil {
			if s.name == "future" {
				continue
			}
			return nil, fmt.Errorf("%w: %s series is missing", common.ErrInput, s.name)
		}
		if in.Variable != "" && s.ts.Variable != in.Variable {
			return nil, fmt.Errorf("%w: %s series has no variable %q (found %q)",
				common.ErrInput, s.name, in.Variable, s.ts.Variable)
		}
		if err := s.ts.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %s series: %v", common.ErrInput, s.name, err)
		}
	}

	p := &prepared{obs: in.Observed, hist: in.Historical, fut: in.Future}
	var err error
	if p.obsCol, err = matchLocations("observed", p.hist, p.obs); err != nil {
		return nil, err
	}
	if p.fut != nil {
		if len(p.fut.Locations) != len(p.hist.Locations) {
			return nil, fmt.Errorf("%w: future series has %d locations, historical has %d",
				common.ErrInput, len(p.fut.Locations), len(p.hist.Locations))
		}
		if p.futCol, err = matchLocations("future", p.hist, p.fut); err != nil {
			return nil, err
		}
	}

	if p.obsTags, err = season.Tag(ctx, p.obs); err != nil {
		return nil, err
	}
	if p.histTags, err = season.Tag(ctx, p.hist); err != nil {
		return nil, err
	}
	if p.fut != nil {
		if p.futTags, err = season.Tag(ctx, p.fut); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// compareAll maps every (season, location) onto the worker pool; each task
// writes its own cells so the tables are the reduce step.
func (r *Runner) compareAll(ctx context.Context, p *prepared, thresholds *threshold.Map, report *Report) error {
	logger := utils.GetLogger(ctx)

	pool, err := ants.NewPool(r.opts.Workers, ants.WithPanicHandler(func(v interface{}) {
		logger.Error("comparison task panic", zap.Any("err", v), zap.String("panic info", utils.GetPanicInfo()))
	}))
	if err != nil {
		return fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for _, s := range r.opts.Seasons {
		for loc := range p.hist.Locations {
			if err := ctx.Err(); err != nil {
				wg.Wait()
				return err
			}
			s, loc := s, loc
			wg.Add(1)
			if err := pool.Submit(func() {
				defer wg.Done()
				r.compare(ctx, p, thresholds, report, s, loc)
			}); err != nil {
				wg.Done()
				wg.Wait()
				return fmt.Errorf("submit comparison: %w", err)
			}
		}
	}
	wg.Wait()
	return ctx.Err()
}

func (r *Runner) compare(ctx context.Context, p *prepared, thresholds *threshold.Map,
	report *Report, s model.Season, loc int) {
	// thresholds are indexed like the observation columns
	thr, _ := thresholds.Lookup(s, p.obsCol[loc])
	cut := season.Above(thr)

	hist := season.Filter(p.hist.Column(loc), p.histTags, s, cut)
	obs := season.Filter(p.obs.Column(p.obsCol[loc]), p.obsTags, s, cut)
	r.metrics.SamplesCompared.WithLabelValues("historical").Observe(float64(len(hist)))
	r.metrics.SamplesCompared.WithLabelValues("observed").Observe(float64(len(obs)))

	r.record(report, model.HistObs, s, loc, kstest.TwoSample(ctx, hist, obs, kstest.WithMethod(r.opts.Method)))

	if p.fut != nil {
		fut := season.Filter(p.fut.Column(p.futCol[loc]), p.futTags, s, cut)
		r.metrics.SamplesCompared.WithLabelValues("future").Observe(float64(len(fut)))
		r.record(report, model.HistFut, s, loc, kstest.TwoSample(ctx, hist, fut, kstest.WithMethod(r.opts.Method)))
	}
}

func (r *Runner) record(report *Report, pair model.Pair, s model.Season, loc int, res kstest.Result) {
	outcome := metrics.OutcomeDefined
	if !res.Defined() {
		outcome = metrics.OutcomeDegenerate
	}
	r.metrics.Comparisons.WithLabelValues(string(pair), s.String(), outcome).Inc()
	// loc always comes from the table's own locations
	_ = report.Tables[pair].Set(s, loc, res)
}

func (r *Runner) histogramView(ctx context.Context, p *prepared, thresholds *threshold.Map) *aggregate.HistogramView {
	samples := make([]aggregate.SeasonSamples, 0, len(r.opts.Seasons))
	for _, s := range r.opts.Seasons {
		thr, _ := thresholds.Lookup(s, 0)
		values := map[string][]float64{
			"observed":   season.FilterAt(p.obs, p.obsTags, s, 0, nil),
			"historical": season.FilterAt(p.hist, p.histTags, s, 0, nil),
		}
		if p.fut != nil {
			values["future"] = season.FilterAt(p.fut, p.futTags, s, 0, nil)
		}
		samples = append(samples, aggregate.SeasonSamples{Season: s, Threshold: thr, Values: values})
	}
	return aggregate.NewHistogramView(ctx, samples, r.opts.HistogramBins, thresholds.Percentile)
}
