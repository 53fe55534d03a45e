package aggregate

import (
	"context"
	"math"
	"sort"

	"github.com/montanaflynn/stats"
	"github.com/uyouii/kstail/kde"
	"github.com/uyouii/kstail/model"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DefaultHistogramBins is the number of equal-width bins of the histogram view.
const DefaultHistogramBins = 30

type Summary struct {
	Count  int   `json:"count"`
	Mean   Float `json:"mean"`
	Median Float `json:"median"`
	Max    Float `json:"max"`
}

func summarize(values []float64) Summary {
	res := Summary{
		Count:  len(values),
		Mean:   Float(math.NaN()),
		Median: Float(math.NaN()),
		Max:    Float(math.NaN()),
	}
	data := stats.Float64Data(values)
	if mean, err := stats.Mean(data); err == nil {
		res.Mean = Float(mean)
	}
	if median, err := stats.Median(data); err == nil {
		res.Median = Float(median)
	}
	if max, err := stats.Max(data); err == nil {
		res.Max = Float(max)
	}
	return res
}

// SeasonHistogram bins the unthresholded values of each dataset of one season
// on shared dividers. Counts[name][i] covers [Dividers[i], Dividers[i+1]).
type SeasonHistogram struct {
	Season    string               `json:"season"`
	Threshold Float                `json:"threshold"`
	Dividers  []Float              `json:"dividers"`
	Counts    map[string][]float64 `json:"counts"`
	Summaries map[string]Summary   `json:"summaries"`
	// Densities holds a smoothed curve per dataset, absent for samples
	// too small or without spread.
	Densities map[string]*DensityCurve `json:"densities,omitempty"`
}

// DensityCurve is a kernel density estimate on an evaluation grid. Quantile
// is the smoothed counterpart of the season threshold.
type DensityCurve struct {
	Bandwidth Float   `json:"bandwidth"`
	X         []Float `json:"x"`
	Y         []Float `json:"y"`
	Quantile  Float   `json:"quantile"`
}

func densityCurve(ctx context.Context, values []float64, percentile float64) *DensityCurve {
	var opts []kde.Option
	if len(values) > 0 && floats.Min(values) >= 0 {
		opts = append(opts, kde.WithLowerBound(0))
	}
	curve := kde.Smooth(ctx, values, percentile, opts...)
	if curve == nil {
		return nil
	}
	res := &DensityCurve{
		Bandwidth: Float(curve.Bandwidth),
		X:         make([]Float, len(curve.Points)),
		Y:         make([]Float, len(curve.Points)),
		Quantile:  Float(curve.Quantile),
	}
	for i, p := range curve.Points {
		res.X[i], res.Y[i] = Float(p.X), Float(p.Y)
	}
	return res
}

// HistogramView is the single-point renderer input: raw seasonal
// distributions of every dataset and the tail threshold applied to them.
type HistogramView struct {
	Bins       int               `json:"bins"`
	Percentile float64           `json:"percentile"`
	Seasons    []SeasonHistogram `json:"seasons"`
}

// SeasonSamples are the unthresholded values of one season keyed by dataset name.
type SeasonSamples struct {
	Season    model.Season
	Threshold float64
	Values    map[string][]float64
}

// NewHistogramView bins the samples and smooths each dataset. percentile is
// the one the season thresholds were estimated at.
func NewHistogramView(ctx context.Context, samples []SeasonSamples, bins int, percentile float64) *HistogramView {
	if bins <= 0 {
		bins = DefaultHistogramBins
	}
	sort.SliceStable(samples, func(i, j int) bool {
		return seasonRank(samples[i].Season) < seasonRank(samples[j].Season)
	})

	view := &HistogramView{Bins: bins, Percentile: percentile}
	for _, sample := range samples {
		view.Seasons = append(view.Seasons, seasonHistogram(ctx, sample, bins, percentile))
	}
	return view
}

func seasonHistogram(ctx context.Context, sample SeasonSamples, bins int, percentile float64) SeasonHistogram {
	res := SeasonHistogram{
		Season:    sample.Season.String(),
		Threshold: Float(sample.Threshold),
		Counts:    map[string][]float64{},
		Summaries: map[string]Summary{},
		Densities: map[string]*DensityCurve{},
	}

	var all []float64
	for _, values := range sample.Values {
		all = append(all, values...)
	}
	dividers := histogramDividers(all, bins)
	res.Dividers = toFloats(dividers)

	for name, values := range sample.Values {
		res.Summaries[name] = summarize(values)
		if curve := densityCurve(ctx, values, percentile); curve != nil {
			res.Densities[name] = curve
		}
		if len(dividers) < 2 {
			res.Counts[name] = []float64{}
			continue
		}
		sorted := append([]float64(nil), values...)
		sort.Float64s(sorted)
		res.Counts[name] = stat.Histogram(nil, dividers, sorted, nil)
	}
	return res
}

// histogramDividers spans [min, max] in equal bins, with the last divider
// nudged above max so the maximum lands in the final bin.
func histogramDividers(values []float64, bins int) []float64 {
	if len(values) == 0 {
		return nil
	}
	lo, hi := floats.Min(values), floats.Max(values)
	if math.IsInf(lo, 0) || math.IsInf(hi, 0) {
		return nil
	}
	if lo == hi {
		return []float64{lo, math.Nextafter(hi, math.Inf(1))}
	}
	dividers := floats.Span(make([]float64, bins+1), lo, hi)
	dividers[bins] = math.Nextafter(hi, math.Inf(1))
	return dividers
}
