// Package threshold estimates per-season wet-day percentile thresholds from
// an observational series.
package threshold

import (
	"context"
	"fmt"
	"math"

	"github.com/uyouii/kstail/aggregate"
	"github.com/uyouii/kstail/common"
	"github.com/uyouii/kstail/model"
	"github.com/uyouii/kstail/utils"
	"go.uber.org/zap"
)

type options struct {
	percentile   float64
	wetDayCutoff float64
}

type Option func(*options)

func WithPercentile(q float64) Option {
	return func(o *options) { o.percentile = q }
}

func WithWetDayCutoff(cutoff float64) Option {
	return func(o *options) { o.wetDayCutoff = cutoff }
}

// Map holds one threshold per season and location. NaN marks a season without
// any wet day. A Map is never modified after Estimate returns it.
type Map struct {
	Percentile   float64
	WetDayCutoff float64
	values       map[model.Season][]float64
}

// Lookup returns the threshold of season at location index loc. A map built
// from a single-point series serves every location.
func (m *Map) Lookup(season model.Season, loc int) (float64, bool) {
	if m == nil {
		return math.NaN(), false
	}
	values, ok := m.values[season]
	if !ok || len(values) == 0 {
		return math.NaN(), false
	}
	if len(values) == 1 {
		loc = 0
	}
	if loc < 0 || loc >= len(values) {
		return math.NaN(), false
	}
	v := values[loc]
	return v, !math.IsNaN(v)
}

// Season returns a copy of the per-location thresholds of season.
func (m *Map) Season(season model.Season) []float64 {
	if m == nil {
		return nil
	}
	return append([]float64(nil), m.values[season]...)
}

// Empty reports whether season has no defined threshold at any location.
func (m *Map) Empty(season model.Season) bool {
	for _, v := range m.Season(season) {
		if !math.IsNaN(v) {
			return false
		}
	}
	return true
}

// Estimate computes, for every season and location of ts, the q-th percentile
// of the values above the wet-day cutoff. tags must be aligned with ts.
func Estimate(ctx context.Context, ts *model.TimeSeries, tags []model.Season, opts ...Option) (*Map, error) {
	logger := utils.GetLogger(ctx)

	o := options{percentile: DefaultPercentile, wetDayCutoff: DefaultWetDayCutoff}
	for _, opt := range opts {
		opt(&o)
	}
	if math.IsNaN(o.percentile) || o.percentile < 0 || o.percentile > 100 {
		return nil, fmt.Errorf("percentile %v: %w", o.percentile, common.ErrorInvalidValue)
	}
	if math.IsNaN(o.wetDayCutoff) {
		return nil, fmt.Errorf("wet-day cutoff: %w", common.ErrorInvalidValue)
	}
	if len(tags) != ts.Len() {
		return nil, fmt.Errorf("%d season tags for %d samples: %w", len(tags), ts.Len(), common.ErrorInvalidValue)
	}

	m := &Map{
		Percentile:   o.percentile,
		WetDayCutoff: o.wetDayCutoff,
		values:       map[model.Season][]float64{},
	}

	// one pass per location, bucketing wet days by season
	for _, s := range aggregate.SeasonOrder {
		m.values[s] = make([]float64, len(ts.Locations))
	}
	for loc := range ts.Locations {
		wet := map[model.Season][]float64{}
		for i, row := range ts.Values {
			if v := row[loc]; v > o.wetDayCutoff {
				wet[tags[i]] = append(wet[tags[i]], v)
			}
		}
		for s := range m.values {
			m.values[s][loc] = Percentile(wet[s], o.percentile)
		}
	}

	for s, values := range m.values {
		if m.Empty(s) {
			logger.Warn("no wet days in season, threshold undefined",
				zap.Stringer("season", s), zap.Float64("cutoff", o.wetDayCutoff))
			continue
		}
		if len(values) == 1 {
			logger.Info("season threshold", zap.Stringer("season", s),
				zap.Float64("percentile", o.percentile), zap.Float64("threshold", utils.FormatFloat(values[0], 3)))
		}
	}
	return m, nil
}
