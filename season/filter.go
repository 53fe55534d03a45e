package season

import (
	"math"

	"github.com/uyouii/kstail/model"
)

// Cut decides which in-season values are kept.
type Cut struct {
	threshold   float64
	thresholded bool
}

// Above keeps values strictly greater than threshold. A NaN threshold keeps nothing.
func Above(threshold float64) Cut {
	return Cut{threshold: threshold, thresholded: true}
}

// All keeps every non-missing value of the season.
func All() Cut {
	return Cut{}
}

func (c Cut) Thresholded() bool {
	return c.thresholded
}

func (c Cut) keep(v float64) bool {
	if math.IsNaN(v) {
		return false
	}
	if !c.thresholded {
		return true
	}
	// NaN threshold compares false and empties the set
	return v > c.threshold
}

// Filter returns the values whose tag equals target and that pass cut.
// values and tags must be aligned.
func Filter(values []float64, tags []model.Season, target model.Season, cut Cut) []float64 {
	res := []float64{}
	n := min(len(values), len(tags))
	for i := 0; i < n; i++ {
		if tags[i] != target || !cut.keep(values[i]) {
			continue
		}
		res = append(res, values[i])
	}
	return res
}

// ThresholdLookup returns the threshold of a season at a location.
type ThresholdLookup interface {
	Lookup(season model.Season, loc int) (float64, bool)
}

// FilterAt filters one location of ts. With a nil lookup the set is
// unthresholded, otherwise the location's threshold for target applies.
func FilterAt(ts *model.TimeSeries, tags []model.Season, target model.Season,
	loc int, thresholds ThresholdLookup) []float64 {
	cut := All()
	if thresholds != nil {
		threshold, ok := thresholds.Lookup(target, loc)
		if !ok {
			threshold = math.NaN()
		}
		cut = Above(threshold)
	}
	return Filter(ts.Column(loc), tags, target, cut)
}
