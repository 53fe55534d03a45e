package threshold

import (
	"math"
	"sort"

	"github.com/uyouii/kstail/utils"
)

// Percentile returns the q-th percentile (0 <= q <= 100) of values ignoring
// NaN, interpolating linearly between the two closest ranks at position
// (n-1)*q/100. It returns NaN when no values remain.
func Percentile(values []float64, q float64) float64 {
	sorted := utils.DropNaN(values)
	if len(sorted) == 0 || math.IsNaN(q) {
		return math.NaN()
	}
	sort.Float64s(sorted)
	return sortedPercentile(sorted, q)
}

func sortedPercentile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	q = math.Min(math.Max(q, 0), 100)

	h := float64(n-1) * q / 100
	lower := int(math.Floor(h))
	if lower >= n-1 {
		return sorted[n-1]
	}
	frac := h - float64(lower)
	return sorted[lower] + frac*(sorted[lower+1]-sorted[lower])
}
