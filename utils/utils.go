package utils

import "math"

// FormatFloat rounds f to the given number of decimal places, NaN and Inf pass through.
func FormatFloat(f float64, round int32) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return f
	}
	scale := math.Pow(10, float64(round))
	return math.Round(f*scale) / scale
}

// DropNaN returns a copy of values without NaN entries.
func DropNaN(values []float64) []float64 {
	res := make([]float64, 0, len(values))
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		res = append(res, v)
	}
	return res
}
