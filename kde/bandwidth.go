package kde

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// NormalReference is the normal reference rule bandwidth of a sorted sample.
func NormalReference(kernel Kernel, sorted []float64) float64 {
	return kernel.NormalReferenceConstant() * selectSigma(sorted) * math.Pow(float64(len(sorted)), -0.2)
}

// selectSigma is the smaller of the standard deviation and the normalized
// interquartile range, falling back to the former when the IQR is zero.
func selectSigma(sorted []float64) float64 {
	const normalize = 1.349

	q75 := stat.Quantile(0.75, stat.Empirical, sorted, nil)
	q25 := stat.Quantile(0.25, stat.Empirical, sorted, nil)
	iqr := (q75 - q25) / normalize

	stdDev := stat.StdDev(sorted, nil)
	if iqr > 0 {
		return math.Min(stdDev, iqr)
	}
	return stdDev
}
