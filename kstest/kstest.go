// Package kstest implements the two-sample Kolmogorov-Smirnov test used to
// compare wet-day tails of two datasets.
package kstest

import (
	"fmt"
	"math"
	"sort"

	"github.com/uyouii/kstail/common"
	"github.com/uyouii/kstail/utils"
	"gonum.org/v1/gonum/stat"
)

type Method int

const (
	MethodAuto Method = iota
	MethodExact
	MethodAsymptotic
)

func (m Method) String() string {
	switch m {
	case MethodExact:
		return "exact"
	case MethodAsymptotic:
		return "asymptotic"
	default:
		return "auto"
	}
}

func ParseMethod(s string) (Method, error) {
	switch s {
	case "", "auto":
		return MethodAuto, nil
	case "exact":
		return MethodExact, nil
	case "asymptotic", "asymp":
		return MethodAsymptotic, nil
	}
	return MethodAuto, fmt.Errorf("method %q: %w", s, common.ErrorInvalidValue)
}

// Result is the outcome of one comparison. Both fields are NaN when the
// comparison could not be computed.
type Result struct {
	Statistic float64 `json:"statistic" msgpack:"statistic"`
	PValue    float64 `json:"pvalue" msgpack:"pvalue"`
}

// Undefined is the sentinel for a degenerate comparison.
func Undefined() Result {
	return Result{Statistic: math.NaN(), PValue: math.NaN()}
}

func (r Result) Defined() bool {
	return !math.IsNaN(r.Statistic) && !math.IsNaN(r.PValue)
}

// twoSample runs the test on already cleaned inputs and may panic on
// degenerate data.
func twoSample(x, y []float64, method Method) Result {
	x, y = sortedCopy(x), sortedCopy(y)

	d := stat.KolmogorovSmirnov(x, nil, y, nil)
	p := PValue(d, len(x), len(y), method)
	if math.IsNaN(d) || math.IsInf(d, 0) || math.IsNaN(p) {
		return Undefined()
	}
	return Result{Statistic: d, PValue: p}
}

// PValue returns the two-sided significance of statistic d for sample sizes m and n.
func PValue(d float64, m, n int, method Method) float64 {
	if m <= 0 || n <= 0 || math.IsNaN(d) {
		return math.NaN()
	}
	if d <= 0 {
		return 1
	}

	if method == MethodAuto {
		method = MethodAsymptotic
		if m*n <= MaxExactProduct {
			method = MethodExact
		}
	}

	var p float64
	switch method {
	case MethodExact:
		p = exactPValue(d, m, n)
	default:
		en := float64(m) * float64(n) / float64(m+n)
		p = KolmogorovSurvival(math.Sqrt(en) * d)
	}
	return math.Min(math.Max(p, 0), 1)
}

func sortedCopy(values []float64) []float64 {
	res := utils.DropNaN(values)
	sort.Float64s(res)
	return res
}
