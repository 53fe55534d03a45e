package kstest

import "math"

// exactPValue returns P(D >= d) for two samples of sizes m and n under the
// null hypothesis. It walks the lattice of merged orderings from (0,0) to
// (m,n), carrying the probability mass of paths that never reach a point whose
// ECDF gap is at least d.
func exactPValue(d float64, m, n int) float64 {
	g := gcd(m, n)
	lcm := int64(m/g) * int64(n)
	h := int64(math.Round(d * float64(lcm)))
	if h <= 0 {
		return 1
	}
	// gap at (i,j) is |i/m - j/n|, scaled by lcm
	xStep, yStep := int64(n/g), int64(m/g)

	outside := func(i, j int) bool {
		gap := int64(i)*xStep - int64(j)*yStep
		if gap < 0 {
			gap = -gap
		}
		return gap >= h
	}

	prev := make([]float64, n+1)
	cur := make([]float64, n+1)
	for i := 0; i <= m; i++ {
		for j := 0; j <= n; j++ {
			switch {
			case outside(i, j):
				cur[j] = 0
			case i == 0 && j == 0:
				cur[j] = 1
			default:
				// each step draws the next order statistic from x or y with
				// probability proportional to what is left of each sample
				mass := 0.0
				if i > 0 {
					mass += prev[j] * float64(m-i+1) / float64(m-i+1+n-j)
				}
				if j > 0 {
					mass += cur[j-1] * float64(n-j+1) / float64(m-i+n-j+1)
				}
				cur[j] = mass
			}
		}
		prev, cur = cur, prev
	}
	return 1 - prev[n]
}

// KolmogorovSurvival returns P(K > lambda) for the limiting Kolmogorov distribution.
func KolmogorovSurvival(lambda float64) float64 {
	if math.IsNaN(lambda) {
		return math.NaN()
	}
	if lambda <= 0 {
		return 1
	}

	if lambda < KolmogorovSwitchLambda {
		// P(K <= l) = sqrt(2*pi)/l * sum exp(-(2k-1)^2 pi^2 / (8 l^2))
		sum := 0.0
		for k := 1; k <= KolmogorovSeriesTerms; k++ {
			odd := float64(2*k - 1)
			term := math.Exp(-odd * odd * math.Pi * math.Pi / (8 * lambda * lambda))
			sum += term
			if term < 1e-16*sum {
				break
			}
		}
		return 1 - math.Sqrt(2*math.Pi)/lambda*sum
	}

	// P(K > l) = 2 * sum (-1)^(k-1) exp(-2 k^2 l^2)
	sum := 0.0
	sign := 1.0
	for k := 1; k <= KolmogorovSeriesTerms; k++ {
		term := math.Exp(-2 * float64(k*k) * lambda * lambda)
		sum += sign * term
		if term < 1e-16 {
			break
		}
		sign = -sign
	}
	return 2 * sum
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}
