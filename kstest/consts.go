package kstest

const (
	// MaxExactProduct bounds len(x)*len(y) for the exact p-value in MethodAuto.
	MaxExactProduct = 10000

	// KolmogorovSeriesTerms caps the alternating series of the asymptotic distribution.
	KolmogorovSeriesTerms = 100

	// below this lambda the small-argument series is used
	KolmogorovSwitchLambda = 1.0
)
