package kde

const (
	// MinGridSize is the least number of points a density curve is evaluated on
	MinGridSize = 100

	// DefaultCut is how many bandwidths the grid extends past the data
	DefaultCut = 3.0
	// LowerCutFactor widens the cut below the minimum, the lower bound still applies
	LowerCutFactor = 1.5

	CdfQuadraturePoints = 50

	MinSamples = 2
)
