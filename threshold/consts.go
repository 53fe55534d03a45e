package threshold

const (
	// DefaultPercentile is the upper percentile of wet-day intensities used as
	// the tail threshold.
	DefaultPercentile = 85.0

	// DefaultWetDayCutoff excludes dry days, only values strictly above it count.
	DefaultWetDayCutoff = 0.1
)
