package kde

import (
	"context"
	"math"

	"github.com/uyouii/kstail/utils"
	"go.uber.org/zap"
)

// Curve is the smoothed view of one sample.
type Curve struct {
	Bandwidth float64
	Points    []Point
	// Quantile is the value below which Percentile percent of the smoothed
	// mass lies, NaN when it could not be computed.
	Percentile float64
	Quantile   float64
}

// Smooth fits a density curve to values. It returns nil when the sample is
// too small or has no spread.
func Smooth(ctx context.Context, values []float64, percentile float64, opts ...Option) (curve *Curve) {
	logger := utils.GetLogger(ctx)

	defer func() {
		if err := recover(); err != nil {
			logger.Error("Smooth recover panic error!", zap.Any("err", err),
				zap.String("panic info", utils.GetPanicInfo()), zap.Int("samples", len(values)))
			curve = nil
		}
	}()

	e, err := New(values, opts...)
	if err != nil {
		logger.Debug("skip density curve", zap.Error(err), zap.Int("samples", len(values)))
		return nil
	}

	quantile, err := e.Quantile(percentile / 100)
	if err != nil {
		logger.Warn("density quantile failed", zap.Error(err), zap.Float64("percentile", percentile))
		quantile = math.NaN()
	}

	return &Curve{
		Bandwidth:  e.Bandwidth(),
		Points:     e.Density(),
		Percentile: percentile,
		Quantile:   utils.FormatFloat(quantile, 3),
	}
}
