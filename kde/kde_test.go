package kde

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uyouii/kstail/common"
)

func TestGaussianNormalReferenceConstant(t *testing.T) {
	k := NewGaussian()
	assert.InDelta(t, 1.0592, k.NormalReferenceConstant(), 1e-4)
	assert.InDelta(t, 1/math.Sqrt(2*math.Pi), k.Shape(0), 1e-12)
	assert.Equal(t, k.Shape(1.3), k.Shape(-1.3))
}

func TestNormalReference(t *testing.T) {
	sorted := []float64{-2, -1, 0, 1, 2}
	bw := NormalReference(NewGaussian(), sorted)
	// sigma is the normalized IQR 2/1.349, smaller than the std dev sqrt(2.5)
	want := 1.0592 * (2 / 1.349) * math.Pow(5, -0.2)
	assert.InDelta(t, want, bw, 1e-3)
}

func TestEstimatorSymmetric(t *testing.T) {
	e, err := New([]float64{-2, -1, 0, math.NaN(), 1, 2})
	require.NoError(t, err)

	cdf := e.Cdf()
	assert.InDelta(t, 1, cdf[len(cdf)-1].Y, 1e-12)
	assert.Equal(t, 0.0, cdf[0].Y)

	median, err := e.Quantile(0.5)
	require.NoError(t, err)
	assert.InDelta(t, 0, median, 0.02)

	assert.InDelta(t, e.At(-1.5), e.At(1.5), 1e-12)
	assert.Greater(t, e.At(0), e.At(3))

	lo, err := e.Quantile(0)
	require.NoError(t, err)
	assert.Equal(t, cdf[0].X, lo)
	hi, err := e.Quantile(1)
	require.NoError(t, err)
	assert.Equal(t, cdf[len(cdf)-1].X, hi)
}

func TestEstimatorDensityGrid(t *testing.T) {
	e, err := New([]float64{0.2, 0.5, 1, 4, 9}, WithLowerBound(0), WithGridSize(40))
	require.NoError(t, err)

	points := e.Density()
	require.Len(t, points, 40)
	assert.Equal(t, 0.0, points[0].X)
	assert.InDelta(t, 9+DefaultCut*e.Bandwidth(), points[len(points)-1].X, 1e-9)
	for _, p := range points {
		assert.GreaterOrEqual(t, p.Y, 0.0)
	}

	narrow, err := New([]float64{0.2, 0.5, 1, 4, 9}, WithBandwidthAdjust(0.5))
	require.NoError(t, err)
	assert.InDelta(t, e.Bandwidth()/2, narrow.Bandwidth(), 1e-12)
}

func TestEstimatorErrors(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		opts   []Option
	}{
		{"empty", nil, nil},
		{"single", []float64{1}, nil},
		{"all nan", []float64{math.NaN(), math.NaN()}, nil},
		{"constant", []float64{3, 3, 3}, nil},
		{"bad adjust", []float64{1, 2, 3}, []Option{WithBandwidthAdjust(0)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.values, tt.opts...)
			assert.ErrorIs(t, err, common.ErrorInvalidValue)
		})
	}

	e, err := New([]float64{1, 2, 3})
	require.NoError(t, err)
	_, err = e.Quantile(1.5)
	assert.ErrorIs(t, err, common.ErrorInvalidValue)
}

func TestSmooth(t *testing.T) {
	values := []float64{0.3, 0.8, 1.2, 2.5, 3.1, 4.4, 6.0, 8.2, 12.5, 20}
	curve := Smooth(context.Background(), values, 85, WithLowerBound(0))
	require.NotNil(t, curve)
	assert.Equal(t, 85.0, curve.Percentile)
	assert.Len(t, curve.Points, MinGridSize)
	assert.Greater(t, curve.Quantile, 6.0)
	assert.Less(t, curve.Quantile, 20+DefaultCut*curve.Bandwidth)

	assert.Nil(t, Smooth(context.Background(), []float64{5, 5}, 85))
	assert.Nil(t, Smooth(context.Background(), nil, 85))
}
