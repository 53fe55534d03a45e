// Package kde smooths a sample into a Gaussian kernel density curve for the
// distribution plots.
package kde

import (
	"fmt"
	"math"
	"sort"

	"github.com/uyouii/kstail/common"
	"github.com/uyouii/kstail/utils"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate/quad"
)

type Point struct {
	X float64
	Y float64
}

type options struct {
	adjust   float64
	cut      float64
	lower    float64
	gridSize int
}

type Option func(*options)

// WithBandwidthAdjust scales the rule-of-thumb bandwidth.
func WithBandwidthAdjust(adjust float64) Option {
	return func(o *options) { o.adjust = adjust }
}

func WithCut(cut float64) Option {
	return func(o *options) { o.cut = cut }
}

// WithLowerBound keeps the evaluation grid at or above bound, e.g. 0 for
// precipitation amounts.
func WithLowerBound(bound float64) Option {
	return func(o *options) { o.lower = bound }
}

func WithGridSize(n int) Option {
	return func(o *options) { o.gridSize = n }
}

type Estimator struct {
	data   []float64
	kernel Kernel
	bw     float64
	grid   []float64
	cdf    []Point
}

// New fits an estimator to values, NaN entries are ignored.
func New(values []float64, opts ...Option) (*Estimator, error) {
	o := options{adjust: 1, cut: DefaultCut, lower: math.Inf(-1), gridSize: MinGridSize}
	for _, opt := range opts {
		opt(&o)
	}
	if !(o.adjust > 0) || o.cut < 0 {
		return nil, fmt.Errorf("bandwidth adjust %v, cut %v: %w", o.adjust, o.cut, common.ErrorInvalidValue)
	}

	data := utils.DropNaN(values)
	if len(data) < MinSamples {
		return nil, fmt.Errorf("%d samples: %w", len(data), common.ErrorInvalidValue)
	}
	sort.Float64s(data)

	kernel := NewGaussian()
	bw := NormalReference(kernel, data) * o.adjust
	if !(bw > 0) || math.IsInf(bw, 0) {
		return nil, fmt.Errorf("bandwidth %v: %w", bw, common.ErrorInvalidValue)
	}

	lo := math.Max(data[0]-o.cut*LowerCutFactor*bw, o.lower)
	hi := data[len(data)-1] + o.cut*bw
	if lo >= hi {
		return nil, fmt.Errorf("empty grid [%v, %v]: %w", lo, hi, common.ErrorInvalidValue)
	}
	grid := floats.Span(make([]float64, max(len(data), o.gridSize, 2)), lo, hi)

	return &Estimator{data: data, kernel: kernel, bw: bw, grid: grid}, nil
}

func (e *Estimator) Bandwidth() float64 {
	return e.bw
}

// At evaluates the density at x.
func (e *Estimator) At(x float64) float64 {
	var sum float64
	for _, xi := range e.data {
		sum += e.kernel.Shape((xi - x) / e.bw)
	}
	return sum / (float64(len(e.data)) * e.bw)
}

// Density evaluates the curve on the grid.
func (e *Estimator) Density() []Point {
	res := make([]Point, len(e.grid))
	for i, x := range e.grid {
		res[i] = Point{X: x, Y: e.At(x)}
	}
	return res
}

// Cdf integrates the density along the grid and normalizes it to end at 1,
// so a lower bound cutting into the curve does not leave mass unaccounted.
func (e *Estimator) Cdf() []Point {
	if e.cdf != nil {
		return e.cdf
	}
	res := make([]Point, len(e.grid))
	res[0] = Point{X: e.grid[0]}
	var cum float64
	for i := 1; i < len(e.grid); i++ {
		cum += quad.Fixed(e.At, e.grid[i-1], e.grid[i], CdfQuadraturePoints, nil, 0)
		res[i] = Point{X: e.grid[i], Y: cum}
	}
	if cum > 0 {
		for i := range res {
			res[i].Y /= cum
		}
	}
	e.cdf = res
	return res
}

// Quantile inverts the Cdf by linear interpolation, p is a probability.
func (e *Estimator) Quantile(p float64) (float64, error) {
	if math.IsNaN(p) || p < 0 || p > 1 {
		return math.NaN(), fmt.Errorf("probability %v: %w", p, common.ErrorInvalidValue)
	}
	cdf := e.Cdf()
	if p <= cdf[0].Y {
		return cdf[0].X, nil
	}
	for i := 1; i < len(cdf); i++ {
		if cdf[i].Y > p {
			lower, upper := cdf[i-1], cdf[i]
			return lower.X + (upper.X-lower.X)*(p-lower.Y)/(upper.Y-lower.Y), nil
		}
	}
	return cdf[len(cdf)-1].X, nil
}
