package kde

import "math"

type Kernel interface {
	Shape(u float64) float64
	NormalReferenceConstant() float64
}

// Gaussian is the standard normal kernel of order 2.
type Gaussian struct {
	l2Norm                  float64
	variance                float64
	order                   int
	normalReferenceConstant float64
}

func NewGaussian() *Gaussian {
	k := &Gaussian{
		l2Norm:   1.0 / (2.0 * math.Sqrt(math.Pi)),
		variance: 1.0,
		order:    2,
	}
	nu := k.order
	numerator := math.Sqrt(math.Pi) * math.Pow(factorial(nu), 3) * k.l2Norm
	denom := 2.0 * float64(nu) * factorial(2*nu) * math.Pow(k.moment(nu), 2)
	k.normalReferenceConstant = 2 * math.Pow(numerator/denom, 1.0/float64(2*nu+1))
	return k
}

func (k *Gaussian) Shape(u float64) float64 {
	return 0.3989422804014327 * math.Exp(-u*u/2.0)
}

// NormalReferenceConstant is the rule-of-thumb bandwidth factor, about 1.059.
func (k *Gaussian) NormalReferenceConstant() float64 {
	return k.normalReferenceConstant
}

func (k *Gaussian) moment(n int) float64 {
	switch n {
	case 1:
		return 0
	case 2:
		return k.variance
	}
	return 1.0
}

func factorial(n int) float64 {
	res := 1.0
	for i := 2; i <= n; i++ {
		res *= float64(i)
	}
	return res
}
