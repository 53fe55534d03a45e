package kstest

import (
	"context"

	"github.com/uyouii/kstail/utils"
	"go.uber.org/zap"
)

type Option func(*options)

type options struct {
	method Method
}

func WithMethod(method Method) Option {
	return func(o *options) { o.method = method }
}

// TwoSample compares the distributions of x and y. Missing values are
// dropped first. It never fails: empty inputs or any numerical breakdown
// give the Undefined result.
func TwoSample(ctx context.Context, x, y []float64, opts ...Option) (res Result) {
	logger := utils.GetLogger(ctx)

	o := options{method: MethodAuto}
	for _, opt := range opts {
		opt(&o)
	}

	defer func() {
		if err := recover(); err != nil {
			logger.Error("TwoSample recover panic error!", zap.Any("err", err),
				zap.String("panic info", utils.GetPanicInfo()),
				zap.Int("xCnt", len(x)), zap.Int("yCnt", len(y)))
			res = Undefined()
		}
	}()

	x, y = utils.DropNaN(x), utils.DropNaN(y)
	if len(x) == 0 || len(y) == 0 {
		logger.Debug("empty sample set, skip ks test", zap.Int("xCnt", len(x)), zap.Int("yCnt", len(y)))
		return Undefined()
	}

	return twoSample(x, y, o.method)
}
