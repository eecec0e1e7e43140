package base

import (
	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"
)

// Conv2d creates Conv2D module.
func Conv2d(p *nn.Path, cIn, cOut, ksize, padding, stride int64) *nn.Conv2D {
	config := nn.DefaultConv2DConfig()
	config.Stride = []int64{stride, stride}
	config.Padding = []int64{padding, padding}

	return nn.NewConv2D(p, cIn, cOut, ksize, config)
}

// Conv2dNoBias creates Conv2D with no bias.
func Conv2dNoBias(p *nn.Path, cIn, cOut, ksize, padding, stride int64) *nn.Conv2D {
	config := nn.DefaultConv2DConfig()
	config.Bias = false
	config.Stride = []int64{stride, stride}
	config.Padding = []int64{padding, padding}

	return nn.NewConv2D(p, cIn, cOut, ksize, config)
}

// DoubleConv creates a SequentialT of two (Conv2D -> BatchNorm -> ReLU)
// stages. 3x3 kernel, stride 1, padding 1, so spatial size is preserved.
// The first conv maps cIn -> cMid, the second cMid -> cOut. cMid defaults
// to cOut.
func DoubleConv(p *nn.Path, cIn, cOut int64, cMidOpt ...int64) *nn.SequentialT {
	cMid := cOut
	if len(cMidOpt) > 0 {
		cMid = cMidOpt[0]
	}

	seq := nn.SeqT()
	seq.Add(Conv2dNoBias(p.Sub("conv1"), cIn, cMid, 3, 1, 1))
	seq.Add(nn.BatchNorm2D(p.Sub("bn1"), cMid, nn.DefaultBatchNormConfig()))
	seq.AddFn(nn.NewFunc(func(xs *ts.Tensor) *ts.Tensor {
		return xs.MustRelu(false)
	}))
	seq.Add(Conv2dNoBias(p.Sub("conv2"), cMid, cOut, 3, 1, 1))
	seq.Add(nn.BatchNorm2D(p.Sub("bn2"), cOut, nn.DefaultBatchNormConfig()))
	seq.AddFn(nn.NewFunc(func(xs *ts.Tensor) *ts.Tensor {
		return xs.MustRelu(false)
	}))

	return seq
}
