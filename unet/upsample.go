package unet

import (
	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"
)

// Upsampler doubles the spatial resolution of a feature map. The variant is
// picked at network construction: bilinear interpolation (parameter free,
// channel halving folded into the following double conv) or a learned 2x2
// stride-2 transposed convolution that halves the channel count itself.
type Upsampler interface {
	Forward(x *ts.Tensor) *ts.Tensor
}

type bilinearUp struct{}

func (u bilinearUp) Forward(x *ts.Tensor) *ts.Tensor {
	size := x.MustSize()
	outSize := []int64{size[2] * 2, size[3] * 2}

	return x.MustUpsampleBilinear2d(outSize, true, nil, nil, false)
}

type convTransposeUp struct {
	conv *nn.ConvTranspose2D
}

func newConvTransposeUp(p *nn.Path, cIn int64) *convTransposeUp {
	config := nn.DefaultConvTranspose2DConfig()
	config.Stride = []int64{2, 2}

	return &convTransposeUp{conv: nn.NewConvTranspose2D(p, cIn, cIn/2, 2, config)}
}

func (u *convTransposeUp) Forward(x *ts.Tensor) *ts.Tensor {
	return u.conv.Forward(x)
}

// padAlign zero-pads x [B C H W] to spatial size (h, w). The pad amount is
// split floor/ceil on opposite sides, extra pixel on the trailing
// (bottom/right) edge.
// Ref. https://pytorch.org/docs/stable/nn.functional.html#pad
func padAlign(x *ts.Tensor, h, w int64) *ts.Tensor {
	xSize := x.MustSize()
	diffH := h - xSize[2]
	diffW := w - xSize[3]
	pad := []int64{diffW / 2, diffW - diffW/2, diffH / 2, diffH - diffH/2}

	return x.MustConstantPadNd(pad, false)
}
