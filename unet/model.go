package unet

import (
	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"

	"github.com/sugarme/useg/base"
)

// Down is a down-sampling stage: 2x2 stride-2 maxpool followed by a double
// conv projecting cIn -> cOut.
type Down struct {
	MaxpoolConv *nn.SequentialT
}

// NewDown creates a new Down ModuleT layer.
func NewDown(p *nn.Path, cIn, cOut int64) *Down {
	down := nn.SeqT()
	down.AddFn(nn.NewFunc(func(x *ts.Tensor) *ts.Tensor {
		// Down sample to half size: [B C H W] => [B C H/2 W/2]
		// ksize = 2; stride=2; padding=0; dilation=1; ceil=false
		return x.MustMaxPool2d([]int64{2, 2}, []int64{2, 2}, []int64{0, 0}, []int64{1, 1}, false, false)
	}))
	down.Add(base.DoubleConv(p.Sub("conv"), cIn, cOut))

	return &Down{down}
}

// ForwardT implements nn.ModuleT interface.
func (l *Down) ForwardT(x *ts.Tensor, train bool) *ts.Tensor {
	return l.MaxpoolConv.ForwardT(x, train)
}

// Up is an up-sampling stage: upsample by factor 2, align to the skip
// connection map, concatenate on the channel axis, then double conv.
type Up struct {
	Upsample   Upsampler
	DoubleConv *nn.SequentialT
}

// NewUp creates a new Up layer. cIn is the channel count after
// concatenation. In bilinear mode the channel halving happens in the first
// conv of the double conv (mid = cIn/2); in transposed-conv mode the
// transposed conv halves the channels before concatenation.
func NewUp(p *nn.Path, cIn, cOut int64, bilinear bool) *Up {
	if bilinear {
		return &Up{
			Upsample:   bilinearUp{},
			DoubleConv: base.DoubleConv(p.Sub("conv"), cIn, cOut, cIn/2),
		}
	}

	return &Up{
		Upsample:   newConvTransposeUp(p.Sub("up"), cIn),
		DoubleConv: base.DoubleConv(p.Sub("conv"), cIn, cOut),
	}
}

// UpForward upsamples x1, aligns it to skip, concatenates and forwards
// through the double conv. x1, skip should be in shape [B C H W].
func (l *Up) UpForward(x1, skip *ts.Tensor, train bool) *ts.Tensor {
	up := l.Upsample.Forward(x1)

	skipSize := skip.MustSize()
	upSize := up.MustSize()
	aligned := up
	if upSize[2] != skipSize[2] || upSize[3] != skipSize[3] {
		aligned = padAlign(up, skipSize[2], skipSize[3])
		up.MustDrop()
	}

	x := ts.MustCat([]ts.Tensor{*skip, *aligned}, 1)
	aligned.MustDrop()

	out := l.DoubleConv.ForwardT(x, train)
	x.MustDrop()

	return out
}

// UNet is the classic encoder-decoder segmentation model with skip
// connections between symmetric depths.
// Ref: https://arxiv.org/abs/1505.04597
type UNet struct {
	Stem *nn.SequentialT

	Down1 *Down
	Down2 *Down
	Down3 *Down
	Down4 *Down

	Up1 *Up
	Up2 *Up
	Up3 *Up
	Up4 *Up

	Head *nn.Conv2D
}

// NewUNet creates a UNet mapping nChannels input planes to nClasses
// per-pixel logits. With bilinear=true the decoder upsamples by
// interpolation and the deepest encoder stage emits 1024/2 channels to keep
// parameter count comparable to transposed-conv mode.
func NewUNet(p *nn.Path, nChannels, nClasses int64, bilinear bool) *UNet {
	var factor int64 = 1
	if bilinear {
		factor = 2
	}

	stem := base.DoubleConv(p.Sub("stem"), nChannels, 64)
	down1 := NewDown(p.Sub("down1"), 64, 128)
	down2 := NewDown(p.Sub("down2"), 128, 256)
	down3 := NewDown(p.Sub("down3"), 256, 512)
	down4 := NewDown(p.Sub("down4"), 512, 1024/factor)

	up1 := NewUp(p.Sub("up1"), 1024, 512/factor, bilinear)
	up2 := NewUp(p.Sub("up2"), 512, 256/factor, bilinear)
	up3 := NewUp(p.Sub("up3"), 256, 128/factor, bilinear)
	up4 := NewUp(p.Sub("up4"), 128, 64, bilinear)
	head := base.NewSegmentationHead(p.Sub("head"), 64, nClasses)

	return &UNet{
		Stem:  stem,
		Down1: down1,
		Down2: down2,
		Down3: down3,
		Down4: down4,
		Up1:   up1,
		Up2:   up2,
		Up3:   up3,
		Up4:   up4,
		Head:  head,
	}
}

// ForwardT implements ts.ModuleT for UNet model. Spatial size is preserved
// end to end for inputs with H, W divisible by 16.
func (m *UNet) ForwardT(x *ts.Tensor, train bool) *ts.Tensor {
	x1 := m.Stem.ForwardT(x, train)   // [B   64 H    W   ]
	x2 := m.Down1.ForwardT(x1, train) // [B  128 H/2  W/2 ]
	x3 := m.Down2.ForwardT(x2, train) // [B  256 H/4  W/4 ]
	x4 := m.Down3.ForwardT(x3, train) // [B  512 H/8  W/8 ]
	x5 := m.Down4.ForwardT(x4, train) // [B  512 H/16 W/16] (1024 in transposed-conv mode)

	z1 := m.Up1.UpForward(x5, x4, train) // [B 256 H/8 W/8]
	z2 := m.Up2.UpForward(z1, x3, train) // [B 128 H/4 W/4]
	z3 := m.Up3.UpForward(z2, x2, train) // [B  64 H/2 W/2]
	z4 := m.Up4.UpForward(z3, x1, train) // [B  64 H   W  ]

	logits := m.Head.ForwardT(z4, train) // [B nClasses H W]

	x1.MustDrop()
	x2.MustDrop()
	x3.MustDrop()
	x4.MustDrop()
	x5.MustDrop()
	z1.MustDrop()
	z2.MustDrop()
	z3.MustDrop()
	z4.MustDrop()

	return logits
}
