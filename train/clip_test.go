package train

import (
	"testing"

	"github.com/sugarme/gotch"
	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"
)

// After BackwardStepClip no parameter gradient's absolute value may exceed
// the clip bound. A huge loss scale forces unclipped gradients well past
// it.
func TestGradientClipBound(t *testing.T) {
	clip := DefaultConfig().GradClip

	vs := nn.NewVarStore(gotch.CPU)
	lin := nn.NewLinear(vs.Root(), 4, 2, nn.DefaultLinearConfig())

	optConfig := nn.DefaultRMSPropConfig()
	opt, err := optConfig.Build(vs, 0.001)
	if err != nil {
		t.Fatal(err)
	}

	x := ts.MustRand([]int64{8, 4}, gotch.Float, gotch.CPU)
	out := lin.Forward(x)
	scaled := out.MustMul1(ts.FloatScalar(1e6), true)
	loss := scaled.MustMean(gotch.Double, true)

	opt.BackwardStepClip(loss, clip)

	for name, v := range vs.Variables() {
		v := v
		grad := v.MustGrad(false)
		maxAbs := grad.MustAbs(true).MustMax(true).Float64Values()[0]
		if maxAbs > clip+1e-6 {
			t.Errorf("variable %v: max abs gradient %v exceeds clip bound %v", name, maxAbs, clip)
		}
	}

	loss.MustDrop()
	x.MustDrop()
}
