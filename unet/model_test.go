package unet_test

import (
	"reflect"
	"testing"

	"github.com/sugarme/gotch"
	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"

	"github.com/sugarme/useg/unet"
)

// Spatial size must be preserved end to end for H, W divisible by 16,
// whatever the upsampling variant.
func TestUNetRoundTrip(t *testing.T) {
	device := gotch.CPU

	for _, bilinear := range []bool{true, false} {
		vs := nn.NewVarStore(device)
		net := unet.NewUNet(vs.Root(), 3, 3, bilinear)

		image := ts.MustRand([]int64{2, 3, 64, 64}, gotch.Float, device)

		var logits *ts.Tensor
		ts.NoGrad(func() {
			logits = net.ForwardT(image, false)
		})

		got := logits.MustSize()
		want := []int64{2, 3, 64, 64}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("bilinear=%v: got logits shape %v, want %v", bilinear, got, want)
		}

		logits.MustDrop()
		image.MustDrop()
	}
}

func TestUNetSingleClass(t *testing.T) {
	vs := nn.NewVarStore(gotch.CPU)
	net := unet.NewUNet(vs.Root(), 3, 1, true)

	image := ts.MustRand([]int64{1, 3, 32, 48}, gotch.Float, gotch.CPU)

	var logits *ts.Tensor
	ts.NoGrad(func() {
		logits = net.ForwardT(image, false)
	})

	got := logits.MustSize()
	want := []int64{1, 1, 32, 48}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got logits shape %v, want %v", got, want)
	}

	logits.MustDrop()
	image.MustDrop()
}
