package metric

import (
	"github.com/sugarme/gotch"
	ts "github.com/sugarme/gotch/tensor"
)

const eps = 0.0001

// CrossEntropyLoss computes the mean cross entropy between per-pixel class
// logits [B C H W] and integer class targets [B H W] (Int64). Softmax is
// taken over the channel dimension.
func CrossEntropyLoss(logits, target *ts.Tensor) *ts.Tensor {
	logProb := logits.MustLogSoftmax(1, gotch.Float, false)
	idx := target.MustUnsqueeze(1, false)
	picked := logProb.MustGather(1, idx, false, false)
	logProb.MustDrop()
	idx.MustDrop()

	return picked.MustMean(gotch.Double, true).MustMul1(ts.FloatScalar(-1), true)
}

// BCEWithLogitsLoss is binary cross entropy with logits, mean reduction.
func BCEWithLogitsLoss(logits, target *ts.Tensor) *ts.Tensor {
	logitR := logits.MustReshape([]int64{-1}, false)
	targetR := target.MustReshape([]int64{-1}, false)

	// NOTE: reduction: none = 0; mean = 1; sum = 2. Default=mean
	// ref. https://pytorch.org/docs/master/nn.functional.html#torch.nn.functional.binary_cross_entropy_with_logits
	retVal := logitR.MustBinaryCrossEntropyWithLogits(targetR, ts.NewTensor(), ts.NewTensor(), 1, true).MustView([]int64{-1}, true)
	targetR.MustDrop()

	return retVal
}

// DiceCoeff measures overlap between a predicted mask and its target, both
// thresholded at 0.5.
func DiceCoeff(input, target *ts.Tensor) float64 {
	iflat := input.MustView([]int64{-1}, false)
	tflat := target.MustView([]int64{-1}, false)
	p := iflat.MustGt(ts.FloatScalar(0.5), true)
	t := tflat.MustGt(ts.FloatScalar(0.5), true)
	ptMul := p.MustMul(t, false)
	overlap := ptMul.MustSum(gotch.Double, true).Float64Values()[0]
	union := p.MustSum(gotch.Double, true).Float64Values()[0] + t.MustSum(gotch.Double, true).Float64Values()[0]

	return (2*overlap + eps) / (union + eps)
}

// DiceCoeffBatch averages DiceCoeff over the leading batch dimension.
func DiceCoeffBatch(input, target *ts.Tensor) float64 {
	n := input.MustSize()[0]
	var sum float64
	for i := int64(0); i < n; i++ {
		p := input.MustNarrow(0, i, 1, false)
		t := target.MustNarrow(0, i, 1, false)
		sum += DiceCoeff(p, t)
		p.MustDrop()
		t.MustDrop()
	}

	return sum / float64(n)
}

// IoU is intersection over union of two masks thresholded at 0.5.
func IoU(input, target *ts.Tensor) float64 {
	iflat := input.MustView([]int64{-1}, false)
	tflat := target.MustView([]int64{-1}, false)
	p := iflat.MustGt(ts.FloatScalar(0.5), true)
	t := tflat.MustGt(ts.FloatScalar(0.5), true)
	ptMul := p.MustMul(t, false)
	overlap := ptMul.MustSum(gotch.Double, true).Float64Values()[0]
	total := p.MustSum(gotch.Double, true).Float64Values()[0] + t.MustSum(gotch.Double, true).Float64Values()[0]

	return (overlap + eps) / (total - overlap + eps)
}

// JaccardIndex is the mean per-class IoU between integer class maps over
// nClasses classes.
func JaccardIndex(input, target *ts.Tensor, nClasses int64) float64 {
	iflat := input.MustView([]int64{-1}, false)
	tflat := target.MustView([]int64{-1}, false)

	var sum float64
	for c := int64(0); c < nClasses; c++ {
		p := iflat.MustEq(ts.IntScalar(c), false)
		t := tflat.MustEq(ts.IntScalar(c), false)
		ptMul := p.MustMul(t, false)
		overlap := ptMul.MustSum(gotch.Double, true).Float64Values()[0]
		total := p.MustSum(gotch.Double, true).Float64Values()[0] + t.MustSum(gotch.Double, true).Float64Values()[0]
		sum += (overlap + eps) / (total - overlap + eps)
	}
	iflat.MustDrop()
	tflat.MustDrop()

	return sum / float64(nClasses)
}
