package base

import "github.com/sugarme/gotch/nn"

// NewSegmentationHead creates the final classification layer: a 1x1
// convolution projecting feature channels to per-pixel class logits.
// No activation - raw scores for a cross-entropy style loss.
func NewSegmentationHead(p *nn.Path, cIn, cOut int64) *nn.Conv2D {
	return Conv2d(p, cIn, cOut, 1, 0, 1)
}
