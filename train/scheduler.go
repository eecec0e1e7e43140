package train

import (
	"math"

	"github.com/sugarme/gotch/nn"
)

// ReduceLROnPlateau lowers the optimizer learning rate when a monitored
// metric stops improving for patience consecutive checks.
type ReduceLROnPlateau struct {
	opt       *nn.Optimizer
	lr        float64
	factor    float64
	patience  int
	threshold float64
	minLR     float64

	best   float64
	numBad int
}

// NewReduceLROnPlateau creates a scheduler over opt starting at lr, with
// factor 0.1 and patience 2. opt may be nil (the rate is then only
// tracked, not applied).
func NewReduceLROnPlateau(opt *nn.Optimizer, lr float64) *ReduceLROnPlateau {
	return &ReduceLROnPlateau{
		opt:       opt,
		lr:        lr,
		factor:    0.1,
		patience:  2,
		threshold: 1e-4,
		best:      math.Inf(1),
	}
}

// Step feeds one validation metric (lower is better).
func (s *ReduceLROnPlateau) Step(metric float64) {
	if metric < s.best-s.threshold {
		s.best = metric
		s.numBad = 0
		return
	}

	s.numBad++
	if s.numBad < s.patience {
		return
	}
	s.numBad = 0

	lr := s.lr * s.factor
	if lr < s.minLR {
		lr = s.minLR
	}
	if lr < s.lr {
		s.lr = lr
		if s.opt != nil {
			s.opt.SetLR(lr)
		}
	}
}

// LR returns the current learning rate.
func (s *ReduceLROnPlateau) LR() float64 {
	return s.lr
}
