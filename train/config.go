package train

import "github.com/sugarme/gotch"

// Config collects every knob of a training run. The data layout is two
// parallel directory trees (images under DataDir, masks under LabelDir),
// each split into Train/ and Val/ subdirectories, files matched by stem
// filename.
type Config struct {
	DataDir   string
	LabelDir  string
	BatchSize int
	Device    gotch.Device
	LR        float64
	Epochs    int
	Classes   int64
	Channels  int64

	// Workers and Prefetch bound the dataloader decode pool.
	Workers  int
	Prefetch int

	// LogDir receives scalar CSVs, plots and logged image sheets.
	LogDir string

	// TransposedConv selects learned transposed-conv upsampling in the
	// decoder instead of bilinear interpolation.
	TransposedConv bool

	// GradClip bounds parameter gradient magnitudes before each optimizer
	// step.
	GradClip float64
}

// DefaultConfig returns a Config with the stock hyperparameters.
func DefaultConfig() Config {
	return Config{
		BatchSize: 4,
		Device:    gotch.CPU,
		LR:        0.001,
		Epochs:    2,
		Classes:   3,
		Channels:  3,
		Workers:   4,
		Prefetch:  4,
		LogDir:    "./runs",
		GradClip:  0.1,
	}
}
