package train

import (
	"fmt"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/sugarme/gotch"
	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"

	"github.com/sugarme/useg/data"
	"github.com/sugarme/useg/dutil"
	"github.com/sugarme/useg/metric"
	"github.com/sugarme/useg/unet"
)

// Logger is the narrow metrics sink the training loop writes to.
type Logger interface {
	LogScalar(name string, value float64, step int)
	LogImages(name string, batch *ts.Tensor, step int) error
}

// Trainer drives optimization of a UNet over a train/val dataset pair:
// per-batch RMSProp steps with gradient clipping, periodic validation
// with plateau-triggered learning-rate reduction, and metric logging.
type Trainer struct {
	cfg    Config
	vs     *nn.VarStore
	net    *unet.UNet
	opt    *nn.Optimizer
	sched  *ReduceLROnPlateau
	logger Logger

	trainDL *dutil.DataLoader
	valDL   *dutil.DataLoader
	nTrain  int

	globalStep int
}

// NewTrainer builds datasets, loaders, network and optimizer from cfg.
// Dataset construction fails on any input image without a matching mask.
func NewTrainer(cfg Config, logger Logger) (*Trainer, error) {
	trainDS, err := data.New(filepath.Join(cfg.DataDir, "Train"), filepath.Join(cfg.LabelDir, "Train"))
	if err != nil {
		return nil, err
	}
	valDS, err := data.New(filepath.Join(cfg.DataDir, "Val"), filepath.Join(cfg.LabelDir, "Val"))
	if err != nil {
		return nil, err
	}

	trainSampler, err := dutil.NewBatchSampler(trainDS.Len(), cfg.BatchSize, true, true)
	if err != nil {
		return nil, err
	}
	trainDL, err := dutil.NewDataLoader(trainDS, trainSampler, dutil.WithWorkers(cfg.Workers), dutil.WithPrefetch(cfg.Prefetch))
	if err != nil {
		return nil, err
	}

	valSampler, err := dutil.NewBatchSampler(valDS.Len(), cfg.BatchSize, true, false) // no shuffle
	if err != nil {
		return nil, err
	}
	valDL, err := dutil.NewDataLoader(valDS, valSampler, dutil.WithWorkers(cfg.Workers), dutil.WithPrefetch(cfg.Prefetch))
	if err != nil {
		return nil, err
	}

	vs := nn.NewVarStore(cfg.Device)
	net := unet.NewUNet(vs.Root(), cfg.Channels, cfg.Classes, !cfg.TransposedConv)

	optConfig := nn.DefaultRMSPropConfig()
	optConfig.Wd = 1e-8
	optConfig.Momentum = 0.9
	opt, err := optConfig.Build(vs, cfg.LR)
	if err != nil {
		return nil, err
	}

	return &Trainer{
		cfg:     cfg,
		vs:      vs,
		net:     net,
		opt:     opt,
		sched:   NewReduceLROnPlateau(opt, cfg.LR),
		logger:  logger,
		trainDL: trainDL,
		valDL:   valDL,
		nTrain:  trainDS.Len(),
	}, nil
}

// VarStore exposes the trainer's variable store (e.g. for vs.Save).
func (t *Trainer) VarStore() *nn.VarStore {
	return t.vs
}

// GlobalStep returns the number of optimizer steps taken so far.
func (t *Trainer) GlobalStep() int {
	return t.globalStep
}

// validationInterval returns how many global steps separate validation
// rounds: floor(nTrain / (10 * batchSize)), clamped to at least 1 so tiny
// datasets still validate.
func validationInterval(nTrain, batchSize int) int {
	iv := nTrain / (10 * batchSize)
	if iv < 1 {
		iv = 1
	}

	return iv
}

// Run trains for the configured number of epochs. Any loading or compute
// error aborts the run.
func (t *Trainer) Run() error {
	interval := validationInterval(t.nTrain, t.cfg.BatchSize)

	for epoch := 0; epoch < t.cfg.Epochs; epoch++ {
		if epoch > 0 {
			t.trainDL.Reset()
		}

		bar := progressbar.NewOptions(t.nTrain,
			progressbar.OptionSetDescription(fmt.Sprintf("Epoch %v/%v", epoch+1, t.cfg.Epochs)))

		var losses []float64
		for t.trainDL.HasNext() {
			b, err := t.trainDL.Next()
			if err != nil {
				return err
			}
			samples := b.([]data.Sample)

			imgTs, maskTs := stackSamples(samples)
			input := imgTs.MustTo(t.cfg.Device, true)
			target := maskTs.MustTo(t.cfg.Device, true).MustTotype(gotch.Int64, true)

			logits := t.net.ForwardT(input, true)
			loss := metric.CrossEntropyLoss(logits, target)
			logits.MustDrop()

			// zero grads, backprop, clip gradient values, optimizer step
			t.opt.BackwardStepClip(loss, t.cfg.GradClip)
			losses = append(losses, loss.Float64Values()[0])
			loss.MustDrop()

			t.globalStep++
			_ = bar.Add(len(samples))

			if t.globalStep%interval == 0 {
				if err := t.validate(input); err != nil {
					return err
				}
			}

			input.MustDrop()
			target.MustDrop()
		}
		_ = bar.Finish()

		fmt.Printf("Epoch %02d\t train loss: %6.4f\n", epoch+1, avg(losses))
	}

	return nil
}

// validate runs one evaluation pass over the validation loader: mean loss
// and dice under no-grad, a scheduler step on the loss, then scalar and
// image logging. trainImages is the current training batch, logged the way
// the run's input data looks.
func (t *Trainer) validate(trainImages *ts.Tensor) error {
	t.valDL.Reset()

	var losses, dices []float64
	for t.valDL.HasNext() {
		b, err := t.valDL.Next()
		if err != nil {
			return err
		}
		samples := b.([]data.Sample)

		imgTs, maskTs := stackSamples(samples)
		input := imgTs.MustTo(t.cfg.Device, true)
		target := maskTs.MustTo(t.cfg.Device, true).MustTotype(gotch.Int64, true)

		var logits *ts.Tensor
		ts.NoGrad(func() {
			logits = t.net.ForwardT(input, false)
		})

		loss := metric.CrossEntropyLoss(logits, target)
		losses = append(losses, loss.Float64Values()[0])
		loss.MustDrop()

		pred := logits.MustArgmax(1, false, true)
		dices = append(dices, metric.DiceCoeffBatch(pred, target))

		pred.MustDrop()
		input.MustDrop()
		target.MustDrop()
	}

	valLoss := avg(losses)
	t.sched.Step(valLoss)

	t.logger.LogScalar("learning_rate", t.sched.LR(), t.globalStep)
	t.logger.LogScalar("Loss/validation", valLoss, t.globalStep)
	t.logger.LogScalar("Dice/validation", avg(dices), t.globalStep)

	return t.logger.LogImages("images", trainImages, t.globalStep)
}

// stackSamples stacks a batch of samples into [B 3 H W] image and [B H W]
// mask tensors, dropping the per-sample tensors.
func stackSamples(samples []data.Sample) (img, mask *ts.Tensor) {
	var imgs, masks []ts.Tensor
	for _, s := range samples {
		imgs = append(imgs, s.Image)
		masks = append(masks, s.Mask)
	}

	imgTs := ts.MustStack(imgs, 0)
	for _, x := range imgs {
		x.MustDrop()
	}
	maskTs := ts.MustStack(masks, 0)
	for _, x := range masks {
		x.MustDrop()
	}

	return imgTs, maskTs
}

func avg(input []float64) float64 {
	if len(input) == 0 {
		return 0
	}

	var sum float64
	for _, v := range input {
		sum += v
	}

	return sum / float64(len(input))
}
