package main

import (
	"flag"
	"log"
	"path/filepath"

	"github.com/sugarme/gotch"

	"github.com/sugarme/useg/summary"
	"github.com/sugarme/useg/train"
)

// flag variables
var (
	dataDir    string
	labelDir   string
	logDir     string
	cuda       bool
	transposed bool
)

// hyperparameters
var (
	lr        float64 // learning rate
	batchSize int     // batch size
	epochs    int     // epoch count
	classes   int64   // number of target classes
	channels  int64   // input image channels
	workers   int     // dataloader decode workers
)

func init() {
	flag.StringVar(&dataDir, "data", "./input/images", "specify input image directory (with Train/ and Val/ subdirs)")
	flag.StringVar(&labelDir, "labels", "./input/masks", "specify mask directory (with Train/ and Val/ subdirs)")
	flag.StringVar(&logDir, "log", "./runs", "specify metrics log directory")
	flag.BoolVar(&cuda, "cuda", false, "specify whether using CUDA or not.")
	flag.BoolVar(&transposed, "transposed", false, "specify transposed-conv upsampling instead of bilinear")
	flag.Float64Var(&lr, "lr", 0.001, "specify learning rate")
	flag.IntVar(&batchSize, "batch", 4, "specify batch size")
	flag.IntVar(&epochs, "epochs", 2, "specify number of epochs")
	flag.Int64Var(&classes, "classes", 3, "specify number of target classes")
	flag.Int64Var(&channels, "channels", 3, "specify input image channels")
	flag.IntVar(&workers, "workers", 4, "specify dataloader worker count")
}

func main() {
	flag.Parse()

	var device gotch.Device = gotch.CPU
	if cuda {
		cu := gotch.NewCuda()
		if !cu.IsAvailable() {
			log.Fatal("CUDA device requested but not available")
		}
		device = cu.CudaIfAvailable()
	}

	cfg := train.DefaultConfig()
	cfg.DataDir = absPath(dataDir)
	cfg.LabelDir = absPath(labelDir)
	cfg.LogDir = absPath(logDir)
	cfg.Device = device
	cfg.LR = lr
	cfg.BatchSize = batchSize
	cfg.Epochs = epochs
	cfg.Classes = classes
	cfg.Channels = channels
	cfg.Workers = workers
	cfg.TransposedConv = transposed

	writer, err := summary.NewWriter(cfg.LogDir)
	if err != nil {
		log.Fatal(err)
	}

	t, err := train.NewTrainer(cfg, writer)
	if err != nil {
		log.Fatal(err)
	}

	if err := t.Run(); err != nil {
		log.Fatal(err)
	}

	if err := writer.Close(); err != nil {
		log.Fatal(err)
	}
}

// helper to get absolute file path
func absPath(p string) string {
	fullpath, err := filepath.Abs(p)
	if err != nil {
		log.Fatal(err)
	}
	return fullpath
}
