// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// relembed trains models that embed images of spatial relations ("below", "left of", "in front of", ...)
// into a low dimensional space, where images of the same relation are close together.
//
//  1. With `relembed -a triplet`: trains the triplet-loss model on the examples listed in --data,
//     saving checkpoints in train_log/triplet (or --checkpoint).
//  2. With `relembed -a triplet --visualize --load train_log/triplet`: embeds the first test images
//     and saves the scatter plot "triplet.jpg".
//
// Hyperparameters are set with --config (a yaml/json/toml file), RELEMBED_* environment variables
// and --set, in that order of precedence (lowest first).
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gomlx/ml/context"
	"github.com/gomlx/gomlx/ui/commandline"
	"github.com/gomlx/relembed/internal/config"
	"github.com/gomlx/relembed/internal/device"
	"github.com/gomlx/relembed/internal/model"
	"github.com/gomlx/relembed/internal/trainer"
	"github.com/gomlx/relembed/internal/visualize"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	_ "github.com/gomlx/gomlx/backends/default"
)

var (
	flagGPU       = flag.String("gpu", "", "Comma separated list of GPU(s) to use.")
	flagLoad      = flag.String("load", "", "Load model from the checkpoint directory: warm-starts training, or selects the model to --visualize.")
	flagAlgorithm = flag.String("algorithm", "", fmt.Sprintf("Used algorithm, one of %q.", model.AlgorithmStrings()))
	flagVisualize = flag.Bool("visualize", false, "Export embeddings into an image, instead of training.")

	flagData        = flag.String("data", "data/train.txt", "List file with training examples: one \"<image path> <relation>\" per line.")
	flagTestData    = flag.String("test_data", "", "List file with the examples to --visualize. Defaults to --data.")
	flagCheckpoint  = flag.String("checkpoint", "", "Directory to save and resume checkpoints from. Defaults to train_log/<algorithm>.")
	flagConfig      = flag.String("config", "", "Configuration file (yaml, json or toml) with hyperparameters.")
	flagMetricsAddr = flag.String("metrics_addr", "", "If set, serve Prometheus metrics at this address (e.g. \":9090\") during training.")
	flagOutput      = flag.String("output", ".", "Directory where the --visualize plot is saved.")
	flagExportCSV   = flag.String("export_csv", "", "If set with --visualize, save the embeddings to this CSV file.")
)

func init() {
	flag.StringVar(flagAlgorithm, "a", "", "Shorthand for --algorithm.")
}

func main() {
	ctx := model.CreateDefaultContext()
	settings := commandline.CreateContextSettingsFlag(ctx, "")
	klog.InitFlags(nil)
	flag.Parse()

	err := exceptions.TryCatch[error](func() { run(ctx, *settings) })
	if err != nil {
		klog.Errorf("Error:\n%+v", err)
		os.Exit(1)
	}
}

func run(ctx *context.Context, settings string) {
	if *flagAlgorithm == "" {
		exceptions.Panicf("-a/--algorithm is required, one of %q", model.AlgorithmStrings())
	}
	algorithm, err := model.AlgorithmString(*flagAlgorithm)
	if err != nil {
		panic(errors.WithMessagef(err, "invalid -a/--algorithm"))
	}

	if *flagGPU != "" {
		restore := must.M1(device.ChangeGPU(*flagGPU))
		defer restore()
	}

	// Hyperparameters: config file and environment first, then --set.
	paramsSet := must.M1(config.Apply(ctx, *flagConfig))
	paramsSet = append(paramsSet, must.M1(commandline.ParseContextSettings(ctx, settings))...)

	if *flagVisualize {
		testData := *flagTestData
		if testData == "" {
			testData = *flagData
		}
		must.M1(visualize.Visualize(ctx, &visualize.Config{
			Algorithm: algorithm,
			LoadDir:   *flagLoad,
			DataPath:  testData,
			OutputDir: *flagOutput,
			ExportCSV: *flagExportCSV,
			ParamsSet: paramsSet,
		}))
		return
	}

	if len(paramsSet) > 0 {
		fmt.Println(commandline.SprintModifiedContextSettings(ctx, paramsSet))
	}
	must.M(trainer.Train(ctx, &trainer.Config{
		Algorithm:     algorithm,
		DataPath:      *flagData,
		CheckpointDir: *flagCheckpoint,
		LoadDir:       *flagLoad,
		MetricsAddr:   *flagMetricsAddr,
		ParamsSet:     paramsSet,
	}))
}
