// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package trainer trains the relation embedding models: it creates the datasets, the trainer and its
// loop, and attaches checkpointing, progress reporting and monitoring.
package trainer

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/gomlx/gomlx/backends"
	"github.com/gomlx/gomlx/ml/context"
	"github.com/gomlx/gomlx/ml/context/checkpoints"
	"github.com/gomlx/gomlx/ml/data"
	"github.com/gomlx/gomlx/ml/train"
	"github.com/gomlx/gomlx/ml/train/optimizers"
	"github.com/gomlx/gomlx/types/tensors"
	"github.com/gomlx/gomlx/ui/commandline"
	"github.com/gomlx/relembed/internal/dataset"
	"github.com/gomlx/relembed/internal/model"
	"github.com/gomlx/relembed/internal/monitor"
	"github.com/gomlx/relembed/internal/schedule"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// DefaultLogDir is the base directory of the checkpoints, one sub-directory per algorithm.
const DefaultLogDir = "train_log"

// Config of a training session. Model hyperparameters are given in the context.
type Config struct {
	Algorithm model.Algorithm

	// DataPath is the list file with the training examples.
	DataPath string

	// CheckpointDir where checkpoints are saved. If empty, CheckpointDirFor is used.
	// Training resumes from the latest checkpoint in it, if any.
	CheckpointDir string

	// LoadDir is a checkpoint directory used to warm-start the model, if CheckpointDir has no checkpoints yet.
	// The global step restarts from 0 on a warm-start.
	LoadDir string

	// MetricsAddr, if not empty, is the address where Prometheus metrics are served.
	MetricsAddr string

	// ParamsSet are the hyperparameters set by the user: they take precedence over the values
	// stored in checkpoints.
	ParamsSet []string
}

// CheckpointDirFor returns dir if not empty, otherwise the default checkpoint directory of the algorithm.
func CheckpointDirFor(dir string, algorithm model.Algorithm) string {
	if dir != "" {
		return data.ReplaceTildeInDir(dir)
	}
	return filepath.Join(DefaultLogDir, algorithm.String())
}

// Train the embedding model configured in ctx.
func Train(ctx *context.Context, cfg *Config) error {
	algorithm := cfg.Algorithm
	if !algorithm.IsAAlgorithm() {
		return errors.Errorf("invalid algorithm %s, valid values are %q", algorithm, model.AlgorithmStrings())
	}
	mode := algorithm.Mode()

	// Datasets.
	dsConfig := dataset.NewConfigurationFromContext(ctx, cfg.DataPath)
	trainDS, evalDS, examples, err := dataset.CreateDatasets(dsConfig, mode)
	if err != nil {
		return errors.WithMessagef(err, "failed to create datasets from %q", dsConfig.ListPath)
	}
	fmt.Println(dataset.Summary(dsConfig.ListPath, examples))
	stepsPerEpoch := context.GetParamOr(ctx, schedule.ParamStepsPerEpoch, 0)
	if stepsPerEpoch <= 0 {
		stepsPerEpoch = dsConfig.StepsPerEpoch(mode, len(examples))
		ctx.SetParam(schedule.ParamStepsPerEpoch, stepsPerEpoch)
	}
	fmt.Printf("Training %s on %s: %d %s per batch, %d steps per epoch\n",
		algorithm, mode, dsConfig.TuplesPerBatch(mode), mode, stepsPerEpoch)

	// Checkpoints: resume from checkpointDir or warm-start from cfg.LoadDir.
	checkpointDir := CheckpointDirFor(cfg.CheckpointDir, algorithm)
	excluded := append(slices.Clone(cfg.ParamsSet), model.ExcludedParams...)
	excluded = append(excluded, schedule.ParamStepsPerEpoch)
	checkpoint, err := createCheckpoint(ctx, checkpointDir, cfg.LoadDir, excluded)
	if err != nil {
		return err
	}

	backend := backends.MustNew()
	trainMetrics, evalMetrics := model.Metrics(algorithm)
	trainer := train.NewTrainer(backend, ctx,
		model.ModelGraph,
		model.NewLossFn(ctx, algorithm),
		optimizers.FromContext(ctx),
		trainMetrics,
		evalMetrics)

	// Use standard training loop, counting steps from the global step of a restored model.
	loop := train.NewLoop(trainer)
	globalStep := int(optimizers.GetGlobalStep(ctx))
	loop.LoopStep = globalStep
	learningRate := newLearningRateFn(ctx, loop)
	commandline.AttachProgressBar(loop)
	reportLearningRate(loop, stepsPerEpoch, learningRate)

	// Save checkpoints periodically and at the end of training.
	period, err := time.ParseDuration(context.GetParamOr(ctx, model.ParamCheckpointPeriod, "1m"))
	if err != nil {
		return errors.Wrapf(err, "invalid %q", model.ParamCheckpointPeriod)
	}
	train.PeriodicCallback(loop, period, true, "saving checkpoints", 100, checkpoint.OnStepFn)

	// Training curves, saved along the checkpoint.
	if context.GetParamOr(ctx, monitor.ParamPlots, false) {
		curves, err := monitor.NewCurves(checkpoint.Dir())
		if err != nil {
			return err
		}
		curves.Attach(loop, 100, 1.2)
	}

	// Prometheus metrics.
	if cfg.MetricsAddr != "" {
		exporter := monitor.NewExporter(algorithm.String())
		if err := exporter.Serve(cfg.MetricsAddr); err != nil {
			return err
		}
		defer func() { _ = exporter.Close() }()
		exporter.Attach(loop, 10, learningRate)
	}

	// Loop for given number of steps.
	numTrainSteps := model.TrainSteps(ctx, stepsPerEpoch)
	if globalStep > 0 {
		trainer.SetContext(ctx.Reuse())
	}
	if globalStep < numTrainSteps {
		if _, err = loop.RunSteps(trainDS, numTrainSteps-globalStep); err != nil {
			return errors.WithMessagef(err, "failed training %s", algorithm)
		}
		fmt.Printf("\t[Step %d] median train step: %d microseconds\n",
			loop.LoopStep, loop.MedianTrainStepDuration().Microseconds())
	} else {
		fmt.Printf("\t - target train_steps=%d already reached. To train further, set a number additional "+
			"to current global step.\n", numTrainSteps)
	}

	// Finally, print an evaluation.
	if evalDS != nil {
		fmt.Println()
		if err = commandline.ReportEval(trainer, evalDS); err != nil {
			return err
		}
		fmt.Println()
	}
	return nil
}

// createCheckpoint creates the handler that saves checkpoints into dir. If dir has no checkpoints yet and
// loadDir is given, the model is warm-started from the latest checkpoint in loadDir.
func createCheckpoint(ctx *context.Context, dir, loadDir string, excluded []string) (*checkpoints.Handler, error) {
	if err := os.MkdirAll(dir, 0777); err != nil {
		return nil, errors.Wrapf(err, "failed to create checkpoint directory %q", dir)
	}
	checkpoint, err := checkpoints.Build(ctx).
		Dir(dir).
		Keep(context.GetParamOr(ctx, model.ParamNumCheckpoints, 3)).
		ExcludeParams(excluded...).
		Done()
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to create checkpoint handler in %q", dir)
	}
	fmt.Printf("Checkpointing model to %q\n", checkpoint.Dir())
	if loadDir == "" {
		return checkpoint, nil
	}

	hasCheckpoints, err := checkpoint.HasCheckpoints()
	if err != nil {
		return nil, err
	}
	if hasCheckpoints {
		klog.Warningf("Checkpoint directory %q already has checkpoints: resuming from them and ignoring --load=%q",
			checkpoint.Dir(), loadDir)
		return checkpoint, nil
	}
	loadDir = data.ReplaceTildeInDir(loadDir)
	if _, err = checkpoints.Load(ctx).Dir(loadDir).ExcludeParams(excluded...).Done(); err != nil {
		return nil, errors.WithMessagef(err, "failed to warm-start model from %q", loadDir)
	}
	// train_steps counts from the start of the fine-tuning.
	fmt.Printf("Warm-started model from %q (trained for %d steps)\n", loadDir, optimizers.GetGlobalStep(ctx))
	optimizers.GetGlobalStepVar(ctx).SetValue(tensors.FromValue(int64(0)))
	return checkpoint, nil
}

// newLearningRateFn returns a function that reports the learning rate at the current step of the loop,
// according to the schedule.
func newLearningRateFn(ctx *context.Context, loop *train.Loop) func() float64 {
	baseLR := context.GetParamOr(ctx, optimizers.ParamLearningRate, 0.0)
	stepsPerEpoch := max(context.GetParamOr(ctx, schedule.ParamStepsPerEpoch, 1), 1)
	points, err := schedule.Parse(context.GetParamOr(ctx, schedule.ParamSchedule, ""))
	if err != nil {
		// The model graph fails with the same error when building.
		klog.Errorf("Invalid %q: %v", schedule.ParamSchedule, err)
	}
	return func() float64 {
		return schedule.LearningRateAt(points, baseLR, loop.LoopStep/stepsPerEpoch)
	}
}


// reportLearningRate logs the learning rate at the start of training and at every epoch it changes.
func reportLearningRate(loop *train.Loop, stepsPerEpoch int, learningRate func() float64) {
	last := -1.0
	train.EveryNSteps(loop, max(stepsPerEpoch, 1), "learning rate", 0,
		func(loop *train.Loop, _ []*tensors.Tensor) error {
			if lr := learningRate(); lr != last {
				klog.Infof("Step %d: learning rate %g", loop.LoopStep, lr)
				last = lr
			}
			return nil
		})
}
