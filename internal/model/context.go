// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package model

import (
	"github.com/gomlx/gomlx/ml/context"
	"github.com/gomlx/gomlx/ml/layers"
	"github.com/gomlx/gomlx/ml/layers/regularizers"
	"github.com/gomlx/gomlx/ml/train/optimizers"
	"github.com/gomlx/relembed/internal/dataset"
	"github.com/gomlx/relembed/internal/monitor"
	"github.com/gomlx/relembed/internal/schedule"
)

// Training hyperparameters.
const (
	// ParamTrainSteps is the total number of training steps. If 0, it is max_epochs * steps_per_epoch.
	ParamTrainSteps = "train_steps"

	// ParamMaxEpochs is used to derive train_steps, if it is not set.
	ParamMaxEpochs = "max_epochs"

	// ParamNumCheckpoints is the number of checkpoints kept.
	ParamNumCheckpoints = "num_checkpoints"

	// ParamCheckpointPeriod is how often checkpoints are saved during training, as a time.Duration string.
	ParamCheckpointPeriod = "checkpoint_period"
)

// ExcludedParams are not saved in checkpoints: they configure the training session, not the model.
var ExcludedParams = []string{
	ParamTrainSteps, ParamMaxEpochs, ParamNumCheckpoints, ParamCheckpointPeriod,
	monitor.ParamPlots, dataset.ParamParallelBuffer, dataset.ParamImageCacheSize, dataset.ParamSeed,
}

// CreateDefaultContext returns a context with the default hyperparameters.
func CreateDefaultContext() *context.Context {
	ctx := context.New()
	ctx.RngStateReset()
	ctx.SetParams(map[string]any{
		ParamTrainSteps:       0,
		ParamMaxEpochs:        10000,
		ParamNumCheckpoints:   3,
		ParamCheckpointPeriod: "1m",

		// Data.
		dataset.ParamImageSize:      224,
		dataset.ParamImageCacheSize: 2048,
		dataset.ParamBatchSize:      64,
		dataset.ParamEvalSteps:      10,
		dataset.ParamParallelBuffer: 4,
		dataset.ParamSeed:           0,

		// "plots" records train metrics at exponential steps in the checkpoint directory, and renders them
		// as SVG curves (and, if running in GoNB, displays them).
		monitor.ParamPlots: true,

		// Optimizer: the learning rate is decayed by epoch following the schedule.
		optimizers.ParamOptimizer:    "adam",
		optimizers.ParamLearningRate: 1e-4,
		schedule.ParamSchedule:       "10:1e-5,20:1e-6",
		schedule.ParamStepsPerEpoch:  0, // Set from the dataset size by the trainer.

		// Network.
		ParamEmbeddingDim:       2,
		ParamConvChannels:       []int{64, 128, 256, 512, 512},
		ParamHiddenDims:         []int{4096, 4096},
		layers.ParamDropoutRate: 0.5,
		regularizers.ParamL2:    0.0,
		ParamFCL2:               1e-5,

		// Losses.
		ParamMargin: 5.0,
	})
	return ctx
}

// TrainSteps returns the number of training steps configured in the context: train_steps if set,
// otherwise max_epochs * stepsPerEpoch.
func TrainSteps(ctx *context.Context, stepsPerEpoch int) int {
	if steps := context.GetParamOr(ctx, ParamTrainSteps, 0); steps > 0 {
		return steps
	}
	return context.GetParamOr(ctx, ParamMaxEpochs, 0) * stepsPerEpoch
}
