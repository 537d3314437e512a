// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"time"

	"github.com/gomlx/gomlx/ml/context"
	"github.com/gomlx/gomlx/ml/data"
	"github.com/gomlx/gomlx/ml/train"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
)

// Hyperparameters read from the context by NewConfigurationFromContext.
const (
	// ParamImageSize is the size of the (square) images fed to the model, after resizing.
	ParamImageSize = "image_size"

	// ParamImageCacheSize is the number of resized images kept in memory.
	ParamImageCacheSize = "image_cache_size"

	// ParamBatchSize is the total number of images in a training batch: the number of tuples in a batch is
	// batch_size / 2 for pairs, and batch_size / 3 for triplets.
	ParamBatchSize = "batch_size"

	// ParamEvalSteps is the number of batches sampled for evaluation. If 0 no evaluation is done.
	ParamEvalSteps = "eval_steps"

	// ParamParallelBuffer is the number of batches pre-loaded in parallel. If 0, images are loaded inline.
	ParamParallelBuffer = "parallel_buffer"

	// ParamSeed for the sampling of pairs and triplets. If 0, it is taken from the clock.
	ParamSeed = "data_seed"
)

// Configuration holds the parameters used to create the datasets.
type Configuration struct {
	// ListPath is the path to the list file with the training examples.
	ListPath string

	ImageSize, ImageCacheSize int

	// BatchSize is the number of images per batch: it is divided by the number of inputs per tuple.
	BatchSize int

	EvalSteps, ParallelBuffer int
	Seed                      int64
	DType                     dtypes.DType
}

// NewConfigurationFromContext creates a dataset configuration based on hyperparameters set in the context.
func NewConfigurationFromContext(ctx *context.Context, listPath string) *Configuration {
	config := &Configuration{
		ListPath:       data.ReplaceTildeInDir(listPath),
		ImageSize:      context.GetParamOr(ctx, ParamImageSize, 224),
		ImageCacheSize: context.GetParamOr(ctx, ParamImageCacheSize, 2048),
		BatchSize:      context.GetParamOr(ctx, ParamBatchSize, 64),
		EvalSteps:      context.GetParamOr(ctx, ParamEvalSteps, 0),
		ParallelBuffer: context.GetParamOr(ctx, ParamParallelBuffer, 0),
		Seed:           int64(context.GetParamOr(ctx, ParamSeed, 0)),
		DType:          dtypes.Float32,
	}
	if config.Seed == 0 {
		config.Seed = time.Now().UTC().UnixNano()
	}
	return config
}

// TuplesPerBatch returns the number of pairs or triplets in a batch.
func (c *Configuration) TuplesPerBatch(mode Mode) int {
	return c.BatchSize / mode.NumInputs()
}

// CreateDatasets reads the list file and creates the training dataset (infinite) and, if
// EvalSteps > 0, an evaluation dataset (finite, always sampling the same tuples).
//
// It also returns the examples read, for reporting.
func CreateDatasets(config *Configuration, mode Mode) (trainDS, evalDS train.Dataset, examples []Example, err error) {
	examples, err = LoadList(config.ListPath)
	if err != nil {
		return
	}
	loader, err := NewImageLoader(config.ImageSize, config.ImageCacheSize)
	if err != nil {
		return
	}
	tuplesPerBatch := config.TuplesPerBatch(mode)
	if tuplesPerBatch <= 0 {
		err = errors.Errorf("batch size %d too small for %s", config.BatchSize, mode)
		return
	}
	var ds *Dataset
	ds, err = New("train", mode, examples, loader, tuplesPerBatch, config.Seed, config.DType)
	if err != nil {
		return
	}
	trainDS = ds
	if config.ParallelBuffer > 0 {
		trainDS = data.CustomParallel(ds).Buffer(config.ParallelBuffer).Start()
	}
	if config.EvalSteps > 0 {
		ds, err = New("eval", mode, examples, loader, tuplesPerBatch, config.Seed+1, config.DType)
		if err != nil {
			return
		}
		evalDS = ds.WithMaxSteps(config.EvalSteps)
	}
	return
}

// StepsPerEpoch returns the number of batches needed to see each example once, as an anchor or left image.
func (c *Configuration) StepsPerEpoch(mode Mode, numExamples int) int {
	tuples := c.TuplesPerBatch(mode)
	if tuples <= 0 {
		return 1
	}
	return max(1, (numExamples+tuples-1)/tuples)
}
