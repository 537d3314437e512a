// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package trainer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gomlx/gomlx/ml/context"
	"github.com/gomlx/gomlx/ml/train/optimizers"
	"github.com/gomlx/relembed/internal/dataset"
	"github.com/gomlx/relembed/internal/dataset/datasettest"
	"github.com/gomlx/relembed/internal/model"
	"github.com/gomlx/relembed/internal/monitor"
	"github.com/gomlx/relembed/internal/relations"
	"github.com/gomlx/relembed/internal/schedule"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/gomlx/gomlx/backends/default"
)

// tinyContext configures a model small enough to train in a test.
func tinyContext(trainSteps int) *context.Context {
	ctx := model.CreateDefaultContext()
	ctx.SetParams(map[string]any{
		model.ParamTrainSteps:       trainSteps,
		model.ParamConvChannels:     []int{2},
		model.ParamHiddenDims:       []int{4},
		dataset.ParamImageSize:      8,
		dataset.ParamBatchSize:      6,
		dataset.ParamEvalSteps:      1,
		dataset.ParamParallelBuffer: 0,
		dataset.ParamSeed:           42,
		monitor.ParamPlots:          false,
	})
	return ctx
}

func TestCheckpointDirFor(t *testing.T) {
	assert.Equal(t, filepath.Join("train_log", "triplet"), CheckpointDirFor("", model.AlgorithmTriplet))
	assert.Equal(t, "/tmp/x", CheckpointDirFor("/tmp/x", model.AlgorithmTriplet))
}

func TestTrain(t *testing.T) {
	listPath := datasettest.WriteList(t, 3, relations.Below, relations.Above, relations.In)
	checkpointDir := filepath.Join(t.TempDir(), "siamese")

	ctx := tinyContext(3)
	cfg := &Config{
		Algorithm:     model.AlgorithmSiamese,
		DataPath:      listPath,
		CheckpointDir: checkpointDir,
	}
	require.NoError(t, Train(ctx, cfg))
	assert.Equal(t, int64(3), optimizers.GetGlobalStep(ctx))

	// steps_per_epoch is derived from the dataset size.
	assert.Greater(t, context.GetParamOr(ctx, schedule.ParamStepsPerEpoch, 0), 0)

	entries, err := os.ReadDir(checkpointDir)
	require.NoError(t, err)
	assert.NotEmpty(t, entries, "no checkpoint saved in %q", checkpointDir)

	// Training again with a larger train_steps resumes from the checkpoint.
	ctx = tinyContext(5)
	require.NoError(t, Train(ctx, cfg))
	assert.Equal(t, int64(5), optimizers.GetGlobalStep(ctx))
}

func TestTrainWarmStart(t *testing.T) {
	listPath := datasettest.WriteList(t, 2, relations.LeftOf, relations.RightOf)
	baseDir := t.TempDir()
	loadDir := filepath.Join(baseDir, "pretrained")

	ctx := tinyContext(2)
	require.NoError(t, Train(ctx, &Config{
		Algorithm:     model.AlgorithmTriplet,
		DataPath:      listPath,
		CheckpointDir: loadDir,
	}))

	// Warm-start from loadDir: train_steps counts from 0 again, so the model trains 1 step
	// even though the pre-trained model already took 2.
	ctx = tinyContext(1)
	finetunedDir := filepath.Join(baseDir, "finetuned")
	require.NoError(t, Train(ctx, &Config{
		Algorithm:     model.AlgorithmTriplet,
		DataPath:      listPath,
		CheckpointDir: finetunedDir,
		LoadDir:       loadDir,
	}))
	assert.Equal(t, int64(1), optimizers.GetGlobalStep(ctx))
	entries, err := os.ReadDir(finetunedDir)
	require.NoError(t, err)
	assert.NotEmpty(t, entries, "no checkpoint saved in %q", finetunedDir)
}

func TestTrainErrors(t *testing.T) {
	ctx := tinyContext(1)
	err := Train(ctx, &Config{Algorithm: model.Algorithm(17), DataPath: "unused.txt"})
	require.Error(t, err)

	err = Train(ctx, &Config{
		Algorithm:     model.AlgorithmCosine,
		DataPath:      filepath.Join(t.TempDir(), "missing.txt"),
		CheckpointDir: t.TempDir(),
	})
	require.Error(t, err)

	listPath := datasettest.WriteList(t, 2, relations.LeftOf, relations.RightOf)
	err = Train(ctx, &Config{
		Algorithm:     model.AlgorithmCosine,
		DataPath:      listPath,
		CheckpointDir: t.TempDir(),
		LoadDir:       filepath.Join(t.TempDir(), "no_checkpoint"),
	})
	require.Error(t, err)
}
