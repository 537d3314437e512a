// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package model

import (
	"testing"

	. "github.com/gomlx/gomlx/graph"
	"github.com/gomlx/gomlx/graph/graphtest"
	"github.com/gomlx/gomlx/ml/context"
	"github.com/gomlx/gomlx/ml/layers"
	"github.com/gomlx/gomlx/types/tensors"
	"github.com/gomlx/relembed/internal/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/gomlx/gomlx/backends/default"
)

func TestAlgorithm(t *testing.T) {
	assert.Equal(t, []string{"siamese", "cosine", "triplet", "softtriplet"}, AlgorithmStrings())
	for _, algo := range AlgorithmValues() {
		parsed, err := AlgorithmString(algo.String())
		require.NoError(t, err)
		assert.Equal(t, algo, parsed)
	}
	var algo Algorithm
	require.NoError(t, algo.UnmarshalText([]byte("SoftTriplet")))
	assert.Equal(t, AlgorithmSoftTriplet, algo)
	require.Error(t, algo.UnmarshalText([]byte("quadruplet")))

	assert.Equal(t, dataset.ModePairs, AlgorithmSiamese.Mode())
	assert.Equal(t, dataset.ModePairs, AlgorithmCosine.Mode())
	assert.Equal(t, dataset.ModeTriplets, AlgorithmTriplet.Mode())
	assert.Equal(t, dataset.ModeTriplets, AlgorithmSoftTriplet.Mode())
	assert.False(t, AlgorithmCosine.TracksDistances())
	assert.True(t, AlgorithmSoftTriplet.TracksDistances())
}

// smallContext returns the default context with a tiny network, so tests run fast.
func smallContext() *context.Context {
	ctx := CreateDefaultContext()
	ctx.SetParams(map[string]any{
		ParamConvChannels: []int{2, 3},
		ParamHiddenDims:   []int{5},
		ParamEmbeddingDim: 4,
	})
	return ctx
}

func testImages(batchSize, size int, offset float32) *tensors.Tensor {
	flat := make([]float32, batchSize*size*size*3)
	for ii := range flat {
		flat[ii] = offset + float32(ii%17)/17
	}
	return tensors.FromFlatDataAndDimensions(flat, batchSize, size, size, 3)
}

func TestEmbed(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	ctx := smallContext()
	pairExec := context.NewExec(backend, ctx, func(ctx *context.Context, a, b *Node) []*Node {
		return Embed(ctx, a, b)
	})
	a := testImages(3, 8, 0)
	b := testImages(2, 8, 0.5)
	results := pairExec.Call(a, b)
	require.Len(t, results, 2)
	assert.Equal(t, []int{3, 4}, results[0].Shape().Dimensions)
	assert.Equal(t, []int{2, 4}, results[1].Shape().Dimensions)

	// The single-input embedding shares the weights.
	embExec := context.NewExec(backend, ctx.Reuse(), EmbeddingGraph)
	single := embExec.Call(a)[0].Value().([][]float32)
	paired := results[0].Value().([][]float32)
	for ii := range single {
		assert.InDeltaSlice(t, paired[ii], single[ii], 1e-4)
	}
}

func TestEmbedTrainingDropout(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	for _, rate := range []float64{0, 0.5} {
		ctx := CreateDefaultContext()
		ctx.SetParams(map[string]any{
			ParamConvChannels:       []int{},
			ParamHiddenDims:         []int{5},
			ParamEmbeddingDim:       3,
			layers.ParamDropoutRate: rate,
		})
		exec := context.NewExec(backend, ctx, func(ctx *context.Context, images *Node) *Node {
			ctx.SetTraining(images.Graph(), true)
			return EmbeddingGraph(ctx, images)
		})
		var results []*tensors.Tensor
		require.NotPanics(t, func() { results = exec.Call(testImages(2, 4, 0)) }, "dropout_rate=%g", rate)
		assert.Equal(t, []int{2, 3}, results[0].Shape().Dimensions, "dropout_rate=%g", rate)
	}
}

func TestLossFn(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	ctx := smallContext()
	lossesExec := context.NewExec(backend, ctx, func(ctx *context.Context, g *Graph) []*Node {
		zeros := Const(g, [][]float32{{0, 0}, {0, 0}})
		positive := Const(g, [][]float32{{1, 0}, {3, 0}})
		negative := Const(g, [][]float32{{2, 0}, {1, 0}})
		similar := Const(g, []int32{1, 0})
		return []*Node{
			NewLossFn(ctx, AlgorithmSiamese)([]*Node{similar}, []*Node{zeros, positive}),
			NewLossFn(ctx, AlgorithmTriplet)([]*Node{similar}, []*Node{zeros, positive, negative}),
		}
	})
	results := lossesExec.Call()
	// Siamese: (1 + (5-3)²) / 2 / 2
	assert.InDelta(t, 1.25, results[0].Value().(float32), 1e-4)
	// Triplet: (5+1-4 + 5+9-1) / 2
	assert.InDelta(t, 7.5, results[1].Value().(float32), 1e-4)

	require.Panics(t, func() {
		exec := context.NewExec(backend, ctx, func(ctx *context.Context, g *Graph) *Node {
			zeros := Const(g, [][]float32{{0, 0}})
			return NewLossFn(ctx, AlgorithmTriplet)(nil, []*Node{zeros, zeros})
		})
		exec.Call()
	})
}

func TestMetrics(t *testing.T) {
	trainMetrics, evalMetrics := Metrics(AlgorithmCosine)
	assert.Empty(t, trainMetrics)
	assert.Empty(t, evalMetrics)

	trainMetrics, evalMetrics = Metrics(AlgorithmTriplet)
	require.Len(t, trainMetrics, 2)
	require.Len(t, evalMetrics, 2)
	assert.Equal(t, "~pos-dist", trainMetrics[0].ShortName())
	assert.Equal(t, MetricTypeDistance, evalMetrics[1].MetricType())
}

func TestTrainSteps(t *testing.T) {
	ctx := CreateDefaultContext()
	assert.Equal(t, 10000*7, TrainSteps(ctx, 7))
	ctx.SetParam(ParamTrainSteps, 100)
	assert.Equal(t, 100, TrainSteps(ctx, 7))
}
