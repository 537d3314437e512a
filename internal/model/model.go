// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package model defines the embedding network shared by all algorithms, the losses and metrics
// attached to each algorithm, and the default hyperparameters.
package model

import (
	. "github.com/gomlx/exceptions"
	. "github.com/gomlx/gomlx/graph"
	"github.com/gomlx/gomlx/ml/context"
	"github.com/gomlx/gomlx/ml/layers"
	"github.com/gomlx/gomlx/ml/layers/activations"
	"github.com/gomlx/gomlx/ml/layers/regularizers"
	"github.com/gomlx/gomlx/ml/train"
	"github.com/gomlx/relembed/internal/schedule"
)

const (
	// ParamEmbeddingDim is the dimension of the embedding space.
	ParamEmbeddingDim = "embedding_dim"

	// ParamConvChannels lists the number of channels of each convolution. Each convolution is followed by
	// a 2x2 max-pooling.
	ParamConvChannels = "conv_channels"

	// ParamHiddenDims lists the dimensions of the fully connected hidden layers, each followed by dropout.
	ParamHiddenDims = "fc_hidden_dims"

	// ParamFCL2 is the L2 regularization applied to the weights of the fully connected layers only.
	ParamFCL2 = "fc_l2_regularization"

	// ParamMargin used by the contrastive and triplet losses.
	ParamMargin = "margin"
)

// Scope under which the embedding network variables are created.
const Scope = "model"

// Embed all images batches with the same network (shared weights), returning one embedding batch
// `[batch_size, embedding_dim]` per input.
//
// The inputs are concatenated on the batch axis, embedded at once and split back, so all branches see the
// exact same weights and dropout masks are drawn once per step.
func Embed(ctx *context.Context, images ...*Node) []*Node {
	if len(images) == 0 {
		Panicf("Embed requires at least one batch of images")
	}
	ctx = ctx.In(Scope)
	x := images[0]
	if len(images) > 1 {
		x = Concatenate(images, 0)
	}
	embeddings := embeddingNetwork(ctx, x)
	if len(images) == 1 {
		return []*Node{embeddings}
	}
	results := make([]*Node, len(images))
	start := 0
	for ii, input := range images {
		end := start + input.Shape().Dimensions[0]
		results[ii] = Slice(embeddings, AxisRange(start, end))
		start = end
	}
	return results
}

// embeddingNetwork is the convolutional tower followed by fully connected layers.
func embeddingNetwork(ctx *context.Context, images *Node) *Node {
	g := images.Graph()
	dtype := images.DType()
	batchSize := images.Shape().Dimensions[0]
	if images.Rank() != 4 {
		Panicf("embedding network expects images shaped [batch_size, height, width, channels], got %s", images.Shape())
	}

	layerIdx := 0
	nextCtx := func(name string) *context.Context {
		newCtx := ctx.Inf("%03d_%s", layerIdx, name)
		layerIdx++
		return newCtx
	}

	var dropoutNode *Node
	if dropoutRate := context.GetParamOr(ctx, layers.ParamDropoutRate, 0.0); dropoutRate > 0 {
		dropoutNode = Scalar(g, dtype, dropoutRate)
	}

	x := images
	for _, channels := range context.GetParamOr(ctx, ParamConvChannels, []int{64, 128, 256, 512, 512}) {
		x = layers.Convolution(nextCtx("conv"), x).Filters(channels).KernelSize(3).PadSame().Done()
		x = activations.Relu(x)
		x = MaxPool(x).Window(2).Done()
	}
	x = Reshape(x, batchSize, -1)

	l2 := context.GetParamOr(ctx, ParamFCL2, 0.0)
	for _, dim := range context.GetParamOr(ctx, ParamHiddenDims, []int{4096, 4096}) {
		fcCtx := nextCtx("fc")
		fcCtx.SetParam(regularizers.ParamL2, l2)
		x = layers.Dense(fcCtx, x, true, dim)
		x = activations.Relu(x)
		dropoutCtx := nextCtx("dropout")
		if dropoutNode != nil {
			x = layers.DropoutNormalize(dropoutCtx, x, dropoutNode, true)
		}
	}

	fcCtx := nextCtx("fc")
	fcCtx.SetParam(regularizers.ParamL2, l2)
	return layers.Dense(fcCtx, x, true, context.GetParamOr(ctx, ParamEmbeddingDim, 2))
}

// ModelGraph implements train.ModelFn: it returns the embeddings of each input, all computed by the same
// network. During training it also applies the learning rate schedule.
func ModelGraph(ctx *context.Context, spec any, inputs []*Node) []*Node {
	_ = spec
	g := inputs[0].Graph()
	schedule.New(ctx, g, inputs[0].DType()).FromContext().Done()
	return Embed(ctx, inputs...)
}

var _ train.ModelFn = ModelGraph

// EmbeddingGraph returns the embedding of a single batch of images, used for inference.
func EmbeddingGraph(ctx *context.Context, images *Node) *Node {
	return Embed(ctx, images)[0]
}
