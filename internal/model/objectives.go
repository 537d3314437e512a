// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package model

import (
	. "github.com/gomlx/exceptions"
	. "github.com/gomlx/gomlx/graph"
	"github.com/gomlx/gomlx/ml/context"
	trainlosses "github.com/gomlx/gomlx/ml/train/losses"
	"github.com/gomlx/gomlx/ml/train/metrics"
	"github.com/gomlx/relembed/internal/losses"
)

// NewLossFn returns the loss of the algorithm, as used by train.Trainer.
//
// The predictions are the embeddings of each input (2 for pairs, 3 for triplets), and labels[0]
// holds the similarity of the pairs (ignored for triplets).
func NewLossFn(ctx *context.Context, algorithm Algorithm) trainlosses.LossFn {
	margin := context.GetParamOr(ctx, ParamMargin, losses.DefaultMargin)
	numInputs := algorithm.Mode().NumInputs()
	return func(labels, predictions []*Node) *Node {
		if len(predictions) != numInputs {
			Panicf("algorithm %s expects %d embeddings, got %d", algorithm, numInputs, len(predictions))
		}
		switch algorithm {
		case AlgorithmSiamese:
			return losses.Contrastive(predictions[0], predictions[1], labels[0], margin)
		case AlgorithmCosine:
			return losses.SiameseCosine(predictions[0], predictions[1], labels[0])
		case AlgorithmTriplet:
			return losses.Triplet(predictions[0], predictions[1], predictions[2], margin)
		case AlgorithmSoftTriplet:
			return losses.SoftTriplet(predictions[0], predictions[1], predictions[2])
		default:
			Panicf("unknown algorithm %s", algorithm)
		}
		return nil
	}
}

// distances returns the mean positive and negative distances, for pairs or triplets, depending on the
// number of predictions.
func distances(labels, predictions []*Node) (posDist, negDist *Node) {
	if len(predictions) == 3 {
		return losses.TripletDistances(predictions[0], predictions[1], predictions[2])
	}
	return losses.PairDistances(predictions[0], predictions[1], labels[0])
}

func positiveDistanceGraph(_ *context.Context, labels, predictions []*Node) *Node {
	posDist, _ := distances(labels, predictions)
	return posDist
}

func negativeDistanceGraph(_ *context.Context, labels, predictions []*Node) *Node {
	_, negDist := distances(labels, predictions)
	return negDist
}

// MetricTypeDistance is the metric type of the positive and negative distances, used to group them
// in plots.
const MetricTypeDistance = "distance"

// Metrics returns the train metrics (moving averages) and eval metrics (means) of the algorithm.
// The cosine algorithm has no distance metrics.
func Metrics(algorithm Algorithm) (trainMetrics, evalMetrics []metrics.Interface) {
	if !algorithm.TracksDistances() {
		return nil, nil
	}
	trainMetrics = []metrics.Interface{
		metrics.NewExponentialMovingAverageMetric("Moving Average Positive Distance", "~pos-dist",
			MetricTypeDistance, positiveDistanceGraph, nil, 0.01),
		metrics.NewExponentialMovingAverageMetric("Moving Average Negative Distance", "~neg-dist",
			MetricTypeDistance, negativeDistanceGraph, nil, 0.01),
	}
	evalMetrics = []metrics.Interface{
		metrics.NewMeanMetric("Mean Positive Distance", "#pos-dist", MetricTypeDistance, positiveDistanceGraph, nil),
		metrics.NewMeanMetric("Mean Negative Distance", "#neg-dist", MetricTypeDistance, negativeDistanceGraph, nil),
	}
	return
}
