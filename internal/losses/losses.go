// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package losses implements the pairwise and triplet losses used to train embeddings.
//
// All functions take embeddings shaped `[batch_size, embedding_dim]`, one per branch of the
// siamese (2 branches) or triplet (3 branches) network, and return a scalar loss.
//
// Distances that go through a square root are offset by DistanceEpsilon, so the gradient is
// defined when two embeddings are identical.
package losses

import (
	. "github.com/gomlx/exceptions"
	. "github.com/gomlx/gomlx/graph"
)

const (
	// DefaultMargin used by Contrastive and Triplet losses.
	DefaultMargin = 5.0

	// DistanceEpsilon is added to squared distances before taking the square root.
	DistanceEpsilon = 1e-10

	// normEpsilon is added to the squared norm of embeddings for the cosine similarity.
	normEpsilon = 1e-12
)

func checkSameShape(name string, embeddings ...*Node) {
	for _, e := range embeddings {
		if e.Rank() != 2 {
			Panicf("%s: embeddings must be shaped [batch_size, embedding_dim], got %s", name, e.Shape())
		}
		if !e.Shape().Equal(embeddings[0].Shape()) {
			Panicf("%s: all embeddings must have the same shape, got %s and %s", name, embeddings[0].Shape(), e.Shape())
		}
	}
}

// SquaredDistance returns the squared Euclidean distance between rows of a and b, shaped `[batch_size]`.
func SquaredDistance(a, b *Node) *Node {
	return ReduceSum(Square(Sub(a, b)), -1)
}

// Distance returns the Euclidean distance between rows of a and b, shaped `[batch_size]`.
func Distance(a, b *Node) *Node {
	return Sqrt(AddScalar(SquaredDistance(a, b), DistanceEpsilon))
}

// similarityAsFloat converts the similarity labels (any dtype, 1 for similar and 0 otherwise) to
// the dtype of the embeddings, shaped `[batch_size]`.
func similarityAsFloat(similar, embeddings *Node) *Node {
	return ConvertDType(Reshape(similar, -1), embeddings.DType())
}

// Contrastive loss for pairs of embeddings (left, right), where similar is 1 for pairs of the same class,
// and 0 otherwise. Similar pairs are pulled together by their squared distance, and dissimilar pairs are
// pushed apart until their distance is at least margin:
//
//	loss = mean(½·(similar·d² + (1-similar)·max(margin-d, 0)²))
func Contrastive(left, right, similar *Node, margin float64) *Node {
	checkSameShape("Contrastive", left, right)
	y := similarityAsFloat(similar, left)
	d2 := SquaredDistance(left, right)
	d := Sqrt(AddScalar(d2, DistanceEpsilon))
	mismatch := Square(MaxScalar(Sub(Scalar(left.Graph(), left.DType(), margin), d), 0))
	loss := Add(Mul(y, d2), Mul(Sub(OnesLike(y), y), mismatch))
	return MulScalar(ReduceAllMean(loss), 0.5)
}

// RowCosineSimilarity between rows of a and b, shaped `[batch_size]`.
func RowCosineSimilarity(a, b *Node) *Node {
	l2Norm := func(x *Node) *Node {
		return Sqrt(AddScalar(ReduceSum(Square(x), -1), normEpsilon))
	}
	dot := ReduceSum(Mul(a, b), -1)
	return Div(dot, AddScalar(Mul(l2Norm(a), l2Norm(b)), DistanceEpsilon))
}

// SiameseCosine loss regresses the cosine similarity of the pairs to +1 for similar pairs and -1 for
// dissimilar ones:
//
//	loss = ½·Σ(target-cos(left, right))² / batch_size
func SiameseCosine(left, right, similar *Node) *Node {
	checkSameShape("SiameseCosine", left, right)
	target := AddScalar(MulScalar(similarityAsFloat(similar, left), 2), -1)
	diff := Sub(target, RowCosineSimilarity(left, right))
	batchSize := float64(left.Shape().Dimensions[0])
	return DivScalar(MulScalar(ReduceAllSum(Square(diff)), 0.5), batchSize)
}

// Triplet loss with squared Euclidean distances:
//
//	loss = mean(max(0, margin + |anchor-positive|² - |anchor-negative|²))
func Triplet(anchor, positive, negative *Node, margin float64) *Node {
	checkSameShape("Triplet", anchor, positive, negative)
	dPos := SquaredDistance(anchor, positive)
	dNeg := SquaredDistance(anchor, negative)
	return ReduceAllMean(MaxScalar(AddScalar(Sub(dPos, dNeg), margin), 0))
}

// SoftTriplet loss: the Euclidean distances to the positive and to the negative are taken as logits of a
// 2-way softmax, and the loss is the cross-entropy with the negative as the target. It is equivalent to
// mean(softplus(d⁺ - d⁻)), and it has no margin.
func SoftTriplet(anchor, positive, negative *Node) *Node {
	checkSameShape("SoftTriplet", anchor, positive, negative)
	dPos := Distance(anchor, positive)
	dNeg := Distance(anchor, negative)
	logits := Concatenate([]*Node{InsertAxes(dPos, -1), InsertAxes(dNeg, -1)}, -1)
	logProbs := LogSoftmax(logits, -1)
	return Neg(ReduceAllMean(Slice(logProbs, AxisRange(), AxisElem(1))))
}

// maskedMean returns the mean of values where mask is true, or 0 if the mask is empty.
func maskedMean(values, mask *Node) *Node {
	g := values.Graph()
	zeros := ZerosLike(values)
	total := ReduceAllSum(Where(mask, values, zeros))
	count := ReduceAllSum(Where(mask, OnesLike(values), zeros))
	return Div(total, Max(count, Scalar(g, values.DType(), 1)))
}

// PairDistances returns the mean Euclidean distance of the similar pairs (posDist) and of the dissimilar
// pairs (negDist). If there are no pairs of one kind, its mean distance is 0.
func PairDistances(left, right, similar *Node) (posDist, negDist *Node) {
	checkSameShape("PairDistances", left, right)
	d := Distance(left, right)
	y := Reshape(similar, -1)
	isSimilar := GreaterThan(y, ScalarZero(y.Graph(), y.DType()))
	posDist = maskedMean(d, isSimilar)
	negDist = maskedMean(d, LogicalNot(isSimilar))
	return
}

// TripletDistances returns the mean Euclidean distance from the anchors to the positives (posDist) and to
// the negatives (negDist).
func TripletDistances(anchor, positive, negative *Node) (posDist, negDist *Node) {
	checkSameShape("TripletDistances", anchor, positive, negative)
	posDist = ReduceAllMean(Distance(anchor, positive))
	negDist = ReduceAllMean(Distance(anchor, negative))
	return
}
