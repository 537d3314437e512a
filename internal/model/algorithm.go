// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package model

import "github.com/gomlx/relembed/internal/dataset"

// Algorithm selects the training objective of the embedding, and with it the kind of tuples
// (pairs or triplets) sampled from the dataset.
type Algorithm int

//go:generate go tool enumer -type=Algorithm -trimprefix=Algorithm -transform=lower -values -text -output=gen_algorithm_enumer.go algorithm.go

const (
	// AlgorithmSiamese trains on pairs with the contrastive loss.
	AlgorithmSiamese Algorithm = iota

	// AlgorithmCosine trains on pairs, regressing their cosine similarity to +1 (same relation) or -1.
	AlgorithmCosine

	// AlgorithmTriplet trains on triplets with the margin triplet loss.
	AlgorithmTriplet

	// AlgorithmSoftTriplet trains on triplets with the soft (softmax) triplet loss.
	AlgorithmSoftTriplet
)

// Mode returns the dataset mode (pairs or triplets) required by the algorithm.
func (a Algorithm) Mode() dataset.Mode {
	switch a {
	case AlgorithmTriplet, AlgorithmSoftTriplet:
		return dataset.ModeTriplets
	default:
		return dataset.ModePairs
	}
}

// TracksDistances returns whether the positive and negative distances are reported as metrics.
func (a Algorithm) TracksDistances() bool {
	return a != AlgorithmCosine
}
