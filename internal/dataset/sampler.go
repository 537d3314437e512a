// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"math/rand"

	"github.com/gomlx/relembed/internal/relations"
	"github.com/pkg/errors"
)

// sampler draws example indices for pairs and triplets. It is not safe for concurrent use.
type sampler struct {
	examples []Example
	byClass  [][]int // Indices of examples per relation.
	classes  []int   // Relations with at least one example.
	rng      *rand.Rand
}

func newSampler(examples []Example, rng *rand.Rand) (*sampler, error) {
	s := &sampler{
		examples: examples,
		byClass:  make([][]int, relations.NumRelations),
		rng:      rng,
	}
	for idx, ex := range examples {
		s.byClass[ex.Relation] = append(s.byClass[ex.Relation], idx)
	}
	for class, members := range s.byClass {
		if len(members) > 0 {
			s.classes = append(s.classes, class)
		}
	}
	if len(s.classes) < 2 {
		return nil, errors.Errorf("at least 2 relation classes are needed to sample pairs or triplets, got %d", len(s.classes))
	}
	return s, nil
}

// positive returns an example of the same class as anchor, other than anchor if possible.
func (s *sampler) positive(anchor int) int {
	members := s.byClass[s.examples[anchor].Relation]
	if len(members) == 1 {
		return anchor
	}
	for {
		idx := members[s.rng.Intn(len(members))]
		if idx != anchor {
			return idx
		}
	}
}

// negative returns an example of a class different from anchor's.
func (s *sampler) negative(anchor int) int {
	anchorClass := int(s.examples[anchor].Relation)
	for {
		class := s.classes[s.rng.Intn(len(s.classes))]
		if class == anchorClass {
			continue
		}
		members := s.byClass[class]
		return members[s.rng.Intn(len(members))]
	}
}

// pair returns the indices of a pair of examples, and whether they are similar (same class).
// Similar and dissimilar pairs are drawn with equal probability.
func (s *sampler) pair() (left, right int, similar bool) {
	left = s.rng.Intn(len(s.examples))
	if s.rng.Intn(2) == 0 {
		return left, s.positive(left), true
	}
	return left, s.negative(left), false
}

// triplet returns the indices of an anchor, a positive and a negative example.
func (s *sampler) triplet() (anchor, positive, negative int) {
	anchor = s.rng.Intn(len(s.examples))
	return anchor, s.positive(anchor), s.negative(anchor)
}
