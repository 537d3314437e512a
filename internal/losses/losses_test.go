// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package losses

import (
	"testing"

	. "github.com/gomlx/gomlx/graph"
	"github.com/gomlx/gomlx/graph/graphtest"

	_ "github.com/gomlx/gomlx/backends/default"
)

func TestContrastive(t *testing.T) {
	graphtest.RunTestGraphFn(t, "Contrastive",
		func(g *Graph) (inputs, outputs []*Node) {
			inputs = []*Node{
				Const(g, [][]float32{{0, 0}, {0, 0}, {0, 0}}),
				Const(g, [][]float32{{3, 4}, {1, 0}, {6, 8}}),
				Const(g, []int32{1, 0, 0}),
			}
			posDist, negDist := PairDistances(inputs[0], inputs[1], inputs[2])
			outputs = []*Node{
				Contrastive(inputs[0], inputs[1], inputs[2], DefaultMargin),
				posDist,
				negDist,
			}
			return
		}, []any{
			// (25 + (5-1)² + 0) / 3 / 2
			float32(41.0 / 6.0),
			float32(5),
			float32(5.5),
		}, 1e-4)
}

func TestPairDistancesEmptyMask(t *testing.T) {
	graphtest.RunTestGraphFn(t, "PairDistances with no similar pairs",
		func(g *Graph) (inputs, outputs []*Node) {
			inputs = []*Node{
				Const(g, [][]float32{{0, 0}, {1, 1}}),
				Const(g, [][]float32{{0, 2}, {1, 1}}),
				Const(g, []int32{0, 0}),
			}
			posDist, negDist := PairDistances(inputs[0], inputs[1], inputs[2])
			outputs = []*Node{posDist, negDist}
			return
		}, []any{
			float32(0),
			float32(1),
		}, 1e-4)
}

func TestSiameseCosine(t *testing.T) {
	graphtest.RunTestGraphFn(t, "SiameseCosine",
		func(g *Graph) (inputs, outputs []*Node) {
			inputs = []*Node{
				Const(g, [][]float32{{1, 0}, {1, 0}, {1, 1}}),
				Const(g, [][]float32{{2, 0}, {0, 3}, {-1, -1}}),
				Const(g, []int32{1, 1, 0}),
			}
			outputs = []*Node{
				RowCosineSimilarity(inputs[0], inputs[1]),
				SiameseCosine(inputs[0], inputs[1], inputs[2]),
			}
			return
		}, []any{
			[]float32{1, 0, -1},
			// Errors: 0, 1, 0 -> ½·1/3
			float32(1.0 / 6.0),
		}, 1e-4)
}

func TestTriplet(t *testing.T) {
	graphtest.RunTestGraphFn(t, "Triplet",
		func(g *Graph) (inputs, outputs []*Node) {
			inputs = []*Node{
				Const(g, [][]float32{{0, 0}, {0, 0}}),
				Const(g, [][]float32{{1, 0}, {3, 0}}),
				Const(g, [][]float32{{2, 0}, {1, 0}}),
			}
			posDist, negDist := TripletDistances(inputs[0], inputs[1], inputs[2])
			outputs = []*Node{
				Triplet(inputs[0], inputs[1], inputs[2], DefaultMargin),
				Triplet(inputs[0], inputs[1], inputs[2], 0),
				SoftTriplet(inputs[0], inputs[1], inputs[2]),
				posDist,
				negDist,
			}
			return
		}, []any{
			// (5+1-4 + 5+9-1) / 2
			float32(7.5),
			// max(0, 1-4)=0, max(0, 9-1)=8
			float32(4),
			// mean(softplus(1-2), softplus(3-1))
			float32(1.2200948),
			float32(2),
			float32(1.5),
		}, 1e-4)
}
