// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package visualize

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// ThinningFactor is the fraction of the squared diagonal of the embeddings bounding box under which
// a point is considered too close to an already plotted point.
const ThinningFactor = 3e-4

// Project embeddings to 2D: 1D embeddings are plotted on the x-axis, 2D embeddings are used as is, and
// higher dimensional embeddings are projected on their 2 principal components.
func Project(embeddings [][]float64) ([][2]float64, error) {
	if len(embeddings) == 0 {
		return nil, nil
	}
	dim := len(embeddings[0])
	for ii, e := range embeddings {
		if len(e) != dim {
			return nil, errors.Errorf("embedding #%d has dimension %d, expected %d", ii, len(e), dim)
		}
	}
	points := make([][2]float64, len(embeddings))
	switch {
	case dim == 0:
		return nil, errors.New("embeddings have dimension 0")
	case dim == 1:
		for ii, e := range embeddings {
			points[ii] = [2]float64{e[0], 0}
		}
	case dim == 2:
		for ii, e := range embeddings {
			points[ii] = [2]float64{e[0], e[1]}
		}
	default:
		return pca2D(embeddings)
	}
	return points, nil
}

// pca2D projects the centered embeddings on their first 2 principal components.
func pca2D(embeddings [][]float64) ([][2]float64, error) {
	n, dim := len(embeddings), len(embeddings[0])
	if n < 2 {
		return nil, errors.Errorf("PCA projection requires at least 2 embeddings, got %d", n)
	}
	x := mat.NewDense(n, dim, nil)
	for ii, e := range embeddings {
		x.SetRow(ii, e)
	}
	var pc stat.PC
	if ok := pc.PrincipalComponents(x, nil); !ok {
		return nil, errors.New("PCA of the embeddings failed")
	}
	var vectors mat.Dense
	pc.VectorsTo(&vectors)

	// Center before projecting.
	for col := range dim {
		column := mat.Col(nil, col, x)
		mean := floats.Sum(column) / float64(n)
		for row := range n {
			x.Set(row, col, column[row]-mean)
		}
	}
	var projected mat.Dense
	projected.Mul(x, vectors.Slice(0, dim, 0, 2))
	points := make([][2]float64, n)
	for ii := range points {
		points[ii] = [2]float64{projected.At(ii, 0), projected.At(ii, 1)}
	}
	return points, nil
}

// Bounds returns the minimum and maximum of each coordinate of points.
func Bounds(points [][2]float64) (minP, maxP [2]float64) {
	minP = [2]float64{math.Inf(1), math.Inf(1)}
	maxP = [2]float64{math.Inf(-1), math.Inf(-1)}
	for _, p := range points {
		for axis := range 2 {
			minP[axis] = min(minP[axis], p[axis])
			maxP[axis] = max(maxP[axis], p[axis])
		}
	}
	return
}

// Thin returns the indices of the points to plot: a point is skipped if its squared distance to any
// point kept before it (or to the reference point (1, 1)) is smaller than
// ThinningFactor times the squared diagonal of the bounding box of all points.
func Thin(points [][2]float64) []int {
	if len(points) == 0 {
		return nil
	}
	minP, maxP := Bounds(points)
	threshold := ThinningFactor * (sq(maxP[0]-minP[0]) + sq(maxP[1]-minP[1]))
	shown := [][2]float64{{1, 1}}
	var kept []int
	for ii, p := range points {
		tooClose := false
		for _, s := range shown {
			if sq(p[0]-s[0])+sq(p[1]-s[1]) < threshold {
				tooClose = true
				break
			}
		}
		if tooClose {
			continue
		}
		shown = append(shown, p)
		kept = append(kept, ii)
	}
	return kept
}

func sq(x float64) float64 { return x * x }
