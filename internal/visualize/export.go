// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package visualize

import (
	"fmt"
	"os"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/pkg/errors"
)

// Columns of the exported CSV, besides one "emb_<i>" column per embedding dimension.
const (
	PathCol     = "path"
	RelationCol = "relation"
	XCol        = "x"
	YCol        = "y"
)

// DataFrame with one row per embedded example: its path, relation name, projected point and the
// embedding values.
func DataFrame(result *Result) dataframe.DataFrame {
	n := len(result.Examples)
	paths := make([]string, n)
	relationNames := make([]string, n)
	xs, ys := make([]float64, n), make([]float64, n)
	for ii, ex := range result.Examples {
		paths[ii] = ex.Path
		relationNames[ii] = ex.Relation.String()
		xs[ii], ys[ii] = result.Points[ii][0], result.Points[ii][1]
	}
	columns := []series.Series{
		series.New(paths, series.String, PathCol),
		series.New(relationNames, series.String, RelationCol),
		series.New(xs, series.Float, XCol),
		series.New(ys, series.Float, YCol),
	}
	if n > 0 {
		for dim := range len(result.Embeddings[0]) {
			values := make([]float64, n)
			for ii, e := range result.Embeddings {
				values[ii] = e[dim]
			}
			columns = append(columns, series.New(values, series.Float, fmt.Sprintf("emb_%d", dim)))
		}
	}
	return dataframe.New(columns...)
}

// ExportCSV writes the DataFrame of the result to filePath.
func ExportCSV(filePath string, result *Result) error {
	df := DataFrame(result)
	if df.Err != nil {
		return errors.Wrapf(df.Err, "failed to build embeddings table")
	}
	if err := ensureDir(filePath); err != nil {
		return err
	}
	f, err := os.Create(filePath)
	if err != nil {
		return errors.Wrapf(err, "failed to create %q", filePath)
	}
	if err = df.WriteCSV(f); err != nil {
		_ = f.Close()
		return errors.Wrapf(err, "failed to write embeddings to %q", filePath)
	}
	return errors.Wrapf(f.Close(), "failed to close %q", filePath)
}
