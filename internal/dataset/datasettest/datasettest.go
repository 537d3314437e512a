// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package datasettest creates small synthetic list files and images for tests.
package datasettest

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gomlx/relembed/internal/relations"
	"github.com/stretchr/testify/require"
)

// WriteList creates numPerClass small PNG images for each of the given relations, and a list file
// "train.txt" referencing them with relative paths. It returns the list file path.
//
// Images of the same relation share a colour, so models can learn to separate them.
func WriteList(t *testing.T, numPerClass int, rels ...relations.Relation) string {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "images"), 0755))
	var lines []string
	lines = append(lines, "# test list", "")
	for _, r := range rels {
		for ii := range numPerClass {
			name := fmt.Sprintf("images/%d_%d.png", r, ii)
			img := image.NewRGBA(image.Rect(0, 0, 20, 10))
			for y := range 10 {
				for x := range 20 {
					img.Set(x, y, color.RGBA{R: uint8(25 * int(r)), G: uint8(10 * ii), B: 128, A: 255})
				}
			}
			f, err := os.Create(filepath.Join(dir, name))
			require.NoError(t, err)
			require.NoError(t, png.Encode(f, img))
			require.NoError(t, f.Close())
			lines = append(lines, fmt.Sprintf("%s %s", name, r))
		}
	}
	listPath := filepath.Join(dir, "train.txt")
	require.NoError(t, os.WriteFile(listPath, []byte(strings.Join(lines, "\n")), 0644))
	return listPath
}
