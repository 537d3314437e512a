// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package monitor

import (
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurves(t *testing.T) {
	dir := t.TempDir()
	curves, err := NewCurves(dir)
	require.NoError(t, err)
	for step := 1; step <= 4; step++ {
		require.NoError(t, curves.Add(
			Point{Metric: "Moving Average Loss", Type: "loss", Step: step * 10, Value: 1 / float64(step)},
			Point{Metric: "Moving Average Positive Distance", Type: "distance", Step: step * 10, Value: 0.5 * float64(step)},
			Point{Metric: "Moving Average Negative Distance", Type: "distance", Step: step * 10, Value: float64(step)},
		))
	}
	// Invalid values are dropped.
	require.NoError(t, curves.Add(Point{Metric: "Moving Average Loss", Type: "loss", Step: 50, Value: math.NaN()}))
	assert.Equal(t, 4, curves.NumPoints("Moving Average Loss"))
	assert.Equal(t, []string{"distance", "loss"}, curves.Types())
	assert.True(t, curves.ready())

	svg, err := curves.SVG("distance")
	require.NoError(t, err)
	assert.Contains(t, svg, "<svg")
	_, err = curves.SVG("accuracy")
	require.Error(t, err)

	files, err := curves.WriteSVGs()
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "curves_distance.svg"), filepath.Join(dir, "curves_loss.svg")}, files)
	for _, f := range files {
		assert.FileExists(t, f)
	}

	// Points are reloaded from the directory.
	reloaded, err := NewCurves(dir)
	require.NoError(t, err)
	assert.Equal(t, 4, reloaded.NumPoints("Moving Average Negative Distance"))
	assert.Equal(t, curves.Types(), reloaded.Types())
}

func TestCurvesWithoutDir(t *testing.T) {
	curves, err := NewCurves("")
	require.NoError(t, err)
	require.NoError(t, curves.Add(Point{Metric: "m", Type: "t", Step: 1, Value: 1}))
	assert.False(t, curves.ready())
	_, err = curves.WriteSVGs()
	require.Error(t, err)
}

func TestCurvesCorruptedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, PointsFileName), []byte("{not json"), 0644))
	_, err := NewCurves(dir)
	require.Error(t, err)
}

func TestSanitizeFileName(t *testing.T) {
	assert.Equal(t, "metrics", sanitizeFileName(""))
	assert.Equal(t, "eval_loss", sanitizeFileName("eval loss"))
	assert.Equal(t, "a_b-c", sanitizeFileName("a/b-c"))
}

func TestExporter(t *testing.T) {
	e := NewExporter("triplet")
	e.Update(42, 1e-4, map[string]float64{"~loss": 0.5, "~pos-dist": 1.25})

	rec := httptest.NewRecorder()
	e.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, `relembed_global_step{algorithm="triplet"} 42`)
	assert.Contains(t, body, `relembed_learning_rate{algorithm="triplet"} 0.0001`)
	assert.Contains(t, body, `relembed_train_metric{algorithm="triplet",metric="~pos-dist"} 1.25`)

	families, err := e.Registry().Gather()
	require.NoError(t, err)
	assert.Len(t, families, 3)
}

func TestExporterServe(t *testing.T) {
	e := NewExporter("siamese")
	require.NoError(t, e.Serve("127.0.0.1:0"))
	defer func() { require.NoError(t, e.Close()) }()
	e.Update(7, 0.1, nil)

	resp, err := http.Get("http://" + e.Addr().String() + "/metrics")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `relembed_global_step{algorithm="siamese"} 7`)
}
