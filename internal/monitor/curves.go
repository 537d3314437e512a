// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package monitor tracks training progress: training curves drawn with Margaid (saved as SVG files
// and displayed in GoNB notebooks), and a Prometheus endpoint with the latest metrics.
//
// Example, recording the train metrics at exponentially spaced steps:
//
//	curves, err := monitor.NewCurves(checkpoint.Dir())
//	if err != nil { ... }
//	curves.Attach(loop, 100, 1.2)
package monitor

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	mg "github.com/erkkah/margaid"
	"github.com/gomlx/gomlx/ml/train"
	"github.com/gomlx/gomlx/types/tensors"
	"github.com/janpfeifer/gonb/gonbui"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

var (
	// ParamPlots is the context parameter that enables the training curves.
	ParamPlots = "plots"
)

const (
	// PointsFileName is the file, in the checkpoint directory, where curve points are appended as JSON lines.
	PointsFileName = "training_curves.json"

	// minPointsToPlot is the number of points per curve required before drawing.
	minPointsToPlot = 3

	batchLossName = "Batch Loss"
)

// Point of a training curve.
type Point struct {
	Metric string  `json:"metric"`
	Type   string  `json:"type"`
	Step   int     `json:"step"`
	Value  float64 `json:"value"`
}

// Curves holds the training curves, one plot per metric type: metrics of the same type share the Y axis.
type Curves struct {
	// Width and Height of the rendered plots.
	Width, Height int

	mu      sync.Mutex
	dir     string
	perType map[string]map[string]*mg.Series
	allType map[string]*mg.Series // All points of a type, used to draw the axes.
	counts  map[string]int
	gonbID  string
}

// NewCurves creates the curves. If dir is not empty, previously recorded points are loaded from it, new points
// are appended to it, and the final plots are saved there as SVG files.
func NewCurves(dir string) (*Curves, error) {
	c := &Curves{
		Width:   1024,
		Height:  400,
		dir:     dir,
		perType: make(map[string]map[string]*mg.Series),
		allType: make(map[string]*mg.Series),
		counts:  make(map[string]int),
	}
	if dir == "" {
		return c, nil
	}
	f, err := os.Open(c.pointsPath())
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, errors.Wrapf(err, "failed to open training curves %q", c.pointsPath())
	}
	defer func() { _ = f.Close() }()
	dec := json.NewDecoder(bufio.NewReader(f))
	for {
		var p Point
		err := dec.Decode(&p)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "failed to decode training curves %q", c.pointsPath())
		}
		c.add(p)
	}
	return c, nil
}

func (c *Curves) pointsPath() string {
	return filepath.Join(c.dir, PointsFileName)
}

// add point to its series. It must be called with mu locked (or during construction).
func (c *Curves) add(p Point) bool {
	if math.IsNaN(p.Value) || math.IsInf(p.Value, 0) {
		return false
	}
	perName, found := c.perType[p.Type]
	if !found {
		perName = make(map[string]*mg.Series)
		c.perType[p.Type] = perName
		c.allType[p.Type] = mg.NewSeries()
	}
	s, found := perName[p.Metric]
	if !found {
		s = mg.NewSeries(mg.Titled(p.Metric))
		perName[p.Metric] = s
	}
	value := mg.MakeValue(float64(p.Step), p.Value)
	s.Add(value)
	c.allType[p.Type].Add(value)
	c.counts[p.Metric]++
	return true
}

// Add points to the curves, and append them to the points file, if a directory was given.
func (c *Curves) Add(points ...Point) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, p := range points {
		if c.add(p) {
			if err := enc.Encode(p); err != nil {
				return errors.Wrapf(err, "failed to encode training curve point %+v", p)
			}
		}
	}
	if c.dir == "" || buf.Len() == 0 {
		return nil
	}
	f, err := os.OpenFile(c.pointsPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0664)
	if err != nil {
		return errors.Wrapf(err, "failed to open training curves %q for append", c.pointsPath())
	}
	if _, err = f.Write(buf.Bytes()); err != nil {
		_ = f.Close()
		return errors.Wrapf(err, "failed to write to training curves %q", c.pointsPath())
	}
	return errors.Wrapf(f.Close(), "failed to close training curves %q", c.pointsPath())
}

// NumPoints returns the number of points recorded for the metric.
func (c *Curves) NumPoints(metric string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[metric]
}

// Types returns the metric types with recorded points, sorted.
func (c *Curves) Types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return sortedKeys(c.perType)
}

// AddTrainMetrics records the train metrics of the loop at its current step. The batch loss is skipped,
// since the trainer also reports its moving average.
//
// It can be used as a train.OnStepFn.
func (c *Curves) AddTrainMetrics(loop *train.Loop, metrics []*tensors.Tensor) error {
	var points []Point
	for ii, desc := range loop.Trainer.TrainMetrics() {
		if desc.Name() == batchLossName || ii >= len(metrics) {
			continue
		}
		points = append(points, Point{
			Metric: desc.Name(),
			Type:   desc.MetricType(),
			Step:   loop.LoopStep,
			Value:  scalarValue(metrics[ii]),
		})
	}
	if err := c.Add(points...); err != nil {
		return err
	}
	c.displayTransient()
	return nil
}

// Attach records the train metrics at exponentially spaced steps (starting at startStep, growing by factor),
// and at the end of the loop saves the plots to the directory and displays them in a notebook.
func (c *Curves) Attach(loop *train.Loop, startStep int, factor float64) {
	if gonbui.IsNotebook {
		c.gonbID = gonbui.UniqueId()
		gonbui.UpdateHTML(c.gonbID, fmt.Sprintf("(...collecting metrics, minimum %d required to start plotting...)", minPointsToPlot))
	}
	train.ExponentialCallback(loop, startStep, factor, true, "training curves", 0, c.AddTrainMetrics)
	loop.OnEnd("training curves", 120, func(_ *train.Loop, _ []*tensors.Tensor) error {
		if c.gonbID != "" {
			gonbui.UpdateHTML(c.gonbID, "")
			gonbui.DisplayHTML(c.HTML())
		}
		if c.dir == "" {
			return nil
		}
		files, err := c.WriteSVGs()
		if err != nil {
			// Plots are informative only: training results are not affected.
			klog.Errorf("Failed to save training curves: %+v", err)
			return nil
		}
		klog.V(1).Infof("Training curves saved to %v", files)
		return nil
	})
}

func (c *Curves) ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.counts) == 0 {
		return false
	}
	for _, count := range c.counts {
		if count < minPointsToPlot {
			return false
		}
	}
	return true
}

func (c *Curves) displayTransient() {
	if c.gonbID == "" || !c.ready() {
		return
	}
	gonbui.UpdateHTML(c.gonbID, c.HTML())
}

// HTML returns all plots (SVG) concatenated.
func (c *Curves) HTML() string {
	var parts []string
	for _, metricType := range c.Types() {
		svg, err := c.SVG(metricType)
		if err != nil {
			parts = append(parts, fmt.Sprintf("%+v", err))
			continue
		}
		parts = append(parts, svg)
	}
	return strings.Join(parts, "\n")
}

// SVG renders the plot of all curves of the given metric type.
func (c *Curves) SVG(metricType string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	perName := c.perType[metricType]
	if len(perName) == 0 {
		return "", errors.Errorf("no training curves of type %q", metricType)
	}
	allPoints := c.allType[metricType]
	allSeries := make([]*mg.Series, 0, len(perName))
	for _, name := range sortedKeys(perName) {
		allSeries = append(allSeries, perName[name])
	}
	diagram := mg.New(c.Width, c.Height,
		mg.WithAutorange(mg.XAxis, allSeries...),
		mg.WithAutorange(mg.YAxis, allSeries...),
		mg.WithInset(70),
		mg.WithPadding(2),
		mg.WithColorScheme(90),
		mg.WithBackgroundColor("#f8f8f8"),
	)
	for _, s := range allSeries {
		diagram.Line(s, mg.UsingAxes(mg.XAxis, mg.YAxis), mg.UsingMarker("square"), mg.UsingStrokeWidth(2))
	}
	diagram.Axis(allPoints, mg.XAxis, diagram.ValueTicker('f', 0, 10), false, "Steps")
	diagram.Axis(allPoints, mg.YAxis, diagram.ValueTicker('f', 3, 10), true, metricType)
	diagram.Frame()
	diagram.Title(fmt.Sprintf("%s metrics", metricType))
	diagram.Legend(mg.BottomLeft)
	var buf bytes.Buffer
	if err := diagram.Render(&buf); err != nil {
		return "", errors.Wrapf(err, "failed to render training curves for %q", metricType)
	}
	return buf.String(), nil
}

// WriteSVGs saves one SVG file per metric type in the directory, and returns the paths written.
func (c *Curves) WriteSVGs() ([]string, error) {
	if c.dir == "" {
		return nil, errors.New("no directory configured for training curves")
	}
	var files []string
	for _, metricType := range c.Types() {
		svg, err := c.SVG(metricType)
		if err != nil {
			return files, err
		}
		fileName := filepath.Join(c.dir, fmt.Sprintf("curves_%s.svg", sanitizeFileName(metricType)))
		if err = os.WriteFile(fileName, []byte(svg), 0644); err != nil {
			return files, errors.Wrapf(err, "failed to write training curves to %q", fileName)
		}
		files = append(files, fileName)
	}
	return files, nil
}

func sanitizeFileName(name string) string {
	if name == "" {
		return "metrics"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}

// scalarValue converts a scalar metric to float64. Non-scalar or non-float values return NaN.
func scalarValue(t *tensors.Tensor) float64 {
	switch v := t.Value().(type) {
	case float32:
		return float64(v)
	case float64:
		return v
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return math.NaN()
	}
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
