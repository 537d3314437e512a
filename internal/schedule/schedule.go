// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package schedule implements a piecewise-constant learning rate schedule keyed by epoch.
//
// The learning rate starts at the optimizer's learning rate, and it is replaced by the value
// of each Point once its epoch is reached. Epochs are derived from the global step and the
// number of steps per epoch.
//
// Example, reading everything from the context hyperparameters:
//
//	func modelGraph(ctx *context.Context, spec any, inputs []*Node) []*Node {
//		g := inputs[0].Graph()
//		schedule.New(ctx, g, dtypes.Float32).FromContext().Done()
//		...
//	}
package schedule

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	. "github.com/gomlx/exceptions"
	. "github.com/gomlx/gomlx/graph"
	"github.com/gomlx/gomlx/ml/context"
	"github.com/gomlx/gomlx/ml/train/optimizers"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
)

var (
	// ParamSchedule is the context parameter with the schedule, formatted as "epoch:learning_rate,...".
	// E.g.: "10:1e-5,20:1e-6". An empty string disables the schedule.
	ParamSchedule = "learning_rate_schedule"

	// ParamStepsPerEpoch is the number of training steps that make one epoch.
	ParamStepsPerEpoch = "steps_per_epoch"
)

// Point of the schedule: from Epoch on, the learning rate is LearningRate.
type Point struct {
	Epoch        int
	LearningRate float64
}

// Parse a schedule formatted as "epoch:learning_rate,...". Epochs must be strictly increasing
// and learning rates positive. An empty string returns an empty schedule.
func Parse(s string) ([]Point, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var points []Point
	for _, part := range strings.Split(s, ",") {
		epochStr, lrStr, found := strings.Cut(strings.TrimSpace(part), ":")
		if !found {
			return nil, errors.Errorf("invalid learning rate schedule entry %q, expected \"epoch:learning_rate\"", part)
		}
		epoch, err := strconv.Atoi(strings.TrimSpace(epochStr))
		if err != nil || epoch < 0 {
			return nil, errors.Errorf("invalid epoch %q in learning rate schedule entry %q", epochStr, part)
		}
		lr, err := strconv.ParseFloat(strings.TrimSpace(lrStr), 64)
		if err != nil || lr <= 0 {
			return nil, errors.Errorf("invalid learning rate %q in learning rate schedule entry %q", lrStr, part)
		}
		if len(points) > 0 && epoch <= points[len(points)-1].Epoch {
			return nil, errors.Errorf("epochs in learning rate schedule must be strictly increasing, got %d after %d",
				epoch, points[len(points)-1].Epoch)
		}
		points = append(points, Point{Epoch: epoch, LearningRate: lr})
	}
	return points, nil
}

// Format is the inverse of Parse.
func Format(points []Point) string {
	parts := make([]string, len(points))
	for ii, p := range points {
		parts[ii] = fmt.Sprintf("%d:%g", p.Epoch, p.LearningRate)
	}
	return strings.Join(parts, ",")
}

// LearningRateAt returns the learning rate of the schedule at the given epoch, given the initial
// learning rate.
func LearningRateAt(points []Point, initial float64, epoch int) float64 {
	lr := initial
	for _, p := range points {
		if epoch >= p.Epoch {
			lr = p.LearningRate
		}
	}
	return lr
}

// Config is returned by New to configure the schedule. When finished call Done.
type Config struct {
	graph         *Graph
	ctx           *context.Context
	dtype         dtypes.DType
	learningRate  float64
	points        []Point
	stepsPerEpoch int
}

// New creates a configuration for a piecewise-constant learning rate schedule.
func New(ctx *context.Context, graph *Graph, dtype dtypes.DType) *Config {
	return &Config{
		ctx:   ctx,
		graph: graph,
		dtype: dtype,
	}
}

// FromContext configures the schedule from the hyperparameters [ParamSchedule], [ParamStepsPerEpoch]
// and [optimizers.ParamLearningRate].
//
// It panics if the schedule can't be parsed.
func (c *Config) FromContext() *Config {
	points, err := Parse(context.GetParamOr(c.ctx, ParamSchedule, ""))
	if err != nil {
		panic(errors.WithMessagef(err, "hyperparameter %q", ParamSchedule))
	}
	c.points = points
	c.stepsPerEpoch = context.GetParamOr(c.ctx, ParamStepsPerEpoch, 0)
	c.learningRate = context.GetParamOr(c.ctx, optimizers.ParamLearningRate, 0.0)
	return c
}

// Points sets the schedule.
func (c *Config) Points(points ...Point) *Config {
	c.points = slices.Clone(points)
	return c
}

// StepsPerEpoch sets the number of steps in an epoch.
func (c *Config) StepsPerEpoch(steps int) *Config {
	c.stepsPerEpoch = steps
	return c
}

// LearningRate before the first point of the schedule.
func (c *Config) LearningRate(learningRate float64) *Config {
	c.learningRate = learningRate
	return c
}

// Done generates the graph that sets the learning rate variable used by the optimizers.
//
// It is a no-op if not training or if the schedule is empty.
func (c *Config) Done() {
	ctx := c.ctx.Checked(false)
	g := c.graph
	if !ctx.IsTraining(g) || len(c.points) == 0 {
		return
	}
	if c.stepsPerEpoch <= 0 {
		Panicf("learning rate schedule %q requires %q > 0, got %d", Format(c.points), ParamStepsPerEpoch, c.stepsPerEpoch)
	}
	if c.learningRate <= 0 {
		Panicf("learning rate schedule requires the initial learning rate (%q) to be set", optimizers.ParamLearningRate)
	}

	// Global step is the number of steps already taken: the optimizer increments it afterward.
	globalStep := optimizers.GetGlobalStepVar(ctx).ValueGraph(g)
	epoch := DivScalar(globalStep, float64(c.stepsPerEpoch))
	lr := Scalar(g, c.dtype, c.learningRate)
	for _, p := range c.points {
		reached := GreaterOrEqual(epoch, Scalar(g, epoch.DType(), float64(p.Epoch)))
		lr = Where(reached, Scalar(g, c.dtype, p.LearningRate), lr)
	}
	lrVar := optimizers.LearningRateVarWithValue(ctx, c.dtype, c.learningRate)
	lrVar.SetValueGraph(lr)
}
