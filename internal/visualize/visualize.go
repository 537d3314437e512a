// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package visualize embeds test images with a trained model, projects the embeddings to 2D and
// renders them as a scatter plot coloured by relation.
package visualize

import (
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gomlx/backends"
	. "github.com/gomlx/gomlx/graph"
	"github.com/gomlx/gomlx/ml/context"
	"github.com/gomlx/gomlx/ml/context/checkpoints"
	"github.com/gomlx/gomlx/ml/data"
	"github.com/gomlx/gomlx/types/tensors"
	timage "github.com/gomlx/gomlx/types/tensors/images"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/relembed/internal/dataset"
	"github.com/gomlx/relembed/internal/model"
	"github.com/gomlx/relembed/internal/relations"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"k8s.io/klog/v2"
)

const (
	// DefaultNumBatches is the number of test batches embedded.
	DefaultNumBatches = 6

	// DefaultBatchSize of the test batches.
	DefaultBatchSize = 64
)

// Config of a visualization.
type Config struct {
	Algorithm model.Algorithm

	// LoadDir is the checkpoint directory of the trained model. Required.
	LoadDir string

	// DataPath is the list file with the test examples.
	DataPath string

	// OutputDir where the plot "<algorithm>.jpg" is saved. Defaults to the current directory.
	OutputDir string

	// ExportCSV, if set, is the path of a CSV file where the embeddings are saved.
	ExportCSV string

	// NumBatches and BatchSize of the examples embedded. They default to DefaultNumBatches and DefaultBatchSize.
	NumBatches, BatchSize int

	// ParamsSet are the hyperparameters set by the user: they take precedence over the values
	// stored in the checkpoint.
	ParamsSet []string
}

// Result of a visualization.
type Result struct {
	// Examples embedded, in file order.
	Examples []dataset.Example

	// Embeddings of the examples, shaped [len(Examples)][embedding_dim].
	Embeddings [][]float64

	// Points are the 2D projections of the embeddings.
	Points [][2]float64

	// PlotPath is the path of the saved plot, or empty if plotting failed.
	PlotPath string
}

// Visualize loads the model from cfg.LoadDir into ctx, embeds the first test examples and plots them.
// If ctx is nil, a context with the default hyperparameters is used.
//
// A failure to plot is logged and doesn't fail the visualization.
func Visualize(ctx *context.Context, cfg *Config) (*Result, error) {
	if cfg.LoadDir == "" {
		return nil, errors.New("visualization requires a trained model, use --load to select its checkpoint directory")
	}
	numBatches, batchSize := cfg.NumBatches, cfg.BatchSize
	if numBatches <= 0 {
		numBatches = DefaultNumBatches
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	// Hyperparameters not set by the user are read from the checkpoint, so the same model is built.
	if ctx == nil {
		ctx = model.CreateDefaultContext()
	}
	loadDir := data.ReplaceTildeInDir(cfg.LoadDir)
	if _, err := checkpoints.Load(ctx).Dir(loadDir).ExcludeParams(cfg.ParamsSet...).Done(); err != nil {
		return nil, errors.WithMessagef(err, "failed while loading %s model from %q", cfg.Algorithm, loadDir)
	}
	ctx = ctx.Reuse()

	dsConfig := dataset.NewConfigurationFromContext(ctx, cfg.DataPath)
	examples, err := dataset.LoadList(dsConfig.ListPath)
	if err != nil {
		return nil, err
	}
	loader, err := dataset.NewImageLoader(dsConfig.ImageSize, 0)
	if err != nil {
		return nil, err
	}
	testDS, err := dataset.NewExamples("test", examples, loader, batchSize, dsConfig.DType)
	if err != nil {
		return nil, err
	}

	embedExec := context.NewExec(backends.MustNew(), ctx, func(ctx *context.Context, images *Node) *Node {
		return ConvertDType(model.EmbeddingGraph(ctx, images), dtypes.Float64)
	})
	toTensor := timage.ToTensor(dsConfig.DType)
	result := &Result{}
	bar := progressbar.NewOptions(numBatches,
		progressbar.OptionSetDescription("Embedding test images"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("batches"),
		progressbar.OptionClearOnFinish())
	defer func() { _ = bar.Finish() }()
	for range numBatches {
		var batchExamples []dataset.Example
		var images []image.Image
		batchExamples, images, err = testDS.YieldExamples()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		var outputs []*tensors.Tensor
		err = exceptions.TryCatch[error](func() { outputs = embedExec.Call(toTensor.Batch(images)) })
		if err != nil {
			return nil, errors.WithMessagef(err, "failed to embed test images")
		}
		result.Examples = append(result.Examples, batchExamples...)
		result.Embeddings = append(result.Embeddings, outputs[0].Value().([][]float64)...)
		_ = bar.Add(1)
	}
	if len(result.Examples) == 0 {
		return nil, errors.Errorf("no test examples in %q", dsConfig.ListPath)
	}
	klog.V(1).Infof("Embedded %d test examples from %q", len(result.Examples), dsConfig.ListPath)

	result.Points, err = Project(result.Embeddings)
	if err != nil {
		return nil, err
	}

	if cfg.ExportCSV != "" {
		if err = ExportCSV(cfg.ExportCSV, result); err != nil {
			return nil, err
		}
		fmt.Printf("Embeddings exported to %q\n", cfg.ExportCSV)
	}

	outputDir := cfg.OutputDir
	if outputDir == "" {
		outputDir = "."
	}
	plotPath := filepath.Join(data.ReplaceTildeInDir(outputDir), cfg.Algorithm.String()+".jpg")
	labels := make([]relations.Relation, len(result.Examples))
	for ii, ex := range result.Examples {
		labels[ii] = ex.Relation
	}
	if err = Plot(plotPath, fmt.Sprintf("Embedding using %s-loss", cfg.Algorithm), result.Points, labels); err != nil {
		klog.Errorf("Failed to plot embeddings: %+v", err)
		return result, nil
	}
	result.PlotPath = plotPath
	fmt.Printf("Embeddings plot saved to %q\n", plotPath)
	return result, nil
}

// ensureDir creates the parent directory of filePath.
func ensureDir(filePath string) error {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0777); err != nil {
		return errors.Wrapf(err, "failed to create directory %q", dir)
	}
	return nil
}
