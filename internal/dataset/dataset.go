// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package dataset implements the train.Dataset sources used to train and inspect relation embeddings:
// pairs (for siamese and cosine losses), triplets (for triplet losses) and plain labeled examples.
package dataset

import (
	"image"
	"io"
	"math/rand"
	"sync"

	"github.com/gomlx/gomlx/ml/train"
	"github.com/gomlx/gomlx/types/tensors"
	timage "github.com/gomlx/gomlx/types/tensors/images"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
)

// Mode of the tuples yielded by a Dataset.
type Mode int

const (
	// ModePairs yields inputs `[x, y]` and labels `[similar]`, where similar is 1 if x and y share the relation.
	ModePairs Mode = iota

	// ModeTriplets yields inputs `[anchor, positive, negative]` and labels `[anchor relation]`.
	ModeTriplets
)

// NumInputs returns the number of images per tuple of the mode.
func (m Mode) NumInputs() int {
	if m == ModeTriplets {
		return 3
	}
	return 2
}

// String implements fmt.Stringer.
func (m Mode) String() string {
	if m == ModeTriplets {
		return "triplets"
	}
	return "pairs"
}

// Dataset samples pairs or triplets of images from a list of examples.
//
// It implements train.Dataset. By default, it loops indefinitely, see WithMaxSteps to make it finite.
type Dataset struct {
	name      string
	mode      Mode
	loader    *ImageLoader
	batchSize int
	dtype     dtypes.DType
	toTensor  *timage.ToTensorConfig
	seed      int64

	// muSampler protects sampler and steps.
	muSampler       sync.Mutex
	sampler         *sampler
	steps, maxSteps int
}

var (
	AssertDatasetIsTrainDataset *Dataset
	_                           train.Dataset = AssertDatasetIsTrainDataset
)

// New creates a Dataset of pairs or triplets (see Mode) sampled from the examples.
//
// Images are read with loader, and converted to tensors of the given dtype, shaped
// `[batchSize, size, size, 3]`. The sampling is seeded with seed, and it restarts
// from the same seed at Reset.
func New(name string, mode Mode, examples []Example, loader *ImageLoader, batchSize int, seed int64, dtype dtypes.DType) (*Dataset, error) {
	if batchSize <= 0 {
		return nil, errors.Errorf("dataset %q: invalid batch size %d", name, batchSize)
	}
	ds := &Dataset{
		name:      name,
		mode:      mode,
		loader:    loader,
		batchSize: batchSize,
		dtype:     dtype,
		toTensor:  timage.ToTensor(dtype),
		seed:      seed,
	}
	var err error
	ds.sampler, err = newSampler(examples, rand.New(rand.NewSource(seed)))
	if err != nil {
		return nil, errors.WithMessagef(err, "dataset %q", name)
	}
	return ds, nil
}

// WithMaxSteps makes the dataset finite: it returns io.EOF after numSteps batches.
// Used for evaluation datasets. If numSteps <= 0 it loops indefinitely.
//
// Returns itself, to allow chain of method calls.
func (ds *Dataset) WithMaxSteps(numSteps int) *Dataset {
	ds.maxSteps = numSteps
	return ds
}

// Name implements train.Dataset.
func (ds *Dataset) Name() string { return ds.name }

// Mode of the tuples yielded.
func (ds *Dataset) Mode() Mode { return ds.mode }

// BatchSize is the number of tuples yielded at each Yield call.
func (ds *Dataset) BatchSize() int { return ds.batchSize }

// Reset implements train.Dataset. It restarts the sampling from the original seed.
func (ds *Dataset) Reset() {
	ds.muSampler.Lock()
	defer ds.muSampler.Unlock()
	ds.steps = 0
	ds.sampler.rng = rand.New(rand.NewSource(ds.seed))
}

// sampleIndices selects the examples of the next batch: one slice per input, and the labels.
func (ds *Dataset) sampleIndices() (indices [][]int, labels []int32, err error) {
	ds.muSampler.Lock()
	defer ds.muSampler.Unlock()
	if ds.maxSteps > 0 && ds.steps >= ds.maxSteps {
		return nil, nil, io.EOF
	}
	ds.steps++

	numInputs := ds.mode.NumInputs()
	indices = make([][]int, numInputs)
	for ii := range indices {
		indices[ii] = make([]int, ds.batchSize)
	}
	labels = make([]int32, ds.batchSize)
	for exampleIdx := range ds.batchSize {
		switch ds.mode {
		case ModePairs:
			left, right, similar := ds.sampler.pair()
			indices[0][exampleIdx], indices[1][exampleIdx] = left, right
			if similar {
				labels[exampleIdx] = 1
			}
		case ModeTriplets:
			anchor, positive, negative := ds.sampler.triplet()
			indices[0][exampleIdx], indices[1][exampleIdx], indices[2][exampleIdx] = anchor, positive, negative
			labels[exampleIdx] = int32(ds.sampler.examples[anchor].Relation)
		}
	}
	return
}

// Yield implements train.Dataset. It returns:
//
//   - spec: a pointer to the Dataset.
//   - inputs: 2 (pairs) or 3 (triplets) image batches shaped `[batch_size, size, size, 3]`.
//   - labels: one int32 tensor shaped `[batch_size]`: the similarity (pairs) or the anchor relation (triplets).
func (ds *Dataset) Yield() (spec any, inputs, labels []*tensors.Tensor, err error) {
	var indices [][]int
	var labelsValues []int32
	indices, labelsValues, err = ds.sampleIndices()
	if err != nil {
		return
	}
	spec = ds
	inputs = make([]*tensors.Tensor, len(indices))
	for inputIdx, batchIndices := range indices {
		var images []image.Image
		images, err = ds.loadImages(batchIndices)
		if err != nil {
			return nil, nil, nil, err
		}
		inputs[inputIdx] = ds.toTensor.Batch(images)
	}
	labels = []*tensors.Tensor{tensors.FromValue(labelsValues)}
	return
}

func (ds *Dataset) loadImages(indices []int) ([]image.Image, error) {
	paths := make([]string, len(indices))
	for ii, exampleIdx := range indices {
		paths[ii] = ds.sampler.examples[exampleIdx].Path
	}
	images, err := ds.loader.LoadAll(paths)
	if err != nil {
		return nil, errors.WithMessagef(err, "dataset %q", ds.name)
	}
	return images, nil
}

// ExamplesDataset yields the examples of a list, in order, with their relation as labels.
// It is finite: it returns io.EOF once all examples were yielded.
//
// It implements train.Dataset.
type ExamplesDataset struct {
	name      string
	examples  []Example
	loader    *ImageLoader
	batchSize int
	toTensor  *timage.ToTensorConfig

	mu       sync.Mutex
	position int
}

var _ train.Dataset = (*ExamplesDataset)(nil)

// NewExamples creates an ExamplesDataset.
func NewExamples(name string, examples []Example, loader *ImageLoader, batchSize int, dtype dtypes.DType) (*ExamplesDataset, error) {
	if batchSize <= 0 {
		return nil, errors.Errorf("dataset %q: invalid batch size %d", name, batchSize)
	}
	return &ExamplesDataset{
		name:      name,
		examples:  examples,
		loader:    loader,
		batchSize: batchSize,
		toTensor:  timage.ToTensor(dtype),
	}, nil
}

// Name implements train.Dataset.
func (ds *ExamplesDataset) Name() string { return ds.name }

// Reset implements train.Dataset.
func (ds *ExamplesDataset) Reset() {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	ds.position = 0
}

// YieldExamples returns the next batch of examples, and their resized images.
// The last batch may be smaller than the batch size.
func (ds *ExamplesDataset) YieldExamples() (examples []Example, images []image.Image, err error) {
	ds.mu.Lock()
	start := ds.position
	if start >= len(ds.examples) {
		ds.mu.Unlock()
		return nil, nil, io.EOF
	}
	end := min(start+ds.batchSize, len(ds.examples))
	ds.position = end
	ds.mu.Unlock()

	examples = ds.examples[start:end]
	paths := make([]string, len(examples))
	for ii, ex := range examples {
		paths[ii] = ex.Path
	}
	images, err = ds.loader.LoadAll(paths)
	if err != nil {
		return nil, nil, errors.WithMessagef(err, "dataset %q", ds.name)
	}
	return
}

// Yield implements train.Dataset: inputs holds the image batch `[batch_size, size, size, 3]`, and labels
// the relations as int32 `[batch_size]`.
func (ds *ExamplesDataset) Yield() (spec any, inputs, labels []*tensors.Tensor, err error) {
	var examples []Example
	var images []image.Image
	examples, images, err = ds.YieldExamples()
	if err != nil {
		return
	}
	relationsValues := make([]int32, len(examples))
	for ii, ex := range examples {
		relationsValues[ii] = int32(ex.Relation)
	}
	spec = ds
	inputs = []*tensors.Tensor{ds.toTensor.Batch(images)}
	labels = []*tensors.Tensor{tensors.FromValue(relationsValues)}
	return
}
