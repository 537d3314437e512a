// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/disintegration/imaging"
	"github.com/gomlx/relembed/internal/workerspool"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
)

// ImageLoader reads images from disk and resizes them to a square of a fixed size.
//
// Resized images are kept in an LRU cache, since pairs and triplets sampling revisit
// the same files many times. It is safe for concurrent use.
type ImageLoader struct {
	size  int
	cache *lru.Cache[string, *image.NRGBA]
	pool  *workerspool.Pool
}

// NewImageLoader creates an ImageLoader that resizes images to size x size.
// If cacheSize <= 0 no caching is done.
func NewImageLoader(size, cacheSize int) (*ImageLoader, error) {
	if size <= 0 {
		return nil, errors.Errorf("invalid image size %d", size)
	}
	l := &ImageLoader{size: size, pool: workerspool.New()}
	if cacheSize > 0 {
		var err error
		l.cache, err = lru.New[string, *image.NRGBA](cacheSize)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to create image cache of size %d", cacheSize)
		}
	}
	return l, nil
}

// Size of the (square) images returned.
func (l *ImageLoader) Size() int { return l.size }

// Load returns the image in imgPath, resized to Size() x Size().
func (l *ImageLoader) Load(imgPath string) (*image.NRGBA, error) {
	if l.cache != nil {
		if img, found := l.cache.Get(imgPath); found {
			return img, nil
		}
	}
	original, err := GetImageFromFilePath(imgPath)
	if err != nil {
		return nil, err
	}
	img := imaging.Resize(original, l.size, l.size, imaging.Lanczos)
	if l.cache != nil {
		l.cache.Add(imgPath, img)
	}
	return img, nil
}

// LoadAll loads the images in paths concurrently, see Load.
func (l *ImageLoader) LoadAll(paths []string) ([]image.Image, error) {
	images := make([]image.Image, len(paths))
	err := l.pool.Run(len(paths), func(ii int) error {
		img, err := l.Load(paths[ii])
		if err != nil {
			return err
		}
		images[ii] = img
		return nil
	})
	if err != nil {
		return nil, err
	}
	return images, nil
}

// GetImageFromFilePath decodes the image in imagePath. JPEG and PNG are supported.
func GetImageFromFilePath(imagePath string) (image.Image, error) {
	f, err := os.Open(imagePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open image")
	}
	defer func() { _ = f.Close() }()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode image %q", imagePath)
	}
	return img, nil
}
