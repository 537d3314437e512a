// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gomlx/relembed/internal/relations"
	"github.com/pkg/errors"
)

// Example is one entry of a list file: an image and the relation it depicts.
type Example struct {
	Path     string
	Relation relations.Relation
}

// LoadList reads the list file at listPath. See ParseList for the format.
func LoadList(listPath string) ([]Example, error) {
	f, err := os.Open(listPath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open list file %q", listPath)
	}
	defer func() { _ = f.Close() }()
	return ParseList(f, filepath.Dir(listPath), listPath)
}

// ParseList parses a list of examples, one per line, formatted as "<image path> <relation>".
//
// The relation can be its index or its name (names may contain spaces: everything after the first
// field is taken as the relation). Empty lines and lines starting with "#" are skipped.
// Relative image paths are resolved against baseDir. The name is only used in error messages.
func ParseList(r io.Reader, baseDir, name string) ([]Example, error) {
	var examples []Example
	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, errors.Errorf("%s:%d: expected \"<image path> <relation>\", got %q", name, lineNum, line)
		}
		relation, err := relations.Parse(strings.Join(fields[1:], " "))
		if err != nil {
			return nil, errors.WithMessagef(err, "%s:%d", name, lineNum)
		}
		imgPath := fields[0]
		if !filepath.IsAbs(imgPath) && baseDir != "" {
			imgPath = filepath.Join(baseDir, imgPath)
		}
		examples = append(examples, Example{Path: imgPath, Relation: relation})
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "failed reading %s", name)
	}
	if len(examples) == 0 {
		return nil, errors.Errorf("%s has no examples", name)
	}
	return examples, nil
}
