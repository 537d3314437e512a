// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package relations defines the spatial relation classes the embeddings are trained on.
package relations

import (
	"image/color"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Relation is the class of an example: the spatial relation between two objects in the image.
type Relation int8

const (
	Below Relation = iota
	AcrossFrom
	Under
	LeftOf
	Behind
	On
	RightOf
	In
	InFrontOf
	Above

	// NumRelations is the number of relation classes.
	NumRelations = int(Above) + 1
)

var names = [NumRelations]string{
	"below", "across from", "under", "left of", "behind",
	"on", "right of", "in", "in front of", "above",
}

// colors used when plotting each relation: r, g, b, c, yellow, blueviolet, lightblue, darkgreen, orange, brown.
var colors = [NumRelations]color.RGBA{
	{R: 0xff, A: 0xff},
	{G: 0x80, A: 0xff},
	{B: 0xff, A: 0xff},
	{G: 0xbf, B: 0xbf, A: 0xff},
	{R: 0xff, G: 0xff, A: 0xff},
	{R: 0x8a, G: 0x2b, B: 0xe2, A: 0xff},
	{R: 0xad, G: 0xd8, B: 0xe6, A: 0xff},
	{G: 0x64, A: 0xff},
	{R: 0xff, G: 0xa5, A: 0xff},
	{R: 0xa5, G: 0x2a, B: 0x2a, A: 0xff},
}

// All returns all relations, in index order.
func All() []Relation {
	all := make([]Relation, NumRelations)
	for ii := range all {
		all[ii] = Relation(ii)
	}
	return all
}

// IsValid returns whether r is one of the known relations.
func (r Relation) IsValid() bool {
	return r >= 0 && int(r) < NumRelations
}

// String implements fmt.Stringer.
func (r Relation) String() string {
	if !r.IsValid() {
		return "Relation(" + strconv.Itoa(int(r)) + ")"
	}
	return names[r]
}

// Color used to plot the relation.
func (r Relation) Color() color.Color {
	if !r.IsValid() {
		return color.Black
	}
	return colors[r]
}

// Parse converts either the relation index ("3") or its name ("left of") to a Relation.
// Names are matched case-insensitively, and "_" can be used in place of spaces.
func Parse(s string) (Relation, error) {
	s = strings.TrimSpace(s)
	if idx, err := strconv.Atoi(s); err == nil {
		if idx < 0 || idx >= NumRelations {
			return 0, errors.Errorf("relation index %d out of range [0, %d)", idx, NumRelations)
		}
		return Relation(idx), nil
	}
	name := strings.ToLower(strings.ReplaceAll(s, "_", " "))
	for ii, candidate := range names {
		if candidate == name {
			return Relation(ii), nil
		}
	}
	return 0, errors.Errorf("unknown relation %q, valid values are %q", s, names)
}
