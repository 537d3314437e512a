// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package relations

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want Relation
	}{
		{"0", Below},
		{"9", Above},
		{"left of", LeftOf},
		{"In_Front_Of", InFrontOf},
		{" on ", On},
	} {
		got, err := Parse(tc.in)
		require.NoError(t, err, "Parse(%q)", tc.in)
		assert.Equal(t, tc.want, got, "Parse(%q)", tc.in)
	}

	for _, in := range []string{"10", "-1", "256", "257", "-255", "beside"} {
		_, err := Parse(in)
		require.Error(t, err, "Parse(%q)", in)
	}
}

func TestStringRoundTrip(t *testing.T) {
	for _, r := range All() {
		got, err := Parse(r.String())
		require.NoError(t, err)
		assert.Equal(t, r, got)
	}
	assert.Equal(t, "Relation(12)", Relation(12).String())
}

func TestColors(t *testing.T) {
	seen := make(map[color.Color]bool)
	for _, r := range All() {
		c := r.Color()
		assert.False(t, seen[c], "color of %q repeated", r)
		seen[c] = true
	}
	assert.Equal(t, color.Black, Relation(-1).Color())
}
