// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/gomlx/relembed/internal/relations"
)

var (
	tableBorderStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	rightAlignedStyle = lipgloss.NewStyle().Align(lipgloss.Right).PaddingLeft(1).PaddingRight(1)
	normalStyle       = lipgloss.NewStyle().PaddingLeft(1).PaddingRight(1)
)

// CountPerRelation returns how many examples there are of each relation.
func CountPerRelation(examples []Example) []int {
	counts := make([]int, relations.NumRelations)
	for _, ex := range examples {
		counts[ex.Relation]++
	}
	return counts
}

// Summary renders a table with the number of examples per relation.
func Summary(name string, examples []Example) string {
	counts := CountPerRelation(examples)
	table := lgtable.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(tableBorderStyle).
		Headers("Relation", name).
		StyleFunc(func(row, col int) lipgloss.Style {
			if col == 1 {
				return rightAlignedStyle
			}
			return normalStyle
		})
	for _, r := range relations.All() {
		table.Row(r.String(), humanize.Comma(int64(counts[r])))
	}
	table.Row("total", humanize.Comma(int64(len(examples))))
	return table.String()
}
