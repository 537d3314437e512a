// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package visualize

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/gomlx/exceptions"
	"github.com/gomlx/relembed/internal/relations"
	"github.com/janpfeifer/gonb/gonbui"
	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// Plot size.
var (
	PlotWidth  = 6 * vg.Inch
	PlotHeight = 4.5 * vg.Inch
)

// Plot renders the points as a scatter plot, coloured by their labels, and saves it to filePath.
// The image format is given by the file extension (jpg or png).
//
// If running in a GoNB notebook, the plot is also displayed.
func Plot(filePath, title string, points [][2]float64, labels []relations.Relation) error {
	img, err := Render(title, points, labels)
	if err != nil {
		return err
	}
	if err = ensureDir(filePath); err != nil {
		return err
	}
	if err = imaging.Save(img, filePath); err != nil {
		return errors.Wrapf(err, "failed to save plot to %q", filePath)
	}
	if gonbui.IsNotebook {
		src, err := gonbui.EmbedImageAsPNGSrc(img)
		if err != nil {
			return errors.Wrapf(err, "failed to display plot")
		}
		gonbui.DisplayHTML(fmt.Sprintf(`<img src="%s"/>`, src))
	}
	return nil
}

// Render the scatter plot of the points, thinned with Thin, with a legend of all relations.
func Render(title string, points [][2]float64, labels []relations.Relation) (img image.Image, err error) {
	if len(points) != len(labels) {
		return nil, errors.Errorf("got %d points but %d labels", len(points), len(labels))
	}
	if len(points) == 0 {
		return nil, errors.New("no points to plot")
	}
	if exception := exceptions.Try(func() { img = render(title, points, labels) }); exception != nil {
		if e, ok := exception.(error); ok {
			return nil, errors.WithMessagef(e, "failed to render plot %q", title)
		}
		return nil, errors.Errorf("failed to render plot %q: %v", title, exception)
	}
	return img, nil
}

func render(title string, points [][2]float64, labels []relations.Relation) image.Image {
	p := plot.New()
	p.Title.Text = title

	perRelation := make([]plotter.XYs, relations.NumRelations)
	for _, ii := range Thin(points) {
		r := labels[ii]
		perRelation[r] = append(perRelation[r], plotter.XY{X: points[ii][0], Y: points[ii][1]})
	}
	for _, r := range relations.All() {
		scatter := &plotter.Scatter{
			XYs: perRelation[r],
			GlyphStyle: draw.GlyphStyle{
				Color:  r.Color(),
				Radius: vg.Points(3),
				Shape:  draw.CircleGlyph{},
			},
		}
		if len(scatter.XYs) > 0 {
			p.Add(scatter)
		}
		p.Legend.Add(r.String(), scatter)
	}
	p.Legend.Left = true
	p.Legend.Top = false

	// Axes ranges are set after adding the plotters, which would otherwise extend them.
	minP, maxP := Bounds(points)
	p.X.Min, p.X.Max = axisRange(minP[0], maxP[0])
	p.Y.Min, p.Y.Max = axisRange(minP[1], maxP[1])
	p.HideAxes()

	canvas := vgimg.New(PlotWidth, PlotHeight)
	p.Draw(draw.New(canvas))
	return canvas.Image()
}

// axisRange returns [2·min, 2·max], widened if empty.
func axisRange(minV, maxV float64) (float64, float64) {
	lo, hi := 2*minV, 2*maxV
	if hi <= lo {
		lo, hi = lo-1, hi+1
	}
	return lo, hi
}
