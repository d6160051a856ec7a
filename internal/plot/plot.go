// Package plot writes the charts a training session produces: loss curves
// and previews of digit images.
package plot

import (
	"errors"
	"fmt"
	"image"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/born-ml/nodekit/internal/rearrange"
	"github.com/born-ml/nodekit/internal/tensor"
)

// ErrEmpty is returned when there is nothing to plot.
var ErrEmpty = errors.New("plot: nothing to plot")

// Series is one line of a chart. When X is nil the points are placed at
// 0, 1, 2, ...
type Series struct {
	Name string
	X, Y []float64
}

func (s Series) points() (plotter.XYs, error) {
	if s.X != nil && len(s.X) != len(s.Y) {
		return nil, fmt.Errorf("series %q: %d x values for %d y values", s.Name, len(s.X), len(s.Y))
	}
	pts := make(plotter.XYs, len(s.Y))
	for i, y := range s.Y {
		pts[i].X = float64(i)
		if s.X != nil {
			pts[i].X = s.X[i]
		}
		pts[i].Y = y
	}
	return pts, nil
}

// Lines builds a line chart with one line per series.
func Lines(title, xlabel, ylabel string, series ...Series) (*plot.Plot, error) {
	if len(series) == 0 {
		return nil, ErrEmpty
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xlabel
	p.Y.Label.Text = ylabel
	p.Add(plotter.NewGrid())

	for i, s := range series {
		if len(s.Y) == 0 {
			return nil, fmt.Errorf("%w: series %q has no points", ErrEmpty, s.Name)
		}
		pts, err := s.points()
		if err != nil {
			return nil, err
		}
		l, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("series %q: %w", s.Name, err)
		}
		l.Color = plotutil.Color(i)
		l.LineStyle.Width = vg.Points(1.5)
		p.Add(l)
		if s.Name != "" {
			p.Legend.Add(s.Name, l)
		}
	}
	p.Legend.Top = true
	return p, nil
}

// SaveLines renders a line chart to path. The format follows the file
// extension (.png, .svg, .pdf, ...).
func SaveLines(path, title, xlabel, ylabel string, series ...Series) error {
	p, err := Lines(title, xlabel, ylabel, series...)
	if err != nil {
		return err
	}
	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

// DigitGrid tiles images of shape [N, H, W] into a grayscale image with
// cols images per row. Missing cells in the last row are black.
func DigitGrid(images *tensor.Array[uint8], cols int) (*image.Gray, error) {
	if images.Rank() != 3 || images.Dim(0) == 0 {
		return nil, fmt.Errorf("%w: want non-empty [N, H, W] images, got %v", ErrEmpty, images.Shape())
	}
	if cols <= 0 {
		return nil, fmt.Errorf("plot: cols must be positive, got %d", cols)
	}
	n, h, w := images.Dim(0), images.Dim(1), images.Dim(2)
	cols = min(cols, n)
	rows := (n + cols - 1) / cols
	if pad := rows*cols - n; pad > 0 {
		var err error
		images, err = tensor.Concat(images, tensor.Zeros[uint8](tensor.Shape{pad, h, w}))
		if err != nil {
			return nil, err
		}
	}

	grid, err := rearrange.Rearrange(images, "(gh gw) h w -> (gh h) (gw w)", rearrange.Sizes{"gw": cols})
	if err != nil {
		return nil, err
	}
	img := image.NewGray(image.Rect(0, 0, cols*w, rows*h))
	copy(img.Pix, grid.Data())
	return img, nil
}

// SaveGrid renders a digit grid to path, with the labels in row order as
// the title when given.
func SaveGrid(path string, images *tensor.Array[uint8], labels []uint8, cols int) error {
	img, err := DigitGrid(images, cols)
	if err != nil {
		return err
	}
	b := img.Bounds()

	p := plot.New()
	p.HideAxes()
	if len(labels) > 0 {
		parts := make([]string, len(labels))
		for i, l := range labels {
			parts[i] = fmt.Sprint(l)
		}
		p.Title.Text = "labels: " + strings.Join(parts, " ")
	}
	p.Add(plotter.NewImage(img, 0, 0, float64(b.Dx()), float64(b.Dy())))

	scale := vg.Inch / 28
	if err := p.Save(vg.Length(b.Dx())*scale+vg.Inch, vg.Length(b.Dy())*scale+vg.Inch, path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}
