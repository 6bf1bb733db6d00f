// Package report renders diagnostics of a mixture fit.
package report

import (
	"errors"
	"fmt"
	"image/color"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/ironsheep/rmsat-cfar/internal/mixture"
)

// ErrNoData is returned when the histogram model holds no clutter.
var ErrNoData = errors.New("histogram model has no data")

var (
	empiricalColor = color.RGBA{R: 40, G: 40, B: 40, A: 255}
	estimateColor  = color.RGBA{R: 220, G: 40, B: 40, A: 255}
	componentColor = color.RGBA{R: 60, G: 110, B: 200, A: 255}
)

// FitPlot draws the empirical pdf of d against the density of m. Each mixture
// component is drawn dashed, scaled by its weight.
func FitPlot(d *mixture.Data, m *mixture.Model) (*plot.Plot, error) {
	if d == nil || !d.Valid() {
		return nil, ErrNoData
	}
	if m == nil || !m.Valid() {
		return nil, fmt.Errorf("invalid mixture model with %d components", modelCount(m))
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Rayleigh mixture fit (%d components)", m.Count)
	p.X.Label.Text = "Intensity"
	p.Y.Label.Text = "Probability density"

	empirical := make(plotter.XYs, d.Size())
	estimate := make(plotter.XYs, d.Size())
	for k := range empirical {
		x := d.X(k)
		empirical[k] = plotter.XY{X: x, Y: d.Empirical[k]}
		estimate[k] = plotter.XY{X: x, Y: m.Probability(x)}
	}

	empLine, err := plotter.NewLine(empirical)
	if err != nil {
		return nil, err
	}
	empLine.Color = empiricalColor
	empLine.Width = vg.Points(1)
	p.Add(empLine)
	p.Legend.Add("empirical", empLine)

	estLine, err := plotter.NewLine(estimate)
	if err != nil {
		return nil, err
	}
	estLine.Color = estimateColor
	estLine.Width = vg.Points(1.5)
	p.Add(estLine)
	p.Legend.Add("estimated", estLine)

	if m.Count > 1 {
		for i := 0; i < m.Count; i++ {
			pts := make(plotter.XYs, d.Size())
			for k := range pts {
				x := d.X(k)
				pts[k] = plotter.XY{X: x, Y: m.Weights[i] * mixture.RayleighPDF(x, m.SqrSigmas[i])}
			}
			line, err := plotter.NewLine(pts)
			if err != nil {
				return nil, err
			}
			line.Color = componentColor
			line.Width = vg.Points(0.75)
			line.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
			p.Add(line)
			if i == 0 {
				p.Legend.Add("components", line)
			}
		}
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	return p, nil
}

// WriteFitPlot saves FitPlot to path. The format follows the extension; .png,
// .svg and .pdf are supported.
func WriteFitPlot(path string, d *mixture.Data, m *mixture.Model) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".svg", ".pdf":
	default:
		return fmt.Errorf("unsupported plot format %q", filepath.Ext(path))
	}

	p, err := FitPlot(d, m)
	if err != nil {
		return err
	}
	if err := p.Save(8*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save fit plot: %w", err)
	}
	return nil
}

func modelCount(m *mixture.Model) int {
	if m == nil {
		return 0
	}
	return m.Count
}
