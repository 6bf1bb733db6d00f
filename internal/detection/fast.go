package detection

import (
	"image"
	"math"

	"github.com/ironsheep/rmsat-cfar/internal/imaging"
)

// DefaultMaximumExpansion is the default bound on window growth. Windows are
// tried at 1..MaximumExpansion-1 times the base radius.
const DefaultMaximumExpansion = 4

// minimumTargetValue is the lowest intensity tested for a target.
const minimumTargetValue = 1

// Stats summarises one detection pass over a working rectangle.
type Stats struct {
	// Pixels is the area of the working rectangle.
	Pixels int `json:"pixels"`

	// Targets is the number of pixels flagged.
	Targets int `json:"targets"`

	// Expansions counts window growths caused by too little clutter.
	Expansions int `json:"expansions"`

	TargetRatio    float64 `json:"target_ratio"`
	ExpansionRatio float64 `json:"expansion_ratio"`
}

// Add accumulates o into s and recomputes the ratios.
func (s *Stats) Add(o Stats) {
	s.Pixels += o.Pixels
	s.Targets += o.Targets
	s.Expansions += o.Expansions
	s.ratios()
}

func (s *Stats) ratios() {
	if s.Pixels == 0 {
		s.TargetRatio, s.ExpansionRatio = 0, 0
		return
	}
	s.TargetRatio = float64(s.Targets) / float64(s.Pixels)
	s.ExpansionRatio = float64(s.Expansions) / float64(s.Pixels)
}

// MinimumClutterArea is half the annulus area between a window of radius window
// and a guard square of radius guard.
func MinimumClutterArea(guard, window int) int {
	w := 2*window + 1
	g := 2*guard + 1
	return (w*w - g*g) / 2
}

// FastDetector tests every pixel against a Rayleigh mixture whose component
// scales are estimated from the clutter annulus around it.
type FastDetector struct {
	MaximumExpansion int
}

// Detect flags targets of tile inside work and writes 255 (target) or 0 into
// mask. Pixels of mask outside work are left untouched. window is the base
// window radius (guard plus clutter radius) and weights are the mixture
// weights matching the intervals of table.
func (f FastDetector) Detect(tile *imaging.Raster, table *IntegralTable, weights []float64,
	guard, window int, pfa float64, mask *image.Gray, work image.Rectangle) Stats {

	bounds := tile.Bounds()
	work = work.Intersect(bounds)
	stats := Stats{Pixels: work.Dx() * work.Dy()}

	maxExpansion := f.MaximumExpansion
	if maxExpansion <= 0 {
		maxExpansion = DefaultMaximumExpansion
	}
	minArea := MinimumClutterArea(guard, window)
	intervals := min(table.Intervals(), len(weights))

	for y := work.Min.Y; y < work.Max.Y; y++ {
		row := tile.Row(y)
		out := mask.Pix[mask.PixOffset(mask.Rect.Min.X, mask.Rect.Min.Y+y):]
		for x := work.Min.X; x < work.Max.X; x++ {
			out[x] = 0

			v := float64(row[x])
			if v < minimumTargetValue {
				continue
			}
			vSqr := v * v
			guardRect := image.Rect(x-guard, y-guard, x+guard+1, y+guard+1).Intersect(bounds)

			for e := 1; e < maxExpansion; e++ {
				r := e * window
				windowRect := image.Rect(x-r, y-r, x+r+1, y+r+1).Intersect(bounds)

				var p float64
				area := 0
				for i := 0; i < intervals; i++ {
					ew, cw := table.Sum(i, windowRect)
					eg, cg := table.Sum(i, guardRect)
					c := cw - cg
					if c <= 0 {
						continue
					}
					area += c
					sigmaSqr := 0.5 * (ew - eg) / float64(c)
					p += weights[i] * math.Exp(-0.5*vSqr/sigmaSqr)

					// The pixel is already clutter.
					if area >= minArea && p > pfa {
						break
					}
				}

				if area >= minArea {
					if p < pfa {
						out[x] = 255
						stats.Targets++
					}
					break
				}
				stats.Expansions++
			}
		}
	}

	stats.ratios()
	return stats
}
