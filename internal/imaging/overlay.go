package imaging

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	colorful "github.com/lucasb-eyer/go-colorful"
)

// DefaultHighlight is the overlay colour used when none is given.
const DefaultHighlight = "#ff2a2a"

// DefaultGridColor is the tile boundary colour used when none is given.
const DefaultGridColor = "#30c0ff"

// displayPercentile is the intensity percentile mapped to white when stretching a
// raster for display.
const displayPercentile = 0.999

// OverlayOptions controls how detections are drawn over the intensity image.
type OverlayOptions struct {
	// Highlight is the target colour as "#RRGGBB". Empty means DefaultHighlight.
	Highlight string

	// Opacity is the blend factor toward Highlight in [0,1]. Zero means 0.85.
	Opacity float64

	// Region optionally crops the rendered overlay. An empty rectangle keeps the
	// whole frame.
	Region image.Rectangle

	// Grid draws tile boundaries every Grid pixels when positive.
	Grid int

	// GridColor is the boundary colour as "#RRGGBB". Empty means DefaultGridColor.
	GridColor string
}

// Overlay renders the raster as a contrast-stretched grayscale image with target
// pixels of mask blended toward the highlight colour in CIE-L*a*b* space.
//
// The raster is stretched so its 99.9th intensity percentile maps to white. The
// mask must have the same dimensions as the raster.
func Overlay(r *Raster, mask *image.Gray, opts OverlayOptions) (*image.NRGBA, error) {
	if r.Empty() {
		return nil, ErrEmptyImage
	}
	if err := checkSameSize(r, mask.Bounds().Dx(), mask.Bounds().Dy()); err != nil {
		return nil, err
	}

	hex := opts.Highlight
	if hex == "" {
		hex = DefaultHighlight
	}
	highlight, err := colorful.Hex(hex)
	if err != nil {
		return nil, fmt.Errorf("invalid highlight colour %q: %w", hex, err)
	}
	opacity := opts.Opacity
	if opacity <= 0 || opacity > 1 {
		opacity = 0.85
	}

	upper := NewHistogram(r, 1).PercentileIndex(displayPercentile)
	scale := 255.0
	if upper > 0 {
		scale = 255.0 / float64(upper)
	}

	mb := mask.Bounds()
	out := image.NewNRGBA(r.Bounds())
	for y := 0; y < r.Height; y++ {
		for x, v := range r.Row(y) {
			g := uint8(math.Round(min(float64(v)*scale, 255)))
			c := color.NRGBA{R: g, G: g, B: g, A: 255}
			if mask.GrayAt(mb.Min.X+x, mb.Min.Y+y).Y != 0 {
				base := colorful.Color{R: float64(g) / 255, G: float64(g) / 255, B: float64(g) / 255}
				rr, gg, bb := base.BlendLab(highlight, opacity).Clamped().RGB255()
				c = color.NRGBA{R: rr, G: gg, B: bb, A: 255}
			}
			out.SetNRGBA(x, y, c)
		}
	}

	if opts.Grid > 0 {
		gridHex := opts.GridColor
		if gridHex == "" {
			gridHex = DefaultGridColor
		}
		gc, err := colorful.Hex(gridHex)
		if err != nil {
			return nil, fmt.Errorf("invalid grid colour %q: %w", gridHex, err)
		}
		gr, gg, gb := gc.RGB255()
		drawGrid(out, opts.Grid, color.NRGBA{R: gr, G: gg, B: gb, A: 160})
	}

	if !opts.Region.Empty() {
		region := opts.Region.Intersect(out.Bounds())
		if region.Empty() {
			return nil, fmt.Errorf("overlay region %v outside image bounds %v", opts.Region, out.Bounds())
		}
		return imaging.Crop(out, region), nil
	}
	return out, nil
}

// SaveOverlay renders an overlay and writes it to path.
func SaveOverlay(path string, r *Raster, mask *image.Gray, opts OverlayOptions) error {
	img, err := Overlay(r, mask, opts)
	if err != nil {
		return err
	}
	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("failed to save overlay: %w", err)
	}
	return nil
}
