package imaging

import (
	"image"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// RayleighClutter returns a raster of independent Rayleigh-distributed
// intensities with scale sigma, rounded and clipped to [1, 65535]. The same seed
// always produces the same raster.
func RayleighClutter(width, height int, sigma float64, seed uint64) *Raster {
	r := NewRaster(width, height)
	// A Weibull with shape 2 and scale sigma*sqrt(2) is a Rayleigh with scale sigma.
	dist := distuv.Weibull{K: 2, Lambda: sigma * math.Sqrt2, Src: rand.NewPCG(seed, seed+1)}
	for i := range r.Pix {
		v := math.Round(dist.Rand())
		r.Pix[i] = uint16(math.Min(math.Max(v, 1), 0xFFFF))
	}
	return r
}

// InjectTargets sets count points of r to value on a grid with the given
// spacing, starting spacing/2 from the top-left corner. It returns the points
// written.
func InjectTargets(r *Raster, value uint16, spacing, count int) []image.Point {
	if spacing <= 0 {
		spacing = 1
	}
	var pts []image.Point
	for y := spacing / 2; y < r.Height && len(pts) < count; y += spacing {
		for x := spacing / 2; x < r.Width && len(pts) < count; x += spacing {
			r.Set(x, y, value)
			pts = append(pts, image.Pt(x, y))
		}
	}
	return pts
}
