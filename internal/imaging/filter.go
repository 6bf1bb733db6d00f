package imaging

import (
	"image"
	"slices"
)

// MedianFilter returns a copy of r where every pixel is replaced by the median of
// its size x size neighbourhood. Pixels outside the raster are taken from the
// nearest edge pixel (replicated border). size must be odd; even sizes are rounded
// up.
func MedianFilter(r *Raster, size int) *Raster {
	if size%2 == 0 {
		size++
	}
	radius := size / 2
	out := NewRaster(r.Width, r.Height)
	if r.Empty() {
		return out
	}

	window := make([]uint16, 0, size*size)
	for y := 0; y < r.Height; y++ {
		dst := out.Row(y)
		for x := range dst {
			window = window[:0]
			for dy := -radius; dy <= radius; dy++ {
				yy := clamp(y+dy, 0, r.Height-1)
				row := r.Row(yy)
				for dx := -radius; dx <= radius; dx++ {
					window = append(window, row[clamp(x+dx, 0, r.Width-1)])
				}
			}
			slices.Sort(window)
			dst[x] = window[len(window)/2]
		}
	}
	return out
}

// Dilate grows every set pixel of m into its 8-connected ring and returns the new
// bitmap.
func Dilate(m *Bitmap) *Bitmap {
	out := NewBitmap(m.Width, m.Height)
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if !m.Get(x, y) {
				continue
			}
			for yy := max(y-1, 0); yy <= min(y+1, m.Height-1); yy++ {
				for xx := max(x-1, 0); xx <= min(x+1, m.Width-1); xx++ {
					out.Set(xx, yy, true)
				}
			}
		}
	}
	return out
}

// BoundingBox returns the smallest rectangle holding every nonzero pixel, grown by
// a one pixel margin and clipped to the raster. A raster without nonzero pixels
// yields its full bounds.
func BoundingBox(r *Raster) image.Rectangle {
	x1, y1 := r.Width, r.Height
	x2, y2 := -1, -1

	for y := 0; y < r.Height; y++ {
		row := r.Row(y)
		first := slices.IndexFunc(row, func(v uint16) bool { return v > 0 })
		if first < 0 {
			continue
		}
		last := len(row) - 1
		for last > first && row[last] == 0 {
			last--
		}
		x1 = min(x1, first)
		x2 = max(x2, last)
		y1 = min(y1, y)
		y2 = max(y2, y)
	}

	if x2 < 0 {
		return r.Bounds()
	}

	return image.Rect(
		max(x1-1, 0),
		max(y1-1, 0),
		min(x2+2, r.Width),
		min(y2+2, r.Height),
	)
}

// backgroundPercentile is the fraction of the tile treated as the background level
// when shifting a tile toward a zero-origin Rayleigh distribution.
const backgroundPercentile = 0.005

// RayleighCompliant returns a copy of r shifted so the low-intensity background
// sits at 1. With b the 0.5th intensity percentile, a pixel becomes v-b+1 when
// v-b > 1 and 0 (background) otherwise.
func RayleighCompliant(r *Raster) *Raster {
	out := NewRaster(r.Width, r.Height)
	if r.Empty() {
		return out
	}

	h := NewHistogram(r, 0)
	background := h.PercentileIndex(backgroundPercentile)

	for y := 0; y < r.Height; y++ {
		src := r.Row(y)
		dst := out.Row(y)
		for x, v := range src {
			shifted := int(v) - background
			if shifted > 1 {
				dst[x] = uint16(min(shifted+1, 0xFFFF))
			}
		}
	}
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
