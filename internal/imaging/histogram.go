package imaging

// Histogram holds pixel counts indexed by intensity. Bin 0 is the background bin and
// is left empty by the constructors in this package, which start counting at 1.
type Histogram []int

// NewHistogram counts the pixels of r with intensity >= start. The histogram has
// max(r)+1 bins.
func NewHistogram(r *Raster, start int) Histogram {
	h := make(Histogram, int(r.Max())+1)
	h.Add(r, start)
	return h
}

// NewCensoredHistogram counts the pixels of r with intensity >= start whose censor
// bit is clear. The histogram is sized to the largest uncensored intensity.
func NewCensoredHistogram(r *Raster, censor *Bitmap, start int) Histogram {
	var maximum uint16
	for y := 0; y < r.Height; y++ {
		for x, v := range r.Row(y) {
			if !censor.Get(x, y) && v > maximum {
				maximum = v
			}
		}
	}

	h := make(Histogram, int(maximum)+1)
	if maximum == 0 {
		return h
	}
	for y := 0; y < r.Height; y++ {
		for x, v := range r.Row(y) {
			if !censor.Get(x, y) && int(v) >= start {
				h[v]++
			}
		}
	}
	return h
}

// Add accumulates the pixels of r with intensity >= start. Intensities beyond the
// histogram length are ignored; size the histogram with Grow first when needed.
func (h Histogram) Add(r *Raster, start int) {
	for y := 0; y < r.Height; y++ {
		for _, v := range r.Row(y) {
			if int(v) >= start && int(v) < len(h) {
				h[v]++
			}
		}
	}
}

// Grow returns h extended with empty bins to at least n bins.
func (h Histogram) Grow(n int) Histogram {
	if len(h) >= n {
		return h
	}
	out := make(Histogram, n)
	copy(out, h)
	return out
}

// Merge adds o into h, growing h when o is longer, and returns the result.
func (h Histogram) Merge(o Histogram) Histogram {
	h = h.Grow(len(o))
	for i, c := range o {
		h[i] += c
	}
	return h
}

// Trim drops trailing empty bins, keeping at least one bin.
func (h Histogram) Trim() Histogram {
	n := len(h)
	for n > 1 && h[n-1] == 0 {
		n--
	}
	return h[:n]
}

// Sum returns the total pixel count.
func (h Histogram) Sum() int {
	s := 0
	for _, c := range h {
		s += c
	}
	return s
}

// PercentileIndex returns the first intensity at which the cumulative count reaches
// the fraction p of the total. p is a fraction in [0,1], not a percentage.
func (h Histogram) PercentileIndex(p float64) int {
	return PercentileIndex(h, p)
}

// Fuse adds two histograms bin by bin into a new histogram long enough for both.
// The tile censoring threshold is taken from the fusion of the tile histogram and
// the global image histogram.
func Fuse(global, local Histogram) Histogram {
	n := max(len(global), len(local))
	out := make(Histogram, n)
	copy(out, global)
	for i, c := range local {
		out[i] += c
	}
	return out
}

// PercentileIndex returns the first index at which the cumulative sum of values
// reaches p times the total. p <= 0 yields 0 and p >= 1 yields the last index.
func PercentileIndex[T int | float64](values []T, p float64) int {
	if len(values) == 0 || p <= 0 {
		return 0
	}
	if p >= 1 {
		return len(values) - 1
	}

	var total float64
	for _, v := range values {
		total += float64(v)
	}
	target := total * p

	var cumulative float64
	for i, v := range values {
		cumulative += float64(v)
		if cumulative >= target {
			return i
		}
	}
	return len(values) - 1
}
