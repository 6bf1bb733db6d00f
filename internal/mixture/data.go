package mixture

import (
	"math"

	"github.com/ironsheep/rmsat-cfar/internal/imaging"
)

// DefaultHistogramSize is the number of bins the censored histogram is
// resampled to before fitting.
const DefaultHistogramSize = 250

const (
	medianFilterSize = 3

	// censoringPercentile is the upper fraction of the fused histogram treated as
	// high contrast.
	censoringPercentile = 0.20

	// reflectivityCeiling times the histogram size is the absolute intensity above
	// which a pixel is always censored.
	reflectivityCeiling = 2.5

	// segmentEpsilon is the smallest probability mass a segment may hold.
	segmentEpsilon = 1e-16
)

// Data is the histogram model of one tile: its censor map, the censored intensity
// histogram resampled to a fixed bin count, and the prefix sums used for O(1)
// Rayleigh segment estimates.
type Data struct {
	// Tile is the intensity raster the model was built from.
	Tile *imaging.Raster

	// Censor flags pixels excluded from the clutter statistics.
	Censor *imaging.Bitmap

	// Histogram is the censored histogram in raw intensity bins, starting at 1.
	Histogram imaging.Histogram

	// Step is the raw intensity width of one resampled bin.
	Step float64

	// Mass is the probability mass of each resampled bin and Empirical its density
	// per intensity unit.
	Mass      []float64
	Empirical []float64

	// Sd and Sn are the prefix sums of mass and of mass times squared intensity.
	// Bin 0 is excluded, so Sd[0] == Sn[0] == 0.
	Sd []float64
	Sn []float64

	total float64
}

// NewData builds the histogram model of tile. global is the histogram of the
// whole image; histogramSize bounds the resampled bin count.
func NewData(tile *imaging.Raster, global imaging.Histogram, histogramSize int) *Data {
	if histogramSize <= 0 {
		histogramSize = DefaultHistogramSize
	}
	censor := CensorMap(tile, global, histogramSize)
	d := &Data{
		Tile:      tile,
		Censor:    censor,
		Histogram: imaging.NewCensoredHistogram(tile, censor, 1),
	}
	d.resample(histogramSize)
	return d
}

// CensorMap flags pixels brighter than the reflectivity ceiling or whose contrast
// over the 3x3 median exceeds the 80th percentile of the fused tile and global
// histograms, then dilates the flags by one ring.
func CensorMap(tile *imaging.Raster, global imaging.Histogram, histogramSize int) *imaging.Bitmap {
	censor := imaging.NewBitmap(tile.Width, tile.Height)
	if tile.Empty() {
		return censor
	}

	filtered := imaging.MedianFilter(tile, medianFilterSize)
	fused := imaging.Fuse(global, imaging.NewHistogram(tile, 0))
	contrastThreshold := fused.PercentileIndex(1 - censoringPercentile)
	ceiling := reflectivityCeiling * float64(histogramSize)

	for y := 0; y < tile.Height; y++ {
		src := tile.Row(y)
		med := filtered.Row(y)
		for x, v := range src {
			if float64(v) > ceiling || int(v)-int(med[x]) > contrastThreshold {
				censor.Set(x, y, true)
			}
		}
	}
	return imaging.Dilate(censor)
}

func (d *Data) resample(histogramSize int) {
	n := len(d.Histogram)
	size := min(histogramSize, n)
	d.Step = float64(n) / float64(size)
	d.Mass = make([]float64, size)
	d.Empirical = make([]float64, size)
	d.Sd = make([]float64, size)
	d.Sn = make([]float64, size)

	d.total = float64(d.Histogram.Sum())
	if d.total == 0 {
		return
	}

	for i, c := range d.Histogram {
		k := min(int(float64(i)/d.Step), size-1)
		d.Mass[k] += float64(c)
	}
	for k := range d.Mass {
		d.Mass[k] /= d.total
		d.Empirical[k] = d.Mass[k] / d.Step
		if k > 0 {
			x := d.X(k)
			d.Sd[k] = d.Sd[k-1] + d.Mass[k]
			d.Sn[k] = d.Sn[k-1] + d.Mass[k]*x*x
		}
	}
}

// Size returns the number of resampled bins.
func (d *Data) Size() int { return len(d.Mass) }

// Valid reports whether any uncensored foreground pixel contributed to the
// histogram.
func (d *Data) Valid() bool { return d.total > 0 && d.Size() > 1 }

// PixelCount returns the number of uncensored foreground pixels.
func (d *Data) PixelCount() int { return int(d.total) }

// X returns the intensity of resampled bin k.
func (d *Data) X(k int) float64 { return float64(k) * d.Step }

// PercentileIndex returns the resampled bin at which the cumulative mass reaches
// percent (0..100).
func (d *Data) PercentileIndex(percent float64) int {
	return imaging.PercentileIndex(d.Mass, percent*0.01)
}

// EstimateSigmaSqr returns the maximum likelihood Rayleigh sigma² of bins (a, b]
// and the probability mass of that segment, in constant time.
func (d *Data) EstimateSigmaSqr(a, b int) (sigmaSqr, mass float64) {
	mass = d.Sd[b] - d.Sd[a]
	return 0.5 * (d.Sn[b] - d.Sn[a]) / mass, mass
}

// EstimateSigmaSqrSlow computes the same estimate as EstimateSigmaSqr by summing
// the bins directly.
func (d *Data) EstimateSigmaSqrSlow(a, b int) (sigmaSqr, mass float64) {
	var energy float64
	for k := max(a+1, 1); k <= b; k++ {
		x := d.X(k)
		mass += d.Mass[k]
		energy += x * x * d.Mass[k]
	}
	return 0.5 * energy / mass, mass
}

// RayleighPDF is the Rayleigh density at x for the given sigma².
func RayleighPDF(x, sigmaSqr float64) float64 {
	t := x / sigmaSqr
	return t * math.Exp(-0.5*x*t)
}

// RayleighSurvival is the probability that a Rayleigh variate with the given
// sigma² exceeds x.
func RayleighSurvival(x, sigmaSqr float64) float64 {
	return math.Exp(-0.5 * x * x / sigmaSqr)
}
