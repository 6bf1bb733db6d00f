package detection

import (
	"image"

	"github.com/ironsheep/rmsat-cfar/internal/imaging"
	"github.com/ironsheep/rmsat-cfar/internal/mixture"
)

// IntegralTable holds one pair of summed-area tables per mixture interval: the
// squared intensity and the number of valid pixels. A pixel is valid for an
// interval when it is nonzero, not censored, and its intensity lies in the
// interval's range.
//
// The tables are padded by one row and one column, so entry (x+1, y+1) holds the
// sum over pixels [0..x]x[0..y] and any rectangle is four lookups.
type IntegralTable struct {
	width, height int
	intervals     int
	stride        int
	plane         int

	energy []float64
	count  []int32
}

// NewIntegralTable builds the tables for the tile and censor map of d and the
// fitted model m.
func NewIntegralTable(d *mixture.Data, m *mixture.Model) *IntegralTable {
	tile := d.Tile
	ranges := IntervalRanges(d.Histogram, m.Intervals[:m.Count+2])

	t := &IntegralTable{
		width:     tile.Width,
		height:    tile.Height,
		intervals: len(ranges),
		stride:    tile.Width + 1,
	}
	t.plane = t.stride * (tile.Height + 1)
	t.energy = make([]float64, t.plane*t.intervals)
	t.count = make([]int32, t.plane*t.intervals)

	for i, rng := range ranges {
		energy := t.energy[i*t.plane : (i+1)*t.plane]
		count := t.count[i*t.plane : (i+1)*t.plane]

		for y := 0; y < tile.Height; y++ {
			var rowEnergy float64
			var rowCount int32
			above := y * t.stride
			cur := (y + 1) * t.stride
			for x, v := range tile.Row(y) {
				if v > 0 && int(v) >= rng[0] && int(v) <= rng[1] && !d.Censor.Get(x, y) {
					rowEnergy += float64(v) * float64(v)
					rowCount++
				}
				energy[cur+x+1] = energy[above+x+1] + rowEnergy
				count[cur+x+1] = count[above+x+1] + rowCount
			}
		}
	}
	return t
}

// IntervalRanges maps percentile breakpoints onto intensity ranges of the raw
// censored histogram h. Component i covers [idx[i], idx[i+2]] where idx[0] is 1
// and idx[j] is the intensity at percentile intervals[j].
func IntervalRanges(h imaging.Histogram, intervals []float64) [][2]int {
	n := len(intervals) - 2
	if n < 1 {
		return nil
	}
	idx := make([]int, len(intervals))
	idx[0] = 1
	for j := 1; j < len(intervals); j++ {
		idx[j] = h.PercentileIndex(intervals[j] * 0.01)
	}

	ranges := make([][2]int, n)
	for i := range ranges {
		ranges[i] = [2]int{idx[i], idx[i+2]}
	}
	return ranges
}

// Intervals returns the number of mixture intervals.
func (t *IntegralTable) Intervals() int { return t.intervals }

// Bounds returns the tile rectangle the table covers.
func (t *IntegralTable) Bounds() image.Rectangle { return image.Rect(0, 0, t.width, t.height) }

// Sum returns the squared-intensity energy and valid pixel count of interval i
// inside r. r must lie within Bounds; Max is exclusive.
func (t *IntegralTable) Sum(i int, r image.Rectangle) (energy float64, count int) {
	base := i * t.plane
	tl := base + r.Min.Y*t.stride + r.Min.X
	tr := base + r.Min.Y*t.stride + r.Max.X
	bl := base + r.Max.Y*t.stride + r.Min.X
	br := base + r.Max.Y*t.stride + r.Max.X

	energy = t.energy[br] - t.energy[tr] - t.energy[bl] + t.energy[tl]
	count = int(t.count[br] - t.count[tr] - t.count[bl] + t.count[tl])
	return energy, count
}
