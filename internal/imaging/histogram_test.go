package imaging

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewHistogram(t *testing.T) {
	r := NewRaster(3, 2)
	copy(r.Pix, []uint16{0, 1, 1, 3, 5, 5})

	h := NewHistogram(r, 1)
	assert.Equal(t, Histogram{0, 2, 0, 1, 0, 2}, h)
	assert.Equal(t, 5, h.Sum())

	withZero := NewHistogram(r, 0)
	assert.Equal(t, 1, withZero[0])
}

func TestNewCensoredHistogram(t *testing.T) {
	r := NewRaster(3, 2)
	copy(r.Pix, []uint16{2, 2, 9, 4, 4, 1})
	censor := NewBitmap(3, 2)
	censor.Set(2, 0, true) // drops the 9

	h := NewCensoredHistogram(r, censor, 1)
	assert.Len(t, h, 5, "sized to the largest uncensored intensity")
	assert.Equal(t, Histogram{0, 1, 2, 0, 2}, h)

	all := NewBitmap(3, 2)
	for i := range all.Bits {
		all.Bits[i] = true
	}
	assert.Equal(t, Histogram{0}, NewCensoredHistogram(r, all, 1))
}

func TestHistogram_MergeGrowTrim(t *testing.T) {
	a := Histogram{0, 1, 2}
	b := Histogram{0, 0, 1, 4, 0, 0}

	merged := a.Merge(b)
	assert.Equal(t, Histogram{0, 1, 3, 4, 0, 0}, merged)
	assert.Equal(t, Histogram{0, 1, 3, 4}, merged.Trim())
	assert.Equal(t, Histogram{0}, Histogram{0, 0, 0}.Trim())
	assert.Len(t, a.Grow(2), 3)
}

func TestFuse(t *testing.T) {
	global := Histogram{0, 10, 10}
	local := Histogram{0, 1, 1, 1}
	assert.Equal(t, Histogram{0, 11, 11, 1}, Fuse(global, local))
	assert.Equal(t, Histogram{0, 10, 10}, global, "inputs are not modified")
}

func TestPercentileIndex(t *testing.T) {
	h := Histogram{0, 25, 25, 25, 25}

	tests := []struct {
		name string
		p    float64
		want int
	}{
		{"zero", 0, 0},
		{"negative", -1, 0},
		{"quarter", 0.25, 1},
		{"just above quarter", 0.26, 2},
		{"median", 0.5, 2},
		{"ninety", 0.9, 4},
		{"one", 1, 4},
		{"above one", 2, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, h.PercentileIndex(tt.p))
		})
	}

	assert.Equal(t, 1, PercentileIndex([]float64{0, 0.5, 0.5}, 0.5))
	assert.Equal(t, 0, PercentileIndex([]float64{}, 0.5))
}
