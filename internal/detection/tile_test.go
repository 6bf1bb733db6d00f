package detection

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/rmsat-cfar/internal/imaging"
)

func TestTileDetector_FindsBrightTargets(t *testing.T) {
	tile := imaging.RayleighClutter(64, 64, 30, 21)
	targets := imaging.InjectTargets(tile, 376, 14, 9)

	det := NewTileDetector(Options{GuardRadius: 5, ClutterRadius: 5, MinimumMixtureCount: 1, MaximumMixtureCount: 1, Seed: 1})
	mask := imaging.NewMask(64, 64)
	res := det.Detect(tile, mask, imaging.NewHistogram(tile, 1), 1e-4, image.Rectangle{})

	require.False(t, res.Empty)
	assert.Equal(t, 1, res.Model.Count)
	assert.Greater(t, res.CensoredPixels, 0)
	for _, p := range targets {
		assert.Equal(t, uint8(255), mask.GrayAt(p.X, p.Y).Y, "target at %v", p)
	}
	assert.Less(t, res.Stats.Targets, len(targets)+20)
}

func TestTileDetector_EmptyTile(t *testing.T) {
	det := NewTileDetector(Options{GuardRadius: 2, ClutterRadius: 2, MaximumMixtureCount: 3})
	mask := imaging.NewMask(16, 16)
	for i := range mask.Pix {
		mask.Pix[i] = 255
	}

	res := det.Detect(imaging.NewRaster(16, 16), mask, nil, 1e-3, image.Rect(0, 0, 8, 8))

	assert.True(t, res.Empty)
	assert.Equal(t, 64, res.Stats.Pixels)
	assert.Equal(t, uint8(0), mask.GrayAt(3, 3).Y)
	assert.Equal(t, uint8(255), mask.GrayAt(12, 12).Y, "outside work rectangle is untouched")
}

func TestTileDetector_AllCensored(t *testing.T) {
	tile := imaging.NewRaster(8, 8)
	for i := range tile.Pix {
		tile.Pix[i] = 1000
	}
	det := NewTileDetector(Options{GuardRadius: 1, ClutterRadius: 1})
	res := det.Detect(tile, imaging.NewMask(8, 8), nil, 1e-3, image.Rectangle{})

	assert.True(t, res.Empty)
	assert.Equal(t, 64, res.CensoredPixels)
}

func TestNewTileDetector_Defaults(t *testing.T) {
	det := NewTileDetector(Options{GuardRadius: 3, ClutterRadius: 4, MinimumMixtureCount: 6, MaximumMixtureCount: 2})

	assert.Equal(t, 7, det.Window())
	assert.Equal(t, 2, det.opts.MinimumMixtureCount)
	assert.Equal(t, DefaultMaximumExpansion, det.opts.MaximumExpansion)
	assert.Equal(t, 250, det.opts.HistogramSize)
}
