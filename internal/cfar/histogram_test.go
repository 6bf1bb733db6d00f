package cfar

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ironsheep/rmsat-cfar/internal/imaging"
)

func TestGlobalHistogram_MatchesSerial(t *testing.T) {
	r := imaging.RayleighClutter(97, 203, 40, 5)
	r.Set(3, 3, 0)
	r.Set(50, 100, 0)

	got := GlobalHistogram(r)
	want := imaging.NewHistogram(r, 1)

	assert.Equal(t, want, got)
	assert.Equal(t, 0, got[0], "background is not counted")
	assert.Equal(t, 97*203-2, got.Sum())
}

func TestGlobalHistogram_SubRaster(t *testing.T) {
	r := imaging.RayleighClutter(64, 64, 20, 9)
	sub := r.SubRaster(r.Bounds().Inset(10))

	assert.Equal(t, imaging.NewHistogram(sub, 1), GlobalHistogram(sub))
}

func TestGlobalHistogram_ZeroImage(t *testing.T) {
	h := GlobalHistogram(imaging.NewRaster(8, 8))
	assert.Equal(t, 0, h.Sum())
}
