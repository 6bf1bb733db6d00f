package imaging

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rampRaster returns a raster where pixel (x, y) holds y*width + x + 1.
func rampRaster(width, height int) *Raster {
	r := NewRaster(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r.Set(x, y, uint16(y*width+x+1))
		}
	}
	return r
}

func TestNewRaster(t *testing.T) {
	r := NewRaster(4, 3)
	assert.Equal(t, 4, r.Width)
	assert.Equal(t, 3, r.Height)
	assert.Equal(t, 4, r.Stride)
	assert.Len(t, r.Pix, 12)
	assert.Equal(t, image.Rect(0, 0, 4, 3), r.Bounds())
	assert.False(t, r.Empty())

	assert.True(t, NewRaster(0, 5).Empty())
	assert.True(t, NewRaster(-1, 5).Empty())
}

func TestRaster_SubRasterSharesStorage(t *testing.T) {
	r := rampRaster(6, 5)
	sub := r.SubRaster(image.Rect(2, 1, 5, 4))

	require.Equal(t, 3, sub.Width)
	require.Equal(t, 3, sub.Height)
	assert.Equal(t, r.At(2, 1), sub.At(0, 0))
	assert.Equal(t, r.At(4, 3), sub.At(2, 2))

	sub.Set(1, 1, 999)
	assert.Equal(t, uint16(999), r.At(3, 2), "view writes must reach the parent")

	nested := sub.SubRaster(image.Rect(1, 1, 3, 3))
	assert.Equal(t, r.At(3, 2), nested.At(0, 0))
}

func TestRaster_SubRasterClips(t *testing.T) {
	r := rampRaster(4, 4)

	sub := r.SubRaster(image.Rect(-2, -2, 2, 2))
	assert.Equal(t, 2, sub.Width)
	assert.Equal(t, 2, sub.Height)
	assert.Equal(t, r.At(0, 0), sub.At(0, 0))

	assert.True(t, r.SubRaster(image.Rect(10, 10, 12, 12)).Empty())
}

func TestRaster_Clone(t *testing.T) {
	r := rampRaster(5, 5)
	sub := r.SubRaster(image.Rect(1, 1, 4, 4))
	c := sub.Clone()

	assert.Equal(t, 0, c.Offset)
	assert.Equal(t, 3, c.Stride)
	for y := 0; y < 3; y++ {
		assert.Equal(t, sub.Row(y), c.Row(y))
	}

	c.Set(0, 0, 0)
	assert.NotEqual(t, uint16(0), r.At(1, 1), "clone must not alias the source")
}

func TestRaster_MinMaxHasData(t *testing.T) {
	r := NewRaster(3, 3)
	assert.False(t, r.HasData(1))
	assert.Equal(t, uint16(0), r.Max())

	r.Set(1, 2, 40)
	r.Set(2, 0, 7)
	assert.True(t, r.HasData(1))
	assert.True(t, r.HasData(40))
	assert.False(t, r.HasData(41))
	assert.Equal(t, uint16(40), r.Max())
	assert.Equal(t, uint16(0), r.Min())
}

func TestFromImage(t *testing.T) {
	t.Run("gray16 keeps full range", func(t *testing.T) {
		img := image.NewGray16(image.Rect(0, 0, 3, 2))
		img.SetGray16(2, 1, color.Gray16{Y: 40000})
		r, err := FromImage(img)
		require.NoError(t, err)
		assert.Equal(t, uint16(40000), r.At(2, 1))
	})

	t.Run("gray8", func(t *testing.T) {
		img := image.NewGray(image.Rect(0, 0, 3, 2))
		img.SetGray(1, 0, color.Gray{Y: 200})
		r, err := FromImage(img)
		require.NoError(t, err)
		assert.Equal(t, uint16(200), r.At(1, 0))
	})

	t.Run("colour reduced to luminance", func(t *testing.T) {
		img := image.NewRGBA(image.Rect(0, 0, 2, 2))
		for y := 0; y < 2; y++ {
			for x := 0; x < 2; x++ {
				img.Set(x, y, color.RGBA{255, 255, 255, 255})
			}
		}
		r, err := FromImage(img)
		require.NoError(t, err)
		assert.Equal(t, uint16(255), r.At(1, 1))
	})

	t.Run("offset bounds", func(t *testing.T) {
		img := image.NewGray16(image.Rect(10, 10, 13, 12))
		img.SetGray16(10, 10, color.Gray16{Y: 5})
		r, err := FromImage(img)
		require.NoError(t, err)
		assert.Equal(t, uint16(5), r.At(0, 0))
	})

	t.Run("empty", func(t *testing.T) {
		_, err := FromImage(image.NewGray(image.Rect(0, 0, 0, 0)))
		assert.ErrorIs(t, err, ErrEmptyImage)
	})
}

func TestRaster_ToGray16RoundTrip(t *testing.T) {
	r := rampRaster(7, 3)
	r.Set(6, 2, 65535)
	back, err := FromImage(r.ToGray16())
	require.NoError(t, err)
	for y := 0; y < r.Height; y++ {
		assert.Equal(t, r.Row(y), back.Row(y))
	}
}

func TestBitmap(t *testing.T) {
	m := NewBitmap(4, 3)
	assert.Equal(t, 0, m.Count())
	m.Set(3, 2, true)
	m.Set(0, 0, true)
	assert.True(t, m.Get(3, 2))
	assert.False(t, m.Get(2, 2))
	assert.Equal(t, 2, m.Count())
}

func TestCountTargets(t *testing.T) {
	mask := NewMask(5, 5)
	mask.SetGray(1, 1, color.Gray{Y: 255})
	mask.SetGray(4, 4, color.Gray{Y: 255})
	assert.Equal(t, 2, CountTargets(mask))

	sub := mask.SubImage(image.Rect(0, 0, 3, 3)).(*image.Gray)
	assert.Equal(t, 1, CountTargets(sub))
}
