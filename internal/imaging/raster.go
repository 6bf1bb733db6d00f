package imaging

import (
	"errors"
	"fmt"
	"image"
)

// ErrEmptyImage is returned when an operation receives an image with no pixels.
var ErrEmptyImage = errors.New("image has no pixels")

// Raster is a single-channel integer intensity image.
//
// Pixels are addressed through an offset and a row stride into a shared backing
// slice, so a Raster can be a zero-copy view into a larger Raster (see SubRaster).
// Coordinates are always local to the view: (0,0) is the top-left pixel of the view,
// X increases rightward and Y increases downward.
//
// A Raster is not safe for concurrent mutation. Concurrent reads are safe, which is
// how the tile workers share the input image.
type Raster struct {
	// Pix holds the intensities. Pixel (x, y) lives at Pix[Offset + y*Stride + x].
	Pix []uint16

	// Offset is the index of pixel (0, 0) within Pix.
	Offset int

	// Stride is the distance in elements between vertically adjacent pixels.
	Stride int

	// Width and Height are the dimensions of the view in pixels.
	Width  int
	Height int
}

// NewRaster allocates a zeroed width x height raster.
func NewRaster(width, height int) *Raster {
	if width < 0 || height < 0 {
		width, height = 0, 0
	}
	return &Raster{
		Pix:    make([]uint16, width*height),
		Stride: width,
		Width:  width,
		Height: height,
	}
}

// Bounds returns the raster extent in local coordinates.
func (r *Raster) Bounds() image.Rectangle {
	return image.Rect(0, 0, r.Width, r.Height)
}

// Empty reports whether the raster has no pixels.
func (r *Raster) Empty() bool {
	return r == nil || r.Width <= 0 || r.Height <= 0
}

// Index returns the position of pixel (x, y) in Pix.
func (r *Raster) Index(x, y int) int {
	return r.Offset + y*r.Stride + x
}

// At returns the intensity at (x, y).
func (r *Raster) At(x, y int) uint16 {
	return r.Pix[r.Index(x, y)]
}

// Set stores an intensity at (x, y).
func (r *Raster) Set(x, y int, v uint16) {
	r.Pix[r.Index(x, y)] = v
}

// Row returns the pixels of row y as a slice sharing the backing array.
func (r *Raster) Row(y int) []uint16 {
	i := r.Index(0, y)
	return r.Pix[i : i+r.Width : i+r.Width]
}

// SubRaster returns a view of the pixels inside rect. The rectangle is clipped to
// the raster bounds; the view shares storage with r.
func (r *Raster) SubRaster(rect image.Rectangle) *Raster {
	rect = rect.Intersect(r.Bounds())
	if rect.Empty() {
		return &Raster{}
	}
	return &Raster{
		Pix:    r.Pix,
		Offset: r.Index(rect.Min.X, rect.Min.Y),
		Stride: r.Stride,
		Width:  rect.Dx(),
		Height: rect.Dy(),
	}
}

// Clone returns a compact copy of the raster (Offset 0, Stride == Width).
func (r *Raster) Clone() *Raster {
	out := NewRaster(r.Width, r.Height)
	for y := 0; y < r.Height; y++ {
		copy(out.Row(y), r.Row(y))
	}
	return out
}

// Max returns the largest intensity in the raster.
func (r *Raster) Max() uint16 {
	var m uint16
	for y := 0; y < r.Height; y++ {
		for _, v := range r.Row(y) {
			if v > m {
				m = v
			}
		}
	}
	return m
}

// Min returns the smallest intensity in the raster.
func (r *Raster) Min() uint16 {
	if r.Empty() {
		return 0
	}
	m := uint16(0xFFFF)
	for y := 0; y < r.Height; y++ {
		for _, v := range r.Row(y) {
			if v < m {
				m = v
			}
		}
	}
	return m
}

// HasData reports whether any pixel is at least minimum.
func (r *Raster) HasData(minimum uint16) bool {
	for y := 0; y < r.Height; y++ {
		for _, v := range r.Row(y) {
			if v >= minimum {
				return true
			}
		}
	}
	return false
}

// FromImage converts a decoded image into a Raster.
//
// 16-bit and 8-bit grayscale images keep their native intensities. Any other color
// model is reduced to luminance first, giving an 8-bit intensity range.
func FromImage(img image.Image) (*Raster, error) {
	b := img.Bounds()
	if b.Empty() {
		return nil, ErrEmptyImage
	}

	out := NewRaster(b.Dx(), b.Dy())
	switch src := img.(type) {
	case *image.Gray16:
		for y := 0; y < out.Height; y++ {
			row := out.Row(y)
			for x := range row {
				row[x] = src.Gray16At(b.Min.X+x, b.Min.Y+y).Y
			}
		}
	case *image.Gray:
		for y := 0; y < out.Height; y++ {
			row := out.Row(y)
			for x := range row {
				row[x] = uint16(src.GrayAt(b.Min.X+x, b.Min.Y+y).Y)
			}
		}
	default:
		gray := grayscale(img)
		for y := 0; y < out.Height; y++ {
			row := out.Row(y)
			for x := range row {
				row[x] = uint16(gray.Pix[y*gray.Stride+x*4])
			}
		}
	}
	return out, nil
}

// ToGray16 copies the raster into a 16-bit grayscale image.
func (r *Raster) ToGray16() *image.Gray16 {
	img := image.NewGray16(r.Bounds())
	for y := 0; y < r.Height; y++ {
		for x, v := range r.Row(y) {
			i := img.PixOffset(x, y)
			img.Pix[i] = uint8(v >> 8)
			img.Pix[i+1] = uint8(v)
		}
	}
	return img
}

// Bitmap is a boolean mask with the same shape as the raster it describes.
type Bitmap struct {
	Width  int
	Height int
	Bits   []bool
}

// NewBitmap allocates a cleared width x height bitmap.
func NewBitmap(width, height int) *Bitmap {
	return &Bitmap{Width: width, Height: height, Bits: make([]bool, width*height)}
}

// Get reports whether (x, y) is set.
func (m *Bitmap) Get(x, y int) bool {
	return m.Bits[y*m.Width+x]
}

// Set marks (x, y).
func (m *Bitmap) Set(x, y int, v bool) {
	m.Bits[y*m.Width+x] = v
}

// Count returns the number of set pixels.
func (m *Bitmap) Count() int {
	n := 0
	for _, b := range m.Bits {
		if b {
			n++
		}
	}
	return n
}

// NewMask allocates an all-zero 8-bit detection mask for the given bounds.
func NewMask(width, height int) *image.Gray {
	return image.NewGray(image.Rect(0, 0, width, height))
}

// CountTargets returns the number of nonzero pixels in a detection mask.
func CountTargets(mask *image.Gray) int {
	n := 0
	b := mask.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		i := mask.PixOffset(b.Min.X, y)
		for _, v := range mask.Pix[i : i+b.Dx()] {
			if v != 0 {
				n++
			}
		}
	}
	return n
}

func checkSameSize(r *Raster, w, h int) error {
	if r.Width != w || r.Height != h {
		return fmt.Errorf("size mismatch: raster is %dx%d, mask is %dx%d", r.Width, r.Height, w, h)
	}
	return nil
}
