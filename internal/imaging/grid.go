package imaging

import (
	"image"
	"image/color"
)

// drawGrid draws one-pixel lines every spacing pixels, marking tile boundaries
// in an overlay. Lines are blended toward c by its alpha.
func drawGrid(img *image.NRGBA, spacing int, c color.NRGBA) {
	if spacing <= 0 {
		return
	}
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		onRow := (y-b.Min.Y)%spacing == 0 && y != b.Min.Y
		for x := b.Min.X; x < b.Max.X; x++ {
			if onRow || ((x-b.Min.X)%spacing == 0 && x != b.Min.X) {
				img.SetNRGBA(x, y, blend(img.NRGBAAt(x, y), c))
			}
		}
	}
}

func blend(dst, src color.NRGBA) color.NRGBA {
	a := uint32(src.A)
	mix := func(d, s uint8) uint8 {
		return uint8((uint32(d)*(255-a) + uint32(s)*a) / 255)
	}
	return color.NRGBA{R: mix(dst.R, src.R), G: mix(dst.G, src.G), B: mix(dst.B, src.B), A: 255}
}
