// Package tiling splits an image into a grid of cells that can be processed
// independently and stitches the per-cell results back together.
//
// Each cell is read with a halo band of context pixels around it (the input
// tile) but only its interior (the working rectangle) is written back. Working
// rectangles of different cells are disjoint, so results may be written from
// several goroutines without locking.
package tiling

import (
	"errors"
	"fmt"
	"image"

	"github.com/ironsheep/rmsat-cfar/internal/imaging"
)

// DefaultTileSize is the cell edge length used when none is configured.
const DefaultTileSize = 1024

// ErrInvalidTileSize is returned for a non-positive tile size or a negative band.
var ErrInvalidTileSize = errors.New("invalid tile size")

// Bounds is a rectangle in pixel coordinates for JSON output.
//
//   - (X1, Y1) is the top-left corner (inclusive)
//   - (X2, Y2) is the bottom-right corner (exclusive)
type Bounds struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// BoundsOf converts an image.Rectangle.
func BoundsOf(r image.Rectangle) Bounds {
	return Bounds{X1: r.Min.X, Y1: r.Min.Y, X2: r.Max.X, Y2: r.Max.Y}
}

// Rect converts back to an image.Rectangle.
func (b Bounds) Rect() image.Rectangle {
	return image.Rect(b.X1, b.Y1, b.X2, b.Y2)
}

// Tile describes one grid cell.
type Tile struct {
	// Index is the position of the tile in row-major order.
	Index int

	// Cell is the area the tile owns, in image coordinates.
	Cell image.Rectangle

	// Input is Cell grown by the band and clipped to the image, in image
	// coordinates.
	Input image.Rectangle

	// Work is Cell expressed in the local frame of Input.
	Work image.Rectangle
}

// Manager owns the tile grid of one image and the full-size result mask.
type Manager struct {
	width, height int
	tileSize      int
	bandSize      int
	cols, rows    int

	result *image.Gray
}

// NewManager creates the grid for a width x height image. bandSize must be at
// least the largest window radius used on the tiles.
func NewManager(width, height, tileSize, bandSize int) (*Manager, error) {
	if tileSize <= 0 {
		return nil, fmt.Errorf("%w: tile size %d", ErrInvalidTileSize, tileSize)
	}
	if bandSize < 0 {
		return nil, fmt.Errorf("%w: band size %d", ErrInvalidTileSize, bandSize)
	}
	if width <= 0 || height <= 0 {
		return nil, imaging.ErrEmptyImage
	}

	return &Manager{
		width:    width,
		height:   height,
		tileSize: tileSize,
		bandSize: bandSize,
		cols:     max((width+tileSize-1)/tileSize, 1),
		rows:     max((height+tileSize-1)/tileSize, 1),
		result:   imaging.NewMask(width, height),
	}, nil
}

func (m *Manager) TileSize() int { return m.tileSize }
func (m *Manager) BandSize() int { return m.bandSize }

// Count returns the number of tiles.
func (m *Manager) Count() int { return m.cols * m.rows }

// Tile returns tile i in row-major order.
func (m *Manager) Tile(i int) Tile {
	cx, cy := i%m.cols, i/m.cols

	x1, y1 := cx*m.tileSize, cy*m.tileSize
	x2, y2 := min(x1+m.tileSize, m.width), min(y1+m.tileSize, m.height)
	cell := image.Rect(x1, y1, x2, y2)

	x1e, y1e := max(x1-m.bandSize, 0), max(y1-m.bandSize, 0)
	x2e, y2e := min(x2+m.bandSize, m.width), min(y2+m.bandSize, m.height)

	return Tile{
		Index: i,
		Cell:  cell,
		Input: image.Rect(x1e, y1e, x2e, y2e),
		Work:  cell.Sub(image.Pt(x1e, y1e)),
	}
}

// Tiles returns every tile in row-major order.
func (m *Manager) Tiles() []Tile {
	tiles := make([]Tile, m.Count())
	for i := range tiles {
		tiles[i] = m.Tile(i)
	}
	return tiles
}

// InputTile returns the haloed input region of t as a view into r.
func (m *Manager) InputTile(r *imaging.Raster, t Tile) *imaging.Raster {
	return r.SubRaster(t.Input)
}

// SetResultTile copies the working rectangle of mask, a result the size of t's
// input tile, into the full-size result. Calls for different tiles may run
// concurrently.
func (m *Manager) SetResultTile(t Tile, mask *image.Gray) {
	mb := mask.Bounds()
	for y := t.Work.Min.Y; y < t.Work.Max.Y; y++ {
		src := mask.Pix[mask.PixOffset(mb.Min.X+t.Work.Min.X, mb.Min.Y+y):]
		dst := m.result.Pix[m.result.PixOffset(t.Cell.Min.X, t.Cell.Min.Y+y-t.Work.Min.Y):]
		copy(dst[:t.Work.Dx()], src[:t.Work.Dx()])
	}
}

// Result returns the stitched full-size mask.
func (m *Manager) Result() *image.Gray { return m.result }
