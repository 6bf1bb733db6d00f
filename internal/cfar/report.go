package cfar

import (
	"time"

	"github.com/ironsheep/rmsat-cfar/internal/detection"
	"github.com/ironsheep/rmsat-cfar/internal/tiling"
)

// TileReport describes the detection of one tile.
type TileReport struct {
	Index  int           `json:"index"`
	Cell   tiling.Bounds `json:"cell"`
	Worker int           `json:"worker"`

	Empty          bool `json:"empty"`
	CensoredPixels int  `json:"censored_pixels"`

	Mixtures   int       `json:"mixtures"`
	Weights    []float64 `json:"weights,omitempty"`
	Sigmas     []float64 `json:"sigmas,omitempty"`
	Iterations int       `json:"iterations"`
	Fallback   bool      `json:"fallback"`

	Stats detection.Stats `json:"stats"`
}

// Report summarises a detection run.
type Report struct {
	Width  int `json:"width"`
	Height int `json:"height"`

	// Region is the part of the image that was processed; the whole image unless
	// cropping to the bounding box was enabled.
	Region tiling.Bounds `json:"region"`

	PFA         float64 `json:"pfa"`
	ClutterArea int     `json:"clutter_area"`
	BandSize    int     `json:"band_size"`
	TileSize    int     `json:"tile_size"`
	Workers     int     `json:"workers"`

	// Stats aggregates every tile's working rectangle.
	Stats      detection.Stats `json:"stats"`
	EmptyTiles int             `json:"empty_tiles"`
	Fallbacks  int             `json:"fallbacks"`

	Tiles []TileReport `json:"tiles,omitempty"`

	Elapsed time.Duration `json:"elapsed_ns"`
}

func newTileReport(t tiling.Tile, worker int, res detection.TileResult) TileReport {
	return TileReport{
		Index:          t.Index,
		Cell:           tiling.BoundsOf(t.Cell),
		Worker:         worker,
		Empty:          res.Empty,
		CensoredPixels: res.CensoredPixels,
		Mixtures:       res.Model.Count,
		Weights:        res.Model.Weights,
		Sigmas:         res.Model.Sigmas,
		Iterations:     res.Model.Iterations,
		Fallback:       res.Model.Fallback,
		Stats:          res.Stats,
	}
}

func (r *Report) aggregate() {
	r.Stats = detection.Stats{}
	r.EmptyTiles, r.Fallbacks = 0, 0
	for _, t := range r.Tiles {
		r.Stats.Add(t.Stats)
		if t.Empty {
			r.EmptyTiles++
		}
		if t.Fallback {
			r.Fallbacks++
		}
	}
}
