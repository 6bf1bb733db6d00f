package cfar

import (
	"image"
	"sync"

	"github.com/anthonynsimon/bild/parallel"

	"github.com/ironsheep/rmsat-cfar/internal/imaging"
)

// GlobalHistogram counts the pixels of r with intensity >= 1. Row blocks are
// counted in parallel into private histograms that are merged under a mutex.
func GlobalHistogram(r *imaging.Raster) imaging.Histogram {
	var (
		mu     sync.Mutex
		global imaging.Histogram
	)
	parallel.Line(r.Height, func(start, end int) {
		part := imaging.NewHistogram(r.SubRaster(image.Rect(0, start, r.Width, end)), 1)

		mu.Lock()
		global = global.Merge(part)
		mu.Unlock()
	})
	if global == nil {
		global = imaging.Histogram{0}
	}
	return global
}
