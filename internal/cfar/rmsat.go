package cfar

import (
	"context"
	"image"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/rmsat-cfar/internal/detection"
	"github.com/ironsheep/rmsat-cfar/internal/imaging"
	"github.com/ironsheep/rmsat-cfar/internal/mixture"
	"github.com/ironsheep/rmsat-cfar/internal/tiling"
)

// Options configures an RmSAT detector. Zero values select the defaults.
type Options struct {
	// TileSize is the tile cell edge. Zero means tiling.DefaultTileSize.
	TileSize int

	// MaxWorkers bounds the number of tile workers. Zero means GOMAXPROCS.
	MaxWorkers int

	// HistogramSize is the resampled histogram bin count. Zero means
	// mixture.DefaultHistogramSize.
	HistogramSize int

	// MaximumExpansion bounds window growth. Zero means
	// detection.DefaultMaximumExpansion.
	MaximumExpansion int

	// ComplexityWeight is the mixture order penalty of the fit cost.
	ComplexityWeight float64

	// Seed seeds worker i's optimizer with Seed+i.
	Seed uint64

	// DisableNormalization skips the Rayleigh-compliant background shift of
	// each tile.
	DisableNormalization bool

	// CropToBoundingBox restricts processing to the nonzero extent of the image.
	// Pixels outside it are reported as clutter.
	CropToBoundingBox bool

	// Logger receives run and tile diagnostics. Nil disables logging.
	Logger *zerolog.Logger
}

// RmSAT is the Rayleigh-mixture summed-area-table CFAR detector. It is safe for
// concurrent use; every Execute call builds its own workers.
type RmSAT struct {
	opts Options
	log  zerolog.Logger
}

var _ Detector = (*RmSAT)(nil)

// NewRmSAT creates a detector.
func NewRmSAT(opts Options) *RmSAT {
	if opts.TileSize <= 0 {
		opts.TileSize = tiling.DefaultTileSize
	}
	if opts.MaxWorkers <= 0 {
		opts.MaxWorkers = runtime.GOMAXPROCS(0)
	}
	if opts.HistogramSize <= 0 {
		opts.HistogramSize = mixture.DefaultHistogramSize
	}
	if opts.MaximumExpansion <= 0 {
		opts.MaximumExpansion = detection.DefaultMaximumExpansion
	}

	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}
	return &RmSAT{
		opts: opts,
		log:  log.With().Str("component", "orchestrator").Logger(),
	}
}

// Options returns the effective options.
func (d *RmSAT) Options() Options { return d.opts }

// ClutterArea returns the nominal clutter annulus area, (2W+1)² - (2G+1)² with
// W = guardRadius + clutterRadius. Missing parameters take their defaults.
func (d *RmSAT) ClutterArea(params Parameters) int {
	g := params.Int(KeyGuardRadius, DefaultGuardRadius)
	c := params.Int(KeyClutterRadius, DefaultClutterRadius)
	return ClutterArea(g, g+c)
}

// BandWidth returns the tile halo: the largest expanded window radius, and at
// least twice the base window radius, rounded up to a multiple of 8.
func (d *RmSAT) BandWidth(params Parameters) int {
	w := params.Int(KeyGuardRadius, DefaultGuardRadius) + params.Int(KeyClutterRadius, DefaultClutterRadius)
	return BandSize(max(2*w, (d.opts.MaximumExpansion-1)*w, 0))
}

// IsDeterministic is false; the mixture fit is stochastic.
func (d *RmSAT) IsDeterministic() bool { return false }

// RequiresGlobalHistogram is true; tile censoring is normalised by the
// whole-image histogram.
func (d *RmSAT) RequiresGlobalHistogram() bool { return true }

// Execute runs the detector with a background context.
func (d *RmSAT) Execute(img *imaging.Raster, pfa float64, params Parameters) (*image.Gray, error) {
	return d.ExecuteContext(context.Background(), img, pfa, params)
}

// ExecuteContext runs the detector. Cancellation is checked between tiles.
func (d *RmSAT) ExecuteContext(ctx context.Context, img *imaging.Raster, pfa float64, params Parameters) (*image.Gray, error) {
	mask, _, err := d.ExecuteWithReport(ctx, img, pfa, params)
	return mask, err
}

// ExecuteWithReport runs the detector and also returns per-tile diagnostics.
func (d *RmSAT) ExecuteWithReport(ctx context.Context, img *imaging.Raster, pfa float64,
	params Parameters) (*image.Gray, *Report, error) {

	start := time.Now()
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if img == nil || img.Empty() {
		return nil, nil, imaging.ErrEmptyImage
	}
	if err := validateProbability(pfa); err != nil {
		return nil, nil, err
	}
	s, err := parseParameters(params)
	if err != nil {
		return nil, nil, err
	}

	region := img.Bounds()
	if d.opts.CropToBoundingBox {
		region = imaging.BoundingBox(img)
	}
	src := img.SubRaster(region)

	band := d.BandWidth(params)
	mgr, err := tiling.NewManager(src.Width, src.Height, d.opts.TileSize, band)
	if err != nil {
		return nil, nil, err
	}
	global := GlobalHistogram(src)
	workers := min(d.opts.MaxWorkers, mgr.Count())

	d.log.Info().
		Int("width", img.Width).
		Int("height", img.Height).
		Stringer("region", region).
		Float64("pfa", pfa).
		Int("guard_radius", s.guard).
		Int("clutter_radius", s.clutter).
		Int("tiles", mgr.Count()).
		Int("band", band).
		Int("workers", workers).
		Msg("detection started")

	reports := make([]TileReport, mgr.Count())
	tiles := make(chan int)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(tiles)
		for i := range mgr.Count() {
			select {
			case tiles <- i:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})
	for w := range workers {
		g.Go(func() error {
			det := detection.NewTileDetector(detection.Options{
				GuardRadius:         s.guard,
				ClutterRadius:       s.clutter,
				MinimumMixtureCount: s.minCount,
				MaximumMixtureCount: s.maxCount,
				HistogramSize:       d.opts.HistogramSize,
				MaximumExpansion:    d.opts.MaximumExpansion,
				ComplexityWeight:    d.opts.ComplexityWeight,
				Seed:                d.opts.Seed + uint64(w),
				Logger:              d.opts.Logger,
			})

			var mask *image.Gray
			for i := range tiles {
				if err := gctx.Err(); err != nil {
					return err
				}
				tile := mgr.Tile(i)
				in := mgr.InputTile(src, tile)
				if !d.opts.DisableNormalization {
					in = imaging.RayleighCompliant(in)
				}
				if mask == nil || mask.Rect.Dx() != in.Width || mask.Rect.Dy() != in.Height {
					mask = imaging.NewMask(in.Width, in.Height)
				}

				res := det.Detect(in, mask, global, pfa, tile.Work)
				mgr.SetResultTile(tile, mask)
				reports[i] = newTileReport(tile, w, res)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	result := mgr.Result()
	if region != img.Bounds() {
		result = embed(result, img.Width, img.Height, region.Min)
	}

	report := &Report{
		Width:       img.Width,
		Height:      img.Height,
		Region:      tiling.BoundsOf(region),
		PFA:         pfa,
		ClutterArea: ClutterArea(s.guard, s.window()),
		BandSize:    band,
		TileSize:    d.opts.TileSize,
		Workers:     workers,
		Tiles:       reports,
	}
	report.aggregate()
	report.Elapsed = time.Since(start)

	d.log.Info().
		Int("targets", report.Stats.Targets).
		Float64("target_ratio", report.Stats.TargetRatio).
		Float64("expansion_ratio", report.Stats.ExpansionRatio).
		Int("empty_tiles", report.EmptyTiles).
		Int("fallbacks", report.Fallbacks).
		Dur("elapsed", report.Elapsed).
		Msg("detection finished")

	return result, report, nil
}

// embed places mask at offset in an all-zero mask of the given size.
func embed(mask *image.Gray, width, height int, offset image.Point) *image.Gray {
	out := imaging.NewMask(width, height)
	b := mask.Bounds()
	for y := 0; y < b.Dy(); y++ {
		src := mask.Pix[mask.PixOffset(b.Min.X, b.Min.Y+y):][:b.Dx()]
		copy(out.Pix[out.PixOffset(offset.X, offset.Y+y):], src)
	}
	return out
}
