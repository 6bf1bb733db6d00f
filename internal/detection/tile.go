package detection

import (
	"image"

	"github.com/rs/zerolog"

	"github.com/ironsheep/rmsat-cfar/internal/imaging"
	"github.com/ironsheep/rmsat-cfar/internal/mixture"
)

// Options configures a TileDetector.
type Options struct {
	GuardRadius   int
	ClutterRadius int

	MinimumMixtureCount int
	MaximumMixtureCount int

	// HistogramSize is the resampled histogram bin count. Zero means
	// mixture.DefaultHistogramSize.
	HistogramSize int

	// MaximumExpansion bounds window growth. Zero means DefaultMaximumExpansion.
	MaximumExpansion int

	// ComplexityWeight is the mixture order penalty of the fit cost.
	ComplexityWeight float64

	// Seed initialises the detector's private optimizer.
	Seed uint64

	// Logger receives per-tile diagnostics. Nil disables logging.
	Logger *zerolog.Logger
}

// TileResult describes the detection pass over one tile.
type TileResult struct {
	// Empty reports that the tile held no usable clutter and was left all zero.
	Empty bool `json:"empty"`

	// Model is the fitted mixture. It is the zero Model for empty tiles.
	Model mixture.Model `json:"model"`

	// CensoredPixels is the size of the dilated censor map.
	CensoredPixels int `json:"censored_pixels"`

	Stats Stats `json:"stats"`
}

// TileDetector runs the histogram model, mixture fit, integral tables and fast
// detector on a single tile. It owns a mixture fitter and is not safe for
// concurrent use; create one per worker.
type TileDetector struct {
	opts   Options
	fitter *mixture.Fitter
	fast   FastDetector
	log    zerolog.Logger
}

// NewTileDetector creates a tile detector.
func NewTileDetector(opts Options) *TileDetector {
	if opts.HistogramSize <= 0 {
		opts.HistogramSize = mixture.DefaultHistogramSize
	}
	if opts.MaximumExpansion <= 0 {
		opts.MaximumExpansion = DefaultMaximumExpansion
	}
	opts.MaximumMixtureCount = max(opts.MaximumMixtureCount, 1)
	opts.MinimumMixtureCount = max(min(opts.MinimumMixtureCount, opts.MaximumMixtureCount), 1)

	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}
	return &TileDetector{
		opts: opts,
		fitter: mixture.NewFitter(mixture.FitterOptions{
			Seed:             opts.Seed,
			ComplexityWeight: opts.ComplexityWeight,
			Logger:           opts.Logger,
		}),
		fast: FastDetector{MaximumExpansion: opts.MaximumExpansion},
		log:  log.With().Str("component", "tile").Logger(),
	}
}

// Window returns the base window radius, the guard radius plus the clutter radius.
func (t *TileDetector) Window() int {
	return t.opts.GuardRadius + t.opts.ClutterRadius
}

// Detect runs the pipeline on tile and writes the decisions for work into mask,
// which must have the tile's dimensions. An empty work rectangle means the whole
// tile. global is the whole-image histogram used to normalise censoring.
func (t *TileDetector) Detect(tile *imaging.Raster, mask *image.Gray, global imaging.Histogram,
	pfa float64, work image.Rectangle) TileResult {

	if work.Empty() {
		work = tile.Bounds()
	}
	work = work.Intersect(tile.Bounds())

	if !tile.HasData(minimumTargetValue) {
		t.log.Warn().Stringer("work", work).Msg("tile does not contain any data pixel")
		clearRect(mask, work)
		return TileResult{Empty: true, Stats: Stats{Pixels: work.Dx() * work.Dy()}}
	}

	data := mixture.NewData(tile, global, t.opts.HistogramSize)
	censored := data.Censor.Count()
	if !data.Valid() {
		t.log.Warn().Stringer("work", work).Int("censored", censored).Msg("tile has no uncensored clutter")
		clearRect(mask, work)
		return TileResult{Empty: true, CensoredPixels: censored, Stats: Stats{Pixels: work.Dx() * work.Dy()}}
	}

	model := t.fitter.Fit(data, t.opts.MinimumMixtureCount, t.opts.MaximumMixtureCount)
	table := NewIntegralTable(data, &model)
	stats := t.fast.Detect(tile, table, model.Weights, t.opts.GuardRadius, t.Window(), pfa, mask, work)

	t.log.Debug().
		Stringer("work", work).
		Int("mixtures", model.Count).
		Int("iterations", model.Iterations).
		Float64("initial_error", model.InitialError).
		Float64("final_error", model.FinalError).
		Float64("target_ratio", stats.TargetRatio).
		Float64("expansion_ratio", stats.ExpansionRatio).
		Float64("pfa", pfa).
		Msg("tile detected")

	return TileResult{Model: model, CensoredPixels: censored, Stats: stats}
}

func clearRect(mask *image.Gray, r image.Rectangle) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		row := mask.Pix[mask.PixOffset(mask.Rect.Min.X, mask.Rect.Min.Y+y):]
		clear(row[r.Min.X:r.Max.X])
	}
}
