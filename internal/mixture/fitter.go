package mixture

import (
	"math"

	"github.com/rs/zerolog"

	"github.com/ironsheep/rmsat-cfar/internal/anneal"
)

// Fixed optimizer hyperparameters for mixture fitting.
const (
	fitInitialTemperature     = 250
	fitIterationsPerDimension = 1000
	fitTolerance              = 1e-4
)

// FitterOptions configures a Fitter.
type FitterOptions struct {
	// Seed initialises the fitter's private optimizer.
	Seed uint64

	// ComplexityWeight scales the mixture order penalty added to the fit cost.
	ComplexityWeight float64

	// Logger receives fit diagnostics. Nil disables logging.
	Logger *zerolog.Logger
}

// AnnealOptions returns the optimizer configuration used for mixture fitting.
func AnnealOptions(seed uint64) anneal.Options {
	opts := anneal.DefaultOptions()
	opts.InitialTemperature = fitInitialTemperature
	opts.IterationsPerDimension = fitIterationsPerDimension
	opts.Tolerance = fitTolerance
	opts.Acceptance = anneal.AcceptanceAdaptive
	opts.Seed = seed
	return opts
}

// Fitter estimates Rayleigh mixtures. Each Fitter owns one optimizer and must be
// used by a single goroutine.
type Fitter struct {
	optimizer        *anneal.Optimizer
	complexityWeight float64
	log              zerolog.Logger
}

// NewFitter creates a fitter with its own optimizer.
func NewFitter(opts FitterOptions) *Fitter {
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}
	return &Fitter{
		optimizer:        anneal.New(AnnealOptions(opts.Seed)),
		complexityWeight: opts.ComplexityWeight,
		log:              log.With().Str("component", "fitter").Logger(),
	}
}

// Fit estimates a mixture of minimumCount to maximumCount components for d.
// A maximum of one uses the closed-form single-component estimate. d must be
// Valid.
func (f *Fitter) Fit(d *Data, minimumCount, maximumCount int) Model {
	maximumCount = max(maximumCount, 1)
	minimumCount = max(min(minimumCount, maximumCount), 1)

	if maximumCount == 1 {
		return singleComponent(d)
	}

	cost := NewCostFunction(d, maximumCount, minimumCount, f.complexityWeight)
	x0 := cost.InitialPoint()
	initial := cost.Evaluate(x0)
	res := f.optimizer.Minimize(cost, x0)

	m, ok := cost.Model(res.X)
	if !ok || math.IsInf(res.Cost, 1) {
		f.log.Warn().
			Int("maximum_count", maximumCount).
			Int("iterations", res.Iteration).
			Msg("no valid mixture found, using single component")
		m = singleComponent(d)
		m.Fallback = true
	}
	m.InitialError = initial
	m.FinalError = res.Cost
	m.Iterations = res.Iteration

	f.log.Debug().
		Int("count", m.Count).
		Floats64("weights", m.Weights).
		Floats64("sigmas", m.Sigmas).
		Float64("initial_error", initial).
		Float64("final_error", res.Cost).
		Int("iterations", res.Iteration).
		Bool("stalled", res.Stalled).
		Msg("mixture fitted")
	return m
}
