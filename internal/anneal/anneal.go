package anneal

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

// CostFunction is a bounded scalar objective over a fixed-dimension vector.
// Evaluate must not retain x and must return the same value for the same input.
type CostFunction interface {
	Dimension() int
	Bounds() (lower, upper float64)
	Evaluate(x []float64) float64
}

// Domain selects whether coordinates are continuous or truncated to integers.
type Domain int

const (
	Continuous Domain = iota
	Integer
)

// Annealing selects the step length used to perturb the current state.
type Annealing int

const (
	// AnnealBoltzmann steps sqrt(T).
	AnnealBoltzmann Annealing = iota
	// AnnealFast steps T.
	AnnealFast
)

// Cooling selects the temperature schedule.
type Cooling int

const (
	// CoolingExponential is T0 * 0.95^k.
	CoolingExponential Cooling = iota
	// CoolingFast is T0 / (k+1).
	CoolingFast
	// CoolingBoltzmann is T0 / (ln(k+1) + 1).
	CoolingBoltzmann
)

// Acceptance selects the temperature used by the Metropolis rule.
type Acceptance int

const (
	// AcceptanceBoltzmann uses the current temperature.
	AcceptanceBoltzmann Acceptance = iota
	// AcceptanceAdaptive uses the temperature at which the best point was found.
	// Once the best point stops improving the current state keeps accepting
	// uphill moves at that temperature, so convergence of the current state is
	// not guaranteed; the best point is still tracked.
	AcceptanceAdaptive
)

const (
	minimumTemperature = 1e-8
	coolingFactor      = 0.95
)

// Options configures an Optimizer. Zero values select the defaults listed on
// each field.
type Options struct {
	// InitialTemperature is T0. Default 100.
	InitialTemperature float64

	// IterationsPerDimension scales the iteration budget. Default 1000.
	IterationsPerDimension int

	// Tolerance is the energy change below which an iteration counts as stalled.
	// Default 1e-4.
	Tolerance float64

	Domain     Domain
	Annealing  Annealing
	Cooling    Cooling
	Acceptance Acceptance

	// MaxStepRetries caps how often an out-of-bounds step is halved before the
	// candidate is clamped. Default 32.
	MaxStepRetries int

	// Seed initialises the optimizer's private random source.
	Seed uint64

	// Trace, when set, is called every TracePeriod iterations (every iteration if
	// TracePeriod <= 0).
	Trace       func(TraceEvent)
	TracePeriod int
}

// TraceEvent is the optimizer state reported to Options.Trace.
type TraceEvent struct {
	Iteration int
	Current   float64
	Candidate float64
	Best      float64
}

// DefaultOptions returns the default configuration.
func DefaultOptions() Options {
	return Options{
		InitialTemperature:     100,
		IterationsPerDimension: 1000,
		Tolerance:              1e-4,
		MaxStepRetries:         32,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.InitialTemperature <= 0 {
		o.InitialTemperature = d.InitialTemperature
	}
	if o.IterationsPerDimension <= 0 {
		o.IterationsPerDimension = d.IterationsPerDimension
	}
	if o.Tolerance <= 0 {
		o.Tolerance = d.Tolerance
	}
	if o.MaxStepRetries <= 0 {
		o.MaxStepRetries = d.MaxStepRetries
	}
	return o
}

// Result is the outcome of one Minimize call.
type Result struct {
	// X is the best point found and Cost its energy. Cost is +Inf when no
	// feasible point was ever evaluated.
	X    []float64
	Cost float64

	// InitialCost is the energy of the starting point.
	InitialCost float64

	// Temperature is the temperature at which X was found.
	Temperature float64

	// BestIteration is the iteration that produced X (0 for the starting point).
	BestIteration int

	// Iteration is the index of the last evaluated iteration: the stall
	// iteration when Stalled, otherwise the iteration budget.
	Iteration int

	// Stalled reports that the run ended on the stall limit rather than the
	// iteration budget.
	Stalled bool
}

// Optimizer minimizes cost functions by adaptive simulated annealing.
type Optimizer struct {
	opts    Options
	normal  distuv.Normal
	uniform distuv.Uniform
}

// New creates an optimizer with its own random source seeded from opts.Seed.
func New(opts Options) *Optimizer {
	opts = opts.withDefaults()
	src := rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15)
	return &Optimizer{
		opts:    opts,
		normal:  distuv.Normal{Mu: 0, Sigma: 1, Src: src},
		uniform: distuv.Uniform{Min: 0, Max: 1, Src: src},
	}
}

// Options returns the effective configuration.
func (o *Optimizer) Options() Options {
	return o.opts
}

// Temperature returns the cooling-schedule temperature at iteration k.
//
// The schedule is always evaluated at the current iteration. Only
// AcceptanceAdaptive refers back to the temperature of the best point, and then
// only in the Metropolis test.
func (o *Optimizer) Temperature(k int) float64 {
	t0 := o.opts.InitialTemperature
	var t float64
	switch o.opts.Cooling {
	case CoolingFast:
		t = t0 / (float64(k) + 1)
	case CoolingBoltzmann:
		t = t0 / (math.Log(float64(k)+1) + 1)
	default:
		t = t0 * math.Pow(coolingFactor, float64(k))
	}
	return math.Max(t, minimumTemperature)
}

// Minimize searches for the minimum of f starting from x0. x0 must have
// f.Dimension() entries; it is not modified.
func (o *Optimizer) Minimize(f CostFunction, x0 []float64) Result {
	dim := f.Dimension()
	lower, upper := f.Bounds()

	xs := make([]float64, dim)
	xNew := make([]float64, dim)
	dir := make([]float64, dim)
	copy(xs, x0)
	if o.opts.Domain == Integer {
		truncate(xs)
	}

	es := f.Evaluate(xs)
	best := Result{
		X:           make([]float64, dim),
		Cost:        math.Inf(1),
		InitialCost: es,
		Temperature: o.opts.InitialTemperature,
	}
	if !math.IsInf(es, 1) && !math.IsNaN(es) {
		copy(best.X, xs)
		best.Cost = es
	}

	maxIter := dim * o.opts.IterationsPerDimension
	stallLimit := maxIter / 5
	stall := 0

	k := 0
	for ; k <= maxIter; k++ {
		t := o.Temperature(k)
		o.perturb(xs, xNew, dir, lower, upper, t)
		eNew := f.Evaluate(xNew)

		if eNew < best.Cost {
			best.Cost = eNew
			best.Temperature = t
			best.BestIteration = k
			copy(best.X, xNew)
		}

		if o.opts.Trace != nil && (o.opts.TracePeriod <= 0 || k%o.opts.TracePeriod == 0) {
			o.opts.Trace(TraceEvent{Iteration: k, Current: es, Candidate: eNew, Best: best.Cost})
		}

		if math.Abs(eNew-es) < o.opts.Tolerance {
			stall++
			if stall > stallLimit {
				best.Stalled = true
				break
			}
		} else {
			stall = 0
		}

		if o.accept(es, eNew, t, best.Temperature) {
			es = eNew
			copy(xs, xNew)
		}
	}
	best.Iteration = min(k, maxIter)
	return best
}

// perturb writes into xNew a random neighbour of xs at distance step(T).
func (o *Optimizer) perturb(xs, xNew, dir []float64, lower, upper, t float64) {
	step := math.Sqrt(t)
	if o.opts.Annealing == AnnealFast {
		step = t
	}

	for attempt := 0; ; attempt++ {
		for i := range dir {
			dir[i] = o.normal.Rand()
		}
		n := floats.Norm(dir, 2)
		if n == 0 {
			dir[0], n = 1, 1
		}
		floats.Scale(1/n, dir)
		floats.AddScaledTo(xNew, xs, step, dir)
		if o.opts.Domain == Integer {
			truncate(xNew)
		}

		if inBounds(xNew, lower, upper) {
			return
		}
		if attempt >= o.opts.MaxStepRetries {
			for i, v := range xNew {
				xNew[i] = math.Min(math.Max(v, lower), upper)
			}
			return
		}
		step /= 2
	}
}

func (o *Optimizer) accept(es, eNew, t, tBest float64) bool {
	if math.IsInf(eNew, 1) || math.IsNaN(eNew) {
		return false
	}
	if eNew < es {
		return true
	}
	ta := tBest
	if o.opts.Acceptance == AcceptanceBoltzmann {
		ta = t
	}
	h := math.Exp(-(eNew - es) / ta)
	return h >= o.uniform.Rand()
}

func inBounds(x []float64, lower, upper float64) bool {
	for _, v := range x {
		if v < lower || v > upper {
			return false
		}
	}
	return true
}

func truncate(x []float64) {
	for i, v := range x {
		x[i] = math.Trunc(v)
	}
}
