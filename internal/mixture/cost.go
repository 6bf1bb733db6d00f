package mixture

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
)

const (
	// LowerBound and UpperBound limit each percentile width searched by the fitter.
	LowerBound = 1.0
	UpperBound = 99.0
)

// CostFunction scores candidate mixture breakpoints against the empirical
// histogram of a Data. A candidate x holds up to Dimension() percentile widths;
// their running sum gives the breakpoints and the number of breakpoints reached
// before 100 is the mixture order.
//
// Invalid candidates cost +Inf. A CostFunction keeps scratch buffers and must
// not be shared between goroutines.
type CostFunction struct {
	data             *Data
	dim              int
	minimumCount     int
	complexityWeight float64

	intervals []float64
	weights   []float64
	sqrSigmas []float64
	estimated []float64
	count     int
}

// NewCostFunction creates the cost of a mixture of at most dim components over d.
func NewCostFunction(d *Data, dim, minimumCount int, complexityWeight float64) *CostFunction {
	return &CostFunction{
		data:             d,
		dim:              dim,
		minimumCount:     minimumCount,
		complexityWeight: complexityWeight,
		intervals:        make([]float64, dim+2),
		weights:          make([]float64, dim),
		sqrSigmas:        make([]float64, dim),
		estimated:        make([]float64, d.Size()),
	}
}

func (c *CostFunction) Dimension() int { return c.dim }

func (c *CostFunction) Bounds() (lower, upper float64) { return LowerBound, UpperBound }

// Evaluate returns log(mean |empirical - estimated|) plus the complexity term, or
// +Inf when x does not describe a valid unimodal mixture.
func (c *CostFunction) Evaluate(x []float64) float64 {
	if !c.estimate(x) {
		c.count = 0
		return math.Inf(1)
	}

	var sum float64
	for k, e := range c.data.Empirical {
		sum += math.Abs(e - c.estimated[k])
	}
	dataError := sum / float64(len(c.estimated))

	regularizer := c.complexityWeight * float64(c.count)
	if dataError > 0 {
		return math.Log(dataError) + regularizer
	}
	return regularizer
}

// InitialPoint returns evenly spaced widths of 100/(dim+1).
func (c *CostFunction) InitialPoint() []float64 {
	x := make([]float64, c.dim)
	for i := range x {
		x[i] = 100 / float64(c.dim+1)
	}
	return x
}

// Model returns the mixture described by x, or false if x is invalid.
func (c *CostFunction) Model(x []float64) (Model, bool) {
	if !c.estimate(x) {
		return Model{}, false
	}
	n := c.count
	m := Model{
		Count:     n,
		Intervals: slices.Clone(c.intervals[:n+2]),
		Weights:   slices.Clone(c.weights[:n]),
		SqrSigmas: slices.Clone(c.sqrSigmas[:n]),
		Sigmas:    make([]float64, n),
	}
	for i, s := range m.SqrSigmas {
		m.Sigmas[i] = math.Sqrt(s)
	}
	return m, true
}

// breakpoints fills c.intervals from the widths in x and returns the mixture
// order, or 0 if a width is out of bounds.
func (c *CostFunction) breakpoints(x []float64) int {
	iv := c.intervals
	iv[0] = 0
	iv[c.dim+1] = 100

	var cumulative float64
	for k, v := range x {
		if v < LowerBound || v > UpperBound {
			return 0
		}
		cumulative += v
		if cumulative >= 100 {
			iv[k+1] = 100
			return k
		}
		iv[k+1] = cumulative
	}
	return c.dim
}

func (c *CostFunction) estimate(x []float64) bool {
	d := c.data
	c.count = c.breakpoints(x)
	n := c.count
	if n < c.minimumCount || n < 1 || n > c.dim {
		return false
	}

	for i := 0; i < n; i++ {
		a := d.PercentileIndex(c.intervals[i])
		b := d.PercentileIndex(c.intervals[i+2])
		sigmaSqr, mass := d.EstimateSigmaSqr(a, b)
		if mass < segmentEpsilon || !(sigmaSqr > 0) {
			return false
		}
		c.weights[i] = mass
		c.sqrSigmas[i] = sigmaSqr
	}

	total := floats.Sum(c.weights[:n])
	if !(total > 0) {
		return false
	}
	floats.Scale(1/total, c.weights[:n])

	peak := 0
	var peakValue float64
	for k := range c.estimated {
		x := d.X(k)
		var p float64
		for i := 0; i < n; i++ {
			p += c.weights[i] * RayleighPDF(x, c.sqrSigmas[i])
		}
		c.estimated[k] = p
		if p >= peakValue {
			peakValue = p
			peak = k
		}
	}
	if peakValue <= 0 {
		return false
	}
	return unimodal(c.estimated, peak)
}

// unimodal reports whether p never decreases before peak and never increases
// after it.
func unimodal(p []float64, peak int) bool {
	for k := 1; k <= peak; k++ {
		if p[k] < p[k-1] {
			return false
		}
	}
	for k := peak + 1; k < len(p); k++ {
		if p[k] > p[k-1] {
			return false
		}
	}
	return true
}
