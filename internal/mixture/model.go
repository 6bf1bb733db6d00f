package mixture

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Model is a fitted Rayleigh mixture.
type Model struct {
	// Count is the number of components.
	Count int `json:"count"`

	// Intervals holds Count+2 increasing percentile breakpoints in [0, 100].
	// Component i covers Intervals[i] to Intervals[i+2].
	Intervals []float64 `json:"intervals"`

	Weights   []float64 `json:"weights"`
	Sigmas    []float64 `json:"sigmas"`
	SqrSigmas []float64 `json:"-"`

	// InitialError and FinalError are the fit costs at the starting and the best
	// breakpoints. Both are zero for a closed-form single-component fit.
	InitialError float64 `json:"initial_error"`
	FinalError   float64 `json:"final_error"`

	// Iterations is the optimizer iteration count.
	Iterations int `json:"iterations"`

	// Fallback reports that the optimizer found no valid mixture and the
	// single-component fit was used instead.
	Fallback bool `json:"fallback"`
}

// Probability returns the mixture density at x.
func (m *Model) Probability(x float64) float64 {
	var p float64
	for i := 0; i < m.Count; i++ {
		p += m.Weights[i] * RayleighPDF(x, m.SqrSigmas[i])
	}
	return p
}

// Valid reports whether the model has at least one component with finite,
// positive parameters and weights summing to one.
func (m *Model) Valid() bool {
	if m.Count < 1 || len(m.Weights) < m.Count || len(m.SqrSigmas) < m.Count {
		return false
	}
	for _, s := range m.SqrSigmas[:m.Count] {
		if !(s > 0) || math.IsInf(s, 1) {
			return false
		}
	}
	return math.Abs(floats.Sum(m.Weights[:m.Count])-1) < 1e-9
}

// Density evaluates the mixture over the resampled bins of d.
func (m *Model) Density(d *Data) []float64 {
	out := make([]float64, d.Size())
	for k := range out {
		out[k] = m.Probability(d.X(k))
	}
	return out
}

func singleComponent(d *Data) Model {
	sigmaSqr, _ := d.EstimateSigmaSqr(0, d.Size()-1)
	return Model{
		Count:     1,
		Intervals: []float64{0, 50, 100},
		Weights:   []float64{1},
		Sigmas:    []float64{math.Sqrt(sigmaSqr)},
		SqrSigmas: []float64{sigmaSqr},
	}
}
