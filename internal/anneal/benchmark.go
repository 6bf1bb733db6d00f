package anneal

import "math"

// Benchmark is a two-dimensional test objective with a known global minimum.
// It implements CostFunction.
type Benchmark struct {
	Name string

	// Lower and Upper bound both coordinates.
	Lower, Upper float64

	// Optimum is one global minimizer and Minimum its value.
	Optimum [2]float64
	Minimum float64

	f func(x1, x2 float64) float64
}

func (b Benchmark) Dimension() int { return 2 }

func (b Benchmark) Bounds() (lower, upper float64) { return b.Lower, b.Upper }

func (b Benchmark) Evaluate(x []float64) float64 { return b.f(x[0], x[1]) }

// Benchmarks returns the standard test objectives.
func Benchmarks() []Benchmark {
	return []Benchmark{
		Sphere(),
		{
			Name: "rastrigin", Lower: -5.12, Upper: 5.12,
			f: func(x1, x2 float64) float64 {
				return 20 + x1*x1 - 10*math.Cos(2*math.Pi*x1) + x2*x2 - 10*math.Cos(2*math.Pi*x2)
			},
		},
		{
			Name: "ackley", Lower: -5, Upper: 5,
			f: func(x1, x2 float64) float64 {
				return -20*math.Exp(-0.2*math.Sqrt(0.5*(x1*x1+x2*x2))) -
					math.Exp(0.5*(math.Cos(2*math.Pi*x1)+math.Cos(2*math.Pi*x2))) + math.E + 20
			},
		},
		{
			Name: "rosenbrock", Lower: -10, Upper: 10, Optimum: [2]float64{1, 1},
			f: func(x1, x2 float64) float64 {
				return 100*sqr(x2-x1*x1) + sqr(x1-1)
			},
		},
		{
			Name: "beale", Lower: -4.5, Upper: 4.5, Optimum: [2]float64{3, 0.5},
			f: func(x1, x2 float64) float64 {
				return sqr(1.5-x1+x1*x2) + sqr(2.25-x1+x1*x2*x2) + sqr(2.625-x1+x1*x2*x2*x2)
			},
		},
		{
			Name: "booth", Lower: -10, Upper: 10, Optimum: [2]float64{1, 3},
			f: func(x1, x2 float64) float64 {
				return sqr(x1+2*x2-7) + sqr(2*x1+x2-5)
			},
		},
		{
			Name: "matyas", Lower: -10, Upper: 10,
			f: func(x1, x2 float64) float64 {
				return 0.26*(x1*x1+x2*x2) - 0.48*x1*x2
			},
		},
		{
			Name: "levi13", Lower: -10, Upper: 10, Optimum: [2]float64{1, 1},
			f: func(x1, x2 float64) float64 {
				return sqr(math.Sin(3*math.Pi*x1)) +
					sqr(x1-1)*(1+sqr(math.Sin(3*math.Pi*x2))) +
					sqr(x2-1)*(1+sqr(math.Sin(2*math.Pi*x2)))
			},
		},
		{
			Name: "three-hump-camel", Lower: -5, Upper: 5,
			f: func(x1, x2 float64) float64 {
				return 2*x1*x1 - 1.05*math.Pow(x1, 4) + math.Pow(x1, 6)/6 + x1*x2 + x2*x2
			},
		},
	}
}

// Sphere is x1² + x2² on [-10, 10].
func Sphere() Benchmark {
	return Benchmark{
		Name: "sphere", Lower: -10, Upper: 10,
		f: func(x1, x2 float64) float64 { return x1*x1 + x2*x2 },
	}
}

func sqr(x float64) float64 { return x * x }
