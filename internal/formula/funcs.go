package formula

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var constants = map[string]float64{
	"pi":  math.Pi,
	"e":   math.E,
	"inf": math.Inf(1),
	"nan": math.NaN(),
}

var unaryFuncs = map[string]func(float64) float64{
	"abs":    math.Abs,
	"sqrt":   math.Sqrt,
	"exp":    math.Exp,
	"log":    math.Log,
	"log10":  math.Log10,
	"log2":   math.Log2,
	"sin":    math.Sin,
	"cos":    math.Cos,
	"tan":    math.Tan,
	"arcsin": math.Asin,
	"arccos": math.Acos,
	"arctan": math.Atan,
	"sinh":   math.Sinh,
	"cosh":   math.Cosh,
	"tanh":   math.Tanh,
	"floor":  math.Floor,
	"ceil":   math.Ceil,
	"round":  math.RoundToEven,
	"sign":   sign,
	"square": func(x float64) float64 { return x * x },
}

var binaryFuncs = map[string]func(x, y float64) float64{
	"power":   math.Pow,
	"maximum": maximum,
	"minimum": minimum,
	"arctan2": math.Atan2,
	"hypot":   math.Hypot,
}

var reductions = map[string]func([]float64) float64{
	"sum":  floats.Sum,
	"mean": func(x []float64) float64 { return stat.Mean(x, nil) },
	"min":  floats.Min,
	"max":  floats.Max,
	"std":  func(x []float64) float64 { return math.Sqrt(stat.PopVariance(x, nil)) },
}

func sign(x float64) float64 {
	switch {
	case math.IsNaN(x):
		return x
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return 0
}

// maximum and minimum propagate NaN like their numpy namesakes.
func maximum(x, y float64) float64 {
	if math.IsNaN(x) || math.IsNaN(y) {
		return math.NaN()
	}
	return math.Max(x, y)
}

func minimum(x, y float64) float64 {
	if math.IsNaN(x) || math.IsNaN(y) {
		return math.NaN()
	}
	return math.Min(x, y)
}

// mod follows the floored convention: the result has the divisor's sign.
func mod(x, y float64) float64 {
	r := math.Mod(x, y)
	if r != 0 && (r < 0) != (y < 0) {
		r += y
	}
	return r
}
