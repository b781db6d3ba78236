package fitting

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var (
	// ErrNotConverged is returned when a fit fails to reach a finite minimum
	// within its iteration budget.
	ErrNotConverged = errors.New("fit did not converge")

	// ErrDegenerateData is returned when no initial guess can be derived
	// from the samples.
	ErrDegenerateData = errors.New("degenerate data")
)

// Gauss1D is a unit-height gaussian centred on x0. It falls to half its
// height at x0 ± dx/√2, so its full width at half maximum is dx·√2.
func Gauss1D(x, x0, dx float64) float64 {
	u := (x - x0) / dx
	return math.Exp(-2 * math.Ln2 * u * u)
}

// Params are the coefficients of the fitted curve.
type Params struct {
	Amp    float64
	X0     float64
	Dx     float64
	Offset float64
}

// ParamNames labels the coefficients in the order of Params.Slice.
var ParamNames = []string{"amp", "x0", "dx", "offset"}

// Slice returns the coefficients as amp, x0, dx, offset.
func (p Params) Slice() []float64 {
	return []float64{p.Amp, p.X0, p.Dx, p.Offset}
}

func paramsFrom(v []float64) Params {
	return Params{Amp: v[0], X0: v[1], Dx: math.Abs(v[2]), Offset: v[3]}
}

// At evaluates the curve at x.
func (p Params) At(x float64) float64 {
	return p.Amp*Gauss1D(x, p.X0, p.Dx) + p.Offset
}

// Curve evaluates the curve at every x.
func (p Params) Curve(x []float64) []float64 {
	out := make([]float64, len(x))
	for i, xi := range x {
		out[i] = p.At(xi)
	}
	return out
}

func (p Params) finite() bool {
	for _, v := range p.Slice() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Moments returns the y-weighted mean of x and the y-weighted standard
// deviation around it.
func Moments(x, y []float64) (mean, std float64, err error) {
	if len(x) != len(y) {
		return 0, 0, fmt.Errorf("%w: %d abscissae for %d samples", ErrDegenerateData, len(x), len(y))
	}
	if len(x) < 2 {
		return 0, 0, fmt.Errorf("%w: need at least 2 samples, got %d", ErrDegenerateData, len(x))
	}
	if floats.Sum(y) == 0 {
		return 0, 0, fmt.Errorf("%w: samples sum to zero", ErrDegenerateData)
	}
	mean = stat.Mean(x, y)
	std = math.Sqrt(stat.PopVariance(x, y))
	if math.IsNaN(mean) || math.IsNaN(std) || math.IsInf(mean, 0) || math.IsInf(std, 0) {
		return 0, 0, fmt.Errorf("%w: moments are not finite", ErrDegenerateData)
	}
	return mean, std, nil
}

// Guess derives starting coefficients: the offset is the minimum, the
// amplitude the peak-to-peak span, and centre and width come from Moments.
func Guess(x, y []float64) (Params, error) {
	x0, dx, err := Moments(x, y)
	if err != nil {
		return Params{}, err
	}
	if dx == 0 {
		return Params{}, fmt.Errorf("%w: zero spread", ErrDegenerateData)
	}
	lo := floats.Min(y)
	return Params{
		Amp:    floats.Max(y) - lo,
		X0:     x0,
		Dx:     dx,
		Offset: lo,
	}, nil
}
