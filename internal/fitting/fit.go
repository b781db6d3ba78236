package fitting

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

// Method selects the minimizer.
type Method string

const (
	LevenbergMarquardt Method = "levenberg_marquardt"
	NelderMead         Method = "nelder_mead"
	BFGS               Method = "bfgs"
)

// Methods lists every supported method name.
var Methods = []string{string(LevenbergMarquardt), string(NelderMead), string(BFGS)}

const (
	defaultMaxIterations = 200
	defaultTolerance     = 1e-10

	lambdaStart = 1e-3
	lambdaMax   = 1e16
)

// Options tune Fit. Zero values select defaults.
type Options struct {
	Method        Method
	MaxIterations int
	Tolerance     float64
}

func (o Options) withDefaults() Options {
	if o.Method == "" {
		o.Method = LevenbergMarquardt
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = defaultMaxIterations
	}
	if o.Tolerance <= 0 {
		o.Tolerance = defaultTolerance
	}
	return o
}

// Result is a converged fit.
type Result struct {
	Params
	// Cost is the residual sum of squares at Params.
	Cost       float64
	Iterations int
}

// Fit adjusts guess to minimise the squared residuals between the curve and
// y sampled at x. The context is checked between iterations.
func Fit(ctx context.Context, x, y []float64, guess Params, opts Options) (Result, error) {
	if len(x) != len(y) || len(x) == 0 {
		return Result{}, fmt.Errorf("%w: %d abscissae for %d samples", ErrDegenerateData, len(x), len(y))
	}
	opts = opts.withDefaults()

	var (
		res Result
		err error
	)
	switch opts.Method {
	case LevenbergMarquardt:
		res, err = levenbergMarquardt(ctx, x, y, guess, opts)
	case NelderMead, BFGS:
		res, err = minimize(ctx, x, y, guess, opts)
	default:
		return Result{}, fmt.Errorf("unknown fit method '%s'", opts.Method)
	}
	if err != nil {
		return Result{}, err
	}
	if !res.finite() || math.IsNaN(res.Cost) {
		return Result{}, fmt.Errorf("%w: non-finite coefficients %v", ErrNotConverged, res.Slice())
	}
	return res, nil
}

func cost(x, y []float64, p []float64) float64 {
	params := Params{Amp: p[0], X0: p[1], Dx: p[2], Offset: p[3]}
	var sum float64
	for i, xi := range x {
		r := y[i] - params.At(xi)
		sum += r * r
	}
	return sum
}

func levenbergMarquardt(ctx context.Context, x, y []float64, guess Params, opts Options) (Result, error) {
	n, k := len(x), 4
	p := guess.Slice()
	current := cost(x, y, p)

	curve := func(dst, q []float64) {
		params := Params{Amp: q[0], X0: q[1], Dx: q[2], Offset: q[3]}
		for i, xi := range x {
			dst[i] = params.At(xi)
		}
	}

	jac := mat.NewDense(n, k, nil)
	resid := mat.NewVecDense(n, nil)
	model := make([]float64, n)
	candidate := make([]float64, k)
	lambda := lambdaStart

	for iter := 1; iter <= opts.MaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		if current == 0 {
			return Result{Params: paramsFrom(p), Cost: current, Iterations: iter - 1}, nil
		}

		fd.Jacobian(jac, curve, p, &fd.JacobianSettings{Formula: fd.Central})
		curve(model, p)
		for i := range model {
			resid.SetVec(i, y[i]-model[i])
		}

		var jtj mat.Dense
		jtj.Mul(jac.T(), jac)
		var jtr mat.VecDense
		jtr.MulVec(jac.T(), resid)

		improved := false
		for lambda < lambdaMax {
			damped := mat.DenseCopyOf(&jtj)
			for d := 0; d < k; d++ {
				diag := jtj.At(d, d)
				if diag == 0 {
					diag = 1
				}
				damped.Set(d, d, jtj.At(d, d)+lambda*diag)
			}
			var step mat.VecDense
			if err := step.SolveVec(damped, &jtr); err != nil {
				lambda *= 10
				continue
			}
			floats.AddTo(candidate, p, step.RawVector().Data)
			next := cost(x, y, candidate)
			if math.IsNaN(next) || next >= current {
				lambda *= 10
				continue
			}

			stepNorm := floats.Norm(step.RawVector().Data, 2)
			reduction := current - next
			copy(p, candidate)
			current = next
			lambda = math.Max(lambda/10, 1e-12)
			improved = true

			if reduction <= opts.Tolerance*current || stepNorm <= opts.Tolerance*(floats.Norm(p, 2)+opts.Tolerance) {
				return Result{Params: paramsFrom(p), Cost: current, Iterations: iter}, nil
			}
			break
		}
		if !improved {
			// No damping yields a decrease: p is already a local minimum.
			return Result{Params: paramsFrom(p), Cost: current, Iterations: iter}, nil
		}
	}
	return Result{}, fmt.Errorf("%w: iteration limit %d reached", ErrNotConverged, opts.MaxIterations)
}

func minimize(ctx context.Context, x, y []float64, guess Params, opts Options) (Result, error) {
	objective := func(p []float64) float64 { return cost(x, y, p) }
	problem := optimize.Problem{
		Func: objective,
		Grad: func(grad, p []float64) {
			fd.Gradient(grad, objective, p, &fd.Settings{Formula: fd.Central})
		},
		Status: func() (optimize.Status, error) {
			if err := ctx.Err(); err != nil {
				return optimize.Failure, err
			}
			return optimize.NotTerminated, nil
		},
	}

	var method optimize.Method
	iterations := opts.MaxIterations
	switch opts.Method {
	case NelderMead:
		method = &optimize.NelderMead{}
		// One Nelder-Mead major iteration moves a single simplex vertex.
		iterations *= 25
	default:
		method = &optimize.BFGS{}
	}

	settings := &optimize.Settings{
		MajorIterations: iterations,
		Converger: &optimize.FunctionConverge{
			Absolute:   opts.Tolerance * opts.Tolerance,
			Relative:   opts.Tolerance,
			Iterations: 100,
		},
	}
	result, err := optimize.Minimize(problem, guess.Slice(), settings, method)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Result{}, ctxErr
	}
	if err != nil {
		return Result{}, fmt.Errorf("%w: %s: %w", ErrNotConverged, opts.Method, err)
	}
	return Result{
		Params:     paramsFrom(result.X),
		Cost:       result.F,
		Iterations: result.MajorIterations,
	}, nil
}
