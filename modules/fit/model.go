package fit

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/datamixer/internal/ctxlog"
	"github.com/vk/datamixer/internal/dataset"
	"github.com/vk/datamixer/internal/fitting"
	"github.com/vk/datamixer/internal/model"
	"github.com/vk/datamixer/internal/settings"
)

const (
	// BundleName names every result bundle.
	BundleName = "computed"
	// CoefficientsName names the dataset holding the fitted coefficients.
	CoefficientsName = "fit_coefficients"
	// CurveLabel labels the fitted curve component.
	CurveLabel = "fit"
)

// Settings is the decoded option set of the fit model.
type Settings struct {
	Channel       string `bggo:"channel"`
	Method        string `bggo:"method"`
	MaxIterations int    `bggo:"max_iterations"`
}

// Model fits a gaussian to a single configured channel.
type Model struct {
	env *model.Env
}

// New creates a fit model bound to env.
func New(env *model.Env) *Model {
	return &Model{env: env}
}

// Init implements model.Model. The fit model has nothing to prepare.
func (m *Model) Init(context.Context) error { return nil }

// UpdateSettings implements model.Model.
func (m *Model) UpdateSettings(ctx context.Context, change settings.Change) error {
	ctxlog.FromContext(ctx).Debug("Fit option changed.", "path", change.Path, "value", change.New.GoString())
	return nil
}

// Process fits the configured channel and returns the trace with the fitted
// curve appended, plus the coefficients.
func (m *Model) Process(ctx context.Context, snap settings.Snapshot, in *dataset.Bundle) (*dataset.Bundle, error) {
	var s Settings
	if err := snap.Decode(ctx, &s); err != nil {
		return nil, fmt.Errorf("decoding fit settings: %w", err)
	}

	src, err := in.Get(s.Channel)
	if errors.Is(err, dataset.ErrChannelNotFound) {
		return nil, fmt.Errorf("%w: %w", model.ErrRequiredChannelMissing, err)
	}
	if err != nil {
		return nil, err
	}
	if src.Dim != dataset.Dim1D {
		return nil, fmt.Errorf("%w: fit needs 1D data, %s is %s", dataset.ErrUnsupportedDim, src.FullName(), src.Dim)
	}

	data := src.DeepCopy()
	x := data.AxisData(0)
	y := data.Components[0]

	guess, err := fitting.Guess(x, y)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrFitDivergence, err)
	}
	res, err := fitting.Fit(ctx, x, y, guess, fitting.Options{
		Method:        fitting.Method(s.Method),
		MaxIterations: s.MaxIterations,
	})
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", model.ErrFitDivergence, src.FullName(), err)
	}
	ctxlog.FromContext(ctx).Debug("Gaussian fitted.",
		"channel", src.FullName(), "method", s.Method, "iterations", res.Iterations, "cost", res.Cost)

	appendCurve(data, res.Curve(x))

	coeffs := dataset.New(CoefficientsName, data.Origin,
		[]float64{res.Amp}, []float64{res.X0}, []float64{res.Dx}, []float64{res.Offset})
	coeffs.Source = dataset.SourceCalculated
	coeffs.Labels = append([]string(nil), fitting.ParamNames...)

	return dataset.NewBundle(BundleName, data, coeffs), nil
}

func appendCurve(d *dataset.Dataset, curve []float64) {
	if len(d.Labels) == 0 {
		d.Labels = make([]string, len(d.Components))
		for i := range d.Labels {
			d.Labels[i] = fmt.Sprintf("CH%02d", i)
		}
	}
	d.Components = append(d.Components, curve)
	d.Labels = append(d.Labels, CurveLabel)
}
