package fit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/datamixer/internal/dataset"
	"github.com/vk/datamixer/internal/fitting"
	"github.com/vk/datamixer/internal/model"
	"github.com/vk/datamixer/internal/testutil"
	"github.com/zclconf/go-cty/cty"
)

const channel = "Spectrum - ROI_00/Hlineout_ROI_00"

func gaussianTrace() *dataset.Dataset {
	truth := fitting.Params{Amp: 10, X0: 12, Dx: 4, Offset: 1}
	x := make([]float64, 50)
	for i := range x {
		x[i] = float64(i) / 2
	}
	return testutil.Trace("Spectrum - ROI_00", "Hlineout_ROI_00", x, truth.Curve(x))
}

func TestProcess_FitsConfiguredChannel(t *testing.T) {
	// Arrange
	env := testutil.NewModelEnv(t, manifest, nil)
	m := New(env)
	src := gaussianTrace()
	in := dataset.NewBundle("acq", dataset.New("other", "det", []float64{1, 2}), src)

	// Act
	out, err := m.Process(context.Background(), env.Settings.Snapshot(), in)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, BundleName, out.Name)
	require.Len(t, out.Data, 2)

	augmented := out.Data[0]
	assert.Equal(t, src.FullName(), augmented.FullName())
	require.Len(t, augmented.Components, 2)
	assert.Equal(t, []string{"CH00", CurveLabel}, augmented.Labels)
	assert.InDeltaSlice(t, augmented.Components[0], augmented.Components[1], 1e-6)
	assert.Len(t, src.Components, 1, "input dataset must not be modified")

	coeffs := out.Data[1]
	assert.Equal(t, CoefficientsName, coeffs.Name)
	assert.Equal(t, dataset.Dim0D, coeffs.Dim)
	assert.Equal(t, []string{"amp", "x0", "dx", "offset"}, coeffs.Labels)
	assert.InDelta(t, 10, coeffs.Components[0][0], 1e-6)
	assert.InDelta(t, 12, coeffs.Components[1][0], 1e-6)
	assert.InDelta(t, 4, coeffs.Components[2][0], 1e-6)
	assert.InDelta(t, 1, coeffs.Components[3][0], 1e-6)
}

func TestProcess_AlternativeMethods(t *testing.T) {
	for _, method := range []string{"nelder_mead", "bfgs"} {
		t.Run(method, func(t *testing.T) {
			// Arrange
			env := testutil.NewModelEnv(t, manifest, nil)
			testutil.SetOptions(t, env, map[string]cty.Value{
				"method":         cty.StringVal(method),
				"max_iterations": cty.NumberIntVal(2000),
			})
			m := New(env)

			// Act
			out, err := m.Process(context.Background(), env.Settings.Snapshot(), dataset.NewBundle("acq", gaussianTrace()))

			// Assert
			require.NoError(t, err)
			assert.InDelta(t, 12, out.Data[1].Components[1][0], 1e-2)
		})
	}
}

func TestProcess_MissingChannel(t *testing.T) {
	// Arrange
	env := testutil.NewModelEnv(t, manifest, nil)
	m := New(env)
	in := dataset.NewBundle("acq", dataset.New("other", "det", []float64{1, 2}))

	// Act
	out, err := m.Process(context.Background(), env.Settings.Snapshot(), in)

	// Assert
	assert.Nil(t, out)
	assert.ErrorIs(t, err, model.ErrRequiredChannelMissing)
	assert.ErrorIs(t, err, dataset.ErrChannelNotFound)
}

func TestProcess_Divergence(t *testing.T) {
	testCases := []struct {
		name   string
		values []float64
		opts   map[string]cty.Value
	}{
		{
			name:   "flat data",
			values: []float64{0, 0, 0, 0, 0},
		},
		{
			name:   "iteration budget",
			values: []float64{0, 1, 5, 1, 0, 3, 0, 2, 0},
			opts:   map[string]cty.Value{"max_iterations": cty.NumberIntVal(1)},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// Arrange
			env := testutil.NewModelEnv(t, manifest, nil)
			if tc.opts != nil {
				testutil.SetOptions(t, env, tc.opts)
			}
			m := New(env)
			in := dataset.NewBundle("acq", dataset.New("Hlineout_ROI_00", "Spectrum - ROI_00", tc.values))

			// Act
			out, err := m.Process(context.Background(), env.Settings.Snapshot(), in)

			// Assert
			assert.Nil(t, out)
			assert.ErrorIs(t, err, model.ErrFitDivergence)
		})
	}
}

func TestSettings_RejectsUnknownMethod(t *testing.T) {
	env := testutil.NewModelEnv(t, manifest, nil)
	_, err := env.Settings.Set("method", cty.StringVal("gradient_descent"))
	assert.Error(t, err)
}

func TestProcess_Rejects2D(t *testing.T) {
	// Arrange
	env := testutil.NewModelEnv(t, manifest, nil)
	img := &dataset.Dataset{
		Name: "Hlineout_ROI_00", Origin: "Spectrum - ROI_00", Source: dataset.SourceRaw,
		Dim: dataset.Dim2D, Shape: []int{2, 2}, Components: [][]float64{{1, 2, 3, 4}},
	}

	// Act
	_, err := New(env).Process(context.Background(), env.Settings.Snapshot(), dataset.NewBundle("acq", img))

	// Assert
	assert.ErrorIs(t, err, dataset.ErrUnsupportedDim)
}
