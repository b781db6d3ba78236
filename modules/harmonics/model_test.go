package harmonics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/datamixer/internal/dataset"
	"github.com/vk/datamixer/internal/model"
	"github.com/vk/datamixer/internal/peaks"
	"github.com/vk/datamixer/internal/settings"
	"github.com/vk/datamixer/internal/testutil"
	"github.com/zclconf/go-cty/cty"
)

// spectrum has peaks at indices 2 (height 3), 5 (height 9) and 8 (height 4).
func spectrum() *dataset.Dataset {
	values := []float64{0, 1, 3, 1, 2, 9, 2, 1, 4, 1, 0}
	axis := make([]float64, len(values))
	for i := range axis {
		axis[i] = 100 + 10*float64(i)
	}
	return testutil.Trace("det", "spectrum", axis, values)
}

func newModel(t *testing.T, opts map[string]cty.Value) (*Model, *model.Env) {
	t.Helper()
	env := testutil.NewModelEnv(t, manifest, nil)
	if opts != nil {
		testutil.SetOptions(t, env, opts)
	}
	m := New(env)
	require.NoError(t, m.Init(context.Background()))
	return m, env
}

func TestProcess_CropsAroundHighestPeak(t *testing.T) {
	// Arrange
	m, env := newModel(t, map[string]cty.Value{
		"cropping.ind_min": cty.NumberIntVal(-2),
		"cropping.ind_max": cty.NumberIntVal(3),
	})
	src := spectrum()

	// Act
	out, err := m.Process(context.Background(), env.Settings.Snapshot(), dataset.NewBundle("acq", src))

	// Assert
	require.NoError(t, err)
	assert.Equal(t, BundleName, out.Name)
	require.Len(t, out.Data, 1)
	cropped := out.Data[0]
	assert.Equal(t, []float64{1, 2, 9, 2, 1}, cropped.Components[0])
	require.Len(t, cropped.Axes, 1)
	assert.Equal(t, []float64{0, 1, 2, 3, 4}, cropped.Axes[0].Data)
	assert.Empty(t, cropped.Axes[0].Label)
	assert.Equal(t, 5, m.LastPeak())

	peak, err := env.Settings.Get(highestPeakPath)
	require.NoError(t, err)
	assert.True(t, peak.RawEquals(cty.NumberFloatVal(150)))

	assert.Len(t, src.Components[0], 11, "input dataset must not be modified")
}

func TestProcess_ClampsWindow(t *testing.T) {
	// Arrange
	m, env := newModel(t, map[string]cty.Value{
		"cropping.ind_min": cty.NumberIntVal(-10),
	})

	// Act
	out, err := m.Process(context.Background(), env.Settings.Snapshot(), dataset.NewBundle("acq", spectrum()))

	// Assert
	require.NoError(t, err)
	assert.Len(t, out.Data[0].Components[0], 11)
}

func TestProcess_EmptyWindow(t *testing.T) {
	// Arrange
	m, env := newModel(t, map[string]cty.Value{
		"cropping.ind_min": cty.NumberIntVal(20),
		"cropping.ind_max": cty.NumberIntVal(30),
	})

	// Act
	_, err := m.Process(context.Background(), env.Settings.Snapshot(), dataset.NewBundle("acq", spectrum()))

	// Assert
	assert.ErrorIs(t, err, model.ErrEmptyCropWindow)
}

func TestProcess_OptionsOnlyApplyWhenEnabled(t *testing.T) {
	testCases := []struct {
		name    string
		enabled bool
		wantErr error
	}{
		{name: "disabled ignores height", enabled: false},
		{name: "enabled applies height", enabled: true, wantErr: model.ErrEmptyPeakSet},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// Arrange
			m, env := newModel(t, map[string]cty.Value{
				"find_peaks.options.enabled": cty.BoolVal(tc.enabled),
				"find_peaks.options.height":  cty.NumberFloatVal(50),
			})

			// Act
			_, err := m.Process(context.Background(), env.Settings.Snapshot(), dataset.NewBundle("acq", spectrum()))

			// Assert
			if tc.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.wantErr)
			assert.ErrorIs(t, err, peaks.ErrNoPeaks)
		})
	}
}

func TestProcess_FirstDatasetIsUsed(t *testing.T) {
	// Arrange
	m, env := newModel(t, nil)
	flat := dataset.New("flat", "det", []float64{1, 1, 1, 1})

	// Act
	_, err := m.Process(context.Background(), env.Settings.Snapshot(), dataset.NewBundle("acq", flat, spectrum()))

	// Assert
	assert.ErrorIs(t, err, model.ErrEmptyPeakSet)
}

func TestProcess_EmptyBundle(t *testing.T) {
	m, env := newModel(t, nil)
	_, err := m.Process(context.Background(), env.Settings.Snapshot(), dataset.NewBundle("acq"))
	assert.ErrorIs(t, err, model.ErrRequiredChannelMissing)
}

func TestHighestPeak_IsReadOnlyForUsers(t *testing.T) {
	_, env := newModel(t, nil)
	_, err := env.Settings.Set(highestPeakPath, cty.NumberFloatVal(1))
	assert.ErrorIs(t, err, settings.ErrReadOnly)
}

func TestUpdateSettings(t *testing.T) {
	// Arrange
	m, env := newModel(t, nil)
	change, err := env.Settings.Set("cropping.ind_min", cty.NumberIntVal(200))
	require.NoError(t, err)

	// Act & Assert
	assert.NoError(t, m.UpdateSettings(context.Background(), change))
}
