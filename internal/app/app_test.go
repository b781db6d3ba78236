package app_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/datamixer/internal/app"
	"github.com/vk/datamixer/internal/dataset"
	"github.com/vk/datamixer/internal/model"
	"github.com/vk/datamixer/internal/registry"
	"github.com/vk/datamixer/internal/testutil"
	"github.com/vk/datamixer/internal/testutil/apptest"
	"github.com/vk/datamixer/modules/equation"
	"github.com/vk/datamixer/modules/fit"
)

const acquisition = `
name: acq
data:
  - name: A
    origin: det
    data: [[1, 2, 3]]
---
name: acq
data:
  - name: A
    origin: det
    data: [[4, 5, 6]]
`

func decodeAll(t *testing.T, out string) []*dataset.Bundle {
	t.Helper()
	dec := dataset.NewDecoder(strings.NewReader(out))
	var bundles []*dataset.Bundle
	for {
		b, err := dec.Decode()
		if err != nil {
			break
		}
		bundles = append(bundles, b)
	}
	return bundles
}

func TestNewConfig(t *testing.T) {
	valid := app.Config{BundlePath: "-", LogFormat: "text", LogLevel: "info"}

	testCases := []struct {
		name    string
		mutate  func(c *app.Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*app.Config) {}},
		{name: "missing bundle path", mutate: func(c *app.Config) { c.BundlePath = "" }, wantErr: true},
		{name: "bad log level", mutate: func(c *app.Config) { c.LogLevel = "loud" }, wantErr: true},
		{name: "bad log format", mutate: func(c *app.Config) { c.LogFormat = "xml" }, wantErr: true},
		{name: "port out of range", mutate: func(c *app.Config) { c.HealthcheckPort = 70000 }, wantErr: true},
		{name: "negative timeout", mutate: func(c *app.Config) { c.ProcessTimeout = -time.Second }, wantErr: true},
		{name: "watch without settings", mutate: func(c *app.Config) { c.Watch = true }, wantErr: true},
		{name: "watch with settings", mutate: func(c *app.Config) { c.Watch = true; c.SettingsPath = "s.hcl" }},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid
			tc.mutate(&cfg)
			got, err := app.NewConfig(cfg)
			if tc.wantErr {
				assert.Error(t, err)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, cfg, *got)
		})
	}
}

func TestRun_FormulaFlag(t *testing.T) {
	// Arrange & Act
	result := apptest.RunIntegrationTest(t, nil, acquisition, func(_ string, cfg *app.Config) {
		cfg.Formula = "{det/A}*2"
	})

	// Assert
	require.NoError(t, result.Err)
	out := decodeAll(t, result.Output)
	require.Len(t, out, 2)
	assert.Equal(t, equation.BundleName, out[0].Name)
	require.Len(t, out[0].Data, 1)
	assert.Equal(t, "Formula_000", out[0].Data[0].Name)
	assert.Equal(t, []float64{2, 4, 6}, out[0].Data[0].Components[0])
	assert.Equal(t, []float64{8, 10, 12}, out[1].Data[0].Components[0])
	assert.Contains(t, result.LogOutput, "Stream finished.")
}

func TestRun_SettingsFileSelectsModel(t *testing.T) {
	// Arrange
	files := map[string]string{
		"settings.hcl": `
model = "equation"

settings "equation" {
  edit_formula = "{det/A}-1"
}
`,
	}

	// Act
	result := apptest.RunIntegrationTest(t, files, acquisition, func(dir string, cfg *app.Config) {
		cfg.SettingsPath = filepath.Join(dir, "settings.hcl")
	})

	// Assert
	require.NoError(t, result.Err)
	assert.Equal(t, equation.Name, result.App.Mixer().Active())
	out := decodeAll(t, result.Output)
	require.Len(t, out, 2)
	assert.Equal(t, []float64{0, 1, 2}, out[0].Data[0].Components[0])
}

func TestRun_ModelFlagWinsOverSettingsFile(t *testing.T) {
	// Arrange
	files := map[string]string{"settings.hcl": `model = "equation"`}

	// Act
	result := apptest.RunIntegrationTest(t, files, "", func(dir string, cfg *app.Config) {
		cfg.SettingsPath = filepath.Join(dir, "settings.hcl")
		cfg.Model = fit.Name
	})

	// Assert
	require.NoError(t, result.Err)
	assert.Equal(t, fit.Name, result.App.Mixer().Active())
	assert.Empty(t, result.Output)
}

func TestRun_FormulaNeedsEquation(t *testing.T) {
	result := apptest.RunIntegrationTest(t, nil, "", func(_ string, cfg *app.Config) {
		cfg.Model = fit.Name
		cfg.Formula = "1+1"
	})
	require.Error(t, result.Err)
	assert.Contains(t, result.Err.Error(), "edit_formula")
}

func TestRun_FailedBundlesAreSkipped(t *testing.T) {
	// Arrange
	rec := &testutil.RecorderModel{Fail: map[string]bool{"bad": true}}
	input := `
name: bad
data:
  - name: A
    origin: det
    data: [[1]]
---
name: good
data:
  - name: A
    origin: det
    data: [[1]]
`

	// Act
	result := apptest.RunIntegrationTest(t, nil, input, func(_ string, cfg *app.Config) {
		cfg.Model = "recorder"
	}, rec.Module())

	// Assert
	require.NoError(t, result.Err)
	out := decodeAll(t, result.Output)
	require.Len(t, out, 1)
	assert.Equal(t, "r:good", out[0].Name)
	assert.Len(t, rec.Records(), 2)
}

func TestRun_MalformedInput(t *testing.T) {
	result := apptest.RunIntegrationTest(t, nil, "name: [", nil)
	require.Error(t, result.Err)
	assert.Contains(t, result.Err.Error(), "failed to read bundle")
}

func TestRun_MissingBundleFile(t *testing.T) {
	result := apptest.RunIntegrationTest(t, nil, "", func(dir string, cfg *app.Config) {
		cfg.BundlePath = filepath.Join(dir, "missing.yaml")
	})
	require.Error(t, result.Err)
	assert.Contains(t, result.Err.Error(), "failed to open bundle stream")
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result := apptest.RunIntegrationTestWithContext(ctx, t, nil, acquisition, nil)
	assert.ErrorIs(t, result.Err, context.Canceled)
}

func TestNewApp_PanicsOnManifestMismatch(t *testing.T) {
	// Arrange
	mismatched := &testutil.SimpleModule{
		Name: "broken",
		Model: &registry.RegisteredModel{
			Manifest: []byte(`
model "broken" {
  option "gain" {
    type    = float
    default = 1
  }
}
`),
			New: func(*model.Env) model.Model { return nil },
		},
	}

	// Act
	result := apptest.RunIntegrationTest(t, nil, "", nil, mismatched)

	// Assert
	require.Error(t, result.Err)
	assert.Contains(t, result.Err.Error(), "application startup panicked")
	assert.Contains(t, result.Err.Error(), "no settings struct")
	assert.Nil(t, result.App)
}

func TestRun_DumpSettings(t *testing.T) {
	// Arrange
	files := map[string]string{
		"settings.hcl": `
settings "harmonics" {
  cropping {
    ind_min = 5
  }
}
`,
	}

	// Act
	result := apptest.RunIntegrationTest(t, files, "", func(dir string, cfg *app.Config) {
		cfg.Model = "harmonics"
		cfg.SettingsPath = filepath.Join(dir, "settings.hcl")
		cfg.DumpSettings = true
	})

	// Assert
	require.NoError(t, result.Err)
	assert.Contains(t, result.Output, `model = "harmonics"`)
	assert.Contains(t, result.Output, "ind_min = 5")
	assert.Contains(t, result.Output, "ind_max = 100")
	assert.NotContains(t, result.Output, "highest_peak")
}

func TestRun_BundleDirectory(t *testing.T) {
	// Arrange
	files := map[string]string{
		"bundles/02.yaml": "name: second\ndata:\n  - name: A\n    origin: det\n    data: [[2]]\n",
		"bundles/01.yaml": "name: first\ndata:\n  - name: A\n    origin: det\n    data: [[1]]\n",
		"bundles/skip.txt": "not a bundle",
	}
	rec := &testutil.RecorderModel{}

	// Act
	result := apptest.RunIntegrationTest(t, files, "", func(dir string, cfg *app.Config) {
		cfg.BundlePath = filepath.Join(dir, "bundles")
		cfg.Model = "recorder"
	}, rec.Module())

	// Assert
	require.NoError(t, result.Err)
	out := decodeAll(t, result.Output)
	require.Len(t, out, 2)
	assert.Equal(t, "r:first", out[0].Name)
	assert.Equal(t, "r:second", out[1].Name)
}
