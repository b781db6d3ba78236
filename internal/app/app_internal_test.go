package app

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/datamixer/internal/hcl"
	"github.com/zclconf/go-cty/cty"
)

func newTestApp(t *testing.T, cfg *Config) *App {
	t.Helper()
	if cfg.LogLevel == "" {
		cfg.LogLevel = "error"
	}
	streams := Streams{Out: io.Discard, Log: io.Discard}
	return NewApp(streams, cfg, hcl.NewLoader(), hcl.NewConverter())
}

func TestHealthMux(t *testing.T) {
	// Arrange
	a := newTestApp(t, &Config{BundlePath: StdinPath})
	require.NoError(t, a.mixer.Select(context.Background(), "fit"))
	srv := httptest.NewServer(a.healthMux())
	defer srv.Close()

	// Act
	health, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer health.Body.Close()
	healthBody, _ := io.ReadAll(health.Body)

	metricsResp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer metricsResp.Body.Close()
	metricsBody, _ := io.ReadAll(metricsResp.Body)

	// Assert
	assert.Equal(t, http.StatusOK, health.StatusCode)
	assert.Equal(t, "OK fit\n", string(healthBody))
	assert.Equal(t, http.StatusOK, metricsResp.StatusCode)
	assert.Contains(t, string(metricsBody), "go_goroutines")
}

func TestCloseHealthcheckServer_NotRunning(t *testing.T) {
	a := newTestApp(t, &Config{BundlePath: StdinPath})
	assert.NoError(t, a.closeHealthcheckServer())
}

func TestModelName_Resolution(t *testing.T) {
	a := newTestApp(t, &Config{BundlePath: StdinPath})
	assert.Equal(t, DefaultModel, a.modelName(nil))

	a.config.Model = "fit"
	assert.Equal(t, "fit", a.modelName(nil))
}

func TestWatchSettings_ReloadsOnWrite(t *testing.T) {
	// Arrange
	path := filepath.Join(t.TempDir(), "settings.hcl")
	require.NoError(t, os.WriteFile(path, []byte("model = \"equation\"\n"), 0o600))
	a := newTestApp(t, &Config{BundlePath: StdinPath, SettingsPath: path, Watch: true})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, a.mixer.Select(ctx, "equation"))

	done := make(chan error, 1)
	go func() { done <- a.watchSettings(ctx, path) }()

	content := []byte(`
model = "equation"

settings "equation" {
  edit_formula = "{det/A}+1"
}
`)

	// Act & Assert
	// The file is rewritten on every tick since the watcher may not be
	// registered yet when the first write lands.
	assert.Eventually(t, func() bool {
		if err := os.WriteFile(path, content, 0o600); err != nil {
			return false
		}
		tree, err := a.mixer.Settings()
		if err != nil {
			return false
		}
		v, err := tree.Get("edit_formula")
		return err == nil && v.RawEquals(cty.StringVal("{det/A}+1"))
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop after cancel")
	}
}

func TestReloadSettings_KeepsPreviousValuesOnError(t *testing.T) {
	// Arrange
	path := filepath.Join(t.TempDir(), "settings.hcl")
	require.NoError(t, os.WriteFile(path, []byte(`settings "equation" {`), 0o600))
	a := newTestApp(t, &Config{BundlePath: StdinPath, SettingsPath: path})
	ctx := context.Background()
	require.NoError(t, a.mixer.Select(ctx, "equation"))
	require.NoError(t, a.mixer.UpdateSetting(ctx, "edit_formula", cty.StringVal("1+1")))

	// Act
	a.reloadSettings(ctx)

	// Assert
	tree, err := a.mixer.Settings()
	require.NoError(t, err)
	v, err := tree.Get("edit_formula")
	require.NoError(t, err)
	assert.True(t, v.RawEquals(cty.StringVal("1+1")))
}
