// Package apptest runs the whole application against in-memory streams.
package apptest

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/datamixer/internal/app"
	"github.com/vk/datamixer/internal/hcl"
	"github.com/vk/datamixer/internal/registry"
	"github.com/vk/datamixer/internal/testutil"
)

// HarnessResult holds the outcomes of an integration test run.
type HarnessResult struct {
	LogOutput string
	Output    string
	Err       error
	App       *app.App
}

// WriteFiles writes files (relative path to content) under a fresh temporary
// directory and returns that directory.
func WriteFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

// RunIntegrationTest provides a standardized harness for running the app
// using a default background context.
func RunIntegrationTest(t *testing.T, files map[string]string, input string, configure func(dir string, cfg *app.Config), modules ...registry.Module) *HarnessResult {
	t.Helper()
	return RunIntegrationTestWithContext(context.Background(), t, files, input, configure, modules...)
}

// RunIntegrationTestWithContext writes files to a temporary directory, builds
// the app with the given modules (core modules when none) and runs it with
// input as standard input. configure may adjust the config, which starts as
// debug text logging reading "-".
func RunIntegrationTestWithContext(ctx context.Context, t *testing.T, files map[string]string, input string, configure func(dir string, cfg *app.Config), modules ...registry.Module) *HarnessResult {
	t.Helper()

	dir := WriteFiles(t, files)
	cfg := &app.Config{
		BundlePath: app.StdinPath,
		LogLevel:   "debug",
		LogFormat:  "text",
	}
	if configure != nil {
		configure(dir, cfg)
	}

	logBuffer := &testutil.SafeBuffer{}
	out := &bytes.Buffer{}
	streams := app.Streams{In: strings.NewReader(input), Out: out, Log: logBuffer}

	var testApp *app.App
	var panicErr any
	func() {
		defer func() {
			if r := recover(); r != nil {
				if os.Getenv("BGGO_TEST_LOGS") == "true" {
					t.Logf("--- HARNESS RECOVERED PANIC ---\n%q", fmt.Sprintf("%v", r))
				}
				panicErr = r
			}
		}()
		testApp = app.NewApp(streams, cfg, hcl.NewLoader(), hcl.NewConverter(), modules...)
	}()

	if panicErr != nil {
		return &HarnessResult{
			LogOutput: logBuffer.String(),
			Err:       fmt.Errorf("application startup panicked | %v", panicErr),
		}
	}

	runErr := testApp.Run(ctx)

	if os.Getenv("BGGO_TEST_LOGS") == "true" {
		t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
	}

	return &HarnessResult{
		LogOutput: logBuffer.String(),
		Output:    out.String(),
		Err:       runErr,
		App:       testApp,
	}
}
