package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/vk/datamixer/internal/config"
	"github.com/vk/datamixer/internal/ctxlog"
	"github.com/vk/datamixer/internal/mixer"
	"github.com/vk/datamixer/internal/registry"
)

// Streams are the process-level endpoints of an App.
type Streams struct {
	In  io.Reader // read when BundlePath is "-"
	Out io.Writer // result bundles
	Log io.Writer
}

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	streams    Streams
	logger     *slog.Logger
	config     *Config
	registry   *registry.Registry
	loader     config.Loader
	mixer      *mixer.Mixer
	httpServer *http.Server
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance, including its own isolated logger and registry.
// A manifest that fails to load or to match its Go settings struct is a
// programmer error and panics.
func NewApp(streams Streams, appConfig *Config, loader config.Loader, converter config.Converter, modules ...registry.Module) *App {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, streams.Log)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	reg := registry.New()
	if len(modules) == 0 {
		modules = coreModules
	}
	for _, mod := range modules {
		mod.Register(reg)
	}
	logger.Debug("All Go modules registered.", "count", len(modules))

	if err := reg.LoadDefinitions(ctx, loader); err != nil {
		panic(fmt.Errorf("failed to load model manifests: %w", err))
	}
	logger.Debug("Model manifests loaded.")

	if err := reg.ValidateRegistry(ctx); err != nil {
		panic(err)
	}
	logger.Debug("Registry validation passed.")

	return &App{
		streams:  streams,
		logger:   logger,
		config:   appConfig,
		registry: reg,
		loader:   loader,
		mixer:    mixer.New(reg, converter, mixer.Options{ProcessTimeout: appConfig.ProcessTimeout}),
	}
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Mixer returns the application's mixer. This is primarily for testing.
func (a *App) Mixer() *mixer.Mixer {
	return a.mixer
}
