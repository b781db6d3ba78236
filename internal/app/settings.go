package app

import (
	"context"
	"fmt"

	"github.com/vk/datamixer/internal/config"
	"github.com/vk/datamixer/internal/ctxlog"
)

func (a *App) loadSettings(ctx context.Context) (*config.SettingsFile, error) {
	sf, err := a.loader.LoadSettings(ctx, a.config.SettingsPath, a.registry.DefinitionRegistry)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	return sf, nil
}

// modelName resolves the model to run: the flag wins over the settings file.
func (a *App) modelName(sf *config.SettingsFile) string {
	if a.config.Model != "" {
		return a.config.Model
	}
	if sf != nil && sf.Model != "" {
		return sf.Model
	}
	return DefaultModel
}

// applySettings pushes the values of sf for the active model into the mixer.
// With allowSwitch set, a settings file naming another model selects it
// first, unless the model was pinned on the command line.
func (a *App) applySettings(ctx context.Context, sf *config.SettingsFile, allowSwitch bool) error {
	logger := ctxlog.FromContext(ctx)
	if allowSwitch && a.config.Model == "" && sf.Model != "" && sf.Model != a.mixer.Active() {
		logger.Info("Settings file selects another model.", "from", a.mixer.Active(), "to", sf.Model)
		if err := a.mixer.Select(ctx, sf.Model); err != nil {
			return err
		}
	}

	active := a.mixer.Active()
	values := sf.Values[active]
	if len(values) == 0 {
		logger.Debug("Settings file has no values for the active model.", "model", active)
		return nil
	}
	if err := a.mixer.ApplySettings(ctx, values); err != nil {
		return fmt.Errorf("failed to apply settings for model '%s': %w", active, err)
	}
	logger.Info("Settings applied.", "model", active, "values", len(values))
	return nil
}

// reloadSettings re-reads the settings file. Errors are logged and the
// previous values stay in effect.
func (a *App) reloadSettings(ctx context.Context) {
	logger := ctxlog.FromContext(ctx)
	sf, err := a.loadSettings(ctx)
	if err == nil {
		err = a.applySettings(ctx, sf, true)
	}
	if err != nil {
		logger.Warn("Settings reload failed.", "file", a.config.SettingsPath, "error", err)
	}
}

// dumpSettings writes the live settings of the active model to the output
// stream as a settings file.
func (a *App) dumpSettings(ctx context.Context) error {
	tree, err := a.mixer.Settings()
	if err != nil {
		return err
	}
	return a.loader.WriteSettings(ctx, a.streams.Out, tree.Definition(), tree.Snapshot().Values())
}
