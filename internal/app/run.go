package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/vk/datamixer/internal/config"
	"github.com/vk/datamixer/internal/ctxlog"
	"github.com/vk/datamixer/internal/dataset"
	"github.com/vk/datamixer/internal/fsutil"
	"github.com/zclconf/go-cty/cty"
	"golang.org/x/sync/errgroup"
)

// Run selects the model, applies the configured settings and streams every
// input bundle through the mixer, writing results to the output stream. It
// returns when the input is exhausted, ctx is done, or a stream fails.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if err := a.prepare(ctx); err != nil {
		return err
	}
	if a.config.DumpSettings {
		return a.dumpSettings(ctx)
	}

	if a.config.HealthcheckPort > 0 {
		a.startHealthcheckServer(a.config.HealthcheckPort)
		defer a.closeHealthcheckServer()
	}

	sources, err := a.inputSources()
	if err != nil {
		return err
	}

	bundles := make(chan *dataset.Bundle)
	results := make(chan *dataset.Bundle)
	a.mixer.Subscribe(func(ctx context.Context, out *dataset.Bundle) {
		select {
		case results <- out:
		case <-ctx.Done():
		}
	})

	a.logger.Info("🚀 Streaming bundles...", "model", a.mixer.Active(), "input", a.config.BundlePath)
	g, gctx := errgroup.WithContext(ctx)
	watchCtx, stopWatch := context.WithCancel(gctx)
	defer stopWatch()

	g.Go(func() error {
		defer close(bundles)
		for _, open := range sources {
			if err := readSource(gctx, open, bundles); err != nil {
				return err
			}
		}
		return nil
	})
	g.Go(func() error {
		defer close(results)
		defer stopWatch()
		return a.mixer.Run(gctx, bundles)
	})
	g.Go(func() error {
		return a.writeResults(results)
	})
	if a.config.Watch {
		g.Go(func() error {
			return a.watchSettings(watchCtx, a.config.SettingsPath)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	a.logger.Info("🏁 Stream finished.")
	return nil
}

// prepare selects the model and applies the settings file and formula flag.
func (a *App) prepare(ctx context.Context) error {
	var sf *config.SettingsFile
	if a.config.SettingsPath != "" {
		var err error
		if sf, err = a.loadSettings(ctx); err != nil {
			return err
		}
	}

	if err := a.mixer.Select(ctx, a.modelName(sf)); err != nil {
		return err
	}
	if sf != nil {
		if err := a.applySettings(ctx, sf, false); err != nil {
			return err
		}
	}
	if a.config.Formula != "" {
		if err := a.mixer.UpdateSetting(ctx, "edit_formula", cty.StringVal(a.config.Formula)); err != nil {
			return fmt.Errorf("--formula needs a model with an edit_formula option: %w", err)
		}
	}
	return nil
}

// source opens one bundle stream.
type source func() (io.ReadCloser, error)

// inputSources resolves BundlePath: "-" is the input stream, a directory
// yields every YAML or JSON file below it in lexical order.
func (a *App) inputSources() ([]source, error) {
	path := a.config.BundlePath
	if path == StdinPath {
		in := a.streams.In
		if in == nil {
			in = os.Stdin
		}
		return []source{func() (io.ReadCloser, error) { return io.NopCloser(in), nil }}, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open bundle stream: %w", err)
	}
	files := []string{path}
	if info.IsDir() {
		if files, err = fsutil.FindFilesByExtension(path, ".yaml", ".yml", ".json"); err != nil {
			return nil, fmt.Errorf("failed to open bundle stream: %w", err)
		}
		if len(files) == 0 {
			return nil, fmt.Errorf("failed to open bundle stream: no bundle files in %s", path)
		}
		a.logger.Debug("Bundle directory resolved.", "path", path, "files", len(files))
	}

	sources := make([]source, 0, len(files))
	for _, file := range files {
		sources = append(sources, func() (io.ReadCloser, error) {
			f, err := os.Open(file)
			if err != nil {
				return nil, fmt.Errorf("failed to open bundle stream: %w", err)
			}
			return f, nil
		})
	}
	return sources, nil
}

func readSource(ctx context.Context, open source, out chan<- *dataset.Bundle) error {
	r, err := open()
	if err != nil {
		return err
	}
	defer r.Close()
	return readBundles(ctx, r, out)
}

func readBundles(ctx context.Context, r io.Reader, out chan<- *dataset.Bundle) error {
	dec := dataset.NewDecoder(r)
	for {
		b, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read bundle: %w", err)
		}
		select {
		case out <- b:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (a *App) writeResults(results <-chan *dataset.Bundle) error {
	enc := dataset.NewEncoder(a.streams.Out)
	for b := range results {
		if err := enc.Encode(b); err != nil {
			return fmt.Errorf("failed to write result bundle: %w", err)
		}
	}
	return enc.Close()
}
