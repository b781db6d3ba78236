package app

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/vk/datamixer/internal/ctxlog"
)

// watchSettings reloads the settings file whenever it is written. It watches
// the parent directory so editors that replace the file are noticed too.
// It blocks until ctx is done.
func (a *App) watchSettings(ctx context.Context, path string) error {
	logger := ctxlog.FromContext(ctx)
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create settings watcher: %w", err)
	}
	defer watcher.Close()

	target := filepath.Clean(path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}
	logger.Info("Watching settings file.", "file", target)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			logger.Debug("Settings file changed.", "op", event.Op.String())
			a.reloadSettings(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Settings watcher error.", "error", err)

		case <-ctx.Done():
			logger.Debug("Settings watcher stopping.")
			return nil
		}
	}
}
