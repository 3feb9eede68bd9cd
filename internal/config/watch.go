package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"meditimer/internal/timer"
)

// reloadDebounce collapses the burst of events editors emit on save.
const reloadDebounce = 200 * time.Millisecond

// WatchPresets reloads the preset list from path into catalog whenever the
// file changes, until ctx is done. Invalid edits are logged and the previous
// presets stay in effect.
func WatchPresets(ctx context.Context, path string, catalog *timer.Catalog, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	// Watch the directory: editors often replace the file rather than write it.
	abs, err := filepath.Abs(path)
	if err != nil {
		w.Close()
		return fmt.Errorf("resolve config path: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	go func() {
		defer w.Close()
		var pending <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != abs {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				pending = time.After(reloadDebounce)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Warn("config: watch error", "error", err)
			case <-pending:
				pending = nil
				presets, err := LoadPresets(abs)
				if err != nil {
					logger.Warn("config: preset reload rejected", "path", abs, "error", err)
					continue
				}
				if err := catalog.Replace(presets); err != nil {
					logger.Warn("config: preset reload rejected", "path", abs, "error", err)
					continue
				}
				logger.Info("config: presets reloaded", "path", abs, "count", len(presets))
			}
		}
	}()

	return nil
}
