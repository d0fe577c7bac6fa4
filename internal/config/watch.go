package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"json-decode-bench/internal/domain"
)

// watchDebounce coalesces bursts of writes from editors.
const watchDebounce = 100 * time.Millisecond

// Watch reloads settings whenever the store's file changes on disk and
// passes them to onChange. It blocks until ctx is done. The parent
// directory is watched so that atomic replace-on-save is seen too.
func Watch(ctx context.Context, store *JSONStore, logger *slog.Logger, onChange func(domain.Settings)) error {
	if logger == nil {
		logger = slog.Default()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create settings watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(store.Path())
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	target := filepath.Clean(store.Path())
	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				pending = time.After(watchDebounce)
			}

		case <-pending:
			pending = nil
			settings, err := store.Load()
			if err != nil {
				logger.Warn("reload settings", slog.String("path", target), slog.String("error", err.Error()))
				continue
			}
			onChange(settings)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("settings watcher error", slog.String("error", err.Error()))
		}
	}
}
