package resource

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// reloadSettle lets an editor finish writing before the file is re-read.
const reloadSettle = 100 * time.Millisecond

// WatchCatalogue reloads the catalogue at path into store whenever the file
// changes, until ctx is cancelled. A file that fails to load is logged and the
// previous catalogue stays installed.
//
// The parent directory is watched so that editors which replace the file by
// rename are still seen.
func WatchCatalogue(ctx context.Context, path string, store *Store, logger *zap.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("resource: watch %s: %w", path, err)
	}
	defer w.Close()

	target := filepath.Clean(path)
	if err := w.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("resource: watch %s: %w", path, err)
	}

	var (
		timer   *time.Timer
		pending <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reloadSettle)
			} else {
				timer.Reset(reloadSettle)
			}
			pending = timer.C

		case <-pending:
			pending = nil
			if err := store.Reload(target); err != nil {
				logger.Warn("catalogue reload rejected", zap.String("path", target), zap.Error(err))
				continue
			}
			logger.Info("catalogue reloaded",
				zap.String("path", target),
				zap.Int("actor_types", store.Current().Len()))

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("catalogue watcher error", zap.Error(err))
		}
	}
}
