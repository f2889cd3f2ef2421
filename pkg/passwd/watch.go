package passwd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/marmos91/aund/internal/logger"
)

// Watch reloads the file whenever it changes on disk, until ctx is done.
// The containing directory is watched, since rewrites replace the file.
func (f *File) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch password file: %w", err)
	}
	defer w.Close()

	target := filepath.Clean(f.path)
	if err := w.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(target), err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if err := f.Reload(); err != nil {
				logger.Warn("Password file reload failed", "path", f.path, "error", err)
				continue
			}
			logger.Debug("Password file reloaded", "path", f.path)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Password file watcher error", "error", err)
		}
	}
}
