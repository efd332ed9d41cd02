package events

import (
	"context"
	"fmt"
	"path/filepath"

	"cloudeng.io/logging/ctxlog"
	"github.com/fsnotify/fsnotify"
)

// Watch reports changes to any of paths until ctx is done. The directories
// holding the files are watched rather than the files themselves so that
// editors which replace a file by renaming over it are still seen. Bursts of
// changes coalesce into a single notification.
func Watch(ctx context.Context, paths ...string) (<-chan string, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	targets := map[string]bool{}
	dirs := map[string]bool{}
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			w.Close()
			return nil, err
		}
		targets[abs] = true
		dir := filepath.Dir(abs)
		if dirs[dir] {
			continue
		}
		if err := w.Add(dir); err != nil {
			w.Close()
			return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		dirs[dir] = true
	}

	changed := make(chan string, 1)
	logger := ctxlog.Logger(ctx)
	go func() {
		defer close(changed)
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if !targets[filepath.Clean(ev.Name)] {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
					continue
				}
				logger.Debug("events file changed", "path", ev.Name, "op", ev.Op.String())
				select {
				case changed <- ev.Name:
				default:
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Warn("events watcher error", "error", err)
			}
		}
	}()
	return changed, nil
}
