package heuristics

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"pmcbot/internal/contextutil"
)

const reloadDebounce = 250 * time.Millisecond

// Watch reloads path into p whenever the file changes, until ctx is cancelled.
// The parent directory is watched so editors that replace the file by rename
// are picked up. A file that fails to parse leaves the previous snapshot in place.
func Watch(ctx context.Context, path string, p *Provider) error {
	logger := contextutil.LoggerFromContext(ctx)

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve heuristics path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch heuristics directory: %w", err)
	}

	go func() {
		defer watcher.Close()

		var timer *time.Timer
		var fire <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != abs {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.NewTimer(reloadDebounce)
				fire = timer.C
			case <-fire:
				fire = nil
				rules, err := Load(abs)
				if err != nil {
					logger.WarnContext(ctx, "heuristics reload failed, keeping previous rules", "path", abs, "error", err)
					continue
				}
				p.Store(rules)
				logger.InfoContext(ctx, "heuristics reloaded", "path", abs)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.WarnContext(ctx, "heuristics watcher error", "error", err)
			}
		}
	}()

	return nil
}
