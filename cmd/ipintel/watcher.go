package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/TomasB/ipintel/internal/intel"
)

// Writes from the build pipeline arrive as a burst, one per index
// file; reload once after the burst settles.
const reloadDebounce = 5 * time.Second

// watchDataDir triggers an orchestrator reload whenever the data
// directory changes. The returned stop function releases the watcher.
func watchDataDir(dir string, orch *intel.Orchestrator) (stop func(), err error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}

	go func() {
		var timer *time.Timer
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				slog.Debug("data file changed", "file", event.Name, "op", event.Op.String())
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(reloadDebounce, func() {
					status, err := orch.Reload(context.Background())
					if err != nil {
						slog.Error("automatic reload failed", "error", err)
						return
					}
					slog.Info("automatic reload finished", "status", status)
				})
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Warn("data watcher error", "error", err)
			}
		}
	}()

	slog.Info("watching data directory for changes", "dir", dir)
	return func() { watcher.Close() }, nil
}
