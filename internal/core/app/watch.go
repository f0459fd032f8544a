package app

import (
	"context"
	"log/slog"
	"os"
	"sort"

	"ngasync/internal/core/config"
	"ngasync/internal/core/watcher"
	"ngasync/internal/shared/observability"
)

// StartWatcher watches the configured inputs and reprocesses changed files
// until ctx is done or StopWatcher is called. configPath enables config
// reload when watch.reload_config is set and the file exists.
func (a *App) StartWatcher(ctx context.Context, configPath string) error {
	cfg := a.Config()
	w, err := watcher.NewWatcher(watcher.Options{
		Debounce:     cfg.Watch.Debounce,
		ExcludeDirs:  cfg.Exclude.Dirs,
		ExcludeFiles: cfg.Exclude.Files,
		Extensions:   a.Parser.SupportedExtensions(),
		Ignore:       a.isGenerated,
	}, func(paths []string) {
		a.HandleChanges(ctx, paths)
	})
	if err != nil {
		return err
	}
	if err := w.Watch(uniqueRoots(a.Paths.InputPaths)); err != nil {
		_ = w.Close()
		return err
	}
	a.activeWatcher = w

	if cfg.Watch.ReloadConfig && configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			cw := config.NewWatcher(configPath, a.ReloadConfig)
			if err := cw.Start(ctx); err != nil {
				slog.Warn("config reload disabled", "path", configPath, "error", err)
			} else {
				a.configWatcher = cw
			}
		}
	}
	slog.Info("watching for changes", "paths", a.Paths.InputPaths)
	return nil
}

func (a *App) StopWatcher() {
	if a.configWatcher != nil {
		a.configWatcher.Stop()
		a.configWatcher = nil
	}
	if a.activeWatcher != nil {
		_ = a.activeWatcher.Close()
		a.activeWatcher = nil
	}
}

// HandleChanges reprocesses a batch of changed paths. Bursts beyond the
// configured rebuild rate wait for the limiter.
func (a *App) HandleChanges(ctx context.Context, paths []string) Summary {
	if a.limiter != nil && !a.limiter.Allow(1) {
		observability.RebuildsThrottledTotal.Inc()
		slog.Debug("rebuild throttled", "files", len(paths))
		if err := a.limiter.Wait(ctx, 1); err != nil {
			return Summary{RunID: a.runID}
		}
	}

	files := make([]string, 0, len(paths))
	for _, p := range paths {
		if a.Accepts(p) {
			files = append(files, p)
		}
	}
	sort.Strings(files)
	if len(files) == 0 {
		return Summary{RunID: a.runID}
	}
	slog.Info("reprocessing changed files", "files", len(files))
	return a.processBatch(ctx, files)
}

// ReloadConfig applies transform and filter settings from cfg. Path and
// output settings need a restart.
func (a *App) ReloadConfig(cfg *config.Config) {
	a.mu.Lock()
	defer a.mu.Unlock()

	prev := a.Config()
	if cfg.Output != prev.Output || cfg.Paths != prev.Paths {
		slog.Warn("output and path settings change on restart only")
	}
	next := *prev
	next.Transform = cfg.Transform
	next.Input.Include = cfg.Input.Include
	next.Exclude = cfg.Exclude
	next.Watch.Debounce = cfg.Watch.Debounce
	s, err := compileSettings(&next)
	if err != nil {
		slog.Warn("ignoring reloaded config", "error", err)
		return
	}
	a.current.Store(s)
	if a.activeWatcher != nil {
		a.activeWatcher.SetDebounce(cfg.Watch.Debounce)
	}
	slog.Info("config reloaded", "helper", cfg.Transform.HelperName, "strip_awaitless", cfg.Transform.StripAwaitless)
}
