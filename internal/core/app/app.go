// Package app runs the lowering pipeline over a project: it scans inputs,
// consults the transform cache, rewrites files and reports results.
package app

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"ngasync/internal/core/config"
	"ngasync/internal/core/watcher"
	"ngasync/internal/data/cache"
	"ngasync/internal/engine/parser"
	"ngasync/internal/engine/transform"
	"ngasync/internal/shared/util"

	"github.com/gobwas/glob"
	"github.com/google/uuid"
)

type Options struct {
	// Stdout receives rewritten code instead of output files when set.
	Stdout io.Writer
	// DryRun transforms and reports without writing anything.
	DryRun bool
}

// Update is delivered to the update handler after every batch.
type Update struct {
	Summary Summary
	At      time.Time
}

// settings is the reloadable state. It is replaced as a whole on reload and
// never mutated after publication.
type settings struct {
	cfg          *config.Config
	include      []glob.Glob
	excludeDirs  []glob.Glob
	excludeFiles []glob.Glob
}

type App struct {
	Paths  config.ResolvedPaths
	Parser *parser.Parser

	opts    Options
	store   *cache.Store
	runID   string
	current atomic.Pointer[settings]

	// mu serializes batches and config reloads.
	mu sync.Mutex

	updateMu sync.RWMutex
	onUpdate func(Update)
	last     *Update

	limiter       *util.Limiter
	activeWatcher *watcher.Watcher
	configWatcher *config.Watcher
}

func New(cfg *config.Config, paths config.ResolvedPaths, opts Options) (*App, error) {
	registry, err := parser.BuildLanguageRegistry(config.LanguageOverrides(cfg))
	if err != nil {
		return nil, err
	}
	loader, err := parser.NewGrammarLoaderWithRegistry(registry)
	if err != nil {
		return nil, err
	}

	a := &App{
		Paths:  paths,
		Parser: parser.NewParser(loader),
		opts:   opts,
		runID:  uuid.NewString(),
	}
	s, err := compileSettings(cfg)
	if err != nil {
		return nil, err
	}
	a.current.Store(s)

	if cfg.Cache.IsEnabled() && !opts.DryRun {
		store, err := cache.Open(paths.CachePath, cfg.Cache.BusyTimeout)
		if err != nil {
			slog.Warn("transform cache unavailable, continuing without it", "path", paths.CachePath, "error", err)
		} else {
			a.store = store
		}
	}

	if cfg.Watch.MaxRebuildsPerSecond > 0 {
		burst := cfg.Watch.Burst
		if burst < 1 {
			burst = 1
		}
		a.limiter = util.NewLimiter(cfg.Watch.MaxRebuildsPerSecond, burst)
	}
	return a, nil
}

func compileSettings(cfg *config.Config) (*settings, error) {
	include, err := compileGlobs(cfg.Input.Include, "input include", '/')
	if err != nil {
		return nil, err
	}
	dirs, err := compileGlobs(cfg.Exclude.Dirs, "exclude dir")
	if err != nil {
		return nil, err
	}
	files, err := compileGlobs(cfg.Exclude.Files, "exclude file")
	if err != nil {
		return nil, err
	}
	return &settings{cfg: cfg, include: include, excludeDirs: dirs, excludeFiles: files}, nil
}

func compileGlobs(patterns []string, label string, separators ...rune) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p, separators...)
		if err != nil {
			return nil, fmt.Errorf("invalid %s pattern %q: %w", label, p, err)
		}
		out = append(out, g)
	}
	return out, nil
}

// Config returns the active configuration. Callers must not modify it.
func (a *App) Config() *config.Config {
	return a.current.Load().cfg
}

// RunID identifies this process in cache rows.
func (a *App) RunID() string {
	return a.runID
}

func (a *App) transformOptions() transform.Options {
	cfg := a.Config()
	return transform.Options{
		HelperName:     cfg.Transform.HelperName,
		StripAwaitless: cfg.Transform.StripAwaitless,
	}
}

func (a *App) SetUpdateHandler(handler func(Update)) {
	a.updateMu.Lock()
	defer a.updateMu.Unlock()
	a.onUpdate = handler
}

func (a *App) publish(s Summary) {
	u := Update{Summary: s, At: time.Now()}
	a.updateMu.Lock()
	a.last = &u
	handler := a.onUpdate
	a.updateMu.Unlock()
	if handler != nil {
		handler(u)
	}
}

// LastUpdate returns the most recent batch, if any.
func (a *App) LastUpdate() (Update, bool) {
	a.updateMu.RLock()
	defer a.updateMu.RUnlock()
	if a.last == nil {
		return Update{}, false
	}
	return *a.last, true
}

// Health reports pipeline state for the observability server.
func (a *App) Health() map[string]any {
	status := map[string]any{
		"run_id":    a.runID,
		"languages": a.Parser.SupportedExtensions(),
	}
	if a.store != nil {
		status["cache"] = "ok"
	} else if a.Config().Cache.IsEnabled() {
		status["cache"] = "unavailable"
	} else {
		status["cache"] = "disabled"
	}
	if u, ok := a.LastUpdate(); ok {
		status["last_batch"] = u.At.UTC().Format(time.RFC3339)
		status["last_batch_files"] = len(u.Summary.Files)
		status["last_batch_failed"] = u.Summary.Failed
	}
	return status
}

func (a *App) Close() error {
	a.StopWatcher()
	if a.store != nil {
		return a.store.Close()
	}
	return nil
}
