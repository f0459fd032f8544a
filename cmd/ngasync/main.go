package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"ngasync/internal/core/app"
	"ngasync/internal/core/config"
	"ngasync/internal/shared/observability"
	"ngasync/internal/shared/version"
)

const defaultConfigPath = "./" + config.DefaultFileName

type cliFlags struct {
	configPath string
	outDir     string
	stdout     bool
	watch      bool
	ui         bool
	check      bool
	verbose    bool
	version    bool
	paths      []string
}

func parseFlags(args []string, stderr io.Writer) (cliFlags, error) {
	var f cliFlags
	fs := flag.NewFlagSet("ngasync", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&f.configPath, "config", defaultConfigPath, "Path to config file")
	fs.StringVar(&f.outDir, "out", "", "Write output under this directory")
	fs.BoolVar(&f.stdout, "stdout", false, "Print rewritten code to stdout instead of writing files")
	fs.BoolVar(&f.watch, "watch", false, "Keep running and reprocess changed files")
	fs.BoolVar(&f.ui, "ui", false, "Enable terminal UI mode (implies -watch)")
	fs.BoolVar(&f.check, "check", false, "Report without writing; fail on diagnostics")
	fs.BoolVar(&f.verbose, "verbose", false, "Enable verbose logging")
	fs.BoolVar(&f.version, "version", false, "Print version and exit")
	if err := fs.Parse(args); err != nil {
		return f, err
	}
	f.paths = fs.Args()
	if f.ui {
		f.watch = true
	}
	if f.stdout && f.watch {
		return f, fmt.Errorf("-stdout cannot be combined with -watch or -ui")
	}
	if f.check && f.watch {
		return f, fmt.Errorf("-check cannot be combined with -watch or -ui")
	}
	return f, nil
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	f, err := parseFlags(args, os.Stderr)
	if err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	if f.version {
		fmt.Printf("ngasync v%s\n", version.Version)
		return 0
	}

	setupLogging(f)

	cfg, err := loadConfig(f.configPath)
	if err != nil {
		slog.Error("failed to load config", "path", f.configPath, "error", err)
		return 1
	}
	applyFlags(cfg, f)
	if errs := config.Validate(cfg); len(errs) > 0 {
		for _, e := range errs {
			slog.Error("invalid config", "error", e)
		}
		return 1
	}

	cwd, err := os.Getwd()
	if err != nil {
		slog.Error("failed to resolve working directory", "error", err)
		return 1
	}
	paths, err := config.ResolvePaths(cfg, cwd)
	if err != nil {
		slog.Error("failed to resolve paths", "error", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown := startObservability(ctx, cfg)
	defer shutdown()

	opts := app.Options{DryRun: f.check}
	if f.stdout {
		opts.Stdout = os.Stdout
	}
	a, err := app.New(cfg, paths, opts)
	if err != nil {
		slog.Error("failed to initialize app", "error", err)
		return 1
	}
	defer a.Close()
	if cfg.Observability.Enabled {
		srv := observability.NewServer(fmt.Sprintf(":%d", cfg.Observability.Port), cfg.Observability.EnableMetrics, a.Health)
		if err := srv.Start(); err == nil {
			defer func() {
				stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				_ = srv.Stop(stopCtx)
			}()
		}
	}

	summary, err := a.Run(ctx, nil)
	if err != nil {
		slog.Error("run failed", "error", err)
		return 1
	}
	if !f.ui && !f.stdout {
		fmt.Print(formatSummary(summary, paths.ProjectRoot))
	}

	if !f.watch {
		if err := summary.Err(cfg.Transform.FailOnDiagnostics); err != nil {
			slog.Error("run finished with errors", "error", err)
			return 1
		}
		return 0
	}

	configPath := ""
	if _, err := os.Stat(f.configPath); err == nil {
		configPath = f.configPath
	}
	if f.ui {
		return runUI(ctx, a, configPath, paths.ProjectRoot)
	}

	a.SetUpdateHandler(func(u app.Update) {
		fmt.Print(formatSummary(u.Summary, paths.ProjectRoot))
	})
	if err := a.StartWatcher(ctx, configPath); err != nil {
		slog.Error("failed to start watcher", "error", err)
		return 1
	}
	<-ctx.Done()
	return 0
}

// loadConfig reads path, falling back to defaults when the default config
// file is absent.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		if path != defaultConfigPath || !os.IsNotExist(err) {
			return nil, err
		}
		slog.Debug("no config file, using defaults", "path", path)
		cfg = config.DefaultConfig()
	}
	config.ApplyEnvOverrides(cfg)
	return cfg, nil
}

func applyFlags(cfg *config.Config, f cliFlags) {
	if len(f.paths) > 0 {
		cfg.Input.Paths = f.paths
	}
	if f.outDir != "" {
		cfg.Output.Dir = f.outDir
		cfg.Output.InPlace = false
		cfg.Output.Suffix = ""
	}
	if f.check {
		cfg.Transform.FailOnDiagnostics = true
	}
}

func setupLogging(f cliFlags) {
	level := slog.LevelInfo
	if f.verbose {
		level = slog.LevelDebug
	}

	var output io.Writer = os.Stderr
	if f.ui {
		// Keep logs out of the TUI.
		logPath := resolveLogPath()
		if err := os.MkdirAll(filepath.Dir(logPath), 0o700); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to create log dir for %s: %v\n", logPath, err)
		} else if fi, err := os.Lstat(logPath); err == nil && fi.Mode()&os.ModeSymlink != 0 {
			fmt.Fprintf(os.Stderr, "warning: refusing to write logs to symlink path %s\n", logPath)
		} else if file, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600); err == nil {
			output = file
		} else {
			fmt.Fprintf(os.Stderr, "warning: failed to open log file %s: %v\n", logPath, err)
		}
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{Level: level})))
}

func resolveLogPath() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "ngasync", "ngasync.log")
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return filepath.Join(home, ".local", "state", "ngasync", "ngasync.log")
	}
	return "ngasync.log"
}

// startObservability installs the trace exporter when configured and
// returns its shutdown.
func startObservability(ctx context.Context, cfg *config.Config) func() {
	if !cfg.Observability.Enabled || !cfg.Observability.EnableTracing {
		return func() {}
	}
	shutdown, err := observability.InitTracing(ctx, cfg.Observability.OTLPEndpoint)
	if err != nil {
		slog.Warn("tracing disabled", "error", err)
		return func() {}
	}
	return func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := shutdown(stopCtx); err != nil {
			slog.Debug("trace exporter shutdown", "error", err)
		}
	}
}
