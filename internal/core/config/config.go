package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const DefaultFileName = "ngasync.toml"

type Config struct {
	Version       int                 `toml:"version"`
	Paths         Paths               `toml:"paths"`
	Input         Input               `toml:"input"`
	Exclude       Exclude             `toml:"exclude"`
	Output        Output              `toml:"output"`
	Transform     Transform           `toml:"transform"`
	Languages     map[string]Language `toml:"languages"`
	Watch         Watch               `toml:"watch"`
	Cache         Cache               `toml:"cache"`
	Observability Observability       `toml:"observability"`
}

type Paths struct {
	ProjectRoot string `toml:"project_root"`
	StateDir    string `toml:"state_dir"`
}

type Input struct {
	Paths []string `toml:"paths"`
	// Include narrows scanning to files matching any of these globs.
	Include []string `toml:"include"`
}

type Exclude struct {
	Dirs  []string `toml:"dirs"`
	Files []string `toml:"files"`
}

type Output struct {
	Dir     string `toml:"dir"`
	InPlace bool   `toml:"in_place"`
	// Suffix writes foo.js as foo<suffix>.js next to the input.
	Suffix string `toml:"suffix"`
}

type Transform struct {
	HelperName        string `toml:"helper_name"`
	StripAwaitless    bool   `toml:"strip_awaitless"`
	FailOnDiagnostics bool   `toml:"fail_on_diagnostics"`
}

type Language struct {
	Enabled    *bool    `toml:"enabled"`
	Extensions []string `toml:"extensions"`
}

type Watch struct {
	Debounce             time.Duration `toml:"debounce"`
	MaxRebuildsPerSecond float64       `toml:"max_rebuilds_per_second"`
	Burst                int           `toml:"burst"`
	ReloadConfig         bool          `toml:"reload_config"`
}

type Cache struct {
	Enabled     *bool         `toml:"enabled"`
	Path        string        `toml:"path"`
	BusyTimeout time.Duration `toml:"busy_timeout"`
}

func (c Cache) IsEnabled() bool {
	if c.Enabled == nil {
		return true
	}
	return *c.Enabled
}

type Observability struct {
	Enabled       bool   `toml:"enabled"`
	Port          int    `toml:"port"`
	OTLPEndpoint  string `toml:"otlp_endpoint"`
	EnableTracing bool   `toml:"enable_tracing"`
	EnableMetrics bool   `toml:"enable_metrics"`
}

// DefaultConfig is used when no config file exists.
func DefaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes, defaults and validates a TOML document.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	applyDefaults(&cfg)
	normalize(&cfg)

	if err := validateVersion(&cfg); err != nil {
		return nil, err
	}
	if err := validateTransform(&cfg); err != nil {
		return nil, err
	}
	if err := validateOutput(&cfg); err != nil {
		return nil, err
	}
	if err := validatePatterns(&cfg); err != nil {
		return nil, err
	}
	if err := validateLanguages(&cfg); err != nil {
		return nil, err
	}
	if err := validateWatch(&cfg); err != nil {
		return nil, err
	}
	if err := validateObservability(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}

	if strings.TrimSpace(cfg.Paths.StateDir) == "" {
		cfg.Paths.StateDir = ".ngasync"
	}
	if len(cfg.Input.Paths) == 0 {
		cfg.Input.Paths = []string{"."}
	}
	if len(cfg.Exclude.Dirs) == 0 {
		cfg.Exclude.Dirs = []string{"node_modules", ".git", ".ngasync"}
	}

	if !cfg.Output.InPlace && strings.TrimSpace(cfg.Output.Suffix) == "" && strings.TrimSpace(cfg.Output.Dir) == "" {
		cfg.Output.Dir = "out"
	}

	if strings.TrimSpace(cfg.Transform.HelperName) == "" {
		cfg.Transform.HelperName = "_ngAsyncToGenerator"
	}

	// Default debounce if not set.
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 300 * time.Millisecond
	}
	if cfg.Watch.MaxRebuildsPerSecond <= 0 {
		cfg.Watch.MaxRebuildsPerSecond = 4
	}
	if cfg.Watch.Burst <= 0 {
		cfg.Watch.Burst = 1
	}

	if strings.TrimSpace(cfg.Cache.Path) == "" {
		cfg.Cache.Path = "cache.db"
	}
	if cfg.Cache.BusyTimeout <= 0 {
		cfg.Cache.BusyTimeout = 5 * time.Second
	}

	if cfg.Observability.Port == 0 {
		cfg.Observability.Port = 9464
	}
	if strings.TrimSpace(cfg.Observability.OTLPEndpoint) == "" {
		cfg.Observability.OTLPEndpoint = "localhost:4317"
	}
}

func normalize(cfg *Config) {
	cfg.Paths.ProjectRoot = strings.TrimSpace(cfg.Paths.ProjectRoot)
	cfg.Paths.StateDir = strings.TrimSpace(cfg.Paths.StateDir)
	cfg.Output.Dir = strings.TrimSpace(cfg.Output.Dir)
	cfg.Output.Suffix = strings.TrimSpace(cfg.Output.Suffix)
	cfg.Transform.HelperName = strings.TrimSpace(cfg.Transform.HelperName)
	cfg.Input.Paths = trimAll(cfg.Input.Paths)
	cfg.Input.Include = trimAll(cfg.Input.Include)
	cfg.Exclude.Dirs = trimAll(cfg.Exclude.Dirs)
	cfg.Exclude.Files = trimAll(cfg.Exclude.Files)
}

func trimAll(values []string) []string {
	out := values[:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
