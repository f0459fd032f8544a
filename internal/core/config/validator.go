package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"ngasync/internal/engine/parser"

	"github.com/gobwas/glob"
)

var helperNamePattern = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*(\.[A-Za-z_$][A-Za-z0-9_$]*)*$`)

// Validate runs every check and returns all failures, including checks on
// the file system that Load skips.
func Validate(cfg *Config) []error {
	var errs []error
	for _, check := range []func(*Config) error{
		validateVersion,
		validateTransform,
		validateOutput,
		validatePatterns,
		validateLanguages,
		validateWatch,
		validateObservability,
	} {
		if err := check(cfg); err != nil {
			errs = append(errs, err)
		}
	}
	for i, p := range cfg.Input.Paths {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			errs = append(errs, fmt.Errorf("input.paths[%d] %q does not exist", i, p))
		}
	}
	return errs
}

func validateVersion(cfg *Config) error {
	if cfg.Version < 1 {
		return fmt.Errorf("version must be >= 1, got %d", cfg.Version)
	}
	if cfg.Version > 1 {
		return fmt.Errorf("unsupported config version %d; supported version is 1", cfg.Version)
	}
	return nil
}

func validateTransform(cfg *Config) error {
	if !helperNamePattern.MatchString(cfg.Transform.HelperName) {
		return fmt.Errorf("transform.helper_name %q is not a valid identifier or member path", cfg.Transform.HelperName)
	}
	return nil
}

func validateOutput(cfg *Config) error {
	out := cfg.Output
	if out.InPlace && out.Suffix != "" {
		return fmt.Errorf("output.in_place cannot be set alongside output.suffix")
	}
	if !out.InPlace && out.Suffix == "" && out.Dir == "" {
		return fmt.Errorf("output.dir must not be empty unless output.in_place or output.suffix is set")
	}
	if strings.ContainsAny(out.Suffix, `/\`) {
		return fmt.Errorf("output.suffix %q must not contain path separators", out.Suffix)
	}
	return nil
}

func validatePatterns(cfg *Config) error {
	groups := map[string][]string{
		"input.include": cfg.Input.Include,
		"exclude.files": cfg.Exclude.Files,
	}
	for _, name := range []string{"input.include", "exclude.files"} {
		for i, pattern := range groups[name] {
			if _, err := glob.Compile(pattern, '/'); err != nil {
				return fmt.Errorf("%s[%d] %q is not a valid glob: %w", name, i, pattern, err)
			}
		}
	}
	return nil
}

func validateLanguages(cfg *Config) error {
	_, err := parser.BuildLanguageRegistry(LanguageOverrides(cfg))
	if err != nil {
		return fmt.Errorf("languages: %w", err)
	}
	return nil
}

func validateWatch(cfg *Config) error {
	if cfg.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative")
	}
	if cfg.Watch.MaxRebuildsPerSecond > 1000 {
		return fmt.Errorf("watch.max_rebuilds_per_second must be <= 1000, got %v", cfg.Watch.MaxRebuildsPerSecond)
	}
	return nil
}

func validateObservability(cfg *Config) error {
	if !cfg.Observability.Enabled {
		return nil
	}
	if cfg.Observability.Port < 1 || cfg.Observability.Port > 65535 {
		return fmt.Errorf("observability.port must be between 1 and 65535, got %d", cfg.Observability.Port)
	}
	if cfg.Observability.EnableTracing && strings.TrimSpace(cfg.Observability.OTLPEndpoint) == "" {
		return fmt.Errorf("observability.otlp_endpoint must not be empty when tracing is enabled")
	}
	return nil
}

// LanguageOverrides converts the [languages] table to parser overrides.
func LanguageOverrides(cfg *Config) map[string]parser.LanguageOverride {
	if len(cfg.Languages) == 0 {
		return nil
	}
	out := make(map[string]parser.LanguageOverride, len(cfg.Languages))
	for id, lang := range cfg.Languages {
		out[strings.ToLower(strings.TrimSpace(id))] = parser.LanguageOverride{
			Enabled:    lang.Enabled,
			Extensions: lang.Extensions,
		}
	}
	return out
}
