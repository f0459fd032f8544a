package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: NGASYNC_[SECTION]_[KEY] (e.g., NGASYNC_OBSERVABILITY_PORT).
func ApplyEnvOverrides(cfg *Config) {
	// Paths
	setEnvString(&cfg.Paths.ProjectRoot, "NGASYNC_PATHS_PROJECT_ROOT")
	setEnvString(&cfg.Paths.StateDir, "NGASYNC_PATHS_STATE_DIR")

	// Output
	setEnvString(&cfg.Output.Dir, "NGASYNC_OUTPUT_DIR")
	setEnvBool(&cfg.Output.InPlace, "NGASYNC_OUTPUT_IN_PLACE")
	setEnvString(&cfg.Output.Suffix, "NGASYNC_OUTPUT_SUFFIX")

	// Transform
	setEnvString(&cfg.Transform.HelperName, "NGASYNC_TRANSFORM_HELPER_NAME")
	setEnvBool(&cfg.Transform.StripAwaitless, "NGASYNC_TRANSFORM_STRIP_AWAITLESS")
	setEnvBool(&cfg.Transform.FailOnDiagnostics, "NGASYNC_TRANSFORM_FAIL_ON_DIAGNOSTICS")

	// Watch
	setEnvDuration(&cfg.Watch.Debounce, "NGASYNC_WATCH_DEBOUNCE")
	setEnvFloat64(&cfg.Watch.MaxRebuildsPerSecond, "NGASYNC_WATCH_MAX_REBUILDS_PER_SECOND")
	setEnvInt(&cfg.Watch.Burst, "NGASYNC_WATCH_BURST")

	// Cache
	setEnvBoolPtr(&cfg.Cache.Enabled, "NGASYNC_CACHE_ENABLED")
	setEnvString(&cfg.Cache.Path, "NGASYNC_CACHE_PATH")
	setEnvDuration(&cfg.Cache.BusyTimeout, "NGASYNC_CACHE_BUSY_TIMEOUT")

	// Observability
	setEnvBool(&cfg.Observability.Enabled, "NGASYNC_OBSERVABILITY_ENABLED")
	setEnvInt(&cfg.Observability.Port, "NGASYNC_OBSERVABILITY_PORT")
	setEnvString(&cfg.Observability.OTLPEndpoint, "NGASYNC_OBSERVABILITY_OTLP_ENDPOINT")
	setEnvBool(&cfg.Observability.EnableTracing, "NGASYNC_OBSERVABILITY_ENABLE_TRACING")
	setEnvBool(&cfg.Observability.EnableMetrics, "NGASYNC_OBSERVABILITY_ENABLE_METRICS")
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		*target = val
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = i
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = b
		}
	}
}

func setEnvBoolPtr(target **bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = &b
		}
	}
}

func setEnvFloat64(target *float64, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = f
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = d
		}
	}
}
