package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultFileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
version = 1

[input]
paths = ["./src", " ./lib "]
include = ["**/*.js"]

[exclude]
dirs = ["vendor"]
files = ["*.min.js"]

[output]
dir = "build/lowered"

[transform]
helper_name = "$q.async"
strip_awaitless = true

[languages.typescript]
enabled = false

[watch]
debounce = "1s"
max_rebuilds_per_second = 2.5
burst = 3

[cache]
enabled = false
path = "/tmp/ngasync.db"

[observability]
enabled = true
port = 9100
enable_metrics = true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"./src", "./lib"}, cfg.Input.Paths)
	assert.Equal(t, []string{"**/*.js"}, cfg.Input.Include)
	assert.Equal(t, []string{"vendor"}, cfg.Exclude.Dirs)
	assert.Equal(t, []string{"*.min.js"}, cfg.Exclude.Files)
	assert.Equal(t, "build/lowered", cfg.Output.Dir)
	assert.Equal(t, "$q.async", cfg.Transform.HelperName)
	assert.True(t, cfg.Transform.StripAwaitless)
	require.NotNil(t, cfg.Languages["typescript"].Enabled)
	assert.False(t, *cfg.Languages["typescript"].Enabled)
	assert.Equal(t, time.Second, cfg.Watch.Debounce)
	assert.Equal(t, 2.5, cfg.Watch.MaxRebuildsPerSecond)
	assert.Equal(t, 3, cfg.Watch.Burst)
	assert.False(t, cfg.Cache.IsEnabled())
	assert.Equal(t, "/tmp/ngasync.db", cfg.Cache.Path)
	assert.Equal(t, 9100, cfg.Observability.Port)
	assert.True(t, cfg.Observability.EnableMetrics)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 1, cfg.Version)
	assert.Equal(t, []string{"."}, cfg.Input.Paths)
	assert.Contains(t, cfg.Exclude.Dirs, "node_modules")
	assert.Equal(t, "out", cfg.Output.Dir)
	assert.Equal(t, "_ngAsyncToGenerator", cfg.Transform.HelperName)
	assert.False(t, cfg.Transform.StripAwaitless)
	assert.Equal(t, 300*time.Millisecond, cfg.Watch.Debounce)
	assert.True(t, cfg.Cache.IsEnabled())
	assert.Equal(t, "cache.db", cfg.Cache.Path)
	assert.Equal(t, 9464, cfg.Observability.Port)
	assert.Empty(t, Validate(cfg))
}

func TestLoad_InPlaceKeepsOutputDirEmpty(t *testing.T) {
	cfg, err := Parse([]byte("[output]\nin_place = true\n"))
	require.NoError(t, err)
	assert.Empty(t, cfg.Output.Dir)
}

func TestLoad_Rejects(t *testing.T) {
	cases := map[string]struct {
		content string
		want    string
	}{
		"version": {
			content: "version = 3\n",
			want:    "unsupported config version 3",
		},
		"helper name": {
			content: "[transform]\nhelper_name = \"not valid\"\n",
			want:    "transform.helper_name",
		},
		"output conflict": {
			content: "[output]\nin_place = true\nsuffix = \".ng\"\n",
			want:    "output.in_place cannot be set alongside output.suffix",
		},
		"suffix separator": {
			content: "[output]\nsuffix = \"a/b\"\n",
			want:    "must not contain path separators",
		},
		"glob": {
			content: "[exclude]\nfiles = [\"[\"]\n",
			want:    "exclude.files[0]",
		},
		"language": {
			content: "[languages.kotlin]\nextensions = [\".kt\"]\n",
			want:    "unknown language override",
		},
		"port": {
			content: "[observability]\nenabled = true\nport = 70000\n",
			want:    "observability.port",
		},
		"toml": {
			content: "[output\n",
			want:    "decode config",
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.True(t, os.IsNotExist(err))
}

func TestValidate_InputPaths(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Input.Paths = []string{"/non/existent/path"}

	errs := Validate(cfg)
	require.Len(t, errs, 1)
	assert.Equal(t, `input.paths[0] "/non/existent/path" does not exist`, errs[0].Error())
}

func TestLanguageOverrides(t *testing.T) {
	cfg := DefaultConfig()
	assert.Nil(t, LanguageOverrides(cfg))

	cfg.Languages = map[string]Language{" JavaScript ": {Extensions: []string{".es6"}}}
	overrides := LanguageOverrides(cfg)
	require.Contains(t, overrides, "javascript")
	assert.Equal(t, []string{".es6"}, overrides["javascript"].Extensions)
}
