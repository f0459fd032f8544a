package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePaths(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "package.json"), []byte("{}"), 0o644))
	src := filepath.Join(root, "src")
	require.NoError(t, os.MkdirAll(src, 0o755))

	cfg := DefaultConfig()
	cfg.Input.Paths = []string{"."}

	resolved, err := ResolvePaths(cfg, src)
	require.NoError(t, err)

	assert.Equal(t, filepath.Clean(root), resolved.ProjectRoot)
	assert.Equal(t, filepath.Join(root, ".ngasync"), resolved.StateDir)
	assert.Equal(t, filepath.Join(root, ".ngasync", "cache.db"), resolved.CachePath)
	assert.Equal(t, filepath.Join(root, "out"), resolved.OutputDir)
	assert.Equal(t, []string{src}, resolved.InputPaths)
}

func TestResolvePaths_ExplicitRootAndAbsoluteCache(t *testing.T) {
	root := t.TempDir()

	cfg := DefaultConfig()
	cfg.Paths.ProjectRoot = root
	cfg.Cache.Path = filepath.Join(root, "elsewhere", "c.db")
	cfg.Output.Dir = ""
	cfg.Output.InPlace = true

	resolved, err := ResolvePaths(cfg, "/")
	require.NoError(t, err)

	assert.Equal(t, filepath.Clean(root), resolved.ProjectRoot)
	assert.Equal(t, filepath.Join(root, "elsewhere", "c.db"), resolved.CachePath)
	assert.Empty(t, resolved.OutputDir)
}

func TestResolvePaths_RequiresCwd(t *testing.T) {
	_, err := ResolvePaths(DefaultConfig(), " ")
	assert.Error(t, err)
}

func TestResolveRelative(t *testing.T) {
	assert.Equal(t, filepath.Clean("/base"), ResolveRelative("/base", ""))
	assert.Equal(t, filepath.Clean("/abs/x"), ResolveRelative("/base", "/abs/x"))
	assert.Equal(t, filepath.Join("/base", "rel"), ResolveRelative("/base", " rel "))
}
