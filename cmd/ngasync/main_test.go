package main

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ngasync/internal/core/app"
	"ngasync/internal/core/config"
	"ngasync/internal/engine/transform"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	f, err := parseFlags([]string{"-ui", "-verbose", "src", "lib"}, io.Discard)
	require.NoError(t, err)
	assert.True(t, f.watch, "-ui implies -watch")
	assert.True(t, f.verbose)
	assert.Equal(t, defaultConfigPath, f.configPath)
	assert.Equal(t, []string{"src", "lib"}, f.paths)

	_, err = parseFlags([]string{"-stdout", "-watch"}, io.Discard)
	assert.Error(t, err)
	_, err = parseFlags([]string{"-check", "-ui"}, io.Discard)
	assert.Error(t, err)
	_, err = parseFlags([]string{"-nope"}, io.Discard)
	assert.Error(t, err)
}

func TestApplyFlags(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Output.InPlace = true
	applyFlags(cfg, cliFlags{outDir: "dist", check: true, paths: []string{"src"}})

	assert.Equal(t, "dist", cfg.Output.Dir)
	assert.False(t, cfg.Output.InPlace)
	assert.True(t, cfg.Transform.FailOnDiagnostics)
	assert.Equal(t, []string{"src"}, cfg.Input.Paths)
}

func TestLoadConfig_FallsBackOnlyForDefaultPath(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := loadConfig(defaultConfigPath)
	require.NoError(t, err)
	assert.Equal(t, transform.DefaultHelperName, cfg.Transform.HelperName)

	_, err = loadConfig("./missing.toml")
	assert.Error(t, err)
}

func TestResolveLogPath(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", "/tmp/state")
	assert.Equal(t, filepath.Join("/tmp/state", "ngasync", "ngasync.log"), resolveLogPath())
}

func TestRun_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "package.json"), []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.js"), []byte("async function f() { await g(); }\n"), 0o644))

	assert.Equal(t, 0, run([]string{"-check"}))
	assert.NoDirExists(t, filepath.Join(dir, "out"))

	assert.Equal(t, 0, run(nil))
	data, err := os.ReadFile(filepath.Join(dir, "out", "a.js"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "yield g();")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.js"), []byte("async function* gen() {}\n"), 0o644))
	assert.Equal(t, 1, run([]string{"-check"}))
	assert.Equal(t, 0, run([]string{"-version"}))
}

func testSummary() app.Summary {
	return app.Summary{
		Files: []app.FileResult{
			{Path: "/p/src/a.js", Outcome: app.OutcomeRewritten, Sites: 2},
			{Path: "/p/src/b.js", Outcome: app.OutcomeUnchanged, Diagnostics: []transform.Diagnostic{
				{Kind: transform.UnsupportedAsyncGenerator, Message: "async generator functions are not lowered", Line: 3, Column: 1},
			}},
			{Path: "/p/src/c.js", Outcome: app.OutcomeSkipped, Err: errors.New("syntax error")},
		},
		Rewritten:   1,
		Unchanged:   1,
		Skipped:     1,
		Sites:       2,
		Diagnostics: 1,
		Duration:    12 * time.Millisecond,
	}
}

func TestFormatSummary(t *testing.T) {
	out := formatSummary(testSummary(), "/p")
	assert.Contains(t, out, "3 file(s), 2 site(s) lowered")
	assert.Contains(t, out, "1 rewritten")
	assert.Contains(t, out, "1 skipped")
	assert.Contains(t, out, filepath.Join("src", "b.js")+":3:1 async generator functions are not lowered")
	assert.Contains(t, out, filepath.Join("src", "c.js")+": syntax error")
	assert.NotContains(t, out, "failed")
}

func TestModel_Update(t *testing.T) {
	m := initialModel("/p")

	updated, _ := m.Update(updateMsg{update: app.Update{Summary: testSummary(), At: time.Now()}})
	state, ok := updated.(model)
	require.True(t, ok)
	assert.Equal(t, 1, state.batches)

	items := state.list.Items()
	require.Len(t, items, 3)
	assert.True(t, strings.HasPrefix(items[0].(item).title, "Untransformed: "), items[0].(item).title)
	assert.True(t, strings.HasPrefix(items[1].(item).title, "Skipped: "))
	assert.Equal(t, filepath.Join("src", "a.js"), items[2].(item).title)
	assert.Contains(t, state.View(), "ngasync watch")

	_, cmd := state.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	_, isQuit := cmd().(tea.QuitMsg)
	assert.True(t, isQuit)
}
