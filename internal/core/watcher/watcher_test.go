package watcher

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWatcher(t *testing.T, opts Options) (*Watcher, chan []string) {
	t.Helper()
	changed := make(chan []string, 8)
	w, err := NewWatcher(opts, func(paths []string) {
		changed <- paths
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	return w, changed
}

func waitFor(t *testing.T, changed chan []string, want string) {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case paths := <-changed:
			for _, p := range paths {
				if p == want {
					return
				}
			}
		case <-timeout:
			t.Fatalf("timed out waiting for change to %s", want)
		}
	}
}

func TestNewWatcher_RejectsNilCallback(t *testing.T) {
	w, err := NewWatcher(Options{Debounce: 10 * time.Millisecond}, nil)
	assert.ErrorIs(t, err, os.ErrInvalid)
	assert.Nil(t, w)
}

func TestNewWatcher_RejectsBadPattern(t *testing.T) {
	_, err := NewWatcher(Options{ExcludeFiles: []string{"[unclosed"}}, func([]string) {})
	assert.Error(t, err)
}

func TestWatcher_ReportsSourceChanges(t *testing.T) {
	dir := t.TempDir()
	w, changed := newTestWatcher(t, Options{
		Debounce:     50 * time.Millisecond,
		ExcludeFiles: []string{"*.min.js"},
		Extensions:   []string{".js", "ts"},
	})
	require.NoError(t, w.Watch([]string{dir}))

	src := filepath.Join(dir, "app.js")
	require.NoError(t, os.WriteFile(src, []byte("async function f() {}"), 0o644))
	waitFor(t, changed, src)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "vendor.min.js"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("x"), 0o644))
	select {
	case paths := <-changed:
		for _, p := range paths {
			assert.False(t, strings.HasSuffix(p, ".min.js") || strings.HasSuffix(p, ".md"), "excluded file reported: %s", p)
		}
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_NewDirectoryIsWatched(t *testing.T) {
	dir := t.TempDir()
	w, changed := newTestWatcher(t, Options{Debounce: 50 * time.Millisecond, Extensions: []string{".ts"}})
	require.NoError(t, w.Watch([]string{dir}))

	sub := filepath.Join(dir, "nested")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	file := filepath.Join(sub, "store.ts")
	require.NoError(t, os.WriteFile(file, []byte("export const a = 1;"), 0o644))
	waitFor(t, changed, file)
}

func TestWatcher_RenameTriggersChange(t *testing.T) {
	dir := t.TempDir()
	w, changed := newTestWatcher(t, Options{Debounce: 50 * time.Millisecond})
	require.NoError(t, w.Watch([]string{dir}))

	oldPath := filepath.Join(dir, "old.js")
	newPath := filepath.Join(dir, "new.js")
	require.NoError(t, os.WriteFile(oldPath, []byte("1"), 0o644))
	require.NoError(t, os.Rename(oldPath, newPath))

	timeout := time.After(2 * time.Second)
	for {
		select {
		case paths := <-changed:
			for _, p := range paths {
				if p == oldPath || p == newPath {
					return
				}
			}
		case <-timeout:
			t.Fatalf("timed out waiting for rename event")
		}
	}
}

func TestWatcher_Filters(t *testing.T) {
	out := filepath.Join("proj", "out")
	w, _ := newTestWatcher(t, Options{
		ExcludeDirs:  []string{"node_modules"},
		ExcludeFiles: []string{"*.d.ts"},
		Extensions:   []string{".js", ".ts"},
		Ignore: func(path string) bool {
			return path == out || strings.HasPrefix(path, out+string(filepath.Separator))
		},
	})

	assert.False(t, w.shouldExcludeFile(filepath.Join("proj", "a.js")))
	assert.False(t, w.shouldExcludeFile(filepath.Join("proj", "B.TS")))
	assert.True(t, w.shouldExcludeFile(filepath.Join("proj", "a.py")))
	assert.True(t, w.shouldExcludeFile(filepath.Join("proj", "types.d.ts")))
	assert.True(t, w.shouldExcludeFile(filepath.Join(out, "a.js")))
	assert.True(t, w.shouldExcludeDir(filepath.Join("proj", "node_modules")))
	assert.True(t, w.shouldExcludeDir(out))
	assert.False(t, w.shouldExcludeDir(filepath.Join("proj", "src")))
}

func TestWatcher_CloseTwice(t *testing.T) {
	w, _ := newTestWatcher(t, Options{})
	assert.NoError(t, w.Close())
	assert.NoError(t, w.Close())
}
