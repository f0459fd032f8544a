package cache

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state", "cache.db")
	store, err := Open(path, time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, path
}

func TestStore_PutGet(t *testing.T) {
	store, _ := openTemp(t)
	ctx := context.Background()

	runID := uuid.NewString()
	entry := Entry{
		Digest:      Digest([]byte("async function f() {}"), "javascript"),
		Path:        "src/a.js",
		Output:      []byte("function f() {}"),
		Diagnostics: json.RawMessage(`[{"Kind":"super"}]`),
		Sites:       1,
		RunID:       runID,
	}
	require.NoError(t, store.Put(ctx, entry))

	got, ok, err := store.Get(ctx, entry.Digest)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "src/a.js", got.Path)
	assert.Equal(t, "function f() {}", string(got.Output))
	assert.JSONEq(t, `[{"Kind":"super"}]`, string(got.Diagnostics))
	assert.Equal(t, 1, got.Sites)
	assert.Equal(t, runID, got.RunID)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestStore_Miss(t *testing.T) {
	store, _ := openTemp(t)

	_, ok, err := store.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_PutReplaces(t *testing.T) {
	store, _ := openTemp(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, Entry{Digest: "d", Path: "a.js", Output: []byte("one"), RunID: "r1"}))
	require.NoError(t, store.Put(ctx, Entry{Digest: "d", Path: "a.js", Output: []byte("two"), RunID: "r2"}))

	got, ok, err := store.Get(ctx, "d")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "two", string(got.Output))
	assert.Equal(t, "r2", got.RunID)
	assert.Empty(t, got.Diagnostics)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStore_Prune(t *testing.T) {
	store, _ := openTemp(t)
	ctx := context.Background()

	for _, d := range []string{"old1", "old2", "new"} {
		require.NoError(t, store.Put(ctx, Entry{Digest: d, Path: "a.js", Output: []byte(d), RunID: "r"}))
	}
	require.NoError(t, store.Put(ctx, Entry{Digest: "other", Path: "b.js", Output: []byte("b"), RunID: "r"}))

	removed, err := store.Prune(ctx, "a.js", "new")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	store, path := openTemp(t)
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, Entry{Digest: "d", Path: "a.js", Output: []byte("x"), RunID: "r"}))
	require.NoError(t, store.Close())

	reopened, err := Open(path, 0)
	require.NoError(t, err)
	defer reopened.Close()

	_, ok, err := reopened.Get(ctx, "d")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestOpen_Rejects(t *testing.T) {
	_, err := Open("  ", time.Second)
	assert.Error(t, err)

	dir := t.TempDir()
	_, err = Open(dir, time.Second)
	assert.Error(t, err)

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	_, err = Open(filepath.Join(dir, "sub"), time.Second)
	assert.Error(t, err)
}

func TestStore_NilSafe(t *testing.T) {
	var store *Store
	_, _, err := store.Get(context.Background(), "d")
	assert.Error(t, err)
	assert.Error(t, store.Put(context.Background(), Entry{Digest: "d"}))
	assert.NoError(t, store.Close())
}

func TestDigest(t *testing.T) {
	base := Digest([]byte("src"), "javascript", "_ngAsyncToGenerator")
	assert.Len(t, base, 64)
	assert.Equal(t, base, Digest([]byte("src"), "javascript", "_ngAsyncToGenerator"))
	assert.NotEqual(t, base, Digest([]byte("src"), "typescript", "_ngAsyncToGenerator"))
	assert.NotEqual(t, base, Digest([]byte("src2"), "javascript", "_ngAsyncToGenerator"))
	// Part boundaries are significant.
	assert.NotEqual(t, Digest(nil, "ab", "c"), Digest(nil, "a", "bc"))
}
