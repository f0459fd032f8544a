// Package cache persists transform results keyed by a digest of everything
// that determines the output.
package cache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteDriverName = "sqlite"

// Entry is one cached transform result.
type Entry struct {
	Digest string
	Path   string
	Output []byte
	// Diagnostics is the JSON encoding of the diagnostics reported for the
	// unit. Empty means none.
	Diagnostics json.RawMessage
	Sites       int
	RunID       string
	CreatedAt   time.Time
}

type Store struct {
	db *sql.DB
}

// Digest hashes content together with the parts that influence its output,
// such as language, helper name and tool version.
func Digest(content []byte, parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	h.Write(content)
	return hex.EncodeToString(h.Sum(nil))
}

func Open(path string, busyTimeout time.Duration) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("cache path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("cache path %q is a directory", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache directory %q: %w", dir, err)
		}
	}

	timeout := busyTimeout.Milliseconds()
	if timeout <= 0 {
		timeout = 5000
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)", cleanPath, timeout)
	db, err := sql.Open(sqliteDriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open cache sqlite %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping cache sqlite %q: %w", cleanPath, err)
	}
	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Get returns the entry for digest. ok is false on a miss.
func (s *Store) Get(ctx context.Context, digest string) (Entry, bool, error) {
	if s == nil || s.db == nil {
		return Entry{}, false, fmt.Errorf("cache not initialized")
	}
	var (
		entry   Entry
		diags   string
		created int64
	)
	err := s.db.QueryRowContext(ctx, `
SELECT digest, path, output, diagnostics, sites, run_id, created_at
FROM transform_cache
WHERE digest = ?
`, digest).Scan(&entry.Digest, &entry.Path, &entry.Output, &diags, &entry.Sites, &entry.RunID, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("read cache entry: %w", err)
	}
	if diags != "" && diags != "[]" {
		entry.Diagnostics = json.RawMessage(diags)
	}
	entry.CreatedAt = time.UnixMilli(created).UTC()
	return entry, true, nil
}

// Put stores entry, replacing any row with the same digest.
func (s *Store) Put(ctx context.Context, entry Entry) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("cache not initialized")
	}
	if strings.TrimSpace(entry.Digest) == "" {
		return fmt.Errorf("cache entry digest must not be empty")
	}
	created := entry.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	diags := "[]"
	if len(entry.Diagnostics) > 0 {
		diags = string(entry.Diagnostics)
	}
	output := entry.Output
	if output == nil {
		output = []byte{}
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO transform_cache(digest, path, output, diagnostics, sites, run_id, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(digest) DO UPDATE SET
  path = excluded.path,
  output = excluded.output,
  diagnostics = excluded.diagnostics,
  sites = excluded.sites,
  run_id = excluded.run_id,
  created_at = excluded.created_at
`, entry.Digest, entry.Path, output, diags, entry.Sites, entry.RunID, created.UTC().UnixMilli())
	if err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}
	return nil
}

// Prune deletes entries for path other than keep, so a file only ever holds
// the row for its latest content.
func (s *Store) Prune(ctx context.Context, path, keep string) (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("cache not initialized")
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM transform_cache WHERE path = ? AND digest <> ?`, path, keep)
	if err != nil {
		return 0, fmt.Errorf("prune cache entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune cache entries: %w", err)
	}
	return int(n), nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("cache not initialized")
	}
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transform_cache`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count cache entries: %w", err)
	}
	return n, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
