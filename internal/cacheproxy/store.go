package cacheproxy

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	_ "modernc.org/sqlite"
)

// Entry is one cached response, addressed by method+URL within the active
// generation.
type Entry struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	CachedAt   time.Time
}

// Store persists cached responses, scoped to a single named generation.
// Activating a new generation purges every other generation wholesale; there
// is no per-entry expiry.
type Store struct {
	db         *sql.DB
	generation string
}

const cacheSchema = `
CREATE TABLE IF NOT EXISTS cache_entries (
    generation TEXT NOT NULL,
    method TEXT NOT NULL,
    url TEXT NOT NULL,
    status INTEGER NOT NULL,
    headers TEXT NOT NULL,
    body BLOB,
    cached_at TEXT NOT NULL,
    PRIMARY KEY (generation, method, url)
);`

// OpenStore connects to the cache database and activates the named
// generation, deleting entries from all prior generations.
func OpenStore(path, generation string) (*Store, error) {
	if generation == "" {
		return nil, errors.New("cache generation name is required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(cacheSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create cache schema: %w", err)
	}

	store := &Store{db: db, generation: generation}
	if err := store.activate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Generation returns the active generation name.
func (s *Store) Generation() string {
	return s.generation
}

func (s *Store) activate(ctx context.Context) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE generation != ?`, s.generation)
	if err != nil {
		return fmt.Errorf("purge stale generations: %w", err)
	}
	if purged, err := res.RowsAffected(); err == nil && purged > 0 {
		// Old generations exist only across an upgrade; a one-shot purge on
		// activation bounds the database size.
		_, _ = s.db.ExecContext(ctx, `VACUUM`)
	}
	return nil
}

// Get returns the cached entry for the request identity, if present.
func (s *Store) Get(ctx context.Context, method, url string) (*Entry, bool, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT status, headers, body, cached_at FROM cache_entries WHERE generation = ? AND method = ? AND url = ?`,
		s.generation, method, url,
	)

	var (
		entry    Entry
		headers  string
		cachedAt string
	)
	err := row.Scan(&entry.StatusCode, &headers, &entry.Body, &cachedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read cache entry: %w", err)
	}

	if err := json.Unmarshal([]byte(headers), &entry.Header); err != nil {
		return nil, false, fmt.Errorf("decode cached headers: %w", err)
	}
	if ts, err := time.Parse(time.RFC3339Nano, cachedAt); err == nil {
		entry.CachedAt = ts
	}
	return &entry, true, nil
}

// Put stores or overwrites the cached response for the request identity.
func (s *Store) Put(ctx context.Context, method, url string, entry *Entry) error {
	headers, err := json.Marshal(entry.Header)
	if err != nil {
		return fmt.Errorf("encode headers: %w", err)
	}
	cachedAt := entry.CachedAt
	if cachedAt.IsZero() {
		cachedAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO cache_entries (generation, method, url, status, headers, body, cached_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT (generation, method, url) DO UPDATE
         SET status = excluded.status, headers = excluded.headers,
             body = excluded.body, cached_at = excluded.cached_at`,
		s.generation, method, url, entry.StatusCode, string(headers), entry.Body,
		cachedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}
	return nil
}
