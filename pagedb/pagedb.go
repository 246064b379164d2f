// Package pagedb stores per-page crawl metadata in SQLite: when a page
// was first and last fetched, how many times, how often its content
// changed, and whether it is a crawl seed.
//
// Pages are keyed by the xxhash64 of their URL (see Hash). The store is
// safe for concurrent use through the usual database/sql pooling.
package pagedb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS pages (
    hash         INTEGER PRIMARY KEY,
    url          TEXT NOT NULL,
    first_crawl  INTEGER NOT NULL DEFAULT 0,
    last_crawl   INTEGER NOT NULL DEFAULT 0,
    n_crawls     INTEGER NOT NULL DEFAULT 0,
    n_changes    INTEGER NOT NULL DEFAULT 0,
    content_hash INTEGER NOT NULL DEFAULT 0,
    is_seed      INTEGER NOT NULL DEFAULT 0
);
`

// DB is an open page metadata store.
type DB struct {
	DB   *sql.DB
	path string
}

// Open opens (creating if absent) the page store at path. Parent
// directories are created as needed and the production pragmas
// (WAL, busy_timeout, synchronous NORMAL) are applied.
func Open(path string) (*DB, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("pagedb: mkdir: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("pagedb: open: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("pagedb: %s: %w", p, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("pagedb: schema: %w", err)
	}

	return &DB{DB: db, path: path}, nil
}

// Path returns the database path the store was opened with.
func (d *DB) Path() string { return d.path }

// Close closes the underlying database.
func (d *DB) Close() error { return d.DB.Close() }

// GetInfo returns the metadata for the page with the given hash, or
// (nil, nil) when the page is unknown.
func (d *DB) GetInfo(ctx context.Context, hash uint64) (*PageInfo, error) {
	row := d.DB.QueryRowContext(ctx,
		`SELECT url, first_crawl, last_crawl, n_crawls, n_changes, is_seed
		 FROM pages WHERE hash = ?`, int64(hash))

	pi := &PageInfo{}
	var seed int
	err := row.Scan(&pi.URL, &pi.FirstCrawl, &pi.LastCrawl, &pi.NCrawls, &pi.NChanges, &seed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("pagedb: get info: %w", err)
	}
	pi.IsSeed = seed != 0
	return pi, nil
}

// AddSeed records url as a crawl seed. Seeds start with no crawl
// history; fetching them later goes through Add like any other page.
func (d *DB) AddSeed(ctx context.Context, url string) error {
	_, err := d.DB.ExecContext(ctx,
		`INSERT INTO pages (hash, url, is_seed) VALUES (?, ?, 1)
		 ON CONFLICT(hash) DO UPDATE SET is_seed = 1`,
		int64(Hash(url)), url)
	if err != nil {
		return fmt.Errorf("pagedb: add seed: %w", err)
	}
	return nil
}

// Add records a completed fetch: bumps the crawl counters of the page,
// counts a change when the content fingerprint moved, and registers
// discovered links as known-but-uncrawled pages.
func (d *DB) Add(ctx context.Context, page *CrawledPage) error {
	t := page.Time
	if t == 0 {
		t = time.Now().Unix()
	}
	hash := int64(Hash(page.URL))

	tx, err := d.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("pagedb: begin: %w", err)
	}
	defer tx.Rollback()

	var oldContent int64
	var firstCrawl int64
	err = tx.QueryRowContext(ctx,
		`SELECT content_hash, first_crawl FROM pages WHERE hash = ?`, hash).
		Scan(&oldContent, &firstCrawl)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = tx.ExecContext(ctx,
			`INSERT INTO pages (hash, url, first_crawl, last_crawl, n_crawls, n_changes, content_hash)
			 VALUES (?, ?, ?, ?, 1, 0, ?)`,
			hash, page.URL, t, t, int64(page.ContentHash))
		if err != nil {
			return fmt.Errorf("pagedb: insert page: %w", err)
		}
	case err != nil:
		return fmt.Errorf("pagedb: lookup page: %w", err)
	default:
		changed := 0
		if page.ContentHash != 0 && int64(page.ContentHash) != oldContent {
			changed = 1
		}
		first := firstCrawl
		if first == 0 {
			first = t
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE pages SET first_crawl = ?, last_crawl = ?,
			 n_crawls = n_crawls + 1, n_changes = n_changes + ?,
			 content_hash = ?, url = ?
			 WHERE hash = ?`,
			first, t, changed, int64(page.ContentHash), page.URL, hash)
		if err != nil {
			return fmt.Errorf("pagedb: update page: %w", err)
		}
	}

	for _, link := range page.Links {
		_, err = tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO pages (hash, url) VALUES (?, ?)`,
			int64(Hash(link)), link)
		if err != nil {
			return fmt.Errorf("pagedb: insert link: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("pagedb: commit: %w", err)
	}
	return nil
}

// Count returns the number of known pages.
func (d *DB) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := d.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM pages`).Scan(&n); err != nil {
		return 0, fmt.Errorf("pagedb: count: %w", err)
	}
	return n, nil
}
