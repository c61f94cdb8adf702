// Package cache persists schema indexes to a local SQLite file so repeat
// connections can skip catalog introspection.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // register "sqlite3" driver

	"github.com/YASSERRMD/schema-forge/internal/errs"
	"github.com/YASSERRMD/schema-forge/internal/schema"
)

const createTableSQL = `
	CREATE TABLE IF NOT EXISTS schema_cache (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		connection_url TEXT NOT NULL UNIQUE,
		database_name TEXT,
		schema_name TEXT,
		schema_data TEXT NOT NULL,
		indexed_at TEXT NOT NULL,
		created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_connection_url ON schema_cache (connection_url);`

// Cache stores serialized schema indexes keyed by connection URL. One row
// per URL; saving again replaces the previous entry.
type Cache struct {
	db   *sql.DB
	path string
}

// Entry describes one cached schema without its payload.
type Entry struct {
	ConnectionURL string    `json:"connection_url"`
	DatabaseName  string    `json:"database_name"`
	SchemaName    string    `json:"schema_name"`
	IndexedAt     time.Time `json:"indexed_at"`
	CreatedAt     string    `json:"created_at"`
}

// Stats summarizes cache contents.
type Stats struct {
	Path    string  `json:"path"`
	Entries int     `json:"entries"`
	Oldest  *string `json:"oldest,omitempty"`
	Newest  *string `json:"newest,omitempty"`
}

// DefaultPath returns the cache database location under the user's home
// directory. The directory is not created here.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errs.Wrap(errs.KindCache, "resolving home directory", err)
	}
	return filepath.Join(home, ".schema-forge", "cache.db"), nil
}

// Open creates or opens the cache database at path and ensures its table
// exists. The parent directory is created if missing.
func Open(path string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errs.Wrap(errs.KindCache, "creating cache directory", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errs.Wrap(errs.KindCache, "opening cache database", err)
	}
	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, errs.Wrap(errs.KindCache, "initializing cache schema", err)
	}

	return &Cache{db: db, path: path}, nil
}

// OpenDefault opens the cache at DefaultPath.
func OpenDefault() (*Cache, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return Open(path)
}

// Path returns the cache database file location.
func (c *Cache) Path() string { return c.path }

// Close releases the underlying database handle.
func (c *Cache) Close() error { return c.db.Close() }

// Save serializes the index and upserts it under connectionURL.
func (c *Cache) Save(ctx context.Context, connectionURL string, ix *schema.SchemaIndex) error {
	data, err := json.Marshal(ix)
	if err != nil {
		return errs.Wrap(errs.KindSerialization, "encoding schema index", err)
	}

	const upsert = `
		INSERT INTO schema_cache (connection_url, database_name, schema_name, schema_data, indexed_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(connection_url) DO UPDATE SET
			database_name = excluded.database_name,
			schema_name = excluded.schema_name,
			schema_data = excluded.schema_data,
			indexed_at = excluded.indexed_at`

	_, err = c.db.ExecContext(ctx, upsert,
		connectionURL, ix.DatabaseName, ix.SchemaName,
		string(data), ix.IndexedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return errs.Wrap(errs.KindCache, "saving schema to cache", err)
	}
	return nil
}

// Load returns the cached index for connectionURL, or (nil, nil) when no
// entry exists.
func (c *Cache) Load(ctx context.Context, connectionURL string) (*schema.SchemaIndex, error) {
	var data string
	err := c.db.QueryRowContext(ctx,
		`SELECT schema_data FROM schema_cache WHERE connection_url = ?`,
		connectionURL).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errs.Wrap(errs.KindCache, "loading schema from cache", err)
	}

	var ix schema.SchemaIndex
	if err := json.Unmarshal([]byte(data), &ix); err != nil {
		return nil, errs.Wrap(errs.KindSerialization, "decoding cached schema", err)
	}
	if ix.Tables == nil {
		ix.Tables = make(map[string]*schema.Table)
	}
	return &ix, nil
}

// Exists reports whether an entry for connectionURL is present.
func (c *Cache) Exists(ctx context.Context, connectionURL string) (bool, error) {
	var n int
	err := c.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM schema_cache WHERE connection_url = ?`,
		connectionURL).Scan(&n)
	if err != nil {
		return false, errs.Wrap(errs.KindCache, "checking cache entry", err)
	}
	return n > 0, nil
}

// Remove deletes the entry for connectionURL. Removing a missing entry is
// not an error.
func (c *Cache) Remove(ctx context.Context, connectionURL string) error {
	_, err := c.db.ExecContext(ctx,
		`DELETE FROM schema_cache WHERE connection_url = ?`, connectionURL)
	if err != nil {
		return errs.Wrap(errs.KindCache, "removing cache entry", err)
	}
	return nil
}

// Clear deletes every entry.
func (c *Cache) Clear(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM schema_cache`); err != nil {
		return errs.Wrap(errs.KindCache, "clearing cache", err)
	}
	return nil
}

// List returns metadata for every entry, newest first.
func (c *Cache) List(ctx context.Context) ([]Entry, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT connection_url, database_name, schema_name, indexed_at, created_at
		FROM schema_cache
		ORDER BY indexed_at DESC`)
	if err != nil {
		return nil, errs.Wrap(errs.KindCache, "listing cache entries", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var dbName, schemaName sql.NullString
		var indexedAt string
		if err := rows.Scan(&e.ConnectionURL, &dbName, &schemaName, &indexedAt, &e.CreatedAt); err != nil {
			return nil, errs.Wrap(errs.KindCache, "scanning cache entry", err)
		}
		e.DatabaseName = dbName.String
		e.SchemaName = schemaName.String
		if ts, err := time.Parse(time.RFC3339, indexedAt); err == nil {
			e.IndexedAt = ts
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Wrap(errs.KindCache, "iterating cache entries", err)
	}
	return entries, nil
}

// Stats reports entry count and indexing time range.
func (c *Cache) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{Path: c.path}

	var oldest, newest sql.NullString
	err := c.db.QueryRowContext(ctx, `
		SELECT COUNT(*), MIN(indexed_at), MAX(indexed_at)
		FROM schema_cache`).Scan(&st.Entries, &oldest, &newest)
	if err != nil {
		return nil, errs.Wrap(errs.KindCache, "reading cache stats", err)
	}
	if oldest.Valid {
		st.Oldest = &oldest.String
	}
	if newest.Valid {
		st.Newest = &newest.String
	}
	return st, nil
}
