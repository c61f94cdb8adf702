package db

import (
	"context"
	"sync"
	"time"

	"github.com/YASSERRMD/schema-forge/internal/cache"
	"github.com/YASSERRMD/schema-forge/internal/errs"
	"github.com/YASSERRMD/schema-forge/internal/logger"
	"github.com/YASSERRMD/schema-forge/internal/schema"
)

// Manager owns one database connection and the schema index built from it.
// The index is replaced wholesale on each reindex and never mutated after
// installation, so readers can render from a snapshot without holding the
// lock.
type Manager struct {
	mu    sync.RWMutex
	index *schema.SchemaIndex
	pool  Pool
	store *cache.Cache
	log   *logger.Logger

	// reindexMu serializes the install-then-persist pair in Reindex so two
	// concurrent reindexes cannot leave the cache holding an older snapshot
	// than memory. Catalog walks still run in parallel.
	reindexMu sync.Mutex
}

// NewManager returns a disconnected manager with an empty index.
func NewManager(log *logger.Logger) *Manager {
	if log == nil {
		log = logger.Global()
	}
	return &Manager{
		index: schema.NewIndex(),
		log:   log,
	}
}

// WithCache attaches a schema cache. Reindex persists to it and LoadCached
// reads from it. A nil cache disables caching.
func (m *Manager) WithCache(c *cache.Cache) *Manager {
	m.mu.Lock()
	m.store = c
	m.mu.Unlock()
	return m
}

// Connect opens a pool for connURL, closing any previous connection. The
// index is reset; call Reindex or LoadCached to populate it.
func (m *Manager) Connect(ctx context.Context, connURL string, opts *PoolOptions) error {
	pool, err := Open(ctx, connURL, opts)
	if err != nil {
		return err
	}

	m.mu.Lock()
	old := m.pool
	m.pool = pool
	m.index = schema.NewIndex()
	m.mu.Unlock()

	if old != nil {
		old.Close()
	}

	m.log.With().Str("backend", pool.Backend().Name()).Logger().
		Info("connected to database")
	return nil
}

// Connected reports whether a pool is open.
func (m *Manager) Connected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pool != nil
}

// Backend returns the connected backend, or BackendUnknown when
// disconnected.
func (m *Manager) Backend() Backend {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.pool == nil {
		return BackendUnknown
	}
	return m.pool.Backend()
}

// URL returns the connection URL, or "" when disconnected.
func (m *Manager) URL() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.pool == nil {
		return ""
	}
	return m.pool.URL()
}

// Reindex rebuilds the schema index from the live catalog and installs it,
// replacing the previous index. The catalog walk runs without holding the
// lock. On success the index is also written to the cache when one is
// attached; cache write failures are logged, not returned.
func (m *Manager) Reindex(ctx context.Context) (*schema.SchemaIndex, error) {
	m.mu.RLock()
	pool := m.pool
	store := m.store
	m.mu.RUnlock()

	if pool == nil {
		return nil, errs.New(errs.KindConnectionFailed, "not connected to a database")
	}

	indexer, err := NewIndexer(pool)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	ix, err := indexer.Index(ctx)
	if err != nil {
		return nil, err
	}

	m.reindexMu.Lock()
	m.mu.Lock()
	m.index = ix
	m.mu.Unlock()

	if store != nil {
		if err := store.Save(ctx, pool.URL(), ix); err != nil {
			m.log.ErrorWith("failed to cache schema", err, nil)
		}
	}
	m.reindexMu.Unlock()

	m.log.With().
		Str("backend", pool.Backend().Name()).
		Int("tables", len(ix.Tables)).
		Dur("elapsed", time.Since(start)).
		Logger().Info("schema indexed")

	return ix, nil
}

// LoadCached installs the cached index for the current connection URL.
// It returns false when no cache is attached or no entry exists.
func (m *Manager) LoadCached(ctx context.Context) (bool, error) {
	m.mu.RLock()
	pool := m.pool
	store := m.store
	m.mu.RUnlock()

	if pool == nil {
		return false, errs.New(errs.KindConnectionFailed, "not connected to a database")
	}
	if store == nil {
		return false, nil
	}

	ix, err := store.Load(ctx, pool.URL())
	if err != nil {
		return false, err
	}
	if ix == nil {
		return false, nil
	}

	m.mu.Lock()
	m.index = ix
	m.mu.Unlock()

	m.log.With().Int("tables", len(ix.Tables)).Logger().
		Info("schema loaded from cache")
	return true, nil
}

// Snapshot returns the current index. Callers must treat it as read-only.
func (m *Manager) Snapshot() *schema.SchemaIndex {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.index
}

// Context renders the full schema description for prompting.
func (m *Manager) Context() string {
	return schema.FormatFull(m.Snapshot())
}

// SummaryContext renders the compact single-line-per-table description.
func (m *Manager) SummaryContext() string {
	return schema.FormatSummary(m.Snapshot())
}

// Query runs sql on the connected pool.
func (m *Manager) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	m.mu.RLock()
	pool := m.pool
	m.mu.RUnlock()

	if pool == nil {
		return nil, errs.New(errs.KindConnectionFailed, "not connected to a database")
	}
	return pool.Query(ctx, sql, args...)
}

// Ping verifies the connection is alive.
func (m *Manager) Ping(ctx context.Context) error {
	m.mu.RLock()
	pool := m.pool
	m.mu.RUnlock()

	if pool == nil {
		return errs.New(errs.KindConnectionFailed, "not connected to a database")
	}
	return pool.Ping(ctx)
}

// Close shuts the pool down and resets the index.
func (m *Manager) Close() {
	m.mu.Lock()
	pool := m.pool
	m.pool = nil
	m.index = schema.NewIndex()
	m.mu.Unlock()

	if pool != nil {
		pool.Close()
	}
}
