package db

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YASSERRMD/schema-forge/internal/cache"
	"github.com/YASSERRMD/schema-forge/internal/errs"
)

func newSQLiteFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.db")

	raw, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = raw.Exec(`
		CREATE TABLE departments (id INTEGER PRIMARY KEY, name TEXT NOT NULL);
		CREATE TABLE employees (
			id INTEGER PRIMARY KEY,
			dept_id INTEGER NOT NULL,
			name TEXT NOT NULL
		);`)
	require.NoError(t, err)
	require.NoError(t, raw.Close())
	return path
}

func TestManagerDisconnected(t *testing.T) {
	m := NewManager(nil)
	ctx := context.Background()

	assert.False(t, m.Connected())
	assert.Equal(t, BackendUnknown, m.Backend())
	assert.Equal(t, "", m.URL())

	_, err := m.Reindex(ctx)
	assert.True(t, errs.IsConnectionFailed(err))

	err = m.Ping(ctx)
	assert.True(t, errs.IsConnectionFailed(err))

	// Rendering an empty index succeeds.
	assert.Contains(t, m.Context(), "Contains 0 tables and 0 views")
}

func TestManagerReindex(t *testing.T) {
	path := newSQLiteFixture(t)
	ctx := context.Background()

	m := NewManager(nil)
	require.NoError(t, m.Connect(ctx, path, DefaultPoolOptions()))
	defer m.Close()

	assert.True(t, m.Connected())
	assert.Equal(t, BackendSQLite, m.Backend())

	ix, err := m.Reindex(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"departments", "employees"}, ix.TableNames())

	full := m.Context()
	assert.Contains(t, full, "Table: departments")
	assert.Contains(t, full, "Table: employees")

	summary := m.SummaryContext()
	assert.Contains(t, summary, "departments (")
}

func TestManagerCacheRoundTrip(t *testing.T) {
	path := newSQLiteFixture(t)
	ctx := context.Background()

	store, err := cache.Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer store.Close()

	m := NewManager(nil).WithCache(store)
	require.NoError(t, m.Connect(ctx, path, DefaultPoolOptions()))

	// Nothing cached yet.
	hit, err := m.LoadCached(ctx)
	require.NoError(t, err)
	assert.False(t, hit)

	_, err = m.Reindex(ctx)
	require.NoError(t, err)
	m.Close()

	// A fresh manager on the same URL restores the index without touching
	// the catalog.
	m2 := NewManager(nil).WithCache(store)
	require.NoError(t, m2.Connect(ctx, path, DefaultPoolOptions()))
	defer m2.Close()

	hit, err = m2.LoadCached(ctx)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []string{"departments", "employees"}, m2.Snapshot().TableNames())
}

func TestManagerConcurrentReindexKeepsCacheCurrent(t *testing.T) {
	path := newSQLiteFixture(t)
	ctx := context.Background()

	store, err := cache.Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer store.Close()

	m := NewManager(nil).WithCache(store)
	require.NoError(t, m.Connect(ctx, path, DefaultPoolOptions()))
	defer m.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Reindex(ctx)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// Whichever reindex installed last also persisted last.
	cached, err := store.Load(ctx, m.URL())
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.True(t, cached.IndexedAt.Equal(m.Snapshot().IndexedAt))
}

func TestManagerConcurrentReads(t *testing.T) {
	path := newSQLiteFixture(t)
	ctx := context.Background()

	m := NewManager(nil)
	require.NoError(t, m.Connect(ctx, path, DefaultPoolOptions()))
	defer m.Close()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				_ = m.Context()
				_ = m.SummaryContext()
				_ = m.Snapshot().TableNames()
			}
		}()
	}
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				_, err := m.Reindex(ctx)
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, []string{"departments", "employees"}, m.Snapshot().TableNames())
}
