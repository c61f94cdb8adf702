package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YASSERRMD/schema-forge/internal/schema"
)

func openTemp(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func sampleIndex(db string) *schema.SchemaIndex {
	ix := schema.NewIndex()
	ix.DatabaseName = db
	ix.SchemaName = "public"

	users := schema.NewTable("users")
	users.AddColumn(schema.Column{Name: "id", Type: schema.ColumnType{Base: "integer"}})
	users.MarkPrimaryKey("id")
	ix.AddTable(users)
	return ix
}

func TestCacheRoundTrip(t *testing.T) {
	c := openTemp(t)
	ctx := context.Background()
	url := "postgres://localhost/app"

	got, err := c.Load(ctx, url)
	require.NoError(t, err)
	assert.Nil(t, got)

	ix := sampleIndex("app")
	require.NoError(t, c.Save(ctx, url, ix))

	got, err = c.Load(ctx, url)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "app", got.DatabaseName)
	require.Contains(t, got.Tables, "users")
	assert.Equal(t, []string{"id"}, got.Tables["users"].PrimaryKeys)
	assert.True(t, got.IndexedAt.Equal(ix.IndexedAt))
}

func TestCacheUpsert(t *testing.T) {
	c := openTemp(t)
	ctx := context.Background()
	url := "postgres://localhost/app"

	require.NoError(t, c.Save(ctx, url, sampleIndex("app")))
	require.NoError(t, c.Save(ctx, url, sampleIndex("app_v2")))

	got, err := c.Load(ctx, url)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "app_v2", got.DatabaseName)

	st, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Entries)
}

func TestCacheExistsRemoveClear(t *testing.T) {
	c := openTemp(t)
	ctx := context.Background()

	require.NoError(t, c.Save(ctx, "a", sampleIndex("a")))
	require.NoError(t, c.Save(ctx, "b", sampleIndex("b")))

	ok, err := c.Exists(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, c.Remove(ctx, "a"))
	ok, err = c.Exists(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	// Removing an absent entry is a no-op.
	require.NoError(t, c.Remove(ctx, "a"))

	require.NoError(t, c.Clear(ctx))
	st, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, st.Entries)
	assert.Nil(t, st.Oldest)
	assert.Nil(t, st.Newest)
}

func TestCacheList(t *testing.T) {
	c := openTemp(t)
	ctx := context.Background()

	older := sampleIndex("old")
	older.IndexedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, c.Save(ctx, "old-url", older))

	newer := sampleIndex("new")
	newer.IndexedAt = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, c.Save(ctx, "new-url", newer))

	entries, err := c.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "new-url", entries[0].ConnectionURL)
	assert.Equal(t, "new", entries[0].DatabaseName)
	assert.Equal(t, "old-url", entries[1].ConnectionURL)
	assert.True(t, entries[1].IndexedAt.Equal(older.IndexedAt))
}

func TestCachePersistsAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	ctx := context.Background()

	c, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, c.Save(ctx, "url", sampleIndex("app")))
	require.NoError(t, c.Close())

	c2, err := Open(path)
	require.NoError(t, err)
	defer c2.Close()

	got, err := c2.Load(ctx, "url")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "app", got.DatabaseName)
}
