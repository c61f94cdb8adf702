package db

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YASSERRMD/schema-forge/internal/errs"
	"github.com/YASSERRMD/schema-forge/internal/schema"
)

// stubPool returns a fixed Rows from every Query, for exercising indexer
// error paths without a live server.
type stubPool struct {
	backend Backend
	rows    Rows
}

func (p *stubPool) Backend() Backend               { return p.backend }
func (p *stubPool) URL() string                    { return "stub://" }
func (p *stubPool) Ping(ctx context.Context) error { return nil }
func (p *stubPool) Close()                         {}

func (p *stubPool) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	return p.rows, nil
}

func (p *stubPool) QueryRow(ctx context.Context, sql string, args ...any) Row {
	return stubRow{}
}

type stubRow struct{}

func (stubRow) Scan(dest ...any) error { return nil }

// brokenRows yields no rows and reports a driver error from Err, the shape a
// connection dropped mid-iteration produces.
type brokenRows struct {
	err error
}

func (r *brokenRows) Next() bool                 { return false }
func (r *brokenRows) Scan(dest ...any) error     { return nil }
func (r *brokenRows) Columns() ([]string, error) { return nil, nil }
func (r *brokenRows) Close()                     {}
func (r *brokenRows) Err() error                 { return r.err }

func TestIndexerIterationErrorsAreWrapped(t *testing.T) {
	ctx := context.Background()
	driverErr := errors.New("connection reset")

	t.Run("postgres", func(t *testing.T) {
		pool := &stubPool{backend: BackendPostgres, rows: &brokenRows{err: driverErr}}
		x := &postgresIndexer{pool: pool}
		table := schema.NewTable("users")

		for name, fn := range map[string]func() error{
			"columns":      func() error { return x.addColumns(ctx, table) },
			"primary keys": func() error { return x.addPrimaryKeys(ctx, table) },
			"foreign keys": func() error { return x.addForeignKeys(ctx, schema.NewIndex(), table) },
		} {
			err := fn()
			require.Error(t, err, name)
			assert.True(t, errs.IsQueryFailed(err), name)
			assert.ErrorIs(t, err, driverErr, name)
		}
	})

	t.Run("mysql", func(t *testing.T) {
		pool := &stubPool{backend: BackendMySQL, rows: &brokenRows{err: driverErr}}
		x := &mysqlIndexer{pool: pool}
		table := schema.NewTable("users")

		for name, fn := range map[string]func() error{
			"columns":      func() error { return x.addColumns(ctx, table) },
			"foreign keys": func() error { return x.addForeignKeys(ctx, schema.NewIndex(), table) },
		} {
			err := fn()
			require.Error(t, err, name)
			assert.True(t, errs.IsQueryFailed(err), name)
			assert.ErrorIs(t, err, driverErr, name)
		}
	})
}
