package db

import (
	"context"

	"github.com/YASSERRMD/schema-forge/internal/errs"
	"github.com/YASSERRMD/schema-forge/internal/schema"
)

// Indexer walks a database catalog and produces a complete SchemaIndex.
// Each call builds a fresh index; partial results are never returned.
type Indexer interface {
	Index(ctx context.Context) (*schema.SchemaIndex, error)
}

// NewIndexer returns the catalog indexer for the pool's backend.
func NewIndexer(p Pool) (Indexer, error) {
	switch p.Backend() {
	case BackendPostgres:
		return &postgresIndexer{pool: p}, nil
	case BackendMySQL:
		return &mysqlIndexer{pool: p}, nil
	case BackendSQLite:
		return &sqliteIndexer{pool: p}, nil
	case BackendMSSQL:
		return &mssqlIndexer{pool: p}, nil
	default:
		return nil, errs.Newf(errs.KindUnsupported,
			"no indexer for backend %q", p.Backend())
	}
}
