package db

import (
	"context"

	_ "github.com/microsoft/go-mssqldb" // register "sqlserver" driver

	"github.com/YASSERRMD/schema-forge/internal/errs"
	"github.com/YASSERRMD/schema-forge/internal/schema"
)

func openMSSQL(ctx context.Context, connURL string, cfg PoolOptions) (Pool, error) {
	return newSQLPool(ctx, "sqlserver", mssqlURL(connURL), connURL,
		BackendMSSQL, cfg, mapGenericError)
}

// mssqlIndexer resolves connection identity but does not yet walk the
// catalog. Index always returns an unsupported error after confirming the
// server is reachable.
//
// TODO: port the information_schema queries from the MySQL indexer; SQL
// Server exposes the same views with sys.extended_properties for comments.
type mssqlIndexer struct {
	pool Pool
}

func (x *mssqlIndexer) Index(ctx context.Context) (*schema.SchemaIndex, error) {
	var dbName string
	row := x.pool.QueryRow(ctx, "SELECT DB_NAME()")
	if err := row.Scan(&dbName); err != nil {
		return nil, errs.Wrap(errs.KindQueryFailed, "resolving current database", err)
	}

	return nil, errs.Newf(errs.KindUnsupported,
		"SQL Server schema indexing is not implemented yet (connected to %s)", dbName)
}
