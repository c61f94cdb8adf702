package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/YASSERRMD/schema-forge/internal/errs"
)

// sqlPool adapts a database/sql pool (MySQL, SQLite, MSSQL) to the Pool
// interface. Each backend supplies its own native-error translator.
type sqlPool struct {
	db      *sql.DB
	backend Backend
	url     string
	mapErr  func(err error, msg string) *errs.Error
}

func newSQLPool(ctx context.Context, driver, dsn, connURL string, backend Backend,
	cfg PoolOptions, mapErr func(error, string) *errs.Error) (*sqlPool, error) {

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errs.Wrap(errs.KindConnectionFailed,
			fmt.Sprintf("failed to open database: %s", connURL), err)
	}

	db.SetMaxOpenConns(int(cfg.MaxConns))
	db.SetMaxIdleConns(int(cfg.MinConns))

	p := &sqlPool{db: db, backend: backend, url: connURL, mapErr: mapErr}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	if err := p.Ping(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return p, nil
}

func (p *sqlPool) Backend() Backend { return p.backend }
func (p *sqlPool) URL() string      { return p.url }
func (p *sqlPool) Close()           { _ = p.db.Close() }

func (p *sqlPool) Ping(ctx context.Context) error {
	var one int
	if err := p.db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return p.mapErr(err, fmt.Sprintf("connection test failed: %s", p.url))
	}
	return nil
}

func (p *sqlPool) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, p.mapErr(err, "query failed")
	}
	return &sqlRows{rows: rows}, nil
}

func (p *sqlPool) QueryRow(ctx context.Context, query string, args ...any) Row {
	return p.db.QueryRowContext(ctx, query, args...)
}

// sqlRows wraps *sql.Rows to satisfy Rows.
type sqlRows struct {
	rows *sql.Rows
}

func (r *sqlRows) Next() bool                 { return r.rows.Next() }
func (r *sqlRows) Scan(dest ...any) error     { return r.rows.Scan(dest...) }
func (r *sqlRows) Columns() ([]string, error) { return r.rows.Columns() }
func (r *sqlRows) Close()                     { _ = r.rows.Close() }
func (r *sqlRows) Err() error                 { return r.rows.Err() }

// mapGenericError is the fallback translator for backends without
// distinguishable native error codes.
func mapGenericError(err error, msg string) *errs.Error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return errs.Wrap(errs.KindNotFound, msg, err)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.KindConnectionFailed, msg, err)
	}
	return errs.Wrap(errs.KindQueryFailed, msg, err)
}
