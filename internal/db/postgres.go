package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/YASSERRMD/schema-forge/internal/errs"
	"github.com/YASSERRMD/schema-forge/internal/schema"
)

// pgPool is the PostgreSQL Pool implementation backed by pgxpool.
type pgPool struct {
	pool *pgxpool.Pool
	url  string
}

func openPostgres(ctx context.Context, connURL string, cfg PoolOptions) (Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(connURL)
	if err != nil {
		return nil, errs.Wrap(errs.KindConnectionFailed,
			fmt.Sprintf("invalid PostgreSQL URL: %s", connURL), err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, errs.Wrap(errs.KindConnectionFailed,
			fmt.Sprintf("failed to create connection pool: %s", connURL), err)
	}

	p := &pgPool{pool: pool, url: connURL}
	if err := p.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

func (p *pgPool) Backend() Backend { return BackendPostgres }
func (p *pgPool) URL() string      { return p.url }
func (p *pgPool) Close()           { p.pool.Close() }

func (p *pgPool) Ping(ctx context.Context) error {
	var one int
	if err := p.pool.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		return mapPgError(err, fmt.Sprintf("connection test failed: %s", p.url))
	}
	return nil
}

func (p *pgPool) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	rows, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, mapPgError(err, "query failed")
	}
	return &pgxRows{rows: rows}, nil
}

func (p *pgPool) QueryRow(ctx context.Context, sql string, args ...any) Row {
	return p.pool.QueryRow(ctx, sql, args...)
}

// pgxRows wraps pgx.Rows to satisfy Rows.
type pgxRows struct {
	rows pgx.Rows
}

func (r *pgxRows) Next() bool             { return r.rows.Next() }
func (r *pgxRows) Scan(dest ...any) error { return r.rows.Scan(dest...) }
func (r *pgxRows) Close()                 { r.rows.Close() }
func (r *pgxRows) Err() error             { return r.rows.Err() }

func (r *pgxRows) Columns() ([]string, error) {
	descs := r.rows.FieldDescriptions()
	cols := make([]string, len(descs))
	for i, d := range descs {
		cols[i] = d.Name
	}
	return cols, nil
}

// mapPgError translates pgx / pgconn native errors into *errs.Error.
func mapPgError(err error, msg string) *errs.Error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return errs.Wrap(errs.KindNotFound, msg, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		kind := errs.KindQueryFailed
		// SQLSTATE class 08: connection exceptions
		if len(pgErr.Code) >= 2 && pgErr.Code[:2] == "08" {
			kind = errs.KindConnectionFailed
		}
		return errs.Wrap(kind, fmt.Sprintf("%s: %s", msg, pgErr.Message), err)
	}

	// Network, TLS, and auth failures surface without a SQLSTATE.
	return errs.Wrap(errs.KindConnectionFailed, msg, err)
}

// postgresIndexer builds a SchemaIndex from the information_schema and
// pg_catalog of one PostgreSQL database.
type postgresIndexer struct {
	pool Pool
}

const pgTablesQuery = `
	SELECT t.table_name,
	       t.table_type,
	       obj_description(c.oid, 'pg_class') AS comment,
	       c.reltuples::bigint AS estimated_rows
	FROM information_schema.tables t
	JOIN pg_class c ON c.relname = t.table_name
	JOIN pg_namespace n ON n.oid = c.relnamespace AND n.nspname = t.table_schema
	WHERE t.table_schema = 'public'
	ORDER BY t.table_name`

const pgColumnsQuery = `
	SELECT column_name,
	       data_type,
	       udt_name,
	       character_maximum_length,
	       numeric_precision,
	       numeric_scale,
	       is_nullable,
	       column_default
	FROM information_schema.columns
	WHERE table_schema = 'public'
	  AND table_name = $1
	ORDER BY ordinal_position`

const pgPrimaryKeyQuery = `
	SELECT a.attname AS column_name
	FROM pg_index i
	JOIN pg_attribute a ON a.attrelid = i.indrelid AND a.attnum = ANY(i.indkey)
	WHERE i.indrelid = $1::regclass AND i.indisprimary
	ORDER BY a.attnum`

const pgForeignKeyQuery = `
	SELECT kcu.column_name,
	       ccu.table_name  AS foreign_table_name,
	       ccu.column_name AS foreign_column_name,
	       rc.delete_rule,
	       rc.update_rule
	FROM information_schema.table_constraints tc
	JOIN information_schema.key_column_usage kcu
	  ON tc.constraint_name = kcu.constraint_name
	 AND tc.table_schema    = kcu.table_schema
	JOIN information_schema.constraint_column_usage ccu
	  ON ccu.constraint_name = tc.constraint_name
	 AND ccu.table_schema    = tc.table_schema
	JOIN information_schema.referential_constraints rc
	  ON rc.constraint_name  = tc.constraint_name
	 AND rc.constraint_schema = tc.table_schema
	WHERE tc.constraint_type = 'FOREIGN KEY'
	  AND tc.table_schema = 'public'
	  AND tc.table_name = $1
	ORDER BY kcu.ordinal_position`

func (x *postgresIndexer) Index(ctx context.Context) (*schema.SchemaIndex, error) {
	ix := schema.NewIndex()

	var dbName string
	if err := x.pool.QueryRow(ctx, "SELECT current_database()").Scan(&dbName); err != nil {
		return nil, mapPgError(err, "resolving database name")
	}
	ix.DatabaseName = dbName
	ix.SchemaName = BackendPostgres.DefaultSchema()

	rows, err := x.pool.Query(ctx, pgTablesQuery)
	if err != nil {
		return nil, errs.Wrap(errs.KindQueryFailed, "listing tables", err)
	}

	type tableHeader struct {
		name, typ string
		comment   *string
		estRows   *int64
	}
	var headers []tableHeader
	for rows.Next() {
		var h tableHeader
		if err := rows.Scan(&h.name, &h.typ, &h.comment, &h.estRows); err != nil {
			rows.Close()
			return nil, errs.Wrap(errs.KindQueryFailed, "scanning table row", err)
		}
		headers = append(headers, h)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, errs.Wrap(errs.KindQueryFailed, "iterating tables", err)
	}
	rows.Close()

	for _, h := range headers {
		var table *schema.Table
		if h.typ == "VIEW" {
			table = schema.NewView(h.name)
		} else {
			table = schema.NewTable(h.name)
			if h.estRows != nil && *h.estRows >= 0 {
				table.EstimatedRows = h.estRows
			}
		}
		if h.comment != nil {
			table.Comment = *h.comment
		}

		if err := x.addColumns(ctx, table); err != nil {
			return nil, err
		}

		// No primary-key or foreign-key catalog entries exist for views.
		if !table.IsView {
			if err := x.addPrimaryKeys(ctx, table); err != nil {
				return nil, err
			}
			if err := x.addForeignKeys(ctx, ix, table); err != nil {
				return nil, err
			}
		}

		ix.AddTable(table)
	}

	return ix, nil
}

func (x *postgresIndexer) addColumns(ctx context.Context, table *schema.Table) error {
	rows, err := x.pool.Query(ctx, pgColumnsQuery, table.Name)
	if err != nil {
		return errs.Wrap(errs.KindQueryFailed,
			fmt.Sprintf("listing columns of %s", table.Name), err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			name, dataType, udtName, nullable string
			maxLen, precision, scale          *int64
			defaultVal                        *string
		)
		if err := rows.Scan(&name, &dataType, &udtName, &maxLen, &precision,
			&scale, &nullable, &defaultVal); err != nil {
			return errs.Wrap(errs.KindQueryFailed, "scanning column row", err)
		}

		colType := schema.ColumnType{Base: dataType}
		if maxLen != nil {
			colType.Length = maxLen
		} else {
			colType.Length = precision
		}
		colType.Scale = scale
		if dataType == "ARRAY" {
			// information_schema reports "ARRAY"; the element type is the
			// udt_name with its leading underscore stripped.
			colType.Base = udtNameElement(udtName)
			colType.ArrayDims = 1
		}

		table.AddColumn(schema.Column{
			Name:     name,
			Type:     colType,
			Nullable: nullable == "YES",
			Default:  defaultVal,
		})
	}
	if err := rows.Err(); err != nil {
		return errs.Wrap(errs.KindQueryFailed, "iterating column rows", err)
	}
	return nil
}

func (x *postgresIndexer) addPrimaryKeys(ctx context.Context, table *schema.Table) error {
	rows, err := x.pool.Query(ctx, pgPrimaryKeyQuery, table.Name)
	if err != nil {
		return errs.Wrap(errs.KindQueryFailed,
			fmt.Sprintf("listing primary keys of %s", table.Name), err)
	}
	defer rows.Close()

	for rows.Next() {
		var col string
		if err := rows.Scan(&col); err != nil {
			return errs.Wrap(errs.KindQueryFailed, "scanning primary key row", err)
		}
		table.MarkPrimaryKey(col)
	}
	if err := rows.Err(); err != nil {
		return errs.Wrap(errs.KindQueryFailed, "iterating primary key rows", err)
	}
	return nil
}

func (x *postgresIndexer) addForeignKeys(ctx context.Context, ix *schema.SchemaIndex, table *schema.Table) error {
	rows, err := x.pool.Query(ctx, pgForeignKeyQuery, table.Name)
	if err != nil {
		return errs.Wrap(errs.KindQueryFailed,
			fmt.Sprintf("listing foreign keys of %s", table.Name), err)
	}
	defer rows.Close()

	for rows.Next() {
		var column, refTable, refColumn, onDelete, onUpdate string
		if err := rows.Scan(&column, &refTable, &refColumn, &onDelete, &onUpdate); err != nil {
			return errs.Wrap(errs.KindQueryFailed, "scanning foreign key row", err)
		}

		table.AddForeignKey(column, schema.ForeignKeyReference{
			Table:    refTable,
			Column:   refColumn,
			OnDelete: onDelete,
			OnUpdate: onUpdate,
		})
		ix.AddRelationship(schema.TableRelationship{
			FromTable:  table.Name,
			FromColumn: column,
			ToTable:    refTable,
			ToColumn:   refColumn,
			Kind:       schema.RelationManyToOne,
		})
	}
	if err := rows.Err(); err != nil {
		return errs.Wrap(errs.KindQueryFailed, "iterating foreign key rows", err)
	}
	return nil
}

// udtNameElement strips the leading underscore Postgres prefixes onto array
// element type names (_text -> text).
func udtNameElement(udtName string) string {
	if len(udtName) > 1 && udtName[0] == '_' {
		return udtName[1:]
	}
	return udtName
}
