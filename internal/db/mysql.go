package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/YASSERRMD/schema-forge/internal/errs"
	"github.com/YASSERRMD/schema-forge/internal/schema"
)

func openMySQL(ctx context.Context, connURL string, cfg PoolOptions) (Pool, error) {
	dsn, err := mysqlDSN(connURL)
	if err != nil {
		return nil, err
	}
	return newSQLPool(ctx, "mysql", dsn, connURL, BackendMySQL, cfg, mapMySQLError)
}

// mapMySQLError translates go-sql-driver/mysql errors into *errs.Error.
func mapMySQLError(err error, msg string) *errs.Error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return errs.Wrap(errs.KindNotFound, msg, err)
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return errs.Wrap(
			classifyMySQLCode(mysqlErr.Number),
			fmt.Sprintf("%s: %s", msg, mysqlErr.Message),
			err,
		)
	}

	return errs.Wrap(errs.KindConnectionFailed, msg, err)
}

// classifyMySQLCode maps MySQL error numbers to error kinds.
func classifyMySQLCode(code uint16) errs.Kind {
	switch code {
	case 1044, 1045, 1046, 1049: // access denied / unknown database
		return errs.KindConnectionFailed
	case 1040, 1203: // too many connections
		return errs.KindConnectionFailed
	default:
		return errs.KindQueryFailed
	}
}

// mysqlIndexer builds a SchemaIndex from the information_schema of one MySQL
// or MariaDB database.
type mysqlIndexer struct {
	pool Pool
}

const myTablesQuery = `
	SELECT TABLE_NAME,
	       TABLE_TYPE,
	       TABLE_COMMENT,
	       TABLE_ROWS
	FROM information_schema.TABLES
	WHERE TABLE_SCHEMA = DATABASE()
	  AND TABLE_TYPE IN ('BASE TABLE', 'VIEW')
	ORDER BY TABLE_NAME`

const myColumnsQuery = `
	SELECT COLUMN_NAME,
	       DATA_TYPE,
	       CHARACTER_MAXIMUM_LENGTH,
	       NUMERIC_PRECISION,
	       NUMERIC_SCALE,
	       IS_NULLABLE,
	       COLUMN_DEFAULT,
	       COLUMN_KEY,
	       COLUMN_COMMENT
	FROM information_schema.COLUMNS
	WHERE TABLE_SCHEMA = DATABASE()
	  AND TABLE_NAME = ?
	ORDER BY ORDINAL_POSITION`

const myForeignKeyQuery = `
	SELECT COLUMN_NAME,
	       REFERENCED_TABLE_NAME,
	       REFERENCED_COLUMN_NAME
	FROM information_schema.KEY_COLUMN_USAGE
	WHERE TABLE_SCHEMA = DATABASE()
	  AND TABLE_NAME = ?
	  AND REFERENCED_TABLE_NAME IS NOT NULL
	ORDER BY ORDINAL_POSITION`

func (x *mysqlIndexer) Index(ctx context.Context) (*schema.SchemaIndex, error) {
	ix := schema.NewIndex()

	var dbName sql.NullString
	if err := x.pool.QueryRow(ctx, "SELECT DATABASE()").Scan(&dbName); err != nil {
		return nil, mapMySQLError(err, "resolving database name")
	}
	if dbName.Valid {
		ix.DatabaseName = dbName.String
	}

	rows, err := x.pool.Query(ctx, myTablesQuery)
	if err != nil {
		return nil, errs.Wrap(errs.KindQueryFailed, "listing tables", err)
	}

	type tableHeader struct {
		name, typ string
		comment   sql.NullString
		estRows   sql.NullInt64
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
			// TABLE_COMMENT for views is the literal string "VIEW"; drop it.
			table = schema.NewView(h.name)
		} else {
			table = schema.NewTable(h.name)
			if h.comment.Valid && h.comment.String != "" {
				table.Comment = h.comment.String
			}
			if h.estRows.Valid {
				est := h.estRows.Int64
				table.EstimatedRows = &est
			}
		}

		if err := x.addColumns(ctx, table); err != nil {
			return nil, err
		}
		if !table.IsView {
			if err := x.addForeignKeys(ctx, ix, table); err != nil {
				return nil, err
			}
		}

		ix.AddTable(table)
	}

	return ix, nil
}

func (x *mysqlIndexer) addColumns(ctx context.Context, table *schema.Table) error {
	rows, err := x.pool.Query(ctx, myColumnsQuery, table.Name)
	if err != nil {
		return errs.Wrap(errs.KindQueryFailed,
			fmt.Sprintf("listing columns of %s", table.Name), err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			name, dataType, nullable string
			maxLen, precision, scale sql.NullInt64
			defaultVal, columnKey    sql.NullString
			comment                  sql.NullString
		)
		if err := rows.Scan(&name, &dataType, &maxLen, &precision, &scale,
			&nullable, &defaultVal, &columnKey, &comment); err != nil {
			return errs.Wrap(errs.KindQueryFailed, "scanning column row", err)
		}

		colType := schema.ColumnType{Base: dataType}
		if maxLen.Valid {
			colType.Length = &maxLen.Int64
		} else if precision.Valid {
			colType.Length = &precision.Int64
		}
		if scale.Valid {
			colType.Scale = &scale.Int64
		}

		col := schema.Column{
			Name:     name,
			Type:     colType,
			Nullable: nullable == "YES",
			IsUnique: columnKey.String == "UNI",
		}
		if defaultVal.Valid {
			col.Default = &defaultVal.String
		}
		if comment.Valid {
			col.Comment = comment.String
		}

		table.AddColumn(col)
		if columnKey.String == "PRI" {
			table.MarkPrimaryKey(name)
		}
	}
	if err := rows.Err(); err != nil {
		return errs.Wrap(errs.KindQueryFailed, "iterating column rows", err)
	}
	return nil
}

func (x *mysqlIndexer) addForeignKeys(ctx context.Context, ix *schema.SchemaIndex, table *schema.Table) error {
	rows, err := x.pool.Query(ctx, myForeignKeyQuery, table.Name)
	if err != nil {
		return errs.Wrap(errs.KindQueryFailed,
			fmt.Sprintf("listing foreign keys of %s", table.Name), err)
	}
	defer rows.Close()

	for rows.Next() {
		var column, refTable, refColumn string
		if err := rows.Scan(&column, &refTable, &refColumn); err != nil {
			return errs.Wrap(errs.KindQueryFailed, "scanning foreign key row", err)
		}

		table.AddForeignKey(column, schema.ForeignKeyReference{
			Table:  refTable,
			Column: refColumn,
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
