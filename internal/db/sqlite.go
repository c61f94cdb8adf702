package db

import (
	"context"
	"strings"

	_ "github.com/mattn/go-sqlite3" // register "sqlite3" driver

	"github.com/YASSERRMD/schema-forge/internal/errs"
	"github.com/YASSERRMD/schema-forge/internal/schema"
)

func openSQLite(ctx context.Context, connURL string, cfg PoolOptions) (Pool, error) {
	return newSQLPool(ctx, "sqlite3", sqlitePath(connURL), connURL,
		BackendSQLite, cfg, mapGenericError)
}

// sqliteIndexer builds a SchemaIndex by parsing object definition text from
// the master catalog. SQLite has no information_schema, so column metadata
// comes from the stored CREATE statements.
type sqliteIndexer struct {
	pool Pool
}

const sqliteMasterQuery = `
	SELECT name, type, sql
	FROM sqlite_master
	WHERE type IN ('table', 'view')
	  AND name NOT LIKE 'sqlite_%'
	ORDER BY name`

func (x *sqliteIndexer) Index(ctx context.Context) (*schema.SchemaIndex, error) {
	ix := schema.NewIndex()
	ix.DatabaseName = BackendSQLite.DefaultSchema()
	ix.SchemaName = BackendSQLite.DefaultSchema()

	rows, err := x.pool.Query(ctx, sqliteMasterQuery)
	if err != nil {
		return nil, errs.Wrap(errs.KindQueryFailed, "listing master catalog", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name, objType string
		var defSQL *string
		if err := rows.Scan(&name, &objType, &defSQL); err != nil {
			return nil, errs.Wrap(errs.KindQueryFailed, "scanning master catalog row", err)
		}

		var table *schema.Table
		if objType == "view" {
			table = schema.NewView(name)
		} else {
			table = schema.NewTable(name)
		}
		if defSQL != nil {
			parseCreateColumns(*defSQL, table)
		}

		ix.AddTable(table)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Wrap(errs.KindQueryFailed, "iterating master catalog", err)
	}

	return ix, nil
}

// tableConstraintPrefixes starts a table-level constraint line inside a
// CREATE body; such lines are skipped, not treated as columns.
var tableConstraintPrefixes = []string{
	"PRIMARY KEY", "FOREIGN KEY", "UNIQUE", "CHECK", "CONSTRAINT",
}

// parseCreateColumns extracts columns from the parenthesized body of a
// CREATE statement and adds them to table.
//
// The body is split naively on commas, so type parameters containing commas
// (DECIMAL(10,2)) and multi-argument default expressions mis-split. This is
// a known limitation of definition-text parsing, kept deliberately simple.
// Foreign keys are not extracted from SQLite definitions.
func parseCreateColumns(defSQL string, table *schema.Table) {
	start := strings.Index(defSQL, "(")
	if start < 0 {
		return
	}
	rest := defSQL[start+1:]
	end := strings.LastIndex(rest, ")")
	if end < 0 {
		return
	}
	body := rest[:end]

	for _, def := range strings.Split(body, ",") {
		def = strings.TrimSpace(def)
		if def == "" {
			continue
		}

		upper := strings.ToUpper(def)
		if hasConstraintPrefix(upper) {
			continue
		}

		parts := strings.Fields(def)
		if len(parts) == 0 {
			continue
		}

		name := parts[0]
		baseType := "TEXT"
		if len(parts) > 1 {
			baseType = parts[1]
		}

		isPK := strings.Contains(upper, "PRIMARY KEY")
		col := schema.Column{
			Name:     name,
			Type:     schema.ColumnType{Base: baseType},
			Nullable: !strings.Contains(upper, "NOT NULL"),
			IsUnique: strings.Contains(upper, "UNIQUE"),
		}
		table.AddColumn(col)
		if isPK {
			table.MarkPrimaryKey(name)
		}
	}
}

func hasConstraintPrefix(upperDef string) bool {
	for _, prefix := range tableConstraintPrefixes {
		if strings.HasPrefix(upperDef, prefix) {
			return true
		}
	}
	return false
}
