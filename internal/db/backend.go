// Package db provides backend detection, pooled connections, per-dialect
// catalog indexers, and the connection manager that owns the in-memory
// schema index.
package db

import (
	"strings"

	"github.com/YASSERRMD/schema-forge/internal/errs"
)

// Backend identifies the database engine family.
type Backend int

const (
	BackendUnknown Backend = iota
	BackendPostgres
	BackendMySQL
	BackendSQLite
	BackendMSSQL
)

// Name returns the human-readable backend name.
func (b Backend) Name() string {
	switch b {
	case BackendPostgres:
		return "PostgreSQL"
	case BackendMySQL:
		return "MySQL"
	case BackendSQLite:
		return "SQLite"
	case BackendMSSQL:
		return "Microsoft SQL Server"
	default:
		return "unknown"
	}
}

func (b Backend) String() string {
	return b.Name()
}

// DefaultPort returns the conventional server port, or 0 for file-based
// backends.
func (b Backend) DefaultPort() int {
	switch b {
	case BackendPostgres:
		return 5432
	case BackendMySQL:
		return 3306
	case BackendMSSQL:
		return 1433
	default:
		return 0
	}
}

// DefaultSchema returns the namespace queried by the indexer. MySQL has no
// fixed default; the database name fills that role at indexing time.
func (b Backend) DefaultSchema() string {
	switch b {
	case BackendPostgres:
		return "public"
	case BackendSQLite:
		return "main"
	case BackendMSSQL:
		return "dbo"
	default:
		return ""
	}
}

// SupportsInformationSchema reports whether the backend exposes a standard
// information_schema catalog. SQLite does not; its indexer parses definition
// text instead.
func (b Backend) SupportsInformationSchema() bool {
	switch b {
	case BackendPostgres, BackendMySQL, BackendMSSQL:
		return true
	default:
		return false
	}
}

// DetectBackend classifies a connection string into a backend kind.
//
// Matching is case-insensitive and ordered; the first matching rule wins.
// Pure and deterministic: no I/O, no reachability check.
func DetectBackend(url string) (Backend, error) {
	lower := strings.ToLower(url)

	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return BackendPostgres, nil
	case strings.HasPrefix(lower, "mysql://"), strings.HasPrefix(lower, "mariadb://"):
		return BackendMySQL, nil
	case strings.HasPrefix(lower, "sqlite://"), strings.HasPrefix(lower, "sqlite:"),
		strings.HasSuffix(lower, ".db"), strings.HasSuffix(lower, ".sqlite"),
		strings.HasSuffix(lower, ".sqlite3"):
		return BackendSQLite, nil
	case strings.HasPrefix(lower, "mssql://"), strings.HasPrefix(lower, "sqlserver://"):
		return BackendMSSQL, nil
	default:
		return BackendUnknown, errs.Newf(errs.KindInvalidURL,
			"unable to determine database type from URL: %s", url)
	}
}

// ParseBackend resolves a backend from a bare name such as "postgres" or
// "sqlite3".
func ParseBackend(s string) (Backend, error) {
	switch strings.ToLower(s) {
	case "postgresql", "postgres", "pg":
		return BackendPostgres, nil
	case "mysql", "mariadb":
		return BackendMySQL, nil
	case "sqlite", "sqlite3":
		return BackendSQLite, nil
	case "mssql", "sqlserver", "microsoft sql server":
		return BackendMSSQL, nil
	default:
		return BackendUnknown, errs.Newf(errs.KindInvalidURL, "unsupported database type: %s", s)
	}
}
