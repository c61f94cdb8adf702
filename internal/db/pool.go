package db

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/YASSERRMD/schema-forge/internal/errs"
)

// Rows is an abstraction over a database result set shared by all backends.
// Callers must always call Close when done, even on error.
type Rows interface {
	// Next advances to the next row. Returns false when no more rows
	// exist or on error.
	Next() bool

	// Scan copies the current row's columns into the provided destinations.
	Scan(dest ...any) error

	// Columns returns the column names of the result set.
	Columns() ([]string, error)

	// Close releases resources held by the result set.
	Close()

	// Err returns any error encountered during iteration.
	Err() error
}

// Row is an abstraction over a single database row.
type Row interface {
	Scan(dest ...any) error
}

// Pool is the uniform connection surface the indexers and the manager run
// against. A Pool is bound at open time to the backend detected from its
// connection string and is safe for concurrent use.
type Pool interface {
	// Backend returns the engine family this pool is bound to.
	Backend() Backend

	// URL returns the connection string the pool was opened with.
	URL() string

	// Ping runs one trivial round trip to verify liveness.
	Ping(ctx context.Context) error

	// Query executes a statement that returns multiple rows.
	Query(ctx context.Context, sql string, args ...any) (Rows, error)

	// QueryRow executes a statement that returns at most one row.
	QueryRow(ctx context.Context, sql string, args ...any) Row

	// Close releases all resources held by the pool.
	Close()
}

// Pool sizing and connect-timeout defaults, applied when the corresponding
// option is zero.
const (
	DefaultMaxConns       = 10
	DefaultMinConns       = 2
	DefaultConnectTimeout = 10 * time.Second
)

// PoolOptions tunes the connection pool created by Open.
type PoolOptions struct {
	// MaxConns is the maximum number of open connections (default 10).
	MaxConns int32
	// MinConns is the number of idle connections kept alive (default 2).
	// Ignored by backends without idle-floor support.
	MinConns int32
	// ConnectTimeout bounds pool creation and the liveness ping (default 10s).
	ConnectTimeout time.Duration
}

// DefaultPoolOptions returns the documented defaults.
func DefaultPoolOptions() *PoolOptions {
	return &PoolOptions{
		MaxConns:       DefaultMaxConns,
		MinConns:       DefaultMinConns,
		ConnectTimeout: DefaultConnectTimeout,
	}
}

func (o *PoolOptions) withDefaults() PoolOptions {
	out := PoolOptions{}
	if o != nil {
		out = *o
	}
	if out.MaxConns == 0 {
		out.MaxConns = DefaultMaxConns
	}
	if out.MinConns == 0 {
		out.MinConns = DefaultMinConns
	}
	if out.ConnectTimeout == 0 {
		out.ConnectTimeout = DefaultConnectTimeout
	}
	return out
}

// Open detects the backend from the connection string, opens a pool bound to
// it, and verifies liveness with one round trip. The returned error always
// carries the originating URL.
func Open(ctx context.Context, connURL string, opts *PoolOptions) (Pool, error) {
	backend, err := DetectBackend(connURL)
	if err != nil {
		return nil, err
	}

	cfg := opts.withDefaults()

	switch backend {
	case BackendPostgres:
		return openPostgres(ctx, connURL, cfg)
	case BackendMySQL:
		return openMySQL(ctx, connURL, cfg)
	case BackendSQLite:
		return openSQLite(ctx, connURL, cfg)
	case BackendMSSQL:
		return openMSSQL(ctx, connURL, cfg)
	default:
		return nil, errs.Newf(errs.KindInvalidURL, "no driver for backend %s", backend)
	}
}

// mysqlDSN converts a mysql:// or mariadb:// URL into the DSN form the
// go-sql-driver expects. Connection strings already in native DSN form after
// the scheme (user:pass@tcp(host:port)/db) are passed through.
func mysqlDSN(connURL string) (string, error) {
	rest := strings.TrimPrefix(strings.TrimPrefix(connURL, "mysql://"), "mariadb://")
	if strings.Contains(rest, "@tcp(") || strings.Contains(rest, "@unix(") {
		return rest, nil
	}

	u, err := url.Parse(connURL)
	if err != nil {
		return "", errs.Wrap(errs.KindConnectionFailed,
			fmt.Sprintf("invalid MySQL URL: %s", connURL), err)
	}

	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "3306"
	}

	var cred string
	if u.User != nil {
		cred = u.User.Username()
		if pass, ok := u.User.Password(); ok {
			cred += ":" + pass
		}
		cred += "@"
	}

	dbName := strings.TrimPrefix(u.Path, "/")
	dsn := fmt.Sprintf("%stcp(%s:%s)/%s?parseTime=true", cred, host, port, dbName)
	if q := u.RawQuery; q != "" {
		dsn += "&" + q
	}
	return dsn, nil
}

// sqlitePath extracts the file path from a SQLite connection string: the
// sqlite:// and sqlite: prefixes are stripped; bare *.db/*.sqlite/*.sqlite3
// paths are used as-is.
func sqlitePath(connURL string) string {
	lower := strings.ToLower(connURL)
	switch {
	case strings.HasPrefix(lower, "sqlite://"):
		return connURL[len("sqlite://"):]
	case strings.HasPrefix(lower, "sqlite:"):
		return connURL[len("sqlite:"):]
	default:
		return connURL
	}
}

// mssqlURL normalises an mssql:// URL to the sqlserver:// scheme the
// go-mssqldb driver registers.
func mssqlURL(connURL string) string {
	if strings.HasPrefix(strings.ToLower(connURL), "mssql://") {
		return "sqlserver://" + connURL[len("mssql://"):]
	}
	return connURL
}
