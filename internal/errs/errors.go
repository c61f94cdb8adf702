// Package errs provides the unified error type used across all of schema-forge.
//
// Every subsystem (backend detection, pool, indexers, cache, config) wraps its
// native errors into *errs.Error before returning them to callers. Callers use
// the Is* predicates to handle errors without importing driver-specific
// packages.
//
// Usage:
//
//	// In an indexer, wrap native errors:
//	return errs.Wrap(errs.KindQueryFailed, "listing tables", err)
//
//	// In the CLI, check the error kind:
//	if errs.IsUnsupported(err) {
//	    fmt.Fprintln(os.Stderr, "backend not supported yet")
//	}
package errs

import (
	"errors"
	"fmt"
)

// Kind categorises an error without exposing driver-specific codes.
// All backends (Postgres, MySQL, SQLite, MSSQL) and the cache map their
// native errors to one of these kinds, giving callers a single consistent API.
type Kind int

const (
	KindUnknown          Kind = iota
	KindInvalidURL            // connection string matches no known dialect
	KindConnectionFailed      // unreachable host, bad credentials, malformed DSN
	KindUnsupported           // dialect detected but not indexable (MSSQL)
	KindQueryFailed           // a catalog query failed mid-pass
	KindSerialization         // cache payload unreadable or corrupt
	KindCache                 // I/O failure against the embedded cache store
	KindNotFound              // no rows, no cache entry, unknown table
	KindConfig                // settings file or keyring failure
)

func (k Kind) String() string {
	switch k {
	case KindInvalidURL:
		return "invalid_url"
	case KindConnectionFailed:
		return "connection_failed"
	case KindUnsupported:
		return "unsupported_backend"
	case KindQueryFailed:
		return "query_failed"
	case KindSerialization:
		return "serialization_failed"
	case KindCache:
		return "cache_failed"
	case KindNotFound:
		return "not_found"
	case KindConfig:
		return "config_failed"
	default:
		return "unknown"
	}
}

// Error is the single error type returned by all schema-forge subsystems.
// Drivers and indexers produce it; callers inspect it via the Is* predicates.
type Error struct {
	Kind    Kind
	Message string
	Cause   error // original driver-level error, preserved for logging
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap allows errors.Is / errors.As to traverse the cause chain.
func (e *Error) Unwrap() error {
	return e.Cause
}

// --- Constructors ---

// New creates an *Error with the given kind and message and no cause.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Newf creates an *Error with a formatted message and no cause.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an *Error with the given kind, message, and an underlying cause.
func Wrap(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// --- Predicates ---

// IsInvalidURL reports whether err means the connection string matched no
// recognised dialect form.
func IsInvalidURL(err error) bool {
	return kindOf(err) == KindInvalidURL
}

// IsConnectionFailed reports whether err is a connectivity or auth failure.
func IsConnectionFailed(err error) bool {
	return kindOf(err) == KindConnectionFailed
}

// IsUnsupported reports whether err means the backend was recognised but has
// no working indexer.
func IsUnsupported(err error) bool {
	return kindOf(err) == KindUnsupported
}

// IsQueryFailed reports whether err is a catalog or SQL execution failure.
func IsQueryFailed(err error) bool {
	return kindOf(err) == KindQueryFailed
}

// IsSerialization reports whether err means a cache payload could not be
// decoded.
func IsSerialization(err error) bool {
	return kindOf(err) == KindSerialization
}

// IsCache reports whether err is an I/O failure against the embedded store.
func IsCache(err error) bool {
	return kindOf(err) == KindCache
}

// IsNotFound reports whether err represents a "not found" result.
// A cache miss is not an error at all; this covers lookups such as unknown
// tables or missing settings.
func IsNotFound(err error) bool {
	return kindOf(err) == KindNotFound
}

// IsConfig reports whether err is a settings-file or keyring failure, or an
// invalid configuration value.
func IsConfig(err error) bool {
	return kindOf(err) == KindConfig
}

// kindOf extracts the Kind from any error in the chain.
func kindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
