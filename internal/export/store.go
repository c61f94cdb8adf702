// Package export defines the interface for publishing schema snapshots to
// shared object storage, so one operator's indexing pass can be reused by
// others without database credentials.
//
// All providers (MinIO, S3-compatible, …) implement the Store interface.
// Callers depend only on this package, never on a specific provider package.
//
// Usage:
//
//	cfg := export.DefaultConfig("localhost:9000", "minioadmin", "minioadmin")
//	store, err := minio.New(ctx, cfg)
//	if err != nil { ... }
//	defer store.Close()
//
//	key, err := store.PutSnapshot(ctx, cfg.Bucket, ix)
package export

import (
	"context"
	"fmt"
	"time"

	"github.com/YASSERRMD/schema-forge/internal/schema"
)

// Store is the single interface all snapshot storage providers implement.
type Store interface {
	// Ping verifies the storage backend is reachable.
	Ping(ctx context.Context) error

	// Close releases any held resources.
	Close() error

	// PutSnapshot serializes ix and uploads it to bucket under a key derived
	// from its database name and indexing time. It returns the key.
	PutSnapshot(ctx context.Context, bucket string, ix *schema.SchemaIndex) (string, error)

	// GetSnapshot downloads and decodes the snapshot at key inside bucket.
	GetSnapshot(ctx context.Context, bucket, key string) (*schema.SchemaIndex, error)

	// ListSnapshots returns metadata for stored snapshots in bucket,
	// optionally filtered to one database name.
	ListSnapshots(ctx context.Context, bucket, database string) ([]SnapshotInfo, error)

	// PresignGetURL returns a time-limited URL that allows anyone to download
	// the snapshot at key inside bucket without credentials.
	PresignGetURL(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
}

// SnapshotInfo describes one stored snapshot without its payload.
type SnapshotInfo struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// Config holds the settings needed to reach a snapshot store.
type Config struct {
	// Endpoint is the host:port of the storage server, e.g. "localhost:9000".
	Endpoint string

	// AccessKey is the access key ID.
	AccessKey string

	// SecretKey is the secret access key.
	SecretKey string

	// UseSSL controls whether TLS is used for the connection.
	UseSSL bool

	// Region is used by region-aware backends. Leave empty for MinIO.
	Region string

	// Bucket is the default bucket for snapshots.
	Bucket string
}

// DefaultConfig returns a local-dev config with the conventional bucket.
func DefaultConfig(endpoint, accessKey, secretKey string) *Config {
	return &Config{
		Endpoint:  endpoint,
		AccessKey: accessKey,
		SecretKey: secretKey,
		UseSSL:    false,
		Bucket:    "schema-snapshots",
	}
}

// snapshotKeyLayout is the timestamp component of snapshot keys.
const snapshotKeyLayout = "20060102T150405Z"

// SnapshotKey derives the object key for an index: its database name (or
// "unnamed") and UTC indexing time, as JSON under a per-database prefix.
func SnapshotKey(ix *schema.SchemaIndex) string {
	name := ix.DatabaseName
	if name == "" {
		name = "unnamed"
	}
	return fmt.Sprintf("%s/%s.json", name, ix.IndexedAt.UTC().Format(snapshotKeyLayout))
}
