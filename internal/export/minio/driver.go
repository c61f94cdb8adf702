// Package minio provides a MinIO implementation of export.Store.
package minio

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"time"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/YASSERRMD/schema-forge/internal/errs"
	"github.com/YASSERRMD/schema-forge/internal/export"
	"github.com/YASSERRMD/schema-forge/internal/schema"
)

// Driver is a MinIO implementation of export.Store.
// It is safe for concurrent use by multiple goroutines.
type Driver struct {
	client *miniogo.Client
}

// New connects to MinIO using the provided Config and returns a Driver.
// It calls Ping to validate the connection before returning.
func New(ctx context.Context, cfg *export.Config) (*Driver, error) {
	client, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errs.Wrap(errs.KindConnectionFailed, "creating minio client", err)
	}

	d := &Driver{client: client}

	if err := d.Ping(ctx); err != nil {
		return nil, err
	}

	return d, nil
}

// --- export.Store implementation ---

// Ping verifies the MinIO server is reachable by listing buckets.
func (d *Driver) Ping(ctx context.Context) error {
	if _, err := d.client.ListBuckets(ctx); err != nil {
		return mapError(err, "ping failed")
	}
	return nil
}

// Close is a no-op for MinIO; the SDK client holds no persistent connections.
func (d *Driver) Close() error {
	return nil
}

// PutSnapshot serializes ix and uploads it under export.SnapshotKey(ix).
func (d *Driver) PutSnapshot(ctx context.Context, bucket string, ix *schema.SchemaIndex) (string, error) {
	data, err := json.Marshal(ix)
	if err != nil {
		return "", errs.Wrap(errs.KindSerialization, "encoding snapshot", err)
	}

	key := export.SnapshotKey(ix)
	_, err = d.client.PutObject(ctx, bucket, key,
		bytes.NewReader(data), int64(len(data)),
		miniogo.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return "", mapError(err, "uploading snapshot")
	}
	return key, nil
}

// GetSnapshot downloads and decodes the snapshot at key inside bucket.
func (d *Driver) GetSnapshot(ctx context.Context, bucket, key string) (*schema.SchemaIndex, error) {
	obj, err := d.client.GetObject(ctx, bucket, key, miniogo.GetObjectOptions{})
	if err != nil {
		return nil, mapError(err, "downloading snapshot")
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, mapError(err, "reading snapshot")
	}

	var ix schema.SchemaIndex
	if err := json.Unmarshal(data, &ix); err != nil {
		return nil, errs.Wrap(errs.KindSerialization, "decoding snapshot", err)
	}
	if ix.Tables == nil {
		ix.Tables = make(map[string]*schema.Table)
	}
	return &ix, nil
}

// ListSnapshots returns metadata for snapshots in bucket. A non-empty
// database restricts the listing to that database's prefix.
func (d *Driver) ListSnapshots(ctx context.Context, bucket, database string) ([]export.SnapshotInfo, error) {
	prefix := ""
	if database != "" {
		prefix = database + "/"
	}

	var results []export.SnapshotInfo
	for obj := range d.client.ListObjects(ctx, bucket, miniogo.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, mapError(obj.Err, "listing snapshots")
		}
		if !strings.HasSuffix(obj.Key, ".json") {
			continue
		}
		results = append(results, export.SnapshotInfo{
			Key:          obj.Key,
			Size:         obj.Size,
			LastModified: obj.LastModified,
		})
	}
	return results, nil
}

// PresignGetURL returns a time-limited public download URL for the snapshot.
func (d *Driver) PresignGetURL(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	u, err := d.client.PresignedGetObject(ctx, bucket, key, ttl, nil)
	if err != nil {
		return "", mapError(err, "generating presigned URL")
	}
	return u.String(), nil
}
