// Package minio provides a MinIO (S3-compatible) implementation of
// filestore.Store.
package minio

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"strings"
	"time"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/koustreak/hiverunner/internal/errs"
	"github.com/koustreak/hiverunner/internal/filestore"
)

// client is the subset of *miniogo.Client the driver uses.
type client interface {
	PutObject(ctx context.Context, bucket, object string, reader io.Reader, size int64, opts miniogo.PutObjectOptions) (miniogo.UploadInfo, error)
	PresignedGetObject(ctx context.Context, bucket, object string, expiry time.Duration, params url.Values) (*url.URL, error)
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts miniogo.MakeBucketOptions) error
}

// Driver is a MinIO implementation of filestore.Store.
// It is safe for concurrent use by multiple goroutines.
type Driver struct {
	client client
	bucket string
	prefix string
}

// New creates a Driver for cfg. With AutoCreateBucket the bucket is
// created when missing, which also verifies the server is reachable.
func New(ctx context.Context, cfg *filestore.Config) (*Driver, error) {
	endpoint, secure, err := parseEndpoint(cfg.Endpoint, cfg.UseSSL)
	if err != nil {
		return nil, err
	}
	c, err := miniogo.New(endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "failed to create minio client", err)
	}
	return newDriver(ctx, c, cfg)
}

func newDriver(ctx context.Context, c client, cfg *filestore.Config) (*Driver, error) {
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "export bucket is required")
	}
	d := &Driver{client: c, bucket: bucket, prefix: filestore.CleanPrefix(cfg.Prefix)}
	if cfg.AutoCreateBucket {
		if err := d.ensureBucket(ctx, cfg.Region); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// --- filestore.Store implementation ---

func (d *Driver) Put(ctx context.Context, key string, body []byte, contentType string) (*filestore.ObjectInfo, error) {
	object, err := filestore.JoinKey(d.prefix, key)
	if err != nil {
		return nil, err
	}
	info, err := d.client.PutObject(ctx, d.bucket, object, bytes.NewReader(body), int64(len(body)),
		miniogo.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return nil, mapError(err, "failed to upload "+object)
	}
	return &filestore.ObjectInfo{Bucket: d.bucket, Key: object, Size: info.Size, ETag: info.ETag}, nil
}

// PresignGetURL returns a time-limited public download URL for the object.
func (d *Driver) PresignGetURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	object, err := filestore.JoinKey(d.prefix, key)
	if err != nil {
		return "", err
	}
	u, err := d.client.PresignedGetObject(ctx, d.bucket, object, ttl, nil)
	if err != nil {
		return "", mapError(err, "failed to generate presigned URL")
	}
	return u.String(), nil
}

// Close is a no-op for MinIO; the SDK client holds no persistent connections.
func (d *Driver) Close() error {
	return nil
}

func (d *Driver) ensureBucket(ctx context.Context, region string) error {
	exists, err := d.client.BucketExists(ctx, d.bucket)
	if err != nil {
		return mapError(err, "failed to check bucket "+d.bucket)
	}
	if exists {
		return nil
	}
	if err := d.client.MakeBucket(ctx, d.bucket, miniogo.MakeBucketOptions{Region: region}); err != nil {
		return mapError(err, "failed to create bucket "+d.bucket)
	}
	return nil
}

// parseEndpoint accepts host:port or a URL; an https URL forces TLS.
func parseEndpoint(raw string, useSSL bool) (string, bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false, errs.New(errs.ErrKindInvalidInput, "export endpoint is required")
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		return raw, useSSL, nil
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", false, errs.Wrap(errs.ErrKindInvalidInput, "invalid export endpoint "+raw, err)
	}
	return u.Host, u.Scheme == "https" || useSSL, nil
}
