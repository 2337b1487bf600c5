// Package filestore defines where query results are exported: an object
// store bucket that `hiverunner query -export` writes result documents to.
//
// Usage:
//
//	cfg := filestore.DefaultConfig("localhost:9000", "minioadmin", "minioadmin", "results")
//	store, err := minio.New(ctx, cfg)
//	if err != nil { ... }
//	defer store.Close()
//
//	info, err := filestore.PutResult(ctx, store, "daily/orders.json", data)
package filestore

import (
	"context"
	"path"
	"strings"
	"time"

	"github.com/koustreak/hiverunner/internal/errs"
)

// ContentTypeJSON is the content type of exported result documents.
const ContentTypeJSON = "application/json"

// Store is the interface every object storage provider implements.
type Store interface {
	// Put uploads body under key, relative to the store prefix.
	Put(ctx context.Context, key string, body []byte, contentType string) (*ObjectInfo, error)

	// PresignGetURL returns a time-limited download URL for key.
	PresignGetURL(ctx context.Context, key string, ttl time.Duration) (string, error)

	// Close releases any held resources.
	Close() error
}

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
	Size   int64  `json:"size"`
	ETag   string `json:"etag,omitempty"`
}

// PutResult stores a serialized canonical result under key.
func PutResult(ctx context.Context, store Store, key, data string) (*ObjectInfo, error) {
	return store.Put(ctx, key, []byte(data), ContentTypeJSON)
}

// JoinKey validates key and places it under prefix. Keys may not escape
// the prefix.
func JoinKey(prefix, key string) (string, error) {
	key = strings.TrimSpace(strings.TrimPrefix(key, "/"))
	if key == "" {
		return "", errs.New(errs.ErrKindInvalidInput, "object key is required")
	}
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", errs.New(errs.ErrKindInvalidInput, "invalid object key: "+key)
	}
	if prefix = CleanPrefix(prefix); prefix == "" {
		return cleaned, nil
	}
	return path.Join(prefix, cleaned), nil
}

// CleanPrefix normalises a key prefix; "" means the bucket root.
func CleanPrefix(prefix string) string {
	prefix = strings.TrimSpace(strings.TrimPrefix(prefix, "/"))
	if prefix == "" {
		return ""
	}
	if prefix = path.Clean(prefix); prefix == "." {
		return ""
	}
	return prefix
}
