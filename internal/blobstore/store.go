// Package blobstore abstracts the object storage bucket that holds
// knowledge base documents and the index version catalog.
//
// Implementations exist for MinIO (and other S3-compatible services),
// AWS S3, and an in-memory store for tests. Keys are full object keys;
// prefix layout (documents/, versions/) is the caller's concern.
package blobstore

import (
	"context"
	"os"
	"time"
)

// ErrNotFound is returned when an object does not exist.
//
// Implementations return an error satisfying `errors.Is(err, ErrNotFound)`.
// The default maps to `os.ErrNotExist`.
var ErrNotFound = os.ErrNotExist

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
	ETag         string
}

// Store is an abstraction over an object storage bucket.
type Store interface {
	// List returns info for all objects whose key starts with prefix,
	// sorted by key. An empty result is a nil slice, not an error.
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)

	// Get reads a whole object.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put writes a whole object, overwriting any existing one.
	Put(ctx context.Context, key string, data []byte, contentType string) error

	// Delete removes an object. Deleting a missing object is not an error.
	Delete(ctx context.Context, key string) error

	// Stat returns object info without reading the body.
	Stat(ctx context.Context, key string) (ObjectInfo, error)
}
