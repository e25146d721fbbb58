package storage

import (
	"context"
	"io"
)

// Backend is a flat key/value object store.
type Backend interface {
	Name() string
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	// Get returns ErrNotFound when the key is absent.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete treats an absent key as success.
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}
