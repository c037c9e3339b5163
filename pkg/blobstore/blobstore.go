package blobstore

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned by Get when the blob does not exist
var ErrNotFound = errors.New("blob not found")

// Store is the artifact blob storage interface
type Store interface {
	// Put stores the blob at path and returns the number of bytes written
	Put(ctx context.Context, path string, r io.Reader) (int64, error)

	// Get opens the blob at path for reading. Returns ErrNotFound when absent.
	Get(ctx context.Context, path string) (io.ReadCloser, error)

	// Delete removes the blob at path and returns the number of bytes
	// removed. An absent blob is a no-op returning 0.
	Delete(ctx context.Context, path string) (int64, error)

	// Exists reports whether a blob is stored at path
	Exists(ctx context.Context, path string) (bool, error)
}
