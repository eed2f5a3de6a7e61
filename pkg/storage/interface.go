package storage

import (
	"context"
	"io"
)

// PutResult describes an object after a successful write.
type PutResult struct {
	Key string
	// ETag is the integrity tag as returned by the backend, quotes included.
	ETag string
	// URL is the public address of the object.
	URL string
}

// Storage is the object store avatar images are written to.
type Storage interface {
	// Put stores content under key, replacing any existing object.
	// size is the content length or -1 when unknown.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (*PutResult, error)

	// URL returns the public address for key without contacting the backend.
	URL(key string) string
}
