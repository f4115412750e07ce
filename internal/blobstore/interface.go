package blobstore

import (
	"context"
	"io"
)

// PutResult describes one persisted blob payload.
type PutResult struct {
	SHA256    string
	SizeBytes int64
	Key       string
}

// Store is the byte-storage abstraction behind the file service. Implementations
// must make content addressable only after the full stream has been committed:
// a failed Put leaves nothing behind that Open can reach.
type Store interface {
	Put(ctx context.Context, r io.Reader) (PutResult, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Healthy(ctx context.Context) error
	Backend() string
}
