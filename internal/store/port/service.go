package port

import (
	"context"
)

// StoreService defines the record operations exposed to peers and to the
// local coordination workers.
type StoreService interface {
	// Write validates the path and value, then upserts the record.
	Write(ctx context.Context, path string, value []byte) error

	// Read returns the record stored at path, or ErrPathNotFound.
	Read(ctx context.Context, path string) ([]byte, error)

	// Count returns the number of records stored under path.
	Count(ctx context.Context, path string) (int64, error)

	// Push inserts the value under a generated child of parent and returns
	// the full generated path.
	Push(ctx context.Context, parent string, value []byte) (string, error)
}
