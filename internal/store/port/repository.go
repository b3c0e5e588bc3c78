package port

import (
	"context"
	"errors"
)

var (
	ErrPathNotFound = errors.New("path not found")
)

//go:generate mockgen -destination=../service/mocks/repository_mock.go -package=mocks -source=repository.go

// Repository defines the interface for the local record store.
type Repository interface {
	// Write upserts the raw value stored at path.
	Write(ctx context.Context, path string, value []byte) error

	// Read returns the value stored at path, or ErrPathNotFound.
	Read(ctx context.Context, path string) ([]byte, error)

	// Count returns the number of keys that start with the given byte prefix.
	Count(ctx context.Context, prefix string) (int64, error)

	// Close releases the underlying storage engine.
	Close() error
}
