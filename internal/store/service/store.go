package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/anthanhphan/go-replica-coordinator/internal/store/domain"
	"github.com/anthanhphan/go-replica-coordinator/internal/store/port"
)

// IDGenerator provides unique IDs for generated child segments.
type IDGenerator interface {
	Next() (int64, error)
}

//go:generate mockgen -destination=mocks/dependencies_mock.go -package=mocks -source=store.go

// StoreServiceImpl implements port.StoreService on top of a repository.
type StoreServiceImpl struct {
	repo  port.Repository
	idGen IDGenerator
}

var _ port.StoreService = (*StoreServiceImpl)(nil)

// NewStoreService creates the record service.
func NewStoreService(repo port.Repository, idGen IDGenerator) *StoreServiceImpl {
	return &StoreServiceImpl{
		repo:  repo,
		idGen: idGen,
	}
}

// Write validates and upserts the record stored at path.
func (s *StoreServiceImpl) Write(ctx context.Context, path string, value []byte) error {
	if err := domain.ValidatePath(path); err != nil {
		return err
	}
	if err := domain.ValidateValue(value); err != nil {
		return err
	}
	return s.repo.Write(ctx, path, value)
}

// Read returns the record stored at path.
func (s *StoreServiceImpl) Read(ctx context.Context, path string) ([]byte, error) {
	if err := domain.ValidatePath(path); err != nil {
		return nil, err
	}
	return s.repo.Read(ctx, path)
}

// Count returns the number of records stored under path. The record at
// path itself, if any, is not counted.
func (s *StoreServiceImpl) Count(ctx context.Context, path string) (int64, error) {
	if err := domain.ValidatePath(path); err != nil {
		return 0, err
	}
	return s.repo.Count(ctx, path+"/")
}

// Push inserts the value under a generated child of parent and returns the
// generated path. Children of the same parent never collide, even across
// nodes, because the ID generator embeds the node index.
func (s *StoreServiceImpl) Push(ctx context.Context, parent string, value []byte) (string, error) {
	if err := domain.ValidatePath(parent); err != nil {
		return "", err
	}
	if err := domain.ValidateValue(value); err != nil {
		return "", err
	}

	id, err := s.idGen.Next()
	if err != nil {
		return "", fmt.Errorf("generate child segment: %w", err)
	}

	path := domain.ChildPath(parent, strconv.FormatInt(id, 10))
	if err := domain.ValidatePath(path); err != nil {
		return "", err
	}
	if err := s.repo.Write(ctx, path, value); err != nil {
		return "", err
	}
	return path, nil
}
