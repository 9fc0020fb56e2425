package storage

import (
	"context"
	"errors"
	"fmt"

	"teleasistencia-backend/internal/types"
)

// ErrNotFound is returned when no report has been persisted yet.
var ErrNotFound = errors.New("not found")

// StorageError wraps a backend failure with the operation that caused it.
// Callers treat these as non-fatal: a report that fails to persist is
// still served from memory.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("storage %s: %v", e.Op, e.Err) }
func (e *StorageError) Unwrap() error { return e.Err }

// Store defines the storage interface
type Store interface {
	SaveReport(ctx context.Context, snapshot *types.ReportSnapshot) error
	GetLatestReport(ctx context.Context) (*types.ReportSnapshot, error)
	SaveAssignments(ctx context.Context, assignments []types.Assignment) error
	ListAssignments(ctx context.Context) ([]types.Assignment, error)
	TruncateAll(ctx context.Context) error
}

// NoopStore is a no-op implementation when persistence is disabled
type NoopStore struct{}

func NewNoopStore() *NoopStore { return &NoopStore{} }

func (s *NoopStore) SaveReport(_ context.Context, _ *types.ReportSnapshot) error { return nil }
func (s *NoopStore) GetLatestReport(_ context.Context) (*types.ReportSnapshot, error) {
	return nil, ErrNotFound
}
func (s *NoopStore) SaveAssignments(_ context.Context, _ []types.Assignment) error { return nil }
func (s *NoopStore) ListAssignments(_ context.Context) ([]types.Assignment, error) { return nil, nil }
func (s *NoopStore) TruncateAll(_ context.Context) error                           { return nil }
