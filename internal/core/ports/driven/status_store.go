package driven

import (
	"context"

	"github.com/RookieRunboy/contract-search-system/internal/core/domain"
)

// UploadStatusStore persists the processing lifecycle of uploaded
// contracts.
type UploadStatusStore interface {
	// Create inserts a new record in its initial status.
	Create(ctx context.Context, rec *domain.UploadRecord) error
	// UpdateStatus advances a record to the given status. A non-empty
	// errMsg is stored when the status is failed.
	UpdateStatus(ctx context.Context, uploadID string, status domain.UploadStatus, errMsg string) error
	// Get returns a record by upload id, or domain.ErrNotFound.
	Get(ctx context.Context, uploadID string) (*domain.UploadRecord, error)
	// GetByContract returns the most recent record for a contract name,
	// or domain.ErrNotFound.
	GetByContract(ctx context.Context, contractName string) (*domain.UploadRecord, error)
	// List returns records newest first, capped at limit.
	List(ctx context.Context, limit int) ([]*domain.UploadRecord, error)
	// Delete removes the records for a contract name.
	Delete(ctx context.Context, contractName string) error
	// DeleteAll removes every record.
	DeleteAll(ctx context.Context) error
}
