package driving

import (
	"context"

	"github.com/RookieRunboy/contract-search-system/internal/core/domain"
)

// DocumentService is the driving port for managing indexed contracts.
type DocumentService interface {
	// List returns a summary for every indexed contract.
	List(ctx context.Context) ([]domain.ContractSummary, error)
	// Detail returns the full page and metadata view of one contract.
	Detail(ctx context.Context, contractName string) (*domain.ContractDetail, error)
	// Delete removes one contract and reports how many pages went away.
	Delete(ctx context.Context, contractName string) (int, error)
	// Clear wipes the whole index.
	Clear(ctx context.Context) error
	// BackendStatus reports search backend cluster state.
	BackendStatus(ctx context.Context) (domain.BackendInfo, error)
}
