package driving

import (
	"context"

	"github.com/RookieRunboy/contract-search-system/internal/core/domain"
)

// MetadataService is the driving port for structured metadata over
// indexed contracts.
type MetadataService interface {
	// Extract runs LLM extraction over a contract's text and stores the
	// result on its first page.
	Extract(ctx context.Context, contractName string) (*domain.ContractMetadata, error)
	// Save stores manually supplied metadata, regenerating its vector.
	Save(ctx context.Context, contractName string, meta *domain.ContractMetadata) error
}
