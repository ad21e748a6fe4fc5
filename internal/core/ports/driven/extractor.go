package driven

import (
	"context"

	"github.com/RookieRunboy/contract-search-system/internal/core/domain"
)

// MetadataExtractor pulls structured contract fields out of raw text
// with a language model. The raw model response is returned alongside
// the parsed result for diagnostics.
type MetadataExtractor interface {
	Extract(ctx context.Context, contractText string) (*domain.ContractMetadata, string, error)
	// Model returns the model identifier in use.
	Model() string
	// Ping verifies the extraction endpoint is reachable.
	Ping(ctx context.Context) error
	// Close releases any resources held by the extractor.
	Close() error
}
