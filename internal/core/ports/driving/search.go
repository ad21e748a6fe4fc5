package driving

import (
	"context"

	"github.com/RookieRunboy/contract-search-system/internal/core/domain"
)

// SearchService is the driving port for running searches over indexed
// contracts.
type SearchService interface {
	// Search validates params and runs the requested mode.
	Search(ctx context.Context, params domain.SearchParams) (*domain.SearchResult, error)
}
