package driven

import (
	"context"

	"github.com/RookieRunboy/contract-search-system/internal/core/domain"
)

// WeightedField is a lexical match field with its boost.
type WeightedField struct {
	Name  string
	Boost float64
}

// TermFilter requires an exact value on a field.
type TermFilter struct {
	Field string
	Value any
}

// RangeFilter bounds a numeric or date field. Nil bounds are open.
type RangeFilter struct {
	Field string
	GTE   any
	LTE   any
}

// VectorBoost adds a cosine-similarity score against a stored vector
// field. Documents missing the vector score Neutral instead.
type VectorBoost struct {
	Field   string
	Vector  []float32
	Weight  float64
	Neutral float64
}

// Query is the backend-independent description of one retrieval pass.
// Services construct it; adapters translate it to their native DSL.
type Query struct {
	MatchText       string
	MatchFields     []WeightedField
	Fuzziness       domain.Fuzziness
	TermFilters     []TermFilter
	RangeFilters    []RangeFilter
	Vector          *VectorBoost
	HighlightFields []string
	Size            int
}

// Hit is one matching page returned by the backend.
type Hit struct {
	Score      float64
	Page       domain.Page
	Highlights map[string][]string
}

// SearchBackend is the driven port for the index that stores contract
// pages and runs queries over them.
type SearchBackend interface {
	// EnsureIndex creates the page index if it does not exist.
	EnsureIndex(ctx context.Context) error
	// Search runs a query and returns hits ordered by descending score.
	Search(ctx context.Context, q Query) ([]Hit, error)
	// IndexPages stores the pages of one contract, replacing any
	// previous pages for the same contract name.
	IndexPages(ctx context.Context, pages []domain.Page) error
	// UpdateMetadata attaches extracted metadata to the first page of a
	// contract. It returns domain.ErrNotFound if the contract is not
	// indexed.
	UpdateMetadata(ctx context.Context, contractName string, meta *domain.ContractMetadata) error
	// DeleteByContract removes every page of a contract and reports how
	// many were deleted.
	DeleteByContract(ctx context.Context, contractName string) (int, error)
	// DeleteAll wipes the index.
	DeleteAll(ctx context.Context) error
	// ListContracts returns one summary per indexed contract.
	ListContracts(ctx context.Context) ([]domain.ContractSummary, error)
	// GetContractPages returns every page of a contract in page order.
	// It returns domain.ErrNotFound if no pages exist.
	GetContractPages(ctx context.Context, contractName string) ([]domain.Page, error)
	// HealthCheck verifies the backend is reachable.
	HealthCheck(ctx context.Context) error
	// Info reports cluster state for status endpoints.
	Info(ctx context.Context) (domain.BackendInfo, error)
}
