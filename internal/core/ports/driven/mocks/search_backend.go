package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/RookieRunboy/contract-search-system/internal/core/domain"
	"github.com/RookieRunboy/contract-search-system/internal/core/ports/driven"
)

// MockSearchBackend is an in-memory SearchBackend for service tests.
// Search pops queued responses when any are set, so tests control the
// exact hits each retrieval pass returns; the stored pages back the
// management operations.
type MockSearchBackend struct {
	mu       sync.Mutex
	pages    map[string][]domain.Page
	queries  []driven.Query
	queued   [][]driven.Hit
	failNext error
}

var _ driven.SearchBackend = (*MockSearchBackend)(nil)

func NewMockSearchBackend() *MockSearchBackend {
	return &MockSearchBackend{pages: make(map[string][]domain.Page)}
}

// SetFailNext makes the next operation return err.
func (m *MockSearchBackend) SetFailNext(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = err
}

// QueueHits appends one Search response to be returned in order.
func (m *MockSearchBackend) QueueHits(hits []driven.Hit) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queued = append(m.queued, hits)
}

// Queries returns every query Search has received.
func (m *MockSearchBackend) Queries() []driven.Query {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]driven.Query, len(m.queries))
	copy(out, m.queries)
	return out
}

func (m *MockSearchBackend) takeFail() error {
	if m.failNext != nil {
		err := m.failNext
		m.failNext = nil
		return err
	}
	return nil
}

func (m *MockSearchBackend) EnsureIndex(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.takeFail()
}

func (m *MockSearchBackend) Search(ctx context.Context, q driven.Query) ([]driven.Hit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFail(); err != nil {
		return nil, err
	}
	m.queries = append(m.queries, q)
	if len(m.queued) > 0 {
		hits := m.queued[0]
		m.queued = m.queued[1:]
		if q.Size > 0 && len(hits) > q.Size {
			hits = hits[:q.Size]
		}
		return hits, nil
	}
	return nil, nil
}

func (m *MockSearchBackend) IndexPages(ctx context.Context, pages []domain.Page) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFail(); err != nil {
		return err
	}
	if len(pages) == 0 {
		return nil
	}
	name := pages[0].ContractName
	stored := make([]domain.Page, len(pages))
	copy(stored, pages)
	m.pages[name] = stored
	return nil
}

func (m *MockSearchBackend) UpdateMetadata(ctx context.Context, contractName string, meta *domain.ContractMetadata) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFail(); err != nil {
		return err
	}
	pages, ok := m.pages[contractName]
	if !ok {
		return domain.ErrNotFound
	}
	for i := range pages {
		if pages[i].PageID == 1 {
			pages[i].Metadata = meta
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *MockSearchBackend) DeleteByContract(ctx context.Context, contractName string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFail(); err != nil {
		return 0, err
	}
	pages, ok := m.pages[contractName]
	if !ok {
		return 0, domain.ErrNotFound
	}
	delete(m.pages, contractName)
	return len(pages), nil
}

func (m *MockSearchBackend) DeleteAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFail(); err != nil {
		return err
	}
	m.pages = make(map[string][]domain.Page)
	return nil
}

func (m *MockSearchBackend) ListContracts(ctx context.Context) ([]domain.ContractSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFail(); err != nil {
		return nil, err
	}
	var out []domain.ContractSummary
	for name, pages := range m.pages {
		summary := domain.ContractSummary{ContractName: name, PageCount: len(pages)}
		for _, p := range pages {
			if p.PageID == 1 {
				summary.HasMetadata = p.Metadata.HasContent()
				summary.MetadataStatus = p.Metadata.Status()
				summary.UploadTime = p.CreatedAt
			}
		}
		out = append(out, summary)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ContractName < out[j].ContractName })
	return out, nil
}

func (m *MockSearchBackend) GetContractPages(ctx context.Context, contractName string) ([]domain.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFail(); err != nil {
		return nil, err
	}
	pages, ok := m.pages[contractName]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := make([]domain.Page, len(pages))
	copy(out, pages)
	sort.Slice(out, func(i, j int) bool { return out[i].PageID < out[j].PageID })
	return out, nil
}

func (m *MockSearchBackend) HealthCheck(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.takeFail()
}

func (m *MockSearchBackend) Info(ctx context.Context) (domain.BackendInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFail(); err != nil {
		return domain.BackendInfo{}, err
	}
	return domain.BackendInfo{ClusterName: "mock", Status: "green", NumberOfNodes: 1, ActiveShards: 1, IndexName: "contracts"}, nil
}
