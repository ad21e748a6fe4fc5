package mocks

import (
	"context"
	"hash/fnv"
	"sync"

	"github.com/RookieRunboy/contract-search-system/internal/core/ports/driven"
)

// MockEmbeddingService produces deterministic vectors derived from the
// input text, so equal texts always embed identically in tests.
type MockEmbeddingService struct {
	mu       sync.Mutex
	dims     int
	calls    int
	failNext error
}

var _ driven.EmbeddingService = (*MockEmbeddingService)(nil)

func NewMockEmbeddingService(dims int) *MockEmbeddingService {
	if dims <= 0 {
		dims = 8
	}
	return &MockEmbeddingService{dims: dims}
}

// SetFailNext makes the next Embed or EmbedQuery call return err.
func (m *MockEmbeddingService) SetFailNext(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = err
}

// Calls returns how many embedding calls have been made.
func (m *MockEmbeddingService) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockEmbeddingService) vector(text string) []float32 {
	h := fnv.New32a()
	h.Write([]byte(text))
	seed := h.Sum32()
	vec := make([]float32, m.dims)
	for i := range vec {
		seed = seed*1664525 + 1013904223
		vec[i] = float32(seed%1000)/1000 - 0.5
	}
	return vec
}

func (m *MockEmbeddingService) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.failNext != nil {
		err := m.failNext
		m.failNext = nil
		return nil, err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = m.vector(t)
	}
	return out, nil
}

func (m *MockEmbeddingService) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	vecs, err := m.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (m *MockEmbeddingService) Dimensions() int { return m.dims }

func (m *MockEmbeddingService) Model() string { return "mock-embedding" }

func (m *MockEmbeddingService) HealthCheck(ctx context.Context) error { return nil }

func (m *MockEmbeddingService) Close() error { return nil }
