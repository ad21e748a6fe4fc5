package mocks

import (
	"context"
	"sync"

	"github.com/RookieRunboy/contract-search-system/internal/core/domain"
	"github.com/RookieRunboy/contract-search-system/internal/core/ports/driven"
)

// MockExtractor returns a fixed metadata result for every extraction.
type MockExtractor struct {
	mu       sync.Mutex
	result   *domain.ContractMetadata
	raw      string
	calls    []string
	failNext error
}

var _ driven.MetadataExtractor = (*MockExtractor)(nil)

func NewMockExtractor(result *domain.ContractMetadata) *MockExtractor {
	return &MockExtractor{result: result, raw: "{}"}
}

// SetFailNext makes the next Extract call return err.
func (m *MockExtractor) SetFailNext(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = err
}

// Calls returns the texts Extract has been given.
func (m *MockExtractor) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}

func (m *MockExtractor) Extract(ctx context.Context, contractText string) (*domain.ContractMetadata, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, contractText)
	if m.failNext != nil {
		err := m.failNext
		m.failNext = nil
		return nil, "", err
	}
	return m.result, m.raw, nil
}

func (m *MockExtractor) Model() string { return "mock-extractor" }

func (m *MockExtractor) Ping(ctx context.Context) error { return nil }

func (m *MockExtractor) Close() error { return nil }
