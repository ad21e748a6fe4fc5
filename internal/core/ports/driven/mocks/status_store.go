package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/RookieRunboy/contract-search-system/internal/core/domain"
	"github.com/RookieRunboy/contract-search-system/internal/core/ports/driven"
)

// MockStatusStore keeps upload records in memory.
type MockStatusStore struct {
	mu      sync.Mutex
	records map[string]*domain.UploadRecord
	history map[string][]domain.UploadStatus
}

var _ driven.UploadStatusStore = (*MockStatusStore)(nil)

func NewMockStatusStore() *MockStatusStore {
	return &MockStatusStore{
		records: make(map[string]*domain.UploadRecord),
		history: make(map[string][]domain.UploadStatus),
	}
}

// History returns every status an upload has been moved through, in
// order, including the initial one.
func (m *MockStatusStore) History(uploadID string) []domain.UploadStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.UploadStatus, len(m.history[uploadID]))
	copy(out, m.history[uploadID])
	return out
}

func (m *MockStatusStore) Create(ctx context.Context, rec *domain.UploadRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *rec
	m.records[rec.UploadID] = &clone
	m.history[rec.UploadID] = append(m.history[rec.UploadID], rec.Status)
	return nil
}

func (m *MockStatusStore) UpdateStatus(ctx context.Context, uploadID string, status domain.UploadStatus, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[uploadID]
	if !ok {
		return domain.ErrNotFound
	}
	rec.Status = status
	rec.Error = errMsg
	rec.UpdatedAt = time.Now()
	m.history[uploadID] = append(m.history[uploadID], status)
	return nil
}

func (m *MockStatusStore) Get(ctx context.Context, uploadID string) (*domain.UploadRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[uploadID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *rec
	return &clone, nil
}

func (m *MockStatusStore) GetByContract(ctx context.Context, contractName string) (*domain.UploadRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *domain.UploadRecord
	for _, rec := range m.records {
		if rec.ContractName != contractName {
			continue
		}
		if latest == nil || rec.CreatedAt.After(latest.CreatedAt) {
			latest = rec
		}
	}
	if latest == nil {
		return nil, domain.ErrNotFound
	}
	clone := *latest
	return &clone, nil
}

func (m *MockStatusStore) List(ctx context.Context, limit int) ([]*domain.UploadRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.UploadRecord, 0, len(m.records))
	for _, rec := range m.records {
		clone := *rec
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockStatusStore) Delete(ctx context.Context, contractName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, rec := range m.records {
		if rec.ContractName == contractName {
			delete(m.records, id)
		}
	}
	return nil
}

func (m *MockStatusStore) DeleteAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = make(map[string]*domain.UploadRecord)
	return nil
}
