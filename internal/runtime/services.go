package runtime

import (
	"context"
	"sync"

	"github.com/RookieRunboy/contract-search-system/internal/core/ports/driven"
)

// Services holds references to the AI services the engine depends on.
// Both can be swapped at runtime; access is safe for concurrent use.
type Services struct {
	mu sync.RWMutex

	embeddingService  driven.EmbeddingService
	metadataExtractor driven.MetadataExtractor
}

// NewServices creates an empty registry.
func NewServices() *Services {
	return &Services{}
}

// EmbeddingService returns the current embedding service (may be nil).
func (s *Services) EmbeddingService() driven.EmbeddingService {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.embeddingService
}

// MetadataExtractor returns the current extractor (may be nil).
func (s *Services) MetadataExtractor() driven.MetadataExtractor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.metadataExtractor
}

// SetEmbeddingService replaces the embedding service, closing the old
// one if present.
func (s *Services) SetEmbeddingService(svc driven.EmbeddingService) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.embeddingService != nil {
		_ = s.embeddingService.Close()
	}
	s.embeddingService = svc
}

// SetMetadataExtractor replaces the extractor, closing the old one if
// present.
func (s *Services) SetMetadataExtractor(svc driven.MetadataExtractor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.metadataExtractor != nil {
		_ = s.metadataExtractor.Close()
	}
	s.metadataExtractor = svc
}

// ValidateAndSetEmbedding checks connectivity before installing the
// embedding service.
func (s *Services) ValidateAndSetEmbedding(ctx context.Context, svc driven.EmbeddingService) error {
	if svc == nil {
		s.SetEmbeddingService(nil)
		return nil
	}
	if err := svc.HealthCheck(ctx); err != nil {
		_ = svc.Close()
		return err
	}
	s.SetEmbeddingService(svc)
	return nil
}

// ValidateAndSetExtractor checks connectivity before installing the
// extractor.
func (s *Services) ValidateAndSetExtractor(ctx context.Context, svc driven.MetadataExtractor) error {
	if svc == nil {
		s.SetMetadataExtractor(nil)
		return nil
	}
	if err := svc.Ping(ctx); err != nil {
		_ = svc.Close()
		return err
	}
	s.SetMetadataExtractor(svc)
	return nil
}

// Close shuts down every registered service.
func (s *Services) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.embeddingService != nil {
		_ = s.embeddingService.Close()
		s.embeddingService = nil
	}
	if s.metadataExtractor != nil {
		_ = s.metadataExtractor.Close()
		s.metadataExtractor = nil
	}
	return nil
}
