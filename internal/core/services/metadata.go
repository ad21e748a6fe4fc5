package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/RookieRunboy/contract-search-system/internal/core/domain"
	"github.com/RookieRunboy/contract-search-system/internal/core/ports/driven"
	"github.com/RookieRunboy/contract-search-system/internal/core/ports/driving"
	"github.com/RookieRunboy/contract-search-system/internal/runtime"
)

// Ensure metadataService implements MetadataService
var _ driving.MetadataService = (*metadataService)(nil)

// maxExtractionChars caps how much contract text is sent to the model.
const maxExtractionChars = 8000

// metadataService implements the MetadataService interface
type metadataService struct {
	backend  driven.SearchBackend
	services *runtime.Services
}

// NewMetadataService creates a new MetadataService.
// The extractor and embedding service are accessed dynamically via
// runtime.Services.
func NewMetadataService(backend driven.SearchBackend, services *runtime.Services) driving.MetadataService {
	return &metadataService{
		backend:  backend,
		services: services,
	}
}

// Extract runs LLM extraction over a contract's text and stores the
// result on its first page.
func (s *metadataService) Extract(ctx context.Context, contractName string) (*domain.ContractMetadata, error) {
	contractName = strings.TrimSpace(contractName)
	if contractName == "" {
		return nil, fmt.Errorf("%w: contract name is required", domain.ErrInvalidInput)
	}

	extractor := s.services.MetadataExtractor()
	if extractor == nil {
		return nil, fmt.Errorf("%w: no extractor configured", domain.ErrExtraction)
	}

	pages, err := s.backend.GetContractPages(ctx, contractName)
	if err != nil {
		return nil, err
	}

	texts := make([]string, 0, len(pages))
	for _, p := range pages {
		texts = append(texts, p.Text)
	}
	text := strings.Join(texts, "\n")
	if runes := []rune(text); len(runes) > maxExtractionChars {
		text = string(runes[:maxExtractionChars])
	}

	meta, _, err := extractor.Extract(ctx, text)
	if err != nil {
		return nil, err
	}
	meta.ExtractedAt = time.Now()

	s.embedMetadata(ctx, meta)

	if err := s.backend.UpdateMetadata(ctx, contractName, meta); err != nil {
		return nil, err
	}
	return meta, nil
}

// Save stores manually supplied metadata, regenerating its vector.
func (s *metadataService) Save(ctx context.Context, contractName string, meta *domain.ContractMetadata) error {
	contractName = strings.TrimSpace(contractName)
	if contractName == "" {
		return fmt.Errorf("%w: contract name is required", domain.ErrInvalidInput)
	}
	if !meta.HasContent() {
		return fmt.Errorf("%w: metadata has no fields set", domain.ErrInvalidInput)
	}

	if meta.ExtractedAt.IsZero() {
		meta.ExtractedAt = time.Now()
	}
	s.embedMetadata(ctx, meta)

	return s.backend.UpdateMetadata(ctx, contractName, meta)
}

// embedMetadata attaches a vector to the metadata record. Missing or
// failing embedding leaves the record lexical-only.
func (s *metadataService) embedMetadata(ctx context.Context, meta *domain.ContractMetadata) {
	embeddingService := s.services.EmbeddingService()
	if embeddingService == nil {
		return
	}
	text := meta.EmbeddingText()
	if text == "" {
		return
	}
	vec, err := embeddingService.EmbedQuery(ctx, text)
	if err != nil {
		return
	}
	meta.MetadataVector = vec
}
