package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/RookieRunboy/contract-search-system/internal/core/domain"
	"github.com/RookieRunboy/contract-search-system/internal/core/ports/driven"
	"github.com/RookieRunboy/contract-search-system/internal/core/ports/driving"
)

// Ensure documentService implements DocumentService
var _ driving.DocumentService = (*documentService)(nil)

// documentService implements the DocumentService interface
type documentService struct {
	backend     driven.SearchBackend
	statusStore driven.UploadStatusStore
}

// NewDocumentService creates a new DocumentService.
func NewDocumentService(backend driven.SearchBackend, statusStore driven.UploadStatusStore) driving.DocumentService {
	return &documentService{
		backend:     backend,
		statusStore: statusStore,
	}
}

// List returns a summary of every indexed contract.
func (s *documentService) List(ctx context.Context) ([]domain.ContractSummary, error) {
	return s.backend.ListContracts(ctx)
}

// Detail returns the full page and metadata view of one contract.
func (s *documentService) Detail(ctx context.Context, contractName string) (*domain.ContractDetail, error) {
	contractName = strings.TrimSpace(contractName)
	if contractName == "" {
		return nil, fmt.Errorf("%w: contract name is required", domain.ErrInvalidInput)
	}

	pages, err := s.backend.GetContractPages(ctx, contractName)
	if err != nil {
		return nil, err
	}

	detail := &domain.ContractDetail{
		ContractName: contractName,
		TotalPages:   len(pages),
		Pages:        make([]domain.PageDetail, 0, len(pages)),
	}
	for _, p := range pages {
		chars := utf8.RuneCountInString(p.Text)
		detail.TotalChars += chars
		detail.Pages = append(detail.Pages, domain.PageDetail{
			PageID:    p.PageID,
			Text:      p.Text,
			CharCount: chars,
		})
		if p.PageID == 1 {
			detail.Metadata = p.Metadata
			detail.UploadTime = p.CreatedAt
		}
	}
	detail.HasMetadata = detail.Metadata.HasContent()
	detail.MetadataStatus = detail.Metadata.Status()
	return detail, nil
}

// Delete removes one contract's pages and its upload records.
func (s *documentService) Delete(ctx context.Context, contractName string) (int, error) {
	contractName = strings.TrimSpace(contractName)
	if contractName == "" {
		return 0, fmt.Errorf("%w: contract name is required", domain.ErrInvalidInput)
	}

	deleted, err := s.backend.DeleteByContract(ctx, contractName)
	if err != nil {
		return 0, err
	}
	// Upload history is best effort; the index is the source of truth.
	_ = s.statusStore.Delete(ctx, contractName)
	return deleted, nil
}

// Clear wipes the whole index and the upload history with it.
func (s *documentService) Clear(ctx context.Context) error {
	if err := s.backend.DeleteAll(ctx); err != nil {
		return err
	}
	// Upload history is best effort; the index is the source of truth.
	_ = s.statusStore.DeleteAll(ctx)
	return nil
}

// BackendStatus reports search backend cluster state.
func (s *documentService) BackendStatus(ctx context.Context) (domain.BackendInfo, error) {
	return s.backend.Info(ctx)
}
