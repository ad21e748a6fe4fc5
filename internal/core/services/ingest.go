package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/RookieRunboy/contract-search-system/internal/core/domain"
	"github.com/RookieRunboy/contract-search-system/internal/core/ports/driven"
	"github.com/RookieRunboy/contract-search-system/internal/core/ports/driving"
	"github.com/RookieRunboy/contract-search-system/internal/runtime"
)

// Ensure ingestService implements IngestService
var _ driving.IngestService = (*ingestService)(nil)

// ingestService implements the IngestService interface
type ingestService struct {
	backend     driven.SearchBackend
	statusStore driven.UploadStatusStore
	queue       driven.TaskQueue
	services    *runtime.Services
}

// NewIngestService creates a new IngestService.
func NewIngestService(
	backend driven.SearchBackend,
	statusStore driven.UploadStatusStore,
	queue driven.TaskQueue,
	services *runtime.Services,
) driving.IngestService {
	return &ingestService{
		backend:     backend,
		statusStore: statusStore,
		queue:       queue,
		services:    services,
	}
}

// Ingest embeds and indexes the pages of one contract, replacing any
// previous version, and queues background metadata extraction.
func (s *ingestService) Ingest(ctx context.Context, fileName string, pages []driving.PageInput) (string, error) {
	fileName = strings.TrimSpace(fileName)
	if fileName == "" {
		return "", fmt.Errorf("%w: file name is required", domain.ErrInvalidInput)
	}
	if len(pages) == 0 {
		return "", fmt.Errorf("%w: at least one page is required", domain.ErrInvalidInput)
	}

	contractName := domain.ContractNameFromFile(fileName)
	uploadID := uuid.NewString()
	now := time.Now()

	rec := &domain.UploadRecord{
		UploadID:     uploadID,
		ContractName: contractName,
		FileName:     fileName,
		Status:       domain.UploadStatusPending,
		PageCount:    len(pages),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.statusStore.Create(ctx, rec); err != nil {
		return "", err
	}

	docs, err := s.buildPages(ctx, uploadID, contractName, pages, now)
	if err != nil {
		_ = s.statusStore.UpdateStatus(ctx, uploadID, domain.UploadStatusFailed, err.Error())
		return uploadID, err
	}

	if err := s.backend.IndexPages(ctx, docs); err != nil {
		_ = s.statusStore.UpdateStatus(ctx, uploadID, domain.UploadStatusFailed, err.Error())
		return uploadID, err
	}

	task := &domain.Task{
		ID:           uuid.NewString(),
		Type:         domain.TaskTypeExtractMetadata,
		ContractName: contractName,
		UploadID:     uploadID,
		Status:       domain.TaskStatusPending,
		CreatedAt:    time.Now(),
	}
	if err := s.queue.Enqueue(ctx, task); err != nil {
		// The contract is searchable without metadata; extraction can
		// be triggered again through the API.
		_ = s.statusStore.UpdateStatus(ctx, uploadID, domain.UploadStatusCompleted, "")
		return uploadID, nil
	}
	_ = s.statusStore.UpdateStatus(ctx, uploadID, domain.UploadStatusMetadataExtracting, "")
	return uploadID, nil
}

// buildPages embeds the page texts and assembles index documents. A
// missing or failing embedding service indexes the pages without
// vectors so lexical search still works.
func (s *ingestService) buildPages(ctx context.Context, uploadID, contractName string, pages []driving.PageInput, now time.Time) ([]domain.Page, error) {
	texts := make([]string, 0, len(pages))
	for i, p := range pages {
		if strings.TrimSpace(p.Text) == "" {
			return nil, fmt.Errorf("%w: page %d has no text", domain.ErrInvalidInput, i+1)
		}
		texts = append(texts, p.Text)
	}

	_ = s.statusStore.UpdateStatus(ctx, uploadID, domain.UploadStatusVectorizing, "")

	var vectors [][]float32
	if embeddingService := s.services.EmbeddingService(); embeddingService != nil {
		vecs, err := embeddingService.Embed(ctx, texts)
		if err == nil && len(vecs) == len(texts) {
			vectors = vecs
		}
	}

	docs := make([]domain.Page, 0, len(pages))
	for i, p := range pages {
		pageID := p.PageID
		if pageID <= 0 {
			pageID = i + 1
		}
		doc := domain.Page{
			ContractName: contractName,
			PageID:       pageID,
			Text:         p.Text,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if vectors != nil {
			doc.TextVector = vectors[i]
		}
		if pageID == 1 {
			doc.Metadata = &domain.ContractMetadata{}
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// UploadStatus returns the lifecycle record for an upload id.
func (s *ingestService) UploadStatus(ctx context.Context, uploadID string) (*domain.UploadRecord, error) {
	uploadID = strings.TrimSpace(uploadID)
	if uploadID == "" {
		return nil, fmt.Errorf("%w: upload id is required", domain.ErrInvalidInput)
	}
	return s.statusStore.Get(ctx, uploadID)
}
