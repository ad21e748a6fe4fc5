package driving

import (
	"context"

	"github.com/RookieRunboy/contract-search-system/internal/core/domain"
)

// PageInput is one page of pre-extracted contract text supplied by the
// caller. Text extraction from source files happens upstream.
type PageInput struct {
	PageID int    `json:"page_id"`
	Text   string `json:"text"`
}

// IngestService is the driving port for adding contracts to the index.
type IngestService interface {
	// Ingest embeds and indexes the pages of one contract, tracks its
	// upload lifecycle, and queues background metadata extraction.
	// It returns the upload id for status polling.
	Ingest(ctx context.Context, fileName string, pages []PageInput) (string, error)
	// UploadStatus returns the lifecycle record for an upload id.
	UploadStatus(ctx context.Context, uploadID string) (*domain.UploadRecord, error)
}
