package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/RookieRunboy/contract-search-system/internal/core/domain"
	"github.com/RookieRunboy/contract-search-system/internal/core/ports/driven/mocks"
)

func seedContract(t *testing.T, backend *mocks.MockSearchBackend, name string, texts ...string) {
	t.Helper()
	now := time.Now()
	pages := make([]domain.Page, 0, len(texts))
	for i, text := range texts {
		p := domain.Page{ContractName: name, PageID: i + 1, Text: text, CreatedAt: now}
		if i == 0 {
			p.Metadata = &domain.ContractMetadata{}
		}
		pages = append(pages, p)
	}
	if err := backend.IndexPages(context.Background(), pages); err != nil {
		t.Fatalf("seed %s: %v", name, err)
	}
}

func TestDocumentDetail_AggregatesPages(t *testing.T) {
	backend := mocks.NewMockSearchBackend()
	store := mocks.NewMockStatusStore()
	svc := NewDocumentService(backend, store)

	seedContract(t, backend, "运维合同", "第一页内容", "第二页")

	detail, err := svc.Detail(context.Background(), "运维合同")
	if err != nil {
		t.Fatalf("detail failed: %v", err)
	}
	if detail.TotalPages != 2 {
		t.Errorf("total pages = %d", detail.TotalPages)
	}
	// Character counts are runes, not bytes.
	if detail.Pages[0].CharCount != 5 || detail.Pages[1].CharCount != 3 {
		t.Errorf("char counts = %d, %d", detail.Pages[0].CharCount, detail.Pages[1].CharCount)
	}
	if detail.TotalChars != 8 {
		t.Errorf("total chars = %d", detail.TotalChars)
	}
	if detail.HasMetadata {
		t.Error("empty metadata record should not count as extracted")
	}
	if detail.MetadataStatus != domain.MetadataStatusNotFound {
		t.Errorf("metadata status = %q", detail.MetadataStatus)
	}
}

func TestDocumentDetail_UnknownContract(t *testing.T) {
	svc := NewDocumentService(mocks.NewMockSearchBackend(), mocks.NewMockStatusStore())

	_, err := svc.Detail(context.Background(), "不存在")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDocumentDetail_EmptyNameRejected(t *testing.T) {
	svc := NewDocumentService(mocks.NewMockSearchBackend(), mocks.NewMockStatusStore())

	_, err := svc.Detail(context.Background(), "  ")
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestDocumentDelete_ReportsPageCount(t *testing.T) {
	backend := mocks.NewMockSearchBackend()
	store := mocks.NewMockStatusStore()
	svc := NewDocumentService(backend, store)

	seedContract(t, backend, "运维合同", "a", "b", "c")
	if err := store.Create(context.Background(), &domain.UploadRecord{
		UploadID: "u1", ContractName: "运维合同", Status: domain.UploadStatusCompleted, CreatedAt: time.Now(),
	}); err != nil {
		t.Fatal(err)
	}

	deleted, err := svc.Delete(context.Background(), "运维合同")
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if deleted != 3 {
		t.Errorf("deleted = %d, want 3", deleted)
	}
	if _, err := backend.GetContractPages(context.Background(), "运维合同"); !errors.Is(err, domain.ErrNotFound) {
		t.Error("pages should be gone")
	}
	if _, err := store.GetByContract(context.Background(), "运维合同"); !errors.Is(err, domain.ErrNotFound) {
		t.Error("upload record should be gone")
	}
}

func TestDocumentClear_PurgesUploadHistory(t *testing.T) {
	backend := mocks.NewMockSearchBackend()
	store := mocks.NewMockStatusStore()
	svc := NewDocumentService(backend, store)

	seedContract(t, backend, "运维合同", "a")
	if err := store.Create(context.Background(), &domain.UploadRecord{
		UploadID: "u1", ContractName: "运维合同", Status: domain.UploadStatusCompleted, CreatedAt: time.Now(),
	}); err != nil {
		t.Fatal(err)
	}

	if err := svc.Clear(context.Background()); err != nil {
		t.Fatalf("clear failed: %v", err)
	}

	list, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("expected empty index, got %d contracts", len(list))
	}
	if _, err := store.Get(context.Background(), "u1"); !errors.Is(err, domain.ErrNotFound) {
		t.Error("upload record should be gone after clear")
	}
}

func TestDocumentDelete_UnknownContract(t *testing.T) {
	svc := NewDocumentService(mocks.NewMockSearchBackend(), mocks.NewMockStatusStore())

	_, err := svc.Delete(context.Background(), "不存在")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDocumentList(t *testing.T) {
	backend := mocks.NewMockSearchBackend()
	svc := NewDocumentService(backend, mocks.NewMockStatusStore())

	seedContract(t, backend, "合同A", "a")
	seedContract(t, backend, "合同B", "b", "c")

	list, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 contracts, got %d", len(list))
	}
	if list[0].ContractName != "合同A" || list[1].PageCount != 2 {
		t.Errorf("unexpected listing: %+v", list)
	}
}
