package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/RookieRunboy/contract-search-system/internal/core/domain"
	"github.com/RookieRunboy/contract-search-system/internal/core/ports/driven/mocks"
	"github.com/RookieRunboy/contract-search-system/internal/runtime"
)

func TestMetadataExtract_StoresResultOnFirstPage(t *testing.T) {
	backend := mocks.NewMockSearchBackend()
	services := runtime.NewServices()
	services.SetEmbeddingService(mocks.NewMockEmbeddingService(8))
	extractor := mocks.NewMockExtractor(&domain.ContractMetadata{
		PartyA:       "中国银行",
		PartyB:       "软件公司",
		ContractType: "外包",
	})
	services.SetMetadataExtractor(extractor)
	svc := NewMetadataService(backend, services)

	seedContract(t, backend, "运维合同", "第一页", "第二页")

	meta, err := svc.Extract(context.Background(), "运维合同")
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if meta.PartyA != "中国银行" {
		t.Errorf("party_a = %q", meta.PartyA)
	}
	if meta.ExtractedAt.IsZero() {
		t.Error("extracted_at not stamped")
	}
	if len(meta.MetadataVector) == 0 {
		t.Error("metadata vector not generated")
	}

	calls := extractor.Calls()
	if len(calls) != 1 {
		t.Fatalf("extractor called %d times", len(calls))
	}
	if !strings.Contains(calls[0], "第一页") || !strings.Contains(calls[0], "第二页") {
		t.Errorf("extractor input missing page text: %q", calls[0])
	}

	pages, err := backend.GetContractPages(context.Background(), "运维合同")
	if err != nil {
		t.Fatal(err)
	}
	if pages[0].Metadata == nil || pages[0].Metadata.PartyA != "中国银行" {
		t.Error("metadata not stored on first page")
	}
}

func TestMetadataExtract_NoExtractorConfigured(t *testing.T) {
	backend := mocks.NewMockSearchBackend()
	svc := NewMetadataService(backend, runtime.NewServices())

	seedContract(t, backend, "运维合同", "第一页")

	_, err := svc.Extract(context.Background(), "运维合同")
	if !errors.Is(err, domain.ErrExtraction) {
		t.Fatalf("expected ErrExtraction, got %v", err)
	}
}

func TestMetadataExtract_UnknownContract(t *testing.T) {
	services := runtime.NewServices()
	services.SetMetadataExtractor(mocks.NewMockExtractor(&domain.ContractMetadata{PartyA: "x"}))
	svc := NewMetadataService(mocks.NewMockSearchBackend(), services)

	_, err := svc.Extract(context.Background(), "不存在")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMetadataExtract_ExtractorFailure(t *testing.T) {
	backend := mocks.NewMockSearchBackend()
	services := runtime.NewServices()
	extractor := mocks.NewMockExtractor(nil)
	extractor.SetFailNext(&domain.EmbeddingError{Model: "qwen", Err: errors.New("rate limited")})
	services.SetMetadataExtractor(extractor)
	svc := NewMetadataService(backend, services)

	seedContract(t, backend, "运维合同", "第一页")

	if _, err := svc.Extract(context.Background(), "运维合同"); err == nil {
		t.Fatal("expected extraction error")
	}
}

func TestMetadataSave_RegeneratesVector(t *testing.T) {
	backend := mocks.NewMockSearchBackend()
	services := runtime.NewServices()
	services.SetEmbeddingService(mocks.NewMockEmbeddingService(8))
	svc := NewMetadataService(backend, services)

	seedContract(t, backend, "运维合同", "第一页")

	amount := 120000.0
	meta := &domain.ContractMetadata{PartyA: "中国银行", ContractAmount: &amount}
	if err := svc.Save(context.Background(), "运维合同", meta); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if len(meta.MetadataVector) == 0 {
		t.Error("vector not regenerated")
	}
	if meta.ExtractedAt.IsZero() {
		t.Error("extracted_at not stamped")
	}
}

func TestMetadataSave_EmptyMetadataRejected(t *testing.T) {
	svc := NewMetadataService(mocks.NewMockSearchBackend(), runtime.NewServices())

	err := svc.Save(context.Background(), "运维合同", &domain.ContractMetadata{})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestEmbeddingText_LabelsAndOrder(t *testing.T) {
	amount := 98000.5
	meta := &domain.ContractMetadata{
		PartyA:         "中国银行",
		PartyB:         "软件公司",
		ContractAmount: &amount,
		Positions:      "运维工程师",
	}

	got := meta.EmbeddingText()
	want := "甲方：中国银行 乙方：软件公司 合同金额：98000.5元 岗位信息：运维工程师"
	if got != want {
		t.Errorf("embedding text = %q, want %q", got, want)
	}
}
