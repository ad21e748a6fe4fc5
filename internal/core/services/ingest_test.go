package services

import (
	"context"
	"errors"
	"testing"

	"github.com/RookieRunboy/contract-search-system/internal/core/domain"
	"github.com/RookieRunboy/contract-search-system/internal/core/ports/driven/mocks"
	"github.com/RookieRunboy/contract-search-system/internal/core/ports/driving"
	"github.com/RookieRunboy/contract-search-system/internal/runtime"
)

type ingestFixture struct {
	backend *mocks.MockSearchBackend
	store   *mocks.MockStatusStore
	queue   *mocks.MockTaskQueue
	svc     driving.IngestService
}

func newIngestFixture(withEmbedding bool) *ingestFixture {
	f := &ingestFixture{
		backend: mocks.NewMockSearchBackend(),
		store:   mocks.NewMockStatusStore(),
		queue:   mocks.NewMockTaskQueue(),
	}
	services := runtime.NewServices()
	if withEmbedding {
		services.SetEmbeddingService(mocks.NewMockEmbeddingService(8))
	}
	f.svc = NewIngestService(f.backend, f.store, f.queue, services)
	return f
}

func TestIngest_IndexesAndQueuesExtraction(t *testing.T) {
	f := newIngestFixture(true)

	uploadID, err := f.svc.Ingest(context.Background(), "运维合同.pdf", []driving.PageInput{
		{Text: "第一页内容"},
		{Text: "第二页内容"},
	})
	if err != nil {
		t.Fatalf("ingest failed: %v", err)
	}
	if uploadID == "" {
		t.Fatal("expected an upload id")
	}

	pages, err := f.backend.GetContractPages(context.Background(), "运维合同")
	if err != nil {
		t.Fatalf("pages not indexed: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(pages))
	}
	if pages[0].PageID != 1 || pages[1].PageID != 2 {
		t.Errorf("page ids = %d, %d", pages[0].PageID, pages[1].PageID)
	}
	if len(pages[0].TextVector) == 0 {
		t.Error("pages not vectorized")
	}
	if pages[0].Metadata == nil {
		t.Error("first page must carry the metadata record")
	}
	if pages[1].Metadata != nil {
		t.Error("later pages must not carry metadata")
	}

	tasks := f.queue.Pending()
	if len(tasks) != 1 {
		t.Fatalf("expected 1 queued task, got %d", len(tasks))
	}
	if tasks[0].Type != domain.TaskTypeExtractMetadata || tasks[0].ContractName != "运维合同" {
		t.Errorf("unexpected task: %+v", tasks[0])
	}

	rec, err := f.svc.UploadStatus(context.Background(), uploadID)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Status != domain.UploadStatusMetadataExtracting {
		t.Errorf("status = %q", rec.Status)
	}
	if rec.Status.Display() != "正在提取元数据" {
		t.Errorf("display = %q", rec.Status.Display())
	}
}

func TestIngest_StripsExtensionFromContractName(t *testing.T) {
	f := newIngestFixture(false)

	if _, err := f.svc.Ingest(context.Background(), "dir/银行外包合同.pdf", []driving.PageInput{{Text: "x"}}); err != nil {
		t.Fatalf("ingest failed: %v", err)
	}
	if _, err := f.backend.GetContractPages(context.Background(), "银行外包合同"); err != nil {
		t.Errorf("contract not indexed under stripped name: %v", err)
	}
}

func TestIngest_WithoutEmbeddingServiceIndexesLexicalOnly(t *testing.T) {
	f := newIngestFixture(false)

	if _, err := f.svc.Ingest(context.Background(), "a.pdf", []driving.PageInput{{Text: "内容"}}); err != nil {
		t.Fatalf("ingest failed: %v", err)
	}
	pages, _ := f.backend.GetContractPages(context.Background(), "a")
	if len(pages[0].TextVector) != 0 {
		t.Error("expected no vectors without an embedding service")
	}
}

func TestIngest_EmptyPagesRejected(t *testing.T) {
	f := newIngestFixture(false)

	if _, err := f.svc.Ingest(context.Background(), "a.pdf", nil); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := f.svc.Ingest(context.Background(), "a.pdf", []driving.PageInput{{Text: "  "}}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for blank page, got %v", err)
	}
}

func TestIngest_IndexFailureMarksUploadFailed(t *testing.T) {
	f := newIngestFixture(false)
	f.backend.SetFailNext(&domain.BackendError{Op: "bulk", Err: errors.New("unavailable")})

	uploadID, err := f.svc.Ingest(context.Background(), "a.pdf", []driving.PageInput{{Text: "内容"}})
	if err == nil {
		t.Fatal("expected index failure")
	}
	rec, getErr := f.store.Get(context.Background(), uploadID)
	if getErr != nil {
		t.Fatal(getErr)
	}
	if rec.Status != domain.UploadStatusFailed {
		t.Errorf("status = %q, want failed", rec.Status)
	}
	if rec.Error == "" {
		t.Error("failure reason not recorded")
	}
}

func TestIngest_QueueFailureStillCompletes(t *testing.T) {
	f := newIngestFixture(false)
	f.queue.SetFailNext(errors.New("queue down"))

	uploadID, err := f.svc.Ingest(context.Background(), "a.pdf", []driving.PageInput{{Text: "内容"}})
	if err != nil {
		t.Fatalf("ingest should survive queue failure: %v", err)
	}
	rec, _ := f.store.Get(context.Background(), uploadID)
	if rec.Status != domain.UploadStatusCompleted {
		t.Errorf("status = %q, want completed", rec.Status)
	}
}
