package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/RookieRunboy/contract-search-system/internal/core/domain"
	"github.com/RookieRunboy/contract-search-system/internal/core/ports/driven/mocks"
	"github.com/RookieRunboy/contract-search-system/internal/core/services"
	"github.com/RookieRunboy/contract-search-system/internal/runtime"
)

func seedContract(t *testing.T, backend *mocks.MockSearchBackend, name string) {
	t.Helper()
	err := backend.IndexPages(context.Background(), []domain.Page{
		{ContractName: name, PageID: 1, Text: "第一页", Metadata: &domain.ContractMetadata{}},
	})
	if err != nil {
		t.Fatal(err)
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestWorker_ProcessesExtractionTask(t *testing.T) {
	backend := mocks.NewMockSearchBackend()
	queue := mocks.NewMockTaskQueue()
	store := mocks.NewMockStatusStore()

	reg := runtime.NewServices()
	reg.SetMetadataExtractor(mocks.NewMockExtractor(&domain.ContractMetadata{PartyA: "中国银行"}))
	metadata := services.NewMetadataService(backend, reg)

	seedContract(t, backend, "运维合同")

	if err := store.Create(context.Background(), &domain.UploadRecord{
		UploadID: "u1", ContractName: "运维合同",
		Status: domain.UploadStatusMetadataExtracting, CreatedAt: time.Now(),
	}); err != nil {
		t.Fatal(err)
	}

	if err := queue.Enqueue(context.Background(), &domain.Task{
		ID: "t1", Type: domain.TaskTypeExtractMetadata,
		ContractName: "运维合同", UploadID: "u1",
		Status: domain.TaskStatusPending, CreatedAt: time.Now(),
	}); err != nil {
		t.Fatal(err)
	}

	w := New(Config{
		TaskQueue:      queue,
		Metadata:       metadata,
		StatusStore:    store,
		DequeueTimeout: 10 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	waitFor(t, 2*time.Second, func() bool {
		return len(queue.Acked()) == 1
	})

	pages, err := backend.GetContractPages(context.Background(), "运维合同")
	if err != nil {
		t.Fatal(err)
	}
	if pages[0].Metadata == nil || pages[0].Metadata.PartyA != "中国银行" {
		t.Error("extracted metadata not stored")
	}

	rec, err := store.Get(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Status != domain.UploadStatusCompleted {
		t.Errorf("upload status = %q, want completed", rec.Status)
	}
}

func TestWorker_RetriedTaskDoesNotFlapUploadToFailed(t *testing.T) {
	backend := mocks.NewMockSearchBackend()
	queue := mocks.NewMockTaskQueue()
	store := mocks.NewMockStatusStore()

	extractor := mocks.NewMockExtractor(&domain.ContractMetadata{PartyA: "中国银行"})
	extractor.SetFailNext(errors.New("rate limited"))
	reg := runtime.NewServices()
	reg.SetMetadataExtractor(extractor)
	metadata := services.NewMetadataService(backend, reg)

	seedContract(t, backend, "运维合同")

	if err := store.Create(context.Background(), &domain.UploadRecord{
		UploadID: "u1", ContractName: "运维合同",
		Status: domain.UploadStatusMetadataExtracting, CreatedAt: time.Now(),
	}); err != nil {
		t.Fatal(err)
	}

	if err := queue.Enqueue(context.Background(), &domain.Task{
		ID: "t1", Type: domain.TaskTypeExtractMetadata,
		ContractName: "运维合同", UploadID: "u1",
		Status: domain.TaskStatusPending, CreatedAt: time.Now(),
	}); err != nil {
		t.Fatal(err)
	}

	w := New(Config{
		TaskQueue:      queue,
		Metadata:       metadata,
		StatusStore:    store,
		DequeueTimeout: 10 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}

	// First attempt fails and is requeued, second succeeds.
	waitFor(t, 2*time.Second, func() bool {
		return len(queue.Acked()) == 1
	})
	w.Stop()

	if got := len(queue.Nacked()); got != 1 {
		t.Errorf("nack count = %d, want 1", got)
	}
	rec, err := store.Get(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Status != domain.UploadStatusCompleted {
		t.Errorf("upload status = %q, want completed", rec.Status)
	}
	for _, status := range store.History("u1") {
		if status == domain.UploadStatusFailed {
			t.Error("upload passed through failed while retries remained")
		}
	}
}

func TestWorker_FailedTaskIsNackedAndUploadMarkedFailed(t *testing.T) {
	backend := mocks.NewMockSearchBackend()
	queue := mocks.NewMockTaskQueue()
	store := mocks.NewMockStatusStore()

	// No extractor registered, so extraction fails.
	metadata := services.NewMetadataService(backend, runtime.NewServices())

	seedContract(t, backend, "运维合同")

	if err := store.Create(context.Background(), &domain.UploadRecord{
		UploadID: "u1", ContractName: "运维合同",
		Status: domain.UploadStatusMetadataExtracting, CreatedAt: time.Now(),
	}); err != nil {
		t.Fatal(err)
	}

	if err := queue.Enqueue(context.Background(), &domain.Task{
		ID: "t1", Type: domain.TaskTypeExtractMetadata,
		ContractName: "运维合同", UploadID: "u1",
		Status: domain.TaskStatusPending, CreatedAt: time.Now(),
	}); err != nil {
		t.Fatal(err)
	}

	w := New(Config{
		TaskQueue:      queue,
		Metadata:       metadata,
		StatusStore:    store,
		DequeueTimeout: 10 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}

	waitFor(t, 2*time.Second, func() bool {
		rec, err := store.Get(context.Background(), "u1")
		return err == nil && rec.Status == domain.UploadStatusFailed
	})
	w.Stop()

	rec, _ := store.Get(context.Background(), "u1")
	if rec.Error == "" {
		t.Error("failure reason not recorded")
	}
}
