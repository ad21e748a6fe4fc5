package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/RookieRunboy/contract-search-system/internal/core/domain"
	"github.com/RookieRunboy/contract-search-system/internal/core/ports/driven"
	"github.com/RookieRunboy/contract-search-system/internal/core/ports/driving"
)

// Worker processes background tasks from the task queue. Today that
// means LLM metadata extraction for freshly ingested contracts.
type Worker struct {
	taskQueue   driven.TaskQueue
	metadata    driving.MetadataService
	statusStore driven.UploadStatusStore
	logger      *slog.Logger

	concurrency    int
	dequeueTimeout time.Duration

	mu      sync.RWMutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// Config holds configuration for the worker.
type Config struct {
	TaskQueue   driven.TaskQueue
	Metadata    driving.MetadataService
	StatusStore driven.UploadStatusStore
	Logger      *slog.Logger

	// Concurrency is the number of concurrent task processors.
	Concurrency int
	// DequeueTimeout is how long to wait for a task before checking
	// the stop signal again.
	DequeueTimeout time.Duration
}

// New creates a task worker.
func New(cfg Config) *Worker {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	dequeueTimeout := cfg.DequeueTimeout
	if dequeueTimeout <= 0 {
		dequeueTimeout = 5 * time.Second
	}

	return &Worker{
		taskQueue:      cfg.TaskQueue,
		metadata:       cfg.Metadata,
		statusStore:    cfg.StatusStore,
		logger:         logger,
		concurrency:    concurrency,
		dequeueTimeout: dequeueTimeout,
	}
}

// Start begins the worker loop. It runs until Stop is called or the
// context is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	w.logger.Info("worker starting",
		"concurrency", w.concurrency,
		"dequeue_timeout", w.dequeueTimeout,
	)

	var wg sync.WaitGroup
	for i := 0; i < w.concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			w.processLoop(ctx, workerID)
		}(i)
	}

	go func() {
		wg.Wait()
		close(w.doneCh)
	}()

	return nil
}

// Stop gracefully stops the worker.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	close(w.stopCh)
	w.mu.Unlock()

	<-w.doneCh

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	w.logger.Info("worker stopped")
}

// Wait blocks until the worker stops.
func (w *Worker) Wait() {
	<-w.doneCh
}

func (w *Worker) processLoop(ctx context.Context, workerID int) {
	logger := w.logger.With("worker_id", workerID)
	logger.Info("worker goroutine started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("worker context cancelled")
			return
		case <-w.stopCh:
			logger.Info("worker stop signal received")
			return
		default:
		}

		task, err := w.taskQueue.Dequeue(ctx, w.dequeueTimeout)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			logger.Error("failed to dequeue task", "error", err)
			time.Sleep(time.Second)
			continue
		}
		if task == nil {
			continue
		}

		w.processTask(ctx, task, logger)
	}
}

func (w *Worker) processTask(ctx context.Context, task *domain.Task, logger *slog.Logger) {
	logger = logger.With("task_id", task.ID, "task_type", task.Type, "contract", task.ContractName)
	logger.Info("processing task")

	startTime := time.Now()
	var err error

	switch task.Type {
	case domain.TaskTypeExtractMetadata:
		err = w.handleExtractMetadata(ctx, task)
	default:
		err = fmt.Errorf("unknown task type: %s", task.Type)
	}

	duration := time.Since(startTime)

	if err != nil {
		logger.Error("task failed", "duration", duration, "error", err, "retries", task.Retries)
		// The upload only turns failed once the retry budget is spent;
		// a retried task that succeeds must not flap the status.
		if task.Retries >= domain.TaskMaxRetries {
			w.updateUploadStatus(ctx, task, domain.UploadStatusFailed, err.Error())
		}
		if nackErr := w.taskQueue.Nack(ctx, task); nackErr != nil {
			logger.Error("failed to nack task", "nack_error", nackErr)
		}
		return
	}

	logger.Info("task completed", "duration", duration)
	w.updateUploadStatus(ctx, task, domain.UploadStatusCompleted, "")
	if ackErr := w.taskQueue.Ack(ctx, task); ackErr != nil {
		logger.Error("failed to ack task", "ack_error", ackErr)
	}
}

func (w *Worker) handleExtractMetadata(ctx context.Context, task *domain.Task) error {
	if task.ContractName == "" {
		return fmt.Errorf("contract_name not set in task")
	}
	_, err := w.metadata.Extract(ctx, task.ContractName)
	return err
}

// updateUploadStatus reflects task outcomes in the upload lifecycle.
// Tasks without an upload id (manual re-extractions) are skipped.
func (w *Worker) updateUploadStatus(ctx context.Context, task *domain.Task, status domain.UploadStatus, errMsg string) {
	if task.UploadID == "" || w.statusStore == nil {
		return
	}
	if err := w.statusStore.UpdateStatus(ctx, task.UploadID, status, errMsg); err != nil {
		w.logger.Error("failed to update upload status",
			"upload_id", task.UploadID, "error", err)
	}
}
