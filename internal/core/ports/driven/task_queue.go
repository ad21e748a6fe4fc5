package driven

import (
	"context"
	"time"

	"github.com/RookieRunboy/contract-search-system/internal/core/domain"
)

// TaskQueue is the driven port for handing background work to workers.
type TaskQueue interface {
	// Enqueue submits a task for processing.
	Enqueue(ctx context.Context, task *domain.Task) error
	// Dequeue blocks up to timeout for the next task. It returns nil
	// with no error when the timeout elapses without work.
	Dequeue(ctx context.Context, timeout time.Duration) (*domain.Task, error)
	// Ack marks a dequeued task as successfully processed.
	Ack(ctx context.Context, task *domain.Task) error
	// Nack returns a dequeued task to the queue for another attempt.
	Nack(ctx context.Context, task *domain.Task) error
	// Ping verifies the queue is reachable.
	Ping(ctx context.Context) error
	// Close releases the underlying connection.
	Close() error
}
