package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/RookieRunboy/contract-search-system/internal/core/domain"
	"github.com/RookieRunboy/contract-search-system/internal/core/ports/driven"
)

// MockTaskQueue is a FIFO queue in memory.
type MockTaskQueue struct {
	mu       sync.Mutex
	tasks    []*domain.Task
	acked    []*domain.Task
	nacked   []*domain.Task
	failNext error
}

var _ driven.TaskQueue = (*MockTaskQueue)(nil)

func NewMockTaskQueue() *MockTaskQueue {
	return &MockTaskQueue{}
}

// SetFailNext makes the next Enqueue or Dequeue return err.
func (m *MockTaskQueue) SetFailNext(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = err
}

// Pending returns the tasks waiting in the queue.
func (m *MockTaskQueue) Pending() []*domain.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Task, len(m.tasks))
	copy(out, m.tasks)
	return out
}

// Acked returns every task that has been acknowledged.
func (m *MockTaskQueue) Acked() []*domain.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Task, len(m.acked))
	copy(out, m.acked)
	return out
}

func (m *MockTaskQueue) Enqueue(ctx context.Context, task *domain.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNext != nil {
		err := m.failNext
		m.failNext = nil
		return err
	}
	m.tasks = append(m.tasks, task)
	return nil
}

func (m *MockTaskQueue) Dequeue(ctx context.Context, timeout time.Duration) (*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNext != nil {
		err := m.failNext
		m.failNext = nil
		return nil, err
	}
	if len(m.tasks) == 0 {
		return nil, nil
	}
	task := m.tasks[0]
	m.tasks = m.tasks[1:]
	return task, nil
}

func (m *MockTaskQueue) Ack(ctx context.Context, task *domain.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acked = append(m.acked, task)
	return nil
}

// Nack requeues the task with its retry count bumped, or drops it as
// failed once the budget is spent, like the real queue.
func (m *MockTaskQueue) Nack(ctx context.Context, task *domain.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nacked = append(m.nacked, task)
	if task.Retries < domain.TaskMaxRetries {
		task.Retries++
		task.Status = domain.TaskStatusPending
		m.tasks = append(m.tasks, task)
	} else {
		task.Status = domain.TaskStatusFailed
	}
	return nil
}

// Nacked returns every task that has been negatively acknowledged,
// including repeats of the same task across retries.
func (m *MockTaskQueue) Nacked() []*domain.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Task, len(m.nacked))
	copy(out, m.nacked)
	return out
}

func (m *MockTaskQueue) Ping(ctx context.Context) error { return nil }

func (m *MockTaskQueue) Close() error { return nil }
