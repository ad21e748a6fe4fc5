package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/RookieRunboy/contract-search-system/internal/core/domain"
	"github.com/RookieRunboy/contract-search-system/internal/core/ports/driven"
)

const (
	taskStream = "contracts:tasks"
	taskGroup  = "contracts:workers"

	taskKeyPrefix  = "contracts:task:"
	consumerPrefix = "worker-"

	taskTTL = 24 * time.Hour
)

// Verify interface compliance
var _ driven.TaskQueue = (*Queue)(nil)

// Queue implements TaskQueue using Redis Streams. A consumer group
// tracks delivery so unacknowledged tasks survive worker crashes.
type Queue struct {
	client       *redis.Client
	consumerName string
}

// NewQueue creates a new Redis-backed task queue. The consumerName
// should be unique per worker instance.
func NewQueue(client *redis.Client, consumerName string) (*Queue, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if consumerName == "" {
		consumerName = fmt.Sprintf("%s%d", consumerPrefix, time.Now().UnixNano())
	}

	q := &Queue{client: client, consumerName: consumerName}

	err := q.client.XGroupCreateMkStream(context.Background(), taskStream, taskGroup, "0").Err()
	if err != nil && !isGroupExistsError(err) {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}
	return q, nil
}

// Enqueue submits a task for processing. The full task lives in a
// keyed value; the stream entry only carries its id.
func (q *Queue) Enqueue(ctx context.Context, task *domain.Task) error {
	if task == nil {
		return errors.New("task is required")
	}

	taskData, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	pipe := q.client.Pipeline()
	pipe.Set(ctx, taskKeyPrefix+task.ID, taskData, taskTTL)
	pipe.XAdd(ctx, &redis.XAddArgs{
		Stream: taskStream,
		Values: map[string]interface{}{
			"task_id": task.ID,
			"type":    string(task.Type),
		},
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}
	return nil
}

// Dequeue blocks up to timeout for the next task. It returns nil with
// no error when the timeout elapses without work.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (*domain.Task, error) {
	streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    taskGroup,
		Consumer: q.consumerName,
		Streams:  []string{taskStream, ">"},
		Count:    1,
		Block:    timeout,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read from stream: %w", err)
	}

	if len(streams) == 0 || len(streams[0].Messages) == 0 {
		return nil, nil
	}

	msg := streams[0].Messages[0]
	taskID, ok := msg.Values["task_id"].(string)
	if !ok {
		q.client.XAck(ctx, taskStream, taskGroup, msg.ID)
		return nil, nil
	}

	task, err := q.getTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		// Task data expired; drop the stream entry.
		q.client.XAck(ctx, taskStream, taskGroup, msg.ID)
		return nil, nil
	}

	task.Status = domain.TaskStatusProcessing
	taskData, _ := json.Marshal(task)
	q.client.Set(ctx, taskKeyPrefix+task.ID, taskData, taskTTL)
	q.client.Set(ctx, taskKeyPrefix+task.ID+":msg", msg.ID, taskTTL)

	return task, nil
}

// Ack marks a dequeued task as successfully processed.
func (q *Queue) Ack(ctx context.Context, task *domain.Task) error {
	if task == nil {
		return errors.New("task is required")
	}

	msgID, err := q.client.Get(ctx, taskKeyPrefix+task.ID+":msg").Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to get message id: %w", err)
	}

	task.Status = domain.TaskStatusCompleted
	taskData, _ := json.Marshal(task)

	pipe := q.client.Pipeline()
	if msgID != "" {
		pipe.XAck(ctx, taskStream, taskGroup, msgID)
		pipe.XDel(ctx, taskStream, msgID)
	}
	pipe.Set(ctx, taskKeyPrefix+task.ID, taskData, taskTTL)
	pipe.Del(ctx, taskKeyPrefix+task.ID+":msg")
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to ack task: %w", err)
	}
	return nil
}

// Nack returns a dequeued task to the queue for another attempt, or
// marks it failed once the retry budget is exhausted.
func (q *Queue) Nack(ctx context.Context, task *domain.Task) error {
	if task == nil {
		return errors.New("task is required")
	}

	msgID, _ := q.client.Get(ctx, taskKeyPrefix+task.ID+":msg").Result()

	pipe := q.client.Pipeline()
	if msgID != "" {
		pipe.XAck(ctx, taskStream, taskGroup, msgID)
		pipe.XDel(ctx, taskStream, msgID)
	}

	if task.Retries < domain.TaskMaxRetries {
		task.Retries++
		task.Status = domain.TaskStatusPending
		taskData, _ := json.Marshal(task)
		pipe.Set(ctx, taskKeyPrefix+task.ID, taskData, taskTTL)
		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: taskStream,
			Values: map[string]interface{}{
				"task_id": task.ID,
				"type":    string(task.Type),
			},
		})
	} else {
		task.Status = domain.TaskStatusFailed
		taskData, _ := json.Marshal(task)
		pipe.Set(ctx, taskKeyPrefix+task.ID, taskData, taskTTL)
	}
	pipe.Del(ctx, taskKeyPrefix+task.ID+":msg")

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to nack task: %w", err)
	}
	return nil
}

func (q *Queue) getTask(ctx context.Context, taskID string) (*domain.Task, error) {
	data, err := q.client.Get(ctx, taskKeyPrefix+taskID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	var task domain.Task
	if err := json.Unmarshal([]byte(data), &task); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task: %w", err)
	}
	return &task, nil
}

// Ping checks if the queue backend is healthy.
func (q *Queue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

// Close cleans up resources. The Redis client is shared, so it is not
// closed here.
func (q *Queue) Close() error {
	return nil
}

func isGroupExistsError(err error) bool {
	return err != nil && err.Error() == "BUSYGROUP Consumer Group name already exists"
}
