package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CleanupJob is one object key waiting to be removed from storage.
type CleanupJob struct {
	Key      string `json:"key"`
	Attempts int    `json:"attempts"`
}

// FileCleanupQueue is a Redis list of CleanupJobs. Producers LPUSH, the worker BRPOPs.
type FileCleanupQueue struct {
	rdb  *redis.Client
	name string
}

func NewFileCleanupQueue(rdb *redis.Client, name string) *FileCleanupQueue {
	return &FileCleanupQueue{rdb: rdb, name: name}
}

func (q *FileCleanupQueue) Name() string { return q.name }

// Enqueue pushes a fresh job for every non-empty key.
func (q *FileCleanupQueue) Enqueue(ctx context.Context, keys ...string) error {
	values := make([]interface{}, 0, len(keys))
	for _, key := range keys {
		if key == "" {
			continue
		}
		payload, err := json.Marshal(CleanupJob{Key: key})
		if err != nil {
			return fmt.Errorf("failed to marshal cleanup job: %w", err)
		}
		values = append(values, payload)
	}
	if len(values) == 0 {
		return nil
	}
	if err := q.rdb.LPush(ctx, q.name, values...).Err(); err != nil {
		return fmt.Errorf("failed to push cleanup jobs to Redis queue '%s': %w", q.name, err)
	}
	return nil
}

// Requeue pushes a job back with its attempt counter incremented.
func (q *FileCleanupQueue) Requeue(ctx context.Context, job CleanupJob) error {
	job.Attempts++
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal cleanup job: %w", err)
	}
	if err := q.rdb.LPush(ctx, q.name, payload).Err(); err != nil {
		return fmt.Errorf("failed to requeue cleanup job for key %s: %w", job.Key, err)
	}
	return nil
}

// Pop blocks up to timeout for the next job. It returns (nil, nil) when the wait times out.
func (q *FileCleanupQueue) Pop(ctx context.Context, timeout time.Duration) (*CleanupJob, error) {
	res, err := q.rdb.BRPop(ctx, timeout, q.name).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	// BRPOP returns [queueName, value]
	if len(res) < 2 || res[1] == "" {
		return nil, nil
	}

	var job CleanupJob
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		return nil, fmt.Errorf("malformed cleanup job %q: %w", res[1], err)
	}
	return &job, nil
}

// Len reports how many jobs are waiting.
func (q *FileCleanupQueue) Len(ctx context.Context) (int64, error) {
	return q.rdb.LLen(ctx, q.name).Result()
}
