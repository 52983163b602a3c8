package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"
	"vote_zone/internal/platform/queue"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var cleanupResults = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "vote_zone_file_cleanup_jobs_total",
	Help: "File cleanup jobs by outcome",
}, []string{"result"})

// JobQueue is the cleanup list the worker drains.
type JobQueue interface {
	Pop(ctx context.Context, timeout time.Duration) (*queue.CleanupJob, error)
	Requeue(ctx context.Context, job queue.CleanupJob) error
}

type ObjectDeleter interface {
	Delete(ctx context.Context, key string) error
}

// KeyReferenceChecker reports whether a key is still attached to some submission.
type KeyReferenceChecker interface {
	FileKeyReferenced(ctx context.Context, key string) (bool, error)
}

type FileCleanupWorker struct {
	queue       JobQueue
	store       ObjectDeleter
	refs        KeyReferenceChecker
	maxAttempts int
	pollTimeout time.Duration
	retryDelay  time.Duration
}

func NewFileCleanupWorker(q JobQueue, store ObjectDeleter, refs KeyReferenceChecker, maxAttempts int) *FileCleanupWorker {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &FileCleanupWorker{
		queue:       q,
		store:       store,
		refs:        refs,
		maxAttempts: maxAttempts,
		pollTimeout: 5 * time.Second,
		retryDelay:  time.Second,
	}
}

// Start drains the queue until ctx is cancelled.
func (w *FileCleanupWorker) Start(ctx context.Context) {
	slog.Info("file cleanup worker started", "max_attempts", w.maxAttempts)
	for {
		if ctx.Err() != nil {
			slog.Info("file cleanup worker stopping")
			return
		}
		if err := w.processNext(ctx); err != nil {
			if ctx.Err() != nil {
				continue
			}
			slog.Error("failed to pop from file cleanup queue", "error", err)
			w.sleep(ctx, 5*time.Second)
		}
	}
}

// processNext handles at most one job. Only queue errors are returned; storage failures are
// retried through the queue.
func (w *FileCleanupWorker) processNext(ctx context.Context) error {
	job, err := w.queue.Pop(ctx, w.pollTimeout)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil
		}
		return err
	}
	if job == nil {
		return nil
	}
	w.handle(ctx, *job)
	return nil
}

func (w *FileCleanupWorker) handle(ctx context.Context, job queue.CleanupJob) {
	if w.refs != nil {
		referenced, err := w.refs.FileKeyReferenced(ctx, job.Key)
		if err != nil {
			w.retry(ctx, job, err)
			return
		}
		if referenced {
			slog.Info("skipping cleanup of object still in use", "key", job.Key)
			cleanupResults.WithLabelValues("skipped").Inc()
			return
		}
	}

	if err := w.store.Delete(ctx, job.Key); err != nil {
		w.retry(ctx, job, err)
		return
	}
	slog.Info("deleted orphaned object", "key", job.Key, "attempts", job.Attempts+1)
	cleanupResults.WithLabelValues("deleted").Inc()
}

func (w *FileCleanupWorker) retry(ctx context.Context, job queue.CleanupJob, cause error) {
	if job.Attempts+1 >= w.maxAttempts {
		slog.Error("giving up on object cleanup", "key", job.Key, "attempts", job.Attempts+1, "error", cause)
		cleanupResults.WithLabelValues("abandoned").Inc()
		return
	}
	slog.Warn("object cleanup failed, requeueing", "key", job.Key, "attempts", job.Attempts+1, "error", cause)
	cleanupResults.WithLabelValues("requeued").Inc()
	w.sleep(ctx, w.retryDelay)
	if err := w.queue.Requeue(context.WithoutCancel(ctx), job); err != nil {
		slog.Error("failed to requeue cleanup job", "key", job.Key, "error", err)
	}
}

func (w *FileCleanupWorker) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
