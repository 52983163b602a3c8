package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
	"vote_zone/internal/platform/queue"
	"vote_zone/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDeleter struct {
	mu       sync.Mutex
	failures map[string]int // key -> remaining failures
	deleted  []string
	calls    int
}

func (d *fakeDeleter) Delete(_ context.Context, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	if d.failures[key] > 0 {
		d.failures[key]--
		return errors.New("storage unavailable")
	}
	d.deleted = append(d.deleted, key)
	return nil
}

type staticRefs map[string]bool

func (r staticRefs) FileKeyReferenced(_ context.Context, key string) (bool, error) {
	return r[key], nil
}

func newTestWorker(t *testing.T, d *fakeDeleter, refs KeyReferenceChecker, maxAttempts int) (*FileCleanupWorker, *queue.FileCleanupQueue) {
	t.Helper()
	q := queue.NewFileCleanupQueue(testutil.RedisClient(t), "test_file_cleanup")
	w := NewFileCleanupWorker(q, d, refs, maxAttempts)
	w.pollTimeout = 100 * time.Millisecond
	w.retryDelay = 0
	return w, q
}

// drain processes jobs until the queue is empty.
func drain(t *testing.T, w *FileCleanupWorker, q *queue.FileCleanupQueue) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < 50; i++ {
		n, err := q.Len(ctx)
		require.NoError(t, err)
		if n == 0 {
			return
		}
		require.NoError(t, w.processNext(ctx))
	}
	t.Fatal("queue did not drain")
}

func TestFileCleanupWorker_DeletesQueuedKeys(t *testing.T) {
	d := &fakeDeleter{}
	w, q := newTestWorker(t, d, nil, 3)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, "uploads/u/a.png", "", "uploads/u/b.png"))
	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n, "empty keys are not enqueued")

	drain(t, w, q)
	assert.ElementsMatch(t, []string{"uploads/u/a.png", "uploads/u/b.png"}, d.deleted)
}

func TestFileCleanupWorker_RetriesThenGivesUp(t *testing.T) {
	d := &fakeDeleter{failures: map[string]int{
		"flaky":  1,
		"broken": 100,
	}}
	w, q := newTestWorker(t, d, nil, 3)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, "flaky", "broken"))
	drain(t, w, q)

	assert.Equal(t, []string{"flaky"}, d.deleted)
	// flaky: 2 calls; broken: exactly maxAttempts calls.
	assert.Equal(t, 5, d.calls)
}

func TestFileCleanupWorker_SkipsReferencedKeys(t *testing.T) {
	d := &fakeDeleter{}
	w, q := newTestWorker(t, d, staticRefs{"still-used": true}, 3)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, "still-used", "orphan"))
	drain(t, w, q)

	assert.Equal(t, []string{"orphan"}, d.deleted)
}

func TestFileCleanupWorker_StopsOnCancel(t *testing.T) {
	d := &fakeDeleter{}
	w, _ := newTestWorker(t, d, nil, 3)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop after cancellation")
	}
}
