package queue_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowchat/backend/internal/model"
	"flowchat/backend/internal/queue"
)

// recorder collects callback invocations from the consumer goroutine.
type recorder struct {
	mu        sync.Mutex
	started   []string
	succeeded []string
	failed    map[string]error
	completed chan string
}

func newRecorder() *recorder {
	return &recorder{failed: map[string]error{}, completed: make(chan string, 16)}
}

func (r *recorder) callbacks() queue.Callbacks {
	return queue.Callbacks{
		OnStart: func(id string) {
			r.mu.Lock()
			r.started = append(r.started, id)
			r.mu.Unlock()
		},
		OnSuccess: func(id string) {
			r.mu.Lock()
			r.succeeded = append(r.succeeded, id)
			r.mu.Unlock()
		},
		OnError: func(id string, err error) {
			r.mu.Lock()
			r.failed[id] = err
			r.mu.Unlock()
		},
		OnComplete: func(id string, _ bool) { r.completed <- id },
	}
}

func (r *recorder) waitCompleted(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-r.completed:
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for task %d of %d to complete", i+1, n)
		}
	}
}

// delays records requested backoff without sleeping.
type delays struct {
	mu  sync.Mutex
	got []time.Duration
}

func (d *delays) wait(_ context.Context, delay time.Duration) error {
	d.mu.Lock()
	d.got = append(d.got, delay)
	d.mu.Unlock()
	return nil
}

func payload(chatID string) model.MemoryPayload {
	return model.MemoryPayload{
		ChatID: chatID,
		UserID: "u1",
		Turns: [2]model.Turn{
			{Role: model.RoleUser, Content: "I live in Lisbon"},
			{Role: model.RoleAssistant, Content: "Noted."},
		},
	}
}

func TestQueue_RetryBound(t *testing.T) {
	rec := newRecorder()
	wait := &delays{}
	commitErr := errors.New("store offline")

	var mu sync.Mutex
	calls := 0
	committer := queue.CommitterFunc(func(context.Context, model.MemoryPayload) error {
		mu.Lock()
		calls++
		mu.Unlock()
		return commitErr
	})

	q := queue.New(committer, queue.Config{MaxRetries: 3, BaseDelay: time.Second},
		queue.WithCallbacks(rec.callbacks()), queue.WithWaitFunc(wait.wait))

	id, err := q.Enqueue(payload("c1"))
	require.NoError(t, err)
	rec.waitCompleted(t, 1)

	mu.Lock()
	assert.Equal(t, 4, calls)
	mu.Unlock()
	assert.Len(t, rec.started, 4)
	assert.Empty(t, rec.succeeded)
	require.Contains(t, rec.failed, id)
	assert.ErrorIs(t, rec.failed[id], commitErr)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}, wait.got)
}

func TestQueue_FailTwiceThenSucceed(t *testing.T) {
	rec := newRecorder()
	wait := &delays{}

	attempts := 0
	committer := queue.CommitterFunc(func(context.Context, model.MemoryPayload) error {
		attempts++
		if attempts <= 2 {
			return errors.New("transient")
		}
		return nil
	})

	q := queue.New(committer, queue.Config{MaxRetries: 3, BaseDelay: 100 * time.Millisecond},
		queue.WithCallbacks(rec.callbacks()), queue.WithWaitFunc(wait.wait))

	id, err := q.Enqueue(payload("c1"))
	require.NoError(t, err)
	rec.waitCompleted(t, 1)

	assert.Equal(t, []string{id, id, id}, rec.started)
	assert.Equal(t, []string{id}, rec.succeeded)
	assert.Empty(t, rec.failed)
	assert.Equal(t, []time.Duration{200 * time.Millisecond, 400 * time.Millisecond}, wait.got)
}

func TestQueue_FIFOOrder(t *testing.T) {
	rec := newRecorder()
	var order []string
	committer := queue.CommitterFunc(func(_ context.Context, p model.MemoryPayload) error {
		order = append(order, p.ChatID)
		return nil
	})
	q := queue.New(committer, queue.DefaultConfig(), queue.WithCallbacks(rec.callbacks()))

	for _, c := range []string{"a", "b", "c", "d"} {
		_, err := q.Enqueue(payload(c))
		require.NoError(t, err)
	}
	rec.waitCompleted(t, 4)

	assert.Equal(t, []string{"a", "b", "c", "d"}, order)
}

func TestQueue_RetryReinsertsAtFront(t *testing.T) {
	rec := newRecorder()
	waiting := make(chan struct{})
	release := make(chan struct{})
	wait := func(ctx context.Context, _ time.Duration) error {
		close(waiting)
		<-release
		return nil
	}

	var order []string
	failedOnce := false
	committer := queue.CommitterFunc(func(_ context.Context, p model.MemoryPayload) error {
		order = append(order, p.ChatID)
		if p.ChatID == "a" && !failedOnce {
			failedOnce = true
			return errors.New("transient")
		}
		return nil
	})
	q := queue.New(committer, queue.DefaultConfig(), queue.WithCallbacks(rec.callbacks()), queue.WithWaitFunc(wait))

	_, err := q.Enqueue(payload("a"))
	require.NoError(t, err)
	<-waiting
	_, err = q.Enqueue(payload("b"))
	require.NoError(t, err)
	close(release)

	rec.waitCompleted(t, 2)
	assert.Equal(t, []string{"a", "a", "b"}, order)
}

func TestQueue_Status(t *testing.T) {
	rec := newRecorder()
	started := make(chan struct{}, 1)
	gate := make(chan struct{})
	committer := queue.CommitterFunc(func(context.Context, model.MemoryPayload) error {
		started <- struct{}{}
		<-gate
		return nil
	})
	q := queue.New(committer, queue.DefaultConfig(), queue.WithCallbacks(rec.callbacks()))

	status := q.Status()
	assert.Zero(t, status.QueueLength)
	assert.False(t, status.Processing)
	assert.Empty(t, status.PendingTasks)

	idA, err := q.Enqueue(payload("a"))
	require.NoError(t, err)
	<-started
	idB, err := q.Enqueue(payload("b"))
	require.NoError(t, err)

	status = q.Status()
	assert.Equal(t, 2, status.QueueLength)
	assert.True(t, status.Processing)
	require.Len(t, status.PendingTasks, 2)
	assert.Equal(t, idA, status.PendingTasks[0].ID)
	assert.Equal(t, idB, status.PendingTasks[1].ID)
	assert.NotEqual(t, idA, idB)
	assert.Len(t, idA, 26)

	close(gate)
	rec.waitCompleted(t, 2)
	assert.Eventually(t, func() bool {
		s := q.Status()
		return !s.Processing && s.QueueLength == 0
	}, time.Second, 5*time.Millisecond)
}

func TestQueue_SetCallbacks(t *testing.T) {
	first := newRecorder()
	second := newRecorder()
	q := queue.New(queue.CommitterFunc(func(context.Context, model.MemoryPayload) error { return nil }),
		queue.DefaultConfig(), queue.WithCallbacks(first.callbacks()))

	q.SetCallbacks(second.callbacks())
	id, err := q.Enqueue(payload("a"))
	require.NoError(t, err)
	second.waitCompleted(t, 1)

	assert.Empty(t, first.started)
	assert.Equal(t, []string{id}, second.succeeded)
}

func TestQueue_Shutdown(t *testing.T) {
	t.Run("Drains pending tasks", func(t *testing.T) {
		var mu sync.Mutex
		committed := 0
		q := queue.New(queue.CommitterFunc(func(context.Context, model.MemoryPayload) error {
			mu.Lock()
			committed++
			mu.Unlock()
			return nil
		}), queue.DefaultConfig())

		for i := 0; i < 3; i++ {
			_, err := q.Enqueue(payload("a"))
			require.NoError(t, err)
		}
		require.NoError(t, q.Shutdown(context.Background()))
		mu.Lock()
		assert.Equal(t, 3, committed)
		mu.Unlock()

		_, err := q.Enqueue(payload("late"))
		assert.ErrorIs(t, err, queue.ErrClosed)
	})

	t.Run("Deadline aborts backoff and reports leftovers", func(t *testing.T) {
		rec := newRecorder()
		q := queue.New(queue.CommitterFunc(func(context.Context, model.MemoryPayload) error {
			return errors.New("store offline")
		}), queue.Config{MaxRetries: 3, BaseDelay: time.Hour}, queue.WithCallbacks(rec.callbacks()))

		idA, err := q.Enqueue(payload("a"))
		require.NoError(t, err)
		idB, err := q.Enqueue(payload("b"))
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		assert.Error(t, q.Shutdown(ctx))

		rec.waitCompleted(t, 2)
		assert.ErrorIs(t, rec.failed[idA], queue.ErrClosed)
		assert.ErrorIs(t, rec.failed[idB], queue.ErrClosed)
		assert.False(t, q.Status().Processing)
	})
}

func TestQueue_StatusWhileRetrying(t *testing.T) {
	rec := newRecorder()
	q := queue.New(queue.CommitterFunc(func(context.Context, model.MemoryPayload) error {
		return errors.New("store offline")
	}), queue.Config{MaxRetries: 100000, BaseDelay: time.Millisecond},
		queue.WithCallbacks(rec.callbacks()),
		queue.WithWaitFunc(func(context.Context, time.Duration) error { return nil }))

	_, err := q.Enqueue(payload("c1"))
	require.NoError(t, err)

	last := 0
	deadline := time.Now().Add(200 * time.Millisecond)
	for time.Now().Before(deadline) {
		for _, task := range q.Status().PendingTasks {
			assert.GreaterOrEqual(t, task.Attempts, last)
			last = task.Attempts
		}
	}
	assert.Positive(t, last)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_ = q.Shutdown(ctx)
	rec.waitCompleted(t, 1)
}

func TestQueue_BackoffIsCapped(t *testing.T) {
	rec := newRecorder()
	wait := &delays{}
	q := queue.New(queue.CommitterFunc(func(context.Context, model.MemoryPayload) error {
		return errors.New("store offline")
	}), queue.Config{MaxRetries: 70, BaseDelay: time.Second},
		queue.WithCallbacks(rec.callbacks()), queue.WithWaitFunc(wait.wait))

	_, err := q.Enqueue(payload("c1"))
	require.NoError(t, err)
	rec.waitCompleted(t, 1)

	wait.mu.Lock()
	defer wait.mu.Unlock()
	require.Len(t, wait.got, 70)
	assert.Equal(t, 2*time.Second, wait.got[0])
	for i, d := range wait.got {
		assert.Positive(t, d, "retry %d", i+1)
		assert.LessOrEqual(t, d, queue.MaxBackoff, "retry %d", i+1)
		if i > 0 {
			assert.GreaterOrEqual(t, d, wait.got[i-1], "retry %d", i+1)
		}
	}
	assert.Equal(t, queue.MaxBackoff, wait.got[69])
}
