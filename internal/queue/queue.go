// Package queue runs best-effort side effects off the request path. Tasks are
// processed one at a time by a single consumer and retried with exponential
// backoff until they succeed or exhaust their retry budget.
package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"flowchat/backend/internal/metrics"
	"flowchat/backend/internal/model"
)

// ErrClosed is returned by Enqueue after Shutdown and reported for tasks that
// were still pending when Shutdown gave up waiting.
var ErrClosed = errors.New("queue is shut down")

// Committer performs the durable side effect for one payload. It may be
// called more than once for the same payload and must tolerate that.
type Committer interface {
	Commit(ctx context.Context, payload model.MemoryPayload) error
}

// CommitterFunc adapts a function to Committer.
type CommitterFunc func(ctx context.Context, payload model.MemoryPayload) error

func (f CommitterFunc) Commit(ctx context.Context, payload model.MemoryPayload) error {
	return f(ctx, payload)
}

type Config struct {
	// MaxRetries is how many times a failed task is retried before it is dropped.
	MaxRetries int
	// BaseDelay is scaled by 2^attempts to get the wait before a retry.
	BaseDelay time.Duration
}

func DefaultConfig() Config {
	return Config{MaxRetries: 3, BaseDelay: time.Second}
}

// Task is one unit of queued work.
type Task struct {
	ID         string              `json:"id"`
	Payload    model.MemoryPayload `json:"payload"`
	Attempts   int                 `json:"attempts"`
	EnqueuedAt time.Time           `json:"enqueued_at"`
}

// Callbacks observe task progress. They run on the consumer goroutine and
// have no effect on control flow. Nil fields are skipped.
type Callbacks struct {
	OnStart    func(taskID string)
	OnSuccess  func(taskID string)
	OnError    func(taskID string, err error)
	OnComplete func(taskID string, success bool)
}

// TaskInfo is the status view of a task that has not reached a terminal outcome.
type TaskInfo struct {
	ID         string    `json:"id"`
	Attempts   int       `json:"attempts"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

type Status struct {
	QueueLength  int        `json:"queue_length"`
	Processing   bool       `json:"processing"`
	PendingTasks []TaskInfo `json:"pending_tasks"`
}

// WaitFunc blocks for d or until ctx is done.
type WaitFunc func(ctx context.Context, d time.Duration) error

type Option func(*Queue)

// WithWaitFunc replaces the backoff timer.
func WithWaitFunc(wait WaitFunc) Option {
	return func(q *Queue) { q.wait = wait }
}

func WithCallbacks(cb Callbacks) Option {
	return func(q *Queue) { q.callbacks = cb }
}

func WithIDGenerator(newID func() string) Option {
	return func(q *Queue) { q.newID = newID }
}

func WithClock(now func() time.Time) Option {
	return func(q *Queue) { q.now = now }
}

type Queue struct {
	committer Committer
	cfg       Config
	wait      WaitFunc
	newID     func() string
	now       func() time.Time

	// ctx is cancelled when Shutdown stops waiting; it aborts commits and backoff.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.Mutex
	tasks      []*Task
	current    *Task
	processing bool
	closed     bool
	callbacks  Callbacks
}

func New(committer Committer, cfg Config, opts ...Option) *Queue {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		committer: committer,
		cfg:       cfg,
		wait:      sleep,
		newID:     func() string { return ulid.Make().String() },
		now:       time.Now,
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Enqueue appends a task and returns its id without waiting for it to run.
// The consumer is started if it is idle.
func (q *Queue) Enqueue(payload model.MemoryPayload) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return "", ErrClosed
	}

	task := &Task{ID: q.newID(), Payload: payload, EnqueuedAt: q.now().UTC()}
	q.tasks = append(q.tasks, task)
	metrics.QueueLength.Set(float64(q.lengthLocked()))

	if !q.processing {
		q.processing = true
		q.wg.Add(1)
		go q.run()
	}
	slog.Debug("Task enqueued", "task_id", task.ID, "chat_id", payload.ChatID)
	return task.ID, nil
}

// SetCallbacks replaces the observers. Tasks already running keep the set
// they started with.
func (q *Queue) SetCallbacks(cb Callbacks) {
	q.mu.Lock()
	q.callbacks = cb
	q.mu.Unlock()
}

func (q *Queue) Status() Status {
	q.mu.Lock()
	defer q.mu.Unlock()

	pending := make([]TaskInfo, 0, q.lengthLocked())
	if q.current != nil {
		pending = append(pending, info(q.current))
	}
	for _, t := range q.tasks {
		pending = append(pending, info(t))
	}
	return Status{
		QueueLength:  len(pending),
		Processing:   q.processing,
		PendingTasks: pending,
	}
}

// Shutdown stops accepting tasks and waits for the consumer to drain the
// queue. When ctx is done first, the in-flight commit and any backoff are
// aborted and every remaining task is reported through OnError.
func (q *Queue) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		q.cancel()
		return nil
	case <-ctx.Done():
	}

	q.cancel()
	<-drained

	q.mu.Lock()
	remaining := q.tasks
	q.tasks = nil
	cb := q.callbacks
	q.mu.Unlock()
	metrics.QueueLength.Set(0)

	for _, t := range remaining {
		slog.Warn("Dropping queued task on shutdown", "task_id", t.ID, "attempts", t.Attempts)
		q.terminal(cb, t, ErrClosed)
	}
	if len(remaining) > 0 {
		return fmt.Errorf("%d queued tasks dropped: %w", len(remaining), ctx.Err())
	}
	return ctx.Err()
}

func (q *Queue) run() {
	defer q.wg.Done()
	for {
		q.mu.Lock()
		if len(q.tasks) == 0 || q.ctx.Err() != nil {
			q.processing = false
			q.mu.Unlock()
			return
		}
		task := q.tasks[0]
		q.tasks[0] = nil
		q.tasks = q.tasks[1:]
		q.current = task
		cb := q.callbacks
		q.mu.Unlock()

		q.process(cb, task)

		q.mu.Lock()
		q.current = nil
		metrics.QueueLength.Set(float64(q.lengthLocked()))
		q.mu.Unlock()
	}
}

func (q *Queue) process(cb Callbacks, task *Task) {
	if cb.OnStart != nil {
		cb.OnStart(task.ID)
	}

	err := q.committer.Commit(q.ctx, task.Payload)
	if err == nil {
		metrics.QueueAttempts.WithLabelValues("success").Inc()
		metrics.QueueTasksCompleted.WithLabelValues("success").Inc()
		slog.Debug("Task committed", "task_id", task.ID)
		if cb.OnSuccess != nil {
			cb.OnSuccess(task.ID)
		}
		if cb.OnComplete != nil {
			cb.OnComplete(task.ID, true)
		}
		return
	}
	metrics.QueueAttempts.WithLabelValues("failure").Inc()

	// Status reads Attempts under q.mu while this task is current.
	q.mu.Lock()
	task.Attempts++
	attempts := task.Attempts
	q.mu.Unlock()

	if attempts > q.cfg.MaxRetries {
		slog.Error("Task failed permanently", "task_id", task.ID, "attempts", attempts, "error", err)
		q.terminal(cb, task, err)
		return
	}

	delay := backoff(q.cfg.BaseDelay, attempts)
	slog.Warn("Task failed, retrying", "task_id", task.ID, "attempts", attempts, "delay", delay, "error", err)
	if werr := q.wait(q.ctx, delay); werr != nil {
		q.terminal(cb, task, fmt.Errorf("%w: %w", ErrClosed, err))
		return
	}

	q.mu.Lock()
	q.tasks = append([]*Task{task}, q.tasks...)
	q.mu.Unlock()
}

func (q *Queue) terminal(cb Callbacks, task *Task, err error) {
	metrics.QueueTasksCompleted.WithLabelValues("failed").Inc()
	if cb.OnError != nil {
		cb.OnError(task.ID, err)
	}
	if cb.OnComplete != nil {
		cb.OnComplete(task.ID, false)
	}
}

func (q *Queue) lengthLocked() int {
	n := len(q.tasks)
	if q.current != nil {
		n++
	}
	return n
}

// MaxBackoff caps the wait between retries.
const MaxBackoff = 10 * time.Minute

// maxBackoffShift keeps 1<<attempts well inside int64.
const maxBackoffShift = 30

// backoff returns base*2^attempts, capped at MaxBackoff.
func backoff(base time.Duration, attempts int) time.Duration {
	if attempts > maxBackoffShift {
		attempts = maxBackoffShift
	}
	delay := base * time.Duration(1<<attempts)
	if delay <= 0 || delay > MaxBackoff || delay/time.Duration(1<<attempts) != base {
		return MaxBackoff
	}
	return delay
}

func info(t *Task) TaskInfo {
	return TaskInfo{ID: t.ID, Attempts: t.Attempts, EnqueuedAt: t.EnqueuedAt}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
