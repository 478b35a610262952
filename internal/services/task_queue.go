package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/tropicaldog17/folio/internal/models"
)

// ErrQueueClosed is returned when work is submitted after Close.
var ErrQueueClosed = errors.New("task queue closed")

// ErrTaskNotFound is returned for unknown task ids.
var ErrTaskNotFound = errors.New("task not found")

// TaskRetention is how long a finished task stays visible to Get and Wait.
const TaskRetention = time.Hour

// TaskFunc is a unit of background work. Its result is exposed on the task.
type TaskFunc func(ctx context.Context) (interface{}, error)

var _ TaskRunner = (*TaskQueue)(nil)

type task struct {
	info models.TaskInfo
	fn   TaskFunc
	done chan struct{}
}

// TaskQueue runs submitted work on a single worker goroutine, in submission
// order. Every writer of the derived tables goes through it, so two rebuilds
// never interleave. Pending and running tasks never expire; finished ones are
// dropped after retention.
type TaskQueue struct {
	mu        sync.RWMutex
	tasks     *gocache.Cache
	retention time.Duration
	queue   chan *task
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	closed  bool
	logger  *zap.Logger
	timeout time.Duration
}

// NewTaskQueue starts the worker. capacity bounds the number of pending
// tasks; timeout, when positive, bounds each task.
func NewTaskQueue(capacity int, timeout time.Duration, logger *zap.Logger) *TaskQueue {
	if capacity <= 0 {
		capacity = 16
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	q := &TaskQueue{
		tasks:     gocache.New(gocache.NoExpiration, 10*time.Minute),
		retention: TaskRetention,
		queue:     make(chan *task, capacity),
		ctx:       ctx,
		cancel:    cancel,
		logger:    logger,
		timeout:   timeout,
	}
	q.wg.Add(1)
	go q.worker()
	return q
}

// Submit enqueues fn and returns its pending state. When the queue is closed
// or full the task is returned already failed.
func (q *TaskQueue) Submit(kind string, fn TaskFunc) *models.TaskInfo {
	t := &task{
		info: models.TaskInfo{ID: uuid.NewString(), Kind: kind, Status: models.TaskPending, CreatedAt: time.Now().UTC()},
		fn:   fn,
		done: make(chan struct{}),
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks.Set(t.info.ID, t, gocache.NoExpiration)
	if q.closed {
		q.finishLocked(t, nil, ErrQueueClosed)
		return q.snapshotLocked(t)
	}
	select {
	case q.queue <- t:
		q.logger.Debug("Task queued", zap.String("task_id", t.info.ID), zap.String("kind", kind))
	default:
		q.finishLocked(t, nil, fmt.Errorf("task queue full"))
	}
	return q.snapshotLocked(t)
}

// Get returns a copy of the task's current state.
func (q *TaskQueue) Get(id string) (*models.TaskInfo, bool) {
	t, ok := q.lookup(id)
	if !ok {
		return nil, false
	}
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.snapshotLocked(t), true
}

// Wait blocks until the task finishes or ctx is done.
func (q *TaskQueue) Wait(ctx context.Context, id string) (*models.TaskInfo, error) {
	t, ok := q.lookup(id)
	if !ok {
		return nil, ErrTaskNotFound
	}
	select {
	case <-t.done:
		q.mu.RLock()
		defer q.mu.RUnlock()
		return q.snapshotLocked(t), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stops accepting work, lets queued tasks finish and stops the worker.
func (q *TaskQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.queue)
	q.mu.Unlock()
	q.wg.Wait()
	q.cancel()
}

func (q *TaskQueue) lookup(id string) (*task, bool) {
	v, ok := q.tasks.Get(id)
	if !ok {
		return nil, false
	}
	return v.(*task), true
}

func (q *TaskQueue) worker() {
	defer q.wg.Done()
	for t := range q.queue {
		q.run(t)
	}
}

func (q *TaskQueue) run(t *task) {
	q.mu.Lock()
	now := time.Now().UTC()
	t.info.Status = models.TaskRunning
	t.info.StartedAt = &now
	q.mu.Unlock()

	ctx := q.ctx
	if q.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.timeout)
		defer cancel()
	}

	result, err := q.call(ctx, t)

	q.mu.Lock()
	q.finishLocked(t, result, err)
	q.mu.Unlock()

	if err != nil {
		q.logger.Error("Task failed", zap.String("task_id", t.info.ID), zap.String("kind", t.info.Kind), zap.Error(err))
	} else {
		q.logger.Info("Task succeeded", zap.String("task_id", t.info.ID), zap.String("kind", t.info.Kind),
			zap.Duration("took", t.info.FinishedAt.Sub(*t.info.StartedAt)))
	}
}

func (q *TaskQueue) call(ctx context.Context, t *task) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return t.fn(ctx)
}

func (q *TaskQueue) finishLocked(t *task, result interface{}, err error) {
	now := time.Now().UTC()
	t.info.FinishedAt = &now
	if err != nil {
		t.info.Status = models.TaskFailed
		t.info.Error = err.Error()
	} else {
		t.info.Status = models.TaskSucceeded
		t.info.Result = result
	}
	close(t.done)
	q.tasks.Set(t.info.ID, t, q.retention)
}

func (q *TaskQueue) snapshotLocked(t *task) *models.TaskInfo {
	info := t.info
	return &info
}
