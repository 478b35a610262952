package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tropicaldog17/folio/internal/models"
)

func TestTaskQueueRunsInSubmissionOrder(t *testing.T) {
	q := NewTaskQueue(8, 0, nil)
	defer q.Close()

	var mu sync.Mutex
	var order []int
	var running, maxRunning int
	var ids []string
	for i := 0; i < 5; i++ {
		i := i
		info := q.Submit("job", func(ctx context.Context) (interface{}, error) {
			mu.Lock()
			running++
			if running > maxRunning {
				maxRunning = running
			}
			mu.Unlock()
			time.Sleep(5 * time.Millisecond)
			mu.Lock()
			order = append(order, i)
			running--
			mu.Unlock()
			return i, nil
		})
		ids = append(ids, info.ID)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i, id := range ids {
		info, err := q.Wait(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.TaskSucceeded, info.Status)
		assert.Equal(t, i, info.Result)
	}
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
	assert.Equal(t, 1, maxRunning)
}

func TestTaskQueueFailures(t *testing.T) {
	q := NewTaskQueue(4, 0, nil)
	defer q.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	failed := q.Submit("fail", func(ctx context.Context) (interface{}, error) {
		return nil, errors.New("boom")
	})
	panicked := q.Submit("panic", func(ctx context.Context) (interface{}, error) {
		panic("bad state")
	})
	after := q.Submit("after", func(ctx context.Context) (interface{}, error) {
		return "ok", nil
	})

	info, err := q.Wait(ctx, failed.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskFailed, info.Status)
	assert.Equal(t, "boom", info.Error)

	info, err = q.Wait(ctx, panicked.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskFailed, info.Status)
	assert.Contains(t, info.Error, "bad state")

	info, err = q.Wait(ctx, after.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskSucceeded, info.Status)
	assert.True(t, info.Done())
	require.NotNil(t, info.StartedAt)
	require.NotNil(t, info.FinishedAt)
}

func TestTaskQueueUnknownAndClosed(t *testing.T) {
	q := NewTaskQueue(1, 0, nil)

	_, ok := q.Get("missing")
	assert.False(t, ok)
	_, err := q.Wait(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrTaskNotFound)

	q.Close()
	info := q.Submit("late", func(ctx context.Context) (interface{}, error) { return nil, nil })
	assert.Equal(t, models.TaskFailed, info.Status)
	assert.Equal(t, ErrQueueClosed.Error(), info.Error)
}

func TestTaskQueueTimeout(t *testing.T) {
	q := NewTaskQueue(1, 10*time.Millisecond, nil)
	defer q.Close()

	info := q.Submit("slow", func(ctx context.Context) (interface{}, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	done, err := q.Wait(ctx, info.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskFailed, done.Status)
	assert.Contains(t, done.Error, "deadline")
}

func TestTaskQueueDropsFinishedTasks(t *testing.T) {
	q := NewTaskQueue(2, 0, nil)
	defer q.Close()
	q.retention = 20 * time.Millisecond

	release := make(chan struct{})
	running := q.Submit("held", func(ctx context.Context) (interface{}, error) {
		<-release
		return nil, nil
	})
	quick := q.Submit("quick", func(ctx context.Context) (interface{}, error) { return "ok", nil })

	time.Sleep(50 * time.Millisecond)
	_, ok := q.Get(running.ID)
	assert.True(t, ok, "unfinished tasks must not expire")

	close(release)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	done, err := q.Wait(ctx, quick.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskSucceeded, done.Status)

	assert.Eventually(t, func() bool {
		_, held := q.Get(running.ID)
		_, fast := q.Get(quick.ID)
		return !held && !fast
	}, 2*time.Second, 10*time.Millisecond)
}
