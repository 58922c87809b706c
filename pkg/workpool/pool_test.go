package workpool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPool_RunsAllTasks(t *testing.T) {
	var count atomic.Int32
	tasks := make([]Task, 10)
	for i := range tasks {
		tasks[i] = Task{Name: "t", Run: func(ctx context.Context) error {
			count.Add(1)
			return nil
		}}
	}

	errs := New(3, zap.NewNop()).Run(context.Background(), tasks)
	assert.Equal(t, int32(10), count.Load())
	for _, err := range errs {
		assert.NoError(t, err)
	}
}

func TestPool_BoundsConcurrency(t *testing.T) {
	var mu sync.Mutex
	running, peak := 0, 0

	tasks := make([]Task, 8)
	for i := range tasks {
		tasks[i] = Task{Name: "t", Run: func(ctx context.Context) error {
			mu.Lock()
			running++
			if running > peak {
				peak = running
			}
			mu.Unlock()

			time.Sleep(10 * time.Millisecond)

			mu.Lock()
			running--
			mu.Unlock()
			return nil
		}}
	}

	New(2, zap.NewNop()).Run(context.Background(), tasks)
	assert.LessOrEqual(t, peak, 2)
	assert.Greater(t, peak, 0)
}

func TestPool_FailureIsolation(t *testing.T) {
	boom := errors.New("boom")
	var succeeded atomic.Int32

	tasks := []Task{
		{Name: "ok-1", Run: func(ctx context.Context) error { succeeded.Add(1); return nil }},
		{Name: "fails", Run: func(ctx context.Context) error { return boom }},
		{Name: "ok-2", Run: func(ctx context.Context) error { succeeded.Add(1); return nil }},
	}

	errs := New(1, zap.NewNop()).Run(context.Background(), tasks)
	require.Len(t, errs, 3)
	assert.NoError(t, errs[0])
	assert.ErrorIs(t, errs[1], boom)
	assert.NoError(t, errs[2])
	assert.Equal(t, int32(2), succeeded.Load())
}

func TestPool_PanicIsolation(t *testing.T) {
	tasks := []Task{
		{Name: "panics", Run: func(ctx context.Context) error { panic("kaboom") }},
		{Name: "ok", Run: func(ctx context.Context) error { return nil }},
	}

	errs := New(1, zap.NewNop()).Run(context.Background(), tasks)
	require.Error(t, errs[0])
	assert.Contains(t, errs[0].Error(), "kaboom")
	assert.NoError(t, errs[1])
}

func TestPool_ContextCancelSkipsRemaining(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	tasks := []Task{
		{Name: "canceller", Run: func(ctx context.Context) error {
			cancel()
			time.Sleep(5 * time.Millisecond)
			return nil
		}},
		{Name: "skipped", Run: func(ctx context.Context) error { return nil }},
	}

	errs := New(1, zap.NewNop()).Run(ctx, tasks)
	assert.NoError(t, errs[0])
	assert.ErrorIs(t, errs[1], context.Canceled)
}
