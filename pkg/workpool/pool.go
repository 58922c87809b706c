// Package workpool runs independent units of work with bounded concurrency.
// The poller uses it to fan out over datasources: sources have no ordering
// dependency on each other, so they run in parallel up to the worker limit,
// and a panic or error in one unit never takes down the others.
package workpool

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Task is one unit of work. Name is used for logging only.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Pool executes tasks with at most Workers running concurrently.
type Pool struct {
	workers int
	logger  *zap.Logger
}

// New creates a pool. workers < 1 is clamped to 1.
func New(workers int, logger *zap.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{workers: workers, logger: logger.Named("workpool")}
}

// Run executes all tasks and blocks until every task has finished.
// Each task's error (or recovered panic) is reported in the returned slice at
// the task's index; a failure in one task never prevents another from running.
func (p *Pool) Run(ctx context.Context, tasks []Task) []error {
	errs := make([]error, len(tasks))
	sem := make(chan struct{}, p.workers)
	var wg sync.WaitGroup

	for i, task := range tasks {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			for j := i; j < len(tasks); j++ {
				errs[j] = ctx.Err()
			}
			wg.Wait()
			return errs
		}

		wg.Add(1)
		go func(i int, task Task) {
			defer wg.Done()
			defer func() { <-sem }()
			defer func() {
				if r := recover(); r != nil {
					errs[i] = fmt.Errorf("panic in task %s: %v", task.Name, r)
					p.logger.Error("task panicked",
						zap.String("task", task.Name),
						zap.Any("panic", r))
				}
			}()

			if err := task.Run(ctx); err != nil {
				errs[i] = err
			}
		}(i, task)
	}

	wg.Wait()
	return errs
}
