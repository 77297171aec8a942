package utils

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// ParallelFactor controls the max level of parallelization. This might be useful
// to set in tests where too much parallelism actually slows tests down in
// aggregate.
var ParallelFactor = runtime.GOMAXPROCS(0)

func init() {
	if ParallelFactor <= 0 {
		ParallelFactor = 1
	}
	quarterProcs := float64(ParallelFactor) * .25
	if quarterProcs > 8 {
		ParallelFactor = int(quarterProcs)
	}
}

// ParallelAvailable reports whether tasks can actually run concurrently.
func ParallelAvailable() bool {
	return ParallelFactor > 1 && runtime.GOMAXPROCS(0) > 1
}

// errorCollector combines task errors, dropping cancellations caused by a sibling's failure.
type errorCollector struct {
	mu  sync.Mutex
	err error
}

func (c *errorCollector) store(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err == nil || !errors.Is(err, context.Canceled) {
		c.err = multierr.Combine(c.err, err)
	}
}

// Task is an independent unit of work producing a T.
type Task[T any] func(ctx context.Context) (T, error)

// RunParallel runs every task on its own goroutine, at most ParallelFactor at a time, and returns the
// results in task order. A failing or panicking task cancels the context handed to the others; all
// errors are combined.
func RunParallel[T any](ctx context.Context, tasks []Task[T]) ([]T, error) {
	results := make([]T, len(tasks))
	var errs errorCollector

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ParallelFactor)
	for i, task := range tasks {
		i := i
		task := task
		g.Go(func() (err error) {
			defer func() {
				if thePanic := recover(); thePanic != nil {
					err = fmt.Errorf("got panic running task %d in parallel: %v", i, thePanic)
					errs.store(err)
				}
			}()
			value, err := task(gctx)
			if err != nil {
				errs.store(err)
				return err
			}
			results[i] = value
			return nil
		})
	}
	//nolint:errcheck
	g.Wait()
	if errs.err != nil {
		return nil, errs.err
	}
	return results, nil
}

// RunSerial runs the tasks one after another in order. It stops at the first error.
func RunSerial[T any](ctx context.Context, tasks []Task[T]) ([]T, error) {
	results := make([]T, len(tasks))
	for i, task := range tasks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		value, err := runCapturingPanic(ctx, i, task)
		if err != nil {
			return nil, err
		}
		results[i] = value
	}
	return results, nil
}

func runCapturingPanic[T any](ctx context.Context, i int, task Task[T]) (value T, err error) {
	defer func() {
		if thePanic := recover(); thePanic != nil {
			err = fmt.Errorf("got panic running task %d: %v", i, thePanic)
		}
	}()
	return task(ctx)
}
