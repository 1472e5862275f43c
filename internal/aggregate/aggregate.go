// Package aggregate runs independent backend calls concurrently and joins them
// in submission order.
package aggregate

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dtroode/composite-gateway/internal/model"
)

// Task is one independent unit of work.
type Task[T any] func(ctx context.Context) (T, error)

// TaskError identifies which task failed.
type TaskError struct {
	Index int
	Err   error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("task %d: %s", e.Index, e.Err.Error())
}

func (e *TaskError) Unwrap() error {
	return e.Err
}

// Option configures a run.
type Option func(*options)

type options struct {
	timeout time.Duration
	limit   int
}

// WithTimeout bounds the whole run. On expiry no partial results are returned.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithLimit caps how many tasks run at once.
func WithLimit(n int) Option {
	return func(o *options) { o.limit = n }
}

// Run starts every task, waits for all of them and returns their results in
// the order given. A failing task does not cancel its siblings; the failure
// with the lowest index is returned once all have finished.
func Run[T any](ctx context.Context, tasks []Task[T], opts ...Option) ([]T, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	if len(tasks) == 0 {
		return []T{}, nil
	}

	runCtx := ctx
	if o.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	results := make([]T, len(tasks))
	errs := make([]error, len(tasks))
	done := make(chan struct{})

	go func() {
		var g errgroup.Group
		if o.limit > 0 {
			g.SetLimit(o.limit)
		}
		for i, task := range tasks {
			g.Go(func() error {
				results[i], errs[i] = task(runCtx)
				return nil
			})
		}
		_ = g.Wait()
		close(done)
	}()

	if o.timeout > 0 {
		select {
		case <-done:
		case <-runCtx.Done():
			select {
			case <-done:
			default:
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				return nil, fmt.Errorf("%w after %s", model.ErrAggregateTimeout, o.timeout)
			}
		}
	} else {
		<-done
	}

	for i, err := range errs {
		if err != nil {
			return nil, &TaskError{Index: i, Err: err}
		}
	}

	return results, nil
}
