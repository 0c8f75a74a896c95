package erclient

import (
	"context"
	"iter"

	"golang.org/x/sync/errgroup"
)

// Result is one fan-out outcome. Index is the task's position in the input.
type Result[T any] struct {
	Index int
	Value T
	Err   error
}

// FanOut runs n independent tasks on at most workers goroutines and yields
// results as they complete. Breaking out of the loop cancels the remaining tasks.
func FanOut[T any](ctx context.Context, workers, n int, task func(ctx context.Context, i int) (T, error)) iter.Seq[Result[T]] {
	return func(yield func(Result[T]) bool) {
		if n <= 0 {
			return
		}
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		// Buffered to n so workers never block on an abandoned consumer.
		out := make(chan Result[T], n)
		go func() {
			var g errgroup.Group
			g.SetLimit(max(workers, 1))
			for i := range n {
				g.Go(func() error {
					if err := ctx.Err(); err != nil {
						out <- Result[T]{Index: i, Err: err}
						return nil
					}
					v, err := task(ctx, i)
					out <- Result[T]{Index: i, Value: v, Err: err}
					return nil
				})
			}
			_ = g.Wait()
			close(out)
		}()

		for r := range out {
			if !yield(r) {
				return
			}
		}
	}
}
