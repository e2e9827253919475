// Package parallel runs bounded fan-outs whose results are collected in input order.
package parallel

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// ErrInvalidLimit is returned for a negative concurrency limit.
var ErrInvalidLimit = fmt.Errorf("concurrency limit must not be negative")

// Workers resolves a concurrency limit: 0 means one worker per CPU.
func Workers(limit int) int {
	if limit <= 0 {
		return runtime.NumCPU()
	}
	return limit
}

// ForEach calls fn for every index in [0, n) with at most limit calls running
// at once (0 means one per CPU). The first error cancels the context passed to
// the remaining calls and is returned once every started call has finished.
func ForEach(ctx context.Context, n, limit int, fn func(ctx context.Context, i int) error) error {
	if limit < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}
	if n == 0 {
		return ctx.Err()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(Workers(limit))

	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(gctx, i)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// Map applies fn to every item under the same bounds as ForEach and returns
// the results in input order.
func Map[T, R any](ctx context.Context, items []T, limit int, fn func(ctx context.Context, item T) (R, error)) ([]R, error) {
	results := make([]R, len(items))
	err := ForEach(ctx, len(items), limit, func(ctx context.Context, i int) error {
		r, err := fn(ctx, items[i])
		if err != nil {
			return err
		}
		results[i] = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}
