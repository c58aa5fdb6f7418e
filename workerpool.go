package miditoolkit

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// DefaultWorkerPoolBufferCount is the buffer_count spec.md section 4.I
// calls out for a logical iterator's reply channel priming.
const DefaultWorkerPoolBufferCount = 3

// WorkerPool runs a bounded number of jobs concurrently (spec.md section
// 4.I): "a fixed-size pool of worker threads processes a shared FIFO queue
// of work". The original design is specific to one io.Reader-backed
// ReadCommand queue; this generalizes it to any fan-out of independent
// jobs — the shape the statistics engine's per-channel group scan needs
// (spec.md section 4.J, "per-channel scans run on the pool") — by bounding
// concurrency with a semaphore and aggregating errors with errgroup.Group,
// rather than a hand-rolled sync.WaitGroup and error channel.
type WorkerPool struct {
	sem     *semaphore.Weighted
	workers int64
}

// NewWorkerPool builds a pool that runs at most workers jobs at once.
func NewWorkerPool(workers int) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	return &WorkerPool{sem: semaphore.NewWeighted(int64(workers)), workers: int64(workers)}
}

// Run executes every fn, bounded to the pool's worker count, and returns
// the first error encountered (canceling the rest via the errgroup's
// derived context) or nil if every job succeeded.
func (p *WorkerPool) Run(ctx context.Context, fns []func(ctx context.Context) error) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, fn := range fns {
		fn := fn
		if err := p.sem.Acquire(gctx, 1); err != nil {
			// A failed job cancels gctx; report that job's error rather
			// than the cancellation it caused.
			if werr := g.Wait(); werr != nil {
				return werr
			}
			return err
		}
		g.Go(func() error {
			defer p.sem.Release(1)
			return fn(gctx)
		})
	}
	return g.Wait()
}

// RunIndexed runs one job per element of items, collecting each job's
// result at its original index, bounded to the pool's worker count. Used
// by the statistics engine to run one scan per channel concurrently while
// keeping results addressable by channel number (spec.md section 4.J).
func RunIndexed[T, R any](ctx context.Context, p *WorkerPool, items []T, fn func(ctx context.Context, item T) (R, error)) ([]R, error) {
	results := make([]R, len(items))
	fns := make([]func(ctx context.Context) error, len(items))
	for i, item := range items {
		i, item := i, item
		fns[i] = func(ctx context.Context) error {
			r, err := fn(ctx, item)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		}
	}
	if err := p.Run(ctx, fns); err != nil {
		return nil, err
	}
	return results, nil
}
