package compile

import (
	"context"
)

// PoolExecutor is a bounded worker-pool Executor: at most n submitted
// functions run concurrently, the rest queue. Suitable for both the
// request's CPU executor (engine invocation) and its I/O executor
// (background task fan-out, spec.md §5).
//
// Grounded on the teacher's WorkerManager/WorkerPool shape
// (internal/build/worker_manager.go, internal/build/pools.go): a fixed
// worker count bounding concurrent task execution, simplified here to a
// semaphore since compile has no persistent task queue to drain.
type PoolExecutor struct {
	sem chan struct{}
}

// NewPoolExecutor returns an Executor that runs at most n functions
// concurrently. n <= 0 is treated as 1.
func NewPoolExecutor(n int) *PoolExecutor {
	if n <= 0 {
		n = 1
	}
	return &PoolExecutor{sem: make(chan struct{}, n)}
}

// Run blocks until a worker slot is free (or ctx is done), then runs fn.
func (p *PoolExecutor) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-p.sem }()
	return fn(ctx)
}

var _ Executor = (*PoolExecutor)(nil)

// InlineExecutor runs fn synchronously on the caller's goroutine. Useful
// for tests and the demo CLI where no real parallelism is needed.
type InlineExecutor struct{}

func (InlineExecutor) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

var _ Executor = InlineExecutor{}
