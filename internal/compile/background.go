package compile

import (
	"context"
	"errors"
	"sync"

	"github.com/conneroisu/compileorch/internal/engine"
	"github.com/conneroisu/compileorch/internal/logging"
	"github.com/conneroisu/compileorch/internal/reporter"
)

type taskKind int

const (
	tasksNoOp taskKind = iota
	tasksSuccess
	tasksFailed
)

type onceResult struct {
	once sync.Once
	err  error
}

// BackgroundTasks is the deferred, per-client-triggerable handle returned
// with every Result that carries post-compile I/O (spec.md §4.6, §9). A
// single instance is shared across every client that observes the Result
// it came from; triggering it is the only way directory state becomes
// visible to clients.
type BackgroundTasks struct {
	kind   taskKind
	io     Executor
	rep    reporter.Reporter // the request's own reporter; ReportEndCompilation fires through this
	logger logging.Logger

	// sharedWork is memoized across every client: the first Trigger call
	// to reach it pays the cost, every other observes the same outcome.
	sharedWork func(ctx context.Context) error
	sharedOnce sync.Once
	sharedErr  error

	// perClientWork is run once per distinct clientClassesDir. nil for
	// kinds that have no per-client phase (tasksFailed).
	perClientWork func(ctx context.Context, clientClassesDir string) error

	mu        sync.Mutex
	perClient map[string]*onceResult

	reportOnce sync.Once
}

func newBackgroundTasks(kind taskKind, io Executor, rep reporter.Reporter, logger logging.Logger) *BackgroundTasks {
	return &BackgroundTasks{
		kind:      kind,
		io:        io,
		rep:       rep,
		logger:    logger,
		perClient: make(map[string]*onceResult),
	}
}

// Trigger runs this handle's work for one client (spec.md §9's
// trigger(clientDir, reporter, tracer, logger) operation). It is safe to
// call concurrently for distinct clients; for the same clientClassesDir,
// only the first call does work — later calls observe the same result.
// reportEndCompilation fires exactly once across every call to this
// instance, regardless of how many clients trigger it or whether any of
// them errors (spec.md §8 invariant 7).
func (b *BackgroundTasks) Trigger(
	ctx context.Context,
	clientClassesDir string,
	clientReporter reporter.Reporter,
	clientTracer engine.Tracer,
	clientLogger logging.Logger,
) error {
	var err error
	switch b.kind {
	case tasksNoOp, tasksSuccess:
		err = b.triggerWithClient(ctx, clientClassesDir)
	case tasksFailed:
		err = b.triggerShared(ctx)
	}

	b.reportOnce.Do(func() {
		b.rep.ReportEndCompilation()
	})

	return err
}

func (b *BackgroundTasks) triggerShared(ctx context.Context) error {
	b.sharedOnce.Do(func() {
		if b.sharedWork != nil {
			b.sharedErr = b.sharedWork(ctx)
			if b.sharedErr != nil && b.logger != nil {
				b.logger.Error(ctx, b.sharedErr, "background task failed")
			}
		}
	})
	return b.sharedErr
}

func (b *BackgroundTasks) triggerWithClient(ctx context.Context, clientClassesDir string) error {
	switch b.kind {
	case tasksNoOp:
		// Shared (delete + conditional analysis persist) and per-client
		// (copy to this client) work run in parallel, per spec.md §4.5's
		// no-op branch.
		var wg sync.WaitGroup
		var sharedErr, clientErr error
		wg.Add(2)
		go func() {
			defer wg.Done()
			sharedErr = b.triggerShared(ctx)
		}()
		go func() {
			defer wg.Done()
			clientErr = b.triggerClientOnly(ctx, clientClassesDir)
		}()
		wg.Wait()
		return firstNonNil(sharedErr, clientErr)

	case tasksSuccess:
		// Phase A (shared) must complete before Phase B (per-client).
		if err := b.triggerShared(ctx); err != nil {
			return err
		}
		return b.triggerClientOnly(ctx, clientClassesDir)

	default:
		return nil
	}
}

func (b *BackgroundTasks) triggerClientOnly(ctx context.Context, clientClassesDir string) error {
	if b.perClientWork == nil {
		return nil
	}
	guard := b.guardFor(clientClassesDir)
	guard.once.Do(func() {
		guard.err = b.perClientWork(ctx, clientClassesDir)
		if guard.err != nil && b.logger != nil {
			b.logger.Error(ctx, guard.err, "background task failed", "client", clientClassesDir)
		}
	})
	return guard.err
}

func (b *BackgroundTasks) guardFor(clientClassesDir string) *onceResult {
	b.mu.Lock()
	defer b.mu.Unlock()
	g, ok := b.perClient[clientClassesDir]
	if !ok {
		g = &onceResult{}
		b.perClient[clientClassesDir] = g
	}
	return g
}

func firstNonNil(errs ...error) error {
	for _, e := range errs {
		if e != nil {
			return e
		}
	}
	return nil
}

// runParallel runs every fn on executor and waits for all to finish,
// returning the first error encountered (if any). Grounded on the
// teacher's worker-pool fan-out shape in internal/build/worker_manager.go.
func runParallel(ctx context.Context, executor Executor, fns ...func(ctx context.Context) error) error {
	errs := make([]error, len(fns))
	var wg sync.WaitGroup
	wg.Add(len(fns))
	for i, fn := range fns {
		i, fn := i, fn
		go func() {
			defer wg.Done()
			errs[i] = executor.Run(ctx, fn)
		}()
	}
	wg.Wait()
	return errors.Join(errs...)
}
