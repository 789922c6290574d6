package compile

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/conneroisu/compileorch/internal/logging"
	"github.com/conneroisu/compileorch/internal/reporter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() logging.Logger {
	return logging.New(&logging.Config{Output: io.Discard, Level: logging.LevelError, Format: "text"})
}

func TestBackgroundTasks_ReportEndCompilationFiresExactlyOnce(t *testing.T) {
	rep := reporter.NewConsole(discardLogger())
	tasks := newBackgroundTasks(tasksSuccess, InlineExecutor{}, rep, discardLogger())
	tasks.sharedWork = func(ctx context.Context) error { return nil }
	tasks.perClientWork = func(ctx context.Context, dir string) error { return nil }

	var wg sync.WaitGroup
	for _, client := range []string{"/a", "/b", "/c"} {
		client := client
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = tasks.Trigger(context.Background(), client, rep, nil, discardLogger())
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, rep.EndCompilationCalls())
}

func TestBackgroundTasks_SharedWorkMemoizedAcrossClients(t *testing.T) {
	rep := reporter.NewConsole(discardLogger())
	var sharedCalls int64
	tasks := newBackgroundTasks(tasksSuccess, InlineExecutor{}, rep, discardLogger())
	tasks.sharedWork = func(ctx context.Context) error {
		atomic.AddInt64(&sharedCalls, 1)
		return nil
	}
	tasks.perClientWork = func(ctx context.Context, dir string) error { return nil }

	for i := 0; i < 5; i++ {
		require.NoError(t, tasks.Trigger(context.Background(), "/client", rep, nil, discardLogger()))
	}

	assert.EqualValues(t, 1, atomic.LoadInt64(&sharedCalls))
}

func TestBackgroundTasks_PerClientWorkRunsOncePerDistinctClient(t *testing.T) {
	rep := reporter.NewConsole(discardLogger())
	var calls sync.Map
	tasks := newBackgroundTasks(tasksSuccess, InlineExecutor{}, rep, discardLogger())
	tasks.sharedWork = func(ctx context.Context) error { return nil }
	tasks.perClientWork = func(ctx context.Context, dir string) error {
		n, _ := calls.LoadOrStore(dir, new(int64))
		atomic.AddInt64(n.(*int64), 1)
		return nil
	}

	require.NoError(t, tasks.Trigger(context.Background(), "/a", rep, nil, discardLogger()))
	require.NoError(t, tasks.Trigger(context.Background(), "/a", rep, nil, discardLogger()))
	require.NoError(t, tasks.Trigger(context.Background(), "/b", rep, nil, discardLogger()))

	aCount, _ := calls.Load("/a")
	bCount, _ := calls.Load("/b")
	assert.EqualValues(t, 1, *aCount.(*int64))
	assert.EqualValues(t, 1, *bCount.(*int64))
}

func TestBackgroundTasks_SuccessOrdersSharedBeforePerClient(t *testing.T) {
	rep := reporter.NewConsole(discardLogger())
	var order []string
	var mu sync.Mutex
	tasks := newBackgroundTasks(tasksSuccess, InlineExecutor{}, rep, discardLogger())
	tasks.sharedWork = func(ctx context.Context) error {
		mu.Lock()
		order = append(order, "shared")
		mu.Unlock()
		return nil
	}
	tasks.perClientWork = func(ctx context.Context, dir string) error {
		mu.Lock()
		order = append(order, "client")
		mu.Unlock()
		return nil
	}

	require.NoError(t, tasks.Trigger(context.Background(), "/a", rep, nil, discardLogger()))

	assert.Equal(t, []string{"shared", "client"}, order)
}

func TestBackgroundTasks_FailedKindOnlyRunsSharedWork(t *testing.T) {
	rep := reporter.NewConsole(discardLogger())
	clientRan := false
	tasks := newBackgroundTasks(tasksFailed, InlineExecutor{}, rep, discardLogger())
	tasks.sharedWork = func(ctx context.Context) error { return nil }
	tasks.perClientWork = func(ctx context.Context, dir string) error {
		clientRan = true
		return nil
	}

	require.NoError(t, tasks.Trigger(context.Background(), "/a", rep, nil, discardLogger()))

	assert.False(t, clientRan)
	assert.Equal(t, 1, rep.EndCompilationCalls())
}
