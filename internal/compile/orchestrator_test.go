package compile

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/conneroisu/compileorch/internal/engine"
	fakeengine "github.com/conneroisu/compileorch/internal/engine/fake"
	"github.com/conneroisu/compileorch/internal/logging"
	"github.com/conneroisu/compileorch/internal/problems"
	"github.com/conneroisu/compileorch/internal/reporter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() logging.Logger {
	return logging.New(&logging.Config{Output: io.Discard, Level: logging.LevelError, Format: "text"})
}

func newTestRequest(t *testing.T, eng engine.Engine, prevResult *Result, prevCompiler *engine.PreviousResult, readOnlyDir string) *Request {
	t.Helper()
	out := t.TempDir()
	layout := NewPathLayout(out, filepath.Join(out, "external"), readOnlyDir)
	return &Request{
		Project:                "demo",
		Sources:                []string{"Foo.scala", "Bar.scala"},
		Classpath:              []string{"/lib/scala-library.jar"},
		BaseDirectory:          out,
		Layout:                 layout,
		PreviousResult:         prevResult,
		PreviousCompilerResult: prevCompiler,
		Reporter:               reporter.NewConsole(testLogger()),
		Logger:                 testLogger(),
		Engine:                 eng,
	}
}

// TestOrchestrator_S1_ColdCompile covers spec.md §8 scenario S1: an empty
// previous result compiling two clean sources.
func TestOrchestrator_S1_ColdCompile(t *testing.T) {
	eng := fakeengine.New([]fakeengine.Source{
		{Path: "Foo.scala", Hash: "h1"},
		{Path: "Bar.scala", Hash: "h2"},
	})
	req := newTestRequest(t, eng, nil, nil, "")

	o := New("")
	result, err := o.Compile(context.Background(), req)
	require.NoError(t, err)

	require.Equal(t, ResultSuccess, result.Kind)
	assert.False(t, result.IsNoOp)
	assert.Empty(t, result.Products.Invalidated)
	assert.Len(t, result.Products.GeneratedRelativeToFile, 2)
}

// TestOrchestrator_S2_NoOp covers spec.md §8 scenario S2: an identical
// second compile of the same inputs is a no-op whose products point both
// classes directories at the first run's classes directory.
func TestOrchestrator_S2_NoOp(t *testing.T) {
	sources := []fakeengine.Source{
		{Path: "Foo.scala", Hash: "h1"},
		{Path: "Bar.scala", Hash: "h2"},
	}

	firstEngine := fakeengine.New(sources)
	firstReq := newTestRequest(t, firstEngine, nil, nil, "")
	o := New("")
	first, err := o.Compile(context.Background(), firstReq)
	require.NoError(t, err)
	require.Equal(t, ResultSuccess, first.Kind)
	require.False(t, first.IsNoOp)

	require.NoError(t, first.BackgroundTasks.Trigger(context.Background(), filepath.Join(firstReq.BaseDirectory, "external"), firstReq.Reporter, nil, testLogger()))

	newClassesDir1 := first.Products.NewClassesDir

	secondEngine := fakeengine.New(sources)
	secondReq := newTestRequest(t, secondEngine, first, first.Products.FutureRun, newClassesDir1)
	second, err := o.Compile(context.Background(), secondReq)
	require.NoError(t, err)

	require.Equal(t, ResultSuccess, second.Kind)
	assert.True(t, second.IsNoOp)
	assert.Equal(t, newClassesDir1, second.Products.ReadOnlyClassesDir)
	assert.Equal(t, newClassesDir1, second.Products.NewClassesDir)
}

// TestOrchestrator_S3_CancellationMidPhase covers spec.md §8 scenario S3.
func TestOrchestrator_S3_CancellationMidPhase(t *testing.T) {
	req := newTestRequest(t, nil, nil, nil, "")
	req.Cancel = NewCancelToken()
	req.Engine = &cancellingEngine{cancel: req.Cancel}

	o := New("")
	result, err := o.Compile(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, ResultCancelled, result.Kind)
	assert.True(t, req.Cancel.IsSet())
}

type cancellingEngine struct {
	cancel *CancelToken
}

func (e *cancellingEngine) Compile(
	ctx context.Context,
	inputs engine.CompileInputs,
	rep reporter.Reporter,
	logger logging.Logger,
	unique engine.UniqueInputs,
	fileManager engine.ClassFileManager,
	cancel engine.CancelFlag,
	tracer engine.Tracer,
	classpathOpts engine.ClasspathOptions,
) (*engine.Analysis, *engine.Setup, error) {
	rep.ReportStartCompilation(nil)
	rep.ReportNextPhase("compile", "Foo.scala")
	e.cancel.Set()
	rep.ReportCancelledCompilation()
	return nil, nil, engine.ErrCancelled
}

// TestOrchestrator_S4_CompileError covers spec.md §8 scenario S4: a type
// error in one of two sources unions reporter and engine problems.
func TestOrchestrator_S4_CompileError(t *testing.T) {
	eng := fakeengine.New([]fakeengine.Source{
		{Path: "Foo.scala", Hash: "h1"},
		{
			Path:        "Bar.scala",
			Hash:        "h2",
			FailCompile: true,
			Problems: []problems.Problem{
				{Phase: "typer", File: "Bar.scala", Line: 3, Message: "type mismatch", Severity: problems.SeverityError},
			},
		},
	})
	req := newTestRequest(t, eng, nil, nil, "")

	o := New("")
	result, err := o.Compile(context.Background(), req)
	require.NoError(t, err)

	require.Equal(t, ResultFailed, result.Kind)
	require.Len(t, result.ProblemsPerPhase, 1)
	assert.Equal(t, "Bar.scala", result.ProblemsPerPhase[0].File)
}

// TestOrchestrator_S5_FatalWarning covers spec.md §8 scenario S5: a fatal
// warning demotes a successful compile to reportedFatalWarnings=true and
// empty-stamps the offending source so the next run recompiles it.
func TestOrchestrator_S5_FatalWarning(t *testing.T) {
	eng := fakeengine.New([]fakeengine.Source{
		{
			Path: "Foo.scala",
			Hash: "h1",
			Problems: []problems.Problem{
				{Phase: "typer", File: "Foo.scala", Line: 1, Message: "deprecated API", Severity: problems.SeverityWarning, FatalWarning: true},
			},
		},
	})
	req := newTestRequest(t, eng, nil, nil, "")
	req.FatalWarnings = true
	req.ScalacOptions = []string{"-Xfatal-warnings"}

	o := New("")
	result, err := o.Compile(context.Background(), req)
	require.NoError(t, err)

	require.Equal(t, ResultSuccess, result.Kind)
	assert.True(t, result.ReportedFatalWarnings)
	assert.True(t, result.Products.FutureRun.Analysis.Stamps.Sources["Foo.scala"].IsEmpty())
}

// TestOrchestrator_S6_TwoClients covers spec.md §8 scenario S6: two clients
// trigger the same Success background-task handle concurrently and the
// analysis is persisted exactly once.
func TestOrchestrator_S6_TwoClients(t *testing.T) {
	eng := fakeengine.New([]fakeengine.Source{
		{Path: "Foo.scala", Hash: "h1"},
		{Path: "Bar.scala", Hash: "h2"},
	})
	req := newTestRequest(t, eng, nil, nil, "")
	req.AnalysisOut = filepath.Join(req.BaseDirectory, "analysis.gob")

	o := New("")
	result, err := o.Compile(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, ResultSuccess, result.Kind)

	clientA := filepath.Join(req.BaseDirectory, "client-a")
	clientB := filepath.Join(req.BaseDirectory, "client-b")

	errCh := make(chan error, 2)
	go func() {
		errCh <- result.BackgroundTasks.Trigger(context.Background(), clientA, req.Reporter, nil, testLogger())
	}()
	go func() {
		errCh <- result.BackgroundTasks.Trigger(context.Background(), clientB, req.Reporter, nil, testLogger())
	}()
	require.NoError(t, <-errCh)
	require.NoError(t, <-errCh)

	console := req.Reporter.(*reporter.Console)
	assert.Equal(t, 1, console.EndCompilationCalls())
	assert.FileExists(t, req.AnalysisOut)
}
