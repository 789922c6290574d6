package compile

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/conneroisu/compileorch/internal/engine"
	"github.com/conneroisu/compileorch/internal/problems"
	"github.com/conneroisu/compileorch/internal/reporter"
)

// Orchestrator drives one project's compiles (spec.md §4.5). It is
// stateless across compiles except for the server's own java home, used by
// the release-flag adjustment.
//
// Grounded on the teacher's BuildPipeline (internal/build/pipeline.go) as
// the single exported top-level entry point of the package.
type Orchestrator struct {
	ServerJavaHome string
}

// New returns an Orchestrator. serverJavaHome is this server's own JDK
// home, used to decide whether a compile's javac target needs a -release
// flag appended (spec.md §4.5a).
func New(serverJavaHome string) *Orchestrator {
	return &Orchestrator{ServerJavaHome: serverJavaHome}
}

type engineOutcome struct {
	analysis *engine.Analysis
	setup    *engine.Setup
	err      error
}

// Compile runs the full state machine of spec.md §4.5 for one request and
// returns its Result. The returned error is non-nil only for conditions the
// caller cannot recover a Result from (e.g. a nil request); every
// compile-domain failure is represented inside the returned *Result.
func (o *Orchestrator) Compile(ctx context.Context, req *Request) (*Result, error) {
	if req == nil {
		return nil, fmt.Errorf("compile: nil request")
	}
	if req.Cancel == nil {
		req.Cancel = NewCancelToken()
	}
	if req.Persister == nil {
		req.Persister = GobAnalysisPersister{}
	}

	start := time.Now()
	reqCtx := newRequestContext()
	fileManager := newClassFileManager(reqCtx)
	progress := newProgressAdapter(req.Reporter, req.Cancel)

	newClassesDir, err := req.Layout.internalNewClassesDir()
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}

	scalacOptions := adjustForJDKRelease(ctx, req.Logger, req.ScalacOptions, req.JavaHome, o.ServerJavaHome)
	scalacOptions, strippedFatal := stripFatalWarningsFlag(scalacOptions)
	fatalWarnings := req.FatalWarnings || strippedFatal

	options := engine.CompileOptions{
		ClassesDir:    newClassesDir,
		Sources:       req.Sources,
		Classpath:     req.Classpath,
		ScalacOptions: scalacOptions,
		JavacOptions:  req.JavacOptions,
		Order:         engine.OrderMixed,
	}

	previousLookup := make(map[string]*engine.PreviousResult, len(req.DependentResults)+2)
	if req.Layout.InternalReadOnlyClassesDir != "" {
		previousLookup[req.Layout.InternalReadOnlyClassesDir] = req.PreviousCompilerResult
	}
	previousLookup[newClassesDir] = req.PreviousCompilerResult
	for dir, result := range req.DependentResults {
		previousLookup[dir] = result
	}

	setup := &engine.Setup{
		Options:     options,
		CacheFile:   filepath.Join(req.BaseDirectory, "cache"),
		Incremental: engine.IncrementalOptions{Enabled: !req.IncrementalDisabled},
		PreviousLookup: previousLookup,
	}

	prevProblems := previousProblems(req.PreviousResult)
	req.Reporter.ReportStartCompilation(prevProblems)
	if fatalWarnings {
		req.Reporter.EnableFatalWarnings()
	}

	inputs := engine.CompileInputs{Setup: setup}
	uniqueInputs := engine.UniqueInputs{Fingerprint: fingerprintRequest(req, scalacOptions)}
	classpathOpts := engine.ClasspathOptions{UseNameHashing: true}

	outcomeCh := make(chan engineOutcome, 1)
	runEngine := func(ctx context.Context) error {
		analysis, engSetup, err := req.Engine.Compile(ctx, inputs, progress, req.Logger, uniqueInputs, fileManager, req.Cancel, req.Tracer, classpathOpts)
		outcomeCh <- engineOutcome{analysis: analysis, setup: engSetup, err: err}
		return nil
	}

	executor := req.CPUExecutor
	if executor == nil {
		executor = InlineExecutor{}
	}
	go func() {
		if err := executor.Run(ctx, runEngine); err != nil {
			// runEngine itself always sends on outcomeCh before returning; an
			// error here means the executor rejected fn without running it
			// (e.g. PoolExecutor.Run declining because ctx is already done),
			// so outcomeCh needs a synthesized outcome or the select below
			// blocks forever waiting for a send that will never come.
			outcomeCh <- engineOutcome{err: err}
		}
	}()

	var outcome engineOutcome
	select {
	case outcome = <-outcomeCh:
	case <-ctx.Done():
		req.Cancel.Set()
		req.Reporter.ReportCancelledCompilation()
		outcome = <-outcomeCh
	}

	elapsed := time.Since(start)

	if req.Cancel.IsSet() {
		return o.cancellationResult(ctx, req, reqCtx, prevProblems, elapsed), nil
	}

	if outcome.err != nil {
		return o.classifyFailure(ctx, req, reqCtx, outcome.err, elapsed), nil
	}

	return o.classifySuccess(ctx, req, reqCtx, outcome, elapsed, fatalWarnings, newClassesDir), nil
}

func (o *Orchestrator) cancellationResult(ctx context.Context, req *Request, reqCtx *requestContext, prevProblems []problems.Problem, elapsed time.Duration) *Result {
	req.Reporter.ProcessEndCompilation(prevProblems, reporter.StatusCancelled, nil, nil)
	tasks := o.buildFailedTasks(req, reqCtx)
	return cancelledResult(req.Reporter.AllProblemsPerPhase(), elapsed, tasks)
}

func (o *Orchestrator) classifyFailure(ctx context.Context, req *Request, reqCtx *requestContext, engErr error, elapsed time.Duration) *Result {
	var failed *engine.FailedError
	tasks := o.buildFailedTasks(req, reqCtx)

	if errors.Is(engErr, engine.ErrCancelled) {
		req.Reporter.ReportCancelledCompilation()
		req.Reporter.ProcessEndCompilation(nil, reporter.StatusCancelled, nil, nil)
		return cancelledResult(req.Reporter.AllProblemsPerPhase(), elapsed, tasks)
	}

	if errors.As(engErr, &failed) {
		merged := problems.Union(req.Reporter.AllProblemsPerPhase(), failed.Problems)
		req.Reporter.ProcessEndCompilation(merged, reporter.StatusError, nil, nil)
		return failedResult(merged, nil, elapsed, tasks)
	}

	req.Reporter.ProcessEndCompilation(nil, reporter.StatusError, nil, nil)
	return failedResult(nil, engErr, elapsed, tasks)
}

func (o *Orchestrator) classifySuccess(
	ctx context.Context,
	req *Request,
	reqCtx *requestContext,
	outcome engineOutcome,
	elapsed time.Duration,
	fatalWarnings bool,
	newClassesDir string,
) *Result {
	fatalSources := req.Reporter.SourceFilesWithFatalWarnings()
	reportedFatalWarnings := fatalWarnings && len(fatalSources) > 0

	var prevAnalysis *engine.Analysis
	if req.PreviousCompilerResult != nil {
		prevAnalysis = req.PreviousCompilerResult.Analysis
	}
	isNoOp := prevAnalysis.Equal(outcome.analysis)

	status := reporter.StatusOk
	if reportedFatalWarnings {
		status = reporter.StatusError
	}

	readOnly := req.Layout.InternalReadOnlyClassesDir

	if isNoOp {
		externalDir := req.Layout.ExternalClassesDir
		req.Reporter.ProcessEndCompilation(nil, status, &externalDir, nil)

		refreshed := refreshPreviousResult(req.PreviousCompilerResult, req.Layout.classpathHashesFallback())
		products := &CompileProducts{
			ReadOnlyClassesDir:      readOnly,
			NewClassesDir:           readOnly,
			DependentRun:            refreshed,
			FutureRun:               refreshed,
			GeneratedRelativeToFile: map[string]string{},
		}

		tasks := o.buildNoOpTasks(req, reqCtx, newClassesDir, readOnly, refreshed)
		return successResult(uniqueInputsLabel(outcome), products, elapsed, tasks, true, reportedFatalWarnings)
	}

	rebased := rebaseAnalysis(outcome.analysis, readOnly, newClassesDir, fatalSources)

	dependentRun := &engine.PreviousResult{Analysis: outcome.analysis, Setup: outcome.setup}
	futureRun := &engine.PreviousResult{Analysis: rebased, Setup: outcome.setup}

	invalidated := reqCtx.union()

	generated := make(map[string]string, len(reqCtx.generated))
	for k, v := range reqCtx.generated {
		generated[k] = v
	}

	products := &CompileProducts{
		ReadOnlyClassesDir:      readOnly,
		NewClassesDir:           newClassesDir,
		DependentRun:            dependentRun,
		FutureRun:               futureRun,
		Invalidated:             invalidated,
		GeneratedRelativeToFile: generated,
	}

	externalDir := req.Layout.ExternalClassesDir
	var analysisOutPtr *string
	if req.AnalysisOut != "" {
		analysisOutPtr = &req.AnalysisOut
	}
	req.Reporter.ProcessEndCompilation(nil, status, &externalDir, analysisOutPtr)

	tasks := o.buildSuccessTasks(req, reqCtx, readOnly, rebased, invalidated)
	return successResult(uniqueInputsLabel(outcome), products, elapsed, tasks, false, reportedFatalWarnings)
}

func (o *Orchestrator) buildNoOpTasks(req *Request, reqCtx *requestContext, newClassesDir, readOnly string, refreshed *engine.PreviousResult) *BackgroundTasks {
	io := req.IOExecutor
	if io == nil {
		io = InlineExecutor{}
	}
	tasks := newBackgroundTasks(tasksNoOp, io, req.Reporter, req.Logger)

	tasks.sharedWork = func(ctx context.Context) error {
		return runParallel(ctx, io,
			func(ctx context.Context) error { return removeDir(newClassesDir) },
			func(ctx context.Context) error {
				if req.AnalysisOut == "" || req.Persister.Exists(req.AnalysisOut) {
					return nil
				}
				if refreshed == nil || refreshed.Analysis.Empty() {
					return nil
				}
				return req.Persister.Persist(ctx, req.AnalysisOut, refreshed.Analysis)
			},
		)
	}
	tasks.perClientWork = func(ctx context.Context, clientDir string) error {
		return copyTree(readOnly, clientDir, nil)
	}
	return tasks
}

func (o *Orchestrator) buildSuccessTasks(req *Request, reqCtx *requestContext, readOnly string, rebased *engine.Analysis, invalidated []string) *BackgroundTasks {
	io := req.IOExecutor
	if io == nil {
		io = InlineExecutor{}
	}
	tasks := newBackgroundTasks(tasksSuccess, io, req.Reporter, req.Logger)

	tasks.sharedWork = func(ctx context.Context) error {
		factories := append([]func(ctx context.Context) error{}, reqCtx.onSuccessfulAnalysis...)
		factories = append(factories, func(ctx context.Context) error {
			if req.AnalysisOut == "" {
				return nil
			}
			if rebased.Empty() {
				if req.Logger != nil {
					req.Logger.Debug(ctx, "empty analysis not persisted", "nil_analysis", rebased == nil)
				}
				return nil
			}
			return req.Persister.Persist(ctx, req.AnalysisOut, rebased)
		})
		fns := make([]func(ctx context.Context) error, len(factories))
		copy(fns, factories)
		return runParallel(ctx, io, fns...)
	}

	denylist := make(map[string]bool, len(reqCtx.denylist)+len(invalidated))
	for k, v := range reqCtx.denylist {
		denylist[k] = v
	}
	for _, p := range invalidated {
		denylist[p] = true
	}

	tasks.perClientWork = func(ctx context.Context, clientDir string) error {
		return runParallel(ctx, io,
			func(ctx context.Context) error { return copyTree(readOnly, clientDir, denylist) },
			func(ctx context.Context) error { return deleteInvalidatedFromClient(readOnly, clientDir, invalidated) },
		)
	}
	return tasks
}

func (o *Orchestrator) buildFailedTasks(req *Request, reqCtx *requestContext) *BackgroundTasks {
	io := req.IOExecutor
	if io == nil {
		io = InlineExecutor{}
	}
	tasks := newBackgroundTasks(tasksFailed, io, req.Reporter, req.Logger)
	tasks.sharedWork = func(ctx context.Context) error {
		fns := make([]func(ctx context.Context) error, len(reqCtx.onFailedCompilation))
		copy(fns, reqCtx.onFailedCompilation)
		return runParallel(ctx, io, fns...)
	}
	return tasks
}

func uniqueInputsLabel(outcome engineOutcome) string {
	if outcome.setup == nil {
		return ""
	}
	return fmt.Sprintf("%d-sources", len(outcome.setup.Options.Sources))
}

func fingerprintRequest(req *Request, scalacOptions []string) string {
	h := sha256.New()
	h.Write([]byte(strings.Join(req.Sources, "\n")))
	h.Write([]byte(strings.Join(req.Classpath, "\n")))
	h.Write([]byte(strings.Join(scalacOptions, "\n")))
	h.Write([]byte(strings.Join(req.JavacOptions, "\n")))
	return hex.EncodeToString(h.Sum(nil))
}
