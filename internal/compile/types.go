// Package compile implements the per-project incremental compilation
// orchestrator: it stages output into an isolated per-run directory, drives
// the external incremental engine, rebases the resulting analysis, and
// schedules the background I/O that publishes results to clients.
//
// Grounded on the teacher's internal/build.BuildPipeline
// (internal/build/pipeline.go) as the single exported entry point of a
// package, retargeted from templ component compilation to Scala/Java
// incremental compilation.
package compile

import (
	"context"

	"github.com/conneroisu/compileorch/internal/engine"
	"github.com/conneroisu/compileorch/internal/logging"
	"github.com/conneroisu/compileorch/internal/reporter"
)

// Executor runs a unit of work. CPUExecutor and IOExecutor in Request are
// deliberately the same shape so a caller can size them independently
// (spec.md §5's "two executors").
type Executor interface {
	Run(ctx context.Context, fn func(ctx context.Context) error) error
}

// Request is the input to one compile (spec.md §3). Compile fills in Cancel
// and Persister when they are nil; it mutates no other field.
type Request struct {
	Project string

	Sources   []string
	Classpath []string

	ScalacOptions []string
	JavacOptions  []string

	BaseDirectory string
	Layout        *PathLayout

	// PreviousResult is the prior Result of this same project, used to
	// derive previousProblems and the no-op comparison baseline.
	PreviousResult *Result
	// PreviousCompilerResult carries the previous engine PreviousResult
	// (analysis+setup), consumed directly by the engine on this run.
	PreviousCompilerResult *engine.PreviousResult

	// DependentResults maps a dependent project's classes directory to
	// its PreviousResult, so the engine can resolve cross-project
	// analyses.
	DependentResults map[string]*engine.PreviousResult

	Reporter reporter.Reporter
	Logger   logging.Logger
	Tracer   engine.Tracer

	Cancel *CancelToken

	CPUExecutor Executor
	IOExecutor  Executor

	// DependentInvalidated and DependentGenerated are files invalidated
	// or generated by dependent projects during this build, relevant to
	// picking the correct copy-denylist sources.
	DependentInvalidated []string
	DependentGenerated   []string

	// JavaHome is this compile's target javac's home directory, used by
	// the release-flag adjustment (spec.md §4.5a). Empty means "use the
	// server's own JVM, no adjustment needed".
	JavaHome string
	// FatalWarnings mirrors -Xfatal-warnings: stripped from the options
	// passed to the engine, but switches the reporter into
	// fatal-warnings mode.
	FatalWarnings bool

	// IncrementalDisabled mirrors the bloop.zinc.disabled process
	// property (spec.md §6).
	IncrementalDisabled bool

	Engine engine.Engine

	// AnalysisOut is the path the rebased analysis is persisted to
	// (spec.md §6's "Persisted state"). Empty means the caller does not
	// want the analysis written to disk.
	AnalysisOut string
	Persister   AnalysisPersister
}

// CompileProducts is the output-location bookkeeping attached to a
// Success result (spec.md §3).
type CompileProducts struct {
	ReadOnlyClassesDir string
	NewClassesDir      string

	// DependentRun carries the raw (unrebased) analysis and setup, for
	// consumption by projects that depend on this one.
	DependentRun *engine.PreviousResult
	// FutureRun carries the rebased analysis, the one a subsequent
	// compile of this same project will see as "previous".
	FutureRun *engine.PreviousResult

	Invalidated []string

	// GeneratedRelativeToFile maps a class file's path (relative to
	// NewClassesDir) to its absolute path.
	GeneratedRelativeToFile map[string]string
}

// requestContext is the mutable bookkeeping for one compile (spec.md §3's
// "Mutable bookkeeping during a compile"), allocated by
// newRequestContext. It is owned
// exclusively by the compile that creates it and must never be retained
// past that compile's return.
type requestContext struct {
	generated map[string]string // relative path -> absolute path
	denylist  map[string]bool
	invalidatedClasses []string
	invalidatedExtra   []string

	onSuccessfulAnalysis []func(ctx context.Context) error
	onFailedCompilation  []func(ctx context.Context) error
}

func newRequestContext() *requestContext {
	return &requestContext{
		generated: make(map[string]string),
		denylist:  make(map[string]bool),
	}
}

func (c *requestContext) union() []string {
	out := make([]string, 0, len(c.invalidatedClasses)+len(c.invalidatedExtra))
	out = append(out, c.invalidatedClasses...)
	out = append(out, c.invalidatedExtra...)
	return out
}
