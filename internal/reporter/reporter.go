// Package reporter defines the narrow diagnostic/progress sink the
// orchestrator reports through, and a logging-backed console
// implementation for tests and the demo CLI.
//
// Grounded on the teacher's internal/interfaces.BuildMetrics/CacheStats
// style of small, composable interfaces (internal/interfaces/core.go).
package reporter

import (
	"context"
	"sync"

	"github.com/conneroisu/compileorch/internal/logging"
	"github.com/conneroisu/compileorch/internal/problems"
)

// Status is the BSP-level status code surfaced to the reporter
// (spec.md §6).
type Status int

const (
	StatusOk Status = iota
	StatusError
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusOk:
		return "Ok"
	case StatusError:
		return "Error"
	case StatusCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// Reporter is the contract consumed from the external reporter
// collaborator (spec.md §6). internal/engine.Engine takes this interface
// directly.
type Reporter interface {
	ReportStartCompilation(previousProblems []problems.Problem)
	ReportNextPhase(phase, unitPath string)
	ReportCompilationProgress(current, total int)
	ReportCancelledCompilation()
	ProcessEndCompilation(previousProblems []problems.Problem, status Status, externalClassesDir *string, analysisOut *string)
	ReportEndCompilation()
	EnableFatalWarnings()
	SourceFilesWithFatalWarnings() map[string]bool
	AllProblemsPerPhase() []problems.Problem
}

// Console is a Reporter implementation that logs every callback and
// accumulates problems reported by the engine during a compile, for use
// by tests and cmd/compileorchd.
type Console struct {
	logger logging.Logger

	mu                    sync.Mutex
	fatalWarningsEnabled  bool
	fatalWarningSources   map[string]bool
	problemsByPhase       []problems.Problem
	endCompilationCalls   int
}

// NewConsole returns a Console reporter that logs through logger.
func NewConsole(logger logging.Logger) *Console {
	return &Console{
		logger:              logger,
		fatalWarningSources: make(map[string]bool),
	}
}

func (c *Console) ReportStartCompilation(previousProblems []problems.Problem) {
	c.logger.Info(context.Background(), "compilation started", "previous_problems", len(previousProblems))
}

func (c *Console) ReportNextPhase(phase, unitPath string) {
	c.logger.Debug(context.Background(), "phase", "phase", phase, "unit", unitPath)
}

func (c *Console) ReportCompilationProgress(current, total int) {
	c.logger.Debug(context.Background(), "progress", "current", current, "total", total)
}

func (c *Console) ReportCancelledCompilation() {
	c.logger.Info(context.Background(), "compilation cancelled")
}

func (c *Console) ProcessEndCompilation(previousProblems []problems.Problem, status Status, externalClassesDir *string, analysisOut *string) {
	dir := ""
	if externalClassesDir != nil {
		dir = *externalClassesDir
	}
	c.logger.Info(context.Background(), "compilation ended",
		"status", status.String(), "external_classes_dir", dir)
}

func (c *Console) ReportEndCompilation() {
	c.mu.Lock()
	c.endCompilationCalls++
	c.mu.Unlock()
	c.logger.Debug(context.Background(), "report end compilation")
}

// EndCompilationCalls returns how many times ReportEndCompilation fired,
// letting tests assert the "exactly once" invariant (spec.md §8 property 7).
func (c *Console) EndCompilationCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.endCompilationCalls
}

func (c *Console) EnableFatalWarnings() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fatalWarningsEnabled = true
}

func (c *Console) FatalWarningsEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fatalWarningsEnabled
}

// RecordFatalWarning is called by the fake engine (or a real one) to
// surface a source file that produced a fatal warning.
func (c *Console) RecordFatalWarning(problem problems.Problem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	problem.FatalWarning = true
	c.fatalWarningSources[problem.File] = true
	c.problemsByPhase = append(c.problemsByPhase, problem)
}

// RecordProblem appends a regular diagnostic to the reporter's
// allProblemsPerPhase bookkeeping.
func (c *Console) RecordProblem(problem problems.Problem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.problemsByPhase = append(c.problemsByPhase, problem)
}

func (c *Console) SourceFilesWithFatalWarnings() map[string]bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]bool, len(c.fatalWarningSources))
	for k, v := range c.fatalWarningSources {
		out[k] = v
	}
	return out
}

func (c *Console) AllProblemsPerPhase() []problems.Problem {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]problems.Problem, len(c.problemsByPhase))
	copy(out, c.problemsByPhase)
	return out
}

// Reset clears per-compile state so a single Console can be reused across
// the "two clients" scenario in spec.md §8 S6 without cross-contaminating
// fatal-warning bookkeeping between independent compiles.
func (c *Console) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fatalWarningsEnabled = false
	c.fatalWarningSources = make(map[string]bool)
	c.problemsByPhase = nil
	c.endCompilationCalls = 0
}

// ProblemRecorder is implemented by reporters that accept diagnostics fed
// in from the engine side (as opposed to rendering them). The fake engine
// uses it to populate a Console's bookkeeping; a production reporter would
// normally receive problems through its own transport instead.
type ProblemRecorder interface {
	RecordProblem(problem problems.Problem)
	RecordFatalWarning(problem problems.Problem)
}

var _ Reporter = (*Console)(nil)
var _ ProblemRecorder = (*Console)(nil)
