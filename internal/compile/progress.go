package compile

import (
	"github.com/conneroisu/compileorch/internal/problems"
	"github.com/conneroisu/compileorch/internal/reporter"
)

// progressAdapter bridges the engine's progress callbacks to the request's
// reporter and the shared cancellation token (spec.md §4.2). It implements
// reporter.Reporter itself, so the orchestrator passes it to the engine in
// place of the raw reporter: startUnit (ReportNextPhase) always forwards,
// but advance (ReportCompilationProgress) is suppressed once the cancel
// flag is set, since a cancelled compile's progress reports are no longer
// meaningful to the client.
//
// Grounded on the teacher's BuildPipeline.cancel-guarded reporting idiom
// (internal/build/pipeline.go): check the shared cancellation signal before
// doing work that assumes the pipeline is still live.
type progressAdapter struct {
	reporter.Reporter
	cancel *CancelToken
}

func newProgressAdapter(rep reporter.Reporter, cancel *CancelToken) *progressAdapter {
	return &progressAdapter{Reporter: rep, cancel: cancel}
}

// ReportNextPhase forwards unconditionally (spec.md §4.2's startUnit).
func (p *progressAdapter) ReportNextPhase(phase, unitPath string) {
	p.Reporter.ReportNextPhase(phase, unitPath)
}

// ReportCompilationProgress forwards iff the cancel flag is not yet set
// (spec.md §4.2's advance).
func (p *progressAdapter) ReportCompilationProgress(current, total int) {
	if p.cancel.IsSet() {
		return
	}
	p.Reporter.ReportCompilationProgress(current, total)
}

// RecordProblem and RecordFatalWarning forward to the wrapped reporter if
// it supports reporter.ProblemRecorder, so a fake or real engine can still
// feed diagnostics through the adapter exactly as it would through the raw
// reporter.
func (p *progressAdapter) RecordProblem(problem problems.Problem) {
	if r, ok := p.Reporter.(reporter.ProblemRecorder); ok {
		r.RecordProblem(problem)
	}
}

func (p *progressAdapter) RecordFatalWarning(problem problems.Problem) {
	if r, ok := p.Reporter.(reporter.ProblemRecorder); ok {
		r.RecordFatalWarning(problem)
	}
}

var _ reporter.Reporter = (*progressAdapter)(nil)
var _ reporter.ProblemRecorder = (*progressAdapter)(nil)
