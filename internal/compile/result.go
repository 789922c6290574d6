package compile

import (
	"time"

	"github.com/conneroisu/compileorch/internal/problems"
)

// ResultKind discriminates the Result tagged variant (spec.md §3).
type ResultKind int

const (
	ResultEmpty ResultKind = iota
	ResultBlocked
	ResultGlobalError
	ResultSuccess
	ResultFailed
	ResultCancelled
)

func (k ResultKind) String() string {
	switch k {
	case ResultEmpty:
		return "Empty"
	case ResultBlocked:
		return "Blocked"
	case ResultGlobalError:
		return "GlobalError"
	case ResultSuccess:
		return "Success"
	case ResultFailed:
		return "Failed"
	case ResultCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// Result is the tagged outcome of one compile (spec.md §3). Exactly the
// fields relevant to Kind are populated; the zero value of the others is
// meaningless and must not be read.
type Result struct {
	Kind ResultKind

	// Blocked
	Blockers []string

	// GlobalError
	Message string
	Cause   error

	// Success
	UniqueInputs          string
	Products              *CompileProducts
	ElapsedMs             int64
	BackgroundTasks       *BackgroundTasks
	IsNoOp                bool
	ReportedFatalWarnings bool

	// Failed / Cancelled
	ProblemsPerPhase []problems.Problem
}

// Ok reports whether r is Success or Empty, per spec.md §3's "Ok" recognizer.
func (r *Result) Ok() bool {
	return r.Kind == ResultSuccess || r.Kind == ResultEmpty
}

// NotOk is the complement of Ok.
func (r *Result) NotOk() bool { return !r.Ok() }

func emptyResult() *Result {
	return &Result{Kind: ResultEmpty}
}

func blockedResult(blockers []string) *Result {
	return &Result{Kind: ResultBlocked, Blockers: blockers}
}

func globalErrorResult(message string, cause error) *Result {
	return &Result{Kind: ResultGlobalError, Message: message, Cause: cause}
}

func successResult(
	uniqueInputs string,
	products *CompileProducts,
	elapsed time.Duration,
	tasks *BackgroundTasks,
	isNoOp bool,
	reportedFatalWarnings bool,
) *Result {
	return &Result{
		Kind:                  ResultSuccess,
		UniqueInputs:          uniqueInputs,
		Products:              products,
		ElapsedMs:             elapsed.Milliseconds(),
		BackgroundTasks:       tasks,
		IsNoOp:                isNoOp,
		ReportedFatalWarnings: reportedFatalWarnings,
	}
}

func failedResult(problemsPerPhase []problems.Problem, cause error, elapsed time.Duration, tasks *BackgroundTasks) *Result {
	return &Result{
		Kind:             ResultFailed,
		ProblemsPerPhase: problemsPerPhase,
		Cause:            cause,
		ElapsedMs:        elapsed.Milliseconds(),
		BackgroundTasks:  tasks,
	}
}

func cancelledResult(problemsPerPhase []problems.Problem, elapsed time.Duration, tasks *BackgroundTasks) *Result {
	return &Result{
		Kind:             ResultCancelled,
		ProblemsPerPhase: problemsPerPhase,
		ElapsedMs:        elapsed.Milliseconds(),
		BackgroundTasks:  tasks,
	}
}

// previousProblems derives the "previousProblems" input to
// reportStartCompilation (spec.md §4.5 step 2) from a prior Result.
func previousProblems(prev *Result) []problems.Problem {
	if prev == nil {
		return nil
	}
	switch prev.Kind {
	case ResultFailed, ResultCancelled:
		return prev.ProblemsPerPhase
	case ResultSuccess:
		// The problems recoverable from a previous successful analysis are
		// whatever the reporter already tracked for that run; the
		// orchestrator does not re-derive them from the analysis itself.
		return nil
	default:
		return nil
	}
}
