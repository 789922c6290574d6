package reporter

import (
	"io"
	"testing"

	"github.com/conneroisu/compileorch/internal/logging"
	"github.com/conneroisu/compileorch/internal/problems"
	"github.com/stretchr/testify/assert"
)

func testLogger() logging.Logger {
	return logging.New(&logging.Config{Output: io.Discard, Level: logging.LevelError, Format: "text"})
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "Ok", StatusOk.String())
	assert.Equal(t, "Error", StatusError.String())
	assert.Equal(t, "Cancelled", StatusCancelled.String())
	assert.Equal(t, "Unknown", Status(99).String())
}

func TestConsole_EndCompilationCallsCountsExactly(t *testing.T) {
	c := NewConsole(testLogger())
	assert.Equal(t, 0, c.EndCompilationCalls())

	c.ReportEndCompilation()
	assert.Equal(t, 1, c.EndCompilationCalls())

	c.ReportEndCompilation()
	assert.Equal(t, 2, c.EndCompilationCalls())
}

func TestConsole_EnableFatalWarnings(t *testing.T) {
	c := NewConsole(testLogger())
	assert.False(t, c.FatalWarningsEnabled())

	c.EnableFatalWarnings()
	assert.True(t, c.FatalWarningsEnabled())
}

func TestConsole_RecordFatalWarningSetsFlagAndTracksSource(t *testing.T) {
	c := NewConsole(testLogger())
	c.RecordFatalWarning(problems.Problem{File: "Foo.scala", Message: "deprecated"})

	sources := c.SourceFilesWithFatalWarnings()
	assert.True(t, sources["Foo.scala"])

	all := c.AllProblemsPerPhase()
	assert.Len(t, all, 1)
	assert.True(t, all[0].FatalWarning)
}

func TestConsole_RecordProblemDoesNotMarkFatal(t *testing.T) {
	c := NewConsole(testLogger())
	c.RecordProblem(problems.Problem{File: "Foo.scala", Message: "info"})

	all := c.AllProblemsPerPhase()
	assert.Len(t, all, 1)
	assert.False(t, all[0].FatalWarning)
	assert.Empty(t, c.SourceFilesWithFatalWarnings())
}

func TestConsole_AllProblemsPerPhaseReturnsDefensiveCopy(t *testing.T) {
	c := NewConsole(testLogger())
	c.RecordProblem(problems.Problem{File: "Foo.scala", Message: "m1"})

	all := c.AllProblemsPerPhase()
	all[0].Message = "mutated"

	assert.Equal(t, "m1", c.AllProblemsPerPhase()[0].Message)
}

func TestConsole_ResetClearsAllPerCompileState(t *testing.T) {
	c := NewConsole(testLogger())
	c.EnableFatalWarnings()
	c.RecordFatalWarning(problems.Problem{File: "Foo.scala", Message: "m1"})
	c.RecordProblem(problems.Problem{File: "Bar.scala", Message: "m2"})
	c.ReportEndCompilation()

	c.Reset()

	assert.False(t, c.FatalWarningsEnabled())
	assert.Empty(t, c.SourceFilesWithFatalWarnings())
	assert.Empty(t, c.AllProblemsPerPhase())
	assert.Equal(t, 0, c.EndCompilationCalls())
}

func TestConsole_ProcessEndCompilationAcceptsNilPointers(t *testing.T) {
	c := NewConsole(testLogger())
	assert.NotPanics(t, func() {
		c.ProcessEndCompilation(nil, StatusOk, nil, nil)
	})
}

func TestConsole_SatisfiesReporterAndProblemRecorder(t *testing.T) {
	var _ Reporter = NewConsole(testLogger())
	var _ ProblemRecorder = NewConsole(testLogger())
}
