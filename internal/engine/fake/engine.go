// Package fake provides an in-memory stand-in for the external incremental
// compilation engine, used by tests and the demo CLI where no real
// Scala/Java toolchain is available.
//
// Grounded on the teacher's internal/build.TemplCompiler (internal/build/compiler.go):
// same command-validation-then-run shape, retargeted from invoking the
// external `templ generate` binary to simulating one compile pass over a
// declarative source->stamp fixture.
package fake

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/conneroisu/compileorch/internal/engine"
	"github.com/conneroisu/compileorch/internal/logging"
	"github.com/conneroisu/compileorch/internal/problems"
	"github.com/conneroisu/compileorch/internal/reporter"
)

// Source describes one fixture source file fed to the fake engine.
type Source struct {
	Path string
	// Hash stands in for the source's content fingerprint. Two Compile
	// calls with the same Hash for the same Path produce no new output
	// for that source (a no-op recompile).
	Hash string
	// Problems are the diagnostics the fake engine reports for this
	// source on every compile that processes it.
	Problems []problems.Problem
	// FailCompile, if true, causes Compile to return a *engine.FailedError
	// carrying this source's Problems instead of succeeding.
	FailCompile bool
}

// Engine is a deterministic, in-memory engine.Engine implementation driven
// by a fixed set of Source fixtures.
type Engine struct {
	Sources []Source
}

// New returns a fake engine that will compile the given sources.
func New(sources []Source) *Engine {
	return &Engine{Sources: sources}
}

var _ engine.Engine = (*Engine)(nil)

// Compile simulates one incremental compile: it reports phase/progress
// callbacks and diagnostics, records a class-file product path per changed
// source under the options' classes directory (no file is written to disk),
// and builds an Analysis reflecting the new stamps. It never calls
// ReportStartCompilation, ProcessEndCompilation, or ReportEndCompilation —
// those three are the orchestrator's responsibility alone (spec.md §4.5
// steps 2/4/5). Besides the progress adapter's
// ReportNextPhase/ReportCompilationProgress (spec.md §4.2), it calls
// ReportCancelledCompilation when it stops on cancellation,
// EnableFatalWarnings for fatal-warning diagnostics, and the
// reporter.ProblemRecorder hooks when the reporter provides them.
func (e *Engine) Compile(
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
	if inputs.Setup == nil {
		return nil, nil, fmt.Errorf("fake engine: nil setup")
	}
	setup := inputs.Setup

	var span func()
	if tracer != nil {
		ctx, span = tracer.StartSpan(ctx, "fake-compile")
		defer span()
	}

	previous := setup.PreviousLookup[setup.Options.ClassesDir]
	var previousAnalysis *engine.Analysis
	if previous != nil {
		previousAnalysis = previous.Analysis
	}

	analysis := &engine.Analysis{
		Stamps: engine.Stamps{
			Sources:  map[string]engine.Stamp{},
			Products: map[string]engine.Stamp{},
			Libraries: map[string]engine.Stamp{},
		},
		Relations: engine.Relations{SourceToProducts: map[string][]string{}},
	}

	total := len(e.Sources)
	for i, src := range e.Sources {
		select {
		case <-ctx.Done():
			rep.ReportCancelledCompilation()
			return nil, nil, engine.ErrCancelled
		default:
		}
		if cancel != nil && cancel.IsSet() {
			rep.ReportCancelledCompilation()
			return nil, nil, engine.ErrCancelled
		}

		rep.ReportNextPhase("compile", src.Path)
		rep.ReportCompilationProgress(i+1, total)

		if src.FailCompile {
			for _, p := range src.Problems {
				if p.FatalWarning {
					rep.EnableFatalWarnings()
				}
				recordProblem(rep, p)
			}
			return nil, nil, &engine.FailedError{Problems: src.Problems}
		}

		// Unchanged sources reuse their previous run's stamp and product
		// path verbatim rather than recompiling into this run's classes
		// dir; this is what lets the rebaser's path rewrite (spec.md §4.3)
		// and Analysis.Equal's no-op detection do anything meaningful.
		if previousAnalysis != nil {
			if prevStamp, ok := previousAnalysis.Stamps.Sources[src.Path]; ok && prevStamp.Hash == src.Hash {
				if prevProducts := previousAnalysis.Relations.SourceToProducts[src.Path]; len(prevProducts) == 1 {
					analysis.Stamps.Sources[src.Path] = prevStamp
					analysis.Stamps.Products[prevProducts[0]] = previousAnalysis.Stamps.Products[prevProducts[0]]
					analysis.Relations.SourceToProducts[src.Path] = prevProducts
					continue
				}
			}
		}

		stamp := engine.Stamp{Hash: src.Hash, ModTime: time.Now().UnixNano()}
		analysis.Stamps.Sources[src.Path] = stamp

		product := filepath.Join(setup.Options.ClassesDir, classFileName(src.Path))
		analysis.Stamps.Products[product] = stamp
		analysis.Relations.SourceToProducts[src.Path] = []string{product}

		if fileManager != nil {
			fileManager.Generated(classFileName(src.Path), product)
		}

		for _, p := range src.Problems {
			if p.FatalWarning {
				rep.EnableFatalWarnings()
			}
			recordProblem(rep, p)
		}
	}

	return analysis, setup, nil
}

// recordProblem feeds a diagnostic into rep's bookkeeping if it exposes the
// internal/reporter.Console recording hooks; a bare reporter.Reporter
// implementation simply will not see it reflected in AllProblemsPerPhase.
func recordProblem(rep reporter.Reporter, p problems.Problem) {
	recorder, ok := rep.(reporter.ProblemRecorder)
	if !ok {
		return
	}
	if p.FatalWarning {
		recorder.RecordFatalWarning(p)
		return
	}
	recorder.RecordProblem(p)
}

func classFileName(sourcePath string) string {
	base := filepath.Base(sourcePath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return base + ".class"
}
