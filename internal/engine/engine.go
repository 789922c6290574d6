// Package engine defines the narrow contract the orchestrator drives the
// incremental compilation engine through. The concrete engine (the actual
// Scala/Java incremental compiler) is an external collaborator and is
// deliberately not implemented here; see internal/engine/fake for the
// in-memory stand-in used by tests and the demo CLI.
package engine

import (
	"context"
	"errors"

	"github.com/conneroisu/compileorch/internal/logging"
	"github.com/conneroisu/compileorch/internal/problems"
	"github.com/conneroisu/compileorch/internal/reporter"
)

// Stamp is a per-file fingerprint used by the engine to detect change.
// The zero value is the "empty stamp" sentinel that forces recompilation
// of the file it is attached to on the next run.
type Stamp struct {
	Hash    string
	ModTime int64 // unix nanoseconds; avoids time.Time's monotonic-reading pitfalls in equality checks
}

// EmptyStamp is the sentinel stamp value. A source whose stamp equals
// EmptyStamp is always considered changed.
var EmptyStamp = Stamp{}

// IsEmpty reports whether s is the empty-stamp sentinel.
func (s Stamp) IsEmpty() bool { return s == EmptyStamp }

// Stamps holds the per-source, per-product, and per-library fingerprints
// recorded by the last compile.
type Stamps struct {
	Sources  map[string]Stamp
	Products map[string]Stamp
	Libraries map[string]Stamp
}

func (s Stamps) clone() Stamps {
	out := Stamps{
		Sources:   make(map[string]Stamp, len(s.Sources)),
		Products:  make(map[string]Stamp, len(s.Products)),
		Libraries: make(map[string]Stamp, len(s.Libraries)),
	}
	for k, v := range s.Sources {
		out.Sources[k] = v
	}
	for k, v := range s.Products {
		out.Products[k] = v
	}
	for k, v := range s.Libraries {
		out.Libraries[k] = v
	}
	return out
}

// Relations records the source-to-product dependency graph of a compile.
type Relations struct {
	// SourceToProducts maps a source file path to the product paths it produced.
	SourceToProducts map[string][]string
}

func (r Relations) clone() Relations {
	out := Relations{SourceToProducts: make(map[string][]string, len(r.SourceToProducts))}
	for src, prods := range r.SourceToProducts {
		cp := make([]string, len(prods))
		copy(cp, prods)
		out.SourceToProducts[src] = cp
	}
	return out
}

// Analysis is the structured record of a compile: what was built, from
// what, and with what fingerprints. Two analyses that are structurally
// equal represent a no-op compile.
type Analysis struct {
	Stamps    Stamps
	Relations Relations
}

// Empty reports whether a is the "nothing has ever been compiled" analysis.
// Per spec.md §9's open question, both an Analysis with no entries and a
// nil *Analysis are treated identically as "do not persist".
func (a *Analysis) Empty() bool {
	if a == nil {
		return true
	}
	return len(a.Stamps.Sources) == 0 && len(a.Stamps.Products) == 0 &&
		len(a.Stamps.Libraries) == 0 && len(a.Relations.SourceToProducts) == 0
}

// Equal reports structural equality between two analyses. This is the
// engine's no-op detection predicate.
func (a *Analysis) Equal(b *Analysis) bool {
	if a == nil || b == nil {
		return a.Empty() && b.Empty()
	}
	return stampsEqual(a.Stamps, b.Stamps) && relationsEqual(a.Relations, b.Relations)
}

// Clone returns a deep copy of a so callers can rewrite it without
// mutating the original.
func (a *Analysis) Clone() *Analysis {
	if a == nil {
		return nil
	}
	return &Analysis{Stamps: a.Stamps.clone(), Relations: a.Relations.clone()}
}

func stampsEqual(a, b Stamps) bool {
	return mapEqual(a.Sources, b.Sources) && mapEqual(a.Products, b.Products) && mapEqual(a.Libraries, b.Libraries)
}

func mapEqual(a, b map[string]Stamp) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if bv, ok := b[k]; !ok || bv != v {
			return false
		}
	}
	return true
}

func relationsEqual(a, b Relations) bool {
	if len(a.SourceToProducts) != len(b.SourceToProducts) {
		return false
	}
	for k, v := range a.SourceToProducts {
		bv, ok := b.SourceToProducts[k]
		if !ok || len(bv) != len(v) {
			return false
		}
		for i := range v {
			if v[i] != bv[i] {
				return false
			}
		}
	}
	return true
}

// CompileOrder mirrors the engine's source-ordering strategy between the
// two languages of a mixed codebase.
type CompileOrder int

const (
	OrderMixed CompileOrder = iota
	OrderJavaThenScala
	OrderScalaThenJava
)

// ClasspathHash is a fingerprint of a single non-directory classpath entry,
// used to amortize the engine's equivalence check across no-op compiles.
type ClasspathHash struct {
	Path        string
	Hash        string
	IsDirectory bool
}

// CompileOptions are the engine-facing build options for one compile.
type CompileOptions struct {
	ClassesDir    string
	Sources       []string
	Classpath     []string
	ScalacOptions []string
	JavacOptions  []string
	Order         CompileOrder
	ClasspathHashes []ClasspathHash
}

// IncrementalOptions toggles the engine's incremental mode.
type IncrementalOptions struct {
	Enabled bool
}

// PreviousResult wraps the (optional) analysis and setup of the last
// successful compile of one project.
type PreviousResult struct {
	Analysis *Analysis
	Setup    *Setup
}

// Setup is the engine-facing compile setup: compile options, the
// per-build cache file, incremental mode toggle, and the lookup table the
// engine uses to resolve dependent-project results.
type Setup struct {
	Options        CompileOptions
	CacheFile      string
	Incremental    IncrementalOptions
	// PreviousLookup maps a classes directory (read-only or new, of this
	// project, or of a dependent project) to the previous result visible
	// at that directory.
	PreviousLookup map[string]*PreviousResult
}

// CompileInputs bundles the inputs the engine needs to run one compile;
// it carries only the Setup.
type CompileInputs struct {
	Setup *Setup
}

// UniqueInputs is a cheap fingerprint of classpath and options used by the
// engine to short-circuit the expensive equivalence check on repeated
// no-op compiles.
type UniqueInputs struct {
	Fingerprint string
}

// ClasspathOptions governs how the engine interprets classpath entries.
type ClasspathOptions struct {
	UseNameHashing bool
}

// ClassFileManager is the engine-facing hook that records invalidated and
// newly generated class files during compilation. The orchestrator's
// Background Task Builder consumes its bookkeeping verbatim once the
// engine call returns.
type ClassFileManager interface {
	// Generated is called for every class file the engine writes into the
	// new classes directory, relative to that directory.
	Generated(relativePath, absolutePath string)
	// InvalidatedReadOnlyFile records a file in the read-only classes
	// directory the engine touched; the post-compile copier must never
	// resurrect it.
	InvalidatedReadOnlyFile(path string)
	// Invalidated records a class file (anywhere) the engine invalidated
	// for this run.
	Invalidated(path string)
	// InvalidatedExtra records an invalidated "extra" compile product
	// (e.g. a generated resource) outside the normal class-file set.
	InvalidatedExtra(path string)
	// OnSuccessfulAnalysis registers a task that must run only once a new
	// analysis has been produced; it runs in parallel with that analysis's
	// persistence.
	OnSuccessfulAnalysis(task func(ctx context.Context) error)
	// OnFailedCompilation registers a task that must run only when the
	// compile ultimately fails.
	OnFailedCompilation(task func(ctx context.Context) error)
}

// Tracer is the narrow tracing contract the engine reports spans through.
type Tracer interface {
	StartSpan(ctx context.Context, name string) (context.Context, func())
}

// CancelFlag is a one-shot, idempotent cancellation token shared between
// the orchestrator's outer task driver and the engine.
type CancelFlag interface {
	IsSet() bool
}

// ErrCancelled is returned by Engine.Compile (wrapped or bare) when the
// engine itself detected cancellation (as opposed to the orchestrator
// re-classifying a success that raced with an external cancel).
var ErrCancelled = errors.New("engine: compile cancelled")

// FailedError is returned by Engine.Compile when compilation failed with
// diagnostics rather than with an unexpected exception.
type FailedError struct {
	Problems []problems.Problem
}

func (e *FailedError) Error() string {
	return "engine: compile failed with diagnostics"
}

// Engine drives one incremental compile. The real implementation lives
// outside this module (spec.md §1, §6); internal/engine/fake provides an
// in-memory stand-in for tests and the demo CLI.
type Engine interface {
	Compile(
		ctx context.Context,
		inputs CompileInputs,
		rep reporter.Reporter,
		logger logging.Logger,
		unique UniqueInputs,
		fileManager ClassFileManager,
		cancel CancelFlag,
		tracer Tracer,
		classpathOpts ClasspathOptions,
	) (*Analysis, *Setup, error)
}
