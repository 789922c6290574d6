// Package internal contains the core implementation packages for compileorch.
//
// This package follows Go's internal package convention, making these
// packages unavailable for import by external modules while providing
// all the core functionality for the per-project incremental compilation
// orchestrator.
//
// # Package Organization
//
// The internal packages are organized by functional domain:
//
//   - compile: the orchestrator state machine, path layout, analysis
//     rebaser, previous-result refresh, and background task builder
//   - engine: the narrow contract the orchestrator drives the incremental
//     engine through, plus an in-memory fake used by tests and the demo CLI
//   - problems: diagnostic collection and deduplication
//   - reporter: the narrow reporter contract plus a logging-backed console
//     implementation
//   - config: configuration management (viper-backed)
//   - logging: structured logging
//   - orphan: a periodic sweep of orphaned per-run class directories
//   - di: wiring of the above for cmd/compileorchd
//
// # Design Principles
//
//   - The mutable bookkeeping for one compile never escapes that compile.
//   - Cancellation is a one-shot token observed cooperatively, never a
//     control-flow exception.
//   - Background I/O is modeled as a deferred, per-client trigger handle;
//     analysis persistence is memoized exactly once across clients.
//   - The incremental engine itself is always consumed through a narrow
//     interface so the orchestrator is testable against a fake.
package internal
