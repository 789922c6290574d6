package compile

import "github.com/conneroisu/compileorch/internal/engine"

// refreshPreviousResult substitutes the current, non-directory classpath
// hashes into prev's embedded setup (spec.md §4.4), so a subsequent no-op
// check can compare classpath hashes without re-hashing every entry. Every
// other field of prev is carried over unchanged.
func refreshPreviousResult(prev *engine.PreviousResult, currentHashes []engine.ClasspathHash) *engine.PreviousResult {
	if prev == nil {
		return nil
	}

	nonDir := make([]engine.ClasspathHash, 0, len(currentHashes))
	for _, h := range currentHashes {
		if !h.IsDirectory {
			nonDir = append(nonDir, h)
		}
	}

	refreshed := &engine.PreviousResult{Analysis: prev.Analysis}
	if prev.Setup != nil {
		setupCopy := *prev.Setup
		setupCopy.Options.ClasspathHashes = nonDir
		refreshed.Setup = &setupCopy
	}
	return refreshed
}
