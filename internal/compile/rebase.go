package compile

import (
	"path/filepath"
	"strings"

	"github.com/conneroisu/compileorch/internal/engine"
)

// rebaseAnalysis is the pure Analysis Rebaser (spec.md §4.3). It rewrites
// product paths rooted at readOnlyClassesDir onto newClassesDir, replaces
// source stamps for fatalWarningSources with the empty-stamp sentinel, and
// rewrites source->product relations with the same product-path rule.
// Library stamps are preserved verbatim.
func rebaseAnalysis(a *engine.Analysis, readOnlyClassesDir, newClassesDir string, fatalWarningSources map[string]bool) *engine.Analysis {
	if a == nil {
		return nil
	}

	out := &engine.Analysis{
		Stamps: engine.Stamps{
			Sources:   make(map[string]engine.Stamp, len(a.Stamps.Sources)),
			Products:  make(map[string]engine.Stamp, len(a.Stamps.Products)),
			Libraries: make(map[string]engine.Stamp, len(a.Stamps.Libraries)),
		},
		Relations: engine.Relations{
			SourceToProducts: make(map[string][]string, len(a.Relations.SourceToProducts)),
		},
	}

	for path, stamp := range a.Stamps.Products {
		out.Stamps.Products[rebasePath(path, readOnlyClassesDir, newClassesDir)] = stamp
	}

	for path, stamp := range a.Stamps.Sources {
		if fatalWarningSources[path] {
			out.Stamps.Sources[path] = engine.EmptyStamp
			continue
		}
		out.Stamps.Sources[path] = stamp
	}

	for path, stamp := range a.Stamps.Libraries {
		out.Stamps.Libraries[path] = stamp
	}

	for source, products := range a.Relations.SourceToProducts {
		rebased := make([]string, len(products))
		for i, p := range products {
			rebased[i] = rebasePath(p, readOnlyClassesDir, newClassesDir)
		}
		out.Relations.SourceToProducts[source] = rebased
	}

	return out
}

// rebasePath rewrites path from readOnlyClassesDir to newClassesDir if it is
// rooted there; otherwise it is returned unchanged.
func rebasePath(path, readOnlyClassesDir, newClassesDir string) string {
	if readOnlyClassesDir == "" || !hasPathPrefix(path, readOnlyClassesDir) {
		return path
	}
	rel, err := filepath.Rel(readOnlyClassesDir, path)
	if err != nil {
		return path
	}
	return filepath.Join(newClassesDir, rel)
}

// hasPathPrefix reports whether path is rooted at dir (not merely a string
// prefix match, so "/foo-bar" is not considered rooted at "/foo").
func hasPathPrefix(path, dir string) bool {
	if dir == "" {
		return false
	}
	if path == dir {
		return true
	}
	return strings.HasPrefix(path, dir+string(filepath.Separator))
}
