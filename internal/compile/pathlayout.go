package compile

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/conneroisu/compileorch/internal/engine"
)

// emptyClassesDirMarker is the load-bearing substring (spec.md §3, §4.1,
// invariant 6) the engine's classpath lookup uses to recognize a sentinel
// "no classes yet" path that is never created on disk.
const emptyClassesDirMarker = string(os.PathSeparator) + "classes-empty-"

// PathLayout computes and caches the directories used by one compile
// (spec.md §4.1). internalNewClassesDir and internalNewPicklesDir are lazy:
// they are created on first access and reused for the remainder of the run.
type PathLayout struct {
	ExternalClassesDir        string
	InternalReadOnlyClassesDir string
	Out                       string

	mu                sync.Mutex
	internalRoot      string
	newClassesDir     string
	newPicklesDir     string
}

// NewPathLayout returns a PathLayout for one project's compile. out is the
// build server's output root; externalClassesDir and
// internalReadOnlyClassesDir are supplied by the caller (project model,
// out of scope here per spec.md §1).
func NewPathLayout(out, externalClassesDir, internalReadOnlyClassesDir string) *PathLayout {
	return &PathLayout{
		Out:                        out,
		ExternalClassesDir:         externalClassesDir,
		InternalReadOnlyClassesDir: internalReadOnlyClassesDir,
	}
}

// createInternalClassesRootDir returns (creating if necessary) the root
// directory that parents every run's fresh classes directory:
// <out>/bloop-internal-classes.
func createInternalClassesRootDir(out string) (string, error) {
	root := filepath.Join(out, "bloop-internal-classes")
	if err := os.MkdirAll(root, 0o755); err != nil {
		return "", fmt.Errorf("create internal classes root: %w", err)
	}
	return root, nil
}

// externalName is the final path segment of externalClassesDir; it seeds
// the per-run directory name so orphan cleanup and cross-client
// attribution both key off of it (spec.md §4.1).
func externalName(externalClassesDir string) string {
	return filepath.Base(externalClassesDir)
}

// runSuffix returns a fresh, collision-resistant suffix distinguishing one
// compile run's directory from all others of the same project (spec.md §8
// invariant 1: directory disjointness). Built on crypto/rand directly
// rather than a UUID library — see DESIGN.md.
func runSuffix() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate run suffix: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// internalNewClassesDir returns the per-run writable classes directory,
// creating the internal root and the directory itself on first access.
func (l *PathLayout) internalNewClassesDir() (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.newClassesDir != "" {
		return l.newClassesDir, nil
	}

	root, err := createInternalClassesRootDir(l.Out)
	if err != nil {
		return "", err
	}
	l.internalRoot = root

	suffix, err := runSuffix()
	if err != nil {
		return "", err
	}
	name := externalName(l.ExternalClassesDir) + "-" + suffix
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create new classes dir: %w", err)
	}
	l.newClassesDir = dir
	return dir, nil
}

// internalNewPicklesDir returns the per-run pickles directory, derived from
// the new classes directory's name: "classes" is substituted with
// "pickles", or "pickles-" is prepended if "classes" does not appear
// (spec.md §4.1).
func (l *PathLayout) internalNewPicklesDir() (string, error) {
	classesDir, err := l.internalNewClassesDir()
	if err != nil {
		return "", err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.newPicklesDir != "" {
		return l.newPicklesDir, nil
	}

	dir, base := filepath.Split(classesDir)
	var picklesBase string
	if strings.Contains(base, "classes") {
		picklesBase = strings.Replace(base, "classes", "pickles", 1)
	} else {
		picklesBase = "pickles-" + base
	}
	picklesDir := filepath.Join(dir, picklesBase)
	if err := os.MkdirAll(picklesDir, 0o755); err != nil {
		return "", fmt.Errorf("create new pickles dir: %w", err)
	}
	l.newPicklesDir = picklesDir
	return l.newPicklesDir, nil
}

// deriveEmptyClassesDir returns the sentinel "no classes yet" path for
// project, derived from genericClassesDir's directory but never created on
// disk (spec.md §3, §4.1).
func deriveEmptyClassesDir(project, genericClassesDir string) string {
	dir := filepath.Dir(genericClassesDir)
	return filepath.Join(dir, "classes-empty-"+project)
}

// hasEmptyClassesDir reports whether p is (or contains) the empty-classes
// sentinel, recognized purely by substring match because project names may
// themselves contain path separators (spec.md §4.1, §8 invariant 6).
func hasEmptyClassesDir(p string) bool {
	return strings.Contains(p, emptyClassesDirMarker)
}

// classpathHashesFallback returns nil: the layout records no classpath
// hashes, and spec.md §1 treats classpath hashing as an external concern.
// The no-op path's refresh therefore stores an empty hash list.
func (l *PathLayout) classpathHashesFallback() []engine.ClasspathHash {
	return nil
}
