package compile

import (
	"context"
	"sync"

	"github.com/conneroisu/compileorch/internal/engine"
)

// classFileManager implements engine.ClassFileManager over one compile's
// requestContext (spec.md §4.7). It is created fresh per run and must not
// outlive the compile that owns it.
//
// Grounded on the teacher's BuildCache locking shape
// (internal/build/cache.go): a single mutex guarding a handful of maps and
// slices, no nested locking.
type classFileManager struct {
	mu  sync.Mutex
	ctx *requestContext
}

func newClassFileManager(ctx *requestContext) *classFileManager {
	return &classFileManager{ctx: ctx}
}

func (m *classFileManager) Generated(relativePath, absolutePath string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ctx.generated[relativePath] = absolutePath
}

func (m *classFileManager) InvalidatedReadOnlyFile(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ctx.denylist[path] = true
}

func (m *classFileManager) Invalidated(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ctx.invalidatedClasses = append(m.ctx.invalidatedClasses, path)
}

func (m *classFileManager) InvalidatedExtra(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ctx.invalidatedExtra = append(m.ctx.invalidatedExtra, path)
}

func (m *classFileManager) OnSuccessfulAnalysis(task func(ctx context.Context) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ctx.onSuccessfulAnalysis = append(m.ctx.onSuccessfulAnalysis, task)
}

func (m *classFileManager) OnFailedCompilation(task func(ctx context.Context) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ctx.onFailedCompilation = append(m.ctx.onFailedCompilation, task)
}

var _ engine.ClassFileManager = (*classFileManager)(nil)
