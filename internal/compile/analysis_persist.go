package compile

import (
	"context"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"github.com/conneroisu/compileorch/internal/engine"
)

// AnalysisPersister writes an analysis to its on-disk representation.
// spec.md §1 treats the analysis file's encoding as an external concern
// ("does not choose the encoding of the analysis file"); this interface is
// the seam through which a real implementation plugs in. GobAnalysisPersister
// below is a working stand-in for tests and the demo CLI.
type AnalysisPersister interface {
	Persist(ctx context.Context, path string, analysis *engine.Analysis) error
	Exists(path string) bool
}

// GobAnalysisPersister persists analyses with encoding/gob, a reasonable
// default where no real analysis format is wired in.
type GobAnalysisPersister struct{}

func (GobAnalysisPersister) Persist(ctx context.Context, path string, analysis *engine.Analysis) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir for analysis file: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create analysis file: %w", err)
	}
	defer f.Close()
	if err := gob.NewEncoder(f).Encode(analysis); err != nil {
		return fmt.Errorf("encode analysis: %w", err)
	}
	return nil
}

func (GobAnalysisPersister) Exists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

var _ AnalysisPersister = GobAnalysisPersister{}
