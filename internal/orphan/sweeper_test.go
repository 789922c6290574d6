package orphan

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/conneroisu/compileorch/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() logging.Logger {
	return logging.New(&logging.Config{Output: io.Discard, Level: logging.LevelError, Format: "text"})
}

func TestNew_RejectsMissingRoot(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "does-not-exist"), time.Hour, testLogger())
	assert.Error(t, err)
}

func TestSweep_ReportsOnlyDirectoriesPastTTL(t *testing.T) {
	root := t.TempDir()

	fresh := filepath.Join(root, "demo-aaaa")
	stale := filepath.Join(root, "demo-bbbb")
	require.NoError(t, os.Mkdir(fresh, 0o755))
	require.NoError(t, os.Mkdir(stale, 0o755))

	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))

	sweeper, err := New(root, 24*time.Hour, testLogger())
	require.NoError(t, err)
	defer sweeper.Stop()

	candidates, err := sweeper.Sweep()
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, stale, candidates[0].Path)
}

func TestSweep_IgnoresPlainFiles(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "stray.txt"), []byte("x"), 0o644))

	sweeper, err := New(root, 0, testLogger())
	require.NoError(t, err)
	defer sweeper.Stop()

	candidates, err := sweeper.Sweep()
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestSweep_ZeroTTLReportsEveryDirectory(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "demo-cccc"), 0o755))

	sweeper, err := New(root, 0, testLogger())
	require.NoError(t, err)
	defer sweeper.Stop()

	candidates, err := sweeper.Sweep()
	require.NoError(t, err)
	require.Len(t, candidates, 1)
}

func TestSweep_MissingRootReturnsNoCandidatesNoError(t *testing.T) {
	root := t.TempDir()
	sweeper, err := New(root, time.Hour, testLogger())
	require.NoError(t, err)
	defer sweeper.Stop()

	require.NoError(t, os.RemoveAll(root))

	candidates, err := sweeper.Sweep()
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestStop_IsIdempotent(t *testing.T) {
	root := t.TempDir()
	sweeper, err := New(root, time.Hour, testLogger())
	require.NoError(t, err)

	require.NoError(t, sweeper.Stop())
	require.NoError(t, sweeper.Stop())
}
