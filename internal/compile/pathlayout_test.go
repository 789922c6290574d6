package compile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathLayout_NewClassesDirIsDisjointFromReadOnly(t *testing.T) {
	out := t.TempDir()
	readOnly := filepath.Join(out, "classes")
	layout := NewPathLayout(out, readOnly, readOnly)

	newDir, err := layout.internalNewClassesDir()
	require.NoError(t, err)

	assert.NotEqual(t, readOnly, newDir)
	assert.True(t, strings.HasPrefix(newDir, filepath.Join(out, "bloop-internal-classes")))

	info, err := os.Stat(newDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestPathLayout_NewClassesDirIsMemoized(t *testing.T) {
	out := t.TempDir()
	layout := NewPathLayout(out, filepath.Join(out, "classes"), filepath.Join(out, "classes"))

	first, err := layout.internalNewClassesDir()
	require.NoError(t, err)
	second, err := layout.internalNewClassesDir()
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestPathLayout_PicklesDirSubstitutesClasses(t *testing.T) {
	out := t.TempDir()
	layout := NewPathLayout(out, filepath.Join(out, "classes"), filepath.Join(out, "classes"))

	classesDir, err := layout.internalNewClassesDir()
	require.NoError(t, err)
	picklesDir, err := layout.internalNewPicklesDir()
	require.NoError(t, err)

	assert.NotEqual(t, classesDir, picklesDir)
	assert.Contains(t, picklesDir, "pickles")
	assert.Equal(t, filepath.Dir(classesDir), filepath.Dir(picklesDir))
}

func TestPathLayout_EmptyClassesDirNeverCreatedOnDisk(t *testing.T) {
	empty := deriveEmptyClassesDir("my-project", "/out/bloop-internal-classes/my-project-classes/classes")

	assert.True(t, hasEmptyClassesDir(empty))
	_, err := os.Stat(empty)
	assert.True(t, os.IsNotExist(err))
}

func TestHasEmptyClassesDir_RequiresSeparatorPrefix(t *testing.T) {
	assert.False(t, hasEmptyClassesDir("/out/classesnotempty-foo"))
	assert.True(t, hasEmptyClassesDir("/out/classes-empty-my-project"))
}
