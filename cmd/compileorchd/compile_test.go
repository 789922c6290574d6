package main

import (
	"testing"

	"github.com/conneroisu/compileorch/internal/compile"
	"github.com/conneroisu/compileorch/internal/problems"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixtureSources_IncludesAWarningOnlySource(t *testing.T) {
	sources := fixtureSources()
	require.Len(t, sources, 3)

	found := false
	for _, s := range sources {
		if s.Path == "Deprecated.scala" {
			found = true
			assert.Len(t, s.Problems, 1)
			assert.Equal(t, problems.SeverityWarning, s.Problems[0].Severity)
		}
	}
	assert.True(t, found, "expected Deprecated.scala fixture source")
}

func TestSourcePaths_PreservesOrder(t *testing.T) {
	sources := fixtureSources()
	paths := sourcePaths(sources)

	assert.Equal(t, []string{"Foo.scala", "Bar.scala", "Deprecated.scala"}, paths)
}

func TestRunCompile_ColdThenNoOp(t *testing.T) {
	compileProject = "demo"
	compileTwice = true
	compileWatchOrphans = false
	defer func() {
		compileProject = "demo"
		compileTwice = false
		compileWatchOrphans = false
	}()

	err := runCompile(nil, nil)
	assert := assert.New(t)
	assert.NoError(err)
}

func TestPrintResult_DoesNotPanicOnEmptyResult(t *testing.T) {
	printResult("test", &compile.Result{Kind: compile.ResultEmpty})
}
