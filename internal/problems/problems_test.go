package problems

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeverity_String(t *testing.T) {
	assert.Equal(t, "info", SeverityInfo.String())
	assert.Equal(t, "warning", SeverityWarning.String())
	assert.Equal(t, "error", SeverityError.String())
	assert.Equal(t, "unknown", Severity(99).String())
}

func TestUnion_DedupesByIdentityPreservingOrder(t *testing.T) {
	shared := Problem{Phase: "typer", File: "Foo.scala", Line: 1, Message: "dup"}
	onlyA := Problem{Phase: "typer", File: "Foo.scala", Line: 2, Message: "a-only"}
	onlyB := Problem{Phase: "typer", File: "Bar.scala", Line: 3, Message: "b-only"}

	out := Union([]Problem{shared, onlyA}, []Problem{shared, onlyB})

	require.Len(t, out, 3)
	assert.Equal(t, shared, out[0])
	assert.Equal(t, onlyA, out[1])
	assert.Equal(t, onlyB, out[2])
}

func TestUnion_EmptyInputs(t *testing.T) {
	assert.Empty(t, Union(nil, nil))
}

func TestCollector_AllReturnsDefensiveCopy(t *testing.T) {
	c := NewCollector()
	c.Add(Problem{File: "Foo.scala", Message: "m1"})

	all := c.All()
	all[0].Message = "mutated"

	assert.Equal(t, "m1", c.All()[0].Message)
}

func TestCollector_FatalWarningSources(t *testing.T) {
	c := NewCollector()
	c.Add(Problem{File: "Foo.scala", Severity: SeverityWarning, FatalWarning: true})
	c.Add(Problem{File: "Bar.scala", Severity: SeverityWarning})

	sources := c.FatalWarningSources()
	assert.True(t, sources["Foo.scala"])
	assert.False(t, sources["Bar.scala"])
}

func TestCollector_HasErrors(t *testing.T) {
	c := NewCollector()
	assert.False(t, c.HasErrors())

	c.Add(Problem{Severity: SeverityWarning})
	assert.False(t, c.HasErrors())

	c.Add(Problem{Severity: SeverityError})
	assert.True(t, c.HasErrors())
}

func TestCollector_HasErrorsOnFatalWarning(t *testing.T) {
	c := NewCollector()
	c.Add(Problem{Severity: SeverityWarning, FatalWarning: true})
	assert.True(t, c.HasErrors())
}

func TestProblem_ErrorFormatsPosition(t *testing.T) {
	p := Problem{File: "Foo.scala", Line: 4, Column: 2, Severity: SeverityError, Message: "boom"}
	assert.Equal(t, "Foo.scala:4:2: error: boom", p.Error())
}
