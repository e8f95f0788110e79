package gorgel

import (
	"errors"
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/assert"
)

func TestDiagnostics(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "gorgel")
	defer teardown()
	//
	var diag Diagnostics
	assert.NoError(t, diag.Err())
	diag.Report("state %s: unknown action %q", "start", "emit")
	diag.Report("no start state")
	assert.Equal(t, 2, diag.Count())
	assert.Equal(t, []string{`state start: unknown action "emit"`, "no start state"}, diag.Messages())
	err := diag.Err()
	assert.True(t, errors.Is(err, ErrDiagnostics))
	assert.Contains(t, err.Error(), "2 error(s)")
	var none *Diagnostics
	assert.Equal(t, 0, none.Count())
	assert.Nil(t, none.Messages())
}

func TestSpan(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "gorgel")
	defer teardown()
	//
	s := Span{3, 7}
	assert.Equal(t, uint64(3), s.From())
	assert.Equal(t, uint64(7), s.To())
	assert.Equal(t, uint64(4), s.Len())
	assert.False(t, s.IsNull())
	assert.True(t, Span{}.IsNull())
	assert.Equal(t, "(3…7)", s.String())
}

func TestCondValue(t *testing.T) {
	c := Bit(0) | Bit(2)
	assert.Equal(t, CondValue(5), c)
	assert.True(t, c.Has(2))
	assert.False(t, c.Has(1))
	assert.True(t, NoAction.IsNone())
	assert.False(t, ActionID(3).IsNone())
}
