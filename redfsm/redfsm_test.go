package redfsm

import (
	"bytes"
	"errors"
	"testing"

	"github.com/npillmayer/gorgel"
	"github.com/npillmayer/gorgel/alphabet"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func charKeys() *alphabet.KeyOps {
	return alphabet.NewKeyOps(alphabet.MustFindHostType("char"))
}

// state0 --a--> state1 --b--> state0, state0 final
func abGraph(t *testing.T) *Graph {
	b := NewBuilder("ab", charKeys())
	b.Start("state0")
	b.Final("state0")
	b.Single("state0", 'a', To("state1"))
	b.Single("state1", 'b', To("state0"))
	g, err := b.Build()
	require.NoError(t, err)
	return g
}

func TestStateOrdering(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "gorgel.redfsm")
	defer teardown()
	//
	g := abGraph(t)
	g.Dump()
	if g.Error == nil || g.Error.ID != 0 {
		t.Fatalf("Expected error state with ID 0")
	}
	s1 := g.FindState("state1")
	s0 := g.FindState("state0")
	assert.Equal(t, gorgel.StateID(1), s1.ID)
	assert.Equal(t, gorgel.StateID(2), s0.ID)
	assert.Equal(t, 2, g.FirstFinal)
	assert.Equal(t, s0, g.Start)
	for _, s := range g.States {
		if s.Final != (int(s.ID) >= g.FirstFinal) {
			t.Errorf("State %v violates final ordering", s)
		}
	}
	assert.Equal(t, g.ErrorTrans(), s0.Default, "gaps route to the error state")
}

func TestNoErrorStateForCompleteCoverage(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "gorgel.redfsm")
	defer teardown()
	//
	ko := alphabet.NewKeyOps(alphabet.MustFindHostType("byte"))
	b := NewBuilder("full", ko)
	b.Start("s")
	b.Final("s")
	b.Range("s", 0, 'a'-1, To("s"))
	b.Single("s", 'a', To("s", "count"))
	b.Range("s", 'a'+1, 255, To("s"))
	g, err := b.Build()
	require.NoError(t, err)
	assert.Nil(t, g.Error)
	assert.Equal(t, gorgel.NoState, g.ErrorID())
	assert.Nil(t, g.States[0].Default)
}

func TestOverlapIsRejected(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "gorgel.redfsm")
	defer teardown()
	//
	b := NewBuilder("overlap", charKeys())
	b.Start("s")
	b.Range("s", 'a', 'z', To("s"))
	b.Single("s", 'q', To("s"))
	b.Range("s", '0', 'a', To("s"))
	_, err := b.Build()
	if !errors.Is(err, ErrOverlap) {
		t.Errorf("Expected overlap error, got %v", err)
	}
}

func TestDisjointnessByEnumeration(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "gorgel.redfsm")
	defer teardown()
	//
	b := NewBuilder("mixed", charKeys())
	b.Start("s0")
	b.Final("s2")
	b.Range("s0", '0', '9', To("s1"))
	b.Single("s0", 'x', To("s2"))
	b.Range("s0", 'a', 'f', To("s1"))
	b.Single("s0", 'g', To("s2"))
	b.Range("s1", -128, 127, To("s2"))
	b.Default("s2", To("s0"))
	g, err := b.Build()
	require.NoError(t, err)
	ko := g.Keys
	for _, s := range g.States {
		for k := ko.MinKey(); ; k = ko.Succ(k) {
			claims := 0
			for _, sg := range s.Singles {
				if sg.Key == k {
					claims++
				}
			}
			for _, r := range s.Ranges {
				if ko.Ge(k, r.Low) && ko.Le(k, r.High) {
					claims++
				}
			}
			if claims > 1 {
				t.Errorf("Key %d claimed %d times in %v", k, claims, s)
			}
			if claims == 0 && s.Default == nil {
				t.Errorf("Key %d unclaimed in %v without default", k, s)
			}
			if tr := g.Locate(s, k); tr == nil {
				t.Errorf("Locate(%v, %d) found nothing", s, k)
			}
			if ko.IsMax(k) {
				break
			}
		}
	}
}

func TestConditionSpaceValidation(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "gorgel.redfsm")
	defer teardown()
	//
	b := NewBuilder("conds", charKeys())
	b.Start("s0")
	space := b.CondSpace("p0", "p1")
	b.CondSingle("s0", 'c', space, When(4, To("s0")))
	_, err := b.Build()
	assert.True(t, errors.Is(err, ErrMalformed), "value 4 does not fit 2 predicates")
	//
	b = NewBuilder("conds", charKeys())
	b.Start("s0")
	space = b.CondSpace("p0", "p1")
	b.CondSingle("s0", 'c', space, When(3, To("s1", "x")), When(1, To("s0")))
	g, err := b.Build()
	require.NoError(t, err)
	tr := g.Locate(g.FindState("s0"), 'c')
	require.NotNil(t, tr)
	assert.Equal(t, gorgel.CondValue(1), tr.Outs[0].Value, "outcomes sorted by value")
	_, found := tr.Lookup(2)
	assert.False(t, found)
	assert.NotNil(t, g.Error, "incomplete condition space requires an error state")
}

func TestRemoveDups(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "gorgel.redfsm")
	defer teardown()
	//
	b := NewBuilder("dups", charKeys())
	b.Hook("inc1", "n++")
	b.Hook("inc2", "n++")
	b.Hook("named", "")
	b.Start("s0")
	b.Single("s0", 'a', To("s0", "inc1"))
	b.Single("s0", 'b', To("s0", "inc2"))
	b.Single("s0", 'c', To("s0", "named"))
	g, err := b.Build()
	require.NoError(t, err)
	s0 := g.FindState("s0")
	ta, tb, tc := g.Locate(s0, 'a'), g.Locate(s0, 'b'), g.Locate(s0, 'c')
	assert.Same(t, ta, tb, "transitions with identical action code are merged")
	assert.NotSame(t, ta, tc)
	assert.Len(t, g.ActionLists, 2)
	assert.Equal(t, gorgel.ActionID(1), g.ActionLists[0].Location)
	assert.Equal(t, gorgel.ActionID(3), g.ActionLists[1].Location)
	g.RemoveDups() // idempotent
	assert.Len(t, g.ActionLists, 2)
	assert.Equal(t, gorgel.ActionID(3), g.ActionLists[1].Location)
}

func TestControlActionsNeedTargets(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "gorgel.redfsm")
	defer teardown()
	//
	b := NewBuilder("ctl", charKeys())
	b.DefineAction("jump", Goto, "", "")
	b.Start("s0")
	_, err := b.Build()
	assert.True(t, errors.Is(err, ErrMalformed))
	//
	b = NewBuilder("ctl", charKeys())
	b.DefineAction("sub", Call, "", "s1")
	b.DefineAction("back", Ret, "", "")
	b.Start("s0")
	b.Single("s0", 'x', To("s0", "sub"))
	b.Single("s1", 'y', To("s1", "back"))
	g, err := b.Build()
	require.NoError(t, err)
	assert.True(t, g.UsesControl())
	assert.Equal(t, g.FindState("s1"), g.FindAction("sub").Target)
}

func TestDotExport(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "gorgel.redfsm")
	defer teardown()
	//
	g := abGraph(t)
	var buf bytes.Buffer
	require.NoError(t, g.Dot(&buf))
	assert.Contains(t, buf.String(), "s2 -> s1")
	assert.Contains(t, buf.String(), "doublecircle")
}

func TestHoldInFromStateActions(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "gorgel.redfsm")
	defer teardown()
	//
	b := NewBuilder("from", charKeys())
	b.DefineAction("hold", Hold, "", "")
	b.Start("s0")
	b.Single("s0", 'a', To("s0"))
	b.FromStateActions("s0", "mark", "hold")
	_, err := b.Build()
	assert.True(t, errors.Is(err, ErrMalformed), "hold before the first key of a chunk")
	//
	b = NewBuilder("from", charKeys())
	b.DefineAction("hold", Hold, "", "")
	b.Start("s0")
	b.Single("s0", 'a', To("s0", "hold"))
	b.FromStateActions("s0", "mark")
	_, err = b.Build()
	assert.NoError(t, err, "hold in transition actions")
}

func TestEOFTransitionCycles(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "gorgel.redfsm")
	defer teardown()
	//
	b := NewBuilder("eof", charKeys())
	b.Start("s0")
	b.Final("s2")
	b.EOFTrans("s0", To("s1"))
	b.EOFTrans("s1", To("s2"))
	_, err := b.Build()
	require.NoError(t, err, "chain of EOF transitions")
	//
	b = NewBuilder("eof", charKeys())
	b.Start("s0")
	b.EOFTrans("s0", To("s1", "tok"))
	b.EOFTrans("s1", To("s0"))
	_, err = b.Build()
	assert.True(t, errors.Is(err, ErrMalformed), "EOF transitions s0 → s1 → s0")
	//
	b = NewBuilder("eof", charKeys())
	b.DefineAction("back", Goto, "", "s0")
	b.Start("s0")
	b.EOFTrans("s0", To("s1", "back"))
	_, err = b.Build()
	assert.True(t, errors.Is(err, ErrMalformed), "goto back to s0 at EOF")
}
