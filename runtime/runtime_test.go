package runtime

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/npillmayer/gorgel/alphabet"
	"github.com/npillmayer/gorgel/encode"
	"github.com/npillmayer/gorgel/redfsm"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func charKeys() *alphabet.KeyOps {
	return alphabet.NewKeyOps(alphabet.MustFindHostType("char"))
}

func input(s string) []alphabet.Key {
	keys := make([]alphabet.Key, len(s))
	for i := 0; i < len(s); i++ {
		keys[i] = alphabet.Key(s[i])
	}
	return keys
}

func encodings() []encode.Options {
	flat := encode.DefaultOptions(encode.Flat)
	classes := encode.DefaultOptions(encode.Flat)
	classes.ClassMap = true
	binOn := encode.DefaultOptions(encode.Bin)
	binOn.Indices = encode.IndicesOn
	binOff := encode.DefaultOptions(encode.Bin)
	binOff.Indices = encode.IndicesOff
	return []encode.Options{flat, classes, binOn, binOff, encode.DefaultOptions(encode.Switch)}
}

type variant struct {
	name string
	m    *Machine
}

// variants creates a machine for every encoding and every driver variant
// able to run the graph.
func variants(t *testing.T, g *redfsm.Graph, opts ...Option) []variant {
	var vs []variant
	for _, eo := range encodings() {
		enc, err := encode.Encode(g, eo)
		require.NoError(t, err)
		for _, kind := range []DriverKind{Goto, Break, Var} {
			if kind == Var && enc.UsesControl {
				continue
			}
			m, err := New(enc, kind, append(opts, WithTrace(true))...)
			require.NoError(t, err)
			name := fmt.Sprintf("%s/indices=%v/classes=%v/%s", enc.Kind, enc.UseIndices, enc.ClassMap, kind)
			vs = append(vs, variant{name: name, m: m})
		}
	}
	return vs
}

// state0 --a--> state1 --b--> state0, state0 start and final
func abGraph(t *testing.T) *redfsm.Graph {
	b := redfsm.NewBuilder("ab", charKeys())
	b.Start("state0")
	b.Final("state0")
	b.Single("state0", 'a', redfsm.To("state1"))
	b.Single("state1", 'b', redfsm.To("state0"))
	g, err := b.Build()
	require.NoError(t, err)
	return g
}

func TestTwoStateScenario(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "gorgel.runtime")
	defer teardown()
	//
	g := abGraph(t)
	for _, v := range variants(t, g) {
		m := v.m
		res, err := m.Exec(input("ab"), true)
		require.NoError(t, err, v.name)
		assert.True(t, res.Accepted, v.name)
		assert.Equal(t, 2, res.P, v.name)
		//
		m.Init()
		res, err = m.Exec(input("ba"), true)
		require.NoError(t, err, v.name)
		assert.False(t, res.Accepted, v.name)
		assert.True(t, m.InError(), v.name)
		assert.Equal(t, 0, res.P, "error on first key: "+v.name)
		//
		m.Init()
		res, err = m.Exec(input("a"), true)
		require.NoError(t, err, v.name)
		assert.False(t, res.Accepted, v.name)
		assert.Equal(t, int(g.FindState("state1").ID), m.CS(), v.name)
		//
		m.Init()
		res, err = m.Exec(input("a"), false)
		require.NoError(t, err, v.name)
		assert.True(t, res.Suspended, v.name)
		assert.False(t, res.Accepted, v.name)
		res, err = m.Exec(input("b"), true)
		require.NoError(t, err, v.name)
		assert.True(t, res.Accepted, v.name)
	}
}

func TestConditionScenario(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "gorgel.runtime")
	defer teardown()
	//
	b := redfsm.NewBuilder("conds", charKeys())
	b.Start("s0")
	b.Final("s1", "s2")
	space := b.CondSpace("p0", "p1")
	b.CondSingle("s0", 'c', space,
		redfsm.When(1, redfsm.To("s1", "one")),
		redfsm.When(3, redfsm.To("s2", "three")))
	g, err := b.Build()
	require.NoError(t, err)
	var fired []string
	bind := NewBindings("test", nil).
		BindCond("p0", func(*Machine) bool { return true }).
		BindCond("p1", func(*Machine) bool { return false }).
		BindAction("one", func(*Machine) { fired = append(fired, "one") }).
		BindAction("three", func(*Machine) { fired = append(fired, "three") })
	for _, v := range variants(t, g, WithBindings(bind)) {
		fired = fired[:0]
		res, err := v.m.Exec(input("c"), true)
		require.NoError(t, err, v.name)
		assert.True(t, res.Accepted, v.name)
		assert.Equal(t, int(g.FindState("s1").ID), res.CS, v.name)
		assert.Equal(t, []string{"one"}, fired, v.name)
	}
	// p1 true as well selects value 3; p0 false alone selects 2, which is a miss
	bind.BindCond("p1", func(*Machine) bool { return true })
	for _, v := range variants(t, g, WithBindings(bind)) {
		res, err := v.m.Exec(input("c"), true)
		require.NoError(t, err, v.name)
		assert.Equal(t, int(g.FindState("s2").ID), res.CS, v.name)
	}
	bind.BindCond("p0", func(*Machine) bool { return false })
	for _, v := range variants(t, g, WithBindings(bind)) {
		res, err := v.m.Exec(input("c"), true)
		require.NoError(t, err, v.name)
		assert.True(t, v.m.InError(), v.name)
		assert.False(t, res.Accepted, v.name)
	}
}

func TestUnboundCondition(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "gorgel.runtime")
	defer teardown()
	//
	b := redfsm.NewBuilder("conds", charKeys())
	b.Start("s0")
	space := b.CondSpace("p0")
	b.CondSingle("s0", 'c', space, redfsm.When(1, redfsm.To("s0")))
	g, err := b.Build()
	require.NoError(t, err)
	enc, err := encode.Encode(g, encode.DefaultOptions(encode.Bin))
	require.NoError(t, err)
	_, err = New(enc, Goto)
	assert.True(t, errors.Is(err, ErrUnboundCond))
}

// eqGraph exercises hooks, state actions, fgoto, fnext, fhold, conditions
// and EOF activity.
func eqGraph(t *testing.T) *redfsm.Graph {
	b := redfsm.NewBuilder("eq", charKeys())
	b.DefineAction("skip", redfsm.Goto, "", "s2")
	b.DefineAction("nx", redfsm.Next, "", "s1")
	b.DefineAction("hold", redfsm.Hold, "", "")
	b.Start("s0")
	b.Final("s2")
	b.Range("s0", 'a', 'z', redfsm.To("s1", "h1"))
	b.Range("s0", '0', '9', redfsm.To("s2", "h2"))
	b.Single("s0", ' ', redfsm.To("s0"))
	b.Single("s0", '#', redfsm.To("s0", "skip"))
	b.Single("s0", '!', redfsm.To("s0", "nx", "h3"))
	b.Range("s1", 'a', 'z', redfsm.To("s1"))
	b.Single("s1", '.', redfsm.To("s2", "hold"))
	b.Default("s1", redfsm.To("s0", "h3"))
	b.Single("s2", '.', redfsm.To("s2", "h2"))
	b.Range("s2", '0', '9', redfsm.To("s2"))
	space := b.CondSpace("even", "quest")
	b.CondSingle("s2", '?', space,
		redfsm.When(2, redfsm.To("s1", "h1")),
		redfsm.When(3, redfsm.To("s0")))
	b.ToStateActions("s1", "h3")
	b.FromStateActions("s2", "h1")
	b.EOFActions("s2", "h2")
	b.EOFTrans("s1", redfsm.To("s2", "h1"))
	g, err := b.Build()
	require.NoError(t, err)
	return g
}

func eqBindings(counts map[string]int) *Bindings {
	hook := func(name string) func(*Machine) {
		return func(*Machine) { counts[name]++ }
	}
	return NewBindings("eq", nil).
		BindAction("h1", hook("h1")).
		BindAction("h2", hook("h2")).
		BindAction("h3", hook("h3")).
		BindCond("even", func(m *Machine) bool { return m.Pos()%2 == 0 }).
		BindCond("quest", func(m *Machine) bool { return m.Key() == '?' })
}

func TestVariantEquivalence(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "gorgel.runtime")
	defer teardown()
	//
	g := eqGraph(t)
	counts := make(map[string]int)
	vs := variants(t, g, WithBindings(eqBindings(counts)))
	for _, in := range []string{"ab.", "a1", "#..", "!x", "9?z", "9.?", "a b", "zz.?.", "", "x!", "abc", "12.34"} {
		var want []Event
		var wantRes Result
		var wantCounts map[string]int
		for i, v := range vs {
			for k := range counts {
				delete(counts, k)
			}
			v.m.Init()
			res, err := v.m.Exec(input(in), true)
			require.NoError(t, err, v.name)
			got := append([]Event(nil), v.m.Trace()...)
			if i == 0 {
				want, wantRes = got, res
				wantCounts = make(map[string]int)
				for k, n := range counts {
					wantCounts[k] = n
				}
				require.NotEmpty(t, want, "input %q", in)
				continue
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("input %q: %s differs from %s: %s", in, v.name, vs[0].name, diff)
			}
			assert.Equal(t, wantRes, res, "input %q: %s", in, v.name)
			assert.Equal(t, wantCounts, counts, "input %q: %s", in, v.name)
		}
	}
}

// eofGraph: s0 reads 'a' to s1. At EOF, s1 moves on to s2, running tok and,
// if held, hold. s2 reads 'a' to s3 and runs fin at EOF. Without hold, an NFA
// alternate of s2 leads to s4.
func eofGraph(t *testing.T, held bool) *redfsm.Graph {
	b := redfsm.NewBuilder("eof", charKeys())
	b.DefineAction("hold", redfsm.Hold, "", "")
	b.Start("s0")
	b.Final("s2", "s3", "s4")
	b.Single("s0", 'a', redfsm.To("s1"))
	if held {
		b.EOFTrans("s1", redfsm.To("s2", "tok", "hold"))
	} else {
		b.EOFTrans("s1", redfsm.To("s2", "tok"))
	}
	b.EOFActions("s2", "fin")
	b.Single("s2", 'a', redfsm.To("s3", "seen"))
	if !held {
		b.NFA("s2", "s4", []string{"alt"}, nil)
	}
	g, err := b.Build()
	require.NoError(t, err)
	return g
}

func TestEOFTransitionResumes(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "gorgel.runtime")
	defer teardown()
	//
	var fired []string
	hook := func(name string) func(*Machine) {
		return func(*Machine) { fired = append(fired, name) }
	}
	bind := NewBindings("eof", nil).
		BindAction("tok", hook("tok")).
		BindAction("seen", hook("seen")).
		BindAction("fin", hook("fin")).
		BindAction("alt", hook("alt"))
	g := eofGraph(t, true)
	for _, v := range variants(t, g, WithBindings(bind)) {
		fired = fired[:0]
		res, err := v.m.Exec(input("a"), true)
		require.NoError(t, err, v.name)
		assert.Equal(t, []string{"tok", "seen"}, fired, "held key is scanned again in s2: %s", v.name)
		assert.Equal(t, int(g.FindState("s3").ID), res.CS, v.name)
		assert.Equal(t, 1, res.P, v.name)
		assert.True(t, res.Accepted, v.name)
		// a hold at the start of an empty chunk stays at the end of input
		v.m.Init()
		_, err = v.m.Exec(input("a"), false)
		require.NoError(t, err, v.name)
		fired = fired[:0]
		res, err = v.m.Exec(nil, true)
		require.NoError(t, err, v.name)
		assert.Equal(t, []string{"tok", "fin"}, fired, v.name)
		assert.Equal(t, int(g.FindState("s2").ID), res.CS, v.name)
		assert.Equal(t, 0, res.P, v.name)
		assert.True(t, res.Accepted, v.name)
	}
	g = eofGraph(t, false)
	for _, v := range variants(t, g, WithBindings(bind)) {
		fired = fired[:0]
		res, err := v.m.Exec(input("a"), true)
		require.NoError(t, err, v.name)
		assert.Equal(t, []string{"tok", "alt", "fin"}, fired, "EOF activity of s2: %s", v.name)
		assert.Equal(t, int(g.FindState("s4").ID), res.CS, "alternate popped last: %s", v.name)
		assert.Equal(t, 1, res.P, v.name)
		assert.True(t, res.Accepted, v.name)
		assert.Equal(t, countEvents(v.m.Trace(), PushEvent), countEvents(v.m.Trace(), PopEvent), v.name)
	}
}

func TestChunkedInput(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "gorgel.runtime")
	defer teardown()
	//
	g := eqGraph(t)
	counts := make(map[string]int)
	enc, err := encode.Encode(g, encode.DefaultOptions(encode.Bin))
	require.NoError(t, err)
	whole, err := New(enc, Goto, WithBindings(eqBindings(counts)), WithTrace(true))
	require.NoError(t, err)
	_, err = whole.Exec(input("ab.9?x"), true)
	require.NoError(t, err)
	chunked, err := New(enc, Break, WithBindings(eqBindings(counts)), WithTrace(true))
	require.NoError(t, err)
	for _, chunk := range []string{"ab", ".9", "", "?x"} {
		res, err := chunked.Exec(input(chunk), false)
		require.NoError(t, err)
		assert.True(t, res.Suspended)
	}
	res, err := chunked.Exec(nil, true)
	require.NoError(t, err)
	assert.False(t, res.Suspended)
	if diff := cmp.Diff(whole.Trace(), chunked.Trace()); diff != "" {
		t.Errorf("chunked scan differs: %s", diff)
	}
	assert.Equal(t, whole.Accepted(), chunked.Accepted())
}

func TestKeyRange(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "gorgel.runtime")
	defer teardown()
	//
	g := abGraph(t)
	enc, err := encode.Encode(g, encode.DefaultOptions(encode.Switch))
	require.NoError(t, err)
	m, err := New(enc, Goto)
	require.NoError(t, err)
	_, err = m.Exec([]alphabet.Key{'a', 300}, true)
	assert.True(t, errors.Is(err, ErrKeyRange))
}

// ctlGraph uses fcall, fret and fbreak.
func ctlGraph(t *testing.T) *redfsm.Graph {
	b := redfsm.NewBuilder("ctl", charKeys())
	b.DefineAction("sub", redfsm.Call, "", "s1")
	b.DefineAction("back", redfsm.Ret, "", "")
	b.DefineAction("stop", redfsm.Break, "", "")
	b.Start("s0")
	b.Final("s0")
	b.Single("s0", 'c', redfsm.To("s0", "sub"))
	b.Single("s0", 'q', redfsm.To("s0", "stop"))
	b.Single("s0", 'u', redfsm.To("s0", "back"))
	b.Single("s1", 'x', redfsm.To("s1"))
	b.Single("s1", 'c', redfsm.To("s1", "sub"))
	b.Single("s1", 'r', redfsm.To("s1", "back"))
	g, err := b.Build()
	require.NoError(t, err)
	return g
}

func TestCallAndReturn(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "gorgel.runtime")
	defer teardown()
	//
	g := ctlGraph(t)
	for _, v := range variants(t, g) {
		m := v.m
		assert.NotEqual(t, Var, m.Driver())
		res, err := m.Exec(input("cxcxrr"), true)
		require.NoError(t, err, v.name)
		assert.True(t, res.Accepted, v.name)
		assert.Equal(t, 0, m.StackDepth(), v.name)
		//
		m.Init()
		_, err = m.Exec(input("u"), true)
		assert.True(t, errors.Is(err, ErrStackUnderflow), v.name)
	}
	enc, err := encode.Encode(g, encode.DefaultOptions(encode.Flat))
	require.NoError(t, err)
	m, err := New(enc, Goto, WithStackDepth(1))
	require.NoError(t, err)
	_, err = m.Exec(input("cc"), true)
	assert.True(t, errors.Is(err, ErrStackOverflow))
}

func TestBreak(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "gorgel.runtime")
	defer teardown()
	//
	g := ctlGraph(t)
	for _, v := range variants(t, g) {
		m := v.m
		data := input("qq")
		res, err := m.Exec(data, true)
		require.NoError(t, err, v.name)
		assert.True(t, res.Broke, v.name)
		assert.Equal(t, 1, res.P, v.name)
		data = data[res.P:]
		res, err = m.Exec(data, true)
		require.NoError(t, err, v.name)
		assert.True(t, res.Broke, v.name)
		assert.Equal(t, int64(2), m.Pos(), v.name)
		res, err = m.Exec(nil, true)
		require.NoError(t, err, v.name)
		assert.True(t, res.Accepted, v.name)
	}
}

func TestVarRefusesControlPrimitives(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "gorgel.runtime")
	defer teardown()
	//
	enc, err := encode.Encode(ctlGraph(t), encode.DefaultOptions(encode.Bin))
	require.NoError(t, err)
	_, err = New(enc, Var)
	assert.True(t, errors.Is(err, ErrControlPrimitive))
	_, err = New(enc, Break)
	assert.NoError(t, err)
}

// nfaGraph: s0 reads 'a' to s1, or alternatively continues in t0, which reads
// 'b' to t1. s1 and t1 are final.
func nfaGraph(t *testing.T) *redfsm.Graph {
	b := redfsm.NewBuilder("nfa", charKeys())
	b.Start("s0")
	b.Final("s1", "t1")
	b.Single("s0", 'a', redfsm.To("s1"))
	b.Single("t0", 'b', redfsm.To("t1"))
	b.NFA("s0", "t0", []string{"pushed"}, []string{"popped"})
	g, err := b.Build()
	require.NoError(t, err)
	return g
}

func countEvents(events []Event, kind EventKind) int {
	n := 0
	for _, e := range events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func TestNFAAlternates(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "gorgel.runtime")
	defer teardown()
	//
	g := nfaGraph(t)
	veto := false
	var pops int
	bind := NewBindings("nfa", nil).
		BindAction("popped", func(m *Machine) {
			pops++
			if veto {
				m.Reject()
			}
		})
	for _, v := range variants(t, g, WithBindings(bind)) {
		m := v.m
		for _, in := range []string{"a", "b", "c", ""} {
			m.Init()
			pops = 0
			veto = false
			res, err := m.Exec(input(in), true)
			require.NoError(t, err, v.name)
			assert.Equal(t, in == "a" || in == "b", res.Accepted, "%s: %q", v.name, in)
			assert.Equal(t, 0, m.NFADepth(), "%s: %q", v.name, in)
			assert.Equal(t, countEvents(m.Trace(), PushEvent), countEvents(m.Trace(), PopEvent),
				"%s: %q: pushes and pops balance", v.name, in)
			assert.Equal(t, 1, pops, v.name)
		}
		m.Init()
		veto = true
		res, err := m.Exec(input("b"), true)
		require.NoError(t, err, v.name)
		assert.False(t, res.Accepted, "vetoed alternate: %s", v.name)
	}
}

func TestNFAOverflow(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "gorgel.runtime")
	defer teardown()
	//
	b := redfsm.NewBuilder("loop", charKeys())
	b.Start("s")
	b.Final("s")
	b.Single("s", 'a', redfsm.To("s"))
	b.NFA("s", "s", nil, nil)
	g, err := b.Build()
	require.NoError(t, err)
	enc, err := encode.Encode(g, encode.DefaultOptions(encode.Flat))
	require.NoError(t, err)
	m, err := New(enc, Goto, WithNFADepth(2))
	require.NoError(t, err)
	_, err = m.Exec(input("aaa"), true)
	assert.True(t, errors.Is(err, ErrNFAOverflow))
	assert.Equal(t, 2, m.NFADepth())
}

func TestBindingsUpsearch(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "gorgel.runtime")
	defer teardown()
	//
	parent := NewBindings("parent", nil).BindAction("emit", func(*Machine) {})
	child := NewBindings("child", parent).BindCond("emit", func(*Machine) bool { return true })
	assert.NotNil(t, child.Action("emit"), "actions are found in parent bindings")
	assert.NotNil(t, child.Cond("emit"))
	assert.Nil(t, parent.Cond("emit"))
	bd, where := child.Lookup("emit", ActionBinding)
	require.NotNil(t, bd)
	assert.Same(t, parent, where)
	assert.Equal(t, "<action emit>", bd.String())
	assert.Equal(t, 1, child.Len())
	child.BindAction("emit", func(*Machine) {})
	assert.Equal(t, 2, child.Len(), "actions and conditions are separate name spaces")
}

func TestFrameStack(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "gorgel.runtime")
	defer teardown()
	//
	st := FrameStack{Name: "test", Limit: 2}
	assert.True(t, st.IsEmpty())
	assert.True(t, st.Push(Frame{State: 1}))
	assert.True(t, st.Current().IsRoot())
	assert.True(t, st.Push(Frame{State: 2}))
	assert.False(t, st.Push(Frame{State: 3}), "limit reached")
	f, ok := st.Pop()
	assert.True(t, ok)
	assert.Equal(t, 2, f.State)
	assert.Equal(t, 2, st.MaxDepth())
	st.Reset()
	_, ok = st.Pop()
	assert.False(t, ok)
}
