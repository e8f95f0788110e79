/*
Package redfsm holds the reduced FSM graph: the minimized, deduplicated
automaton which encodings consume.

A reduced graph consists of states with dense numeric IDs, per-state sorted
single-key and range transitions, an optional default transition, state
actions (to-state, from-state, EOF), EOF transitions and, for NFA-capable
machines, lists of non-deterministic alternates.

Transitions may be guarded by a condition space, an ordered list of named
boolean predicates. A guarded transition fans out into condition pairs,
each selecting a target and an action list by the packed value of the
predicates.

State IDs are ordered: the error state (if any) is 0, non-final states
follow, final states come last. A single threshold test against FirstFinal
therefore decides acceptance.

Graphs are constructed with a Builder:

    b := redfsm.NewBuilder("G", alphabet.NewKeyOps(alphabet.MustFindHostType("char")))
    b.Start("s0")
    b.Final("s0")
    b.Single("s0", 'a', redfsm.To("s1"))
    b.Single("s1", 'b', redfsm.To("s0"))
    g, err := b.Build()

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2022 Norbert Pillmayer <norbert@pillmayer.com>

*/
package redfsm

import (
	"fmt"
	"strings"

	"github.com/npillmayer/gorgel"
	"github.com/npillmayer/gorgel/alphabet"
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'gorgel.redfsm'.
func tracer() tracing.Trace {
	return tracing.Select("gorgel.redfsm")
}

// ActionKind classifies actions. Besides plain hooks, actions may transfer
// control within the machine.
type ActionKind int

const (
	Hook  ActionKind = iota // host code or callback
	Goto                    // fgoto: jump to a state, skipping remaining actions
	Next                    // fnext: set the next state, continue with actions
	Call                    // fcall: push the current target, jump to a state
	Ret                     // fret: pop a state from the call stack
	Break                   // fbreak: consume the current key and leave the scan loop
	Hold                    // fhold: do not consume the current key
)

var actionKindNames = []string{"hook", "goto", "next", "call", "ret", "break", "hold"}

func (k ActionKind) String() string {
	if k < 0 || int(k) >= len(actionKindNames) {
		return fmt.Sprintf("ActionKind(%d)", int(k))
	}
	return actionKindNames[k]
}

// ParseActionKind finds an action kind by name.
func ParseActionKind(s string) (ActionKind, bool) {
	for i, n := range actionKindNames {
		if n == s {
			return ActionKind(i), true
		}
	}
	return Hook, false
}

// IsControl is a predicate: does the action kind need a control transfer
// primitive of the driver (call, return, break)?
func (k ActionKind) IsControl() bool {
	return k == Call || k == Ret || k == Break
}

// Action is a single named action.
type Action struct {
	ID     int // dense, 0…n-1
	Name   string
	Kind   ActionKind
	Code   string // host code, if any. Empty code is dispatched by name
	Target *State // for goto, next and call
}

func (a *Action) String() string {
	if a.Target != nil {
		return fmt.Sprintf("%s(%s→%d)", a.Name, a.Kind, a.Target.ID)
	}
	return fmt.Sprintf("%s(%s)", a.Name, a.Kind)
}

// ActionList is an ordered list of actions executed together.
type ActionList struct {
	ID       int
	Actions  []*Action
	Location gorgel.ActionID // offset into the 'actions' table, set by RemoveDups
}

func (al *ActionList) String() string {
	if al == nil {
		return "[]"
	}
	names := make([]string, len(al.Actions))
	for i, a := range al.Actions {
		names[i] = a.Name
	}
	return "[" + strings.Join(names, " ") + "]"
}

// Loc returns the location of an action list; nil lists are at location 0.
func (al *ActionList) Loc() gorgel.ActionID {
	if al == nil {
		return gorgel.NoAction
	}
	return al.Location
}

// CondSpace is an ordered list of predicate names. Predicate i contributes
// bit i to a condition value. Order matters: two spaces differing in
// evaluation order are different spaces.
type CondSpace struct {
	ID    int
	Conds []string
}

// Size returns the number of predicates.
func (cs *CondSpace) Size() int {
	return len(cs.Conds)
}

// Combinations returns the number of possible condition values, 2^k.
func (cs *CondSpace) Combinations() uint64 {
	return uint64(1) << uint(len(cs.Conds))
}

func (cs *CondSpace) String() string {
	return "<" + strings.Join(cs.Conds, ",") + ">"
}

// CondTarget is a target state with an action list, selected by a
// condition value.
type CondTarget struct {
	ID     int
	Targ   *State
	Action *ActionList // may be nil
}

// CondPair maps a condition value to a condition target.
type CondPair struct {
	Value gorgel.CondValue
	Cond  *CondTarget
}

// Trans is a transition. Without a condition space, Outs has exactly one pair
// with value 0. With a condition space, Outs is sorted by value, values are
// unique, and missing values route to the error state.
type Trans struct {
	ID    int
	Space *CondSpace // may be nil
	Outs  []CondPair
}

// Plain returns the single condition target of an unguarded transition.
func (t *Trans) Plain() *CondTarget {
	if t.Space != nil || len(t.Outs) != 1 {
		panic(fmt.Sprintf("redfsm.Trans.Plain() for guarded transition %d", t.ID))
	}
	return t.Outs[0].Cond
}

// Lookup finds the condition target for a condition value.
func (t *Trans) Lookup(v gorgel.CondValue) (*CondTarget, bool) {
	lo, hi := 0, len(t.Outs)-1
	for lo <= hi {
		mid := (lo + hi) >> 1
		switch {
		case v < t.Outs[mid].Value:
			hi = mid - 1
		case v > t.Outs[mid].Value:
			lo = mid + 1
		default:
			return t.Outs[mid].Cond, true
		}
	}
	return nil, false
}

// Single is a transition on exactly one key.
type Single struct {
	Key   alphabet.Key
	Trans *Trans
}

// Range is a transition on an inclusive key range.
type Range struct {
	Low, High alphabet.Key
	Trans     *Trans
}

// NFATarget is a non-deterministic alternate of a state.
type NFATarget struct {
	Targ    *State
	Push    *ActionList // executed when the alternate is pushed; may be nil
	PopTest *ActionList // executed when the alternate is popped; may be nil
}

// State is a state of the reduced graph.
type State struct {
	ID        gorgel.StateID
	Name      string
	Final     bool
	IsError   bool
	Singles   []Single // sorted by key
	Ranges    []Range  // sorted, disjoint
	Default   *Trans   // nil if singles and ranges cover the alphabet
	ToState   *ActionList
	FromState *ActionList
	EOF       *ActionList
	EOFTrans  *Trans
	// EOF actions run only if the EOF condition value is one of EOFCondKeys.
	EOFCondSpace *CondSpace
	EOFCondKeys  []gorgel.CondValue
	NFA          []NFATarget
}

func (s *State) String() string {
	return fmt.Sprintf("(state %d '%s')", s.ID, s.Name)
}

// Graph is a reduced FSM graph. It is read-only after building.
type Graph struct {
	Name        string
	Keys        *alphabet.KeyOps
	States      []*State // indexed by ID
	Start       *State
	Error       *State // may be nil
	FirstFinal  int
	Actions     []*Action
	ActionLists []*ActionList
	CondSpaces  []*CondSpace
	CondTargets []*CondTarget
	Trans       []*Trans
	errTrans    *Trans
	errCond     *CondTarget
}

// ErrorID returns the error state's ID, or gorgel.NoState.
func (g *Graph) ErrorID() gorgel.StateID {
	if g.Error == nil {
		return gorgel.NoState
	}
	return g.Error.ID
}

// ErrorTrans returns the transition into the error state, or nil.
func (g *Graph) ErrorTrans() *Trans {
	return g.errTrans
}

// ErrorCond returns the condition target into the error state, or nil.
func (g *Graph) ErrorCond() *CondTarget {
	return g.errCond
}

// HasNFA is a predicate: does any state have NFA alternates?
func (g *Graph) HasNFA() bool {
	for _, s := range g.States {
		if len(s.NFA) > 0 {
			return true
		}
	}
	return false
}

// HasEOF is a predicate: does any state have EOF activity?
func (g *Graph) HasEOF() bool {
	for _, s := range g.States {
		if s.EOF != nil || s.EOFTrans != nil || s.EOFCondSpace != nil {
			return true
		}
	}
	return false
}

// HasEOFConds is a predicate: are any EOF actions guarded by conditions?
func (g *Graph) HasEOFConds() bool {
	for _, s := range g.States {
		if s.EOFCondSpace != nil {
			return true
		}
	}
	return false
}

// UsesControl is a predicate: does any action call, return or break?
func (g *Graph) UsesControl() bool {
	for _, a := range g.Actions {
		if a.Kind.IsControl() {
			return true
		}
	}
	return false
}

// Locate finds the transition of state s for key k by searching singles,
// then ranges, then falling back to the default. It returns nil if nothing
// matches, which the builder prevents for every state. Locate is the
// reference semantics encodings have to reproduce.
func (g *Graph) Locate(s *State, k alphabet.Key) *Trans {
	ko := g.Keys
	lo, hi := 0, len(s.Singles)-1
	for lo <= hi {
		mid := (lo + hi) >> 1
		switch {
		case ko.Lt(k, s.Singles[mid].Key):
			hi = mid - 1
		case ko.Gt(k, s.Singles[mid].Key):
			lo = mid + 1
		default:
			return s.Singles[mid].Trans
		}
	}
	lo, hi = 0, len(s.Ranges)-1
	for lo <= hi {
		mid := (lo + hi) >> 1
		switch {
		case ko.Lt(k, s.Ranges[mid].Low):
			hi = mid - 1
		case ko.Gt(k, s.Ranges[mid].High):
			lo = mid + 1
		default:
			return s.Ranges[mid].Trans
		}
	}
	return s.Default
}

// FindState finds a state by name.
func (g *Graph) FindState(name string) *State {
	for _, s := range g.States {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// FindAction finds an action by name.
func (g *Graph) FindAction(name string) *Action {
	for _, a := range g.Actions {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// Dump is a debugging helper.
func (g *Graph) Dump() {
	tracer().Debugf("--- graph %s: %d states, first final %d ---", g.Name, len(g.States), g.FirstFinal)
	for _, s := range g.States {
		var b strings.Builder
		for _, sg := range s.Singles {
			fmt.Fprintf(&b, " %s→t%d", g.Keys.Format(sg.Key), sg.Trans.ID)
		}
		for _, r := range s.Ranges {
			fmt.Fprintf(&b, " %s..%s→t%d", g.Keys.Format(r.Low), g.Keys.Format(r.High), r.Trans.ID)
		}
		if s.Default != nil {
			fmt.Fprintf(&b, " default→t%d", s.Default.ID)
		}
		tracer().Debugf("%v%s", s, b.String())
	}
	tracer().Debugf("-------------------------")
}
