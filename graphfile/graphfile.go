/*
Package graphfile reads reduced state machine graphs from YAML descriptions.

Graph files stand in for a front-end which compiles regular languages to
state machines. They describe the reduced graph directly: states, their
transitions on keys and key ranges, actions, conditions, EOF handling and
NFA alternates.

    name: words
    alphabet:
      type: char
    start: start
    final: [word]
    actions:
      - name: skip
        kind: goto
        target: start
    conds:
      sp: [upper, long]
    states:
      - name: start
        trans:
          - on: "'a'..'z'"
            to: word
            do: [mark]
          - on: "'_'"
            when: sp
            outs:
              - {value: 1, to: word}
      - name: word
        trans:
          - {on: "'a'..'z'", to: word}
        default: {to: start, do: [emit]}
        eof: [emit]

Keys are given as key expressions, see package scanner. A target without
'to' leads into the error state. Actions which are not declared become
hooks without code.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2022 Norbert Pillmayer <norbert@pillmayer.com>

*/
package graphfile

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/npillmayer/gorgel"
	"github.com/npillmayer/gorgel/alphabet"
	"github.com/npillmayer/gorgel/redfsm"
	"github.com/npillmayer/gorgel/scanner"
	"github.com/npillmayer/schuko/tracing"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"
)

// tracer traces with key 'gorgel.graphfile'.
func tracer() tracing.Trace {
	return tracing.Select("gorgel.graphfile")
}

// ErrGraphFile is wrapped by all errors about graph descriptions.
var ErrGraphFile = errors.New("invalid graph file")

// File is the YAML document of a graph description.
type File struct {
	Name     string              `yaml:"name"`
	Alphabet Alphabet            `yaml:"alphabet"`
	Start    string              `yaml:"start"`
	Final    []string            `yaml:"final"`
	Error    bool                `yaml:"error"` // force an error state
	Actions  []Action            `yaml:"actions"`
	Conds    map[string][]string `yaml:"conds"` // condition spaces by name
	States   []State             `yaml:"states"`
}

// Alphabet selects the host type of keys and optionally narrows it.
type Alphabet struct {
	Type  string   `yaml:"type"`
	Range []string `yaml:"range"` // [low, high] key literals
}

// Action declares an action.
type Action struct {
	Name   string `yaml:"name"`
	Kind   string `yaml:"kind"` // hook (default), goto, next, call, ret, break, hold
	Code   string `yaml:"code"`
	Target string `yaml:"target"`
}

// Target is the destination of a transition.
type Target struct {
	To string   `yaml:"to"`
	Do []string `yaml:"do"`
}

func (t *Target) target() redfsm.Target {
	return redfsm.Target{To: t.To, Actions: t.Do}
}

// Out is one outcome of a guarded transition.
type Out struct {
	Value  uint64 `yaml:"value"`
	Target `yaml:",inline"`
}

// Trans is a transition on a key expression. Guarded transitions name a
// condition space in When and list their outcomes.
type Trans struct {
	On     string `yaml:"on"`
	When   string `yaml:"when"`
	Outs   []Out  `yaml:"outs"`
	Target `yaml:",inline"`
}

// Default is the transition for keys not covered otherwise.
type Default struct {
	When   string `yaml:"when"`
	Outs   []Out  `yaml:"outs"`
	Target `yaml:",inline"`
}

// EOFCond guards EOF actions.
type EOFCond struct {
	Space  string   `yaml:"space"`
	Values []uint64 `yaml:"values"`
}

// NFA is an alternate of a state.
type NFA struct {
	To   string   `yaml:"to"`
	Push []string `yaml:"push"`
	Pop  []string `yaml:"pop"`
}

// State describes a state with all its transitions.
type State struct {
	Name      string   `yaml:"name"`
	Trans     []Trans  `yaml:"trans"`
	Default   *Default `yaml:"default"`
	ToState   []string `yaml:"to_state"`
	FromState []string `yaml:"from_state"`
	EOF       []string `yaml:"eof"`
	EOFWhen   *EOFCond `yaml:"eof_when"`
	EOFTrans  *Target  `yaml:"eof_trans"`
	NFA       []NFA    `yaml:"nfa"`
}

// Load reads a graph file and builds the graph.
func Load(path string) (*redfsm.Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f.Build()
}

// Parse decodes a graph description. Unknown fields are rejected.
func Parse(data []byte) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrGraphFile)
	}
	return &f, nil
}

// Build creates the reduced graph. All problems found are reported together.
func (f *File) Build() (*redfsm.Graph, error) {
	ht, ok := alphabet.FindHostType(f.Alphabet.Type)
	if !ok {
		return nil, fmt.Errorf("unknown alphabet type %q: %w", f.Alphabet.Type, ErrGraphFile)
	}
	ko := alphabet.NewKeyOps(ht)
	var diag gorgel.Diagnostics
	if len(f.Alphabet.Range) > 0 {
		if len(f.Alphabet.Range) != 2 {
			diag.Report("alphabet range needs two keys, has %d", len(f.Alphabet.Range))
		} else {
			ko.SetRange(f.Alphabet.Range[0], f.Alphabet.Range[1], &diag)
		}
	}
	name := f.Name
	if name == "" {
		name = "fsm"
	}
	b := redfsm.NewBuilder(name, ko)
	for _, a := range f.Actions {
		kind := redfsm.Hook
		if a.Kind != "" {
			if kind, ok = redfsm.ParseActionKind(a.Kind); !ok {
				diag.Report("action %s: unknown kind %q", a.Name, a.Kind)
				continue
			}
		}
		b.DefineAction(a.Name, kind, a.Code, a.Target)
	}
	spaces := make(map[string]*redfsm.CondSpace, len(f.Conds))
	names := maps.Keys(f.Conds)
	slices.Sort(names)
	for _, n := range names {
		spaces[n] = b.CondSpace(f.Conds[n]...)
	}
	if f.Start == "" {
		diag.Report("no start state")
	} else {
		b.Start(f.Start)
	}
	for _, s := range f.States {
		b.State(s.Name)
	}
	b.Final(f.Final...)
	if f.Error {
		b.NeedError()
	}
	for i := range f.States {
		sb := stateBuilder{b: b, ko: ko, spaces: spaces, diag: &diag, s: &f.States[i]}
		sb.build()
	}
	if err := diag.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", err.Error(), ErrGraphFile)
	}
	g, err := b.Build()
	if err != nil {
		return nil, errors.Join(err, ErrGraphFile)
	}
	tracer().Infof("loaded graph %s with %d states", g.Name, len(g.States))
	g.Dump() // only visible in debug mode
	return g, nil
}

// stateBuilder feeds the transitions of one state to a builder.
type stateBuilder struct {
	b      *redfsm.Builder
	ko     *alphabet.KeyOps
	spaces map[string]*redfsm.CondSpace
	diag   *gorgel.Diagnostics
	s      *State
}

func (sb *stateBuilder) space(name string) *redfsm.CondSpace {
	cs, ok := sb.spaces[name]
	if !ok {
		sb.diag.Report("state %s: unknown condition space %q", sb.s.Name, name)
	}
	return cs
}

func outs(list []Out) []redfsm.CondOut {
	co := make([]redfsm.CondOut, len(list))
	for i := range list {
		co[i] = redfsm.When(gorgel.CondValue(list[i].Value), list[i].target())
	}
	return co
}

func (sb *stateBuilder) build() {
	b, s := sb.b, sb.s
	for _, t := range s.Trans {
		ranges, err := scanner.ParseKeyList(t.On, sb.ko)
		if err != nil {
			sb.diag.Report("state %s: %v", s.Name, err)
			continue
		}
		var space *redfsm.CondSpace
		if t.When != "" {
			if space = sb.space(t.When); space == nil {
				continue
			}
		}
		for _, r := range ranges {
			if space == nil {
				b.Range(s.Name, r.Lo, r.Hi, t.target())
			} else {
				b.CondRange(s.Name, r.Lo, r.Hi, space, outs(t.Outs)...)
			}
		}
	}
	if d := s.Default; d != nil {
		if d.When == "" {
			b.Default(s.Name, d.target())
		} else if space := sb.space(d.When); space != nil {
			b.CondDefault(s.Name, space, outs(d.Outs)...)
		}
	}
	if len(s.ToState) > 0 {
		b.ToStateActions(s.Name, s.ToState...)
	}
	if len(s.FromState) > 0 {
		b.FromStateActions(s.Name, s.FromState...)
	}
	if len(s.EOF) > 0 {
		b.EOFActions(s.Name, s.EOF...)
	}
	if w := s.EOFWhen; w != nil {
		if space := sb.space(w.Space); space != nil {
			values := make([]gorgel.CondValue, len(w.Values))
			for i, v := range w.Values {
				values[i] = gorgel.CondValue(v)
			}
			b.EOFCond(s.Name, space, values...)
		}
	}
	if s.EOFTrans != nil {
		b.EOFTrans(s.Name, s.EOFTrans.target())
	}
	for _, n := range s.NFA {
		b.NFA(s.Name, n.To, n.Push, n.Pop)
	}
}
