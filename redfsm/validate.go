package redfsm

import (
	"fmt"
	"io"
)

// Validate checks the invariants encodings rely on:
//
// ■ singles are strictly ascending, ranges are ascending and disjoint,
//
// ■ no single lies within a range,
//
// ■ every state has a transition for every key of the alphabet,
//
// ■ condition values are ascending and unique, and fit their space,
//
// ■ final states have IDs ≥ FirstFinal, all others below,
//
// ■ from-state actions do not hold back the key they run before,
//
// ■ EOF transitions do not form a cycle.
func (g *Graph) Validate() error {
	ko := g.Keys
	for _, s := range g.States {
		if s.Final != (int(s.ID) >= g.FirstFinal) {
			return fmt.Errorf("%v violates final state ordering (first final %d): %w", s, g.FirstFinal,
				ErrMalformed)
		}
		for i := 1; i < len(s.Singles); i++ {
			if !ko.Lt(s.Singles[i-1].Key, s.Singles[i].Key) {
				return fmt.Errorf("%v: singles not ascending at %d: %w", s, i, ErrOverlap)
			}
		}
		for i, r := range s.Ranges {
			if ko.Gt(r.Low, r.High) {
				return fmt.Errorf("%v: inverted range at %d: %w", s, i, ErrMalformed)
			}
			if i > 0 && !ko.Lt(s.Ranges[i-1].High, r.Low) {
				return fmt.Errorf("%v: ranges overlap at %d: %w", s, i, ErrOverlap)
			}
		}
		for _, sg := range s.Singles {
			for _, r := range s.Ranges {
				if ko.Ge(sg.Key, r.Low) && ko.Le(sg.Key, r.High) {
					return fmt.Errorf("%v: single %s within range: %w", s, ko.Format(sg.Key), ErrOverlap)
				}
			}
		}
		if s.Default == nil && coveredKeys(g, s) != ko.Span(ko.MinKey(), ko.MaxKey()) {
			return fmt.Errorf("%v: keys uncovered and no default transition: %w", s, ErrMalformed)
		}
		if a := s.FromState.find(Hold); a != nil {
			return fmt.Errorf("%v: from-state action %s holds back the key: %w", s, a.Name, ErrMalformed)
		}
	}
	if s := g.eofCycle(); s != nil {
		return fmt.Errorf("%v: EOF transitions loop back to it: %w", s, ErrMalformed)
	}
	for _, t := range g.Trans {
		if t.Space == nil {
			if len(t.Outs) != 1 || t.Outs[0].Value != 0 {
				return fmt.Errorf("unguarded transition %d with %d outcomes: %w", t.ID, len(t.Outs), ErrMalformed)
			}
			continue
		}
		for i, p := range t.Outs {
			if uint64(p.Value) >= t.Space.Combinations() {
				return fmt.Errorf("transition %d: value %d outside %v: %w", t.ID, p.Value, t.Space, ErrMalformed)
			}
			if i > 0 && t.Outs[i-1].Value >= p.Value {
				return fmt.Errorf("transition %d: condition values not ascending: %w", t.ID, ErrMalformed)
			}
		}
	}
	return nil
}

// find returns the first action of a kind in l, or nil.
func (l *ActionList) find(kind ActionKind) *Action {
	if l == nil {
		return nil
	}
	for _, a := range l.Actions {
		if a.Kind == kind {
			return a
		}
	}
	return nil
}

// eofCycle returns a state on a cycle of EOF transitions, or nil. Each EOF
// transition is taken at the end of input and resumes there in its target,
// so a cycle would never terminate. Targets of goto, next and call actions
// count as targets of the transition.
func (g *Graph) eofCycle() *State {
	const (
		unseen = iota
		active
		done
	)
	mark := make([]int8, len(g.States))
	var visit func(s *State) *State
	visit = func(s *State) *State {
		switch mark[s.ID] {
		case active:
			return s
		case done:
			return nil
		}
		mark[s.ID] = active
		if s.EOFTrans != nil {
			for _, o := range s.EOFTrans.Outs {
				for _, t := range eofTargets(o.Cond) {
					if c := visit(t); c != nil {
						return c
					}
				}
			}
		}
		mark[s.ID] = done
		return nil
	}
	for _, s := range g.States {
		if c := visit(s); c != nil {
			return c
		}
	}
	return nil
}

func eofTargets(ct *CondTarget) []*State {
	targets := []*State{ct.Targ}
	if ct.Action != nil {
		for _, a := range ct.Action.Actions {
			if a.Target != nil {
				targets = append(targets, a.Target)
			}
		}
	}
	return targets
}

// coveredKeys counts the keys claimed by singles and ranges of a state.
func coveredKeys(g *Graph, s *State) uint64 {
	n := uint64(len(s.Singles))
	for _, r := range s.Ranges {
		n += g.Keys.Span(r.Low, r.High)
	}
	return n
}

// Dot writes the graph in Graphviz DOT format.
func (g *Graph) Dot(w io.Writer) error {
	ko := g.Keys
	p := func(format string, args ...interface{}) error {
		_, err := fmt.Fprintf(w, format, args...)
		return err
	}
	if err := p("digraph %q {\n  rankdir=LR;\n  node [shape=circle];\n", g.Name); err != nil {
		return err
	}
	edge := func(from *State, label string, t *Trans) error {
		for _, o := range t.Outs {
			l := label
			if t.Space != nil {
				l = fmt.Sprintf("%s %v=%d", label, t.Space, o.Value)
			}
			if o.Cond.Action != nil {
				l += " / " + o.Cond.Action.String()
			}
			if err := p("  s%d -> s%d [label=%q];\n", from.ID, o.Cond.Targ.ID, l); err != nil {
				return err
			}
		}
		return nil
	}
	for _, s := range g.States {
		shape := "circle"
		if s.Final {
			shape = "doublecircle"
		}
		if err := p("  s%d [label=%q shape=%s];\n", s.ID, s.Name, shape); err != nil {
			return err
		}
		if s.IsError {
			continue
		}
		for _, sg := range s.Singles {
			if err := edge(s, ko.Format(sg.Key), sg.Trans); err != nil {
				return err
			}
		}
		for _, r := range s.Ranges {
			if err := edge(s, ko.Format(r.Low)+".."+ko.Format(r.High), r.Trans); err != nil {
				return err
			}
		}
		if s.Default != nil && s.Default != g.errTrans {
			if err := edge(s, "default", s.Default); err != nil {
				return err
			}
		}
		for _, n := range s.NFA {
			if err := p("  s%d -> s%d [style=dashed label=\"nfa\"];\n", s.ID, n.Targ.ID); err != nil {
				return err
			}
		}
	}
	return p("  start [shape=point];\n  start -> s%d;\n}\n", g.Start.ID)
}
