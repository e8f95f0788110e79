package encode

import (
	"github.com/npillmayer/gorgel/alphabet"
	"github.com/npillmayer/gorgel/redfsm"
)

// switchEncoder emits no key tables. The key lookup of every state is kept
// as a SwitchState, from which code generators produce switch statements and
// comparison trees.
type switchEncoder struct{}

func (switchEncoder) Kind() Kind { return Switch }

func (switchEncoder) Slots(e *Emitter) []*redfsm.Trans {
	return e.G.Trans
}

// SwitchCase maps a single key to a slot.
type SwitchCase struct {
	Key   alphabet.Key
	Trans int
}

// RangeNode is a node of a bisection tree over the ranges of a state.
//
// A key below Low continues with Lower, a key above High with Higher. If the
// respective subtree is missing, the key misses. Comparisons a key cannot
// fail are elided: CheckLow is false if Low is the smallest key which can
// reach the node, CheckHigh is false if High is the largest. At the root these
// are the bounds of the alphabet; each descent narrows them to the keys
// between the ranges of the parents.
type RangeNode struct {
	Low, High alphabet.Key
	Trans     int
	Lower     *RangeNode
	Higher    *RangeNode
	CheckLow  bool
	CheckHigh bool
}

// SwitchState is the key lookup of a single state.
type SwitchState struct {
	State   int
	Singles []SwitchCase
	Ranges  *RangeNode
	Default int // -1 if singles and ranges cover the alphabet
}

func (se switchEncoder) KeyColumns(e *Emitter) error {
	g := e.G
	e.Enc.Switch = make([]SwitchState, len(g.States))
	for i, s := range g.States {
		ss := SwitchState{State: int(s.ID), Default: -1}
		for _, sg := range s.Singles {
			ss.Singles = append(ss.Singles, SwitchCase{Key: sg.Key, Trans: e.SlotOf(sg.Trans)})
		}
		ss.Ranges = bisect(e, s.Ranges, 0, len(s.Ranges)-1, g.Keys.MinKey(), g.Keys.MaxKey())
		if s.Default != nil {
			ss.Default = e.SlotOf(s.Default)
		}
		e.Enc.Switch[i] = ss
	}
	return nil
}

// bisect builds a balanced tree over ranges[lo..hi]. Keys reaching the tree
// lie within [lower, upper].
func bisect(e *Emitter, ranges []redfsm.Range, lo, hi int, lower, upper alphabet.Key) *RangeNode {
	if lo > hi {
		return nil
	}
	ko := e.G.Keys
	mid := (lo + hi) >> 1
	n := &RangeNode{
		Low:   ranges[mid].Low,
		High:  ranges[mid].High,
		Trans: e.SlotOf(ranges[mid].Trans),
	}
	if lo < mid {
		n.Lower = bisect(e, ranges, lo, mid-1, lower, ko.Pred(n.Low))
	}
	if mid < hi {
		n.Higher = bisect(e, ranges, mid+1, hi, ko.Succ(n.High), upper)
	}
	n.CheckLow = n.Lower == nil && !ko.Eq(n.Low, lower)
	n.CheckHigh = n.Higher == nil && !ko.Eq(n.High, upper)
	return n
}

// Eval walks the tree as generated code does. It returns the slot of the
// matching range, or false for a miss.
func (n *RangeNode) Eval(ko *alphabet.KeyOps, k alphabet.Key) (int, bool) {
	for n != nil {
		switch {
		case n.Lower != nil && ko.Lt(k, n.Low):
			n = n.Lower
		case n.Higher != nil && ko.Gt(k, n.High):
			n = n.Higher
		case n.CheckLow && ko.Lt(k, n.Low):
			return 0, false
		case n.CheckHigh && ko.Gt(k, n.High):
			return 0, false
		default:
			return n.Trans, true
		}
	}
	return 0, false
}

// Depth returns the height of the tree.
func (n *RangeNode) Depth() int {
	if n == nil {
		return 0
	}
	l, h := n.Lower.Depth(), n.Higher.Depth()
	if l > h {
		return l + 1
	}
	return h + 1
}

// Lookup finds the slot for a key in a state: singles first, then ranges,
// then the default. It returns false if nothing matches.
func (ss *SwitchState) Lookup(ko *alphabet.KeyOps, k alphabet.Key) (int, bool) {
	for _, c := range ss.Singles {
		if c.Key == k {
			return c.Trans, true
		}
	}
	if slot, ok := ss.Ranges.Eval(ko, k); ok {
		return slot, true
	}
	if ss.Default >= 0 {
		return ss.Default, true
	}
	return 0, false
}
