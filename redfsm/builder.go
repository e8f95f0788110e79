package redfsm

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/emirpasic/gods/sets/treeset"
	"github.com/emirpasic/gods/utils"
	"github.com/npillmayer/gorgel"
	"github.com/npillmayer/gorgel/alphabet"
)

// ErrOverlap is returned for transitions claiming keys already claimed by
// another transition of the same state.
var ErrOverlap = errors.New("overlapping transitions")

// ErrMalformed is returned for graph descriptions violating a precondition.
var ErrMalformed = errors.New("malformed graph")

// Target describes where a transition leads and which actions it executes.
// An empty To denotes the error state.
type Target struct {
	To      string
	Actions []string
}

// To is a shortcut to create a target.
func To(state string, actions ...string) Target {
	return Target{To: state, Actions: actions}
}

// ToError creates a target into the error state.
func ToError(actions ...string) Target {
	return Target{Actions: actions}
}

// CondOut is one outcome of a guarded transition.
type CondOut struct {
	Value  gorgel.CondValue
	Target Target
}

// When is a shortcut to create a condition outcome.
func When(v gorgel.CondValue, t Target) CondOut {
	return CondOut{Value: v, Target: t}
}

type transDraft struct {
	lo, hi alphabet.Key
	space  *CondSpace
	outs   []CondOut
}

type nfaDraft struct {
	to      string
	push    []string
	popTest []string
}

type stateDraft struct {
	name      string
	final     bool
	cover     *treemap.Map // lo key → *transDraft
	deflt     *transDraft
	toState   []string
	fromState []string
	eof       []string
	eofTrans  *transDraft
	eofSpace  *CondSpace
	eofKeys   *treeset.Set
	nfa       []nfaDraft
	state     *State
}

type actionDraft struct {
	action *Action
	target string
}

// Builder constructs reduced graphs. Errors are collected and reported by
// Build.
type Builder struct {
	name      string
	keys      *alphabet.KeyOps
	states    []*stateDraft
	byName    map[string]*stateDraft
	actions   []*actionDraft
	actByName map[string]*actionDraft
	spaces    []*CondSpace
	spaceKeys map[string]*CondSpace
	start     string
	needError bool
	errs      []error
}

// NewBuilder creates a builder for a graph over an alphabet.
func NewBuilder(name string, keys *alphabet.KeyOps) *Builder {
	return &Builder{
		name:      name,
		keys:      keys,
		byName:    make(map[string]*stateDraft),
		actByName: make(map[string]*actionDraft),
		spaceKeys: make(map[string]*CondSpace),
	}
}

func (b *Builder) errorf(format string, args ...interface{}) {
	err := fmt.Errorf(format, args...)
	tracer().Errorf(err.Error())
	b.errs = append(b.errs, err)
}

// State declares a state, if not already present. States are numbered in
// order of declaration (within the classes of non-final and final states).
func (b *Builder) State(name string) {
	b.draft(name)
}

func (b *Builder) draft(name string) *stateDraft {
	if d, ok := b.byName[name]; ok {
		return d
	}
	d := &stateDraft{
		name:    name,
		cover:   treemap.NewWith(b.keys.Comparator()),
		eofKeys: treeset.NewWith(utils.UInt64Comparator),
	}
	b.states = append(b.states, d)
	b.byName[name] = d
	return d
}

// Start sets the start state.
func (b *Builder) Start(name string) {
	b.draft(name)
	b.start = name
}

// Final marks states as final.
func (b *Builder) Final(names ...string) {
	for _, n := range names {
		b.draft(n).final = true
	}
}

// NeedError requests an error state even if no transition leads to it.
func (b *Builder) NeedError() {
	b.needError = true
}

// Hook defines a plain action. Code may be empty, in which case the action
// is dispatched to the host by name. Actions referenced by targets but never
// defined become hooks without code.
func (b *Builder) Hook(name, code string) {
	b.DefineAction(name, Hook, code, "")
}

// DefineAction defines an action. target names the destination state for
// goto, next and call actions.
func (b *Builder) DefineAction(name string, kind ActionKind, code, target string) {
	if _, ok := b.actByName[name]; ok {
		b.errorf("action %q redefined: %w", name, ErrMalformed)
		return
	}
	needsTarget := kind == Goto || kind == Next || kind == Call
	if needsTarget != (target != "") {
		b.errorf("action %q of kind %s with target %q: %w", name, kind, target, ErrMalformed)
		return
	}
	ad := &actionDraft{
		action: &Action{Name: name, Kind: kind, Code: code},
		target: target,
	}
	b.actions = append(b.actions, ad)
	b.actByName[name] = ad
}

func (b *Builder) action(name string) *actionDraft {
	if ad, ok := b.actByName[name]; ok {
		return ad
	}
	b.Hook(name, "")
	return b.actByName[name]
}

// CondSpace interns an ordered list of predicate names.
func (b *Builder) CondSpace(conds ...string) *CondSpace {
	key := strings.Join(conds, "\x00")
	if cs, ok := b.spaceKeys[key]; ok {
		return cs
	}
	if len(conds) == 0 || len(conds) > 32 {
		b.errorf("condition space with %d predicates: %w", len(conds), ErrMalformed)
	}
	cs := &CondSpace{ID: len(b.spaces), Conds: append([]string(nil), conds...)}
	b.spaces = append(b.spaces, cs)
	b.spaceKeys[key] = cs
	return cs
}

// Single adds a transition on one key.
func (b *Builder) Single(from string, key alphabet.Key, t Target) {
	b.CondRange(from, key, key, nil, When(0, t))
}

// Range adds a transition on an inclusive key range.
func (b *Builder) Range(from string, lo, hi alphabet.Key, t Target) {
	b.CondRange(from, lo, hi, nil, When(0, t))
}

// CondSingle adds a guarded transition on one key.
func (b *Builder) CondSingle(from string, key alphabet.Key, space *CondSpace, outs ...CondOut) {
	b.CondRange(from, key, key, space, outs...)
}

// CondRange adds a guarded transition on an inclusive key range. Without a
// condition space, outs must consist of one outcome with value 0. Condition
// values not listed in outs route to the error state.
func (b *Builder) CondRange(from string, lo, hi alphabet.Key, space *CondSpace, outs ...CondOut) {
	d := b.draft(from)
	ko := b.keys
	if ko.Gt(lo, hi) || !ko.Contains(lo) || !ko.Contains(hi) {
		b.errorf("state %s: key range [%s,%s] invalid for alphabet: %w", from, ko.Format(lo),
			ko.Format(hi), ErrMalformed)
		return
	}
	td := b.transDraft(from, space, outs)
	if td == nil {
		return
	}
	td.lo, td.hi = lo, hi
	if k, v := d.cover.Floor(lo); k != nil {
		if prev := v.(*transDraft); ko.Ge(prev.hi, lo) {
			b.errorf("state %s: [%s,%s] overlaps [%s,%s]: %w", from, ko.Format(lo), ko.Format(hi),
				ko.Format(prev.lo), ko.Format(prev.hi), ErrOverlap)
			return
		}
	}
	if k, v := d.cover.Ceiling(lo); k != nil {
		if next := v.(*transDraft); ko.Le(next.lo, hi) {
			b.errorf("state %s: [%s,%s] overlaps [%s,%s]: %w", from, ko.Format(lo), ko.Format(hi),
				ko.Format(next.lo), ko.Format(next.hi), ErrOverlap)
			return
		}
	}
	d.cover.Put(lo, td)
}

func (b *Builder) transDraft(from string, space *CondSpace, outs []CondOut) *transDraft {
	if space == nil {
		if len(outs) != 1 || outs[0].Value != 0 {
			b.errorf("state %s: unguarded transition needs exactly one outcome: %w", from, ErrMalformed)
			return nil
		}
	} else {
		seen := treeset.NewWith(utils.UInt64Comparator)
		for _, o := range outs {
			if uint64(o.Value) >= space.Combinations() {
				b.errorf("state %s: condition value %d outside space %v: %w", from, o.Value, space,
					ErrMalformed)
				return nil
			}
			if seen.Contains(uint64(o.Value)) {
				b.errorf("state %s: duplicate condition value %d: %w", from, o.Value, ErrMalformed)
				return nil
			}
			seen.Add(uint64(o.Value))
		}
	}
	for _, o := range outs {
		if o.Target.To != "" {
			b.draft(o.Target.To)
		}
		for _, a := range o.Target.Actions {
			b.action(a)
		}
	}
	return &transDraft{space: space, outs: outs}
}

// Default sets the default transition of a state.
func (b *Builder) Default(from string, t Target) {
	b.CondDefault(from, nil, When(0, t))
}

// CondDefault sets a guarded default transition of a state.
func (b *Builder) CondDefault(from string, space *CondSpace, outs ...CondOut) {
	d := b.draft(from)
	if d.deflt != nil {
		b.errorf("state %s: default transition redefined: %w", from, ErrMalformed)
		return
	}
	d.deflt = b.transDraft(from, space, outs)
}

// ToStateActions sets the actions executed whenever a transition enters the state.
func (b *Builder) ToStateActions(state string, names ...string) {
	b.draft(state).toState = b.actionNames(names)
}

// FromStateActions sets the actions executed before a key is processed in the state.
func (b *Builder) FromStateActions(state string, names ...string) {
	b.draft(state).fromState = b.actionNames(names)
}

// EOFActions sets the actions executed if input ends in the state.
func (b *Builder) EOFActions(state string, names ...string) {
	b.draft(state).eof = b.actionNames(names)
}

func (b *Builder) actionNames(names []string) []string {
	for _, n := range names {
		b.action(n)
	}
	return names
}

// EOFTrans sets a transition taken if input ends in the state.
func (b *Builder) EOFTrans(state string, t Target) {
	d := b.draft(state)
	d.eofTrans = b.transDraft(state, nil, []CondOut{When(0, t)})
}

// EOFCond guards the EOF actions of a state: they run only if the condition
// value of space at EOF is one of values.
func (b *Builder) EOFCond(state string, space *CondSpace, values ...gorgel.CondValue) {
	d := b.draft(state)
	d.eofSpace = space
	for _, v := range values {
		if uint64(v) >= space.Combinations() {
			b.errorf("state %s: EOF condition value %d outside space %v: %w", state, v, space, ErrMalformed)
			continue
		}
		d.eofKeys.Add(uint64(v))
	}
}

// NFA adds a non-deterministic alternate to a state.
func (b *Builder) NFA(state, to string, push, popTest []string) {
	d := b.draft(state)
	b.draft(to)
	d.nfa = append(d.nfa, nfaDraft{to: to, push: b.actionNames(push), popTest: b.actionNames(popTest)})
}

// --- Building --------------------------------------------------------------

type interner struct {
	g      *Graph
	lists  map[string]*ActionList
	conds  map[string]*CondTarget
	trans  map[string]*Trans
	states map[string]*State
	acts   map[string]*Action
}

// Build creates the reduced graph. It returns all errors collected during
// construction, joined.
func (b *Builder) Build() (*Graph, error) {
	if b.start == "" {
		b.errorf("no start state: %w", ErrMalformed)
	}
	if len(b.errs) > 0 {
		return nil, errors.Join(b.errs...)
	}
	g := &Graph{Name: b.name, Keys: b.keys}
	if b.needsErrorState() {
		g.Error = &State{Name: "error", IsError: true}
		g.States = append(g.States, g.Error)
	}
	for _, d := range b.states {
		if !d.final {
			d.state = &State{Name: d.name}
			g.States = append(g.States, d.state)
		}
	}
	g.FirstFinal = len(g.States)
	for _, d := range b.states {
		if d.final {
			d.state = &State{Name: d.name, Final: true}
			g.States = append(g.States, d.state)
		}
	}
	for i, s := range g.States {
		s.ID = gorgel.StateID(i)
	}
	g.Start = b.byName[b.start].state
	in := &interner{
		g:      g,
		lists:  make(map[string]*ActionList),
		conds:  make(map[string]*CondTarget),
		trans:  make(map[string]*Trans),
		states: make(map[string]*State),
		acts:   make(map[string]*Action),
	}
	for _, d := range b.states {
		in.states[d.name] = d.state
	}
	for i, ad := range b.actions {
		a := ad.action
		a.ID = i
		if ad.target != "" {
			if a.Target = in.states[ad.target]; a.Target == nil {
				b.errorf("action %q targets unknown state %q: %w", a.Name, ad.target, ErrMalformed)
			}
		}
		g.Actions = append(g.Actions, a)
		in.acts[a.Name] = a
	}
	g.CondSpaces = b.spaces
	if g.Error != nil {
		g.errCond = in.condTarget(g.Error, nil)
		g.errTrans = in.internTrans(nil, []CondPair{{Value: 0, Cond: g.errCond}})
		g.Error.Default = g.errTrans
	}
	for _, d := range b.states {
		s := d.state
		it := d.cover.Iterator()
		for it.Next() {
			td := it.Value().(*transDraft)
			t := in.transOf(td)
			if td.lo == td.hi {
				s.Singles = append(s.Singles, Single{Key: td.lo, Trans: t})
			} else {
				s.Ranges = append(s.Ranges, Range{Low: td.lo, High: td.hi, Trans: t})
			}
		}
		if d.deflt != nil {
			s.Default = in.transOf(d.deflt)
		} else if b.hasGap(d) {
			s.Default = g.errTrans
		}
		s.ToState = in.list(d.toState)
		s.FromState = in.list(d.fromState)
		s.EOF = in.list(d.eof)
		if d.eofTrans != nil {
			s.EOFTrans = in.transOf(d.eofTrans)
		}
		if d.eofSpace != nil {
			s.EOFCondSpace = d.eofSpace
			for _, v := range d.eofKeys.Values() {
				s.EOFCondKeys = append(s.EOFCondKeys, gorgel.CondValue(v.(uint64)))
			}
		}
		for _, n := range d.nfa {
			s.NFA = append(s.NFA, NFATarget{
				Targ:    in.states[n.to],
				Push:    in.list(n.push),
				PopTest: in.list(n.popTest),
			})
		}
	}
	if len(b.errs) > 0 {
		return nil, errors.Join(b.errs...)
	}
	g.RemoveDups()
	if err := g.Validate(); err != nil {
		return nil, err
	}
	tracer().Infof("built graph %s: %d states, %d transitions, %d action lists", g.Name,
		len(g.States), len(g.Trans), len(g.ActionLists))
	return g, nil
}

// hasGap is a predicate: do the transitions of a state leave keys uncovered?
func (b *Builder) hasGap(d *stateDraft) bool {
	ko := b.keys
	expect, full := ko.MinKey(), false
	it := d.cover.Iterator()
	for it.Next() {
		td := it.Value().(*transDraft)
		if td.lo != expect {
			return true
		}
		if ko.IsMax(td.hi) {
			full = true
			break
		}
		expect = ko.Succ(td.hi)
	}
	return !full
}

func (b *Builder) needsErrorState() bool {
	if b.needError {
		return true
	}
	needs := func(td *transDraft) bool {
		if td == nil {
			return false
		}
		if td.space != nil && uint64(len(td.outs)) < td.space.Combinations() {
			return true
		}
		for _, o := range td.outs {
			if o.Target.To == "" {
				return true
			}
		}
		return false
	}
	for _, d := range b.states {
		if d.deflt == nil && b.hasGap(d) {
			return true
		}
		if needs(d.deflt) || needs(d.eofTrans) {
			return true
		}
		for _, v := range d.cover.Values() {
			if needs(v.(*transDraft)) {
				return true
			}
		}
	}
	return false
}

func (in *interner) list(names []string) *ActionList {
	if len(names) == 0 {
		return nil
	}
	ids := make([]string, len(names))
	for i, n := range names {
		ids[i] = strconv.Itoa(in.acts[n].ID)
	}
	key := strings.Join(ids, ",")
	if al, ok := in.lists[key]; ok {
		return al
	}
	al := &ActionList{ID: len(in.g.ActionLists)}
	for _, n := range names {
		al.Actions = append(al.Actions, in.acts[n])
	}
	in.g.ActionLists = append(in.g.ActionLists, al)
	in.lists[key] = al
	return al
}

func (in *interner) condTarget(targ *State, al *ActionList) *CondTarget {
	alID := -1
	if al != nil {
		alID = al.ID
	}
	key := fmt.Sprintf("%d/%d", targ.ID, alID)
	if ct, ok := in.conds[key]; ok {
		return ct
	}
	ct := &CondTarget{ID: len(in.g.CondTargets), Targ: targ, Action: al}
	in.g.CondTargets = append(in.g.CondTargets, ct)
	in.conds[key] = ct
	return ct
}

func (in *interner) transOf(td *transDraft) *Trans {
	var pairs []CondPair
	for _, o := range td.outs {
		targ := in.g.Error
		if o.Target.To != "" {
			targ = in.states[o.Target.To]
		}
		pairs = append(pairs, CondPair{Value: o.Value, Cond: in.condTarget(targ, in.list(o.Target.Actions))})
	}
	for i := 1; i < len(pairs); i++ { // insertion sort by value, lists are tiny
		for j := i; j > 0 && pairs[j].Value < pairs[j-1].Value; j-- {
			pairs[j], pairs[j-1] = pairs[j-1], pairs[j]
		}
	}
	return in.internTrans(td.space, pairs)
}

func (in *interner) internTrans(space *CondSpace, pairs []CondPair) *Trans {
	var b strings.Builder
	if space != nil {
		fmt.Fprintf(&b, "s%d:", space.ID)
	}
	for _, p := range pairs {
		fmt.Fprintf(&b, "%d=%d,", p.Value, p.Cond.ID)
	}
	key := b.String()
	if t, ok := in.trans[key]; ok {
		return t
	}
	t := &Trans{ID: len(in.g.Trans), Space: space, Outs: pairs}
	in.g.Trans = append(in.g.Trans, t)
	in.trans[key] = t
	return t
}
