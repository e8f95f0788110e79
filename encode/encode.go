/*
Package encode lays out a reduced FSM graph as a set of named integer tables.

Three strategies are available. They differ only in how the transition for
a (state, key) pair is found:

■ Flat: per state a key envelope [low, high] and a dense index row, giving
O(1) lookup. Optionally, keys are first mapped to equivalence classes by
a 'char_class' table, which shrinks the index rows.

■ Bin: per state sorted single keys and sorted key ranges, searched by binary
search. The transition columns may be addressed through an 'indices' table
or be laid out per state slot directly.

■ Switch: no key tables at all. Per state, singles become cases of a switch
and ranges become a bisection tree of comparisons, to be emitted as code.

All strategies share the transition, condition, action, EOF and NFA
columns. Every column is built by package tables in two phases.

    enc, err := encode.Encode(g, encode.DefaultOptions(encode.Bin))
    arr, _ := enc.Array(encode.KeyOffsets)

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2022 Norbert Pillmayer <norbert@pillmayer.com>

*/
package encode

import (
	"errors"
	"fmt"
	"strings"

	"github.com/npillmayer/gorgel/alphabet"
	"github.com/npillmayer/gorgel/redfsm"
	"github.com/npillmayer/gorgel/tables"
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'gorgel.encode'.
func tracer() tracing.Trace {
	return tracing.Select("gorgel.encode")
}

// Kind selects an encoding strategy.
type Kind int

// Encoding strategies.
const (
	Flat Kind = iota
	Bin
	Switch
)

var kindNames = []string{"flat", "bin", "switch"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind finds an encoding strategy by name.
func ParseKind(s string) (Kind, error) {
	for i, n := range kindNames {
		if strings.EqualFold(n, s) {
			return Kind(i), nil
		}
	}
	return Flat, fmt.Errorf("unknown encoding %q", s)
}

// IndicesMode controls whether binary encodings address transitions through
// an 'indices' table.
type IndicesMode int

// Modes for indices.
const (
	IndicesAuto IndicesMode = iota // whichever layout is smaller
	IndicesOn
	IndicesOff
)

// Options configures an encoding.
type Options struct {
	Kind     Kind
	Indices  IndicesMode // Bin only
	ClassMap bool        // Flat only
	NFA      bool        // support NFA alternates
	EOF      bool        // support EOF actions and transitions
	MaxSpan  uint64      // Flat only: largest key span per table row; 0 means DefaultMaxSpan
}

// DefaultMaxSpan limits the rows of flat encodings.
const DefaultMaxSpan = 1 << 16

// DefaultOptions returns options with NFA and EOF support switched on.
func DefaultOptions(kind Kind) Options {
	return Options{Kind: kind, NFA: true, EOF: true}
}

// Errors for encodings which cannot be produced.
var (
	ErrNFADisabled  = errors.New("graph has NFA alternates, but NFA support is off")
	ErrEOFDisabled  = errors.New("graph has EOF activity, but EOF support is off")
	ErrSpanTooLarge = errors.New("key span too large for flat encoding")
)

// ActionInfo describes an action referenced from the 'actions' table.
type ActionInfo struct {
	ID     int
	Name   string
	Kind   redfsm.ActionKind
	Code   string
	Target int // target state for goto, next and call; -1 otherwise
}

// Encoding is the result of encoding a graph: named tables plus the metadata
// drivers need. It is immutable and may be shared between goroutines.
type Encoding struct {
	Name          string
	Kind          Kind
	Keys          *alphabet.KeyOps
	KeyType       tables.Type // storage type of key columns
	Start         int
	FirstFinal    int
	Error         int // -1 if the graph has no error state
	ErrCondOffset int // condition entry which leads into the error state
	NumStates     int
	UseIndices    bool         // Bin: transitions addressed through 'indices'
	ClassMap      bool         // Flat: keys mapped through 'char_class'
	LowKey        alphabet.Key // Flat with class map: lowest key of 'char_class'
	HighKey       alphabet.Key // Flat with class map: highest key of 'char_class'
	HasEOF        bool
	HasEOFConds   bool
	HasNFA        bool
	UsesControl   bool // call, ret or break actions present
	Actions       []ActionInfo
	CondSpaces    [][]string    // predicate names per condition space ID
	Switch        []SwitchState // Switch only, indexed by state
	arrays        map[string]tables.Array
	order         []string
}

// Array returns a named table column.
func (enc *Encoding) Array(name string) (tables.Array, bool) {
	arr, ok := enc.arrays[name]
	return arr, ok
}

// Has is a predicate: is a named column present?
func (enc *Encoding) Has(name string) bool {
	_, ok := enc.arrays[name]
	return ok
}

// MustArray returns a named column and panics if it is missing.
func (enc *Encoding) MustArray(name string) tables.Array {
	arr, ok := enc.arrays[name]
	if !ok {
		panic(fmt.Sprintf("encode.Encoding.MustArray: no column %q in %s encoding", name, enc.Kind))
	}
	return arr
}

// Arrays returns all columns in order of generation.
func (enc *Encoding) Arrays() []tables.Array {
	arrs := make([]tables.Array, len(enc.order))
	for i, n := range enc.order {
		arrs[i] = enc.arrays[n]
	}
	return arrs
}

// TransColumn returns the name of a transition column (trans_cond_spaces,
// trans_offsets, trans_lengths) for this encoding's layout.
func (enc *Encoding) TransColumn(base string) string {
	if enc.Kind == Bin && !enc.UseIndices {
		return base + withoutIndices
	}
	return base
}

// Stats summarizes the size of an encoding.
type Stats struct {
	Arrays int
	Values int
	Bytes  int
}

// Stats returns the size of an encoding's tables.
func (enc *Encoding) Stats() Stats {
	var st Stats
	for _, arr := range enc.arrays {
		st.Arrays++
		st.Values += arr.Len()
		st.Bytes += arr.Bytes()
	}
	return st
}

// Encoder is the capability of a strategy: laying out the key lookup.
type Encoder interface {
	Kind() Kind
	// Slots returns the transitions in the order of the transition columns.
	// EOF transitions not among them are appended by the emitter.
	Slots(e *Emitter) []*redfsm.Trans
	// KeyColumns adds the columns mapping (state, key) to a slot.
	KeyColumns(e *Emitter) error
}

// EncoderFor returns the encoder of a strategy.
func EncoderFor(kind Kind) Encoder {
	switch kind {
	case Flat:
		return flatEncoder{}
	case Bin:
		return binEncoder{}
	case Switch:
		return switchEncoder{}
	}
	panic(fmt.Sprintf("encode.EncoderFor: unknown kind %d", kind))
}

// Emitter accumulates the columns of an encoding. It is handed to the
// encoder of a strategy.
type Emitter struct {
	G       *redfsm.Graph
	Opts    Options
	Enc     *Encoding
	slots   []*redfsm.Trans
	slotOf  map[*redfsm.Trans]int
	eofSlot map[*redfsm.State]int
}

// Add builds a column in two phases and stores it.
func (e *Emitter) Add(name string, walk tables.Walk, opts ...tables.Option) error {
	arr, err := tables.Build(name, walk, opts...)
	if err != nil {
		return err
	}
	if _, dup := e.Enc.arrays[name]; dup {
		panic(fmt.Sprintf("encode.Emitter.Add: column %q added twice", name))
	}
	e.Enc.arrays[name] = arr
	e.Enc.order = append(e.Enc.order, name)
	return nil
}

// SlotOf returns the slot of a transition for encodings with unique slots.
func (e *Emitter) SlotOf(t *redfsm.Trans) int {
	s, ok := e.slotOf[t]
	if !ok {
		panic(fmt.Sprintf("encode.Emitter.SlotOf: transition %d has no slot", t.ID))
	}
	return s
}

// KeyType returns the storage type for key columns.
func (e *Emitter) KeyType() tables.Type {
	return e.Enc.KeyType
}

// Encode lays out a graph with the strategy selected in opts.
func Encode(g *redfsm.Graph, opts Options) (*Encoding, error) {
	if g.HasNFA() && !opts.NFA {
		return nil, fmt.Errorf("%s: %w", g.Name, ErrNFADisabled)
	}
	if g.HasEOF() && !opts.EOF {
		return nil, fmt.Errorf("%s: %w", g.Name, ErrEOFDisabled)
	}
	if opts.MaxSpan == 0 {
		opts.MaxSpan = DefaultMaxSpan
	}
	keyType, ok := tables.TypeByName(g.Keys.Type.GoName)
	if !ok {
		panic(fmt.Sprintf("encode.Encode: no storage type for alphabet %s", g.Keys.Type))
	}
	enc := &Encoding{
		Name:        g.Name,
		Kind:        opts.Kind,
		Keys:        g.Keys,
		KeyType:     keyType,
		Start:       int(g.Start.ID),
		FirstFinal:  g.FirstFinal,
		Error:       int(g.ErrorID()),
		NumStates:   len(g.States),
		HasEOF:      g.HasEOF(),
		HasEOFConds: g.HasEOFConds(),
		HasNFA:      g.HasNFA(),
		UsesControl: g.UsesControl(),
		arrays:      make(map[string]tables.Array),
	}
	for _, a := range g.Actions {
		info := ActionInfo{ID: a.ID, Name: a.Name, Kind: a.Kind, Code: a.Code, Target: -1}
		if a.Target != nil {
			info.Target = int(a.Target.ID)
		}
		enc.Actions = append(enc.Actions, info)
	}
	for _, cs := range g.CondSpaces {
		enc.CondSpaces = append(enc.CondSpaces, cs.Conds)
	}
	e := &Emitter{G: g, Opts: opts, Enc: enc}
	encoder := EncoderFor(opts.Kind)
	e.slots = encoder.Slots(e)
	e.slotOf = make(map[*redfsm.Trans]int, len(e.slots))
	for i, t := range e.slots {
		if _, ok := e.slotOf[t]; !ok {
			e.slotOf[t] = i
		}
	}
	e.eofSlot = make(map[*redfsm.State]int)
	for _, s := range g.States {
		if s.EOFTrans == nil {
			continue
		}
		if slot, ok := e.slotOf[s.EOFTrans]; ok && !(opts.Kind == Bin && !enc.UseIndices) {
			e.eofSlot[s] = slot
			continue
		}
		e.eofSlot[s] = len(e.slots)
		e.slots = append(e.slots, s.EOFTrans)
	}
	if err := encoder.KeyColumns(e); err != nil {
		return nil, err
	}
	for _, col := range []func() error{
		e.transColumns,
		e.condColumns,
		e.stateActionColumns,
		e.eofColumns,
		e.actionsColumn,
		e.nfaColumns,
	} {
		if err := col(); err != nil {
			return nil, err
		}
	}
	st := enc.Stats()
	tracer().Infof("encoded %s as %s: %d columns, %d bytes", g.Name, enc.Kind, st.Arrays, st.Bytes)
	return enc, nil
}
