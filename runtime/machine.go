/*
Package runtime executes encoded state machines by walking their tables.

A Machine interprets an encode.Encoding the way generated code does. Three
driver variants are available, which differ only in how control moves
between the phases of a scan:

■ Goto uses goto statements between labelled phases.

■ Break uses a labelled loop over a switch, with continue and break.

■ Var uses boolean flags only. It cannot express fcall, fret and fbreak, and
New refuses encodings containing them.

All variants produce identical traces for identical input.

    m, err := runtime.New(enc, runtime.Goto, runtime.WithBindings(b))
    m.Init()
    res, err := m.Exec(input, true)

Input may arrive in chunks: calling Exec with eof=false suspends the machine
when the chunk is exhausted, and the next call continues where it left off.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2022 Norbert Pillmayer <norbert@pillmayer.com>

*/
package runtime

import (
	"errors"
	"fmt"
	"strings"

	"github.com/npillmayer/gorgel/alphabet"
	"github.com/npillmayer/gorgel/encode"
	"github.com/npillmayer/gorgel/redfsm"
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'gorgel.runtime'.
func tracer() tracing.Trace {
	return tracing.Select("gorgel.runtime")
}

// DriverKind selects a control-flow variant.
type DriverKind int

// Driver variants.
const (
	Goto DriverKind = iota
	Break
	Var
)

var driverNames = []string{"goto", "break", "var"}

func (k DriverKind) String() string {
	if k < 0 || int(k) >= len(driverNames) {
		return fmt.Sprintf("DriverKind(%d)", int(k))
	}
	return driverNames[k]
}

// ParseDriverKind finds a driver variant by name.
func ParseDriverKind(s string) (DriverKind, error) {
	for i, n := range driverNames {
		if strings.EqualFold(n, s) {
			return DriverKind(i), nil
		}
	}
	return Goto, fmt.Errorf("unknown driver %q", s)
}

// Errors of machines.
var (
	ErrControlPrimitive = errors.New("var driver cannot express fcall, fret or fbreak")
	ErrUnboundCond      = errors.New("condition has no binding")
	ErrKeyRange         = errors.New("key outside of alphabet")
	ErrStackOverflow    = errors.New("call stack overflow")
	ErrStackUnderflow   = errors.New("fret with empty call stack")
	ErrNFAOverflow      = errors.New("too many pending NFA alternates")
	ErrStaleAlternate   = errors.New("NFA alternate refers to a previous input chunk")
)

// Default stack limits.
const (
	DefaultStackDepth = 32
	DefaultNFADepth   = 64
)

// Option configures a machine.
type Option func(*Machine)

// WithStackDepth limits the call stack of fcall.
func WithStackDepth(n int) Option {
	return func(m *Machine) {
		m.stack.Limit = n
	}
}

// WithNFADepth limits the number of pending NFA alternates.
func WithNFADepth(n int) Option {
	return func(m *Machine) {
		m.nfa.Limit = n
	}
}

// WithBindings connects actions and conditions to host code.
func WithBindings(b *Bindings) Option {
	return func(m *Machine) {
		m.bind = b
	}
}

// WithTrace switches recording of events on or off.
func WithTrace(on bool) Option {
	return func(m *Machine) {
		m.recording = on
	}
}

// EventKind classifies trace events.
type EventKind int

// Kinds of trace events.
const (
	TransEvent  EventKind = iota // a transition was taken; State is the new cs, Action the action location
	ActionEvent                  // an action was executed; Action is the action ID
	PushEvent                    // an NFA alternate was pushed; State is its target
	PopEvent                     // an NFA alternate was popped; State is its target
	EOFEvent                     // EOF processing in State
)

// Event is a trace entry.
type Event struct {
	Kind   EventKind
	State  int
	Action int
}

// Result describes how Exec returned.
type Result struct {
	P         int  // position within the chunk where the scan stopped
	CS        int  // current state
	Suspended bool // chunk exhausted, more input expected
	Broke     bool // fbreak
	Accepted  bool // some path ended in a final state at EOF
}

// Machine is a scan over an encoding. It is not safe for concurrent use, but
// many machines may share one encoding.
type Machine struct {
	enc       *encode.Encoding
	kind      DriverKind
	cols      columns
	locate    locator
	bind      *Bindings
	actions   []func(*Machine)
	conds     [][]func(*Machine) bool // per condition space
	stack     FrameStack
	nfa       FrameStack
	recording bool
	trace     []Event
	// scan registers
	cs       int
	p, pe    int
	data     []alphabet.Key
	eof      bool
	base     int64 // absolute position of data[0]
	accepted bool
	rejected bool
	resumed  bool // suspended before; NFA alternates of cs already pushed
	done     bool
}

// New creates a machine for an encoding with a driver variant.
func New(enc *encode.Encoding, kind DriverKind, opts ...Option) (*Machine, error) {
	if kind == Var && enc.UsesControl {
		return nil, fmt.Errorf("%s: %w", enc.Name, ErrControlPrimitive)
	}
	m := &Machine{
		enc:  enc,
		kind: kind,
		cols: columnsOf(enc),
	}
	m.stack = FrameStack{Name: "call", Limit: DefaultStackDepth}
	m.nfa = FrameStack{Name: "nfa", Limit: DefaultNFADepth}
	for _, opt := range opts {
		opt(m)
	}
	m.locate = locatorFor(enc, &m.cols)
	m.actions = make([]func(*Machine), len(enc.Actions))
	for i, a := range enc.Actions {
		if a.Kind == redfsm.Hook && m.bind != nil {
			m.actions[i] = m.bind.Action(a.Name)
		}
	}
	var errs []error
	m.conds = make([][]func(*Machine) bool, len(enc.CondSpaces))
	for i, space := range enc.CondSpaces {
		for _, name := range space {
			var f func(*Machine) bool
			if m.bind != nil {
				f = m.bind.Cond(name)
			}
			if f == nil {
				errs = append(errs, fmt.Errorf("%s: %q: %w", enc.Name, name, ErrUnboundCond))
			}
			m.conds[i] = append(m.conds[i], f)
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	m.Init()
	return m, nil
}

// Init resets the machine to the start state.
func (m *Machine) Init() {
	m.cs = m.enc.Start
	m.stack.Reset()
	m.nfa.Reset()
	m.trace = m.trace[:0]
	m.p, m.pe, m.data, m.base = 0, 0, nil, 0
	m.eof, m.accepted, m.rejected, m.resumed, m.done = false, false, false, false, false
}

// Driver returns the driver variant of the machine.
func (m *Machine) Driver() DriverKind {
	return m.kind
}

// CS returns the current state.
func (m *Machine) CS() int {
	return m.cs
}

// Accepted is a predicate: did a path end in a final state at EOF?
func (m *Machine) Accepted() bool {
	return m.accepted
}

// InError is a predicate: is the machine in the error state?
func (m *Machine) InError() bool {
	return m.enc.Error >= 0 && m.cs == m.enc.Error
}

// Trace returns the recorded events.
func (m *Machine) Trace() []Event {
	return m.trace
}

// Key returns the current key. Valid in actions and conditions of key
// transitions.
func (m *Machine) Key() alphabet.Key {
	return m.data[m.p]
}

// P returns the current position within the chunk.
func (m *Machine) P() int {
	return m.p
}

// Pos returns the current absolute position.
func (m *Machine) Pos() int64 {
	return m.base + int64(m.p)
}

// Reject vetoes the NFA alternate being popped. Called from pop tests.
func (m *Machine) Reject() {
	m.rejected = true
}

// StackDepth returns the depth of the call stack.
func (m *Machine) StackDepth() int {
	return m.stack.Depth()
}

// NFADepth returns the number of pending NFA alternates.
func (m *Machine) NFADepth() int {
	return m.nfa.Depth()
}

// Exec scans a chunk of input. If eof is true, the chunk ends the input.
func (m *Machine) Exec(data []alphabet.Key, eof bool) (Result, error) {
	if m.done {
		return m.result(), nil
	}
	for i, k := range data {
		if !m.enc.Keys.Contains(k) {
			return m.result(), fmt.Errorf("key #%d = %d: %w", i, k, ErrKeyRange)
		}
	}
	m.base += int64(m.p)
	m.data, m.p, m.pe, m.eof = data, 0, len(data), eof
	switch m.kind {
	case Goto:
		return m.execGoto()
	case Break:
		return m.execBreak()
	}
	return m.execVar()
}

func (m *Machine) result() Result {
	return Result{P: m.p, CS: m.cs, Accepted: m.accepted}
}

func (m *Machine) suspend() (Result, error) {
	m.resumed = true
	r := m.result()
	r.Suspended = true
	tracer().Debugf("suspended in state %d at %d", m.cs, m.Pos())
	return r, nil
}

func (m *Machine) broke() (Result, error) {
	r := m.result()
	r.Broke = true
	return r, nil
}

func (m *Machine) finish() (Result, error) {
	m.done = true
	return m.result(), nil
}

func (m *Machine) record(kind EventKind, state, action int) {
	if m.recording {
		m.trace = append(m.trace, Event{Kind: kind, State: state, Action: action})
	}
}
