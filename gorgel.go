package gorgel

import (
	"errors"
	"fmt"
	"strings"

	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'gorgel'.
func tracer() tracing.Trace {
	return tracing.Select("gorgel")
}

// --- Identities ------------------------------------------------------------

// StateID is the dense numeric identity of a state, assigned after final-state
// ordering. The error state, if present, always has ID 0.
type StateID int

// NoState denotes the absence of a state, e.g. a missing error state.
const NoState StateID = -1

// ActionID is the location of an action list within the 'actions' table.
// Location 0 is reserved and denotes "no action".
type ActionID uint32

// NoAction is the reserved action location.
const NoAction ActionID = 0

// IsNone is a predicate: does the location denote "no action"?
func (a ActionID) IsNone() bool {
	return a == NoAction
}

// CondValue is a packed condition bit vector (often called _cpc). Bit i is set
// iff the i-th predicate of a condition space evaluated to true.
type CondValue uint64

// Bit returns a condition value with only bit i set.
func Bit(i int) CondValue {
	return CondValue(1) << uint(i)
}

// Has is a predicate: is bit i set?
func (c CondValue) Has(i int) bool {
	return c&Bit(i) != 0
}

// --- A general purpose interface for tokens --------------------------------

// TokType is a category type for a Token.
type TokType int

// Tokens represent input tokens of key expressions, as found in graph
// descriptions.
//
// An example would be a token for a hex key literal:
//
//    TokType = Hex         // identifier for this kind of tokens
//    Lexeme  = "0x41"      // lexeme how it appeared in the input
//    Span    = 3…7         // occured from position 3 in the input
//
type Token interface {
	TokType() TokType
	Lexeme() string
	Value() interface{}
	Span() Span
}

// --- Spans ------------------------------------------------------------

// Span is a small type for capturing a run of input positions. A span denotes
// a start position and the position just behind the end.
type Span [2]uint64 // (x…y)

// From returns the start value of a span.
func (s Span) From() uint64 {
	return s[0]
}

// To returns the end value of a span.
func (s Span) To() uint64 {
	return s[1]
}

// Len returns the length of (x…y)
func (s Span) Len() uint64 {
	return s[1] - s[0]
}

func (s Span) IsNull() bool {
	return s == Span{}
}

func (s Span) String() string {
	return fmt.Sprintf("(%d…%d)", s[0], s[1])
}

// --- Diagnostics -----------------------------------------------------------

// Diagnostics accumulates user-facing errors. Processing continues on
// diagnostics, but output is only to be trusted if Count() is 0.
//
// The zero value is ready to use.
type Diagnostics struct {
	msgs []string
}

// Report adds a diagnostic message.
func (d *Diagnostics) Report(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	tracer().Errorf(msg)
	d.msgs = append(d.msgs, msg)
}

// Count returns the number of diagnostics reported so far.
func (d *Diagnostics) Count() int {
	if d == nil {
		return 0
	}
	return len(d.msgs)
}

// Messages returns all reported messages in order of reporting.
func (d *Diagnostics) Messages() []string {
	if d == nil {
		return nil
	}
	return d.msgs
}

// ErrDiagnostics is returned by Err if diagnostics have been reported.
var ErrDiagnostics = errors.New("diagnostics reported")

// Err returns nil if no diagnostics have been reported, an error wrapping
// ErrDiagnostics otherwise.
func (d *Diagnostics) Err() error {
	if d.Count() == 0 {
		return nil
	}
	return fmt.Errorf("%d error(s): %s: %w", len(d.msgs), strings.Join(d.msgs, "; "), ErrDiagnostics)
}
