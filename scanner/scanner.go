/*
Package scanner tokenizes key expressions as they appear in graph
descriptions and in the interactive scan loop of the command line tool.

Key expressions denote single keys, ranges of keys, the whole alphabet, or
comma separated lists of these:

    'a'            a character literal
    0x41, -3, 65   numeric literals (hex, binary, octal, decimal)
    '0'..'9'       an inclusive range
    any            every key of the alphabet
    'a'..'z', '_'  a list

Scanning is done by lexmachine, wrapped into the Tokenizer interface.
Interpretation of literals is left to package alphabet, which knows about
the host type of keys.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2022 Norbert Pillmayer <norbert@pillmayer.com>

*/
package scanner

import (
	"fmt"

	"github.com/npillmayer/gorgel"
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'gorgel.scanner'.
func tracer() tracing.Trace {
	return tracing.Select("gorgel.scanner")
}

// Token types of key expressions.
const (
	EOF    gorgel.TokType = -1
	Char   gorgel.TokType = 1 // 'a', '\n', '\x41'
	Number gorgel.TokType = 2 // 65, 0x41, -1
	DotDot gorgel.TokType = 3 // ..
	Comma  gorgel.TokType = 4 // ,
	Any    gorgel.TokType = 5 // any
)

var tokNames = map[gorgel.TokType]string{
	EOF:    "EOF",
	Char:   "char",
	Number: "number",
	DotDot: "'..'",
	Comma:  "','",
	Any:    "any",
}

// TokName returns a readable name for a token type.
func TokName(t gorgel.TokType) string {
	if n, ok := tokNames[t]; ok {
		return n
	}
	return fmt.Sprintf("token(%d)", int(t))
}

// Tokenizer is a scanner interface.
type Tokenizer interface {
	NextToken() gorgel.Token
	SetErrorHandler(func(error))
}

// Default error reporting function for scanners
func logError(e error) {
	tracer().Errorf("scanner error: " + e.Error())
}

// --- Default tokens --------------------------------------------------------

// DefaultToken is a very unsophisticated token type, produced by the
// lexmachine scanner.
type DefaultToken struct {
	kind   gorgel.TokType
	lexeme string
	Val    interface{}
	span   gorgel.Span
}

// MakeDefaultToken creates a token.
func MakeDefaultToken(typ gorgel.TokType, lexeme string, span gorgel.Span) DefaultToken {
	return DefaultToken{
		kind:   typ,
		lexeme: lexeme,
		span:   span,
	}
}

func (t DefaultToken) TokType() gorgel.TokType {
	return t.kind
}

func (t DefaultToken) Value() interface{} {
	return t.Val
}

func (t DefaultToken) Lexeme() string {
	return t.lexeme
}

func (t DefaultToken) Span() gorgel.Span {
	return t.span
}

func (t DefaultToken) String() string {
	return fmt.Sprintf("%s %q %s", TokName(t.kind), t.lexeme, t.span)
}
