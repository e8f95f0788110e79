/*
Package codegen emits Go source for an encoded state machine.

The generated file contains the constants and tables of an encode.Encoding,
a machine type, and a scan loop for one of the driver variants of package
runtime. Generated machines behave like runtime.Machine, but run without
interpretation overhead.

    src, err := codegen.Generate(enc, codegen.Options{
        Package: "lexer",
        Prefix:  "lex",
        Driver:  runtime.Goto,
    })

Actions with host code are inlined into an action switch. Actions without
code, and all conditions, are dispatched to the OnAction and OnCond hooks of
the machine.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2022 Norbert Pillmayer <norbert@pillmayer.com>

*/
package codegen

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/dave/jennifer/jen"
	"github.com/npillmayer/gorgel/alphabet"
	"github.com/npillmayer/gorgel/encode"
	"github.com/npillmayer/gorgel/runtime"
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'gorgel.codegen'.
func tracer() tracing.Trace {
	return tracing.Select("gorgel.codegen")
}

// ErrControlPrimitive is returned for the var driver if the machine uses
// fcall, fret or fbreak.
var ErrControlPrimitive = errors.New("var driver cannot express fcall, fret or fbreak")

// Options configures code generation.
type Options struct {
	Package    string             // package clause; default "fsm"
	Prefix     string             // prefix of constants and tables; default "fsm"
	Type       string             // name of the machine type; default "Machine"
	Driver     runtime.DriverKind // control-flow variant
	StackDepth int                // call stack size; default runtime.DefaultStackDepth
	NFADepth   int                // pending NFA alternates; default runtime.DefaultNFADepth
}

func (opts *Options) defaults() {
	if opts.Package == "" {
		opts.Package = "fsm"
	}
	if opts.Prefix == "" {
		opts.Prefix = "fsm"
	}
	if opts.Type == "" {
		opts.Type = "Machine"
	}
	if opts.StackDepth <= 0 {
		opts.StackDepth = runtime.DefaultStackDepth
	}
	if opts.NFADepth <= 0 {
		opts.NFADepth = runtime.DefaultNFADepth
	}
}

// Control codes returned by the generated action runner.
const (
	ctlNext = iota
	ctlAgain
	ctlBreak
)

// generator holds the state of one generation run.
type generator struct {
	enc   *encode.Encoding
	opts  Options
	f     *jen.File
	conds map[string]int // condition name → hook ID
	names []string
}

// Generate emits a Go source file for an encoding.
func Generate(enc *encode.Encoding, opts Options) ([]byte, error) {
	opts.defaults()
	if opts.Driver == runtime.Var && enc.UsesControl {
		return nil, fmt.Errorf("%s: %w", enc.Name, ErrControlPrimitive)
	}
	g := &generator{
		enc:   enc,
		opts:  opts,
		f:     jen.NewFile(opts.Package),
		conds: make(map[string]int),
	}
	for _, space := range enc.CondSpaces {
		for _, c := range space {
			if _, ok := g.conds[c]; !ok {
				g.conds[c] = len(g.names)
				g.names = append(g.names, c)
			}
		}
	}
	g.f.HeaderComment("Code generated by gorgel. DO NOT EDIT.")
	g.constants()
	g.tables()
	g.machineType()
	g.support()
	g.locate()
	g.condExec()
	g.condSearch()
	g.actionRunner()
	g.eof()
	g.nfa()
	switch opts.Driver {
	case runtime.Goto:
		g.execGoto()
	case runtime.Break:
		g.execBreak()
	default:
		g.execVar()
	}
	var buf bytes.Buffer
	if err := g.f.Render(&buf); err != nil {
		tracer().Errorf("rendering %s: %v", enc.Name, err)
		return nil, err
	}
	tracer().Infof("generated %d bytes for %s (%s, %s driver)", buf.Len(), enc.Name, enc.Kind, opts.Driver)
	return buf.Bytes(), nil
}

// --- Helpers ---------------------------------------------------------------

// name returns a prefixed identifier.
func (g *generator) name(n string) string {
	return g.opts.Prefix + "_" + n
}

// at indexes a table column.
func (g *generator) at(col string, index jen.Code) *jen.Statement {
	return jen.Id(g.name(col)).Index(index)
}

// intAt indexes a table column and converts to int.
func (g *generator) intAt(col string, index jen.Code) *jen.Statement {
	return jen.Id("int").Call(g.at(col, index))
}

// cs is the current state register.
func cs() *jen.Statement {
	return jen.Id("m").Dot("CS")
}

// recv is the receiver of methods of the machine type.
func (g *generator) recv() *jen.Statement {
	return jen.Params(jen.Id("m").Op("*").Id(g.opts.Type))
}

func (g *generator) keyType() string {
	return g.enc.Keys.Type.GoName
}

// keyLit renders a key as an untyped constant.
func (g *generator) keyLit(k alphabet.Key) jen.Code {
	return jen.Op(g.enc.Keys.Format(k))
}

func (g *generator) hasError() bool {
	return g.enc.Error >= 0
}

func (g *generator) hasNFA() bool {
	return g.enc.Has(encode.NFAOffsets)
}

// inError tests for the error state.
func (g *generator) inError() *jen.Statement {
	return cs().Op("==").Id(g.name("error"))
}
