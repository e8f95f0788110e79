package codegen

import (
	"github.com/dave/jennifer/jen"
)

// Pieces of Exec shared by the driver variants. Only the control flow
// between the phases differs.

// execFunc wraps a driver body into the Exec method.
func (g *generator) execFunc(body ...jen.Code) {
	pre := []jen.Code{
		jen.List(jen.Id("p"), jen.Id("pe")).Op(":=").List(jen.Lit(0), jen.Len(jen.Id("data"))),
		jen.Id("m").Dot("begin").Call(jen.Id("pe"), jen.Id("eof")),
	}
	g.f.Comment("Exec scans a chunk of input. With eof set, the chunk ends the input.")
	g.f.Comment("It returns the position in data where scanning stopped.")
	g.f.Func().Add(g.recv()).Id("Exec").
		Params(jen.Id("data").Index().Id(g.keyType()), jen.Id("eof").Bool()).Int().
		Block(append(pre, body...)...)
}

// push pushes NFA alternates, if the machine has any.
func (g *generator) push() jen.Code {
	if !g.hasNFA() {
		return jen.Null()
	}
	return jen.Id("m").Dot("nfaPush").Call(jen.Id("data"), jen.Id("p"))
}

// locateKey finds the slot for the current key.
func locateKey() *jen.Statement {
	return jen.Id("m").Dot("locate").Call(cs(), jen.Id("data").Index(jen.Id("p")))
}

// atEOF processes the end of input, if the machine has EOF activity. When
// an EOF transition is taken, the driver continues with then.
func (g *generator) atEOF(then ...jen.Code) jen.Code {
	if !g.enc.HasEOF {
		return jen.Null()
	}
	return jen.If(jen.Id("m").Dot("atEOF").Call(jen.Id("data"), jen.Op("&").Id("p"))).Block(then...)
}

// step emits from-state actions, the transition and to-state actions. A
// break returns from Exec.
func step() []jen.Code {
	args := []jen.Code{jen.Id("data"), jen.Op("&").Id("p")}
	broke := jen.Return(jen.Id("m").Dot("broke").Call(jen.Id("p")))
	return []jen.Code{
		jen.Id("_ctl").Op("=").Id("m").Dot("from").Call(args...),
		jen.If(jen.Id("_ctl").Op("==").Lit(ctlNext)).Block(
			jen.Id("_ctl").Op("=").Id("m").Dot("take").Call(append([]jen.Code{locateKey()}, args...)...),
		),
		jen.If(jen.Id("_ctl").Op("==").Lit(ctlBreak)).Block(broke),
		jen.If(jen.Id("m").Dot("again").Call(args...).Op("==").Lit(ctlBreak)).Block(broke),
	}
}

// pop ends a path. It continues with an NFA alternate by resume, or returns
// from Exec.
func (g *generator) pop(resume ...jen.Code) []jen.Code {
	stmts := []jen.Code{jen.Id("m").Dot("ended").Call(jen.Id("p"))}
	if g.hasNFA() {
		stmts = append(stmts, jen.If(
			jen.Id("m").Dot("nfaPop").Call(jen.Id("data"), jen.Op("&").Id("p")),
		).Block(resume...))
	}
	return append(stmts, jen.Return(jen.Id("m").Dot("finish").Call(jen.Id("p"))))
}

// execGoto moves between phases with goto.
func (g *generator) execGoto() {
	body := []jen.Code{
		jen.Var().Id("_ctl").Int(),
		jen.Id("_resume").Op(":"),
		g.push(),
		jen.If(jen.Id("p").Op("==").Id("pe")).Block(jen.Goto().Id("_test_eof")),
	}
	if g.hasError() {
		body = append(body, jen.If(g.inError()).Block(jen.Goto().Id("_out")))
	}
	body = append(body, step()...)
	if g.hasError() {
		body = append(body, jen.If(g.inError()).Block(jen.Goto().Id("_out")))
	}
	body = append(body,
		jen.Id("p").Op("++"),
		jen.Goto().Id("_resume"),
		jen.Id("_test_eof").Op(":"),
		jen.If(jen.Op("!").Id("eof")).Block(jen.Return(jen.Id("m").Dot("suspend").Call(jen.Id("p")))),
		g.atEOF(jen.Goto().Id("_resume")),
	)
	if g.hasError() {
		body = append(body, jen.Id("_out").Op(":"))
	}
	body = append(body, g.pop(jen.Goto().Id("_resume"))...)
	g.execFunc(body...)
}

// execBreak moves between phases with a labelled loop over a switch.
func (g *generator) execBreak() {
	targ := func(n int) []jen.Code {
		return []jen.Code{jen.Id("_targ").Op("=").Lit(n), jen.Continue().Id("_goto")}
	}
	resume := []jen.Code{
		g.push(),
		jen.If(jen.Id("p").Op("==").Id("pe")).Block(targ(1)...),
	}
	if g.hasError() {
		resume = append(resume, jen.If(g.inError()).Block(targ(2)...))
	}
	resume = append(resume, jen.Var().Id("_ctl").Int())
	resume = append(resume, step()...)
	if g.hasError() {
		resume = append(resume, jen.If(g.inError()).Block(targ(2)...))
	}
	resume = append(resume, jen.Id("p").Op("++"))
	testEOF := []jen.Code{
		jen.If(jen.Op("!").Id("eof")).Block(jen.Return(jen.Id("m").Dot("suspend").Call(jen.Id("p")))),
		g.atEOF(targ(0)...),
		jen.Id("_targ").Op("=").Lit(2),
	}
	out := g.pop(targ(0)...)
	g.execFunc(
		jen.Id("_targ").Op(":=").Lit(0),
		jen.Id("_goto").Op(":"),
		jen.For().Block(
			jen.Switch(jen.Id("_targ")).Block(
				jen.Case(jen.Lit(0)).Block(resume...),
				jen.Case(jen.Lit(1)).Block(testEOF...),
				jen.Case(jen.Lit(2)).Block(out...),
			),
		),
	)
}

// execVar moves between phases with flags only. Machines with control
// actions are refused before.
func (g *generator) execVar() {
	args := []jen.Code{jen.Id("data"), jen.Op("&").Id("p")}
	trans := []jen.Code{
		jen.If(jen.Id("m").Dot("from").Call(args...).Op("==").Lit(ctlNext)).Block(
			jen.Id("m").Dot("take").Call(append([]jen.Code{locateKey()}, args...)...),
		),
		jen.Id("m").Dot("again").Call(args...),
	}
	if g.hasError() {
		trans = append(trans, jen.If(g.inError()).Block(
			jen.Id("_out").Op("=").True(),
		).Else().Block(jen.Id("p").Op("++")))
	} else {
		trans = append(trans, jen.Id("p").Op("++"))
	}
	phases := jen.If(jen.Id("p").Op("==").Id("pe")).Block(
		jen.If(jen.Op("!").Id("eof")).Block(jen.Return(jen.Id("m").Dot("suspend").Call(jen.Id("p")))),
		jen.Id("_out").Op("=").True(),
		g.atEOF(jen.Id("_out").Op("=").False()),
	)
	if g.hasError() {
		phases = phases.Else().If(g.inError()).Block(jen.Id("_out").Op("=").True())
	}
	phases = phases.Else().Block(trans...)
	var cont jen.Code = jen.Id("_cont").Op("=").False()
	if g.hasNFA() {
		cont = jen.Id("_cont").Op("=").Id("m").Dot("nfaPop").Call(args...)
	}
	g.execFunc(
		jen.Id("_cont").Op(":=").True(),
		jen.For(jen.Id("_cont")).Block(
			jen.Id("_out").Op(":=").False(),
			g.push(),
			phases,
			jen.If(jen.Id("_out")).Block(
				jen.Id("m").Dot("ended").Call(jen.Id("p")),
				cont,
			),
		),
		jen.Return(jen.Id("m").Dot("finish").Call(jen.Id("p"))),
	)
}
