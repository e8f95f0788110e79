package codegen

import (
	"fmt"

	"github.com/dave/jennifer/jen"
	"github.com/npillmayer/gorgel/encode"
	"github.com/npillmayer/gorgel/redfsm"
)

// constants emits start, first final and error state.
func (g *generator) constants() {
	defs := []jen.Code{
		jen.Id(g.name("start")).Op("=").Lit(g.enc.Start),
		jen.Id(g.name("first_final")).Op("=").Lit(g.enc.FirstFinal),
	}
	if g.hasError() {
		defs = append(defs, jen.Id(g.name("error")).Op("=").Lit(g.enc.Error))
	}
	g.f.Const().Defs(defs...)
}

// tables emits every column of the encoding as an array literal.
func (g *generator) tables() {
	for _, arr := range g.enc.Arrays() {
		g.f.Var().Id(g.name(arr.Name)).Op("=").Op(arr.Literal())
	}
	if len(g.names) > 0 {
		lits := make([]jen.Code, len(g.names))
		for i, n := range g.names {
			lits[i] = jen.Lit(n)
		}
		g.f.Comment("Condition names, indexed by the cond argument of OnCond.")
		g.f.Var().Id(g.name("cond_names")).Op("=").Index(jen.Op("...")).String().Values(lits...)
	}
}

// machineType emits the machine struct and its public methods.
func (g *generator) machineType() {
	T := g.opts.Type
	fields := []jen.Code{
		jen.Id("CS").Int().Comment("current state"),
		jen.Id("Accepted").Bool().Comment("some path processed EOF in a final state"),
		jen.Id("Suspended").Bool().Comment("last Exec ran out of input"),
		jen.Id("Broke").Bool().Comment("last Exec returned from fbreak"),
		jen.Id("OnAction").Func().Params(jen.Id("m").Op("*").Id(T), jen.Id("action"), jen.Id("p").Int()),
		jen.Id("OnCond").Func().Params(jen.Id("m").Op("*").Id(T), jen.Id("cond"), jen.Id("p").Int()).Bool(),
		jen.Id("stack").Index(jen.Lit(g.opts.StackDepth)).Int(),
		jen.Id("top").Int(),
		jen.Id("base").Int(),
		jen.Id("pe").Int(),
		jen.Id("eof").Bool(),
		jen.Id("resumed").Bool(),
		jen.Id("rejected").Bool(),
	}
	if g.hasNFA() {
		fields = append(fields, jen.Id("nfa").Index().Id(g.name("frame")))
		g.f.Comment(fmt.Sprintf("%s is a pending NFA alternate.", g.name("frame")))
		g.f.Type().Id(g.name("frame")).Struct(
			jen.List(jen.Id("cs"), jen.Id("pos"), jen.Id("pop")).Int(),
		)
	}
	g.f.Comment(fmt.Sprintf("%s scans input for machine %s.", T, g.enc.Name))
	g.f.Type().Id(T).Struct(fields...)

	init := []jen.Code{
		jen.Op("*").Id("m").Op("=").Id(T).Values(jen.Dict{
			jen.Id("CS"):       jen.Id(g.name("start")),
			jen.Id("OnAction"): jen.Id("m").Dot("OnAction"),
			jen.Id("OnCond"):   jen.Id("m").Dot("OnCond"),
		}),
	}
	g.f.Comment("Init resets the machine to the start state. Hooks are kept.")
	g.f.Func().Params(jen.Id("m").Op("*").Id(T)).Id("Init").Params().Block(init...)

	g.f.Comment("Reject vetoes the NFA alternate whose pop test is running.")
	g.f.Func().Params(jen.Id("m").Op("*").Id(T)).Id("Reject").Params().Block(
		jen.Id("m").Dot("rejected").Op("=").True(),
	)
}

// support emits the helpers drivers use to enter and leave Exec.
func (g *generator) support() {
	T := g.opts.Type
	recv := func() *jen.Statement { return jen.Func().Params(jen.Id("m").Op("*").Id(T)) }
	g.f.Add(recv().Id("begin").Params(jen.Id("pe").Int(), jen.Id("eof").Bool()).Block(
		jen.List(jen.Id("m").Dot("pe"), jen.Id("m").Dot("eof")).Op("=").List(jen.Id("pe"), jen.Id("eof")),
		jen.List(jen.Id("m").Dot("Suspended"), jen.Id("m").Dot("Broke")).Op("=").List(jen.False(), jen.False()),
	))
	leave := func(name, flag string, resumed bool) {
		body := []jen.Code{}
		if flag != "" {
			body = append(body, jen.Id("m").Dot(flag).Op("=").True())
		}
		if resumed {
			body = append(body, jen.Id("m").Dot("resumed").Op("=").True())
		}
		body = append(body,
			jen.Id("m").Dot("base").Op("+=").Id("p"),
			jen.Return(jen.Id("p")),
		)
		g.f.Add(recv().Id(name).Params(jen.Id("p").Int()).Int().Block(body...))
	}
	leave("suspend", "Suspended", true)
	leave("broke", "Broke", false)
	leave("finish", "", false)

	accept := jen.Id("m").Dot("eof").Op("&&").Id("p").Op("==").Id("m").Dot("pe").
		Op("&&").Add(cs()).Op(">=").Id(g.name("first_final"))
	if g.hasError() {
		accept = accept.Op("&&").Add(cs()).Op("!=").Id(g.name("error"))
	}
	g.f.Comment("ended records acceptance of a path which processed EOF in a final state.")
	g.f.Add(recv().Id("ended").Params(jen.Id("p").Int()).Block(
		jen.If(accept).Block(jen.Id("m").Dot("Accepted").Op("=").True()),
	))
}

// --- Key lookup ------------------------------------------------------------

// locate emits the method mapping (state, key) to a transition slot.
func (g *generator) locate() {
	var body []jen.Code
	switch g.enc.Kind {
	case encode.Flat:
		if g.enc.ClassMap {
			body = g.locateClasses()
		} else {
			body = g.locateFlat()
		}
	case encode.Bin:
		body = g.locateBin()
	default:
		body = g.locateSwitch()
	}
	g.f.Func().Add(g.recv()).Id("locate").
		Params(jen.Id("cs").Int(), jen.Id("k").Id(g.keyType())).Int().
		Block(body...)
}

// offset renders the distance between k and lo, both of the key type.
func (g *generator) offset(k, lo jen.Code) *jen.Statement {
	if g.enc.Keys.Signed() {
		return jen.Id("int").Call(k).Op("-").Id("int").Call(lo)
	}
	return jen.Id("int").Call(jen.Add(k).Op("-").Add(lo))
}

func (g *generator) locateFlat() []jen.Code {
	def := jen.Return(g.intAt(encode.IndexDefaults, jen.Id("cs")))
	return []jen.Code{
		jen.If(g.at(encode.KeySpans, jen.Id("cs")).Op("==").Lit(0)).Block(def),
		jen.List(jen.Id("lo"), jen.Id("hi")).Op(":=").List(
			g.at(encode.TransKeys, jen.Lit(2).Op("*").Id("cs")),
			g.at(encode.TransKeys, jen.Lit(2).Op("*").Id("cs").Op("+").Lit(1)),
		),
		jen.If(jen.Id("k").Op("<").Id("lo").Op("||").Id("k").Op(">").Id("hi")).Block(def),
		jen.Return(g.intAt(encode.Indices,
			g.intAt(encode.IndexOffsets, jen.Id("cs")).Op("+").Add(g.offset(jen.Id("k"), jen.Id("lo"))))),
	}
}

func (g *generator) locateClasses() []jen.Code {
	enc, ko := g.enc, g.enc.Keys
	def := jen.Return(g.intAt(encode.IndexDefaults, jen.Id("cs")))
	miss := g.at(encode.KeySpans, jen.Id("cs")).Op("==").Lit(0)
	if !ko.IsMin(enc.LowKey) {
		miss = miss.Op("||").Id("k").Op("<").Add(g.keyLit(enc.LowKey))
	}
	if !ko.IsMax(enc.HighKey) {
		miss = miss.Op("||").Id("k").Op(">").Add(g.keyLit(enc.HighKey))
	}
	low := jen.Id(g.keyType()).Call(g.keyLit(enc.LowKey))
	return []jen.Code{
		jen.If(miss).Block(def),
		jen.Id("class").Op(":=").Add(g.intAt(encode.CharClass, g.offset(jen.Id("k"), low))),
		jen.List(jen.Id("lo"), jen.Id("hi")).Op(":=").List(
			g.intAt(encode.TransKeys, jen.Lit(2).Op("*").Id("cs")),
			g.intAt(encode.TransKeys, jen.Lit(2).Op("*").Id("cs").Op("+").Lit(1)),
		),
		jen.If(jen.Id("class").Op("<").Id("lo").Op("||").Id("class").Op(">").Id("hi")).Block(def),
		jen.Return(g.intAt(encode.Indices,
			g.intAt(encode.IndexOffsets, jen.Id("cs")).Op("+").Id("class").Op("-").Id("lo"))),
	}
}

// locateBin searches singles, then ranges, then takes the default entry.
func (g *generator) locateBin() []jen.Code {
	slot := func(entry jen.Code) jen.Code {
		if g.enc.UseIndices {
			return jen.Return(g.intAt(encode.Indices, entry))
		}
		return jen.Return(entry)
	}
	key := func(i jen.Code) *jen.Statement { return g.at(encode.TransKeys, i) }
	id := jen.Id
	return []jen.Code{
		id("keys").Op(":=").Add(g.intAt(encode.KeyOffsets, id("cs"))),
		jen.List(id("ns"), id("nr")).Op(":=").List(
			g.intAt(encode.SingleLengths, id("cs")),
			g.intAt(encode.RangeLengths, id("cs")),
		),
		id("off").Op(":=").Add(g.intAt(encode.IndexOffsets, id("cs"))),
		jen.List(id("lo"), id("hi")).Op(":=").List(id("keys"), id("keys").Op("+").Id("ns").Op("-").Lit(1)),
		jen.For(id("lo").Op("<=").Id("hi")).Block(
			id("mid").Op(":=").Id("lo").Op("+").Parens(id("hi").Op("-").Id("lo")).Op(">>").Lit(1),
			jen.Switch().Block(
				jen.Case(id("k").Op("<").Add(key(id("mid")))).Block(id("hi").Op("=").Id("mid").Op("-").Lit(1)),
				jen.Case(id("k").Op(">").Add(key(id("mid")))).Block(id("lo").Op("=").Id("mid").Op("+").Lit(1)),
				jen.Default().Block(slot(id("off").Op("+").Id("mid").Op("-").Id("keys"))),
			),
		),
		jen.List(id("lo"), id("hi")).Op("=").List(
			id("keys").Op("+").Id("ns"),
			id("keys").Op("+").Id("ns").Op("+").Lit(2).Op("*").Parens(id("nr").Op("-").Lit(1)),
		),
		jen.For(id("lo").Op("<=").Id("hi")).Block(
			id("mid").Op(":=").Id("lo").Op("+").Parens(
				jen.Parens(id("hi").Op("-").Id("lo")).Op(">>").Lit(1).Op("&^").Lit(1)),
			jen.Switch().Block(
				jen.Case(id("k").Op("<").Add(key(id("mid")))).Block(id("hi").Op("=").Id("mid").Op("-").Lit(2)),
				jen.Case(id("k").Op(">").Add(key(id("mid").Op("+").Lit(1)))).Block(id("lo").Op("=").Id("mid").Op("+").Lit(2)),
				jen.Default().Block(slot(id("off").Op("+").Id("ns").Op("+").
					Parens(id("mid").Op("-").Id("keys").Op("-").Id("ns")).Op(">>").Lit(1))),
			),
		),
		slot(id("off").Op("+").Id("ns").Op("+").Id("nr")),
	}
}

// locateSwitch emits a switch over states. Singles become cases of a switch
// over keys, ranges a tree of comparisons. A miss falls through to the
// default of the state.
func (g *generator) locateSwitch() []jen.Code {
	var cases []jen.Code
	for _, ss := range g.enc.Switch {
		var body []jen.Code
		if len(ss.Singles) > 0 {
			var singles []jen.Code
			for _, c := range ss.Singles {
				singles = append(singles, jen.Case(g.keyLit(c.Key)).Block(jen.Return(jen.Lit(c.Trans))))
			}
			body = append(body, jen.Switch(jen.Id("k")).Block(singles...))
		}
		if ss.Ranges != nil {
			body = append(body, g.rangeTree(ss.Ranges)...)
		}
		if ss.Default >= 0 {
			body = append(body, jen.Return(jen.Lit(ss.Default)))
		}
		if len(body) == 0 {
			continue
		}
		cases = append(cases, jen.Case(jen.Lit(ss.State)).Block(body...))
	}
	return []jen.Code{
		jen.Switch(jen.Id("cs")).Block(cases...),
		jen.Return(jen.Lit(-1)),
	}
}

// rangeTree emits the comparisons of a bisection tree node. Code for a
// missing key falls off the end.
func (g *generator) rangeTree(n *encode.RangeNode) []jen.Code {
	hit := []jen.Code{jen.Return(jen.Lit(n.Trans))}
	var check *jen.Statement
	if n.CheckLow {
		check = jen.Id("k").Op(">=").Add(g.keyLit(n.Low))
	}
	if n.CheckHigh {
		c := jen.Id("k").Op("<=").Add(g.keyLit(n.High))
		if check == nil {
			check = c
		} else {
			check = check.Op("&&").Add(c)
		}
	}
	var chain *jen.Statement
	branch := func(cond jen.Code, body []jen.Code) {
		if chain == nil {
			chain = jen.If(cond).Block(body...)
		} else {
			chain = chain.Else().If(cond).Block(body...)
		}
	}
	if n.Lower != nil {
		branch(jen.Id("k").Op("<").Add(g.keyLit(n.Low)), g.rangeTree(n.Lower))
	}
	if n.Higher != nil {
		branch(jen.Id("k").Op(">").Add(g.keyLit(n.High)), g.rangeTree(n.Higher))
	}
	switch {
	case check != nil:
		branch(check, hit)
	case chain == nil:
		return hit
	default:
		chain = chain.Else().Block(hit...)
	}
	return []jen.Code{chain}
}

// --- Conditions ------------------------------------------------------------

// condExec emits cpc, which evaluates the predicates of a condition space
// into a bit set.
func (g *generator) condExec() {
	var spaces []jen.Code
	for id, space := range g.enc.CondSpaces {
		var body []jen.Code
		for bit, c := range space {
			body = append(body, jen.If(jen.Id("m").Dot("cond").Call(jen.Lit(g.conds[c]), jen.Id("p"))).Block(
				jen.Id("v").Op("|=").Lit(1<<bit),
			))
		}
		spaces = append(spaces, jen.Case(jen.Lit(id)).Block(body...))
	}
	g.f.Func().Add(g.recv()).Id("cpc").Params(jen.List(jen.Id("space"), jen.Id("p")).Int()).Int().Block(
		jen.Id("v").Op(":=").Lit(0),
		jen.Switch(jen.Id("space")).Block(spaces...),
		jen.Return(jen.Id("v")),
	)
	g.f.Func().Add(g.recv()).Id("cond").Params(jen.List(jen.Id("c"), jen.Id("p")).Int()).Bool().Block(
		jen.Return(jen.Id("m").Dot("OnCond").Op("!=").Nil().Op("&&").
			Id("m").Dot("OnCond").Call(jen.Id("m"), jen.Id("c"), jen.Id("p"))),
	)
}

// condSearch emits condIndex, a binary search for the condition entry of a
// slot, and take, which follows it.
func (g *generator) condSearch() {
	col := func(base string, i jen.Code) *jen.Statement {
		return g.intAt(g.enc.TransColumn(base), i)
	}
	g.f.Func().Add(g.recv()).Id("condIndex").Params(jen.List(jen.Id("slot"), jen.Id("p")).Int()).Int().Block(
		jen.Id("off").Op(":=").Add(col(encode.TransOffsets, jen.Id("slot"))),
		jen.Id("space").Op(":=").Add(col(encode.TransCondSpaces, jen.Id("slot"))),
		jen.If(jen.Id("space").Op("<").Lit(0)).Block(jen.Return(jen.Id("off"))),
		jen.Id("v").Op(":=").Id("m").Dot("cpc").Call(jen.Id("space"), jen.Id("p")),
		jen.List(jen.Id("lo"), jen.Id("hi")).Op(":=").List(
			jen.Id("off"),
			jen.Id("off").Op("+").Add(col(encode.TransLengths, jen.Id("slot"))).Op("-").Lit(1),
		),
		jen.For(jen.Id("lo").Op("<=").Id("hi")).Block(
			jen.Id("mid").Op(":=").Id("lo").Op("+").Parens(jen.Id("hi").Op("-").Id("lo")).Op(">>").Lit(1),
			jen.Id("key").Op(":=").Add(g.intAt(encode.CondKeys, jen.Id("mid"))),
			jen.Switch().Block(
				jen.Case(jen.Id("v").Op("<").Id("key")).Block(jen.Id("hi").Op("=").Id("mid").Op("-").Lit(1)),
				jen.Case(jen.Id("v").Op(">").Id("key")).Block(jen.Id("lo").Op("=").Id("mid").Op("+").Lit(1)),
				jen.Default().Block(jen.Return(jen.Id("mid"))),
			),
		),
		jen.Return(jen.Lit(g.enc.ErrCondOffset)),
	)
	g.f.Func().Add(g.recv()).Id("take").Params(g.scanParams()...).Int().Block(
		jen.Id("c").Op(":=").Id("m").Dot("condIndex").Call(jen.Id("slot"), jen.Op("*").Id("p")),
		cs().Op("=").Add(g.intAt(encode.CondTargs, jen.Id("c"))),
		jen.If(
			jen.Id("a").Op(":=").Add(g.intAt(encode.CondActions, jen.Id("c"))),
			jen.Id("a").Op("!=").Lit(0),
		).Block(jen.Return(jen.Id("m").Dot("runActions").Call(jen.Id("a"), jen.Id("data"), jen.Id("p")))),
		jen.Return(jen.Lit(ctlNext)),
	)
}

// scanParams are the parameters of take: slot, data and position.
func (g *generator) scanParams() []jen.Code {
	return []jen.Code{
		jen.Id("slot").Int(),
		jen.Id("data").Index().Id(g.keyType()),
		jen.Id("p").Op("*").Int(),
	}
}

// dataParams are the parameters of methods which may run actions.
func (g *generator) dataParams() []jen.Code {
	return []jen.Code{
		jen.Id("data").Index().Id(g.keyType()),
		jen.Id("p").Op("*").Int(),
	}
}

// --- Actions ---------------------------------------------------------------

// actionRunner emits runActions, a switch over action IDs. It returns the
// control code for the driver.
func (g *generator) actionRunner() {
	var cases []jen.Code
	for _, a := range g.enc.Actions {
		body := append([]jen.Code{jen.Comment(a.Name)}, g.action(a)...)
		cases = append(cases, jen.Case(jen.Lit(a.ID)).Block(body...))
	}
	g.f.Comment("runActions executes the action list at location loc. Inline code sees")
	g.f.Comment("the machine m, the input chunk data and the position pointer p.")
	g.f.Func().Add(g.recv()).Id("runActions").Params(
		append([]jen.Code{jen.Id("loc").Int()}, g.dataParams()...)...,
	).Int().Block(
		jen.Id("n").Op(":=").Add(g.intAt(encode.Actions, jen.Id("loc"))),
		jen.For(
			jen.Id("i").Op(":=").Id("loc").Op("+").Lit(1),
			jen.Id("i").Op("<=").Id("loc").Op("+").Id("n"),
			jen.Id("i").Op("++"),
		).Block(
			jen.Switch(g.intAt(encode.Actions, jen.Id("i"))).Block(cases...),
		),
		jen.Return(jen.Lit(ctlNext)),
	)
}

func (g *generator) action(a encode.ActionInfo) []jen.Code {
	panicf := func(msg string) jen.Code {
		return jen.Panic(jen.Lit(fmt.Sprintf("%s: %s in action %s", g.opts.Prefix, msg, a.Name)))
	}
	switch a.Kind {
	case redfsm.Hold:
		return []jen.Code{jen.Parens(jen.Op("*").Id("p")).Op("--")}
	case redfsm.Next:
		return []jen.Code{cs().Op("=").Lit(a.Target)}
	case redfsm.Goto:
		return []jen.Code{cs().Op("=").Lit(a.Target), jen.Return(jen.Lit(ctlAgain))}
	case redfsm.Call:
		return []jen.Code{
			jen.If(jen.Id("m").Dot("top").Op("==").Len(jen.Id("m").Dot("stack"))).Block(panicf("call stack overflow")),
			jen.Id("m").Dot("stack").Index(jen.Id("m").Dot("top")).Op("=").Add(cs()),
			jen.Id("m").Dot("top").Op("++"),
			cs().Op("=").Lit(a.Target),
			jen.Return(jen.Lit(ctlAgain)),
		}
	case redfsm.Ret:
		return []jen.Code{
			jen.If(jen.Id("m").Dot("top").Op("==").Lit(0)).Block(panicf("call stack underflow")),
			jen.Id("m").Dot("top").Op("--"),
			cs().Op("=").Id("m").Dot("stack").Index(jen.Id("m").Dot("top")),
			jen.Return(jen.Lit(ctlAgain)),
		}
	case redfsm.Break:
		return []jen.Code{jen.Parens(jen.Op("*").Id("p")).Op("++"), jen.Return(jen.Lit(ctlBreak))}
	}
	if a.Code != "" {
		return []jen.Code{jen.Op(a.Code)}
	}
	return []jen.Code{
		jen.If(jen.Id("m").Dot("OnAction").Op("!=").Nil()).Block(
			jen.Id("m").Dot("OnAction").Call(jen.Id("m"), jen.Lit(a.ID), jen.Op("*").Id("p")),
		),
	}
}

// stateActions emits a method running the action list of the current state
// from a column. Without the column the method does nothing.
func (g *generator) stateActions(method, col string, again bool) {
	var body []jen.Code
	if g.enc.Has(col) {
		run := jen.Id("m").Dot("runActions").Call(jen.Id("a"), jen.Id("data"), jen.Id("p"))
		var do jen.Code = jen.Return(run)
		if again {
			// control transfers of to-state actions do not skip anything
			do = jen.If(run.Op("==").Lit(ctlBreak)).Block(jen.Return(jen.Lit(ctlBreak)))
		}
		body = append(body, jen.If(
			jen.Id("a").Op(":=").Add(g.intAt(col, cs())),
			jen.Id("a").Op("!=").Lit(0),
		).Block(do))
	}
	body = append(body, jen.Return(jen.Lit(ctlNext)))
	g.f.Func().Add(g.recv()).Id(method).Params(g.dataParams()...).Int().Block(body...)
}

// --- EOF and NFA -----------------------------------------------------------

// eof emits the state action methods and atEOF, which processes the end of
// input.
func (g *generator) eof() {
	g.stateActions("from", encode.FromStateActions, false)
	g.stateActions("again", encode.ToStateActions, true)
	if !g.enc.HasEOF {
		return
	}
	args := []jen.Code{jen.Id("data"), jen.Id("p")}
	var guard jen.Code = jen.Id("a").Op("!=").Lit(0)
	if g.enc.Has(encode.EOFCondSpaces) {
		guard = jen.Id("a").Op("!=").Lit(0).Op("&&").Id("m").Dot("eofCond").Call(jen.Op("*").Id("p"))
		g.eofCond()
	}
	g.f.Comment("atEOF takes the EOF transition of the current state if it has one, and")
	g.f.Comment("runs its EOF actions otherwise. It returns true if a transition was taken;")
	g.f.Comment("the scan then resumes in the target state.")
	g.f.Func().Add(g.recv()).Id("atEOF").Params(g.dataParams()...).Bool().Block(
		jen.If(
			jen.Id("t").Op(":=").Add(g.intAt(encode.EOFTrans, cs())),
			jen.Id("t").Op(">").Lit(0),
		).Block(
			jen.Id("m").Dot("take").Call(append([]jen.Code{jen.Id("t").Op("-").Lit(1)}, args...)...),
			jen.Id("m").Dot("again").Call(args...),
			jen.If(jen.Op("*").Id("p").Op("<").Lit(0)).Block(
				jen.Op("*").Id("p").Op("=").Lit(0),
			).Else().If(jen.Op("*").Id("p").Op(">").Id("m").Dot("pe")).Block(
				jen.Op("*").Id("p").Op("=").Id("m").Dot("pe"),
			),
			jen.Return(jen.True()),
		),
		jen.If(
			jen.Id("a").Op(":=").Add(g.intAt(encode.EOFActions, cs())),
			guard,
		).Block(
			jen.Id("m").Dot("runActions").Call(append([]jen.Code{jen.Id("a")}, args...)...),
		),
		jen.Op("*").Id("p").Op("=").Id("m").Dot("pe"),
		jen.Return(jen.False()),
	)
}

func (g *generator) eofCond() {
	g.f.Func().Add(g.recv()).Id("eofCond").Params(jen.Id("p").Int()).Bool().Block(
		jen.Id("space").Op(":=").Add(g.intAt(encode.EOFCondSpaces, cs())),
		jen.If(jen.Id("space").Op("<").Lit(0)).Block(jen.Return(jen.True())),
		jen.Id("v").Op(":=").Id("m").Dot("cpc").Call(jen.Id("space"), jen.Id("p")),
		jen.Id("off").Op(":=").Add(g.intAt(encode.EOFCondKeyOffs, cs())),
		jen.Id("n").Op(":=").Add(g.intAt(encode.EOFCondKeyLens, cs())),
		jen.For(jen.Id("i").Op(":=").Id("off"), jen.Id("i").Op("<").Id("off").Op("+").Id("n"), jen.Id("i").Op("++")).Block(
			jen.If(g.intAt(encode.EOFCondKeys, jen.Id("i")).Op("==").Id("v")).Block(jen.Return(jen.True())),
		),
		jen.Return(jen.False()),
	)
}

// nfa emits nfaPush and nfaPop for machines with NFA alternates.
func (g *generator) nfa() {
	if !g.hasNFA() {
		return
	}
	overflow := fmt.Sprintf("%s: NFA stack overflow", g.opts.Prefix)
	g.f.Comment("nfaPush pushes the NFA alternates of the current state. After a")
	g.f.Comment("suspension they have been pushed already.")
	g.f.Func().Add(g.recv()).Id("nfaPush").Params(jen.Id("data").Index().Id(g.keyType()), jen.Id("p").Int()).Block(
		jen.If(jen.Id("m").Dot("resumed")).Block(
			jen.Id("m").Dot("resumed").Op("=").False(),
			jen.Return(),
		),
		jen.Id("off").Op(":=").Add(g.intAt(encode.NFAOffsets, cs())),
		jen.If(jen.Id("off").Op("==").Lit(0)).Block(jen.Return()),
		jen.Id("n").Op(":=").Add(g.intAt(encode.NFATargs, jen.Id("off"))),
		jen.For(
			jen.Id("i").Op(":=").Id("off").Op("+").Lit(1),
			jen.Id("i").Op("<=").Id("off").Op("+").Id("n"),
			jen.Id("i").Op("++"),
		).Block(
			jen.If(jen.Len(jen.Id("m").Dot("nfa")).Op("==").Lit(g.opts.NFADepth)).Block(
				jen.Panic(jen.Lit(overflow)),
			),
			jen.Id("m").Dot("nfa").Op("=").Append(jen.Id("m").Dot("nfa"), jen.Id(g.name("frame")).Values(
				g.intAt(encode.NFATargs, jen.Id("i")),
				jen.Id("m").Dot("base").Op("+").Id("p"),
				g.intAt(encode.NFAPopTrans, jen.Id("i")),
			)),
			jen.If(
				jen.Id("a").Op(":=").Add(g.intAt(encode.NFAPushActions, jen.Id("i"))),
				jen.Id("a").Op("!=").Lit(0),
			).Block(
				jen.Id("m").Dot("runActions").Call(jen.Id("a"), jen.Id("data"), jen.Op("&").Id("p")),
			),
		),
	)
	rejected := []jen.Code{}
	if g.hasError() {
		rejected = append(rejected, cs().Op("=").Id(g.name("error")))
	}
	rejected = append(rejected, jen.Id("m").Dot("ended").Call(jen.Op("*").Id("p")))
	loop := []jen.Code{
		jen.Id("f").Op(":=").Id("m").Dot("nfa").Index(jen.Len(jen.Id("m").Dot("nfa")).Op("-").Lit(1)),
		jen.Id("m").Dot("nfa").Op("=").Id("m").Dot("nfa").Index(jen.Empty(), jen.Len(jen.Id("m").Dot("nfa")).Op("-").Lit(1)),
		jen.If(jen.Id("f").Dot("pos").Op("<").Id("m").Dot("base")).Block(
			jen.Panic(jen.Lit(fmt.Sprintf("%s: NFA alternate before current chunk", g.opts.Prefix))),
		),
		jen.List(cs(), jen.Op("*").Id("p")).Op("=").List(jen.Id("f").Dot("cs"), jen.Id("f").Dot("pos").Op("-").Id("m").Dot("base")),
		jen.Id("m").Dot("rejected").Op("=").False(),
		jen.If(jen.Id("f").Dot("pop").Op("!=").Lit(0)).Block(
			jen.Id("m").Dot("runActions").Call(jen.Id("f").Dot("pop"), jen.Id("data"), jen.Id("p")),
		),
		jen.If(jen.Op("!").Id("m").Dot("rejected")).Block(jen.Return(jen.True())),
	}
	loop = append(loop, rejected...)
	g.f.Comment("nfaPop continues with the latest pending alternate whose pop test passes.")
	g.f.Func().Add(g.recv()).Id("nfaPop").Params(g.dataParams()...).Bool().Block(
		jen.For(jen.Len(jen.Id("m").Dot("nfa")).Op(">").Lit(0)).Block(loop...),
		jen.Return(jen.False()),
	)
}
