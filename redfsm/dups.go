package redfsm

import (
	"fmt"
	"strings"

	"github.com/cnf/structhash"
	"github.com/npillmayer/gorgel"
)

// actionPrint is what makes two actions identical. Actions without code are
// dispatched by name, so for them the name is part of the identity.
type actionPrint struct {
	Kind   int
	Code   string
	Name   string
	Target int
}

func fingerprint(v interface{}) string {
	h, err := structhash.Hash(v, 1)
	if err != nil {
		panic(fmt.Sprintf("redfsm.fingerprint: %v", err))
	}
	return h
}

// RemoveDups merges actions with identical code, then action lists, condition
// targets and transitions which became identical by that. Finally it assigns
// the locations of action lists within the 'actions' table: location 0 is
// reserved, every list occupies 1+len(list) cells (count, then action IDs).
//
// RemoveDups is idempotent. Build calls it.
func (g *Graph) RemoveDups() {
	canon := make(map[string]*Action)
	replace := make(map[*Action]*Action)
	for _, a := range g.Actions {
		p := actionPrint{Kind: int(a.Kind), Code: a.Code, Target: -1}
		if a.Code == "" {
			p.Name = a.Name
		}
		if a.Target != nil {
			p.Target = int(a.Target.ID)
		}
		fp := fingerprint(p)
		if c, ok := canon[fp]; ok {
			tracer().Debugf("action %s is a duplicate of %s", a.Name, c.Name)
			replace[a] = c
			continue
		}
		canon[fp] = a
	}
	//
	lists := make(map[string]*ActionList)
	listRepl := make(map[*ActionList]*ActionList)
	var keptLists []*ActionList
	for _, al := range g.ActionLists {
		ids := make([]int, len(al.Actions))
		for i, a := range al.Actions {
			if c, ok := replace[a]; ok {
				al.Actions[i] = c
			}
			ids[i] = al.Actions[i].ID
		}
		fp := fingerprint(struct{ IDs []int }{ids})
		if c, ok := lists[fp]; ok {
			listRepl[al] = c
			continue
		}
		lists[fp] = al
		keptLists = append(keptLists, al)
	}
	mapList := func(al *ActionList) *ActionList {
		if c, ok := listRepl[al]; ok {
			return c
		}
		return al
	}
	//
	conds := make(map[string]*CondTarget)
	condRepl := make(map[*CondTarget]*CondTarget)
	var keptConds []*CondTarget
	for _, ct := range g.CondTargets {
		ct.Action = mapList(ct.Action)
		key := fmt.Sprintf("%d/%d", ct.Targ.ID, listID(ct.Action))
		if c, ok := conds[key]; ok {
			condRepl[ct] = c
			continue
		}
		conds[key] = ct
		keptConds = append(keptConds, ct)
	}
	//
	trans := make(map[string]*Trans)
	transRepl := make(map[*Trans]*Trans)
	var keptTrans []*Trans
	for _, t := range g.Trans {
		var b strings.Builder
		if t.Space != nil {
			fmt.Fprintf(&b, "s%d:", t.Space.ID)
		}
		for i, p := range t.Outs {
			if c, ok := condRepl[p.Cond]; ok {
				t.Outs[i].Cond = c
			}
			fmt.Fprintf(&b, "%d=%p,", p.Value, t.Outs[i].Cond)
		}
		if c, ok := trans[b.String()]; ok {
			transRepl[t] = c
			continue
		}
		trans[b.String()] = t
		keptTrans = append(keptTrans, t)
	}
	mapTrans := func(t *Trans) *Trans {
		if c, ok := transRepl[t]; ok {
			return c
		}
		return t
	}
	//
	for _, s := range g.States {
		for i := range s.Singles {
			s.Singles[i].Trans = mapTrans(s.Singles[i].Trans)
		}
		for i := range s.Ranges {
			s.Ranges[i].Trans = mapTrans(s.Ranges[i].Trans)
		}
		if s.Default != nil {
			s.Default = mapTrans(s.Default)
		}
		if s.EOFTrans != nil {
			s.EOFTrans = mapTrans(s.EOFTrans)
		}
		s.ToState = mapList(s.ToState)
		s.FromState = mapList(s.FromState)
		s.EOF = mapList(s.EOF)
		for i := range s.NFA {
			s.NFA[i].Push = mapList(s.NFA[i].Push)
			s.NFA[i].PopTest = mapList(s.NFA[i].PopTest)
		}
	}
	if g.errTrans != nil {
		g.errTrans = mapTrans(g.errTrans)
	}
	if c, ok := condRepl[g.errCond]; ok {
		g.errCond = c
	}
	g.ActionLists, g.CondTargets, g.Trans = keptLists, keptConds, keptTrans
	for i, al := range g.ActionLists {
		al.ID = i
	}
	for i, ct := range g.CondTargets {
		ct.ID = i
	}
	for i, t := range g.Trans {
		t.ID = i
	}
	loc := gorgel.ActionID(1)
	for _, al := range g.ActionLists {
		al.Location = loc
		loc += gorgel.ActionID(1 + len(al.Actions))
	}
}

func listID(al *ActionList) int {
	if al == nil {
		return -1
	}
	return al.ID
}
