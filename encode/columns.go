package encode

import (
	"fmt"

	"github.com/npillmayer/gorgel/redfsm"
	"github.com/npillmayer/gorgel/tables"
)

// Columns shared by all strategies.

func spaceID(cs *redfsm.CondSpace) int64 {
	if cs == nil {
		return -1
	}
	return int64(cs.ID)
}

// transColumns emits, per slot, the condition space, the offset into the
// condition columns and the number of condition entries.
func (e *Emitter) transColumns() error {
	enc := e.Enc
	if err := e.Add(enc.TransColumn(TransCondSpaces), func(emit func(int64)) {
		for _, t := range e.slots {
			emit(spaceID(t.Space))
		}
	}, tables.Signed()); err != nil {
		return err
	}
	if err := e.Add(enc.TransColumn(TransOffsets), func(emit func(int64)) {
		off := 0
		for _, t := range e.slots {
			emit(int64(off))
			off += len(t.Outs)
		}
	}); err != nil {
		return err
	}
	return e.Add(enc.TransColumn(TransLengths), func(emit func(int64)) {
		for _, t := range e.slots {
			emit(int64(len(t.Outs)))
		}
	})
}

// condColumns emits the condition entries of all slots, followed by one
// entry leading into the error state. A failed condition search resolves to
// this entry.
func (e *Emitter) condColumns() error {
	errTarg := int64(0)
	if e.G.Error != nil {
		errTarg = int64(e.G.Error.ID)
	}
	n := 0
	for _, t := range e.slots {
		n += len(t.Outs)
	}
	e.Enc.ErrCondOffset = n
	if err := e.Add(CondKeys, func(emit func(int64)) {
		for _, t := range e.slots {
			for _, o := range t.Outs {
				emit(int64(o.Value))
			}
		}
		emit(0)
	}); err != nil {
		return err
	}
	if err := e.Add(CondTargs, func(emit func(int64)) {
		for _, t := range e.slots {
			for _, o := range t.Outs {
				emit(int64(o.Cond.Targ.ID))
			}
		}
		emit(errTarg)
	}); err != nil {
		return err
	}
	return e.Add(CondActions, func(emit func(int64)) {
		for _, t := range e.slots {
			for _, o := range t.Outs {
				emit(int64(o.Cond.Action.Loc()))
			}
		}
		emit(0)
	})
}

func (e *Emitter) stateActionColumns() error {
	var hasTo, hasFrom bool
	for _, s := range e.G.States {
		hasTo = hasTo || s.ToState != nil
		hasFrom = hasFrom || s.FromState != nil
	}
	if hasTo {
		if err := e.Add(ToStateActions, func(emit func(int64)) {
			for _, s := range e.G.States {
				emit(int64(s.ToState.Loc()))
			}
		}); err != nil {
			return err
		}
	}
	if hasFrom {
		return e.Add(FromStateActions, func(emit func(int64)) {
			for _, s := range e.G.States {
				emit(int64(s.FromState.Loc()))
			}
		})
	}
	return nil
}

// eofColumns emits EOF actions and EOF transitions. EOF transitions are
// stored as slot+1, so 0 means "none".
func (e *Emitter) eofColumns() error {
	if !e.Enc.HasEOF {
		return nil
	}
	g := e.G
	if err := e.Add(EOFActions, func(emit func(int64)) {
		for _, s := range g.States {
			emit(int64(s.EOF.Loc()))
		}
	}); err != nil {
		return err
	}
	if err := e.Add(EOFTrans, func(emit func(int64)) {
		for _, s := range g.States {
			if slot, ok := e.eofSlot[s]; ok {
				emit(int64(slot + 1))
			} else {
				emit(0)
			}
		}
	}); err != nil {
		return err
	}
	if !e.Enc.HasEOFConds {
		return nil
	}
	if err := e.Add(EOFCondSpaces, func(emit func(int64)) {
		for _, s := range g.States {
			emit(spaceID(s.EOFCondSpace))
		}
	}, tables.Signed()); err != nil {
		return err
	}
	if err := e.Add(EOFCondKeyOffs, func(emit func(int64)) {
		off := 0
		for _, s := range g.States {
			emit(int64(off))
			off += len(s.EOFCondKeys)
		}
	}); err != nil {
		return err
	}
	if err := e.Add(EOFCondKeyLens, func(emit func(int64)) {
		for _, s := range g.States {
			emit(int64(len(s.EOFCondKeys)))
		}
	}); err != nil {
		return err
	}
	return e.Add(EOFCondKeys, func(emit func(int64)) {
		for _, s := range g.States {
			for _, v := range s.EOFCondKeys {
				emit(int64(v))
			}
		}
	})
}

// actionsColumn emits all action lists: location 0 holds a 0, then every
// list as count followed by action IDs.
func (e *Emitter) actionsColumn() error {
	pos := 1
	for _, al := range e.G.ActionLists {
		if int(al.Location) != pos {
			panic(fmt.Sprintf("encode.actionsColumn: action list %d at location %d, expected %d",
				al.ID, al.Location, pos))
		}
		pos += 1 + len(al.Actions)
	}
	return e.Add(Actions, func(emit func(int64)) {
		emit(0)
		for _, al := range e.G.ActionLists {
			emit(int64(len(al.Actions)))
			for _, a := range al.Actions {
				emit(int64(a.ID))
			}
		}
	})
}

// nfaColumns emits the NFA alternates. nfa_offsets points to a count cell in
// nfa_targs, followed by the targets. Push actions and pop tests run
// parallel to nfa_targs. Offset 0 is a count of 0 for states without
// alternates.
func (e *Emitter) nfaColumns() error {
	if !e.Enc.HasNFA {
		return nil
	}
	g := e.G
	if err := e.Add(NFAOffsets, func(emit func(int64)) {
		off := 1
		for _, s := range g.States {
			if len(s.NFA) == 0 {
				emit(0)
				continue
			}
			emit(int64(off))
			off += 1 + len(s.NFA)
		}
	}); err != nil {
		return err
	}
	parallel := func(name string, v func(redfsm.NFATarget) int64) error {
		return e.Add(name, func(emit func(int64)) {
			emit(0)
			for _, s := range g.States {
				if len(s.NFA) == 0 {
					continue
				}
				if name == NFATargs {
					emit(int64(len(s.NFA)))
				} else {
					emit(0)
				}
				for _, n := range s.NFA {
					emit(v(n))
				}
			}
		})
	}
	if err := parallel(NFATargs, func(n redfsm.NFATarget) int64 { return int64(n.Targ.ID) }); err != nil {
		return err
	}
	if err := parallel(NFAPushActions, func(n redfsm.NFATarget) int64 { return int64(n.Push.Loc()) }); err != nil {
		return err
	}
	return parallel(NFAPopTrans, func(n redfsm.NFATarget) int64 { return int64(n.PopTest.Loc()) })
}
