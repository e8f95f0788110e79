package encode

import (
	"github.com/npillmayer/gorgel/redfsm"
	"github.com/npillmayer/gorgel/tables"
)

// binEncoder lays out sorted keys per state, searched by bisection.
//
// trans_keys holds, starting at key_offsets[s], the single keys of state s
// followed by (low, high) pairs of its ranges. The transition row of s starts
// at index_offsets[s]: one entry per single, one per range, and one for the
// default if the state has one. With indices, row entries are looked up in
// 'indices' to find the slot; without, the row entry is the slot.
type binEncoder struct{}

func (binEncoder) Kind() Kind { return Bin }

func rowLength(s *redfsm.State) int {
	n := len(s.Singles) + len(s.Ranges)
	if s.Default != nil {
		n++
	}
	return n
}

func forRow(s *redfsm.State, f func(t *redfsm.Trans)) {
	for _, sg := range s.Singles {
		f(sg.Trans)
	}
	for _, r := range s.Ranges {
		f(r.Trans)
	}
	if s.Default != nil {
		f(s.Default)
	}
}

func (be binEncoder) Slots(e *Emitter) []*redfsm.Trans {
	g := e.G
	switch e.Opts.Indices {
	case IndicesOn:
		e.Enc.UseIndices = true
	case IndicesOff:
		e.Enc.UseIndices = false
	default:
		e.Enc.UseIndices = preferIndices(g)
	}
	if e.Enc.UseIndices {
		return g.Trans
	}
	var slots []*redfsm.Trans
	for _, s := range g.States {
		forRow(s, func(t *redfsm.Trans) {
			slots = append(slots, t)
		})
	}
	return slots
}

// preferIndices estimates both layouts and reports whether addressing
// transitions through 'indices' is smaller. Transitions cost three columns
// each, their width estimated from the number of condition entries.
func preferIndices(g *redfsm.Graph) bool {
	entries, outs := 0, 0
	for _, s := range g.States {
		entries += rowLength(s)
	}
	for _, t := range g.Trans {
		outs += len(t.Outs)
	}
	transCost := 1 + 2*tables.SelectType(0, int64(outs), false).Size
	with := entries*tables.SelectType(0, int64(len(g.Trans)), false).Size + len(g.Trans)*transCost
	without := entries * transCost
	tracer().Debugf("%s: indices cost %d bytes, direct rows cost %d bytes", g.Name, with, without)
	return with < without
}

func (be binEncoder) KeyColumns(e *Emitter) error {
	g := e.G
	if err := e.Add(KeyOffsets, func(emit func(int64)) {
		off := 0
		for _, s := range g.States {
			emit(int64(off))
			off += len(s.Singles) + 2*len(s.Ranges)
		}
	}); err != nil {
		return err
	}
	if err := e.Add(SingleLengths, func(emit func(int64)) {
		for _, s := range g.States {
			emit(int64(len(s.Singles)))
		}
	}); err != nil {
		return err
	}
	if err := e.Add(RangeLengths, func(emit func(int64)) {
		for _, s := range g.States {
			emit(int64(len(s.Ranges)))
		}
	}); err != nil {
		return err
	}
	if err := e.Add(IndexOffsets, func(emit func(int64)) {
		off := 0
		for _, s := range g.States {
			emit(int64(off))
			off += rowLength(s)
		}
	}); err != nil {
		return err
	}
	if err := e.Add(TransKeys, func(emit func(int64)) {
		for _, s := range g.States {
			for _, sg := range s.Singles {
				emit(int64(sg.Key))
			}
			for _, r := range s.Ranges {
				emit(int64(r.Low))
				emit(int64(r.High))
			}
		}
	}, fixedKeys(e)); err != nil {
		return err
	}
	if !e.Enc.UseIndices {
		return nil
	}
	return e.Add(Indices, func(emit func(int64)) {
		for _, s := range g.States {
			forRow(s, func(t *redfsm.Trans) {
				emit(int64(e.SlotOf(t)))
			})
		}
	})
}
