package runtime

import (
	"fmt"

	"github.com/npillmayer/gorgel/redfsm"
	"github.com/npillmayer/schuko/gconf"
)

// Phases of a scan, shared by all driver variants. The variants only decide
// how control moves between them.

// ctl tells a driver how to continue after a list of actions.
type ctl int

const (
	ctlNext  ctl = iota // continue with the current phase
	ctlAgain            // fgoto, fcall, fret: skip to the to-state actions
	ctlBreak            // fbreak: return to the caller
)

// runList executes the action list at location loc of the 'actions' table.
func (m *Machine) runList(loc int64) (ctl, error) {
	a := m.cols.actions
	n := int(a[loc])
	for i := 1; i <= n; i++ {
		id := int(a[int(loc)+i])
		act := &m.enc.Actions[id]
		m.record(ActionEvent, m.cs, id)
		switch act.Kind {
		case redfsm.Hook:
			if f := m.actions[id]; f != nil {
				f(m)
			}
		case redfsm.Hold:
			m.p--
		case redfsm.Next:
			m.cs = act.Target
		case redfsm.Goto:
			m.cs = act.Target
			return ctlAgain, nil
		case redfsm.Call:
			if !m.stack.Push(Frame{State: m.cs}) {
				return ctlNext, fmt.Errorf("fcall %s at %d: %w", act.Name, m.Pos(), ErrStackOverflow)
			}
			m.cs = act.Target
			return ctlAgain, nil
		case redfsm.Ret:
			f, ok := m.stack.Pop()
			if !ok {
				return ctlNext, fmt.Errorf("fret %s at %d: %w", act.Name, m.Pos(), ErrStackUnderflow)
			}
			m.cs = f.State
			return ctlAgain, nil
		case redfsm.Break:
			m.p++
			return ctlBreak, nil
		}
	}
	return ctlNext, nil
}

// stateActions runs the action list of the current state from a column.
func (m *Machine) stateActions(col []int64) (ctl, error) {
	if col == nil || col[m.cs] == 0 {
		return ctlNext, nil
	}
	return m.runList(col[m.cs])
}

// nfaPush pushes the NFA alternates of the current state. After a
// suspension they have been pushed already.
func (m *Machine) nfaPush() error {
	if m.resumed {
		m.resumed = false
		return nil
	}
	if m.cols.nfaOffsets == nil || m.cols.nfaOffsets[m.cs] == 0 {
		return nil
	}
	off := int(m.cols.nfaOffsets[m.cs])
	n := int(m.cols.nfaTargs[off])
	for i := off + 1; i <= off+n; i++ {
		f := Frame{
			State:    int(m.cols.nfaTargs[i]),
			Pos:      m.Pos(),
			PopTrans: int(m.cols.nfaPopTrans[i]),
		}
		if !m.nfa.Push(f) {
			err := fmt.Errorf("state %d at %d: %w", m.cs, m.Pos(), ErrNFAOverflow)
			if gconf.GetBool("panic-on-nfa-overflow") {
				panic(fmt.Sprintf("runtime.nfaPush: %v", err))
			}
			return err
		}
		m.record(PushEvent, f.State, 0)
		if push := m.cols.nfaPushActions[i]; push != 0 {
			if _, err := m.runList(push); err != nil {
				return err
			}
		}
	}
	return nil
}

// condIndex evaluates the condition space of a slot and returns the index of
// the matching condition entry. A miss yields the error entry.
func (m *Machine) condIndex(slot int) int {
	c := &m.cols
	off, n := int(c.transOffsets[slot]), int(c.transLengths[slot])
	space := c.transCondSpaces[slot]
	if space < 0 {
		return off
	}
	cpc := m.cpc(int(space))
	lo, hi := off, off+n-1
	for lo <= hi {
		mid := lo + ((hi - lo) >> 1)
		switch {
		case cpc < c.condKeys[mid]:
			hi = mid - 1
		case cpc > c.condKeys[mid]:
			lo = mid + 1
		default:
			return mid
		}
	}
	return m.enc.ErrCondOffset
}

// cpc evaluates the predicates of a condition space in order, setting bit i
// for a true predicate i.
func (m *Machine) cpc(space int) int64 {
	var v int64
	for i, f := range m.conds[space] {
		if f(m) {
			v |= 1 << i
		}
	}
	return v
}

// take follows a transition slot: evaluate conditions, set the target and
// run the transition's actions.
func (m *Machine) take(slot int) (ctl, error) {
	ci := m.condIndex(slot)
	m.cs = int(m.cols.condTargs[ci])
	loc := m.cols.condActions[ci]
	m.record(TransEvent, m.cs, int(loc))
	if loc == 0 {
		return ctlNext, nil
	}
	return m.runList(loc)
}

// resume runs the from-state actions and the transition for the current key.
func (m *Machine) resume() (ctl, error) {
	c, err := m.stateActions(m.cols.fromStateActions)
	if err != nil || c != ctlNext {
		return c, err
	}
	return m.take(m.locate(m.cs, m.data[m.p]))
}

// again runs the to-state actions.
func (m *Machine) again() (ctl, error) {
	c, err := m.stateActions(m.cols.toStateActions)
	if c == ctlAgain {
		c = ctlNext
	}
	return c, err
}

// eofStep processes the end of input: the EOF transition of the current
// state if it has one, its EOF actions otherwise. It returns true if a
// transition was taken, in which case the scan resumes in the target state,
// at the end of the chunk or at a position held back by the transition.
func (m *Machine) eofStep() (bool, error) {
	m.record(EOFEvent, m.cs, 0)
	c := &m.cols
	if c.eofTrans != nil && c.eofTrans[m.cs] > 0 {
		if _, err := m.take(int(c.eofTrans[m.cs] - 1)); err != nil {
			return true, err
		}
		_, err := m.again()
		switch {
		case m.p < 0: // fhold at the start of a chunk
			m.p = 0
		case m.p > m.pe: // fbreak has no effect at EOF
			m.p = m.pe
		}
		return true, err
	}
	defer func() { m.p = m.pe }()
	if c.eofActions == nil || c.eofActions[m.cs] == 0 || !m.eofCondHolds() {
		return false, nil
	}
	_, err := m.runList(c.eofActions[m.cs])
	return false, err
}

// eofCondHolds checks the EOF condition guard of the current state.
func (m *Machine) eofCondHolds() bool {
	c := &m.cols
	if c.eofCondSpaces == nil || c.eofCondSpaces[m.cs] < 0 {
		return true
	}
	cpc := m.cpc(int(c.eofCondSpaces[m.cs]))
	off, n := int(c.eofCondKeyOffs[m.cs]), int(c.eofCondKeyLens[m.cs])
	for _, v := range c.eofCondKeys[off : off+n] {
		if v == cpc {
			return true
		}
	}
	return false
}

// out ends a path. It returns true if an NFA alternate was popped, with
// which the scan continues.
func (m *Machine) out() (bool, error) {
	m.pathEnded()
	for {
		f, ok := m.nfa.Pop()
		if !ok {
			return false, nil
		}
		if f.Pos < m.base {
			return false, fmt.Errorf("alternate at %d, chunk starts at %d: %w", f.Pos, m.base,
				ErrStaleAlternate)
		}
		m.cs, m.p = f.State, int(f.Pos-m.base)
		m.rejected = false
		m.record(PopEvent, m.cs, f.PopTrans)
		if f.PopTrans != 0 {
			if _, err := m.runList(int64(f.PopTrans)); err != nil {
				return false, err
			}
		}
		if !m.rejected {
			return true, nil
		}
		tracer().Debugf("alternate to state %d at %d rejected", f.State, f.Pos)
		if m.enc.Error >= 0 {
			m.cs = m.enc.Error
		}
		m.pathEnded()
	}
}

// pathEnded records acceptance of a path which processed EOF in a final
// state.
func (m *Machine) pathEnded() {
	if m.eof && m.p == m.pe && m.cs >= m.enc.FirstFinal && !m.InError() {
		m.accepted = true
	}
}
