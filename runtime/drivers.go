package runtime

// execGoto moves between phases with goto.
func (m *Machine) execGoto() (Result, error) {
	var c ctl
	var err error
	var popped, fired bool

_resume:
	if err = m.nfaPush(); err != nil {
		return m.result(), err
	}
	if m.p == m.pe {
		goto _test_eof
	}
	if m.InError() {
		goto _out
	}
	if c, err = m.resume(); err != nil {
		return m.result(), err
	}
	if c == ctlBreak {
		return m.broke()
	}
	if c, err = m.again(); err != nil {
		return m.result(), err
	}
	if c == ctlBreak {
		return m.broke()
	}
	if m.InError() {
		goto _out
	}
	m.p++
	goto _resume

_test_eof:
	if !m.eof {
		return m.suspend()
	}
	if fired, err = m.eofStep(); err != nil {
		return m.result(), err
	}
	if fired {
		goto _resume
	}

_out:
	if popped, err = m.out(); err != nil {
		return m.result(), err
	}
	if popped {
		goto _resume
	}
	return m.finish()
}

// Phases for the break driver.
const (
	phResume = iota
	phTestEOF
	phOut
)

// execBreak moves between phases with a labelled loop over a switch.
func (m *Machine) execBreak() (Result, error) {
	phase := phResume
	var res Result
	var err error
_goto:
	for {
		switch phase {
		case phResume:
			if err = m.nfaPush(); err != nil {
				break _goto
			}
			if m.p == m.pe {
				phase = phTestEOF
				continue _goto
			}
			if m.InError() {
				phase = phOut
				continue _goto
			}
			c, e := m.resume()
			if e != nil {
				err = e
				break _goto
			}
			if c == ctlBreak {
				res, err = m.broke()
				return res, err
			}
			if c, err = m.again(); err != nil {
				break _goto
			}
			if c == ctlBreak {
				res, err = m.broke()
				return res, err
			}
			if m.InError() {
				phase = phOut
				continue _goto
			}
			m.p++
		case phTestEOF:
			if !m.eof {
				return m.suspend()
			}
			fired, e := m.eofStep()
			if e != nil {
				err = e
				break _goto
			}
			if fired {
				phase = phResume
				continue _goto
			}
			phase = phOut
		case phOut:
			popped, e := m.out()
			if e != nil {
				err = e
				break _goto
			}
			if popped {
				phase = phResume
				continue _goto
			}
			return m.finish()
		}
	}
	return m.result(), err
}

// execVar moves between phases with flags only.
func (m *Machine) execVar() (Result, error) {
	var err error
	cont := true
	for cont {
		out := false
		if err = m.nfaPush(); err != nil {
			return m.result(), err
		}
		if m.p == m.pe {
			if !m.eof {
				return m.suspend()
			}
			fired, e := m.eofStep()
			if e != nil {
				return m.result(), e
			}
			out = !fired
		} else if m.InError() {
			out = true
		} else {
			if _, err = m.resume(); err != nil {
				return m.result(), err
			}
			if _, err = m.again(); err != nil {
				return m.result(), err
			}
			if m.InError() {
				out = true
			} else {
				m.p++
			}
		}
		if out {
			if cont, err = m.out(); err != nil {
				return m.result(), err
			}
		}
	}
	return m.finish()
}
