package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/npillmayer/gorgel/alphabet"
	"github.com/npillmayer/gorgel/encode"
	"github.com/npillmayer/gorgel/redfsm"
	"github.com/npillmayer/gorgel/runtime"
	"github.com/npillmayer/gorgel/scanner"
	"github.com/npillmayer/schuko/tracing"
	"github.com/npillmayer/schuko/tracing/gologadapter"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var scanDriver string

var scanCmd = &cobra.Command{
	Use:   "scan <graph.yaml>",
	Short: "Run a state machine interactively",
	Long: `Run a state machine interactively. Every input line is scanned from the
start state to EOF. Lines starting with ':' are commands:

  :feed <text>      scan text as a chunk, without EOF
  :keys <k1, k2…>   scan keys given as key expressions, without EOF
  :eof              signal EOF
  :cond <name> on|off
  :reset            return to the start state
  :quit`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, enc, err := loadGraph(args[0], encFlags)
		if err != nil {
			pterm.Error.Println(err.Error())
			return err
		}
		driver, err := runtime.ParseDriverKind(scanDriver)
		if err != nil {
			return err
		}
		s, err := newSession(enc, driver, os.Stdout)
		if err != nil {
			pterm.Error.Println(err.Error())
			return err
		}
		s.events = gologadapter.New()
		s.events.SetTraceLevel(tracing.TraceLevelFromString(traceLevel))
		repl, err := readline.New(enc.Name + "> ")
		if err != nil {
			return err
		}
		defer repl.Close()
		pterm.Info.Printfln("scanning with %s (%s driver), quit with <ctrl>D", enc.Name, driver)
		return s.loop(repl)
	},
}

func init() {
	scanCmd.Flags().StringVarP(&scanDriver, "driver", "d", "goto", "Driver of the machine [goto|break|var]")
}

// session is an interactive scan. Hooks are counted, conditions are switches
// set by the user.
type session struct {
	enc    *encode.Encoding
	m      *runtime.Machine
	out    io.Writer
	events tracing.Trace
	conds  map[string]bool
	hooks  map[string]int
	seen   int // trace events already printed
}

func newSession(enc *encode.Encoding, driver runtime.DriverKind, out io.Writer) (*session, error) {
	s := &session{
		enc:   enc,
		out:   out,
		conds: make(map[string]bool),
		hooks: make(map[string]int),
	}
	bind := runtime.NewBindings("scan", nil)
	for _, a := range enc.Actions {
		if a.Kind != redfsm.Hook {
			continue
		}
		name := a.Name
		bind.BindAction(name, func(m *runtime.Machine) {
			s.hooks[name]++
			fmt.Fprintf(s.out, "  %s @%d\n", name, m.Pos())
		})
	}
	for _, space := range enc.CondSpaces {
		for _, c := range space {
			name := c
			s.conds[name] = false
			bind.BindCond(name, func(*runtime.Machine) bool {
				return s.conds[name]
			})
		}
	}
	m, err := runtime.New(enc, driver, runtime.WithBindings(bind), runtime.WithTrace(true))
	if err != nil {
		return nil, err
	}
	s.m = m
	return s, nil
}

func (s *session) loop(repl *readline.Instance) error {
	for {
		line, err := repl.Readline()
		if err != nil { // io.EOF or interrupt
			break
		}
		if line = strings.TrimSpace(line); line == "" {
			continue
		}
		quit, err := s.eval(line)
		if err != nil {
			pterm.Error.Println(err.Error())
			continue
		}
		if quit {
			break
		}
	}
	fmt.Fprintln(s.out, "Good bye!")
	return nil
}

// eval executes an input line.
func (s *session) eval(line string) (bool, error) {
	if !strings.HasPrefix(line, ":") {
		s.reset()
		return false, s.exec(textKeys(line), true)
	}
	cmd, arg, _ := strings.Cut(line[1:], " ")
	arg = strings.TrimSpace(arg)
	switch cmd {
	case "quit", "q":
		return true, nil
	case "reset":
		s.reset()
	case "eof":
		return false, s.exec(nil, true)
	case "feed":
		return false, s.exec(textKeys(arg), false)
	case "keys":
		keys, err := scanner.ParseKeys(arg, s.enc.Keys)
		if err != nil {
			return false, err
		}
		return false, s.exec(keys, false)
	case "cond":
		name, v, _ := strings.Cut(arg, " ")
		if _, ok := s.conds[name]; !ok {
			return false, fmt.Errorf("unknown condition %q", name)
		}
		switch strings.TrimSpace(v) {
		case "on", "true", "1":
			s.conds[name] = true
		case "off", "false", "0":
			s.conds[name] = false
		default:
			return false, fmt.Errorf("condition value must be on or off, is %q", v)
		}
	default:
		return false, fmt.Errorf("unknown command :%s", cmd)
	}
	return false, nil
}

func (s *session) reset() {
	s.m.Init()
	s.seen = 0
	for name := range s.hooks {
		delete(s.hooks, name)
	}
}

func (s *session) exec(keys []alphabet.Key, eof bool) error {
	res, err := s.m.Exec(keys, eof)
	s.printEvents()
	if err != nil {
		return err
	}
	state := "running"
	switch {
	case res.Accepted:
		state = "accepted"
	case s.m.InError():
		state = "error"
	case res.Broke:
		state = "break"
	case res.Suspended:
		state = "suspended"
	}
	fmt.Fprintf(s.out, "%s: cs=%d p=%d\n", state, res.CS, res.P)
	return nil
}

func (s *session) printEvents() {
	if s.events == nil {
		return
	}
	trace := s.m.Trace()
	for _, ev := range trace[s.seen:] {
		switch ev.Kind {
		case runtime.TransEvent:
			s.events.Debugf("trans → %d, actions @%d", ev.State, ev.Action)
		case runtime.ActionEvent:
			s.events.Debugf("action %s", s.enc.Actions[ev.Action].Name)
		case runtime.PushEvent:
			s.events.Debugf("push alternate %d", ev.State)
		case runtime.PopEvent:
			s.events.Debugf("pop alternate %d", ev.State)
		case runtime.EOFEvent:
			s.events.Debugf("EOF in %d", ev.State)
		}
	}
	s.seen = len(trace)
}

// textKeys converts text to keys, one per character.
func textKeys(text string) []alphabet.Key {
	keys := make([]alphabet.Key, 0, len(text))
	for _, r := range text {
		keys = append(keys, alphabet.Key(r))
	}
	return keys
}
