package scanner

import (
	"regexp"

	"github.com/npillmayer/gorgel"
	"github.com/timtadh/lexmachine"
	"github.com/timtadh/lexmachine/machines"
)

// Ignore is the token type of rules whose matches are dropped, e.g. white space.
const Ignore gorgel.TokType = 0

// Rule maps a lexmachine pattern to a token type.
type Rule struct {
	Pattern string
	Type    gorgel.TokType
}

// Literal creates a rule matching s verbatim.
func Literal(s string, t gorgel.TokType) Rule {
	return Rule{Pattern: regexp.QuoteMeta(s), Type: t}
}

// Lexer is a compiled set of rules. Earlier rules win over later ones for
// matches of equal length. A Lexer may be shared, scanners may not.
type Lexer struct {
	lm *lexmachine.Lexer
}

// Compile builds the DFA for a list of rules.
func Compile(rules []Rule) (*Lexer, error) {
	lm := lexmachine.NewLexer()
	for _, r := range rules {
		lm.Add([]byte(r.Pattern), action(r.Type))
	}
	if err := lm.Compile(); err != nil {
		tracer().Errorf("error compiling DFA: %v", err)
		return nil, err
	}
	return &Lexer{lm: lm}, nil
}

func action(t gorgel.TokType) lexmachine.Action {
	if t == Ignore {
		return func(*lexmachine.Scanner, *machines.Match) (interface{}, error) {
			return nil, nil
		}
	}
	return func(s *lexmachine.Scanner, m *machines.Match) (interface{}, error) {
		return s.Token(int(t), string(m.Bytes), m), nil
	}
}

// Scanner creates a tokenizer for an input string.
func (lx *Lexer) Scanner(input string) (*Scanner, error) {
	sc, err := lx.lm.Scanner([]byte(input))
	if err != nil {
		return nil, err
	}
	return &Scanner{sc: sc, onError: logError}, nil
}

// Scanner tokenizes one input string.
type Scanner struct {
	sc      *lexmachine.Scanner
	onError func(error)
}

var _ Tokenizer = (*Scanner)(nil)

// SetErrorHandler replaces the default handler, which traces errors. nil
// restores the default.
func (s *Scanner) SetErrorHandler(h func(error)) {
	if h == nil {
		h = logError
	}
	s.onError = h
}

// NextToken returns the next token, or a token of type EOF at the end of
// input. Input no rule matches is reported and skipped.
func (s *Scanner) NextToken() gorgel.Token {
	for {
		tok, err, eof := s.sc.Next()
		if eof {
			end := uint64(s.sc.TC)
			return MakeDefaultToken(EOF, "", gorgel.Span{end, end})
		}
		if err != nil {
			s.onError(err)
			if ui, ok := err.(*machines.UnconsumedInput); ok {
				s.sc.TC = ui.FailTC
			}
			continue
		}
		t := tok.(*lexmachine.Token)
		tracer().Debugf("token %d %q at %d", t.Type, t.Lexeme, t.TC)
		from := uint64(t.TC)
		return MakeDefaultToken(gorgel.TokType(t.Type), string(t.Lexeme), gorgel.Span{from, from + uint64(len(t.Lexeme))})
	}
}
