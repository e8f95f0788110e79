package scanner

import (
	"errors"
	"fmt"
	"sync"

	"github.com/npillmayer/gorgel"
	"github.com/npillmayer/gorgel/alphabet"
)

// ErrKeyExpr is returned for malformed key expressions.
var ErrKeyExpr = errors.New("malformed key expression")

var (
	keyLexer     *Lexer
	keyLexerErr  error
	keyLexerOnce sync.Once
)

var keyRules = []Rule{
	{`'([^'\\]|\\[^']+)'`, Char},
	{`\-?(0x[0-9a-fA-F]+|0b[01]+|[0-9]+)`, Number},
	{`( |\t|\n|\r)+`, Ignore},
	Literal("..", DotDot),
	Literal(",", Comma),
	Literal("any", Any),
}

// KeyLexer returns the lexer for key expressions. The DFA is compiled on
// first use.
func KeyLexer() (*Lexer, error) {
	keyLexerOnce.Do(func() {
		keyLexer, keyLexerErr = Compile(keyRules)
	})
	return keyLexer, keyLexerErr
}

// KeyRange is an inclusive range of keys. Single keys have Lo == Hi.
type KeyRange struct {
	Lo, Hi alphabet.Key
}

func (r KeyRange) String() string {
	if r.Lo == r.Hi {
		return fmt.Sprintf("%d", int64(r.Lo))
	}
	return fmt.Sprintf("%d..%d", int64(r.Lo), int64(r.Hi))
}

// keyParser is a recursive descent parser over a token stream. The first
// error sticks.
type keyParser struct {
	expr string
	ko   *alphabet.KeyOps
	scan Tokenizer
	tok  gorgel.Token
	err  error
}

func (kp *keyParser) fail(format string, args ...interface{}) {
	if kp.err == nil {
		kp.err = fmt.Errorf("%q: %s: %w", kp.expr, fmt.Sprintf(format, args...), ErrKeyExpr)
	}
}

func (kp *keyParser) next() {
	kp.tok = kp.scan.NextToken()
}

// key parses a character or number token.
func (kp *keyParser) key() alphabet.Key {
	switch kp.tok.TokType() {
	case Char, Number:
		k, err := kp.ko.ParseKey(kp.tok.Lexeme())
		if err != nil && kp.err == nil {
			kp.err = fmt.Errorf("%q at %d: %w", kp.expr, kp.tok.Span().From(), err)
		}
		kp.next()
		return k
	}
	kp.fail("expected key at %d, found %s", kp.tok.Span().From(), TokName(kp.tok.TokType()))
	return 0
}

// item parses 'any', a key or a range.
func (kp *keyParser) item() KeyRange {
	if kp.tok.TokType() == Any {
		kp.next()
		return KeyRange{kp.ko.MinKey(), kp.ko.MaxKey()}
	}
	lo := kp.key()
	r := KeyRange{lo, lo}
	if kp.tok.TokType() == DotDot {
		kp.next()
		r.Hi = kp.key()
		if kp.err == nil && kp.ko.Lt(r.Hi, r.Lo) {
			kp.fail("empty range %s..%s", kp.ko.Format(r.Lo), kp.ko.Format(r.Hi))
		}
	}
	return r
}

// ParseKeyList parses a comma separated list of key expressions for an
// alphabet.
func ParseKeyList(expr string, ko *alphabet.KeyOps) ([]KeyRange, error) {
	lexer, err := KeyLexer()
	if err != nil {
		return nil, err
	}
	scan, err := lexer.Scanner(expr)
	if err != nil {
		return nil, err
	}
	kp := &keyParser{expr: expr, ko: ko, scan: scan}
	scan.SetErrorHandler(func(e error) {
		kp.fail("%v", e)
	})
	kp.next()
	var list []KeyRange
	for kp.err == nil {
		list = append(list, kp.item())
		if kp.tok.TokType() != Comma {
			break
		}
		kp.next()
	}
	if kp.err == nil && kp.tok.TokType() != EOF {
		kp.fail("unexpected %s at %d", TokName(kp.tok.TokType()), kp.tok.Span().From())
	}
	if kp.err != nil {
		return nil, kp.err
	}
	tracer().Debugf("key expression %q → %v", expr, list)
	return list, nil
}

// ParseKeyExpr parses a single key, a range or 'any'.
func ParseKeyExpr(expr string, ko *alphabet.KeyOps) (lo, hi alphabet.Key, err error) {
	list, err := ParseKeyList(expr, ko)
	if err != nil {
		return 0, 0, err
	}
	if len(list) != 1 {
		return 0, 0, fmt.Errorf("%q: single key or range expected: %w", expr, ErrKeyExpr)
	}
	return list[0].Lo, list[0].Hi, nil
}

// ParseKeys parses a sequence of keys, e.g. input for a machine, separated
// by commas. Ranges are not allowed.
func ParseKeys(expr string, ko *alphabet.KeyOps) ([]alphabet.Key, error) {
	list, err := ParseKeyList(expr, ko)
	if err != nil {
		return nil, err
	}
	keys := make([]alphabet.Key, len(list))
	for i, r := range list {
		if r.Lo != r.Hi {
			return nil, fmt.Errorf("%q: range %s in key sequence: %w", expr, r, ErrKeyExpr)
		}
		keys[i] = r.Lo
	}
	return keys, nil
}
