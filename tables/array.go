package tables

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Array is a generated table column. It is immutable after generation.
type Array struct {
	Name   string
	Type   Type
	Values []int64
}

// Len returns the number of values, not counting the sentinel.
func (arr Array) Len() int {
	return len(arr.Values)
}

// At returns the i-th value.
func (arr Array) At(i int) int64 {
	return arr.Values[i]
}

// Int returns the i-th value as int.
func (arr Array) Int(i int) int {
	return int(arr.Values[i])
}

// Bytes returns the storage size of the column, including the sentinel.
func (arr Array) Bytes() int {
	return (len(arr.Values) + 1) * arr.Type.Size
}

// valuesPerLine is the number of literals per line of an array literal.
const valuesPerLine = 10

// Literal renders the column as a Go array literal. A trailing 0 is appended
// so the last element never needs comma suppression; it carries no meaning.
func (arr Array) Literal() string {
	var b strings.Builder
	b.WriteString("[...]")
	b.WriteString(arr.Type.Name)
	b.WriteString("{")
	for i, v := range append(arr.Values[:len(arr.Values):len(arr.Values)], 0) {
		if i%valuesPerLine == 0 {
			b.WriteString("\n\t")
		} else {
			b.WriteString(" ")
		}
		b.WriteString(arr.format(v))
		b.WriteString(",")
	}
	b.WriteString("\n}")
	return b.String()
}

func (arr Array) format(v int64) string {
	if arr.Type.Signed {
		return strconv.FormatInt(v, 10)
	}
	return strconv.FormatUint(uint64(v), 10)
}

// ErrLiteral is returned by Decode for malformed literals.
var ErrLiteral = errors.New("malformed array literal")

// Decode parses an array literal as produced by Literal. It returns the
// storage type and the values without the trailing sentinel.
func Decode(literal string) (Type, []int64, error) {
	s := strings.TrimSpace(literal)
	if !strings.HasPrefix(s, "[...]") || !strings.HasSuffix(s, "}") {
		return Type{}, nil, ErrLiteral
	}
	s = strings.TrimPrefix(s, "[...]")
	brace := strings.IndexByte(s, '{')
	if brace < 0 {
		return Type{}, nil, ErrLiteral
	}
	typ, ok := TypeByName(strings.TrimSpace(s[:brace]))
	if !ok {
		return Type{}, nil, fmt.Errorf("unknown element type %q: %w", s[:brace], ErrLiteral)
	}
	body := s[brace+1 : len(s)-1]
	var values []int64
	for _, field := range strings.Split(body, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		var v int64
		var err error
		if typ.Signed {
			v, err = strconv.ParseInt(field, 10, 64)
		} else {
			var u uint64
			u, err = strconv.ParseUint(field, 10, 64)
			v = int64(u)
		}
		if err != nil {
			return typ, nil, fmt.Errorf("%q: %w", field, ErrLiteral)
		}
		values = append(values, v)
	}
	if len(values) == 0 || values[len(values)-1] != 0 {
		return typ, nil, fmt.Errorf("missing sentinel: %w", ErrLiteral)
	}
	return typ, values[:len(values)-1], nil
}
