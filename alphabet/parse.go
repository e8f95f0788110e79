package alphabet

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/npillmayer/gorgel"
)

// ErrKeyOverflow is returned if a key literal does not fit into the host type.
var ErrKeyOverflow = errors.New("key literal out of range for host type")

// ErrKeySyntax is returned for malformed key literals.
var ErrKeySyntax = errors.New("malformed key literal")

// ParseKey parses a key literal for the host type of ko. It accepts decimal,
// hexadecimal (0x…), octal (0…) and binary (0b…) numbers, each optionally
// signed, and quoted character literals like 'a' or '\n'.
//
// If the literal over- or underflows the host type, ParseKey returns the
// clamped key together with an error wrapping ErrKeyOverflow.
func (ko *KeyOps) ParseKey(lit string) (Key, error) {
	lit = strings.TrimSpace(lit)
	if lit == "" {
		return 0, fmt.Errorf("empty key: %w", ErrKeySyntax)
	}
	if lit[0] == '\'' {
		if len(lit) < 3 || lit[len(lit)-1] != '\'' {
			return 0, fmt.Errorf("%s: %w", lit, ErrKeySyntax)
		}
		r, _, tail, err := strconv.UnquoteChar(lit[1:len(lit)-1], '\'')
		if err != nil || tail != "" {
			return 0, fmt.Errorf("%s is not a single character: %w", lit, ErrKeySyntax)
		}
		return ko.clamp(lit, int64(r), false, false)
	}
	if strings.HasPrefix(lit, "-") {
		v, err := strconv.ParseInt(lit, 0, 64)
		if err != nil {
			if errors.Is(err, strconv.ErrRange) {
				return ko.clamp(lit, v, true, false)
			}
			return 0, fmt.Errorf("%s: %w", lit, ErrKeySyntax)
		}
		return ko.clamp(lit, v, false, false)
	}
	u, err := strconv.ParseUint(strings.TrimPrefix(lit, "+"), 0, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return ko.clamp(lit, 0, false, true)
		}
		return 0, fmt.Errorf("%s: %w", lit, ErrKeySyntax)
	}
	if !ko.Type.Signed {
		if ko.Type.Size < 8 && u > uint64(ko.Type.Max) {
			return ko.Type.Max, overflow(lit, ko.Type.Max, ko)
		}
		return Key(u), nil
	}
	if u > uint64(ko.Type.Max) {
		return ko.Type.Max, overflow(lit, ko.Type.Max, ko)
	}
	return Key(u), nil
}

// clamp clamps a signed value v to the host type. under and over signal that
// parsing itself already saturated.
func (ko *KeyOps) clamp(lit string, v int64, under, over bool) (Key, error) {
	ht := ko.Type
	switch {
	case over:
		return ht.Max, overflow(lit, ht.Max, ko)
	case under:
		return ht.Min, overflow(lit, ht.Min, ko)
	}
	if !ht.Signed {
		if v < 0 {
			return ht.Min, overflow(lit, ht.Min, ko)
		}
		if ht.Size < 8 && v > int64(ht.Max) {
			return ht.Max, overflow(lit, ht.Max, ko)
		}
		return Key(v), nil
	}
	if v < int64(ht.Min) {
		return ht.Min, overflow(lit, ht.Min, ko)
	}
	if v > int64(ht.Max) {
		return ht.Max, overflow(lit, ht.Max, ko)
	}
	return Key(v), nil
}

func overflow(lit string, clamped Key, ko *KeyOps) error {
	return fmt.Errorf("%s does not fit into %s, clamped to %s: %w", lit, ko.Type, ko.Format(clamped),
		ErrKeyOverflow)
}

// SetRange narrows the alphabet to [lo, hi]. Both bounds are key literals.
// Literals over- or underflowing the host type are reported to diag and
// clamped, processing continues. An inverted range is reported and ignored.
func (ko *KeyOps) SetRange(lo, hi string, diag *gorgel.Diagnostics) {
	klo, err := ko.ParseKey(lo)
	if err != nil {
		diag.Report("alphabet range: %v", err)
		if !errors.Is(err, ErrKeyOverflow) {
			return
		}
	}
	khi, err := ko.ParseKey(hi)
	if err != nil {
		diag.Report("alphabet range: %v", err)
		if !errors.Is(err, ErrKeyOverflow) {
			return
		}
	}
	if ko.Lt(khi, klo) {
		diag.Report("alphabet range: lower bound %s greater than upper bound %s", lo, hi)
		return
	}
	tracer().Debugf("alphabet %s narrowed to [%s, %s]", ko.Type, ko.Format(klo), ko.Format(khi))
	ko.minKey, ko.maxKey = klo, khi
	ko.narrowed = true
}
