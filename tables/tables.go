/*
Package tables implements the builder for named integer table columns.

Every table a machine encoding emits (key offsets, indices, condition keys,
action lists, …) is built in two phases, driven by one shared walk function:

    walk := func(emit func(int64)) {
        for _, s := range states {
            emit(int64(s.offset))
        }
    }
    an := tables.Analyze("key_offsets", walk)   // phase 1: count, min, max, width
    arr, err := tables.Generate(an, walk)       // phase 2: reproduce and check

Analyze selects the narrowest Go integer type able to hold every value.
Generate re-runs the walk and fails with ErrDesync if it does not reproduce
exactly what Analyze recorded. The two phases are separate types, so a value
cannot be added in the wrong phase.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2022 Norbert Pillmayer <norbert@pillmayer.com>

*/
package tables

import (
	"errors"
	"fmt"
	"math"

	"github.com/npillmayer/schuko/tracing"
	"golang.org/x/exp/constraints"
)

// tracer traces with key 'gorgel.tables'.
func tracer() tracing.Trace {
	return tracing.Select("gorgel.tables")
}

// Type is a host integer type for table storage.
type Type struct {
	Name   string // Go type name
	Signed bool
	Size   int // in bytes
	fits   func(int64) bool
}

func (t Type) String() string {
	return t.Name
}

// Covers is a predicate: can t hold every value of [min, max]?
func (t Type) Covers(min, max int64) bool {
	if t.fits == nil {
		return false
	}
	return t.fits(min) && t.fits(max)
}

// fits reports whether v survives a round trip through T.
func fits[T constraints.Integer](v int64) bool {
	x := T(v)
	return int64(x) == v && (x < 0) == (v < 0)
}

// Host types for table storage, narrowest first.
var (
	Int8   = Type{"int8", true, 1, fits[int8]}
	Uint8  = Type{"uint8", false, 1, fits[uint8]}
	Int16  = Type{"int16", true, 2, fits[int16]}
	Uint16 = Type{"uint16", false, 2, fits[uint16]}
	Int32  = Type{"int32", true, 4, fits[int32]}
	Uint32 = Type{"uint32", false, 4, fits[uint32]}
	Int64  = Type{"int64", true, 8, fits[int64]}
	Uint64 = Type{"uint64", false, 8, func(int64) bool { return true }}
)

var signedTypes = []Type{Int8, Int16, Int32, Int64}
var unsignedTypes = []Type{Uint8, Uint16, Uint32, Uint64}

// TypeByName finds a storage type by its Go name.
func TypeByName(name string) (Type, bool) {
	for _, t := range append(signedTypes, unsignedTypes...) {
		if t.Name == name {
			return t, true
		}
	}
	return Type{}, false
}

// SelectType selects the narrowest type covering [min, max]. Unsigned types
// are preferred unless min is negative or signed is requested. Selection is
// total: it falls back to int64.
func SelectType(min, max int64, signed bool) Type {
	family := unsignedTypes
	if signed || min < 0 {
		family = signedTypes
	}
	for _, t := range family {
		if t.Covers(min, max) {
			return t
		}
	}
	return Int64
}

// narrower returns the type one size smaller of the same family, if any.
func narrower(t Type) (Type, bool) {
	family := unsignedTypes
	if t.Signed {
		family = signedTypes
	}
	for i, f := range family {
		if f.Name == t.Name && i > 0 {
			return family[i-1], true
		}
	}
	return Type{}, false
}

// --- Two-phase building ----------------------------------------------------

// Walk is a value producing function. It is called once per phase and must
// emit the identical sequence both times.
type Walk func(emit func(v int64))

// Option configures the analysis of a column.
type Option func(*Analysis)

// Signed requests a signed storage type even if all values are non-negative.
func Signed() Option {
	return func(a *Analysis) {
		a.signed = true
	}
}

// Fixed requests a fixed storage type, bypassing width selection. Key columns
// use this to be typed like the alphabet.
func Fixed(t Type) Option {
	return func(a *Analysis) {
		a.fixed = &t
	}
}

// Analysis is the result of the analyze phase of a column.
type Analysis struct {
	Name   string
	Count  int
	Min    int64
	Max    int64
	Type   Type
	values []int64
	signed bool
	fixed  *Type
}

// Values returns the value sequence recorded during analysis.
func (a Analysis) Values() []int64 {
	return a.values
}

// Analyze runs the analyze phase for a named column.
func Analyze(name string, walk Walk, opts ...Option) Analysis {
	a := Analysis{Name: name, Min: math.MaxInt64, Max: math.MinInt64}
	for _, opt := range opts {
		opt(&a)
	}
	walk(func(v int64) {
		a.values = append(a.values, v)
		if v < a.Min {
			a.Min = v
		}
		if v > a.Max {
			a.Max = v
		}
	})
	a.Count = len(a.values)
	if a.Count == 0 {
		a.Min, a.Max = 0, 0
	}
	if a.fixed != nil {
		a.Type = *a.fixed
	} else {
		a.Type = SelectType(a.Min, a.Max, a.signed)
	}
	tracer().Debugf("analyzed %s: %d values in [%d,%d] → %s", name, a.Count, a.Min, a.Max, a.Type)
	return a
}

// ErrDesync signals that the generate phase did not reproduce the value
// sequence of the analyze phase. This is a defect of the calling encoder.
var ErrDesync = errors.New("table analyze/generate desynchronized")

// Generate runs the generate phase for an analyzed column.
func Generate(a Analysis, walk Walk) (Array, error) {
	arr := Array{Name: a.Name, Type: a.Type, Values: make([]int64, 0, a.Count)}
	var err error
	walk(func(v int64) {
		i := len(arr.Values)
		arr.Values = append(arr.Values, v)
		if err != nil {
			return
		}
		if i >= a.Count {
			err = fmt.Errorf("%s: value #%d beyond analyzed count %d: %w", a.Name, i, a.Count, ErrDesync)
		} else if a.values[i] != v {
			err = fmt.Errorf("%s: value #%d is %d, analyzed %d: %w", a.Name, i, v, a.values[i], ErrDesync)
		}
	})
	if err == nil && len(arr.Values) != a.Count {
		err = fmt.Errorf("%s: generated %d values, analyzed %d: %w", a.Name, len(arr.Values), a.Count,
			ErrDesync)
	}
	if err != nil {
		tracer().Errorf(err.Error())
		return Array{}, err
	}
	return arr, nil
}

// Build runs both phases with the same walk.
func Build(name string, walk Walk, opts ...Option) (Array, error) {
	return Generate(Analyze(name, walk, opts...), walk)
}
