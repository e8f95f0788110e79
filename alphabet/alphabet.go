/*
Package alphabet models the domain of input keys a finite state machine reads.

An alphabet is bounded by a host integer type, which determines signedness
and byte width. Clients may declare a narrower range of keys. All key
arithmetic (ordering, span, successor, predecessor) honors the signedness of
the host type.

Keys are carried as int64 bit patterns. Signed host types are sign-extended,
unsigned host types are zero-extended. For uint64 alphabets, keys above
math.MaxInt64 appear negative when looked at as int64, but compare correctly
through KeyOps.

    ko := alphabet.NewKeyOps(alphabet.MustFindHostType("char"))
    ko.Span(ko.MinKey(), ko.MaxKey())   // 256

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2022 Norbert Pillmayer <norbert@pillmayer.com>

*/
package alphabet

import (
	"fmt"
	"math"

	"github.com/npillmayer/schuko/tracing"
	"golang.org/x/exp/constraints"
)

// tracer traces with key 'gorgel.alphabet'.
func tracer() tracing.Trace {
	return tracing.Select("gorgel.alphabet")
}

// Key is an input symbol, carried as an int64 bit pattern.
type Key int64

// HostType describes a host integer type which bounds an alphabet.
type HostType struct {
	Names  []string // names the type may be declared with; first one is canonical
	GoName string   // Go type used in generated code
	Signed bool
	Size   int // in bytes
	Min    Key
	Max    Key
}

func (ht HostType) String() string {
	return ht.Names[0]
}

// hostTypes lists all supported host types, ordered by width.
var hostTypes = []HostType{
	{[]string{"char", "int8"}, "int8", true, 1, math.MinInt8, math.MaxInt8},
	{[]string{"byte", "unsigned char", "uint8"}, "uint8", false, 1, 0, math.MaxUint8},
	{[]string{"short", "int16"}, "int16", true, 2, math.MinInt16, math.MaxInt16},
	{[]string{"unsigned short", "uint16"}, "uint16", false, 2, 0, math.MaxUint16},
	{[]string{"int", "int32", "rune"}, "int32", true, 4, math.MinInt32, math.MaxInt32},
	{[]string{"unsigned int", "uint32"}, "uint32", false, 4, 0, math.MaxUint32},
	{[]string{"long", "int64"}, "int64", true, 8, math.MinInt64, math.MaxInt64},
	{[]string{"unsigned long", "uint64"}, "uint64", false, 8, 0, -1}, // -1 is 0xff…ff
}

// HostTypes returns all supported host types, ordered by width.
func HostTypes() []HostType {
	return hostTypes
}

// FindHostType finds a host type by one of its names.
func FindHostType(name string) (HostType, bool) {
	for _, ht := range hostTypes {
		for _, n := range ht.Names {
			if n == name {
				return ht, true
			}
		}
	}
	return HostType{}, false
}

// MustFindHostType is like FindHostType, but panics if name is unknown.
func MustFindHostType(name string) HostType {
	ht, ok := FindHostType(name)
	if !ok {
		panic(fmt.Sprintf("alphabet.MustFindHostType: unknown host type %q", name))
	}
	return ht
}

// --- Key operations --------------------------------------------------------

// KeyOps implements key arithmetic for an alphabet. Create one with NewKeyOps.
type KeyOps struct {
	Type     HostType
	minKey   Key
	maxKey   Key
	narrowed bool
}

// NewKeyOps creates key operations for a host type, spanning the type's
// full range.
func NewKeyOps(ht HostType) *KeyOps {
	return &KeyOps{
		Type:   ht,
		minKey: ht.Min,
		maxKey: ht.Max,
	}
}

// MinKey returns the smallest key of the alphabet.
func (ko *KeyOps) MinKey() Key {
	return ko.minKey
}

// MaxKey returns the largest key of the alphabet.
func (ko *KeyOps) MaxKey() Key {
	return ko.maxKey
}

// Narrowed is a predicate: has a range clause been applied?
func (ko *KeyOps) Narrowed() bool {
	return ko.narrowed
}

// Signed is a predicate: is the alphabet signed?
func (ko *KeyOps) Signed() bool {
	return ko.Type.Signed
}

// Compare returns -1, 0 or +1, honoring the alphabet's signedness.
func (ko *KeyOps) Compare(a, b Key) int {
	if ko.Type.Signed {
		return cmp(a, b)
	}
	return cmp(uint64(a), uint64(b))
}

func cmp[T constraints.Ordered](a, b T) int {
	if a < b {
		return -1
	} else if a > b {
		return 1
	}
	return 0
}

// Lt is key1 < key2
func (ko *KeyOps) Lt(a, b Key) bool { return ko.Compare(a, b) < 0 }

// Le is key1 <= key2
func (ko *KeyOps) Le(a, b Key) bool { return ko.Compare(a, b) <= 0 }

// Gt is key1 > key2
func (ko *KeyOps) Gt(a, b Key) bool { return ko.Compare(a, b) > 0 }

// Ge is key1 >= key2
func (ko *KeyOps) Ge(a, b Key) bool { return ko.Compare(a, b) >= 0 }

// Eq is key1 == key2
func (ko *KeyOps) Eq(a, b Key) bool { return a == b }

// Succ returns the successor of a key. Callers must not call it for MaxKey.
func (ko *KeyOps) Succ(k Key) Key {
	return k + 1
}

// Pred returns the predecessor of a key. Callers must not call it for MinKey.
func (ko *KeyOps) Pred(k Key) Key {
	return k - 1
}

// IsMin is a predicate: is k the alphabet's smallest key?
func (ko *KeyOps) IsMin(k Key) bool { return k == ko.minKey }

// IsMax is a predicate: is k the alphabet's largest key?
func (ko *KeyOps) IsMax(k Key) bool { return k == ko.maxKey }

// Contains is a predicate: is k within [MinKey, MaxKey]?
func (ko *KeyOps) Contains(k Key) bool {
	return ko.Ge(k, ko.minKey) && ko.Le(k, ko.maxKey)
}

// Span returns the number of keys in [lo, hi], inclusive. The difference is
// computed in 64 bit unsigned arithmetic, so it cannot overflow for narrower
// alphabets. The single span not representable (all 2^64 keys of a 64 bit
// alphabet) saturates to math.MaxUint64.
func (ko *KeyOps) Span(lo, hi Key) uint64 {
	if ko.Lt(hi, lo) {
		return 0
	}
	d := uint64(hi) - uint64(lo)
	if d == math.MaxUint64 {
		return d
	}
	return d + 1
}

// Offset returns k-lo as an unsigned distance. k must not be less than lo.
func (ko *KeyOps) Offset(lo, k Key) uint64 {
	return uint64(k) - uint64(lo)
}

// Comparator returns a comparator for keys wrapped into interface{} values,
// suitable for ordered containers.
func (ko *KeyOps) Comparator() func(a, b interface{}) int {
	return func(a, b interface{}) int {
		return ko.Compare(a.(Key), b.(Key))
	}
}

// Format returns a key as a decimal string, honoring signedness.
func (ko *KeyOps) Format(k Key) string {
	if ko.Type.Signed {
		return fmt.Sprintf("%d", int64(k))
	}
	return fmt.Sprintf("%d", uint64(k))
}

// Uint64 returns k for unsigned alphabets as uint64.
func (k Key) Uint64() uint64 {
	return uint64(k)
}
