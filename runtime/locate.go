package runtime

import (
	"github.com/npillmayer/gorgel/alphabet"
	"github.com/npillmayer/gorgel/encode"
)

// columns caches the table columns of an encoding. Missing columns are nil.
type columns struct {
	keyOffsets, singleLengths, rangeLengths           []int64
	indexOffsets, indices, transKeys                  []int64
	keySpans, indexDefaults, charClass                []int64
	transCondSpaces, transOffsets, transLengths       []int64
	condKeys, condTargs, condActions                  []int64
	toStateActions, fromStateActions                  []int64
	eofActions, eofTrans                              []int64
	eofCondSpaces, eofCondKeyOffs, eofCondKeyLens     []int64
	eofCondKeys, actions                              []int64
	nfaOffsets, nfaTargs, nfaPushActions, nfaPopTrans []int64
}

func columnsOf(enc *encode.Encoding) columns {
	get := func(name string) []int64 {
		if arr, ok := enc.Array(name); ok {
			return arr.Values
		}
		return nil
	}
	return columns{
		keyOffsets:       get(encode.KeyOffsets),
		singleLengths:    get(encode.SingleLengths),
		rangeLengths:     get(encode.RangeLengths),
		indexOffsets:     get(encode.IndexOffsets),
		indices:          get(encode.Indices),
		transKeys:        get(encode.TransKeys),
		keySpans:         get(encode.KeySpans),
		indexDefaults:    get(encode.IndexDefaults),
		charClass:        get(encode.CharClass),
		transCondSpaces:  get(enc.TransColumn(encode.TransCondSpaces)),
		transOffsets:     get(enc.TransColumn(encode.TransOffsets)),
		transLengths:     get(enc.TransColumn(encode.TransLengths)),
		condKeys:         get(encode.CondKeys),
		condTargs:        get(encode.CondTargs),
		condActions:      get(encode.CondActions),
		toStateActions:   get(encode.ToStateActions),
		fromStateActions: get(encode.FromStateActions),
		eofActions:       get(encode.EOFActions),
		eofTrans:         get(encode.EOFTrans),
		eofCondSpaces:    get(encode.EOFCondSpaces),
		eofCondKeyOffs:   get(encode.EOFCondKeyOffs),
		eofCondKeyLens:   get(encode.EOFCondKeyLens),
		eofCondKeys:      get(encode.EOFCondKeys),
		actions:          get(encode.Actions),
		nfaOffsets:       get(encode.NFAOffsets),
		nfaTargs:         get(encode.NFATargs),
		nfaPushActions:   get(encode.NFAPushActions),
		nfaPopTrans:      get(encode.NFAPopTrans),
	}
}

// locator finds the transition slot for a key in a state.
type locator func(cs int, k alphabet.Key) int

func locatorFor(enc *encode.Encoding, c *columns) locator {
	ko := enc.Keys
	switch enc.Kind {
	case encode.Flat:
		if enc.ClassMap {
			return func(cs int, k alphabet.Key) int {
				if c.keySpans[cs] == 0 || ko.Lt(k, enc.LowKey) || ko.Gt(k, enc.HighKey) {
					return int(c.indexDefaults[cs])
				}
				class := c.charClass[ko.Offset(enc.LowKey, k)]
				lo, hi := c.transKeys[2*cs], c.transKeys[2*cs+1]
				if class < lo || class > hi {
					return int(c.indexDefaults[cs])
				}
				return int(c.indices[c.indexOffsets[cs]+class-lo])
			}
		}
		return func(cs int, k alphabet.Key) int {
			lo, hi := alphabet.Key(c.transKeys[2*cs]), alphabet.Key(c.transKeys[2*cs+1])
			if c.keySpans[cs] == 0 || ko.Lt(k, lo) || ko.Gt(k, hi) {
				return int(c.indexDefaults[cs])
			}
			return int(c.indices[uint64(c.indexOffsets[cs])+ko.Offset(lo, k)])
		}
	case encode.Bin:
		return func(cs int, k alphabet.Key) int {
			return binLocate(ko, c, enc.UseIndices, cs, k)
		}
	}
	return func(cs int, k alphabet.Key) int {
		slot, ok := enc.Switch[cs].Lookup(ko, k)
		if !ok {
			// covered states have no gaps, so this cannot happen for keys
			// of the alphabet
			panic("runtime.locate: switch lookup without default missed")
		}
		return slot
	}
}

// binLocate searches singles, then ranges, then takes the default entry.
func binLocate(ko *alphabet.KeyOps, c *columns, useIndices bool, cs int, k alphabet.Key) int {
	keys := int(c.keyOffsets[cs])
	nsingles, nranges := int(c.singleLengths[cs]), int(c.rangeLengths[cs])
	pos := nsingles + nranges // default
	lo, hi := keys, keys+nsingles-1
	found := false
	for lo <= hi {
		mid := lo + ((hi - lo) >> 1)
		switch key := alphabet.Key(c.transKeys[mid]); {
		case ko.Lt(k, key):
			hi = mid - 1
		case ko.Gt(k, key):
			lo = mid + 1
		default:
			pos, found = mid-keys, true
			lo = hi + 1
		}
	}
	if !found && nranges > 0 {
		base := keys + nsingles
		lo, hi = base, base+2*(nranges-1)
		for lo <= hi {
			mid := lo + (((hi - lo) >> 1) & ^1)
			switch {
			case ko.Lt(k, alphabet.Key(c.transKeys[mid])):
				hi = mid - 2
			case ko.Gt(k, alphabet.Key(c.transKeys[mid+1])):
				lo = mid + 2
			default:
				pos = nsingles + (mid-base)>>1
				lo = hi + 1
			}
		}
	}
	entry := int(c.indexOffsets[cs]) + pos
	if useIndices {
		return int(c.indices[entry])
	}
	return entry
}
