package encode

import (
	"fmt"

	"github.com/emirpasic/gods/sets/treeset"
	"github.com/npillmayer/gorgel/alphabet"
	"github.com/npillmayer/gorgel/redfsm"
	"github.com/npillmayer/gorgel/tables"
)

// flatEncoder lays out a dense index row per state.
//
// Without class map, row positions are keys: a key k of state s is looked up
// at indices[index_offsets[s] + k - low(s)], if low(s) ≤ k ≤ high(s).
// With class map, keys in [LowKey, HighKey] are first mapped to their class
// by char_class[k - LowKey], and rows are indexed by class. Keys outside the
// envelope take index_defaults[s].
type flatEncoder struct{}

func (flatEncoder) Kind() Kind { return Flat }

func (flatEncoder) Slots(e *Emitter) []*redfsm.Trans {
	return e.G.Trans
}

// keyClass is an interval of keys which every state treats alike.
type keyClass struct {
	lo, hi alphabet.Key
}

func (fe flatEncoder) KeyColumns(e *Emitter) error {
	g, ko := e.G, e.G.Keys
	enc := e.Enc
	enc.ClassMap = e.Opts.ClassMap
	lowKey, highKey, any := machineEnvelope(g)
	var classes []keyClass
	if enc.ClassMap && any {
		if span := ko.Span(lowKey, highKey); span > e.Opts.MaxSpan {
			return fmt.Errorf("%s: char_class spans %d keys: %w", g.Name, span, ErrSpanTooLarge)
		}
		classes = equivalenceClasses(g, lowKey, highKey)
		enc.LowKey, enc.HighKey = lowKey, highKey
		tracer().Debugf("%d key classes over [%s,%s]", len(classes), ko.Format(lowKey), ko.Format(highKey))
	}
	// per state envelope, in keys or in classes
	type row struct {
		empty   bool
		lo, hi  int64 // classes or keys
		span    uint64
		entries []int64
	}
	rows := make([]row, len(g.States))
	for i, s := range g.States {
		lo, hi, ok := stateEnvelope(g, s)
		if !ok {
			rows[i] = row{empty: true}
			continue
		}
		var r row
		def := int64(0)
		if s.Default != nil {
			def = int64(e.SlotOf(s.Default))
		}
		slot := func(k alphabet.Key) int64 {
			if t := g.Locate(s, k); t != nil {
				return int64(e.SlotOf(t))
			}
			return def
		}
		if enc.ClassMap {
			clo, chi := classOf(ko, classes, lo), classOf(ko, classes, hi)
			r.lo, r.hi, r.span = int64(clo), int64(chi), uint64(chi-clo+1)
			for c := clo; c <= chi; c++ {
				r.entries = append(r.entries, slot(classes[c].lo))
			}
		} else {
			r.span = ko.Span(lo, hi)
			if r.span > e.Opts.MaxSpan {
				return fmt.Errorf("%s: state %d spans %d keys: %w", g.Name, s.ID, r.span, ErrSpanTooLarge)
			}
			r.lo, r.hi = int64(lo), int64(hi)
			for k := lo; ; k = ko.Succ(k) {
				r.entries = append(r.entries, slot(k))
				if k == hi {
					break
				}
			}
		}
		rows[i] = r
	}
	if enc.ClassMap {
		if err := e.Add(CharClass, func(emit func(int64)) {
			if !any {
				return
			}
			for c, cl := range classes {
				for k := cl.lo; ; k = ko.Succ(k) {
					emit(int64(c))
					if k == cl.hi {
						break
					}
				}
			}
		}); err != nil {
			return err
		}
	}
	transKeys := func(emit func(int64)) {
		for _, r := range rows {
			if r.empty {
				emit(0)
				emit(0)
				continue
			}
			emit(r.lo)
			emit(r.hi)
		}
	}
	var err error
	if enc.ClassMap {
		err = e.Add(TransKeys, transKeys)
	} else {
		err = e.Add(TransKeys, transKeys, fixedKeys(e))
	}
	if err != nil {
		return err
	}
	if err := e.Add(KeySpans, func(emit func(int64)) {
		for _, r := range rows {
			if r.empty {
				emit(0)
			} else {
				emit(int64(r.span))
			}
		}
	}); err != nil {
		return err
	}
	if err := e.Add(IndexOffsets, func(emit func(int64)) {
		off := 0
		for _, r := range rows {
			emit(int64(off))
			off += len(r.entries)
		}
	}); err != nil {
		return err
	}
	if err := e.Add(Indices, func(emit func(int64)) {
		for _, r := range rows {
			for _, v := range r.entries {
				emit(v)
			}
		}
	}); err != nil {
		return err
	}
	return e.Add(IndexDefaults, func(emit func(int64)) {
		for _, s := range g.States {
			if s.Default != nil {
				emit(int64(e.SlotOf(s.Default)))
			} else {
				emit(0)
			}
		}
	})
}

// stateEnvelope returns the lowest and highest key of a state's singles and
// ranges.
func stateEnvelope(g *redfsm.Graph, s *redfsm.State) (lo, hi alphabet.Key, ok bool) {
	ko := g.Keys
	first := true
	widen := func(l, h alphabet.Key) {
		if first || ko.Lt(l, lo) {
			lo = l
		}
		if first || ko.Gt(h, hi) {
			hi = h
		}
		first = false
	}
	for _, sg := range s.Singles {
		widen(sg.Key, sg.Key)
	}
	for _, r := range s.Ranges {
		widen(r.Low, r.High)
	}
	return lo, hi, !first
}

// machineEnvelope returns the lowest and highest key of all states.
func machineEnvelope(g *redfsm.Graph) (lo, hi alphabet.Key, ok bool) {
	ko := g.Keys
	for _, s := range g.States {
		l, h, any := stateEnvelope(g, s)
		if !any {
			continue
		}
		if !ok || ko.Lt(l, lo) {
			lo = l
		}
		if !ok || ko.Gt(h, hi) {
			hi = h
		}
		ok = true
	}
	return
}

// equivalenceClasses partitions [lowKey, highKey] into intervals, such that
// no single or range of any state starts or ends within an interval.
func equivalenceClasses(g *redfsm.Graph, lowKey, highKey alphabet.Key) []keyClass {
	ko := g.Keys
	bounds := treeset.NewWith(ko.Comparator(), lowKey)
	cut := func(lo, hi alphabet.Key) {
		bounds.Add(lo)
		if !ko.IsMax(hi) && ko.Lt(hi, highKey) {
			bounds.Add(ko.Succ(hi))
		}
	}
	for _, s := range g.States {
		for _, sg := range s.Singles {
			cut(sg.Key, sg.Key)
		}
		for _, r := range s.Ranges {
			cut(r.Low, r.High)
		}
	}
	starts := bounds.Values()
	classes := make([]keyClass, len(starts))
	for i, v := range starts {
		classes[i].lo = v.(alphabet.Key)
		if i+1 < len(starts) {
			classes[i].hi = ko.Pred(starts[i+1].(alphabet.Key))
		} else {
			classes[i].hi = highKey
		}
	}
	return classes
}

// classOf finds the class of a key by binary search.
func classOf(ko *alphabet.KeyOps, classes []keyClass, k alphabet.Key) int {
	lo, hi := 0, len(classes)-1
	for lo <= hi {
		mid := (lo + hi) >> 1
		switch {
		case ko.Lt(k, classes[mid].lo):
			hi = mid - 1
		case ko.Gt(k, classes[mid].hi):
			lo = mid + 1
		default:
			return mid
		}
	}
	panic(fmt.Sprintf("encode.classOf: key %s outside classes", ko.Format(k)))
}

// fixedKeys types a key column like the alphabet.
func fixedKeys(e *Emitter) tables.Option {
	return tables.Fixed(e.KeyType())
}
