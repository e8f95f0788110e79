package runtime

import (
	"fmt"
)

// Bindings connect action and condition names of a machine to host code.
// They nest like scopes: a lookup not satisfied by a set of bindings
// continues with its parent. Actions and conditions live in separate name
// spaces.

// BindingKind tells action callbacks from condition predicates.
type BindingKind int8

// Kinds of bindings.
const (
	ActionBinding BindingKind = iota + 1
	CondBinding
)

func (k BindingKind) String() string {
	switch k {
	case ActionBinding:
		return "action"
	case CondBinding:
		return "cond"
	}
	return fmt.Sprintf("BindingKind(%d)", int(k))
}

// Binding is a named host callback. Exactly one of the callbacks is set,
// depending on Kind.
type Binding struct {
	Name   string
	Kind   BindingKind
	action func(*Machine)
	cond   func(*Machine) bool
}

func (bd *Binding) String() string {
	return fmt.Sprintf("<%s %s>", bd.Kind, bd.Name)
}

type bindingKey struct {
	name string
	kind BindingKind
}

// Bindings is a table of host callbacks, linking back to a parent.
type Bindings struct {
	Name   string
	Parent *Bindings
	table  map[bindingKey]*Binding
}

// NewBindings creates a new set of bindings. parent may be nil.
func NewBindings(nm string, parent *Bindings) *Bindings {
	return &Bindings{
		Name:   nm,
		Parent: parent,
		table:  make(map[bindingKey]*Binding),
	}
}

func (b *Bindings) String() string {
	return fmt.Sprintf("<bindings %s>", b.Name)
}

// Len counts the bindings of b, not including its parents.
func (b *Bindings) Len() int {
	return len(b.table)
}

func (b *Bindings) define(bd *Binding) *Bindings {
	if len(bd.Name) == 0 {
		panic("runtime.Bindings: binding without a name")
	}
	key := bindingKey{bd.Name, bd.Kind}
	if _, ok := b.table[key]; ok {
		tracer().P("bindings", b.Name).Debugf("rebinding %v", bd)
	}
	b.table[key] = bd
	return b
}

// BindAction binds an action name to a callback. Returns b for chaining.
func (b *Bindings) BindAction(name string, f func(*Machine)) *Bindings {
	return b.define(&Binding{Name: name, Kind: ActionBinding, action: f})
}

// BindCond binds a condition name to a predicate. Returns b for chaining.
func (b *Bindings) BindCond(name string, f func(*Machine) bool) *Bindings {
	return b.define(&Binding{Name: name, Kind: CondBinding, cond: f})
}

// Lookup finds a binding, searching parents if necessary. Returns the binding
// (or nil) and the set of bindings it was found in.
func (b *Bindings) Lookup(name string, kind BindingKind) (*Binding, *Bindings) {
	key := bindingKey{name, kind}
	for ; b != nil; b = b.Parent {
		if bd, ok := b.table[key]; ok {
			return bd, b
		}
	}
	return nil, nil
}

// Action returns the callback for an action, or nil.
func (b *Bindings) Action(name string) func(*Machine) {
	if bd, _ := b.Lookup(name, ActionBinding); bd != nil {
		return bd.action
	}
	return nil
}

// Cond returns the predicate for a condition, or nil.
func (b *Bindings) Cond(name string) func(*Machine) bool {
	if bd, _ := b.Lookup(name, CondBinding); bd != nil {
		return bd.cond
	}
	return nil
}
