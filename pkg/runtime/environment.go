package runtime

import (
	"sort"
)

// Environment is a frame of bindings with a parent pointer used for lookup.
type Environment struct {
	Header
	name   string
	values map[string]Value
	parent *Environment
	locked bool
}

func (*Environment) Kind() Kind { return KindEnvironment }

// NewEnvironment creates a child environment. A nil parent makes an empty
// root.
func NewEnvironment(parent *Environment) *Environment {
	return &Environment{values: make(map[string]Value), parent: parent}
}

// NewNamedEnvironment creates an environment reported by environmentName().
func NewNamedEnvironment(name string, parent *Environment) *Environment {
	env := NewEnvironment(parent)
	env.name = name
	return env
}

func (e *Environment) Name() string             { return e.name }
func (e *Environment) SetName(name string)      { e.name = name }
func (e *Environment) Parent() *Environment     { return e.parent }
func (e *Environment) SetParent(p *Environment) { e.parent = p }

// Lock forbids further changes through superassignment.
func (e *Environment) Lock()        { e.locked = true }
func (e *Environment) Locked() bool { return e.locked }

// Define binds name in this environment only.
func (e *Environment) Define(name string, value Value) {
	IncNamed(value)
	e.values[name] = value
}

// GetLocal returns a binding of this frame without walking parents.
func (e *Environment) GetLocal(name string) (Value, bool) {
	v, ok := e.values[name]
	return v, ok
}

// Has reports whether this frame binds name.
func (e *Environment) Has(name string) bool {
	_, ok := e.values[name]
	return ok
}

// Lookup walks the parent chain and returns the value and the frame that
// binds it.
func (e *Environment) Lookup(name string) (Value, *Environment, bool) {
	for env := e; env != nil; env = env.parent {
		if v, ok := env.values[name]; ok {
			return v, env, true
		}
	}
	return nil, nil, false
}

// Get looks name up through the chain.
func (e *Environment) Get(name string) (Value, error) {
	if v, _, ok := e.Lookup(name); ok {
		return v, nil
	}
	return nil, &UnboundSymbolError{Name: name}
}

// AssignSuper implements <<-: the search starts at the parent frame, the
// first existing binding is overwritten, and otherwise the value is defined
// in global. Locked frames are skipped. e itself is never written.
func (e *Environment) AssignSuper(name string, value Value, global *Environment) {
	for env := e.parent; env != nil; env = env.parent {
		if env.locked {
			continue
		}
		if _, ok := env.values[name]; ok {
			env.Define(name, value)
			return
		}
	}
	global.Define(name, value)
}

// Remove deletes a local binding.
func (e *Environment) Remove(name string) bool {
	if _, ok := e.values[name]; !ok {
		return false
	}
	delete(e.values, name)
	return true
}

// Keys lists the local binding names in sorted order.
func (e *Environment) Keys() []string {
	keys := make([]string, 0, len(e.values))
	for k := range e.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// IsAncestorOf reports whether e appears on other's parent chain.
func (e *Environment) IsAncestorOf(other *Environment) bool {
	for env := other; env != nil; env = env.parent {
		if env == e {
			return true
		}
	}
	return false
}
