package lattice

import (
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Value is an element of a join semi-lattice.
type Value[V any] interface {
	Join(other V) V
	Equal(other V) bool
	String() string
}

type widener[V any] interface {
	Widen(previous V) V
}

// Env maps variable names to lattice values. A missing variable is
// Bottom: it has not been bound on any path reaching the point.
//
// *Env implements the dataflow store contract, with Widen applied
// variable by variable when V supports it.
type Env[V Value[V]] struct {
	vars map[string]V
}

func NewEnv[V Value[V]]() *Env[V] {
	return &Env[V]{vars: make(map[string]V)}
}

// Get returns the value bound to name.
func (e *Env[V]) Get(name string) (V, bool) {
	v, ok := e.vars[name]
	return v, ok
}

// Set binds name to v in place.
func (e *Env[V]) Set(name string, v V) { e.vars[name] = v }

func (e *Env[V]) Delete(name string) { delete(e.vars, name) }

func (e *Env[V]) Len() int { return len(e.vars) }

// Names returns the bound variables in sorted order.
func (e *Env[V]) Names() []string {
	names := maps.Keys(e.vars)
	slices.Sort(names)
	return names
}

func (e *Env[V]) Copy() *Env[V] {
	return &Env[V]{vars: maps.Clone(e.vars)}
}

func (e *Env[V]) Equal(other *Env[V]) bool {
	return maps.EqualFunc(e.vars, other.vars, func(a, b V) bool { return a.Equal(b) })
}

func (e *Env[V]) LeastUpperBound(other *Env[V]) *Env[V] {
	out := e.Copy()
	for name, v := range other.vars {
		if cur, ok := out.vars[name]; ok {
			out.vars[name] = cur.Join(v)
		} else {
			out.vars[name] = v
		}
	}
	return out
}

func (e *Env[V]) Widen(previous *Env[V], _ int) *Env[V] {
	out := e.Copy()
	for name, v := range e.vars {
		w, ok := any(v).(widener[V])
		if !ok {
			continue
		}
		if prev, ok := previous.vars[name]; ok {
			out.vars[name] = w.Widen(prev)
		}
	}
	return out
}

func (e *Env[V]) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, name := range e.Names() {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(name)
		sb.WriteString(": ")
		sb.WriteString(e.vars[name].String())
	}
	sb.WriteByte('}')
	return sb.String()
}
