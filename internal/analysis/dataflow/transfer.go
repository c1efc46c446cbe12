package dataflow

import (
	"github.com/gnolang/flowlint/internal/analysis/cfg"
)

// TransferInput is the state a transfer function receives: either one
// store, or a then/else pair when the preceding boolean node split it.
type TransferInput[S Store[S]] struct {
	regular     S
	then, els   S
	conditional bool
}

func RegularInput[S Store[S]](s S) TransferInput[S] {
	return TransferInput[S]{regular: s}
}

func ConditionalInput[S Store[S]](then, els S) TransferInput[S] {
	return TransferInput[S]{then: then, els: els, conditional: true}
}

func (in TransferInput[S]) IsConditional() bool { return in.conditional }

// Regular returns the single store, or the join of the pair.
func (in TransferInput[S]) Regular() S {
	if in.conditional {
		return in.then.LeastUpperBound(in.els)
	}
	return in.regular
}

// Then returns the store valid when the last boolean was true.
func (in TransferInput[S]) Then() S {
	if in.conditional {
		return in.then
	}
	return in.regular
}

// Else returns the store valid when the last boolean was false.
func (in TransferInput[S]) Else() S {
	if in.conditional {
		return in.els
	}
	return in.regular
}

func (in TransferInput[S]) Copy() TransferInput[S] {
	if in.conditional {
		return ConditionalInput(in.then.Copy(), in.els.Copy())
	}
	return RegularInput(in.regular.Copy())
}

func (in TransferInput[S]) Equal(other TransferInput[S]) bool {
	if in.conditional != other.conditional {
		return false
	}
	if in.conditional {
		return in.then.Equal(other.then) && in.els.Equal(other.els)
	}
	return in.regular.Equal(other.regular)
}

// TransferResult is the state after a node: Single or Conditional, plus
// optional stores for the exceptions the node may throw.
type TransferResult[S Store[S]] struct {
	TransferInput[S]
	exceptional map[string]S
}

// Single returns a result with one store.
func Single[S Store[S]](s S) TransferResult[S] {
	return TransferResult[S]{TransferInput: RegularInput(s)}
}

// Conditional returns a result whose then store flows along the then
// edge of the following branch and else store along the else edge.
func Conditional[S Store[S]](then, els S) TransferResult[S] {
	return TransferResult[S]{TransferInput: ConditionalInput(then, els)}
}

// WithExceptional returns r with a distinct store for the exceptional
// edge of the given type. Edges without one receive the regular store.
func (r TransferResult[S]) WithExceptional(typ string, s S) TransferResult[S] {
	m := make(map[string]S, len(r.exceptional)+1)
	for k, v := range r.exceptional {
		m[k] = v
	}
	m[typ] = s
	r.exceptional = m
	return r
}

// Exceptional returns the store for an exceptional edge of the given type.
func (r TransferResult[S]) Exceptional(typ string) (S, bool) {
	s, ok := r.exceptional[typ]
	return s, ok
}

// TransferFunction computes the effect of one node on a store. It must be
// a pure function of its arguments: the engine calls it any number of
// times. The input belongs to the engine only until Visit returns.
type TransferFunction[S Store[S]] interface {
	Visit(n *cfg.Node, in TransferInput[S]) (TransferResult[S], error)
}

// TransferFunc adapts a function to the TransferFunction interface.
type TransferFunc[S Store[S]] func(n *cfg.Node, in TransferInput[S]) (TransferResult[S], error)

func (f TransferFunc[S]) Visit(n *cfg.Node, in TransferInput[S]) (TransferResult[S], error) {
	return f(n, in)
}
