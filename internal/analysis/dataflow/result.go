package dataflow

import (
	"fmt"
	"strings"

	"github.com/gnolang/flowlint/internal/analysis/cfg"
	"github.com/gnolang/flowlint/internal/syntax"
)

// Result holds the fixpoint of an analysis. It is not modified after Run
// returns; callers must not change the stores it hands out.
//
// Stores are reported in program order regardless of direction: the store
// before a node holds on the edge into it and the store after it on the
// edge out of it.
type Result[S Store[S]] struct {
	g          *cfg.CFG
	direction  Direction
	before     []TransferInput[S]
	after      []TransferInput[S]
	seen       []bool
	blockInput []TransferInput[S]
	reached    []bool
	visits     []int
	iterations int
	returns    map[int]S
}

func (r *Result[S]) Graph() *cfg.CFG       { return r.g }
func (r *Result[S]) Direction() Direction { return r.direction }

// Iterations returns the number of block visits the analysis took.
func (r *Result[S]) Iterations() int { return r.iterations }

// Visits returns how many times the block was processed.
func (r *Result[S]) Visits(block int) int {
	if block < 0 || block >= len(r.visits) {
		return 0
	}
	return r.visits[block]
}

// Reached reports whether any store reached the block.
func (r *Result[S]) Reached(block int) bool {
	return block >= 0 && block < len(r.reached) && r.reached[block]
}

// NodeReached reports whether the transfer function ran on n.
func (r *Result[S]) NodeReached(n *cfg.Node) bool {
	return n != nil && n.ID() < len(r.seen) && r.seen[n.ID()]
}

// StoreBefore returns the store holding just before n executes. A pair
// is joined. The second result is false if the analysis never reached n.
func (r *Result[S]) StoreBefore(n *cfg.Node) (S, bool) {
	in, ok := r.BeforeNode(n)
	if !ok {
		var zero S
		return zero, false
	}
	return in.Regular(), true
}

// StoreAfter returns the store holding just after n executes.
func (r *Result[S]) StoreAfter(n *cfg.Node) (S, bool) {
	out, ok := r.AfterNode(n)
	if !ok {
		var zero S
		return zero, false
	}
	return out.Regular(), true
}

// StoreBeforeTree returns the join of the stores before every node built
// from tree. A tree has several nodes when the builder copies it, as it
// does for finally bodies. The second result is false if none was reached.
func (r *Result[S]) StoreBeforeTree(tree syntax.Node) (S, bool) {
	return r.joinTree(tree, r.StoreBefore)
}

// StoreAfterTree is StoreBeforeTree for the stores after the nodes.
func (r *Result[S]) StoreAfterTree(tree syntax.Node) (S, bool) {
	return r.joinTree(tree, r.StoreAfter)
}

func (r *Result[S]) joinTree(tree syntax.Node, lookup func(*cfg.Node) (S, bool)) (S, bool) {
	var (
		out   S
		found bool
	)
	for _, n := range r.g.NodesFor(tree) {
		s, ok := lookup(n)
		switch {
		case !ok:
		case !found:
			out, found = s.Copy(), true
		default:
			out = out.LeastUpperBound(s)
		}
	}
	return out, found
}

// BeforeNode returns the possibly split state before n.
func (r *Result[S]) BeforeNode(n *cfg.Node) (TransferInput[S], bool) {
	if !r.NodeReached(n) {
		return TransferInput[S]{}, false
	}
	return r.before[n.ID()], true
}

// AfterNode returns the possibly split state after n. A boolean node
// whose transfer function split the store reports a then/else pair.
func (r *Result[S]) AfterNode(n *cfg.Node) (TransferInput[S], bool) {
	if !r.NodeReached(n) {
		return TransferInput[S]{}, false
	}
	return r.after[n.ID()], true
}

// Input returns the state the transfer function received for n.
func (r *Result[S]) Input(n *cfg.Node) (TransferInput[S], bool) {
	if r.direction == Backward {
		return r.AfterNode(n)
	}
	return r.BeforeNode(n)
}

// Output returns the state the transfer function produced for n.
func (r *Result[S]) Output(n *cfg.Node) (TransferInput[S], bool) {
	if r.direction == Backward {
		return r.BeforeNode(n)
	}
	return r.AfterNode(n)
}

// BlockInput returns the fixpoint input of a block: the state at its
// start for forward analyses and at its end for backward ones.
func (r *Result[S]) BlockInput(block int) (TransferInput[S], bool) {
	if !r.Reached(block) {
		return TransferInput[S]{}, false
	}
	return r.blockInput[block], true
}

func (r *Result[S]) blockStore(block int) (S, bool) {
	in, ok := r.BlockInput(block)
	if !ok {
		var zero S
		return zero, false
	}
	return in.Regular(), true
}

// StoreAtEntry returns the store at the entry block: the initial store
// of a forward analysis or the final one of a backward analysis.
func (r *Result[S]) StoreAtEntry() (S, bool) { return r.blockStore(r.g.Entry().ID()) }

// RegularExitStore returns the store at the regular exit.
func (r *Result[S]) RegularExitStore() (S, bool) { return r.blockStore(r.g.RegularExit().ID()) }

// ExceptionalExitStore returns the store at the exceptional exit.
func (r *Result[S]) ExceptionalExitStore() (S, bool) {
	return r.blockStore(r.g.ExceptionalExit().ID())
}

// ReturnStore pairs a return node with the store when it executes.
type ReturnStore[S Store[S]] struct {
	Node  *cfg.Node
	Store S
}

// ReturnStores returns the store after each reached return node.
func (r *Result[S]) ReturnStores() []ReturnStore[S] {
	var out []ReturnStore[S]
	for _, n := range r.g.ReturnNodes() {
		if s, ok := r.returns[n.ID()]; ok {
			out = append(out, ReturnStore[S]{Node: n, Store: s})
		}
	}
	return out
}

// String renders the block inputs, one line per reached block.
func (r *Result[S]) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s analysis of %s, %d iterations\n", r.direction, r.g.Name, r.iterations)
	for _, blk := range r.g.Blocks() {
		in, ok := r.BlockInput(blk.ID())
		if !ok {
			fmt.Fprintf(&sb, "b%d: unreached\n", blk.ID())
			continue
		}
		if in.IsConditional() {
			fmt.Fprintf(&sb, "b%d: then %v else %v\n", blk.ID(), in.Then(), in.Else())
			continue
		}
		fmt.Fprintf(&sb, "b%d: %v\n", blk.ID(), in.Regular())
	}
	return sb.String()
}
