// Package liveness computes live variables with a backward analysis and
// reports stores whose value is never read.
package liveness

import (
	"strings"

	"github.com/gnolang/flowlint/internal/analysis/cfg"
	"github.com/gnolang/flowlint/internal/analysis/dataflow"
	"github.com/gnolang/flowlint/internal/analysis/lattice"
	"github.com/gnolang/flowlint/internal/syntax"
)

type Store = *lattice.Set[string]

type Result = dataflow.Result[Store]

// Analyze runs liveness on g. Named results and escaping variables are
// live at both exits.
func Analyze(g *cfg.CFG, conf dataflow.Config) (*Result, error) {
	exit := lattice.NewSet[string]()
	for _, r := range g.Procedure().Results {
		exit.Add(r.Name)
	}
	for _, name := range g.Procedure().Escaping {
		exit.Add(name)
	}
	return dataflow.RunBackward[Store](g, Transfer{}, exit, exit.Copy(), conf)
}

// Transfer is the liveness transfer function: a read makes a variable
// live and a store to it kills it.
type Transfer struct{}

func (Transfer) Visit(n *cfg.Node, in dataflow.TransferInput[Store]) (dataflow.TransferResult[Store], error) {
	s := in.Regular()
	switch n.Kind() {
	case cfg.LocalNode:
		s.Add(n.Name())
	case cfg.AssignNode, cfg.VarDeclNode, cfg.CatchNode:
		if n.Name() != "" {
			s.Remove(n.Name())
		}
	}
	return dataflow.Single(s), nil
}

// LiveOut returns the variables live after n.
func LiveOut(res *Result, n *cfg.Node) []string {
	s, ok := res.StoreAfter(n)
	if !ok {
		return nil
	}
	return s.Sorted()
}

// DeadStores returns the reachable assignments and initialized
// declarations whose variable is not live afterwards. Blank and synthetic
// variables, and variables that escape, are skipped. A statement copied
// into several places is dead only if every reached copy is.
func DeadStores(g *cfg.CFG, res *Result) []*cfg.Node {
	escaping := lattice.NewSet(g.Procedure().Escaping...)
	var (
		order []syntax.Node
		first = make(map[syntax.Node]*cfg.Node)
		live  = make(map[syntax.Node]bool)
	)
	for _, n := range g.Nodes() {
		switch n.Kind() {
		case cfg.AssignNode:
		case cfg.VarDeclNode:
			if n.Value() == nil || implicitZero(n) {
				continue
			}
		default:
			continue
		}
		name := n.Name()
		if name == "" || name == "_" || strings.HasPrefix(name, "$") || escaping.Contains(name) {
			continue
		}
		after, ok := res.StoreAfter(n)
		if !ok || !g.Block(n.Block()).Reachable() {
			continue
		}
		if _, seen := first[n.Tree()]; !seen {
			order = append(order, n.Tree())
			first[n.Tree()] = n
		}
		if after.Contains(name) {
			live[n.Tree()] = true
		}
	}

	var out []*cfg.Node
	for _, tree := range order {
		if !live[tree] {
			out = append(out, first[tree])
		}
	}
	return out
}

// implicitZero reports whether a declaration's initializer is the zero
// value supplied for a Go declaration without one. It shares the
// declaration's position.
func implicitZero(decl *cfg.Node) bool {
	v := decl.Value()
	return decl.Pos().IsValid() && v.Kind() == cfg.LiteralNode && v.Pos() == decl.Pos()
}
