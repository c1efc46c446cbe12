package lints

import (
	"go/ast"
	"go/token"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/gnolang/flowlint/internal/analysis/cfg"
	tt "github.com/gnolang/flowlint/internal/types"
)

const RuleUnreachableCode = "unreachable-code"

// DetectUnreachableCode reports statements that control never reaches.
// Consecutive unreachable statements of a block are reported once.
func DetectUnreachableCode(filename string, node *ast.File, fset *token.FileSet, severity tt.Severity, opts Options) ([]tt.Issue, error) {
	var issues []tt.Issue
	forEachFunc(node, opts, func(f function) {
		if len(f.graph.UnreachableBlocks()) == 0 {
			return
		}
		idx := newReachIndex(f.graph)
		var visit func(list []ast.Stmt)
		visit = func(list []ast.Stmt) {
			for i := 0; i < len(list); i++ {
				if !idx.unreachable(list[i]) {
					for _, inner := range nestedStmts(list[i]) {
						visit(inner)
					}
					continue
				}
				j := i
				for j+1 < len(list) && idx.unreachable(list[j+1]) {
					j++
				}
				issues = append(issues, newIssue(RuleUnreachableCode, filename, fset,
					list[i].Pos(), list[j].End()-1, severity, "unreachable code"))
				i = j
			}
		}
		visit(f.decl.Body.List)
	})
	return issues, nil
}

// reachIndex records, for every source position that carries a node,
// whether some copy of it is reachable.
type reachIndex struct {
	positions []token.Pos
	reached   map[token.Pos]bool
}

func newReachIndex(g *cfg.CFG) reachIndex {
	reached := make(map[token.Pos]bool)
	for _, n := range g.Nodes() {
		if !n.Pos().IsValid() {
			continue
		}
		reached[n.Pos()] = reached[n.Pos()] || g.Block(n.Block()).Reachable()
	}
	positions := maps.Keys(reached)
	slices.Sort(positions)
	return reachIndex{positions: positions, reached: reached}
}

// unreachable reports whether s holds at least one node and none of its
// nodes is reachable.
func (r reachIndex) unreachable(s ast.Stmt) bool {
	i, _ := slices.BinarySearch(r.positions, s.Pos())
	seen := false
	for ; i < len(r.positions) && r.positions[i] < s.End(); i++ {
		if r.reached[r.positions[i]] {
			return false
		}
		seen = true
	}
	return seen
}

// nestedStmts returns the statement lists directly nested in s.
func nestedStmts(s ast.Stmt) [][]ast.Stmt {
	switch s := s.(type) {
	case *ast.BlockStmt:
		return [][]ast.Stmt{s.List}
	case *ast.IfStmt:
		out := [][]ast.Stmt{s.Body.List}
		if s.Else != nil {
			out = append(out, []ast.Stmt{s.Else})
		}
		return out
	case *ast.ForStmt:
		return [][]ast.Stmt{s.Body.List}
	case *ast.RangeStmt:
		return [][]ast.Stmt{s.Body.List}
	case *ast.SwitchStmt:
		return caseBodies(s.Body)
	case *ast.TypeSwitchStmt:
		return caseBodies(s.Body)
	case *ast.LabeledStmt:
		return [][]ast.Stmt{{s.Stmt}}
	}
	return nil
}

func caseBodies(body *ast.BlockStmt) [][]ast.Stmt {
	var out [][]ast.Stmt
	for _, c := range body.List {
		if cc, ok := c.(*ast.CaseClause); ok {
			out = append(out, cc.Body)
		}
	}
	return out
}
