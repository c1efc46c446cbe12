package lints

import (
	"fmt"
	"go/ast"
	"go/token"

	"github.com/gnolang/flowlint/internal/analysis/cfg"
	tt "github.com/gnolang/flowlint/internal/types"
)

const (
	RuleCyclomaticComplexity   = "high-cyclomatic-complexity"
	DefaultCyclomaticThreshold = 10
)

// DetectHighCyclomaticComplexity reports functions whose graph has more
// decision points than the threshold allows.
func DetectHighCyclomaticComplexity(filename string, node *ast.File, fset *token.FileSet, severity tt.Severity, opts Options) ([]tt.Issue, error) {
	threshold := opts.CyclomaticThreshold
	if threshold <= 0 {
		threshold = DefaultCyclomaticThreshold
	}

	var issues []tt.Issue
	forEachFunc(node, opts, func(f function) {
		c := Complexity(f.graph)
		if c <= threshold {
			return
		}
		name := f.decl.Name
		issue := newIssue(RuleCyclomaticComplexity, filename, fset, name.Pos(), identEnd(name.Pos(), name.Name), severity,
			fmt.Sprintf("function %s has a cyclomatic complexity of %d (threshold %d)", name.Name, c, threshold))
		issue.Category = "complexity"
		issue.Note = "split the function or simplify its conditions"
		issues = append(issues, issue)
	})
	return issues, nil
}

// Complexity is one plus the number of reachable two-way decisions of g.
// Each operand of && and || decides on its own. A decision copied into
// several places, such as the body of a finally clause, counts once.
func Complexity(g *cfg.CFG) int {
	decisions := make(map[token.Pos]bool)
	anonymous := 0
	for _, blk := range g.Blocks() {
		if !blk.Reachable() {
			continue
		}
		succ, ok := blk.Successor()
		if !ok || g.Block(succ).Kind() != cfg.ConditionalBlock {
			continue
		}
		n := blk.LastNode()
		if n == nil || !n.Pos().IsValid() {
			anonymous++
			continue
		}
		decisions[n.Pos()] = true
	}
	return 1 + len(decisions) + anonymous
}
