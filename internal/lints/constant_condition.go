package lints

import (
	"fmt"
	"go/ast"
	"go/token"

	"github.com/gnolang/flowlint/internal/analysis/cfg"
	"github.com/gnolang/flowlint/internal/analysis/constprop"
	tt "github.com/gnolang/flowlint/internal/types"
)

const RuleConstantCondition = "constant-condition"

// DetectConstantConditions reports integer comparisons that decide a
// branch and always have the same outcome.
func DetectConstantConditions(filename string, node *ast.File, fset *token.FileSet, severity tt.Severity, opts Options) ([]tt.Issue, error) {
	var issues []tt.Issue
	forEachFunc(node, opts, func(f function) {
		res, err := constprop.Analyze(f.graph, opts.dataflow())
		if err != nil {
			// reported by DetectAnalysisFailures
			return
		}
		for _, c := range constantConditions(f.graph, res) {
			issues = append(issues, newIssue(RuleConstantCondition, filename, fset, operandStart(c.node), operandEnd(c.node.Operand(1)), severity,
				fmt.Sprintf("condition is always %t", c.value)))
		}
	})
	return issues, nil
}

type constantCondition struct {
	node  *cfg.Node
	value bool
}

// constantConditions returns the branching comparisons whose every
// reached copy has the same known outcome.
func constantConditions(g *cfg.CFG, res *constprop.Result) []constantCondition {
	var (
		order   []token.Pos
		first   = make(map[token.Pos]constantCondition)
		unknown = make(map[token.Pos]bool)
	)
	for _, blk := range g.Blocks() {
		n := blk.LastNode()
		if n == nil || n.Kind() != cfg.BinaryNode || !n.Op().IsComparison() || !res.NodeReached(n) {
			continue
		}
		succ, ok := blk.Successor()
		if !ok || g.Block(succ).Kind() != cfg.ConditionalBlock {
			continue
		}
		pos := n.Pos()
		v, known := constprop.Condition(res, n)
		prev, seen := first[pos]
		switch {
		case !seen:
			order = append(order, pos)
			first[pos] = constantCondition{node: n, value: v}
			unknown[pos] = !known
		case !known || prev.value != v:
			unknown[pos] = true
		}
	}

	var out []constantCondition
	for _, pos := range order {
		if !unknown[pos] {
			out = append(out, first[pos])
		}
	}
	return out
}
