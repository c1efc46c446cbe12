package lints

import (
	"fmt"
	"go/ast"
	"go/token"

	"github.com/gnolang/flowlint/internal/analysis/liveness"
	tt "github.com/gnolang/flowlint/internal/types"
)

const RuleDeadStore = "dead-store"

// DetectDeadStores reports assignments whose value is overwritten or
// dropped before it is read.
func DetectDeadStores(filename string, node *ast.File, fset *token.FileSet, severity tt.Severity, opts Options) ([]tt.Issue, error) {
	var issues []tt.Issue
	forEachFunc(node, opts, func(f function) {
		res, err := liveness.Analyze(f.graph, opts.dataflow())
		if err != nil {
			// reported by DetectAnalysisFailures
			return
		}
		for _, n := range liveness.DeadStores(f.graph, res) {
			issue := newIssue(RuleDeadStore, filename, fset, n.Pos(), identEnd(n.Pos(), n.Name()), severity,
				fmt.Sprintf("value assigned to %s is never used", n.Name()))
			issue.Note = fmt.Sprintf("%s is overwritten or goes out of scope before it is read", n.Name())
			issues = append(issues, issue)
		}
	})
	return issues, nil
}
