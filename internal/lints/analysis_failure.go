package lints

import (
	"fmt"
	"go/ast"
	"go/token"

	"github.com/gnolang/flowlint/internal/analysis/cfg"
	"github.com/gnolang/flowlint/internal/analysis/constprop"
	"github.com/gnolang/flowlint/internal/analysis/liveness"
	"github.com/gnolang/flowlint/internal/analysis/zeroness"
	tt "github.com/gnolang/flowlint/internal/types"
)

const RuleAnalysisFailure = "analysis-failure"

// DetectAnalysisFailures reports the functions the flow rules could not
// analyze: their graph cannot be built or an analysis does not converge.
func DetectAnalysisFailures(filename string, node *ast.File, fset *token.FileSet, severity tt.Severity, opts Options) ([]tt.Issue, error) {
	var issues []tt.Issue
	for _, decl := range node.Decls {
		fd, ok := decl.(*ast.FuncDecl)
		if !ok || fd.Body == nil {
			continue
		}
		if err := analyzeFunc(fd, opts); err != nil {
			issue := newIssue(RuleAnalysisFailure, filename, fset, fd.Name.Pos(), identEnd(fd.Name.Pos(), fd.Name.Name), severity,
				fmt.Sprintf("could not analyze procedure %s", fd.Name.Name))
			issue.Note = err.Error()
			issues = append(issues, issue)
		}
	}
	return issues, nil
}

func analyzeFunc(fd *ast.FuncDecl, opts Options) error {
	g, err := cfg.FromFunc(fd, opts.CFG)
	if err != nil {
		return err
	}
	conf := opts.dataflow()
	if _, err := constprop.Analyze(g, conf); err != nil {
		return fmt.Errorf("constant propagation: %w", err)
	}
	if _, err := zeroness.Analyze(g, conf); err != nil {
		return fmt.Errorf("zero-ness: %w", err)
	}
	if _, err := liveness.Analyze(g, conf); err != nil {
		return fmt.Errorf("liveness: %w", err)
	}
	return nil
}
