package lints

import (
	"go/ast"
	"go/token"

	"golang.org/x/tools/go/analysis"

	tt "github.com/gnolang/flowlint/internal/types"
)

// detector is the signature shared by the flow rules.
type detector func(filename string, node *ast.File, fset *token.FileSet, severity tt.Severity, opts Options) ([]tt.Issue, error)

// Analyzers exposing the flow rules to go/analysis drivers. They run with
// default options.
var (
	DivisionByZeroAnalyzer    = newAnalyzer(RuleDivisionByZero, "report divisions whose divisor is or may be zero", DetectDivisionByZero)
	UnreachableCodeAnalyzer   = newAnalyzer(RuleUnreachableCode, "report statements control never reaches", DetectUnreachableCode)
	DeadStoreAnalyzer         = newAnalyzer(RuleDeadStore, "report assignments whose value is never read", DetectDeadStores)
	ConstantConditionAnalyzer = newAnalyzer(RuleConstantCondition, "report integer comparisons with a fixed outcome", DetectConstantConditions)
)

// Analyzers returns every flow analyzer.
func Analyzers() []*analysis.Analyzer {
	return []*analysis.Analyzer{
		DivisionByZeroAnalyzer,
		UnreachableCodeAnalyzer,
		DeadStoreAnalyzer,
		ConstantConditionAnalyzer,
	}
}

func newAnalyzer(rule, doc string, detect detector) *analysis.Analyzer {
	return &analysis.Analyzer{
		Name: analyzerName(rule),
		Doc:  doc,
		Run: func(pass *analysis.Pass) (any, error) {
			for _, file := range pass.Files {
				filename := pass.Fset.Position(file.Pos()).Filename
				issues, err := detect(filename, file, pass.Fset, tt.SeverityWarning, Options{})
				if err != nil {
					return nil, err
				}
				for _, issue := range issues {
					pass.Report(analysis.Diagnostic{
						Pos:      positionOf(pass.Fset, file, issue.Start),
						End:      positionOf(pass.Fset, file, issue.End),
						Category: rule,
						Message:  issue.Message,
					})
				}
			}
			return nil, nil
		},
	}
}

// analyzerName turns a rule name into a valid analyzer identifier.
func analyzerName(rule string) string {
	out := []byte(rule)
	for i, c := range out {
		if c == '-' {
			out[i] = '_'
		}
	}
	return string(out)
}

// positionOf maps a resolved position back to a token.Pos of file.
func positionOf(fset *token.FileSet, file *ast.File, p token.Position) token.Pos {
	tf := fset.File(file.Pos())
	if tf == nil || p.Line < 1 || p.Line > tf.LineCount() {
		return token.NoPos
	}
	return tf.LineStart(p.Line) + token.Pos(p.Column-1)
}
