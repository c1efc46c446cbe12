package types

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"

	"golang.org/x/tools/go/analysis"
)

// RunAnalyzer runs a standalone analyzer over a single source file and
// returns its diagnostics as issues. Analyzers with prerequisites are not
// supported.
func RunAnalyzer(filename string, code string, analyzer *analysis.Analyzer) ([]Issue, error) {
	if len(analyzer.Requires) > 0 {
		return nil, fmt.Errorf("analyzer %s has prerequisites", analyzer.Name)
	}
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, filename, code, parser.ParseComments)
	if err != nil {
		return nil, err
	}

	var issues []Issue
	pass := &analysis.Pass{
		Analyzer: analyzer,
		Fset:     fset,
		Files:    []*ast.File{file},
		ResultOf: map[*analysis.Analyzer]any{},
		Report: func(d analysis.Diagnostic) {
			end := d.End
			if !end.IsValid() {
				end = d.Pos
			}
			rule := d.Category
			if rule == "" {
				rule = analyzer.Name
			}
			issues = append(issues, Issue{
				Rule:     rule,
				Category: d.Category,
				Filename: filename,
				Message:  d.Message,
				Start:    fset.Position(d.Pos),
				End:      fset.Position(end),
				Severity: SeverityWarning,
			})
		},
	}

	if _, err := analyzer.Run(pass); err != nil {
		return nil, fmt.Errorf("running %s: %w", analyzer.Name, err)
	}
	return issues, nil
}
