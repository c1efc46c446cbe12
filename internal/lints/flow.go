package lints

import (
	"go/ast"
	"go/parser"
	"go/token"

	"go.uber.org/zap"

	"github.com/gnolang/flowlint/internal/analysis/cfg"
	"github.com/gnolang/flowlint/internal/analysis/dataflow"
	tt "github.com/gnolang/flowlint/internal/types"
)

// Options configures graph construction and the fixpoint solver for the
// flow rules.
type Options struct {
	CFG      cfg.Options
	Dataflow dataflow.Config
	Logger   *zap.Logger

	// CyclomaticThreshold is the highest complexity accepted without an
	// issue. Zero means DefaultCyclomaticThreshold.
	CyclomaticThreshold int
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

func (o Options) dataflow() dataflow.Config {
	conf := o.Dataflow
	if conf.Logger == nil {
		conf.Logger = o.logger()
	}
	return conf
}

// ParseFile parses a Go source file with comments. content overrides the
// file on disk when non-nil.
func ParseFile(filename string, content []byte) (*ast.File, *token.FileSet, error) {
	fset := token.NewFileSet()
	var src any
	if content != nil {
		src = content
	}
	node, err := parser.ParseFile(fset, filename, src, parser.ParseComments)
	if err != nil {
		return nil, nil, err
	}
	return node, fset, nil
}

// function is a Go function together with its graph.
type function struct {
	decl  *ast.FuncDecl
	graph *cfg.CFG
}

// forEachFunc builds the graph of every function with a body and calls fn
// on it. Functions whose graph cannot be built are skipped; they are
// reported by DetectAnalysisFailures.
func forEachFunc(node *ast.File, opts Options, fn func(function)) {
	for _, decl := range node.Decls {
		fd, ok := decl.(*ast.FuncDecl)
		if !ok || fd.Body == nil {
			continue
		}
		g, err := cfg.FromFunc(fd, opts.CFG)
		if err != nil {
			opts.logger().Debug("skipping function", zap.String("func", fd.Name.Name), zap.Error(err))
			continue
		}
		fn(function{decl: fd, graph: g})
	}
}

func newIssue(rule, filename string, fset *token.FileSet, start, end token.Pos, severity tt.Severity, msg string) tt.Issue {
	if !end.IsValid() {
		end = start
	}
	return tt.Issue{
		Rule:     rule,
		Category: "dataflow",
		Filename: filename,
		Message:  msg,
		Start:    fset.Position(start),
		End:      fset.Position(end),
		Severity: severity,
	}
}

// identEnd returns the end of an identifier of the given name starting
// at pos.
func identEnd(pos token.Pos, name string) token.Pos {
	if !pos.IsValid() || name == "" {
		return pos
	}
	return pos + token.Pos(len(name)-1)
}
