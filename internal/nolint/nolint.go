// Package nolint finds suppression comments and answers whether an issue
// falls under one of them.
//
// Two directive forms are recognized:
//
//	//nolint                      every rule
//	//nolint:dead-store,rule-b    the listed rules
//	//flowlint:ignore dead-store  the listed rules, space separated
//
// Anything after a further "//" is an explanation and is ignored.
package nolint

import (
	"errors"
	"go/ast"
	"go/token"
	"strings"
)

const (
	nolintPrefix = "//nolint"
	ignorePrefix = "//flowlint:ignore"
)

var (
	errNotDirective = errors.New("not a suppression comment")
	errNoRules      = errors.New("suppression comment lists no rules")
)

// Manager holds the suppressed line ranges of parsed files.
type Manager struct {
	scopes map[string][]scope
}

// scope is an inclusive line range where rules are suppressed. An empty
// rule set suppresses every rule.
type scope struct {
	rules    map[string]struct{}
	from, to int
}

func (s scope) covers(line int, rule string) bool {
	if line < s.from || line > s.to {
		return false
	}
	if len(s.rules) == 0 {
		return true
	}
	_, ok := s.rules[rule]
	return ok
}

// ParseComments collects the suppression directives of f.
func ParseComments(f *ast.File, fset *token.FileSet) *Manager {
	m := &Manager{scopes: make(map[string][]scope)}
	ix := newLineIndex(f, fset)

	for _, cg := range f.Comments {
		for _, c := range cg.List {
			rules, err := parseDirective(c.Text)
			if err != nil {
				continue
			}
			pos := fset.Position(c.Slash)
			from, to := ix.extent(c, pos)
			m.scopes[pos.Filename] = append(m.scopes[pos.Filename], scope{rules: rules, from: from, to: to})
		}
	}
	return m
}

// IsNolint reports whether rule is suppressed at pos.
func (m *Manager) IsNolint(pos token.Position, rule string) bool {
	if m == nil {
		return false
	}
	for _, s := range m.scopes[pos.Filename] {
		if s.covers(pos.Line, rule) {
			return true
		}
	}
	return false
}

// parseDirective returns the rules named by a suppression comment.
func parseDirective(text string) (map[string]struct{}, error) {
	if i := strings.Index(text[2:], "//"); i >= 0 {
		text = text[:i+2]
	}
	text = strings.TrimRight(text, " \t")

	switch {
	case strings.HasPrefix(text, ignorePrefix):
		rest := text[len(ignorePrefix):]
		if rest != "" && rest[0] != ' ' && rest[0] != '\t' {
			return nil, errNotDirective
		}
		rules := splitRules(strings.Fields(rest))
		if len(rules) == 0 {
			return nil, errNoRules
		}
		return rules, nil

	case strings.HasPrefix(text, nolintPrefix):
		rest := text[len(nolintPrefix):]
		if rest == "" {
			return map[string]struct{}{}, nil
		}
		if rest[0] != ':' {
			return nil, errNotDirective
		}
		rules := splitRules(strings.Split(rest[1:], ","))
		if len(rules) == 0 {
			return nil, errNoRules
		}
		return rules, nil
	}
	return nil, errNotDirective
}

func splitRules(names []string) map[string]struct{} {
	rules := make(map[string]struct{}, len(names))
	for _, name := range names {
		if name = strings.TrimSpace(name); name != "" {
			rules[name] = struct{}{}
		}
	}
	return rules
}

// lineIndex locates the declarations and statements a comment can
// attach to.
type lineIndex struct {
	fset        *token.FileSet
	file        *ast.File
	packageLine int
	// stmts maps a line to the outermost statement starting on it.
	stmts map[int]ast.Stmt
	// funcs maps a doc comment to its function.
	funcs map[*ast.CommentGroup]*ast.FuncDecl
}

func newLineIndex(f *ast.File, fset *token.FileSet) *lineIndex {
	ix := &lineIndex{
		fset:        fset,
		file:        f,
		packageLine: fset.Position(f.Package).Line,
		stmts:       make(map[int]ast.Stmt),
		funcs:       make(map[*ast.CommentGroup]*ast.FuncDecl),
	}
	ast.Inspect(f, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.FuncDecl:
			if n.Doc != nil {
				ix.funcs[n.Doc] = n
			}
		case *ast.BlockStmt:
			// the braces of a body are not a statement of their own
			return true
		case ast.Stmt:
			line := fset.Position(n.Pos()).Line
			if _, ok := ix.stmts[line]; !ok {
				ix.stmts[line] = n
			}
		}
		return true
	})
	return ix
}

func (ix *lineIndex) line(p token.Pos) int {
	return ix.fset.Position(p).Line
}

// extent returns the lines a directive at pos applies to.
func (ix *lineIndex) extent(c *ast.Comment, pos token.Position) (int, int) {
	if pos.Line < ix.packageLine {
		return 1, ix.line(ix.file.End())
	}
	for doc, fn := range ix.funcs {
		if doc.Pos() <= c.Pos() && c.End() <= doc.End() {
			return pos.Line, ix.line(fn.End())
		}
	}
	if stmt, ok := ix.stmts[pos.Line]; ok && stmt.Pos() < c.Pos() {
		return ix.line(stmt.Pos()), ix.line(stmt.End())
	}
	if stmt, ok := ix.stmts[pos.Line+1]; ok {
		return pos.Line, ix.line(stmt.End())
	}
	return pos.Line, pos.Line
}
