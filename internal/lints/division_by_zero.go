package lints

import (
	"go/ast"
	"go/token"
	"strings"

	"github.com/gnolang/flowlint/internal/analysis/cfg"
	"github.com/gnolang/flowlint/internal/analysis/lattice"
	"github.com/gnolang/flowlint/internal/analysis/zeroness"
	tt "github.com/gnolang/flowlint/internal/types"
)

const RuleDivisionByZero = "division-by-zero"

type divConfig struct {
	// DivCallArgIndex is the index of the divisor among the arguments of
	// a method named Div, not counting the receiver.
	DivCallArgIndex int
}

var defaultDivConfig = divConfig{DivCallArgIndex: 1}

type divisionIssue struct {
	Node   *cfg.Node
	Start  token.Pos
	End    token.Pos
	Level  zeroness.Level
	Reason string
}

// DetectDivisionByZero runs the zero-ness analysis on every function and
// reports divisions, remainders and Div method calls whose divisor is or
// may be zero. A divisor that is zero on every path is an error; one that
// is zero on some path gets the given severity.
func DetectDivisionByZero(filename string, node *ast.File, fset *token.FileSet, severity tt.Severity, opts Options) ([]tt.Issue, error) {
	var issues []tt.Issue
	forEachFunc(node, opts, func(f function) {
		res, err := zeroness.Analyze(f.graph, opts.dataflow())
		if err != nil {
			// reported by DetectAnalysisFailures
			return
		}
		for _, issue := range analyzeDivisions(f.graph, res, defaultDivConfig) {
			sev := severity
			if issue.Level == zeroness.Definite {
				sev = tt.SeverityError
			}
			issues = append(issues, newIssue(RuleDivisionByZero, filename, fset, issue.Start, issue.End, sev,
				"possible division by zero: "+issue.Reason))
		}
	})
	return issues, nil
}

// analyzeDivisions collects the division issues of one graph. Copies of
// the same operation are merged; when they disagree the issue is only
// possible.
func analyzeDivisions(g *cfg.CFG, res *zeroness.Result, config divConfig) []divisionIssue {
	var (
		order []token.Pos
		byPos = make(map[token.Pos]divisionIssue)
	)
	add := func(issue divisionIssue) {
		prev, seen := byPos[issue.Start]
		if !seen {
			order = append(order, issue.Start)
			byPos[issue.Start] = issue
			return
		}
		if prev.Level != issue.Level {
			prev.Level = zeroness.Possible
			prev.Reason = reasonFor(lattice.MaybeZero)
			byPos[issue.Start] = prev
		}
	}

	for _, f := range zeroness.Divisions(g, res) {
		add(divisionIssue{
			Node:   f.Node,
			Start:  operandStart(f.Node),
			End:    operandEnd(f.Node.Operand(1)),
			Level:  f.Level,
			Reason: reasonFor(f.Divisor),
		})
	}

	for _, n := range g.Nodes() {
		divisor := divCallDivisor(n, config)
		if divisor == nil {
			continue
		}
		s, ok := res.StoreBefore(n)
		if !ok {
			continue
		}
		d := zeroness.Eval(divisor, s)
		level, ok := levelFor(d)
		if !ok {
			continue
		}
		add(divisionIssue{Node: n, Start: n.Pos(), End: operandEnd(divisor), Level: level, Reason: reasonFor(d)})
	}

	out := make([]divisionIssue, len(order))
	for i, pos := range order {
		out[i] = byPos[pos]
	}
	return out
}

// divCallDivisor returns the divisor operand of a call to a method named
// Div, or nil. The receiver, when present, is the first operand.
func divCallDivisor(n *cfg.Node, config divConfig) *cfg.Node {
	if n.Kind() != cfg.CallNode || !strings.HasSuffix(n.Name(), ".Div") {
		return nil
	}
	idx := config.DivCallArgIndex
	if idx < 0 {
		idx = defaultDivConfig.DivCallArgIndex
	}
	recv := strings.TrimSuffix(n.Name(), ".Div")
	if first := n.Operand(0); first != nil && first.Kind() == cfg.LocalNode && first.Name() == recv {
		idx++
	}
	if idx >= len(n.Operands()) {
		return nil
	}
	return n.Operand(idx)
}

func levelFor(d lattice.Zeroness) (zeroness.Level, bool) {
	switch d {
	case lattice.Zero:
		return zeroness.Definite, true
	case lattice.MaybeZero:
		return zeroness.Possible, true
	}
	return 0, false
}

func reasonFor(d lattice.Zeroness) string {
	if d == lattice.Zero {
		return "divisor is definitely zero"
	}
	return "divisor may be zero (" + d.String() + ")"
}

func operandStart(n *cfg.Node) token.Pos {
	if lhs := n.Operand(0); lhs != nil && lhs.Pos().IsValid() {
		return lhs.Pos()
	}
	return n.Pos()
}

func operandEnd(n *cfg.Node) token.Pos {
	if n == nil {
		return token.NoPos
	}
	if n.Kind() == cfg.LocalNode {
		return identEnd(n.Pos(), n.Name())
	}
	return n.Pos()
}
