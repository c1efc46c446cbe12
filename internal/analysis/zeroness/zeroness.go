// Package zeroness tracks whether integer variables may be zero and finds
// divisions whose divisor is, or may be, zero.
package zeroness

import (
	"github.com/gnolang/flowlint/internal/analysis/cfg"
	"github.com/gnolang/flowlint/internal/analysis/dataflow"
	"github.com/gnolang/flowlint/internal/analysis/lattice"
	"github.com/gnolang/flowlint/internal/syntax"
)

type Store = *lattice.Env[lattice.Zeroness]

type Result = dataflow.Result[Store]

// Analyze runs the zero-ness analysis on g. Parameters start at Top.
func Analyze(g *cfg.CFG, conf dataflow.Config) (*Result, error) {
	conf.Direction = dataflow.Forward
	initial := lattice.NewEnv[lattice.Zeroness]()
	for _, p := range g.Procedure().Params {
		initial.Set(p.Name, lattice.Top)
	}
	return dataflow.Run[Store](g, Transfer{}, initial, conf)
}

// Transfer is the zero-ness transfer function. Comparisons of a variable
// with zero refine it on both branches.
type Transfer struct{}

func (Transfer) Visit(n *cfg.Node, in dataflow.TransferInput[Store]) (dataflow.TransferResult[Store], error) {
	s := in.Regular()
	switch n.Kind() {
	case cfg.VarDeclNode:
		v := lattice.Top
		if n.Value() != nil {
			v = Eval(n.Value(), s)
		}
		s.Set(n.Name(), v)
	case cfg.AssignNode:
		if n.Name() != "" {
			s.Set(n.Name(), Eval(n.Value(), s))
		}
	case cfg.CatchNode:
		if n.Name() != "" {
			s.Set(n.Name(), lattice.Top)
		}
	case cfg.BinaryNode:
		if then, els, ok := refine(n, s); ok {
			return dataflow.Conditional(then, els), nil
		}
	}
	return dataflow.Single(s), nil
}

// Eval computes the zero-ness of an expression node in store s.
func Eval(n *cfg.Node, s Store) lattice.Zeroness {
	if n == nil {
		return lattice.Top
	}
	switch n.Kind() {
	case cfg.LiteralNode:
		if v, ok := n.Int(); ok {
			return lattice.ZeronessOf(v)
		}
		if n.LitKind() == syntax.FloatLitKind {
			return lattice.MaybeZero
		}
	case cfg.LocalNode:
		if v, ok := s.Get(n.Name()); ok {
			return v
		}
	case cfg.UnaryNode:
		if n.UnaryOp() == syntax.OpNeg {
			return Eval(n.Operand(0), s)
		}
	case cfg.BinaryNode:
		return combine(n.Op(), Eval(n.Operand(0), s), Eval(n.Operand(1), s))
	case cfg.TernaryNode:
		return Eval(n.Operand(0), s).Join(Eval(n.Operand(1), s))
	}
	return lattice.Top
}

func combine(op syntax.BinaryOp, lhs, rhs lattice.Zeroness) lattice.Zeroness {
	switch {
	case lhs == lattice.Bottom || rhs == lattice.Bottom:
		return lattice.Bottom
	case op == syntax.OpMul && (lhs == lattice.Zero || rhs == lattice.Zero):
		return lattice.Zero
	case lhs == lattice.Top || rhs == lattice.Top:
		return lattice.Top
	}

	switch op {
	case syntax.OpMul:
		if lhs == lattice.NonZero && rhs == lattice.NonZero {
			return lattice.NonZero
		}
	case syntax.OpAdd, syntax.OpSub, syntax.OpBitOr, syntax.OpXor:
		if lhs == lattice.Zero {
			return rhs
		}
		if rhs == lattice.Zero {
			return lhs
		}
	case syntax.OpDiv, syntax.OpMod, syntax.OpBitAnd, syntax.OpShl, syntax.OpShr:
		if lhs == lattice.Zero {
			return lattice.Zero
		}
	}
	if op.IsComparison() {
		return lattice.Top
	}
	return lattice.MaybeZero
}

// refine splits s on comparisons of a variable with zero.
func refine(n *cfg.Node, s Store) (then, els Store, ok bool) {
	if !n.Op().IsComparison() {
		return nil, nil, false
	}
	x, zero, op := n.Operand(0), n.Operand(1), n.Op()
	if x.Kind() != cfg.LocalNode {
		x, zero, op = zero, x, flip(op)
	}
	if x.Kind() != cfg.LocalNode || Eval(zero, s) != lattice.Zero {
		return nil, nil, false
	}
	if zero.Kind() != cfg.LiteralNode {
		return nil, nil, false
	}

	var onThen, onElse lattice.Zeroness
	switch op {
	case syntax.OpNeq:
		onThen, onElse = lattice.NonZero, lattice.Zero
	case syntax.OpEq:
		onThen, onElse = lattice.Zero, lattice.NonZero
	case syntax.OpGt, syntax.OpLt:
		onThen, onElse = lattice.NonZero, lattice.MaybeZero
	case syntax.OpGte, syntax.OpLte:
		onThen, onElse = lattice.MaybeZero, lattice.NonZero
	default:
		return nil, nil, false
	}
	return restrict(s, x.Name(), onThen), restrict(s, x.Name(), onElse), true
}

func flip(op syntax.BinaryOp) syntax.BinaryOp {
	switch op {
	case syntax.OpLt:
		return syntax.OpGt
	case syntax.OpGt:
		return syntax.OpLt
	case syntax.OpLte:
		return syntax.OpGte
	case syntax.OpGte:
		return syntax.OpLte
	}
	return op
}

// restrict narrows name to its meet with bound. A branch that cannot be
// taken binds the variable to Bottom.
func restrict(s Store, name string, bound lattice.Zeroness) Store {
	cur, ok := s.Get(name)
	if !ok {
		cur = lattice.Top
	}
	out := s.Copy()
	out.Set(name, cur.Meet(bound))
	return out
}

// Level classifies a finding.
type Level int

const (
	// Definite marks a divisor that is zero on every path.
	Definite Level = iota
	// Possible marks a divisor that is zero on some path.
	Possible
)

func (l Level) String() string {
	if l == Definite {
		return "definite"
	}
	return "possible"
}

// Finding is a division or remainder whose divisor may be zero.
type Finding struct {
	Node    *cfg.Node
	Divisor lattice.Zeroness
	Level   Level
}

// Divisions reports the reachable divisions of g whose divisor is Zero or
// MaybeZero. Divisors of unknown zero-ness are not reported.
func Divisions(g *cfg.CFG, res *Result) []Finding {
	var out []Finding
	for _, n := range g.Nodes() {
		if n.Kind() != cfg.BinaryNode || (n.Op() != syntax.OpDiv && n.Op() != syntax.OpMod) {
			continue
		}
		s, ok := res.StoreBefore(n)
		if !ok {
			continue
		}
		switch d := Eval(n.Operand(1), s); d {
		case lattice.Zero:
			out = append(out, Finding{Node: n, Divisor: d, Level: Definite})
		case lattice.MaybeZero:
			out = append(out, Finding{Node: n, Divisor: d, Level: Possible})
		}
	}
	return out
}
