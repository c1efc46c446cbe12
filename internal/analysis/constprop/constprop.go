// Package constprop implements constant propagation over integer
// variables with the flat constant lattice.
package constprop

import (
	"github.com/gnolang/flowlint/internal/analysis/cfg"
	"github.com/gnolang/flowlint/internal/analysis/dataflow"
	"github.com/gnolang/flowlint/internal/analysis/lattice"
	"github.com/gnolang/flowlint/internal/syntax"
)

// Store maps variables to constants.
type Store = *lattice.Env[lattice.Const]

type Result = dataflow.Result[Store]

// Analyze runs constant propagation on g. Parameters start out unknown.
func Analyze(g *cfg.CFG, conf dataflow.Config) (*Result, error) {
	conf.Direction = dataflow.Forward
	initial := lattice.NewEnv[lattice.Const]()
	for _, p := range g.Procedure().Params {
		initial.Set(p.Name, lattice.ConstTop())
	}
	return dataflow.Run[Store](g, Transfer{}, initial, conf)
}

// Transfer is the constant propagation transfer function. Equality tests
// against a literal refine the tested variable on the then branch.
type Transfer struct{}

func (Transfer) Visit(n *cfg.Node, in dataflow.TransferInput[Store]) (dataflow.TransferResult[Store], error) {
	s := in.Regular()
	switch n.Kind() {
	case cfg.VarDeclNode:
		v := lattice.ConstTop()
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
			s.Set(n.Name(), lattice.ConstTop())
		}
	case cfg.BinaryNode:
		if then, els, ok := refine(n, s); ok {
			return dataflow.Conditional(then, els), nil
		}
	}
	return dataflow.Single(s), nil
}

// Eval computes the constant value of an expression node in store s.
func Eval(n *cfg.Node, s Store) lattice.Const {
	if n == nil {
		return lattice.ConstTop()
	}
	switch n.Kind() {
	case cfg.LiteralNode:
		if v, ok := n.Int(); ok {
			return lattice.Exact(v)
		}
	case cfg.LocalNode:
		if v, ok := s.Get(n.Name()); ok {
			return v
		}
	case cfg.UnaryNode:
		x := Eval(n.Operand(0), s)
		if v, ok := x.Value(); ok && n.UnaryOp() == syntax.OpNeg {
			return lattice.Exact(-v)
		}
		if x.IsBottom() {
			return x
		}
	case cfg.BinaryNode:
		l, r := Eval(n.Operand(0), s), Eval(n.Operand(1), s)
		if l.IsBottom() || r.IsBottom() {
			return lattice.ConstBottom()
		}
		a, okA := l.Value()
		b, okB := r.Value()
		if okA && okB {
			if v, ok := fold(n.Op(), a, b); ok {
				return lattice.Exact(v)
			}
		}
		if n.Op() == syntax.OpMul && ((okA && a == 0) || (okB && b == 0)) {
			return lattice.Exact(0)
		}
	case cfg.TernaryNode:
		return Eval(n.Operand(0), s).Join(Eval(n.Operand(1), s))
	}
	return lattice.ConstTop()
}

func fold(op syntax.BinaryOp, a, b int64) (int64, bool) {
	switch op {
	case syntax.OpAdd:
		return a + b, true
	case syntax.OpSub:
		return a - b, true
	case syntax.OpMul:
		return a * b, true
	case syntax.OpDiv:
		if b == 0 {
			return 0, false
		}
		return a / b, true
	case syntax.OpMod:
		if b == 0 {
			return 0, false
		}
		return a % b, true
	case syntax.OpBitAnd:
		return a & b, true
	case syntax.OpBitOr:
		return a | b, true
	case syntax.OpXor:
		return a ^ b, true
	case syntax.OpShl:
		if b < 0 || b > 63 {
			return 0, false
		}
		return a << b, true
	case syntax.OpShr:
		if b < 0 || b > 63 {
			return 0, false
		}
		return a >> b, true
	}
	return 0, false
}

// refine splits s on x == c and x != c where c is an integer literal.
func refine(n *cfg.Node, s Store) (then, els Store, ok bool) {
	if n.Op() != syntax.OpEq && n.Op() != syntax.OpNeq {
		return nil, nil, false
	}
	x, c := n.Operand(0), n.Operand(1)
	if x.Kind() != cfg.LocalNode {
		x, c = c, x
	}
	if x.Kind() != cfg.LocalNode {
		return nil, nil, false
	}
	v, isInt := c.Int()
	if !isInt {
		return nil, nil, false
	}
	cur, bound := s.Get(x.Name())
	if !bound || !cur.IsTop() {
		return nil, nil, false
	}
	eq := s.Copy()
	eq.Set(x.Name(), lattice.Exact(v))
	if n.Op() == syntax.OpEq {
		return eq, s, true
	}
	return s, eq, true
}

// Constant returns the value the expression node n is known to have
// wherever it executes.
func Constant(res *Result, n *cfg.Node) (int64, bool) {
	s, ok := res.StoreBefore(n)
	if !ok {
		return 0, false
	}
	return Eval(n, s).Value()
}

// Condition returns the outcome of the comparison node n when both
// operands are known constants wherever it executes.
func Condition(res *Result, n *cfg.Node) (bool, bool) {
	if n.Kind() != cfg.BinaryNode || !n.Op().IsComparison() {
		return false, false
	}
	s, ok := res.StoreBefore(n)
	if !ok {
		return false, false
	}
	a, ok := Eval(n.Operand(0), s).Value()
	if !ok {
		return false, false
	}
	b, ok := Eval(n.Operand(1), s).Value()
	if !ok {
		return false, false
	}
	switch n.Op() {
	case syntax.OpEq:
		return a == b, true
	case syntax.OpNeq:
		return a != b, true
	case syntax.OpLt:
		return a < b, true
	case syntax.OpLte:
		return a <= b, true
	case syntax.OpGt:
		return a > b, true
	default:
		return a >= b, true
	}
}
