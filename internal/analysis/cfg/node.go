package cfg

import (
	"fmt"
	"go/token"
	"strconv"
	"strings"

	"github.com/gnolang/flowlint/internal/syntax"
)

// NodeKind tags the evaluation step a Node represents.
type NodeKind int

const (
	LocalNode        NodeKind = iota // read of a local variable
	LiteralNode                      // constant
	BinaryNode                       // arithmetic, bitwise or comparison operator
	UnaryNode                        // ! or unary -
	AssignNode                       // store into a variable, element or field
	VarDeclNode                      // local declaration, with or without initializer
	CallNode                         // procedure call
	IndexNode                        // x[i]
	SelectNode                       // x.f
	CastNode                         // checked conversion
	ReturnNode                       // return with optional value
	ThrowNode                        // explicit throw or synthetic rethrow
	CatchNode                        // binding of a caught exception at handler entry
	ShortCircuitNode                 // value of && or || at the merge point
	TernaryNode                      // value of c ? a : b at the merge point
	MarkerNode                       // no-op with a description, e.g. start of a finally copy
)

var nodeKindNames = [...]string{
	LocalNode:        "local",
	LiteralNode:      "literal",
	BinaryNode:       "binary",
	UnaryNode:        "unary",
	AssignNode:       "assign",
	VarDeclNode:      "vardecl",
	CallNode:         "call",
	IndexNode:        "index",
	SelectNode:       "select",
	CastNode:         "cast",
	ReturnNode:       "return",
	ThrowNode:        "throw",
	CatchNode:        "catch",
	ShortCircuitNode: "shortcircuit",
	TernaryNode:      "ternary",
	MarkerNode:       "marker",
}

func (k NodeKind) String() string {
	if k >= 0 && int(k) < len(nodeKindNames) {
		return nodeKindNames[k]
	}
	return "NodeKind(" + strconv.Itoa(int(k)) + ")"
}

// BoolType is the type descriptor of boolean-valued nodes.
const BoolType = "bool"

// Node is one evaluation step of a procedure. Nodes are created by the
// builder and never change once the graph is returned.
type Node struct {
	id        int
	kind      NodeKind
	op        syntax.BinaryOp
	uop       syntax.UnaryOp
	name      string
	lit       syntax.LitKind
	operands  []*Node
	typ       string
	pos       token.Pos
	tree      syntax.Node
	synthetic bool
	block     int
}

func (n *Node) ID() int         { return n.id }
func (n *Node) Kind() NodeKind  { return n.kind }
func (n *Node) Pos() token.Pos  { return n.pos }
func (n *Node) Block() int      { return n.block }
func (n *Node) Type() string    { return n.typ }
func (n *Node) IsBoolean() bool { return n.typ == BoolType }

// Tree returns the syntax element this node was generated from.
func (n *Node) Tree() syntax.Node { return n.tree }

// Synthetic reports whether the node has no direct counterpart in the
// source, such as a rethrow at the end of a finally copy.
func (n *Node) Synthetic() bool { return n.synthetic }

// Op returns the operator of a BinaryNode or ShortCircuitNode.
func (n *Node) Op() syntax.BinaryOp { return n.op }

// UnaryOp returns the operator of a UnaryNode.
func (n *Node) UnaryOp() syntax.UnaryOp { return n.uop }

// Name returns the variable of LocalNode, AssignNode, VarDeclNode and
// CatchNode, the callee of CallNode, the field of SelectNode, the exception
// type of ThrowNode and the text of LiteralNode and MarkerNode.
// An AssignNode whose target is not a plain variable has an empty name.
func (n *Node) Name() string { return n.name }

// LitKind returns the literal class of a LiteralNode.
func (n *Node) LitKind() syntax.LitKind { return n.lit }

// Int returns the value of an integer LiteralNode.
func (n *Node) Int() (int64, bool) {
	if n.kind != LiteralNode || n.lit != syntax.IntLitKind {
		return 0, false
	}
	v, err := strconv.ParseInt(n.name, 0, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Operands returns the nodes whose values this node consumes.
func (n *Node) Operands() []*Node { return n.operands }

// Operand returns the i-th operand or nil.
func (n *Node) Operand(i int) *Node {
	if i < 0 || i >= len(n.operands) {
		return nil
	}
	return n.operands[i]
}

// Value returns the stored value of an AssignNode, the initializer of a
// VarDeclNode and the result of a ReturnNode or ThrowNode. It is nil when
// the node has none.
func (n *Node) Value() *Node {
	switch n.kind {
	case AssignNode, VarDeclNode, ReturnNode, ThrowNode:
		if len(n.operands) == 0 {
			return nil
		}
		return n.operands[len(n.operands)-1]
	}
	return nil
}

// Target returns the element or field node an AssignNode writes through,
// or nil for assignments to plain variables.
func (n *Node) Target() *Node {
	if n.kind == AssignNode && len(n.operands) == 2 {
		return n.operands[0]
	}
	return nil
}

func (n *Node) String() string {
	ref := func(o *Node) string {
		if o == nil {
			return "_"
		}
		return "n" + strconv.Itoa(o.id)
	}
	refs := func() string {
		parts := make([]string, len(n.operands))
		for i, o := range n.operands {
			parts[i] = ref(o)
		}
		return strings.Join(parts, ", ")
	}

	switch n.kind {
	case LocalNode:
		return n.name
	case LiteralNode:
		if n.lit == syntax.StringLitKind {
			return strconv.Quote(n.name)
		}
		return n.name
	case BinaryNode, ShortCircuitNode:
		return fmt.Sprintf("%s %s %s", ref(n.Operand(0)), n.op, ref(n.Operand(1)))
	case UnaryNode:
		return n.uop.String() + ref(n.Operand(0))
	case AssignNode:
		if t := n.Target(); t != nil {
			return fmt.Sprintf("%s = %s", ref(t), ref(n.Value()))
		}
		return fmt.Sprintf("%s = %s", n.name, ref(n.Value()))
	case VarDeclNode:
		if n.Value() == nil {
			return "var " + n.name
		}
		return fmt.Sprintf("var %s = %s", n.name, ref(n.Value()))
	case CallNode:
		return n.name + "(" + refs() + ")"
	case IndexNode:
		return fmt.Sprintf("%s[%s]", ref(n.Operand(0)), ref(n.Operand(1)))
	case SelectNode:
		return ref(n.Operand(0)) + "." + n.name
	case CastNode:
		return fmt.Sprintf("(%s)%s", n.typ, ref(n.Operand(0)))
	case ReturnNode:
		if n.Value() == nil {
			return "return"
		}
		return "return " + ref(n.Value())
	case ThrowNode:
		if n.synthetic {
			return "rethrow " + n.name
		}
		return "throw " + n.name
	case CatchNode:
		return fmt.Sprintf("catch %s %s", n.typ, n.name)
	case TernaryNode:
		return "ternary(" + refs() + ")"
	case MarkerNode:
		return "marker (" + n.name + ")"
	default:
		return n.kind.String()
	}
}
