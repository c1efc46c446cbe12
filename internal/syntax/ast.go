package syntax

import (
	"go/token"
	"strconv"
	"strings"
)

// Node is any element of a procedure-body syntax tree.
// Nodes are compared by identity; the CFG builder keeps a back-link from
// every generated cfg node to the tree element it was produced from.
type Node interface {
	Pos() token.Pos
	String() string
}

// Expr represents an expression.
type Expr interface {
	Node
	isExpr()
}

// Stmt represents a statement.
type Stmt interface {
	Node
	isStmt()
}

// Span records the source position of a tree element.
type Span struct {
	At token.Pos
}

func (s Span) Pos() token.Pos { return s.At }

// SetPos updates the recorded position.
func (s *Span) SetPos(p token.Pos) { s.At = p }

// Positioned is implemented by every tree element.
type Positioned interface {
	Node
	SetPos(token.Pos)
}

// At sets the position of n and returns it, for use with the constructors.
func At[T Positioned](n T, p token.Pos) T {
	n.SetPos(p)
	return n
}

// BinaryOp represents binary operators.
type BinaryOp int

const (
	_ BinaryOp = iota
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpEq
	OpNeq
	OpLt
	OpLte
	OpGt
	OpGte
	OpAnd // short-circuit
	OpOr  // short-circuit
	OpBitAnd
	OpBitOr
	OpXor
	OpShl
	OpShr
)

func (op BinaryOp) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpMod:
		return "%"
	case OpEq:
		return "=="
	case OpNeq:
		return "!="
	case OpLt:
		return "<"
	case OpLte:
		return "<="
	case OpGt:
		return ">"
	case OpGte:
		return ">="
	case OpAnd:
		return "&&"
	case OpOr:
		return "||"
	case OpBitAnd:
		return "&"
	case OpBitOr:
		return "|"
	case OpXor:
		return "^"
	case OpShl:
		return "<<"
	case OpShr:
		return ">>"
	default:
		return "?"
	}
}

// IsComparison reports whether op yields a boolean from two operands.
func (op BinaryOp) IsComparison() bool {
	switch op {
	case OpEq, OpNeq, OpLt, OpLte, OpGt, OpGte:
		return true
	}
	return false
}

// IsShortCircuit reports whether op is a conditional && or ||.
func (op BinaryOp) IsShortCircuit() bool {
	return op == OpAnd || op == OpOr
}

// UnaryOp represents unary operators.
type UnaryOp int

const (
	OpNot UnaryOp = iota
	OpNeg
)

func (op UnaryOp) String() string {
	switch op {
	case OpNot:
		return "!"
	case OpNeg:
		return "-"
	default:
		return "?"
	}
}

// LitKind classifies a basic literal.
type LitKind int

const (
	IntLitKind LitKind = iota
	FloatLitKind
	BoolLitKind
	StringLitKind
	NilLitKind
)

/***** Expressions *****/

// Ident is a reference to a local variable or parameter.
type Ident struct {
	Span
	Name string
}

func (*Ident) isExpr()          {}
func (e *Ident) String() string { return e.Name }

// BasicLit is an int, bool, string or nil literal.
type BasicLit struct {
	Span
	Kind  LitKind
	Value string
}

func (*BasicLit) isExpr() {}
func (e *BasicLit) String() string {
	if e.Kind == StringLitKind {
		return strconv.Quote(e.Value)
	}
	return e.Value
}

// Int returns the integer value of an int literal.
func (e *BasicLit) Int() (int64, bool) {
	if e.Kind != IntLitKind {
		return 0, false
	}
	v, err := strconv.ParseInt(e.Value, 0, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// BinaryExpr represents a binary expression, including && and ||.
type BinaryExpr struct {
	Span
	Op    BinaryOp
	Left  Expr
	Right Expr
}

func (*BinaryExpr) isExpr() {}
func (e *BinaryExpr) String() string {
	return "(" + e.Left.String() + " " + e.Op.String() + " " + e.Right.String() + ")"
}

// UnaryExpr represents a unary expression.
type UnaryExpr struct {
	Span
	Op      UnaryOp
	Operand Expr
}

func (*UnaryExpr) isExpr() {}
func (e *UnaryExpr) String() string {
	return "(" + e.Op.String() + e.Operand.String() + ")"
}

// CallExpr represents a call of a named procedure. Throws lists the
// exception types the callee declares. Unless the call is Pure, an
// unchecked failure of any type is implied as well.
type CallExpr struct {
	Span
	Func   string
	Args   []Expr
	Throws []string
	Pure   bool
}

func (*CallExpr) isExpr() {}
func (e *CallExpr) String() string {
	args := make([]string, len(e.Args))
	for i, a := range e.Args {
		args[i] = a.String()
	}
	return e.Func + "(" + strings.Join(args, ", ") + ")"
}

// IndexExpr represents x[i].
type IndexExpr struct {
	Span
	X     Expr
	Index Expr
}

func (*IndexExpr) isExpr() {}
func (e *IndexExpr) String() string {
	return e.X.String() + "[" + e.Index.String() + "]"
}

// SelectorExpr represents a field access x.f.
type SelectorExpr struct {
	Span
	X     Expr
	Field string
}

func (*SelectorExpr) isExpr() {}
func (e *SelectorExpr) String() string {
	return e.X.String() + "." + e.Field
}

// CastExpr represents a checked conversion of X to Type.
type CastExpr struct {
	Span
	X    Expr
	Type string
}

func (*CastExpr) isExpr() {}
func (e *CastExpr) String() string {
	return "(" + e.Type + ")" + e.X.String()
}

// CondExpr represents the ternary cond ? then : else.
type CondExpr struct {
	Span
	Cond Expr
	Then Expr
	Else Expr
}

func (*CondExpr) isExpr() {}
func (e *CondExpr) String() string {
	return "(" + e.Cond.String() + " ? " + e.Then.String() + " : " + e.Else.String() + ")"
}

/***** Statements *****/

// ExprStmt evaluates an expression for its effects.
type ExprStmt struct {
	Span
	X Expr
}

func (*ExprStmt) isStmt()          {}
func (s *ExprStmt) String() string { return s.X.String() }

// VarDecl declares a local, optionally initialized.
type VarDecl struct {
	Span
	Name  string
	Type  string
	Value Expr // can be nil
}

func (*VarDecl) isStmt() {}
func (s *VarDecl) String() string {
	out := "var " + s.Name
	if s.Type != "" {
		out += " " + s.Type
	}
	if s.Value != nil {
		out += " = " + s.Value.String()
	}
	return out
}

// AssignStmt assigns Value to Target. A non-zero Op makes it a compound
// assignment (x op= v).
type AssignStmt struct {
	Span
	Target Expr // *Ident, *IndexExpr or *SelectorExpr
	Op     BinaryOp
	Value  Expr
}

func (*AssignStmt) isStmt() {}
func (s *AssignStmt) String() string {
	op := "="
	if s.Op != 0 {
		op = s.Op.String() + "="
	}
	return s.Target.String() + " " + op + " " + s.Value.String()
}

// BlockStmt represents a block of statements.
type BlockStmt struct {
	Span
	Stmts []Stmt
}

func (*BlockStmt) isStmt() {}
func (s *BlockStmt) String() string {
	if len(s.Stmts) == 0 {
		return "{}"
	}
	parts := make([]string, len(s.Stmts))
	for i, stmt := range s.Stmts {
		parts[i] = stmt.String()
	}
	return "{ " + strings.Join(parts, "; ") + " }"
}

// IfStmt represents if cond { then } else { els }.
type IfStmt struct {
	Span
	Cond Expr
	Then Stmt
	Else Stmt // can be nil
}

func (*IfStmt) isStmt() {}
func (s *IfStmt) String() string {
	out := "if " + s.Cond.String() + " " + s.Then.String()
	if s.Else != nil {
		out += " else " + s.Else.String()
	}
	return out
}

// WhileStmt represents while cond { body }.
type WhileStmt struct {
	Span
	Cond Expr
	Body Stmt
}

func (*WhileStmt) isStmt() {}
func (s *WhileStmt) String() string {
	return "while " + s.Cond.String() + " " + s.Body.String()
}

// DoWhileStmt represents do { body } while cond.
type DoWhileStmt struct {
	Span
	Body Stmt
	Cond Expr
}

func (*DoWhileStmt) isStmt() {}
func (s *DoWhileStmt) String() string {
	return "do " + s.Body.String() + " while " + s.Cond.String()
}

// ForStmt represents for init; cond; post { body }. Every part but the body
// can be nil; a nil condition loops forever.
type ForStmt struct {
	Span
	Init Stmt
	Cond Expr
	Post Stmt
	Body Stmt
}

func (*ForStmt) isStmt() {}
func (s *ForStmt) String() string {
	str := func(n Node) string {
		if n == nil {
			return ""
		}
		return n.String()
	}
	var cond string
	if s.Cond != nil {
		cond = s.Cond.String()
	}
	return "for " + str(s.Init) + "; " + cond + "; " + str(s.Post) + " " + s.Body.String()
}

// CaseClause is one arm of a switch. A nil Values slice marks the default
// clause.
type CaseClause struct {
	Span
	Values []Expr
	Body   []Stmt
}

func (*CaseClause) isStmt() {}
func (c *CaseClause) String() string {
	if c.Values == nil {
		return "default: " + (&BlockStmt{Stmts: c.Body}).String()
	}
	vals := make([]string, len(c.Values))
	for i, v := range c.Values {
		vals[i] = v.String()
	}
	return "case " + strings.Join(vals, ", ") + ": " + (&BlockStmt{Stmts: c.Body}).String()
}

// SwitchStmt compares Tag against each case value in order. A nil Tag
// switches on the first case value that is true. Case bodies do not fall
// through unless they end in a FallthroughStmt.
type SwitchStmt struct {
	Span
	Tag   Expr
	Cases []*CaseClause
}

func (*SwitchStmt) isStmt() {}
func (s *SwitchStmt) String() string {
	out := "switch "
	if s.Tag != nil {
		out += s.Tag.String() + " "
	}
	parts := make([]string, len(s.Cases))
	for i, c := range s.Cases {
		parts[i] = c.String()
	}
	return out + "{ " + strings.Join(parts, "; ") + " }"
}

// LabeledStmt attaches a label to a statement.
type LabeledStmt struct {
	Span
	Label string
	Stmt  Stmt
}

func (*LabeledStmt) isStmt() {}
func (s *LabeledStmt) String() string {
	return s.Label + ": " + s.Stmt.String()
}

// BreakStmt exits the innermost (or labeled) loop, switch or labeled block.
type BreakStmt struct {
	Span
	Label string
}

func (*BreakStmt) isStmt() {}
func (s *BreakStmt) String() string {
	if s.Label == "" {
		return "break"
	}
	return "break " + s.Label
}

// ContinueStmt restarts the innermost (or labeled) loop.
type ContinueStmt struct {
	Span
	Label string
}

func (*ContinueStmt) isStmt() {}
func (s *ContinueStmt) String() string {
	if s.Label == "" {
		return "continue"
	}
	return "continue " + s.Label
}

// FallthroughStmt transfers control to the next case body of a switch.
type FallthroughStmt struct {
	Span
}

func (*FallthroughStmt) isStmt()        {}
func (*FallthroughStmt) String() string { return "fallthrough" }

// ReturnStmt represents return e?.
type ReturnStmt struct {
	Span
	Value Expr // can be nil for bare return
}

func (*ReturnStmt) isStmt() {}
func (s *ReturnStmt) String() string {
	if s.Value == nil {
		return "return"
	}
	return "return " + s.Value.String()
}

// ThrowStmt raises an exception of the given type.
type ThrowStmt struct {
	Span
	Type  string
	Value Expr // can be nil
}

func (*ThrowStmt) isStmt() {}
func (s *ThrowStmt) String() string {
	if s.Value == nil {
		return "throw " + s.Type
	}
	return "throw " + s.Type + "(" + s.Value.String() + ")"
}

// CatchClause handles exceptions that are subtypes of Type.
type CatchClause struct {
	Span
	Type string
	Name string // can be empty
	Body *BlockStmt
}

func (*CatchClause) isStmt() {}
func (c *CatchClause) String() string {
	return "catch (" + c.Type + " " + c.Name + ") " + c.Body.String()
}

// TryStmt represents try { body } catch ... finally { ... }.
type TryStmt struct {
	Span
	Body    *BlockStmt
	Catches []*CatchClause
	Finally *BlockStmt // can be nil
}

func (*TryStmt) isStmt() {}
func (s *TryStmt) String() string {
	out := "try " + s.Body.String()
	for _, c := range s.Catches {
		out += " " + c.String()
	}
	if s.Finally != nil {
		out += " finally " + s.Finally.String()
	}
	return out
}

// Param is a formal parameter of a procedure.
type Param struct {
	Name string
	Type string
}

// Procedure is the unit the CFG builder translates.
type Procedure struct {
	Span
	Name   string
	Params []Param
	// Results are named results. They are read when the procedure returns.
	Results []Param
	// Escaping lists variables that may be read outside the body, through
	// a closure or a pointer.
	Escaping []string
	Body     *BlockStmt
}

func (p *Procedure) String() string {
	params := make([]string, len(p.Params))
	for i, prm := range p.Params {
		params[i] = strings.TrimSpace(prm.Name + " " + prm.Type)
	}
	return "func " + p.Name + "(" + strings.Join(params, ", ") + ") " + p.Body.String()
}
