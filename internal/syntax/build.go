package syntax

import "strconv"

// Helper constructors for building trees by hand, mostly in tests.

func Int(v int64) *BasicLit {
	return &BasicLit{Kind: IntLitKind, Value: strconv.FormatInt(v, 10)}
}

func Bool(v bool) *BasicLit {
	return &BasicLit{Kind: BoolLitKind, Value: strconv.FormatBool(v)}
}

func Str(v string) *BasicLit {
	return &BasicLit{Kind: StringLitKind, Value: v}
}

func Nil() *BasicLit {
	return &BasicLit{Kind: NilLitKind, Value: "nil"}
}

func Id(name string) *Ident {
	return &Ident{Name: name}
}

func Bin(op BinaryOp, left, right Expr) *BinaryExpr {
	return &BinaryExpr{Op: op, Left: left, Right: right}
}

func And(left, right Expr) *BinaryExpr { return Bin(OpAnd, left, right) }
func Or(left, right Expr) *BinaryExpr  { return Bin(OpOr, left, right) }
func Eq(left, right Expr) *BinaryExpr  { return Bin(OpEq, left, right) }
func Lt(left, right Expr) *BinaryExpr  { return Bin(OpLt, left, right) }

func Not(x Expr) *UnaryExpr {
	return &UnaryExpr{Op: OpNot, Operand: x}
}

func Neg(x Expr) *UnaryExpr {
	return &UnaryExpr{Op: OpNeg, Operand: x}
}

func Call(fn string, args ...Expr) *CallExpr {
	return &CallExpr{Func: fn, Args: args}
}

func Index(x, i Expr) *IndexExpr {
	return &IndexExpr{X: x, Index: i}
}

func Select(x Expr, field string) *SelectorExpr {
	return &SelectorExpr{X: x, Field: field}
}

func Cast(x Expr, typ string) *CastExpr {
	return &CastExpr{X: x, Type: typ}
}

func Cond(c, then, els Expr) *CondExpr {
	return &CondExpr{Cond: c, Then: then, Else: els}
}

func Eval(x Expr) *ExprStmt {
	return &ExprStmt{X: x}
}

func Var(name string, value Expr) *VarDecl {
	return &VarDecl{Name: name, Value: value}
}

func Assign(name string, value Expr) *AssignStmt {
	return &AssignStmt{Target: Id(name), Value: value}
}

func Block(stmts ...Stmt) *BlockStmt {
	return &BlockStmt{Stmts: stmts}
}

func If(cond Expr, then Stmt, els Stmt) *IfStmt {
	return &IfStmt{Cond: cond, Then: then, Else: els}
}

func While(cond Expr, body Stmt) *WhileStmt {
	return &WhileStmt{Cond: cond, Body: body}
}

func DoWhile(body Stmt, cond Expr) *DoWhileStmt {
	return &DoWhileStmt{Body: body, Cond: cond}
}

func For(init Stmt, cond Expr, post Stmt, body Stmt) *ForStmt {
	return &ForStmt{Init: init, Cond: cond, Post: post, Body: body}
}

func Switch(tag Expr, cases ...*CaseClause) *SwitchStmt {
	return &SwitchStmt{Tag: tag, Cases: cases}
}

func Case(values []Expr, body ...Stmt) *CaseClause {
	if values == nil {
		values = []Expr{}
	}
	return &CaseClause{Values: values, Body: body}
}

func Default(body ...Stmt) *CaseClause {
	return &CaseClause{Body: body}
}

func Label(name string, s Stmt) *LabeledStmt {
	return &LabeledStmt{Label: name, Stmt: s}
}

func Break(label string) *BreakStmt {
	return &BreakStmt{Label: label}
}

func Continue(label string) *ContinueStmt {
	return &ContinueStmt{Label: label}
}

func Return(value Expr) *ReturnStmt {
	return &ReturnStmt{Value: value}
}

func Throw(typ string, value Expr) *ThrowStmt {
	return &ThrowStmt{Type: typ, Value: value}
}

func Catch(typ, name string, body ...Stmt) *CatchClause {
	return &CatchClause{Type: typ, Name: name, Body: Block(body...)}
}

func Try(body *BlockStmt, finally *BlockStmt, catches ...*CatchClause) *TryStmt {
	return &TryStmt{Body: body, Catches: catches, Finally: finally}
}

func Proc(name string, params []string, body ...Stmt) *Procedure {
	ps := make([]Param, len(params))
	for i, p := range params {
		ps[i] = Param{Name: p}
	}
	return &Procedure{Name: name, Params: ps, Body: Block(body...)}
}
