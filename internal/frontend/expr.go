package frontend

import (
	"go/ast"
	"go/token"
	"go/types"
	"strconv"

	"golang.org/x/tools/go/ast/astutil"

	"github.com/gnolang/flowlint/internal/syntax"
)

var binaryOps = map[token.Token]syntax.BinaryOp{
	token.ADD:  syntax.OpAdd,
	token.SUB:  syntax.OpSub,
	token.MUL:  syntax.OpMul,
	token.QUO:  syntax.OpDiv,
	token.REM:  syntax.OpMod,
	token.EQL:  syntax.OpEq,
	token.NEQ:  syntax.OpNeq,
	token.LSS:  syntax.OpLt,
	token.LEQ:  syntax.OpLte,
	token.GTR:  syntax.OpGt,
	token.GEQ:  syntax.OpGte,
	token.LAND: syntax.OpAnd,
	token.LOR:  syntax.OpOr,
	token.AND:  syntax.OpBitAnd,
	token.OR:   syntax.OpBitOr,
	token.XOR:  syntax.OpXor,
	token.SHL:  syntax.OpShl,
	token.SHR:  syntax.OpShr,
}

var assignOps = map[token.Token]token.Token{
	token.ADD_ASSIGN: token.ADD,
	token.SUB_ASSIGN: token.SUB,
	token.MUL_ASSIGN: token.MUL,
	token.QUO_ASSIGN: token.QUO,
	token.REM_ASSIGN: token.REM,
	token.AND_ASSIGN: token.AND,
	token.OR_ASSIGN:  token.OR,
	token.XOR_ASSIGN: token.XOR,
	token.SHL_ASSIGN: token.SHL,
	token.SHR_ASSIGN: token.SHR,
}

func (l *lowerer) exprs(list []ast.Expr) []syntax.Expr {
	out := make([]syntax.Expr, len(list))
	for i, e := range list {
		out[i] = l.expr(e)
	}
	return out
}

func (l *lowerer) expr(e ast.Expr) syntax.Expr {
	e = astutil.Unparen(e)
	switch e := e.(type) {
	case *ast.Ident:
		switch e.Name {
		case "true", "false":
			return syntax.At(syntax.Bool(e.Name == "true"), e.Pos())
		case "nil":
			return syntax.At(syntax.Nil(), e.Pos())
		}
		return syntax.At(syntax.Id(e.Name), e.Pos())
	case *ast.BasicLit:
		return syntax.At(basicLit(e), e.Pos())
	case *ast.BinaryExpr:
		op, ok := binaryOps[e.Op]
		if !ok {
			l.unsupported(e.OpPos, "operator "+e.Op.String())
			return syntax.At(syntax.Nil(), e.Pos())
		}
		return syntax.At(syntax.Bin(op, l.expr(e.X), l.expr(e.Y)), e.OpPos)
	case *ast.UnaryExpr:
		x := l.expr(e.X)
		switch e.Op {
		case token.NOT:
			return syntax.At(syntax.Not(x), e.Pos())
		case token.SUB:
			return syntax.At(syntax.Neg(x), e.Pos())
		case token.ADD:
			return x
		case token.XOR:
			return syntax.At(syntax.Bin(syntax.OpXor, x, syntax.Int(-1)), e.Pos())
		case token.AND:
			return syntax.At(&syntax.CallExpr{Func: AddrFunc, Args: []syntax.Expr{x}, Pure: true}, e.Pos())
		case token.ARROW:
			return syntax.At(&syntax.CallExpr{Func: RecvFunc, Args: []syntax.Expr{x}, Pure: true}, e.Pos())
		}
		l.unsupported(e.Pos(), "operator "+e.Op.String())
		return x
	case *ast.StarExpr:
		return syntax.At(syntax.Select(l.expr(e.X), "*"), e.Star)
	case *ast.CallExpr:
		return l.call(e)
	case *ast.IndexExpr:
		return syntax.At(syntax.Index(l.expr(e.X), l.expr(e.Index)), e.Lbrack)
	case *ast.IndexListExpr:
		return syntax.At(syntax.Id(types.ExprString(e)), e.Pos())
	case *ast.SliceExpr:
		args := []syntax.Expr{l.expr(e.X)}
		for _, bound := range []ast.Expr{e.Low, e.High, e.Max} {
			if bound != nil {
				args = append(args, l.expr(bound))
			}
		}
		return syntax.At(&syntax.CallExpr{Func: SliceFunc, Args: args, Throws: []string{syntax.IndexError}, Pure: true}, e.Lbrack)
	case *ast.SelectorExpr:
		if l.isPackage(e.X) {
			return syntax.At(syntax.Id(types.ExprString(e)), e.Pos())
		}
		return syntax.At(syntax.Select(l.expr(e.X), e.Sel.Name), e.Sel.Pos())
	case *ast.TypeAssertExpr:
		if e.Type == nil {
			l.unsupported(e.Pos(), "type switch guard outside switch")
			return l.expr(e.X)
		}
		return syntax.At(syntax.Cast(l.expr(e.X), types.ExprString(e.Type)), e.Lparen)
	case *ast.CompositeLit:
		var elts []syntax.Expr
		for _, elt := range e.Elts {
			if kv, ok := elt.(*ast.KeyValueExpr); ok {
				elt = kv.Value
			}
			elts = append(elts, l.expr(elt))
		}
		name := CompositeFunc
		if e.Type != nil {
			name += ":" + types.ExprString(e.Type)
		}
		return syntax.At(&syntax.CallExpr{Func: name, Args: elts, Pure: true}, e.Pos())
	case *ast.FuncLit:
		return syntax.At(&syntax.CallExpr{Func: ClosureFunc, Pure: true}, e.Pos())
	case *ast.ArrayType, *ast.MapType, *ast.ChanType, *ast.FuncType,
		*ast.InterfaceType, *ast.StructType, *ast.Ellipsis:
		// type operands of make and new
		return syntax.At(syntax.Str(types.ExprString(e)), e.Pos())
	default:
		l.unsupported(e.Pos(), types.ExprString(e))
		return syntax.At(syntax.Nil(), e.Pos())
	}
}

func (l *lowerer) call(e *ast.CallExpr) syntax.Expr {
	args := l.exprs(e.Args)
	call := &syntax.CallExpr{Args: args}

	switch fun := astutil.Unparen(e.Fun).(type) {
	case *ast.Ident:
		call.Func = fun.Name
		call.Pure = pureFuncs[fun.Name] && !l.locals[fun.Name]
	case *ast.SelectorExpr:
		call.Func = types.ExprString(fun)
		if !l.isPackage(fun.X) {
			// the receiver is evaluated first and passed along
			call.Args = append([]syntax.Expr{l.expr(fun.X)}, args...)
		}
	case *ast.ArrayType, *ast.ParenExpr, *ast.StarExpr, *ast.FuncType, *ast.ChanType, *ast.MapType, *ast.InterfaceType:
		// conversion
		call.Func = types.ExprString(fun)
		call.Pure = true
	default:
		call.Func = types.ExprString(fun)
	}
	return syntax.At(call, e.Lparen)
}

// isPackage reports whether x names an imported package rather than a
// value bound in the function.
func (l *lowerer) isPackage(x ast.Expr) bool {
	id, ok := x.(*ast.Ident)
	return ok && !l.locals[id.Name] && id.Obj == nil
}

func basicLit(e *ast.BasicLit) *syntax.BasicLit {
	switch e.Kind {
	case token.INT:
		if v, err := strconv.ParseInt(e.Value, 0, 64); err == nil {
			return syntax.Int(v)
		}
		return &syntax.BasicLit{Kind: syntax.IntLitKind, Value: e.Value}
	case token.CHAR:
		if r, _, _, err := strconv.UnquoteChar(e.Value[1:len(e.Value)-1], '\''); err == nil {
			return syntax.Int(int64(r))
		}
		return &syntax.BasicLit{Kind: syntax.IntLitKind, Value: e.Value}
	case token.STRING:
		if s, err := strconv.Unquote(e.Value); err == nil {
			return syntax.Str(s)
		}
		return syntax.Str(e.Value)
	default:
		return &syntax.BasicLit{Kind: syntax.FloatLitKind, Value: e.Value}
	}
}
