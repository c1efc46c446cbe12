package frontend

import (
	"errors"
	"fmt"
	"go/ast"
	"go/token"
	"go/types"
	"strconv"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"golang.org/x/tools/go/ast/astutil"

	"github.com/gnolang/flowlint/internal/syntax"
)

// ErrUnsupported is returned for Go constructs without a lowering.
var ErrUnsupported = errors.New("unsupported construct")

// Names of the synthetic procedures introduced by lowering.
const (
	TupleFunc     = "$tuple"
	NextFunc      = "$next"
	TypeOfFunc    = "$typeof"
	CompositeFunc = "$composite"
	ClosureFunc   = "$func"
	SliceFunc     = "$slice"
	SendFunc      = "$send"
	RecvFunc      = "$recv"
	AddrFunc      = "$addr"
)

// builtins that cannot fail
var pureFuncs = map[string]bool{
	"len": true, "cap": true, "append": true, "make": true, "new": true,
	"min": true, "max": true, "copy": true, "delete": true, "clear": true,
	"print": true, "println": true, "recover": true, "complex": true,
	"real": true, "imag": true,
	"bool": true, "string": true, "byte": true, "rune": true,
	"int": true, "int8": true, "int16": true, "int32": true, "int64": true,
	"uint": true, "uint8": true, "uint16": true, "uint32": true, "uint64": true,
	"uintptr": true, "float32": true, "float64": true,
}

// Lower translates a Go function declaration into a procedure.
//
// A deferred call binds its arguments to temporaries and then becomes a
// try/finally around the statements that follow it in its block. This
// approximates Go semantics: a defer inside an if or loop body runs when
// that body ends, once per iteration, rather than at function exit. panic
// becomes a throw of type "panic", and range loops iterate on a synthetic
// $next condition. goto and select are not supported.
func Lower(fn *ast.FuncDecl) (*syntax.Procedure, error) {
	if fn == nil || fn.Body == nil {
		return nil, fmt.Errorf("%w: function without body", ErrUnsupported)
	}
	l := &lowerer{locals: collectLocals(fn)}

	fields := func(lists ...*ast.FieldList) []syntax.Param {
		var out []syntax.Param
		for _, fl := range lists {
			if fl == nil {
				continue
			}
			for _, f := range fl.List {
				typ := types.ExprString(f.Type)
				for _, name := range f.Names {
					out = append(out, syntax.Param{Name: name.Name, Type: typ})
				}
			}
		}
		return out
	}

	body := syntax.At(&syntax.BlockStmt{Stmts: l.stmtList(fn.Body.List)}, fn.Body.Pos())
	if l.err != nil {
		return nil, fmt.Errorf("lowering %s: %w", fn.Name.Name, l.err)
	}
	proc := &syntax.Procedure{
		Name:     fn.Name.Name,
		Params:   fields(fn.Recv, fn.Type.Params),
		Results:  fields(fn.Type.Results),
		Escaping: collectEscaping(fn, l.locals),
		Body:     body,
	}
	proc.SetPos(fn.Pos())
	return proc, nil
}

type lowerer struct {
	locals map[string]bool
	tmp    int
	err    error
}

func (l *lowerer) unsupported(pos token.Pos, what string) {
	if l.err == nil {
		l.err = fmt.Errorf("%w: %s at offset %d", ErrUnsupported, what, pos)
	}
}

func (l *lowerer) temp(prefix string) string {
	l.tmp++
	return prefix + strconv.Itoa(l.tmp)
}

// collectLocals gathers every name the function binds, so selector
// expressions on them are not mistaken for package-qualified identifiers.
func collectLocals(fn *ast.FuncDecl) map[string]bool {
	locals := make(map[string]bool)
	addFields := func(fl *ast.FieldList) {
		if fl == nil {
			return
		}
		for _, f := range fl.List {
			for _, name := range f.Names {
				locals[name.Name] = true
			}
		}
	}
	addFields(fn.Recv)
	addFields(fn.Type.Params)
	addFields(fn.Type.Results)

	ast.Inspect(fn.Body, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.AssignStmt:
			if n.Tok == token.DEFINE {
				for _, lhs := range n.Lhs {
					if id, ok := lhs.(*ast.Ident); ok {
						locals[id.Name] = true
					}
				}
			}
		case *ast.ValueSpec:
			for _, name := range n.Names {
				locals[name.Name] = true
			}
		case *ast.RangeStmt:
			for _, e := range []ast.Expr{n.Key, n.Value} {
				if id, ok := e.(*ast.Ident); ok {
					locals[id.Name] = true
				}
			}
		case *ast.TypeSwitchStmt:
			if as, ok := n.Assign.(*ast.AssignStmt); ok {
				if id, ok := as.Lhs[0].(*ast.Ident); ok {
					locals[id.Name] = true
				}
			}
		case *ast.FuncLit:
			addFields(n.Type.Params)
		}
		return true
	})
	return locals
}

// collectEscaping returns the locals read by closures or whose address
// is taken, in sorted order.
func collectEscaping(fn *ast.FuncDecl, locals map[string]bool) []string {
	escaping := make(map[string]bool)
	ast.Inspect(fn.Body, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.FuncLit:
			ast.Inspect(n.Body, func(m ast.Node) bool {
				if id, ok := m.(*ast.Ident); ok && locals[id.Name] {
					escaping[id.Name] = true
				}
				return true
			})
			return false
		case *ast.UnaryExpr:
			if id, ok := astutil.Unparen(n.X).(*ast.Ident); ok && n.Op == token.AND && locals[id.Name] {
				escaping[id.Name] = true
			}
		}
		return true
	})
	names := maps.Keys(escaping)
	slices.Sort(names)
	return names
}

/***** Statements *****/

func (l *lowerer) stmtList(list []ast.Stmt) []syntax.Stmt {
	var out []syntax.Stmt
	for i, s := range list {
		if d, ok := s.(*ast.DeferStmt); ok {
			// the arguments are evaluated at the defer statement
			call := l.call(d.Call).(*syntax.CallExpr)
			for j, arg := range call.Args {
				tmp := l.temp("$d")
				out = append(out, syntax.At(&syntax.VarDecl{Name: tmp, Value: arg}, arg.Pos()))
				call.Args[j] = syntax.At(syntax.Id(tmp), arg.Pos())
			}
			rest := syntax.At(&syntax.BlockStmt{Stmts: l.stmtList(list[i+1:])}, d.End())
			stmt := syntax.At(&syntax.ExprStmt{X: call}, d.Call.Pos())
			fin := syntax.At(&syntax.BlockStmt{Stmts: []syntax.Stmt{stmt}}, d.Pos())
			try := syntax.At(&syntax.TryStmt{Body: rest, Finally: fin}, d.Pos())
			return append(out, try)
		}
		out = append(out, l.stmt(s)...)
	}
	return out
}

func (l *lowerer) block(b *ast.BlockStmt) *syntax.BlockStmt {
	if b == nil {
		return &syntax.BlockStmt{}
	}
	return syntax.At(&syntax.BlockStmt{Stmts: l.stmtList(b.List)}, b.Pos())
}

// withInit wraps s in a block preceded by the lowered init statement.
func (l *lowerer) withInit(init ast.Stmt, s syntax.Stmt) []syntax.Stmt {
	if init == nil {
		return []syntax.Stmt{s}
	}
	stmts := append(l.stmt(init), s)
	return []syntax.Stmt{syntax.At(&syntax.BlockStmt{Stmts: stmts}, init.Pos())}
}

func (l *lowerer) stmt(s ast.Stmt) []syntax.Stmt {
	one := func(st syntax.Stmt) []syntax.Stmt { return []syntax.Stmt{st} }

	switch s := s.(type) {
	case *ast.EmptyStmt:
		return nil
	case *ast.BlockStmt:
		return one(l.block(s))
	case *ast.ExprStmt:
		if call, ok := astutil.Unparen(s.X).(*ast.CallExpr); ok && isPanic(call) {
			var value syntax.Expr
			if len(call.Args) > 0 {
				value = l.expr(call.Args[0])
			}
			return one(syntax.At(&syntax.ThrowStmt{Type: syntax.PanicException, Value: value}, s.Pos()))
		}
		return one(syntax.At(&syntax.ExprStmt{X: l.expr(s.X)}, s.Pos()))
	case *ast.GoStmt:
		return one(syntax.At(&syntax.ExprStmt{X: l.call(s.Call)}, s.Pos()))
	case *ast.SendStmt:
		send := &syntax.CallExpr{Func: SendFunc, Args: []syntax.Expr{l.expr(s.Chan), l.expr(s.Value)}}
		return one(syntax.At(&syntax.ExprStmt{X: syntax.At(send, s.Arrow)}, s.Pos()))
	case *ast.IncDecStmt:
		op := syntax.OpAdd
		if s.Tok == token.DEC {
			op = syntax.OpSub
		}
		return one(syntax.At(&syntax.AssignStmt{Target: l.expr(s.X), Op: op, Value: syntax.At(syntax.Int(1), s.TokPos)}, s.Pos()))
	case *ast.AssignStmt:
		return l.assign(s)
	case *ast.DeclStmt:
		return l.decl(s)
	case *ast.IfStmt:
		out := &syntax.IfStmt{Cond: l.expr(s.Cond), Then: l.block(s.Body)}
		if s.Else != nil {
			els := l.stmt(s.Else)
			if len(els) == 1 {
				out.Else = els[0]
			} else {
				out.Else = &syntax.BlockStmt{Stmts: els}
			}
		}
		return l.withInit(s.Init, syntax.At(out, s.Pos()))
	case *ast.ForStmt:
		out := &syntax.ForStmt{Body: l.block(s.Body)}
		if s.Init != nil {
			out.Init = &syntax.BlockStmt{Stmts: l.stmt(s.Init)}
		}
		if s.Cond != nil {
			out.Cond = l.expr(s.Cond)
		}
		if s.Post != nil {
			out.Post = &syntax.BlockStmt{Stmts: l.stmt(s.Post)}
		}
		return one(syntax.At(out, s.Pos()))
	case *ast.RangeStmt:
		return one(l.rangeStmt(s))
	case *ast.SwitchStmt:
		out := &syntax.SwitchStmt{}
		if s.Tag != nil {
			out.Tag = l.expr(s.Tag)
		}
		for _, c := range s.Body.List {
			cc := c.(*ast.CaseClause)
			clause := &syntax.CaseClause{Body: l.stmtList(cc.Body)}
			if cc.List != nil {
				clause.Values = make([]syntax.Expr, len(cc.List))
				for i, v := range cc.List {
					clause.Values[i] = l.expr(v)
				}
			}
			out.Cases = append(out.Cases, syntax.At(clause, cc.Pos()))
		}
		return l.withInit(s.Init, syntax.At(out, s.Pos()))
	case *ast.TypeSwitchStmt:
		return l.withInit(s.Init, l.typeSwitch(s))
	case *ast.LabeledStmt:
		inner := l.stmt(s.Stmt)
		if _, isBlock := s.Stmt.(*ast.BlockStmt); !isBlock && len(inner) == 1 {
			// range loops and statements with an init lower to { init; stmt };
			// the label belongs to stmt so continue can name the loop.
			if blk, ok := inner[0].(*syntax.BlockStmt); ok && len(blk.Stmts) > 0 {
				last := len(blk.Stmts) - 1
				blk.Stmts[last] = syntax.At(&syntax.LabeledStmt{Label: s.Label.Name, Stmt: blk.Stmts[last]}, s.Pos())
				return inner
			}
		}
		var target syntax.Stmt = &syntax.BlockStmt{Stmts: inner}
		if len(inner) == 1 {
			target = inner[0]
		}
		return one(syntax.At(&syntax.LabeledStmt{Label: s.Label.Name, Stmt: target}, s.Pos()))
	case *ast.BranchStmt:
		var label string
		if s.Label != nil {
			label = s.Label.Name
		}
		switch s.Tok {
		case token.BREAK:
			return one(syntax.At(syntax.Break(label), s.Pos()))
		case token.CONTINUE:
			return one(syntax.At(syntax.Continue(label), s.Pos()))
		case token.FALLTHROUGH:
			return one(syntax.At(&syntax.FallthroughStmt{}, s.Pos()))
		default:
			l.unsupported(s.Pos(), s.Tok.String())
			return nil
		}
	case *ast.ReturnStmt:
		ret := &syntax.ReturnStmt{}
		switch len(s.Results) {
		case 0:
		case 1:
			ret.Value = l.expr(s.Results[0])
		default:
			ret.Value = syntax.At(&syntax.CallExpr{Func: TupleFunc, Args: l.exprs(s.Results), Pure: true}, s.Pos())
		}
		return one(syntax.At(ret, s.Pos()))
	case *ast.SelectStmt:
		l.unsupported(s.Pos(), "select")
		return nil
	default:
		l.unsupported(s.Pos(), fmt.Sprintf("%T", s))
		return nil
	}
}

func (l *lowerer) assign(s *ast.AssignStmt) []syntax.Stmt {
	if s.Tok != token.ASSIGN && s.Tok != token.DEFINE {
		op, ok := binaryOps[assignOps[s.Tok]]
		if !ok {
			l.unsupported(s.Pos(), s.Tok.String())
			return nil
		}
		return []syntax.Stmt{syntax.At(&syntax.AssignStmt{Target: l.expr(s.Lhs[0]), Op: op, Value: l.expr(s.Rhs[0])}, s.Pos())}
	}

	// a, b := f() binds every name to an unknown value
	if len(s.Lhs) != len(s.Rhs) {
		out := []syntax.Stmt{syntax.At(&syntax.ExprStmt{X: l.expr(s.Rhs[0])}, s.Rhs[0].Pos())}
		for _, lhs := range s.Lhs {
			if id, ok := lhs.(*ast.Ident); ok && id.Name != "_" {
				out = append(out, syntax.At(&syntax.VarDecl{Name: id.Name}, id.Pos()))
			}
		}
		return out
	}

	if len(s.Lhs) == 1 {
		return []syntax.Stmt{l.bind(s.Lhs[0], l.expr(s.Rhs[0]), s.Tok, s.Pos())}
	}

	// parallel assignment: evaluate every value before storing any
	var out []syntax.Stmt
	temps := make([]string, len(s.Rhs))
	for i, rhs := range s.Rhs {
		temps[i] = l.temp("$t")
		out = append(out, syntax.At(&syntax.VarDecl{Name: temps[i], Value: l.expr(rhs)}, rhs.Pos()))
	}
	for i, lhs := range s.Lhs {
		out = append(out, l.bind(lhs, syntax.At(syntax.Id(temps[i]), s.Rhs[i].Pos()), s.Tok, lhs.Pos()))
	}
	return out
}

func (l *lowerer) bind(lhs ast.Expr, value syntax.Expr, tok token.Token, pos token.Pos) syntax.Stmt {
	if id, ok := lhs.(*ast.Ident); ok {
		if id.Name == "_" {
			return syntax.At(&syntax.ExprStmt{X: value}, pos)
		}
		if tok == token.DEFINE {
			return syntax.At(&syntax.VarDecl{Name: id.Name, Value: value}, pos)
		}
	}
	return syntax.At(&syntax.AssignStmt{Target: l.expr(lhs), Value: value}, pos)
}

func (l *lowerer) decl(s *ast.DeclStmt) []syntax.Stmt {
	gd, ok := s.Decl.(*ast.GenDecl)
	if !ok || (gd.Tok != token.VAR && gd.Tok != token.CONST) {
		return nil
	}
	var out []syntax.Stmt
	for _, spec := range gd.Specs {
		vs := spec.(*ast.ValueSpec)
		var typ string
		if vs.Type != nil {
			typ = types.ExprString(vs.Type)
		}
		for i, name := range vs.Names {
			decl := &syntax.VarDecl{Name: name.Name, Type: typ}
			switch {
			case i < len(vs.Values):
				decl.Value = l.expr(vs.Values[i])
			case len(vs.Values) == 0:
				decl.Value = zeroValue(typ, name.Pos())
			}
			if name.Name == "_" {
				if decl.Value != nil {
					out = append(out, syntax.At(&syntax.ExprStmt{X: decl.Value}, name.Pos()))
				}
				continue
			}
			out = append(out, syntax.At(decl, name.Pos()))
		}
	}
	return out
}

// zeroValue returns the literal zero value of a basic type, or nil when
// the type has no literal form.
func zeroValue(typ string, pos token.Pos) syntax.Expr {
	switch typ {
	case "int", "int8", "int16", "int32", "int64",
		"uint", "uint8", "uint16", "uint32", "uint64", "uintptr",
		"byte", "rune":
		return syntax.At(syntax.Int(0), pos)
	case "float32", "float64":
		return syntax.At(&syntax.BasicLit{Kind: syntax.FloatLitKind, Value: "0"}, pos)
	case "bool":
		return syntax.At(syntax.Bool(false), pos)
	case "string":
		return syntax.At(syntax.Str(""), pos)
	}
	if len(typ) > 0 && (typ[0] == '*' || typ[0] == '[' && len(typ) > 1 && typ[1] == ']') {
		return syntax.At(syntax.Nil(), pos)
	}
	return nil
}

// rangeStmt lowers for k, v := range x { body } to
//
//	{ var $r = x; for ; $next($r); { var k; var v; body } }
func (l *lowerer) rangeStmt(s *ast.RangeStmt) syntax.Stmt {
	r := l.temp("$r")
	src := syntax.At(&syntax.VarDecl{Name: r, Value: l.expr(s.X)}, s.X.Pos())

	var bind []syntax.Stmt
	for _, e := range []ast.Expr{s.Key, s.Value} {
		if e == nil {
			continue
		}
		if id, ok := e.(*ast.Ident); ok {
			if id.Name != "_" {
				bind = append(bind, syntax.At(&syntax.VarDecl{Name: id.Name}, id.Pos()))
			}
			continue
		}
		unknown := syntax.At(&syntax.CallExpr{Func: NextFunc, Args: []syntax.Expr{syntax.Id(r)}, Pure: true}, e.Pos())
		bind = append(bind, syntax.At(&syntax.AssignStmt{Target: l.expr(e), Value: unknown}, e.Pos()))
	}
	body := l.block(s.Body)
	body.Stmts = append(bind, body.Stmts...)

	cond := syntax.At(&syntax.CallExpr{Func: NextFunc, Args: []syntax.Expr{syntax.At(syntax.Id(r), s.X.Pos())}, Pure: true}, s.For)
	loop := syntax.At(&syntax.ForStmt{Cond: cond, Body: body}, s.Pos())
	return syntax.At(&syntax.BlockStmt{Stmts: []syntax.Stmt{src, loop}}, s.Pos())
}

// typeSwitch lowers switch v := x.(type) to a switch over the dynamic type
// name of x.
func (l *lowerer) typeSwitch(s *ast.TypeSwitchStmt) syntax.Stmt {
	var (
		bound string
		x     ast.Expr
	)
	switch a := s.Assign.(type) {
	case *ast.AssignStmt:
		bound = a.Lhs[0].(*ast.Ident).Name
		x = a.Rhs[0].(*ast.TypeAssertExpr).X
	case *ast.ExprStmt:
		x = a.X.(*ast.TypeAssertExpr).X
	}
	tag := syntax.At(&syntax.CallExpr{Func: TypeOfFunc, Args: []syntax.Expr{l.expr(x)}, Pure: true}, x.Pos())

	out := &syntax.SwitchStmt{Tag: tag}
	for _, c := range s.Body.List {
		cc := c.(*ast.CaseClause)
		body := l.stmtList(cc.Body)
		if bound != "" {
			body = append([]syntax.Stmt{syntax.At(&syntax.VarDecl{Name: bound}, cc.Pos())}, body...)
		}
		clause := &syntax.CaseClause{Body: body}
		if cc.List != nil {
			clause.Values = make([]syntax.Expr, len(cc.List))
			for i, t := range cc.List {
				clause.Values[i] = syntax.At(syntax.Str(types.ExprString(t)), t.Pos())
			}
		}
		out.Cases = append(out.Cases, syntax.At(clause, cc.Pos()))
	}
	return syntax.At(out, s.Pos())
}

func isPanic(call *ast.CallExpr) bool {
	id, ok := astutil.Unparen(call.Fun).(*ast.Ident)
	return ok && id.Name == "panic"
}
