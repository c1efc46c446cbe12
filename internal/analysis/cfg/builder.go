package cfg

import (
	"fmt"
	"go/token"
	"sort"

	"github.com/gnolang/flowlint/internal/syntax"
)

// Options controls graph construction.
type Options struct {
	// Hierarchy decides which catch clauses handle a thrown type.
	// NewHierarchy is used when nil.
	Hierarchy *syntax.Hierarchy

	// SuppressImplicitExceptions drops the exceptional edges of division,
	// indexing, field access, casts and the unchecked failure of calls.
	// Explicit throws and declared call exceptions are kept.
	SuppressImplicitExceptions bool
}

// Build translates the body of proc into a control flow graph.
// Constructs the builder cannot translate are reported as a *BuildError
// and no graph is returned.
func Build(proc *syntax.Procedure, opts Options) (*CFG, error) {
	if proc == nil || proc.Body == nil {
		return nil, &BuildError{Kind: ErrUnsupportedStatement, Msg: "procedure has no body"}
	}
	if opts.Hierarchy == nil {
		opts.Hierarchy = syntax.NewHierarchy()
	}

	g := &CFG{
		Name:   proc.Name,
		proc:   proc,
		byTree: make(map[syntax.Node][]*Node),
	}
	b := &builder{g: g, opts: opts, hier: opts.Hierarchy}

	entry := b.newBlock(EntryBlock)
	exit := b.newBlock(RegularExitBlock)
	excExit := b.newBlock(ExceptionalExitBlock)
	g.entry, g.exit, g.excExit = entry.id, exit.id, excExit.id

	b.cur = b.fresh()
	entry.succ = b.cur.id
	b.stmt(proc.Body, &scope{})
	b.link(b.cur, exit)

	if b.err != nil {
		return nil, b.err
	}
	if err := g.finalize(); err != nil {
		return nil, err
	}
	return g, nil
}

type builder struct {
	g    *CFG
	opts Options
	hier *syntax.Hierarchy

	// cur is the open block receiving nodes. It is nil only between
	// terminating a block with a branch and the caller choosing the next
	// block.
	cur *Block
	err error
}

func (b *builder) fail(pos token.Pos, kind error, format string, args ...any) {
	if b.err == nil {
		b.err = &BuildError{Pos: pos, Kind: kind, Msg: fmt.Sprintf(format, args...)}
	}
}

func (b *builder) newBlock(kind BlockKind) *Block {
	blk := newBlock(len(b.g.blocks), kind)
	b.g.blocks = append(b.g.blocks, blk)
	return blk
}

func (b *builder) fresh() *Block { return b.newBlock(RegularBlock) }

func (b *builder) link(from, to *Block) {
	from.succ = to.id
	from.succRule = EachToEach
}

// jumpTo ends the current block with an unconditional edge to target.
// Anything emitted afterwards lands in a block without predecessors.
func (b *builder) jumpTo(target *Block) {
	b.link(b.cur, target)
	b.cur = b.fresh()
}

func (b *builder) node(kind NodeKind, tree syntax.Node, operands ...*Node) *Node {
	n := &Node{
		id:       len(b.g.nodes),
		kind:     kind,
		operands: operands,
		tree:     tree,
		block:    noBlock,
	}
	if tree != nil {
		n.pos = tree.Pos()
		b.g.byTree[tree] = append(b.g.byTree[tree], n)
	}
	b.g.nodes = append(b.g.nodes, n)
	return n
}

func (b *builder) add(n *Node) *Node {
	n.block = b.cur.id
	b.cur.nodes = append(b.cur.nodes, n)
	return n
}

func (b *builder) marker(tree syntax.Node, text string) *Node {
	n := b.node(MarkerNode, tree)
	n.name = text
	n.synthetic = true
	return b.add(n)
}

// emit places n in the current block, or in an exception block of its own
// when it may throw one of the given types.
func (b *builder) emit(n *Node, sc *scope, throws ...string) *Node {
	if len(throws) == 0 {
		return b.add(n)
	}
	eb := b.newBlock(ExceptionBlock)
	eb.nodes = []*Node{n}
	n.block = eb.id
	b.link(b.cur, eb)
	eb.exceptional = b.handlersFor(throws, sc)

	next := b.fresh()
	if n.kind != ThrowNode {
		eb.succ = next.id
	}
	b.cur = next
	return n
}

func (b *builder) implicit(types ...string) []string {
	if b.opts.SuppressImplicitExceptions {
		return nil
	}
	return types
}

func (b *builder) binaryThrows(op syntax.BinaryOp) []string {
	if op == syntax.OpDiv || op == syntax.OpMod {
		return b.implicit(syntax.DivideError)
	}
	return nil
}

// handlersFor resolves every thrown type against the enclosing frames and
// returns the edges ordered most specific type first.
func (b *builder) handlersFor(types []string, sc *scope) []ExceptionalSuccessor {
	var out []ExceptionalSuccessor
	seen := make(map[ExceptionalSuccessor]bool)
	add := func(typ string, target *Block) {
		e := ExceptionalSuccessor{Type: typ, Target: target.id}
		if !seen[e] {
			seen[e] = true
			out = append(out, e)
		}
	}
	for _, t := range types {
		b.resolve(t, sc, add)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return b.hier.Depth(out[i].Type) > b.hier.Depth(out[j].Type)
	})
	return out
}

// resolve walks the frames outward. A catch clause for a supertype of t
// ends the search. A clause for a subtype may catch and the search goes on.
// A finally frame receives t and rethrows it from its own position.
func (b *builder) resolve(t string, sc *scope, add func(string, *Block)) {
	for i := len(sc.frames) - 1; i >= 0; i-- {
		f := sc.frames[i]
		switch f.kind {
		case catchFrame:
			for j, c := range f.catches {
				if b.hier.IsSubtype(t, c.Type) {
					add(t, f.handlers[j])
					return
				}
				if b.hier.IsSubtype(c.Type, t) {
					add(c.Type, f.handlers[j])
				}
			}
		case finallyFrame:
			add(t, b.finallyFor(f, t))
			return
		}
	}
	add(t, b.g.blocks[b.g.excExit])
}

func (b *builder) finallyFor(f *frame, t string) *Block {
	if blk, ok := f.excFinally[t]; ok {
		return blk
	}
	blk := b.fresh()
	f.excFinally[t] = blk
	f.excOrder = append(f.excOrder, t)
	return blk
}

// jump leaves every frame above depth, copying the finally bodies crossed
// on the way, and transfers control to target.
func (b *builder) jump(sc *scope, depth int, target *Block, tree syntax.Node) {
	for i := len(sc.frames) - 1; i > depth; i-- {
		if f := sc.frames[i]; f.kind == finallyFrame {
			b.marker(f.finally, "finally")
			b.stmt(f.finally, sc.outer(i))
		}
	}
	b.jumpTo(target)
}

/***** Statements *****/

func (b *builder) stmtList(list []syntax.Stmt, sc *scope) {
	for _, s := range list {
		b.stmt(s, sc)
	}
}

func (b *builder) stmt(s syntax.Stmt, sc *scope) {
	switch s := s.(type) {
	case nil:
		b.fail(token.NoPos, ErrUnsupportedStatement, "nil statement")
	case *syntax.BlockStmt:
		b.stmtList(s.Stmts, sc)
	case *syntax.ExprStmt:
		b.expr(s.X, sc)
	case *syntax.VarDecl:
		var ops []*Node
		if s.Value != nil {
			ops = append(ops, b.expr(s.Value, sc))
		}
		n := b.node(VarDeclNode, s, ops...)
		n.name = s.Name
		n.typ = s.Type
		b.add(n)
	case *syntax.AssignStmt:
		b.assign(s, sc)
	case *syntax.IfStmt:
		b.ifStmt(s, sc)
	case *syntax.WhileStmt:
		b.whileStmt(s, sc, "")
	case *syntax.DoWhileStmt:
		b.doWhileStmt(s, sc, "")
	case *syntax.ForStmt:
		b.forStmt(s, sc, "")
	case *syntax.SwitchStmt:
		b.switchStmt(s, sc, "")
	case *syntax.LabeledStmt:
		b.labeledStmt(s, sc)
	case *syntax.BreakStmt:
		i := sc.breakTarget(s.Label)
		if i < 0 {
			if s.Label == "" {
				b.fail(s.Pos(), ErrBreakOutsideTarget, "")
			} else {
				b.fail(s.Pos(), ErrUnknownLabel, "%s", s.Label)
			}
			return
		}
		b.jump(sc, i, sc.frames[i].breakTarget, s)
	case *syntax.ContinueStmt:
		i, err := sc.continueTarget(s.Label)
		if err != nil {
			b.fail(s.Pos(), err, "%s", s.Label)
			return
		}
		b.jump(sc, i, sc.frames[i].continueTarget, s)
	case *syntax.FallthroughStmt:
		f := sc.switchCase()
		if f == nil || f.fallthroughTarget == nil {
			b.fail(s.Pos(), ErrMisplacedFallthrough, "")
			return
		}
		b.jumpTo(f.fallthroughTarget)
	case *syntax.ReturnStmt:
		var ops []*Node
		if s.Value != nil {
			ops = append(ops, b.expr(s.Value, sc))
		}
		n := b.add(b.node(ReturnNode, s, ops...))
		b.g.returns = append(b.g.returns, n)
		b.jump(sc, -1, b.g.blocks[b.g.exit], s)
	case *syntax.ThrowStmt:
		var ops []*Node
		if s.Value != nil {
			ops = append(ops, b.expr(s.Value, sc))
		}
		n := b.node(ThrowNode, s, ops...)
		n.name = s.Type
		b.emit(n, sc, s.Type)
	case *syntax.TryStmt:
		b.tryStmt(s, sc)
	default:
		b.fail(s.Pos(), ErrUnsupportedStatement, "%T", s)
	}
}

func (b *builder) assign(s *syntax.AssignStmt, sc *scope) {
	var (
		target *Node
		name   string
	)
	switch t := s.Target.(type) {
	case *syntax.Ident:
		name = t.Name
	case *syntax.IndexExpr, *syntax.SelectorExpr:
		target = b.expr(t, sc)
	default:
		b.fail(s.Pos(), ErrInvalidAssignTarget, "%v", s.Target)
		return
	}
	if s.Op.IsShortCircuit() {
		b.fail(s.Pos(), ErrUnsupportedStatement, "compound %s assignment", s.Op)
		return
	}

	value := b.expr(s.Value, sc)
	if s.Op != 0 {
		current := target
		if current == nil {
			current = b.node(LocalNode, s.Target)
			current.name = name
			current.synthetic = true
			b.add(current)
		}
		bin := b.node(BinaryNode, s, current, value)
		bin.op = s.Op
		bin.synthetic = true
		value = b.emit(bin, sc, b.binaryThrows(s.Op)...)
	}

	ops := []*Node{value}
	if target != nil {
		ops = []*Node{target, value}
	}
	n := b.node(AssignNode, s, ops...)
	n.name = name
	b.add(n)
}

func (b *builder) ifStmt(s *syntax.IfStmt, sc *scope) {
	then, after := b.fresh(), b.fresh()
	els := after
	if s.Else != nil {
		els = b.fresh()
	}
	b.branch(s.Cond, sc, then, els, s)

	b.cur = then
	b.stmt(s.Then, sc)
	b.link(b.cur, after)

	if s.Else != nil {
		b.cur = els
		b.stmt(s.Else, sc)
		b.link(b.cur, after)
	}
	b.cur = after
}

func (b *builder) whileStmt(s *syntax.WhileStmt, sc *scope, label string) {
	header := b.fresh()
	b.link(b.cur, header)
	body, after := b.fresh(), b.fresh()

	b.cur = header
	b.branch(s.Cond, sc, body, after, s)

	sc.push(&frame{kind: loopFrame, label: label, breakTarget: after, continueTarget: header})
	b.cur = body
	b.stmt(s.Body, sc)
	b.link(b.cur, header)
	sc.pop()

	b.cur = after
}

func (b *builder) doWhileStmt(s *syntax.DoWhileStmt, sc *scope, label string) {
	body, cond, after := b.fresh(), b.fresh(), b.fresh()
	b.link(b.cur, body)

	sc.push(&frame{kind: loopFrame, label: label, breakTarget: after, continueTarget: cond})
	b.cur = body
	b.stmt(s.Body, sc)
	b.link(b.cur, cond)
	sc.pop()

	b.cur = cond
	b.branch(s.Cond, sc, body, after, s)
	b.cur = after
}

func (b *builder) forStmt(s *syntax.ForStmt, sc *scope, label string) {
	if s.Init != nil {
		b.stmt(s.Init, sc)
	}
	header := b.fresh()
	b.link(b.cur, header)
	body, post, after := b.fresh(), b.fresh(), b.fresh()

	b.cur = header
	if s.Cond != nil {
		b.branch(s.Cond, sc, body, after, s)
	} else {
		b.link(b.cur, body)
	}

	sc.push(&frame{kind: loopFrame, label: label, breakTarget: after, continueTarget: post})
	b.cur = body
	b.stmt(s.Body, sc)
	b.link(b.cur, post)
	sc.pop()

	b.cur = post
	if s.Post != nil {
		b.stmt(s.Post, sc)
	}
	b.link(b.cur, header)
	b.cur = after
}

// switchStmt tests the cases in order and jumps to the first matching body,
// or to the default body when none matches. Bodies leave the switch at
// their end unless they fall through.
func (b *builder) switchStmt(s *syntax.SwitchStmt, sc *scope, label string) {
	var tag *Node
	if s.Tag != nil {
		tag = b.expr(s.Tag, sc)
	}
	after := b.fresh()
	bodies := make([]*Block, len(s.Cases))
	for i := range bodies {
		bodies[i] = b.fresh()
	}

	dflt := -1
	for i, c := range s.Cases {
		if c.Values == nil {
			if dflt >= 0 {
				b.fail(c.Pos(), ErrUnsupportedStatement, "multiple defaults in switch")
				return
			}
			dflt = i
			continue
		}
		for _, v := range c.Values {
			next := b.fresh()
			if tag != nil {
				cmp := b.node(BinaryNode, c, tag, b.expr(v, sc))
				cmp.op = syntax.OpEq
				cmp.synthetic = true
				b.add(cmp)
				b.condition(cmp, bodies[i], next)
			} else {
				b.branch(v, sc, bodies[i], next, c)
			}
			b.cur = next
		}
	}
	if dflt >= 0 {
		b.link(b.cur, bodies[dflt])
	} else {
		b.link(b.cur, after)
	}

	f := &frame{kind: switchFrame, label: label, breakTarget: after}
	sc.push(f)
	for i, c := range s.Cases {
		f.fallthroughTarget = nil
		if i+1 < len(bodies) {
			f.fallthroughTarget = bodies[i+1]
		}
		b.cur = bodies[i]
		b.stmtList(c.Body, sc)
		b.link(b.cur, after)
	}
	sc.pop()
	b.cur = after
}

func (b *builder) labeledStmt(s *syntax.LabeledStmt, sc *scope) {
	if sc.hasLabel(s.Label) {
		b.fail(s.Pos(), ErrDuplicateLabel, "%s", s.Label)
		return
	}
	switch inner := s.Stmt.(type) {
	case *syntax.WhileStmt:
		b.whileStmt(inner, sc, s.Label)
	case *syntax.DoWhileStmt:
		b.doWhileStmt(inner, sc, s.Label)
	case *syntax.ForStmt:
		b.forStmt(inner, sc, s.Label)
	case *syntax.SwitchStmt:
		b.switchStmt(inner, sc, s.Label)
	default:
		after := b.fresh()
		sc.push(&frame{kind: labelFrame, label: s.Label, breakTarget: after})
		b.stmt(s.Stmt, sc)
		sc.pop()
		b.link(b.cur, after)
		b.cur = after
	}
}

// tryStmt builds the protected body and its handlers. The finally body is
// copied once for normal completion and once per exception type reaching
// it; each exceptional copy ends by rethrowing its type.
func (b *builder) tryStmt(s *syntax.TryStmt, sc *scope) {
	var fin *frame
	if s.Finally != nil {
		fin = &frame{kind: finallyFrame, finally: s.Finally, excFinally: make(map[string]*Block)}
		sc.push(fin)
	}
	handlers := make([]*Block, len(s.Catches))
	for i := range handlers {
		handlers[i] = b.fresh()
	}

	if len(s.Catches) > 0 {
		sc.push(&frame{kind: catchFrame, catches: s.Catches, handlers: handlers})
	}
	b.stmt(s.Body, sc)
	if len(s.Catches) > 0 {
		sc.pop()
	}

	ends := []*Block{b.cur}
	for i, c := range s.Catches {
		b.cur = handlers[i]
		n := b.node(CatchNode, c)
		n.name = c.Name
		n.typ = c.Type
		b.add(n)
		b.stmt(c.Body, sc)
		ends = append(ends, b.cur)
	}

	after := b.fresh()
	if fin == nil {
		for _, end := range ends {
			b.link(end, after)
		}
		b.cur = after
		return
	}
	sc.pop()

	normal := b.fresh()
	for _, end := range ends {
		b.link(end, normal)
	}
	b.cur = normal
	b.marker(s.Finally, "finally")
	b.stmt(s.Finally, sc)
	b.link(b.cur, after)

	for _, t := range fin.excOrder {
		b.cur = fin.excFinally[t]
		b.marker(s.Finally, "finally "+t)
		b.stmt(s.Finally, sc)
		rethrow := b.node(ThrowNode, s)
		rethrow.name = t
		rethrow.synthetic = true
		b.emit(rethrow, sc, t)
	}
	// the blocks opened after each rethrow stay empty and are dropped
	// when the graph is finalized
	b.cur = after
}

/***** Conditions *****/

// branch evaluates e for control: when it holds control reaches t, else f.
// Short-circuit operators become control flow and produce no node.
func (b *builder) branch(e syntax.Expr, sc *scope, t, f *Block, owner syntax.Node) {
	if e == nil {
		b.fail(owner.Pos(), ErrNilCondition, "in %T", owner)
		return
	}
	if bin, ok := e.(*syntax.BinaryExpr); ok {
		switch bin.Op {
		case syntax.OpAnd:
			mid := b.fresh()
			b.branch(bin.Left, sc, mid, f, bin)
			b.cur = mid
			b.branch(bin.Right, sc, t, f, bin)
			return
		case syntax.OpOr:
			mid := b.fresh()
			b.branch(bin.Left, sc, t, mid, bin)
			b.cur = mid
			b.branch(bin.Right, sc, t, f, bin)
			return
		}
	}
	b.condition(b.expr(e, sc), t, f)
}

// condition ends the current block, whose last node is n, with a
// conditional block branching to t and f.
func (b *builder) condition(n *Node, t, f *Block) {
	n.typ = BoolType
	cb := b.newBlock(ConditionalBlock)
	b.link(b.cur, cb)
	cb.thenSucc, cb.thenRule = t.id, ThenToBoth
	cb.elseSucc, cb.elseRule = f.id, ElseToBoth
	b.cur = nil
}

/***** Expressions *****/

func (b *builder) expr(e syntax.Expr, sc *scope) *Node {
	switch e := e.(type) {
	case nil:
		b.fail(token.NoPos, ErrNilExpression, "")
		return b.marker(nil, "invalid")
	case *syntax.Ident:
		n := b.node(LocalNode, e)
		n.name = e.Name
		return b.add(n)
	case *syntax.BasicLit:
		n := b.node(LiteralNode, e)
		n.name = e.Value
		n.lit = e.Kind
		n.typ = literalType(e.Kind)
		return b.add(n)
	case *syntax.BinaryExpr:
		if e.Op.IsShortCircuit() {
			return b.shortCircuit(e, sc)
		}
		l := b.expr(e.Left, sc)
		r := b.expr(e.Right, sc)
		n := b.node(BinaryNode, e, l, r)
		n.op = e.Op
		if e.Op.IsComparison() {
			n.typ = BoolType
		}
		return b.emit(n, sc, b.binaryThrows(e.Op)...)
	case *syntax.UnaryExpr:
		n := b.node(UnaryNode, e, b.expr(e.Operand, sc))
		n.uop = e.Op
		if e.Op == syntax.OpNot {
			n.typ = BoolType
		}
		return b.add(n)
	case *syntax.CallExpr:
		args := make([]*Node, len(e.Args))
		for i, a := range e.Args {
			args[i] = b.expr(a, sc)
		}
		n := b.node(CallNode, e, args...)
		n.name = e.Func
		throws := append([]string(nil), e.Throws...)
		if !e.Pure {
			throws = append(throws, b.implicit(syntax.AnyException)...)
		}
		return b.emit(n, sc, throws...)
	case *syntax.IndexExpr:
		x := b.expr(e.X, sc)
		n := b.node(IndexNode, e, x, b.expr(e.Index, sc))
		return b.emit(n, sc, b.implicit(syntax.IndexError)...)
	case *syntax.SelectorExpr:
		n := b.node(SelectNode, e, b.expr(e.X, sc))
		n.name = e.Field
		return b.emit(n, sc, b.implicit(syntax.NilError)...)
	case *syntax.CastExpr:
		n := b.node(CastNode, e, b.expr(e.X, sc))
		n.typ = e.Type
		return b.emit(n, sc, b.implicit(syntax.TypeAssertionError)...)
	case *syntax.CondExpr:
		return b.ternary(e, sc)
	default:
		b.fail(e.Pos(), ErrUnsupportedExpression, "%T", e)
		return b.marker(e, "invalid")
	}
}

// shortCircuit builds && or || whose value is needed. The right operand
// runs only when the left one does not decide the result; both outcomes
// meet in a block holding the combined value, and the edge that skips the
// right operand keeps only the store of the deciding polarity.
func (b *builder) shortCircuit(e *syntax.BinaryExpr, sc *scope) *Node {
	l := b.expr(e.Left, sc)
	l.typ = BoolType
	rhs, merge := b.fresh(), b.fresh()

	cb := b.newBlock(ConditionalBlock)
	b.link(b.cur, cb)
	if e.Op == syntax.OpAnd {
		cb.thenSucc, cb.thenRule = rhs.id, ThenToBoth
		cb.elseSucc, cb.elseRule = merge.id, ElseToElse
	} else {
		cb.thenSucc, cb.thenRule = merge.id, ThenToThen
		cb.elseSucc, cb.elseRule = rhs.id, ElseToBoth
	}

	b.cur = rhs
	r := b.expr(e.Right, sc)
	r.typ = BoolType
	b.link(b.cur, merge)

	b.cur = merge
	n := b.node(ShortCircuitNode, e, l, r)
	n.op = e.Op
	n.typ = BoolType
	return b.add(n)
}

func (b *builder) ternary(e *syntax.CondExpr, sc *scope) *Node {
	then, els, merge := b.fresh(), b.fresh(), b.fresh()
	b.branch(e.Cond, sc, then, els, e)

	b.cur = then
	tv := b.expr(e.Then, sc)
	b.link(b.cur, merge)

	b.cur = els
	ev := b.expr(e.Else, sc)
	b.link(b.cur, merge)

	b.cur = merge
	n := b.node(TernaryNode, e, tv, ev)
	if tv.typ == ev.typ {
		n.typ = tv.typ
	}
	return b.add(n)
}

func literalType(k syntax.LitKind) string {
	switch k {
	case syntax.IntLitKind:
		return "int"
	case syntax.BoolLitKind:
		return BoolType
	case syntax.FloatLitKind:
		return "float"
	case syntax.StringLitKind:
		return "string"
	default:
		return "nil"
	}
}
