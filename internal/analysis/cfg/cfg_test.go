package cfg

import (
	"bytes"
	"errors"
	"go/ast"
	"go/parser"
	"go/token"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnolang/flowlint/internal/syntax"
)

func parseFunc(t *testing.T, src string) *ast.FuncDecl {
	t.Helper()
	fset := token.NewFileSet()
	node, err := parser.ParseFile(fset, "src.go", src, 0)
	require.NoError(t, err)

	for _, decl := range node.Decls {
		if fn, isFn := decl.(*ast.FuncDecl); isFn {
			return fn
		}
	}
	t.Fatal("No function declaration found")
	return nil
}

func build(t *testing.T, proc *syntax.Procedure, opts Options) *CFG {
	t.Helper()
	g, err := Build(proc, opts)
	require.NoError(t, err)
	require.NoError(t, g.Validate())
	return g
}

func nodesOfKind(g *CFG, kind NodeKind) []*Node {
	var out []*Node
	for _, n := range g.Nodes() {
		if n.Kind() == kind {
			out = append(out, n)
		}
	}
	return out
}

func blocksOfKind(g *CFG, kind BlockKind) []*Block {
	var out []*Block
	for _, b := range g.Blocks() {
		if b.Kind() == kind {
			out = append(out, b)
		}
	}
	return out
}

func reaches(g *CFG, from, to int) bool {
	seen := map[int]bool{from: true}
	work := []int{from}
	for len(work) > 0 {
		cur := work[len(work)-1]
		work = work[:len(work)-1]
		if cur == to {
			return true
		}
		for _, s := range g.Block(cur).Succs() {
			if !seen[s] {
				seen[s] = true
				work = append(work, s)
			}
		}
	}
	return false
}

func TestFromFunc(t *testing.T) {
	t.Parallel()
	src := `
		package main
		func main() {
			x := 1
			if x > 0 {
				x = 2
			} else {
				x = 3
			}
			for i := 0; i < 10; i++ {
				x += i
			}
		}
	`
	g, err := FromFunc(parseFunc(t, src), Options{})
	require.NoError(t, err)

	assert.Equal(t, "main", g.Name)
	assert.Equal(t, EntryBlock, g.Entry().Kind())
	assert.Equal(t, RegularExitBlock, g.RegularExit().Kind())
	assert.True(t, g.RegularExit().Reachable())
	assert.Len(t, g.LoopHeaders(), 1)
	assert.Len(t, blocksOfKind(g, ConditionalBlock), 2)
	assert.Empty(t, g.UnreachableBlocks())

	for _, block := range g.Blocks() {
		for _, p := range g.Preds(block) {
			assert.Contains(t, p.Succs(), block.ID())
		}
	}
}

func TestFromFuncLabeledRange(t *testing.T) {
	t.Parallel()
	src := `
		package main
		func count(xs []int) int {
			n := 0
		outer:
			for _, x := range xs {
				for i := 0; i < x; i++ {
					if i == 3 {
						continue outer
					}
					n++
				}
			}
			return n
		}
	`
	g, err := FromFunc(parseFunc(t, src), Options{})
	require.NoError(t, err)
	require.NoError(t, g.Validate())

	assert.Len(t, g.LoopHeaders(), 2)
	assert.True(t, g.RegularExit().Reachable())
}

func TestFromFuncBlockCounts(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name           string
		src            string
		expectedBlocks int
	}{
		{
			name: "EmptyFunc",
			src: `
				package main
				func empty() {}`,
			expectedBlocks: 3,
		},
		{
			name: "SingleStatementFunc",
			src: `
				package main
				func single() {
					x := 1
				}`,
			expectedBlocks: 4,
		},
		{
			name: "Division",
			src: `
				package main
				func div(a, b int) int {
					return a / b
				}`,
			// entry, exits, operand block, division, return
			expectedBlocks: 6,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g, err := FromFunc(parseFunc(t, tt.src), Options{})
			require.NoError(t, err)
			assert.Len(t, g.Blocks(), tt.expectedBlocks)
		})
	}
}

func TestStraightLine(t *testing.T) {
	t.Parallel()
	g := build(t, syntax.Proc("f", nil,
		syntax.Var("x", syntax.Int(1)),
		syntax.Assign("y", syntax.Bin(syntax.OpAdd, syntax.Id("x"), syntax.Int(2))),
	), Options{})

	require.Len(t, g.Blocks(), 4)
	succ, ok := g.Entry().Successor()
	require.True(t, ok)

	body := g.Block(succ)
	kinds := make([]NodeKind, 0, len(body.Nodes()))
	for _, n := range body.Nodes() {
		kinds = append(kinds, n.Kind())
	}
	assert.Equal(t, []NodeKind{LiteralNode, VarDeclNode, LocalNode, LiteralNode, BinaryNode, AssignNode}, kinds)

	next, ok := body.Successor()
	require.True(t, ok)
	assert.Equal(t, g.RegularExit().ID(), next)
	assert.Empty(t, g.RegularExit().Edges())
	assert.Empty(t, g.ExceptionalExit().Edges())
}

func TestIfElse(t *testing.T) {
	t.Parallel()
	one, two := syntax.Int(1), syntax.Int(2)
	g := build(t, syntax.Proc("f", nil,
		syntax.If(syntax.Id("c"), syntax.Block(syntax.Assign("x", one)), syntax.Block(syntax.Assign("x", two))),
	), Options{})

	assert.Len(t, g.Blocks(), 7)
	conds := blocksOfKind(g, ConditionalBlock)
	require.Len(t, conds, 1)

	then, _ := conds[0].Then()
	els, _ := conds[0].Else()
	assert.Equal(t, g.NodesFor(one)[0].Block(), then)
	assert.Equal(t, g.NodesFor(two)[0].Block(), els)
	assert.Equal(t, ThenToBoth, conds[0].ThenRule())
	assert.Equal(t, ElseToBoth, conds[0].ElseRule())

	pred := g.Block(conds[0].Preds()[0])
	assert.True(t, pred.LastNode().IsBoolean())
	assert.Equal(t, "c", pred.LastNode().Name())
}

func TestShortCircuitCondition(t *testing.T) {
	t.Parallel()
	g := build(t, syntax.Proc("f", nil,
		syntax.If(syntax.And(syntax.Id("a"), syntax.Id("b")), syntax.Block(syntax.Assign("x", syntax.Int(1))), nil),
	), Options{})

	assert.Empty(t, nodesOfKind(g, ShortCircuitNode))
	conds := blocksOfKind(g, ConditionalBlock)
	require.Len(t, conds, 2)
	for _, c := range conds {
		els, _ := c.Else()
		assert.Equal(t, g.RegularExit().ID(), els, "false operand skips the body")
	}
}

func TestShortCircuitValue(t *testing.T) {
	t.Parallel()
	g := build(t, syntax.Proc("f", nil,
		syntax.Assign("x", syntax.Or(syntax.Id("a"), syntax.Id("b"))),
	), Options{})

	sc := nodesOfKind(g, ShortCircuitNode)
	require.Len(t, sc, 1)
	assert.True(t, sc[0].IsBoolean())
	assert.Equal(t, "a", sc[0].Operand(0).Name())
	assert.Equal(t, "b", sc[0].Operand(1).Name())

	conds := blocksOfKind(g, ConditionalBlock)
	require.Len(t, conds, 1)
	then, _ := conds[0].Then()
	assert.Equal(t, sc[0].Block(), then)
	assert.Equal(t, ThenToThen, conds[0].ThenRule())
	assert.Equal(t, ElseToBoth, conds[0].ElseRule())
}

func TestTernary(t *testing.T) {
	t.Parallel()
	g := build(t, syntax.Proc("f", nil,
		syntax.Assign("x", syntax.Cond(syntax.Id("c"), syntax.Int(1), syntax.Int(2))),
	), Options{})

	tern := nodesOfKind(g, TernaryNode)
	require.Len(t, tern, 1)
	assert.Equal(t, "int", tern[0].Type())
	assert.Len(t, g.Preds(g.Block(tern[0].Block())), 2)
}

func TestWhileLoop(t *testing.T) {
	t.Parallel()
	g := build(t, syntax.Proc("f", nil,
		syntax.While(syntax.Lt(syntax.Id("i"), syntax.Int(3)), syntax.Block(syntax.Assign("i", syntax.Bin(syntax.OpAdd, syntax.Id("i"), syntax.Int(1))))),
	), Options{})

	require.Len(t, g.Blocks(), 6)
	headers := g.LoopHeaders()
	require.Len(t, headers, 1)
	header := headers[0]
	assert.True(t, g.IsLoopHeader(header.ID()))
	assert.Len(t, header.Preds(), 2)

	assign := nodesOfKind(g, AssignNode)[0]
	assert.True(t, g.Dominates(header.ID(), assign.Block()))
	assert.False(t, g.Dominates(assign.Block(), header.ID()))
	assert.True(t, g.Dominates(g.Entry().ID(), g.RegularExit().ID()))

	loops := g.LoopBlocks()
	require.Len(t, loops, 1)
	assert.Contains(t, loops[0], header.ID())
	assert.Contains(t, loops[0], assign.Block())

	order := g.DepthFirstOrder()
	assert.Equal(t, g.Entry().ID(), order[0].ID())
	assert.Less(t, header.Order(), g.Block(assign.Block()).Order())

	assert.True(t, g.Reducible())
	assert.True(t, header.IsNaturalLoopHeader())
	body := g.NaturalLoop(header.ID())
	assert.Contains(t, body, header.ID())
	assert.Contains(t, body, assign.Block())
	assert.NotContains(t, body, g.Entry().ID())
	assert.NotContains(t, body, g.RegularExit().ID())
	assert.ElementsMatch(t, loops[0], body)
	assert.Empty(t, g.NaturalLoop(g.Entry().ID()))
}

func TestDoWhileAndFor(t *testing.T) {
	t.Parallel()
	g := build(t, syntax.Proc("f", nil,
		syntax.DoWhile(syntax.Block(syntax.Assign("i", syntax.Int(1))), syntax.Id("c")),
		syntax.For(syntax.Var("j", syntax.Int(0)), syntax.Lt(syntax.Id("j"), syntax.Int(3)), syntax.Assign("j", syntax.Int(4)), syntax.Block(syntax.Eval(syntax.Call("g")))),
		syntax.For(nil, nil, nil, syntax.Block(syntax.Break(""))),
	), Options{SuppressImplicitExceptions: true})

	assert.Len(t, g.LoopHeaders(), 2)
	assert.True(t, g.RegularExit().Reachable())
}

func TestUnreachableAfterReturn(t *testing.T) {
	t.Parallel()
	dead := syntax.Int(1)
	g := build(t, syntax.Proc("f", nil,
		syntax.Return(nil),
		syntax.Assign("x", dead),
	), Options{})

	unreachable := g.UnreachableBlocks()
	require.Len(t, unreachable, 1)
	assert.Equal(t, g.NodesFor(dead)[0].Block(), unreachable[0].ID())
	assert.Empty(t, unreachable[0].Preds())
	require.Len(t, g.ReturnNodes(), 1)
	assert.True(t, g.Block(g.ReturnNodes()[0].Block()).Reachable())
}

func TestImplicitExceptions(t *testing.T) {
	t.Parallel()
	proc := func() *syntax.Procedure {
		return syntax.Proc("f", nil,
			syntax.Assign("x", syntax.Bin(syntax.OpDiv, syntax.Id("a"), syntax.Id("b"))),
			syntax.Eval(syntax.Index(syntax.Id("s"), syntax.Int(0))),
			syntax.Eval(syntax.Select(syntax.Id("p"), "f")),
			syntax.Eval(syntax.Cast(syntax.Id("v"), "T")),
			syntax.Eval(syntax.Call("g")),
		)
	}

	g := build(t, proc(), Options{})
	exc := blocksOfKind(g, ExceptionBlock)
	require.Len(t, exc, 5)
	var types []string
	for _, b := range exc {
		require.Len(t, b.Nodes(), 1)
		require.Len(t, b.Exceptional(), 1)
		assert.Equal(t, g.ExceptionalExit().ID(), b.Exceptional()[0].Target)
		types = append(types, b.Exceptional()[0].Type)
	}
	assert.Equal(t, []string{syntax.DivideError, syntax.IndexError, syntax.NilError, syntax.TypeAssertionError, syntax.AnyException}, types)
	assert.True(t, g.ExceptionalExit().Reachable())

	g = build(t, proc(), Options{SuppressImplicitExceptions: true})
	assert.Empty(t, blocksOfKind(g, ExceptionBlock))
	assert.False(t, g.ExceptionalExit().Reachable())
}

func TestCatchResolution(t *testing.T) {
	t.Parallel()

	t.Run("definite and uncaught", func(t *testing.T) {
		t.Parallel()
		byDiv, byRuntime := syntax.Catch(syntax.DivideError, "e"), syntax.Catch(syntax.RuntimeError, "e")
		call := &syntax.CallExpr{Func: "f", Throws: []string{syntax.PanicException, syntax.DivideError}}
		g := build(t, syntax.Proc("f", nil,
			syntax.Try(syntax.Block(syntax.Eval(call)), nil, byDiv, byRuntime),
		), Options{SuppressImplicitExceptions: true})

		n := g.NodesFor(call)[0]
		blk := g.Block(n.Block())
		require.Equal(t, ExceptionBlock, blk.Kind())
		assert.Equal(t, []ExceptionalSuccessor{
			{Type: syntax.DivideError, Target: g.NodesFor(byDiv)[0].Block()},
			{Type: syntax.PanicException, Target: g.ExceptionalExit().ID()},
		}, blk.Exceptional())

		// nothing reaches the runtime.Error handler
		assert.False(t, g.Block(g.NodesFor(byRuntime)[0].Block()).Reachable())
	})

	t.Run("possible catch continues outward", func(t *testing.T) {
		t.Parallel()
		byRuntime := syntax.Catch(syntax.RuntimeError, "e")
		call := syntax.Call("f")
		g := build(t, syntax.Proc("f", nil,
			syntax.Try(syntax.Block(syntax.Eval(call)), nil, byRuntime),
		), Options{})

		blk := g.Block(g.NodesFor(call)[0].Block())
		assert.Equal(t, []ExceptionalSuccessor{
			{Type: syntax.RuntimeError, Target: g.NodesFor(byRuntime)[0].Block()},
			{Type: syntax.AnyException, Target: g.ExceptionalExit().ID()},
		}, blk.Exceptional())
	})

	t.Run("throw statement", func(t *testing.T) {
		t.Parallel()
		handler := syntax.Catch(syntax.AnyException, "e")
		throw := syntax.Throw("io.Error", syntax.Str("boom"))
		g := build(t, syntax.Proc("f", nil,
			syntax.Try(syntax.Block(throw), nil, handler),
		), Options{})

		n := g.NodesFor(throw)[0]
		blk := g.Block(n.Block())
		_, hasNormal := blk.Successor()
		assert.False(t, hasNormal)
		assert.Equal(t, []ExceptionalSuccessor{{Type: "io.Error", Target: g.NodesFor(handler)[0].Block()}}, blk.Exceptional())
	})
}

func TestTryFinallyReplay(t *testing.T) {
	t.Parallel()
	acquire := &syntax.CallExpr{Func: "acquire", Throws: []string{"io.Error"}}
	release := syntax.Call("release")
	g := build(t, syntax.Proc("f", nil,
		syntax.Try(syntax.Block(syntax.Eval(acquire)), syntax.Block(syntax.Eval(release))),
	), Options{SuppressImplicitExceptions: true})

	copies := g.NodesFor(release)
	require.Len(t, copies, 2)

	var normal, exceptional int
	for _, n := range copies {
		toExit := reaches(g, n.Block(), g.RegularExit().ID())
		toExc := reaches(g, n.Block(), g.ExceptionalExit().ID())
		assert.NotEqual(t, toExit, toExc)
		if toExit {
			normal++
		} else {
			exceptional++
		}
	}
	assert.Equal(t, 1, normal)
	assert.Equal(t, 1, exceptional)

	var rethrows []*Node
	for _, n := range nodesOfKind(g, ThrowNode) {
		if n.Synthetic() {
			rethrows = append(rethrows, n)
		}
	}
	require.Len(t, rethrows, 1)
	assert.Equal(t, "io.Error", rethrows[0].Name())
}

func TestJumpsThroughFinally(t *testing.T) {
	t.Parallel()
	cleanup := syntax.Call("cleanup")
	g := build(t, syntax.Proc("f", nil,
		syntax.While(syntax.Id("c"), syntax.Block(
			syntax.Try(syntax.Block(syntax.If(syntax.Id("d"), syntax.Block(syntax.Return(nil)), syntax.Block(syntax.Break("")))), syntax.Block(syntax.Eval(cleanup))),
		)),
	), Options{SuppressImplicitExceptions: true})

	copies := g.NodesFor(cleanup)
	require.Len(t, copies, 3)
	reachable := 0
	for _, n := range copies {
		if g.Block(n.Block()).Reachable() {
			reachable++
		}
	}
	// return and break copies; normal completion of the try is dead
	assert.Equal(t, 2, reachable)
}

func TestLabeledJumps(t *testing.T) {
	t.Parallel()
	g := build(t, syntax.Proc("f", nil,
		syntax.Label("outer", syntax.While(syntax.Bool(true), syntax.Block(
			syntax.While(syntax.Id("c"), syntax.Block(
				syntax.If(syntax.Id("d"), syntax.Block(syntax.Continue("outer")), nil),
				syntax.Eval(syntax.Call("h")),
			)),
			syntax.If(syntax.Id("e"), syntax.Block(syntax.Break("outer")), nil),
		))),
		syntax.Label("blk", syntax.Block(
			syntax.If(syntax.Id("e"), syntax.Block(syntax.Break("blk")), nil),
			syntax.Eval(syntax.Call("g")),
		)),
	), Options{})

	assert.Len(t, g.LoopHeaders(), 2)
	assert.True(t, g.RegularExit().Reachable())
}

func TestSwitch(t *testing.T) {
	t.Parallel()
	y1, y3, y0 := syntax.Int(1), syntax.Int(3), syntax.Int(0)
	g := build(t, syntax.Proc("f", nil,
		syntax.Switch(syntax.Id("x"),
			syntax.Case([]syntax.Expr{syntax.Int(1), syntax.Int(2)}, syntax.Assign("y", y1), &syntax.FallthroughStmt{}),
			syntax.Case([]syntax.Expr{syntax.Int(3)}, syntax.Assign("y", y3), syntax.Break("")),
			syntax.Default(syntax.Assign("y", y0)),
		),
	), Options{})

	var tests int
	for _, n := range nodesOfKind(g, BinaryNode) {
		if n.Synthetic() && n.Op() == syntax.OpEq {
			tests++
			assert.True(t, n.IsBoolean())
		}
	}
	assert.Equal(t, 3, tests)

	first := g.Block(g.NodesFor(y1)[0].Block())
	next, ok := first.Successor()
	require.True(t, ok)
	assert.Equal(t, g.NodesFor(y3)[0].Block(), next)
	assert.True(t, g.Block(g.NodesFor(y0)[0].Block()).Reachable())
}

func TestBuildErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		proc *syntax.Procedure
		kind error
	}{
		{"nil procedure", nil, ErrUnsupportedStatement},
		{"break outside", syntax.Proc("f", nil, syntax.Break("")), ErrBreakOutsideTarget},
		{"continue outside", syntax.Proc("f", nil, syntax.Continue("")), ErrContinueOutsideLoop},
		{"unknown label", syntax.Proc("f", nil, syntax.While(syntax.Bool(true), syntax.Block(syntax.Break("nope")))), ErrUnknownLabel},
		{"continue non-loop", syntax.Proc("f", nil, syntax.Label("blk", syntax.Block(syntax.Continue("blk")))), ErrContinueNonLoop},
		{"duplicate label", syntax.Proc("f", nil, syntax.Label("a", syntax.Label("a", syntax.Block()))), ErrDuplicateLabel},
		{"fallthrough last case", syntax.Proc("f", nil, syntax.Switch(syntax.Id("x"), syntax.Case([]syntax.Expr{syntax.Int(1)}, &syntax.FallthroughStmt{}))), ErrMisplacedFallthrough},
		{"fallthrough outside", syntax.Proc("f", nil, &syntax.FallthroughStmt{}), ErrMisplacedFallthrough},
		{"nil condition", syntax.Proc("f", nil, syntax.If(nil, syntax.Block(), nil)), ErrNilCondition},
		{"nil expression", syntax.Proc("f", nil, syntax.Eval(nil)), ErrNilExpression},
		{"bad target", syntax.Proc("f", nil, &syntax.AssignStmt{Target: syntax.Int(1), Value: syntax.Int(2)}), ErrInvalidAssignTarget},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g, err := Build(tt.proc, Options{})
			require.Error(t, err)
			assert.Nil(t, g)
			assert.True(t, errors.Is(err, tt.kind), "got %v", err)

			var be *BuildError
			assert.True(t, errors.As(err, &be))
		})
	}
}

func TestWellFormed(t *testing.T) {
	t.Parallel()
	procs := []*syntax.Procedure{
		syntax.Proc("empty", nil),
		syntax.Proc("loops", nil,
			syntax.For(nil, nil, nil, syntax.Block()),
			syntax.Assign("x", syntax.Int(1)),
		),
		syntax.Proc("nested", nil,
			syntax.Try(syntax.Block(
				syntax.Try(syntax.Block(syntax.Eval(syntax.Call("a"))), syntax.Block(syntax.Eval(syntax.Call("b"))), syntax.Catch(syntax.RuntimeError, "e", syntax.Throw(syntax.PanicException, nil))),
			), syntax.Block(syntax.Eval(syntax.Call("c"))), syntax.Catch(syntax.AnyException, "e", syntax.Return(syntax.Int(1)))),
		),
		syntax.Proc("cond", nil,
			syntax.Assign("x", syntax.And(syntax.Not(syntax.Or(syntax.Id("a"), syntax.Id("b"))), syntax.Cond(syntax.Id("c"), syntax.Bool(true), syntax.Id("d")))),
			syntax.If(syntax.Id("x"), syntax.Block(syntax.Throw("E", nil)), syntax.Block(syntax.Return(syntax.Id("x")))),
		),
	}

	for _, proc := range procs {
		proc := proc
		t.Run(proc.Name, func(t *testing.T) {
			t.Parallel()
			g := build(t, proc, Options{})

			for _, b := range g.Blocks() {
				if b.IsExit() {
					assert.Empty(t, b.Edges())
					continue
				}
				assert.NotEmpty(t, b.Edges(), "block %s has no successors", b)
				assert.Equal(t, reaches(g, g.Entry().ID(), b.ID()), b.Reachable(), "block %s", b)
				if b.Kind() == RegularBlock && len(b.Nodes()) == 0 {
					succ, _ := b.Successor()
					assert.Equal(t, b.ID(), succ, "only empty self loops survive")
				}
			}
		})
	}
}

func TestPrintDot(t *testing.T) {
	t.Parallel()
	g := build(t, syntax.Proc("f", nil,
		syntax.If(syntax.Id("c"), syntax.Block(syntax.Assign("x", syntax.Bin(syntax.OpDiv, syntax.Int(1), syntax.Id("y")))), nil),
	), Options{})

	var buf bytes.Buffer
	g.PrintDot(&buf, nil)

	output := buf.String()
	assert.Contains(t, output, `digraph "f" {`)
	assert.Contains(t, output, `label="ENTRY"`)
	assert.Contains(t, output, `[label="then"]`)
	assert.Contains(t, output, `label="runtime.DivideError", style=dashed`)
	assert.Contains(t, g.String(), "cfg f")
}
