package constprop

import (
	"go/ast"
	"go/parser"
	"go/token"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnolang/flowlint/internal/analysis/cfg"
	"github.com/gnolang/flowlint/internal/analysis/dataflow"
	"github.com/gnolang/flowlint/internal/analysis/lattice"
	"github.com/gnolang/flowlint/internal/syntax"
)

func analyze(t *testing.T, src string) (*cfg.CFG, *Result) {
	t.Helper()
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "test.go", "package test\n"+src, 0)
	require.NoError(t, err)
	fn, ok := f.Decls[0].(*ast.FuncDecl)
	require.True(t, ok)

	g, err := cfg.FromFunc(fn, cfg.Options{SuppressImplicitExceptions: true})
	require.NoError(t, err)
	res, err := Analyze(g, dataflow.Config{})
	require.NoError(t, err)
	return g, res
}

// returned returns the value node of the i-th return statement.
func returned(t *testing.T, g *cfg.CFG, i int) *cfg.Node {
	t.Helper()
	require.Greater(t, len(g.ReturnNodes()), i)
	v := g.ReturnNodes()[i].Value()
	require.NotNil(t, v)
	return v
}

func TestConstants(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		src   string
		want  int64
		known bool
	}{
		{
			name: "straight line",
			src: `func f() int {
	x := 1
	y := x + 2
	return y
}`,
			want:  3,
			known: true,
		},
		{
			name: "branches disagree",
			src: `func f(c bool) int {
	x := 0
	if c {
		x = 1
	} else {
		x = 2
	}
	return x
}`,
		},
		{
			name: "branches agree",
			src: `func f(c bool) int {
	x := 0
	if c {
		x = 5
	} else {
		x = 2 + 3
	}
	return x
}`,
			want:  5,
			known: true,
		},
		{
			name: "loop counter",
			src: `func f(n int) int {
	x := 0
	for i := 0; i < n; i++ {
		x = x + 1
	}
	return x
}`,
		},
		{
			name: "loop invariant",
			src: `func f(n int) int {
	k := 7
	for i := 0; i < n; i++ {
		k = 7
	}
	return k
}`,
			want:  7,
			known: true,
		},
		{
			name: "equality refines",
			src: `func f(x int) int {
	if x == 4 {
		return x * 2
	}
	return 0
}`,
			want:  8,
			known: true,
		},
		{
			name: "multiplication by zero",
			src: `func f(x int) int {
	return x * 0
}`,
			want:  0,
			known: true,
		},
		{
			name: "compound assignment",
			src: `func f() int {
	x := 10
	x -= 4
	x <<= 1
	return x
}`,
			want:  12,
			known: true,
		},
		{
			name: "division by zero is not folded",
			src: `func f() int {
	z := 0
	return 1 / z
}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g, res := analyze(t, tt.src)
			got, ok := Constant(res, returned(t, g, 0))
			assert.Equal(t, tt.known, ok)
			if tt.known {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestUnreachableReturn(t *testing.T) {
	t.Parallel()

	g, res := analyze(t, `func f() int {
	return 1
	x := 2
	return x
}`)
	_, ok := Constant(res, returned(t, g, 1))
	assert.False(t, ok)
	_, ok = res.StoreBefore(g.ReturnNodes()[1])
	assert.False(t, ok)

	v, ok := Constant(res, returned(t, g, 0))
	assert.True(t, ok)
	assert.Equal(t, int64(1), v)
}

func TestParametersAreUnknown(t *testing.T) {
	t.Parallel()

	g, res := analyze(t, `func f(a, b int) int {
	return a
}`)
	entry, ok := res.StoreAtEntry()
	require.True(t, ok)
	assert.Equal(t, "{a: T, b: T}", entry.String())

	s, ok := res.StoreBefore(g.ReturnNodes()[0])
	require.True(t, ok)
	v, _ := s.Get("a")
	assert.True(t, v.IsTop())
}

func TestEval(t *testing.T) {
	t.Parallel()

	g, err := cfg.Build(syntax.Proc("f", []string{"p"},
		syntax.Var("a", syntax.Neg(syntax.Int(3))),
		syntax.Var("b", syntax.Cond(syntax.Id("p"), syntax.Int(1), syntax.Int(1))),
		syntax.Var("c", syntax.Bin(syntax.OpMod, syntax.Int(7), syntax.Int(4))),
		syntax.Var("d", syntax.Bin(syntax.OpXor, syntax.Id("a"), syntax.Id("p"))),
		syntax.Return(nil),
	), cfg.Options{SuppressImplicitExceptions: true})
	require.NoError(t, err)

	res, err := Analyze(g, dataflow.Config{})
	require.NoError(t, err)
	exit, ok := res.RegularExitStore()
	require.True(t, ok)

	want := map[string]lattice.Const{
		"a": lattice.Exact(-3),
		"b": lattice.Exact(1),
		"c": lattice.Exact(3),
		"d": lattice.ConstTop(),
	}
	for name, v := range want {
		got, ok := exit.Get(name)
		require.True(t, ok, name)
		assert.Equal(t, v, got, name)
	}
}

func TestCondition(t *testing.T) {
	t.Parallel()

	g, res := analyze(t, `func f(n int) int {
	k := 3
	if k > 2 {
		return n
	}
	if n < k {
		return 1
	}
	return 0
}`)
	var got []bool
	var unknown int
	for _, n := range g.Nodes() {
		if n.Kind() != cfg.BinaryNode || !n.Op().IsComparison() {
			continue
		}
		v, ok := Condition(res, n)
		if !ok {
			unknown++
			continue
		}
		got = append(got, v)
	}
	assert.Equal(t, []bool{true}, got)
	assert.Equal(t, 1, unknown)
}
