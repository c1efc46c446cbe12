package syntax

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestString(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		node     Node
		expected string
	}{
		{"literal", Int(42), "42"},
		{"binary", Bin(OpDiv, Id("x"), Int(2)), "(x / 2)"},
		{"short-circuit", And(Id("a"), Not(Id("b"))), "(a && (!b))"},
		{"call", Call("f", Id("x"), Int(1)), "f(x, 1)"},
		{"ternary", Cond(Id("c"), Int(1), Int(2)), "(c ? 1 : 2)"},
		{"if-else", If(Id("c"), Block(Assign("x", Int(1))), Block()), "if c { x = 1 } else {}"},
		{"while", While(Lt(Id("i"), Int(3)), Block(Break(""))), "while (i < 3) { break }"},
		{"labeled continue", Label("outer", Block(Continue("outer"))), "outer: { continue outer }"},
		{"throw", Throw(DivideError, nil), "throw runtime.DivideError"},
		{"try", Try(Block(Eval(Call("f"))), Block(), Catch(RuntimeError, "e")), "try { f() } catch (runtime.Error e) {} finally {}"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, tt.node.String())
		})
	}
}

func TestIntLiteral(t *testing.T) {
	t.Parallel()
	v, ok := Int(-7).Int()
	require.True(t, ok)
	assert.Equal(t, int64(-7), v)

	_, ok = Bool(true).Int()
	assert.False(t, ok)
}

func TestAtSetsPosition(t *testing.T) {
	t.Parallel()
	id := At(Id("x"), 17)
	assert.Equal(t, 17, int(id.Pos()))
}

func TestHierarchy(t *testing.T) {
	t.Parallel()
	h := NewHierarchy()

	assert.True(t, h.IsSubtype(DivideError, RuntimeError))
	assert.True(t, h.IsSubtype(DivideError, AnyException))
	assert.True(t, h.IsSubtype(RuntimeError, RuntimeError))
	assert.False(t, h.IsSubtype(RuntimeError, DivideError))
	assert.False(t, h.IsSubtype(PanicException, RuntimeError))

	// unknown names hang off the root
	assert.True(t, h.IsSubtype("io.EOF", AnyException))
	assert.Equal(t, 1, h.Depth("io.EOF"))
	assert.Equal(t, 2, h.Depth(NilError))
	assert.Equal(t, 0, h.Depth(AnyException))

	require.NoError(t, h.Declare("io.EOF", "io.Error"))
	assert.True(t, h.IsSubtype("io.EOF", "io.Error"))
	assert.Error(t, h.Declare("io.Error", "io.EOF"))
	assert.Error(t, h.Declare(AnyException, RuntimeError))
}
