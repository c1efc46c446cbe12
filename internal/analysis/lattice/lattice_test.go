package lattice

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestZeronessJoin(t *testing.T) {
	t.Parallel()
	tests := []struct {
		a, b, want Zeroness
	}{
		{Bottom, Zero, Zero},
		{NonZero, Bottom, NonZero},
		{Zero, Zero, Zero},
		{Zero, NonZero, MaybeZero},
		{NonZero, MaybeZero, MaybeZero},
		{MaybeZero, Top, Top},
		{Top, Bottom, Top},
	}
	for _, tt := range tests {
		t.Run(tt.a.String()+"+"+tt.b.String(), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.a.Join(tt.b))
			assert.Equal(t, tt.want, tt.b.Join(tt.a))
		})
	}
}

func TestZeronessMeet(t *testing.T) {
	t.Parallel()
	tests := []struct {
		a, b, want Zeroness
	}{
		{Top, Zero, Zero},
		{MaybeZero, NonZero, NonZero},
		{Zero, NonZero, Bottom},
		{Bottom, Top, Bottom},
		{MaybeZero, MaybeZero, MaybeZero},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.a.Meet(tt.b), "%s meet %s", tt.a, tt.b)
		assert.Equal(t, tt.want, tt.b.Meet(tt.a), "%s meet %s", tt.b, tt.a)
	}
}

func TestConst(t *testing.T) {
	t.Parallel()

	assert.True(t, Const{}.IsBottom())
	assert.Equal(t, Exact(3), ConstBottom().Join(Exact(3)))
	assert.Equal(t, Exact(3), Exact(3).Join(Exact(3)))
	assert.True(t, Exact(3).Join(Exact(4)).IsTop())
	assert.True(t, ConstTop().Join(ConstBottom()).IsTop())

	v, ok := Exact(-7).Value()
	assert.True(t, ok)
	assert.Equal(t, int64(-7), v)
	_, ok = ConstTop().Value()
	assert.False(t, ok)

	assert.Equal(t, Exact(1), Exact(1).Widen(Exact(1)))
	assert.True(t, Exact(2).Widen(Exact(1)).IsTop())
	assert.Equal(t, "T", ConstTop().String())
	assert.Equal(t, "_", ConstBottom().String())
}

func TestInterval(t *testing.T) {
	t.Parallel()

	assert.True(t, Interval{}.IsEmpty())
	assert.True(t, Range(3, 1).IsEmpty())
	assert.Equal(t, Range(0, 5), Point(0).Join(Point(5)))
	assert.Equal(t, Point(2), Interval{}.Join(Point(2)))
	assert.Equal(t, Range(1, 3), Point(0).Add(Range(1, 3)))
	assert.Equal(t, Range(-3, -1), Range(1, 3).Neg())
	assert.Equal(t, Range(-2, 2), Range(0, 2).Sub(Range(0, 2)))
	assert.Equal(t, Range(11, PosInf), Range(10, PosInf).Add(Point(1)))
	assert.Equal(t, PosInf, addBound(PosInf-1, 5))
	assert.Equal(t, NegInf, addBound(NegInf+1, -5))
	assert.True(t, Range(0, 10).Contains(10))
	assert.False(t, Range(0, 10).Contains(11))
	assert.Equal(t, "[0, +inf]", Range(0, PosInf).String())
	assert.Equal(t, "[]", Interval{}.String())

	t.Run("widen", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, Range(0, PosInf), Range(0, 1).Widen(Point(0)))
		assert.Equal(t, Range(NegInf, 0), Range(-1, 0).Widen(Point(0)))
		assert.Equal(t, Range(0, 4), Range(0, 4).Widen(Range(0, 4)))
		assert.Equal(t, Point(1), Point(1).Widen(Interval{}))
	})
}

func TestEnv(t *testing.T) {
	t.Parallel()

	a := NewEnv[Const]()
	a.Set("x", Exact(1))
	a.Set("y", Exact(2))
	b := NewEnv[Const]()
	b.Set("x", Exact(1))
	b.Set("y", Exact(3))
	b.Set("z", Exact(0))

	joined := a.LeastUpperBound(b)
	assert.Equal(t, "{x: 1, y: T, z: 0}", joined.String())
	assert.Equal(t, "{x: 1, y: 2}", a.String(), "operands are not modified")
	assert.True(t, joined.Equal(b.LeastUpperBound(a)))
	assert.True(t, joined.Equal(joined.LeastUpperBound(joined)))
	assert.True(t, joined.LeastUpperBound(a).Equal(joined))

	c := a.Copy()
	c.Set("x", Exact(9))
	v, _ := a.Get("x")
	assert.Equal(t, Exact(1), v)
	assert.False(t, a.Equal(c))
	assert.Equal(t, []string{"x", "y"}, c.Names())

	c.Delete("x")
	_, ok := c.Get("x")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len())
}

func TestEnvWiden(t *testing.T) {
	t.Parallel()

	prev := NewEnv[Interval]()
	prev.Set("i", Point(0))
	prev.Set("n", Point(10))
	next := NewEnv[Interval]()
	next.Set("i", Range(0, 1))
	next.Set("n", Point(10))
	next.Set("k", Point(4))

	w := next.Widen(prev, 1)
	assert.Equal(t, "{i: [0, +inf], k: [4, 4], n: [10, 10]}", w.String())
}

func TestSet(t *testing.T) {
	t.Parallel()

	a := NewSet("x", "y")
	b := NewSet("y", "z")
	u := a.LeastUpperBound(b)
	assert.Equal(t, []string{"x", "y", "z"}, u.Sorted())
	assert.Equal(t, 2, a.Len())
	assert.True(t, u.Equal(b.LeastUpperBound(a)))
	assert.True(t, u.Equal(u.LeastUpperBound(u)))

	c := u.Copy()
	c.Remove("x")
	assert.True(t, u.Contains("x"))
	assert.False(t, c.Contains("x"))
	c.Add("w")
	assert.Equal(t, "{w, y, z}", c.String())
}

func TestJoinAssociativity(t *testing.T) {
	t.Parallel()

	consts := func(kv map[string]Const) *Env[Const] {
		e := NewEnv[Const]()
		for k, v := range kv {
			e.Set(k, v)
		}
		return e
	}
	ranges := func(kv map[string]Interval) *Env[Interval] {
		e := NewEnv[Interval]()
		for k, v := range kv {
			e.Set(k, v)
		}
		return e
	}

	constTests := []struct {
		name    string
		a, b, c *Env[Const]
	}{
		{
			name: "disjoint names",
			a:    consts(map[string]Const{"x": Exact(1)}),
			b:    consts(map[string]Const{"y": Exact(2)}),
			c:    consts(map[string]Const{"z": ConstTop()}),
		},
		{
			name: "conflicting values",
			a:    consts(map[string]Const{"x": Exact(1), "y": Exact(2)}),
			b:    consts(map[string]Const{"x": Exact(1), "y": Exact(3)}),
			c:    consts(map[string]Const{"x": Exact(4)}),
		},
		{
			name: "empty operand",
			a:    NewEnv[Const](),
			b:    consts(map[string]Const{"x": ConstBottom()}),
			c:    consts(map[string]Const{"x": Exact(0)}),
		},
	}
	for _, tt := range constTests {
		tt := tt
		t.Run("const/"+tt.name, func(t *testing.T) {
			t.Parallel()
			left := tt.a.LeastUpperBound(tt.b).LeastUpperBound(tt.c)
			right := tt.a.LeastUpperBound(tt.b.LeastUpperBound(tt.c))
			assert.True(t, left.Equal(right), "%s vs %s", left, right)
		})
	}

	intervalTests := []struct {
		name    string
		a, b, c *Env[Interval]
	}{
		{
			name: "overlapping",
			a:    ranges(map[string]Interval{"i": Range(0, 2)}),
			b:    ranges(map[string]Interval{"i": Range(1, 5)}),
			c:    ranges(map[string]Interval{"i": Point(-3), "n": Point(7)}),
		},
		{
			name: "unbounded",
			a:    ranges(map[string]Interval{"i": Range(NegInf, 0)}),
			b:    ranges(map[string]Interval{"i": Interval{}}),
			c:    ranges(map[string]Interval{"i": Range(9, PosInf)}),
		},
	}
	for _, tt := range intervalTests {
		tt := tt
		t.Run("interval/"+tt.name, func(t *testing.T) {
			t.Parallel()
			left := tt.a.LeastUpperBound(tt.b).LeastUpperBound(tt.c)
			right := tt.a.LeastUpperBound(tt.b.LeastUpperBound(tt.c))
			assert.True(t, left.Equal(right), "%s vs %s", left, right)
		})
	}

	setTests := []struct {
		name    string
		a, b, c *Set[string]
	}{
		{"disjoint", NewSet("x"), NewSet("y"), NewSet("z")},
		{"overlapping", NewSet("x", "y"), NewSet("y", "z"), NewSet("x", "z")},
		{"empty", NewSet[string](), NewSet("a"), NewSet[string]()},
	}
	for _, tt := range setTests {
		tt := tt
		t.Run("set/"+tt.name, func(t *testing.T) {
			t.Parallel()
			left := tt.a.LeastUpperBound(tt.b).LeastUpperBound(tt.c)
			right := tt.a.LeastUpperBound(tt.b.LeastUpperBound(tt.c))
			assert.True(t, left.Equal(right), "%s vs %s", left, right)
		})
	}

	values := []Zeroness{Bottom, Zero, NonZero, MaybeZero, Top}
	for _, a := range values {
		for _, b := range values {
			for _, c := range values {
				assert.Equal(t, a.Join(b).Join(c), a.Join(b.Join(c)), "%s %s %s", a, b, c)
			}
		}
	}
}
