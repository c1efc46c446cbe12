package lattice

import "strconv"

type constKind uint8

const (
	constBottom constKind = iota
	constExact
	constTop
)

// Const is an element of the flat constant lattice: Bottom below every
// Exact(n), and Top above them. The zero value is Bottom.
type Const struct {
	kind  constKind
	value int64
}

func Exact(n int64) Const { return Const{kind: constExact, value: n} }
func ConstTop() Const     { return Const{kind: constTop} }
func ConstBottom() Const  { return Const{} }

func (c Const) IsBottom() bool { return c.kind == constBottom }
func (c Const) IsTop() bool    { return c.kind == constTop }

// Value returns the constant, if c is Exact.
func (c Const) Value() (int64, bool) { return c.value, c.kind == constExact }

func (c Const) Equal(other Const) bool { return c == other }

func (c Const) Join(other Const) Const {
	switch {
	case c.kind == constBottom:
		return other
	case other.kind == constBottom:
		return c
	case c == other:
		return c
	}
	return ConstTop()
}

// Widen returns Top unless c has not grown beyond previous.
func (c Const) Widen(previous Const) Const {
	if c.Join(previous) == previous {
		return previous
	}
	return ConstTop()
}

func (c Const) String() string {
	switch c.kind {
	case constExact:
		return strconv.FormatInt(c.value, 10)
	case constTop:
		return "T"
	default:
		return "_"
	}
}
