package lattice

import (
	"fmt"
	"math"
)

// Infinite interval bounds.
const (
	NegInf int64 = math.MinInt64
	PosInf int64 = math.MaxInt64
)

// Interval is a range of integers [lo, hi]. Its ascending chains are
// infinite, so loops need Widen to converge. The zero value is the empty
// interval.
type Interval struct {
	lo, hi   int64
	nonEmpty bool
}

func Range(lo, hi int64) Interval {
	if lo > hi {
		return Interval{}
	}
	return Interval{lo: lo, hi: hi, nonEmpty: true}
}

func Point(n int64) Interval { return Range(n, n) }
func FullRange() Interval    { return Range(NegInf, PosInf) }

func (i Interval) IsEmpty() bool { return !i.nonEmpty }

// Bounds returns the ends of a non-empty interval.
func (i Interval) Bounds() (lo, hi int64, ok bool) { return i.lo, i.hi, i.nonEmpty }

func (i Interval) Contains(n int64) bool { return i.nonEmpty && i.lo <= n && n <= i.hi }

func (i Interval) Equal(other Interval) bool { return i == other }

func (i Interval) Join(other Interval) Interval {
	switch {
	case !i.nonEmpty:
		return other
	case !other.nonEmpty:
		return i
	}
	return Range(min(i.lo, other.lo), max(i.hi, other.hi))
}

// Widen pushes every bound that grew since previous to infinity.
func (i Interval) Widen(previous Interval) Interval {
	if !previous.nonEmpty || !i.nonEmpty {
		return i
	}
	lo, hi := previous.lo, previous.hi
	if i.lo < lo {
		lo = NegInf
	}
	if i.hi > hi {
		hi = PosInf
	}
	return Range(lo, hi)
}

func (i Interval) Add(other Interval) Interval {
	if !i.nonEmpty || !other.nonEmpty {
		return Interval{}
	}
	return Range(addBound(i.lo, other.lo), addBound(i.hi, other.hi))
}

func (i Interval) Neg() Interval {
	if !i.nonEmpty {
		return i
	}
	return Range(negBound(i.hi), negBound(i.lo))
}

func (i Interval) Sub(other Interval) Interval { return i.Add(other.Neg()) }

func (i Interval) String() string {
	if !i.nonEmpty {
		return "[]"
	}
	return fmt.Sprintf("[%s, %s]", boundString(i.lo), boundString(i.hi))
}

// addBound adds two bounds, saturating at the infinities.
func addBound(a, b int64) int64 {
	switch {
	case a == NegInf || b == NegInf:
		return NegInf
	case a == PosInf || b == PosInf:
		return PosInf
	}
	s := a + b
	switch {
	case b > 0 && s < a:
		return PosInf
	case b < 0 && s > a:
		return NegInf
	}
	return s
}

func negBound(b int64) int64 {
	switch b {
	case NegInf:
		return PosInf
	case PosInf:
		return NegInf
	}
	return -b
}

func boundString(b int64) string {
	switch b {
	case NegInf:
		return "-inf"
	case PosInf:
		return "+inf"
	}
	return fmt.Sprint(b)
}
