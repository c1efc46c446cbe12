package lattice

// Zeroness models whether an integer-like value can be zero.
//
//	        Top
//	         |
//	     MaybeZero
//	      /     \
//	   Zero   NonZero
//	      \     /
//	       Bottom
type Zeroness int

const (
	Bottom Zeroness = iota // no value, unreachable
	Zero
	NonZero
	MaybeZero
	Top // not known to be a number
)

func (v Zeroness) String() string {
	switch v {
	case Bottom:
		return "Bottom"
	case Zero:
		return "Zero"
	case NonZero:
		return "NonZero"
	case MaybeZero:
		return "MaybeZero"
	case Top:
		return "Top"
	default:
		return "Unknown"
	}
}

func (v Zeroness) Equal(other Zeroness) bool { return v == other }

// Join returns the least upper bound of v and other.
func (v Zeroness) Join(other Zeroness) Zeroness {
	switch {
	case v == Bottom:
		return other
	case other == Bottom:
		return v
	case v == Top || other == Top:
		return Top
	case v == other:
		return v
	}
	// Zero and NonZero, or either with MaybeZero.
	return MaybeZero
}

// Meet returns the greatest lower bound of v and other.
func (v Zeroness) Meet(other Zeroness) Zeroness {
	switch {
	case v == Bottom || other == Bottom:
		return Bottom
	case v == Top:
		return other
	case other == Top:
		return v
	case v == other:
		return v
	case v == MaybeZero:
		return other
	case other == MaybeZero:
		return v
	}
	return Bottom
}

// ZeronessOf returns the zero-ness of a known integer.
func ZeronessOf(n int64) Zeroness {
	if n == 0 {
		return Zero
	}
	return NonZero
}
