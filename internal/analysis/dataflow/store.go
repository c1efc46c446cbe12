package dataflow

// Store is the abstract program state of an analysis at one program point.
//
// LeastUpperBound must be commutative, associative, idempotent and
// monotone, and must not modify its operands. The engine does not verify
// these properties; violating them can make the analysis unsound or keep
// it from terminating.
type Store[S any] interface {
	// Copy returns a store that can be changed without affecting the
	// receiver.
	Copy() S
	Equal(other S) bool
	LeastUpperBound(other S) S
}

// Widener is implemented by stores of lattices with infinite ascending
// chains. At loop headers the engine replaces the joined input with
// joined.Widen(previous, n), where previous is the input recorded at the
// header before the join and n counts the changes of that input so far.
// The result must be an upper bound of both stores.
type Widener[S any] interface {
	Widen(previous S, iteration int) S
}
