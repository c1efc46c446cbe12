package lattice

import (
	"fmt"
	"strings"

	"golang.org/x/exp/constraints"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Set is the powerset lattice ordered by inclusion. Join is union.
type Set[T constraints.Ordered] struct {
	items map[T]struct{}
}

func NewSet[T constraints.Ordered](items ...T) *Set[T] {
	s := &Set[T]{items: make(map[T]struct{}, len(items))}
	for _, it := range items {
		s.items[it] = struct{}{}
	}
	return s
}

func (s *Set[T]) Add(x T)    { s.items[x] = struct{}{} }
func (s *Set[T]) Remove(x T) { delete(s.items, x) }
func (s *Set[T]) Len() int   { return len(s.items) }

func (s *Set[T]) Contains(x T) bool {
	_, ok := s.items[x]
	return ok
}

// Sorted returns the members in ascending order.
func (s *Set[T]) Sorted() []T {
	out := maps.Keys(s.items)
	slices.Sort(out)
	return out
}

func (s *Set[T]) Copy() *Set[T] {
	return &Set[T]{items: maps.Clone(s.items)}
}

func (s *Set[T]) Equal(other *Set[T]) bool {
	return maps.Equal(s.items, other.items)
}

func (s *Set[T]) LeastUpperBound(other *Set[T]) *Set[T] {
	out := s.Copy()
	for x := range other.items {
		out.items[x] = struct{}{}
	}
	return out
}

func (s *Set[T]) String() string {
	parts := make([]string, 0, len(s.items))
	for _, x := range s.Sorted() {
		parts = append(parts, fmt.Sprint(x))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
