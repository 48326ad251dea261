package initializer

import (
	"slices"

	"github.com/roach88/taffo/internal/ir"
)

// Set is an insertion-ordered set. Iteration order is deterministic so
// dumps and reports are reproducible.
type Set[T comparable] struct {
	items []T
	index map[T]int
}

// ValueSet holds candidate values.
type ValueSet = Set[ir.Value]

// FuncSet holds functions.
type FuncSet = Set[*ir.Function]

// NewValueSet returns an empty candidate set.
func NewValueSet() *ValueSet { return &Set[ir.Value]{} }

// NewFuncSet returns an empty function set.
func NewFuncSet() *FuncSet { return &Set[*ir.Function]{} }

// Insert adds v and reports whether it was absent.
func (s *Set[T]) Insert(v T) bool {
	if s.index == nil {
		s.index = make(map[T]int)
	}
	if _, ok := s.index[v]; ok {
		return false
	}
	s.index[v] = len(s.items)
	s.items = append(s.items, v)
	return true
}

// Contains reports whether v is in the set.
func (s *Set[T]) Contains(v T) bool {
	_, ok := s.index[v]
	return ok
}

// Remove deletes v and reports whether it was present.
func (s *Set[T]) Remove(v T) bool {
	i, ok := s.index[v]
	if !ok {
		return false
	}
	s.items = slices.Delete(s.items, i, i+1)
	delete(s.index, v)
	for j := i; j < len(s.items); j++ {
		s.index[s.items[j]] = j
	}
	return true
}

// Len returns the number of elements.
func (s *Set[T]) Len() int { return len(s.items) }

// Items returns the elements in insertion order. The slice is a copy, so
// the set may be modified while ranging over it.
func (s *Set[T]) Items() []T { return slices.Clone(s.items) }

// Merge inserts every element of o, keeping o's order for new elements.
func (s *Set[T]) Merge(o *Set[T]) {
	for _, v := range o.items {
		s.Insert(v)
	}
}
