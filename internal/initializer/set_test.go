package initializer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/taffo/internal/ir"
)

func TestSet_InsertionOrder(t *testing.T) {
	s := &Set[string]{}
	assert.True(t, s.Insert("b"))
	assert.True(t, s.Insert("a"))
	assert.False(t, s.Insert("b"))
	assert.True(t, s.Insert("c"))
	assert.Equal(t, []string{"b", "a", "c"}, s.Items())

	assert.True(t, s.Remove("a"))
	assert.False(t, s.Remove("a"))
	assert.Equal(t, []string{"b", "c"}, s.Items())
	assert.True(t, s.Contains("c"))
	assert.False(t, s.Contains("a"))

	// Indices stay consistent after a removal.
	assert.True(t, s.Remove("c"))
	assert.Equal(t, []string{"b"}, s.Items())
}

func TestSet_Merge(t *testing.T) {
	a := &Set[int]{}
	a.Insert(1)
	a.Insert(2)
	b := &Set[int]{}
	b.Insert(2)
	b.Insert(3)
	a.Merge(b)
	assert.Equal(t, []int{1, 2, 3}, a.Items())
	assert.Equal(t, 3, a.Len())
}

func TestSet_ZeroValue(t *testing.T) {
	var s Set[int]
	assert.False(t, s.Contains(1))
	assert.False(t, s.Remove(1))
	assert.Nil(t, s.Items())
}

func TestRegistry_ValueInfo(t *testing.T) {
	m := ir.NewModule("m")
	a := m.NewGlobal("a", ir.Float, nil)
	b := m.NewGlobal("b", ir.Float, nil)
	r := NewRegistry()

	vi := r.ValueInfo(b)
	assert.False(t, vi.IsRoot)
	assert.Equal(t, math.MaxInt, vi.FixpTypeRootDistance)
	assert.NotNil(t, vi.Roots)
	assert.Same(t, vi, r.ValueInfo(b))

	r.Set(a, ValueInfo{IsRoot: true})
	assert.Equal(t, []ir.Value{b, a}, r.Keys())
	assert.Equal(t, 2, r.Len())

	_, ok := r.Lookup(m.NewGlobal("c", ir.Float, nil))
	assert.False(t, ok)
}
