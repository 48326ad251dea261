package initializer

import (
	"math"

	"github.com/roach88/taffo/internal/annotation"
	"github.com/roach88/taffo/internal/ir"
)

// ValueInfo is the conversion metadata recorded for one value.
//
// The initializer sets IsRoot, IsBacktrackingNode, Metadata, Target,
// FixpTypeRootDistance and OrigType. Roots is populated by later
// propagation stages and stays empty for roots.
type ValueInfo struct {
	IsRoot             bool
	IsBacktrackingNode bool
	// Roots are the root values this entry derives from.
	Roots    *ValueSet
	Metadata annotation.Metadata
	// Target names the explicit conversion target, nil when absent.
	Target *string
	// FixpTypeRootDistance is 0 for roots and math.MaxInt when unknown.
	FixpTypeRootDistance int
	OrigType             ir.Type
}

// NewValueInfo returns a non-root entry with downstream-owned fields at
// their defaults.
func NewValueInfo() *ValueInfo {
	return &ValueInfo{
		Roots:                NewValueSet(),
		FixpTypeRootDistance: math.MaxInt,
	}
}

// Registry maps values to their ValueInfo. Keys are value identities and
// appear at most once; iteration follows first insertion.
type Registry struct {
	keys []ir.Value
	info map[ir.Value]*ValueInfo
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{info: make(map[ir.Value]*ValueInfo)}
}

// ValueInfo returns the entry for v, creating a default one if needed.
func (r *Registry) ValueInfo(v ir.Value) *ValueInfo {
	if vi, ok := r.info[v]; ok {
		return vi
	}
	vi := NewValueInfo()
	r.info[v] = vi
	r.keys = append(r.keys, v)
	return vi
}

// Lookup returns the entry for v without creating one.
func (r *Registry) Lookup(v ir.Value) (*ValueInfo, bool) {
	vi, ok := r.info[v]
	return vi, ok
}

// Set replaces whatever entry v had. Fields are not merged.
func (r *Registry) Set(v ir.Value, vi ValueInfo) {
	*r.ValueInfo(v) = vi
}

// Len returns the number of entries.
func (r *Registry) Len() int { return len(r.keys) }

// Keys returns the registered values in first-insertion order.
func (r *Registry) Keys() []ir.Value {
	return append([]ir.Value(nil), r.keys...)
}
