package initializer

import (
	"github.com/roach88/taffo/internal/ir"
)

// Result is the outcome of Scan. Treat it as read-only.
type Result struct {
	*State
	// Roots holds every discovered candidate in discovery order.
	Roots *ValueSet
}

// Scan discovers the conversion roots of m: function annotations first
// (filtered), then variable annotations in the table, then local
// annotations. Only the function-mode candidates are filtered; call
// RemoveNonFloat on Roots to filter the rest.
func (p *Pass) Scan(m *ir.Module) *Result {
	st := NewState()
	roots := NewValueSet()

	p.ReadGlobalAnnotations(st, m, roots, true)

	vars := NewValueSet()
	p.ReadGlobalAnnotations(st, m, vars, false)
	roots.Merge(vars)

	p.ReadAllLocalAnnotations(st, m, roots)

	p.logger.Info("annotation scan complete",
		"module", m.Name,
		"roots", roots.Len(),
		"annotations", st.AnnotationCount,
		"enabled_functions", st.Enabled.Len(),
		"starting_points", st.StartingPoints.Len(),
		"diagnostics", len(st.Diagnostics),
	)
	return &Result{State: st, Roots: roots}
}
