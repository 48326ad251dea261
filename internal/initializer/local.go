package initializer

import (
	"github.com/roach88/taffo/internal/ir"
)

// ReadLocalAnnotations registers the candidates named by direct calls to
// the local annotation intrinsic in f. Argument 0 is the annotated
// storage and argument 1 the annotation string. When any parsed
// annotation carries a target, f becomes a starting point and true is
// returned.
func (p *Pass) ReadLocalAnnotations(st *State, f *ir.Function, set *ValueSet) bool {
	found := false
	for _, inst := range f.Instructions() {
		call, ok := inst.(*ir.Call)
		if !ok {
			continue
		}
		callee := call.CalledFunction()
		if callee == nil || !p.isVarAnnotation(callee.Name) {
			continue
		}
		if len(call.Args) < 2 {
			st.report(Diagnostic{Kind: KindMalformed, Value: call, Location: f.Name, Message: "annotation call has fewer than 2 arguments"})
			continue
		}
		isTarget, _ := p.parseAnnotation(st, set, call.Args[1], call.Args[0], f.Name)
		found = found || isTarget
	}
	if found {
		st.StartingPoints.Insert(f)
	}
	return found
}

// ReadAllLocalAnnotations scans every function in module order, merges
// the results into set and clears the optnone attribute of each function
// so later cleanup passes are not blocked.
func (p *Pass) ReadAllLocalAnnotations(st *State, m *ir.Module, set *ValueSet) {
	for _, f := range m.Functions {
		local := NewValueSet()
		p.ReadLocalAnnotations(st, f, local)
		set.Merge(local)
		f.RemoveAttr(p.optNoneAttr)
	}
}
