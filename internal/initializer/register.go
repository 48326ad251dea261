package initializer

import (
	"fmt"

	"github.com/roach88/taffo/internal/ir"
)

// parseAnnotation decodes and parses the annotation behind annoPtr and
// registers the candidates it designates. where locates the annotation
// in diagnostics. ok is false when the annotation was skipped.
func (p *Pass) parseAnnotation(st *State, set *ValueSet, annoPtr, annotated ir.Value, where string) (isTarget, ok bool) {
	if annotated == nil {
		p.logger.Debug("skipping annotation", "location", where, "error", "no annotated value")
		st.report(Diagnostic{Kind: KindMalformed, Location: where, Message: "annotation has no annotated value"})
		return false, false
	}

	text, err := annotationString(annoPtr)
	if err != nil {
		p.logger.Debug("skipping annotation", "location", where, "error", err)
		st.report(Diagnostic{Kind: KindMalformed, Value: annotated, Location: where, Message: err.Error()})
		return false, false
	}

	d, err := p.parser.Parse(text)
	if err != nil {
		fmt.Fprintf(p.diag, "annotation parser syntax error:\n  In annotation: %q\n  %s\n", text, err)
		st.report(Diagnostic{Kind: KindSyntax, Value: annotated, Annotation: text, Location: where, Message: err.Error()})
		return false, false
	}
	st.AnnotationCount++

	vi := ValueInfo{
		IsRoot:               true,
		IsBacktrackingNode:   d.Backtracking,
		Metadata:             d.Metadata,
		Target:               d.Target,
		FixpTypeRootDistance: 0,
	}

	switch x := annotated.(type) {
	case *ir.Alloca:
		register(st, set, x, vi)
	case ir.Instruction:
		if op := ir.Operand(x, 0); op != nil {
			register(st, set, op, vi)
		} else {
			register(st, set, x, vi)
		}
	case *ir.Function:
		st.Enabled.Insert(x)
		for _, u := range x.Users() {
			switch call := u.(type) {
			case *ir.Call:
				if call.Callee == x {
					register(st, set, call, vi)
				}
			case *ir.Invoke:
				if call.Callee == x {
					register(st, set, call, vi)
				}
			}
		}
	default:
		register(st, set, annotated, vi)
	}

	p.logger.Debug("annotation registered", "location", where, "annotation", text, "target", d.Target != nil)
	return d.Target != nil, true
}

// register makes v a candidate with a copy of vi, replacing any earlier
// entry.
func register(st *State, set *ValueSet, v ir.Value, vi ValueInfo) {
	vi.Roots = NewValueSet()
	vi.OrigType = v.Type()
	set.Insert(v)
	st.Info.Set(v, vi)
}
