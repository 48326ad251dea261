package initializer

import (
	"fmt"

	"github.com/roach88/taffo/internal/ir"
)

// State accumulates discovery results across scanners.
type State struct {
	Info *Registry
	// Enabled holds the functions named by function annotations.
	Enabled *FuncSet
	// StartingPoints holds functions with a targeted local annotation.
	StartingPoints *FuncSet
	Diagnostics    []Diagnostic
	// AnnotationCount is the number of annotations that parsed.
	AnnotationCount int
}

// NewState returns an empty accumulator.
func NewState() *State {
	return &State{
		Info:           NewRegistry(),
		Enabled:        NewFuncSet(),
		StartingPoints: NewFuncSet(),
	}
}

// DiagnosticKind classifies a recovered problem.
type DiagnosticKind string

const (
	// KindSyntax: the annotation string did not parse.
	KindSyntax DiagnosticKind = "syntax"
	// KindMalformed: the annotation record or intrinsic call had an
	// unexpected shape.
	KindMalformed DiagnosticKind = "malformed"
	// KindUnsupportedTarget: the annotated value is not an allocation,
	// global, call or invoke.
	KindUnsupportedTarget DiagnosticKind = "unsupported-target"
	// KindNotFloat: the annotated storage is not floating point.
	KindNotFloat DiagnosticKind = "not-float"
)

// Diagnostic is an advisory message about one annotation.
type Diagnostic struct {
	Kind DiagnosticKind
	// Value is the annotated or candidate value, when known.
	Value ir.Value
	// Annotation is the raw annotation text, when decoded.
	Annotation string
	// Location is "file:line" for global records, the function name for
	// local annotations.
	Location string
	Message  string
}

func (d Diagnostic) String() string {
	s := string(d.Kind)
	if d.Location != "" {
		s = d.Location + ": " + s
	}
	if d.Annotation != "" {
		s += fmt.Sprintf(": annotation %q", d.Annotation)
	}
	if d.Value != nil {
		s += ": " + d.Value.Ident()
	}
	return s + ": " + d.Message
}

func (st *State) report(d Diagnostic) {
	st.Diagnostics = append(st.Diagnostics, d)
}
