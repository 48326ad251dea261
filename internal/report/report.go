// Package report converts scan results into a serialisable, content
// addressed form.
package report

import (
	"github.com/roach88/taffo/internal/initializer"
	"github.com/roach88/taffo/internal/ir"
)

// Report is the serialisable outcome of one scan. Slices are never nil so
// the canonical form has no nulls.
type Report struct {
	Module           string       `json:"module"`
	Source           string       `json:"source,omitempty"`
	AnnotationCount  int          `json:"annotation_count"`
	Filtered         bool         `json:"filtered"`
	Roots            []Root       `json:"roots"`
	EnabledFunctions []string     `json:"enabled_functions"`
	StartingPoints   []string     `json:"starting_points"`
	Diagnostics      []Diagnostic `json:"diagnostics"`
}

// Root describes one conversion root.
type Root struct {
	// Value is the one-line rendering of the root's definition.
	Value string `json:"value"`
	Ident string `json:"ident"`
	Kind  Kind   `json:"kind"`
	// Function encloses instruction roots.
	Function     string `json:"function,omitempty"`
	Type         string `json:"type"`
	Metadata     string `json:"metadata"`
	Target       string `json:"target,omitempty"`
	Backtracking bool   `json:"backtracking"`
	RootDistance int    `json:"root_distance"`
}

// Kind classifies a root value.
type Kind string

const (
	KindGlobal Kind = "global"
	KindAlloca Kind = "alloca"
	KindCall   Kind = "call"
	KindInvoke Kind = "invoke"
	KindOther  Kind = "other"
)

// Diagnostic is the serialisable form of initializer.Diagnostic.
type Diagnostic struct {
	Kind       string `json:"kind"`
	Location   string `json:"location,omitempty"`
	Annotation string `json:"annotation,omitempty"`
	Value      string `json:"value,omitempty"`
	Message    string `json:"message"`
}

// Options tweak Build.
type Options struct {
	// Filtered records whether RemoveNonFloat ran on the roots.
	Filtered bool
}

// Build converts res, produced by scanning m.
func Build(m *ir.Module, res *initializer.Result, opts Options) *Report {
	r := &Report{
		Module:           m.Name,
		Source:           m.SourceFile,
		AnnotationCount:  res.AnnotationCount,
		Filtered:         opts.Filtered,
		Roots:            []Root{},
		EnabledFunctions: []string{},
		StartingPoints:   []string{},
		Diagnostics:      []Diagnostic{},
	}

	for _, v := range res.Roots.Items() {
		root := Root{
			Value: ir.String(v),
			Ident: v.Ident(),
			Kind:  kindOf(v),
			Type:  v.Type().String(),
		}
		if inst, ok := v.(ir.Instruction); ok {
			if f := ir.FunctionOf(inst); f != nil {
				root.Function = f.Name
			}
		}
		if vi, ok := res.Info.Lookup(v); ok {
			if vi.OrigType != nil {
				root.Type = vi.OrigType.String()
			}
			if vi.Metadata != nil {
				root.Metadata = vi.Metadata.String()
			}
			if vi.Target != nil {
				root.Target = *vi.Target
			}
			root.Backtracking = vi.IsBacktrackingNode
			root.RootDistance = vi.FixpTypeRootDistance
		}
		r.Roots = append(r.Roots, root)
	}
	for _, f := range res.Enabled.Items() {
		r.EnabledFunctions = append(r.EnabledFunctions, f.Name)
	}
	for _, f := range res.StartingPoints.Items() {
		r.StartingPoints = append(r.StartingPoints, f.Name)
	}
	for _, d := range res.Diagnostics {
		out := Diagnostic{
			Kind:       string(d.Kind),
			Location:   d.Location,
			Annotation: d.Annotation,
			Message:    d.Message,
		}
		if d.Value != nil {
			out.Value = d.Value.Ident()
		}
		r.Diagnostics = append(r.Diagnostics, out)
	}
	return r
}

func kindOf(v ir.Value) Kind {
	switch v.(type) {
	case *ir.GlobalVariable:
		return KindGlobal
	case *ir.Alloca:
		return KindAlloca
	case *ir.Call:
		return KindCall
	case *ir.Invoke:
		return KindInvoke
	}
	return KindOther
}
