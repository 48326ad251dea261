package annotation

import (
	"strconv"
	"strings"
)

// Directive is one decoded annotation.
type Directive struct {
	Backtracking bool
	Metadata     Metadata
	// Target is the explicit conversion target name, nil when absent.
	Target *string
}

// String renders the directive in canonical annotation syntax.
func (d *Directive) String() string {
	var parts []string
	if d.Target != nil {
		parts = append(parts, "target("+quote(*d.Target)+")")
	}
	if d.Backtracking {
		parts = append(parts, "backtracking")
	}
	if d.Metadata != nil {
		parts = append(parts, d.Metadata.String())
	}
	return strings.Join(parts, " ")
}

// Metadata is the type/format descriptor carried by a directive. The
// initializer treats it as opaque.
type Metadata interface {
	String() string
	metadata()
}

// Range is a closed numeric interval.
type Range struct {
	Min float64
	Max float64
}

// FixedPointType is an explicit fixed-point format request.
type FixedPointType struct {
	Signed bool
	Width  int
	Frac   int
}

func (t FixedPointType) String() string {
	sign := "unsigned"
	if t.Signed {
		sign = "signed"
	}
	return sign + " " + strconv.Itoa(t.Width) + " " + strconv.Itoa(t.Frac)
}

// ScalarInfo describes a scalar (or an array/pointer of scalars).
type ScalarInfo struct {
	Range    *Range
	Fixp     *FixedPointType
	Error    *float64
	Disabled bool
	Final    bool
}

func (*ScalarInfo) metadata() {}

func (s *ScalarInfo) String() string {
	var props []string
	if s.Range != nil {
		props = append(props, "range("+formatNum(s.Range.Min)+", "+formatNum(s.Range.Max)+")")
	}
	if s.Fixp != nil {
		props = append(props, "type("+s.Fixp.String()+")")
	}
	if s.Error != nil {
		props = append(props, "error("+formatNum(*s.Error)+")")
	}
	if s.Disabled {
		props = append(props, "disabled")
	}
	if s.Final {
		props = append(props, "final")
	}
	return "scalar(" + strings.Join(props, " ") + ")"
}

// StructInfo describes a struct field by field. A nil entry is a field
// with no metadata (written "void").
type StructInfo struct {
	Fields []Metadata
}

func (*StructInfo) metadata() {}

func (s *StructInfo) String() string {
	parts := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		if f == nil {
			parts[i] = "void"
			continue
		}
		parts[i] = f.String()
	}
	return "struct[" + strings.Join(parts, ", ") + "]"
}

func formatNum(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

var quoteEscaper = strings.NewReplacer(`\`, `\\`, "'", `\'`)

// quote renders s as a single-quoted literal that lexString decodes back
// to s.
func quote(s string) string {
	return "'" + quoteEscaper.Replace(s) + "'"
}
