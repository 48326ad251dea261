package initializer

import (
	"bufio"
	"io"

	"github.com/roach88/taffo/internal/ir"
)

// PrintAnnotatedObj writes the annotated functions, the annotated
// globals and the per-function local annotations of m. It works on a
// scratch State and never mutates m.
func (p *Pass) PrintAnnotatedObj(w io.Writer, m *ir.Module) error {
	bw := bufio.NewWriter(w)
	st := NewState()

	res := NewValueSet()
	p.ReadGlobalAnnotations(st, m, res, true)
	bw.WriteString("Annotated Function: \n")
	writeSet(bw, res)

	res = NewValueSet()
	p.ReadGlobalAnnotations(st, m, res, false)
	bw.WriteString("Global Set: \n")
	writeSet(bw, res)

	for _, f := range m.Functions {
		bw.WriteString(f.Name + " : ")
		res = NewValueSet()
		p.ReadLocalAnnotations(st, f, res)
		if res.Len() > 0 {
			bw.WriteString("\nLocal Set: \n")
			for _, v := range res.Items() {
				bw.WriteString(" -> " + ir.String(v) + "\n")
			}
		}
		bw.WriteString("\n")
	}
	return bw.Flush()
}

func writeSet(bw *bufio.Writer, s *ValueSet) {
	if s.Len() == 0 {
		return
	}
	for _, v := range s.Items() {
		bw.WriteString(" -> " + ir.String(v) + "\n")
	}
	bw.WriteString("\n")
}
