package initializer

import (
	"fmt"

	"github.com/roach88/taffo/internal/ir"
)

// ReadGlobalAnnotations walks the module annotation table. In function
// mode only records annotating functions are taken and set is filtered
// afterwards; otherwise only non-function records are taken.
// A module without the table is left as is.
func (p *Pass) ReadGlobalAnnotations(st *State, m *ir.Module, set *ValueSet, functionAnnotation bool) {
	table := m.Global(p.globalAnnotations)
	if table == nil {
		return
	}
	records, ok := table.Init.(*ir.ConstantArray)
	if !ok {
		p.logger.Debug("annotation table is not a constant array", "global", table.Ident())
		return
	}

	for i, elem := range records.Elems {
		rec, ok := elem.(*ir.ConstantStruct)
		if !ok || len(rec.Fields) < 2 {
			p.logger.Debug("skipping annotation record", "index", i, "reason", "not a record")
			continue
		}
		entity, ok := annotatedEntity(rec.Fields[0])
		if !ok {
			p.logger.Debug("skipping annotation record", "index", i, "reason", "entity is not a cast")
			continue
		}
		if _, isFunc := entity.(*ir.Function); isFunc != functionAnnotation {
			continue
		}
		p.parseAnnotation(st, set, rec.Fields[1], entity, recordLocation(rec, i))
	}

	if functionAnnotation {
		p.RemoveNonFloat(st, set)
	}
}

// annotatedEntity strips the pointer cast wrapping a record's first
// field. Opaque-pointer modules store the entity directly.
func annotatedEntity(c ir.Constant) (ir.Value, bool) {
	switch x := c.(type) {
	case *ir.ConstantExpr:
		if x.Opcode != ir.OpBitCast && x.Opcode != ir.OpAddrSpaceCast {
			return nil, false
		}
		op := x.Operand(0)
		return op, op != nil
	case *ir.Function, *ir.GlobalVariable:
		return x, true
	}
	return nil, false
}

// recordLocation renders the source position stored in fields 2 and 3,
// falling back to the record index.
func recordLocation(rec *ir.ConstantStruct, index int) string {
	if len(rec.Fields) < 4 {
		return fmt.Sprintf("record %d", index)
	}
	file, err := annotationString(rec.Fields[2])
	if err != nil {
		return fmt.Sprintf("record %d", index)
	}
	if line, ok := rec.Fields[3].(*ir.ConstantInt); ok {
		return fmt.Sprintf("%s:%d", file, line.V)
	}
	return file
}
