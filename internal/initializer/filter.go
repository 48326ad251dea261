package initializer

import (
	"github.com/roach88/taffo/internal/ir"
)

// RemoveNonFloat drops from set every value whose storage is not some
// kind of float once pointers and arrays are unwrapped. Calls returning
// void are kept. Registry entries are left alone.
func (p *Pass) RemoveNonFloat(st *State, set *ValueSet) {
	for _, v := range set.Items() {
		var ty ir.Type
		switch x := v.(type) {
		case *ir.Alloca:
			ty = x.Allocated
		case *ir.GlobalVariable:
			ty = x.Type()
		case *ir.Call, *ir.Invoke:
			ty = x.Type()
			if ir.IsVoid(ty) {
				continue
			}
		default:
			p.logger.Debug("annotated value ignored", "value", ir.String(v), "reason", "not an alloca, global or call")
			st.report(Diagnostic{Kind: KindUnsupportedTarget, Value: v, Message: "not an alloca, a global or a call/invoke"})
			set.Remove(v)
			continue
		}

		if !ir.IsFloatingPoint(ir.ScalarOf(ty)) {
			p.logger.Debug("annotated value ignored", "value", ir.String(v), "reason", "not a float")
			st.report(Diagnostic{Kind: KindNotFloat, Value: v, Message: "does not allocate a kind of float"})
			set.Remove(v)
		}
	}
}
