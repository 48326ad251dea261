package initializer

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/roach88/taffo/internal/ir"
)

var i8p = ir.NewPointer(ir.I8)

// newTestPass returns a pass with logging discarded and syntax errors
// captured in the returned buffer.
func newTestPass(t *testing.T, opts ...Option) (*Pass, *bytes.Buffer) {
	t.Helper()
	var diag bytes.Buffer
	base := []Option{
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithDiagnosticWriter(&diag),
	}
	return New(append(base, opts...)...), &diag
}

// str adds a string constant and returns the i8* pointing at it.
func str(m *ir.Module, s string) *ir.ConstantExpr {
	g := m.NewStringGlobal(fmt.Sprintf(".str.%d", len(m.Globals)), s)
	return ir.NewGEP(g)
}

// record builds one annotation table entry the way C frontends emit it.
func record(m *ir.Module, entity ir.Constant, text string, line int64) *ir.ConstantStruct {
	return ir.NewConstantStruct(
		ir.NewBitCast(entity, i8p),
		str(m, text),
		str(m, "test.c"),
		ir.NewInt(ir.I32, line),
	)
}

// annotationTable installs the module annotation table.
func annotationTable(m *ir.Module, recs ...*ir.ConstantStruct) *ir.GlobalVariable {
	elems := make([]ir.Constant, len(recs))
	var elemType ir.Type = &ir.StructType{Fields: []ir.Type{i8p, i8p, i8p, ir.I32}}
	for i, r := range recs {
		elems[i] = r
		elemType = r.Type()
	}
	arr := ir.NewConstantArray(elemType, elems...)
	g := m.NewGlobal(DefaultGlobalAnnotations, arr.Type(), arr)
	g.Section = "llvm.metadata"
	return g
}

// varAnnotation returns the local annotation intrinsic, declaring it on
// first use.
func varAnnotation(m *ir.Module) *ir.Function {
	if f := m.Function(DefaultVarAnnotation); f != nil {
		return f
	}
	return m.NewFunction(DefaultVarAnnotation, ir.NewFuncType(ir.Void, i8p, i8p, i8p, ir.I32))
}

// annotateLocal appends a cast of storage and the intrinsic call
// annotating it.
func annotateLocal(m *ir.Module, b *ir.Block, storage ir.Value, text string) *ir.Call {
	cast := b.Append(ir.NewCast("", ir.CastBitCast, storage, i8p))
	call := ir.NewCall("", varAnnotation(m), cast, str(m, text), str(m, "test.c"), ir.NewInt(ir.I32, 1))
	b.Append(call)
	return call
}
