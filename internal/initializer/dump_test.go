package initializer

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/taffo/internal/ir"
)

func TestPrintAnnotatedObj(t *testing.T) {
	m := ir.NewModule("dump")
	g := m.NewGlobal("g", ir.Float, nil)
	scale := m.NewFunction("scale", ir.NewFuncType(ir.Float, ir.Float))
	main := m.NewFunction("main", ir.NewFuncType(ir.Void))
	main.AddAttr(DefaultOptNoneAttr)
	entry := main.NewBlock("entry")
	x := entry.Append(ir.NewAlloca("x", ir.Float))
	annotateLocal(m, entry, x, "target('main') scalar(range(0, 1))")
	v := entry.Append(ir.NewLoad("v", ir.Float, x))
	entry.Append(ir.NewCall("r", scale, v))
	entry.Append(ir.NewRet(nil))
	annotationTable(m,
		record(m, scale, "scalar()", 1),
		record(m, g, "scalar(range(-2, 2))", 2),
	)

	p, _ := newTestPass(t)
	var buf bytes.Buffer
	require.NoError(t, p.PrintAnnotatedObj(&buf, m))

	expected := "Annotated Function: \n" +
		" -> %r = call float @scale(float %v)\n" +
		"\n" +
		"Global Set: \n" +
		" -> @g = global float\n" +
		"\n" +
		"scale : \n" +
		"main : \n" +
		"Local Set: \n" +
		" -> %x = alloca float\n" +
		"\n" +
		"llvm.var.annotation : \n"
	assert.Equal(t, expected, buf.String())

	// The dump leaves the module untouched.
	assert.True(t, main.HasAttr(DefaultOptNoneAttr))
}

func TestPrintAnnotatedObj_Empty(t *testing.T) {
	m := ir.NewModule("empty")
	m.NewFunction("main", ir.NewFuncType(ir.Void))

	p, _ := newTestPass(t)
	var buf bytes.Buffer
	require.NoError(t, p.PrintAnnotatedObj(&buf, m))
	assert.Equal(t, "Annotated Function: \nGlobal Set: \nmain : \n", buf.String())
}
