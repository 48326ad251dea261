package initializer

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/taffo/internal/annotation"
	"github.com/roach88/taffo/internal/ir"
)

func TestScan_GlobalFloatVariable(t *testing.T) {
	m := ir.NewModule("ex1")
	g := m.NewGlobal("gain", ir.Float, nil)
	annotationTable(m, record(m, g, "scalar(range(-1, 1))", 3))

	p, diag := newTestPass(t)
	res := p.Scan(m)

	assert.Equal(t, []ir.Value{g}, res.Roots.Items())
	vi, ok := res.Info.Lookup(g)
	require.True(t, ok)
	assert.True(t, vi.IsRoot)
	assert.Nil(t, vi.Target)
	assert.Equal(t, 0, vi.FixpTypeRootDistance)
	assert.Equal(t, "scalar(range(-1, 1))", vi.Metadata.String())
	assert.True(t, ir.Equal(ir.NewPointer(ir.Float), vi.OrigType))
	assert.Equal(t, 0, vi.Roots.Len())
	assert.Equal(t, 1, res.AnnotationCount)

	p.RemoveNonFloat(res.State, res.Roots)
	assert.True(t, res.Roots.Contains(g))
	assert.Empty(t, res.Diagnostics)
	assert.Empty(t, diag.String())
}

func TestScan_GlobalIntArrayIsFiltered(t *testing.T) {
	m := ir.NewModule("ex2")
	g := m.NewGlobal("table", ir.NewArray(4, ir.I32), nil)
	annotationTable(m, record(m, g, "scalar(range(0, 255))", 7))

	p, _ := newTestPass(t)
	res := p.Scan(m)

	// Variable-mode candidates are not filtered by Scan.
	require.True(t, res.Roots.Contains(g))
	assert.Equal(t, 1, res.AnnotationCount)

	p.RemoveNonFloat(res.State, res.Roots)
	assert.False(t, res.Roots.Contains(g))
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, KindNotFloat, res.Diagnostics[0].Kind)
	assert.Same(t, g, res.Diagnostics[0].Value)

	_, ok := res.Info.Lookup(g)
	assert.True(t, ok, "filtering leaves the registry alone")
}

func TestScan_EnabledFunctionCallSites(t *testing.T) {
	m := ir.NewModule("ex3")
	scale := m.NewFunction("scale", ir.NewFuncType(ir.Float, ir.Float))
	main := m.NewFunction("main", ir.NewFuncType(ir.Void))
	entry := main.NewBlock("entry")
	one := &ir.ConstantFloat{Typ: ir.Float, V: 1}
	c1 := entry.Append(ir.NewCall("a", scale, one))
	c2 := entry.Append(ir.NewCall("b", scale, c1))
	entry.Append(ir.NewRet(nil))
	annotationTable(m, record(m, scale, "target('scale') scalar(range(0, 2))", 1))

	p, _ := newTestPass(t)
	res := p.Scan(m)

	assert.Equal(t, []ir.Value{c1, c2}, res.Roots.Items())
	assert.Equal(t, []*ir.Function{scale}, res.Enabled.Items())
	_, ok := res.Info.Lookup(scale)
	assert.False(t, ok, "the function itself is never registered")
	for _, c := range []ir.Value{c1, c2} {
		vi, ok := res.Info.Lookup(c)
		require.True(t, ok)
		require.NotNil(t, vi.Target)
		assert.Equal(t, "scale", *vi.Target)
	}
	assert.Equal(t, 1, res.AnnotationCount)
	assert.Equal(t, 0, res.StartingPoints.Len(), "global targets do not mark starting points")
}

func TestScan_EnabledFunctionInvokeSites(t *testing.T) {
	m := ir.NewModule("m")
	scale := m.NewFunction("scale", ir.NewFuncType(ir.Double, ir.Double))
	apply := m.NewFunction("apply", ir.NewFuncType(ir.Void, scale.Type()))
	main := m.NewFunction("main", ir.NewFuncType(ir.Void))
	entry := main.NewBlock("entry")
	cont := main.NewBlock("cont")
	lpad := main.NewBlock("lpad")
	half := &ir.ConstantFloat{Typ: ir.Double, V: 0.5}

	inv := entry.Append(ir.NewInvoke("i", scale, cont, lpad, half))
	call := cont.Append(ir.NewCall("c", scale, inv))
	byRef := cont.Append(ir.NewCall("", apply, scale))
	cont.Append(ir.NewRet(nil))
	lpad.Append(ir.NewRet(nil))
	annotationTable(m, record(m, scale, "scalar()", 1))

	p, _ := newTestPass(t)
	res := p.Scan(m)

	assert.Equal(t, []ir.Value{inv, call}, res.Roots.Items())
	for _, v := range []ir.Value{inv, call} {
		_, ok := res.Info.Lookup(v)
		assert.True(t, ok, ir.String(v))
	}
	for _, v := range []ir.Value{scale, byRef} {
		_, ok := res.Info.Lookup(v)
		assert.False(t, ok, "%s passed as an argument is not a call site", ir.String(v))
	}
	assert.Equal(t, []*ir.Function{scale}, res.Enabled.Items())
}

func TestReadGlobalAnnotations_FunctionWithoutCallSites(t *testing.T) {
	m := ir.NewModule("m")
	f := m.NewFunction("unused", ir.NewFuncType(ir.Double, ir.Double))
	annotationTable(m, record(m, f, "scalar()", 1))

	p, _ := newTestPass(t)
	st := NewState()
	set := NewValueSet()
	p.ReadGlobalAnnotations(st, m, set, true)

	assert.Equal(t, 0, set.Len())
	assert.Equal(t, 0, st.Info.Len())
	assert.True(t, st.Enabled.Contains(f))
	assert.Equal(t, 1, st.AnnotationCount)
}

func TestReadGlobalAnnotations_ModeSplitsRecords(t *testing.T) {
	m := ir.NewModule("m")
	f := m.NewFunction("f", ir.NewFuncType(ir.Float))
	main := m.NewFunction("main", ir.NewFuncType(ir.Void))
	call := main.NewBlock("entry").Append(ir.NewCall("r", f))
	g := m.NewGlobal("g", ir.Double, nil)
	annotationTable(m,
		record(m, f, "scalar()", 1),
		record(m, g, "scalar()", 2),
	)

	p, _ := newTestPass(t)

	st := NewState()
	funcs := NewValueSet()
	p.ReadGlobalAnnotations(st, m, funcs, true)
	assert.Equal(t, []ir.Value{call}, funcs.Items())

	vars := NewValueSet()
	p.ReadGlobalAnnotations(st, m, vars, false)
	assert.Equal(t, []ir.Value{g}, vars.Items())
	assert.Equal(t, 2, st.AnnotationCount)
}

func TestReadLocalAnnotations_MalformedString(t *testing.T) {
	m := ir.NewModule("ex4")
	main := m.NewFunction("main", ir.NewFuncType(ir.Void))
	main.AddAttr(DefaultOptNoneAttr)
	entry := main.NewBlock("entry")
	x := entry.Append(ir.NewAlloca("x", ir.Float))
	annotateLocal(m, entry, x, "scalar(range(1")
	entry.Append(ir.NewRet(nil))

	p, diag := newTestPass(t)
	res := p.Scan(m)

	assert.Equal(t, 0, res.Roots.Len())
	assert.Equal(t, 0, res.Info.Len())
	assert.Equal(t, 0, res.AnnotationCount)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, KindSyntax, res.Diagnostics[0].Kind)
	assert.Equal(t, "scalar(range(1", res.Diagnostics[0].Annotation)
	assert.Equal(t, "main", res.Diagnostics[0].Location)
	assert.True(t, strings.HasPrefix(diag.String(), "annotation parser syntax error:\n  In annotation: \"scalar(range(1\"\n  "))
	assert.False(t, main.HasAttr(DefaultOptNoneAttr))
	assert.False(t, res.StartingPoints.Contains(main))
}

func TestReadLocalAnnotations_NilStorage(t *testing.T) {
	m := ir.NewModule("m")
	main := m.NewFunction("main", ir.NewFuncType(ir.Void))
	entry := main.NewBlock("entry")
	entry.Append(ir.NewCall("", varAnnotation(m), nil, str(m, "target('x') scalar()"), str(m, "test.c"), ir.NewInt(ir.I32, 1)))
	entry.Append(ir.NewRet(nil))

	p, _ := newTestPass(t)
	var res *Result
	require.NotPanics(t, func() { res = p.Scan(m) })

	assert.Equal(t, 0, res.Roots.Len())
	assert.Equal(t, 0, res.Info.Len())
	assert.Equal(t, 0, res.AnnotationCount)
	assert.False(t, res.StartingPoints.Contains(main))
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, KindMalformed, res.Diagnostics[0].Kind)
	assert.Equal(t, "main", res.Diagnostics[0].Location)
}

func TestReadLocalAnnotations_ArgumentlessCallNamesCallee(t *testing.T) {
	m := ir.NewModule("m")
	seed := m.NewFunction("seed", ir.NewFuncType(ir.Float))
	main := m.NewFunction("main", ir.NewFuncType(ir.Void))
	entry := main.NewBlock("entry")
	call := entry.Append(ir.NewCall("s", seed))
	annotateLocal(m, entry, call, "scalar()")
	entry.Append(ir.NewRet(nil))

	p, _ := newTestPass(t)
	st := NewState()
	set := NewValueSet()
	p.ReadLocalAnnotations(st, main, set)

	// The cast's operand is the call; the call's operand 0 is its callee.
	assert.Equal(t, []ir.Value{call}, set.Items())

	bare := NewValueSet()
	p.parseAnnotation(st, bare, str(m, "scalar()"), call, "main")
	assert.Equal(t, []ir.Value{seed}, bare.Items())

	p.RemoveNonFloat(st, bare)
	assert.Equal(t, 0, bare.Len())
	require.NotEmpty(t, st.Diagnostics)
	last := st.Diagnostics[len(st.Diagnostics)-1]
	assert.Equal(t, KindUnsupportedTarget, last.Kind)
	assert.Same(t, seed, last.Value)
}

func TestScan_EmptyModule(t *testing.T) {
	m := ir.NewModule("ex5")
	f := m.NewFunction("main", ir.NewFuncType(ir.Void))
	b := f.NewBlock("entry")
	b.Append(ir.NewAlloca("x", ir.Float))
	b.Append(ir.NewRet(nil))

	p, diag := newTestPass(t)
	res := p.Scan(m)

	assert.Equal(t, 0, res.Roots.Len())
	assert.Equal(t, 0, res.Info.Len())
	assert.Equal(t, 0, res.Enabled.Len())
	assert.Equal(t, 0, res.StartingPoints.Len())
	assert.Empty(t, res.Diagnostics)
	assert.Empty(t, diag.String())
}

func TestReadLocalAnnotations_StartingPoints(t *testing.T) {
	tests := []struct {
		name     string
		texts    []string
		expected bool
	}{
		{"no annotations", nil, false},
		{"without target", []string{"scalar(range(0, 10))"}, false},
		{"with target", []string{"target('acc') scalar(range(0, 10))"}, true},
		{"one of two targeted", []string{"scalar()", "target('acc') scalar()"}, true},
		{"targeted but malformed", []string{"target('acc') scalar(range(2, 1))"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := ir.NewModule("m")
			f := m.NewFunction("kernel", ir.NewFuncType(ir.Void))
			b := f.NewBlock("entry")
			var allocas []ir.Value
			for range tt.texts {
				allocas = append(allocas, b.Append(ir.NewAlloca("", ir.Double)))
			}
			for i, text := range tt.texts {
				annotateLocal(m, b, allocas[i], text)
			}

			p, _ := newTestPass(t)
			st := NewState()
			set := NewValueSet()
			found := p.ReadLocalAnnotations(st, f, set)

			assert.Equal(t, tt.expected, found)
			assert.Equal(t, tt.expected, st.StartingPoints.Contains(f))
		})
	}
}

func TestReadLocalAnnotations_CandidateIsStorage(t *testing.T) {
	m := ir.NewModule("m")
	f := m.NewFunction("kernel", ir.NewFuncType(ir.Void))
	b := f.NewBlock("entry")
	x := b.Append(ir.NewAlloca("x", ir.NewArray(8, ir.Float)))
	call := annotateLocal(m, b, x, "target('k') backtracking scalar(range(0, 1))")

	p, _ := newTestPass(t)
	st := NewState()
	set := NewValueSet()
	p.ReadLocalAnnotations(st, f, set)

	assert.Equal(t, []ir.Value{x}, set.Items())
	_, ok := st.Info.Lookup(call)
	assert.False(t, ok, "the intrinsic call is not a candidate")
	vi, ok := st.Info.Lookup(x)
	require.True(t, ok)
	assert.True(t, vi.IsBacktrackingNode)
	assert.Equal(t, "k", *vi.Target)
}

func TestReadLocalAnnotations_OpaquePointersAndMangledName(t *testing.T) {
	m := ir.NewModule("m")
	intrinsic := m.NewFunction("llvm.var.annotation.p0.p0", ir.NewFuncType(ir.Void, ir.Ptr, ir.Ptr, ir.Ptr, ir.I32))
	f := m.NewFunction("kernel", ir.NewFuncType(ir.Void))
	b := f.NewBlock("entry")
	x := b.Append(ir.NewAlloca("x", ir.Float))
	text := m.NewStringGlobal(".str", "scalar()")
	b.Append(ir.NewCall("", intrinsic, x, text, ir.NewInt(ir.I32, 0), ir.NewInt(ir.I32, 0)))

	p, _ := newTestPass(t)
	st := NewState()
	set := NewValueSet()
	p.ReadLocalAnnotations(st, f, set)

	assert.Equal(t, []ir.Value{x}, set.Items())
}

func TestReadLocalAnnotations_IgnoresIndirectCalls(t *testing.T) {
	m := ir.NewModule("m")
	fnPtr := ir.NewPointer(ir.NewFuncType(ir.Void, i8p, i8p, i8p, ir.I32))
	f := m.NewFunction("kernel", ir.NewFuncType(ir.Void, fnPtr))
	b := f.NewBlock("entry")
	x := b.Append(ir.NewAlloca("x", ir.Float))
	b.Append(ir.NewCall("", f.Params[0], x, str(m, "scalar()"), str(m, "f"), ir.NewInt(ir.I32, 0)))

	p, _ := newTestPass(t)
	st := NewState()
	set := NewValueSet()
	assert.False(t, p.ReadLocalAnnotations(st, f, set))
	assert.Equal(t, 0, set.Len())
	assert.Empty(t, st.Diagnostics)
}

func TestReadAllLocalAnnotations_ClearsOptNone(t *testing.T) {
	m := ir.NewModule("m")
	a := m.NewFunction("a", ir.NewFuncType(ir.Void))
	a.AddAttr(DefaultOptNoneAttr)
	a.AddAttr("noinline")
	bb := a.NewBlock("entry")
	x := bb.Append(ir.NewAlloca("x", ir.Float))
	annotateLocal(m, bb, x, "scalar()")
	decl := m.NewFunction("ext", ir.NewFuncType(ir.Void))
	decl.AddAttr(DefaultOptNoneAttr)

	p, _ := newTestPass(t)
	set := NewValueSet()
	p.ReadAllLocalAnnotations(NewState(), m, set)

	assert.Equal(t, []ir.Value{x}, set.Items())
	assert.Equal(t, []string{"noinline"}, a.Attrs)
	assert.False(t, decl.HasAttr(DefaultOptNoneAttr))
}

func TestParseAnnotation_Overwrites(t *testing.T) {
	m := ir.NewModule("m")
	g := m.NewGlobal("g", ir.Double, nil)
	annotationTable(m,
		record(m, g, "scalar(range(0, 1))", 1),
		record(m, g, "target('t') backtracking scalar(range(2, 3))", 2),
	)

	p, _ := newTestPass(t)
	res := p.Scan(m)

	assert.Equal(t, 1, res.Roots.Len())
	assert.Equal(t, 1, res.Info.Len())
	vi, ok := res.Info.Lookup(g)
	require.True(t, ok)
	assert.Equal(t, "scalar(range(2, 3))", vi.Metadata.String())
	assert.True(t, vi.IsBacktrackingNode)
	require.NotNil(t, vi.Target)
	assert.Equal(t, "t", *vi.Target)
	assert.Equal(t, 2, res.AnnotationCount)
}

func TestParseAnnotation_RegistersOnlyOnSuccess(t *testing.T) {
	m := ir.NewModule("m")
	good := m.NewGlobal("good", ir.Float, nil)
	bad := m.NewGlobal("bad", ir.Float, nil)
	annotationTable(m,
		record(m, good, "ok", 1),
		record(m, bad, "fail", 2),
	)

	var seen []string
	parser := ParserFunc(func(text string) (*annotation.Directive, error) {
		seen = append(seen, text)
		if text == "fail" {
			return nil, errors.New("rejected")
		}
		return &annotation.Directive{Metadata: &annotation.ScalarInfo{}}, nil
	})
	p, diag := newTestPass(t, WithParser(parser))
	res := p.Scan(m)

	assert.Equal(t, []string{"ok", "fail"}, seen)
	assert.Equal(t, []ir.Value{good}, res.Roots.Items())
	_, ok := res.Info.Lookup(bad)
	assert.False(t, ok)
	assert.Equal(t, "annotation parser syntax error:\n  In annotation: \"fail\"\n  rejected\n", diag.String())
}

func TestReadGlobalAnnotations_MalformedRecords(t *testing.T) {
	m := ir.NewModule("m")
	g := m.NewGlobal("g", ir.Float, nil)
	h := m.NewGlobal("h", ir.Float, nil)
	k := m.NewGlobal("k", ir.Float, nil)
	text := m.NewStringGlobal(".str", "scalar()")
	notString := m.NewGlobal("notstr", ir.I32, ir.NewInt(ir.I32, 4))

	annotationTable(m,
		// Entity wrapped in something other than a cast.
		ir.NewConstantStruct(ir.NewGEP(text), ir.NewGEP(text)),
		// Annotation operand is not a string.
		ir.NewConstantStruct(ir.NewBitCast(g, i8p), ir.NewGEP(notString)),
		// Annotation operand is null.
		ir.NewConstantStruct(ir.NewBitCast(h, i8p), &ir.ConstantNull{Typ: i8p}),
		// Too short to carry an annotation.
		ir.NewConstantStruct(ir.NewBitCast(k, i8p)),
		// Opaque pointers: entity and string referenced directly.
		ir.NewConstantStruct(k, text),
	)

	p, diag := newTestPass(t)
	res := p.Scan(m)

	assert.Equal(t, []ir.Value{k}, res.Roots.Items())
	require.Len(t, res.Diagnostics, 2)
	for _, d := range res.Diagnostics {
		assert.Equal(t, KindMalformed, d.Kind)
		assert.Contains(t, d.Message, ErrBadAnnotation.Error())
	}
	assert.Same(t, g, res.Diagnostics[0].Value)
	assert.Same(t, h, res.Diagnostics[1].Value)
	assert.Empty(t, diag.String())
}

func TestReadGlobalAnnotations_TableNotArray(t *testing.T) {
	m := ir.NewModule("m")
	m.NewGlobal(DefaultGlobalAnnotations, ir.I32, ir.NewInt(ir.I32, 0))

	p, _ := newTestPass(t)
	res := p.Scan(m)

	assert.Equal(t, 0, res.Roots.Len())
	assert.Empty(t, res.Diagnostics)
}

func TestReadGlobalAnnotations_CustomTableName(t *testing.T) {
	m := ir.NewModule("m")
	g := m.NewGlobal("g", ir.Float, nil)
	table := annotationTable(m, record(m, g, "scalar()", 1))
	table.Name = "my.annotations"

	p, _ := newTestPass(t)
	assert.Equal(t, 0, p.Scan(m).Roots.Len())

	p, _ = newTestPass(t, WithGlobalAnnotations("my.annotations"))
	assert.Equal(t, []ir.Value{g}, p.Scan(m).Roots.Items())
}

func TestReadGlobalAnnotations_Location(t *testing.T) {
	m := ir.NewModule("m")
	g := m.NewGlobal("g", ir.Float, nil)
	annotationTable(m, record(m, g, "scalar(", 42))

	p, _ := newTestPass(t)
	res := p.Scan(m)

	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, "test.c:42", res.Diagnostics[0].Location)
	assert.True(t, strings.HasPrefix(res.Diagnostics[0].String(), "test.c:42: syntax: annotation \"scalar(\": @g: "))
}
