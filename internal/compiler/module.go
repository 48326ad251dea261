package compiler

import (
	"fmt"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"

	"github.com/roach88/taffo/internal/initializer"
	"github.com/roach88/taffo/internal/ir"
)

// MetadataSection is the section annotation strings and the annotation
// table are placed in.
const MetadataSection = "llvm.metadata"

// CompileModule lowers a CUE module description into an ir.Module.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The description looks like:
//
//	module: "kernel"
//	globals: gain: { type: "float", annotation: "scalar(range(-1, 1))" }
//	functions: main: {
//		body: [
//			{ name: "x", op: "alloca", type: "double", annotation: "target('x') scalar()" },
//			{ op: "ret" },
//		]
//	}
//
// Annotations are lowered the way a C frontend emits them: global and
// function annotations become records of the module annotation table,
// local ones become calls to the variable annotation intrinsic. The source
// line of each annotation is recorded in its record.
func CompileModule(v cue.Value) (*ir.Module, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	nameVal := v.LookupPath(cue.ParsePath("module"))
	if !nameVal.Exists() {
		return nil, &CompileError{
			Field:   "module",
			Message: "module name is required",
			Pos:     v.Pos(),
		}
	}
	name, err := nameVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}

	l := &lowering{m: ir.NewModule(name)}

	l.m.SourceFile = name
	if fn := nameVal.Pos().Filename(); fn != "" {
		l.m.SourceFile = filepath.Base(fn)
	}
	if src, ok, err := optString(v, "source"); err != nil {
		return nil, err
	} else if ok {
		l.m.SourceFile = src
	}
	if l.opaque, _, err = optBool(v, "opaque_pointers"); err != nil {
		return nil, err
	}

	if err := l.structs(v.LookupPath(cue.ParsePath("structs"))); err != nil {
		return nil, err
	}
	if err := l.globals(v.LookupPath(cue.ParsePath("globals"))); err != nil {
		return nil, err
	}
	if err := l.functions(v.LookupPath(cue.ParsePath("functions"))); err != nil {
		return nil, err
	}
	l.annotationTable()

	return l.m, nil
}

type lowering struct {
	m      *ir.Module
	opaque bool

	nstr    int
	file    ir.Constant
	records []ir.Constant
	varAnno *ir.Function
}

// i8p is the pointer type annotation operands are cast to.
func (l *lowering) i8p() ir.Type {
	if l.opaque {
		return ir.Ptr
	}
	return ir.NewPointer(ir.I8)
}

func (l *lowering) parseType(field string, v cue.Value) (ir.Type, error) {
	s, err := v.String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	t, err := ir.ParseTypeWith(s, l.m.Struct)
	if err != nil {
		return nil, &CompileError{Field: field, Message: err.Error(), Pos: v.Pos()}
	}
	return t, nil
}

func (l *lowering) structs(v cue.Value) error {
	if !v.Exists() {
		return nil
	}
	iter, err := v.Fields()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		name := iter.Label()
		st := l.m.NewStruct(name)
		list, err := iter.Value().List()
		if err != nil {
			return formatCUEError(err)
		}
		for i := 0; list.Next(); i++ {
			t, err := l.parseType(fmt.Sprintf("structs.%s[%d]", name, i), list.Value())
			if err != nil {
				return err
			}
			st.Fields = append(st.Fields, t)
		}
	}
	return nil
}

func (l *lowering) globals(v cue.Value) error {
	if !v.Exists() {
		return nil
	}
	iter, err := v.Fields()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		name := iter.Label()
		gv := iter.Value()
		field := "globals." + name

		typeVal := gv.LookupPath(cue.ParsePath("type"))
		if !typeVal.Exists() {
			return &CompileError{Field: field + ".type", Message: "global type is required", Pos: gv.Pos()}
		}
		t, err := l.parseType(field+".type", typeVal)
		if err != nil {
			return err
		}

		var init ir.Constant
		if initVal := gv.LookupPath(cue.ParsePath("init")); initVal.Exists() {
			c, err := constant(field+".init", initVal, t)
			if err != nil {
				return err
			}
			init = c
		}
		g := l.m.NewGlobal(name, t, init)
		if g.IsConstant, _, err = optBool(gv, "constant"); err != nil {
			return err
		}

		if err := l.globalAnnotation(gv, g); err != nil {
			return err
		}
	}
	return nil
}

func (l *lowering) functions(v cue.Value) error {
	if !v.Exists() {
		return nil
	}
	iter, err := v.Fields()
	if err != nil {
		return formatCUEError(err)
	}

	// Declare everything first so bodies may reference any function.
	var defs []cue.Value
	var fns []*ir.Function
	for iter.Next() {
		f, err := l.declare(iter.Label(), iter.Value())
		if err != nil {
			return err
		}
		defs = append(defs, iter.Value())
		fns = append(fns, f)
	}
	for i, f := range fns {
		if err := l.body(f, defs[i]); err != nil {
			return err
		}
	}
	return nil
}

func (l *lowering) declare(name string, fv cue.Value) (*ir.Function, error) {
	field := "functions." + name
	sig := &ir.FuncType{Ret: ir.Void}

	if retVal := fv.LookupPath(cue.ParsePath("returns")); retVal.Exists() {
		t, err := l.parseType(field+".returns", retVal)
		if err != nil {
			return nil, err
		}
		sig.Ret = t
	}

	var paramNames []string
	if paramsVal := fv.LookupPath(cue.ParsePath("params")); paramsVal.Exists() {
		list, err := paramsVal.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for i := 0; list.Next(); i++ {
			pf := fmt.Sprintf("%s.params[%d]", field, i)
			pv := list.Value()
			typeVal, pname := pv, ""
			if pv.IncompleteKind() == cue.StructKind {
				typeVal = pv.LookupPath(cue.ParsePath("type"))
				if n, ok, err := optString(pv, "name"); err != nil {
					return nil, err
				} else if ok {
					pname = n
				}
			}
			t, err := l.parseType(pf, typeVal)
			if err != nil {
				return nil, err
			}
			sig.Params = append(sig.Params, t)
			paramNames = append(paramNames, pname)
		}
	}
	var err error
	if sig.Variadic, _, err = optBool(fv, "variadic"); err != nil {
		return nil, err
	}

	f := l.m.NewFunction(name, sig)
	for i, pname := range paramNames {
		if pname != "" {
			f.Params[i].Name = pname
		}
	}

	if attrsVal := fv.LookupPath(cue.ParsePath("attributes")); attrsVal.Exists() {
		list, err := attrsVal.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for list.Next() {
			a, err := list.Value().String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			f.AddAttr(a)
		}
	}

	if err := l.globalAnnotation(fv, f); err != nil {
		return nil, err
	}
	return f, nil
}

// globalAnnotation records the annotation field of v, if any, in the
// module annotation table.
func (l *lowering) globalAnnotation(v cue.Value, entity ir.Constant) error {
	av := v.LookupPath(cue.ParsePath("annotation"))
	if !av.Exists() {
		return nil
	}
	text, err := av.String()
	if err != nil {
		return formatCUEError(err)
	}

	var ref ir.Constant = entity
	if !l.opaque {
		ref = ir.NewBitCast(entity, l.i8p())
	}
	l.records = append(l.records, ir.NewConstantStruct(
		ref,
		l.str(text),
		l.fileRef(),
		ir.NewInt(ir.I32, int64(av.Pos().Line())),
	))
	return nil
}

// str adds a string constant named like a C frontend would.
func (l *lowering) str(s string) ir.Constant {
	name := ".str"
	if l.nstr > 0 {
		name = fmt.Sprintf(".str.%d", l.nstr)
	}
	l.nstr++
	g := l.m.NewStringGlobal(name, s)
	g.Section = MetadataSection
	if l.opaque {
		return g
	}
	return ir.NewGEP(g)
}

func (l *lowering) fileRef() ir.Constant {
	if l.file == nil {
		l.file = l.str(l.m.SourceFile)
	}
	return l.file
}

func (l *lowering) annotationTable() {
	if len(l.records) == 0 {
		return
	}
	arr := ir.NewConstantArray(l.records[0].Type(), l.records...)
	g := l.m.NewGlobal(initializer.DefaultGlobalAnnotations, arr.Type(), arr)
	g.Section = MetadataSection
}

// intrinsic returns the local annotation intrinsic, declaring it on
// first use. Opaque-pointer modules get the type-mangled name.
func (l *lowering) intrinsic() *ir.Function {
	if l.varAnno == nil {
		name := initializer.DefaultVarAnnotation
		if l.opaque {
			name += ".p0.p0"
		}
		p := l.i8p()
		l.varAnno = l.m.NewFunction(name, ir.NewFuncType(ir.Void, p, p, p, ir.I32))
	}
	return l.varAnno
}

// body lowers the instructions of f. A function needs either body (one
// entry block) or blocks; with neither it stays a declaration.
func (l *lowering) body(f *ir.Function, fv cue.Value) error {
	field := "functions." + f.Name
	bodyVal := fv.LookupPath(cue.ParsePath("body"))
	blocksVal := fv.LookupPath(cue.ParsePath("blocks"))
	if bodyVal.Exists() && blocksVal.Exists() {
		return &CompileError{Field: field, Message: "body and blocks are mutually exclusive", Pos: fv.Pos()}
	}

	type pending struct {
		block *ir.Block
		field string
		code  cue.Value
	}
	var todo []pending
	switch {
	case bodyVal.Exists():
		todo = append(todo, pending{f.NewBlock("entry"), field + ".body", bodyVal})
	case blocksVal.Exists():
		list, err := blocksVal.List()
		if err != nil {
			return formatCUEError(err)
		}
		for i := 0; list.Next(); i++ {
			bv := list.Value()
			bf := fmt.Sprintf("%s.blocks[%d]", field, i)
			name, ok, err := optString(bv, "name")
			if err != nil {
				return err
			}
			if !ok {
				return &CompileError{Field: bf + ".name", Message: "block name is required", Pos: bv.Pos()}
			}
			if blockNamed(f, name) != nil {
				return &CompileError{Field: bf + ".name", Message: fmt.Sprintf("duplicate block %q", name), Pos: bv.Pos()}
			}
			todo = append(todo, pending{f.NewBlock(name), bf + ".body", bv.LookupPath(cue.ParsePath("body"))})
		}
	default:
		return nil
	}

	fl := &funcLowering{lowering: l, f: f, scope: make(map[string]ir.Value)}
	for _, p := range f.Params {
		fl.scope[p.Name] = p
	}
	for _, p := range todo {
		if !p.code.Exists() {
			continue
		}
		list, err := p.code.List()
		if err != nil {
			return formatCUEError(err)
		}
		for i := 0; list.Next(); i++ {
			if err := fl.instruction(p.block, fmt.Sprintf("%s[%d]", p.field, i), list.Value()); err != nil {
				return err
			}
		}
	}
	return nil
}

func blockNamed(f *ir.Function, name string) *ir.Block {
	for _, b := range f.Blocks {
		if b.Name == name {
			return b
		}
	}
	return nil
}

type funcLowering struct {
	*lowering
	f     *ir.Function
	scope map[string]ir.Value
}

var binaryOps = map[string]bool{
	"fadd": true, "fsub": true, "fmul": true, "fdiv": true,
	"add": true, "sub": true, "mul": true,
}

var castOps = map[string]ir.CastOp{
	"bitcast":       ir.CastBitCast,
	"addrspacecast": ir.CastAddrSpaceCast,
	"fpext":         ir.CastFPExt,
	"fptrunc":       ir.CastFPTrunc,
	"sitofp":        ir.CastSIToFP,
	"fptosi":        ir.CastFPToSI,
	"ptrtoint":      ir.CastPtrToInt,
	"inttoptr":      ir.CastIntToPtr,
}

func (fl *funcLowering) instruction(b *ir.Block, field string, iv cue.Value) error {
	op, ok, err := optString(iv, "op")
	if err != nil {
		return err
	}
	if !ok {
		return &CompileError{Field: field + ".op", Message: "op is required", Pos: iv.Pos()}
	}
	name, _, err := optString(iv, "name")
	if err != nil {
		return err
	}
	if name != "" {
		if _, dup := fl.scope[name]; dup {
			return &CompileError{Field: field + ".name", Message: fmt.Sprintf("%q is already defined", name), Pos: iv.Pos()}
		}
	}

	args, err := fl.argValues(iv)
	if err != nil {
		return err
	}

	var inst ir.Instruction
	switch {
	case op == "alloca":
		t, err := fl.requiredType(field, iv)
		if err != nil {
			return err
		}
		inst = ir.NewAlloca(name, t)
	case op == "load":
		t, err := fl.requiredType(field, iv)
		if err != nil {
			return err
		}
		ptr, err := fl.operand(field, args, 0, nil)
		if err != nil {
			return err
		}
		inst = ir.NewLoad(name, t, ptr)
	case op == "store":
		val, err := fl.operand(field, args, 0, nil)
		if err != nil {
			return err
		}
		ptr, err := fl.operand(field, args, 1, nil)
		if err != nil {
			return err
		}
		inst = ir.NewStore(val, ptr)
	case op == "call" || op == "invoke":
		inst, err = fl.call(b, field, iv, op, name, args)
		if err != nil {
			return err
		}
	case op == "ret":
		if len(args) == 0 {
			inst = ir.NewRet(nil)
			break
		}
		val, err := fl.operand(field, args, 0, fl.f.Sig.Ret)
		if err != nil {
			return err
		}
		inst = ir.NewRet(val)
	case binaryOps[op]:
		x, err := fl.operand(field, args, 0, nil)
		if err != nil {
			return err
		}
		y, err := fl.operand(field, args, 1, x.Type())
		if err != nil {
			return err
		}
		inst = ir.NewBinOp(name, op, x, y)
	case castOps[op] != "":
		t, err := fl.requiredType(field, iv)
		if err != nil {
			return err
		}
		from, err := fl.operand(field, args, 0, nil)
		if err != nil {
			return err
		}
		inst = ir.NewCast(name, castOps[op], from, t)
	default:
		return &CompileError{Field: field + ".op", Message: fmt.Sprintf("unknown op %q", op), Pos: iv.Pos()}
	}

	b.Append(inst)
	if name != "" {
		fl.scope[name] = inst
	}

	if av := iv.LookupPath(cue.ParsePath("annotation")); av.Exists() {
		return fl.localAnnotation(b, field, inst, av)
	}
	return nil
}

func (fl *funcLowering) requiredType(field string, iv cue.Value) (ir.Type, error) {
	tv := iv.LookupPath(cue.ParsePath("type"))
	if !tv.Exists() {
		return nil, &CompileError{Field: field + ".type", Message: "type is required", Pos: iv.Pos()}
	}
	return fl.parseType(field+".type", tv)
}

func (fl *funcLowering) argValues(iv cue.Value) ([]cue.Value, error) {
	av := iv.LookupPath(cue.ParsePath("args"))
	if !av.Exists() {
		return nil, nil
	}
	list, err := av.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []cue.Value
	for list.Next() {
		out = append(out, list.Value())
	}
	return out, nil
}

// operand resolves args[i]. Numeric literals take the type want when it
// fits, else i32 or double.
func (fl *funcLowering) operand(field string, args []cue.Value, i int, want ir.Type) (ir.Value, error) {
	af := fmt.Sprintf("%s.args[%d]", field, i)
	if i >= len(args) {
		return nil, &CompileError{Field: af, Message: "missing operand"}
	}
	v := args[i]
	if v.IncompleteKind() != cue.StringKind {
		return constant(af, v, want)
	}
	ref, err := v.String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	if val := fl.resolve(ref); val != nil {
		return val, nil
	}
	if ref == "null" {
		return constant(af, v, want)
	}
	return nil, &CompileError{Field: af, Message: fmt.Sprintf("undefined value %q", ref), Pos: v.Pos()}
}

// resolve looks up "@global", "%local" or a bare local name.
func (fl *funcLowering) resolve(ref string) ir.Value {
	if name, ok := strings.CutPrefix(ref, "@"); ok {
		if g := fl.m.Global(name); g != nil {
			return g
		}
		if f := fl.m.Function(name); f != nil {
			return f
		}
		return nil
	}
	return fl.scope[strings.TrimPrefix(ref, "%")]
}

func (fl *funcLowering) call(b *ir.Block, field string, iv cue.Value, op, name string, args []cue.Value) (ir.Instruction, error) {
	cv := iv.LookupPath(cue.ParsePath("callee"))
	if !cv.Exists() {
		return nil, &CompileError{Field: field + ".callee", Message: "callee is required", Pos: iv.Pos()}
	}
	ref, err := cv.String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var callee ir.Value
	if !strings.HasPrefix(ref, "%") {
		if f := fl.m.Function(strings.TrimPrefix(ref, "@")); f != nil {
			callee = f
		}
	}
	if callee == nil {
		callee = fl.resolve(ref)
	}
	if callee == nil {
		return nil, &CompileError{Field: field + ".callee", Message: fmt.Sprintf("undefined function %q", ref), Pos: cv.Pos()}
	}

	var params []ir.Type
	if f, ok := callee.(*ir.Function); ok {
		params = f.Sig.Params
	}
	vals := make([]ir.Value, len(args))
	for i := range args {
		var want ir.Type
		if i < len(params) {
			want = params[i]
		}
		if vals[i], err = fl.operand(field, args, i, want); err != nil {
			return nil, err
		}
	}

	if op == "call" {
		return ir.NewCall(name, callee, vals...), nil
	}
	normal, err := fl.blockRef(field, iv, "normal")
	if err != nil {
		return nil, err
	}
	unwind, err := fl.blockRef(field, iv, "unwind")
	if err != nil {
		return nil, err
	}
	return ir.NewInvoke(name, callee, normal, unwind, vals...), nil
}

func (fl *funcLowering) blockRef(field string, iv cue.Value, key string) (*ir.Block, error) {
	name, ok, err := optString(iv, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &CompileError{Field: field + "." + key, Message: key + " block is required", Pos: iv.Pos()}
	}
	b := blockNamed(fl.f, strings.TrimPrefix(name, "%"))
	if b == nil {
		return nil, &CompileError{Field: field + "." + key, Message: fmt.Sprintf("undefined block %q", name), Pos: iv.Pos()}
	}
	return b, nil
}

// localAnnotation emits the intrinsic call annotating inst.
func (fl *funcLowering) localAnnotation(b *ir.Block, field string, inst ir.Instruction, av cue.Value) error {
	text, err := av.String()
	if err != nil {
		return formatCUEError(err)
	}
	if ir.IsVoid(inst.Type()) {
		return &CompileError{Field: field + ".annotation", Message: "cannot annotate an instruction without a value", Pos: av.Pos()}
	}

	var ptr ir.Value = inst
	if fl.opaque {
		if _, ok := inst.(*ir.Alloca); !ok {
			return &CompileError{Field: field + ".annotation", Message: "opaque-pointer modules only annotate allocas", Pos: av.Pos()}
		}
	} else {
		ptr = b.Append(ir.NewCast("", ir.CastBitCast, inst, fl.i8p()))
	}
	b.Append(ir.NewCall("", fl.intrinsic(),
		ptr,
		fl.str(text),
		fl.fileRef(),
		ir.NewInt(ir.I32, int64(av.Pos().Line())),
	))
	return nil
}

// constant converts a CUE literal to a constant of type want.
func constant(field string, v cue.Value, want ir.Type) (ir.Constant, error) {
	switch v.Kind() {
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		if ft, ok := want.(*ir.FloatType); ok {
			return &ir.ConstantFloat{Typ: ft, V: float64(n)}, nil
		}
		it, ok := want.(*ir.IntType)
		if !ok {
			it = ir.I32
		}
		return ir.NewInt(it, n), nil
	case cue.FloatKind, cue.NumberKind:
		f, err := v.Float64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		ft, ok := want.(*ir.FloatType)
		if !ok {
			ft = ir.Double
		}
		return &ir.ConstantFloat{Typ: ft, V: f}, nil
	case cue.StringKind:
		s, _ := v.String()
		if s == "null" {
			if want == nil {
				want = ir.Ptr
			}
			return &ir.ConstantNull{Typ: want}, nil
		}
	}
	return nil, &CompileError{Field: field, Message: fmt.Sprintf("unsupported constant %v", v), Pos: v.Pos()}
}

func optString(v cue.Value, field string) (string, bool, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", false, nil
	}
	s, err := fv.String()
	if err != nil {
		return "", false, formatCUEError(err)
	}
	return s, true, nil
}

func optBool(v cue.Value, field string) (bool, bool, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return false, false, nil
	}
	b, err := fv.Bool()
	if err != nil {
		return false, false, formatCUEError(err)
	}
	return b, true, nil
}
