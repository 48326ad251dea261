package ir

import "slices"

// Module is one compilation unit.
type Module struct {
	Name       string
	SourceFile string
	Globals    []*GlobalVariable
	Functions  []*Function
	// Structs holds the named struct types, in declaration order.
	Structs []*StructType
}

// NewModule creates an empty module.
func NewModule(name string) *Module {
	return &Module{Name: name}
}

// NewGlobal declares a global of the given value type.
func (m *Module) NewGlobal(name string, valueType Type, init Constant) *GlobalVariable {
	g := &GlobalVariable{Name: name, ValueType: valueType, Parent: m}
	g.SetInit(init)
	m.Globals = append(m.Globals, g)
	return g
}

// NewFunction declares a function. It has no body until a block is added.
func (m *Module) NewFunction(name string, sig *FuncType) *Function {
	f := &Function{Name: name, Sig: sig, Parent: m}
	for i, pt := range sig.Params {
		f.Params = append(f.Params, &Param{Name: paramName(i), Typ: pt, Parent: f})
	}
	m.Functions = append(m.Functions, f)
	return f
}

// NewStruct registers a named struct type.
func (m *Module) NewStruct(name string, fields ...Type) *StructType {
	st := &StructType{Name: name, Fields: fields}
	m.Structs = append(m.Structs, st)
	return st
}

// Global returns the global named name, or nil.
func (m *Module) Global(name string) *GlobalVariable {
	i := slices.IndexFunc(m.Globals, func(g *GlobalVariable) bool { return g.Name == name })
	if i < 0 {
		return nil
	}
	return m.Globals[i]
}

// Function returns the function named name, or nil.
func (m *Module) Function(name string) *Function {
	i := slices.IndexFunc(m.Functions, func(f *Function) bool { return f.Name == name })
	if i < 0 {
		return nil
	}
	return m.Functions[i]
}

// Struct returns the named struct type, or nil.
func (m *Module) Struct(name string) *StructType {
	i := slices.IndexFunc(m.Structs, func(s *StructType) bool { return s.Name == name })
	if i < 0 {
		return nil
	}
	return m.Structs[i]
}

// GlobalVariable is a module-scope variable. Its value is its address, so
// Type is a pointer to ValueType.
type GlobalVariable struct {
	useList
	Name       string
	ValueType  Type
	Init       Constant
	IsConstant bool
	Section    string
	Parent     *Module
}

func (g *GlobalVariable) Type() Type    { return NewPointer(g.ValueType) }
func (g *GlobalVariable) Ident() string { return "@" + g.Name }
func (*GlobalVariable) isConstant()     {}

// Operands returns the initializer, if any.
func (g *GlobalVariable) Operands() []Value {
	if g.Init == nil {
		return nil
	}
	return []Value{g.Init}
}

// SetInit replaces the initializer and records the use.
func (g *GlobalVariable) SetInit(init Constant) {
	g.Init = init
	if init != nil {
		trackUses(g)
	}
}

// NewStringGlobal adds a private constant holding the NUL terminated s.
func (m *Module) NewStringGlobal(name, s string) *GlobalVariable {
	data := NewCString(s)
	g := m.NewGlobal(name, data.Type(), data)
	g.IsConstant = true
	return g
}

// Function is a procedure. A function without blocks is a declaration.
type Function struct {
	useList
	Name   string
	Sig    *FuncType
	Params []*Param
	Blocks []*Block
	Attrs  []string
	Parent *Module

	nextSlot int
}

func (f *Function) Type() Type    { return NewPointer(f.Sig) }
func (f *Function) Ident() string { return "@" + f.Name }
func (*Function) isConstant()     {}

// IsDeclaration reports whether f has no body.
func (f *Function) IsDeclaration() bool { return len(f.Blocks) == 0 }

// NewBlock appends a basic block to f.
func (f *Function) NewBlock(name string) *Block {
	b := &Block{Name: name, Parent: f}
	f.Blocks = append(f.Blocks, b)
	return b
}

// Instructions returns every instruction of f in block order.
func (f *Function) Instructions() []Instruction {
	var out []Instruction
	for _, b := range f.Blocks {
		out = append(out, b.Instrs...)
	}
	return out
}

// HasAttr reports whether the function attribute is set.
func (f *Function) HasAttr(name string) bool {
	return slices.Contains(f.Attrs, name)
}

// AddAttr sets a function attribute.
func (f *Function) AddAttr(name string) {
	if !f.HasAttr(name) {
		f.Attrs = append(f.Attrs, name)
	}
}

// RemoveAttr clears a function attribute. Removing an absent attribute is
// a no-op.
func (f *Function) RemoveAttr(name string) {
	f.Attrs = slices.DeleteFunc(f.Attrs, func(a string) bool { return a == name })
}

// Block is a basic block.
type Block struct {
	Name   string
	Instrs []Instruction
	Parent *Function
}

func (b *Block) Type() Type    { return Label }
func (b *Block) Ident() string { return "%" + b.Name }

// Append adds inst to the end of the block, names it when unnamed and
// registers its uses.
func (b *Block) Append(inst Instruction) Instruction {
	inst.setParent(b)
	if n, ok := inst.(nameable); ok && n.name() == "" && !IsVoid(inst.Type()) && b.Parent != nil {
		n.setName(slotName(b.Parent.nextSlot))
		b.Parent.nextSlot++
	}
	trackUses(inst)
	b.Instrs = append(b.Instrs, inst)
	return inst
}
