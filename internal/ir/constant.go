package ir

import (
	"fmt"
	"strconv"
)

// ConstantInt is an integer literal.
type ConstantInt struct {
	Typ *IntType
	V   int64
}

func (c *ConstantInt) Type() Type    { return c.Typ }
func (c *ConstantInt) Ident() string { return strconv.FormatInt(c.V, 10) }
func (*ConstantInt) isConstant()     {}

// NewInt returns an integer constant of type t.
func NewInt(t *IntType, v int64) *ConstantInt {
	return &ConstantInt{Typ: t, V: v}
}

// ConstantFloat is a floating-point literal.
type ConstantFloat struct {
	Typ *FloatType
	V   float64
}

func (c *ConstantFloat) Type() Type { return c.Typ }
func (c *ConstantFloat) Ident() string {
	return strconv.FormatFloat(c.V, 'e', 6, 64)
}
func (*ConstantFloat) isConstant() {}

// ConstantNull is the null/zero value of a type.
type ConstantNull struct {
	Typ Type
}

func (c *ConstantNull) Type() Type { return c.Typ }
func (c *ConstantNull) Ident() string {
	if _, ok := c.Typ.(*PointerType); ok {
		return "null"
	}
	return "zeroinitializer"
}
func (*ConstantNull) isConstant() {}

// ConstantDataArray is a packed array of integer elements, the form
// string literals take.
type ConstantDataArray struct {
	Elem *IntType
	Data []byte
}

// NewCString returns the NUL terminated i8 array holding s.
func NewCString(s string) *ConstantDataArray {
	data := make([]byte, 0, len(s)+1)
	data = append(data, s...)
	data = append(data, 0)
	return &ConstantDataArray{Elem: I8, Data: data}
}

func (c *ConstantDataArray) Type() Type {
	return NewArray(uint64(len(c.Data)), c.Elem)
}

func (c *ConstantDataArray) Ident() string {
	if !c.IsString() {
		return fmt.Sprintf("%v", c.Data)
	}
	return "c" + quoteBytes(c.Data)
}

func (*ConstantDataArray) isConstant() {}

// IsString reports whether the array holds i8 elements.
func (c *ConstantDataArray) IsString() bool {
	return c.Elem != nil && c.Elem.Bits == 8
}

// AsString returns the raw bytes, terminator included.
func (c *ConstantDataArray) AsString() string {
	return string(c.Data)
}

// ConstantArray is an array of arbitrary constants.
type ConstantArray struct {
	Typ   *ArrayType
	Elems []Constant
}

// NewConstantArray builds an array of elem-typed constants.
func NewConstantArray(elem Type, elems ...Constant) *ConstantArray {
	c := &ConstantArray{Typ: NewArray(uint64(len(elems)), elem), Elems: elems}
	trackUses(c)
	return c
}

func (c *ConstantArray) Type() Type    { return c.Typ }
func (c *ConstantArray) Ident() string { return "[...]" }
func (*ConstantArray) isConstant()     {}

func (c *ConstantArray) Operands() []Value {
	ops := make([]Value, len(c.Elems))
	for i, e := range c.Elems {
		ops[i] = e
	}
	return ops
}

// ConstantStruct is a struct of constants.
type ConstantStruct struct {
	Typ    *StructType
	Fields []Constant
}

// NewConstantStruct builds a literal struct whose type follows the fields.
func NewConstantStruct(fields ...Constant) *ConstantStruct {
	st := &StructType{Fields: make([]Type, len(fields))}
	for i, f := range fields {
		st.Fields[i] = f.Type()
	}
	c := &ConstantStruct{Typ: st, Fields: fields}
	trackUses(c)
	return c
}

func (c *ConstantStruct) Type() Type    { return c.Typ }
func (c *ConstantStruct) Ident() string { return "{...}" }
func (*ConstantStruct) isConstant()     {}

func (c *ConstantStruct) Operands() []Value {
	ops := make([]Value, len(c.Fields))
	for i, f := range c.Fields {
		ops[i] = f
	}
	return ops
}

// Opcode names a constant expression operation.
type Opcode string

const (
	OpBitCast       Opcode = "bitcast"
	OpAddrSpaceCast Opcode = "addrspacecast"
	OpGetElementPtr Opcode = "getelementptr"
	OpPtrToInt      Opcode = "ptrtoint"
	OpIntToPtr      Opcode = "inttoptr"
)

// IsCast reports whether op only reinterprets its single operand.
func (op Opcode) IsCast() bool {
	switch op {
	case OpBitCast, OpAddrSpaceCast, OpPtrToInt, OpIntToPtr:
		return true
	}
	return false
}

// ConstantExpr is an operation folded into a constant.
type ConstantExpr struct {
	Opcode Opcode
	Typ    Type
	Ops    []Constant
	// Source is the pointee type indexed by getelementptr.
	Source Type
}

// NewConstantExpr builds a constant expression and registers its uses.
func NewConstantExpr(op Opcode, typ Type, ops ...Constant) *ConstantExpr {
	c := &ConstantExpr{Opcode: op, Typ: typ, Ops: ops}
	trackUses(c)
	return c
}

// NewBitCast casts c to typ.
func NewBitCast(c Constant, typ Type) *ConstantExpr {
	return NewConstantExpr(OpBitCast, typ, c)
}

// NewGEP returns the address of the first element of the array global g,
// the shape a frontend uses to pass string literals around.
func NewGEP(g *GlobalVariable) *ConstantExpr {
	elem := I8
	if at, ok := g.ValueType.(*ArrayType); ok {
		if it, ok := at.Elem.(*IntType); ok {
			elem = it
		}
	}
	c := NewConstantExpr(OpGetElementPtr, NewPointer(elem), g, NewInt(I32, 0), NewInt(I32, 0))
	c.Source = g.ValueType
	return c
}

func (c *ConstantExpr) Type() Type { return c.Typ }
func (*ConstantExpr) isConstant()  {}

func (c *ConstantExpr) Ident() string {
	if c.Opcode == OpGetElementPtr {
		s := string(c.Opcode) + " ("
		if c.Source != nil {
			s += c.Source.String() + ", "
		}
		for i, op := range c.Ops {
			if i > 0 {
				s += ", "
			}
			s += typedRef(op)
		}
		return s + ")"
	}
	if len(c.Ops) == 1 {
		return fmt.Sprintf("%s (%s to %s)", c.Opcode, typedRef(c.Ops[0]), c.Typ)
	}
	return fmt.Sprintf("%s (...)", c.Opcode)
}

func (c *ConstantExpr) Operands() []Value {
	ops := make([]Value, len(c.Ops))
	for i, o := range c.Ops {
		ops[i] = o
	}
	return ops
}

// Operand returns the i-th operand or nil.
func (c *ConstantExpr) Operand(i int) Value {
	return Operand(c, i)
}
