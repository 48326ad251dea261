package ir

import (
	"fmt"
	"strings"
)

// Type is a sealed interface over IR types.
type Type interface {
	String() string
	irType() // Sealed - only types in this package implement it
}

// VoidType is the type of values that produce nothing.
type VoidType struct{}

func (*VoidType) irType()        {}
func (*VoidType) String() string { return "void" }

// LabelType is the type of basic blocks.
type LabelType struct{}

func (*LabelType) irType()        {}
func (*LabelType) String() string { return "label" }

// FloatKind enumerates the floating-point formats.
type FloatKind uint8

const (
	KindHalf FloatKind = iota
	KindBFloat
	KindFloat
	KindDouble
	KindX86FP80
	KindFP128
	KindPPCFP128
)

var floatKindNames = [...]string{
	KindHalf:     "half",
	KindBFloat:   "bfloat",
	KindFloat:    "float",
	KindDouble:   "double",
	KindX86FP80:  "x86_fp80",
	KindFP128:    "fp128",
	KindPPCFP128: "ppc_fp128",
}

func (k FloatKind) String() string {
	if int(k) < len(floatKindNames) {
		return floatKindNames[k]
	}
	return fmt.Sprintf("float(%d)", uint8(k))
}

// FloatType is a floating-point scalar type.
type FloatType struct {
	Kind FloatKind
}

func (*FloatType) irType()          {}
func (t *FloatType) String() string { return t.Kind.String() }

// IntType is an integer type of the given bit width.
type IntType struct {
	Bits int
}

func (*IntType) irType()          {}
func (t *IntType) String() string { return fmt.Sprintf("i%d", t.Bits) }

// PointerType points at Elem. A nil Elem is the opaque pointer type.
type PointerType struct {
	Elem Type
}

func (*PointerType) irType() {}

func (t *PointerType) String() string {
	if t.Elem == nil {
		return "ptr"
	}
	return t.Elem.String() + "*"
}

// Opaque reports whether the pointer carries no element type.
func (t *PointerType) Opaque() bool { return t.Elem == nil }

// ArrayType is a fixed-length array.
type ArrayType struct {
	Len  uint64
	Elem Type
}

func (*ArrayType) irType() {}

func (t *ArrayType) String() string {
	return fmt.Sprintf("[%d x %s]", t.Len, t.Elem)
}

// VectorType is a SIMD vector of scalar lanes.
type VectorType struct {
	Len  uint64
	Elem Type
}

func (*VectorType) irType() {}

func (t *VectorType) String() string {
	return fmt.Sprintf("<%d x %s>", t.Len, t.Elem)
}

// StructType is a literal or named aggregate. A named struct without a
// body is Opaque.
type StructType struct {
	Name   string
	Fields []Type
	Opaque bool
}

func (*StructType) irType() {}

func (t *StructType) String() string {
	if t.Name != "" {
		return "%" + t.Name
	}
	return t.Body()
}

// Body renders the field list regardless of the struct name.
func (t *StructType) Body() string {
	if t.Opaque {
		return "opaque"
	}
	parts := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		parts[i] = f.String()
	}
	if len(parts) == 0 {
		return "{}"
	}
	return "{ " + strings.Join(parts, ", ") + " }"
}

// FuncType is a function signature.
type FuncType struct {
	Ret      Type
	Params   []Type
	Variadic bool
}

func (*FuncType) irType() {}

func (t *FuncType) String() string {
	parts := make([]string, 0, len(t.Params)+1)
	for _, p := range t.Params {
		parts = append(parts, p.String())
	}
	if t.Variadic {
		parts = append(parts, "...")
	}
	return fmt.Sprintf("%s (%s)", retType(t.Ret), strings.Join(parts, ", "))
}

func retType(t Type) Type {
	if t == nil {
		return Void
	}
	return t
}

// Commonly used types.
var (
	Void   = &VoidType{}
	Label  = &LabelType{}
	Half   = &FloatType{Kind: KindHalf}
	Float  = &FloatType{Kind: KindFloat}
	Double = &FloatType{Kind: KindDouble}
	I1     = &IntType{Bits: 1}
	I8     = &IntType{Bits: 8}
	I16    = &IntType{Bits: 16}
	I32    = &IntType{Bits: 32}
	I64    = &IntType{Bits: 64}
	Ptr    = &PointerType{}
)

// NewPointer returns a typed pointer to elem.
func NewPointer(elem Type) *PointerType {
	return &PointerType{Elem: elem}
}

// NewArray returns an array of n elements of elem.
func NewArray(n uint64, elem Type) *ArrayType {
	return &ArrayType{Len: n, Elem: elem}
}

// NewFuncType returns a non-variadic signature.
func NewFuncType(ret Type, params ...Type) *FuncType {
	return &FuncType{Ret: ret, Params: params}
}

// IsVoid reports whether t is the void type.
func IsVoid(t Type) bool {
	_, ok := t.(*VoidType)
	return ok
}

// IsFloatingPoint reports whether t is a floating-point scalar.
func IsFloatingPoint(t Type) bool {
	_, ok := t.(*FloatType)
	return ok
}

// ScalarOf strips any nesting of pointers and arrays from t and returns
// the innermost type. Vectors are not unwrapped. An opaque pointer is returned as is since
// nothing lies behind it.
func ScalarOf(t Type) Type {
	for {
		switch tt := t.(type) {
		case *PointerType:
			if tt.Elem == nil {
				return tt
			}
			t = tt.Elem
		case *ArrayType:
			t = tt.Elem
		default:
			return t
		}
	}
}

// Equal reports structural type equality. Named structs compare by name.
func Equal(a, b Type) bool {
	switch at := a.(type) {
	case nil:
		return b == nil
	case *VoidType:
		return IsVoid(b)
	case *LabelType:
		_, ok := b.(*LabelType)
		return ok
	case *FloatType:
		bt, ok := b.(*FloatType)
		return ok && at.Kind == bt.Kind
	case *IntType:
		bt, ok := b.(*IntType)
		return ok && at.Bits == bt.Bits
	case *PointerType:
		bt, ok := b.(*PointerType)
		return ok && Equal(at.Elem, bt.Elem)
	case *ArrayType:
		bt, ok := b.(*ArrayType)
		return ok && at.Len == bt.Len && Equal(at.Elem, bt.Elem)
	case *VectorType:
		bt, ok := b.(*VectorType)
		return ok && at.Len == bt.Len && Equal(at.Elem, bt.Elem)
	case *StructType:
		bt, ok := b.(*StructType)
		if !ok {
			return false
		}
		if at.Name != "" || bt.Name != "" {
			return at.Name == bt.Name
		}
		return equalTypes(at.Fields, bt.Fields)
	case *FuncType:
		bt, ok := b.(*FuncType)
		return ok && at.Variadic == bt.Variadic && Equal(retType(at.Ret), retType(bt.Ret)) &&
			equalTypes(at.Params, bt.Params)
	}
	return false
}

func equalTypes(a, b []Type) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}
