package ir

import "strconv"

// Instruction is a value computed inside a basic block.
type Instruction interface {
	User
	// Block returns the enclosing block, nil before Append.
	Block() *Block
	setParent(*Block)
}

type nameable interface {
	name() string
	setName(string)
}

// instr holds the fields shared by all instructions.
type instr struct {
	useList
	Name   string
	parent *Block
}

func (i *instr) Block() *Block       { return i.parent }
func (i *instr) setParent(b *Block)  { i.parent = b }
func (i *instr) name() string        { return i.Name }
func (i *instr) setName(name string) { i.Name = name }
func (i *instr) Ident() string       { return "%" + i.Name }

// FunctionOf returns the function enclosing inst, or nil.
func FunctionOf(inst Instruction) *Function {
	if b := inst.Block(); b != nil {
		return b.Parent
	}
	return nil
}

// NameOf returns the local name of inst and whether it has one.
func NameOf(inst Instruction) (string, bool) {
	n, ok := inst.(nameable)
	if !ok || n.name() == "" {
		return "", false
	}
	return n.name(), true
}

func slotName(n int) string  { return strconv.Itoa(n) }
func paramName(n int) string { return "arg" + strconv.Itoa(n) }

// Alloca reserves stack storage for one Allocated (or Count of them).
type Alloca struct {
	instr
	Allocated Type
	Count     Value
}

// NewAlloca returns an unattached allocation.
func NewAlloca(name string, allocated Type) *Alloca {
	a := &Alloca{Allocated: allocated}
	a.Name = name
	return a
}

func (a *Alloca) Type() Type { return NewPointer(a.Allocated) }

func (a *Alloca) Operands() []Value {
	if a.Count == nil {
		return nil
	}
	return []Value{a.Count}
}

// CastOp names an instruction-level conversion.
type CastOp string

const (
	CastBitCast       CastOp = "bitcast"
	CastAddrSpaceCast CastOp = "addrspacecast"
	CastFPExt         CastOp = "fpext"
	CastFPTrunc       CastOp = "fptrunc"
	CastSIToFP        CastOp = "sitofp"
	CastFPToSI        CastOp = "fptosi"
	CastPtrToInt      CastOp = "ptrtoint"
	CastIntToPtr      CastOp = "inttoptr"
)

// Cast converts From to To.
type Cast struct {
	instr
	Op   CastOp
	From Value
	To   Type
}

// NewCast returns an unattached conversion.
func NewCast(name string, op CastOp, from Value, to Type) *Cast {
	c := &Cast{Op: op, From: from, To: to}
	c.Name = name
	return c
}

func (c *Cast) Type() Type        { return c.To }
func (c *Cast) Operands() []Value { return []Value{c.From} }

// Call invokes Callee with Args. Operand order follows LLVM: arguments
// first, callee last.
type Call struct {
	instr
	Callee Value
	Args   []Value
	Sig    *FuncType
}

// NewCall returns an unattached call. The signature is taken from the
// callee when it is a function.
func NewCall(name string, callee Value, args ...Value) *Call {
	c := &Call{Callee: callee, Args: args, Sig: signatureOf(callee)}
	c.Name = name
	return c
}

func (c *Call) Type() Type {
	if c.Sig == nil {
		return Void
	}
	return retType(c.Sig.Ret)
}

func (c *Call) Operands() []Value {
	return append(append([]Value(nil), c.Args...), c.Callee)
}

// CalledFunction returns the callee when it is a direct function, else nil.
func (c *Call) CalledFunction() *Function {
	f, _ := c.Callee.(*Function)
	return f
}

// Invoke is a call with exceptional control flow.
type Invoke struct {
	instr
	Callee Value
	Args   []Value
	Sig    *FuncType
	Normal *Block
	Unwind *Block
}

// NewInvoke returns an unattached invoke.
func NewInvoke(name string, callee Value, normal, unwind *Block, args ...Value) *Invoke {
	iv := &Invoke{Callee: callee, Args: args, Sig: signatureOf(callee), Normal: normal, Unwind: unwind}
	iv.Name = name
	return iv
}

func (iv *Invoke) Type() Type {
	if iv.Sig == nil {
		return Void
	}
	return retType(iv.Sig.Ret)
}

func (iv *Invoke) Operands() []Value {
	return append(append([]Value(nil), iv.Args...), iv.Callee)
}

// CalledFunction returns the callee when it is a direct function, else nil.
func (iv *Invoke) CalledFunction() *Function {
	f, _ := iv.Callee.(*Function)
	return f
}

func signatureOf(callee Value) *FuncType {
	switch c := callee.(type) {
	case *Function:
		return c.Sig
	case nil:
		return nil
	}
	if pt, ok := callee.Type().(*PointerType); ok {
		if ft, ok := pt.Elem.(*FuncType); ok {
			return ft
		}
	}
	return nil
}

// Load reads Typ from Ptr.
type Load struct {
	instr
	Typ Type
	Ptr Value
}

// NewLoad returns an unattached load.
func NewLoad(name string, typ Type, ptr Value) *Load {
	l := &Load{Typ: typ, Ptr: ptr}
	l.Name = name
	return l
}

func (l *Load) Type() Type        { return l.Typ }
func (l *Load) Operands() []Value { return []Value{l.Ptr} }

// Store writes Val to Ptr.
type Store struct {
	instr
	Val Value
	Ptr Value
}

// NewStore returns an unattached store.
func NewStore(val, ptr Value) *Store {
	return &Store{Val: val, Ptr: ptr}
}

func (s *Store) Type() Type        { return Void }
func (s *Store) Operands() []Value { return []Value{s.Val, s.Ptr} }

// BinOp is a two-operand arithmetic instruction such as fadd or mul.
type BinOp struct {
	instr
	Op   string
	X, Y Value
}

// NewBinOp returns an unattached arithmetic instruction.
func NewBinOp(name, op string, x, y Value) *BinOp {
	b := &BinOp{Op: op, X: x, Y: y}
	b.Name = name
	return b
}

func (b *BinOp) Type() Type        { return b.X.Type() }
func (b *BinOp) Operands() []Value { return []Value{b.X, b.Y} }

// Ret returns from the function. Val is nil for ret void.
type Ret struct {
	instr
	Val Value
}

// NewRet returns an unattached return.
func NewRet(val Value) *Ret {
	return &Ret{Val: val}
}

func (r *Ret) Type() Type { return Void }

func (r *Ret) Operands() []Value {
	if r.Val == nil {
		return nil
	}
	return []Value{r.Val}
}
