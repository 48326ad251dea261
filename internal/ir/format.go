package ir

import (
	"fmt"
	"strings"
)

// String renders v on one line in an LLVM-like syntax. Definitions
// (globals, functions, instructions) print their full form; other values
// print as a typed operand reference.
func String(v Value) string {
	switch x := v.(type) {
	case nil:
		return "<nil>"
	case *GlobalVariable:
		kind := "global"
		if x.IsConstant {
			kind = "constant"
		}
		s := fmt.Sprintf("@%s = %s %s", x.Name, kind, x.ValueType)
		if x.Init != nil {
			s += " " + x.Init.Ident()
		}
		if x.Section != "" {
			s += fmt.Sprintf(", section %q", x.Section)
		}
		return s
	case *Function:
		return functionHeader(x)
	case *Alloca:
		return fmt.Sprintf("%s = alloca %s", x.Ident(), x.Allocated)
	case *Cast:
		return fmt.Sprintf("%s = %s %s to %s", x.Ident(), x.Op, typedRef(x.From), x.To)
	case *Call:
		return assign(x, "call "+callTail(x.Type(), x.Callee, x.Args))
	case *Invoke:
		s := "invoke " + callTail(x.Type(), x.Callee, x.Args)
		if x.Normal != nil && x.Unwind != nil {
			s += fmt.Sprintf(" to label %s unwind label %s", x.Normal.Ident(), x.Unwind.Ident())
		}
		return assign(x, s)
	case *Load:
		return fmt.Sprintf("%s = load %s, %s", x.Ident(), x.Typ, typedRef(x.Ptr))
	case *Store:
		return fmt.Sprintf("store %s, %s", typedRef(x.Val), typedRef(x.Ptr))
	case *BinOp:
		return fmt.Sprintf("%s = %s %s, %s", x.Ident(), x.Op, typedRef(x.X), x.Y.Ident())
	case *Ret:
		if x.Val == nil {
			return "ret void"
		}
		return "ret " + typedRef(x.Val)
	}
	return typedRef(v)
}

func assign(inst Instruction, rhs string) string {
	if IsVoid(inst.Type()) {
		return rhs
	}
	return inst.Ident() + " = " + rhs
}

func callTail(ret Type, callee Value, args []Value) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = typedRef(a)
	}
	name := "<nil>"
	if callee != nil {
		name = callee.Ident()
	}
	return fmt.Sprintf("%s %s(%s)", ret, name, strings.Join(parts, ", "))
}

func functionHeader(f *Function) string {
	kw := "define"
	if f.IsDeclaration() {
		kw = "declare"
	}
	parts := make([]string, 0, len(f.Params)+1)
	for _, p := range f.Params {
		if f.IsDeclaration() {
			parts = append(parts, p.Typ.String())
		} else {
			parts = append(parts, typedRef(p))
		}
	}
	if f.Sig.Variadic {
		parts = append(parts, "...")
	}
	s := fmt.Sprintf("%s %s @%s(%s)", kw, retType(f.Sig.Ret), f.Name, strings.Join(parts, ", "))
	if len(f.Attrs) > 0 {
		s += " " + strings.Join(f.Attrs, " ")
	}
	return s
}

func typedRef(v Value) string {
	if v == nil {
		return "<nil>"
	}
	return v.Type().String() + " " + v.Ident()
}

// quoteBytes renders data in LLVM c"..." string syntax.
func quoteBytes(data []byte) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, c := range data {
		if c >= 0x20 && c < 0x7f && c != '"' && c != '\\' {
			b.WriteByte(c)
			continue
		}
		fmt.Fprintf(&b, "\\%02X", c)
	}
	b.WriteByte('"')
	return b.String()
}
