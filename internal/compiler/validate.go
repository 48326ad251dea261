package compiler

import (
	"fmt"

	"github.com/roach88/taffo/internal/ir"
)

// Validation error codes (E200-E299)
const (
	// General validation errors (E200)
	ErrNilModule = "E200" // no module to validate

	// Symbol errors (E201-E209)
	ErrDuplicateSymbol = "E201" // duplicate global or function name
	ErrDuplicateLocal  = "E202" // duplicate value name within a function
	ErrForeignSymbol   = "E203" // operand refers to another module

	// Instruction errors (E210-E219)
	ErrCallArity      = "E210" // argument count does not match callee
	ErrNotPointer     = "E211" // load/store address is not a pointer
	ErrRetType        = "E212" // returned value does not match signature
	ErrNoTerminator   = "E213" // block does not end in ret or invoke
	ErrMisplacedTerm  = "E214" // terminator before the end of a block
	ErrMissingOperand = "E215" // instruction operand is nil
)

// ValidationError represents a module validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a compiled module for structural errors.
// Returns all errors found (does not fail-fast).
func Validate(m *ir.Module) []ValidationError {
	if m == nil {
		return []ValidationError{{
			Field:   "module",
			Message: "module is nil",
			Code:    ErrNilModule,
		}}
	}

	var errs []ValidationError

	// E201: globals and functions share one namespace
	symbols := make(map[string]bool)
	for _, g := range m.Globals {
		if symbols[g.Name] {
			errs = append(errs, ValidationError{
				Field:   "globals." + g.Name,
				Message: fmt.Sprintf("duplicate symbol @%s", g.Name),
				Code:    ErrDuplicateSymbol,
			})
		}
		symbols[g.Name] = true
	}
	for _, f := range m.Functions {
		if symbols[f.Name] {
			errs = append(errs, ValidationError{
				Field:   "functions." + f.Name,
				Message: fmt.Sprintf("duplicate symbol @%s", f.Name),
				Code:    ErrDuplicateSymbol,
			})
		}
		symbols[f.Name] = true
	}

	for _, f := range m.Functions {
		errs = append(errs, validateFunction(m, f)...)
	}
	return errs
}

func validateFunction(m *ir.Module, f *ir.Function) []ValidationError {
	var errs []ValidationError
	field := "functions." + f.Name

	// E202: params and named instructions share one namespace
	locals := make(map[string]bool)
	for _, p := range f.Params {
		if locals[p.Name] {
			errs = append(errs, ValidationError{
				Field:   field + ".params",
				Message: fmt.Sprintf("duplicate local %%%s", p.Name),
				Code:    ErrDuplicateLocal,
			})
		}
		locals[p.Name] = true
	}

	for _, b := range f.Blocks {
		bfield := fmt.Sprintf("%s.%s", field, b.Name)

		// E213: every block ends in a terminator
		if len(b.Instrs) == 0 || !isTerminator(b.Instrs[len(b.Instrs)-1]) {
			errs = append(errs, ValidationError{
				Field:   bfield,
				Message: fmt.Sprintf("block %%%s has no terminator", b.Name),
				Code:    ErrNoTerminator,
			})
		}

		for i, inst := range b.Instrs {
			ifield := fmt.Sprintf("%s[%d]", bfield, i)

			if name := localName(inst); name != "" {
				if locals[name] {
					errs = append(errs, ValidationError{
						Field:   ifield,
						Message: fmt.Sprintf("duplicate local %%%s", name),
						Code:    ErrDuplicateLocal,
					})
				}
				locals[name] = true
			}

			// E214: terminators only end blocks
			if isTerminator(inst) && i != len(b.Instrs)-1 {
				errs = append(errs, ValidationError{
					Field:   ifield,
					Message: "terminator is not the last instruction of its block",
					Code:    ErrMisplacedTerm,
				})
			}

			errs = append(errs, validateOperands(m, ifield, inst)...)
			errs = append(errs, validateInstruction(f, ifield, inst)...)
		}
	}
	return errs
}

func validateOperands(m *ir.Module, field string, inst ir.Instruction) []ValidationError {
	var errs []ValidationError
	for j, op := range inst.Operands() {
		// E215: nil operand
		if op == nil {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("%s.operands[%d]", field, j),
				Message: "operand is nil",
				Code:    ErrMissingOperand,
			})
			continue
		}
		// E203: symbols must belong to this module
		if owner := symbolModule(op); owner != nil && owner != m {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("%s.operands[%d]", field, j),
				Message: fmt.Sprintf("%s belongs to module %q", op.Ident(), owner.Name),
				Code:    ErrForeignSymbol,
			})
		}
	}
	return errs
}

func validateInstruction(f *ir.Function, field string, inst ir.Instruction) []ValidationError {
	var errs []ValidationError
	switch in := inst.(type) {
	case *ir.Call:
		errs = append(errs, validateArity(field, in.Sig, len(in.Args))...)
	case *ir.Invoke:
		errs = append(errs, validateArity(field, in.Sig, len(in.Args))...)
	case *ir.Load:
		errs = append(errs, validatePointer(field, "load", in.Ptr)...)
	case *ir.Store:
		errs = append(errs, validatePointer(field, "store", in.Ptr)...)
	case *ir.Ret:
		// E212: ret matches the signature
		want := f.Sig.Ret
		if want == nil {
			want = ir.Void
		}
		switch {
		case in.Val == nil && !ir.IsVoid(want):
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("ret void in function returning %s", want),
				Code:    ErrRetType,
			})
		case in.Val != nil && !ir.Equal(in.Val.Type(), want):
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("ret %s in function returning %s", in.Val.Type(), want),
				Code:    ErrRetType,
			})
		}
	}
	return errs
}

// validateArity applies E210. Indirect calls without a signature are
// not checked.
func validateArity(field string, sig *ir.FuncType, n int) []ValidationError {
	if sig == nil {
		return nil
	}
	if n == len(sig.Params) || (sig.Variadic && n > len(sig.Params)) {
		return nil
	}
	return []ValidationError{{
		Field:   field,
		Message: fmt.Sprintf("call passes %d arguments, callee takes %d", n, len(sig.Params)),
		Code:    ErrCallArity,
	}}
}

func validatePointer(field, op string, ptr ir.Value) []ValidationError {
	if ptr == nil {
		return nil
	}
	if _, ok := ptr.Type().(*ir.PointerType); ok {
		return nil
	}
	return []ValidationError{{
		Field:   field,
		Message: fmt.Sprintf("%s address has type %s, want a pointer", op, ptr.Type()),
		Code:    ErrNotPointer,
	}}
}

func isTerminator(inst ir.Instruction) bool {
	switch inst.(type) {
	case *ir.Ret, *ir.Invoke:
		return true
	}
	return false
}

// localName returns the name of a value-producing instruction.
func localName(inst ir.Instruction) string {
	if ir.IsVoid(inst.Type()) {
		return ""
	}
	name, _ := ir.NameOf(inst)
	return name
}

func symbolModule(v ir.Value) *ir.Module {
	switch s := v.(type) {
	case *ir.GlobalVariable:
		return s.Parent
	case *ir.Function:
		return s.Parent
	}
	return nil
}
