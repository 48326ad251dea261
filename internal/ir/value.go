package ir

import "slices"

// Value is anything that can appear as an operand.
// Identity is pointer identity: two Values are the same value iff they are
// the same pointer.
type Value interface {
	// Type returns the value's type. Never nil.
	Type() Type
	// Ident returns the textual reference used for the value as an
	// operand, e.g. "@g" or "%x".
	Ident() string
}

// User is a value that references other values.
type User interface {
	Value
	Operands() []Value
}

// Constant is a value known at compile time. Globals and functions are
// constants (their address is).
type Constant interface {
	Value
	isConstant()
}

// Operand returns u's i-th operand, or nil when out of range.
func Operand(u User, i int) Value {
	ops := u.Operands()
	if i < 0 || i >= len(ops) {
		return nil
	}
	return ops[i]
}

// useList records the users of a value. Embedded in values that are
// commonly referenced: globals, functions, instructions.
type useList struct {
	users []User
}

func (l *useList) addUser(u User) {
	if !slices.Contains(l.users, u) {
		l.users = append(l.users, u)
	}
}

// Users returns the values referencing this one, in the order the
// references were created.
func (l *useList) Users() []User {
	return slices.Clone(l.users)
}

type usable interface {
	addUser(User)
}

// trackUses registers u as a user of each of its operands.
func trackUses(u User) {
	for _, op := range u.Operands() {
		if t, ok := op.(usable); ok {
			t.addUser(u)
		}
	}
}

// Param is a formal function parameter.
type Param struct {
	useList
	Name   string
	Typ    Type
	Parent *Function
}

func (p *Param) Type() Type    { return p.Typ }
func (p *Param) Ident() string { return "%" + p.Name }
