package ir

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// TypeError reports a malformed type string.
type TypeError struct {
	Input  string
	Offset int
	Msg    string
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("type %q: %s at offset %d", e.Input, e.Msg, e.Offset)
}

// StructLookup resolves a named struct reference such as %struct.point.
// It returns nil when the name is unknown.
type StructLookup func(name string) *StructType

// ParseType parses LLVM type syntax: void, half, float, double, iN, ptr,
// [N x T], <N x T>, { T, ... }, %name, T*, and T (T, ...).
// Unknown %names become opaque named structs.
func ParseType(s string) (Type, error) {
	return ParseTypeWith(s, nil)
}

// ParseTypeWith is ParseType with a resolver for named struct references.
func ParseTypeWith(s string, lookup StructLookup) (Type, error) {
	p := &typeParser{src: s, lookup: lookup}
	t, err := p.parse()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, p.errorf("unexpected %q", p.src[p.pos:])
	}
	return t, nil
}

// MustParseType is like ParseType but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustParseType(s string) Type {
	t, err := ParseType(s)
	if err != nil {
		panic(err)
	}
	return t
}

// maxTypeDepth bounds nesting so hostile inputs cannot exhaust the stack.
const maxTypeDepth = 64

type typeParser struct {
	src    string
	pos    int
	depth  int
	lookup StructLookup
}

func (p *typeParser) errorf(format string, args ...any) error {
	return &TypeError{Input: p.src, Offset: p.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *typeParser) skipSpace() {
	for p.pos < len(p.src) && unicode.IsSpace(rune(p.src[p.pos])) {
		p.pos++
	}
}

func (p *typeParser) peek() byte {
	p.skipSpace()
	if p.pos < len(p.src) {
		return p.src[p.pos]
	}
	return 0
}

func (p *typeParser) expect(c byte) error {
	if p.peek() != c {
		return p.errorf("expected %q", c)
	}
	p.pos++
	return nil
}

func (p *typeParser) word() string {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == '_' || c == '.' || c == '$' || c == '-' ||
			unicode.IsLetter(rune(c)) || unicode.IsDigit(rune(c)) {
			p.pos++
			continue
		}
		break
	}
	return p.src[start:p.pos]
}

func (p *typeParser) number() (uint64, error) {
	w := p.word()
	n, err := strconv.ParseUint(w, 10, 64)
	if err != nil {
		return 0, p.errorf("expected element count, got %q", w)
	}
	return n, nil
}

func (p *typeParser) parse() (Type, error) {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > maxTypeDepth {
		return nil, p.errorf("type nested too deeply")
	}

	t, err := p.parseBase()
	if err != nil {
		return nil, err
	}
	for {
		switch p.peek() {
		case '*':
			p.pos++
			t = NewPointer(t)
		case '(':
			p.pos++
			ft, err := p.parseParams(t)
			if err != nil {
				return nil, err
			}
			t = ft
		default:
			return t, nil
		}
	}
}

func (p *typeParser) parseParams(ret Type) (*FuncType, error) {
	ft := &FuncType{Ret: ret}
	if p.peek() == ')' {
		p.pos++
		return ft, nil
	}
	for {
		if strings.HasPrefix(p.src[p.pos:], "...") {
			p.pos += 3
			ft.Variadic = true
			if err := p.expect(')'); err != nil {
				return nil, err
			}
			return ft, nil
		}
		param, err := p.parse()
		if err != nil {
			return nil, err
		}
		ft.Params = append(ft.Params, param)
		switch p.peek() {
		case ',':
			p.pos++
			p.skipSpace()
		case ')':
			p.pos++
			return ft, nil
		default:
			return nil, p.errorf("expected ',' or ')' in parameter list")
		}
	}
}

func (p *typeParser) parseBase() (Type, error) {
	switch c := p.peek(); c {
	case 0:
		return nil, p.errorf("unexpected end of type")
	case '[', '<':
		p.pos++
		n, err := p.number()
		if err != nil {
			return nil, err
		}
		if w := p.word(); w != "x" {
			return nil, p.errorf("expected 'x', got %q", w)
		}
		elem, err := p.parse()
		if err != nil {
			return nil, err
		}
		if c == '[' {
			if err := p.expect(']'); err != nil {
				return nil, err
			}
			return NewArray(n, elem), nil
		}
		if err := p.expect('>'); err != nil {
			return nil, err
		}
		return &VectorType{Len: n, Elem: elem}, nil
	case '{':
		p.pos++
		st := &StructType{}
		if p.peek() == '}' {
			p.pos++
			return st, nil
		}
		for {
			f, err := p.parse()
			if err != nil {
				return nil, err
			}
			st.Fields = append(st.Fields, f)
			switch p.peek() {
			case ',':
				p.pos++
			case '}':
				p.pos++
				return st, nil
			default:
				return nil, p.errorf("expected ',' or '}' in struct body")
			}
		}
	case '%':
		p.pos++
		name := p.word()
		if name == "" {
			return nil, p.errorf("expected struct name after '%%'")
		}
		if p.lookup != nil {
			if st := p.lookup(name); st != nil {
				return st, nil
			}
		}
		return &StructType{Name: name, Opaque: true}, nil
	}

	w := p.word()
	switch w {
	case "void":
		return Void, nil
	case "label":
		return Label, nil
	case "ptr":
		return &PointerType{}, nil
	}
	for k, name := range floatKindNames {
		if w == name {
			return &FloatType{Kind: FloatKind(k)}, nil
		}
	}
	if len(w) > 1 && w[0] == 'i' {
		bits, err := strconv.Atoi(w[1:])
		if err == nil && bits > 0 && bits <= 1<<23 {
			return &IntType{Bits: bits}, nil
		}
	}
	return nil, p.errorf("unknown type %q", w)
}
