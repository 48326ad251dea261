package annotation

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrSyntax is matched by every error Parse returns.
var ErrSyntax = errors.New("annotation syntax error")

// SyntaxError reports where and why an annotation failed to parse.
type SyntaxError struct {
	Input  string
	Offset int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s (at offset %d)", e.Msg, e.Offset)
}

func (e *SyntaxError) Unwrap() error { return ErrSyntax }

func syntaxErrorf(src string, pos int, format string, args ...any) *SyntaxError {
	return &SyntaxError{Input: src, Offset: pos, Msg: fmt.Sprintf(format, args...)}
}

// maxStructDepth bounds struct[...] nesting.
const maxStructDepth = 32

// Parse decodes one annotation string. Trailing NUL bytes, as found in
// C string constants, are ignored.
func Parse(text string) (*Directive, error) {
	src := strings.TrimRight(text, "\x00")
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{src: src, toks: toks}
	return p.parseDirective()
}

type parser struct {
	src   string
	toks  []token
	pos   int
	depth int
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) errorf(t token, format string, args ...any) error {
	return syntaxErrorf(p.src, t.pos, format, args...)
}

func (p *parser) expect(kind tokenKind) (token, error) {
	t := p.next()
	if t.kind != kind {
		return t, p.errorf(t, "expected %s, found %s", kind, t.describe())
	}
	return t, nil
}

func (p *parser) parseDirective() (*Directive, error) {
	d := &Directive{}
	seen := map[string]bool{}
	for {
		t := p.next()
		if t.kind == tokEOF {
			break
		}
		if t.kind != tokIdent {
			return nil, p.errorf(t, "expected annotation item, found %s", t.describe())
		}
		key := t.text
		if key == "struct" {
			key = "scalar" // scalar and struct are mutually exclusive
		}
		if seen[key] {
			return nil, p.errorf(t, "duplicate %s clause", t.text)
		}
		seen[key] = true

		switch t.text {
		case "target":
			name, err := p.parseTarget()
			if err != nil {
				return nil, err
			}
			d.Target = &name
		case "backtracking":
			bt, err := p.parseBacktracking()
			if err != nil {
				return nil, err
			}
			d.Backtracking = bt
		case "scalar":
			s, err := p.parseScalar()
			if err != nil {
				return nil, err
			}
			d.Metadata = s
		case "struct":
			s, err := p.parseStruct()
			if err != nil {
				return nil, err
			}
			d.Metadata = s
		default:
			return nil, p.errorf(t, "unknown annotation item %q", t.text)
		}
	}
	if d.Metadata == nil {
		return nil, syntaxErrorf(p.src, len(p.src), "missing scalar() or struct[] clause")
	}
	return d, nil
}

func (p *parser) parseTarget() (string, error) {
	if _, err := p.expect(tokLParen); err != nil {
		return "", err
	}
	t, err := p.expect(tokString)
	if err != nil {
		return "", err
	}
	if t.text == "" {
		return "", p.errorf(t, "target name must not be empty")
	}
	if _, err := p.expect(tokRParen); err != nil {
		return "", err
	}
	return t.text, nil
}

func (p *parser) parseBacktracking() (bool, error) {
	if p.peek().kind != tokLParen {
		return true, nil
	}
	p.next()
	t := p.next()
	var enabled bool
	switch {
	case t.kind == tokIdent && t.text == "true":
		enabled = true
	case t.kind == tokIdent && t.text == "false":
		enabled = false
	case t.kind == tokNumber:
		n, err := strconv.Atoi(t.text)
		if err != nil || n < 0 {
			return false, p.errorf(t, "backtracking depth must be a non-negative integer")
		}
		enabled = n > 0
	default:
		return false, p.errorf(t, "expected true, false or a depth, found %s", t.describe())
	}
	if _, err := p.expect(tokRParen); err != nil {
		return false, err
	}
	return enabled, nil
}

func (p *parser) parseScalar() (*ScalarInfo, error) {
	if _, err := p.expect(tokLParen); err != nil {
		return nil, err
	}
	s := &ScalarInfo{}
	seen := map[string]bool{}
	for {
		t := p.next()
		if t.kind == tokRParen {
			return s, nil
		}
		if t.kind != tokIdent {
			return nil, p.errorf(t, "expected scalar property, found %s", t.describe())
		}
		if seen[t.text] {
			return nil, p.errorf(t, "duplicate %s property", t.text)
		}
		seen[t.text] = true

		switch t.text {
		case "range":
			r, err := p.parseRange()
			if err != nil {
				return nil, err
			}
			s.Range = r
		case "type":
			ft, err := p.parseFixedPoint()
			if err != nil {
				return nil, err
			}
			s.Fixp = ft
		case "error":
			if _, err := p.expect(tokLParen); err != nil {
				return nil, err
			}
			e, err := p.parseNumber()
			if err != nil {
				return nil, err
			}
			if e < 0 {
				return nil, p.errorf(t, "error bound must be non-negative")
			}
			if _, err := p.expect(tokRParen); err != nil {
				return nil, err
			}
			s.Error = &e
		case "disabled":
			s.Disabled = true
		case "final":
			s.Final = true
		default:
			return nil, p.errorf(t, "unknown scalar property %q", t.text)
		}
	}
}

func (p *parser) parseRange() (*Range, error) {
	open, err := p.expect(tokLParen)
	if err != nil {
		return nil, err
	}
	lo, err := p.parseNumber()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokComma); err != nil {
		return nil, err
	}
	hi, err := p.parseNumber()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokRParen); err != nil {
		return nil, err
	}
	if math.IsInf(lo, 0) || math.IsInf(hi, 0) {
		return nil, p.errorf(open, "range bounds must be finite")
	}
	if lo > hi {
		return nil, p.errorf(open, "range minimum %s exceeds maximum %s", formatNum(lo), formatNum(hi))
	}
	return &Range{Min: lo, Max: hi}, nil
}

func (p *parser) parseFixedPoint() (*FixedPointType, error) {
	open, err := p.expect(tokLParen)
	if err != nil {
		return nil, err
	}
	ft := &FixedPointType{Signed: true}
	if t := p.peek(); t.kind == tokIdent {
		switch t.text {
		case "signed":
			ft.Signed = true
		case "unsigned":
			ft.Signed = false
		default:
			return nil, p.errorf(t, "expected signed or unsigned, found %s", t.describe())
		}
		p.next()
	}
	width, err := p.parseInt()
	if err != nil {
		return nil, err
	}
	frac, err := p.parseInt()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokRParen); err != nil {
		return nil, err
	}
	if width <= 0 {
		return nil, p.errorf(open, "fixed point width must be positive")
	}
	if frac < 0 || frac > width {
		return nil, p.errorf(open, "fractional bits %d out of range for width %d", frac, width)
	}
	ft.Width, ft.Frac = width, frac
	return ft, nil
}

func (p *parser) parseStruct() (*StructInfo, error) {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > maxStructDepth {
		return nil, p.errorf(p.peek(), "struct nested too deeply")
	}

	if _, err := p.expect(tokLBrack); err != nil {
		return nil, err
	}
	s := &StructInfo{}
	for {
		t := p.next()
		if t.kind != tokIdent {
			return nil, p.errorf(t, "expected field metadata, found %s", t.describe())
		}
		switch t.text {
		case "void":
			s.Fields = append(s.Fields, nil)
		case "scalar":
			f, err := p.parseScalar()
			if err != nil {
				return nil, err
			}
			s.Fields = append(s.Fields, f)
		case "struct":
			f, err := p.parseStruct()
			if err != nil {
				return nil, err
			}
			s.Fields = append(s.Fields, f)
		default:
			return nil, p.errorf(t, "unknown field metadata %q", t.text)
		}

		sep := p.next()
		switch sep.kind {
		case tokComma:
			continue
		case tokRBrack:
			return s, nil
		default:
			return nil, p.errorf(sep, "expected ',' or ']', found %s", sep.describe())
		}
	}
}

func (p *parser) parseNumber() (float64, error) {
	t, err := p.expect(tokNumber)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(t.text, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, p.errorf(t, "invalid number %q", t.text)
	}
	if math.IsNaN(v) {
		return 0, p.errorf(t, "NaN is not a valid bound")
	}
	return v, nil
}

func (p *parser) parseInt() (int, error) {
	t, err := p.expect(tokNumber)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(t.text)
	if err != nil {
		return 0, p.errorf(t, "expected integer, found %q", t.text)
	}
	return n, nil
}
