package annotation

import (
	"fmt"
	"strings"
)

type tokenKind uint8

const (
	tokEOF tokenKind = iota
	tokIdent
	tokNumber
	tokString
	tokLParen
	tokRParen
	tokLBrack
	tokRBrack
	tokComma
)

var tokenNames = [...]string{
	tokEOF:    "end of annotation",
	tokIdent:  "identifier",
	tokNumber: "number",
	tokString: "string",
	tokLParen: "'('",
	tokRParen: "')'",
	tokLBrack: "'['",
	tokRBrack: "']'",
	tokComma:  "','",
}

func (k tokenKind) String() string { return tokenNames[k] }

type token struct {
	kind tokenKind
	text string // identifier/number lexeme, decoded string literal
	pos  int    // byte offset of the token start
}

func (t token) describe() string {
	switch t.kind {
	case tokIdent, tokNumber:
		return fmt.Sprintf("%s %q", t.kind, t.text)
	case tokString:
		return fmt.Sprintf("string '%s'", t.text)
	}
	return t.kind.String()
}

// lex splits src into tokens, always ending with tokEOF.
func lex(src string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '(':
			toks = append(toks, token{kind: tokLParen, pos: i})
			i++
		case c == ')':
			toks = append(toks, token{kind: tokRParen, pos: i})
			i++
		case c == '[':
			toks = append(toks, token{kind: tokLBrack, pos: i})
			i++
		case c == ']':
			toks = append(toks, token{kind: tokRBrack, pos: i})
			i++
		case c == ',':
			toks = append(toks, token{kind: tokComma, pos: i})
			i++
		case c == '\'' || c == '"':
			s, n, err := lexString(src, i)
			if err != nil {
				return nil, err
			}
			toks = append(toks, token{kind: tokString, text: s, pos: i})
			i += n
		case isDigit(c) || c == '-' || c == '+' || c == '.':
			n := lexNumber(src[i:])
			if n == 0 {
				return nil, syntaxErrorf(src, i, "malformed number")
			}
			toks = append(toks, token{kind: tokNumber, text: src[i : i+n], pos: i})
			i += n
		case isIdentStart(c):
			start := i
			for i < len(src) && isIdentPart(src[i]) {
				i++
			}
			toks = append(toks, token{kind: tokIdent, text: src[start:i], pos: start})
		default:
			return nil, syntaxErrorf(src, i, "unexpected character %q", c)
		}
	}
	return append(toks, token{kind: tokEOF, pos: len(src)}), nil
}

// lexString decodes a quoted literal starting at src[start]. It returns the
// decoded text and the number of bytes consumed.
func lexString(src string, start int) (string, int, error) {
	quoteChar := src[start]
	var b strings.Builder
	for i := start + 1; i < len(src); i++ {
		c := src[i]
		switch {
		case c == quoteChar:
			return b.String(), i - start + 1, nil
		case c == '\\':
			if i+1 >= len(src) {
				return "", 0, syntaxErrorf(src, i, "unterminated escape")
			}
			i++
			b.WriteByte(src[i])
		default:
			b.WriteByte(c)
		}
	}
	return "", 0, syntaxErrorf(src, start, "unterminated string")
}

// lexNumber returns the length of the numeric literal prefix of s, 0 if
// there is none. Accepts [+-]digits[.digits][(e|E)[+-]digits] and the words
// inf/infinity after a sign.
func lexNumber(s string) int {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	for _, word := range []string{"infinity", "inf"} {
		if strings.HasPrefix(strings.ToLower(s[i:]), word) {
			return i + len(word)
		}
	}
	digits := 0
	for i < len(s) && isDigit(s[i]) {
		i++
		digits++
	}
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && isDigit(s[i]) {
			i++
			digits++
		}
	}
	if digits == 0 {
		return 0
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		expDigits := 0
		for j < len(s) && isDigit(s[j]) {
			j++
			expDigits++
		}
		if expDigits > 0 {
			i = j
		}
	}
	return i
}

func isDigit(c byte) bool      { return c >= '0' && c <= '9' }
func isIdentStart(c byte) bool { return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
func isIdentPart(c byte) bool  { return isIdentStart(c) || isDigit(c) }
