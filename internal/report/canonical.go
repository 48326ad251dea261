package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical renders v as RFC 8785 canonical JSON. Scan identities
// are computed over this form only.
//
// Compared to json.Marshal: object keys are ordered by UTF-16 code units,
// strings are NFC normalized and only escaped where JSON requires it, and
// floats and nulls are rejected. Values other than the plain JSON kinds
// are first rendered through their json tags.
func MarshalCanonical(v any) ([]byte, error) {
	tree, err := toTree(v)
	if err != nil {
		return nil, err
	}
	var e canonicalEncoder
	if err := e.encode(tree); err != nil {
		return nil, err
	}
	return e.buf.Bytes(), nil
}

// toTree converts v to the generic any/map/slice form with numbers kept
// as json.Number.
func toTree(v any) (any, error) {
	switch v.(type) {
	case nil, string, int, int64, bool, []any, map[string]any, json.Number, float32, float64:
		return v, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var tree any
	if err := dec.Decode(&tree); err != nil {
		return nil, err
	}
	return tree, nil
}

type canonicalEncoder struct {
	buf bytes.Buffer
}

func (e *canonicalEncoder) encode(v any) error {
	switch val := v.(type) {
	case nil:
		return fmt.Errorf("null is forbidden in canonical JSON")
	case string:
		e.writeString(val)
	case int:
		e.buf.WriteString(strconv.Itoa(val))
	case int64:
		e.buf.WriteString(strconv.FormatInt(val, 10))
	case json.Number:
		n, err := val.Int64()
		if err != nil {
			return fmt.Errorf("floats are forbidden in canonical JSON: %s", val)
		}
		e.buf.WriteString(strconv.FormatInt(n, 10))
	case bool:
		e.buf.WriteString(strconv.FormatBool(val))
	case []any:
		return e.encodeArray(val)
	case map[string]any:
		return e.encodeObject(val)
	case float32, float64:
		return fmt.Errorf("floats are forbidden in canonical JSON: %v", val)
	default:
		return fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
	return nil
}

func (e *canonicalEncoder) encodeArray(arr []any) error {
	e.buf.WriteByte('[')
	for i, elem := range arr {
		if i > 0 {
			e.buf.WriteByte(',')
		}
		if err := e.encode(elem); err != nil {
			return fmt.Errorf("array[%d]: %w", i, err)
		}
	}
	e.buf.WriteByte(']')
	return nil
}

func (e *canonicalEncoder) encodeObject(obj map[string]any) error {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareUTF16)

	e.buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			e.buf.WriteByte(',')
		}
		e.writeString(k)
		e.buf.WriteByte(':')
		if err := e.encode(obj[k]); err != nil {
			return fmt.Errorf("value for key %q: %w", k, err)
		}
	}
	e.buf.WriteByte('}')
	return nil
}

const hexDigits = "0123456789abcdef"

// writeString writes the NFC form of s, escaping only quote, backslash
// and control characters.
func (e *canonicalEncoder) writeString(s string) {
	e.buf.WriteByte('"')
	for _, r := range norm.NFC.String(s) {
		switch r {
		case '"':
			e.buf.WriteString(`\"`)
		case '\\':
			e.buf.WriteString(`\\`)
		case '\b':
			e.buf.WriteString(`\b`)
		case '\f':
			e.buf.WriteString(`\f`)
		case '\n':
			e.buf.WriteString(`\n`)
		case '\r':
			e.buf.WriteString(`\r`)
		case '\t':
			e.buf.WriteString(`\t`)
		default:
			if r < 0x20 {
				e.buf.WriteString(`\u00`)
				e.buf.WriteByte(hexDigits[r>>4])
				e.buf.WriteByte(hexDigits[r&0xf])
				continue
			}
			e.buf.WriteRune(r)
		}
	}
	e.buf.WriteByte('"')
}

// compareUTF16 orders object keys by UTF-16 code units.
func compareUTF16(a, b string) int {
	return slices.Compare(utf16.Encode([]rune(a)), utf16.Encode([]rune(b)))
}
