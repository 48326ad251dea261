package annotation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScalar(t *testing.T) {
	d, err := Parse("scalar(range(-1, 1.5) type(unsigned 32 16) error(1e-3) final)")
	require.NoError(t, err)

	assert.False(t, d.Backtracking)
	assert.Nil(t, d.Target)
	s, ok := d.Metadata.(*ScalarInfo)
	require.True(t, ok)
	require.NotNil(t, s.Range)
	assert.Equal(t, Range{Min: -1, Max: 1.5}, *s.Range)
	require.NotNil(t, s.Fixp)
	assert.Equal(t, FixedPointType{Signed: false, Width: 32, Frac: 16}, *s.Fixp)
	require.NotNil(t, s.Error)
	assert.InDelta(t, 0.001, *s.Error, 1e-12)
	assert.True(t, s.Final)
	assert.False(t, s.Disabled)
}

func TestParseTargetAndBacktracking(t *testing.T) {
	tests := []struct {
		name         string
		input        string
		target       string
		backtracking bool
	}{
		{"single quotes", "target('acc') scalar()", "acc", false},
		{"double quotes", `target("acc") backtracking scalar()`, "acc", true},
		{"escaped quote", `target('a\'b') scalar()`, "a'b", false},
		{"escaped backslash", `target('a\\b') scalar()`, `a\b`, false},
		{"backtracking depth", "backtracking(3) scalar()", "", true},
		{"backtracking zero", "backtracking(0) scalar()", "", false},
		{"backtracking false", "backtracking(false) scalar()", "", false},
		{"order independent", "scalar() backtracking(true) target('t')", "t", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Parse(tt.input)
			require.NoError(t, err)
			if tt.target == "" {
				assert.Nil(t, d.Target)
			} else {
				require.NotNil(t, d.Target)
				assert.Equal(t, tt.target, *d.Target)
			}
			assert.Equal(t, tt.backtracking, d.Backtracking)
		})
	}
}

func TestParseStruct(t *testing.T) {
	d, err := Parse("struct[scalar(range(0, 255)), void, struct[scalar(disabled)]]")
	require.NoError(t, err)

	s, ok := d.Metadata.(*StructInfo)
	require.True(t, ok)
	require.Len(t, s.Fields, 3)
	assert.IsType(t, &ScalarInfo{}, s.Fields[0])
	assert.Nil(t, s.Fields[1])
	inner, ok := s.Fields[2].(*StructInfo)
	require.True(t, ok)
	require.Len(t, inner.Fields, 1)
	assert.True(t, inner.Fields[0].(*ScalarInfo).Disabled)
}

func TestParseIgnoresTrailingNUL(t *testing.T) {
	d, err := Parse("scalar(range(0, 1))\x00")
	require.NoError(t, err)
	assert.Equal(t, "scalar(range(0, 1))", d.String())
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		msg   string
	}{
		{"empty", "", "missing scalar() or struct[]"},
		{"only target", "target('x')", "missing scalar() or struct[]"},
		{"unknown item", "scalr()", `unknown annotation item "scalr"`},
		{"unknown property", "scalar(rnge(0, 1))", `unknown scalar property "rnge"`},
		{"inverted range", "scalar(range(2, 1))", "exceeds maximum"},
		{"infinite range", "scalar(range(-inf, 1))", "must be finite"},
		{"missing comma", "scalar(range(0 1))", "expected ','"},
		{"unclosed scalar", "scalar(range(0, 1)", "expected scalar property, found end of annotation"},
		{"bad frac", "scalar(type(8 9))", "out of range"},
		{"zero width", "scalar(type(0 0))", "must be positive"},
		{"non integer width", "scalar(type(8.5 2))", "expected integer"},
		{"negative error", "scalar(error(-1))", "non-negative"},
		{"duplicate scalar", "scalar() scalar()", "duplicate scalar"},
		{"scalar and struct", "scalar() struct[void]", "duplicate struct"},
		{"duplicate property", "scalar(final final)", "duplicate final"},
		{"empty target", "target('') scalar()", "must not be empty"},
		{"unterminated string", "target('abc scalar()", "unterminated string"},
		{"stray character", "scalar() ;", "unexpected character"},
		{"bare number", "42", "expected annotation item"},
		{"lone sign", "scalar(range(-, 1))", "malformed number"},
		{"bad backtracking", "backtracking(maybe) scalar()", "expected true, false or a depth"},
		{"struct missing bracket", "struct[scalar()", "expected ',' or ']'"},
		{"struct unknown field", "struct[float]", `unknown field metadata "float"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Parse(tt.input)
			require.Error(t, err)
			assert.Nil(t, d)
			assert.ErrorIs(t, err, ErrSyntax)
			var synErr *SyntaxError
			require.ErrorAs(t, err, &synErr)
			assert.Contains(t, synErr.Msg, tt.msg)
		})
	}
}

func TestParseErrorOffset(t *testing.T) {
	_, err := Parse("scalar() bogus")
	var synErr *SyntaxError
	require.ErrorAs(t, err, &synErr)
	assert.Equal(t, 9, synErr.Offset)
	assert.Contains(t, err.Error(), "at offset 9")
}

func TestParseRejectsDeepNesting(t *testing.T) {
	in := strings.Repeat("struct[", 100) + "void" + strings.Repeat("]", 100)
	_, err := Parse(in)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nested too deeply")
}

func TestParseHostileInputDoesNotPanic(t *testing.T) {
	inputs := []string{
		"\x00\x00",
		"((((((((",
		"scalar(" + strings.Repeat("range(", 50),
		"target(\\",
		"target('\\",
		"scalar(range(1e999, 1e999))",
		"struct[,]",
		"\xff\xfe",
	}
	for _, in := range inputs {
		assert.NotPanics(t, func() {
			_, err := Parse(in)
			assert.Error(t, err)
		}, "input %q", in)
	}
}

func TestDirectiveStringRoundTrip(t *testing.T) {
	inputs := []string{
		"scalar()",
		"target('x') backtracking scalar(range(-1, 1) type(signed 16 8) error(0.5) disabled final)",
		"struct[scalar(range(0, 255)), void]",
		`target('a\\b') scalar()`,
		`target('it\'s') scalar()`,
		`target('\\\'') scalar()`,
	}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			d, err := Parse(in)
			require.NoError(t, err)
			assert.Equal(t, in, d.String())

			again, err := Parse(d.String())
			require.NoError(t, err)
			assert.Equal(t, d, again)
		})
	}
}
