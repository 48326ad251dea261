package initializer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/taffo/internal/ir"
)

// ErrBadAnnotation reports an annotation operand that does not resolve to
// a constant string.
var ErrBadAnnotation = errors.New("malformed annotation")

// maxPeel bounds the cast/gep chain followed when decoding a string.
const maxPeel = 16

// annotationString decodes the string behind v: a chain of getelementptr
// and cast expressions ending at a global initialized with an i8 array.
// Trailing NULs are dropped.
func annotationString(v ir.Value) (string, error) {
	for range maxPeel {
		switch x := v.(type) {
		case *ir.ConstantExpr:
			if x.Opcode != ir.OpGetElementPtr && x.Opcode != ir.OpBitCast && x.Opcode != ir.OpAddrSpaceCast {
				return "", fmt.Errorf("%w: unexpected %s expression", ErrBadAnnotation, x.Opcode)
			}
			v = x.Operand(0)
		case *ir.Cast:
			if x.Op != ir.CastBitCast && x.Op != ir.CastAddrSpaceCast {
				return "", fmt.Errorf("%w: unexpected %s instruction", ErrBadAnnotation, x.Op)
			}
			v = x.From
		case *ir.GlobalVariable:
			data, ok := x.Init.(*ir.ConstantDataArray)
			if !ok || !data.IsString() {
				return "", fmt.Errorf("%w: %s is not a string constant", ErrBadAnnotation, x.Ident())
			}
			return strings.TrimRight(data.AsString(), "\x00"), nil
		case nil:
			return "", fmt.Errorf("%w: missing operand", ErrBadAnnotation)
		default:
			return "", fmt.Errorf("%w: unexpected operand %s", ErrBadAnnotation, v.Ident())
		}
	}
	return "", fmt.Errorf("%w: constant chain too deep", ErrBadAnnotation)
}
