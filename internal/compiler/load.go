package compiler

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/taffo/internal/ir"
)

// CompileSource compiles one CUE document. filename is used for
// positions and as the default source file of the module.
func CompileSource(filename string, src []byte) (*ir.Module, error) {
	v := cuecontext.New().CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return CompileModule(v)
}

// LoadFile reads and compiles a single .cue file.
func LoadFile(path string) (*ir.Module, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading module: %w", err)
	}
	return CompileSource(path, src)
}
