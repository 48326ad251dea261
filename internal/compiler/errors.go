package compiler

import (
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// CompileError is a lowering failure. Field is the CUE path of the
// offending value ("cue" for errors reported by CUE itself).
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	msg := e.Field + ": " + e.Message
	if !e.Pos.IsValid() {
		return msg
	}
	return e.Pos.String() + ": " + msg
}

// formatCUEError turns the first of possibly many CUE errors into a
// CompileError when it carries a position. Other errors pass through.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}
	list := errors.Errors(err)
	if len(list) == 0 {
		return err
	}
	pos := errors.Positions(list[0])
	if len(pos) == 0 {
		return err
	}
	return &CompileError{Field: "cue", Message: list[0].Error(), Pos: pos[0]}
}
