package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/taffo/internal/compiler"
	"github.com/roach88/taffo/internal/ir"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid     bool                       `json:"valid"`
	Module    string                     `json:"module,omitempty"`
	Globals   int                        `json:"globals"`
	Functions int                        `json:"functions"`
	Errors    []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <module>",
		Short: "Validate a module description without scanning",
		Long: `Compile a CUE module description and check its structure without
scanning for annotations.

Reports duplicate symbols, operands from other modules, call arity
mismatches, non-pointer memory operands, return type mismatches and
badly terminated blocks.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	m, errs, err := loadValidated(path)
	if err != nil {
		return outputLoadError(formatter, err)
	}
	formatter.VerboseLog("Compiled module %s: %d global(s), %d function(s)", m.Name, len(m.Globals), len(m.Functions))

	result := ValidationResult{
		Valid:     len(errs) == 0,
		Module:    m.Name,
		Globals:   len(m.Globals),
		Functions: len(m.Functions),
		Errors:    errs,
	}
	if len(errs) > 0 {
		return outputValidationErrors(formatter, result)
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ Module %s valid\n", m.Name)
	return nil
}

// loadValidated loads the module at path and validates it. A non-nil
// error means the module could not be loaded at all.
func loadValidated(path string) (*ir.Module, []compiler.ValidationError, error) {
	m, err := LoadModule(path)
	if err != nil {
		return nil, nil, err
	}
	return m, compiler.Validate(m), nil
}

// outputValidationErrors reports every validation error and fails with
// ExitFailure.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	errs := result.Errors
	failed := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))

	if formatter.Format == "json" {
		if err := formatter.Respond(CLIResponse{
			Status: "error",
			Data:   result,
			Error:  &CLIError{Code: errs[0].Code, Message: errs[0].Message},
		}); err != nil {
			return err
		}
		return failed
	}

	w := formatter.Writer
	fmt.Fprint(w, "✗ Validation failed\n\n")
	for _, e := range errs {
		fmt.Fprintf(w, "  %s: %s: %s\n", e.Code, e.Field, e.Message)
	}
	fmt.Fprintln(w)
	return failed
}
