package cli

import (
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/spf13/cobra"

	"github.com/roach88/taffo/internal/report"
)

// NewSchemaCommand creates the schema command.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema of scan reports",
		Long: `Print the JSON Schema describing the report written by
"taffo scan --output" and returned by "taffo scan --format json".`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchema(rootOpts, cmd)
		},
	}

	return cmd
}

// ReportSchema infers the JSON Schema of report.Report.
func ReportSchema() (*jsonschema.Schema, error) {
	schema, err := jsonschema.For[report.Report](nil)
	if err != nil {
		return nil, fmt.Errorf("inferring report schema: %w", err)
	}
	schema.Title = "taffo scan report"
	return schema, nil
}

func runSchema(opts *RootOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	schema, err := ReportSchema()
	if err != nil {
		return outputCommandError(formatter, ErrCodeGeneric, err.Error())
	}
	if formatter.Format == "json" {
		return formatter.Success(schema)
	}

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return outputCommandError(formatter, ErrCodeGeneric, fmt.Sprintf("marshaling schema: %v", err))
	}
	fmt.Fprintln(formatter.Writer, string(data))
	return nil
}
