package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/hopekit/targeting/internal/cli"
)

var validatePaymentOpen bool

// errInvalidCriteria makes validate exit non-zero after printing the report.
var errInvalidCriteria = errors.New("criteria are invalid")

var validateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Validate a criteria file",
	Long: `Validate the criteria in a YAML or JSON file against the server's catalog
and print every problem found.

Examples:
  targetctl validate criteria.yaml
  targetctl validate criteria.yaml --payment-open --format json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		def, err := cli.ReadDefinitionFile(args[0])
		if err != nil {
			return err
		}
		c, err := newClient()
		if err != nil {
			return err
		}

		var open *bool
		if cmd.Flags().Changed("payment-open") {
			open = &validatePaymentOpen
		}
		report, err := c.ValidateCriteria(context.Background(), def, open)
		if err != nil {
			return fmt.Errorf("failed to validate criteria: %w", err)
		}

		if !quiet {
			out := cli.ValidationOutput{Valid: report.Valid, Errors: report.Errors, IDLists: report.IDLists}
			if err := cli.PrintValidation(cmd.OutOrStdout(), out, cli.OutputFormat(format)); err != nil {
				return err
			}
		}
		if !report.Valid {
			return errInvalidCriteria
		}
		return nil
	},
}

var compileCmd = &cobra.Command{
	Use:   "compile <file>",
	Short: "Compile a criteria file to JSON Logic",
	Long: `Print the JSON Logic expression of the criteria in a file. With
--format yaml or json the canonical definition is printed alongside.

Example:
  targetctl compile criteria.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		def, err := cli.ReadDefinitionFile(args[0])
		if err != nil {
			return err
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		compiled, err := c.CompileCriteria(context.Background(), def)
		if err != nil {
			return fmt.Errorf("failed to compile criteria: %w", err)
		}

		out := cmd.OutOrStdout()
		if cli.OutputFormat(format) == cli.FormatTable {
			var expr any
			if err := json.Unmarshal(compiled.Expression, &expr); err != nil {
				return fmt.Errorf("failed to decode expression: %w", err)
			}
			return printStructured(out, expr, cli.FormatJSON)
		}
		return printStructured(out, compiled, cli.OutputFormat(format))
	},
}

// printStructured writes v as indented JSON or YAML.
func printStructured(w io.Writer, v any, f cli.OutputFormat) error {
	switch f {
	case cli.FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case cli.FormatYAML:
		// round-trip through JSON so RawMessage fields print as data
		blob, err := json.Marshal(v)
		if err != nil {
			return err
		}
		var generic any
		if err := json.Unmarshal(blob, &generic); err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		enc.SetIndent(2)
		return enc.Encode(generic)
	default:
		return fmt.Errorf("unsupported format: %s", f)
	}
}

func init() {
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(compileCmd)

	validateCmd.Flags().BoolVar(&validatePaymentOpen, "payment-open", false, "Require a delivery mechanism and FSP on the first criterion")
}
