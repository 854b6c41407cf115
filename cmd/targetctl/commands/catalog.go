package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/hopekit/targeting/internal/cli"
)

var catalogDomain string

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect the server's field catalog",
}

// catalogField is the part of a catalog entry the table shows.
type catalogField struct {
	Name   string `json:"name"`
	Label  string `json:"label"`
	Type   string `json:"type"`
	Editor struct {
		Kind        string `json:"kind"`
		RoundsCount int    `json:"roundsCount"`
	} `json:"editor"`
}

var catalogFieldsCmd = &cobra.Command{
	Use:   "fields",
	Short: "List filterable fields",
	Long: `List the fields criteria can filter on, with the editor each one uses.

Examples:
  targetctl catalog fields
  targetctl catalog fields --domain individual --format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		fields, err := c.ListFields(context.Background(), catalogDomain)
		if err != nil {
			return fmt.Errorf("failed to list fields: %w", err)
		}

		out := cmd.OutOrStdout()
		if cli.OutputFormat(format) != cli.FormatTable {
			return printStructured(out, fields, cli.OutputFormat(format))
		}

		domains := make([]string, 0, len(fields.Fields))
		for d := range fields.Fields {
			domains = append(domains, d)
		}
		sort.Strings(domains)

		table := tablewriter.NewWriter(out)
		table.Header("Domain", "Field", "Type", "Editor", "Label")
		for _, d := range domains {
			for _, raw := range fields.Fields[d] {
				var f catalogField
				if err := json.Unmarshal(raw, &f); err != nil {
					return fmt.Errorf("failed to decode field: %w", err)
				}
				editor := f.Editor.Kind
				if f.Editor.RoundsCount > 0 {
					editor = fmt.Sprintf("%s (%d rounds)", editor, f.Editor.RoundsCount)
				}
				if err := table.Append(d, f.Name, f.Type, editor, f.Label); err != nil {
					return err
				}
			}
		}
		return table.Render()
	},
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.AddCommand(catalogFieldsCmd)

	catalogFieldsCmd.Flags().StringVar(&catalogDomain, "domain", "", "Only list one domain (household, individual, collector)")
}
