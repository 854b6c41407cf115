package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/hopekit/targeting/internal/cli"
)

var (
	listProgramme   string
	pushDryRun      bool
	pushForce       bool
	deleteForce     bool
	exportProgramme string
	exportOutput    string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved targetings",
	Long: `List saved targetings, optionally for one programme.

Examples:
  targetctl list
  targetctl list --programme prog-1 --format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		items, err := c.ListTargetings(context.Background(), listProgramme)
		if err != nil {
			return fmt.Errorf("failed to list targetings: %w", err)
		}

		if quiet {
			return nil
		}
		if len(items) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No targetings found")
			return nil
		}
		return cli.PrintTargetings(cmd.OutOrStdout(), items, cli.OutputFormat(format))
	},
}

var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one targeting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		t, err := c.GetTargeting(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("failed to get targeting: %w", err)
		}
		return cli.PrintTargeting(cmd.OutOrStdout(), t, cli.OutputFormat(format))
	},
}

var pushCmd = &cobra.Command{
	Use:   "push <file>",
	Short: "Create or update targetings from a file",
	Long: `Save every targeting in a YAML or JSON file. Entries with an id replace
the saved targeting; entries without one are created.

Examples:
  targetctl push targetings.yaml
  targetctl push targetings.yaml --dry-run
  targetctl push targetings.yaml --force`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := cli.ReadTargetingFile(args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		if verbose {
			fmt.Fprintf(out, "Found %d targeting(s) to push\n", len(f.Targetings))
		}

		if pushDryRun {
			fmt.Fprintln(out, "Dry run mode - the following targetings would be pushed:")
			for _, t := range f.Targetings {
				id := t.ID
				if id == "" {
					id = "(new)"
				}
				fmt.Fprintf(out, "  - %s %s (programme: %s, criteria: %d)\n", id, t.Name, t.ProgrammeID, len(t.Definition.Criteria))
			}
			return nil
		}

		c, err := newClient()
		if err != nil {
			return err
		}
		ctx := context.Background()

		successCount, errorCount := 0, 0
		for _, t := range f.Targetings {
			if verbose {
				fmt.Fprintf(out, "Pushing targeting: %s\n", t.Name)
			}
			saved, err := c.PushTargeting(ctx, t.UpsertParams())
			if err != nil {
				errorCount++
				fmt.Fprintf(cmd.ErrOrStderr(), "Failed to push targeting '%s': %v\n", t.Name, err)
				if !pushForce {
					return fmt.Errorf("push failed, use --force to continue on errors")
				}
				continue
			}
			successCount++
			if verbose {
				fmt.Fprintf(out, "  saved as %s (fingerprint %s)\n", saved.ID, saved.Fingerprint)
			}
		}

		if !quiet {
			fmt.Fprintf(out, "Push complete: %d succeeded, %d failed\n", successCount, errorCount)
		}
		if errorCount > 0 {
			return fmt.Errorf("push completed with errors")
		}
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a saved targeting",
	Long: `Delete a saved targeting.

Examples:
  targetctl delete 5f0c...
  targetctl delete 5f0c... --force`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		c, err := newClient()
		if err != nil {
			return err
		}

		if !deleteForce && !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "Are you sure you want to delete targeting '%s'? (y/N): ", id)
			reader := bufio.NewReader(cmd.InOrStdin())
			response, err := reader.ReadString('\n')
			if err != nil {
				return fmt.Errorf("failed to read confirmation: %w", err)
			}
			response = strings.ToLower(strings.TrimSpace(response))
			if response != "y" && response != "yes" {
				fmt.Fprintln(cmd.OutOrStdout(), "Deletion cancelled")
				return nil
			}
		}

		if err := c.DeleteTargeting(context.Background(), id); err != nil {
			return fmt.Errorf("failed to delete targeting: %w", err)
		}
		if !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "Successfully deleted targeting '%s'\n", id)
		}
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export saved targetings to a file",
	Long: `Export saved targetings in the format push reads.

Examples:
  targetctl export --programme prog-1 --output targetings.yaml
  targetctl export --format json > backup.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		items, err := c.ListTargetings(context.Background(), exportProgramme)
		if err != nil {
			return fmt.Errorf("failed to list targetings: %w", err)
		}
		doc := cli.TargetingFile{Targetings: cli.ToFileTargetings(items)}

		output := cmd.OutOrStdout()
		if exportOutput != "" && exportOutput != "-" {
			file, err := os.Create(exportOutput)
			if err != nil {
				return fmt.Errorf("failed to create output file: %w", err)
			}
			defer file.Close()
			output = file
		}

		switch format {
		case "json":
			if err := printStructured(output, doc, cli.FormatJSON); err != nil {
				return fmt.Errorf("failed to encode JSON: %w", err)
			}
		case "yaml", "table":
			encoder := yaml.NewEncoder(output)
			encoder.SetIndent(2)
			if err := encoder.Encode(doc); err != nil {
				return fmt.Errorf("failed to encode YAML: %w", err)
			}
			if err := encoder.Close(); err != nil {
				return fmt.Errorf("failed to encode YAML: %w", err)
			}
		default:
			return fmt.Errorf("unsupported export format: %s", format)
		}

		if exportOutput != "" && exportOutput != "-" && !quiet {
			fmt.Fprintf(cmd.ErrOrStderr(), "Successfully exported %d targeting(s) to %s\n", len(items), exportOutput)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(pushCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(exportCmd)

	listCmd.Flags().StringVar(&listProgramme, "programme", "", "Only list one programme's targetings")
	pushCmd.Flags().BoolVar(&pushDryRun, "dry-run", false, "Show what would be pushed without saving")
	pushCmd.Flags().BoolVar(&pushForce, "force", false, "Continue on errors")
	deleteCmd.Flags().BoolVar(&deleteForce, "force", false, "Skip confirmation prompt")
	exportCmd.Flags().StringVar(&exportProgramme, "programme", "", "Only export one programme's targetings")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (default: stdout)")
}
