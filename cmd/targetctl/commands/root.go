package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hopekit/targeting/internal/cli"
	"github.com/hopekit/targeting/internal/client"
)

var (
	// Global flags
	baseURL string
	apiKey  string
	profile string
	format  string
	quiet   bool
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "targetctl",
	Short: "CLI tool for managing targeting criteria",
	Long: `targetctl is a command-line tool for the targeting criteria service.

It validates and compiles criteria files against the server's field catalog
and manages the saved targetings of a programme.

Examples:
  targetctl catalog fields --domain household
  targetctl validate criteria.yaml
  targetctl compile criteria.yaml
  targetctl list --programme prog-1
  targetctl push targetings.yaml
  targetctl export --programme prog-1 --output targetings.yaml`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "Base URL of the targeting API")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "API key for authentication")
	rootCmd.PersistentFlags().StringVar(&profile, "profile", "", "Config profile to use")
	rootCmd.PersistentFlags().StringVar(&format, "format", "table", "Output format (table, json, yaml)")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "Suppress output")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Verbose output")
}

// newClient resolves the active profile and builds an API client for it.
func newClient() (*client.Client, error) {
	p, _, err := cli.ResolveProfile(profile, baseURL, apiKey)
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return client.NewClient(p.BaseURL, p.APIKey), nil
}
