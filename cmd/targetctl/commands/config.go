package commands

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hopekit/targeting/internal/auth"
	"github.com/hopekit/targeting/internal/cli"
	"github.com/hopekit/targeting/internal/webhook"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `Manage the targetctl configuration file.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration file",
	Long: `Create a configuration file with a "local" profile and a freshly
generated admin API key. The matching API_KEY_HASHES entry for the server is
printed once.

Example:
  targetctl config init`,
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := auth.GenerateAPIKey()
		if err != nil {
			return fmt.Errorf("failed to generate API key: %w", err)
		}
		hash, err := auth.HashAPIKey(key)
		if err != nil {
			return fmt.Errorf("failed to hash API key: %w", err)
		}
		if err := cli.InitConfig(key); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		out := cmd.OutOrStdout()
		configPath, _ := cli.GetConfigPath()
		fmt.Fprintf(out, "Configuration file created at: %s\n", configPath)
		fmt.Fprintln(out, "\nAdd this entry to the server's API_KEY_HASHES:")
		fmt.Fprintf(out, "  %s:%s\n", auth.RoleAdmin, hash)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all configuration",
	Long: `Display the current configuration.

Example:
  targetctl config list`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := cli.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Default Profile: %s\n\n", cfg.DefaultProfile)
		fmt.Fprintln(out, "Profiles:")

		names := make([]string, 0, len(cfg.Profiles))
		for name := range cfg.Profiles {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			p := cfg.Profiles[name]
			fmt.Fprintf(out, "  %s:\n", name)
			fmt.Fprintf(out, "    base_url: %s\n", p.BaseURL)
			fmt.Fprintf(out, "    api_key: %s\n", maskKey(p.APIKey))
		}

		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <profile.key>",
	Short: "Get a configuration value",
	Long: `Get a specific configuration value.

Examples:
  targetctl config get local.base_url
  targetctl config get local.api_key`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := cli.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		name, key, err := splitConfigKey(args[0])
		if err != nil {
			return err
		}
		p, ok := cfg.Profiles[name]
		if !ok {
			return fmt.Errorf("%w: %q", cli.ErrProfileNotFound, name)
		}

		field, err := profileField(&p, key)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), *field)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <profile.key> <value>",
	Short: "Set a configuration value",
	Long: `Set a specific configuration value. Unknown profiles are created.

Examples:
  targetctl config set staging.base_url https://targeting.staging.example.org
  targetctl config set staging.api_key tgk_...`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := cli.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		name, key, err := splitConfigKey(args[0])
		if err != nil {
			return err
		}
		p := cfg.Profiles[name]
		field, err := profileField(&p, key)
		if err != nil {
			return err
		}
		*field = args[1]
		cfg.Profiles[name] = p

		if err := cli.SaveConfig(cfg); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}

		if !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "Successfully set %s.%s\n", name, key)
		}
		return nil
	},
}

var keygenRole string

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate server credentials",
	Long: `Generate an API key, the API_KEY_HASHES entry granting it --role, and a
webhook signing secret.

Examples:
  targetctl config keygen
  targetctl config keygen --role readonly`,
	RunE: func(cmd *cobra.Command, args []string) error {
		role := auth.Role(keygenRole)
		if !role.Valid() {
			return fmt.Errorf("unknown role %q, valid roles: %s, %s", keygenRole, auth.RoleReadonly, auth.RoleAdmin)
		}
		key, err := auth.GenerateAPIKey()
		if err != nil {
			return err
		}
		hash, err := auth.HashAPIKey(key)
		if err != nil {
			return err
		}
		secret, err := webhook.GenerateSecret()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "api_key:        %s\n", key)
		fmt.Fprintf(out, "api_key_hash:   %s:%s\n", role, hash)
		fmt.Fprintf(out, "webhook_secret: %s\n", secret)
		return nil
	},
}

func splitConfigKey(s string) (string, string, error) {
	name, key, ok := strings.Cut(s, ".")
	if !ok || name == "" || key == "" {
		return "", "", fmt.Errorf("invalid key format, expected 'profile.key' (e.g., 'local.base_url')")
	}
	return name, key, nil
}

// profileField maps a config key to the Profile field it names.
func profileField(p *cli.Profile, key string) (*string, error) {
	switch key {
	case "base_url":
		return &p.BaseURL, nil
	case "api_key":
		return &p.APIKey, nil
	}
	return nil, fmt.Errorf("unknown key %q, valid keys: base_url, api_key", key)
}

func maskKey(key string) string {
	if len(key) > 8 {
		return key[:8] + "***"
	}
	return "***"
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(keygenCmd)

	keygenCmd.Flags().StringVar(&keygenRole, "role", string(auth.RoleAdmin), "role granted by the generated key (readonly or admin)")
}
