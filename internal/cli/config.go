package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Environment variables read by ResolveProfile and GetConfigPath.
const (
	EnvConfigPath = "TARGETCTL_CONFIG"
	EnvBaseURL    = "TARGETCTL_BASE_URL"
	EnvAPIKey     = "TARGETCTL_API_KEY"
)

// Defaults written by InitConfig.
const (
	DefaultProfileName = "local"
	DefaultBaseURL     = "http://localhost:8080"
)

// ErrProfileNotFound is returned when the selected profile is not in the
// config file and no base URL was given some other way.
var ErrProfileNotFound = errors.New("profile not found")

// Config is the targetctl configuration file.
type Config struct {
	DefaultProfile string             `yaml:"default_profile"`
	Profiles       map[string]Profile `yaml:"profiles"`
}

// Profile is one targeting server the CLI can talk to.
type Profile struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
}

// GetConfigPath returns the config file location: TARGETCTL_CONFIG, or
// ~/.targetctl/config.yaml.
func GetConfigPath() (string, error) {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locate home directory: %w", err)
	}
	return filepath.Join(home, ".targetctl", "config.yaml"), nil
}

// LoadConfig reads the config file. A missing file yields an empty config
// whose default profile is "local".
func LoadConfig() (*Config, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	cfg := &Config{DefaultProfile: DefaultProfileName}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if cfg.Profiles == nil {
		cfg.Profiles = make(map[string]Profile)
	}
	return cfg, nil
}

// SaveConfig writes cfg with owner-only permissions; profiles hold API keys.
func SaveConfig(cfg *Config) error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// ResolveProfile returns the connection settings to use and the effective
// profile name. Each setting is taken from the flag, then the environment,
// then the named profile.
func ResolveProfile(name, baseURLFlag, apiKeyFlag string) (*Profile, string, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, "", err
	}
	if name == "" {
		name = cfg.DefaultProfile
	}

	stored, found := cfg.Profiles[name]
	p := Profile{
		BaseURL: firstNonEmpty(baseURLFlag, os.Getenv(EnvBaseURL), stored.BaseURL),
		APIKey:  firstNonEmpty(apiKeyFlag, os.Getenv(EnvAPIKey), stored.APIKey),
	}
	if p.BaseURL == "" {
		if !found {
			return nil, "", fmt.Errorf("%w: %q", ErrProfileNotFound, name)
		}
		return nil, "", fmt.Errorf("profile %q has no base_url", name)
	}
	return &p, name, nil
}

// InitConfig writes a config file with a single local profile using apiKey.
func InitConfig(apiKey string) error {
	return SaveConfig(&Config{
		DefaultProfile: DefaultProfileName,
		Profiles: map[string]Profile{
			DefaultProfileName: {BaseURL: DefaultBaseURL, APIKey: apiKey},
		},
	})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
