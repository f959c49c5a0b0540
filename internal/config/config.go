// Package config provides the ambient CLI configuration for cnpip,
// loaded from a YAML file the way the host's other settings are.
package config

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/comfy-org/cnpip/pkg/pipmgr"
)

// Config represents the cnpip.yaml configuration file.
type Config struct {
	// Manager pins the package-manager backend ("pip" or "uv"). Empty
	// means auto-detect, preferring uv.
	Manager string `yaml:"manager"`

	BasePolicyPath string `yaml:"base_policy_path"`
	UserPolicyPath string `yaml:"user_policy_path"`

	DefaultExtraIndexURL string `yaml:"default_extra_index_url"`

	LogLevel string `yaml:"log_level"`
}

// DefaultConfig returns cnpip's default configuration.
func DefaultConfig() *Config {
	return &Config{
		Manager:        "",
		BasePolicyPath: "/etc/cnpip/policy.json",
		UserPolicyPath: "~/.cnpip/policy.json",
		LogLevel:       "info",
	}
}

// LoadConfig reads a cnpip configuration from a YAML file, falling back
// to defaults for any field the file doesn't set. A missing file is not
// an error: DefaultConfig is returned unmodified.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read cnpip config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse cnpip config: %w", err)
	}

	return cfg, nil
}

// Backend resolves the configured manager preference into a
// pipmgr.Backend, for callers that want to pin rather than auto-detect.
func (c *Config) Backend() (pipmgr.Backend, bool) {
	switch c.Manager {
	case string(pipmgr.BackendPip):
		return pipmgr.BackendPip, true
	case string(pipmgr.BackendUV):
		return pipmgr.BackendUV, true
	default:
		return "", false
	}
}

// SlogLevel parses LogLevel into a slog.Level, defaulting to Info for an
// empty or unrecognized value.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
