package config

import (
	"fmt"
	"runtime"

	"github.com/urfave/cli/v3"
)

// LoadConfig loads configuration with priority: CLI flags > Config file > Defaults
func LoadConfig(cmd *cli.Command) (*Config, error) {
	return Load(cmd.String(FlagConfig), func(cfg *Config) {
		cfg.MergeFromFlags(cmd)
	})
}

// Load reads the config file at path, or the first one found in the
// standard locations when path is empty, applies overrides and validates
// the result.
func Load(path string, overrides func(*Config)) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = FindConfigFile()
	}
	if path != "" {
		fileCfg, err := LoadConfigFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
		cfg = fileCfg
	}

	if overrides != nil {
		overrides(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Auto-detect workers if set to 0
	if cfg.Probe.Workers == 0 {
		cfg.Probe.Workers = runtime.NumCPU()
	}
	return cfg, nil
}
