package config

import (
	"time"

	"mediafrag/enforcement"
	"mediafrag/grammar"
)

// Config holds all mediafrag configuration options
type Config struct {
	// Rendering of positions written back into links
	Format grammar.FormatOptions `yaml:"format"`

	// Playback restriction settings
	Enforcement EnforcementConfig `yaml:"enforcement"`

	// Document tree settings
	Vault VaultConfig `yaml:"vault"`

	// Media probing settings
	Probe ProbeConfig `yaml:"probe"`

	Logging LoggingConfig `yaml:"logging"`
}

// EnforcementConfig holds playback restriction settings
type EnforcementConfig struct {
	Tolerance    float64       `yaml:"tolerance"`     // seconds, absorbs keyframe-seek imprecision
	SettleWindow time.Duration `yaml:"settle_window"` // e.g., "100ms"
	ResetWindow  time.Duration `yaml:"reset_window"`  // e.g., "500ms"
}

// VaultConfig holds document tree settings
type VaultConfig struct {
	Root       string   `yaml:"root"`       // directory holding documents and media
	Extensions []string `yaml:"extensions"` // extra media extensions, e.g., "ogv"
	Sniff      bool     `yaml:"sniff"`      // recognise media without a known extension by header
}

// ProbeConfig holds ffprobe settings
type ProbeConfig struct {
	Binary  string        `yaml:"binary"`  // ffprobe executable
	Timeout time.Duration `yaml:"timeout"` // per file, 0 = no limit
	Workers int           `yaml:"workers"` // concurrent probes, 0 = auto-detect
}

// DefaultConfig returns configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Format: grammar.DefaultFormatOptions(),

		Enforcement: EnforcementConfig{
			Tolerance:    enforcement.DefaultTolerance,
			SettleWindow: 100 * time.Millisecond,
			ResetWindow:  500 * time.Millisecond,
		},

		Vault: VaultConfig{
			Root:       ".",
			Extensions: []string{"ogv"},
			Sniff:      false,
		},

		Probe: ProbeConfig{
			Binary:  "ffprobe",
			Timeout: 30 * time.Second,
			Workers: 0,
		},

		Logging: LoggingConfig{
			Console: LoggerConfig{Level: "normal"},
			File:    LoggerConfig{Level: "none", Mode: "append"},
		},
	}
}

// Copy creates a deep copy of the config
func (c *Config) Copy() *Config {
	dup := *c
	dup.Vault.Extensions = append([]string(nil), c.Vault.Extensions...)
	return &dup
}

// Options converts the enforcement settings for use by machines. The
// scheduler is left for the caller to provide.
func (e EnforcementConfig) Options() enforcement.Options {
	opts := enforcement.DefaultOptions()
	opts.Tolerance = e.Tolerance
	opts.SettleWindow = e.SettleWindow
	opts.ResetWindow = e.ResetWindow
	return opts
}

// LogLevelValues returns valid logging level values
func LogLevelValues() []string {
	return []string{"none", "normal", "debug"}
}

// IsValidLogLevel checks if level is valid
func IsValidLogLevel(level string) bool {
	for _, valid := range LogLevelValues() {
		if level == valid {
			return true
		}
	}
	return false
}
