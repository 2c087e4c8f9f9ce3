package config

import (
	"fmt"
	"strings"

	"go.uber.org/multierr"
)

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs error

	// Format: 0 selects the default precision
	if d := c.Format.Decimals; d != 0 && (d < 2 || d > 3) {
		errs = multierr.Append(errs, fmt.Errorf("format: decimals must be 2 or 3, got %d", d))
	}

	if err := c.Enforcement.Validate(); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("enforcement config: %w", err))
	}

	if strings.TrimSpace(c.Vault.Root) == "" {
		errs = multierr.Append(errs, fmt.Errorf("vault root is required"))
	}
	for _, ext := range c.Vault.Extensions {
		if strings.TrimSpace(strings.TrimPrefix(ext, ".")) == "" {
			errs = multierr.Append(errs, fmt.Errorf("vault: empty media extension"))
			break
		}
	}

	if c.Probe.Binary == "" {
		errs = multierr.Append(errs, fmt.Errorf("probe binary is required"))
	}
	if c.Probe.Timeout < 0 {
		errs = multierr.Append(errs, fmt.Errorf("probe timeout cannot be negative (use 0 for no limit)"))
	}
	if c.Probe.Workers < 0 {
		errs = multierr.Append(errs, fmt.Errorf("probe workers cannot be negative (use 0 for auto-detect)"))
	}

	if err := c.Logging.Validate(); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("logging config: %w", err))
	}

	if errs == nil {
		return nil
	}
	var lines []string
	for _, err := range multierr.Errors(errs) {
		lines = append(lines, err.Error())
	}
	return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(lines, "\n  - "))
}

// Validate checks if enforcement configuration is valid
func (ec *EnforcementConfig) Validate() error {
	var errs []string

	if ec.Tolerance < 0 || ec.Tolerance > 1 {
		errs = append(errs, "tolerance must be between 0 and 1 second")
	}
	if ec.SettleWindow <= 0 {
		errs = append(errs, "settle window must be positive")
	}
	if ec.ResetWindow <= 0 {
		errs = append(errs, "reset window must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, ", "))
	}
	return nil
}

// Validate checks if logging configuration is valid
func (lc *LoggingConfig) Validate() error {
	var errs []string

	if !IsValidLogLevel(lc.Console.Level) {
		errs = append(errs, fmt.Sprintf("invalid console level '%s', must be one of: %s",
			lc.Console.Level, strings.Join(LogLevelValues(), ", ")))
	}
	if !IsValidLogLevel(lc.File.Level) {
		errs = append(errs, fmt.Sprintf("invalid file level '%s', must be one of: %s",
			lc.File.Level, strings.Join(LogLevelValues(), ", ")))
	} else if lc.File.Level != "none" && lc.File.Destination == "" {
		errs = append(errs, "file destination is required when file logging is enabled")
	}
	if lc.File.Mode != "" && lc.File.Mode != "append" && lc.File.Mode != "overwrite" {
		errs = append(errs, fmt.Sprintf("invalid file mode '%s', must be append or overwrite", lc.File.Mode))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, ", "))
	}
	return nil
}
