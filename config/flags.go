package config

import (
	"fmt"
	"io"

	"github.com/urfave/cli/v3"
)

// Flag names shared by the command line and MergeFromFlags.
const (
	FlagConfig      = "config"
	FlagDebug       = "debug"
	FlagVault       = "vault"
	FlagSniff       = "sniff"
	FlagFFprobe     = "ffprobe"
	FlagTolerance   = "tolerance"
	FlagRawSeconds  = "raw-seconds"
	FlagDecimals    = "decimals"
	FlagTrimMinutes = "trim-minutes"
)

// Flags returns the global flags that override configuration values.
func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: FlagConfig, Aliases: []string{"c"}, Usage: "load configuration from `FILE` (default: search standard locations)"},
		&cli.BoolFlag{Name: FlagDebug, Aliases: []string{"d"}, Usage: "log debug messages to the console"},
		&cli.StringFlag{Name: FlagVault, Usage: "document tree root `DIR`"},
		&cli.BoolFlag{Name: FlagSniff, Usage: "recognise media files by content when the extension is unknown"},
		&cli.StringFlag{Name: FlagFFprobe, Usage: "ffprobe executable `PATH`"},
		&cli.FloatFlag{Name: FlagTolerance, Usage: "boundary tolerance in `SECONDS`"},
		&cli.BoolFlag{Name: FlagRawSeconds, Usage: "write positions as plain seconds"},
		&cli.IntFlag{Name: FlagDecimals, Usage: "fractional digits written for positions (2 or 3)"},
		&cli.BoolFlag{Name: FlagTrimMinutes, Usage: "drop a zero minutes component when writing positions"},
	}
}

// MergeFromFlags overrides config values with the flags explicitly set on
// the command line.
func (c *Config) MergeFromFlags(cmd *cli.Command) {
	if cmd.IsSet(FlagDebug) && cmd.Bool(FlagDebug) {
		c.Logging.Console.Level = "debug"
	}
	if cmd.IsSet(FlagVault) {
		c.Vault.Root = cmd.String(FlagVault)
	}
	if cmd.IsSet(FlagSniff) {
		c.Vault.Sniff = cmd.Bool(FlagSniff)
	}
	if cmd.IsSet(FlagFFprobe) {
		c.Probe.Binary = cmd.String(FlagFFprobe)
	}
	if cmd.IsSet(FlagTolerance) {
		c.Enforcement.Tolerance = cmd.Float(FlagTolerance)
	}
	if cmd.IsSet(FlagRawSeconds) {
		c.Format.RawSeconds = cmd.Bool(FlagRawSeconds)
	}
	if cmd.IsSet(FlagDecimals) {
		c.Format.Decimals = int(cmd.Int(FlagDecimals))
	}
	if cmd.IsSet(FlagTrimMinutes) {
		c.Format.TrimMinutes = cmd.Bool(FlagTrimMinutes)
	}
}

// PrintConfig writes a human readable summary of the configuration.
func (c *Config) PrintConfig(w io.Writer) {
	fmt.Fprintln(w, "Configuration:")
	fmt.Fprintf(w, "  Vault:        %s\n", c.Vault.Root)
	fmt.Fprintf(w, "  Extensions:   %v (sniff: %v)\n", c.Vault.Extensions, c.Vault.Sniff)
	fmt.Fprintf(w, "  ffprobe:      %s (timeout: %v, workers: %d)\n", c.Probe.Binary, c.Probe.Timeout, c.Probe.Workers)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Format:")
	fmt.Fprintf(w, "  Raw seconds:  %v\n", c.Format.RawSeconds)
	fmt.Fprintf(w, "  Trim:         hours=%v minutes=%v leading-zeros=%v\n", c.Format.TrimHours, c.Format.TrimMinutes, c.Format.TrimLeadingZeros)
	fmt.Fprintf(w, "  Decimals:     %d\n", c.Format.Decimals)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Enforcement:")
	fmt.Fprintf(w, "  Tolerance:    %.3fs\n", c.Enforcement.Tolerance)
	fmt.Fprintf(w, "  Settle:       %v\n", c.Enforcement.SettleWindow)
	fmt.Fprintf(w, "  Reset:        %v\n", c.Enforcement.ResetWindow)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Logging:")
	fmt.Fprintf(w, "  Console:      %s\n", c.Logging.Console.Level)
	if c.Logging.File.Level != "none" {
		fmt.Fprintf(w, "  File:         %s (%s, %s)\n", c.Logging.File.Destination, c.Logging.File.Level, c.Logging.File.Mode)
	}
}
