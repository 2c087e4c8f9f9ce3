// Package timeutil provides clock formatting utilities for media positions.
package timeutil

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ClockOptions controls how FormatClock renders a position.
type ClockOptions struct {
	// TrimHours drops the hours component when it is zero.
	TrimHours bool
	// TrimMinutes drops the minutes component when it is zero and hours were dropped.
	TrimMinutes bool
	// TrimLeadingZeros strips leading zeros from the first remaining component.
	TrimLeadingZeros bool
	// ShowDecimals renders fractional seconds (trailing zeros trimmed).
	ShowDecimals bool
	// Decimals is the number of fractional digits kept before trimming (2 or 3).
	Decimals int
}

// Clock is a position split into its hh:mm:ss components.
type Clock struct {
	Hours   int64
	Minutes int64
	Seconds int64
	// Fraction holds the fractional part in units of 10^-Decimals seconds.
	Fraction int64
	Decimals int
}

// Split converts seconds to clock components, rounding to the given
// number of fractional digits. Negative values are treated as zero.
//
// Example:
//
//	Split(3661.5, 2) // {Hours: 1, Minutes: 1, Seconds: 1, Fraction: 50, Decimals: 2}
func Split(seconds float64, decimals int) Clock {
	if decimals < 0 {
		decimals = 0
	}
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	scale := int64(math.Pow10(decimals))
	units := int64(math.Round(seconds * float64(scale)))

	whole := units / scale
	return Clock{
		Hours:    whole / 3600,
		Minutes:  (whole % 3600) / 60,
		Seconds:  whole % 60,
		Fraction: units % scale,
		Decimals: decimals,
	}
}

// FormatClock converts seconds to hh:mm:ss[.fff] and applies the trimming options.
//
// Example:
//
//	FormatClock(90, ClockOptions{})                                  // "00:01:30"
//	FormatClock(90, ClockOptions{TrimHours: true, TrimLeadingZeros: true}) // "1:30"
//	FormatClock(30.5, ClockOptions{ShowDecimals: true, Decimals: 3}) // "00:00:30.5"
func FormatClock(seconds float64, opts ClockOptions) string {
	decimals := opts.Decimals
	if !opts.ShowDecimals {
		decimals = 0
	}
	c := Split(seconds, decimals)

	parts := make([]string, 0, 3)
	if !opts.TrimHours || c.Hours > 0 {
		parts = append(parts, fmt.Sprintf("%02d", c.Hours))
	}
	if len(parts) > 0 || !opts.TrimMinutes || c.Minutes > 0 {
		parts = append(parts, fmt.Sprintf("%02d", c.Minutes))
	}
	secs := fmt.Sprintf("%02d", c.Seconds)
	if opts.ShowDecimals && decimals > 0 {
		frac := strings.TrimRight(fmt.Sprintf("%0*d", decimals, c.Fraction), "0")
		if frac == "" {
			frac = "0"
		}
		secs += "." + frac
	}
	parts = append(parts, secs)

	if opts.TrimLeadingZeros {
		parts[0] = trimLeadingZeros(parts[0])
	}
	return strings.Join(parts, ":")
}

// FormatPlain renders seconds as a plain decimal number with at most the
// given number of fractional digits.
func FormatPlain(seconds float64, decimals int) string {
	return strconv.FormatFloat(roundTo(seconds, decimals), 'f', -1, 64)
}

func roundTo(v float64, decimals int) float64 {
	scale := math.Pow10(decimals)
	return math.Round(v*scale) / scale
}

func trimLeadingZeros(s string) string {
	trimmed := strings.TrimLeft(s, "0")
	if trimmed == "" || trimmed[0] == '.' {
		return "0" + trimmed
	}
	return trimmed
}
