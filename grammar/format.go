package grammar

import (
	"math"
	"strings"

	"mediafrag/internal/timeutil"
	"mediafrag/models"
)

const (
	minDecimals = 2
	maxDecimals = 3
)

// FormatOptions controls how positions are rendered back to text.
type FormatOptions struct {
	TrimHours        bool `yaml:"trim_hours"`         // Drop a zero hours component
	TrimMinutes      bool `yaml:"trim_minutes"`       // Drop a zero minutes component (after hours)
	TrimLeadingZeros bool `yaml:"trim_leading_zeros"` // "01:30" -> "1:30"
	RawSeconds       bool `yaml:"raw_seconds"`        // Emit plain seconds instead of a clock
	Decimals         int  `yaml:"decimals"`           // Fractional digits, 2..3
}

// DefaultFormatOptions returns the options used when nothing is configured.
func DefaultFormatOptions() FormatOptions {
	return FormatOptions{
		TrimHours:        true,
		TrimMinutes:      false,
		TrimLeadingZeros: true,
		RawSeconds:       false,
		Decimals:         maxDecimals,
	}
}

func (o FormatOptions) decimals() int {
	switch {
	case o.Decimals == 0:
		return maxDecimals
	case o.Decimals < minDecimals:
		return minDecimals
	case o.Decimals > maxDecimals:
		return maxDecimals
	}
	return o.Decimals
}

// FormatSeconds renders a position in seconds.
//
// If preferredRaw parses back to exactly the same position it is returned
// unchanged, so "1:30" stays "1:30" rather than becoming "90". Otherwise the
// position is rendered as a trimmed hh:mm:ss[.fff] clock, or as plain seconds
// when RawSeconds is set. Fractional digits are shown only when the position
// is fractional or the raw form contained a decimal point.
func FormatSeconds(totalSeconds float64, preferredRaw string, opts FormatOptions) string {
	if preferredRaw != "" {
		if b, ok := ParseTimeExpression(preferredRaw); ok && b.Kind == models.BoundarySeconds && approxEqual(b.Value, totalSeconds) {
			return preferredRaw
		}
	}
	if math.IsInf(totalSeconds, 1) {
		return "end"
	}

	decimals := opts.decimals()
	if opts.RawSeconds {
		return timeutil.FormatPlain(totalSeconds, decimals)
	}

	return timeutil.FormatClock(totalSeconds, timeutil.ClockOptions{
		TrimHours:        opts.TrimHours,
		TrimMinutes:      opts.TrimMinutes,
		TrimLeadingZeros: opts.TrimLeadingZeros,
		ShowDecimals:     totalSeconds != math.Trunc(totalSeconds) || strings.Contains(preferredRaw, "."),
		Decimals:         decimals,
	})
}

// FormatLabel renders a position for display. In raw seconds mode the value
// carries an "s" unit suffix.
func FormatLabel(totalSeconds float64, preferredRaw string, opts FormatOptions) string {
	s := FormatSeconds(totalSeconds, preferredRaw, opts)
	if opts.RawSeconds && s == timeutil.FormatPlain(totalSeconds, opts.decimals()) {
		return s + "s"
	}
	return s
}

// FormatBoundary renders one side of a fragment. The raw form wins when
// present; percent markers render as "<n>%", zero as "start" and the open end
// as "end". Unset and placeholder boundaries render as "".
func FormatBoundary(b models.Boundary, raw string, opts FormatOptions) string {
	if raw != "" && !models.IsPlaceholderRaw(raw) {
		return raw
	}
	b = b.Effective()
	switch {
	case !b.IsSet():
		return ""
	case b.IsPercent():
		return timeutil.FormatPlain(b.Value, maxDecimals) + "%"
	case b.Value == 0:
		return "start"
	case b.IsOpenEnd():
		return "end"
	}
	return FormatSeconds(b.Value, "", opts)
}

// GenerateFragmentSubpath renders a fragment as a "t=" parameter (without the
// leading '#'). It returns "" for a nil or empty fragment. An end-only
// fragment is anchored at 0.
//
// Example:
//
//	GenerateFragmentSubpath(&models.Fragment{Start: models.Seconds(0), End: models.OpenEnd()}, opts) // "t=start,end"
//	GenerateFragmentSubpath(&models.Fragment{Start: models.Seconds(90)}, opts)                     // "t=1:30"
func GenerateFragmentSubpath(f *models.Fragment, opts FormatOptions) string {
	if f == nil {
		return ""
	}
	start := FormatBoundary(f.Start, f.StartRaw, opts)
	end := FormatBoundary(f.End, f.EndRaw, opts)

	switch {
	case start == "" && end == "":
		return ""
	case end == "":
		return "t=" + start
	case start == "":
		return "t=0," + end
	default:
		return "t=" + start + "," + end
	}
}
