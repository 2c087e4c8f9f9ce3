// Package grammar parses and formats media fragment expressions such as
// "t=1:30,2:00", "t=50%" or "t=10 minutes,end".
package grammar

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"

	"mediafrag/models"
)

var (
	percentRegex = regexp.MustCompile(`^(\d+(?:\.\d+)?|\.\d+)%$`)
	secondsRegex = regexp.MustCompile(`^(\d+(?:\.\d*)?|\.\d+)$`)
	// hh:mm:ss[.fff]
	hmsRegex = regexp.MustCompile(`^(\d+):(\d{1,2}):(\d{1,2}(?:\.\d+)?)$`)
	// mm:ss[.fff], minutes unbounded
	msRegex = regexp.MustCompile(`^(\d+):(\d{1,2}(?:\.\d+)?)$`)
)

// ParseTimeExpression converts a single boundary expression to a Boundary.
//
// Recognized forms, in priority order:
//   - "start" (0)
//   - "end" or "e" (open end)
//   - "<n>%" with 0 <= n <= 100 (out-of-range percentages are rejected)
//   - bare seconds, optionally fractional ("90", "12.5")
//   - hh:mm:ss[.fff] with minutes and seconds below 60
//   - mm:ss[.fff] with seconds below 60
//   - natural-language durations ("10 minutes", "1h30m") up to one day
//
// Matching is case-insensitive and ignores surrounding whitespace. The second
// result is false when nothing matches.
func ParseTimeExpression(text string) (models.Boundary, bool) {
	s := cases.Fold().String(strings.TrimSpace(text))
	if s == "" {
		return models.Boundary{}, false
	}

	switch s {
	case "start":
		return models.Seconds(0), true
	case "end", "e":
		return models.OpenEnd(), true
	}

	if matches := percentRegex.FindStringSubmatch(s); len(matches) > 1 {
		p, err := strconv.ParseFloat(matches[1], 64)
		if err != nil || p < 0 || p > 100 {
			return models.Boundary{}, false
		}
		return models.Percent(p), true
	}

	if matches := secondsRegex.FindStringSubmatch(s); len(matches) > 1 {
		if v, err := strconv.ParseFloat(matches[1], 64); err == nil {
			return models.Seconds(v), true
		}
	}

	if matches := hmsRegex.FindStringSubmatch(s); len(matches) > 3 {
		if v, ok := clockToSeconds(matches[1], matches[2], matches[3], true); ok {
			return models.Seconds(v), true
		}
	}

	if matches := msRegex.FindStringSubmatch(s); len(matches) > 2 {
		if v, ok := clockToSeconds("0", matches[1], matches[2], false); ok {
			return models.Seconds(v), true
		}
	}

	if v, ok := parseDuration(s); ok {
		return models.Seconds(v), true
	}
	return models.Boundary{}, false
}

// clockToSeconds converts clock components to seconds. Seconds must be below
// 60, and so must minutes when boundedMinutes is set.
func clockToSeconds(hoursStr, minutesStr, secondsStr string, boundedMinutes bool) (float64, bool) {
	hours, err1 := strconv.ParseFloat(hoursStr, 64)
	minutes, err2 := strconv.ParseFloat(minutesStr, 64)
	seconds, err3 := strconv.ParseFloat(secondsStr, 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return 0, false
	}
	if seconds >= 60 {
		return 0, false
	}
	if boundedMinutes && minutes >= 60 {
		return 0, false
	}
	return hours*3600 + minutes*60 + seconds, true
}

func approxEqual(a, b float64) bool {
	if math.IsInf(a, 1) || math.IsInf(b, 1) {
		return math.IsInf(a, 1) && math.IsInf(b, 1)
	}
	return math.Abs(a-b) < 1e-9
}
