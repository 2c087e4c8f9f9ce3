// Package models provides the core value types for media fragments and
// their occurrences in documents.
package models

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// BoundaryKind tells how a Boundary value is interpreted.
type BoundaryKind int

const (
	BoundaryUnset   BoundaryKind = iota // No boundary on this side
	BoundarySeconds                     // Absolute position in seconds (may be +Inf)
	BoundaryPercent                     // Percentage of the media duration (0..100)
)

// PlaceholderSeconds is the position injected by the host when it preserves
// the last playback position. It never denotes a user-set boundary.
const PlaceholderSeconds = 0.001

// Boundary is one edge of a Fragment. The zero value is unset.
type Boundary struct {
	Kind  BoundaryKind
	Value float64
}

// Seconds returns a boundary at an absolute position.
func Seconds(v float64) Boundary {
	return Boundary{Kind: BoundarySeconds, Value: v}
}

// Percent returns a boundary relative to the media duration.
func Percent(p float64) Boundary {
	return Boundary{Kind: BoundaryPercent, Value: p}
}

// OpenEnd returns the open-ended end sentinel.
func OpenEnd() Boundary {
	return Seconds(math.Inf(1))
}

// IsSet reports whether the boundary carries a value.
func (b Boundary) IsSet() bool {
	return b.Kind != BoundaryUnset
}

// IsPercent reports whether the boundary is a percent marker.
func (b Boundary) IsPercent() bool {
	return b.Kind == BoundaryPercent
}

// IsOpenEnd reports whether the boundary is the +Inf sentinel.
func (b Boundary) IsOpenEnd() bool {
	return b.Kind == BoundarySeconds && math.IsInf(b.Value, 1)
}

// Effective returns the boundary with the placeholder position mapped to unset.
func (b Boundary) Effective() Boundary {
	if IsPlaceholder(b) {
		return Boundary{}
	}
	return b
}

func (b Boundary) String() string {
	switch b.Kind {
	case BoundarySeconds:
		if b.IsOpenEnd() {
			return "end"
		}
		return strconv.FormatFloat(b.Value, 'f', -1, 64) + "s"
	case BoundaryPercent:
		return strconv.FormatFloat(b.Value, 'f', -1, 64) + "%"
	default:
		return "unset"
	}
}

// MarshalText implements encoding.TextMarshaler so that the open end, which
// JSON numbers cannot carry, encodes as "end".
func (b Boundary) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// IsPlaceholder reports whether b is the host's preserved-position artifact.
func IsPlaceholder(b Boundary) bool {
	return b.Kind == BoundarySeconds && math.Abs(b.Value-PlaceholderSeconds) < 1e-9
}

// IsPlaceholderRaw reports whether a raw boundary string spells the placeholder.
func IsPlaceholderRaw(raw string) bool {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	return err == nil && math.Abs(v-PlaceholderSeconds) < 1e-9
}

// ResolvePercent converts a percent marker to seconds using duration.
// Seconds pass through unchanged. It returns false for unset boundaries and
// for percent markers when the duration is not a finite positive number.
func ResolvePercent(b Boundary, duration float64) (float64, bool) {
	switch b.Kind {
	case BoundarySeconds:
		return b.Value, true
	case BoundaryPercent:
		if !knownDuration(duration) {
			return 0, false
		}
		return b.Value / 100 * duration, true
	default:
		return 0, false
	}
}

// CompareBoundary orders two boundaries, returning -1, 0 or 1. The second
// result is false when the boundaries are incomparable: either side unset, or
// a percent marker that cannot be resolved without a known duration.
//
// The open-ended sentinel compares greater than anything else before any
// percent resolution takes place.
func CompareBoundary(a, b Boundary, duration float64) (int, bool) {
	if !a.IsSet() || !b.IsSet() {
		return 0, false
	}

	switch ai, bi := a.IsOpenEnd(), b.IsOpenEnd(); {
	case ai && bi:
		return 0, true
	case bi:
		return -1, true
	case ai:
		return 1, true
	}

	if a.IsPercent() && b.IsPercent() {
		return compareFloat(a.Value, b.Value), true
	}

	av, aok := ResolvePercent(a, duration)
	bv, bok := ResolvePercent(b, duration)
	if !aok || !bok {
		return 0, false
	}
	return compareFloat(av, bv), true
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func knownDuration(d float64) bool {
	return d > 0 && !math.IsNaN(d) && !math.IsInf(d, 0)
}

// boundaryLabel is used in validation messages.
func boundaryLabel(b Boundary, raw string) string {
	if raw != "" {
		return fmt.Sprintf("%q", raw)
	}
	return b.String()
}
