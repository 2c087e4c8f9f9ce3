package models

import (
	"errors"
	"fmt"
)

// Fragment is a start/end time range attached to a media link.
//
// Fragments are treated as immutable values: edits produce a new instance
// (see WithStart, WithEnd and ApplyEdit). A fragment with both sides unset is
// represented by a nil *Fragment rather than by an instance.
//
// StartRaw and EndRaw keep the user's notation (e.g. "1:30") so that
// re-serialization does not rewrite it to a normalized form.
//
// Parsing never validates ordering; documents may contain malformed ranges
// and they are kept as-is until the user edits them.
type Fragment struct {
	Start    Boundary `json:"start"`
	End      Boundary `json:"end"`
	StartRaw string   `json:"start_raw,omitempty"`
	EndRaw   string   `json:"end_raw,omitempty"`
}

// Side selects one edge of a fragment.
type Side int

const (
	SideStart Side = iota
	SideEnd
)

func (s Side) String() string {
	if s == SideEnd {
		return "end"
	}
	return "start"
}

// ErrOrdering is returned when an edit would make start >= end.
var ErrOrdering = errors.New("start must be before end")

// EditError describes a rejected interactive edit. It unwraps to ErrOrdering.
type EditError struct {
	Side     Side
	Proposed string
	Other    string
}

func (e *EditError) Error() string {
	if e.Side == SideStart {
		return fmt.Sprintf("start %s must be before end %s", e.Proposed, e.Other)
	}
	return fmt.Sprintf("end %s must be after start %s", e.Proposed, e.Other)
}

func (e *EditError) Unwrap() error {
	return ErrOrdering
}

// Effective returns the fragment with placeholder boundaries removed, or nil
// if nothing real remains.
func (f *Fragment) Effective() *Fragment {
	if f == nil {
		return nil
	}
	out := *f
	if IsPlaceholder(out.Start) || IsPlaceholderRaw(out.StartRaw) {
		out.Start, out.StartRaw = Boundary{}, ""
	}
	if IsPlaceholder(out.End) || IsPlaceholderRaw(out.EndRaw) {
		out.End, out.EndRaw = Boundary{}, ""
	}
	if !out.Start.IsSet() && !out.End.IsSet() {
		return nil
	}
	return &out
}

// IsSingleTimestamp reports whether the fragment is a single position marker:
// a set non-negative start without an end.
func (f *Fragment) IsSingleTimestamp() bool {
	if f == nil {
		return false
	}
	eff := f.Effective()
	if eff == nil {
		return false
	}
	return eff.Start.IsSet() && eff.Start.Value >= 0 && !eff.End.IsSet()
}

// Validate checks the fragment invariants.
//
// Returns an error if:
//   - both sides are unset
//   - either side is a negative position or a percent outside 0..100
//   - both sides are absolute positions and start >= end
func (f *Fragment) Validate() error {
	eff := f.Effective()
	if eff == nil {
		return fmt.Errorf("fragment has neither start nor end")
	}
	for _, b := range []Boundary{eff.Start, eff.End} {
		if !b.IsSet() {
			continue
		}
		if b.Value < 0 {
			return fmt.Errorf("negative boundary %s", b)
		}
		if b.IsPercent() && b.Value > 100 {
			return fmt.Errorf("percent boundary %s exceeds 100%%", b)
		}
	}
	if eff.Start.Kind == BoundarySeconds && eff.End.Kind == BoundarySeconds && eff.Start.Value >= eff.End.Value {
		return &EditError{
			Side:     SideStart,
			Proposed: boundaryLabel(eff.Start, eff.StartRaw),
			Other:    boundaryLabel(eff.End, eff.EndRaw),
		}
	}
	return nil
}

// WithStart returns a copy of f with the start replaced. f may be nil.
func (f *Fragment) WithStart(b Boundary, raw string) *Fragment {
	var out Fragment
	if f != nil {
		out = *f
	}
	out.Start, out.StartRaw = b, raw
	return &out
}

// WithEnd returns a copy of f with the end replaced. f may be nil.
func (f *Fragment) WithEnd(b Boundary, raw string) *Fragment {
	var out Fragment
	if f != nil {
		out = *f
	}
	out.End, out.EndRaw = b, raw
	return &out
}

// ApplyEdit applies an interactive edit of one side of current. The proposed
// side must compare strictly before (start) or after (end) the other side.
// Comparisons that cannot be decided yet (percent marker without a known
// duration) are accepted. On rejection current is left untouched and an
// *EditError is returned.
func ApplyEdit(current *Fragment, side Side, b Boundary, raw string, duration float64) (*Fragment, error) {
	var next *Fragment
	if side == SideStart {
		next = current.WithStart(b, raw)
	} else {
		next = current.WithEnd(b, raw)
	}

	eff := next.Effective()
	if eff == nil {
		return nil, nil
	}

	cmp, ok := CompareBoundary(eff.Start, eff.End, duration)
	if ok && cmp >= 0 {
		proposed, other := boundaryLabel(eff.Start, eff.StartRaw), boundaryLabel(eff.End, eff.EndRaw)
		if side == SideEnd {
			proposed, other = other, proposed
		}
		return current, &EditError{Side: side, Proposed: proposed, Other: other}
	}
	return next, nil
}

// Equal reports whether two fragments denote the same range, ignoring raw
// forms and placeholder boundaries.
func Equal(a, b *Fragment) bool {
	ea, eb := a.Effective(), b.Effective()
	if ea == nil || eb == nil {
		return ea == nil && eb == nil
	}
	return ea.Start == eb.Start && ea.End == eb.End
}
