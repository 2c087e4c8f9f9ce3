package enforcement

import "fmt"

// State is the enforcement state of a bound element.
type State int

const (
	Unbound State = iota
	Idle
	Seeking
	Playing
	PausedAtBoundary
	PausedByUser
)

func (s State) String() string {
	switch s {
	case Unbound:
		return "unbound"
	case Idle:
		return "idle"
	case Seeking:
		return "seeking"
	case Playing:
		return "playing"
	case PausedAtBoundary:
		return "paused-at-boundary"
	case PausedByUser:
		return "paused-by-user"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Snapshot is a copy of a machine's runtime state.
type Snapshot struct {
	State     State   `json:"state"`
	Ready     bool    `json:"ready"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time,omitempty"`
	HasEnd    bool    `json:"has_end"`

	ReachedEnd bool `json:"reached_end"`
	// SeekedPastEnd is set for ResetWindow after a seek beyond the end
	// boundary was parked there. Diagnostic only; no transition reads it.
	SeekedPastEnd  bool `json:"seeked_past_end"`
	AutoResume     bool `json:"auto_resume"`
	ShouldAutoPlay bool `json:"should_auto_play"`
	UserPaused     bool `json:"user_paused"`
	IsSeeking      bool `json:"is_seeking"`
}
