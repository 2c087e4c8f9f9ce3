// Package enforcement restricts playback of a live media element to a
// fragment's time range.
package enforcement

import "fmt"

// Signal is a notification emitted by a media element.
type Signal int

const (
	SignalTimeUpdate Signal = iota
	SignalSeeking
	SignalSeeked
	SignalPlay
	SignalPause
	SignalLoadedMetadata
)

// Signals lists every signal a machine subscribes to.
var Signals = []Signal{
	SignalTimeUpdate,
	SignalSeeking,
	SignalSeeked,
	SignalPlay,
	SignalPause,
	SignalLoadedMetadata,
}

func (s Signal) String() string {
	switch s {
	case SignalTimeUpdate:
		return "timeupdate"
	case SignalSeeking:
		return "seeking"
	case SignalSeeked:
		return "seeked"
	case SignalPlay:
		return "play"
	case SignalPause:
		return "pause"
	case SignalLoadedMetadata:
		return "loadedmetadata"
	default:
		return fmt.Sprintf("signal(%d)", int(s))
	}
}

// Element is a playable media element owned by the host.
//
// Elements may emit signals synchronously from within SetCurrentTime, Play
// and Pause. Implementations used as Registry keys must be comparable,
// typically pointers.
type Element interface {
	CurrentTime() float64
	SetCurrentTime(seconds float64)
	// Duration returns NaN or 0 while the duration is unknown.
	Duration() float64
	Paused() bool
	Play()
	Pause()
	// On subscribes fn to sig and returns a function that unsubscribes it.
	On(sig Signal, fn func()) (off func())
}

// FrameNotifier is implemented by elements that can report every presented
// frame. Machines use it to clamp exactly at the end boundary instead of
// waiting for the next time update.
type FrameNotifier interface {
	// OnNextFrame calls fn once with the media time of the next presented
	// frame. The returned function cancels the request.
	OnNextFrame(fn func(mediaTime float64)) (cancel func())
}
