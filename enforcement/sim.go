package enforcement

import (
	"fmt"
	"math"
	"strings"
	"time"

	"mediafrag/grammar"
	"mediafrag/models"
)

// SimElement is an in-memory media element with a virtual playhead. It
// emits signals synchronously, the way a host delivers them to a single
// event loop.
type SimElement struct {
	current  float64
	duration float64
	paused   bool

	// NoFrames disables OnNextFrame callbacks.
	NoFrames bool
	// Trace records every emitted signal in order.
	Trace []Signal

	nextID    int
	listeners map[Signal][]simListener
	frames    []simFrame
}

type simListener struct {
	id int
	fn func()
}

type simFrame struct {
	id int
	fn func(float64)
}

// NewSimElement creates a paused element at position 0. Pass NaN when the
// duration is not known yet.
func NewSimElement(duration float64) *SimElement {
	return &SimElement{
		duration:  duration,
		paused:    true,
		listeners: make(map[Signal][]simListener),
	}
}

func (e *SimElement) CurrentTime() float64 { return e.current }
func (e *SimElement) Duration() float64 { return e.duration }
func (e *SimElement) Paused() bool { return e.paused }

// SetCurrentTime seeks, clamped to the media when its duration is known.
func (e *SimElement) SetCurrentTime(t float64) {
	e.current = e.clamp(t)
	e.emit(SignalSeeking)
	e.emit(SignalSeeked)
}

// BeginSeek moves the playhead and emits only the seek-start signal, the way
// hosts that complete seeks asynchronously do. FinishSeek delivers the
// matching seek-end.
func (e *SimElement) BeginSeek(t float64) {
	e.current = e.clamp(t)
	e.emit(SignalSeeking)
}

// FinishSeek emits the seek-end signal for a seek started with BeginSeek.
func (e *SimElement) FinishSeek() {
	e.emit(SignalSeeked)
}

func (e *SimElement) Play() {
	if !e.paused {
		return
	}
	e.paused = false
	e.emit(SignalPlay)
}

func (e *SimElement) Pause() {
	if e.paused {
		return
	}
	e.paused = true
	e.emit(SignalPause)
}

// On implements Element.
func (e *SimElement) On(sig Signal, fn func()) func() {
	e.nextID++
	id := e.nextID
	e.listeners[sig] = append(e.listeners[sig], simListener{id: id, fn: fn})
	return func() {
		ls := e.listeners[sig]
		for i, l := range ls {
			if l.id == id {
				e.listeners[sig] = append(ls[:i:i], ls[i+1:]...)
				return
			}
		}
	}
}

// OnNextFrame implements FrameNotifier.
func (e *SimElement) OnNextFrame(fn func(float64)) func() {
	if e.NoFrames {
		return func() {}
	}
	e.nextID++
	id := e.nextID
	e.frames = append(e.frames, simFrame{id: id, fn: fn})
	return func() {
		for i, f := range e.frames {
			if f.id == id {
				e.frames = append(e.frames[:i:i], e.frames[i+1:]...)
				return
			}
		}
	}
}

// Listeners returns the number of subscribed listeners.
func (e *SimElement) Listeners() int {
	n := 0
	for _, ls := range e.listeners {
		n += len(ls)
	}
	return n
}

// Advance plays forward by dt seconds: the playhead moves, pending frame
// callbacks run and a time update is emitted. Nothing happens while paused.
func (e *SimElement) Advance(dt float64) {
	if e.paused || dt <= 0 {
		return
	}
	e.current = e.clamp(e.current + dt)

	frames := e.frames
	e.frames = nil
	for _, f := range frames {
		f.fn(e.current)
	}
	e.emit(SignalTimeUpdate)

	if knownDuration(e.duration) && e.current >= e.duration && !e.paused {
		e.paused = true
		e.emit(SignalPause)
	}
}

// LoadMetadata sets the duration and emits the metadata signal.
func (e *SimElement) LoadMetadata(duration float64) {
	e.duration = duration
	e.emit(SignalLoadedMetadata)
}

func (e *SimElement) clamp(t float64) float64 {
	t = math.Max(t, 0)
	if knownDuration(e.duration) {
		t = math.Min(t, e.duration)
	}
	return t
}

func (e *SimElement) emit(sig Signal) {
	e.Trace = append(e.Trace, sig)
	ls := append([]simListener(nil), e.listeners[sig]...)
	for _, l := range ls {
		l.fn()
	}
}

// Simulation drives a Machine bound to a SimElement with a virtual clock.
type Simulation struct {
	Element   *SimElement
	Scheduler *ManualScheduler
	Machine   *Machine

	// Interval between time updates while playing, in seconds.
	Interval float64
}

// NewSimulation binds frag to a new simulated element. opts.Scheduler is
// replaced by the simulation's virtual clock.
func NewSimulation(frag *models.Fragment, duration float64, opts Options) (*Simulation, error) {
	el := NewSimElement(duration)
	sched := NewManualScheduler()
	opts.Scheduler = sched

	m, err := Bind(el, frag, opts)
	if err != nil {
		return nil, err
	}
	return &Simulation{Element: el, Scheduler: sched, Machine: m, Interval: 0.25}, nil
}

// ParseScript splits a script into actions separated by ';' or newlines.
func ParseScript(script string) []string {
	var actions []string
	for _, a := range strings.FieldsFunc(script, func(r rune) bool { return r == ';' || r == '\n' }) {
		if a = strings.TrimSpace(a); a != "" {
			actions = append(actions, a)
		}
	}
	return actions
}

// Step performs one user action:
//
//	play | pause | seek <time> | wait <time> | metadata <time>
//
// Times use the fragment grammar; a percent seek target needs a known
// duration.
func (s *Simulation) Step(action string) error {
	verb, arg, _ := strings.Cut(strings.TrimSpace(action), " ")
	switch strings.ToLower(verb) {
	case "play":
		s.Element.Play()
	case "pause":
		s.Element.Pause()
	case "seek":
		t, err := s.seconds(arg)
		if err != nil {
			return fmt.Errorf("seek: %w", err)
		}
		s.Element.SetCurrentTime(t)
	case "wait":
		t, err := s.seconds(arg)
		if err != nil {
			return fmt.Errorf("wait: %w", err)
		}
		s.wait(t)
	case "metadata":
		t, err := s.seconds(arg)
		if err != nil {
			return fmt.Errorf("metadata: %w", err)
		}
		s.Element.LoadMetadata(t)
	default:
		return fmt.Errorf("unknown action %q", action)
	}
	return nil
}

func (s *Simulation) wait(total float64) {
	interval := s.Interval
	if interval <= 0 {
		interval = 0.25
	}
	for elapsed := 0.0; elapsed < total; {
		dt := math.Min(interval, total-elapsed)
		s.Scheduler.Advance(time.Duration(dt * float64(time.Second)))
		s.Element.Advance(dt)
		elapsed += dt
	}
}

func (s *Simulation) seconds(expr string) (float64, error) {
	b, ok := grammar.ParseTimeExpression(expr)
	if !ok {
		return 0, fmt.Errorf("invalid time %q", expr)
	}
	if b.IsOpenEnd() {
		return s.Element.Duration(), nil
	}
	v, ok := models.ResolvePercent(b, s.Element.Duration())
	if !ok {
		return 0, fmt.Errorf("cannot resolve %s without a duration", b)
	}
	return v, nil
}
