package enforcement

import (
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"mediafrag/models"
)

// ErrNoFragment is returned when binding a fragment with no effective
// boundary.
var ErrNoFragment = errors.New("fragment has no effective boundary")

const (
	timerSeek   = "seek"
	timerPause  = "pause"
	timerPlay   = "play"
	timerReset  = "reset"
	timerBypass = "bypass"
)

// runtimeFlags record why the element is paused or seeking.
type runtimeFlags struct {
	reachedEnd bool
	// seekedPastEnd marks a recent seek beyond the end boundary. It is kept
	// for diagnostics only: a play at the boundary restarts the range either
	// way.
	seekedPastEnd     bool
	autoResume        bool
	shouldAutoPlay    bool
	userPaused        bool
	isSeeking         bool
	resetFromBoundary bool

	// Signals expected back from system-initiated actions.
	pendingSeek  int
	pendingPause int
	pendingPlay  int
}

// Machine enforces a fragment on one element.
//
// A machine is not safe for concurrent use. It must be driven from the
// goroutine that delivers the element's signals, and its Scheduler must run
// callbacks on that same goroutine. Signals emitted while a signal is being
// handled are queued and handled after it, so every handler runs to
// completion.
type Machine struct {
	el   Element
	frag *models.Fragment
	opts Options
	log  *zap.Logger

	state State
	runtimeFlags

	// Resolved bounds. Percent boundaries stay unresolved (no restriction)
	// until the duration is known.
	start      float64
	end        float64
	clampStart bool
	hasEnd     bool
	ready      bool

	off         []func()
	timers      map[string]func()
	frameCancel func()

	dispatching bool
	queue       []step
}

type step struct {
	cause string
	run   func() State
}

// Bind starts enforcing frag on el. The element must not already be bound;
// use a Registry to manage rebinding.
func Bind(el Element, frag *models.Fragment, opts Options) (*Machine, error) {
	if el == nil {
		return nil, errors.New("nil element")
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid enforcement options: %w", err)
	}
	eff := frag.Effective()
	if eff == nil {
		return nil, ErrNoFragment
	}

	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("enforcement")
	if opts.Label != "" {
		log = log.With(zap.String("element", opts.Label))
	}

	m := &Machine{
		el:     el,
		frag:   eff,
		opts:   opts,
		log:    log,
		state:  Idle,
		timers: make(map[string]func()),
	}
	for _, sig := range Signals {
		m.off = append(m.off, el.On(sig, func() { m.dispatch(sig) }))
	}

	m.run("bind", func() State {
		m.resolve()
		if knownDuration(m.el.Duration()) {
			return m.position()
		}
		m.log.Debug("Duration unknown, deferring initial position")
		return m.state
	})
	return m, nil
}

// transitions maps (state, signal) to a handler returning the next state.
// Missing entries ignore the signal.
var transitions = map[State]map[Signal]func(*Machine) State{
	Idle: {
		SignalTimeUpdate:     (*Machine).onTimeUpdate,
		SignalSeeking:        (*Machine).onSeeking,
		SignalSeeked:         (*Machine).onSeeked,
		SignalPlay:           (*Machine).onPlay,
		SignalPause:          (*Machine).onPause,
		SignalLoadedMetadata: (*Machine).onLoadedMetadata,
	},
	Seeking: {
		SignalSeeking:        (*Machine).onSeeking,
		SignalSeeked:         (*Machine).onSeeked,
		SignalPlay:           (*Machine).onPlay,
		SignalPause:          (*Machine).onPause,
		SignalLoadedMetadata: (*Machine).onLoadedMetadata,
	},
	Playing: {
		SignalTimeUpdate:     (*Machine).onTimeUpdate,
		SignalSeeking:        (*Machine).onSeeking,
		SignalSeeked:         (*Machine).onSeeked,
		SignalPlay:           (*Machine).onPlay,
		SignalPause:          (*Machine).onPause,
		SignalLoadedMetadata: (*Machine).onLoadedMetadata,
	},
	PausedAtBoundary: {
		SignalTimeUpdate:     (*Machine).onTimeUpdate,
		SignalSeeking:        (*Machine).onSeeking,
		SignalSeeked:         (*Machine).onSeeked,
		SignalPlay:           (*Machine).onPlay,
		SignalPause:          (*Machine).onPause,
		SignalLoadedMetadata: (*Machine).onLoadedMetadata,
	},
	PausedByUser: {
		SignalTimeUpdate:     (*Machine).onTimeUpdate,
		SignalSeeking:        (*Machine).onSeeking,
		SignalSeeked:         (*Machine).onSeeked,
		SignalPlay:           (*Machine).onPlay,
		SignalPause:          (*Machine).onPause,
		SignalLoadedMetadata: (*Machine).onLoadedMetadata,
	},
}

func (m *Machine) dispatch(sig Signal) {
	m.run(sig.String(), func() State {
		h := transitions[m.state][sig]
		if h == nil {
			return m.state
		}
		return h(m)
	})
}

// run executes fn, or queues it when called from inside another handler.
func (m *Machine) run(cause string, fn func() State) {
	if m.dispatching {
		m.queue = append(m.queue, step{cause: cause, run: fn})
		return
	}
	m.dispatching = true
	defer func() { m.dispatching = false }()

	for s := (step{cause: cause, run: fn}); ; {
		if m.state == Unbound {
			m.queue = nil
			return
		}
		prev := m.state
		next := s.run()
		if m.state == Unbound {
			// cleaned up by the handler
			m.queue = nil
			return
		}
		m.state = next
		if prev != next {
			m.log.Debug("State change",
				zap.Stringer("from", prev),
				zap.Stringer("to", next),
				zap.String("cause", s.cause),
				zap.Float64("position", m.el.CurrentTime()))
		}

		if len(m.queue) == 0 {
			break
		}
		s, m.queue = m.queue[0], m.queue[1:]
	}
	m.watchFrames()
}

func (m *Machine) onTimeUpdate() State {
	if m.resetFromBoundary || m.isSeeking {
		return m.state
	}
	pos := m.el.CurrentTime()
	if m.clampStart && pos < m.start-m.opts.Tolerance {
		m.systemSeek(m.start)
		return m.state
	}
	if m.hasEnd && !m.el.Paused() && pos >= m.end {
		return m.pauseAtBoundary()
	}
	return m.state
}

func (m *Machine) onSeeking() State {
	m.isSeeking = true
	if m.pendingSeek > 0 {
		m.pendingSeek--
		return Seeking
	}

	// Seeking away from a boundary pause resumes playback; seeking after a
	// deliberate pause does not.
	paused := m.el.Paused()
	m.shouldAutoPlay = !m.userPaused && (!paused || (m.state == PausedAtBoundary && m.autoResume))

	if m.hasEnd && m.el.CurrentTime() > m.end+m.opts.Tolerance {
		m.parkAtEnd()
	}
	return Seeking
}

func (m *Machine) onSeeked() State {
	m.isSeeking = false
	pos := m.el.CurrentTime()
	tol := m.opts.Tolerance

	switch {
	case m.hasEnd && pos > m.end+tol:
		m.parkAtEnd()
		return Seeking
	case m.hasEnd && math.Abs(pos-m.end) <= tol:
		m.reachedEnd = true
		if !m.el.Paused() {
			m.autoResume = true
			m.systemPause()
		}
		return PausedAtBoundary
	case m.clampStart && pos < m.start-tol:
		m.systemSeek(m.start)
		return Seeking
	}

	m.reachedEnd = false
	autoPlay := m.shouldAutoPlay
	m.shouldAutoPlay = false
	if autoPlay && !m.userPaused && m.el.Paused() {
		m.systemPlay()
		return Playing
	}
	return m.restingState()
}

func (m *Machine) onPlay() State {
	if m.pendingPlay > 0 {
		m.pendingPlay--
		return Playing
	}

	m.userPaused = false
	m.autoResume = true
	if m.hasEnd && m.el.CurrentTime() >= m.end-m.opts.Tolerance {
		// Restart the range instead of pausing at the boundary again.
		m.reachedEnd = false
		m.seekedPastEnd = false
		m.resetFromBoundary = true
		m.after(timerReset, m.opts.ResetWindow, func() { m.resetFromBoundary = false })
		m.systemSeek(m.start)
	}
	return Playing
}

func (m *Machine) onPause() State {
	if m.pendingPause > 0 {
		m.pendingPause--
		return m.state
	}
	m.userPaused = true
	m.autoResume = false
	m.shouldAutoPlay = false
	if m.isSeeking {
		// settled by onSeeked, which must not resume playback now
		return m.state
	}
	return PausedByUser
}

func (m *Machine) onLoadedMetadata() State {
	m.resolve()
	if m.ready || !knownDuration(m.el.Duration()) {
		return m.state
	}
	return m.position()
}

// position performs the initial seek into the range and reports it.
func (m *Machine) position() State {
	m.ready = true
	if m.opts.OnRange != nil {
		m.opts.OnRange(m.start, m.end)
	}

	pos := m.el.CurrentTime()
	tol := m.opts.Tolerance
	single := m.frag.IsSingleTimestamp()
	if (m.start > 0 && pos < m.start-tol) ||
		(m.hasEnd && pos > m.end+tol) ||
		(single && math.Abs(pos-m.start) > tol) {
		m.systemSeek(m.start)
	}
	return m.state
}

func (m *Machine) pauseAtBoundary() State {
	m.reachedEnd = true
	m.autoResume = true
	m.shouldAutoPlay = true
	m.systemPause()
	if m.el.CurrentTime() != m.end {
		m.systemSeek(m.end)
	}
	return PausedAtBoundary
}

// parkAtEnd handles a seek beyond the end boundary: playback stops at the
// boundary, and an explicit play afterwards restarts the range.
func (m *Machine) parkAtEnd() {
	m.seekedPastEnd = true
	m.shouldAutoPlay = false
	m.after(timerBypass, m.opts.ResetWindow, func() { m.seekedPastEnd = false })
	m.systemPause()
	m.systemSeek(m.end)
}

func (m *Machine) restingState() State {
	switch {
	case !m.el.Paused():
		return Playing
	case m.userPaused:
		return PausedByUser
	case m.reachedEnd:
		return PausedAtBoundary
	default:
		return Idle
	}
}

func (m *Machine) systemSeek(t float64) {
	m.pendingSeek++
	m.after(timerSeek, m.opts.SettleWindow, func() { m.pendingSeek = 0 })
	m.el.SetCurrentTime(t)
}

func (m *Machine) systemPause() {
	if m.el.Paused() {
		return
	}
	m.pendingPause++
	m.after(timerPause, m.opts.SettleWindow, func() { m.pendingPause = 0 })
	m.el.Pause()
}

func (m *Machine) systemPlay() {
	if !m.el.Paused() {
		return
	}
	m.pendingPlay++
	m.after(timerPlay, m.opts.SettleWindow, func() { m.pendingPlay = 0 })
	m.el.Play()
}

// after schedules f under key, replacing a pending callback with the same key.
func (m *Machine) after(key string, d time.Duration, f func()) {
	if cancel, ok := m.timers[key]; ok {
		cancel()
	}
	m.timers[key] = m.opts.Scheduler.AfterFunc(d, func() {
		m.run("timer "+key, func() State {
			delete(m.timers, key)
			f()
			return m.state
		})
	})
}

// watchFrames arms a frame callback while playing towards an end boundary.
func (m *Machine) watchFrames() {
	fn, ok := m.el.(FrameNotifier)
	if !ok || m.frameCancel != nil || m.state != Playing || !m.hasEnd {
		return
	}
	m.frameCancel = fn.OnNextFrame(func(mediaTime float64) {
		m.frameCancel = nil
		m.run("frame", func() State {
			if m.state != Playing || m.resetFromBoundary || m.isSeeking || mediaTime < m.end {
				return m.state
			}
			return m.pauseAtBoundary()
		})
	})
}

// resolve computes the enforced bounds from the fragment and the current
// duration.
func (m *Machine) resolve() {
	d := m.el.Duration()
	f := m.frag

	m.start, m.clampStart = 0, false
	m.end, m.hasEnd = math.Inf(1), false

	if v, ok := models.ResolvePercent(f.Start, d); ok {
		m.start = v
		m.clampStart = !f.IsSingleTimestamp()
	}
	if f.End.IsSet() && !f.End.IsOpenEnd() {
		if v, ok := models.ResolvePercent(f.End, d); ok {
			m.end, m.hasEnd = v, true
		}
	}
	if m.hasEnd && m.start >= m.end {
		m.log.Warn("Ignoring end of inverted range", zap.Float64("start", m.start), zap.Float64("end", m.end))
		m.end, m.hasEnd = math.Inf(1), false
	}
}

// Cleanup detaches the machine from its element and clears all runtime
// state. It is safe to call more than once.
func (m *Machine) Cleanup() {
	if m == nil || m.state == Unbound {
		return
	}
	for _, off := range m.off {
		off()
	}
	for _, cancel := range m.timers {
		cancel()
	}
	if m.frameCancel != nil {
		m.frameCancel()
	}

	m.off = nil
	m.timers = make(map[string]func())
	m.frameCancel = nil
	m.queue = nil
	m.runtimeFlags = runtimeFlags{}
	m.ready = false
	m.state = Unbound
	m.log.Debug("Released element")
}

// State returns the current state.
func (m *Machine) State() State {
	return m.state
}

// Fragment returns the enforced fragment.
func (m *Machine) Fragment() *models.Fragment {
	return m.frag
}

// Snapshot returns a copy of the runtime state.
func (m *Machine) Snapshot() Snapshot {
	s := Snapshot{
		State:          m.state,
		Ready:          m.ready,
		StartTime:      m.start,
		HasEnd:         m.hasEnd,
		ReachedEnd:     m.reachedEnd,
		SeekedPastEnd:  m.seekedPastEnd,
		AutoResume:     m.autoResume,
		ShouldAutoPlay: m.shouldAutoPlay,
		UserPaused:     m.userPaused,
		IsSeeking:      m.isSeeking,
	}
	if m.hasEnd {
		s.EndTime = m.end
	}
	return s
}

func knownDuration(d float64) bool {
	return d > 0 && !math.IsNaN(d) && !math.IsInf(d, 0)
}
