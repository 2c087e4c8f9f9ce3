package enforcement

import (
	"sort"
	"time"
)

// Scheduler runs deferred callbacks. Callbacks must be delivered on the
// goroutine that drives the machine.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) (cancel func())
}

// ManualScheduler is a Scheduler driven by an explicit virtual clock.
// Callbacks run synchronously from Advance.
type ManualScheduler struct {
	now    time.Duration
	seq    int
	timers []*manualTimer
}

type manualTimer struct {
	at  time.Duration
	seq int
	f   func()
}

// NewManualScheduler creates a scheduler at virtual time zero.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

// AfterFunc implements Scheduler.
func (s *ManualScheduler) AfterFunc(d time.Duration, f func()) func() {
	s.seq++
	t := &manualTimer{at: s.now + d, seq: s.seq, f: f}
	s.timers = append(s.timers, t)
	return func() { s.remove(t) }
}

// Advance moves the clock forward by d and runs every callback that became
// due, in deadline order. Callbacks scheduled while advancing run too if
// they fall due within the window.
func (s *ManualScheduler) Advance(d time.Duration) {
	target := s.now + d
	for {
		sort.Slice(s.timers, func(i, j int) bool {
			if s.timers[i].at != s.timers[j].at {
				return s.timers[i].at < s.timers[j].at
			}
			return s.timers[i].seq < s.timers[j].seq
		})
		if len(s.timers) == 0 || s.timers[0].at > target {
			break
		}
		t := s.timers[0]
		s.timers = s.timers[1:]
		s.now = t.at
		t.f()
	}
	s.now = target
}

// Pending returns the number of callbacks not yet run or cancelled.
func (s *ManualScheduler) Pending() int {
	return len(s.timers)
}

// Now returns the virtual time.
func (s *ManualScheduler) Now() time.Duration {
	return s.now
}

func (s *ManualScheduler) remove(t *manualTimer) {
	for i, x := range s.timers {
		if x == t {
			s.timers = append(s.timers[:i], s.timers[i+1:]...)
			return
		}
	}
}
