package enforcement

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// DefaultTolerance absorbs keyframe-seek imprecision when positions are
// compared against a boundary, in seconds.
const DefaultTolerance = 0.05

// Options configures a Machine.
type Options struct {
	// Tolerance in seconds used for boundary comparisons.
	Tolerance float64
	// SettleWindow bounds how long an expected signal from a system-initiated
	// pause, seek or play is waited for before the expectation is dropped.
	SettleWindow time.Duration
	// ResetWindow is how long time updates are ignored after playback was
	// restarted from the end boundary, and how long a bypass seek past the
	// end is remembered.
	ResetWindow time.Duration

	// Scheduler runs the deferred resets. Required.
	Scheduler Scheduler
	// Logger receives state transitions at debug level. May be nil.
	Logger *zap.Logger
	// Label identifies the element in log output.
	Label string
	// OnRange is called with the resolved range once the duration is known,
	// for drawing a timeline overlay. end is +Inf for an open range.
	OnRange func(start, end float64)
}

// DefaultOptions returns options with the default tolerance and windows. The
// caller still has to provide a Scheduler.
func DefaultOptions() Options {
	return Options{
		Tolerance:    DefaultTolerance,
		SettleWindow: 100 * time.Millisecond,
		ResetWindow:  500 * time.Millisecond,
	}
}

// Validate checks the options.
func (o Options) Validate() error {
	var errs error
	if o.Tolerance < 0 {
		errs = multierr.Append(errs, fmt.Errorf("tolerance must be non-negative, got %v", o.Tolerance))
	}
	if o.SettleWindow <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("settle window must be positive, got %v", o.SettleWindow))
	}
	if o.ResetWindow <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("reset window must be positive, got %v", o.ResetWindow))
	}
	if o.Scheduler == nil {
		errs = multierr.Append(errs, errors.New("scheduler is required"))
	}
	return errs
}
