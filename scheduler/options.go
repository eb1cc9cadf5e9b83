package scheduler

import (
	"time"

	"github.com/goto-opensource/asyncly-sub000"
	"github.com/goto-opensource/asyncly-sub000/internal/xlog"
)

// options holds configuration resolved from a slice of [Option], following
// the functional-options shape used throughout this module.
type options struct {
	clock       asyncly.Clock
	granularity time.Duration
	logger      *xlog.Logger
}

// Option configures a [Scheduler].
type Option interface {
	apply(*options)
}

type optionFunc func(*options)

func (f optionFunc) apply(o *options) { f(o) }

// WithClock substitutes the scheduler's notion of "now", for tests that
// drive a fake clock deterministically instead of depending on wall-clock
// timing.
func WithClock(clock asyncly.Clock) Option {
	return optionFunc(func(o *options) { o.clock = clock })
}

// WithGranularity bounds how long the default driver loop (Run) may sleep
// between PrepareElapse/Elapse passes when nothing is due sooner. The
// default is 15ms.
func WithGranularity(d time.Duration) Option {
	return optionFunc(func(o *options) { o.granularity = d })
}

// WithLogger attaches a structured logger used to report scheduled entries
// dropped during Elapse (cancelled, or whose target executor is no longer
// reachable or has stopped accepting work). Defaults to xlog.Default.
func WithLogger(l *xlog.Logger) Option {
	return optionFunc(func(o *options) { o.logger = l })
}

func resolveOptions(opts []Option) *options {
	cfg := &options{
		clock:       asyncly.SystemClock{},
		granularity: 15 * time.Millisecond,
		logger:      xlog.Default,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt.apply(cfg)
	}
	return cfg
}
