package executor

import (
	"github.com/goto-opensource/asyncly-sub000"
	"github.com/goto-opensource/asyncly-sub000/internal/xlog"
)

// options configures the constructors in this package, following the same
// functional-options shape used by the scheduler package.
type options struct {
	scheduler asyncly.Scheduler
	onStart   func()
	logger    *xlog.Logger
}

// Option configures a [ThreadPool] or [External] executor.
type Option interface {
	apply(*options)
}

type optionFunc func(*options)

func (f optionFunc) apply(o *options) { f(o) }

// WithScheduler supplies an externally-owned [asyncly.Scheduler] instead of
// letting the executor create and drive its own. The caller remains
// responsible for calling Run/Stop on a supplied scheduler; the executor
// will not stop it on Finish.
func WithScheduler(sched asyncly.Scheduler) Option {
	return optionFunc(func(o *options) { o.scheduler = sched })
}

// WithWorkerInit registers a callback run once on each worker goroutine
// before it starts pulling tasks (pinning, naming, per-worker setup).
func WithWorkerInit(fn func()) Option {
	return optionFunc(func(o *options) { o.onStart = fn })
}

// WithLogger attaches a structured logger used for conditions the executor
// cannot otherwise surface to the caller (a task that panicked, a stage
// that ran after the inner executor already stopped). Defaults to
// xlog.Default.
func WithLogger(l *xlog.Logger) Option {
	return optionFunc(func(o *options) { o.logger = l })
}

func resolveOptions(opts []Option) *options {
	cfg := &options{logger: xlog.Default}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt.apply(cfg)
	}
	return cfg
}
