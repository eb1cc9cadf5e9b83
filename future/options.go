package future

import "github.com/goto-opensource/asyncly-sub000/internal/xlog"

// options configures [New], following the functional-options shape used
// throughout this module (scheduler.Option, executor.Option).
type options struct {
	logger *xlog.Logger
}

// Option configures a lazy future/promise pair created by [New].
type Option interface {
	apply(*options)
}

type optionFunc func(*options)

func (f optionFunc) apply(o *options) { f(o) }

// WithLogger attaches a structured logger used to report panics recovered
// from Then/ThenFuture/CatchError/CatchAndForwardError handlers. Defaults
// to xlog.Default.
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
