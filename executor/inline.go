// Package executor implements the concrete [asyncly.Executor] kinds: a
// fixed-size worker pool, a serializing strand over any inner executor, a
// host-driven external-event executor, and a synchronous inline executor.
package executor

import (
	"time"

	"github.com/goto-opensource/asyncly-sub000"
	"github.com/goto-opensource/asyncly-sub000/scheduler"
)

// Inline runs every posted task synchronously, on the caller's own
// goroutine, inside Post itself. Timed posts are rejected: an inline
// executor has no driver of its own to advance time against.
type Inline struct {
	sched asyncly.Scheduler
}

var _ asyncly.Executor = (*Inline)(nil)

// NewInline creates an Inline executor. It carries a [scheduler.Scheduler]
// purely so Scheduler() has something non-nil to return (PostAt/PostAfter/
// PostPeriodically all still reject with ErrTimedPostUnsupported); nothing
// ever drives that scheduler's Run loop.
func NewInline() *Inline {
	return &Inline{sched: scheduler.New()}
}

func (e *Inline) Now() time.Time { return e.sched.Now() }

// Post runs t synchronously and returns whatever error Invoke produced.
func (e *Inline) Post(t *asyncly.Task) error {
	return t.Invoke(e)
}

// ErrTimedPostUnsupported is returned by Inline's PostAt, PostAfter, and
// PostPeriodically.
var ErrTimedPostUnsupported = asyncly.Tag(asyncly.ErrUsage, "inline executor does not support timed posts")

func (e *Inline) PostAt(time.Time, *asyncly.Task) (*asyncly.Cancelable, error) {
	return nil, ErrTimedPostUnsupported
}

func (e *Inline) PostAfter(time.Duration, *asyncly.Task) (*asyncly.Cancelable, error) {
	return nil, ErrTimedPostUnsupported
}

func (e *Inline) PostPeriodically(time.Duration, func()) (*asyncly.AutoCancelable, error) {
	return nil, ErrTimedPostUnsupported
}

func (e *Inline) Scheduler() asyncly.Scheduler { return e.sched }

func (e *Inline) IsSerializing() bool { return true }

func (e *Inline) Weak() asyncly.WeakExecutor { return asyncly.NewWeak(e) }
