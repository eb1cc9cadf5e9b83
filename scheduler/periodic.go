package scheduler

import (
	"time"

	"github.com/goto-opensource/asyncly-sub000"
)

// Periodic is the periodic-task driver, built on top of
// ExecuteAt: it schedules fn to run at post_time + n·period until
// cancelled, advancing its own notion of the next deadline exactly (no
// drift) rather than recomputing "now + period" on every tick, so a lagged
// wakeup cannot shrink the effective period.
//
// The PostPeriodically methods of ThreadPool, Strand and External are thin
// wrappers around this function, built on that executor's own Scheduler
// (Inline rejects periodic posts instead).
func Periodic(target asyncly.Executor, period time.Duration, fn func()) (*asyncly.AutoCancelable, error) {
	if period <= 0 {
		return nil, usageErrorf("periodic task period must be positive")
	}
	if fn == nil {
		return nil, usageErrorf("periodic task callable must not be nil")
	}

	sched := target.Scheduler()
	if sched == nil {
		return nil, usageErrorf("executor has no scheduler to drive periodic tasks")
	}

	cancel := asyncly.NewCancelable()
	weakTarget := target.Weak()

	var tick func(expiry time.Time)
	tick = func(expiry time.Time) {
		task := asyncly.NewTask(func() {
			if cancel.Cancelled() {
				return
			}
			fn()
			if cancel.Cancelled() {
				return
			}
			tick(expiry.Add(period))
		})
		sched.ExecuteAt(weakTarget, expiry, task)
	}
	tick(sched.Now().Add(period))

	return asyncly.NewAutoCancelable(cancel), nil
}
