package executor

import (
	"sync"
	"time"

	"github.com/goto-opensource/asyncly-sub000"
	"github.com/goto-opensource/asyncly-sub000/internal/xlog"
	"github.com/goto-opensource/asyncly-sub000/scheduler"
)

// External is driven by a host event loop rather than by goroutines of its
// own: Post only enqueues, and RunOnce — called by the host, on whatever
// thread the host's own loop runs on — is what actually invokes tasks. The
// queue is double-buffered: Post appends to a back
// buffer under a mutex, and RunOnce swaps that buffer out for a fresh one
// and drains the swapped-out buffer without holding the lock, so posts made
// while draining land in the next RunOnce instead of blocking behind it.
type External struct {
	mu      sync.Mutex
	back    []*asyncly.Task
	stopped bool

	// wake, if set, is called at most once per idle-to-nonempty transition:
	// a Post that finds the back buffer empty calls wake after releasing
	// the lock, so the host can schedule a RunOnce. A Post that finds the
	// buffer already non-empty assumes a RunOnce is already pending and
	// stays silent.
	wake func()

	sched     asyncly.Scheduler
	ownsSched bool
	logger    *xlog.Logger
}

var _ asyncly.Executor = (*External)(nil)

// NewExternal creates an External executor. wake may be nil, in which case
// the host is expected to call RunOnce on its own schedule (e.g. once per
// iteration of an existing loop) rather than being notified of new work.
func NewExternal(wake func(), opts ...Option) *External {
	cfg := resolveOptions(opts)

	e := &External{wake: wake, sched: cfg.scheduler, logger: xlog.OrDefault(cfg.logger)}
	if e.sched == nil {
		e.sched = scheduler.New()
		e.ownsSched = true
		go e.sched.Run()
	}
	return e
}

func (e *External) Now() time.Time { return e.sched.Now() }

// Post appends t to the back buffer. If the buffer was empty beforehand,
// wake is invoked (outside the lock) to prompt the host to call RunOnce.
func (e *External) Post(t *asyncly.Task) error {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return asyncly.ErrExecutorStopped
	}
	t.MaybeSetExecutor(e.Weak())
	wasEmpty := len(e.back) == 0
	e.back = append(e.back, t)
	e.mu.Unlock()

	if wasEmpty && e.wake != nil {
		e.wake()
	}
	return nil
}

// PostAt delegates to the executor's scheduler; the fired task is posted
// back through Post like any other, so it still only ever runs inside a
// host-driven RunOnce.
func (e *External) PostAt(deadline time.Time, t *asyncly.Task) (*asyncly.Cancelable, error) {
	return e.sched.ExecuteAt(e.Weak(), deadline, t), nil
}

func (e *External) PostAfter(d time.Duration, t *asyncly.Task) (*asyncly.Cancelable, error) {
	return e.sched.ExecuteAfter(e.Weak(), d, t), nil
}

func (e *External) PostPeriodically(period time.Duration, fn func()) (*asyncly.AutoCancelable, error) {
	return scheduler.Periodic(e, period, fn)
}

func (e *External) Scheduler() asyncly.Scheduler { return e.sched }

func (e *External) IsSerializing() bool { return true }

func (e *External) Weak() asyncly.WeakExecutor { return asyncly.NewWeak(e) }

// RunOnce swaps out the back buffer for a fresh one, then invokes every
// task that was queued at the moment of the swap, without holding the lock
// — so a task that calls Post itself lands in the next buffer rather than
// deadlocking or being lost. It returns the number of tasks invoked.
func (e *External) RunOnce() int {
	e.mu.Lock()
	active := e.back
	e.back = nil
	e.mu.Unlock()

	for _, t := range active {
		if err := t.Invoke(e); err != nil {
			e.logger.Warning().Err(err).Log("task invocation failed")
		}
	}
	return len(active)
}

// Finish stops the executor from accepting further posts. Already-queued
// tasks are left for a final RunOnce; the caller is expected to drain one
// more time after calling Finish. If the executor was given no external
// scheduler, its own scheduler is also stopped.
func (e *External) Finish() {
	e.mu.Lock()
	e.stopped = true
	e.mu.Unlock()

	if e.ownsSched {
		e.sched.Stop()
	}
}
