package executor

import (
	"sync"
	"time"

	"github.com/goto-opensource/asyncly-sub000"
	"github.com/goto-opensource/asyncly-sub000/internal/xlog"
	"github.com/goto-opensource/asyncly-sub000/scheduler"
)

// Strand serializes access to an inner executor that does not already
// serialize on its own: a two-state (idle/executing) flag plus a back
// queue drained on notify-done. At most one wrapped task is ever in flight
// on the inner executor, and any task posted while one is running is
// queued until it finishes.
type Strand struct {
	inner asyncly.Executor

	mu        sync.Mutex
	executing bool
	backQueue []*asyncly.Task

	logger *xlog.Logger
}

var _ asyncly.Executor = (*Strand)(nil)

// NewStrand wraps inner in a serializing decorator. If inner already
// reports IsSerializing, inner is returned unchanged — stacking a strand
// over an already-serial executor (e.g. a single-worker ThreadPool, or
// another Strand) would only add overhead.
func NewStrand(inner asyncly.Executor, opts ...Option) asyncly.Executor {
	if inner.IsSerializing() {
		return inner
	}
	cfg := resolveOptions(opts)
	return &Strand{inner: inner, logger: xlog.OrDefault(cfg.logger)}
}

func (s *Strand) Now() time.Time { return s.inner.Now() }

// Post forwards t to the inner executor immediately if the strand is idle,
// or appends it to the back queue if a previously-posted task is still
// running. Queued tasks are drained strictly in post order.
func (s *Strand) Post(t *asyncly.Task) error {
	t.MaybeSetExecutor(s.Weak())

	s.mu.Lock()
	if s.executing {
		s.backQueue = append(s.backQueue, t)
		s.mu.Unlock()
		return nil
	}
	s.executing = true
	s.mu.Unlock()

	return s.inner.Post(s.wrap(t))
}

// wrap runs t on the inner executor, then drains the next queued task (or
// flips back to idle) once t has returned.
func (s *Strand) wrap(t *asyncly.Task) *asyncly.Task {
	return asyncly.NewTask(func() {
		if err := t.Invoke(s); err != nil {
			s.logger.Warning().Err(err).Log("strand task invocation failed")
		}
		s.notifyDone()
	})
}

// notifyDone posts the next queued task to the inner executor, flipping back
// to idle once the back queue is empty. If the inner executor has stopped
// accepting work, each queued task is dropped in turn (not just the one that
// failed) until either a post succeeds or the queue drains.
func (s *Strand) notifyDone() {
	for {
		s.mu.Lock()
		if len(s.backQueue) == 0 {
			s.executing = false
			s.mu.Unlock()
			return
		}
		next := s.backQueue[0]
		s.backQueue[0] = nil
		s.backQueue = s.backQueue[1:]
		s.mu.Unlock()

		if err := s.inner.Post(s.wrap(next)); err != nil {
			s.logger.Warning().Err(err).Log("strand dropped a queued task: inner executor rejected post")
			continue
		}
		return
	}
}

// PostAt routes through the inner executor's scheduler, with the strand
// itself (not the inner executor) as the weak target, so the fired task
// still serializes against every other strand task.
func (s *Strand) PostAt(deadline time.Time, t *asyncly.Task) (*asyncly.Cancelable, error) {
	sched := s.inner.Scheduler()
	if sched == nil {
		return nil, asyncly.ErrUsage
	}
	return sched.ExecuteAt(s.Weak(), deadline, t), nil
}

func (s *Strand) PostAfter(d time.Duration, t *asyncly.Task) (*asyncly.Cancelable, error) {
	return s.PostAt(s.Now().Add(d), t)
}

func (s *Strand) PostPeriodically(period time.Duration, fn func()) (*asyncly.AutoCancelable, error) {
	return scheduler.Periodic(s, period, fn)
}

func (s *Strand) Scheduler() asyncly.Scheduler { return s.inner.Scheduler() }

// IsSerializing always reports true: that is the entire point of a strand.
func (s *Strand) IsSerializing() bool { return true }

func (s *Strand) Weak() asyncly.WeakExecutor { return asyncly.NewWeak(s) }
