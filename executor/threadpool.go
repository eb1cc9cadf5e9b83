package executor

import (
	"sync"
	"time"

	"github.com/goto-opensource/asyncly-sub000"
	"github.com/goto-opensource/asyncly-sub000/internal/xlog"
	"github.com/goto-opensource/asyncly-sub000/scheduler"
)

// ThreadPool is a condition-variable-guarded FIFO queue shared by a fixed
// number of worker goroutines. Shutdown is two-flag: shutdownRequested
// tells idle workers to drain and exit, stopped is what makes Post start
// rejecting, set only once the drain has finished.
type ThreadPool struct {
	mu                sync.Mutex
	cond              *sync.Cond
	queue             []*asyncly.Task
	shutdownRequested bool
	stopped           bool
	wg                sync.WaitGroup
	workers           int

	sched     asyncly.Scheduler
	ownsSched bool
	logger    *xlog.Logger
}

var _ asyncly.Executor = (*ThreadPool)(nil)

// NewThreadPool starts n worker goroutines sharing one task queue. n must
// be at least 1; a pool of exactly one worker is single-serialized
// (IsSerializing reports true).
func NewThreadPool(n int, opts ...Option) *ThreadPool {
	if n < 1 {
		n = 1
	}
	cfg := resolveOptions(opts)

	tp := &ThreadPool{sched: cfg.scheduler, workers: n, logger: xlog.OrDefault(cfg.logger)}
	tp.cond = sync.NewCond(&tp.mu)

	if tp.sched == nil {
		tp.sched = scheduler.New()
		tp.ownsSched = true
		go tp.sched.Run()
	}

	tp.wg.Add(n)
	for i := 0; i < n; i++ {
		go tp.worker(cfg.onStart)
	}
	return tp
}

func (tp *ThreadPool) worker(onStart func()) {
	defer tp.wg.Done()
	if onStart != nil {
		onStart()
	}
	for {
		tp.mu.Lock()
		for len(tp.queue) == 0 && !tp.shutdownRequested {
			tp.cond.Wait()
		}
		if len(tp.queue) == 0 {
			tp.mu.Unlock()
			return
		}
		task := tp.queue[0]
		tp.queue[0] = nil
		tp.queue = tp.queue[1:]
		tp.mu.Unlock()

		if err := task.Invoke(tp); err != nil {
			tp.logger.Warning().Err(err).Log("task invocation failed")
		}
	}
}

// Now returns the pool's scheduler's clock reading.
func (tp *ThreadPool) Now() time.Time { return tp.sched.Now() }

// Post enqueues t and wakes one idle worker. Rejects with
// ErrExecutorStopped once Finish has completed.
func (tp *ThreadPool) Post(t *asyncly.Task) error {
	tp.mu.Lock()
	if tp.stopped {
		tp.mu.Unlock()
		return asyncly.ErrExecutorStopped
	}
	t.MaybeSetExecutor(tp.Weak())
	tp.queue = append(tp.queue, t)
	tp.cond.Signal()
	tp.mu.Unlock()
	return nil
}

// PostAt delegates to the pool's scheduler, with the pool itself as the
// weak target — when the deadline fires, the task is forwarded back
// through Post like any other.
func (tp *ThreadPool) PostAt(deadline time.Time, t *asyncly.Task) (*asyncly.Cancelable, error) {
	return tp.sched.ExecuteAt(tp.Weak(), deadline, t), nil
}

// PostAfter is PostAt(Now()+d, t).
func (tp *ThreadPool) PostAfter(d time.Duration, t *asyncly.Task) (*asyncly.Cancelable, error) {
	return tp.sched.ExecuteAfter(tp.Weak(), d, t), nil
}

// PostPeriodically is realized by the periodic-task driver in the
// scheduler package, built atop the pool's own timed-post path.
func (tp *ThreadPool) PostPeriodically(period time.Duration, fn func()) (*asyncly.AutoCancelable, error) {
	return scheduler.Periodic(tp, period, fn)
}

func (tp *ThreadPool) Scheduler() asyncly.Scheduler { return tp.sched }

// IsSerializing reports true only for a pool sized to exactly one worker.
func (tp *ThreadPool) IsSerializing() bool {
	return tp.workers == 1
}

func (tp *ThreadPool) Weak() asyncly.WeakExecutor { return asyncly.NewWeak(tp) }

// Finish requests shutdown: already-queued tasks drain to completion,
// Finish blocks until every worker has exited, and from then on Post
// rejects with ErrExecutorStopped (Post still accepts tasks while the
// drain is in progress). If the pool was given no external scheduler, its
// own scheduler is also stopped.
func (tp *ThreadPool) Finish() {
	tp.mu.Lock()
	tp.shutdownRequested = true
	tp.cond.Broadcast()
	tp.mu.Unlock()

	tp.wg.Wait()

	tp.mu.Lock()
	tp.stopped = true
	tp.mu.Unlock()

	if tp.ownsSched {
		tp.sched.Stop()
	}
}
