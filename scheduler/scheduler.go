// Package scheduler implements the time-ordered dispatcher behind every
// timed post: a min-heap of (deadline, task, weak executor) entries, drained
// in two phases (PrepareElapse moves due entries off the heap under lock,
// Elapse forwards them to their target executors without holding it) so
// that posting a task never blocks behind a forwarding executor that is
// itself slow to accept work.
package scheduler

import (
	"container/heap"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/goto-opensource/asyncly-sub000"
	"github.com/goto-opensource/asyncly-sub000/internal/xlog"
)

// entry is one heap slot: a deadline, a FIFO tiebreaker, the task to
// forward, and a weak reference to its target executor. id exists purely
// for log correlation, so a dropped entry can be tied back to the
// ExecuteAt/ExecuteAfter call that created it.
type entry struct {
	id       uuid.UUID
	deadline time.Time
	seq      uint64
	task     *asyncly.Task
	target   asyncly.WeakExecutor
	cancel   *asyncly.Cancelable
}

type entryHeap []*entry

func (h entryHeap) Len() int { return len(h) }
func (h entryHeap) Less(i, j int) bool {
	if h[i].deadline.Equal(h[j].deadline) {
		return h[i].seq < h[j].seq
	}
	return h[i].deadline.Before(h[j].deadline)
}
func (h entryHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *entryHeap) Push(x any)   { *h = append(*h, x.(*entry)) }
func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return x
}

// Scheduler is the default heap-backed implementation of
// [asyncly.Scheduler].
type Scheduler struct {
	mu          sync.Mutex
	heap        entryHeap
	elapsed     []*entry
	seq         uint64
	clock       asyncly.Clock
	granularity time.Duration
	logger      *xlog.Logger
	stopCh      chan struct{}
	stopOnce    sync.Once
}

var _ asyncly.Scheduler = (*Scheduler)(nil)

// New builds a Scheduler. Its driver loop (started by calling Run) wakes at
// most every granularity when nothing is due sooner; WithClock lets tests
// substitute a fake, manually-advanced clock.
func New(opts ...Option) *Scheduler {
	cfg := resolveOptions(opts)
	return &Scheduler{
		clock:       cfg.clock,
		granularity: cfg.granularity,
		logger:      xlog.OrDefault(cfg.logger),
		stopCh:      make(chan struct{}),
	}
}

// Now returns the scheduler's clock reading.
func (s *Scheduler) Now() time.Time { return s.clock.Now() }

// ExecuteAt inserts t into the heap, to be forwarded to target at deadline.
// Deadlines in the past fire on the very next Elapse; ties among equal
// deadlines break in insertion (FIFO) order.
func (s *Scheduler) ExecuteAt(target asyncly.WeakExecutor, deadline time.Time, t *asyncly.Task) *asyncly.Cancelable {
	c := asyncly.NewCancelable()
	s.mu.Lock()
	s.seq++
	heap.Push(&s.heap, &entry{id: uuid.New(), deadline: deadline, seq: s.seq, task: t, target: target, cancel: c})
	s.mu.Unlock()
	return c
}

// ExecuteAfter is ExecuteAt(target, Now()+d, t).
func (s *Scheduler) ExecuteAfter(target asyncly.WeakExecutor, d time.Duration, t *asyncly.Task) *asyncly.Cancelable {
	return s.ExecuteAt(target, s.Now().Add(d), t)
}

// PrepareElapse moves every heap entry with deadline <= now into the
// elapsed FIFO, under the scheduler's lock. A cancelled entry still
// occupies its heap slot until this phase surfaces it; cleanup is lazy.
func (s *Scheduler) PrepareElapse() {
	now := s.Now()
	s.mu.Lock()
	for len(s.heap) > 0 && !s.heap[0].deadline.After(now) {
		e := heap.Pop(&s.heap).(*entry)
		s.elapsed = append(s.elapsed, e)
	}
	s.mu.Unlock()
}

// Elapse forwards every entry PrepareElapse moved to the FIFO to its target
// executor, without holding the scheduler's lock. Cancelled entries and
// entries whose weak executor no longer resolves (or whose executor has
// stopped accepting posts) are dropped without error.
//
// A forwarded task may itself schedule more work that is already due — a
// periodic tick rescheduling itself behind a lagged clock is the common
// case — so after each batch Elapse pulls newly-due entries off the heap
// and keeps draining until nothing more is due: one PrepareElapse/Elapse
// pair catches the whole cascade. Returns the number of tasks actually
// forwarded.
func (s *Scheduler) Elapse() int {
	n := 0
	for {
		s.mu.Lock()
		batch := s.elapsed
		s.elapsed = nil
		s.mu.Unlock()

		if len(batch) == 0 {
			return n
		}
		for _, e := range batch {
			if e.cancel.Cancelled() {
				s.logger.Trace().Str("entry_id", e.id.String()).Log("dropping cancelled scheduler entry")
				continue
			}
			target, ok := e.target.Resolve()
			if !ok {
				s.logger.Debug().Str("entry_id", e.id.String()).Log("dropping scheduler entry: target executor no longer reachable")
				continue
			}
			if err := target.Post(e.task); err != nil {
				s.logger.Debug().Str("entry_id", e.id.String()).Err(err).Log("dropping scheduler entry: target executor rejected post")
				continue
			}
			n++
		}
		s.PrepareElapse()
	}
}

// NextExpiry reports when the driver loop should next wake: the nearest
// heap deadline, clamped so it never falls before now and never falls
// after limit.
func (s *Scheduler) NextExpiry(limit time.Time) time.Time {
	now := s.Now()
	if limit.Before(now) {
		limit = now
	}

	s.mu.Lock()
	empty := len(s.heap) == 0
	var deadline time.Time
	if !empty {
		deadline = s.heap[0].deadline
	}
	s.mu.Unlock()

	if empty {
		return limit
	}
	if deadline.Before(now) {
		return now
	}
	if deadline.After(limit) {
		return limit
	}
	return deadline
}

// Run drives PrepareElapse/Elapse in a loop, sleeping for at most
// granularity between iterations, until Stop is called. It is meant to run
// on its own goroutine.
func (s *Scheduler) Run() {
	for {
		select {
		case <-s.stopCh:
			return
		default:
		}

		s.PrepareElapse()
		s.Elapse()

		wake := s.NextExpiry(s.Now().Add(s.granularity))
		if d := time.Until(wake); d > 0 {
			timer := time.NewTimer(d)
			select {
			case <-s.stopCh:
				timer.Stop()
				return
			case <-timer.C:
			}
		}
	}
}

// Stop requests the driver loop to exit. Safe to call from any goroutine,
// any number of times.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

func usageErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", asyncly.ErrUsage, fmt.Sprintf(format, args...))
}
