package asyncly

import "time"

// Executor accepts [Task] values and eventually runs them, with a defined
// threading model. All of the concrete implementations (thread pool,
// strand, external-event, inline) live in package executor; this interface
// is what the rest of the runtime — the scheduler, the future engine, the
// Wrap helpers — depends on.
type Executor interface {
	// Now returns the executor's notion of the current time, which is the
	// time its Scheduler measures deadlines against.
	Now() time.Time

	// Post enqueues t for execution. Returns ErrExecutorStopped if the
	// executor has already finished shutting down.
	Post(t *Task) error

	// PostAt schedules t to run at deadline. Equivalent to posting through
	// the executor's Scheduler with this executor as the weak target.
	PostAt(deadline time.Time, t *Task) (*Cancelable, error)

	// PostAfter schedules t to run after d elapses.
	PostAfter(d time.Duration, t *Task) (*Cancelable, error)

	// PostPeriodically schedules fn to run every period until the returned
	// handle is cancelled or dropped (auto-cancelable semantics).
	PostPeriodically(period time.Duration, fn func()) (*AutoCancelable, error)

	// Scheduler returns the Scheduler this executor posts timed work
	// through.
	Scheduler() Scheduler

	// IsSerializing reports whether the executor guarantees at most one
	// task runs at a time, in post order (true for a single-worker thread
	// pool, a strand, the inline executor, and the external-event
	// executor).
	IsSerializing() bool

	// Weak returns a weak reference to this executor, for storing in a
	// Task or a Scheduler entry without extending the executor's lifetime.
	Weak() WeakExecutor
}

// Scheduler is the time-ordered dispatcher that feeds an executor at future
// points in time. The default implementation lives in package scheduler;
// this interface is what executors depend on so a custom driver (e.g. one
// built on a host network library's timer primitive) can be substituted.
type Scheduler interface {
	// Now returns the scheduler's steady clock reading.
	Now() time.Time

	// ExecuteAt inserts t into the heap, to be forwarded to target at
	// deadline.
	ExecuteAt(target WeakExecutor, deadline time.Time, t *Task) *Cancelable

	// ExecuteAfter is ExecuteAt(target, Now()+d, t).
	ExecuteAfter(target WeakExecutor, d time.Duration, t *Task) *Cancelable

	// Run drives the scheduler until Stop is called. It is safe to call
	// Run from a dedicated goroutine; a host loop that prefers to drive the
	// scheduler itself can instead call the scheduler's PrepareElapse/
	// Elapse pair directly (see package scheduler).
	Run()

	// Stop requests the driver loop started by Run to exit. Safe to call
	// from any goroutine, any number of times.
	Stop()
}
