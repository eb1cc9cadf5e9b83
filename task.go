package asyncly

import (
	"fmt"
	"sync"
)

// Task is a type-erased unit of work carrying an optional weak reference to
// the executor that first posted it. Invoking the task installs the
// current-executor context for the callable's duration, then runs the
// callable exactly once and releases it — so resources captured by the
// callable are freed on the executor's own goroutine, not the caller's.
type Task struct {
	mu      sync.Mutex
	fn      func()
	exec    WeakExecutor
	execSet bool
}

// NewTask wraps fn as a [Task]. fn must not be nil.
func NewTask(fn func()) *Task {
	return &Task{fn: fn}
}

// MaybeSetExecutor records exec as the task's owning executor. Subsequent
// calls are ignored — the outermost wrapper wins, so a strand or other
// decorator forwarding a user's task down the stack never loses track of
// the user's original executor.
func (t *Task) MaybeSetExecutor(exec WeakExecutor) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.execSet {
		t.exec = exec
		t.execSet = true
	}
}

// Executor resolves the task's owning executor, if one was set and it is
// still reachable.
func (t *Task) Executor() (Executor, bool) {
	t.mu.Lock()
	exec, set := t.exec, t.execSet
	t.mu.Unlock()
	if !set {
		return nil, false
	}
	return exec.Resolve()
}

// Invoke runs the task's callable once, installing the current-executor
// context around the call when runningOn is non-nil. Invoking an empty
// (already-invoked) task is a usage error. A panic inside the callable is
// recovered and returned as an error; the task is still considered to have
// run (it is never re-queued).
func (t *Task) Invoke(runningOn Executor) (err error) {
	t.mu.Lock()
	fn := t.fn
	t.fn = nil
	t.mu.Unlock()

	if fn == nil {
		return usageErrorf("invoking an empty task")
	}

	if runningOn != nil {
		pushCurrentExecutor(runningOn)
		defer popCurrentExecutor()
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("asyncly: task panicked: %v", r)
		}
	}()

	fn()
	return nil
}
