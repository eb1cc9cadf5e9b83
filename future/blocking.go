package future

import (
	"github.com/goto-opensource/asyncly-sub000"
	"github.com/goto-opensource/asyncly-sub000/executor"
)

// BlockingWait crosses from synchronous code into the runtime: it installs
// a temporary inline-executor bridge as the calling goroutine's current
// executor, attaches an observer to f, and parks the caller on a buffered
// channel until f settles. It must not be called from a goroutine that
// already has a current executor — doing so would block a runtime-owned
// goroutine the scheduler or an executor depends on.
func BlockingWait[T any](f Future[T]) (T, error) {
	var zero T
	if _, err := asyncly.GetCurrentExecutor(); err == nil {
		return zero, usageErrorf("blocking_wait called from within the runtime")
	}

	bridge := executor.NewInline()
	asyncly.SetCurrentExecutor(bridge.Weak())
	defer asyncly.ClearCurrentExecutor()

	return waitOn(f, bridge)
}

// BlockingWaitFunc posts fn to exec, waits for the future fn returns to
// settle, and delivers its value or error to the caller. fn itself runs on
// exec (with exec as its current executor), so it can freely chain
// continuations; only the calling goroutine blocks. Like BlockingWait, it
// must not be called from a goroutine that already has a current executor.
func BlockingWaitFunc[T any](exec asyncly.Executor, fn func() Future[T]) (T, error) {
	var zero T
	if _, err := asyncly.GetCurrentExecutor(); err == nil {
		return zero, usageErrorf("blocking_wait called from within the runtime")
	}

	type settlement struct {
		v   T
		err error
	}
	ch := make(chan settlement, 1)

	err := exec.Post(asyncly.NewTask(func() {
		f := fn()
		_ = f.core.observe(
			func(v T) { ch <- settlement{v: v} },
			func(e error) { ch <- settlement{err: e} },
			exec,
		)
	}))
	if err != nil {
		return zero, err
	}

	s := <-ch
	return s.v, s.err
}

// BlockingWaitAll is BlockingWait(WhenAll(futures...)): it blocks until
// every input future resolves, or returns the first error to arrive.
func BlockingWaitAll[T any](futures ...Future[T]) ([]T, error) {
	if _, err := asyncly.GetCurrentExecutor(); err == nil {
		return nil, usageErrorf("blocking_wait_all called from within the runtime")
	}

	bridge := executor.NewInline()
	asyncly.SetCurrentExecutor(bridge.Weak())
	defer asyncly.ClearCurrentExecutor()

	return waitOn(WhenAll(futures...), bridge)
}

func waitOn[T any](f Future[T], bridge asyncly.Executor) (T, error) {
	type settlement struct {
		v   T
		err error
	}
	ch := make(chan settlement, 1)

	_ = f.core.observe(
		func(v T) { ch <- settlement{v: v} },
		func(e error) { ch <- settlement{err: e} },
		bridge,
	)

	s := <-ch
	return s.v, s.err
}
