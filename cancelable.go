package asyncly

import (
	"runtime"
	"sync/atomic"
)

// Cancelable is a two-state handle returned by scheduled posts: armed or
// cancelled. Cancel is idempotent and safe to call concurrently with the
// work it guards starting. The scheduler checks Cancelled in Elapse, just
// before forwarding the task to its target executor, so a Cancel that
// happens-before that check suppresses the invocation. The executor does
// not check it again: a Cancel made after the task has been forwarded
// does not stop it from running.
type Cancelable struct {
	cancelled atomic.Bool
}

// NewCancelable returns a new, armed Cancelable.
func NewCancelable() *Cancelable {
	return &Cancelable{}
}

// Cancel marks the handle cancelled. Safe to call from any goroutine, any
// number of times.
func (c *Cancelable) Cancel() {
	c.cancelled.Store(true)
}

// Cancelled reports whether Cancel has been called.
func (c *Cancelable) Cancelled() bool {
	return c.cancelled.Load()
}

// AutoCancelable owns a [Cancelable] and cancels it when the AutoCancelable
// itself becomes unreachable, giving scope-bound lifetime for periodic
// tasks. Go has no deterministic destructors, so callers should still call
// Close explicitly as soon as the bound lifetime ends; the cleanup
// registered via runtime.AddCleanup is a backstop against a forgotten
// Close, not a substitute for one (it only runs after a GC cycle observes
// the AutoCancelable is unreachable).
type AutoCancelable struct {
	c *Cancelable
}

// NewAutoCancelable wraps c so that cancelling the returned AutoCancelable,
// dropping it (eventually collected by the GC), or explicitly calling
// Close all cancel c exactly once.
func NewAutoCancelable(c *Cancelable) *AutoCancelable {
	ac := &AutoCancelable{c: c}
	runtime.AddCleanup(ac, func(cancelable *Cancelable) {
		cancelable.Cancel()
	}, c)
	return ac
}

// Cancel cancels the underlying handle.
func (a *AutoCancelable) Cancel() {
	a.c.Cancel()
}

// Cancelled reports whether the underlying handle has been cancelled.
func (a *AutoCancelable) Cancelled() bool {
	return a.c.Cancelled()
}

// Close cancels the underlying handle. It always returns nil; the error
// return exists so AutoCancelable satisfies io.Closer for use with
// defer/cleanup helpers that expect one.
func (a *AutoCancelable) Close() error {
	a.c.Cancel()
	return nil
}
