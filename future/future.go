// Package future implements the read-end/write-end future/promise engine:
// a strict one-continuation/one-error-handler state machine built around
// Go generics, with an explicit error as the rejection reason.
//
// A Future[T] is in exactly one of four states — Ready, Resolved, Rejected,
// Continued. Settling a promise on one
// goroutine never runs the downstream continuation inline: it posts a task
// to the executor that was current when the continuation was attached, so
// Future.Then is safe to call from any goroutine and a continuation always
// runs on the executor its author expected.
package future

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/goto-opensource/asyncly-sub000"
	"github.com/goto-opensource/asyncly-sub000/internal/xlog"
)

// Void is the value type of a future that carries no value: a
// Future[Void]/Promise[Void] pair signals completion only.
type Void = struct{}

// ErrTimeout is re-exported from asyncly for call-site convenience; it is
// the error AddTimeout rejects with when its deadline elapses first.
var ErrTimeout = asyncly.ErrTimeout

func usageErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", asyncly.ErrUsage, fmt.Sprintf(format, args...))
}

type phase int8

const (
	phaseReady phase = iota
	phaseResolved
	phaseRejected
	phaseContinued
)

// futureCore is the shared state behind both Future[T] and Promise[T]; the
// two exported types are thin, differently-restricted views over the same
// pointer.
type futureCore[T any] struct {
	mu sync.Mutex
	ph phase

	// id exists purely for log correlation: tying a panic or a rejection
	// logged from one continuation back to the future it belongs to.
	id uuid.UUID

	value T
	err   error

	hasThen  bool
	thenFn   func(T)
	thenExec asyncly.Executor
	// forward is the back-pointer to the downstream error sink:
	// set when Then creates a downstream future, it carries an
	// upstream rejection onward when this future itself has no error
	// handler attached (or has a non-breaking one).
	forward func(error)

	hasCatch    bool
	catchFn     func(error)
	catchExec   asyncly.Executor
	breaksChain bool

	logger *xlog.Logger
}

func newCore[T any](logger *xlog.Logger) *futureCore[T] {
	return &futureCore[T]{id: uuid.New(), logger: xlog.OrDefault(logger)}
}

func dispatch(exec asyncly.Executor, fn func()) {
	_ = exec.Post(asyncly.NewTask(fn))
}

func (c *futureCore[T]) setValue(v T) error {
	c.mu.Lock()
	if c.ph != phaseReady {
		c.mu.Unlock()
		return usageErrorf("promise already settled")
	}
	if c.hasThen {
		fn, exec := c.thenFn, c.thenExec
		c.ph = phaseContinued
		c.thenFn = nil
		c.thenExec = nil
		c.catchFn = nil
		c.catchExec = nil
		c.mu.Unlock()
		dispatch(exec, func() { fn(v) })
		return nil
	}
	// The error branch will never be taken; release its handler now so
	// anything it captured is freed without waiting for the whole future
	// to become unreachable.
	c.catchFn = nil
	c.catchExec = nil
	c.value = v
	c.ph = phaseResolved
	c.mu.Unlock()
	return nil
}

func (c *futureCore[T]) setException(e error) error {
	c.mu.Lock()
	if c.ph != phaseReady {
		c.mu.Unlock()
		return usageErrorf("promise already settled")
	}
	if c.hasCatch {
		fn, exec, breaks, forward := c.catchFn, c.catchExec, c.breaksChain, c.forward
		c.ph = phaseContinued
		c.thenFn = nil
		c.thenExec = nil
		c.catchFn = nil
		c.catchExec = nil
		c.mu.Unlock()
		dispatch(exec, func() { fn(e) })
		if !breaks && forward != nil {
			forward(e)
		}
		return nil
	}
	// The value branch will never be taken; release any attached
	// continuation now so resources it captured are freed as soon as the
	// rejection lands, not when the future is collected.
	forward := c.forward
	c.thenFn = nil
	c.thenExec = nil
	c.err = e
	c.ph = phaseRejected
	c.mu.Unlock()
	if forward != nil {
		forward(e)
	}
	return nil
}

// attachThen registers fn as the value continuation and forward as the
// downstream error sink. At most one Then ever; a Then attached
// to an already-Rejected or already-Continued future is a silent no-op
// (the chain is broken, or there is nothing left to continue).
func (c *futureCore[T]) attachThen(fn func(T), exec asyncly.Executor, forward func(error)) error {
	c.mu.Lock()
	if c.hasThen {
		c.mu.Unlock()
		return usageErrorf("then already attached to this future")
	}
	switch c.ph {
	case phaseReady:
		c.hasThen = true
		c.thenFn = fn
		c.thenExec = exec
		c.forward = forward
		c.mu.Unlock()
		return nil
	case phaseResolved:
		v := c.value
		c.ph = phaseContinued
		c.mu.Unlock()
		dispatch(exec, func() { fn(v) })
		return nil
	default: // phaseRejected, phaseContinued
		c.mu.Unlock()
		return nil
	}
}

// attachCatch registers fn as the error handler. breaksChain distinguishes
// CatchError (true: upstream errors go only to fn) from
// CatchAndForwardError (false: fn runs and the error is additionally
// forwarded downstream).
func (c *futureCore[T]) attachCatch(fn func(error), exec asyncly.Executor, breaksChain bool) error {
	c.mu.Lock()
	if c.hasCatch {
		c.mu.Unlock()
		return usageErrorf("error handler already attached to this future")
	}
	switch c.ph {
	case phaseReady:
		c.hasCatch = true
		c.catchFn = fn
		c.catchExec = exec
		c.breaksChain = breaksChain
		c.mu.Unlock()
		return nil
	case phaseRejected:
		e := c.err
		forward := c.forward
		c.ph = phaseContinued
		c.mu.Unlock()
		dispatch(exec, func() { fn(e) })
		if !breaksChain && forward != nil {
			forward(e)
		}
		return nil
	default: // phaseResolved, phaseContinued
		c.mu.Unlock()
		return nil
	}
}

// observe attaches both a value and an error callback atomically: used
// internally by the combinators in combinators.go, which need to react to
// whichever branch settles without the public then-vs-catch split (and
// without the risk of the two public attach calls racing a concurrent
// Set*). It bypasses forward entirely — the caller's onErr is the only
// sink, so there is nothing further to propagate.
func (c *futureCore[T]) observe(onValue func(T), onErr func(error), exec asyncly.Executor) error {
	c.mu.Lock()
	if c.hasThen || c.hasCatch {
		c.mu.Unlock()
		return usageErrorf("future already has a continuation or handler attached")
	}
	switch c.ph {
	case phaseReady:
		c.hasThen = true
		c.thenFn = onValue
		c.thenExec = exec
		c.hasCatch = true
		c.catchFn = onErr
		c.catchExec = exec
		c.breaksChain = true
		c.mu.Unlock()
		return nil
	case phaseResolved:
		v := c.value
		c.ph = phaseContinued
		c.mu.Unlock()
		dispatch(exec, func() { onValue(v) })
		return nil
	case phaseRejected:
		e := c.err
		c.ph = phaseContinued
		c.mu.Unlock()
		dispatch(exec, func() { onErr(e) })
		return nil
	default: // phaseContinued
		c.mu.Unlock()
		return nil
	}
}

// Future is the read-end of a single asynchronous value or error. The
// zero value is not usable; obtain one from [New], [Resolved],
// [Rejected], or a combinator in this package.
type Future[T any] struct {
	core *futureCore[T]
}

// Promise is the write-end paired with a [Future] returned by [New].
// SetValue and SetException may each be called at most once between them;
// a second call of either returns asyncly.ErrUsage.
type Promise[T any] struct {
	core *futureCore[T]
}

// New creates a lazy future/promise pair: no value or error has been
// produced yet.
func New[T any](opts ...Option) (Future[T], Promise[T]) {
	cfg := resolveOptions(opts)
	c := newCore[T](cfg.logger)
	return Future[T]{core: c}, Promise[T]{core: c}
}

// Resolved returns a future already settled with value v.
func Resolved[T any](v T) Future[T] {
	c := newCore[T](nil)
	c.ph = phaseResolved
	c.value = v
	return Future[T]{core: c}
}

// Rejected returns a future already settled with error err. A nil err is
// promoted to a generic error so the rejected branch always has a
// non-nil cause to deliver.
func Rejected[T any](err error) Future[T] {
	if err == nil {
		err = errors.New("asyncly: rejected with a nil error")
	}
	c := newCore[T](nil)
	c.ph = phaseRejected
	c.err = err
	return Future[T]{core: c}
}

// RejectedString is [Rejected] for a plain message, matching the source's
// "strings ... are promoted to a runtime-error exception" constructor.
func RejectedString[T any](msg string) Future[T] {
	return Rejected[T](errors.New(msg))
}

// SetValue settles the paired future with v. Returns asyncly.ErrUsage if
// the promise was already settled.
func (p Promise[T]) SetValue(v T) error { return p.core.setValue(v) }

// SetException settles the paired future with err. Returns
// asyncly.ErrUsage if the promise was already settled.
func (p Promise[T]) SetException(err error) error { return p.core.setException(err) }

// Future returns the read-end paired with p, for APIs that hold onto a
// Promise and want to hand the matching Future to a caller later.
func (p Promise[T]) Future() Future[T] { return Future[T]{core: p.core} }

func recoverInto[T any](p Promise[T], logger *xlog.Logger, id uuid.UUID) {
	if r := recover(); r != nil {
		logger.Warning().Str("future_id", id.String()).Log("future stage panicked")
		_ = p.SetException(fmt.Errorf("asyncly: future stage panicked: %v", r))
	}
}

// Then attaches a value continuation to f, producing a fresh downstream
// future for fn's result. Preconditions: no prior Then on f, and the
// calling goroutine must have a current executor (captured at attach
// time, not at resolution time) — violating either yields a future
// pre-rejected with the corresponding error rather than panicking, so a
// caller can still observe the failure through the normal future API.
//
// If fn panics, the downstream future is rejected with that panic instead
// of crashing the executor that runs fn.
func Then[T, U any](f Future[T], fn func(T) U) Future[U] {
	down, downP := New[U]()
	exec, err := asyncly.GetCurrentExecutor()
	if err != nil {
		_ = downP.SetException(err)
		return down
	}
	logger := f.core.logger
	wrapped := func(v T) {
		defer recoverInto(downP, logger, down.core.id)
		_ = downP.SetValue(fn(v))
	}
	forward := func(e error) { _ = downP.SetException(e) }
	if aerr := f.core.attachThen(wrapped, exec, forward); aerr != nil {
		_ = downP.SetException(aerr)
	}
	return down
}

// ThenFuture is Then for a continuation that itself returns a Future[U],
// flattened: the downstream future settles with the inner future's
// eventual result, not with the inner future itself.
func ThenFuture[T, U any](f Future[T], fn func(T) Future[U]) Future[U] {
	down, downP := New[U]()
	exec, err := asyncly.GetCurrentExecutor()
	if err != nil {
		_ = downP.SetException(err)
		return down
	}
	logger := f.core.logger
	wrapped := func(v T) {
		defer recoverInto(downP, logger, down.core.id)
		inner := fn(v)
		// inner.Then is attached from inside a task already running on
		// exec (Task.Invoke installed the current-executor context), so
		// this resolves to the same exec without threading it through.
		innerExec, ierr := asyncly.GetCurrentExecutor()
		if ierr != nil {
			innerExec = exec
		}
		_ = inner.core.attachThen(
			func(u U) { _ = downP.SetValue(u) },
			innerExec,
			func(e error) { _ = downP.SetException(e) },
		)
	}
	forward := func(e error) { _ = downP.SetException(e) }
	if aerr := f.core.attachThen(wrapped, exec, forward); aerr != nil {
		_ = downP.SetException(aerr)
	}
	return down
}

// CatchError attaches an error handler to f that breaks the error chain:
// an upstream error goes only to h, never downstream (any Then attached to
// f never runs, and its own continuation is released unused). Precondition:
// no prior error-handler on f.
//
// A panic inside h is recovered, logged, and otherwise swallowed: an
// error raised by the error handler itself has nowhere left to go.
func CatchError[T any](f Future[T], h func(error)) error {
	return attachCatch(f, h, true)
}

// CatchAndForwardError attaches an error handler to f that does not break
// the chain: h runs and the error is additionally forwarded to any
// downstream future created by a prior or later Then on f.
func CatchAndForwardError[T any](f Future[T], h func(error)) error {
	return attachCatch(f, h, false)
}

func attachCatch[T any](f Future[T], h func(error), breaksChain bool) error {
	exec, err := asyncly.GetCurrentExecutor()
	if err != nil {
		return err
	}
	logger := f.core.logger
	id := f.core.id
	wrapped := func(e error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Warning().Str("future_id", id.String()).Log("catch_error handler panicked; swallowed")
			}
		}()
		h(e)
	}
	return f.core.attachCatch(wrapped, exec, breaksChain)
}
