package future

import (
	"runtime"
	"sync"
	"time"

	"github.com/goto-opensource/asyncly-sub000"
)

// WhenAll resolves once every input future resolves, with the values in
// input order, and rejects with the first input error to arrive (later
// errors, and later values, are discarded). An empty input resolves
// immediately with an empty (nil) slice. The single variadic signature
// serves both call shapes: individual futures, or a spread slice with
// "futures...".
func WhenAll[T any](futures ...Future[T]) Future[[]T] {
	out, outP := New[[]T]()
	n := len(futures)
	if n == 0 {
		_ = outP.SetValue(nil)
		return out
	}

	exec, err := asyncly.GetCurrentExecutor()
	if err != nil {
		_ = outP.SetException(err)
		return out
	}

	var mu sync.Mutex
	results := make([]T, n)
	remaining := n
	done := false

	for i, f := range futures {
		i := i
		_ = f.core.observe(
			func(v T) {
				mu.Lock()
				if done {
					mu.Unlock()
					return
				}
				results[i] = v
				remaining--
				r := remaining
				mu.Unlock()
				if r == 0 {
					_ = outP.SetValue(results)
				}
			},
			func(e error) {
				mu.Lock()
				if done {
					mu.Unlock()
					return
				}
				done = true
				mu.Unlock()
				_ = outP.SetException(e)
			},
			exec,
		)
	}
	return out
}

// AnyResult is the settlement of [WhenAny]: the index of the input future
// that settled first, and its value. When the winning input errors instead
// of resolving, the WhenAny future rejects directly with that error rather
// than producing an AnyResult.
type AnyResult[T any] struct {
	Index int
	Value T
}

// WhenAny settles with whichever input future settles first; later
// settlements (value or error) are discarded.
func WhenAny[T any](futures ...Future[T]) Future[AnyResult[T]] {
	out, outP := New[AnyResult[T]]()
	if len(futures) == 0 {
		_ = outP.SetException(usageErrorf("when_any requires at least one input future"))
		return out
	}

	exec, err := asyncly.GetCurrentExecutor()
	if err != nil {
		_ = outP.SetException(err)
		return out
	}

	var once sync.Once
	for i, f := range futures {
		i := i
		_ = f.core.observe(
			func(v T) {
				once.Do(func() { _ = outP.SetValue(AnyResult[T]{Index: i, Value: v}) })
			},
			func(e error) {
				once.Do(func() { _ = outP.SetException(e) })
			},
			exec,
		)
	}
	return out
}

// Split duplicates f's eventual value or error into two independent
// futures, each continuable on its own. Requires a current executor at
// the point Split is called (it attaches an internal observer to f).
func Split[T any](f Future[T]) (Future[T], Future[T]) {
	out1, p1 := New[T]()
	out2, p2 := New[T]()

	exec, err := asyncly.GetCurrentExecutor()
	if err != nil {
		_ = p1.SetException(err)
		_ = p2.SetException(err)
		return out1, out2
	}

	_ = f.core.observe(
		func(v T) {
			_ = p1.SetValue(v)
			_ = p2.SetValue(v)
		},
		func(e error) {
			_ = p1.SetException(e)
			_ = p2.SetException(e)
		},
		exec,
	)
	return out1, out2
}

// AddTimeout races f against a timer of duration d, rejecting with
// [ErrTimeout] if the timer elapses first. Implemented as a race over a
// split branch, so f's own errors stay distinct from ErrTimeout: f is
// split, one branch races the timer, and whichever settles first cancels
// the other side's effect (the timer is cancelled once f settles; f's
// continuation is simply never observed again once the timer wins).
//
// AddTimeout requires a current executor, which it also uses to schedule
// the timer via PostAfter.
func AddTimeout[T any](d time.Duration, f Future[T]) Future[T] {
	exec, err := asyncly.GetCurrentExecutor()
	if err != nil {
		return Rejected[T](err)
	}

	fa, _ := Split(f)

	out, outP := New[T]()
	var once sync.Once

	timerCancel, perr := exec.PostAfter(d, asyncly.NewTask(func() {
		once.Do(func() { _ = outP.SetException(ErrTimeout) })
	}))
	if perr != nil {
		return Rejected[T](perr)
	}

	_ = fa.core.observe(
		func(v T) {
			timerCancel.Cancel()
			once.Do(func() { _ = outP.SetValue(v) })
		},
		func(e error) {
			timerCancel.Cancel()
			once.Do(func() { _ = outP.SetException(e) })
		},
		exec,
	)
	return out
}

// WhenThen plumbs f's eventual result into p.
func WhenThen[T any](f Future[T], p Promise[T]) error {
	exec, err := asyncly.GetCurrentExecutor()
	if err != nil {
		return err
	}
	return f.core.observe(
		func(v T) { _ = p.SetValue(v) },
		func(e error) { _ = p.SetException(e) },
		exec,
	)
}

// LazyOneTimeInitializer wraps a zero-arg function returning a Future[T];
// Get invokes fn on first call (then releases it) and internally uses
// Split so every call — including the first — returns an independent copy
// of the eventual value. Not safe for concurrent Get calls from multiple
// goroutines at once; intended for use from within a single strand or
// serializing executor.
type LazyOneTimeInitializer[T any] struct {
	mu      sync.Mutex
	fn      func() Future[T]
	master  Future[T]
	started bool
}

// NewLazyOneTimeInitializer wraps fn.
func NewLazyOneTimeInitializer[T any](fn func() Future[T]) *LazyOneTimeInitializer[T] {
	return &LazyOneTimeInitializer[T]{fn: fn}
}

// Get invokes fn on the first call across the lifetime of l, caching its
// result; every call, including the first, returns its own independent
// branch obtained via Split.
func (l *LazyOneTimeInitializer[T]) Get() Future[T] {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.started {
		l.started = true
		fn := l.fn
		l.fn = nil
		l.master = fn()
	}

	a, b := Split(l.master)
	l.master = a
	return b
}

// LazyValue is a write-once cell with multi-reader fan-out: a Promise
// wrapper whose destructor (a GC cleanup, since Go has no deterministic
// destructors) rejects with a "no value was set" error if the value was
// never set before l became unreachable. Call Close explicitly as soon as
// the cell's bound lifetime ends rather than relying on the cleanup, which
// only fires after a GC cycle observes l unreachable — mirrors
// asyncly.AutoCancelable's own backstop-vs-explicit-Close discipline.
type LazyValue[T any] struct {
	// mu and set are heap-allocated separately from l itself (rather than
	// embedded) so the cleanup registered below can share them without
	// holding a reference to l — a cleanup argument that keeps its own
	// target reachable never runs.
	mu     *sync.Mutex
	master Future[T]
	p      Promise[T]
	set    *bool
}

// NewLazyValue creates an unset LazyValue.
func NewLazyValue[T any]() *LazyValue[T] {
	f, p := New[T]()
	mu := new(sync.Mutex)
	set := new(bool)
	lv := &LazyValue[T]{master: f, p: p, mu: mu, set: set}
	runtime.AddCleanup(lv, func(arg lazyValueCleanupArg[T]) {
		arg.mu.Lock()
		defer arg.mu.Unlock()
		if !*arg.set {
			*arg.set = true
			_ = arg.p.SetException(usageErrorf("lazy value destroyed without a value ever being set"))
		}
	}, lazyValueCleanupArg[T]{p: p, set: set, mu: mu})
	return lv
}

type lazyValueCleanupArg[T any] struct {
	p   Promise[T]
	set *bool
	mu  *sync.Mutex
}

// SetValue sets the cell's value. A second call returns asyncly.ErrUsage.
func (l *LazyValue[T]) SetValue(v T) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if *l.set {
		return usageErrorf("lazy value already set")
	}
	*l.set = true
	return l.p.SetValue(v)
}

// Get returns an independent branch of the cell's eventual value, obtained
// via Split, so multiple readers can each continue it on their own.
func (l *LazyValue[T]) Get() Future[T] {
	l.mu.Lock()
	defer l.mu.Unlock()
	a, b := Split(l.master)
	l.master = a
	return b
}

// Close rejects the cell with "no value was set" if SetValue was never
// called; it is a no-op otherwise. Safe to call more than once.
func (l *LazyValue[T]) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if *l.set {
		return nil
	}
	*l.set = true
	return l.p.SetException(usageErrorf("lazy value destroyed without a value ever being set"))
}
