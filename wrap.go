package asyncly

// WrapPost returns a function that, when called, posts fn to exec. It is
// the simplest of the Wrap helpers: a way to hand out a plain func() that
// closes over "post this to that executor" without exposing the executor
// itself to the receiver.
func WrapPost(exec Executor, fn func()) func() {
	return func() {
		_ = exec.Post(NewTask(fn))
	}
}

// WrapPostCurrent is WrapPost using whatever executor is current on the
// calling goroutine at the time WrapPostCurrent is called (not at the time
// the returned function is called).
func WrapPostCurrent(fn func()) (func(), error) {
	exec, err := GetCurrentExecutor()
	if err != nil {
		return nil, err
	}
	return WrapPost(exec, fn), nil
}

// WrapWeak returns a function that resolves a weak reference to obj each
// time it is called and, if still alive, invokes fn with the strong
// pointer. If obj is no longer reachable, the returned function returns
// ErrWeakExpired instead of calling fn.
func WrapWeak[T any](obj *T, fn func(*T)) func() error {
	ref := NewWeakRef(obj)
	return func() error {
		v := ref.Resolve()
		if v == nil {
			return Tag(ErrWeakExpired, "wrap_weak")
		}
		fn(v)
		return nil
	}
}

// WrapWeakIgnore is WrapWeak but silently does nothing when the weak
// reference has expired, instead of reporting an error.
func WrapWeakIgnore[T any](obj *T, fn func(*T)) func() {
	ref := NewWeakRef(obj)
	return func() {
		if v := ref.Resolve(); v != nil {
			fn(v)
		}
	}
}

// WrapWeakWithCustomError is WrapWeak but routes expiry to onExpired
// instead of returning an error.
func WrapWeakWithCustomError[T any](obj *T, fn func(*T), onExpired func(error)) func() {
	ref := NewWeakRef(obj)
	return func() {
		v := ref.Resolve()
		if v == nil {
			onExpired(Tag(ErrWeakExpired, "wrap_weak"))
			return
		}
		fn(v)
	}
}

// WrapWeakPost combines WrapWeak with WrapPost: the returned function
// posts to exec a task that resolves the weak reference and, if obj is
// still alive, invokes fn with the strong pointer on exec. Expiry is
// observed inside the posted task (at run time, not post time) and
// surfaced as the task's invocation error, which the running executor
// logs.
func WrapWeakPost[T any](exec Executor, obj *T, fn func(*T)) func() {
	inner := WrapWeak(obj, fn)
	return func() {
		_ = exec.Post(NewTask(func() {
			if err := inner(); err != nil {
				panic(err)
			}
		}))
	}
}

// WrapWeakIgnorePost is WrapWeakPost but silently does nothing when the
// weak reference has expired by the time the posted task runs.
func WrapWeakIgnorePost[T any](exec Executor, obj *T, fn func(*T)) func() {
	inner := WrapWeakIgnore(obj, fn)
	return func() {
		_ = exec.Post(NewTask(inner))
	}
}

// WrapWeakThis is WrapWeak, named for the case where obj is the receiver's
// own "self" pointer (the Go equivalent of deriving a shared reference via
// enable_shared_from_this: the self pointer already is the shared handle,
// so no further derivation step is needed).
func WrapWeakThis[T any](self *T, fn func(*T)) func() error {
	return WrapWeak(self, fn)
}
