package asyncly

import "weak"

// WeakExecutor is a weak reference to an [Executor]. It resolves to the
// executor only while something else holds a strong reference to the
// underlying concrete value; once that value is collected, Resolve reports
// false. Tasks, scheduler entries, and strand back-references all carry
// executors this way so that a runtime component never keeps an executor
// alive on its own.
type WeakExecutor struct {
	resolve func() (Executor, bool)
}

// Resolve upgrades the weak reference, returning (nil, false) once the
// underlying executor is no longer reachable through any strong reference.
func (w WeakExecutor) Resolve() (Executor, bool) {
	if w.resolve == nil {
		return nil, false
	}
	return w.resolve()
}

// NewWeak builds a [WeakExecutor] from a pointer to a concrete executor
// implementation (e.g. *executor.ThreadPool). Concrete executor types call
// this from their own Weak method, where the pointer receiver is already
// known, rather than exposing it as a two-type-parameter helper at call
// sites.
func NewWeak[T any](p *T) WeakExecutor {
	wp := weak.Make(p)
	return WeakExecutor{
		resolve: func() (Executor, bool) {
			v := wp.Value()
			if v == nil {
				return nil, false
			}
			e, ok := any(v).(Executor)
			return e, ok
		},
	}
}

// WeakRef is a weak reference to an arbitrary object, used by WrapWeak and
// friends (the boundary Wrap helpers in §6 take "obj" rather than an
// Executor).
type WeakRef[T any] struct {
	ptr weak.Pointer[T]
}

// NewWeakRef creates a [WeakRef] to obj.
func NewWeakRef[T any](obj *T) WeakRef[T] {
	return WeakRef[T]{ptr: weak.Make(obj)}
}

// Resolve upgrades the weak reference, returning nil once obj is no longer
// reachable through any strong reference.
func (w WeakRef[T]) Resolve() *T {
	return w.ptr.Value()
}
