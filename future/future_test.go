package future_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goto-opensource/asyncly-sub000"
	"github.com/goto-opensource/asyncly-sub000/executor"
	"github.com/goto-opensource/asyncly-sub000/future"
)

// onPool runs fn synchronously inside a task on a dedicated single-worker
// pool and waits for it to return, giving fn a goroutine with a current
// executor — the precondition for Then/CatchError and every combinator in
// this package — without depending on BlockingWait (which specifically
// refuses to run from inside the runtime). The pool keeps running until
// the test itself ends (via t.Cleanup), so asynchronous follow-up work fn
// merely schedules (a timer, a chained Then) has a chance to complete
// before the test's own assertions, which read the result from outside
// onPool, time out.
func onPool(t *testing.T, fn func()) {
	t.Helper()
	tp := executor.NewThreadPool(1)
	t.Cleanup(tp.Finish)
	done := make(chan struct{})
	require.NoError(t, tp.Post(asyncly.NewTask(func() {
		defer close(done)
		fn()
	})))
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("onPool: task never completed")
	}
}

// settle attaches Then/CatchError to f (which must be done from a
// goroutine with a current executor, i.e. from inside onPool) and returns
// channels that receive whichever one fires. Read the channels from
// outside onPool, never from inside it — f's executor may be the very
// single-worker pool running the attaching task, so blocking on the result
// inside that task would deadlock.
func settle[T any](t *testing.T, f future.Future[T]) (<-chan T, <-chan error) {
	t.Helper()
	vCh := make(chan T, 1)
	eCh := make(chan error, 1)
	future.Then(f, func(v T) future.Void { vCh <- v; return future.Void{} })
	require.NoError(t, future.CatchError(f, func(e error) { eCh <- e }))
	return vCh, eCh
}

func await[T any](t *testing.T, vCh <-chan T, eCh <-chan error) (T, error) {
	t.Helper()
	select {
	case v := <-vCh:
		return v, nil
	case e := <-eCh:
		var zero T
		return zero, e
	case <-time.After(2 * time.Second):
		t.Fatal("future never settled")
		var zero T
		return zero, nil
	}
}

func TestMakeReadyThenIsEquivalentToPostingResult(t *testing.T) {
	// Resolved(v) + Then(f) is observationally equivalent to posting
	// f(v) on the current executor.
	result := make(chan int, 1)
	onPool(t, func() {
		future.Then(future.Resolved(21), func(x int) future.Void {
			result <- x * 2
			return future.Void{}
		})
	})
	select {
	case v := <-result:
		assert.Equal(t, 42, v)
	case <-time.After(time.Second):
		t.Fatal("then never ran")
	}
}

func TestThenChainScenario3(t *testing.T) {
	// Resolved(21) -> x*2 -> deliver: the chain yields 42.
	result := make(chan int, 1)
	onPool(t, func() {
		future.Then(
			future.Then(future.Resolved(21), func(x int) int { return x * 2 }),
			func(y int) future.Void {
				result <- y
				return future.Void{}
			},
		)
	})
	select {
	case v := <-result:
		assert.Equal(t, 42, v)
	case <-time.After(time.Second):
		t.Fatal("chain never settled")
	}
}

func TestCatchErrorBreaksChainScenario4(t *testing.T) {
	// Register Then(a) and CatchError(b), then reject the promise:
	// b runs with that error, a never runs.
	var aRan bool
	caught := make(chan error, 1)
	onPool(t, func() {
		f, p := future.New[int]()
		future.Then(f, func(int) future.Void { aRan = true; return future.Void{} })
		require.NoError(t, future.CatchError(f, func(e error) { caught <- e }))
		require.NoError(t, p.SetException(errors.New("x")))
	})
	select {
	case e := <-caught:
		assert.EqualError(t, e, "x")
	case <-time.After(time.Second):
		t.Fatal("catch_error never ran")
	}
	assert.False(t, aRan)
}

func TestCatchAndForwardErrorForwardsDownstream(t *testing.T) {
	caught := make(chan error, 2)
	onPool(t, func() {
		f, p := future.New[int]()
		down := future.Then(f, func(int) int { return 0 })
		require.NoError(t, future.CatchAndForwardError(f, func(e error) { caught <- e }))
		require.NoError(t, future.CatchError(down, func(e error) { caught <- e }))
		require.NoError(t, p.SetException(errors.New("boom")))
	})
	for i := 0; i < 2; i++ {
		select {
		case e := <-caught:
			assert.EqualError(t, e, "boom")
		case <-time.After(time.Second):
			t.Fatal("forwarded error never arrived")
		}
	}
}

func TestSecondThenIsUsageError(t *testing.T) {
	errCh := make(chan error, 1)
	onPool(t, func() {
		f, _ := future.New[int]()
		_ = future.Then(f, func(int) int { return 0 })
		// Attaching a second Then to f fails synchronously with
		// ErrUsage; Then rejects the second downstream future with
		// that error before returning it.
		down := future.Then(f, func(int) int { return 0 })
		require.NoError(t, future.CatchError(down, func(e error) { errCh <- e }))
	})
	select {
	case e := <-errCh:
		assert.ErrorIs(t, e, asyncly.ErrUsage)
	case <-time.After(time.Second):
		t.Fatal("expected the second Then's downstream to already be settled")
	}
}

func TestPromiseDoubleSetIsUsageError(t *testing.T) {
	_, p := future.New[int]()
	require.NoError(t, p.SetValue(1))
	assert.ErrorIs(t, p.SetValue(2), asyncly.ErrUsage)
	assert.ErrorIs(t, p.SetException(errors.New("x")), asyncly.ErrUsage)
}

func TestThenPanicRejectsDownstream(t *testing.T) {
	errCh := make(chan error, 1)
	onPool(t, func() {
		down := future.Then(future.Resolved(1), func(int) int { panic("kaboom") })
		require.NoError(t, future.CatchError(down, func(e error) { errCh <- e }))
	})
	select {
	case e := <-errCh:
		assert.Contains(t, e.Error(), "kaboom")
	case <-time.After(time.Second):
		t.Fatal("panic never rejected downstream")
	}
}

func TestThenFutureFlattens(t *testing.T) {
	resultCh := make(chan int, 1)
	onPool(t, func() {
		down := future.ThenFuture(future.Resolved(1), func(int) future.Future[int] {
			return future.Resolved(99)
		})
		future.Then(down, func(v int) future.Void { resultCh <- v; return future.Void{} })
	})
	select {
	case v := <-resultCh:
		assert.Equal(t, 99, v)
	case <-time.After(time.Second):
		t.Fatal("flattened future never settled")
	}
}

func TestBlockingWaitRejectsFromInsideRuntime(t *testing.T) {
	onPool(t, func() {
		_, err := future.BlockingWait(future.Resolved(1))
		assert.ErrorIs(t, err, asyncly.ErrUsage)
	})
}

func TestBlockingWaitOnRejectedFuture(t *testing.T) {
	// BlockingWait on an already-rejected future returns the same error.
	_, err := future.BlockingWait(future.Rejected[int](errors.New("already broken")))
	assert.EqualError(t, err, "already broken")
}

func TestBlockingWaitReturnsResolvedValue(t *testing.T) {
	v, err := future.BlockingWait(future.Resolved(7))
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestBlockingWaitFuncRunsOnExecutor(t *testing.T) {
	tp := executor.NewThreadPool(1)
	defer tp.Finish()

	v, err := future.BlockingWaitFunc(tp, func() future.Future[int] {
		return future.Then(future.Resolved(20), func(x int) int { return x + 1 })
	})
	require.NoError(t, err)
	assert.Equal(t, 21, v)
}

func TestManyTasksEachSettleTheirOwnPromise(t *testing.T) {
	tp := executor.NewThreadPool(2)
	defer tp.Finish()

	const n = 200
	futures := make([]future.Future[int], n)
	promises := make([]future.Promise[int], n)
	for i := range futures {
		futures[i], promises[i] = future.New[int]()
	}
	for i := 0; i < n; i++ {
		i := i
		require.NoError(t, tp.Post(asyncly.NewTask(func() {
			_ = promises[i].SetValue(i)
		})))
	}

	vals, err := future.BlockingWaitAll(futures...)
	require.NoError(t, err)
	require.Len(t, vals, n)
	for i, v := range vals {
		assert.Equal(t, i, v)
	}
}
