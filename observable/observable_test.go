package observable_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goto-opensource/asyncly-sub000"
	"github.com/goto-opensource/asyncly-sub000/executor"
	"github.com/goto-opensource/asyncly-sub000/observable"
)

// onPool runs fn synchronously inside a task on a dedicated single-worker
// pool, giving fn a goroutine with a current executor — the precondition
// for observable.New and Observable.Subscribe. The pool outlives fn itself
// (via t.Cleanup) so provider callbacks and pushes dispatched from inside
// fn have a chance to run before the test ends.
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

func TestSubscribeReceivesPushedValues(t *testing.T) {
	valuesCh := make(chan int, 3)
	onPool(t, func() {
		obs, err := observable.New(func(sub *observable.Subscriber[int]) {
			sub.PushValue(1)
			sub.PushValue(2)
			sub.PushValue(3)
			sub.Complete()
		})
		require.NoError(t, err)
		_, err = obs.Subscribe(func(v int) { valuesCh <- v }, nil, nil)
		require.NoError(t, err)
	})
	for _, want := range []int{1, 2, 3} {
		select {
		case v := <-valuesCh:
			assert.Equal(t, want, v)
		case <-time.After(time.Second):
			t.Fatal("value never delivered")
		}
	}
}

func TestCompleteAndErrorAreMutuallyExclusive(t *testing.T) {
	// At most one of PushError/Complete may fire per subscription.
	completed := make(chan struct{}, 1)
	errored := make(chan error, 1)
	onPool(t, func() {
		obs, err := observable.New(func(sub *observable.Subscriber[int]) {
			sub.Complete()
			sub.PushError(errors.New("should never arrive"))
		})
		require.NoError(t, err)
		_, err = obs.Subscribe(nil, func(e error) { errored <- e }, func() { completed <- struct{}{} })
		require.NoError(t, err)
	})
	select {
	case <-completed:
	case <-time.After(time.Second):
		t.Fatal("complete never delivered")
	}
	select {
	case e := <-errored:
		t.Fatalf("pushError delivered after complete: %v", e)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPushAfterUnsubscribeIsDropped(t *testing.T) {
	valuesCh := make(chan int, 2)
	var sub *observable.Subscription
	var provide func(int)
	onPool(t, func() {
		obs, err := observable.New(func(s *observable.Subscriber[int]) {
			provide = s.PushValue
		})
		require.NoError(t, err)
		sub, err = obs.Subscribe(func(v int) { valuesCh <- v }, nil, nil)
		require.NoError(t, err)
	})
	// Wait for the provider callback to run and capture provide.
	require.Eventually(t, func() bool { return provide != nil }, time.Second, time.Millisecond)

	onPool(t, func() { provide(1) })
	select {
	case v := <-valuesCh:
		assert.Equal(t, 1, v)
	case <-time.After(time.Second):
		t.Fatal("first value never delivered")
	}

	sub.Unsubscribe()
	onPool(t, func() { provide(2) })
	select {
	case v := <-valuesCh:
		t.Fatalf("value delivered after unsubscribe: %d", v)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMapIsLazyAndTransformsValues(t *testing.T) {
	var subscribed bool
	valuesCh := make(chan int, 1)
	onPool(t, func() {
		upstream, err := observable.New(func(sub *observable.Subscriber[int]) {
			subscribed = true
			sub.PushValue(21)
		})
		require.NoError(t, err)
		mapped := observable.Map(upstream, func(v int) int { return v * 2 })
		assert.False(t, subscribed, "upstream must not be subscribed before the downstream Subscribe call")
		_, err = mapped.Subscribe(func(v int) { valuesCh <- v }, nil, nil)
		require.NoError(t, err)
	})
	select {
	case v := <-valuesCh:
		assert.Equal(t, 42, v)
	case <-time.After(time.Second):
		t.Fatal("mapped value never delivered")
	}
	assert.True(t, subscribed)
}

func TestFilterDropsNonMatchingValues(t *testing.T) {
	valuesCh := make(chan int, 5)
	onPool(t, func() {
		upstream, err := observable.New(func(sub *observable.Subscriber[int]) {
			for i := 1; i <= 5; i++ {
				sub.PushValue(i)
			}
			sub.Complete()
		})
		require.NoError(t, err)
		evens := observable.Filter(upstream, func(v int) bool { return v%2 == 0 })
		_, err = evens.Subscribe(func(v int) { valuesCh <- v }, nil, nil)
		require.NoError(t, err)
	})
	for _, want := range []int{2, 4} {
		select {
		case v := <-valuesCh:
			assert.Equal(t, want, v)
		case <-time.After(time.Second):
			t.Fatal("filtered value never delivered")
		}
	}
	select {
	case v := <-valuesCh:
		t.Fatalf("unexpected extra value: %d", v)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestScanAccumulatesPerSubscription(t *testing.T) {
	sumsCh := make(chan int, 3)
	onPool(t, func() {
		upstream, err := observable.New(func(sub *observable.Subscriber[int]) {
			sub.PushValue(1)
			sub.PushValue(2)
			sub.PushValue(3)
		})
		require.NoError(t, err)
		sums := observable.Scan(upstream, 0, func(acc, v int) int { return acc + v })
		_, err = sums.Subscribe(func(v int) { sumsCh <- v }, nil, nil)
		require.NoError(t, err)
	})
	for _, want := range []int{1, 3, 6} {
		select {
		case v := <-sumsCh:
			assert.Equal(t, want, v)
		case <-time.After(time.Second):
			t.Fatal("scanned value never delivered")
		}
	}
}

func TestSubscribeOutsideRuntimeIsUsageError(t *testing.T) {
	_, err := (observable.Observable[int]{}).Subscribe(nil, nil, nil)
	assert.ErrorIs(t, err, asyncly.ErrUsage)
}
