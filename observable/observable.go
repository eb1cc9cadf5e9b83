// Package observable implements a lazy push-stream: a provider callback
// invoked once per subscription, delivering zero or more values followed
// by at most one error or completion.
//
// Executor affinity follows the same attach-time-capture rule as
// future.Then: the provider's callback runs on the executor current when
// the Observable was built, and every callback delivered to a subscriber
// runs on the executor current when that subscriber called Subscribe.
package observable

import (
	"sync"

	"github.com/goto-opensource/asyncly-sub000"
)

func dispatch(exec asyncly.Executor, fn func()) {
	_ = exec.Post(asyncly.NewTask(fn))
}

type subscriptionState int32

const (
	stateActive subscriptionState = iota
	stateUnsubscribed
	stateCompleted
)

// Subscription is the handle returned by [Observable.Subscribe]: a state
// enum {Active, Unsubscribed, Completed} guarded by a mutex. After the
// subscription leaves Active (via
// Unsubscribe, a delivered error, or completion) no further callback is
// ever delivered, even if the provider keeps pushing values.
type Subscription struct {
	mu    sync.Mutex
	state subscriptionState
}

// Unsubscribe stops further delivery to this subscription. A value pushed
// by the provider after Unsubscribe is silently dropped. Safe to call more
// than once, and safe to call concurrently with pushes.
func (s *Subscription) Unsubscribe() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == stateActive {
		s.state = stateUnsubscribed
	}
}

func (s *Subscription) active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == stateActive
}

// tryTerminate transitions Active -> Completed and reports whether this
// call won the transition; used by both PushError and Complete so that at
// most one of the two ever actually delivers.
func (s *Subscription) tryTerminate() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != stateActive {
		return false
	}
	s.state = stateCompleted
	return true
}

// Subscriber is the handle passed to an Observable's subscribe callback.
// pushValue/pushError/complete post onto the executor current when
// Subscribe was called (the subscriber's executor), never the provider's.
type Subscriber[T any] struct {
	sub        *Subscription
	exec       asyncly.Executor
	onValue    func(T)
	onError    func(error)
	onComplete func()
}

// PushValue delivers v to the subscriber, unless the subscription has
// already left the Active state. Any number of values may be pushed. A
// value pushed before Complete/PushError is still delivered; one whose
// delivery has not run yet when Unsubscribe is called is dropped.
func (s *Subscriber[T]) PushValue(v T) {
	if !s.sub.active() || s.onValue == nil {
		return
	}
	dispatch(s.exec, func() {
		s.sub.mu.Lock()
		unsubscribed := s.sub.state == stateUnsubscribed
		s.sub.mu.Unlock()
		if !unsubscribed {
			s.onValue(v)
		}
	})
}

// PushError terminates the subscription with err. A no-op if the
// subscription already left the Active state (including a prior PushError
// or Complete) — at most one of PushError/Complete is ever delivered.
func (s *Subscriber[T]) PushError(err error) {
	if !s.sub.tryTerminate() || s.onError == nil {
		return
	}
	dispatch(s.exec, func() { s.onError(err) })
}

// Complete terminates the subscription normally. A no-op if the
// subscription already left the Active state.
func (s *Subscriber[T]) Complete() {
	if !s.sub.tryTerminate() || s.onComplete == nil {
		return
	}
	dispatch(s.exec, func() { s.onComplete() })
}

// SubscribeFunc is the provider callback supplied to [New]: invoked once
// per subscription, on the Observable's provider executor, with a fresh
// Subscriber bound to that subscription.
type SubscribeFunc[T any] func(sub *Subscriber[T])

// Observable is a lazy push-stream. The zero value is not usable; obtain
// one from [New] or a transformer in transform.go.
type Observable[T any] struct {
	subscribeFn SubscribeFunc[T]
	exec        asyncly.Executor
}

// New creates an Observable from a provider callback. The current executor
// at the time New is called becomes the provider's executor: subscribeFn
// runs there (dispatched, never inline) every time something subscribes.
// Requires a current executor, matching every other attach-time-capture
// operation in this module.
func New[T any](subscribeFn SubscribeFunc[T]) (Observable[T], error) {
	exec, err := asyncly.GetCurrentExecutor()
	if err != nil {
		return Observable[T]{}, err
	}
	return Observable[T]{subscribeFn: subscribeFn, exec: exec}, nil
}

// Subscribe registers onValue/onError/onComplete against o. The provider
// callback is invoked asynchronously on o's provider executor; delivered
// callbacks run on the executor current when Subscribe was called. Any of
// the three callbacks may be nil. Requires a current executor.
func (o Observable[T]) Subscribe(onValue func(T), onError func(error), onComplete func()) (*Subscription, error) {
	exec, err := asyncly.GetCurrentExecutor()
	if err != nil {
		return nil, err
	}
	sub := &Subscription{}
	subscriber := &Subscriber[T]{sub: sub, exec: exec, onValue: onValue, onError: onError, onComplete: onComplete}
	dispatch(o.exec, func() {
		if sub.active() && o.subscribeFn != nil {
			o.subscribeFn(subscriber)
		}
	})
	return sub, nil
}
